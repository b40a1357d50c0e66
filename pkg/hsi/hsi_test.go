package hsi

import (
	"errors"
	"testing"

	"hsicube/pkg/cube"
	"hsicube/pkg/envi"
	"hsicube/pkg/format"
	"hsicube/pkg/format/fits"
	"hsicube/pkg/numeric"
	"hsicube/pkg/vfs"
)

func TestOpenENVI(t *testing.T) {
	attrs := &cube.Attributes{Samples: 2, Lines: 2, Bands: 2, Interleave: cube.BSQ, DataType: numeric.Uint8}
	data := "mem://hsi-test/tiny.bsq"
	if err := vfs.WriteFile(data, []byte{1, 2, 3, 4, 5, 6, 7, 8}); err != nil {
		t.Fatal(err)
	}
	if err := envi.WriteHeader(envi.HeaderURL(data), attrs); err != nil {
		t.Fatal(err)
	}

	c, err := Open(data)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer c.Close()
	if v, _ := c.GetPixel(1, 0, 1); v != 7 {
		t.Errorf("Expected 7, got %v", v)
	}

	if h := DefaultRegistry(nil).Identify(data); h == nil || h.Descriptor().ID != "ENVI" {
		t.Errorf("Expected the ENVI handler to claim %s", data)
	}
}

func TestOpenFITS(t *testing.T) {
	attrs := &cube.Attributes{Samples: 2, Lines: 2, Bands: 2, Interleave: cube.BIP, DataType: numeric.Uint8}
	src, err := cube.NewFromBytes(attrs, []byte{1, 2, 3, 4, 5, 6, 7, 8})
	if err != nil {
		t.Fatal(err)
	}
	url := "mem://hsi-test/tiny.fits"
	if err := fits.Write(url, src); err != nil {
		t.Fatalf("fits.Write failed: %v", err)
	}
	defer vfs.Remove(url)

	if h := DefaultRegistry(nil).Identify(url); h == nil || h.Descriptor().ID != "FITS" {
		t.Fatalf("Expected the FITS handler to claim %s", url)
	}
	c, err := Open(url)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer c.Close()
	if c.Attributes().Interleave != cube.BSQ {
		t.Errorf("Expected a BSQ cube, got %s", c.Attributes().Interleave)
	}
	if v, _ := c.GetPixel(1, 0, 1); v != 6 {
		t.Errorf("Expected 6, got %v", v)
	}
}

func TestOpenUnknown(t *testing.T) {
	if _, err := Open("mem://hsi-test/nothing.xyz"); !errors.Is(err, format.ErrNoHandler) {
		t.Errorf("Expected ErrNoHandler, got %v", err)
	}
}
