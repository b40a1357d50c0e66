package gdal

import (
	"path/filepath"
	"testing"

	"github.com/airbusgeo/godal"

	"hsicube/pkg/format"
	"hsicube/pkg/numeric"
)

func writeTIFF(t *testing.T) string {
	t.Helper()
	NewHandler(nil)
	name := filepath.Join(t.TempDir(), "two.tif")
	ds, err := godal.Create(godal.GTiff, name, 2, godal.Int16, 4, 3)
	if err != nil {
		t.Fatalf("Failed to create %s: %v", name, err)
	}
	for b, band := range ds.Bands() {
		buf := make([]int16, 12)
		for i := range buf {
			buf[i] = int16(100*b + i)
		}
		if err := band.Write(0, 0, buf, 4, 3); err != nil {
			t.Fatalf("Failed to write band %d: %v", b, err)
		}
	}
	if err := ds.Close(); err != nil {
		t.Fatalf("Failed to close %s: %v", name, err)
	}
	return name
}

func TestOpenGeoTIFF(t *testing.T) {
	name := writeTIFF(t)
	h := NewHandler(nil)
	if conf := h.Identify(name); conf != format.Probable {
		t.Errorf("Expected probable, got %s", conf)
	}
	if conf := h.Identify("mem://x/two.tif"); conf != format.None {
		t.Errorf("Expected none for a mem:// URL, got %s", conf)
	}

	c, err := h.Open(name)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer c.Close()
	a := c.Attributes()
	if a.Lines != 3 || a.Samples != 4 || a.Bands != 2 || a.DataType != numeric.Int16 {
		t.Errorf("Unexpected attributes %dx%dx%d %s", a.Lines, a.Samples, a.Bands, a.DataType)
	}
	if v, _ := c.GetPixel(2, 1, 1); v != 109 {
		t.Errorf("Expected 109, got %v", v)
	}
	if !c.InMemory() {
		t.Errorf("Expected an in-memory cube")
	}
}

func TestOpenGarbage(t *testing.T) {
	h := NewHandler(nil)
	if _, err := h.Open("mem://x/two.tif"); err == nil {
		t.Errorf("Expected an error for a non-local URL")
	}
}
