package cube

import (
	"bytes"
	"errors"
	"reflect"
	"testing"
)

func fixtureAttrsSized(il Interleave, lines, samples, bands int) *Attributes {
	a := fixtureAttrs(il, HostByteOrder())
	a.Lines, a.Samples, a.Bands = lines, samples, bands
	return a
}

func TestSubsetAccessors(t *testing.T) {
	const l1, s1, b1 = 1, 1, 1
	for _, il := range []Interleave{BIL, BIP, BSQ} {
		c := fixtureCube(t, il)
		sub, err := c.Subset(l1, 3, s1, 4, b1, 3)
		if err != nil {
			t.Fatalf("%s: Subset failed: %v", il, err)
		}
		a := sub.Attributes()
		if a.Lines != 2 || a.Samples != 3 || a.Bands != 2 {
			t.Fatalf("%s: expected 2 x 3 x 2, got %d x %d x %d", il, a.Lines, a.Samples, a.Bands)
		}
		if sub.Parent() != c {
			t.Errorf("%s: expected the subset to know its parent", il)
		}

		for b := 0; b < a.Bands; b++ {
			band, err := sub.GetBand(b)
			if err != nil {
				t.Fatalf("%s: GetBand(%d): %v", il, b, err)
			}
			for l := 0; l < a.Lines; l++ {
				spectrum, _ := sub.GetSpectrum(l, 0)
				line, _ := sub.GetLineOfSpectra(l)
				plane, _ := sub.GetFocalPlane(l)
				for s := 0; s < a.Samples; s++ {
					want, _ := c.GetPixel(l+l1, s+s1, b+b1)
					if s > 0 {
						spectrum, _ = sub.GetSpectrum(l, s)
					}
					px, err := sub.GetPixel(l, s, b)
					if err != nil {
						t.Fatalf("%s: GetPixel: %v", il, err)
					}
					depth, _ := sub.GetFocalPlaneDepth(s, b)
					values := []float64{px, band.At(l, s), spectrum.At(b), line.At(s, b), plane.At(b, s), depth.At(l)}
					for i, v := range values {
						if v != want {
							t.Errorf("%s: (%d,%d,%d) accessor %d gave %v, parent has %v", il, l, s, b, i, v, want)
						}
					}
					gl, gs, gb := sub.FlatToLocation(sub.LocationToFlat(l, s, b))
					if gl != l || gs != s || gb != b {
						t.Errorf("%s: (%d,%d,%d) flat round trip gave (%d,%d,%d)", il, l, s, b, gl, gs, gb)
					}
					if sub.ByteOffset(l, s, b) != c.ByteOffset(l+l1, s+s1, b+b1) {
						t.Errorf("%s: (%d,%d,%d) byte offset differs from the parent", il, l, s, b)
					}
				}
			}
		}
	}
}

func TestSubsetBSQValues(t *testing.T) {
	c := fixtureCube(t, BSQ)
	sub, err := c.Subset(1, 3, 1, 4, 1, 3)
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := sub.GetPixel(0, 0, 0); v != 26 {
		t.Errorf("Expected 26, got %v", v)
	}
	lo, hi, err := sub.BandExtrema(1)
	if err != nil || lo != 46 || hi != 53 {
		t.Errorf("Expected band 1 extrema (46, 53), got (%v, %v, %v)", lo, hi, err)
	}

	inner, err := sub.Subset(1, 2, 2, 3, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := inner.GetPixel(0, 0, 0); v != 53 {
		t.Errorf("Expected 53 from a subset of a subset, got %v", v)
	}
}

func TestSubsetAttributes(t *testing.T) {
	c := fixtureCube(t, BSQ)
	a := c.Attributes()
	a.Wavelengths = []float64{450, 550, 650}
	a.FWHM = []float64{10, 11, 12}
	a.BadBands = []int{1, 0, 1}
	a.BandNames = []string{"blue", "green", "red"}
	a.DefaultBands = []int{2, 1, 0}
	a.Georef = &Georef{Projection: "UTM", RefX: 1, RefY: 1, Easting: 1000, Northing: 5000, PixelX: 2, PixelY: 2, Zone: 13, North: true}
	xs := 1
	a.XStart = &xs

	sub, err := c.Subset(1, 3, 2, 5, 1, 3)
	if err != nil {
		t.Fatal(err)
	}
	s := sub.Attributes()
	if !reflect.DeepEqual(s.Wavelengths, []float64{550, 650}) || !reflect.DeepEqual(s.FWHM, []float64{11, 12}) {
		t.Errorf("Unexpected band lists %v %v", s.Wavelengths, s.FWHM)
	}
	if !reflect.DeepEqual(s.BadBands, []int{0, 1}) || !reflect.DeepEqual(s.BandNames, []string{"green", "red"}) {
		t.Errorf("Unexpected band lists %v %v", s.BadBands, s.BandNames)
	}
	if !reflect.DeepEqual(s.DefaultBands, []int{1, 0}) {
		t.Errorf("Expected default bands [1 0], got %v", s.DefaultBands)
	}
	if *s.XStart != 3 || *a.XStart != 1 {
		t.Errorf("Expected x start 3 on the subset and 1 on the parent, got %d and %d", *s.XStart, *a.XStart)
	}
	if got, want := s.Georef.PixelToMap(0, 0), a.Georef.PixelToMap(1, 2); got != want {
		t.Errorf("Expected subset origin at %v, got %v", want, got)
	}
	if err := s.Verify(); err != nil {
		t.Errorf("Expected subset attributes to verify, got %v", err)
	}
}

func TestSubsetWritesAndClose(t *testing.T) {
	c := fixtureCube(t, BIP)
	sub, _ := c.Subset(0, 2, 0, 2, 1, 3)
	if lo, hi, _ := c.BandExtrema(2); lo != 2 || hi != 59 {
		t.Fatalf("Expected parent band 2 extrema (2, 59), got (%v, %v)", lo, hi)
	}
	sub.BandExtrema(0)

	if err := sub.SetPixel(1, 1, 1, 500); err != nil {
		t.Fatalf("SetPixel failed: %v", err)
	}
	if v, _ := c.GetPixel(1, 1, 2); v != 500 {
		t.Errorf("Expected the write to reach the parent, got %v", v)
	}
	if _, hi, _ := c.BandExtrema(2); hi != 500 {
		t.Errorf("Expected the parent to see the new maximum, got %v", hi)
	}
	if err := c.SetPixel(0, 0, 1, -3); err != nil {
		t.Fatal(err)
	}
	if lo, _, _ := sub.BandExtrema(0); lo != -3 {
		t.Errorf("Expected the subset to see the parent's write, got %v", lo)
	}

	var buf bytes.Buffer
	if err := sub.WriteRaw(&buf, BSQ); err != nil {
		t.Fatalf("WriteRaw failed: %v", err)
	}
	out, err := NewFromBytes(fixtureAttrsSized(BSQ, 2, 2, 2), buf.Bytes())
	if err != nil {
		t.Fatalf("NewFromBytes over subset output failed: %v", err)
	}
	if v, _ := out.GetPixel(1, 1, 1); v != 500 {
		t.Errorf("Expected 500 in the written subset, got %v", v)
	}

	sub.Close()
	if _, err := c.GetPixel(0, 0, 0); err != nil {
		t.Errorf("Expected the parent to stay open, got %v", err)
	}
	sub2, _ := c.Subset(0, 1, 0, 1, 0, 1)
	c.Close()
	if _, err := sub2.GetPixel(0, 0, 0); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed once the parent is closed, got %v", err)
	}
	if _, err := c.Subset(0, 1, 0, 1, 0, 1); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed from Subset of a closed cube, got %v", err)
	}
}

func TestSubsetRange(t *testing.T) {
	c := fixtureCube(t, BIL)
	tests := [][6]int{
		{0, 0, 0, 1, 0, 1},
		{0, 5, 0, 1, 0, 1},
		{-1, 1, 0, 1, 0, 1},
		{0, 1, 3, 2, 0, 1},
		{0, 1, 0, 6, 0, 1},
		{0, 1, 0, 1, 2, 4},
	}
	for _, r := range tests {
		if _, err := c.Subset(r[0], r[1], r[2], r[3], r[4], r[5]); !errors.Is(err, ErrOutOfRange) {
			t.Errorf("%v: expected ErrOutOfRange, got %v", r, err)
		}
	}
	sub, _ := c.Subset(0, 2, 0, 2, 0, 2)
	if _, err := sub.GetPixel(2, 0, 0); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("Expected ErrOutOfRange past the subset edge, got %v", err)
	}
}
