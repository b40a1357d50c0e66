package visualization

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"hsicube/pkg/cube"
	"hsicube/pkg/numeric"
	"hsicube/pkg/roi"
	"hsicube/pkg/vfs"
)

func ramp(t *testing.T, n int) *numeric.Slab {
	t.Helper()
	values := make([]float64, n)
	for i := range values {
		values[i] = float64(i)
	}
	s, err := numeric.FromValues(numeric.Float64, numeric.HostOrder(), values, 1, n)
	if err != nil {
		t.Fatalf("FromValues failed: %v", err)
	}
	return s
}

func testCube(t *testing.T) *cube.Cube {
	t.Helper()
	attrs := &cube.Attributes{
		Samples: 5, Lines: 4, Bands: 3, Interleave: cube.BSQ, DataType: numeric.Int16,
		ByteOrder: cube.HostByteOrder(),
	}
	data := make([]byte, 120)
	for i := 0; i < 60; i++ {
		numeric.Encode(data[2*i:], numeric.Int16, numeric.HostOrder(), float64(i))
	}
	c, err := cube.NewFromBytes(attrs, data)
	if err != nil {
		t.Fatalf("NewFromBytes failed: %v", err)
	}
	return c
}

// TestBandFilter verifies the linear min/max mapping
func TestBandFilter(t *testing.T) {
	g := BandFilter{}.ToGray(ramp(t, 6))
	if g.DType() != numeric.Uint8 {
		t.Fatalf("Expected uint8 output, got %v", g.DType())
	}
	want := []byte{0, 51, 102, 153, 204, 255}
	if !bytes.Equal(g.Bytes(), want) {
		t.Errorf("Expected %v, got %v", want, g.Bytes())
	}

	flat, _ := numeric.FromValues(numeric.Float64, numeric.HostOrder(), []float64{7, 7, 7, 7}, 2, 2)
	if got := (BandFilter{}).ToGray(flat).Bytes(); !bytes.Equal(got, make([]byte, 4)) {
		t.Errorf("Expected a constant band to map to zeros, got %v", got)
	}
}

func TestContrastFilter(t *testing.T) {
	if _, err := NewContrastFilter(0.5); !errors.Is(err, ErrStretch) {
		t.Errorf("Expected ErrStretch, got %v", err)
	}
	if _, err := NewContrastFilter(-0.1); !errors.Is(err, ErrStretch) {
		t.Errorf("Expected ErrStretch, got %v", err)
	}

	band := ramp(t, 100)
	none, _ := NewContrastFilter(0)
	if !bytes.Equal(none.ToGray(band).Bytes(), BandFilter{}.ToGray(band).Bytes()) {
		t.Errorf("Expected a zero stretch to match BandFilter")
	}

	f, err := NewContrastFilter(0.1)
	if err != nil {
		t.Fatalf("NewContrastFilter failed: %v", err)
	}
	lo, hi := f.Limits(band)
	if lo != 9.375 || hi != 89.84375 {
		t.Errorf("Expected limits 9.375 and 89.84375, got %v and %v", lo, hi)
	}
	g := f.ToGray(band).Bytes()
	if g[0] != 0 || g[9] != 0 || g[99] != 255 || g[95] != 255 {
		t.Errorf("Expected the tails to saturate, got %v ... %v", g[:10], g[90:])
	}
	if g[50] == 0 || g[50] == 255 {
		t.Errorf("Expected a mid-range value for 50, got %d", g[50])
	}
}

// TestToRGB verifies composition and single-band broadcasting
func TestToRGB(t *testing.T) {
	c := testCube(t)

	raster, err := ToRGB(c, []int{2, 1, 0}, BandFilter{})
	if err != nil {
		t.Fatalf("ToRGB failed: %v", err)
	}
	shape := raster.Shape()
	if len(shape) != 3 || shape[0] != 4 || shape[1] != 5 || shape[2] != 3 {
		t.Fatalf("Expected shape [4 5 3], got %v", shape)
	}
	last := raster.Bytes()[len(raster.Bytes())-3:]
	if !bytes.Equal(last, []byte{255, 255, 255}) {
		t.Errorf("Expected the brightest pixel to be white, got %v", last)
	}

	gray, err := ToRGB(c, []int{1}, BandFilter{})
	if err != nil {
		t.Fatalf("ToRGB failed: %v", err)
	}
	px := gray.Bytes()
	for i := 0; i < len(px); i += 3 {
		if px[i] != px[i+1] || px[i] != px[i+2] {
			t.Fatalf("Expected equal channels at %d, got %v", i/3, px[i:i+3])
		}
	}

	if _, err := ToRGB(c, nil, BandFilter{}); !errors.Is(err, ErrBands) {
		t.Errorf("Expected ErrBands, got %v", err)
	}
	if _, err := ToRGB(c, []int{0, 1, 2, 0}, BandFilter{}); !errors.Is(err, ErrBands) {
		t.Errorf("Expected ErrBands, got %v", err)
	}
	if _, err := ToRGB(c, []int{3}, BandFilter{}); !errors.Is(err, cube.ErrOutOfRange) {
		t.Errorf("Expected ErrOutOfRange, got %v", err)
	}
}

func TestQuickLook(t *testing.T) {
	img, err := QuickLook(testCube(t), BandFilter{})
	if err != nil {
		t.Fatalf("QuickLook failed: %v", err)
	}
	if img.Bounds() != image.Rect(0, 0, 5, 4) {
		t.Errorf("Expected 5x4 image, got %v", img.Bounds())
	}
	if got := img.RGBAAt(0, 0); got != (color.RGBA{A: 255}) {
		t.Errorf("Expected opaque black at the origin, got %v", got)
	}
}

func TestPlaneFilters(t *testing.T) {
	raw := mat.NewDense(1, 3, []float64{-1, 2, 300})

	clipped, _ := ClipFilter{Min: 0, Max: 255}.Apply(raw)
	if !mat.Equal(clipped, mat.NewDense(1, 3, []float64{0, 2, 255})) {
		t.Errorf("Unexpected clip result %v", mat.Formatted(clipped))
	}
	open, _ := NewClipFilter().Apply(raw)
	if open.At(0, 2) != 300 || open.At(0, 0) != 0 {
		t.Errorf("Expected only the low end clipped, got %v", mat.Formatted(open))
	}
	if raw.At(0, 0) != -1 {
		t.Errorf("Expected the input to stay untouched")
	}

	dark := mat.NewDense(1, 3, []float64{1, 1, 1})
	chain := ChainFilter{SubtractFilter{Dark: dark}, ClipFilter{Min: 0, Max: 100}}
	out, err := chain.Apply(raw)
	if err != nil {
		t.Fatalf("Chain failed: %v", err)
	}
	if !mat.Equal(out, mat.NewDense(1, 3, []float64{0, 1, 100})) {
		t.Errorf("Unexpected chain result %v", mat.Formatted(out))
	}

	if _, err := (SubtractFilter{Dark: mat.NewDense(2, 2, nil)}).Apply(raw); !errors.Is(err, ErrPlaneShape) {
		t.Errorf("Expected ErrPlaneShape, got %v", err)
	}
}

// TestGaussianFilter verifies smoothing keeps flat planes flat and spreads
// an impulse symmetrically
func TestGaussianFilter(t *testing.T) {
	flat := mat.NewDense(6, 7, nil)
	flat.Apply(func(_, _ int, _ float64) float64 { return 5 }, flat)
	out, err := NewGaussianFilter(2).Apply(flat)
	if err != nil {
		t.Fatalf("Gaussian failed: %v", err)
	}
	if !mat.EqualApprox(out, flat, 1e-12) {
		t.Errorf("Expected a flat plane to stay flat, got\n%v", mat.Formatted(out))
	}

	impulse := mat.NewDense(5, 5, nil)
	impulse.Set(2, 2, 1)
	out, _ = NewGaussianFilter(1).Apply(impulse)
	if out.At(2, 2) >= 1 || out.At(2, 2) <= out.At(2, 1) {
		t.Errorf("Expected the peak to drop but stay highest, got %v", out.At(2, 2))
	}
	if math.Abs(out.At(2, 1)-out.At(2, 3)) > 1e-15 || math.Abs(out.At(1, 2)-out.At(3, 2)) > 1e-15 {
		t.Errorf("Expected a symmetric spread")
	}
	if out.At(0, 0) != 0 {
		t.Errorf("Expected radius 1 to leave the corner alone, got %v", out.At(0, 0))
	}

	same, _ := GaussianFilter{}.Apply(impulse)
	if !mat.Equal(same, impulse) {
		t.Errorf("Expected radius 0 to copy the plane")
	}
}

func TestPlaneSlabRoundTrip(t *testing.T) {
	c := testCube(t)
	band, err := c.GetBand(1)
	if err != nil {
		t.Fatal(err)
	}
	p := Plane(band)
	if r, cols := p.Dims(); r != 4 || cols != 5 || p.At(3, 4) != 39 {
		t.Fatalf("Unexpected plane %v", mat.Formatted(p))
	}
	back := PlaneSlab(p)
	if back.At(2, 3) != 33 {
		t.Errorf("Expected 33, got %v", back.At(2, 3))
	}
}

func TestDrawROIs(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 5, 4))
	col := roi.NewCollection()
	r := roi.New("field")
	r.Color = color.RGBA{R: 255}
	r.Add(1, 2)
	if err := col.Add(r); err != nil {
		t.Fatal(err)
	}

	out := DrawROIs(img, col, OverlayOptions{})
	if got := out.RGBAAt(2, 1); got != (color.RGBA{R: 255, A: 255}) {
		t.Errorf("Expected a red point at (2, 1), got %v", got)
	}
	if got := out.RGBAAt(0, 0); got.R != 0 {
		t.Errorf("Expected other pixels untouched, got %v", got)
	}
	if img.RGBAAt(2, 1).R != 0 {
		t.Errorf("Expected the source image untouched")
	}
}

func TestSaveImage(t *testing.T) {
	img, err := QuickLook(testCube(t), BandFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if err := SaveImage("mem://quicklook/look.png", img, 0); err != nil {
		t.Fatalf("SaveImage failed: %v", err)
	}
	data, err := vfs.ReadAll("mem://quicklook/look.png")
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Expected a valid PNG: %v", err)
	}
	if decoded.Bounds() != img.Bounds() {
		t.Errorf("Expected bounds %v, got %v", img.Bounds(), decoded.Bounds())
	}

	if err := SaveImage("mem://quicklook/look.jpg", img, 75); err != nil {
		t.Errorf("SaveImage jpeg failed: %v", err)
	}
	if err := SaveImage("mem://quicklook/look.bmp", img, 0); !errors.Is(err, ErrImageFormat) {
		t.Errorf("Expected ErrImageFormat, got %v", err)
	}
}
