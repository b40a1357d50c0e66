package spectra

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"gonum.org/v1/gonum/mat"

	"hsicube/pkg/cube"
	"hsicube/pkg/numeric"
)

var (
	lam = []float64{1, 2, 3, 4, 5}
	s1  = []float64{5, 19, 2, 4, 5}
	s2  = []float64{5, 18, 2, 3, 5}
)

// TestSpectralAngle checks the angle between two close spectra on one grid
func TestSpectralAngle(t *testing.T) {
	a, err := SpectralAngle(lam, s1, lam, s2)
	if err != nil {
		t.Fatalf("SpectralAngle failed: %v", err)
	}
	if a <= 0 || a > 0.1 {
		t.Errorf("Expected a small positive angle, got %v", a)
	}
	if math.Abs(a-0.0446964069) > 1e-9 {
		t.Errorf("Expected 0.0446964069, got %v", a)
	}

	self, err := SpectralAngle(lam, s1, lam, s1)
	if err != nil || self != 0 {
		t.Errorf("Expected zero angle to itself, got %v (%v)", self, err)
	}

	if _, err := SpectralAngle(lam, s1, lam, make([]float64, 5)); !errors.Is(err, ErrZeroSpectrum) {
		t.Errorf("Expected ErrZeroSpectrum, got %v", err)
	}
	if _, err := SpectralAngle(lam, s1, []float64{10, 11}, []float64{1, 1}); !errors.Is(err, ErrNoOverlap) {
		t.Errorf("Expected ErrNoOverlap, got %v", err)
	}
}

func TestSpectralAngleRepeatedWavelength(t *testing.T) {
	lam := []float64{400, 500, 500, 600}
	s := []float64{1, 2, 4, 5}
	a, err := SpectralAngle(lam, s, lam, s)
	if err != nil {
		t.Fatalf("SpectralAngle failed: %v", err)
	}
	if a > 1e-7 {
		t.Errorf("Expected zero angle to itself, got %v", a)
	}
	if _, err := SpectralAngle(lam, s, []float64{400, 600}, []float64{1, 5}); err != nil {
		t.Errorf("Expected a repeated wavelength to be accepted, got %v", err)
	}
}

func TestSpectralAngleScaleInvariant(t *testing.T) {
	scaled := make([]float64, len(s1))
	for i, v := range s1 {
		scaled[i] = 3 * v
	}
	a, err := SpectralAngle(lam, s1, lam, scaled)
	if err != nil || a > 1e-7 {
		t.Errorf("Expected scaled spectrum to have no angle, got %v (%v)", a, err)
	}
}

func TestEuclideanDistance(t *testing.T) {
	d, err := EuclideanDistance(lam, s1, lam, s2)
	if err != nil {
		t.Fatalf("EuclideanDistance failed: %v", err)
	}
	if math.Abs(d-math.Sqrt2) > 1e-12 {
		t.Errorf("Expected sqrt(2), got %v", d)
	}
}

func TestCompareMasksBadBands(t *testing.T) {
	a := &Spectrum{Wavelengths: lam, Values: []float64{1, 2, 1000, 4, 5}, Good: []int{1, 1, 0, 1, 1}}
	b := &Spectrum{Wavelengths: lam, Values: []float64{1, 2, 3, 4, 5}}
	angle, dist, err := a.Compare(b)
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	// a is interpolated across its bad band, so the two agree.
	if angle > 1e-7 || dist != 0 {
		t.Errorf("Expected the bad band to be ignored, got angle %v distance %v", angle, dist)
	}
}

func bsqCube(t *testing.T) *cube.Cube {
	t.Helper()
	attrs := &cube.Attributes{
		Samples: 5, Lines: 4, Bands: 3, Interleave: cube.BSQ, DataType: numeric.Int16,
		ByteOrder: cube.HostByteOrder(), Wavelengths: []float64{450, 550, 650},
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

func TestFromCube(t *testing.T) {
	c := bsqCube(t)
	sp, err := FromCube(c, 1, 1)
	if err != nil {
		t.Fatalf("FromCube failed: %v", err)
	}
	want := []float64{0.0006, 0.0026, 0.0046}
	for i := range want {
		if math.Abs(sp.Values[i]-want[i]) > 1e-12 {
			t.Errorf("Band %d: expected %v, got %v", i, want[i], sp.Values[i])
		}
	}
	if !reflect.DeepEqual(sp.Wavelengths, []float64{450, 550, 650}) {
		t.Errorf("Unexpected wavelengths %v", sp.Wavelengths)
	}
	if _, err := FromCube(c, 4, 0); !errors.Is(err, cube.ErrOutOfRange) {
		t.Errorf("Expected ErrOutOfRange, got %v", err)
	}
}

func TestFromSpectralLibrary(t *testing.T) {
	one := 1.0
	attrs := &cube.Attributes{
		Samples: 2, Lines: 1, Bands: 3, Interleave: cube.BSQ, DataType: numeric.Float32,
		ByteOrder: cube.HostByteOrder(), SpectraNames: []string{"grass"}, ScaleFactor: &one,
	}
	c, err := cube.New(attrs)
	if err != nil {
		t.Fatal(err)
	}
	for b := 0; b < 3; b++ {
		c.SetPixel(0, 0, b, float64(b+1))
		c.SetPixel(0, 1, b, float64(10*(b+1)))
	}
	lib, err := FromSpectralLibrary(c)
	if err != nil {
		t.Fatalf("FromSpectralLibrary failed: %v", err)
	}
	if len(lib) != 2 || lib[0].Label != "grass" || lib[1].Label != "spectrum 2" {
		t.Fatalf("Unexpected library %+v", lib)
	}
	if !reflect.DeepEqual(lib[1].Values, []float64{10, 20, 30}) {
		t.Errorf("Unexpected values %v", lib[1].Values)
	}
	if !reflect.DeepEqual(lib[0].Wavelengths, []float64{0, 1, 2}) {
		t.Errorf("Expected band numbers as the grid, got %v", lib[0].Wavelengths)
	}
	angle, _, err := lib[0].Compare(lib[1])
	if err != nil || angle > 1e-7 {
		t.Errorf("Expected parallel spectra, got %v (%v)", angle, err)
	}
}

func TestProfiles(t *testing.T) {
	c := bsqCube(t)
	h, err := HorizontalProfile(c, []int{2, 0}, 1)
	if err != nil {
		t.Fatalf("HorizontalProfile failed: %v", err)
	}
	wantH := mat.NewDense(2, 5, []float64{45, 46, 47, 48, 49, 5, 6, 7, 8, 9})
	if !mat.Equal(h, wantH) {
		t.Errorf("Unexpected horizontal profile\n%v", mat.Formatted(h))
	}

	v, err := VerticalProfile(c, []int{1}, 3)
	if err != nil {
		t.Fatalf("VerticalProfile failed: %v", err)
	}
	wantV := mat.NewDense(1, 4, []float64{23, 28, 33, 38})
	if !mat.Equal(v, wantV) {
		t.Errorf("Unexpected vertical profile\n%v", mat.Formatted(v))
	}

	if _, err := HorizontalProfile(c, []int{3}, 0); !errors.Is(err, cube.ErrOutOfRange) {
		t.Errorf("Expected ErrOutOfRange, got %v", err)
	}
}
