// Package spectra compares spectra and cuts profiles out of cubes.
package spectra

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"hsicube/pkg/cube"
	"hsicube/pkg/interpolation"
)

var (
	// ErrNoOverlap means two spectra share no part of their wavelength range.
	ErrNoOverlap    = interpolation.ErrNoOverlap
	ErrZeroSpectrum = errors.New("spectra: zero spectrum")
)

// SpectralAngle returns the angle in radians between spectrum a, sampled at
// lamA, and spectrum b, sampled at lamB, after resampling both onto their
// common grid.
func SpectralAngle(lamA, a, lamB, b []float64) (float64, error) {
	_, ra, rb, err := interpolation.Resample(lamA, a, lamB, b)
	if err != nil {
		return 0, err
	}
	return angle(ra, rb)
}

func angle(a, b []float64) (float64, error) {
	aa, bb := floats.Dot(a, a), floats.Dot(b, b)
	if aa == 0 || bb == 0 {
		return 0, ErrZeroSpectrum
	}
	cos := floats.Dot(a, b) / math.Sqrt(aa*bb)
	// Rounding can push identical spectra just past 1.
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos), nil
}

// EuclideanDistance returns the distance between two spectra on their
// common grid.
func EuclideanDistance(lamA, a, lamB, b []float64) (float64, error) {
	_, ra, rb, err := interpolation.Resample(lamA, a, lamB, b)
	if err != nil {
		return 0, err
	}
	return floats.Distance(ra, rb, 2), nil
}

// Spectrum is a labelled spectrum with its wavelength grid.
type Spectrum struct {
	Label       string
	Wavelengths []float64
	Values      []float64
	// Good flags usable bands with 1; nil means all are usable.
	Good []int
}

func (s *Spectrum) masked() ([]float64, []float64) {
	return interpolation.Mask(s.Wavelengths, s.Values, s.Good)
}

// Compare returns the spectral angle and Euclidean distance between s and
// o, ignoring bands either marks as bad on its own grid.
func (s *Spectrum) Compare(o *Spectrum) (angle, distance float64, err error) {
	la, va := s.masked()
	lb, vb := o.masked()
	if angle, err = SpectralAngle(la, va, lb, vb); err != nil {
		return 0, 0, err
	}
	if distance, err = EuclideanDistance(la, va, lb, vb); err != nil {
		return 0, 0, err
	}
	return angle, distance, nil
}

// grid returns the wavelengths of a, or the band numbers when there are
// none, so that spectra of cubes without wavelengths still compare.
func grid(a *cube.Attributes) []float64 {
	if a.Wavelengths != nil {
		return a.Wavelengths
	}
	g := make([]float64, a.Bands)
	for i := range g {
		g[i] = float64(i)
	}
	return g
}

// FromCube copies the spectrum at (line, sample) of c, divided by the
// cube's scale factor.
func FromCube(c *cube.Cube, line, sample int) (*Spectrum, error) {
	slab, err := c.GetSpectrum(line, sample)
	if err != nil {
		return nil, err
	}
	a := c.Attributes()
	values := slab.Float64s()
	floats.Scale(1/a.Scale(), values)
	return &Spectrum{
		Label:       fmt.Sprintf("%s (%d, %d)", c.URL(), line, sample),
		Wavelengths: append([]float64(nil), grid(a)...),
		Values:      values,
		Good:        a.GoodBands(),
	}, nil
}

// FromSpectralLibrary returns the spectra of an ENVI spectral library,
// which stores one spectrum per sample of its first line. Labels come from
// the spectra names when present.
func FromSpectralLibrary(c *cube.Cube) ([]*Spectrum, error) {
	a := c.Attributes()
	out := make([]*Spectrum, a.Samples)
	for s := range out {
		sp, err := FromCube(c, 0, s)
		if err != nil {
			return nil, err
		}
		if s < len(a.SpectraNames) {
			sp.Label = a.SpectraNames[s]
		} else {
			sp.Label = fmt.Sprintf("spectrum %d", s+1)
		}
		out[s] = sp
	}
	return out, nil
}

// HorizontalProfile returns a (len(bands), samples) matrix of the values
// along line for each band.
func HorizontalProfile(c *cube.Cube, bands []int, line int) (*mat.Dense, error) {
	a := c.Attributes()
	if len(bands) == 0 {
		return nil, fmt.Errorf("spectra: no bands for profile")
	}
	plane, err := c.GetFocalPlane(line)
	if err != nil {
		return nil, err
	}
	out := mat.NewDense(len(bands), a.Samples, nil)
	for i, b := range bands {
		if b < 0 || b >= a.Bands {
			return nil, fmt.Errorf("spectra: band %d: %w", b, cube.ErrOutOfRange)
		}
		for s := 0; s < a.Samples; s++ {
			out.Set(i, s, plane.At(b, s))
		}
	}
	return out, nil
}

// VerticalProfile returns a (len(bands), lines) matrix of the values down
// sample for each band.
func VerticalProfile(c *cube.Cube, bands []int, sample int) (*mat.Dense, error) {
	a := c.Attributes()
	if len(bands) == 0 {
		return nil, fmt.Errorf("spectra: no bands for profile")
	}
	out := mat.NewDense(len(bands), a.Lines, nil)
	for i, b := range bands {
		depth, err := c.GetFocalPlaneDepth(sample, b)
		if err != nil {
			return nil, err
		}
		for l := 0; l < a.Lines; l++ {
			out.Set(i, l, depth.At(l))
		}
	}
	return out, nil
}
