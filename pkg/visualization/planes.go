package visualization

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"hsicube/pkg/numeric"
)

// DefaultSigma is the standard deviation of the Gaussian smoothing kernel.
const DefaultSigma = 4.0

var ErrPlaneShape = errors.New("visualization: plane shapes differ")

// PlaneFilter transforms a raw (lines, samples) plane before display.
// Filters return a new matrix and leave their input alone.
type PlaneFilter interface {
	Apply(raw *mat.Dense) (*mat.Dense, error)
}

// Plane copies a two-dimensional slab into a matrix.
func Plane(s *numeric.Slab) *mat.Dense {
	shape := s.Shape()
	return mat.NewDense(shape[0], shape[1], s.Float64s())
}

// PlaneSlab wraps a matrix as a Float64 slab so it can go through a Mapper.
func PlaneSlab(m *mat.Dense) *numeric.Slab {
	r, c := m.Dims()
	s := numeric.NewOwned(numeric.Float64, r, c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			s.Set(m.At(i, j), i, j)
		}
	}
	return s
}

// ClipFilter limits values to [Min, Max]. Use infinities for an open end.
type ClipFilter struct {
	Min, Max float64
}

// NewClipFilter clips at 0 from below only.
func NewClipFilter() ClipFilter {
	return ClipFilter{Min: 0, Max: math.Inf(1)}
}

func (f ClipFilter) Apply(raw *mat.Dense) (*mat.Dense, error) {
	out := mat.DenseCopyOf(raw)
	out.Apply(func(_, _ int, v float64) float64 {
		return math.Max(f.Min, math.Min(f.Max, v))
	}, out)
	return out, nil
}

// SubtractFilter removes a dark frame.
type SubtractFilter struct {
	Dark *mat.Dense
}

func (f SubtractFilter) Apply(raw *mat.Dense) (*mat.Dense, error) {
	r, c := raw.Dims()
	dr, dc := f.Dark.Dims()
	if r != dr || c != dc {
		return nil, fmt.Errorf("%w: %dx%d and dark %dx%d", ErrPlaneShape, r, c, dr, dc)
	}
	var out mat.Dense
	out.Sub(raw, f.Dark)
	return &out, nil
}

// GaussianFilter smooths with a separable kernel of 2*Radius+1 taps. At
// the borders the kernel is renormalised over the taps that fall inside
// the plane, so flat regions stay flat up to the edge.
type GaussianFilter struct {
	Radius int
	Sigma  float64
}

// NewGaussianFilter returns a filter with the default sigma.
func NewGaussianFilter(radius int) GaussianFilter {
	return GaussianFilter{Radius: radius, Sigma: DefaultSigma}
}

func (f GaussianFilter) kernel() []float64 {
	sigma := f.Sigma
	if sigma <= 0 {
		sigma = DefaultSigma
	}
	k := make([]float64, 2*f.Radius+1)
	for i := range k {
		x := float64(i - f.Radius)
		k[i] = math.Exp(-x * x / (2 * sigma * sigma))
	}
	floats.Scale(1/floats.Sum(k), k)
	return k
}

func (f GaussianFilter) Apply(raw *mat.Dense) (*mat.Dense, error) {
	if f.Radius <= 0 {
		return mat.DenseCopyOf(raw), nil
	}
	k := f.kernel()
	r, c := raw.Dims()
	rows := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		rows.SetRow(i, convolve(mat.Row(nil, i, raw), k))
	}
	out := mat.NewDense(r, c, nil)
	for j := 0; j < c; j++ {
		out.SetCol(j, convolve(mat.Col(nil, j, rows), k))
	}
	return out, nil
}

func convolve(x, k []float64) []float64 {
	half := len(k) / 2
	out := make([]float64, len(x))
	for i := range x {
		var sum, weight float64
		for t, w := range k {
			j := i + t - half
			if j < 0 || j >= len(x) {
				continue
			}
			sum += w * x[j]
			weight += w
		}
		out[i] = sum / weight
	}
	return out
}

// ChainFilter applies its filters in order.
type ChainFilter []PlaneFilter

func (f ChainFilter) Apply(raw *mat.Dense) (*mat.Dense, error) {
	out := raw
	for _, p := range f {
		var err error
		if out, err = p.Apply(out); err != nil {
			return nil, err
		}
	}
	if out == raw {
		out = mat.DenseCopyOf(raw)
	}
	return out, nil
}
