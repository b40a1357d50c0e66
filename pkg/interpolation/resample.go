// Package interpolation puts spectra sampled on different wavelength grids
// onto a common grid.
package interpolation

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/interp"
)

var (
	ErrNoOverlap = errors.New("interpolation: wavelength ranges do not overlap")
	ErrLength    = errors.New("interpolation: grid and values differ in length")
	ErrEmpty     = errors.New("interpolation: empty grid")
)

// span returns the first and last value of an increasing grid.
func span(xs []float64) (float64, float64) {
	return xs[0], xs[len(xs)-1]
}

// CommonGrid returns the points of a and b that fall inside the range the
// two grids share, sorted and without repeats. Both grids must be
// increasing.
func CommonGrid(a, b []float64) ([]float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return nil, ErrEmpty
	}
	aLo, aHi := span(a)
	bLo, bHi := span(b)
	lo, hi := max(aLo, bLo), min(aHi, bHi)
	if lo > hi {
		return nil, fmt.Errorf("%w: [%g, %g] and [%g, %g]", ErrNoOverlap, aLo, aHi, bLo, bHi)
	}
	var grid []float64
	for _, xs := range [][]float64{a, b} {
		for _, x := range xs {
			if x >= lo && x <= hi {
				grid = append(grid, x)
			}
		}
	}
	sort.Float64s(grid)
	out := grid[:1]
	for _, x := range grid[1:] {
		if x != out[len(out)-1] {
			out = append(out, x)
		}
	}
	return out, nil
}

// merge collapses runs of equal x into one point holding the mean of
// their y values.
func merge(xs, ys []float64) ([]float64, []float64) {
	repeated := false
	for i := 1; i < len(xs); i++ {
		if xs[i] == xs[i-1] {
			repeated = true
			break
		}
	}
	if !repeated {
		return xs, ys
	}
	mx := make([]float64, 0, len(xs))
	my := make([]float64, 0, len(ys))
	for i := 0; i < len(xs); {
		j, sum := i, 0.0
		for ; j < len(xs) && xs[j] == xs[i]; j++ {
			sum += ys[j]
		}
		mx = append(mx, xs[i])
		my = append(my, sum/float64(j-i))
		i = j
	}
	return mx, my
}

// Linear evaluates the piecewise linear function through (xs, ys) at each
// point of at. xs must be increasing; repeated values are replaced by one
// point at the mean of their y. Points outside xs take the nearest end
// value.
func Linear(xs, ys, at []float64) ([]float64, error) {
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("%w: %d and %d", ErrLength, len(xs), len(ys))
	}
	if len(xs) == 0 {
		return nil, ErrEmpty
	}
	xs, ys = merge(xs, ys)
	out := make([]float64, len(at))
	if len(xs) == 1 {
		for i := range out {
			out[i] = ys[0]
		}
		return out, nil
	}
	var pl interp.PiecewiseLinear
	if err := pl.Fit(xs, ys); err != nil {
		return nil, fmt.Errorf("interpolation: %w", err)
	}
	for i, x := range at {
		out[i] = pl.Predict(x)
	}
	return out, nil
}

// Resample puts spectrum a, sampled at lamA, and spectrum b, sampled at
// lamB, onto the common grid of the two. When both grids are the same the
// spectra come back unchanged.
func Resample(lamA, a, lamB, b []float64) (common, onA, onB []float64, err error) {
	if len(lamA) != len(a) || len(lamB) != len(b) {
		return nil, nil, nil, fmt.Errorf("%w: %d/%d and %d/%d", ErrLength, len(lamA), len(a), len(lamB), len(b))
	}
	if common, err = CommonGrid(lamA, lamB); err != nil {
		return nil, nil, nil, err
	}
	if onA, err = Linear(lamA, a, common); err != nil {
		return nil, nil, nil, err
	}
	if onB, err = Linear(lamB, b, common); err != nil {
		return nil, nil, nil, err
	}
	return common, onA, onB, nil
}

// Mask drops the entries whose good flag is 0. A nil good list keeps
// everything.
func Mask(lam, values []float64, good []int) ([]float64, []float64) {
	if good == nil {
		return lam, values
	}
	var l, v []float64
	for i := range lam {
		if i < len(good) && good[i] == 0 {
			continue
		}
		l = append(l, lam[i])
		v = append(v, values[i])
	}
	return l, v
}
