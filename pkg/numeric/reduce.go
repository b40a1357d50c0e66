package numeric

import (
	"math"
)

// MinMax returns the smallest and largest element of s, ignoring NaNs. An
// empty or all-NaN slab yields (NaN, NaN).
func MinMax(s *Slab) (float64, float64) {
	lo, hi := math.NaN(), math.NaN()
	n := s.Len()
	for i := 0; i < n; i++ {
		v := s.valueAt(s.flatPosition(i))
		if math.IsNaN(v) {
			continue
		}
		if math.IsNaN(lo) || v < lo {
			lo = v
		}
		if math.IsNaN(hi) || v > hi {
			hi = v
		}
	}
	return lo, hi
}

// Min returns the smallest element of s.
func Min(s *Slab) float64 {
	lo, _ := MinMax(s)
	return lo
}

// Max returns the largest element of s.
func Max(s *Slab) float64 {
	_, hi := MinMax(s)
	return hi
}

// Histogram counts the elements of s into nbins equal-width bins covering
// [lo, hi). Values below lo land in the first bin and values at or above hi
// in the last one. NaNs are not counted.
func Histogram(s *Slab, lo, hi float64, nbins int) []int {
	if nbins <= 0 {
		return nil
	}
	counts := make([]int, nbins)
	width := (hi - lo) / float64(nbins)
	n := s.Len()
	for i := 0; i < n; i++ {
		v := s.valueAt(s.flatPosition(i))
		if math.IsNaN(v) {
			continue
		}
		bin := 0
		if width > 0 {
			f := math.Floor((v - lo) / width)
			switch {
			case f < 0:
				bin = 0
			case f >= float64(nbins):
				bin = nbins - 1
			default:
				bin = int(f)
			}
		}
		counts[bin]++
	}
	return counts
}

// LinearScaleToU8 maps [lo, hi] linearly onto [0, 255] in row-major order,
// clamping values outside the range. When lo == hi every output is 0.
func LinearScaleToU8(s *Slab, lo, hi float64) []uint8 {
	out := make([]uint8, s.Len())
	if hi == lo || math.IsNaN(lo) || math.IsNaN(hi) {
		return out
	}
	scale := 255.0 / (hi - lo)
	for i := range out {
		out[i] = clampU8((s.valueAt(s.flatPosition(i)) - lo) * scale)
	}
	return out
}

// ClipToU8 clamps every element into [0, 255] and truncates it to a byte.
func ClipToU8(s *Slab) []uint8 {
	out := make([]uint8, s.Len())
	for i := range out {
		out[i] = clampU8(s.valueAt(s.flatPosition(i)))
	}
	return out
}

func clampU8(v float64) uint8 {
	switch {
	case math.IsNaN(v), v <= 0:
		return 0
	case v >= 255:
		return 255
	}
	return uint8(v)
}
