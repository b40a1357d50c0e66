// Package visualization turns cube bands into 8-bit rasters for display:
// intensity mapping, RGB composition, plane filters, ROI overlays and
// image files.
package visualization

import (
	"errors"
	"fmt"

	"hsicube/pkg/numeric"
)

// Bins is the histogram size used for contrast stretching.
const Bins = 256

var (
	ErrStretch = errors.New("visualization: stretch must be in [0, 0.5)")
	ErrBands   = errors.New("visualization: need 1 to 3 bands")
)

// Mapper maps the values of a band onto display bytes. The result is a
// fresh Uint8 slab of the same shape that shares nothing with the input.
type Mapper interface {
	ToGray(band *numeric.Slab) *numeric.Slab
}

func grayFrom(band *numeric.Slab, data []uint8) *numeric.Slab {
	g := numeric.NewOwned(numeric.Uint8, band.Shape()...)
	copy(g.Bytes(), data)
	return g
}

// BandFilter maps the band's own [min, max] linearly onto [0, 255]. A
// constant band maps to zeros.
type BandFilter struct{}

func (BandFilter) ToGray(band *numeric.Slab) *numeric.Slab {
	lo, hi := numeric.MinMax(band)
	return grayFrom(band, numeric.LinearScaleToU8(band, lo, hi))
}

// ContrastFilter discards a fraction of the pixels at each end of the
// histogram before mapping the rest onto [0, 255].
type ContrastFilter struct {
	stretch float64
}

// NewContrastFilter returns a filter cutting stretch of the pixels at
// each end.
func NewContrastFilter(stretch float64) (*ContrastFilter, error) {
	if stretch < 0 || stretch >= 0.5 {
		return nil, fmt.Errorf("%w: got %v", ErrStretch, stretch)
	}
	return &ContrastFilter{stretch: stretch}, nil
}

func (f *ContrastFilter) Stretch() float64 { return f.stretch }

// Limits returns the values mapped to 0 and 255.
//
// The band is counted into Bins bins over [min, max+1). The low limit is
// the upper edge of the first bin at which the running count from the low
// end reaches stretch of the pixels; the high limit is found the same way
// from the other end and is the lower edge of its bin.
func (f *ContrastFilter) Limits(band *numeric.Slab) (lo, hi float64) {
	lo, hi = numeric.MinMax(band)
	if f.stretch == 0 || lo == hi {
		return lo, hi
	}
	h := numeric.Histogram(band, lo, hi+1, Bins)
	width := (hi + 1 - lo) / Bins
	total := 0
	for _, n := range h {
		total += n
	}
	cut := f.stretch * float64(total)

	minBin, count := 0, 0
	for ; minBin < Bins; minBin++ {
		count += h[minBin]
		if float64(count) >= cut {
			break
		}
	}
	maxBin := Bins - 1
	count = 0
	for ; maxBin >= 0; maxBin-- {
		count += h[maxBin]
		if float64(count) >= cut {
			break
		}
	}
	scaledLo := lo + float64(minBin+1)*width
	scaledHi := lo + float64(maxBin)*width
	if scaledHi <= scaledLo {
		return lo, hi
	}
	return scaledLo, scaledHi
}

func (f *ContrastFilter) ToGray(band *numeric.Slab) *numeric.Slab {
	lo, hi := f.Limits(band)
	return grayFrom(band, numeric.LinearScaleToU8(band, lo, hi))
}
