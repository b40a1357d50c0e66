package cube

import (
	"fmt"
	"weak"

	"hsicube/pkg/numeric"
)

// Subset returns a cube covering lines [l1, l2), samples [s1, s2) and
// bands [b1, b2) of c. The subset shares c's data: no samples are copied,
// writes to an in-memory subset land in c, and closing c closes the
// subset too. Per-band attributes are cut to the band range and the map
// tie point is moved so map coordinates stay put.
func (c *Cube) Subset(l1, l2, s1, s2, b1, b2 int) (*Cube, error) {
	const op = "subset"
	if c.isClosed() {
		return nil, c.errorf(op, -1, -1, -1, ErrClosed)
	}
	a := c.attrs
	for _, r := range []struct {
		axis      string
		lo, hi, n int
	}{
		{"lines", l1, l2, a.Lines},
		{"samples", s1, s2, a.Samples},
		{"bands", b1, b2, a.Bands},
	} {
		if r.lo < 0 || r.lo >= r.hi || r.hi > r.n {
			return nil, c.errorf(op, -1, -1, -1,
				fmt.Errorf("%w: %s [%d, %d) of %d", ErrOutOfRange, r.axis, r.lo, r.hi, r.n))
		}
	}

	sub := &Cube{
		attrs:        subsetAttributes(a, l1, l2, s1, s2, b1, b2),
		url:          c.url,
		strides:      c.strides,
		order:        c.order,
		data:         c.data,
		memory:       c.memory,
		partial:      c.partial,
		allowPartial: c.allowPartial,
		logger:       c.logger,
		parent:       c,
		origin:       [3]int{l1, s1, b1},
		base:         int(c.LocationToFlat(l1, s1, b1)),
		extrema:      make(map[int][2]float64),
		bandCache:    make(map[int]weak.Pointer[numeric.Slab]),
		writes:       c.writes,
		seenWrites:   *c.writes,
	}
	return sub, nil
}

// Parent returns the cube a subset was taken from, or nil.
func (c *Cube) Parent() *Cube { return c.parent }

func subsetAttributes(a *Attributes, l1, l2, s1, s2, b1, b2 int) *Attributes {
	s := a.Clone()
	s.Lines, s.Samples, s.Bands = l2-l1, s2-s1, b2-b1
	s.HeaderOffset = 0

	if a.Wavelengths != nil {
		s.Wavelengths = s.Wavelengths[b1:b2]
	}
	if a.FWHM != nil {
		s.FWHM = s.FWHM[b1:b2]
	}
	if a.BadBands != nil {
		s.BadBands = s.BadBands[b1:b2]
	}
	if a.BandNames != nil {
		s.BandNames = s.BandNames[b1:b2]
	}
	s.DefaultBands = nil
	for _, b := range a.DefaultBands {
		if b >= b1 && b < b2 {
			s.DefaultBands = append(s.DefaultBands, b-b1)
		}
	}
	if len(a.SpectraNames) == a.Samples {
		s.SpectraNames = s.SpectraNames[s1:s2]
	}
	if s.XStart != nil {
		*s.XStart += s1
	}
	if s.YStart != nil {
		*s.YStart += l1
	}
	if s.Georef != nil {
		s.Georef.RefX -= float64(s1)
		s.Georef.RefY -= float64(l1)
	}
	return s
}
