package cube

import (
	"context"
	"math"

	"gonum.org/v1/gonum/stat"

	"hsicube/pkg/numeric"
)

// syncWrites drops the cached extrema and bands when a cube sharing this
// cube's data has been written since they were filled.
func (c *Cube) syncWrites() {
	if c.seenWrites == *c.writes {
		return
	}
	c.seenWrites = *c.writes
	clear(c.extrema)
	clear(c.bandCache)
	c.touchedMin, c.touchedMax, c.touched = 0, 0, false
}

// forget drops what is cached for band b and rebuilds the running extrema
// from the bands still known.
func (c *Cube) forget(b int) {
	delete(c.extrema, b)
	delete(c.bandCache, b)
	c.touchedMin, c.touchedMax, c.touched = 0, 0, false
	for _, e := range c.extrema {
		c.widen(e[0], e[1])
	}
}

func (c *Cube) widen(lo, hi float64) {
	if math.IsNaN(lo) {
		return
	}
	if !c.touched || lo < c.touchedMin {
		c.touchedMin = lo
	}
	if !c.touched || hi > c.touchedMax {
		c.touchedMax = hi
	}
	c.touched = true
}

// touchBand records the extrema of band b, read through v, the first time
// the band is seen.
func (c *Cube) touchBand(b int, v *numeric.Slab) error {
	c.syncWrites()
	if _, ok := c.extrema[b]; ok {
		return nil
	}
	var lo, hi float64
	err := c.guard("band extrema", b, -1, -1, -1, func() error {
		lo, hi = numeric.MinMax(v)
		return nil
	})
	if err != nil {
		return err
	}
	c.extrema[b] = [2]float64{lo, hi}
	c.widen(lo, hi)
	return nil
}

// BandExtrema returns the smallest and largest value of band b. The result
// is computed on first use and cached.
func (c *Cube) BandExtrema(b int) (float64, float64, error) {
	c.syncWrites()
	if e, ok := c.extrema[b]; ok {
		return e[0], e[1], nil
	}
	v, err := c.bandView("band extrema", b)
	if err != nil {
		return 0, 0, err
	}
	if err := c.touchBand(b, v); err != nil {
		return 0, 0, err
	}
	e := c.extrema[b]
	return e[0], e[1], nil
}

// TouchedExtrema returns the running extrema over the bands read so far.
// It is only the extrema of the whole cube after ScanAllBands; ok is false
// until some band has been read.
func (c *Cube) TouchedExtrema() (lo, hi float64, ok bool) {
	c.syncWrites()
	return c.touchedMin, c.touchedMax, c.touched
}

// ScanAllBands reads every band to establish the true extrema of the cube.
// The context is checked before each band; a cancelled scan keeps the
// extrema of the bands already read. progress, when not nil, is called
// after each band.
func (c *Cube) ScanAllBands(ctx context.Context, progress func(done, total int)) (float64, float64, error) {
	total := c.attrs.Bands
	for b := 0; b < total; b++ {
		if err := ctx.Err(); err != nil {
			return c.touchedMin, c.touchedMax, err
		}
		if _, _, err := c.BandExtrema(b); err != nil {
			return c.touchedMin, c.touchedMax, err
		}
		if progress != nil {
			progress(b+1, total)
		}
	}
	return c.touchedMin, c.touchedMax, nil
}

// BandStats summarises the values of one band.
type BandStats struct {
	Band   int
	Min    float64
	Max    float64
	Mean   float64
	StdDev float64
}

// BandStats computes the statistics of band b. NaN values are skipped.
func (c *Cube) BandStats(b int) (BandStats, error) {
	v, err := c.bandView("band stats", b)
	if err != nil {
		return BandStats{}, err
	}
	var values []float64
	err = c.guard("band stats", b, -1, -1, -1, func() error {
		all := v.Float64s()
		values = all[:0]
		for _, x := range all {
			if !math.IsNaN(x) {
				values = append(values, x)
			}
		}
		return nil
	})
	if err != nil {
		return BandStats{}, err
	}
	if err := c.touchBand(b, v); err != nil {
		return BandStats{}, err
	}
	s := BandStats{Band: b, Min: c.extrema[b][0], Max: c.extrema[b][1]}
	if len(values) > 0 {
		s.Mean, s.StdDev = stat.MeanStdDev(values, nil)
	} else {
		s.Mean, s.StdDev = math.NaN(), math.NaN()
	}
	return s, nil
}
