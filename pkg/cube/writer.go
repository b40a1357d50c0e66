package cube

import (
	"bufio"
	"fmt"
	"io"
)

// WriteRaw streams the cube's samples to w in the requested interleave,
// keeping the cube's byte order. No header offset is written. A subset
// writes only its own samples.
func (c *Cube) WriteRaw(w io.Writer, il Interleave) error {
	const op = "write raw"
	if !il.Valid() {
		return fmt.Errorf("cube: cannot write interleave %q", il)
	}
	a := c.attrs
	total := int(a.TotalBytes())
	size := a.BytesPerSample()
	last := int(c.LocationToFlat(a.Lines-1, a.Samples-1, a.Bands-1))

	bw := bufio.NewWriter(w)
	err := c.guard(op, -1, -1, -1, last, func() error {
		if il == a.Interleave && c.parent == nil {
			_, err := bw.Write(c.data[:total])
			return err
		}
		out := StridesFor(il, a.Lines, a.Samples, a.Bands)
		buf := make([]byte, total)
		for l := 0; l < a.Lines; l++ {
			for s := 0; s < a.Samples; s++ {
				for b := 0; b < a.Bands; b++ {
					src := int(c.LocationToFlat(l, s, b)) * size
					dst := (l*out.Line + s*out.Sample + b*out.Band) * size
					copy(buf[dst:dst+size], c.data[src:src+size])
				}
			}
		}
		_, err := bw.Write(buf)
		return err
	})
	if err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return c.errorf(op, -1, -1, -1, fmt.Errorf("%w: %v", ErrCubeIO, err))
	}
	return nil
}
