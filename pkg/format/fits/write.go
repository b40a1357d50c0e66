package fits

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"strings"

	"hsicube/pkg/cube"
	"hsicube/pkg/numeric"
	"hsicube/pkg/vfs"
)

// Header text is ASCII, so micrometres are spelled um.
var unitNames = map[cube.Units]string{
	cube.Nanometers:  "nm",
	cube.Micrometers: "um",
}

func bitpixFor(d numeric.DType) (int64, bool) {
	for b, t := range bitpixTypes {
		if t == d {
			return b, true
		}
	}
	return 0, false
}

// linearAxis returns the start and step of evenly spaced wavelengths.
func linearAxis(w []float64) (start, step float64, ok bool) {
	if len(w) < 2 {
		return 0, 0, false
	}
	step = w[1] - w[0]
	for i := 2; i < len(w); i++ {
		d := w[i] - w[i-1]
		if diff := d - step; diff > 1e-9*step || diff < -1e-9*step {
			return 0, 0, false
		}
	}
	return w[0], step, step > 0
}

// Encode writes c as a single image unit: a primary header followed by
// the bands in order, big endian. Evenly spaced wavelengths are kept as a
// linear spectral axis.
func Encode(w io.Writer, c *cube.Cube) error {
	a := c.Attributes()
	bitpix, ok := bitpixFor(a.DataType)
	if !ok {
		return fmt.Errorf("%w: no BITPIX for %s samples", ErrUnsupported, a.DataType)
	}
	f := func(v float64) string { return strconv.FormatFloat(v, 'G', -1, 64) }
	cards := []string{
		card("SIMPLE", "T"),
		card("BITPIX", strconv.FormatInt(bitpix, 10)),
		card("NAXIS", "3"),
		card("NAXIS1", strconv.Itoa(a.Samples)),
		card("NAXIS2", strconv.Itoa(a.Lines)),
		card("NAXIS3", strconv.Itoa(a.Bands)),
	}
	if a.Description != "" {
		cards = append(cards, card("OBJECT", quoted(a.Description)))
	}
	if start, step, ok := linearAxis(a.Wavelengths); ok && unitNames[a.WavelengthUnits] != "" {
		cards = append(cards,
			card("CTYPE3", quoted("WAVE")),
			card("CUNIT3", quoted(unitNames[a.WavelengthUnits])),
			card("CRPIX3", "1.0"),
			card("CRVAL3", f(start)),
			card("CDELT3", f(step)),
		)
	}
	if s := a.ScaleFactor; s != nil && *s != 0 {
		cards = append(cards, card("BSCALE", f(1 / *s)))
	}
	cards = append(cards, fmt.Sprintf("%-80s", "END"))

	bw := bufio.NewWriter(w)
	header := strings.Join(cards, "")
	if _, err := bw.WriteString(header); err != nil {
		return err
	}
	if err := pad(bw, len(header), ' '); err != nil {
		return err
	}

	size := a.BytesPerSample()
	buf := make([]byte, a.Lines*a.Samples*size)
	for b := 0; b < a.Bands; b++ {
		band, err := c.GetBand(b)
		if err != nil {
			return err
		}
		for i, v := range band.Float64s() {
			numeric.Encode(buf[i*size:], a.DataType, binary.BigEndian, v)
		}
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}
	if err := pad(bw, int(a.TotalBytes()), 0); err != nil {
		return err
	}
	return bw.Flush()
}

func pad(w *bufio.Writer, n int, fill byte) error {
	if rem := n % blockSize; rem != 0 {
		_, err := w.Write(bytes.Repeat([]byte{fill}, blockSize-rem))
		return err
	}
	return nil
}

// Write stores c as a FITS file at url.
func Write(url string, c *cube.Cube) error {
	w, err := vfs.OpenWrite(url)
	if err != nil {
		return err
	}
	if err := Encode(w, c); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
