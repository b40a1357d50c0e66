// Package fits opens image cubes stored in FITS files.
//
// A FITS file is a chain of header and data units (HDUs). Each header is a
// run of 80 character keyword cards in 2880 byte blocks; the data that
// follows is big endian and padded to a whole block. The first two axes of
// an image are samples and lines, the third, when present, bands.
package fits

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"hsicube/pkg/cube"
	"hsicube/pkg/format"
	"hsicube/pkg/numeric"
	"hsicube/pkg/vfs"
)

var (
	// ErrNotFITS wraps format.ErrUnrecognized so that a registry moves on
	// to the next handler.
	ErrNotFITS         = fmt.Errorf("fits: not a FITS file: %w", format.ErrUnrecognized)
	ErrMalformedHeader = errors.New("fits: malformed header")
	ErrNoImage         = errors.New("fits: no such image")
	ErrUnsupported     = errors.New("fits: unsupported image")
)

// HeaderError locates a problem in a header unit. Card is 1-based and
// counts from the start of the unit.
type HeaderError struct {
	URL    string
	HDU    int
	Card   int
	Reason string
}

func (e *HeaderError) Error() string {
	return fmt.Sprintf("fits: %s HDU %d card %d: %s", e.URL, e.HDU, e.Card, e.Reason)
}

func (e *HeaderError) Unwrap() error { return ErrMalformedHeader }

var bitpixTypes = map[int64]numeric.DType{
	8:   numeric.Uint8,
	16:  numeric.Int16,
	32:  numeric.Int32,
	64:  numeric.Int64,
	-32: numeric.Float32,
	-64: numeric.Float64,
}

// HDU is one header and data unit.
type HDU struct {
	Header *Header
	Bitpix int64
	// Axes holds NAXIS1, NAXIS2 and so on, fastest varying first.
	Axes []int
	// Offset is the byte position of the data in the file.
	Offset int64
	// Size is the length of the data in bytes, without padding.
	Size int64
}

// IsImage reports whether the unit is the primary array or an IMAGE
// extension with data.
func (u *HDU) IsImage() bool {
	if u.Size == 0 {
		return false
	}
	if _, primary := u.Header.Bools["SIMPLE"]; primary {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(u.Header.Strings["XTENSION"]), "IMAGE")
}

func newHDU(h *Header, offset int64) (*HDU, error) {
	u := &HDU{Header: h, Offset: offset + h.Length}
	bitpix, ok := h.Ints["BITPIX"]
	if !ok {
		return nil, errors.New("missing BITPIX")
	}
	naxis, ok := h.Ints["NAXIS"]
	if !ok || naxis < 0 || naxis > 999 {
		return nil, errors.New("missing or invalid NAXIS")
	}
	u.Bitpix = bitpix
	if naxis == 0 {
		return u, nil
	}
	elems := int64(1)
	for i := 1; i <= int(naxis); i++ {
		n, ok := h.Ints[fmt.Sprintf("NAXIS%d", i)]
		if !ok || n < 0 {
			return nil, fmt.Errorf("missing or invalid NAXIS%d", i)
		}
		u.Axes = append(u.Axes, int(n))
		elems *= n
	}
	pcount, gcount := int64(0), int64(1)
	if v, ok := h.Ints["PCOUNT"]; ok {
		pcount = v
	}
	if v, ok := h.Ints["GCOUNT"]; ok {
		gcount = v
	}
	size := bitpix
	if size < 0 {
		size = -size
	}
	u.Size = size / 8 * gcount * (pcount + elems)
	return u, nil
}

// ReadHDUs lists every header and data unit in the file at url.
func ReadHDUs(url string) ([]*HDU, error) {
	r, err := vfs.OpenRead(url)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	br := bufio.NewReader(r)

	var hdus []*HDU
	var offset int64
	for {
		h, err := readHeader(br)
		if errors.Is(err, io.EOF) {
			break
		}
		var he *HeaderError
		if errors.As(err, &he) {
			he.URL, he.HDU = url, len(hdus)
			if len(hdus) > 0 && he.Card == 0 {
				// A partial block after the last unit.
				break
			}
			return nil, he
		}
		if err != nil {
			return nil, err
		}
		u, err := newHDU(h, offset)
		if err != nil {
			return nil, &HeaderError{URL: url, HDU: len(hdus), Reason: err.Error()}
		}
		hdus = append(hdus, u)

		padded := (u.Size + blockSize - 1) / blockSize * blockSize
		offset = u.Offset + padded
		if _, err := io.CopyN(io.Discard, br, padded); err != nil {
			if errors.Is(err, io.EOF) {
				// The last unit may lack its padding or be cut short;
				// opening it reports a short data file.
				break
			}
			return nil, err
		}
	}
	if len(hdus) == 0 {
		return nil, ErrNotFITS
	}
	return hdus, nil
}

// Attributes describes an image unit as a BSQ cube. Axes past the third
// must have length 1.
func Attributes(u *HDU) (*cube.Attributes, error) {
	dtype, ok := bitpixTypes[u.Bitpix]
	if !ok {
		return nil, fmt.Errorf("%w: BITPIX %d", ErrUnsupported, u.Bitpix)
	}
	dims := []int{1, 1, 1}
	for i, n := range u.Axes {
		if i < 3 {
			dims[i] = n
		} else if n != 1 {
			return nil, fmt.Errorf("%w: axis %d has length %d", ErrUnsupported, i+1, n)
		}
	}
	h := u.Header
	a := &cube.Attributes{
		Samples:      dims[0],
		Lines:        dims[1],
		Bands:        dims[2],
		Interleave:   cube.BSQ,
		DataType:     dtype,
		ByteOrder:    cube.BigEndian,
		HeaderOffset: u.Offset,
		Description:  strings.TrimSpace(h.Strings["OBJECT"]),
		SensorType:   strings.TrimSpace(h.Strings["INSTRUME"]),
	}

	bzero, hasZero := h.Float("BZERO")
	bscale, hasScale := h.Float("BSCALE")
	if hasZero || hasScale {
		a.Extra = map[string]string{}
		if hasZero {
			a.Extra["bzero"] = fmt.Sprint(bzero)
		}
		if hasScale {
			a.Extra["bscale"] = fmt.Sprint(bscale)
		}
	}
	if hasScale && bscale != 0 && bscale != 1 && bzero == 0 {
		s := 1 / bscale
		a.ScaleFactor = &s
	}

	if a.Bands > 1 {
		a.Wavelengths, a.WavelengthUnits = spectralAxis(h, a.Bands)
	}
	return a, nil
}

// spectralAxis evaluates a linear WAVE or AWAV world coordinate on the
// third axis. Wavelengths in metres, the default unit, are converted to
// nanometres.
func spectralAxis(h *Header, bands int) ([]float64, cube.Units) {
	ctype := strings.ToUpper(strings.TrimSpace(h.Strings["CTYPE3"]))
	if !strings.HasPrefix(ctype, "WAVE") && !strings.HasPrefix(ctype, "AWAV") {
		return nil, cube.UnitsUnset
	}
	crval, ok1 := h.Float("CRVAL3")
	cdelt, ok2 := h.Float("CDELT3")
	if !ok1 || !ok2 || cdelt <= 0 {
		return nil, cube.UnitsUnset
	}
	crpix, ok := h.Float("CRPIX3")
	if !ok {
		crpix = 1
	}
	units, factor := cube.Nanometers, 1e9
	if u := strings.TrimSpace(h.Strings["CUNIT3"]); u != "" && u != "m" {
		units, factor = cube.NormaliseUnits(u), 1
	}
	w := make([]float64, bands)
	for i := range w {
		w[i] = (crval + (float64(i+1)-crpix)*cdelt) * factor
	}
	return w, units
}

// Handler opens FITS images for a format.Registry.
type Handler struct {
	opts   []cube.Option
	logger *log.Logger
}

// NewHandler returns a FITS handler. The options are passed to every cube
// it opens.
func NewHandler(logger *log.Logger, opts ...cube.Option) *Handler {
	return &Handler{opts: opts, logger: logger}
}

func (h *Handler) Descriptor() format.Descriptor {
	return format.Descriptor{
		ID:         "FITS",
		Name:       "Flexible Image Transport System",
		Extensions: []string{".fits", ".fit", ".fts"},
	}
}

// Identify is Exact when the file starts with the mandatory SIMPLE and
// BITPIX cards.
func (h *Handler) Identify(url string) format.Confidence {
	r, err := vfs.OpenRead(url)
	if err != nil {
		return format.None
	}
	defer r.Close()
	head := make([]byte, 2*cardSize)
	if _, err := io.ReadFull(r, head); err != nil {
		return format.None
	}
	if string(head[:30]) == "SIMPLE  =                    T" && string(head[80:90]) == "BITPIX  = " {
		return format.Exact
	}
	return format.None
}

// Open opens the first image in the file.
func (h *Handler) Open(url string) (*cube.Cube, error) {
	return h.OpenImage(url, 0)
}

// OpenImage opens the index'th image unit, counting only units that hold
// an image.
func (h *Handler) OpenImage(url string, index int) (*cube.Cube, error) {
	if h.Identify(url) != format.Exact {
		return nil, fmt.Errorf("%w: %s", ErrNotFITS, url)
	}
	hdus, err := ReadHDUs(url)
	if err != nil {
		return nil, err
	}
	var images []*HDU
	for _, u := range hdus {
		if u.IsImage() {
			images = append(images, u)
		}
	}
	if index < 0 || index >= len(images) {
		return nil, fmt.Errorf("%w: image %d of %d in %s", ErrNoImage, index, len(images), url)
	}
	attrs, err := Attributes(images[index])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", url, err)
	}
	if h.logger != nil {
		h.logger.Printf("%s: image %d is %d x %d x %d BITPIX %d at offset %d", url, index,
			attrs.Lines, attrs.Samples, attrs.Bands, images[index].Bitpix, attrs.HeaderOffset)
	}
	opts := h.opts
	if h.logger != nil {
		opts = append(append([]cube.Option(nil), opts...), cube.WithLogger(h.logger))
	}
	return cube.Open(url, attrs, opts...)
}
