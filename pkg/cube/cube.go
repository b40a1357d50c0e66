package cube

import (
	"encoding/binary"
	"fmt"
	"log"
	"runtime"
	"runtime/debug"
	"weak"

	"hsicube/pkg/numeric"
	"hsicube/pkg/vfs"
)

// Cube gives read access to the samples of one hyperspectral image. The
// data file is memory mapped when the cube is opened and every accessor
// computes element positions from the interleave strides.
//
// Slabs returned by the accessors may be views into the mapping; they are
// only valid until Close. Copy them to keep them longer.
//
// A Cube is not safe for concurrent use: reads update the extrema and band
// caches. Different goroutines may use different cubes, but a cube and the
// subsets taken from it count as one.
type Cube struct {
	attrs   *Attributes
	url     string
	strides Strides
	order   binary.ByteOrder

	mapping *vfs.Mapping
	data    []byte
	memory  bool
	partial bool
	closed  bool

	allowPartial bool
	logger       *log.Logger

	// Subsets share data with their parent. base is the element index of
	// their first sample and origin its (line, sample, band) in the parent.
	parent *Cube
	origin [3]int
	base   int

	extrema    map[int][2]float64
	touchedMin float64
	touchedMax float64
	touched    bool
	bandCache  map[int]weak.Pointer[numeric.Slab]

	// writes counts SetPixel calls across a cube and all of its subsets.
	// Caches filled before another member of the family wrote are dropped.
	writes     *int
	seenWrites int
}

// Option configures a cube at open time.
type Option func(*Cube)

// AllowPartial lets a cube open over a data file shorter than its
// attributes declare. Reads that cross the end of the file fail with
// ErrPartialBand instead of the open failing with ErrShortCubeFile.
func AllowPartial() Option {
	return func(c *Cube) { c.allowPartial = true }
}

// WithLogger sets a logger for notices such as partial data files.
func WithLogger(l *log.Logger) Option {
	return func(c *Cube) { c.logger = l }
}

func newCube(url string, attrs *Attributes, opts []Option) (*Cube, error) {
	if err := attrs.Verify(); err != nil {
		return nil, err
	}
	c := &Cube{
		attrs:     attrs,
		url:       url,
		strides:   attrs.Strides(),
		order:     attrs.ByteOrder.Binary(),
		extrema:   make(map[int][2]float64),
		bandCache: make(map[int]weak.Pointer[numeric.Slab]),
		writes:    new(int),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Cube) logf(format string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Printf(format, args...)
	}
}

// Open maps the data file at url and returns a cube described by attrs.
// The file must hold at least HeaderOffset + TotalBytes bytes unless the
// AllowPartial option is given.
func Open(url string, attrs *Attributes, opts ...Option) (*Cube, error) {
	c, err := newCube(url, attrs, opts)
	if err != nil {
		return nil, err
	}
	m, err := vfs.MapRead(url)
	if err != nil {
		return nil, c.errorf("open", -1, -1, -1, fmt.Errorf("%w: %v", ErrCubeIO, err))
	}
	if err := c.bind(m.Data); err != nil {
		m.Close()
		return nil, err
	}
	c.mapping = m
	return c, nil
}

// NewFromBytes builds a writable in-memory cube over data, which must hold
// HeaderOffset + TotalBytes bytes. The cube uses data directly.
func NewFromBytes(attrs *Attributes, data []byte, opts ...Option) (*Cube, error) {
	c, err := newCube("", attrs, opts)
	if err != nil {
		return nil, err
	}
	c.allowPartial = false
	if err := c.bind(data); err != nil {
		return nil, err
	}
	c.memory = true
	return c, nil
}

// New allocates a zero-filled in-memory cube.
func New(attrs *Attributes, opts ...Option) (*Cube, error) {
	if err := attrs.Verify(); err != nil {
		return nil, err
	}
	return NewFromBytes(attrs, make([]byte, attrs.HeaderOffset+attrs.TotalBytes()), opts...)
}

func (c *Cube) bind(raw []byte) error {
	want := c.attrs.HeaderOffset + c.attrs.TotalBytes()
	have := int64(len(raw))
	if have < want {
		if !c.allowPartial {
			return c.errorf("open", -1, -1, -1,
				fmt.Errorf("%w: have %d bytes, need %d", ErrShortCubeFile, have, want))
		}
		c.partial = true
		c.logf("%s: partial data file, %d of %d bytes present", c.url, have, want)
	}
	if have > c.attrs.HeaderOffset {
		c.data = raw[c.attrs.HeaderOffset:]
	} else {
		c.data = []byte{}
	}
	return nil
}

// Close releases the memory map. Slabs obtained from the cube must not be
// used afterwards. Closing a subset leaves its parent open; closing a
// parent closes every subset taken from it.
func (c *Cube) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.data = nil
	c.bandCache = nil
	if c.mapping != nil {
		return c.mapping.Close()
	}
	return nil
}

func (c *Cube) isClosed() bool {
	for p := c; p != nil; p = p.parent {
		if p.closed {
			return true
		}
	}
	return false
}

// Attributes returns the cube's attributes. Shape and data type must not
// be changed; wavelengths may be replaced through SetWavelengths.
func (c *Cube) Attributes() *Attributes { return c.attrs }

// URL returns the location of the data file, or "" for in-memory cubes.
func (c *Cube) URL() string { return c.url }

// Partial reports whether the data file is shorter than declared.
func (c *Cube) Partial() bool { return c.partial }

// InMemory reports whether the cube was built from a byte slice.
func (c *Cube) InMemory() bool { return c.memory }

// SetWavelengths replaces the wavelength list without changing its length.
func (c *Cube) SetWavelengths(w []float64) error {
	return c.attrs.SetWavelengths(w)
}

func (c *Cube) errorf(op string, band, line, sample int, err error) error {
	return &AccessError{URL: c.url, Op: op, Band: band, Line: line, Sample: sample, Err: err}
}

// LocationToFlat returns the element index of (line, sample, band) in the
// data file. For a subset the index is into the parent's data file.
func (c *Cube) LocationToFlat(line, sample, band int) int64 {
	return int64(c.base) + int64(line)*int64(c.strides.Line) + int64(sample)*int64(c.strides.Sample) + int64(band)*int64(c.strides.Band)
}

// FlatToLocation is the inverse of LocationToFlat.
func (c *Cube) FlatToLocation(flat int64) (line, sample, band int) {
	if c.parent != nil {
		line, sample, band = c.parent.FlatToLocation(flat)
		return line - c.origin[0], sample - c.origin[1], band - c.origin[2]
	}
	a := c.attrs
	lines, samples, bands := int64(a.Lines), int64(a.Samples), int64(a.Bands)
	switch a.Interleave {
	case BIL:
		l, r := flat/(bands*samples), flat%(bands*samples)
		return int(l), int(r % samples), int(r / samples)
	case BIP:
		l, r := flat/(samples*bands), flat%(samples*bands)
		return int(l), int(r / bands), int(r % bands)
	default:
		b, r := flat/(lines*samples), flat%(lines*samples)
		return int(r / samples), int(r % samples), int(b)
	}
}

// ByteOffset returns the offset in the data file of (line, sample, band),
// including the header offset.
func (c *Cube) ByteOffset(line, sample, band int) int64 {
	if c.parent != nil {
		return c.parent.ByteOffset(line+c.origin[0], sample+c.origin[1], band+c.origin[2])
	}
	return c.attrs.HeaderOffset + c.LocationToFlat(line, sample, band)*int64(c.attrs.BytesPerSample())
}

type extent struct{ count, stride int }

// span returns the element range touched by a view starting at base.
func span(base int, extents ...extent) (first, last int) {
	last = base
	for _, e := range extents {
		if e.count > 0 {
			last += (e.count - 1) * e.stride
		}
	}
	return base, last
}

// guard checks that every element up to last is present and runs fn,
// turning memory faults raised by the mapping into ErrCubeIO.
func (c *Cube) guard(op string, band, line, sample, last int, fn func() error) (err error) {
	if c.isClosed() {
		return c.errorf(op, band, line, sample, ErrClosed)
	}
	size := c.attrs.BytesPerSample()
	if (last+1)*size > len(c.data) {
		return c.errorf(op, band, line, sample, ErrPartialBand)
	}
	defer debug.SetPanicOnFault(debug.SetPanicOnFault(true))
	defer func() {
		if r := recover(); r != nil {
			if re, ok := r.(runtime.Error); ok {
				if _, fault := re.(interface{ Addr() uintptr }); fault {
					err = c.errorf(op, band, line, sample, fmt.Errorf("%w: %v", ErrCubeIO, re))
					return
				}
			}
			panic(r)
		}
	}()
	return fn()
}

func (c *Cube) view(offset int, shape, strides []int) (*numeric.Slab, error) {
	return numeric.NewStridedSlab(c.data, c.attrs.DataType, c.order, offset, shape, strides)
}

func (c *Cube) checkBand(op string, b int) error {
	if b < 0 || b >= c.attrs.Bands {
		return c.errorf(op, b, -1, -1, fmt.Errorf("%w: band %d of %d", ErrOutOfRange, b, c.attrs.Bands))
	}
	return nil
}

func (c *Cube) checkLine(op string, l int) error {
	if l < 0 || l >= c.attrs.Lines {
		return c.errorf(op, -1, l, -1, fmt.Errorf("%w: line %d of %d", ErrOutOfRange, l, c.attrs.Lines))
	}
	return nil
}

func (c *Cube) checkSample(op string, s int) error {
	if s < 0 || s >= c.attrs.Samples {
		return c.errorf(op, -1, -1, s, fmt.Errorf("%w: sample %d of %d", ErrOutOfRange, s, c.attrs.Samples))
	}
	return nil
}

// bandView returns a strided (lines, samples) view of band b.
func (c *Cube) bandView(op string, b int) (*numeric.Slab, error) {
	if err := c.checkBand(op, b); err != nil {
		return nil, err
	}
	a, st := c.attrs, c.strides
	first, last := span(c.base+b*st.Band, extent{a.Lines, st.Line}, extent{a.Samples, st.Sample})
	var v *numeric.Slab
	err := c.guard(op, b, -1, -1, last, func() (err error) {
		v, err = c.view(first, []int{a.Lines, a.Samples}, []int{st.Line, st.Sample})
		return err
	})
	return v, err
}

// gather copies v into a host-order slab, reporting faults as ErrCubeIO.
func (c *Cube) gather(op string, band, line, sample int, v *numeric.Slab) (*numeric.Slab, error) {
	var out *numeric.Slab
	err := c.guard(op, band, line, sample, -1, func() error {
		out = v.Copy()
		return nil
	})
	return out, err
}

// GetBand returns band b as a (lines, samples) slab. BSQ cubes return a
// view into the map; other layouts gather into a new buffer.
func (c *Cube) GetBand(b int) (*numeric.Slab, error) {
	v, err := c.bandView("get band", b)
	if err != nil {
		return nil, err
	}
	if c.attrs.Interleave != BSQ {
		if v, err = c.gather("get band", b, -1, -1, v); err != nil {
			return nil, err
		}
	}
	if err := c.touchBand(b, v); err != nil {
		return nil, err
	}
	return v, nil
}

// GetBandInPlace returns band b without copying whenever the band rows are
// contiguous (BSQ and BIL). BIP bands are gathered once and kept in a weak
// cache, so repeated reads are cheap while the caller holds the result.
func (c *Cube) GetBandInPlace(b int) (*numeric.Slab, error) {
	if c.attrs.Interleave != BIP {
		v, err := c.bandView("get band in place", b)
		if err != nil {
			return nil, err
		}
		return v, c.touchBand(b, v)
	}
	c.syncWrites()
	if wp, ok := c.bandCache[b]; ok {
		if v := wp.Value(); v != nil {
			return v, nil
		}
	}
	v, err := c.bandView("get band in place", b)
	if err != nil {
		return nil, err
	}
	if v, err = c.gather("get band in place", b, -1, -1, v); err != nil {
		return nil, err
	}
	v = v.Frozen()
	c.bandCache[b] = weak.Make(v)
	return v, c.touchBand(b, v)
}

// GetSpectrum returns the bands of pixel (line, sample). BIP cubes return a
// view; other layouts gather.
func (c *Cube) GetSpectrum(line, sample int) (*numeric.Slab, error) {
	const op = "get spectrum"
	if err := c.checkLine(op, line); err != nil {
		return nil, err
	}
	if err := c.checkSample(op, sample); err != nil {
		return nil, err
	}
	a, st := c.attrs, c.strides
	first, last := span(c.base+line*st.Line+sample*st.Sample, extent{a.Bands, st.Band})
	var v *numeric.Slab
	err := c.guard(op, -1, line, sample, last, func() (err error) {
		v, err = c.view(first, []int{a.Bands}, []int{st.Band})
		return err
	})
	if err != nil || a.Interleave == BIP {
		return v, err
	}
	return c.gather(op, -1, line, sample, v)
}

// GetLineOfSpectra returns a (samples, bands) slab holding every spectrum
// of one line. BIL and BIP cubes return a view; BSQ gathers.
func (c *Cube) GetLineOfSpectra(line int) (*numeric.Slab, error) {
	const op = "get line of spectra"
	if err := c.checkLine(op, line); err != nil {
		return nil, err
	}
	a, st := c.attrs, c.strides
	first, last := span(c.base+line*st.Line, extent{a.Samples, st.Sample}, extent{a.Bands, st.Band})
	var v *numeric.Slab
	err := c.guard(op, -1, line, -1, last, func() (err error) {
		v, err = c.view(first, []int{a.Samples, a.Bands}, []int{st.Sample, st.Band})
		return err
	})
	if err != nil || a.Interleave != BSQ {
		return v, err
	}
	return c.gather(op, -1, line, -1, v)
}

// GetFocalPlane returns a (bands, samples) slab for one line, the layout a
// push-broom sensor records at once. BIL and BIP return views.
func (c *Cube) GetFocalPlane(line int) (*numeric.Slab, error) {
	const op = "get focal plane"
	if err := c.checkLine(op, line); err != nil {
		return nil, err
	}
	a, st := c.attrs, c.strides
	first, last := span(c.base+line*st.Line, extent{a.Bands, st.Band}, extent{a.Samples, st.Sample})
	var v *numeric.Slab
	err := c.guard(op, -1, line, -1, last, func() (err error) {
		v, err = c.view(first, []int{a.Bands, a.Samples}, []int{st.Band, st.Sample})
		return err
	})
	if err != nil || a.Interleave != BSQ {
		return v, err
	}
	return c.gather(op, -1, line, -1, v)
}

// GetFocalPlaneDepth returns the values of one (sample, band) pair down
// every line, as a view.
func (c *Cube) GetFocalPlaneDepth(sample, band int) (*numeric.Slab, error) {
	const op = "get focal plane depth"
	if err := c.checkSample(op, sample); err != nil {
		return nil, err
	}
	if err := c.checkBand(op, band); err != nil {
		return nil, err
	}
	a, st := c.attrs, c.strides
	first, last := span(c.base+sample*st.Sample+band*st.Band, extent{a.Lines, st.Line})
	var v *numeric.Slab
	err := c.guard(op, band, -1, sample, last, func() (err error) {
		v, err = c.view(first, []int{a.Lines}, []int{st.Line})
		return err
	})
	return v, err
}

// GetPixel returns one sample value. Complex values are returned as their
// magnitude.
func (c *Cube) GetPixel(line, sample, band int) (float64, error) {
	const op = "get pixel"
	if err := c.checkPixel(op, line, sample, band); err != nil {
		return 0, err
	}
	pos := int(c.LocationToFlat(line, sample, band))
	var v float64
	err := c.guard(op, band, line, sample, pos, func() error {
		size := c.attrs.BytesPerSample()
		v = numeric.Decode(c.data[pos*size:], c.attrs.DataType, c.order)
		return nil
	})
	return v, err
}

// SetPixel stores one sample value. Only in-memory cubes, and subsets of
// them, are writable.
func (c *Cube) SetPixel(line, sample, band int, v float64) error {
	const op = "set pixel"
	if !c.memory {
		return c.errorf(op, band, line, sample, ErrReadOnly)
	}
	if c.isClosed() {
		return c.errorf(op, band, line, sample, ErrClosed)
	}
	if err := c.checkPixel(op, line, sample, band); err != nil {
		return err
	}
	pos := int(c.LocationToFlat(line, sample, band))
	size := c.attrs.BytesPerSample()
	c.syncWrites()
	numeric.Encode(c.data[pos*size:], c.attrs.DataType, c.order, v)
	*c.writes++
	c.seenWrites = *c.writes
	c.forget(band)
	return nil
}

func (c *Cube) checkPixel(op string, line, sample, band int) error {
	if err := c.checkLine(op, line); err != nil {
		return err
	}
	if err := c.checkSample(op, sample); err != nil {
		return err
	}
	return c.checkBand(op, band)
}
