package numeric

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"math/cmplx"
)

var (
	ErrShape    = errors.New("numeric: buffer too small for shape")
	ErrReadOnly = errors.New("numeric: slab is a read-only view")
	ErrDType    = errors.New("numeric: invalid data type")
)

// Slab is a typed N-dimensional view over a byte buffer. Shape and strides
// are expressed in elements. A Slab built over someone else's memory (a
// memory map, a file buffer) is read-only; slabs allocated by NewOwned or
// produced by Copy are writable and stored in host byte order.
type Slab struct {
	data     []byte
	dtype    DType
	order    binary.ByteOrder
	shape    []int
	strides  []int
	offset   int
	readOnly bool
}

// NewSlab wraps data as a contiguous row-major view with the given shape.
// No bytes are copied.
func NewSlab(data []byte, dtype DType, order binary.ByteOrder, shape ...int) (*Slab, error) {
	return NewStridedSlab(data, dtype, order, 0, shape, rowMajorStrides(shape))
}

// NewStridedSlab wraps data as a view whose element (i, j, ...) lives at
// element position offset + i*strides[0] + j*strides[1] + ...
func NewStridedSlab(data []byte, dtype DType, order binary.ByteOrder, offset int, shape, strides []int) (*Slab, error) {
	if !dtype.Valid() {
		return nil, ErrDType
	}
	if len(shape) != len(strides) {
		return nil, fmt.Errorf("numeric: %d dims but %d strides", len(shape), len(strides))
	}
	if order == nil {
		order = HostOrder()
	}
	last := offset
	for k, n := range shape {
		if n < 0 || strides[k] < 0 {
			return nil, fmt.Errorf("numeric: negative extent in shape %v strides %v", shape, strides)
		}
		if n == 0 {
			last = -1
			break
		}
		last += (n - 1) * strides[k]
	}
	if last >= 0 && (last+1)*dtype.Size() > len(data) {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrShape, (last+1)*dtype.Size(), len(data))
	}
	return &Slab{
		data:     data,
		dtype:    dtype,
		order:    order,
		shape:    append([]int(nil), shape...),
		strides:  append([]int(nil), strides...),
		offset:   offset,
		readOnly: true,
	}, nil
}

// NewOwned allocates a zeroed, writable, host-order slab.
func NewOwned(dtype DType, shape ...int) *Slab {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return &Slab{
		data:    make([]byte, n*dtype.Size()),
		dtype:   dtype,
		order:   HostOrder(),
		shape:   append([]int(nil), shape...),
		strides: rowMajorStrides(shape),
	}
}

// FromValues builds a writable slab of the given type and byte order holding
// values in row-major order. It is mostly useful for building fixtures.
func FromValues(dtype DType, order binary.ByteOrder, values []float64, shape ...int) (*Slab, error) {
	if order == nil {
		order = HostOrder()
	}
	s := NewOwned(dtype, shape...)
	s.order = order
	if len(values) != s.Len() {
		return nil, fmt.Errorf("%w: %d values for shape %v", ErrShape, len(values), shape)
	}
	for i, v := range values {
		s.putValue(i, v)
	}
	return s, nil
}

func rowMajorStrides(shape []int) []int {
	strides := make([]int, len(shape))
	acc := 1
	for k := len(shape) - 1; k >= 0; k-- {
		strides[k] = acc
		acc *= shape[k]
	}
	return strides
}

func (s *Slab) DType() DType            { return s.dtype }
func (s *Slab) Order() binary.ByteOrder { return s.order }
func (s *Slab) Dims() int               { return len(s.shape) }
func (s *Slab) ReadOnly() bool          { return s.readOnly }
func (s *Slab) Shape() []int            { return append([]int(nil), s.shape...) }
func (s *Slab) Strides() []int          { return append([]int(nil), s.strides...) }
func (s *Slab) NeedsSwap() bool         { return !SameOrder(s.order, HostOrder()) }

func (s *Slab) elementBytes(pos int) []byte { return s.data[pos*s.dtype.Size():] }

// Len returns the number of elements in the slab.
func (s *Slab) Len() int {
	n := 1
	for _, d := range s.shape {
		n *= d
	}
	return n
}

// Contiguous reports whether the slab is laid out row-major with no gaps.
func (s *Slab) Contiguous() bool {
	want := rowMajorStrides(s.shape)
	for k := range want {
		if s.shape[k] > 1 && s.strides[k] != want[k] {
			return false
		}
	}
	return true
}

// Bytes returns the raw bytes backing a contiguous slab, in the slab's own
// byte order. It returns nil for strided views.
func (s *Slab) Bytes() []byte {
	if !s.Contiguous() {
		return nil
	}
	size := s.dtype.Size()
	return s.data[s.offset*size : (s.offset+s.Len())*size]
}

func (s *Slab) position(idx []int) int {
	if len(idx) != len(s.shape) {
		panic(fmt.Sprintf("numeric: %d indices for %d-d slab", len(idx), len(s.shape)))
	}
	pos := s.offset
	for k, i := range idx {
		if i < 0 || i >= s.shape[k] {
			panic(fmt.Sprintf("numeric: index %d out of range [0,%d) in dim %d", i, s.shape[k], k))
		}
		pos += i * s.strides[k]
	}
	return pos
}

// flatPosition maps a row-major element number to its storage position.
func (s *Slab) flatPosition(n int) int {
	pos := s.offset
	for k := len(s.shape) - 1; k >= 0; k-- {
		d := s.shape[k]
		pos += (n % d) * s.strides[k]
		n /= d
	}
	return pos
}

// At returns the element at idx in host representation. Complex elements
// are reported as their magnitude; use ComplexAt for the full value.
func (s *Slab) At(idx ...int) float64 {
	return s.valueAt(s.position(idx))
}

// ComplexAt returns the element at idx as a complex number. Real types have
// a zero imaginary part.
func (s *Slab) ComplexAt(idx ...int) complex128 {
	return s.complexAt(s.position(idx))
}

// Index returns the n-th element in row-major order.
func (s *Slab) Index(n int) float64 {
	return s.valueAt(s.flatPosition(n))
}

// Set stores v at idx. It panics on read-only views.
func (s *Slab) Set(v float64, idx ...int) {
	if s.readOnly {
		panic(ErrReadOnly)
	}
	s.putValue(s.position(idx), v)
}

// SetComplex stores a complex value at idx. Real types keep the real part.
func (s *Slab) SetComplex(v complex128, idx ...int) {
	if s.readOnly {
		panic(ErrReadOnly)
	}
	s.putComplex(s.position(idx), v)
}

func (s *Slab) valueAt(pos int) float64 {
	if IsComplex(s.dtype) {
		return cmplx.Abs(s.complexAt(pos))
	}
	return decodeReal(s.elementBytes(pos), s.dtype, s.order)
}

func (s *Slab) complexAt(pos int) complex128 {
	b := s.elementBytes(pos)
	switch s.dtype {
	case Complex64:
		re := math.Float32frombits(s.order.Uint32(b))
		im := math.Float32frombits(s.order.Uint32(b[4:]))
		return complex(float64(re), float64(im))
	case Complex128:
		re := math.Float64frombits(s.order.Uint64(b))
		im := math.Float64frombits(s.order.Uint64(b[8:]))
		return complex(re, im)
	}
	return complex(decodeReal(b, s.dtype, s.order), 0)
}

func decodeReal(b []byte, dtype DType, order binary.ByteOrder) float64 {
	switch dtype {
	case Uint8:
		return float64(b[0])
	case Int16:
		return float64(int16(order.Uint16(b)))
	case Uint16:
		return float64(order.Uint16(b))
	case Int32:
		return float64(int32(order.Uint32(b)))
	case Uint32:
		return float64(order.Uint32(b))
	case Int64:
		return float64(int64(order.Uint64(b)))
	case Uint64:
		return float64(order.Uint64(b))
	case Float32:
		return float64(math.Float32frombits(order.Uint32(b)))
	case Float64:
		return math.Float64frombits(order.Uint64(b))
	}
	return math.NaN()
}

func (s *Slab) putValue(pos int, v float64) {
	if IsComplex(s.dtype) {
		s.putComplex(pos, complex(v, 0))
		return
	}
	encodeReal(s.elementBytes(pos), s.dtype, s.order, v)
}

func (s *Slab) putComplex(pos int, v complex128) {
	b := s.elementBytes(pos)
	switch s.dtype {
	case Complex64:
		s.order.PutUint32(b, math.Float32bits(float32(real(v))))
		s.order.PutUint32(b[4:], math.Float32bits(float32(imag(v))))
	case Complex128:
		s.order.PutUint64(b, math.Float64bits(real(v)))
		s.order.PutUint64(b[8:], math.Float64bits(imag(v)))
	default:
		encodeReal(b, s.dtype, s.order, real(v))
	}
}

func encodeReal(b []byte, dtype DType, order binary.ByteOrder, v float64) {
	switch dtype {
	case Uint8:
		b[0] = uint8(v)
	case Int16:
		order.PutUint16(b, uint16(int16(v)))
	case Uint16:
		order.PutUint16(b, uint16(v))
	case Int32:
		order.PutUint32(b, uint32(int32(v)))
	case Uint32:
		order.PutUint32(b, uint32(v))
	case Int64:
		order.PutUint64(b, uint64(int64(v)))
	case Uint64:
		order.PutUint64(b, uint64(v))
	case Float32:
		order.PutUint32(b, math.Float32bits(float32(v)))
	case Float64:
		order.PutUint64(b, math.Float64bits(v))
	}
}

// Copy gathers the slab into a freshly allocated, contiguous, host-order,
// writable slab. The result shares no memory with s.
func (s *Slab) Copy() *Slab {
	out := NewOwned(s.dtype, s.shape...)
	size := s.dtype.Size()
	swap := s.NeedsSwap()
	n := s.Len()
	if !swap && s.Contiguous() {
		copy(out.data, s.data[s.offset*size:(s.offset+n)*size])
		return out
	}
	for i := 0; i < n; i++ {
		src := s.elementBytes(s.flatPosition(i))[:size]
		dst := out.data[i*size : (i+1)*size]
		copy(dst, src)
		if swap {
			swapWords(dst, s.dtype.wordSize())
		}
	}
	return out
}

// Float64s returns every element in row-major order. Complex elements are
// converted to their magnitude.
func (s *Slab) Float64s() []float64 {
	out := make([]float64, s.Len())
	for i := range out {
		out[i] = s.valueAt(s.flatPosition(i))
	}
	return out
}

// Row returns a view of row i of a 2-D slab.
func (s *Slab) Row(i int) *Slab {
	if len(s.shape) != 2 {
		panic("numeric: Row on non 2-d slab")
	}
	if i < 0 || i >= s.shape[0] {
		panic(fmt.Sprintf("numeric: row %d out of range [0,%d)", i, s.shape[0]))
	}
	v := *s
	v.offset = s.offset + i*s.strides[0]
	v.shape = []int{s.shape[1]}
	v.strides = []int{s.strides[1]}
	return &v
}

// T returns a transposed view of a 2-D slab.
func (s *Slab) T() *Slab {
	if len(s.shape) != 2 {
		panic("numeric: T on non 2-d slab")
	}
	v := *s
	v.shape = []int{s.shape[1], s.shape[0]}
	v.strides = []int{s.strides[1], s.strides[0]}
	return &v
}

// ByteswapInPlace reverses the byte order of every element of a writable
// slab and flips its declared order, so decoded values stay the same while
// the storage changes endianness.
func ByteswapInPlace(s *Slab) error {
	if s.readOnly {
		return ErrReadOnly
	}
	size := s.dtype.Size()
	n := s.Len()
	for i := 0; i < n; i++ {
		pos := s.flatPosition(i)
		swapWords(s.data[pos*size:(pos+1)*size], s.dtype.wordSize())
	}
	if SameOrder(s.order, binary.LittleEndian) {
		s.order = binary.BigEndian
	} else {
		s.order = binary.LittleEndian
	}
	return nil
}

// SwapBytes reverses each element of a raw buffer holding dtype values.
func SwapBytes(buf []byte, dtype DType) {
	size := dtype.Size()
	for i := 0; i+size <= len(buf); i += size {
		swapWords(buf[i:i+size], dtype.wordSize())
	}
}

func swapWords(b []byte, word int) {
	if word <= 1 {
		return
	}
	for w := 0; w+word <= len(b); w += word {
		for i, j := w, w+word-1; i < j; i, j = i+1, j-1 {
			b[i], b[j] = b[j], b[i]
		}
	}
}

// Frozen returns a read-only view sharing s's storage.
func (s *Slab) Frozen() *Slab {
	v := *s
	v.readOnly = true
	return &v
}

// Decode reads one real element of type dtype from the start of b.
// Complex elements decode to their magnitude.
func Decode(b []byte, dtype DType, order binary.ByteOrder) float64 {
	s := Slab{data: b, dtype: dtype, order: order}
	return s.valueAt(0)
}

// Encode writes v as one element of type dtype at the start of b. Complex
// types receive v as the real part.
func Encode(b []byte, dtype DType, order binary.ByteOrder, v float64) {
	s := Slab{data: b, dtype: dtype, order: order}
	s.putValue(0, v)
}
