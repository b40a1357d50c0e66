// Package numeric provides typed, shape-aware views over raw sample bytes.
//
// A Slab describes a 1-D or 2-D window into a byte buffer: the element type,
// the byte order of the stored samples and the strides needed to walk it.
// Slabs never copy on construction; decoding and byte swapping happen when a
// value is read, so a slab may point straight into a memory-mapped file.
package numeric

import (
	"encoding/binary"
	"fmt"
	"unsafe"
)

// DType identifies the element type of the samples stored in a cube.
type DType int

const (
	Invalid DType = iota
	Uint8
	Int16
	Int32
	Int64
	Uint16
	Uint32
	Uint64
	Float32
	Float64
	Complex64
	Complex128
)

var dtypeNames = map[DType]string{
	Uint8:      "u8",
	Int16:      "i16",
	Int32:      "i32",
	Int64:      "i64",
	Uint16:     "u16",
	Uint32:     "u32",
	Uint64:     "u64",
	Float32:    "f32",
	Float64:    "f64",
	Complex64:  "c64",
	Complex128: "c128",
}

// String returns the short name of the type, e.g. "i16".
func (d DType) String() string {
	if name, ok := dtypeNames[d]; ok {
		return name
	}
	return fmt.Sprintf("dtype(%d)", int(d))
}

// Valid reports whether d is one of the supported element types.
func (d DType) Valid() bool {
	_, ok := dtypeNames[d]
	return ok
}

// Size returns the number of bytes used by one element of d, or 0 for an
// invalid type.
func (d DType) Size() int {
	switch d {
	case Uint8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Int64, Uint64, Float64, Complex64:
		return 8
	case Complex128:
		return 16
	}
	return 0
}

// ElementSize is the free-function form of DType.Size.
func ElementSize(d DType) int {
	return d.Size()
}

// IsComplex reports whether d stores real/imaginary pairs.
func IsComplex(d DType) bool {
	return d == Complex64 || d == Complex128
}

// IsInteger reports whether d is one of the integer types.
func IsInteger(d DType) bool {
	switch d {
	case Uint8, Int16, Int32, Int64, Uint16, Uint32, Uint64:
		return true
	}
	return false
}

// wordSize is the size of the unit that gets byte swapped. Complex values
// swap each component on its own.
func (d DType) wordSize() int {
	switch d {
	case Complex64:
		return 4
	case Complex128:
		return 8
	}
	return d.Size()
}

// HostOrder returns the byte order of the running machine.
func HostOrder() binary.ByteOrder {
	var i int32 = 0x01020304
	b := *(*byte)(unsafe.Pointer(&i))
	if b == 0x04 {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// SameOrder reports whether two byte orders lay out words identically.
func SameOrder(a, b binary.ByteOrder) bool {
	var buf [2]byte
	a.PutUint16(buf[:], 0x0102)
	return b.Uint16(buf[:]) == 0x0102
}
