// Package cube holds the metadata model and the memory-mapped engine for
// hyperspectral image cubes.
//
// A cube is a three dimensional array indexed by line (row), sample
// (column) and band (spectral channel). How those three axes are laid out
// on disk is described by the interleave:
//
//   - BSQ stores each band as a complete image, one after another.
//   - BIL stores, for each line, one row per band.
//   - BIP stores, for each pixel, all of its bands next to each other.
//
// The layout only changes the strides used to find an element; a single
// Cube type serves all three.
package cube

import (
	"encoding/binary"
	"fmt"
	"strings"

	"hsicube/pkg/numeric"
)

// Interleave is the on-disk ordering of the line, sample and band axes.
type Interleave string

const (
	BIL Interleave = "bil"
	BIP Interleave = "bip"
	BSQ Interleave = "bsq"
)

// ParseInterleave converts header text such as "BSQ" into an Interleave.
func ParseInterleave(s string) (Interleave, error) {
	il := Interleave(strings.ToLower(strings.TrimSpace(s)))
	if !il.Valid() {
		return "", fmt.Errorf("unknown interleave %q", s)
	}
	return il, nil
}

// Valid reports whether il is one of BIL, BIP or BSQ.
func (il Interleave) Valid() bool {
	return il == BIL || il == BIP || il == BSQ
}

// ByteOrder follows the ENVI convention: 0 is little endian, 1 big endian.
type ByteOrder int

const (
	LittleEndian ByteOrder = 0
	BigEndian    ByteOrder = 1
)

// Binary returns the encoding/binary order matching o.
func (o ByteOrder) Binary() binary.ByteOrder {
	if o == BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// HostByteOrder returns the ByteOrder of the running machine.
func HostByteOrder() ByteOrder {
	if numeric.SameOrder(numeric.HostOrder(), binary.BigEndian) {
		return BigEndian
	}
	return LittleEndian
}

// Strides gives the distance, in elements, between neighbours along each
// axis of a cube.
type Strides struct {
	Line, Sample, Band int
}

// Attributes describes the shape, storage and calibration of a cube.
// Optional fields are absent when nil or empty.
type Attributes struct {
	Samples      int
	Lines        int
	Bands        int
	Interleave   Interleave
	DataType     numeric.DType
	ByteOrder    ByteOrder
	HeaderOffset int64

	Wavelengths     []float64
	WavelengthUnits Units
	FWHM            []float64
	BadBands        []int
	ScaleFactor     *float64
	XStart          *int
	YStart          *int
	SensorType      string
	Description     string
	BandNames       []string
	// DefaultBands holds zero-based band indices.
	DefaultBands []int
	SpectraNames []string
	Georef       *Georef

	// Extra keeps header keys that have no typed field, verbatim.
	Extra map[string]string
}

// BytesPerSample returns the size of one element.
func (a *Attributes) BytesPerSample() int {
	return a.DataType.Size()
}

// TotalBytes is the size of the sample data, excluding any header offset.
func (a *Attributes) TotalBytes() int64 {
	return int64(a.Samples) * int64(a.Lines) * int64(a.Bands) * int64(a.BytesPerSample())
}

// Strides returns the element strides for the attribute's interleave.
func (a *Attributes) Strides() Strides {
	return StridesFor(a.Interleave, a.Lines, a.Samples, a.Bands)
}

// StridesFor returns the element strides of a lines x samples x bands cube
// stored with the given interleave.
func StridesFor(il Interleave, lines, samples, bands int) Strides {
	switch il {
	case BIL:
		return Strides{Line: bands * samples, Sample: 1, Band: samples}
	case BIP:
		return Strides{Line: samples * bands, Sample: bands, Band: 1}
	default:
		return Strides{Line: samples, Sample: 1, Band: lines * samples}
	}
}

// Verify checks the attributes for consistency.
func (a *Attributes) Verify() error {
	switch {
	case a.Samples <= 0:
		return &InvalidError{Field: "samples", Reason: fmt.Sprintf("must be positive, got %d", a.Samples)}
	case a.Lines <= 0:
		return &InvalidError{Field: "lines", Reason: fmt.Sprintf("must be positive, got %d", a.Lines)}
	case a.Bands <= 0:
		return &InvalidError{Field: "bands", Reason: fmt.Sprintf("must be positive, got %d", a.Bands)}
	case !a.Interleave.Valid():
		return &InvalidError{Field: "interleave", Reason: fmt.Sprintf("unknown interleave %q", a.Interleave)}
	case !a.DataType.Valid():
		return &InvalidError{Field: "data type", Reason: "unsupported element type"}
	case a.ByteOrder != LittleEndian && a.ByteOrder != BigEndian:
		return &InvalidError{Field: "byte order", Reason: fmt.Sprintf("must be 0 or 1, got %d", a.ByteOrder)}
	case a.HeaderOffset < 0:
		return &InvalidError{Field: "header offset", Reason: "must not be negative"}
	}

	if a.Wavelengths != nil {
		if len(a.Wavelengths) != a.Bands {
			return perBandError("wavelength", len(a.Wavelengths), a.Bands)
		}
		for i := 1; i < len(a.Wavelengths); i++ {
			if a.Wavelengths[i] < a.Wavelengths[i-1] {
				return &InvalidError{Field: "wavelength", Reason: fmt.Sprintf("decreases at band %d", i)}
			}
		}
	}
	if a.FWHM != nil && len(a.FWHM) != a.Bands {
		return perBandError("fwhm", len(a.FWHM), a.Bands)
	}
	if a.BadBands != nil {
		if len(a.BadBands) != a.Bands {
			return perBandError("bbl", len(a.BadBands), a.Bands)
		}
		for i, v := range a.BadBands {
			if v != 0 && v != 1 {
				return &InvalidError{Field: "bbl", Reason: fmt.Sprintf("entry %d is %d, expected 0 or 1", i, v)}
			}
		}
	}
	if a.BandNames != nil && len(a.BandNames) != a.Bands {
		return perBandError("band names", len(a.BandNames), a.Bands)
	}
	return nil
}

func perBandError(field string, got, bands int) error {
	return &InvalidError{Field: field, Reason: fmt.Sprintf("has %d entries for %d bands", got, bands)}
}

// Clone returns a deep copy of a.
func (a *Attributes) Clone() *Attributes {
	c := *a
	c.Wavelengths = cloneSlice(a.Wavelengths)
	c.FWHM = cloneSlice(a.FWHM)
	c.BadBands = cloneSlice(a.BadBands)
	c.BandNames = cloneSlice(a.BandNames)
	c.DefaultBands = cloneSlice(a.DefaultBands)
	c.SpectraNames = cloneSlice(a.SpectraNames)
	if a.ScaleFactor != nil {
		v := *a.ScaleFactor
		c.ScaleFactor = &v
	}
	if a.XStart != nil {
		v := *a.XStart
		c.XStart = &v
	}
	if a.YStart != nil {
		v := *a.YStart
		c.YStart = &v
	}
	if a.Georef != nil {
		g := *a.Georef
		c.Georef = &g
	}
	if a.Extra != nil {
		c.Extra = make(map[string]string, len(a.Extra))
		for k, v := range a.Extra {
			c.Extra[k] = v
		}
	}
	return &c
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	return append([]T(nil), s...)
}

// SetWavelengths replaces the wavelength list. The length must match the
// band count.
func (a *Attributes) SetWavelengths(w []float64) error {
	if len(w) != a.Bands {
		return perBandError("wavelength", len(w), a.Bands)
	}
	a.Wavelengths = cloneSlice(w)
	return nil
}

// Scale returns the reflectance scale factor, or a guess based on the data
// type when the header does not give one.
func (a *Attributes) Scale() float64 {
	if a.ScaleFactor != nil {
		return *a.ScaleFactor
	}
	if numeric.IsInteger(a.DataType) && a.DataType != numeric.Uint8 {
		return 10000
	}
	return 1
}

// GoodBands returns the bad band list, or all ones when absent.
func (a *Attributes) GoodBands() []int {
	if a.BadBands != nil {
		return cloneSlice(a.BadBands)
	}
	good := make([]int, a.Bands)
	for i := range good {
		good[i] = 1
	}
	return good
}

// EffectiveUnits returns the declared wavelength units, or a guess when the
// header lists wavelengths without units.
func (a *Attributes) EffectiveUnits() Units {
	switch a.WavelengthUnits {
	case Nanometers, Micrometers:
		return a.WavelengthUnits
	}
	if len(a.Wavelengths) == 0 {
		return UnitsUnknown
	}
	if a.Wavelengths[len(a.Wavelengths)-1] < 100 {
		return Micrometers
	}
	return Nanometers
}

// DescriptiveBandName combines the wavelength and the band name of b, e.g.
// "λ=550.00 nm Green".
func (a *Attributes) DescriptiveBandName(b int) string {
	var parts []string
	if b >= 0 && b < len(a.Wavelengths) {
		parts = append(parts, fmt.Sprintf("λ=%.2f %s", a.Wavelengths[b], a.EffectiveUnits()))
	}
	if b >= 0 && b < len(a.BandNames) {
		parts = append(parts, a.BandNames[b])
	}
	return strings.Join(parts, " ")
}
