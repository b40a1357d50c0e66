package cube

import (
	"math"
	"strings"
)

// Units is the unit of the wavelength axis.
type Units int

const (
	// UnitsUnset means the header did not mention units at all.
	UnitsUnset Units = iota
	Nanometers
	Micrometers
	// UnitsUnknown covers units that cannot be converted to a length,
	// such as wavenumbers or index.
	UnitsUnknown
)

func (u Units) String() string {
	switch u {
	case Nanometers:
		return "nm"
	case Micrometers:
		return "µm"
	case UnitsUnknown:
		return "unknown"
	}
	return ""
}

// nanometers returns how many nanometres one unit of u represents, or 0
// when u is not a length.
func (u Units) nanometers() float64 {
	switch u {
	case Nanometers:
		return 1
	case Micrometers:
		return 1000
	}
	return 0
}

// NormaliseUnits maps free-form unit text onto Nanometers, Micrometers or
// UnitsUnknown.
func NormaliseUnits(text string) Units {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "nanometer", "nanometers", "nanometre", "nanometres", "nm":
		return Nanometers
	case "micrometer", "micrometers", "micrometre", "micrometres", "micron", "microns", "µm", "μm", "um":
		return Micrometers
	}
	return UnitsUnknown
}

// ConvertWavelength converts v from one unit to another. Values are
// returned unchanged when either unit is not a length.
func ConvertWavelength(v float64, from, to Units) float64 {
	f, t := from.nanometers(), to.nanometers()
	if f == 0 || t == 0 || f == t {
		return v
	}
	return v * f / t
}

// FindBands returns the band whose wavelength is nearest to lo, given in
// units. Ties go to the lower band index. Without wavelengths, lo is taken
// as a band index and clamped to the valid range.
func (a *Attributes) FindBands(lo float64, units Units) []int {
	if len(a.Wavelengths) == 0 {
		return []int{a.clampBand(lo)}
	}
	target := ConvertWavelength(lo, units, a.EffectiveUnits())
	best := 0
	bestDist := math.Inf(1)
	for b, w := range a.Wavelengths {
		if d := math.Abs(w - target); d < bestDist {
			best, bestDist = b, d
		}
	}
	return []int{best}
}

// FindBandRange returns every band with lo <= wavelength <= hi, in
// ascending band order. The result may be empty. Without wavelengths it
// behaves like FindBands(lo, units).
func (a *Attributes) FindBandRange(lo, hi float64, units Units) []int {
	if len(a.Wavelengths) == 0 {
		return []int{a.clampBand(lo)}
	}
	native := a.EffectiveUnits()
	lo = ConvertWavelength(lo, units, native)
	hi = ConvertWavelength(hi, units, native)
	var bands []int
	for b, w := range a.Wavelengths {
		if w >= lo && w <= hi {
			bands = append(bands, b)
		}
	}
	return bands
}

func (a *Attributes) clampBand(v float64) int {
	b := int(v)
	if b < 0 || math.IsNaN(v) {
		return 0
	}
	if b >= a.Bands {
		return a.Bands - 1
	}
	return b
}

// Display targets in nanometres for the red, green and blue planes.
const (
	RedNM   = 630.0
	GreenNM = 550.0
	BlueNM  = 470.0
)

// GuessDisplayBands picks the bands used to build a quick-look image.
// Header default bands win when they are valid. Otherwise, when the
// wavelengths span the visible range, the bands nearest 630, 550 and 470 nm
// are used. Failing that, three bands spread over the cube are used, or the
// single first band of a cube with fewer than three.
func (a *Attributes) GuessDisplayBands() []int {
	return a.GuessDisplayBandsFor(RedNM, GreenNM, BlueNM)
}

// GuessDisplayBandsFor is GuessDisplayBands with caller-chosen red, green
// and blue targets in nanometres.
func (a *Attributes) GuessDisplayBandsFor(red, green, blue float64) []int {
	if a.validDefaultBands() {
		return cloneSlice(a.DefaultBands)
	}
	if a.spansNM(blue, red) {
		bands := []int{
			a.FindBands(red, Nanometers)[0],
			a.FindBands(green, Nanometers)[0],
			a.FindBands(blue, Nanometers)[0],
		}
		if bands[0] != bands[1] || bands[1] != bands[2] {
			return bands
		}
	}
	if a.Bands >= 3 {
		return []int{a.Bands - 1, a.Bands / 2, 0}
	}
	return []int{0}
}

func (a *Attributes) validDefaultBands() bool {
	if len(a.DefaultBands) != 1 && len(a.DefaultBands) != 3 {
		return false
	}
	for _, b := range a.DefaultBands {
		if b < 0 || b >= a.Bands {
			return false
		}
	}
	return true
}

// spansNM reports whether the wavelength list covers [lo, hi] nanometres.
func (a *Attributes) spansNM(lo, hi float64) bool {
	units := a.EffectiveUnits()
	if len(a.Wavelengths) == 0 || units.nanometers() == 0 {
		return false
	}
	first := ConvertWavelength(a.Wavelengths[0], units, Nanometers)
	last := ConvertWavelength(a.Wavelengths[len(a.Wavelengths)-1], units, Nanometers)
	return first <= lo && last >= hi
}
