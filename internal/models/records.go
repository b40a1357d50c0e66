package models

// SpectrumRecord is one band value of one pixel, the row type of spectra
// CSV exports.
type SpectrumRecord struct {
	// ROI is the name of the region the pixel belongs to, empty for a
	// single pixel export
	ROI string `csv:"roi"`

	// PointID is the caller supplied point identifier
	PointID int `csv:"point_id"`

	Line   int `csv:"line"`
	Sample int `csv:"sample"`
	Band   int `csv:"band"`

	// Wavelength is empty when the cube has no wavelengths
	Wavelength string `csv:"wavelength"`

	Value float64 `csv:"value"`
}

// BandStatsRecord is one row of a per-band statistics export.
type BandStatsRecord struct {
	File   string  `csv:"file"`
	Band   int     `csv:"band"`
	Name   string  `csv:"name"`
	Min    float64 `csv:"min"`
	Max    float64 `csv:"max"`
	Mean   float64 `csv:"mean"`
	StdDev float64 `csv:"stddev"`
}
