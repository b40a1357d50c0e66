package roi

import (
	"fmt"
	"io"
	"strconv"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"hsicube/internal/models"
	"hsicube/pkg/cube"
)

// ExtractSpectra copies the spectrum of every point of r out of c into an
// (npoints, bands) matrix, one row per point in insertion order.
func ExtractSpectra(r *ROI, c *cube.Cube) (*mat.Dense, error) {
	if r.Len() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyROI, r.name)
	}
	a := c.Attributes()
	if err := r.Check(a.Lines, a.Samples); err != nil {
		return nil, err
	}
	out := mat.NewDense(r.Len(), a.Bands, nil)
	for i, p := range r.points {
		s, err := c.GetSpectrum(p.Line, p.Sample)
		if err != nil {
			return nil, err
		}
		out.SetRow(i, s.Float64s())
	}
	return out, nil
}

// MeanSpectrum returns the band-wise mean of the spectra of r.
func MeanSpectrum(r *ROI, c *cube.Cube) ([]float64, error) {
	m, err := ExtractSpectra(r, c)
	if err != nil {
		return nil, err
	}
	_, bands := m.Dims()
	mean := make([]float64, bands)
	col := make([]float64, r.Len())
	for b := range mean {
		mean[b] = stat.Mean(mat.Col(col, b, m), nil)
	}
	return mean, nil
}

func wavelengthLabel(a *cube.Attributes, b int) string {
	if b < len(a.Wavelengths) {
		return strconv.FormatFloat(a.Wavelengths[b], 'g', -1, 64)
	}
	return ""
}

// SpectrumRecords flattens the spectra of every ROI in col into one record
// per point and band. Empty ROIs are skipped. Averaged ROIs contribute
// their mean spectrum only, with point ID 0 and line and sample set to -1.
func SpectrumRecords(col *Collection, c *cube.Cube) ([]*models.SpectrumRecord, error) {
	a := c.Attributes()
	var records []*models.SpectrumRecord
	for _, r := range col.rois {
		if r.Len() == 0 {
			continue
		}
		if r.Averaged() {
			mean, err := MeanSpectrum(r, c)
			if err != nil {
				return nil, err
			}
			for b, v := range mean {
				records = append(records, &models.SpectrumRecord{
					ROI: r.name, Line: -1, Sample: -1, Band: b, Wavelength: wavelengthLabel(a, b), Value: v,
				})
			}
			continue
		}
		m, err := ExtractSpectra(r, c)
		if err != nil {
			return nil, err
		}
		for i, p := range r.points {
			for b := 0; b < a.Bands; b++ {
				records = append(records, &models.SpectrumRecord{
					ROI: r.name, PointID: p.ID, Line: p.Line, Sample: p.Sample, Band: b,
					Wavelength: wavelengthLabel(a, b), Value: m.At(i, b),
				})
			}
		}
	}
	return records, nil
}

// ExportSpectraCSV writes SpectrumRecords of col as CSV.
func ExportSpectraCSV(w io.Writer, col *Collection, c *cube.Cube) error {
	records, err := SpectrumRecords(col, c)
	if err != nil {
		return err
	}
	if err := gocsv.Marshal(&records, w); err != nil {
		return fmt.Errorf("roi: writing CSV: %w", err)
	}
	return nil
}
