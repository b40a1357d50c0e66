package visualization

import (
	"image"
	"image/color"

	"github.com/fogleman/gg"

	"hsicube/pkg/roi"
)

// OverlayOptions controls how regions of interest are drawn.
type OverlayOptions struct {
	// Radius of the marker drawn per point in pixels; 0 colours the pixel
	// itself.
	Radius float64
	// Labels writes each ROI name next to its first point.
	Labels bool
}

// DrawROIs returns a copy of img with the points of every ROI in col drawn
// in the ROI's colour. Points use (sample, line) as (x, y).
func DrawROIs(img image.Image, col *roi.Collection, opts OverlayOptions) *image.RGBA {
	dc := gg.NewContextForImage(img)
	for _, r := range col.ROIs() {
		c := r.Color
		c.A = 255
		dc.SetColor(c)
		for _, p := range r.Points() {
			if opts.Radius <= 0 {
				dc.SetPixel(p.Sample, p.Line)
				continue
			}
			dc.DrawCircle(float64(p.Sample)+0.5, float64(p.Line)+0.5, opts.Radius)
			dc.Fill()
		}
		if opts.Labels && r.Len() > 0 {
			first := r.Points()[0]
			dc.SetColor(color.White)
			dc.DrawStringAnchored(r.Name(), float64(first.Sample)+opts.Radius+2, float64(first.Line), 0, 0.5)
		}
	}
	return dc.Image().(*image.RGBA)
}
