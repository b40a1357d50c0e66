package visualization

import (
	"fmt"
	"image"
	"image/color"

	"hsicube/pkg/cube"
	"hsicube/pkg/numeric"
)

// ToRGB maps up to three bands of c through m and stacks them into a
// (lines, samples, 3) Uint8 raster. Missing channels repeat the first one,
// so a single band gives a gray image.
func ToRGB(c *cube.Cube, bands []int, m Mapper) (*numeric.Slab, error) {
	if len(bands) == 0 || len(bands) > 3 {
		return nil, fmt.Errorf("%w: got %d", ErrBands, len(bands))
	}
	a := c.Attributes()
	planes := make([]*numeric.Slab, 3)
	for i, b := range bands {
		band, err := c.GetBand(b)
		if err != nil {
			return nil, err
		}
		planes[i] = m.ToGray(band)
	}
	for i := len(bands); i < 3; i++ {
		planes[i] = planes[0]
	}

	out := numeric.NewOwned(numeric.Uint8, a.Lines, a.Samples, 3)
	dst := out.Bytes()
	n := a.Lines * a.Samples
	for ch, p := range planes {
		src := p.Bytes()
		for i := 0; i < n; i++ {
			dst[3*i+ch] = src[i]
		}
	}
	return out, nil
}

// QuickLook composes the display bands the cube's attributes suggest.
func QuickLook(c *cube.Cube, m Mapper) (*image.RGBA, error) {
	raster, err := ToRGB(c, c.Attributes().GuessDisplayBands(), m)
	if err != nil {
		return nil, err
	}
	return RGBImage(raster), nil
}

// RGBImage wraps a (lines, samples, 3) Uint8 raster as an opaque image.
func RGBImage(raster *numeric.Slab) *image.RGBA {
	shape := raster.Shape()
	h, w := shape[0], shape[1]
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	src := raster.Bytes()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := 3 * (y*w + x)
			img.SetRGBA(x, y, color.RGBA{R: src[i], G: src[i+1], B: src[i+2], A: 255})
		}
	}
	return img
}

// GrayImage wraps a (lines, samples) Uint8 slab.
func GrayImage(g *numeric.Slab) *image.Gray {
	shape := g.Shape()
	img := image.NewGray(image.Rect(0, 0, shape[1], shape[0]))
	copy(img.Pix, g.Bytes())
	return img
}
