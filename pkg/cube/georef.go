package cube

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// Georef is the map projection information of an ENVI "map info" entry.
// RefX and RefY are the 1-based pixel coordinates of the tie point; pixel
// (1, 1) is the upper-left corner of the upper-left pixel.
type Georef struct {
	Projection string
	RefX       float64
	RefY       float64
	Easting    float64
	Northing   float64
	PixelX     float64
	PixelY     float64
	Zone       int
	North      bool
	Datum      string
	Units      string
	// Params keeps any trailing entries that are not understood.
	Params []string
}

func (g *Georef) isUTM() bool {
	return strings.EqualFold(g.Projection, "UTM")
}

// ParseMapInfo builds a Georef from the comma separated entries of an
// ENVI map info value.
func ParseMapInfo(tokens []string) (*Georef, error) {
	if len(tokens) < 7 {
		return nil, fmt.Errorf("map info needs at least 7 entries, got %d", len(tokens))
	}
	g := &Georef{Projection: strings.TrimSpace(tokens[0])}
	nums := make([]float64, 6)
	for i := range nums {
		v, err := strconv.ParseFloat(strings.TrimSpace(tokens[i+1]), 64)
		if err != nil {
			return nil, fmt.Errorf("map info entry %d: %w", i+2, err)
		}
		nums[i] = v
	}
	g.RefX, g.RefY, g.Easting, g.Northing, g.PixelX, g.PixelY = nums[0], nums[1], nums[2], nums[3], nums[4], nums[5]

	rest := tokens[7:]
	if g.isUTM() && len(rest) >= 2 {
		zone, err := strconv.Atoi(strings.TrimSpace(rest[0]))
		if err != nil {
			return nil, fmt.Errorf("map info zone: %w", err)
		}
		g.Zone = zone
		g.North = !strings.EqualFold(strings.TrimSpace(rest[1]), "south")
		rest = rest[2:]
	}
	for _, tok := range rest {
		tok = strings.TrimSpace(tok)
		key, val, hasEq := strings.Cut(tok, "=")
		switch {
		case hasEq && strings.EqualFold(strings.TrimSpace(key), "units"):
			g.Units = strings.TrimSpace(val)
		case !hasEq && g.Datum == "":
			g.Datum = tok
		default:
			g.Params = append(g.Params, tok)
		}
	}
	return g, nil
}

// Tokens returns the entries of the map info value for g.
func (g *Georef) Tokens() []string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	out := []string{g.Projection, f(g.RefX), f(g.RefY), f(g.Easting), f(g.Northing), f(g.PixelX), f(g.PixelY)}
	if g.isUTM() {
		hemi := "North"
		if !g.North {
			hemi = "South"
		}
		out = append(out, strconv.Itoa(g.Zone), hemi)
	}
	if g.Datum != "" {
		out = append(out, g.Datum)
	}
	if g.Units != "" {
		out = append(out, "units="+g.Units)
	}
	return append(out, g.Params...)
}

// PixelToMap returns the map coordinate of the upper-left corner of the
// pixel at (line, sample). Fractional positions address points inside the
// pixel.
func (g *Georef) PixelToMap(line, sample float64) orb.Point {
	return orb.Point{
		g.Easting + (sample+1-g.RefX)*g.PixelX,
		g.Northing - (line+1-g.RefY)*g.PixelY,
	}
}

// MapToPixel is the inverse of PixelToMap.
func (g *Georef) MapToPixel(p orb.Point) (line, sample float64) {
	sample = (p[0]-g.Easting)/g.PixelX + g.RefX - 1
	line = (g.Northing-p[1])/g.PixelY + g.RefY - 1
	return line, sample
}

// Footprint returns the outline of a lines x samples image in map
// coordinates.
func (g *Georef) Footprint(lines, samples int) orb.Polygon {
	l, s := float64(lines), float64(samples)
	ring := orb.Ring{
		g.PixelToMap(0, 0),
		g.PixelToMap(0, s),
		g.PixelToMap(l, s),
		g.PixelToMap(l, 0),
		g.PixelToMap(0, 0),
	}
	return orb.Polygon{ring}
}

// Bound returns the map bounding box of a lines x samples image.
func (g *Georef) Bound(lines, samples int) orb.Bound {
	return g.Footprint(lines, samples).Bound()
}
