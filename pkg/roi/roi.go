// Package roi models regions of interest over a cube: named, coloured sets
// of pixels, grouped into collections and stored as ENVI text ROI files.
//
// Coordinates are 0-based (line, sample) pairs everywhere in this package
// except inside the text files, which count from 1.
package roi

import (
	"errors"
	"fmt"
	"image/color"
	"strings"

	"gonum.org/v1/gonum/spatial/kdtree"
)

var (
	ErrDuplicateROI         = errors.New("roi: duplicate ROI name")
	ErrCoordinateOutOfRange = errors.New("roi: coordinate out of range")
	ErrMalformedFile        = errors.New("roi: malformed ROI file")
	ErrEmptyROI             = errors.New("roi: ROI has no points")
)

// CoordinateError reports a point that falls outside a cube.
type CoordinateError struct {
	ROI     string
	Point   Point
	Lines   int
	Samples int
}

func (e *CoordinateError) Error() string {
	return fmt.Sprintf("roi: %s point %d at (%d, %d) outside %dx%d", e.ROI, e.Point.ID,
		e.Point.Line, e.Point.Sample, e.Lines, e.Samples)
}

func (e *CoordinateError) Unwrap() error { return ErrCoordinateOutOfRange }

// Point is one pixel of an ROI. ID is opaque to this package.
type Point struct {
	ID     int
	Line   int
	Sample int
}

// ROI is a named set of pixels. A (line, sample) pair appears at most once.
type ROI struct {
	name  string
	Color color.RGBA

	points []Point
	seen   map[[2]int]int
	tree   *kdtree.Tree
	nextID int
}

// New returns an empty ROI.
func New(name string) *ROI {
	return &ROI{name: name, seen: make(map[[2]int]int), nextID: 1}
}

func (r *ROI) Name() string { return r.name }

// Len returns the number of points.
func (r *ROI) Len() int { return len(r.points) }

// Points returns the points in insertion order.
func (r *ROI) Points() []Point {
	return append([]Point(nil), r.points...)
}

// Averaged reports whether the ROI stands for the mean of its pixels
// rather than each pixel. ENVI marks such regions with an "avg" suffix.
func (r *ROI) Averaged() bool {
	return strings.HasSuffix(r.name, "avg")
}

// Add appends the pixel at (line, sample) with a fresh ID, one above the
// largest ID the ROI has handed out or been given. IDs start at 1 and are
// not reused after Remove. It reports false when the pixel is already in
// the ROI.
func (r *ROI) Add(line, sample int) bool {
	return r.AddPoint(Point{ID: r.nextID, Line: line, Sample: sample})
}

// AddPoint appends p unless its pixel is already in the ROI.
func (r *ROI) AddPoint(p Point) bool {
	key := [2]int{p.Line, p.Sample}
	if _, dup := r.seen[key]; dup {
		return false
	}
	r.seen[key] = len(r.points)
	r.points = append(r.points, p)
	r.tree = nil
	if p.ID >= r.nextID {
		r.nextID = p.ID + 1
	}
	return true
}

// Remove deletes the pixel at (line, sample).
func (r *ROI) Remove(line, sample int) bool {
	key := [2]int{line, sample}
	i, ok := r.seen[key]
	if !ok {
		return false
	}
	r.points = append(r.points[:i], r.points[i+1:]...)
	delete(r.seen, key)
	for j := i; j < len(r.points); j++ {
		r.seen[[2]int{r.points[j].Line, r.points[j].Sample}] = j
	}
	r.tree = nil
	return true
}

// Contains reports whether (line, sample) is in the ROI.
func (r *ROI) Contains(line, sample int) bool {
	_, ok := r.seen[[2]int{line, sample}]
	return ok
}

// Check returns a CoordinateError for the first point outside a cube of
// the given size.
func (r *ROI) Check(lines, samples int) error {
	for _, p := range r.points {
		if p.Line < 0 || p.Line >= lines || p.Sample < 0 || p.Sample >= samples {
			return &CoordinateError{ROI: r.name, Point: p, Lines: lines, Samples: samples}
		}
	}
	return nil
}

// palette holds the colours handed to ROIs added without one.
var palette = []color.RGBA{
	{255, 0, 0, 255},
	{0, 255, 0, 255},
	{0, 0, 255, 255},
	{255, 255, 0, 255},
	{0, 255, 255, 255},
	{255, 0, 255, 255},
	{176, 48, 96, 255},
	{46, 139, 87, 255},
	{160, 32, 240, 255},
	{255, 127, 80, 255},
}

// Collection holds the ROIs of one cube in insertion order.
type Collection struct {
	// Title is the first line of the file the collection was read from.
	Title string

	// Comments are file comments that carry no ROI data, kept so that
	// writing the collection back preserves them.
	Comments []string

	rois   []*ROI
	byName map[string]*ROI
}

func NewCollection() *Collection {
	return &Collection{byName: make(map[string]*ROI)}
}

// Add appends r. An ROI with a zero colour gets one from a fixed palette.
func (c *Collection) Add(r *ROI) error {
	if _, dup := c.byName[r.name]; dup {
		return fmt.Errorf("%w: %q", ErrDuplicateROI, r.name)
	}
	if r.Color == (color.RGBA{}) {
		r.Color = palette[len(c.rois)%len(palette)]
	}
	c.rois = append(c.rois, r)
	c.byName[r.name] = r
	return nil
}

// Remove deletes the ROI called name.
func (c *Collection) Remove(name string) bool {
	if _, ok := c.byName[name]; !ok {
		return false
	}
	delete(c.byName, name)
	for i, r := range c.rois {
		if r.name == name {
			c.rois = append(c.rois[:i], c.rois[i+1:]...)
			break
		}
	}
	return true
}

// Get looks an ROI up by name.
func (c *Collection) Get(name string) (*ROI, bool) {
	r, ok := c.byName[name]
	return r, ok
}

// ROIs returns the ROIs in insertion order.
func (c *Collection) ROIs() []*ROI {
	return append([]*ROI(nil), c.rois...)
}

func (c *Collection) Len() int { return len(c.rois) }
