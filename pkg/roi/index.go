package roi

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/kdtree"
)

// pixel is an ROI point in the kd-tree. pos indexes ROI.points.
type pixel struct {
	line, sample float64
	pos          int
}

// Compare implements the kdtree.Comparable interface
func (p pixel) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(pixel)
	switch d {
	case 0:
		return p.line - q.line
	case 1:
		return p.sample - q.sample
	default:
		panic("illegal dimension")
	}
}

func (p pixel) Dims() int { return 2 }

// Distance returns the squared Euclidean distance
func (p pixel) Distance(c kdtree.Comparable) float64 {
	q := c.(pixel)
	dl := p.line - q.line
	ds := p.sample - q.sample
	return dl*dl + ds*ds
}

type pixels []pixel

func (p pixels) Index(i int) kdtree.Comparable         { return p[i] }
func (p pixels) Len() int                              { return len(p) }
func (p pixels) Slice(start, end int) kdtree.Interface { return p[start:end] }

func (p pixels) Pivot(d kdtree.Dim) int {
	return kdtree.Partition(pixelPlane{pixels: p, Dim: d}, kdtree.MedianOfRandoms(pixelPlane{pixels: p, Dim: d}, 100))
}

// pixelPlane implements sort.Interface and kdtree.SortSlicer for pixels
type pixelPlane struct {
	pixels
	kdtree.Dim
}

func (p pixelPlane) Less(i, j int) bool {
	switch p.Dim {
	case 0:
		return p.pixels[i].line < p.pixels[j].line
	case 1:
		return p.pixels[i].sample < p.pixels[j].sample
	default:
		panic("illegal dimension")
	}
}

func (p pixelPlane) Slice(start, end int) kdtree.SortSlicer {
	return pixelPlane{pixels: p.pixels[start:end], Dim: p.Dim}
}

func (p pixelPlane) Swap(i, j int) {
	p.pixels[i], p.pixels[j] = p.pixels[j], p.pixels[i]
}

// index builds the kd-tree on first use after a change.
func (r *ROI) index() *kdtree.Tree {
	if r.tree == nil {
		pts := make(pixels, len(r.points))
		for i, p := range r.points {
			pts[i] = pixel{line: float64(p.Line), sample: float64(p.Sample), pos: i}
		}
		r.tree = kdtree.New(pts, false)
	}
	return r.tree
}

// Nearest returns the point closest to (line, sample) and its distance in
// pixels. ok is false for an empty ROI.
func (r *ROI) Nearest(line, sample int) (p Point, dist float64, ok bool) {
	if len(r.points) == 0 {
		return Point{}, 0, false
	}
	c, d := r.index().Nearest(pixel{line: float64(line), sample: float64(sample)})
	return r.points[c.(pixel).pos], math.Sqrt(d), true
}

// Hit returns the point within radius pixels of (line, sample), if any.
func (r *ROI) Hit(line, sample int, radius float64) (Point, bool) {
	p, d, ok := r.Nearest(line, sample)
	if !ok || d > radius {
		return Point{}, false
	}
	return p, true
}

// NearestN returns up to n points ordered by distance from (line, sample).
func (r *ROI) NearestN(line, sample, n int) []Point {
	if len(r.points) == 0 || n <= 0 {
		return nil
	}
	keeper := kdtree.NewNKeeper(n)
	r.index().NearestSet(keeper, pixel{line: float64(line), sample: float64(sample)})

	found := make([]kdtree.ComparableDist, 0, keeper.Len())
	for _, item := range keeper.Heap {
		if item.Comparable != nil {
			found = append(found, item)
		}
	}
	sort.Slice(found, func(i, j int) bool {
		if found[i].Dist != found[j].Dist {
			return found[i].Dist < found[j].Dist
		}
		return found[i].Comparable.(pixel).pos < found[j].Comparable.(pixel).pos
	})
	out := make([]Point, len(found))
	for i, item := range found {
		out[i] = r.points[item.Comparable.(pixel).pos]
	}
	return out
}
