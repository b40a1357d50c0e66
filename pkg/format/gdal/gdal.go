// Package gdal opens rasters through GDAL as in-memory cubes. Importing it
// links libgdal.
package gdal

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/airbusgeo/godal"

	"hsicube/pkg/cube"
	"hsicube/pkg/format"
	"hsicube/pkg/numeric"
	"hsicube/pkg/vfs"
)

var registerOnce sync.Once

var dataTypes = map[godal.DataType]numeric.DType{
	godal.Byte:    numeric.Uint8,
	godal.UInt16:  numeric.Uint16,
	godal.Int16:   numeric.Int16,
	godal.UInt32:  numeric.Uint32,
	godal.Int32:   numeric.Int32,
	godal.Float32: numeric.Float32,
	godal.Float64: numeric.Float64,
}

// Handler reads any raster GDAL can open. Samples are copied into a BSQ
// cube in host byte order.
type Handler struct {
	logger *log.Logger
	opts   []cube.Option
}

// NewHandler registers the GDAL drivers on first use.
func NewHandler(logger *log.Logger, opts ...cube.Option) *Handler {
	registerOnce.Do(godal.RegisterAll)
	return &Handler{logger: logger, opts: opts}
}

func (h *Handler) Descriptor() format.Descriptor {
	return format.Descriptor{
		ID:         "GDAL",
		Name:       "GDAL raster",
		Extensions: []string{".tif", ".tiff", ".png", ".jpg", ".jpeg", ".jp2", ".vrt", ".nc", ".h5", ".hdf"},
	}
}

// localPath returns the file system path for url, or "" when GDAL cannot
// read it directly.
func localPath(url string) string {
	p := vfs.Normalize(url)
	if strings.Contains(p, "://") {
		return ""
	}
	return p
}

// Identify never answers Exact: opening a dataset just to identify it is
// too slow, so the handler only claims its extensions.
func (h *Handler) Identify(url string) format.Confidence {
	if localPath(url) == "" || !vfs.IsFile(url) {
		return format.None
	}
	if h.Descriptor().MatchesExtension(url) {
		return format.Probable
	}
	return format.None
}

func (h *Handler) logf(format string, args ...interface{}) {
	if h.logger != nil {
		h.logger.Printf(format, args...)
	}
}

// Open reads every band of the dataset at url.
func (h *Handler) Open(url string) (*cube.Cube, error) {
	p := localPath(url)
	if p == "" {
		return nil, fmt.Errorf("gdal: %s is not a local file: %w", url, format.ErrUnrecognized)
	}
	ds, err := godal.Open(p, godal.ErrLogger(func(ec godal.ErrorCategory, code int, msg string) error {
		if ec == godal.CE_Warning {
			h.logf("gdal: %s: %s", url, msg)
			return nil
		}
		return fmt.Errorf("%s", msg)
	}))
	if err != nil {
		return nil, fmt.Errorf("gdal: opening %s: %v: %w", url, err, format.ErrUnrecognized)
	}
	defer ds.Close()

	bands := ds.Bands()
	if len(bands) == 0 {
		return nil, fmt.Errorf("gdal: %s has no raster bands: %w", url, format.ErrUnrecognized)
	}
	st := ds.Structure()
	dtype, ok := dataTypes[bands[0].Structure().DataType]
	if !ok {
		dtype = numeric.Float64
	}
	attrs := &cube.Attributes{
		Samples:    st.SizeX,
		Lines:      st.SizeY,
		Bands:      len(bands),
		Interleave: cube.BSQ,
		DataType:   dtype,
		ByteOrder:  cube.HostByteOrder(),
	}
	attrs.DefaultBands = colorBands(bands)
	if gt, err := ds.GeoTransform(); err == nil && gt[2] == 0 && gt[4] == 0 && gt[1] != 0 {
		attrs.Georef = &cube.Georef{
			Projection: "Arbitrary",
			RefX:       1,
			RefY:       1,
			Easting:    gt[0],
			Northing:   gt[3],
			PixelX:     gt[1],
			PixelY:     -gt[5],
		}
	}
	if wkt := ds.Projection(); wkt != "" {
		attrs.Extra = map[string]string{"coordinate system string": "{" + wkt + "}"}
	}

	raw := make([]byte, attrs.TotalBytes())
	size := dtype.Size()
	plane := st.SizeX * st.SizeY
	buf := make([]float64, plane)
	order := numeric.HostOrder()
	for b, band := range bands {
		if err := band.Read(0, 0, buf, st.SizeX, st.SizeY); err != nil {
			return nil, fmt.Errorf("gdal: reading band %d of %s: %w", b, url, err)
		}
		base := b * plane * size
		for i, v := range buf {
			numeric.Encode(raw[base+i*size:], dtype, order, v)
		}
	}
	h.logf("gdal: %s (%dx%dx%d %s)", url, attrs.Lines, attrs.Samples, attrs.Bands, dtype)
	return cube.NewFromBytes(attrs, raw, h.opts...)
}

// colorBands returns the red, green and blue band indices when the
// dataset declares all three.
func colorBands(bands []godal.Band) []int {
	idx := map[godal.ColorInterp]int{}
	for i, b := range bands {
		ci := b.ColorInterp()
		if _, seen := idx[ci]; !seen {
			idx[ci] = i
		}
	}
	r, okR := idx[godal.CIRed]
	g, okG := idx[godal.CIGreen]
	bl, okB := idx[godal.CIBlue]
	if okR && okG && okB {
		return []int{r, g, bl}
	}
	return nil
}
