package envi

import (
	"bytes"
	"fmt"
	"log"

	"hsicube/pkg/cube"
	"hsicube/pkg/format"
	"hsicube/pkg/vfs"
)

// Handler opens ENVI cubes for a format.Registry.
type Handler struct {
	opts   []cube.Option
	logger *log.Logger
}

// NewHandler returns an ENVI handler. The options are passed to every
// cube it opens.
func NewHandler(logger *log.Logger, opts ...cube.Option) *Handler {
	return &Handler{opts: opts, logger: logger}
}

func (h *Handler) Descriptor() format.Descriptor {
	return format.Descriptor{
		ID:         "ENVI",
		Name:       "ENVI Datacube",
		Extensions: []string{".bil", ".bip", ".bsq", ".sli", ".img", ".dat", ".hdr"},
	}
}

// Identify is Exact when a header with the ENVI magic and its data file are
// both found, and Probable when only the extension looks right.
func (h *Handler) Identify(url string) format.Confidence {
	if _, _, err := FindPair(url); err == nil {
		return format.Exact
	}
	if h.Descriptor().MatchesExtension(url) {
		return format.Probable
	}
	return format.None
}

// Open opens the cube named by url, which may be the header or the data
// file.
func (h *Handler) Open(url string) (*cube.Cube, error) {
	header, data, err := FindPair(url)
	if err != nil {
		return nil, err
	}
	attrs, err := ReadHeader(header)
	if err != nil {
		return nil, err
	}
	if h.logger != nil {
		h.logger.Printf("envi: %s -> %s (%dx%dx%d %s %s)", header, data,
			attrs.Lines, attrs.Samples, attrs.Bands, attrs.Interleave, attrs.DataType)
	}
	opts := h.opts
	if h.logger != nil {
		opts = append(append([]cube.Option(nil), opts...), cube.WithLogger(h.logger))
	}
	return cube.Open(data, attrs, opts...)
}

// WriteCube writes the samples of c to data in the given interleave and a
// matching header next to it. Each file is written to a temporary name and
// renamed into place.
func WriteCube(data string, c *cube.Cube, il cube.Interleave) error {
	attrs := c.Attributes().Clone()
	attrs.Interleave = il
	attrs.HeaderOffset = 0

	var raw bytes.Buffer
	if err := c.WriteRaw(&raw, il); err != nil {
		return err
	}
	header, err := Marshal(attrs)
	if err != nil {
		return err
	}
	if err := writeAtomic(data, raw.Bytes()); err != nil {
		return err
	}
	return writeAtomic(HeaderURL(data), header)
}

// WriteHeader writes attrs to url.
func WriteHeader(url string, attrs *cube.Attributes) error {
	header, err := Marshal(attrs)
	if err != nil {
		return err
	}
	return writeAtomic(url, header)
}

func writeAtomic(url string, payload []byte) error {
	tmp := url + ".tmp"
	if err := vfs.WriteFile(tmp, payload); err != nil {
		return fmt.Errorf("envi: writing %s: %w", tmp, err)
	}
	if err := vfs.Rename(tmp, url); err != nil {
		vfs.Remove(tmp)
		return fmt.Errorf("envi: renaming %s: %w", tmp, err)
	}
	return nil
}
