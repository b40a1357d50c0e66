// Package hsi opens hyperspectral cubes of any registered format.
package hsi

import (
	"log"

	"hsicube/pkg/cube"
	"hsicube/pkg/envi"
	"hsicube/pkg/format"
	"hsicube/pkg/format/fits"
)

// DefaultRegistry returns a registry holding the handlers that need no
// native libraries. Callers add others, such as the GDAL handler, with
// Register.
func DefaultRegistry(logger *log.Logger, opts ...cube.Option) *format.Registry {
	return format.NewRegistry(logger,
		envi.NewHandler(logger, opts...),
		fits.NewHandler(logger, opts...),
	)
}

// Open opens url with the default registry.
func Open(url string, opts ...cube.Option) (*cube.Cube, error) {
	return DefaultRegistry(nil, opts...).Open(url)
}
