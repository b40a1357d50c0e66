// Package format dispatches a URL to the handler that understands it.
//
// Handlers are registered on an explicit Registry. Each one answers
// Identify with a Confidence; the registry picks the first Exact answer or,
// failing that, the best Probable one.
package format

import (
	"errors"
	"fmt"
	"log"
	"path"
	"strings"

	"hsicube/pkg/cube"
)

var (
	// ErrUnrecognized means a handler does not understand the file. The
	// registry moves on to the next candidate when it sees this error.
	ErrUnrecognized = errors.New("format: unrecognized file")
	ErrNoHandler    = errors.New("format: no handler for file")
)

// Confidence is how sure a handler is that it can open a URL.
type Confidence int

const (
	None Confidence = iota
	Probable
	Exact
)

func (c Confidence) String() string {
	switch c {
	case Probable:
		return "probable"
	case Exact:
		return "exact"
	}
	return "none"
}

// Descriptor names a format and the data file extensions it uses.
type Descriptor struct {
	ID         string
	Name       string
	Extensions []string
}

// MatchesExtension reports whether url ends in one of d's extensions.
func (d Descriptor) MatchesExtension(url string) bool {
	ext := strings.ToLower(path.Ext(url))
	for _, e := range d.Extensions {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

// Handler reads one file format.
type Handler interface {
	Descriptor() Descriptor
	Identify(url string) Confidence
	Open(url string) (*cube.Cube, error)
}

// Registry holds handlers in registration order.
type Registry struct {
	handlers []Handler
	logger   *log.Logger
}

// NewRegistry returns a registry holding handlers. logger may be nil.
func NewRegistry(logger *log.Logger, handlers ...Handler) *Registry {
	r := &Registry{logger: logger}
	for _, h := range handlers {
		r.Register(h)
	}
	return r
}

// Register appends h.
func (r *Registry) Register(h Handler) {
	r.handlers = append(r.handlers, h)
}

// Handlers returns the registered handlers in order.
func (r *Registry) Handlers() []Handler {
	return append([]Handler(nil), r.handlers...)
}

func (r *Registry) logf(format string, args ...interface{}) {
	if r.logger != nil {
		r.logger.Printf(format, args...)
	}
}

// candidates returns the handlers willing to try url, best first.
func (r *Registry) candidates(url string) []Handler {
	var exact, probable []Handler
	for _, h := range r.handlers {
		conf := h.Identify(url)
		r.logf("identify %s as %s: %s", url, h.Descriptor().ID, conf)
		switch conf {
		case Exact:
			exact = append(exact, h)
		case Probable:
			probable = append(probable, h)
		}
	}
	// Among probable handlers, those claiming the file extension go first.
	var byExt, rest []Handler
	for _, h := range probable {
		if h.Descriptor().MatchesExtension(url) {
			byExt = append(byExt, h)
		} else {
			rest = append(rest, h)
		}
	}
	return append(append(exact, byExt...), rest...)
}

// Identify returns the handler that would open url, or nil.
func (r *Registry) Identify(url string) Handler {
	c := r.candidates(url)
	if len(c) == 0 {
		return nil
	}
	return c[0]
}

// Open opens url with the best handler. When a handler reports
// ErrUnrecognized the next candidate is tried; any other error is returned
// as is.
func (r *Registry) Open(url string) (*cube.Cube, error) {
	for _, h := range r.candidates(url) {
		c, err := h.Open(url)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, ErrUnrecognized) {
			return nil, err
		}
		r.logf("%s declined %s: %v", h.Descriptor().ID, url, err)
	}
	return nil, fmt.Errorf("%w: %s", ErrNoHandler, url)
}
