package cube

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCube   = errors.New("cube: invalid attributes")
	ErrCubeIO        = errors.New("cube: I/O error")
	ErrShortCubeFile = errors.New("cube: data file shorter than declared size")
	ErrPartialBand   = errors.New("cube: read crosses the end of a partial data file")
	ErrReadOnly      = errors.New("cube: cube is read-only")
	ErrClosed        = errors.New("cube: cube is closed")
	ErrOutOfRange    = errors.New("cube: index out of range")
)

// InvalidError reports which attribute failed verification.
type InvalidError struct {
	Field  string
	Reason string
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("cube: invalid %s: %s", e.Field, e.Reason)
}

func (e *InvalidError) Unwrap() error { return ErrInvalidCube }

// AccessError is returned by cube accessors. Band, Line and Sample are -1
// when they do not apply to the operation.
type AccessError struct {
	URL    string
	Op     string
	Band   int
	Line   int
	Sample int
	Err    error
}

func (e *AccessError) Error() string {
	loc := ""
	if e.Band >= 0 {
		loc += fmt.Sprintf(" band %d", e.Band)
	}
	if e.Line >= 0 {
		loc += fmt.Sprintf(" line %d", e.Line)
	}
	if e.Sample >= 0 {
		loc += fmt.Sprintf(" sample %d", e.Sample)
	}
	return fmt.Sprintf("%s %s%s: %v", e.Op, e.URL, loc, e.Err)
}

func (e *AccessError) Unwrap() error { return e.Err }
