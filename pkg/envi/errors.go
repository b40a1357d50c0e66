package envi

import (
	"errors"
	"fmt"
	"strings"

	"hsicube/pkg/format"
)

var (
	// ErrNotENVI wraps format.ErrUnrecognized so that a registry moves on
	// to the next handler.
	ErrNotENVI             = fmt.Errorf("envi: not an ENVI header: %w", format.ErrUnrecognized)
	ErrMalformedHeader     = errors.New("envi: malformed header")
	ErrUnsupportedDataType = errors.New("envi: unsupported data type")
	ErrDataFileMissing     = errors.New("envi: data file not found")
)

// HeaderError locates a problem in a header file. Line is 1-based.
type HeaderError struct {
	URL    string
	Line   int
	Reason string
}

func (e *HeaderError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("envi: line %d: %s", e.Line, e.Reason)
	}
	return fmt.Sprintf("envi: %s:%d: %s", e.URL, e.Line, e.Reason)
}

func (e *HeaderError) Unwrap() error { return ErrMalformedHeader }

// DataTypeError reports an ENVI data type code with no element type.
type DataTypeError struct {
	Code int
}

func (e *DataTypeError) Error() string {
	return fmt.Sprintf("envi: unsupported data type code %d", e.Code)
}

func (e *DataTypeError) Unwrap() error { return ErrUnsupportedDataType }

// MissingDataError lists the data file names tried for a header.
type MissingDataError struct {
	Header     string
	Candidates []string
}

func (e *MissingDataError) Error() string {
	return fmt.Sprintf("envi: no data file for %s (tried %s)", e.Header, strings.Join(e.Candidates, ", "))
}

func (e *MissingDataError) Unwrap() error { return ErrDataFileMissing }
