// Package envi reads and writes ENVI format cubes: a raw data file paired
// with a plain text header describing its shape, storage and calibration.
//
// A header starts with the line "ENVI" followed by "key = value" records.
// Values are either the rest of the line or a brace delimited list that may
// span several lines:
//
//	ENVI
//	samples = 640
//	lines = 512
//	bands = 3
//	wavelength = {
//	  450.0, 550.0,
//	  650.0}
package envi

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"hsicube/pkg/cube"
	"hsicube/pkg/vfs"
)

// record is one raw "key = value" entry of a header.
type record struct {
	value  string
	braced bool
	line   int
}

// normalizeKey lower-cases a key and collapses internal whitespace.
func normalizeKey(k string) string {
	return strings.Join(strings.Fields(strings.ToLower(k)), " ")
}

// scan splits header text into records. Later keys replace earlier ones.
func scan(r io.Reader) (map[string]record, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)

	records := make(map[string]record)
	lineNo := 0
	seenMagic := false

	var (
		inBrace   bool
		key       string
		startLine int
		buf       strings.Builder
	)
	for sc.Scan() {
		lineNo++
		text := strings.TrimRight(sc.Text(), "\r")

		if !seenMagic {
			trimmed := strings.TrimSpace(strings.TrimPrefix(text, "\ufeff"))
			if trimmed == "" {
				continue
			}
			if trimmed != "ENVI" {
				return nil, ErrNotENVI
			}
			seenMagic = true
			continue
		}

		if inBrace {
			if i := strings.LastIndex(text, "}"); i >= 0 {
				buf.WriteString(text[:i])
				records[key] = record{value: strings.TrimSpace(buf.String()), braced: true, line: startLine}
				inBrace = false
				continue
			}
			buf.WriteString(text)
			buf.WriteByte('\n')
			continue
		}

		trimmed := strings.TrimSpace(text)
		if trimmed == "" || strings.HasPrefix(trimmed, ";") {
			continue
		}
		k, v, ok := strings.Cut(trimmed, "=")
		if !ok {
			return nil, &HeaderError{Line: lineNo, Reason: fmt.Sprintf("expected key = value, got %q", trimmed)}
		}
		key = normalizeKey(k)
		if key == "" {
			return nil, &HeaderError{Line: lineNo, Reason: "empty key"}
		}
		v = strings.TrimSpace(v)
		if !strings.HasPrefix(v, "{") {
			records[key] = record{value: v, line: lineNo}
			continue
		}
		if i := strings.LastIndex(v, "}"); i > 0 {
			records[key] = record{value: strings.TrimSpace(v[1:i]), braced: true, line: lineNo}
			continue
		}
		inBrace = true
		startLine = lineNo
		buf.Reset()
		buf.WriteString(v[1:])
		buf.WriteByte('\n')
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("envi: reading header: %w", err)
	}
	if !seenMagic {
		return nil, ErrNotENVI
	}
	if inBrace {
		return nil, &HeaderError{Line: startLine, Reason: fmt.Sprintf("unterminated brace for %q", key)}
	}
	return records, nil
}

// splitList breaks a brace list into its comma separated entries. Quoted
// entries may contain commas; empty entries are dropped.
func splitList(s string) ([]string, error) {
	r := csv.NewReader(strings.NewReader(s))
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	var out []string
	for _, row := range rows {
		for _, f := range row {
			if f = strings.TrimSpace(f); f != "" {
				out = append(out, f)
			}
		}
	}
	return out, nil
}

func parseFloats(s string) ([]float64, error) {
	items, err := splitList(s)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(items))
	for i, it := range items {
		if out[i], err = strconv.ParseFloat(it, 64); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func parseInts(s string) ([]int, error) {
	items, err := splitList(s)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(items))
	for i, it := range items {
		if out[i], err = parseInt(it); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// parseInt accepts integers written as floats, e.g. "1.0" in a bbl list.
func parseInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	if v, err := strconv.Atoi(s); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return 0, fmt.Errorf("%q is not an integer", s)
	}
	return int(f), nil
}

// Parse reads an ENVI header into attributes. Keys without a typed field
// are kept in Attributes.Extra. The result is not verified.
func Parse(r io.Reader) (*cube.Attributes, error) {
	records, err := scan(r)
	if err != nil {
		return nil, err
	}
	if s, ok := records["sigma"]; ok {
		records["fwhm"] = s
		delete(records, "sigma")
	}

	a := &cube.Attributes{}
	for key, rec := range records {
		if err := apply(a, key, rec); err != nil {
			if _, ok := err.(*DataTypeError); ok {
				return nil, err
			}
			return nil, &HeaderError{Line: rec.line, Reason: fmt.Sprintf("%s: %v", key, err)}
		}
	}
	return a, nil
}

func apply(a *cube.Attributes, key string, rec record) (err error) {
	v := rec.value
	switch key {
	case "samples":
		a.Samples, err = parseInt(v)
	case "lines":
		a.Lines, err = parseInt(v)
	case "bands":
		a.Bands, err = parseInt(v)
	case "byte order":
		var o int
		o, err = parseInt(v)
		a.ByteOrder = cube.ByteOrder(o)
	case "header offset":
		var o int
		o, err = parseInt(v)
		a.HeaderOffset = int64(o)
	case "x start":
		var x int
		x, err = parseInt(v)
		a.XStart = &x
	case "y start":
		var y int
		y, err = parseInt(v)
		a.YStart = &y
	case "data type":
		var code int
		if code, err = parseInt(v); err != nil {
			return err
		}
		a.DataType, err = DataType(code)
	case "interleave":
		a.Interleave, err = cube.ParseInterleave(v)
	case "sensor type":
		a.SensorType = strings.ToLower(v)
	case "wavelength units":
		a.WavelengthUnits = cube.NormaliseUnits(v)
	case "wavelength":
		a.Wavelengths, err = parseFloats(v)
	case "fwhm":
		a.FWHM, err = parseFloats(v)
	case "bbl":
		a.BadBands, err = parseInts(v)
	case "reflectance scale factor":
		var f float64
		f, err = strconv.ParseFloat(strings.TrimSpace(v), 64)
		a.ScaleFactor = &f
	case "description":
		a.Description = v
	case "band names":
		a.BandNames, err = splitList(v)
	case "spectra names":
		a.SpectraNames, err = splitList(v)
	case "default bands":
		var bands []int
		if bands, err = parseInts(v); err == nil {
			for i := range bands {
				bands[i]--
			}
			a.DefaultBands = bands
		}
	case "map info":
		var tokens []string
		if tokens, err = splitList(v); err == nil {
			a.Georef, err = cube.ParseMapInfo(tokens)
		}
	default:
		if a.Extra == nil {
			a.Extra = make(map[string]string)
		}
		if rec.braced {
			a.Extra[key] = "{" + v + "}"
		} else {
			a.Extra[key] = v
		}
	}
	return err
}

// ReadHeader parses the header at url.
func ReadHeader(url string) (*cube.Attributes, error) {
	r, err := vfs.OpenRead(url)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	a, err := Parse(r)
	if err != nil {
		if he, ok := err.(*HeaderError); ok {
			he.URL = url
		}
		return nil, err
	}
	return a, nil
}
