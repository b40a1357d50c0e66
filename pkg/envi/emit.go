package envi

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"hsicube/pkg/cube"
)

// lineWidth is the column limit for wrapped list values.
const lineWidth = 80

var prologue = []string{"description", "samples", "lines", "bands", "byte order", "interleave"}

var unitNames = map[cube.Units]string{
	cube.Nanometers:   "Nanometers",
	cube.Micrometers:  "Micrometers",
	cube.UnitsUnknown: "Unknown",
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatFloats(vs []float64) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = formatFloat(v)
	}
	return out
}

func formatInts(vs []int, delta int) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = strconv.Itoa(v + delta)
	}
	return out
}

// quote protects list entries that would otherwise be split.
func quote(items []string) []string {
	out := make([]string, len(items))
	for i, it := range items {
		if strings.ContainsAny(it, ",\"{}\n") {
			it = `"` + strings.ReplaceAll(it, `"`, `""`) + `"`
		}
		out[i] = it
	}
	return out
}

// braced formats a list value wrapped to lineWidth columns.
func braced(key string, items []string) string {
	var b strings.Builder
	b.WriteString(key)
	b.WriteString(" = {\n")
	line := "  "
	for i, it := range items {
		tok := it + ","
		if i == len(items)-1 {
			tok = it + "}"
		}
		if line != "  " && len(line)+1+len(tok) > lineWidth {
			b.WriteString(line)
			b.WriteByte('\n')
			line = "  "
		}
		if line != "  " {
			line += " "
		}
		line += tok
	}
	if len(items) == 0 {
		line += "}"
	}
	b.WriteString(line)
	b.WriteByte('\n')
	return b.String()
}

// entries renders every key of a into header text, keyed by name.
func entries(a *cube.Attributes) map[string]string {
	e := make(map[string]string)
	put := func(key, value string) { e[key] = key + " = " + value + "\n" }

	if a.Description != "" {
		e["description"] = "description = {\n  " + a.Description + "}\n"
	}
	put("samples", strconv.Itoa(a.Samples))
	put("lines", strconv.Itoa(a.Lines))
	put("bands", strconv.Itoa(a.Bands))
	put("byte order", strconv.Itoa(int(a.ByteOrder)))
	put("interleave", string(a.Interleave))
	put("header offset", strconv.FormatInt(a.HeaderOffset, 10))
	put("data type", strconv.Itoa(DataTypeCode(a.DataType)))

	if a.XStart != nil {
		put("x start", strconv.Itoa(*a.XStart))
	}
	if a.YStart != nil {
		put("y start", strconv.Itoa(*a.YStart))
	}
	if a.SensorType != "" {
		put("sensor type", "{"+a.SensorType+"}")
	}
	if name, ok := unitNames[a.WavelengthUnits]; ok {
		put("wavelength units", name)
	}
	if a.ScaleFactor != nil {
		put("reflectance scale factor", formatFloat(*a.ScaleFactor))
	}
	if a.Wavelengths != nil {
		e["wavelength"] = braced("wavelength", formatFloats(a.Wavelengths))
	}
	if a.FWHM != nil {
		e["fwhm"] = braced("fwhm", formatFloats(a.FWHM))
	}
	if a.BadBands != nil {
		e["bbl"] = braced("bbl", formatInts(a.BadBands, 0))
	}
	if a.DefaultBands != nil {
		e["default bands"] = braced("default bands", formatInts(a.DefaultBands, 1))
	}
	if a.BandNames != nil {
		e["band names"] = braced("band names", quote(a.BandNames))
	}
	if a.SpectraNames != nil {
		e["spectra names"] = braced("spectra names", quote(a.SpectraNames))
	}
	if a.Georef != nil {
		e["map info"] = braced("map info", a.Georef.Tokens())
	}
	for k, v := range a.Extra {
		if _, typed := e[k]; !typed {
			put(k, v)
		}
	}
	return e
}

// Emit writes a as an ENVI header. The fixed prologue keys come first,
// then every other key in alphabetical order.
func Emit(w io.Writer, a *cube.Attributes) error {
	if DataTypeCode(a.DataType) == 0 {
		return fmt.Errorf("envi: no data type code for %s", a.DataType)
	}
	e := entries(a)
	bw := bufio.NewWriter(w)
	bw.WriteString("ENVI\n")
	for _, k := range prologue {
		if text, ok := e[k]; ok {
			bw.WriteString(text)
			delete(e, k)
		}
	}
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		bw.WriteString(e[k])
	}
	return bw.Flush()
}

// Marshal returns the header text for a.
func Marshal(a *cube.Attributes) ([]byte, error) {
	var buf bytes.Buffer
	if err := Emit(&buf, a); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
