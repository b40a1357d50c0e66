package roi

import (
	"bufio"
	"fmt"
	"image/color"
	"io"
	"strconv"
	"strings"

	"hsicube/pkg/vfs"
)

// Magic starts every ENVI text ROI file.
const Magic = "; ENVI Output of ROIs"

// FileError reports a structural problem that stops a file from loading.
type FileError struct {
	URL    string
	Line   int
	Reason string
}

func (e *FileError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("roi: line %d: %s", e.Line, e.Reason)
	}
	return fmt.Sprintf("roi: %s:%d: %s", e.URL, e.Line, e.Reason)
}

func (e *FileError) Unwrap() error { return ErrMalformedFile }

// Diagnostic describes a line that was skipped while loading.
type Diagnostic struct {
	Line   int
	Reason string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("line %d: %s", d.Line, d.Reason)
}

// Identify reports whether url looks like an ENVI text ROI file.
func Identify(url string) bool {
	r, err := vfs.OpenRead(url)
	if err != nil {
		return false
	}
	defer r.Close()
	head := make([]byte, 100)
	n, _ := io.ReadFull(r, head)
	return strings.HasPrefix(strings.TrimPrefix(string(head[:n]), "\ufeff"), Magic)
}

// parseColor reads an ENVI colour such as "{255, 0, 0}".
func parseColor(s string) (color.RGBA, error) {
	s = strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(s), "{"), "}")
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return color.RGBA{}, fmt.Errorf("expected 3 colour components, got %d", len(parts))
	}
	var rgb [3]uint8
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || v < 0 || v > 255 {
			return color.RGBA{}, fmt.Errorf("bad colour component %q", strings.TrimSpace(p))
		}
		rgb[i] = uint8(v)
	}
	return color.RGBA{rgb[0], rgb[1], rgb[2], 255}, nil
}

// isPointHeader matches the "ID X Y ..." column header comment.
func isPointHeader(body string) bool {
	f := strings.Fields(body)
	return len(f) >= 3 && f[0] == "ID" && f[1] == "X" && f[2] == "Y"
}

// Read parses an ENVI text ROI file.
//
// Every ROI is declared by "; ROI name:", "; ROI rgb value:" and
// "; ROI npts:" comments. Point blocks follow a "; ID X Y" comment and are
// separated by blank lines; they are assigned to the declared ROIs in
// order. Files that repeat the "; ID" comment after each declaration are
// read the same way.
//
// Point records that cannot be used are skipped and reported as
// diagnostics. Problems with the file structure are errors.
func Read(r io.Reader) (*Collection, []Diagnostic, error) {
	sc := bufio.NewScanner(r)
	col := NewCollection()
	var diags []Diagnostic
	warn := func(line int, format string, args ...interface{}) {
		diags = append(diags, Diagnostic{Line: line, Reason: fmt.Sprintf(format, args...)})
	}

	var (
		rois      []*ROI
		npts      = map[*ROI]int{}
		lineNo    int
		started   bool
		cur       = -1
		next      int
		inBlock   bool
		sinceHead int
	)
	for sc.Scan() {
		lineNo++
		text := strings.TrimRight(sc.Text(), "\r")
		trimmed := strings.TrimSpace(text)

		if !started {
			if trimmed == "" {
				continue
			}
			if !strings.HasPrefix(strings.TrimPrefix(trimmed, "\ufeff"), Magic) {
				return nil, nil, &FileError{Line: lineNo, Reason: "missing ENVI ROI identifier"}
			}
			col.Title = strings.TrimPrefix(trimmed, "\ufeff")
			started = true
			continue
		}

		switch {
		case trimmed == "":
			if inBlock {
				next = cur + 1
				cur = next
				inBlock = false
			}

		case strings.HasPrefix(trimmed, ";"):
			body := strings.TrimSpace(trimmed[1:])
			switch {
			case body == "" || strings.HasPrefix(body, "Number of ROIs:"):
			case isPointHeader(body):
				if sinceHead == 1 {
					cur = len(rois) - 1
				} else {
					cur = next
				}
				next = cur
				sinceHead = 0
				inBlock = false
			case strings.HasPrefix(body, "ROI "):
				key, val, ok := strings.Cut(body[4:], ":")
				if !ok {
					col.Comments = append(col.Comments, trimmed)
					break
				}
				key, val = strings.TrimSpace(key), strings.TrimSpace(val)
				switch key {
				case "name":
					roi := New(val)
					if err := col.Add(roi); err != nil {
						return nil, nil, &FileError{Line: lineNo, Reason: err.Error()}
					}
					rois = append(rois, roi)
					sinceHead++
				case "rgb value", "npts":
					if len(rois) == 0 {
						return nil, nil, &FileError{Line: lineNo, Reason: fmt.Sprintf("ROI %s before any ROI name", key)}
					}
					last := rois[len(rois)-1]
					if key == "npts" {
						n, err := strconv.Atoi(val)
						if err != nil {
							warn(lineNo, "%s: bad point count %q", last.name, val)
							break
						}
						npts[last] = n
						break
					}
					c, err := parseColor(val)
					if err != nil {
						warn(lineNo, "%s: %v", last.name, err)
						break
					}
					last.Color = c
				default:
					col.Comments = append(col.Comments, trimmed)
				}
			default:
				col.Comments = append(col.Comments, trimmed)
			}

		default:
			if cur < 0 || cur >= len(rois) {
				return nil, nil, &FileError{Line: lineNo, Reason: "point record outside any ROI block"}
			}
			inBlock = true
			fields := strings.Fields(trimmed)
			if len(fields) < 3 {
				warn(lineNo, "expected ID X Y, got %q", trimmed)
				continue
			}
			var v [3]int
			bad := false
			for i := range v {
				n, err := strconv.Atoi(fields[i])
				if err != nil {
					bad = true
					break
				}
				v[i] = n
			}
			if bad {
				warn(lineNo, "non-integer point record %q", trimmed)
				continue
			}
			if v[1] < 1 || v[2] < 1 {
				warn(lineNo, "point %d at X=%d Y=%d is before the first pixel", v[0], v[1], v[2])
				continue
			}
			roi := rois[cur]
			if !roi.AddPoint(Point{ID: v[0], Line: v[2] - 1, Sample: v[1] - 1}) {
				warn(lineNo, "%s: duplicate pixel X=%d Y=%d", roi.name, v[1], v[2])
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, nil, fmt.Errorf("roi: reading: %w", err)
	}
	if !started {
		return nil, nil, &FileError{Line: lineNo, Reason: "empty file"}
	}
	for _, roi := range rois {
		if n, ok := npts[roi]; ok && n != roi.Len() {
			warn(0, "%s: declared %d points, read %d", roi.name, n, roi.Len())
		}
	}
	return col, diags, nil
}

// Write stores c as an ENVI text ROI file. Each ROI declaration is
// followed by its own point block.
func Write(w io.Writer, c *Collection) error {
	bw := bufio.NewWriter(w)
	title := c.Title
	if !strings.HasPrefix(title, Magic) {
		title = Magic
	}
	fmt.Fprintln(bw, title)
	fmt.Fprintf(bw, "; Number of ROIs: %d\n", len(c.rois))
	for _, comment := range c.Comments {
		fmt.Fprintln(bw, comment)
	}
	for i, r := range c.rois {
		if i > 0 {
			fmt.Fprintln(bw)
		}
		fmt.Fprintln(bw, ";")
		fmt.Fprintf(bw, "; ROI name: %s\n", r.name)
		fmt.Fprintf(bw, "; ROI rgb value: {%d, %d, %d}\n", r.Color.R, r.Color.G, r.Color.B)
		fmt.Fprintf(bw, "; ROI npts: %d\n", len(r.points))
		fmt.Fprintln(bw, ";    ID     X     Y")
		for _, p := range r.points {
			fmt.Fprintf(bw, "%6d %6d %6d\n", p.ID, p.Sample+1, p.Line+1)
		}
	}
	return bw.Flush()
}

// Load reads the ROI file at url.
func Load(url string) (*Collection, []Diagnostic, error) {
	r, err := vfs.OpenRead(url)
	if err != nil {
		return nil, nil, err
	}
	defer r.Close()
	c, diags, err := Read(r)
	if fe, ok := err.(*FileError); ok {
		fe.URL = url
	}
	return c, diags, err
}

// Save writes c to url.
func Save(url string, c *Collection) error {
	w, err := vfs.OpenWrite(url)
	if err != nil {
		return err
	}
	if err := Write(w, c); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
