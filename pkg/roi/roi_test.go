package roi

import (
	"bytes"
	"errors"
	"image/color"
	"reflect"
	"strings"
	"testing"

	"github.com/gocarina/gocsv"

	"hsicube/internal/models"
	"hsicube/pkg/cube"
	"hsicube/pkg/numeric"
	"hsicube/pkg/vfs"
)

// bsqCube holds the values 0..59 as int16 in BSQ order over 4 lines, 5
// samples and 3 bands.
func bsqCube(t *testing.T) *cube.Cube {
	t.Helper()
	attrs := &cube.Attributes{
		Samples: 5, Lines: 4, Bands: 3, Interleave: cube.BSQ, DataType: numeric.Int16,
		ByteOrder: cube.HostByteOrder(), Wavelengths: []float64{369.85, 379.69, 389.53},
	}
	data := make([]byte, 120)
	for i := 0; i < 60; i++ {
		numeric.Encode(data[2*i:], numeric.Int16, numeric.HostOrder(), float64(i))
	}
	c, err := cube.NewFromBytes(attrs, data)
	if err != nil {
		t.Fatalf("NewFromBytes failed: %v", err)
	}
	return c
}

func TestAddDeduplicates(t *testing.T) {
	r := New("test")
	for _, p := range [][2]int{{1, 1}, {2, 2}, {3, 3}, {1, 1}} {
		r.Add(p[0], p[1])
	}
	if r.Len() != 3 {
		t.Fatalf("Expected 3 points, got %d", r.Len())
	}
	if ids := []int{r.Points()[0].ID, r.Points()[2].ID}; ids[0] != 1 || ids[1] != 3 {
		t.Errorf("Expected insertion numbered IDs, got %v", ids)
	}
	if !r.Remove(2, 2) || r.Contains(2, 2) || !r.Contains(3, 3) {
		t.Errorf("Remove did not update membership")
	}
	if r.Remove(2, 2) {
		t.Errorf("Expected second Remove to report false")
	}
}

func TestIDsNotReused(t *testing.T) {
	r := New("test")
	r.Add(0, 0)
	r.Add(0, 1)
	r.Add(0, 2)
	r.Remove(0, 1)
	r.Add(5, 5)
	ids := map[int]bool{}
	for _, p := range r.Points() {
		if ids[p.ID] {
			t.Fatalf("Expected unique IDs, got %v", r.Points())
		}
		ids[p.ID] = true
	}
	if got := r.Points()[2].ID; got != 4 {
		t.Errorf("Expected ID 4 after a removal, got %d", got)
	}

	r.AddPoint(Point{ID: 10, Line: 7, Sample: 7})
	r.Add(8, 8)
	if got := r.Points()[4].ID; got != 11 {
		t.Errorf("Expected ID 11 after an explicit ID 10, got %d", got)
	}
}

func TestExtractSpectra(t *testing.T) {
	c := bsqCube(t)
	r := New("test")
	for _, p := range [][2]int{{1, 1}, {2, 2}, {3, 3}} {
		r.Add(p[0], p[1])
	}
	m, err := ExtractSpectra(r, c)
	if err != nil {
		t.Fatalf("ExtractSpectra failed: %v", err)
	}
	rows, cols := m.Dims()
	if rows != 3 || cols != 3 {
		t.Fatalf("Expected 3x3, got %dx%d", rows, cols)
	}
	for b, want := range []float64{6, 26, 46} {
		if got := m.At(0, b); got != want {
			t.Errorf("Band %d: expected %v, got %v", b, want, got)
		}
	}

	mean, err := MeanSpectrum(r, c)
	if err != nil {
		t.Fatalf("MeanSpectrum failed: %v", err)
	}
	// Pixels (1,1), (2,2), (3,3) hold 6, 12 and 18 in band 0.
	if !reflect.DeepEqual(mean, []float64{12, 32, 52}) {
		t.Errorf("Expected mean [12 32 52], got %v", mean)
	}

	r.Add(4, 0)
	_, err = ExtractSpectra(r, c)
	var ce *CoordinateError
	if !errors.As(err, &ce) || !errors.Is(err, ErrCoordinateOutOfRange) || ce.Point.Line != 4 {
		t.Errorf("Expected CoordinateError for line 4, got %v", err)
	}

	if _, err := ExtractSpectra(New("empty"), c); !errors.Is(err, ErrEmptyROI) {
		t.Errorf("Expected ErrEmptyROI, got %v", err)
	}
}

func TestCollection(t *testing.T) {
	col := NewCollection()
	a, b := New("grass"), New("soil")
	b.Color = color.RGBA{1, 2, 3, 255}
	if err := col.Add(a); err != nil {
		t.Fatal(err)
	}
	if err := col.Add(b); err != nil {
		t.Fatal(err)
	}
	if err := col.Add(New("grass")); !errors.Is(err, ErrDuplicateROI) {
		t.Errorf("Expected ErrDuplicateROI, got %v", err)
	}
	if a.Color != palette[0] || b.Color != (color.RGBA{1, 2, 3, 255}) {
		t.Errorf("Unexpected colours %v %v", a.Color, b.Color)
	}
	if got, ok := col.Get("soil"); !ok || got != b {
		t.Errorf("Get(soil) failed")
	}
	if !col.Remove("grass") || col.Len() != 1 || col.ROIs()[0] != b {
		t.Errorf("Remove(grass) left %d ROIs", col.Len())
	}
	if err := col.Add(New("grass")); err != nil {
		t.Errorf("Expected name to be free after removal, got %v", err)
	}
}

func TestNearest(t *testing.T) {
	r := New("pts")
	for _, p := range [][2]int{{0, 0}, {10, 10}, {5, 20}, {7, 7}} {
		r.Add(p[0], p[1])
	}
	p, d, ok := r.Nearest(8, 8)
	if !ok || p.Line != 7 || p.Sample != 7 {
		t.Errorf("Expected (7, 7), got %+v", p)
	}
	if d < 1.41 || d > 1.42 {
		t.Errorf("Expected distance sqrt(2), got %v", d)
	}
	if _, ok := r.Hit(8, 8, 1); ok {
		t.Errorf("Expected no hit within radius 1")
	}
	if hit, ok := r.Hit(5, 19, 1); !ok || hit.Sample != 20 {
		t.Errorf("Expected hit on (5, 20), got %+v %v", hit, ok)
	}

	near := r.NearestN(9, 9, 2)
	if len(near) != 2 || near[0].Line != 10 || near[1].Line != 7 {
		t.Errorf("Unexpected NearestN result %+v", near)
	}

	r.Add(8, 8)
	if p, d, _ := r.Nearest(8, 8); p.Line != 8 || d != 0 {
		t.Errorf("Expected index to be rebuilt after Add, got %+v at %v", p, d)
	}
	if _, _, ok := New("none").Nearest(0, 0); ok {
		t.Errorf("Expected no result for an empty ROI")
	}
}

const enviLayout = `; ENVI Output of ROIs (4.2) [Thu Jan 01 00:00:00 2009]
; Number of ROIs: 2
; File Dimension: 5 x 4
;
; ROI name: Region #1
; ROI rgb value: {255, 0, 0}
; ROI npts: 3
; ROI name: Region #2
; ROI rgb value: {0, 255, 0}
; ROI npts: 2
;    ID     X     Y
     1     2     2
     2     3     3
     3     bad   4

     1     1     1
     2     5     4
`

func TestReadENVILayout(t *testing.T) {
	col, diags, err := Read(strings.NewReader(enviLayout))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if col.Len() != 2 {
		t.Fatalf("Expected 2 ROIs, got %d", col.Len())
	}
	r1, _ := col.Get("Region #1")
	r2, _ := col.Get("Region #2")
	if r1.Color != (color.RGBA{255, 0, 0, 255}) || r2.Color != (color.RGBA{0, 255, 0, 255}) {
		t.Errorf("Unexpected colours %v %v", r1.Color, r2.Color)
	}
	want1 := []Point{{1, 1, 1}, {2, 2, 2}}
	if !reflect.DeepEqual(r1.Points(), want1) {
		t.Errorf("Expected %v, got %v", want1, r1.Points())
	}
	want2 := []Point{{1, 0, 0}, {2, 3, 4}}
	if !reflect.DeepEqual(r2.Points(), want2) {
		t.Errorf("Expected %v, got %v", want2, r2.Points())
	}
	// The bad record and the resulting point count mismatch.
	if len(diags) != 2 || diags[0].Line != 14 {
		t.Errorf("Unexpected diagnostics %v", diags)
	}
	if !reflect.DeepEqual(col.Comments, []string{"; File Dimension: 5 x 4"}) {
		t.Errorf("Unexpected comments %q", col.Comments)
	}
}

func TestTextRoundTrip(t *testing.T) {
	col, _, err := Read(strings.NewReader(enviLayout))
	if err != nil {
		t.Fatal(err)
	}
	col.Add(New("empty"))

	var buf bytes.Buffer
	if err := Write(&buf, col); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	back, diags, err := Read(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Read of written file failed: %v\n%s", err, buf.String())
	}
	if len(diags) != 0 {
		t.Errorf("Expected a clean read, got %v", diags)
	}
	if back.Len() != col.Len() {
		t.Fatalf("Expected %d ROIs, got %d", col.Len(), back.Len())
	}
	for i, r := range col.ROIs() {
		got := back.ROIs()[i]
		if got.Name() != r.Name() || got.Color != r.Color || !reflect.DeepEqual(got.Points(), r.Points()) {
			t.Errorf("ROI %d changed: %s %v %v", i, got.Name(), got.Color, got.Points())
		}
	}
	if back.Title != col.Title || !reflect.DeepEqual(back.Comments, col.Comments) {
		t.Errorf("Header changed: %q %q", back.Title, back.Comments)
	}

	var again bytes.Buffer
	Write(&again, back)
	if again.String() != buf.String() {
		t.Errorf("Write is not stable:\n%s\n---\n%s", buf.String(), again.String())
	}
}

func TestTextRoundTripWideCoordinates(t *testing.T) {
	col := NewCollection()
	r := New("wide")
	r.AddPoint(Point{ID: 123456, Line: 3, Sample: 123455})
	r.AddPoint(Point{ID: 7, Line: 999999, Sample: 0})
	col.Add(r)

	var buf bytes.Buffer
	if err := Write(&buf, col); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if !strings.Contains(buf.String(), "123456 123456      4\n") {
		t.Errorf("Expected separated columns, got:\n%s", buf.String())
	}
	back, diags, err := Read(bytes.NewReader(buf.Bytes()))
	if err != nil || len(diags) != 0 {
		t.Fatalf("Read failed: %v %v\n%s", err, diags, buf.String())
	}
	got, _ := back.Get("wide")
	if !reflect.DeepEqual(got.Points(), r.Points()) {
		t.Errorf("Expected %v, got %v", r.Points(), got.Points())
	}
}

func TestReadStructureErrors(t *testing.T) {
	tests := []string{
		"; Some other file\n",
		"",
		"; ENVI Output of ROIs\n; ROI npts: 3\n",
		"; ENVI Output of ROIs\n     1     1     1\n",
		"; ENVI Output of ROIs\n; ROI name: a\n; ROI name: a\n",
	}
	for _, text := range tests {
		_, _, err := Read(strings.NewReader(text))
		if !errors.Is(err, ErrMalformedFile) {
			t.Errorf("Expected ErrMalformedFile for %q, got %v", text, err)
		}
	}
}

func TestLoadSaveAndIdentify(t *testing.T) {
	url := "mem://roi-test/regions.txt"
	col := NewCollection()
	r := New("field")
	r.Add(0, 4)
	r.Add(3, 0)
	col.Add(r)
	if err := Save(url, col); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	defer vfs.Remove(url)
	if !Identify(url) {
		t.Errorf("Expected saved file to be identified")
	}
	back, _, err := Load(url)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	got, _ := back.Get("field")
	if !reflect.DeepEqual(got.Points(), r.Points()) {
		t.Errorf("Expected %v, got %v", r.Points(), got.Points())
	}

	vfs.WriteFile("mem://roi-test/bad.txt", []byte("hello\n"))
	defer vfs.Remove("mem://roi-test/bad.txt")
	_, _, err = Load("mem://roi-test/bad.txt")
	var fe *FileError
	if !errors.As(err, &fe) || fe.URL != "mem://roi-test/bad.txt" {
		t.Errorf("Expected FileError carrying the URL, got %v", err)
	}
}

func TestExportSpectraCSV(t *testing.T) {
	c := bsqCube(t)
	col := NewCollection()
	pts := New("pts")
	pts.Add(1, 1)
	avg := New("fieldavg")
	avg.Add(1, 1)
	avg.Add(3, 3)
	col.Add(pts)
	col.Add(avg)
	col.Add(New("empty"))

	var buf bytes.Buffer
	if err := ExportSpectraCSV(&buf, col, c); err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	var records []*models.SpectrumRecord
	if err := gocsv.UnmarshalBytes(buf.Bytes(), &records); err != nil {
		t.Fatalf("Failed to read CSV back: %v", err)
	}
	if len(records) != 6 {
		t.Fatalf("Expected 6 records, got %d", len(records))
	}
	if r := records[1]; r.ROI != "pts" || r.Band != 1 || r.Value != 26 || r.Wavelength != "379.69" {
		t.Errorf("Unexpected point record %+v", r)
	}
	if r := records[3]; r.ROI != "fieldavg" || r.Line != -1 || r.Value != 12 {
		t.Errorf("Unexpected averaged record %+v", r)
	}
}
