package envi

import (
	"io"
	"path"
	"strings"

	"hsicube/pkg/cube"
	"hsicube/pkg/vfs"
)

var headerExtensions = []string{".hdr", ".HDR"}

var fallbackExtensions = []string{".dat", ".sli", ".bin"}

// IsHeader reports whether url starts with the ENVI magic.
func IsHeader(url string) bool {
	r, err := vfs.OpenRead(url)
	if err != nil {
		return false
	}
	defer r.Close()
	magic := make([]byte, 4)
	if _, err := io.ReadFull(r, magic); err != nil {
		return false
	}
	return string(magic) == "ENVI"
}

// stripExt removes the final extension of url.
func stripExt(url string) string {
	return strings.TrimSuffix(url, path.Ext(url))
}

// hasHeaderExt reports whether url ends in a header extension.
func hasHeaderExt(url string) bool {
	ext := path.Ext(url)
	for _, h := range headerExtensions {
		if ext == h {
			return true
		}
	}
	return false
}

// HeaderCandidates lists the header names tried for a data file, in order.
func HeaderCandidates(data string) []string {
	var out []string
	for _, ext := range headerExtensions {
		out = append(out, data+ext)
	}
	stem := stripExt(data)
	if stem != data {
		for _, ext := range headerExtensions {
			out = append(out, stem+ext)
		}
		out = append(out, stem)
	}
	return out
}

// FindHeader returns the header describing the data file at url. When url
// is itself a header it is returned unchanged.
func FindHeader(url string) (string, error) {
	if IsHeader(url) {
		return url, nil
	}
	for _, h := range HeaderCandidates(url) {
		if IsHeader(h) {
			return h, nil
		}
	}
	return "", ErrNotENVI
}

// DataCandidates lists the data file names tried for a header, in order.
func DataCandidates(header string, il cube.Interleave) []string {
	base := header
	var out []string
	if hasHeaderExt(header) {
		base = stripExt(header)
		out = append(out, base)
	}
	exts := []string{".img", ".IMG"}
	if il != "" {
		ext := "." + string(il)
		exts = append(exts, ext, strings.ToUpper(ext), "."+strings.ToUpper(string(il[:1]))+string(il[1:]))
	}
	for _, ext := range fallbackExtensions {
		exts = append(exts, ext, strings.ToUpper(ext))
	}
	for _, ext := range exts {
		out = append(out, base+ext)
	}
	return out
}

// LocateData finds the data file paired with a header.
func LocateData(header string, il cube.Interleave) (string, error) {
	candidates := DataCandidates(header, il)
	for _, c := range candidates {
		if c != header && vfs.IsFile(c) {
			return c, nil
		}
	}
	return "", &MissingDataError{Header: header, Candidates: candidates}
}

// FindPair resolves url, which may name either the header or the data
// file, into both.
func FindPair(url string) (header, data string, err error) {
	header, err = FindHeader(url)
	if err != nil {
		return "", "", err
	}
	if header != url {
		return header, url, nil
	}
	attrs, err := ReadHeader(header)
	if err != nil {
		return "", "", err
	}
	data, err = LocateData(header, attrs.Interleave)
	if err != nil {
		return "", "", err
	}
	return header, data, nil
}

// HeaderURL returns the header name written next to a data file: the data
// name with its extension replaced by ".hdr".
func HeaderURL(data string) string {
	if stem := stripExt(data); stem != data {
		return stem + ".hdr"
	}
	return data + ".hdr"
}
