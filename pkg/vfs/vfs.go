// Package vfs gives the cube engine a uniform way to reach files no matter
// where they live. A URL without a scheme (or with file://) is a local path,
// mem:// addresses an in-process store and http(s):// is read-only remote
// storage that is staged to a local temporary file before being mapped.
package vfs

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

var (
	ErrUnsupportedScheme = errors.New("vfs: unsupported URL scheme")
	ErrNotExist          = errors.New("vfs: file does not exist")
	ErrReadOnlyScheme    = errors.New("vfs: scheme does not support writing")
)

// Reader is a random-access byte stream over one file.
type Reader interface {
	io.Reader
	io.ReaderAt
	io.Closer
}

// Mapping is a read-only view of a whole file. Data must not be used after
// Close.
type Mapping struct {
	Data    []byte
	release func() error
}

// Close releases the mapping. It is safe to call more than once.
func (m *Mapping) Close() error {
	if m == nil || m.release == nil {
		return nil
	}
	release := m.release
	m.release = nil
	m.Data = nil
	return release()
}

// Options tunes the remote backend.
type Options struct {
	// Timeout bounds a single remote request. Zero keeps the default.
	Timeout time.Duration
	// StagingDir receives local copies of remote files. Empty means the
	// system temporary directory.
	StagingDir string
	// Logger receives staging notices. Nil is silent.
	Logger *log.Logger
}

var (
	optMu   sync.RWMutex
	options = Options{Timeout: 60 * time.Second}
)

// Configure replaces the remote backend options.
func Configure(opts Options) {
	optMu.Lock()
	defer optMu.Unlock()
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	options = opts
}

func currentOptions() Options {
	optMu.RLock()
	defer optMu.RUnlock()
	return options
}

func (o Options) logf(format string, args ...interface{}) {
	if o.Logger != nil {
		o.Logger.Printf(format, args...)
	}
}

type backend interface {
	openRead(loc string) (Reader, error)
	openWrite(loc string) (io.WriteCloser, error)
	stat(loc string) (size int64, dir bool, err error)
	mapRead(loc string) (*Mapping, error)
}

// split separates a URL into its backend and backend-local location.
func split(rawURL string) (backend, string, error) {
	scheme, rest := schemeOf(rawURL)
	switch scheme {
	case "", "file":
		return fileBackend{}, filepath.FromSlash(rest), nil
	case "mem":
		return memStore, cleanMemPath(rest), nil
	case "http", "https":
		return httpBackend{}, rawURL, nil
	}
	return nil, "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, scheme)
}

// schemeOf returns the lower-cased scheme of u and the remainder after
// "scheme://". Single-letter schemes are treated as Windows drive letters.
func schemeOf(u string) (string, string) {
	i := strings.Index(u, "://")
	if i <= 1 {
		return "", u
	}
	scheme := strings.ToLower(u[:i])
	for _, r := range scheme {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '+' || r == '-' || r == '.') {
			return "", u
		}
	}
	return scheme, u[i+3:]
}

func cleanMemPath(p string) string {
	return strings.TrimPrefix(path.Clean("/"+p), "/")
}

// OpenRead opens rawURL for reading.
func OpenRead(rawURL string) (Reader, error) {
	b, loc, err := split(rawURL)
	if err != nil {
		return nil, err
	}
	return b.openRead(loc)
}

// OpenWrite creates or truncates rawURL. Remote URLs are read-only.
func OpenWrite(rawURL string) (io.WriteCloser, error) {
	b, loc, err := split(rawURL)
	if err != nil {
		return nil, err
	}
	return b.openWrite(loc)
}

// ReadAll returns the full contents of rawURL.
func ReadAll(rawURL string) ([]byte, error) {
	r, err := OpenRead(rawURL)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// WriteFile stores data at rawURL.
func WriteFile(rawURL string, data []byte) error {
	w, err := OpenWrite(rawURL)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("vfs: writing %s: %w", rawURL, err)
	}
	return w.Close()
}

// Exists reports whether rawURL names an existing file or folder.
func Exists(rawURL string) bool {
	b, loc, err := split(rawURL)
	if err != nil {
		return false
	}
	_, _, err = b.stat(loc)
	return err == nil
}

// IsFile reports whether rawURL names an existing regular file.
func IsFile(rawURL string) bool {
	b, loc, err := split(rawURL)
	if err != nil {
		return false
	}
	_, dir, err := b.stat(loc)
	return err == nil && !dir
}

// IsFolder reports whether rawURL names an existing folder.
func IsFolder(rawURL string) bool {
	b, loc, err := split(rawURL)
	if err != nil {
		return false
	}
	_, dir, err := b.stat(loc)
	return err == nil && dir
}

// GetSize returns the size of rawURL in bytes.
func GetSize(rawURL string) (int64, error) {
	b, loc, err := split(rawURL)
	if err != nil {
		return 0, err
	}
	size, _, err := b.stat(loc)
	return size, err
}

// MapRead maps the whole of rawURL into memory read-only. Remote files are
// downloaded first; the staged copy is removed when the mapping is closed.
func MapRead(rawURL string) (*Mapping, error) {
	b, loc, err := split(rawURL)
	if err != nil {
		return nil, err
	}
	return b.mapRead(loc)
}

// Normalize returns the canonical spelling of rawURL: local paths are
// cleaned and lose any file:// prefix, mem and remote paths are cleaned.
func Normalize(rawURL string) string {
	scheme, rest := schemeOf(rawURL)
	switch scheme {
	case "", "file":
		if rest == "" {
			return rest
		}
		return filepath.Clean(filepath.FromSlash(rest))
	case "mem":
		return "mem://" + cleanMemPath(rest)
	case "http", "https":
		u, err := url.Parse(rawURL)
		if err != nil {
			return rawURL
		}
		u.Scheme = scheme
		if u.Path != "" {
			trailing := strings.HasSuffix(u.Path, "/")
			u.Path = path.Clean(u.Path)
			if trailing && u.Path != "/" {
				u.Path += "/"
			}
		}
		return u.String()
	}
	return rawURL
}

// Resolve interprets rel relative to base. A base ending in a separator is
// a folder, anything else is a file whose folder is used. Absolute paths and
// URLs with a scheme are returned normalised.
func Resolve(base, rel string) string {
	if s, _ := schemeOf(rel); s != "" {
		return Normalize(rel)
	}
	scheme, rest := schemeOf(base)
	switch scheme {
	case "", "file":
		if filepath.IsAbs(rel) {
			return Normalize(rel)
		}
		dir := rest
		if !strings.HasSuffix(rest, "/") && !strings.HasSuffix(rest, string(filepath.Separator)) {
			dir = filepath.Dir(filepath.FromSlash(rest))
		}
		return filepath.Join(dir, filepath.FromSlash(rel))
	case "mem":
		if strings.HasPrefix(rel, "/") {
			return Normalize("mem://" + rel)
		}
		dir := rest
		if !strings.HasSuffix(rest, "/") {
			dir = path.Dir(rest)
		}
		return "mem://" + cleanMemPath(path.Join(dir, rel))
	case "http", "https":
		bu, err := url.Parse(base)
		if err != nil {
			return rel
		}
		ru, err := url.Parse(rel)
		if err != nil {
			return rel
		}
		return bu.ResolveReference(ru).String()
	}
	return rel
}
