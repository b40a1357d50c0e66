package vfs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

// httpBackend serves read-only remote files. Reads and maps go through a
// staged local copy so that no accessor ever blocks on the network.
type httpBackend struct{}

func (httpBackend) client(o Options) *http.Client {
	return &http.Client{Timeout: o.Timeout}
}

func (h httpBackend) do(method, loc string) (*http.Response, error) {
	o := currentOptions()
	ctx, cancel := context.WithTimeout(context.Background(), o.Timeout)
	req, err := http.NewRequestWithContext(ctx, method, loc, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("vfs: building request for %s: %w", loc, err)
	}
	resp, err := h.client(o).Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("vfs: %s %s: %w", method, loc, err)
	}
	resp.Body = cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", ErrNotExist, loc)
	case resp.StatusCode >= 300:
		resp.Body.Close()
		return nil, fmt.Errorf("vfs: %s %s: %s", method, loc, resp.Status)
	}
	return resp, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c cancelOnClose) Close() error {
	defer c.cancel()
	return c.ReadCloser.Close()
}

// stage downloads loc into a temporary file and returns its path.
func (h httpBackend) stage(loc string) (string, error) {
	o := currentOptions()
	resp, err := h.do(http.MethodGet, loc)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	f, err := os.CreateTemp(o.StagingDir, "hsicube-*")
	if err != nil {
		return "", fmt.Errorf("vfs: creating staging file: %w", err)
	}
	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("vfs: staging %s: %w", loc, err)
	}
	o.logf("staged %s (%d bytes) to %s", loc, n, f.Name())
	return f.Name(), nil
}

type stagedReader struct {
	*os.File
}

func (r stagedReader) Close() error {
	err := r.File.Close()
	os.Remove(r.File.Name())
	return err
}

func (h httpBackend) openRead(loc string) (Reader, error) {
	staged, err := h.stage(loc)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(staged)
	if err != nil {
		os.Remove(staged)
		return nil, fmt.Errorf("vfs: opening staged copy of %s: %w", loc, err)
	}
	return stagedReader{f}, nil
}

func (httpBackend) openWrite(loc string) (io.WriteCloser, error) {
	return nil, fmt.Errorf("%w: %s", ErrReadOnlyScheme, loc)
}

func (h httpBackend) stat(loc string) (int64, bool, error) {
	resp, err := h.do(http.MethodHead, loc)
	if err != nil {
		return 0, false, err
	}
	resp.Body.Close()
	return resp.ContentLength, strings.HasSuffix(loc, "/"), nil
}

func (h httpBackend) mapRead(loc string) (*Mapping, error) {
	staged, err := h.stage(loc)
	if err != nil {
		return nil, err
	}
	m, err := mapFile(staged)
	if err != nil {
		os.Remove(staged)
		return nil, err
	}
	unmap := m.release
	m.release = func() error {
		var err error
		if unmap != nil {
			err = unmap()
		}
		os.Remove(staged)
		return err
	}
	return m, nil
}
