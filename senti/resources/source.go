package resources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// ErrMissingResource is wrapped by Fetch when a resource does not exist
var ErrMissingResource = errors.New("resource not found")

// maxResourceBytes bounds a single fetched resource
const maxResourceBytes = 1 << 30

// Source serves model resources by slash-separated path
type Source interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
	Location() string
}

// NewSource returns an HTTPSource for http(s) locations and a DirSource otherwise.
// A nil fs means the OS filesystem; a nil client means a client with a 60s timeout.
func NewSource(location string, fsys afero.Fs, client *http.Client) (Source, error) {
	lower := strings.ToLower(location)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return NewHTTPSource(location, client)
	}
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	if location == "" {
		location = "."
	}
	return NewDirSource(fsys, location), nil
}

// DirSource reads resources below a root directory
type DirSource struct {
	fs   afero.Fs
	root string
}

func NewDirSource(fsys afero.Fs, root string) *DirSource {
	return &DirSource{fs: fsys, root: root}
}

func (d *DirSource) Location() string { return d.root }

func (d *DirSource) Fetch(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full := filepath.Join(d.root, filepath.FromSlash(p))
	data, err := afero.ReadFile(d.fs, full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingResource, full)
		}
		return nil, fmt.Errorf("read %s: %w", full, err)
	}
	return data, nil
}

// HTTPSource fetches resources relative to a base URL
type HTTPSource struct {
	base   *url.URL
	client *http.Client
}

func NewHTTPSource(base string, client *http.Client) (*HTTPSource, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse source url %q: %w", base, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported source url scheme %q", u.Scheme)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &HTTPSource{base: u, client: client}, nil
}

func (h *HTTPSource) Location() string { return h.base.String() }

func (h *HTTPSource) Fetch(ctx context.Context, p string) ([]byte, error) {
	ref, err := url.Parse(strings.TrimPrefix(path.Clean("/"+p), "/"))
	if err != nil {
		return nil, fmt.Errorf("resource path %q: %w", p, err)
	}
	target := h.base.ResolveReference(ref).String()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", target, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrMissingResource, target)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("get %s: unexpected status %s", target, resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResourceBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", target, err)
	}
	if len(data) > maxResourceBytes {
		return nil, fmt.Errorf("%s exceeds %d bytes", target, maxResourceBytes)
	}
	return data, nil
}
