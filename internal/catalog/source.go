package catalog

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

//go:embed data/items.json
var sampleItems []byte

// SampleJSON returns the built-in sample catalog.
func SampleJSON() []byte { return sampleItems }

// Source reads the raw catalog resource.
type Source interface {
	Fetch(ctx context.Context) ([]Item, error)
}

// HTTPSource fetches the catalog with a GET request.
type HTTPSource struct {
	URL    string
	client *http.Client
}

// NewHTTPSource creates an HTTPSource for url.
func NewHTTPSource(url string) *HTTPSource {
	return &HTTPSource{
		URL: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (s *HTTPSource) Fetch(ctx context.Context) ([]Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching catalog: status %d", resp.StatusCode)
	}
	return decodeItems(resp.Body)
}

// FSSource reads the catalog from a file in an fs.FS.
type FSSource struct {
	FS   fs.FS
	Path string
}

// NewFileSource returns a Source reading path from the local filesystem.
// An empty path selects the built-in sample catalog.
func NewFileSource(path string) Source {
	if path == "" {
		return sampleSource{}
	}
	return &FSSource{FS: os.DirFS(filepath.Dir(path)), Path: filepath.Base(path)}
}

func (s *FSSource) Fetch(ctx context.Context) ([]Item, error) {
	f, err := s.FS.Open(strings.TrimPrefix(s.Path, "/"))
	if err != nil {
		return nil, fmt.Errorf("opening catalog %s: %w", s.Path, err)
	}
	defer f.Close()
	return decodeItems(f)
}

type sampleSource struct{}

func (sampleSource) Fetch(ctx context.Context) ([]Item, error) {
	return decodeItems(strings.NewReader(string(sampleItems)))
}

// NewSource picks a Source for location: http(s) URLs are fetched over the
// network, anything else is read as a local file.
func NewSource(location string) Source {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return NewHTTPSource(location)
	}
	return NewFileSource(location)
}

func decodeItems(r io.Reader) ([]Item, error) {
	var items []Item
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}
	return items, nil
}
