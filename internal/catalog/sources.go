package catalog

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"gopkg.in/yaml.v3"

	"github.com/desertthunder/xtrobe/internal/shared"
)

//go:embed data/modules.json
var defaultCatalog []byte

// Format is a catalog file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath infers the format from a file extension, defaulting to JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Default returns the bundled curriculum.
func Default() *Catalog {
	c, err := Parse(defaultCatalog, FormatJSON)
	if err != nil {
		panic(fmt.Sprintf("failed to parse embedded catalog: %v", err))
	}
	return c
}

// Parse decodes and validates a catalog document.
func Parse(data []byte, format Format) (*Catalog, error) {
	var file File

	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("%w: failed to parse YAML: %v", shared.ErrInvalidCatalog, err)
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&file); err != nil {
			return nil, fmt.Errorf("%w: failed to parse JSON: %v", shared.ErrInvalidCatalog, err)
		}
	default:
		return nil, fmt.Errorf("%w: unknown catalog format %q", shared.ErrInvalidArgument, format)
	}

	return New(file.Version, file.Modules)
}

// Load reads a catalog file, choosing the decoder from its extension.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return Parse(data, FormatFromPath(path))
}

// FetchOptions configures [Fetch].
type FetchOptions struct {
	Client  *resty.Client // Defaults to a client with Timeout and two retries
	Timeout time.Duration // Per-request timeout (default: 10s)
}

// Fetch downloads a catalog over HTTP.
//
// The format follows the Content-Type header, falling back to the URL's extension.
func Fetch(ctx context.Context, url string, opts FetchOptions) (*Catalog, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	client := opts.Client
	if client == nil {
		client = resty.New().
			SetTimeout(opts.Timeout).
			SetRetryCount(2).
			SetRetryWaitTime(200 * time.Millisecond)
	}

	resp, err := client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json, application/yaml").
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch catalog: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("failed to fetch catalog: status %d", resp.StatusCode())
	}

	format := FormatFromPath(url)
	contentType := resp.Header().Get("Content-Type")
	switch {
	case strings.Contains(contentType, "yaml"):
		format = FormatYAML
	case strings.Contains(contentType, "json"):
		format = FormatJSON
	}

	return Parse(resp.Body(), format)
}
