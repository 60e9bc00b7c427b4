// Package imagesrc fetches and decodes the images a design refers to:
// data URIs, uploaded assets and remote or relative URLs.
package imagesrc

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	_ "golang.org/x/image/webp"
)

var (
	ErrUnsupportedSource = errors.New("unsupported image source")
	ErrTooLarge          = errors.New("image exceeds size limit")
	ErrFetch             = errors.New("image fetch failed")
)

const (
	DefaultTimeout  = 10 * time.Second
	DefaultMaxBytes = 10 << 20

	assetPrefix = "/assets/"
)

// Blobs reads uploaded assets by name.
type Blobs interface {
	Get(ctx context.Context, name string) (data []byte, contentType string, err error)
}

type Option func(*Resolver)

func WithHTTPClient(c *http.Client) Option {
	return func(r *Resolver) { r.client = c }
}

// WithBlobs serves /assets/ sources from storage instead of over HTTP.
func WithBlobs(b Blobs) Option {
	return func(r *Resolver) { r.blobs = b }
}

func WithMaxBytes(n int64) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.maxBytes = n
		}
	}
}

// WithBaseURL resolves relative sources such as product photos.
func WithBaseURL(base string) Option {
	return func(r *Resolver) { r.baseURL = strings.TrimRight(base, "/") }
}

// Resolver turns an image source reference into bytes or pixels. It is safe
// for concurrent use.
type Resolver struct {
	client   *http.Client
	blobs    Blobs
	maxBytes int64
	baseURL  string
}

func New(opts ...Option) *Resolver {
	r := &Resolver{
		client:   &http.Client{Timeout: DefaultTimeout},
		maxBytes: DefaultMaxBytes,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Fetch returns the raw bytes behind src.
func (r *Resolver) Fetch(ctx context.Context, src string) ([]byte, error) {
	switch {
	case strings.HasPrefix(src, "data:"):
		return r.decodeDataURI(src)
	case strings.HasPrefix(src, assetPrefix) && r.blobs != nil:
		data, _, err := r.blobs.Get(ctx, strings.TrimPrefix(src, assetPrefix))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFetch, err)
		}
		return data, nil
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		return r.fetchURL(ctx, src)
	case strings.HasPrefix(src, "/") && r.baseURL != "":
		return r.fetchURL(ctx, r.baseURL+src)
	}
	return nil, fmt.Errorf("%w: %.64q", ErrUnsupportedSource, src)
}

// Decode fetches src and decodes it as PNG, JPEG, GIF or WebP.
func (r *Resolver) Decode(ctx context.Context, src string) (image.Image, error) {
	data, err := r.Fetch(ctx, src)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// Probe fetches src and reads only its header for the natural size.
func (r *Resolver) Probe(ctx context.Context, src string) (int, int, error) {
	data, err := r.Fetch(ctx, src)
	if err != nil {
		return 0, 0, err
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("decode image header: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

func (r *Resolver) fetchURL(ctx context.Context, raw string) ([]byte, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedSource, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned %d", ErrFetch, u.Redacted(), resp.StatusCode)
	}
	if resp.ContentLength > r.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, resp.ContentLength)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, r.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	if int64(len(data)) > r.maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, r.maxBytes)
	}
	return data, nil
}

// decodeDataURI handles data:[<mediatype>][;base64],<data>.
func (r *Resolver) decodeDataURI(src string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(src, "data:"), ",")
	if !ok {
		return nil, fmt.Errorf("%w: malformed data uri", ErrUnsupportedSource)
	}
	var data []byte
	if strings.HasSuffix(meta, ";base64") {
		decoded, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: data uri: %v", ErrUnsupportedSource, err)
		}
		data = decoded
	} else {
		unescaped, err := url.PathUnescape(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: data uri: %v", ErrUnsupportedSource, err)
		}
		data = []byte(unescaped)
	}
	if int64(len(data)) > r.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, len(data))
	}
	return data, nil
}
