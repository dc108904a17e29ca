package cards

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// MaxBackgroundBytes caps the size of a fetched background image.
const MaxBackgroundBytes = 15 << 20

// BackgroundLoader fetches and decodes a card background by reference (URL or data URI).
type BackgroundLoader interface {
	Load(ctx context.Context, ref string) (image.Image, error)
}

// HTTPBackgroundLoader loads backgrounds over HTTP(S) or from inline data URIs.
type HTTPBackgroundLoader struct {
	client *http.Client
}

// NewHTTPBackgroundLoader returns a loader with the given request timeout.
func NewHTTPBackgroundLoader(timeout time.Duration) *HTTPBackgroundLoader {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPBackgroundLoader{client: &http.Client{Timeout: timeout}}
}

// Load implements BackgroundLoader.
func (l *HTTPBackgroundLoader) Load(ctx context.Context, ref string) (image.Image, error) {
	if strings.HasPrefix(ref, "data:") {
		raw, err := decodeDataURI(ref)
		if err != nil {
			return nil, err
		}
		return decodeImage(bytes.NewReader(raw))
	}
	if !strings.HasPrefix(ref, "http://") && !strings.HasPrefix(ref, "https://") {
		return nil, fmt.Errorf("background: unsupported reference %q", ref)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("background: fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("background: fetch returned %d", resp.StatusCode)
	}
	return decodeImage(io.LimitReader(resp.Body, MaxBackgroundBytes))
}

func decodeImage(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("background: decode: %w", err)
	}
	return img, nil
}

// DataURIPrefix starts every inline PNG produced by the publisher.
const DataURIPrefix = "data:image/png;base64,"

// IsDataURI reports whether src is an inline data URI rather than a fetchable URL.
func IsDataURI(src string) bool {
	return strings.HasPrefix(src, "data:")
}

func decodeDataURI(uri string) ([]byte, error) {
	comma := strings.IndexByte(uri, ',')
	if comma < 0 {
		return nil, errors.New("background: malformed data uri")
	}
	meta, payload := uri[len("data:"):comma], uri[comma+1:]
	if !strings.HasSuffix(meta, ";base64") {
		return nil, errors.New("background: data uri is not base64")
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("background: data uri: %w", err)
	}
	return raw, nil
}
