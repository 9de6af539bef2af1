package analyze

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"
)

// Fetcher retrieves the raw HTML of a URL. Implementations must bound both
// the request duration and the number of bytes read.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

type HTTPFetcherConfig struct {
	Timeout   time.Duration
	MaxBytes  int64
	UserAgent string
}

type httpFetcher struct {
	client    *http.Client
	maxBytes  int64
	userAgent string
}

const (
	defaultFetchTimeout  = 8 * time.Second
	defaultFetchMaxBytes = 2 * 1000 * 1000
	defaultUserAgent     = "linknote/1.0"
)

func NewHTTPFetcher(cfg HTTPFetcherConfig) Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultFetchTimeout
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = defaultFetchMaxBytes
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	return &httpFetcher{
		client:    &http.Client{Timeout: cfg.Timeout},
		maxBytes:  cfg.MaxBytes,
		userAgent: cfg.UserAgent,
	}
}

func (f *httpFetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("fetch %s: unexpected status %s", url, resp.Status)
	}
	if err := checkContentType(resp.Header.Get("Content-Type")); err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read body of %s: %w", url, err)
	}
	if int64(len(body)) > f.maxBytes {
		return "", fmt.Errorf("fetch %s: body exceeds %d bytes", url, f.maxBytes)
	}
	return string(body), nil
}

func checkContentType(header string) error {
	if header == "" {
		// Some sites omit the header for HTML pages; let extraction decide.
		return nil
	}
	mediaType, _, err := mime.ParseMediaType(header)
	if err != nil {
		return fmt.Errorf("bad content type %q", header)
	}
	switch {
	case mediaType == "text/html", mediaType == "application/xhtml+xml":
		return nil
	case strings.HasPrefix(mediaType, "text/"):
		return nil
	default:
		return fmt.Errorf("unsupported content type %q", mediaType)
	}
}
