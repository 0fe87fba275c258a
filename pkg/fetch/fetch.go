// Package fetch downloads remote assets such as generated videos and linked images.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/xhad/studio/pkg/imageutil"
)

var (
	ErrUnsupportedURL = errors.New("unsupported url")
	ErrTooLarge       = errors.New("response too large")
)

type FetcherConfig struct {
	Timeout        time.Duration
	RateLimit      float64 // requests per second
	MaxBytes       int64
	AllowedSchemes []string
	IgnorePatterns []string
}

type Fetcher struct {
	config  FetcherConfig
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

func NewWithConfig(config FetcherConfig) *Fetcher {
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 2
	}
	if config.MaxBytes == 0 {
		config.MaxBytes = 200 << 20
	}
	if len(config.AllowedSchemes) == 0 {
		config.AllowedSchemes = []string{"http", "https"}
	}

	return &Fetcher{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		logger:  slog.Default().With("component", "fetch"),
	}
}

func New() *Fetcher {
	return NewWithConfig(FetcherConfig{})
}

// IsRemote reports whether s is a URL this fetcher would download.
func (f *Fetcher) IsRemote(s string) bool {
	return f.shouldFetch(s)
}

func (f *Fetcher) shouldFetch(urlStr string) bool {
	parsedURL, err := url.Parse(urlStr)
	if err != nil || parsedURL.Host == "" {
		return false
	}

	validScheme := false
	for _, scheme := range f.config.AllowedSchemes {
		if strings.EqualFold(parsedURL.Scheme, scheme) {
			validScheme = true
			break
		}
	}
	if !validScheme {
		return false
	}

	for _, pattern := range f.config.IgnorePatterns {
		if strings.Contains(urlStr, pattern) {
			return false
		}
	}

	return true
}

// Open starts a rate-limited GET and returns the body with its declared size,
// or -1 when the server does not send one.
func (f *Fetcher) Open(ctx context.Context, urlStr string) (io.ReadCloser, int64, string, error) {
	if !f.shouldFetch(urlStr) {
		return nil, 0, "", fmt.Errorf("%w: %s", ErrUnsupportedURL, redact(urlStr))
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, 0, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, 0, "", err
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, "", err
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, 0, "", fmt.Errorf("received status code %d for URL: %s", resp.StatusCode, redact(urlStr))
	}
	if resp.ContentLength > f.config.MaxBytes {
		resp.Body.Close()
		return nil, 0, "", fmt.Errorf("%w: %d bytes", ErrTooLarge, resp.ContentLength)
	}

	f.logger.Debug("fetched", "url", redact(urlStr), "status", resp.StatusCode, "elapsed", time.Since(start))
	return resp.Body, resp.ContentLength, resp.Header.Get("Content-Type"), nil
}

// Fetch downloads a whole response body.
func (f *Fetcher) Fetch(ctx context.Context, urlStr string) ([]byte, string, error) {
	body, _, contentType, err := f.Open(ctx, urlStr)
	if err != nil {
		return nil, "", err
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, f.config.MaxBytes+1))
	if err != nil {
		return nil, "", err
	}
	if int64(len(data)) > f.config.MaxBytes {
		return nil, "", ErrTooLarge
	}
	return data, contentType, nil
}

// FetchDataURL downloads an image and inlines it as a data URL.
func (f *Fetcher) FetchDataURL(ctx context.Context, urlStr string) (string, error) {
	data, contentType, err := f.Fetch(ctx, urlStr)
	if err != nil {
		return "", err
	}

	mimeType, _, _ := strings.Cut(contentType, ";")
	mimeType = strings.TrimSpace(mimeType)
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = http.DetectContentType(data)
	}
	return imageutil.Encode(mimeType, data), nil
}

// redact hides credentials carried in the query string.
func redact(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil {
		return "<invalid url>"
	}
	q := u.Query()
	if q.Has("key") {
		q.Set("key", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
