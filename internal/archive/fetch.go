// Package archive fetches observation tarballs over HTTP and unpacks
// them locally. Survey archives rate-limit aggressively and drop long
// transfers, so downloads are throttled client-side and retried with
// backoff.
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Config configures fetch behavior.
type Config struct {
	// Timeout for one request (default: 10m, tarballs are large).
	Timeout time.Duration

	// MaxRetries for failed requests (default: 3).
	MaxRetries int

	// RateLimit requests per second (default: 2).
	RateLimit float64

	// RateBurst maximum burst size (default: 2).
	RateBurst int

	// UserAgent string (default: "visread/1.0").
	UserAgent string

	// Transport allows injecting a custom HTTP transport (for tests/stubs).
	Transport http.RoundTripper
}

// Fetcher is a rate-limited, retry-capable downloader.
type Fetcher struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
	log     zerolog.Logger
}

// NewFetcher creates a Fetcher, filling defaults for zero fields.
func NewFetcher(cfg Config, log zerolog.Logger) *Fetcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Minute
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 2.0
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = 2
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "visread/1.0"
	}
	return &Fetcher{
		cfg: cfg,
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		log:     log,
	}
}

// HTTPError is a non-2xx response.
type HTTPError struct {
	StatusCode int
	Message    string
	// RetryAfter carries the server's Retry-After header when it sent one.
	RetryAfter time.Duration
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// IsRateLimited returns true if this is a rate limit error.
func (e *HTTPError) IsRateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// IsServerError returns true if this is a server error.
func (e *HTTPError) IsServerError() bool {
	return e.StatusCode >= 500
}

// parseRetryAfter reads the integer-seconds form of Retry-After. Survey
// archives use that form; the HTTP-date variant is ignored.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// isRetryable determines if an error should be retried.
func isRetryable(err error) bool {
	if httpErr, ok := err.(*HTTPError); ok {
		return httpErr.IsRateLimited() || httpErr.IsServerError()
	}
	return false
}

// withRetry runs fn under the rate limiter, retrying with exponential
// backoff while the failure is retryable.
func (f *Fetcher) withRetry(ctx context.Context, fn func() error) error {
	if err := f.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= f.cfg.MaxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isRetryable(err) {
			return err
		}

		backoff := time.Duration(1<<uint(attempt)) * 100 * time.Millisecond
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && httpErr.RetryAfter > backoff {
			backoff = httpErr.RetryAfter
		}
		f.log.Debug().Err(err).Dur("backoff", backoff).Msg("archive: retrying fetch")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// fetchOnce executes a single attempt, streaming the body into w.
func (f *Fetcher) fetchOnce(ctx context.Context, rawURL string, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return 0, &HTTPError{
			StatusCode: resp.StatusCode,
			Message:    string(msg),
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("read body: %w", err)
	}
	return n, nil
}

// Fetch downloads rawURL into memory.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	var buf bytes.Buffer
	err := f.withRetry(ctx, func() error {
		buf.Reset()
		_, err := f.fetchOnce(ctx, rawURL, &buf)
		return err
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FetchFile downloads rawURL to dest, writing through a ".part" file so
// an interrupted transfer never looks like a finished one.
func (f *Fetcher) FetchFile(ctx context.Context, rawURL, dest string) (int64, error) {
	part := dest + ".part"
	var n int64
	err := f.withRetry(ctx, func() error {
		w, err := os.Create(part)
		if err != nil {
			return err
		}
		n, err = f.fetchOnce(ctx, rawURL, w)
		if cerr := w.Close(); err == nil {
			err = cerr
		}
		return err
	})
	if err != nil {
		os.Remove(part)
		return 0, err
	}
	if err := os.Rename(part, dest); err != nil {
		return 0, err
	}
	f.log.Info().Str("url", rawURL).Str("dest", dest).Int64("bytes", n).Msg("archive: downloaded")
	return n, nil
}

// FetchAndUnpack downloads a tarball and extracts it under dir.
func (f *Fetcher) FetchAndUnpack(ctx context.Context, rawURL, dir string) error {
	tmp, err := os.CreateTemp("", "visread-archive-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if _, err := f.FetchFile(ctx, rawURL, tmpPath); err != nil {
		return err
	}
	if err := UnpackFile(tmpPath, dir); err != nil {
		return err
	}
	f.log.Info().Str("url", rawURL).Str("dir", dir).Msg("archive: unpacked")
	return nil
}
