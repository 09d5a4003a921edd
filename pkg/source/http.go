// Package source fetches the remote cask catalog and keeps a compressed
// snapshot of it on disk.
package source

import (
	"context"
	goerrors "errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"net/url"
	"time"

	"github.com/glorpus-work/caskcat/internal/logger"
	"github.com/glorpus-work/caskcat/pkg/errors"
)

// DefaultCatalogURL is the Homebrew cask API.
const DefaultCatalogURL = "https://formulae.brew.sh/api/cask.json"

// DefaultUserAgent is sent with every request.
const DefaultUserAgent = "caskcat/1.0"

// Retry controls backoff between fetch attempts.
type Retry struct {
	MaxAttempts    int
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	Multiplier     float64
	JitterFraction float64
}

// DefaultRetry makes three attempts with exponential backoff.
func DefaultRetry() Retry {
	return Retry{
		MaxAttempts:    3,
		InitialDelay:   500 * time.Millisecond,
		MaxDelay:       10 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
	}
}

// Options configure an HTTPSource.
type Options struct {
	URL       string
	ProxyURL  string // empty uses the environment's proxy settings
	Timeout   time.Duration
	UserAgent string
	Retry     Retry
}

// HTTPSource downloads the catalog document.
type HTTPSource struct {
	client    *http.Client
	url       string
	userAgent string
	retry     Retry
}

// NewHTTPSource builds a source from opts, filling in defaults.
func NewHTTPSource(opts Options) (*HTTPSource, error) {
	if opts.URL == "" {
		opts.URL = DefaultCatalogURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = DefaultRetry()
	}

	proxy := http.ProxyFromEnvironment
	if opts.ProxyURL != "" {
		u, err := url.Parse(opts.ProxyURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, errors.Wrapf(errors.ErrInvalidProxyURL, "%q", opts.ProxyURL)
		}
		proxy = http.ProxyURL(u)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = proxy

	return &HTTPSource{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		url:       opts.URL,
		userAgent: opts.UserAgent,
		retry:     opts.Retry,
	}, nil
}

// URL returns the catalog URL.
func (s *HTTPSource) URL() string { return s.url }

// FetchCatalog downloads the raw catalog document, retrying transient failures.
func (s *HTTPSource) FetchCatalog(ctx context.Context) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= s.retry.MaxAttempts; attempt++ {
		data, err := s.fetchOnce(ctx)
		if err == nil {
			if attempt > 1 {
				logger.Info("Catalog fetched after retry", logger.Fields{"attempt": attempt})
			}
			return data, nil
		}
		lastErr = err

		var perm *permanentError
		if goerrors.As(err, &perm) || attempt == s.retry.MaxAttempts {
			break
		}
		if ctx.Err() != nil {
			return nil, errors.Wrap(ctx.Err(), "catalog fetch aborted")
		}

		delay := s.retry.delay(attempt)
		logger.Warn("Catalog fetch failed, retrying", logger.Fields{
			"attempt":      attempt,
			"max_attempts": s.retry.MaxAttempts,
			"error":        err.Error(),
			"next_delay":   delay.String(),
		})
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), "catalog fetch aborted during backoff")
		}
	}
	return nil, fmt.Errorf("%w: %s: %w", errors.ErrFetchFailed, s.url, unwrapPermanent(lastErr))
}

func (s *HTTPSource) fetchOnce(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, http.NoBody)
	if err != nil {
		return nil, &permanentError{errors.Wrap(err, "failed to create request")}
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to download catalog")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, &permanentError{err}
		}
		return nil, err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}
	return data, nil
}

func (r Retry) delay(attempt int) time.Duration {
	backoff := float64(r.InitialDelay) * math.Pow(r.Multiplier, float64(attempt-1))
	backoff += backoff * r.JitterFraction * (2*rand.Float64() - 1)
	if r.MaxDelay > 0 && backoff > float64(r.MaxDelay) {
		backoff = float64(r.MaxDelay)
	}
	if backoff < 0 {
		backoff = float64(r.InitialDelay)
	}
	return time.Duration(backoff)
}

// permanentError marks failures that retrying cannot fix.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func unwrapPermanent(err error) error {
	var perm *permanentError
	if goerrors.As(err, &perm) {
		return perm.err
	}
	return err
}
