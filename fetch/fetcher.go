// Package fetch retrieves registry metadata documents with retry, DNS
// caching and per-registry circuit breaking.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/dnscache"
)

var (
	ErrNotFound     = errors.New("document not found")
	ErrRateLimited  = errors.New("rate limited by upstream")
	ErrUpstreamDown = errors.New("upstream registry unavailable")
)

// StatusError is returned for every non-2xx response. It unwraps to
// ErrNotFound, ErrRateLimited or ErrUpstreamDown where one applies.
type StatusError struct {
	StatusCode int
	Status     string
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d (%s): %s", e.StatusCode, e.Reason(), e.URL)
}

// Reason returns the status text without the numeric code.
func (e *StatusError) Reason() string {
	if text := http.StatusText(e.StatusCode); text != "" {
		return text
	}
	return e.Status
}

func (e *StatusError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case e.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case e.StatusCode >= 500:
		return ErrUpstreamDown
	}
	return nil
}

// Document is a fetched metadata document.
type Document struct {
	Body        io.ReadCloser
	ContentType string
}

// FetcherInterface defines the interface for document fetchers.
type FetcherInterface interface {
	Fetch(ctx context.Context, url string) (*Document, error)
}

// Fetcher downloads documents from upstream registries.
type Fetcher struct {
	client     *http.Client
	userAgent  string
	accept     string
	maxRetries int
	baseDelay  time.Duration
	authFn     func(url string) (headerName, headerValue string)

	stop     chan struct{}
	stopOnce sync.Once
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		f.client = c
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithAccept sets the Accept header.
func WithAccept(accept string) Option {
	return func(f *Fetcher) {
		f.accept = accept
	}
}

// WithMaxRetries sets the maximum retry attempts.
func WithMaxRetries(n int) Option {
	return func(f *Fetcher) {
		f.maxRetries = n
	}
}

// WithBaseDelay sets the base delay for exponential backoff.
func WithBaseDelay(d time.Duration) Option {
	return func(f *Fetcher) {
		f.baseDelay = d
	}
}

// WithAuthFunc sets a function that returns auth headers for a given URL.
// Return empty strings to skip authentication for that URL.
func WithAuthFunc(fn func(url string) (headerName, headerValue string)) Option {
	return func(f *Fetcher) {
		f.authFn = fn
	}
}

// NewFetcher creates a new Fetcher with the given options. Call Close to stop
// the DNS cache refresher.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		userAgent:  "changelogging/1.0",
		accept:     "application/json",
		maxRetries: 2,
		baseDelay:  500 * time.Millisecond,
		stop:       make(chan struct{}),
	}

	resolver := &dnscache.Resolver{}
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				resolver.Refresh(true)
			case <-f.stop:
				return
			}
		}
	}()

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	f.client = &http.Client{
		Timeout: time.Minute,
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				host, port, err := net.SplitHostPort(addr)
				if err != nil {
					return nil, err
				}
				ips, err := resolver.LookupHost(ctx, host)
				if err != nil {
					return nil, err
				}
				for _, ip := range ips {
					conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
					if err == nil {
						return conn, nil
					}
				}
				return nil, fmt.Errorf("failed to dial any resolved IP")
			},
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Close stops the DNS cache refresher and releases idle connections.
func (f *Fetcher) Close() {
	f.stopOnce.Do(func() {
		close(f.stop)
		f.client.CloseIdleConnections()
	})
}

// Fetch downloads the document at url, retrying on 429 and 5xx responses.
// The caller must close the returned Document.Body when done.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Document, error) {
	var lastErr error

	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff with 10% jitter
			delay := f.baseDelay * time.Duration(math.Pow(2, float64(attempt-1)))
			jitter := time.Duration(float64(delay) * (rand.Float64() * 0.1))
			delay += jitter

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		doc, err := f.doFetch(ctx, url)
		if err == nil {
			return doc, nil
		}

		lastErr = err

		if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUpstreamDown) {
			continue
		}

		return nil, err
	}

	return nil, lastErr
}

func (f *Fetcher) doFetch(ctx context.Context, url string) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", f.accept)

	if f.authFn != nil {
		if name, value := f.authFn(url); name != "" && value != "" {
			req.Header.Set(name, value)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching document: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return &Document{
			Body:        resp.Body,
			ContentType: resp.Header.Get("Content-Type"),
		}, nil
	}

	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
	_ = resp.Body.Close()
	return nil, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status, URL: url}
}
