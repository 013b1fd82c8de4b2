package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/cenk/backoff"
	circuit "github.com/rubyist/circuitbreaker"
)

// DefaultBreakerThreshold is the number of consecutive transport failures
// that opens a registry's breaker.
const DefaultBreakerThreshold = 5

// CircuitBreakerFetcher wraps a Fetcher with per-registry circuit breakers.
type CircuitBreakerFetcher struct {
	fetcher   FetcherInterface
	threshold int64
	breakers  map[string]*circuit.Breaker
	mu        sync.RWMutex
}

// NewCircuitBreakerFetcher creates a new circuit breaker wrapper for a fetcher.
// A threshold below 1 selects DefaultBreakerThreshold.
func NewCircuitBreakerFetcher(f FetcherInterface, threshold int) *CircuitBreakerFetcher {
	if threshold < 1 {
		threshold = DefaultBreakerThreshold
	}
	return &CircuitBreakerFetcher{
		fetcher:   f,
		threshold: int64(threshold),
		breakers:  make(map[string]*circuit.Breaker),
	}
}

// getBreaker returns or creates a circuit breaker for the given registry.
func (cbf *CircuitBreakerFetcher) getBreaker(registry string) *circuit.Breaker {
	cbf.mu.RLock()
	breaker, exists := cbf.breakers[registry]
	cbf.mu.RUnlock()

	if exists {
		return breaker
	}

	cbf.mu.Lock()
	defer cbf.mu.Unlock()

	if breaker, exists := cbf.breakers[registry]; exists {
		return breaker
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 30 * time.Second
	expBackoff.MaxInterval = 5 * time.Minute
	expBackoff.Multiplier = 2.0
	expBackoff.Reset()

	opts := &circuit.Options{
		BackOff:    expBackoff,
		ShouldTrip: circuit.ConsecutiveTripFunc(cbf.threshold),
	}
	breaker = circuit.NewBreakerWithOptions(opts)

	cbf.breakers[registry] = breaker
	return breaker
}

// Fetch wraps the underlying fetcher's Fetch with circuit breaker logic.
// Only transport failures count toward opening the breaker. Any HTTP
// response, 5xx included, concerns a single document and is returned to the
// caller without affecting other documents on the same host.
func (cbf *CircuitBreakerFetcher) Fetch(ctx context.Context, fetchURL string) (*Document, error) {
	registry := extractRegistry(fetchURL)
	breaker := cbf.getBreaker(registry)

	var doc *Document
	var fetchErr error
	err := breaker.Call(func() error {
		doc, fetchErr = cbf.fetcher.Fetch(ctx, fetchURL)
		if fetchErr != nil && !isUpstreamFailure(fetchErr) {
			return nil
		}
		return fetchErr
	}, 0)

	if errors.Is(err, circuit.ErrBreakerOpen) {
		return nil, fmt.Errorf("circuit breaker open for registry %s: %w", registry, ErrUpstreamDown)
	}
	if err != nil {
		return nil, err
	}
	if fetchErr != nil {
		return nil, fetchErr
	}
	return doc, nil
}

// isUpstreamFailure reports whether err means the host could not be reached
// (dial, DNS, TLS, timeout) rather than that it answered.
func isUpstreamFailure(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return false
	}
	// The caller gave up; the registry may be fine.
	return !errors.Is(err, context.Canceled)
}

// extractRegistry extracts a registry identifier from a URL for circuit breaker grouping.
func extractRegistry(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		if len(rawURL) > 50 {
			return rawURL[:50]
		}
		return rawURL
	}
	return parsed.Host
}

// BreakerStates returns the current state of every breaker, keyed by
// registry host.
func (cbf *CircuitBreakerFetcher) BreakerStates() map[string]string {
	cbf.mu.RLock()
	defer cbf.mu.RUnlock()

	states := make(map[string]string)
	for registry, breaker := range cbf.breakers {
		if breaker.Tripped() {
			states[registry] = "open"
		} else {
			states[registry] = "closed"
		}
	}
	return states
}
