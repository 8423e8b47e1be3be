package client

import (
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/cenk/backoff"
	circuit "github.com/rubyist/circuitbreaker"
)

// breakerSet holds one circuit breaker per upstream host, so a dead mirror
// does not take requests to a healthy one down with it.
type breakerSet struct {
	breakers map[string]*circuit.Breaker
	mu       sync.RWMutex
}

func newBreakerSet() *breakerSet {
	return &breakerSet{breakers: make(map[string]*circuit.Breaker)}
}

// get returns or creates the breaker for a host.
func (bs *breakerSet) get(host string) *circuit.Breaker {
	bs.mu.RLock()
	breaker, exists := bs.breakers[host]
	bs.mu.RUnlock()

	if exists {
		return breaker
	}

	bs.mu.Lock()
	defer bs.mu.Unlock()

	// Double-check after acquiring write lock
	if breaker, exists := bs.breakers[host]; exists {
		return breaker
	}

	// Trips after 5 consecutive failures, retries with exponential
	// backoff.
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 30 * time.Second
	expBackoff.MaxInterval = 5 * time.Minute
	expBackoff.Multiplier = 2.0
	expBackoff.Reset()

	breaker = circuit.NewBreakerWithOptions(&circuit.Options{
		BackOff:    expBackoff,
		ShouldTrip: circuit.ThresholdTripFunc(5),
	})

	bs.breakers[host] = breaker
	return breaker
}

// call runs fn through the breaker for the URL's host.
func (bs *breakerSet) call(rawURL string, fn func() error) error {
	host := hostOf(rawURL)
	breaker := bs.get(host)

	if !breaker.Ready() {
		return fmt.Errorf("circuit breaker open for %s: %w", host, ErrUpstreamDown)
	}
	return breaker.Call(fn, 0)
}

// States returns the current breaker states, for health checks.
func (bs *breakerSet) States() map[string]string {
	bs.mu.RLock()
	defer bs.mu.RUnlock()

	states := make(map[string]string)
	for host, breaker := range bs.breakers {
		if breaker.Tripped() {
			states[host] = "open"
		} else {
			states[host] = "closed"
		}
	}
	return states
}

func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		if len(rawURL) > 50 {
			return rawURL[:50]
		}
		return rawURL
	}
	return parsed.Host
}

// BreakerStates returns the state of each upstream host's circuit breaker.
func (c *Client) BreakerStates() map[string]string {
	return c.breakers.States()
}
