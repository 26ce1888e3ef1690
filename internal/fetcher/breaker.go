package fetcher

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrCircuitOpen is returned while a host's breaker rejects downloads.
var ErrCircuitOpen = eris.New("circuit breaker is open")

// CircuitState is the state of one host's breaker.
type CircuitState int

const (
	// CircuitClosed lets downloads through.
	CircuitClosed CircuitState = iota
	// CircuitOpen rejects downloads until the reset timeout passes.
	CircuitOpen
	// CircuitHalfOpen lets a probe through.
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerOptions configures a BreakerFetcher.
type BreakerOptions struct {
	// FailureThreshold is the number of consecutive failures that opens a
	// host's breaker. Default: 5.
	FailureThreshold int
	// ResetTimeout is how long an open breaker waits before a probe. Default: 30s.
	ResetTimeout time.Duration
}

type circuit struct {
	state     CircuitState
	failures  int
	lastFault time.Time
}

// BreakerFetcher wraps a Fetcher with a circuit breaker per upstream host.
// Only network errors and 429/5xx responses count as failures.
type BreakerFetcher struct {
	next Fetcher
	opts BreakerOptions
	now  func() time.Time

	mu       sync.Mutex
	circuits map[string]*circuit
}

// NewBreakerFetcher wraps next.
func NewBreakerFetcher(next Fetcher, opts BreakerOptions) *BreakerFetcher {
	if opts.FailureThreshold <= 0 {
		opts.FailureThreshold = 5
	}
	if opts.ResetTimeout <= 0 {
		opts.ResetTimeout = 30 * time.Second
	}
	return &BreakerFetcher{
		next:     next,
		opts:     opts,
		now:      time.Now,
		circuits: make(map[string]*circuit),
	}
}

// Download delegates to the wrapped fetcher unless the host's breaker is open.
func (b *BreakerFetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	host := hostOf(rawURL)
	if err := b.allow(host); err != nil {
		return nil, err
	}
	body, err := b.next.Download(ctx, rawURL)
	b.record(host, err)
	return body, err
}

// State reports the breaker state for the host of rawURL.
func (b *BreakerFetcher) State(rawURL string) CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.circuits[hostOf(rawURL)]
	if !ok {
		return CircuitClosed
	}
	if c.state == CircuitOpen && b.now().Sub(c.lastFault) >= b.opts.ResetTimeout {
		return CircuitHalfOpen
	}
	return c.state
}

func (b *BreakerFetcher) circuitFor(host string) *circuit {
	c, ok := b.circuits[host]
	if !ok {
		c = &circuit{}
		b.circuits[host] = c
	}
	return c
}

func (b *BreakerFetcher) allow(host string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	c := b.circuitFor(host)
	if c.state != CircuitOpen {
		return nil
	}
	if b.now().Sub(c.lastFault) >= b.opts.ResetTimeout {
		b.transition(host, c, CircuitHalfOpen)
		return nil
	}
	return eris.Wrapf(ErrCircuitOpen, "download from %s", host)
}

func (b *BreakerFetcher) record(host string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c := b.circuitFor(host)

	if !tripsBreaker(err) {
		c.failures = 0
		if c.state == CircuitHalfOpen {
			b.transition(host, c, CircuitClosed)
		}
		return
	}

	c.failures++
	c.lastFault = b.now()
	if c.state == CircuitHalfOpen || c.failures >= b.opts.FailureThreshold {
		b.transition(host, c, CircuitOpen)
	}
}

func (b *BreakerFetcher) transition(host string, c *circuit, to CircuitState) {
	if c.state == to {
		return
	}
	zap.L().Warn("fetcher: circuit state change",
		zap.String("host", host),
		zap.Stringer("from", c.state),
		zap.Stringer("to", to),
	)
	c.state = to
}

func tripsBreaker(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusTooManyRequests || se.StatusCode >= 500
	}
	return true
}

func hostOf(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil {
		return u.Host
	}
	return ""
}
