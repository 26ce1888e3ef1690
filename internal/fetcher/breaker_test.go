package fetcher

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	calls int
	err   error
}

func (s *stubFetcher) Download(context.Context, string) (io.ReadCloser, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return io.NopCloser(strings.NewReader("{}")), nil
}

func newTestBreaker(next Fetcher) (*BreakerFetcher, *time.Time) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := NewBreakerFetcher(next, BreakerOptions{FailureThreshold: 2, ResetTimeout: time.Minute})
	b.now = func() time.Time { return now }
	return b, &now
}

const upstreamURL = "https://images.parkrun.com/events.json"

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	stub := &stubFetcher{err: &StatusError{URL: upstreamURL, StatusCode: http.StatusBadGateway}}
	b, _ := newTestBreaker(stub)

	for range 2 {
		_, err := b.Download(context.Background(), upstreamURL)
		require.Error(t, err)
	}
	assert.Equal(t, CircuitOpen, b.State(upstreamURL))

	_, err := b.Download(context.Background(), upstreamURL)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 2, stub.calls)

	assert.Equal(t, CircuitClosed, b.State("https://other.example/x"))
}

func TestBreaker_HalfOpenProbe(t *testing.T) {
	stub := &stubFetcher{err: errors.New("connection refused")}
	b, now := newTestBreaker(stub)

	for range 2 {
		_, _ = b.Download(context.Background(), upstreamURL)
	}
	require.Equal(t, CircuitOpen, b.State(upstreamURL))

	*now = now.Add(time.Minute)
	assert.Equal(t, CircuitHalfOpen, b.State(upstreamURL))

	stub.err = nil
	body, err := b.Download(context.Background(), upstreamURL)
	require.NoError(t, err)
	_ = body.Close()
	assert.Equal(t, CircuitClosed, b.State(upstreamURL))
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	stub := &stubFetcher{err: errors.New("timeout")}
	b, now := newTestBreaker(stub)

	for range 2 {
		_, _ = b.Download(context.Background(), upstreamURL)
	}
	*now = now.Add(time.Minute)

	_, err := b.Download(context.Background(), upstreamURL)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, CircuitOpen, b.State(upstreamURL))
}

func TestBreaker_ClientErrorsDoNotTrip(t *testing.T) {
	stub := &stubFetcher{err: &StatusError{URL: upstreamURL, StatusCode: http.StatusNotFound}}
	b, _ := newTestBreaker(stub)

	for range 5 {
		_, _ = b.Download(context.Background(), upstreamURL)
	}
	assert.Equal(t, CircuitClosed, b.State(upstreamURL))
	assert.Equal(t, 5, stub.calls)
}

func TestCircuitState_String(t *testing.T) {
	assert.Equal(t, "closed", CircuitClosed.String())
	assert.Equal(t, "open", CircuitOpen.String())
	assert.Equal(t, "half-open", CircuitHalfOpen.String())
	assert.Equal(t, "unknown", CircuitState(9).String())
}
