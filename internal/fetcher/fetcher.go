package fetcher

import (
	"context"
	"fmt"
	"io"
)

// Fetcher defines the interface for downloading remote datasets.
type Fetcher interface {
	// Download fetches the URL and returns the response body. A non-2xx
	// response is reported as a *StatusError.
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}

// StatusError reports a non-success HTTP response.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("download: unexpected status %d from %s", e.StatusCode, e.URL)
}
