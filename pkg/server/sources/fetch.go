package sources

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/StrathCole/oracle-push/pkg/version"
)

// maxBodyBytes bounds one ticker payload. Full-market dumps from the larger
// exchanges stay well under this.
const maxBodyBytes = 32 << 20

// Fetcher returns the raw body of one exchange endpoint.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPFetcher is the default Fetcher backed by net/http.
type HTTPFetcher struct {
	client *http.Client
}

var _ Fetcher = (*HTTPFetcher)(nil)

// NewHTTPFetcher creates a fetcher whose requests time out after timeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{client: &http.Client{Timeout: timeout}}
}

// Fetch performs a GET and returns the body of a 2xx response.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.AgentString())

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode, Err: ErrRateLimitExceeded}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode, Err: ErrUnexpectedStatus}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("failed to read response: %w", err)}
	}
	return body, nil
}
