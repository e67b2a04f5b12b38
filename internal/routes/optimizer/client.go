// Package optimizer wraps the external route-optimization service. The
// service is a black box: it receives a warehouse origin plus candidate
// stops and returns a full permutation of stop ids, or fails. Failure is an
// expected degraded path, never a fatal error; callers fall back to their
// own ordering.
package optimizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rutero-app/rutero/internal/shared"
)

const (
	defaultTimeout       = 6 * time.Second
	responseBodyLimit    = 1 << 20
	optimizePath         = "/v1/optimize"
	maxAttempts          = 2 // one initial request plus one retry
	retryBackoffInterval = 250 * time.Millisecond
)

// errRejected marks a 4xx response from the optimizer.
var errRejected = errors.New("optimizer rejected request")

// Stop is a candidate stop submitted for sequencing.
type Stop struct {
	ID       int64             `json:"id"`
	Location shared.Coordinate `json:"location"`
}

// Client calls the external optimization service.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout overrides the default request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// NewClient builds the optimizer client. An empty base URL yields a client
// whose Optimize always reports ok=false, so wiring stays uniform when no
// optimizer is configured.
func NewClient(baseURL string, opts ...Option) *Client {
	client := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client
}

type optimizeRequest struct {
	Origin shared.Coordinate `json:"origin"`
	Stops  []Stop            `json:"stops"`
}

type optimizeResponse struct {
	OrderedIDs []int64 `json:"ordered_ids"`
}

// Optimize requests a stop sequence from the warehouse origin. It returns
// the full permutation of stop ids and true, or nil and false on timeout,
// transport failure, or a malformed/partial response. It never blocks past
// the configured timeout and never returns a partial reordering.
func (c *Client) Optimize(ctx context.Context, origin shared.Coordinate, stops []Stop) ([]int64, bool) {
	if c == nil || c.baseURL == "" || len(stops) == 0 {
		return nil, false
	}

	payload, err := json.Marshal(optimizeRequest{Origin: origin, Stops: stops})
	if err != nil {
		return nil, false
	}

	var ordered []int64
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, false
			case <-time.After(retryBackoffInterval):
			}
		}
		ordered, err = c.doOptimize(ctx, payload)
		if err == nil {
			break
		}
		// A 4xx rejection will not improve on retry.
		if errors.Is(err, errRejected) {
			break
		}
	}
	if err != nil {
		return nil, false
	}

	if !isPermutation(stops, ordered) {
		return nil, false
	}
	return ordered, true
}

func (c *Client) doOptimize(ctx context.Context, payload []byte) ([]int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+optimizePath, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("optimizer returned status %d", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: status %d", errRejected, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyLimit))
	if err != nil {
		return nil, err
	}

	var decoded optimizeResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, err
	}
	return decoded.OrderedIDs, nil
}

// isPermutation verifies the response is a complete rearrangement of the
// submitted stops: same length, same id set, no duplicates.
func isPermutation(stops []Stop, ordered []int64) bool {
	if len(ordered) != len(stops) {
		return false
	}
	want := make(map[int64]struct{}, len(stops))
	for _, s := range stops {
		want[s.ID] = struct{}{}
	}
	for _, id := range ordered {
		if _, ok := want[id]; !ok {
			return false
		}
		delete(want, id)
	}
	return len(want) == 0
}
