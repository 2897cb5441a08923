package hostsim

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/footsteps/pkg/logger"
)

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// Get performs a GET request
func (c *HTTPClient) Get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with JSON body
func (c *HTTPClient) Post(ctx context.Context, path string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// submit posts one notification and classifies the reply.
func (c *HTTPClient) submit(ctx context.Context, n Notification) string {
	resp, err := c.Post(ctx, "/notifications", n)
	if err != nil {
		return resultFailed
	}
	defer func() { _ = resp.Body.Close() }()

	var ack AckResponse
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resultFailed
	}

	switch resp.StatusCode {
	case http.StatusAccepted:
		return resultAccepted
	case http.StatusOK:
		if err := json.Unmarshal(body, &ack); err == nil && ack.Duplicate {
			return resultDuplicate
		}
		return resultAccepted
	default:
		return resultFailed
	}
}

// decals lists footprint decals, optionally for one token only.
func (c *HTTPClient) decals(ctx context.Context, token string) ([]Decal, error) {
	path := "/decals"
	if token != "" {
		path += "?token=" + url.QueryEscape(token)
	}

	resp, err := c.Get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to list decals: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list decals failed with status: %d", resp.StatusCode)
	}

	var out struct {
		Decals []Decal `json:"decals"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode decals: %w", err)
	}
	return out.Decals, nil
}

// tally counts submission results.
type tally struct {
	accepted  atomic.Int64
	duplicate atomic.Int64
	failed    atomic.Int64
}

func (t *tally) add(result string) {
	switch result {
	case resultAccepted:
		t.accepted.Add(1)
	case resultDuplicate:
		t.duplicate.Add(1)
	default:
		t.failed.Add(1)
	}
}

// play submits notifications one at a time, in order. Turn changes must
// reach the service before the walks that follow them.
func play(ctx context.Context, client *HTTPClient, ns []Notification, t *tally) error {
	for i, n := range ns {
		if err := ctx.Err(); err != nil {
			return err
		}
		result := client.submit(ctx, n)
		t.add(result)
		if result == resultFailed {
			logger.Get().Warn(ctx, "notification rejected",
				logger.Int("index", i), logger.String("id", n.ID), logger.String("type", n.Type))
		}
	}
	return nil
}

// redeliver submits notifications concurrently using a worker pool.
func redeliver(ctx context.Context, client *HTTPClient, ns []Notification, workers int, t *tally) {
	ch := make(chan Notification, workers*workerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := range ch {
				t.add(client.submit(ctx, n))
			}
		}()
	}

	go func() {
		defer close(ch)
		for _, n := range ns {
			select {
			case <-ctx.Done():
				return
			case ch <- n:
			}
		}
	}()

	wg.Wait()
}
