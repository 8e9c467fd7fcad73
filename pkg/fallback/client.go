package fallback

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"
)

// ErrExhausted is returned once every retry against the secondary service has
// failed. There is no further fallback tier behind it.
var ErrExhausted = errors.New("fallback service exhausted retries")

// Client calls the secondary answer service when the primary pipeline cannot
// produce a trustworthy response.
type Client struct {
	endpoint         string
	httpClient       *http.Client
	maxRetries       int
	backoff          time.Duration
	rateLimitBackoff time.Duration
}

type Config struct {
	Endpoint         string
	Timeout          time.Duration
	MaxRetries       int
	Backoff          time.Duration
	RateLimitBackoff time.Duration
}

type queryRequest struct {
	Query     string                 `json:"query"`
	Context   string                 `json:"context"`
	Timestamp string                 `json:"timestamp"`
	Overrides map[string]interface{} `json:"overrides,omitempty"`
}

type queryResponse struct {
	Response string                 `json:"response"`
	Metadata map[string]interface{} `json:"metadata"`
}

// Result carries the secondary service's answer plus whatever metadata it
// attached.
type Result struct {
	Response string
	Metadata map[string]interface{}
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 500 * time.Millisecond
	}
	if cfg.RateLimitBackoff <= 0 {
		cfg.RateLimitBackoff = 2 * time.Second
	}
	return &Client{
		endpoint:         strings.TrimRight(cfg.Endpoint, "/"),
		httpClient:       &http.Client{Timeout: cfg.Timeout},
		maxRetries:       cfg.MaxRetries,
		backoff:          cfg.Backoff,
		rateLimitBackoff: cfg.RateLimitBackoff,
	}
}

// Query posts the query and context to the secondary service with bounded
// retries. 429 waits the longer rate-limit backoff; 408 retries on the normal
// schedule; any other non-2xx is terminal for that attempt.
func (c *Client) Query(ctx context.Context, query, contextText string, overrides map[string]interface{}) (*Result, error) {
	body, err := json.Marshal(queryRequest{
		Query:     query,
		Context:   contextText,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Overrides: overrides,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal fallback request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		result, retryable, err := c.doQuery(ctx, body)
		if err == nil {
			return result, nil
		}
		if !retryable {
			return nil, err
		}
		lastErr = err

		if attempt < c.maxRetries-1 {
			wait := time.Duration(float64(c.backoff) * math.Pow(2, float64(attempt)))
			if isRateLimit(err) {
				wait = c.rateLimitBackoff
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}
	}

	return nil, fmt.Errorf("%w after %d attempts: %v", ErrExhausted, c.maxRetries, lastErr)
}

// rateLimitError is returned on HTTP 429.
type rateLimitError struct {
	status int
}

func (e *rateLimitError) Error() string {
	return fmt.Sprintf("rate limited (HTTP %d)", e.status)
}

func isRateLimit(err error) bool {
	var rle *rateLimitError
	return errors.As(err, &rle)
}

func (c *Client) doQuery(ctx context.Context, body []byte) (result *Result, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/query", bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("create fallback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Transport failures (incl. client timeout) are worth retrying.
		return nil, true, fmt.Errorf("fallback request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("read fallback response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, true, &rateLimitError{status: resp.StatusCode}
	case resp.StatusCode == http.StatusRequestTimeout:
		return nil, true, fmt.Errorf("fallback timeout (HTTP %d)", resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, true, fmt.Errorf("fallback error: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	var parsed queryResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, false, fmt.Errorf("decode fallback response: %w", err)
	}
	if parsed.Response == "" {
		return nil, false, fmt.Errorf("empty response from fallback service")
	}

	return &Result{Response: parsed.Response, Metadata: parsed.Metadata}, false, nil
}
