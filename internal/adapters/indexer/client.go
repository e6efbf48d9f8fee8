// Package indexer reads markets and books from a GraphQL indexer that follows the
// exchange contracts on chain, and reports how far behind the chain head it is.
package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	requestsPerSec = 20
	maxRetries     = 3
	baseRetryWait  = 250 * time.Millisecond
)

// Client is the "indexer" market-data backend.
type Client struct {
	http     *http.Client
	endpoint string
	limiter  *rate.Limiter
	now      func() time.Time
}

// NewClient creates a client for the GraphQL endpoint.
func NewClient(endpoint string) *Client {
	return &Client{
		http:     &http.Client{Timeout: 10 * time.Second},
		endpoint: strings.TrimRight(endpoint, "/"),
		limiter:  rate.NewLimiter(requestsPerSec, 5),
		now:      time.Now,
	}
}

// Name identifies the backend.
func (c *Client) Name() string {
	return "indexer"
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

// query posts a GraphQL query and decodes data into out.
func (c *Client) query(ctx context.Context, q string, vars map[string]any, out any) error {
	body, err := json.Marshal(graphQLRequest{Query: q, Variables: vars})
	if err != nil {
		return fmt.Errorf("marshal query: %w", err)
	}

	var resp graphQLResponse
	if err := c.doWithRetry(ctx, body, &resp); err != nil {
		return err
	}
	if len(resp.Errors) > 0 {
		msgs := make([]string, len(resp.Errors))
		for i, e := range resp.Errors {
			msgs[i] = e.Message
		}
		return fmt.Errorf("graphql errors: %s", strings.Join(msgs, "; "))
	}
	if len(resp.Data) == 0 || string(resp.Data) == "null" {
		return errors.New("graphql response without data")
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

// doWithRetry posts body with rate limiting and exponential backoff on 429/5xx.
func (c *Client) doWithRetry(ctx context.Context, body []byte, out any) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			c.sleep(ctx, attempt-1)
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			resp.Body.Close()
			lastErr = fmt.Errorf("server status %d", resp.StatusCode)
			slog.Debug("indexer: retrying", "status", resp.StatusCode, "attempt", attempt+1)
			continue
		case resp.StatusCode >= 400:
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			resp.Body.Close()
			return fmt.Errorf("client error %d: %s", resp.StatusCode, string(msg))
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("request failed after %d retries: %w", maxRetries, lastErr)
}

func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * baseRetryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
