package polymarket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultCLOBBase  = "https://clob.polymarket.com"
	defaultGammaBase = "https://gamma-api.polymarket.com"

	// Rate limits al 60% de los límites reales documentados.
	// CLOB /books: 500/10s → 300/10s → 30/s
	booksRatePerSec = 30
	// Gamma /events: 300/10s → 180/10s → 18/s
	gammaRatePerSec = 18
	// CLOB /book: 1500/10s → 900/10s → 90/s
	bookRatePerSec = 90

	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond
	maxRetryAfter = 10 * time.Second

	defaultMarketLimit = 20
)

// Client es el backend "gamma": mercados de Gamma /events y books del CLOB,
// con rate limiting y retries.
type Client struct {
	http         *http.Client
	clobBase     string
	gammaBase    string
	marketLimit  int
	bookLimiter  *rate.Limiter
	gammaLimiter *rate.Limiter
	booksLimiter *rate.Limiter
}

// NewClient crea un Client con los base URLs dados.
// Si clobBase o gammaBase están vacíos, usa los URLs de producción.
func NewClient(clobBase, gammaBase string, marketLimit int) *Client {
	if clobBase == "" {
		clobBase = defaultCLOBBase
	}
	if gammaBase == "" {
		gammaBase = defaultGammaBase
	}
	if marketLimit <= 0 {
		marketLimit = defaultMarketLimit
	}
	return &Client{
		http:         &http.Client{Timeout: 10 * time.Second},
		clobBase:     strings.TrimRight(clobBase, "/"),
		gammaBase:    strings.TrimRight(gammaBase, "/"),
		marketLimit:  marketLimit,
		bookLimiter:  rate.NewLimiter(bookRatePerSec, 10),
		gammaLimiter: rate.NewLimiter(gammaRatePerSec, 10),
		booksLimiter: rate.NewLimiter(booksRatePerSec, 5),
	}
}

// Name identifica el backend.
func (c *Client) Name() string {
	return "gamma"
}

// get hace un GET con rate limiting y retries.
func (c *Client) get(ctx context.Context, limiter *rate.Limiter, url string, out any) error {
	return c.do(ctx, limiter, http.MethodGet, url, nil, out)
}

// post hace un POST JSON con rate limiting y retries.
func (c *Client) post(ctx context.Context, limiter *rate.Limiter, url string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}
	return c.do(ctx, limiter, http.MethodPost, url, payload, out)
}

// do reintenta errores de red, 429 y 5xx con backoff exponencial. Un 429 con
// Retry-After espera lo que pide el servidor. El resto de 4xx falla al momento.
func (c *Client) do(ctx context.Context, limiter *rate.Limiter, method, url string, payload []byte, out any) error {
	var lastErr error
	var wait time.Duration
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			if wait <= 0 {
				wait = backoff(attempt - 1)
			}
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		wait = 0

		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, body)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			resp.Body.Close()
			wait = retryAfter(resp.Header.Get("Retry-After"))
			lastErr = fmt.Errorf("rate limited (%d)", resp.StatusCode)
			slog.Warn("rate limited by API", "attempt", attempt+1, "wait", wait)
			continue
		case resp.StatusCode >= 500:
			resp.Body.Close()
			lastErr = fmt.Errorf("server error %d", resp.StatusCode)
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
	return fmt.Errorf("%s %s failed after %d retries: %w", method, url, maxRetries, lastErr)
}

func backoff(attempt int) time.Duration {
	return time.Duration(math.Pow(2, float64(attempt))) * baseRetryWait
}

// retryAfter interpreta Retry-After en segundos; 0 si falta o no es válido.
func retryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return 0
	}
	return min(time.Duration(secs)*time.Second, maxRetryAfter)
}
