package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/alejandrodnm/arbishark/internal/domain"
)

const webhookAttempts = 3

// Webhook envía notificaciones como JSON a un webhook estilo Discord/Slack.
// El payload lleva tanto `content` (Discord) como `text` (Slack).
type Webhook struct {
	url      string
	username string
	http     *http.Client
	limiter  *rate.Limiter
	backoff  time.Duration
}

// NewWebhook crea el notificador. Discord limita ~30 msg/min por webhook.
func NewWebhook(url, username string) *Webhook {
	if username == "" {
		username = "arbishark"
	}
	return &Webhook{
		url:      url,
		username: username,
		http:     &http.Client{Timeout: 10 * time.Second},
		limiter:  rate.NewLimiter(rate.Every(2*time.Second), 5),
		backoff:  time.Second,
	}
}

type webhookPayload struct {
	Username string `json:"username"`
	Content  string `json:"content"`
	Text     string `json:"text"`
}

// Notify publica n con hasta 3 intentos. Los 4xx distintos de 429 no se reintentan.
func (w *Webhook) Notify(ctx context.Context, n domain.Notification) error {
	content := formatNotification(n)
	body, err := json.Marshal(webhookPayload{Username: w.username, Content: content, Text: content})
	if err != nil {
		return fmt.Errorf("notify.Webhook: marshal: %w", err)
	}

	if err := w.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("notify.Webhook: rate limiter: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < webhookAttempts; attempt++ {
		if attempt > 0 {
			wait := w.backoff * time.Duration(1<<(attempt-1))
			slog.Debug("webhook retry", "attempt", attempt, "wait", wait, "err", lastErr)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}

		retry, err := w.post(ctx, body)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry {
			break
		}
	}
	return fmt.Errorf("notify.Webhook: %w", lastErr)
}

func (w *Webhook) post(ctx context.Context, body []byte) (retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.http.Do(req)
	if err != nil {
		return true, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode/100 == 2:
		return false, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return true, fmt.Errorf("status %d", resp.StatusCode)
	default:
		return false, fmt.Errorf("status %d", resp.StatusCode)
	}
}

func formatNotification(n domain.Notification) string {
	var sb strings.Builder
	switch n.Level {
	case "error":
		sb.WriteString("🔴 ")
	case "warn":
		sb.WriteString("🟠 ")
	default:
		sb.WriteString("🟢 ")
	}
	fmt.Fprintf(&sb, "**%s**", n.Title)
	if n.Message != "" {
		fmt.Fprintf(&sb, "\n%s", n.Message)
	}
	return sb.String()
}
