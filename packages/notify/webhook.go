package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// WebhookNotifier posts the run summary as JSON to any endpoint.
type WebhookNotifier struct {
	url     string
	headers map[string]string
	client  *http.Client
}

// WebhookOption is a functional option for WebhookNotifier
type WebhookOption func(*WebhookNotifier)

// WithWebhookHeader adds a header to every request
func WithWebhookHeader(key, value string) WebhookOption {
	return func(w *WebhookNotifier) {
		w.headers[key] = value
	}
}

// WithWebhookClient replaces the HTTP client
func WithWebhookClient(c *http.Client) WebhookOption {
	return func(w *WebhookNotifier) {
		w.client = c
	}
}

// NewWebhookNotifier creates a new webhook notifier
func NewWebhookNotifier(url string, opts ...WebhookOption) *WebhookNotifier {
	w := &WebhookNotifier{
		url:     url,
		headers: make(map[string]string),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Name returns the name of the notifier
func (w *WebhookNotifier) Name() string {
	return "webhook"
}

type webhookPayload struct {
	Status string `json:"status"`
	*RunSummary
	DurationMs int64 `json:"duration_ms"`
}

// Notify posts the summary
func (w *WebhookNotifier) Notify(ctx context.Context, summary *RunSummary) error {
	status := "passed"
	if summary.FailedTests > 0 {
		status = "failed"
	}
	payload := webhookPayload{
		Status:     status,
		RunSummary: summary,
		DurationMs: summary.Duration.Milliseconds(),
	}
	return postJSON(ctx, w.client, w.url, payload, w.headers)
}

// postJSON posts v and treats any non-2xx response as an error.
func postJSON(ctx context.Context, client *http.Client, url string, v any, headers ...map[string]string) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for _, h := range headers {
		for k, v := range h {
			req.Header.Set(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
