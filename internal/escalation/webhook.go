package escalation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// WebhookPublisher posts events as JSON to <base>/escalation.
type WebhookPublisher struct {
	url    string
	client *http.Client
}

func NewWebhookPublisher(baseURL string, timeout time.Duration) *WebhookPublisher {
	return &WebhookPublisher{
		url:    strings.TrimRight(baseURL, "/") + "/escalation",
		client: &http.Client{Timeout: timeout},
	}
}

func (w *WebhookPublisher) Name() string { return "webhook" }

func (w *WebhookPublisher) Publish(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal escalation event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
