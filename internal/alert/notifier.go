package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type Notifier struct {
	webhookURL string
	httpClient *http.Client
}

// NewNotifier creates a webhook client. An empty URL yields a notifier that
// silently drops every alert.
func NewNotifier(url string) *Notifier {
	return &Notifier{
		webhookURL: url,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// Notify posts the alert as JSON to the webhook.
func (n *Notifier) Notify(ctx context.Context, a Alert) error {
	if n.webhookURL == "" {
		return nil
	}

	body, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshaling alert: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("creating webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook error: status %d", resp.StatusCode)
	}

	return nil
}
