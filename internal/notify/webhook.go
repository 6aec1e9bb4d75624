package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ehving/noticesystem-sub000/internal/entity"
)

const (
	// DefaultWebhookTimeout bounds one webhook delivery.
	DefaultWebhookTimeout = 10 * time.Second

	userAgent = "notice-reconciler/1.0"
)

// WebhookNotifier POSTs the rendered alert as JSON to a URL.
type WebhookNotifier struct {
	url    string
	format Format
	client *http.Client
}

var _ Notifier = (*WebhookNotifier)(nil)

// NewWebhookNotifier creates a webhook notifier. A zero timeout uses
// DefaultWebhookTimeout.
func NewWebhookNotifier(url string, format Format, timeout time.Duration) *WebhookNotifier {
	if timeout <= 0 {
		timeout = DefaultWebhookTimeout
	}
	return &WebhookNotifier{
		url:    url,
		format: format,
		client: &http.Client{Timeout: timeout},
	}
}

// SendConflictAlert implements Notifier.
func (n *WebhookNotifier) SendConflictAlert(ctx context.Context, ticket *entity.ConflictTicket, items []*entity.SnapshotItem) error {
	payload, err := json.Marshal(n.format.Render(ticket, items))
	if err != nil {
		return fmt.Errorf("failed to encode alert: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver alert: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}
