package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"mediaflow/internal/domain/entity"
)

// WebhookSender delivers signed job events to externally configured
// endpoints. Exactly one POST attempt is made per event; failures are
// reported to the caller for logging and never retried.
type WebhookSender struct {
	secret []byte
	client *http.Client
	now    func() time.Time
}

// NewWebhookSender creates a sender signing payloads with the shared
// secret.
func NewWebhookSender(secret string) *WebhookSender {
	return &WebhookSender{
		secret: []byte(secret),
		client: &http.Client{Timeout: 10 * time.Second},
		now:    time.Now,
	}
}

// Sign computes the hex HMAC-SHA256 signature over "{timestamp}.{jobID}".
func (w *WebhookSender) Sign(timestamp, jobID string) string {
	mac := hmac.New(sha256.New, w.secret)
	mac.Write([]byte(timestamp + "." + jobID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Send POSTs one event to the endpoint with signature headers. The
// event's timestamp is stamped here so body and signature agree.
func (w *WebhookSender) Send(ctx context.Context, endpoint string, event entity.JobEvent) error {
	now := w.now().UTC()
	event.Timestamp = now
	timestamp := now.Format(time.RFC3339)

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Timestamp", timestamp)
	req.Header.Set("X-Webhook-Signature", w.Sign(timestamp, event.JobID))

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
