package notify

import (
	"context"
	"encoding/json"
	"log"

	"mediaflow/internal/domain/entity"
	"mediaflow/pkg/utils"
)

// BrokerPublisher mirrors events onto an external topic, keyed per
// job. Optional.
type BrokerPublisher interface {
	Publish(ctx context.Context, routingKey string, body json.RawMessage) error
}

// Fanout delivers job events to every configured sink. All sinks are
// best-effort and independent: a failing webhook never blocks live
// subscribers and vice versa, and no failure ever reaches the job's
// own state.
type Fanout struct {
	hub      *Hub
	webhooks *WebhookSender
	broker   BrokerPublisher
}

// NewFanout wires the sinks. broker may be nil when no message broker
// is configured.
func NewFanout(hub *Hub, webhooks *WebhookSender, broker BrokerPublisher) *Fanout {
	return &Fanout{hub: hub, webhooks: webhooks, broker: broker}
}

// Hub exposes the live-subscriber hub for transport handlers.
func (f *Fanout) Hub() *Hub {
	return f.hub
}

// Publish fans one event out to live subscribers, the job's webhook
// endpoint (when set), and the broker topic. Fire-and-forget from the
// caller's perspective; delivery failures are logged only.
func (f *Fanout) Publish(ctx context.Context, jobID, webhookURL string, event entity.JobEvent) {
	event.JobID = jobID

	f.hub.Publish(jobID, event)

	if webhookURL != "" {
		if err := f.webhooks.Send(ctx, webhookURL, event); err != nil {
			log.Printf("webhook delivery failed for job %s: %v", jobID, err)
		}
	}

	if f.broker != nil {
		body, err := utils.ToRawMessage(event)
		if err != nil {
			log.Printf("marshal event for job %s: %v", jobID, err)
			return
		}
		if err := f.broker.Publish(ctx, "job."+jobID, body); err != nil {
			log.Printf("broker publish failed for job %s: %v", jobID, err)
		}
	}
}
