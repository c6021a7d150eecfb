// Package audit publishes verification lifecycle events for downstream
// compliance consumers. Publishing is best effort and asynchronous; the
// pipeline never blocks or fails on the audit path.
package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"idproof/internal/platform/config"
)

// Event types emitted over the verification lifecycle.
const (
	EventSubmitted = "verification.submitted"
	EventCompleted = "verification.completed"
	EventDeleted   = "verification.deleted"
)

// Event is one lifecycle fact about a verification. It carries the audit
// key and outcome only, never image data or storage keys.
type Event struct {
	Type           string    `json:"type"`
	VerificationID string    `json:"verification_id"`
	Status         string    `json:"status,omitempty"`
	At             time.Time `json:"at"`
}

// Publisher emits lifecycle events.
type Publisher interface {
	Publish(ctx context.Context, evt Event)
}

// Noop discards events; used when no brokers are configured.
type Noop struct{}

func (Noop) Publish(context.Context, Event) {}

// Kafka publishes events to a Kafka topic keyed by verification ID, so one
// verification's trail stays ordered within a partition.
type Kafka struct {
	client *kgo.Client
	logger *slog.Logger
}

// NewKafka builds a Kafka publisher. Returns (nil, nil) when no brokers are
// configured.
func NewKafka(cfg config.AuditConfig, logger *slog.Logger) (*Kafka, error) {
	if len(cfg.Brokers) == 0 {
		return nil, nil
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.Topic),
	)
	if err != nil {
		return nil, err
	}
	return &Kafka{client: client, logger: logger}, nil
}

// Publish produces the event asynchronously. Failures are logged with the
// verification ID and otherwise dropped.
func (k *Kafka) Publish(ctx context.Context, evt Event) {
	payload, err := json.Marshal(evt)
	if err != nil {
		k.logger.Error("failed to encode audit event", "verification_id", evt.VerificationID, "error", err)
		return
	}
	record := &kgo.Record{
		Key:   []byte(evt.VerificationID),
		Value: payload,
	}
	k.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			k.logger.Warn("audit event publish failed",
				"verification_id", evt.VerificationID,
				"type", evt.Type,
				"error", err,
			)
		}
	})
}

// Close flushes pending events and releases the client.
func (k *Kafka) Close() {
	if k == nil {
		return
	}
	k.client.Close()
}
