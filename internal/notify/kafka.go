package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// Event names carried on the notification topic. Consumers (push delivery,
// email) live outside this service.
const (
	EventMessageCreated           = "chat.message.created"
	EventAppointmentStatusChanged = "appointment.status.changed"
	EventPayoutResolved           = "payout.resolved"
)

type Event struct {
	Name       string         `json:"name"`
	OccurredAt time.Time      `json:"occurred_at"`
	Payload    map[string]any `json:"payload"`
}

// Notifier publishes lifecycle events best-effort. Implementations must never
// block a request path on broker availability.
type Notifier interface {
	Publish(ctx context.Context, name string, payload map[string]any)
}

// NopNotifier is used when no brokers are configured.
type NopNotifier struct{}

func (NopNotifier) Publish(context.Context, string, map[string]any) {}

type KafkaNotifier struct {
	writer *kafka.Writer
	logger *slog.Logger
}

func NewKafkaNotifier(brokers []string, topic string, logger *slog.Logger) *KafkaNotifier {
	return &KafkaNotifier{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 50 * time.Millisecond,
			Async:        true,
		},
		logger: logger,
	}
}

// Publish writes the event asynchronously and logs failures. Delivery is
// at-most-once.
func (n *KafkaNotifier) Publish(ctx context.Context, name string, payload map[string]any) {
	event := Event{Name: name, OccurredAt: time.Now().UTC(), Payload: payload}
	value, err := json.Marshal(event)
	if err != nil {
		n.logger.Error("notify: marshal event", "event", name, "error", err)
		return
	}
	err = n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(name),
		Value: value,
	})
	if err != nil {
		n.logger.Error("notify: publish event", "event", name, "error", err)
	}
}

func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}
