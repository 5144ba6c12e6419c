// Package notifier provides the Kafka backend for the notification sink.
package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/segmentio/kafka-go"

	"github.com/tolempay/billing/pkg/config"
	pkgnotifier "github.com/tolempay/billing/pkg/notifier"
)

// Kafka delivers notification events to a Kafka topic, keyed by user id so
// one user's events stay ordered within a partition.
type Kafka struct {
	writer *kafka.Writer
	topic  string
}

// NewKafka creates a Kafka sink from config. Brokers is a comma-separated
// list.
func NewKafka(cfg config.Kafka) (*Kafka, error) {
	brokers := parseBrokers(cfg.Brokers)
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka sink: brokers are required")
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  cfg.Topic,
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireOne,
		Balancer:               &kafka.Hash{},
	}
	return &Kafka{writer: writer, topic: cfg.Topic}, nil
}

// Deliver publishes one event. Errors propagate to the in-memory queue's
// drain loop, which logs and drops; they never reach the payment path.
func (k *Kafka) Deliver(ctx context.Context, event pkgnotifier.Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("kafka sink: encode event: %w", err)
	}
	return k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.UserID.String()),
		Value: value,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(event.Kind)},
		},
	})
}

// Close shuts the underlying writer down.
func (k *Kafka) Close() error {
	return k.writer.Close()
}

func parseBrokers(raw string) []string {
	parts := strings.Split(raw, ",")
	brokers := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			brokers = append(brokers, trimmed)
		}
	}
	return brokers
}
