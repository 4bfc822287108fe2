package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/plateful/tenantcore/internal/domain"
)

// KafkaPublisher delivers audit events to a Kafka topic. Events are keyed
// by tenant ID so one tenant's trail stays ordered within a partition.
type KafkaPublisher struct {
	writer *kafka.Writer
	logger *slog.Logger
}

func NewKafkaPublisher(brokers []string, topic string, logger *slog.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: 5 * time.Second,
	}
	return &KafkaPublisher{
		writer: writer,
		logger: logger.With("component", "audit_kafka"),
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event domain.AuditEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.TenantID.String()),
		Value: value,
	})
	if err != nil {
		// Best-effort: the caller's request must not fail on a broken
		// audit pipe, so failures are logged and swallowed upstream.
		p.logger.Error("failed to publish audit event", "kind", event.Kind, "error", err)
		return err
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
