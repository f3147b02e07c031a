// Package kafka publishes observation records to a Kafka topic as an audit trail.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/marine-alert-service/internal/config"
	"github.com/couchcryptid/marine-alert-service/internal/domain"
)

// SinkName labels this sink in logs and metrics.
const SinkName = "kafka"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer produces observation records to a Kafka topic.
// It implements ingest.AuditSink.
type Writer struct {
	writer messageWriter
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured audit topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaAuditTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}
	return &Writer{writer: w, logger: logger}
}

func (w *Writer) Name() string { return SinkName }

// Store publishes one record. Records for the same location hash to the same partition.
func (w *Writer) Store(ctx context.Context, rec domain.ObservationRecord) error {
	msg, err := serializeToMessage(rec)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write observation %s: %w", rec.ID, err)
	}
	w.logger.Debug("observation published", "record_id", rec.ID, "key", string(msg.Key))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// recordKey identifies a record by (location, timestamp).
func recordKey(rec domain.ObservationRecord) string {
	return fmt.Sprintf("%.4f,%.4f|%s", rec.Location.Latitude, rec.Location.Longitude, rec.ObservedAt.Format(time.RFC3339))
}

// serializeToMessage marshals an ObservationRecord into a Kafka message.
func serializeToMessage(rec domain.ObservationRecord) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize observation: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(recordKey(rec)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "source", Value: []byte("marine-alert-service")},
			{Key: "observed_at", Value: []byte(rec.ObservedAt.Format(time.RFC3339))},
		},
	}, nil
}
