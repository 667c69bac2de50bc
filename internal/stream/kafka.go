package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	eventdomain "pulsewatch/internal/event/domain"
)

// wireEvent is the JSON shape written to the topic. The worker parses
// projectId, level, and timestamp for Loki labels; everything else rides along.
type wireEvent struct {
	ID        int64           `json:"id"`
	ProjectID string          `json:"projectId"`
	Level     string          `json:"level"`
	Message   string          `json:"message"`
	SessionID *string         `json:"sessionId,omitempty"`
	UserID    *string         `json:"userId,omitempty"`
	Tags      json.RawMessage `json:"tags,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// KafkaProducer implements Producer using segmentio/kafka-go.
type KafkaProducer struct {
	writer *kafka.Writer
	topic  string
}

// NewKafkaProducer creates a Kafka producer that writes stored events to the given topic.
// brokers must be non-empty. Call Close when shutting down.
func NewKafkaProducer(brokers []string, topic string) (*KafkaProducer, error) {
	if len(brokers) == 0 || topic == "" {
		return nil, nil
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 50 * time.Millisecond,
	}
	return &KafkaProducer{writer: writer, topic: topic}, nil
}

// Emit serializes the event as JSON and writes it to the Kafka topic, keyed by
// project id so one project's events stay ordered within a partition.
// Uses the request context with a short timeout so slow Kafka does not block callers indefinitely.
func (p *KafkaProducer) Emit(ctx context.Context, e *eventdomain.Event) error {
	if p == nil || p.writer == nil || e == nil {
		return nil
	}
	payload, err := json.Marshal(wireEvent{
		ID:        e.ID,
		ProjectID: e.ProjectID,
		Level:     e.Level,
		Message:   e.Message,
		SessionID: e.SessionID,
		UserID:    e.UserID,
		Tags:      e.Tags,
		Timestamp: e.Timestamp,
	})
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err = p.writer.WriteMessages(writeCtx, kafka.Message{
		Key:   []byte(e.ProjectID),
		Value: payload,
	})
	if err != nil {
		slog.Warn("stream: kafka emit failed", "err", err)
		return err
	}
	return nil
}

// Close closes the Kafka writer. Safe to call multiple times.
func (p *KafkaProducer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
