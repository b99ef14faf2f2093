package audit

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
)

// MessageWriter is the subset of *kafka.Writer the sink needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaSink publishes events to a topic keyed by entity id.
type KafkaSink struct {
	writer MessageWriter
}

// NewKafkaSink wraps a writer.
func NewKafkaSink(writer MessageWriter) *KafkaSink {
	return &KafkaSink{writer: writer}
}

// NewKafkaWriter builds a writer for the audit topic.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}
}

// Record publishes the event as JSON.
func (s *KafkaSink) Record(ctx context.Context, event Event) error {
	if s == nil || s.writer == nil {
		return errors.New("audit: kafka sink not initialised")
	}
	if err := event.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Entity + ":" + event.EntityID),
		Value: payload,
		Time:  event.At,
		Headers: []kafka.Header{
			{Key: "action", Value: []byte(event.Action)},
		},
	})
}
