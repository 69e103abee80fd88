// Package kafkasink publishes relayed order events to Kafka.
package kafkasink

import (
	"context"
	"fmt"

	"github.com/Zhima-Mochi/minishop-assistant/internal/application/orders"

	"github.com/segmentio/kafka-go"
)

const DefaultTopic = "shop-checkout-completed"

// MessageWriter is the part of *kafka.Writer the sink uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Sink struct {
	writer MessageWriter
}

// New writes to topic on brokers, keyed for per-event ordering.
func New(topic string, brokers ...string) *Sink {
	if topic == "" {
		topic = DefaultTopic
	}
	return NewWithWriter(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	})
}

func NewWithWriter(w MessageWriter) *Sink {
	return &Sink{writer: w}
}

func (s *Sink) Send(ctx context.Context, msg orders.Message) error {
	err := s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.Key),
		Value: msg.Value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(msg.EventType)},
		},
	})
	if err != nil {
		return fmt.Errorf("kafkasink: write %s: %w", msg.EventType, err)
	}
	return nil
}

func (s *Sink) Close() error { return s.writer.Close() }
