// Package kafkapubsub publishes order events to a Kafka topic. The event
// name is the message key so that consumers can partition on it.
package kafkapubsub

import (
	"context"
	"fmt"
	"time"

	"github.com/darkswap-network/darkswap-daemon/internal/core/ports"
	"github.com/segmentio/kafka-go"
)

const defaultWriteTimeout = 10 * time.Second

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type service struct {
	writer       messageWriter
	writeTimeout time.Duration
}

func NewService(
	brokers []string, topic string, writeTimeout time.Duration,
) (ports.Publisher, error) {
	if len(brokers) <= 0 {
		return nil, fmt.Errorf("missing kafka brokers")
	}
	if len(topic) <= 0 {
		return nil, fmt.Errorf("missing kafka topic")
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		BatchTimeout: 10 * time.Millisecond,
	}
	return newService(writer, writeTimeout), nil
}

func newService(writer messageWriter, writeTimeout time.Duration) *service {
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	return &service{writer, writeTimeout}
}

func (s *service) Publish(topic string, message string) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.writeTimeout)
	defer cancel()

	if err := s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(topic),
		Value: []byte(message),
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(topic)},
		},
		Time: time.Now(),
	}); err != nil {
		return fmt.Errorf("%w: kafka write: %s", ports.ErrExternalService, err)
	}
	return nil
}

func (s *service) Close() error {
	return s.writer.Close()
}
