package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/Apurer/go-storefront-api/internal/domains/notifications/domain"
	"github.com/Apurer/go-storefront-api/internal/domains/notifications/ports"
)

var _ ports.Observer = (*Publisher)(nil)

// Writer is the subset of *kafka.Writer the publisher needs.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// NewWriter builds a writer that keeps messages of one order on one partition.
func NewWriter(brokers []string, topic string) *kafkago.Writer {
	return &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
	}
}

// Publisher emits every notification as an order event.
type Publisher struct {
	writer Writer
}

func New(writer Writer) (*Publisher, error) {
	if writer == nil {
		return nil, errors.New("kafka writer is required")
	}
	return &Publisher{writer: writer}, nil
}

func (p *Publisher) Name() string { return "kafka" }

func (p *Publisher) Update(ctx context.Context, msg domain.Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(msg.Key()),
		Value: payload,
		Time:  msg.OccurredAt,
		Headers: []kafkago.Header{
			{Key: "event-type", Value: []byte(msg.Type)},
		},
	})
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
