package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/coldchain/fridgewatch/internal/controller"
)

// UpdateProducer streams every emitted update to a Kafka topic for
// renderers running outside this process.
type UpdateProducer struct {
	writer *kafka.Writer
}

// NewUpdateProducer creates a producer for the update topic.
func NewUpdateProducer(brokers []string, topic string) *UpdateProducer {
	return &UpdateProducer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
			Async:        true, // never let a slow broker stall a cycle
		},
	}
}

// Publish sends one update, keyed by cycle id.
func (p *UpdateProducer) Publish(ctx context.Context, u controller.Update) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("failed to marshal update: %w", err)
	}

	msg := kafka.Message{Key: []byte(u.CycleID), Value: data}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write update: %w", err)
	}
	return nil
}

// Close closes the producer.
func (p *UpdateProducer) Close() error {
	return p.writer.Close()
}

// Render implements controller.Renderer.
func (p *UpdateProducer) Render(u controller.Update) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := p.Publish(ctx, u); err != nil {
		fmt.Printf("Update publish failed: %v\n", err)
	}
}

// Fanout forwards each update to several renderers in order.
type Fanout []controller.Renderer

// Render implements controller.Renderer.
func (f Fanout) Render(u controller.Update) {
	for _, r := range f {
		r.Render(u)
	}
}
