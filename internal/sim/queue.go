package sim

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

// OrderCreatedEvent announces an accepted submission whose order row has not
// been written yet. The worker consumes it to materialize the order; the gap
// between the two is the confirmation window clients poll through.
type OrderCreatedEvent struct {
	EventID   string    `json:"event_id"`
	OrderNo   int64     `json:"order_no"`
	UserID    int64     `json:"user_id"`
	GoodsID   int64     `json:"goods_id"`
	Count     int       `json:"count"`
	Channel   string    `json:"channel"`
	Timestamp time.Time `json:"timestamp"`
}

// Queue transports order events from the submit handler to the worker.
type Queue interface {
	Publish(ctx context.Context, event *OrderCreatedEvent) error
	Consume(ctx context.Context, handler func(context.Context, *OrderCreatedEvent) error) error
	Close() error
}

// KafkaQueue carries events over a Kafka topic.
type KafkaQueue struct {
	writer *kafka.Writer
	reader *kafka.Reader
}

// NewKafkaQueue creates a producer/consumer pair on one topic.
func NewKafkaQueue(brokers []string, topic, groupID string) *KafkaQueue {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
		StartOffset:    kafka.FirstOffset,
	})

	return &KafkaQueue{writer: writer, reader: reader}
}

// Publish writes one event to the topic
func (q *KafkaQueue) Publish(ctx context.Context, event *OrderCreatedEvent) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(fmt.Sprintf("order-%d", event.OrderNo)),
		Value: raw,
		Time:  event.Timestamp,
	}

	if err := q.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}
	return nil
}

// Consume fetches, handles and commits messages until ctx is cancelled
func (q *KafkaQueue) Consume(ctx context.Context, handler func(context.Context, *OrderCreatedEvent) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			msg, err := q.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Printf("Error fetching message: %v", err)
				time.Sleep(time.Second)
				continue
			}

			var event OrderCreatedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				log.Printf("Failed to unmarshal event: %v", err)
				continue
			}

			if err := handler(ctx, &event); err != nil {
				log.Printf("Error handling event: %v", err)
				continue
			}

			if err := q.reader.CommitMessages(ctx, msg); err != nil {
				log.Printf("Error committing message: %v", err)
			}
		}
	}
}

// Close closes producer and consumer
func (q *KafkaQueue) Close() error {
	if err := q.writer.Close(); err != nil {
		return err
	}
	return q.reader.Close()
}

// MemoryQueue is an in-process channel queue used when no broker is
// configured.
type MemoryQueue struct {
	ch chan *OrderCreatedEvent
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{ch: make(chan *OrderCreatedEvent, 256)}
}

func (q *MemoryQueue) Publish(ctx context.Context, event *OrderCreatedEvent) error {
	select {
	case q.ch <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryQueue) Consume(ctx context.Context, handler func(context.Context, *OrderCreatedEvent) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-q.ch:
			if err := handler(ctx, event); err != nil {
				log.Printf("Error handling event: %v", err)
			}
		}
	}
}

func (q *MemoryQueue) Close() error {
	return nil
}
