package kafka

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/segmentio/kafka-go"
)

type MessageHandler func(ctx context.Context, key, value []byte) error

type Consumer struct {
	reader *kafka.Reader
}

// tailReaderConfig reads a single partition outside any consumer group, so
// nothing is committed and no group is left on the broker.
func tailReaderConfig(brokers []string, topic string, partition int) kafka.ReaderConfig {
	return kafka.ReaderConfig{
		Brokers:   brokers,
		Topic:     topic,
		Partition: partition,
		MinBytes:  1,
		MaxBytes:  10e6, // 10MB
	}
}

// NewTailConsumer reads one partition of topic starting after the newest
// message. Used for live change feeds where history is irrelevant.
func NewTailConsumer(brokers []string, topic string, partition int) (*Consumer, error) {
	reader := kafka.NewReader(tailReaderConfig(brokers, topic, partition))
	if err := reader.SetOffset(kafka.LastOffset); err != nil {
		reader.Close()
		return nil, fmt.Errorf("seek %s[%d] to tail: %w", topic, partition, err)
	}
	return &Consumer{reader: reader}, nil
}

// Partitions returns the sorted partition ids of topic, asking each broker in
// turn until one answers.
func Partitions(ctx context.Context, brokers []string, topic string) ([]int, error) {
	if len(brokers) == 0 {
		return nil, errors.New("no kafka brokers configured")
	}

	var lastErr error
	for _, broker := range brokers {
		conn, err := kafka.DialContext(ctx, "tcp", broker)
		if err != nil {
			lastErr = err
			continue
		}
		parts, err := conn.ReadPartitions(topic)
		conn.Close()
		if err != nil {
			lastErr = err
			continue
		}

		ids := make([]int, 0, len(parts))
		for _, p := range parts {
			ids = append(ids, p.ID)
		}
		if len(ids) == 0 {
			return nil, fmt.Errorf("topic %s has no partitions", topic)
		}
		sort.Ints(ids)
		return ids, nil
	}
	return nil, fmt.Errorf("read partitions of %s: %w", topic, lastErr)
}

func (c *Consumer) Consume(ctx context.Context, handler MessageHandler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Printf("[KafkaConsumer] Error reading message: %v", err)
				continue
			}

			if err := handler(ctx, msg.Key, msg.Value); err != nil {
				log.Printf("[KafkaConsumer] Error handling message on %s: %v", msg.Topic, err)
			}
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
