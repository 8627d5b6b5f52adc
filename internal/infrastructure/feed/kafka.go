package feed

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/example/meubles-dor/internal/infrastructure/kafka"
	"github.com/example/meubles-dor/internal/infrastructure/store"
)

// KafkaSource tails the change topic the store publishes to. Each feed reads
// every partition from its newest offset without joining a consumer group, so
// every process sees every change and nothing is left on the broker.
type KafkaSource struct {
	brokers []string
	topic   string
}

func NewKafkaSource(brokers []string, topic string) *KafkaSource {
	return &KafkaSource{brokers: brokers, topic: topic}
}

func (s *KafkaSource) Open(ctx context.Context, table string) (Feed, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}

	partitions, err := kafka.Partitions(ctx, s.brokers, s.topic)
	if err != nil {
		return nil, err
	}

	consumers := make([]*kafka.Consumer, 0, len(partitions))
	for _, p := range partitions {
		c, err := kafka.NewTailConsumer(s.brokers, s.topic, p)
		if err != nil {
			for _, opened := range consumers {
				opened.Close()
			}
			return nil, err
		}
		consumers = append(consumers, c)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	f := &kafkaFeed{
		table:     table,
		consumers: consumers,
		events:    make(chan store.ChangeEvent, eventBuffer),
		cancel:    cancel,
	}
	f.wg.Add(len(consumers))
	for _, c := range consumers {
		go f.run(runCtx, c)
	}
	go func() {
		f.wg.Wait()
		close(f.events)
	}()

	log.Printf("[KafkaFeed] Tailing %s (%d partitions) for %s changes", s.topic, len(partitions), table)
	return f, nil
}

type kafkaFeed struct {
	table     string
	consumers []*kafka.Consumer
	events    chan store.ChangeEvent
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	once      sync.Once
	err       error
}

func (f *kafkaFeed) Events() <-chan store.ChangeEvent {
	return f.events
}

func (f *kafkaFeed) Close() error {
	f.once.Do(func() {
		f.cancel()
		f.wg.Wait()
		var errs []error
		for _, c := range f.consumers {
			errs = append(errs, c.Close())
		}
		f.err = errors.Join(errs...)
	})
	return f.err
}

func (f *kafkaFeed) run(ctx context.Context, consumer *kafka.Consumer) {
	defer f.wg.Done()

	err := consumer.Consume(ctx, func(ctx context.Context, key, value []byte) error {
		if string(key) != f.table {
			return nil
		}
		event, err := DecodeChange(f.table, value)
		if err != nil {
			return err
		}
		select {
		case f.events <- event:
		case <-ctx.Done():
		}
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("[KafkaFeed] %s feed stopped: %v", f.table, err)
	}
}
