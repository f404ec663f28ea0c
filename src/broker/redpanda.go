package broker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"drone-compare/src/logger"
)

// ClientID identifies drone-compare to the Redpanda cluster.
const ClientID = "drone-compare"

var errClosed = errors.New("broker is closed")

// RedpandaBroker publishes and consumes rows on a Kafka-compatible cluster
// through franz-go. One producer client is shared by all publishes; every
// subscription gets its own consumer group client.
type RedpandaBroker struct {
	seeds    []string
	producer *kgo.Client
	logger   logger.Logger

	mu        sync.Mutex
	consumers map[string]*kgo.Client // keyed by topic and group
	closed    bool
}

// NewRedpandaBroker connects a producer to the seed brokers.
// Topics are created on first publish when the cluster allows it.
func NewRedpandaBroker(seeds []string, log logger.Logger) (*RedpandaBroker, error) {
	if len(seeds) == 0 {
		return nil, fmt.Errorf("at least one Redpanda broker address is required")
	}

	producer, err := kgo.NewClient(
		kgo.SeedBrokers(seeds...),
		kgo.ClientID(ClientID),
		kgo.AllowAutoTopicCreation(),
		kgo.ProducerLinger(10*time.Millisecond),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redpanda producer: %w", err)
	}

	return &RedpandaBroker{
		seeds:     seeds,
		producer:  producer,
		logger:    log,
		consumers: make(map[string]*kgo.Client),
	}, nil
}

// Publish produces one row message and waits for it to be acknowledged.
func (b *RedpandaBroker) Publish(ctx context.Context, topic string, key string, value []byte) error {
	return b.produce(ctx, record(topic, KeyedValue{Key: key, Value: value}))
}

// PublishBatch produces every message in one call and waits for all of
// them. The first failed record fails the batch.
func (b *RedpandaBroker) PublishBatch(ctx context.Context, topic string, messages []KeyedValue) error {
	records := make([]*kgo.Record, len(messages))
	for i, m := range messages {
		records[i] = record(topic, m)
	}
	if err := b.produce(ctx, records...); err != nil {
		return fmt.Errorf("batch of %d: %w", len(records), err)
	}
	return nil
}

func (b *RedpandaBroker) produce(ctx context.Context, records ...*kgo.Record) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return errClosed
	}

	if err := b.producer.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return fmt.Errorf("failed to produce to Redpanda: %w", err)
	}
	return nil
}

func record(topic string, m KeyedValue) *kgo.Record {
	return &kgo.Record{Topic: topic, Key: []byte(m.Key), Value: m.Value}
}

// Subscribe joins groupID on topic and streams its records. A group without
// committed offsets starts at the oldest record. The channel closes when ctx
// is done or the broker is closed.
func (b *RedpandaBroker) Subscribe(ctx context.Context, topic string, groupID string) (<-chan Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, errClosed
	}

	key := topic + "/" + groupID
	if _, ok := b.consumers[key]; ok {
		return nil, fmt.Errorf("group %s already subscribed to %s", groupID, topic)
	}

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(b.seeds...),
		kgo.ClientID(ClientID),
		kgo.ConsumerGroup(groupID),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redpanda consumer: %w", err)
	}
	b.consumers[key] = consumer

	out := make(chan Message, 100)
	go b.poll(ctx, consumer, out)
	return out, nil
}

// poll forwards fetched records to out until ctx ends or consumer closes.
// Fetch errors are logged and polling continues.
func (b *RedpandaBroker) poll(ctx context.Context, consumer *kgo.Client, out chan<- Message) {
	defer close(out)

	for ctx.Err() == nil {
		fetches := consumer.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			if ctx.Err() == nil {
				b.logger.Warn("Redpanda fetch from %s/%d failed: %v", topic, partition, err)
			}
		})

		iter := fetches.RecordIter()
		for !iter.Done() {
			select {
			case out <- toMessage(iter.Next()):
			case <-ctx.Done():
				return
			}
		}
	}
}

func toMessage(r *kgo.Record) Message {
	return Message{
		Topic:     r.Topic,
		Key:       string(r.Key),
		Value:     r.Value,
		Offset:    r.Offset,
		Partition: r.Partition,
		Timestamp: r.Timestamp.UnixMilli(),
	}
}

// Close stops every consumer, then the producer. It is safe to call twice.
func (b *RedpandaBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for key, consumer := range b.consumers {
		consumer.Close()
		delete(b.consumers, key)
	}
	b.producer.Close()
	return nil
}
