package broker

import (
	"context"
	"sync"
	"time"
)

// InMemoryBroker is a channel-backed Broker for a single process.
// Every subscriber of a topic receives every message published after it
// subscribed.
type InMemoryBroker struct {
	mu          sync.RWMutex
	subscribers map[string][]chan Message
	closed      bool

	offsetMu sync.Mutex
	offsets  map[string]int64
}

// NewInMemoryBroker creates a new InMemoryBroker instance.
func NewInMemoryBroker() *InMemoryBroker {
	return &InMemoryBroker{
		subscribers: make(map[string][]chan Message),
		offsets:     make(map[string]int64),
	}
}

// Publish delivers the message to every current subscriber of topic.
// It blocks while a subscriber's buffer is full.
func (b *InMemoryBroker) Publish(ctx context.Context, topic string, key string, value []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return errClosed
	}

	msg := Message{
		Topic:     topic,
		Key:       key,
		Value:     value,
		Offset:    b.nextOffset(topic),
		Timestamp: time.Now().UnixMilli(),
	}
	for _, ch := range b.subscribers[topic] {
		select {
		case ch <- msg:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (b *InMemoryBroker) nextOffset(topic string) int64 {
	b.offsetMu.Lock()
	defer b.offsetMu.Unlock()

	offset := b.offsets[topic]
	b.offsets[topic]++
	return offset
}

// Subscribe registers a new subscriber for topic. The channel is closed when
// the broker is closed.
func (b *InMemoryBroker) Subscribe(ctx context.Context, topic string, groupID string) (<-chan Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, errClosed
	}

	ch := make(chan Message, 100)
	b.subscribers[topic] = append(b.subscribers[topic], ch)
	return ch, nil
}

// Close closes every subscriber channel.
func (b *InMemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for _, subs := range b.subscribers {
		for _, ch := range subs {
			close(ch)
		}
	}
	b.subscribers = make(map[string][]chan Message)
	return nil
}
