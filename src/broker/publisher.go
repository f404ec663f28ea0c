package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"drone-compare/src/metrics"
)

// KeyedValue is one message of a batch.
type KeyedValue struct {
	Key   string
	Value []byte
}

// BatchPublisher is implemented by brokers that can produce many messages
// in one round trip.
type BatchPublisher interface {
	PublishBatch(ctx context.Context, topic string, records []KeyedValue) error
}

// RowMessage is the payload published for each row.
type RowMessage struct {
	RunID string      `json:"run_id,omitempty"`
	Row   metrics.Row `json:"row"`
}

// RowPublisher is a metrics.Sink that publishes rows keyed by commit, so all
// comparisons of a commit land on the same partition. Rows are held until
// Close, so an aborted run publishes nothing. Brokers that support batches
// receive them in one call, others one message at a time.
type RowPublisher struct {
	ctx     context.Context
	broker  Broker
	topic   string
	runID   string
	pending []metrics.Row
}

// NewRowPublisher returns a sink publishing to topic. runID is attached to
// every message; it may be empty and set later with BindRun.
func NewRowPublisher(ctx context.Context, b Broker, topic, runID string) *RowPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &RowPublisher{ctx: ctx, broker: b, topic: topic, runID: runID}
}

// BindRun sets the run ID attached to messages not yet published.
func (p *RowPublisher) BindRun(runID string) {
	p.runID = runID
}

func (p *RowPublisher) Write(row metrics.Row) error {
	p.pending = append(p.pending, row)
	return nil
}

// Close publishes the held rows. It does not close the broker.
func (p *RowPublisher) Close() error {
	if len(p.pending) == 0 {
		return nil
	}

	messages := make([]KeyedValue, 0, len(p.pending))
	for _, row := range p.pending {
		value, err := json.Marshal(RowMessage{RunID: p.runID, Row: row})
		if err != nil {
			return fmt.Errorf("failed to marshal row: %w", err)
		}
		messages = append(messages, KeyedValue{Key: row.Commit, Value: value})
	}
	p.pending = nil

	if batcher, ok := p.broker.(BatchPublisher); ok {
		if err := batcher.PublishBatch(p.ctx, p.topic, messages); err != nil {
			return fmt.Errorf("failed to publish rows: %w", err)
		}
		return nil
	}

	for _, m := range messages {
		if err := p.broker.Publish(p.ctx, p.topic, m.Key, m.Value); err != nil {
			return fmt.Errorf("failed to publish row for %s: %w", m.Key, err)
		}
	}
	return nil
}

// Abort drops the held rows without publishing them.
func (p *RowPublisher) Abort() error {
	p.pending = nil
	return nil
}

// DecodeRow parses a message produced by RowPublisher.
func DecodeRow(msg Message) (RowMessage, error) {
	var rm RowMessage
	if err := json.Unmarshal(msg.Value, &rm); err != nil {
		return RowMessage{}, fmt.Errorf("failed to unmarshal row message at offset %d: %w", msg.Offset, err)
	}
	return rm, nil
}
