// Package broker publishes comparison rows to a message broker.
package broker

import "context"

// DefaultTopic receives one message per comparison row.
const DefaultTopic = "drone.compare.rows"

// Broker moves row messages between a run and its consumers.
type Broker interface {
	// Publish sends value to topic. Rows are keyed by commit so every
	// comparison of a commit lands on one partition.
	Publish(ctx context.Context, topic string, key string, value []byte) error

	// Subscribe streams messages of topic. groupID names the consumer group
	// where the implementation has groups.
	Subscribe(ctx context.Context, topic string, groupID string) (<-chan Message, error)

	Close() error
}

// Message is one consumed record.
type Message struct {
	Topic     string
	Key       string
	Value     []byte
	Offset    int64
	Partition int32
	// Timestamp is in Unix milliseconds.
	Timestamp int64
}
