package messaging

import (
	"context"
	"time"

	"github.com/astracore/gl-service/internal/infrastructure/config"
	"github.com/segmentio/kafka-go"
)

// MessageReader is the part of *kafka.Reader the consumer pool uses
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ReaderFactory opens a fresh consumer group member
type ReaderFactory func() MessageReader

// NewGroupReaderFactory returns a factory for consumer group readers.
// Offsets are committed explicitly, one message at a time.
func NewGroupReaderFactory(cfg config.KafkaConfig) ReaderFactory {
	startOffset := kafka.LastOffset
	if cfg.StartFromEarliest {
		startOffset = kafka.FirstOffset
	}
	maxWait := cfg.MaxWait
	if maxWait <= 0 {
		maxWait = 500 * time.Millisecond
	}

	return func() MessageReader {
		return kafka.NewReader(kafka.ReaderConfig{
			Brokers:        cfg.Brokers,
			GroupID:        cfg.GroupID,
			Topic:          cfg.InvoiceTopic,
			MinBytes:       cfg.MinBytes,
			MaxBytes:       cfg.MaxBytes,
			MaxWait:        maxWait,
			StartOffset:    startOffset,
			CommitInterval: 0,
		})
	}
}
