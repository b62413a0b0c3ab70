package messaging

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/astracore/gl-service/internal/domain/shared"
	"github.com/astracore/gl-service/internal/infrastructure/telemetry"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Dead-letter headers
const (
	HeaderError             = "x-error"
	HeaderOriginalTopic     = "x-original-topic"
	HeaderOriginalPartition = "x-original-partition"
	HeaderOriginalOffset    = "x-original-offset"
)

// DecodeFunc turns a message value into a domain event
type DecodeFunc func(value []byte) (shared.DomainEvent, error)

// ConsumerConfig holds consumer pool settings
type ConsumerConfig struct {
	Workers        int
	RejoinBackoff  time.Duration
	HandlerTimeout time.Duration
	CommitTimeout  time.Duration
}

// ConsumerPool runs Workers consumer group members. Each member handles its
// messages one at a time and commits an offset only once the message is
// handled or dead-lettered. Any other failure closes the member and rejoins
// the group after RejoinBackoff, so the uncommitted message is redelivered.
type ConsumerPool struct {
	cfg         ConsumerConfig
	newReader   ReaderFactory
	decode      DecodeFunc
	handler     shared.EventHandler
	deadLetter  MessageWriter
	isPermanent func(error) bool
	logger      *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// ConsumerOption configures a ConsumerPool
type ConsumerOption func(*ConsumerPool)

// WithDeadLetterWriter parks poison messages on a dead-letter topic
func WithDeadLetterWriter(w MessageWriter) ConsumerOption {
	return func(p *ConsumerPool) {
		p.deadLetter = w
	}
}

// WithPermanentErrors sets the classifier for handler errors that no
// redelivery can fix
func WithPermanentErrors(fn func(error) bool) ConsumerOption {
	return func(p *ConsumerPool) {
		p.isPermanent = fn
	}
}

// NewConsumerPool creates a consumer pool
func NewConsumerPool(
	cfg ConsumerConfig,
	newReader ReaderFactory,
	decode DecodeFunc,
	handler shared.EventHandler,
	logger *zap.Logger,
	opts ...ConsumerOption,
) *ConsumerPool {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.RejoinBackoff <= 0 {
		cfg.RejoinBackoff = 5 * time.Second
	}
	if cfg.CommitTimeout <= 0 {
		cfg.CommitTimeout = 10 * time.Second
	}

	p := &ConsumerPool{
		cfg:         cfg,
		newReader:   newReader,
		decode:      decode,
		handler:     handler,
		isPermanent: func(error) bool { return false },
		logger:      logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches the workers
func (p *ConsumerPool) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go p.runWorker(ctx, i)
	}

	p.logger.Info("kafka consumer pool started",
		zap.Int("workers", p.cfg.Workers),
		zap.Duration("rejoin_backoff", p.cfg.RejoinBackoff),
	)
	return nil
}

// Stop stops fetching and waits for in-flight messages to finish
func (p *ConsumerPool) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("kafka consumer pool stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *ConsumerPool) runWorker(ctx context.Context, id int) {
	defer p.wg.Done()
	log := p.logger.With(zap.Int("worker", id))

	for {
		reader := p.newReader()
		err := p.consume(ctx, reader, log)
		if closeErr := reader.Close(); closeErr != nil {
			log.Warn("failed to close kafka reader", zap.Error(closeErr))
		}
		if ctx.Err() != nil {
			return
		}

		log.Warn("consumer left group, rejoining after backoff",
			zap.Error(err),
			zap.Duration("backoff", p.cfg.RejoinBackoff),
		)
		select {
		case <-ctx.Done():
			return
		case <-time.After(p.cfg.RejoinBackoff):
		}
	}
}

func (p *ConsumerPool) consume(ctx context.Context, reader MessageReader, log *zap.Logger) error {
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			return fmt.Errorf("failed to fetch message: %w", err)
		}

		// In-flight work finishes even when the pool is stopping
		workCtx := context.WithoutCancel(ctx)
		if err := p.handleMessage(workCtx, msg, log); err != nil {
			return err
		}

		commitCtx, cancel := context.WithTimeout(workCtx, p.cfg.CommitTimeout)
		err = reader.CommitMessages(commitCtx, msg)
		cancel()
		if err != nil {
			return fmt.Errorf("failed to commit offset %d: %w", msg.Offset, err)
		}
	}
}

// handleMessage returns nil when the offset may be committed
func (p *ConsumerPool) handleMessage(ctx context.Context, msg kafka.Message, log *zap.Logger) error {
	ctx, span := telemetry.StartSpan(ctx, "kafka.consume",
		telemetry.WithSpanKind(trace.SpanKindConsumer),
		telemetry.WithAttribute("messaging.destination.name", msg.Topic),
		telemetry.WithAttribute("messaging.kafka.partition", msg.Partition),
		telemetry.WithAttribute("messaging.kafka.offset", msg.Offset),
	)
	defer span.End()

	log = log.With(
		zap.String("topic", msg.Topic),
		zap.Int("partition", msg.Partition),
		zap.Int64("offset", msg.Offset),
	)

	event, err := p.decode(msg.Value)
	if err != nil {
		telemetry.RecordError(span, err)
		return p.park(ctx, msg, err, true, log)
	}

	handleCtx := ctx
	if p.cfg.HandlerTimeout > 0 {
		var cancel context.CancelFunc
		handleCtx, cancel = context.WithTimeout(ctx, p.cfg.HandlerTimeout)
		defer cancel()
	}

	telemetry.WithProfilingLabels(handleCtx, telemetry.OperationLabels("handle_fact", map[string]string{
		telemetry.ProfilingLabelTopic:    msg.Topic,
		telemetry.ProfilingLabelFactKind: event.EventType(),
	}), func(ctx context.Context) {
		err = p.handler.Handle(ctx, event)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		if p.isPermanent(err) {
			return p.park(ctx, msg, err, false, log)
		}
		return err
	}

	telemetry.SetOK(span)
	return nil
}

// park moves a message that can never succeed to the dead-letter topic.
// Without a dead-letter topic an undecodable message is dropped and any
// other failure stays unacknowledged.
func (p *ConsumerPool) park(ctx context.Context, msg kafka.Message, cause error, undecodable bool, log *zap.Logger) error {
	log.Error("message cannot be processed", zap.Bool("undecodable", undecodable), zap.Error(cause))

	if p.deadLetter == nil {
		if undecodable {
			log.Error("no dead-letter topic configured, dropping undecodable message")
			return nil
		}
		return fmt.Errorf("no dead-letter topic configured: %w", cause)
	}

	if err := p.deadLetter.WriteMessages(ctx, deadLetterMessage(msg, cause)); err != nil {
		return fmt.Errorf("failed to write dead letter: %w", errors.Join(err, cause))
	}
	log.Warn("message moved to dead-letter topic")
	return nil
}

func deadLetterMessage(msg kafka.Message, cause error) kafka.Message {
	headers := make([]kafka.Header, 0, len(msg.Headers)+4)
	headers = append(headers, msg.Headers...)
	headers = append(headers,
		kafka.Header{Key: HeaderError, Value: []byte(cause.Error())},
		kafka.Header{Key: HeaderOriginalTopic, Value: []byte(msg.Topic)},
		kafka.Header{Key: HeaderOriginalPartition, Value: []byte(strconv.Itoa(msg.Partition))},
		kafka.Header{Key: HeaderOriginalOffset, Value: []byte(strconv.FormatInt(msg.Offset, 10))},
	)
	return kafka.Message{
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: headers,
	}
}
