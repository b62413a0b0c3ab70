package messaging

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// fakeBroker is a single-partition topic with one committed group offset.
// Every reader it hands out starts at the committed offset, like a member
// that has just joined the group.
type fakeBroker struct {
	mu        sync.Mutex
	topic     string
	messages  []kafka.Message
	committed int64
	readers   int
	commitErr error
}

func newFakeBroker(topic string, values ...string) *fakeBroker {
	b := &fakeBroker{topic: topic}
	for i, v := range values {
		b.messages = append(b.messages, kafka.Message{
			Topic:  topic,
			Offset: int64(i),
			Key:    []byte("k"),
			Value:  []byte(v),
		})
	}
	return b
}

func (b *fakeBroker) NewReader() MessageReader {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.readers++
	return &fakeReader{broker: b, pos: b.committed}
}

func (b *fakeBroker) Committed() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.committed
}

func (b *fakeBroker) Readers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.readers
}

type fakeReader struct {
	broker *fakeBroker
	pos    int64
	closed bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	for {
		r.broker.mu.Lock()
		if r.pos < int64(len(r.broker.messages)) {
			msg := r.broker.messages[r.pos]
			r.pos++
			r.broker.mu.Unlock()
			return msg, nil
		}
		r.broker.mu.Unlock()

		select {
		case <-ctx.Done():
			return kafka.Message{}, ctx.Err()
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func (r *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	r.broker.mu.Lock()
	defer r.broker.mu.Unlock()
	if r.broker.commitErr != nil {
		return r.broker.commitErr
	}
	for _, m := range msgs {
		if m.Offset+1 > r.broker.committed {
			r.broker.committed = m.Offset + 1
		}
	}
	return nil
}

func (r *fakeReader) Close() error {
	if r.closed {
		return errors.New("already closed")
	}
	r.closed = true
	return nil
}

// fakeWriter records written messages
type fakeWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *fakeWriter) Written() []kafka.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]kafka.Message(nil), w.messages...)
}

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
