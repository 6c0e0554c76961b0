package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return w.err
}

func (w *recordingWriter) Close() error { return nil }

func TestPublishBatchEncodesValues(t *testing.T) {
	w := &recordingWriter{}
	p := NewProducerWithWriter(w, "gzip")

	err := p.PublishBatch(context.Background(), "news", []Message{
		{Key: []byte("AAPL"), Value: map[string]string{"headline": "x"}},
		{Key: []byte("MSFT"), Value: "raw"},
		{Value: []byte("bytes")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(w.msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(w.msgs))
	}
	if string(w.msgs[0].Value) != `{"headline":"x"}` || string(w.msgs[1].Value) != "raw" || string(w.msgs[2].Value) != "bytes" {
		t.Fatalf("unexpected payloads: %q %q %q", w.msgs[0].Value, w.msgs[1].Value, w.msgs[2].Value)
	}
	if w.msgs[0].Topic != "news" || string(w.msgs[0].Key) != "AAPL" {
		t.Fatalf("unexpected topic/key: %+v", w.msgs[0])
	}
}

func TestPublishMessageReturnsWriterError(t *testing.T) {
	boom := errors.New("broker down")
	p := NewProducerWithWriter(&recordingWriter{err: boom}, "gzip")
	if err := p.PublishMessage(context.Background(), "logs", []string{"a"}); !errors.Is(err, boom) {
		t.Fatalf("expected writer error, got %v", err)
	}
}

func TestPublishRejectsUnencodable(t *testing.T) {
	w := &recordingWriter{}
	p := NewProducerWithWriter(w, "gzip")
	if err := p.Publish(context.Background(), "news", nil, make(chan int)); err == nil {
		t.Fatal("expected a marshal error")
	}
	if len(w.msgs) != 0 {
		t.Fatal("nothing should be written")
	}
}

func TestNewProducerRequiresBrokers(t *testing.T) {
	if _, err := NewProducer(); err == nil {
		t.Fatal("expected an error without brokers")
	}
}
