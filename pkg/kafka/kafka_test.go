package kafka

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func (w *fakeWriter) written() []kafka.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]kafka.Message(nil), w.msgs...)
}

type fakeReader struct {
	in chan kafka.Message

	mu        sync.Mutex
	committed []int64
}

func newFakeReader() *fakeReader {
	return &fakeReader{in: make(chan kafka.Message, 16)}
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case m := <-r.in:
		return m, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func (r *fakeReader) commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

type rejectingHandler struct {
	calls atomic.Int32
}

func (h *rejectingHandler) Topic() string { return "trades" }

func (h *rejectingHandler) Handle(_ context.Context, data []byte) error {
	h.calls.Add(1)
	if string(data) == "bad" {
		return errors.New("cannot store")
	}
	return nil
}

func TestProducerEncodesValues(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, "gzip", prometheus.NewRegistry())

	require.NoError(t, p.Publish(context.Background(), "trades", []byte("AAPL"), map[string]int{"quantity": 3}))
	require.NoError(t, p.PublishMessage(context.Background(), "logs", "plain"))

	msgs := w.written()
	require.Len(t, msgs, 2)
	assert.Equal(t, "trades", msgs[0].Topic)
	assert.Equal(t, []byte("AAPL"), msgs[0].Key)
	assert.JSONEq(t, `{"quantity":3}`, string(msgs[0].Value))
	assert.Equal(t, "plain", string(msgs[1].Value))
}

func TestProducerWrapsWriteErrors(t *testing.T) {
	p := newProducer(&fakeWriter{err: errors.New("leader not available")}, "gzip", nil)
	err := p.Publish(context.Background(), "trades", nil, []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trades")
}

func TestNewProducerRequiresBrokers(t *testing.T) {
	_, err := NewProducer()
	assert.Error(t, err)
}

func newTestConsumer(t *testing.T, r *fakeReader) *Consumer {
	t.Helper()
	c, err := NewConsumer(
		WithConsumerBrokers([]string{"localhost:9092"}),
		WithConsumerRetry(1, time.Millisecond, 2*time.Millisecond),
		WithConsumerWorkers(2),
	)
	require.NoError(t, err)
	c.newReader = func(string) messageReader { return r }
	return c
}

func TestConsumerCommitsHandledMessages(t *testing.T) {
	r := newFakeReader()
	c := newTestConsumer(t, r)
	h := &rejectingHandler{}
	c.RegisterHandler(h)
	require.NoError(t, c.Start(context.Background()))

	r.in <- kafka.Message{Offset: 1, Value: []byte("good")}
	r.in <- kafka.Message{Offset: 2, Value: []byte("bad")}

	// bad is tried once plus one retry
	require.Eventually(t, func() bool { return h.calls.Load() == 3 }, 2*time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Stop(ctx))

	assert.Equal(t, []int64{1}, r.commits(), "failed message without a dlq stays uncommitted")
}

func TestConsumerDeadLettersAndCommits(t *testing.T) {
	r := newFakeReader()
	c := newTestConsumer(t, r)
	dlq := &fakeWriter{}
	c.dlq = dlq
	c.RegisterHandler(&rejectingHandler{})
	require.NoError(t, c.Start(context.Background()))

	r.in <- kafka.Message{Offset: 7, Value: []byte("bad")}

	require.Eventually(t, func() bool { return len(r.commits()) == 1 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, c.Stop(context.Background()))

	msgs := dlq.written()
	require.Len(t, msgs, 1)
	assert.Equal(t, "bad", string(msgs[0].Value))
	assert.Equal(t, "trades", string(msgs[0].Headers[0].Value))
}

func TestConsumerRequiresHandlers(t *testing.T) {
	c := newTestConsumer(t, newFakeReader())
	assert.Error(t, c.Start(context.Background()))
}

func TestBackoffIsBounded(t *testing.T) {
	for attempt := 1; attempt < 70; attempt++ {
		d := backoffWithJitter(10*time.Millisecond, 100*time.Millisecond, attempt)
		assert.LessOrEqual(t, d, 100*time.Millisecond)
		assert.Greater(t, d, time.Duration(0))
	}
}
