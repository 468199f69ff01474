package usecase

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"StockDesk/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	mu      sync.Mutex
	events  []*models.TradeEvent
	batches int
	err     error
}

func (p *fakePublisher) Publish(_ context.Context, e *models.TradeEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *fakePublisher) PublishBatch(_ context.Context, events []*models.TradeEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.batches++
	p.events = append(p.events, events...)
	return p.err
}

func (p *fakePublisher) Close() error { return nil }

type fakeJournalStore struct {
	mu     sync.Mutex
	events []*models.TradeEvent
	query  struct {
		ticker string
		limit  int
	}
}

func (s *fakeJournalStore) Init(context.Context) error { return nil }

func (s *fakeJournalStore) Store(_ context.Context, e *models.TradeEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *fakeJournalStore) StoreBatch(_ context.Context, events []*models.TradeEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
	return nil
}

func (s *fakeJournalStore) Query(_ context.Context, ticker string, _, _ time.Time, limit int) ([]*models.TradeEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.query.ticker = ticker
	s.query.limit = limit
	return s.events, nil
}

func (s *fakeJournalStore) Health(context.Context) error { return nil }

func (s *fakeJournalStore) Close() error { return nil }

func sampleEvent() *models.TradeEvent {
	return &models.TradeEvent{
		ID:         "e-1",
		Ticker:     "AAPL",
		Action:     models.TradeBuy,
		Quantity:   2,
		Price:      100,
		Total:      200,
		ExecutedAt: time.Date(2024, 3, 5, 15, 0, 0, 0, time.UTC),
	}
}

func TestJournalRoutesByBackend(t *testing.T) {
	ctx := context.Background()

	pub, store := &fakePublisher{}, &fakeJournalStore{}
	kafka := NewJournalProcessor(pub, store, nil, nil, JournalKafka)
	require.NoError(t, kafka.Process(ctx, sampleEvent()))
	assert.Len(t, pub.events, 1)
	assert.Empty(t, store.events)

	pub, store = &fakePublisher{}, &fakeJournalStore{}
	ch := NewJournalProcessor(pub, store, nil, nil, JournalClickHouse)
	require.NoError(t, ch.ProcessBatch(ctx, []*models.TradeEvent{sampleEvent(), sampleEvent()}))
	assert.Empty(t, pub.events)
	assert.Len(t, store.events, 2)

	none := NewJournalProcessor(nil, nil, nil, nil, "")
	assert.Equal(t, JournalNone, none.Backend())
	assert.NoError(t, none.Process(ctx, sampleEvent()))

	bad := NewJournalProcessor(pub, store, nil, nil, "s3")
	assert.Error(t, bad.Process(ctx, sampleEvent()))
	assert.Error(t, bad.Process(ctx, nil))
}

func TestJournalProcessWrapsBackendError(t *testing.T) {
	pub := &fakePublisher{err: errUpstream}
	p := NewJournalProcessor(pub, nil, nil, nil, JournalKafka)

	err := p.Process(context.Background(), sampleEvent())
	assert.ErrorIs(t, err, errUpstream)
	assert.Contains(t, err.Error(), "e-1")
}

func TestJournalHistory(t *testing.T) {
	_, err := NewJournalProcessor(&fakePublisher{}, nil, nil, nil, JournalKafka).
		History(context.Background(), "AAPL", time.Time{}, time.Time{}, 10)
	assert.ErrorIs(t, err, models.ErrJournalDisabled)

	store := &fakeJournalStore{events: []*models.TradeEvent{sampleEvent()}}
	p := NewJournalProcessor(nil, store, nil, nil, JournalClickHouse)
	events, err := p.History(context.Background(), " aapl", time.Time{}, time.Time{}, 0)
	require.NoError(t, err)
	assert.Len(t, events, 1)
	assert.Equal(t, "AAPL", store.query.ticker)
	assert.Equal(t, 100, store.query.limit)
}

func TestTradeEventHandlerStoresEvents(t *testing.T) {
	store := &fakeJournalStore{}
	h := NewTradeEventHandler("stockdesk.trades", store, nil)
	assert.Equal(t, "stockdesk.trades", h.Topic())

	body, err := json.Marshal(sampleEvent())
	require.NoError(t, err)
	require.NoError(t, h.Handle(context.Background(), body))
	require.Len(t, store.events, 1)
	assert.Equal(t, "e-1", store.events[0].ID)
	assert.True(t, store.events[0].ExecutedAt.Equal(sampleEvent().ExecutedAt))

	assert.Error(t, h.Handle(context.Background(), []byte("{")))
	assert.Error(t, h.Handle(context.Background(), []byte(`{"ticker":"AAPL"}`)))
	assert.Len(t, store.events, 1)
}
