package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"StockDesk/internal/domain/models"
	domrepo "StockDesk/internal/domain/repository"
	pkgkafka "StockDesk/pkg/kafka"
	applogger "StockDesk/pkg/logger"
	"StockDesk/pkg/util"
)

// Journal backends.
const (
	JournalNone       = "none"
	JournalKafka      = "kafka"
	JournalClickHouse = "clickhouse"
)

// JournalProcessor routes trade events to the configured backend and answers
// history queries when a store is attached.
type JournalProcessor struct {
	pub     domrepo.TradePublisher
	store   domrepo.JournalStore
	metrics domrepo.Metrics
	log     *applogger.Logger
	backend string
}

func NewJournalProcessor(
	pub domrepo.TradePublisher,
	store domrepo.JournalStore,
	metrics domrepo.Metrics,
	l *applogger.Logger,
	backend string,
) *JournalProcessor {
	if backend == "" {
		backend = JournalNone
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &JournalProcessor{
		pub:     pub,
		store:   store,
		metrics: metrics,
		log:     l,
		backend: backend,
	}
}

func (p *JournalProcessor) Backend() string { return p.backend }

// Process delivers one event. With backend none the event is dropped.
func (p *JournalProcessor) Process(ctx context.Context, e *models.TradeEvent) error {
	if e == nil {
		return errors.New("trade event is nil")
	}

	start := time.Now()
	var err error

	switch p.backend {
	case JournalNone:
		return nil
	case JournalKafka:
		err = p.pub.Publish(ctx, e)
	case JournalClickHouse:
		err = p.store.Store(ctx, e)
	default:
		err = fmt.Errorf("unknown journal backend: %s", p.backend)
	}

	p.observe(err, time.Since(start), "journal")
	if err != nil {
		return fmt.Errorf("journal trade %s: %w", e.ID, err)
	}
	return nil
}

// ProcessBatch delivers events in one call to the backend.
func (p *JournalProcessor) ProcessBatch(ctx context.Context, events []*models.TradeEvent) error {
	if len(events) == 0 || p.backend == JournalNone {
		return nil
	}

	start := time.Now()
	var err error

	switch p.backend {
	case JournalKafka:
		err = p.pub.PublishBatch(ctx, events)
	case JournalClickHouse:
		err = p.store.StoreBatch(ctx, events)
	default:
		err = fmt.Errorf("unknown journal backend: %s", p.backend)
	}

	p.observe(err, time.Since(start), "journal_batch")
	if err != nil {
		return fmt.Errorf("journal batch of %d: %w", len(events), err)
	}
	return nil
}

func (p *JournalProcessor) observe(err error, d time.Duration, op string) {
	if p.metrics == nil {
		return
	}
	p.metrics.RecordJournal(p.backend, err == nil)
	if err != nil {
		p.metrics.RecordError(op)
		return
	}
	p.metrics.RecordLatency(op, d.Seconds())
}

// History lists journal entries newest first. It needs a ClickHouse store;
// zero from/to leave that side of the range open.
func (p *JournalProcessor) History(ctx context.Context, ticker string, from, to time.Time, limit int) ([]*models.TradeEvent, error) {
	if p.store == nil {
		return nil, models.ErrJournalDisabled
	}
	if limit <= 0 {
		limit = 100
	}
	if ticker != "" {
		ticker = util.NormalizeTicker(ticker)
	}
	events, err := p.store.Query(ctx, ticker, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("journal history: %w", err)
	}
	return events, nil
}

// Health checks the store, if any.
func (p *JournalProcessor) Health(ctx context.Context) error {
	if p.store == nil {
		return nil
	}
	return p.store.Health(ctx)
}

// Close closes underlying resources if available.
func (p *JournalProcessor) Close() {
	if p.pub != nil {
		if err := p.pub.Close(); err != nil {
			p.log.Warn("journal publisher close", applogger.Error(err))
		}
	}
	if p.store != nil {
		if err := p.store.Close(); err != nil {
			p.log.Warn("journal store close", applogger.Error(err))
		}
	}
}

// TradeEventHandler consumes journal events from Kafka and writes them to the store.
type TradeEventHandler struct {
	topic   string
	store   domrepo.JournalStore
	metrics domrepo.Metrics
}

func NewTradeEventHandler(topic string, store domrepo.JournalStore, metrics domrepo.Metrics) *TradeEventHandler {
	return &TradeEventHandler{topic: topic, store: store, metrics: metrics}
}

func (h *TradeEventHandler) Topic() string { return h.topic }

func (h *TradeEventHandler) Handle(ctx context.Context, b []byte) error {
	var e models.TradeEvent
	if err := json.Unmarshal(b, &e); err != nil {
		h.recordError("consumer_unmarshal")
		return fmt.Errorf("decode trade event: %w", err)
	}
	if e.ID == "" || e.Ticker == "" {
		h.recordError("consumer_invalid")
		return fmt.Errorf("trade event missing id or ticker")
	}

	start := time.Now()
	err := h.store.Store(ctx, &e)
	if h.metrics != nil {
		h.metrics.RecordJournal(JournalClickHouse, err == nil)
		h.metrics.RecordLatency("journal_consume", time.Since(start).Seconds())
	}
	if err != nil {
		h.recordError("consumer_store")
		return err
	}
	return nil
}

func (h *TradeEventHandler) recordError(kind string) {
	if h.metrics != nil {
		h.metrics.RecordError(kind)
	}
}

var _ pkgkafka.MessageHandler = (*TradeEventHandler)(nil)
