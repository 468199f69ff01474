package middleware

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"StockDesk/internal/domain/models"
	domrepo "StockDesk/internal/domain/repository"
	applogger "StockDesk/pkg/logger"
)

// ErrBufferFull is returned when an event failed delivery and the retry buffer has no room.
var ErrBufferFull = errors.New("journal retry buffer full")

// Proc is the minimal processor interface the pipeline needs.
type Proc interface {
	Process(ctx context.Context, e *models.TradeEvent) error
}

// JournalPipeline sits between the trade use case and the journal backend.
// It validates events, forwards them, and buffers the ones that failed so a
// background loop can retry them with backoff.
type JournalPipeline struct {
	proc       Proc
	metrics    domrepo.Metrics
	log        *applogger.Logger
	bufSize    int
	bufCh      chan *models.TradeEvent
	backoffMin time.Duration
	backoffMax time.Duration

	startOnce sync.Once
	stopOnce  sync.Once
	stopCh    chan struct{}
	done      chan struct{}
}

type PipelineOption func(*JournalPipeline)

// WithBufferSize sets how many failed events are kept for retry.
func WithBufferSize(n int) PipelineOption {
	return func(p *JournalPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithRetryBackoff bounds the delay between retries of a failing backend.
func WithRetryBackoff(min, max time.Duration) PipelineOption {
	return func(p *JournalPipeline) {
		if min > 0 {
			p.backoffMin = min
		}
		if max >= p.backoffMin {
			p.backoffMax = max
		}
	}
}

func WithLogger(l *applogger.Logger) PipelineOption {
	return func(p *JournalPipeline) {
		if l != nil {
			p.log = l
		}
	}
}

func NewJournalPipeline(proc Proc, metrics domrepo.Metrics, opts ...PipelineOption) *JournalPipeline {
	p := &JournalPipeline{
		proc:       proc,
		metrics:    metrics,
		log:        applogger.Nop(),
		bufSize:    1000,
		backoffMin: 50 * time.Millisecond,
		backoffMax: 2 * time.Second,
		stopCh:     make(chan struct{}),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan *models.TradeEvent, p.bufSize)
	return p
}

// Start launches the retry loop. Calling it more than once has no effect.
func (p *JournalPipeline) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		go p.retryLoop(ctx)
	})
}

func (p *JournalPipeline) retryLoop(ctx context.Context) {
	defer close(p.done)

	backoff := p.backoffMin
	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case e := <-p.bufCh:
			if err := p.proc.Process(ctx, e); err == nil {
				backoff = p.backoffMin
				continue
			}
			p.recordError("pipeline_retry")
			p.requeue(e)

			timer := time.NewTimer(backoff)
			select {
			case <-p.stopCh:
				timer.Stop()
				return
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
			backoff = min(backoff*2, p.backoffMax)
		}
	}
}

// Stop ends the retry loop and makes one last delivery attempt for whatever is
// still buffered. Events that fail again are logged and dropped.
func (p *JournalPipeline) Stop(ctx context.Context) error {
	p.stopOnce.Do(func() { close(p.stopCh) })

	p.startOnce.Do(func() { close(p.done) })
	select {
	case <-p.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	dropped := 0
	for {
		select {
		case e := <-p.bufCh:
			if err := p.proc.Process(ctx, e); err != nil {
				dropped++
			}
		default:
			if dropped > 0 {
				p.log.Error("journal events dropped on shutdown", applogger.Int("count", dropped))
				return fmt.Errorf("journal pipeline: %d events undelivered", dropped)
			}
			return nil
		}
	}
}

// Record validates and forwards e. A failed delivery is buffered for retry and
// only reported when the buffer is full.
func (p *JournalPipeline) Record(ctx context.Context, e *models.TradeEvent) error {
	start := time.Now()
	if err := validateEvent(e); err != nil {
		p.recordError("pipeline_validate")
		return err
	}

	err := p.proc.Process(ctx, e)
	if err == nil {
		if p.metrics != nil {
			p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
		}
		return nil
	}

	p.recordError("pipeline_process")
	if !p.requeue(e) {
		return fmt.Errorf("pipeline downstream: %w: %w", ErrBufferFull, err)
	}
	p.log.Warn("journal delivery failed, buffered for retry",
		applogger.String("id", e.ID),
		applogger.Int("buffered", len(p.bufCh)),
		applogger.Error(err),
	)
	return nil
}

// Buffered reports how many events wait for retry.
func (p *JournalPipeline) Buffered() int { return len(p.bufCh) }

func (p *JournalPipeline) requeue(e *models.TradeEvent) bool {
	select {
	case p.bufCh <- e:
		return true
	default:
		p.recordError("pipeline_buffer_full")
		return false
	}
}

func (p *JournalPipeline) recordError(kind string) {
	if p.metrics != nil {
		p.metrics.RecordError(kind)
	}
}

func validateEvent(e *models.TradeEvent) error {
	switch {
	case e == nil:
		return errors.New("trade event nil")
	case e.ID == "":
		return errors.New("trade event id empty")
	case e.Ticker == "":
		return errors.New("trade event ticker empty")
	case e.ExecutedAt.IsZero():
		return errors.New("trade event time missing")
	case e.Quantity <= 0 || e.Price < 0:
		return errors.New("trade event quantity or price invalid")
	}
	return nil
}
