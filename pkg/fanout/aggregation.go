// Package fanout runs independent fetches concurrently and joins their results
// into one composite record that is published exactly once.
package fanout

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	applogger "StockDesk/pkg/logger"
)

var (
	ErrAlreadyStarted = errors.New("fanout: aggregation already started")
	ErrSuperseded     = errors.New("fanout: aggregation superseded")
)

// Observer receives per-fetch and per-publish measurements.
type Observer interface {
	ObserveFetch(key string, elapsed time.Duration, err error)
	ObservePublish(name string, state State, elapsed time.Duration)
}

// Option configures an Aggregation.
type Option func(*Aggregation)

// WithName labels logs and metrics.
func WithName(name string) Option {
	return func(a *Aggregation) { a.name = name }
}

// WithLogger sets the logger for fetch failures and publish events. Nil keeps the no-op logger.
func WithLogger(l *applogger.Logger) Option {
	return func(a *Aggregation) {
		if l != nil {
			a.log = l
		}
	}
}

// WithObserver reports fetch timings and the published state, typically to metrics.
func WithObserver(o Observer) Option {
	return func(a *Aggregation) { a.observer = o }
}

// WithSubscriber sets the single receiver of the published record.
// It runs on the aggregation's collector goroutine.
func WithSubscriber(fn func(*Snapshot)) Option {
	return func(a *Aggregation) { a.subscriber = fn }
}

// WithReadyHook is called once when every required key is present and no
// parent task can add another.
func WithReadyHook(fn func(*Snapshot)) Option {
	return func(a *Aggregation) { a.onReady = fn }
}

// WithErrorKind sets how failures are classified in logs.
func WithErrorKind(fn func(error) string) Option {
	return func(a *Aggregation) { a.errorKind = fn }
}

// outcome is what a fetch goroutine hands to the collector.
type outcome struct {
	task    Task
	value   any
	err     error
	elapsed time.Duration
}

// Aggregation is one run of fanning out fetches and joining on their completion.
//
// Fetch goroutines only send outcomes; the collector goroutine is the single
// writer of the record, the outstanding counter and the required set.
type Aggregation struct {
	name       string
	log        *applogger.Logger
	observer   Observer
	subscriber func(*Snapshot)
	onReady    func(*Snapshot)
	afterDone  []func()
	errorKind  func(error) string

	results chan outcome

	// collector-owned
	values      map[string]any
	failures    map[string]error
	missing     map[string]struct{}
	outstanding int
	// parents counts unresolved tasks with Then; their children may add required keys.
	parents int
	ready   bool

	mu        sync.RWMutex
	state     State
	latest    *Snapshot
	startedAt time.Time

	superseded   atomic.Bool
	supersededCh chan struct{}
	done         chan struct{}
}

// New creates an idle aggregation.
func New(opts ...Option) *Aggregation {
	a := &Aggregation{
		name:         "aggregation",
		log:          applogger.Nop(),
		errorKind:    func(error) string { return "error" },
		results:      make(chan outcome),
		values:       make(map[string]any),
		failures:     make(map[string]error),
		missing:      make(map[string]struct{}),
		supersededCh: make(chan struct{}),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.latest = &Snapshot{Name: a.name, State: StateIdle, values: map[string]any{}}
	return a
}

// Start launches every task concurrently. With no tasks the record is published immediately.
func (a *Aggregation) Start(ctx context.Context, tasks ...Task) error {
	a.mu.Lock()
	if a.state != StateIdle {
		a.mu.Unlock()
		return ErrAlreadyStarted
	}
	a.state = StateLoading
	a.startedAt = time.Now()
	a.mu.Unlock()

	// the collector is not running yet, so these writes are not shared
	a.outstanding = len(tasks)
	a.track(tasks)
	a.refresh()

	go a.collect(ctx)
	for _, t := range tasks {
		a.launch(ctx, t)
	}
	return nil
}

// Supersede detaches the aggregation from its owner. In-flight fetches keep
// running, but nothing they return is merged or published.
func (a *Aggregation) Supersede() {
	if a.superseded.CompareAndSwap(false, true) {
		close(a.supersededCh)
	}
}

// Superseded reports whether Supersede was called.
func (a *Aggregation) Superseded() bool {
	return a.superseded.Load()
}

// Done is closed after the subscriber has received the record.
func (a *Aggregation) Done() <-chan struct{} {
	return a.done
}

// Snapshot returns the latest view of the record.
func (a *Aggregation) Snapshot() *Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.latest
}

// Wait blocks until publish, supersession or ctx expiry and returns the latest snapshot.
// Returning early does not stop the aggregation.
func (a *Aggregation) Wait(ctx context.Context) (*Snapshot, error) {
	select {
	case <-a.done:
		return a.finished()
	default:
	}

	select {
	case <-a.done:
		return a.finished()
	case <-a.supersededCh:
		return a.Snapshot(), ErrSuperseded
	case <-ctx.Done():
		return a.Snapshot(), ctx.Err()
	}
}

func (a *Aggregation) finished() (*Snapshot, error) {
	if a.superseded.Load() {
		return a.Snapshot(), ErrSuperseded
	}
	return a.Snapshot(), nil
}

func (a *Aggregation) launch(ctx context.Context, t Task) {
	go func() {
		start := time.Now()
		value, err := run(ctx, t)
		a.results <- outcome{task: t, value: value, err: err, elapsed: time.Since(start)}
	}()
}

func run(ctx context.Context, t Task) (value any, err error) {
	if t.fetch == nil {
		return nil, fmt.Errorf("fanout: task %q has no fetch function", t.Key)
	}
	defer func() {
		if r := recover(); r != nil {
			value, err = nil, fmt.Errorf("fanout: task %q panicked: %v", t.Key, r)
		}
	}()
	return t.fetch(ctx)
}

func (a *Aggregation) collect(ctx context.Context) {
	for a.outstanding > 0 {
		a.apply(ctx, <-a.results)
	}
	a.publish()
}

func (a *Aggregation) apply(ctx context.Context, o outcome) {
	a.outstanding--
	if o.task.then != nil {
		a.parents--
	}
	if a.observer != nil {
		a.observer.ObserveFetch(o.task.Key, o.elapsed, o.err)
	}

	if a.superseded.Load() {
		return
	}

	if o.err != nil {
		a.failures[o.task.Key] = o.err
		a.log.Warn("fetch failed",
			applogger.String("aggregation", a.name),
			applogger.String("key", o.task.Key),
			applogger.String("kind", a.errorKind(o.err)),
			applogger.Bool("required", o.task.Required),
			applogger.Error(o.err),
		)
	} else {
		a.values[o.task.Key] = o.value
		delete(a.failures, o.task.Key)
		delete(a.missing, o.task.Key)

		if o.task.then != nil {
			children := o.task.then(o.value)
			a.outstanding += len(children)
			a.track(children)
			for _, c := range children {
				a.launch(ctx, c)
			}
		}
	}

	a.refresh()
}

// track registers the required keys and parents of tasks about to launch.
func (a *Aggregation) track(tasks []Task) {
	for _, t := range tasks {
		if t.Required {
			a.missing[t.Key] = struct{}{}
		}
		if t.then != nil {
			a.parents++
		}
	}
}

// refresh re-derives readiness and stores a new snapshot for readers. The
// record is ready only when no required key is missing and no parent can still
// add one.
func (a *Aggregation) refresh() {
	ready := len(a.missing) == 0 && a.parents == 0
	becameReady := ready && !a.ready
	a.ready = ready

	a.mu.Lock()
	if ready {
		a.state = StateReady
	} else {
		a.state = StateLoading
	}
	snap := a.snapshotLocked(false)
	a.latest = snap
	a.mu.Unlock()

	if becameReady && a.onReady != nil && !a.superseded.Load() {
		a.onReady(snap)
	}
}

func (a *Aggregation) publish() {
	a.mu.Lock()
	if a.ready {
		a.state = StateReady
	} else {
		a.state = StateIncomplete
	}
	snap := a.snapshotLocked(true)
	a.latest = snap
	elapsed := time.Since(a.startedAt)
	a.mu.Unlock()

	defer close(a.done)

	if a.superseded.Load() {
		a.log.Debug("superseded aggregation drained",
			applogger.String("aggregation", a.name),
			applogger.Duration("elapsed_ms", elapsed),
		)
		return
	}

	if a.observer != nil {
		a.observer.ObservePublish(a.name, snap.State, elapsed)
	}
	a.log.Debug("aggregation published",
		applogger.String("aggregation", a.name),
		applogger.String("state", snap.State.String()),
		applogger.Int("values", len(snap.values)),
		applogger.Int("failures", len(snap.Errors)),
		applogger.Duration("elapsed_ms", elapsed),
	)

	if a.subscriber != nil {
		a.subscriber(snap)
	}
	for _, fn := range a.afterDone {
		fn()
	}
}

func (a *Aggregation) snapshotLocked(published bool) *Snapshot {
	values := make(map[string]any, len(a.values))
	for k, v := range a.values {
		values[k] = v
	}

	var errs map[string]error
	if len(a.failures) > 0 {
		errs = make(map[string]error, len(a.failures))
		for k, err := range a.failures {
			errs[k] = err
		}
	}

	var missing []string
	for k := range a.missing {
		missing = append(missing, k)
	}
	sort.Strings(missing)

	return &Snapshot{
		Name:      a.name,
		State:     a.state,
		Ready:     a.ready,
		Published: published,
		Pending:   a.outstanding,
		Missing:   missing,
		Errors:    errs,
		values:    values,
	}
}
