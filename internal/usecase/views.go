package usecase

import (
	"context"
	"errors"
	"time"

	"StockDesk/pkg/fanout"
	xhttp "StockDesk/pkg/http"
	applogger "StockDesk/pkg/logger"
)

// viewRunner starts one aggregation per owner and screen and waits for it.
type viewRunner struct {
	sessions *fanout.Sessions
	log      *applogger.Logger
	observer fanout.Observer
}

func newViewRunner(sessions *fanout.Sessions, l *applogger.Logger, obs fanout.Observer) viewRunner {
	if sessions == nil {
		sessions = fanout.NewSessions()
	}
	if l == nil {
		l = applogger.Nop()
	}
	return viewRunner{sessions: sessions, log: l, observer: obs}
}

// run supersedes the owner's previous aggregation of the same screen, starts a new
// one and waits up to wait for it to publish. Fetches are detached from ctx so an
// impatient caller does not cut them short.
//
// When the wait expires the partial snapshot is returned without error.
func (r viewRunner) run(ctx context.Context, owner, screen string, wait time.Duration, tasks ...fanout.Task) (*fanout.Snapshot, error) {
	opts := []fanout.Option{
		fanout.WithName(screen),
		fanout.WithLogger(r.log),
		fanout.WithErrorKind(xhttp.KindOf),
	}
	if r.observer != nil {
		opts = append(opts, fanout.WithObserver(r.observer))
	}
	agg := fanout.New(opts...)

	if err := r.sessions.Start(context.WithoutCancel(ctx), owner+"/"+screen, agg, tasks...); err != nil {
		return nil, err
	}

	waitCtx := ctx
	if wait > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, wait)
		defer cancel()
	}

	snap, err := agg.Wait(waitCtx)
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		r.log.Debug("view not published before wait expired",
			applogger.String("screen", screen),
			applogger.String("owner", owner),
			applogger.Int("pending", snap.Pending),
		)
		return snap, nil
	}
	return snap, err
}
