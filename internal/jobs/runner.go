package jobs

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Spok95/expedition-bot/internal/ctxutil"
	"github.com/Spok95/expedition-bot/internal/metrics"
)

type Job func(ctx context.Context) error

type Runner struct {
	ctx context.Context
	log *zap.Logger
}

func New(ctx context.Context, log *zap.Logger) *Runner {
	return &Runner{ctx: ctx, log: log.Named("jobs")}
}

// Every запускает fn раз в interval, пока жив контекст раннера.
// Паника в задаче ловится и считается ошибкой запуска.
func (r *Runner) Every(interval time.Duration, name string, fn Job) {
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-r.ctx.Done():
				return
			case <-t.C:
				r.runOnce(name, fn)
			}
		}
	}()
}

func (r *Runner) runOnce(name string, fn Job) {
	start := time.Now()
	err := safeRun(ctxutil.WithOp(r.ctx, "job."+name), fn)
	if err != nil {
		r.log.Warn("job failed", zap.String("job", name), zap.Error(err))
	}
	metrics.ObserveJob(name, time.Since(start), err)
}

func safeRun(ctx context.Context, fn Job) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return fn(ctx)
}
