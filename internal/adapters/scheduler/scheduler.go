// Package scheduler runs the leaderboard resync on a fixed interval, either
// through asynq periodic tasks or an in-process ticker.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/okian/hotitems/internal/resync"
	"github.com/okian/hotitems/pkg/logger"
)

// Asynq task and queue names.
const (
	TaskResync  = "hotitems:resync"
	QueueResync = "resync"
)

// Trigger starts one synchronous resync run.
type Trigger interface {
	Trigger() error
}

// Runner is a started scheduler.
type Runner interface {
	Start(ctx context.Context) error
	Shutdown()
}

// Asynq enqueues the resync task periodically and handles it with a
// single-concurrency server, so at most one run executes across replicas.
type Asynq struct {
	interval  time.Duration
	job       Trigger
	scheduler *asynq.Scheduler
	server    *asynq.Server
	logger    logger.Logger
}

// NewAsynq builds the scheduler and server over the given Redis connection.
func NewAsynq(redis asynq.RedisConnOpt, interval time.Duration, job Trigger, opts ...Option) *Asynq {
	o := newOptions(opts)
	al := NewAsynqLogger(o.logger)
	return &Asynq{
		interval: interval,
		job:      job,
		scheduler: asynq.NewScheduler(redis, &asynq.SchedulerOpts{
			Logger:   al,
			Location: time.UTC,
		}),
		server: asynq.NewServer(redis, asynq.Config{
			Concurrency: 1,
			Queues:      map[string]int{QueueResync: 1},
			Logger:      al,
		}),
		logger: o.logger,
	}
}

// Spec returns the cron spec the task is registered with.
func (a *Asynq) Spec() string {
	return fmt.Sprintf("@every %s", a.interval)
}

// ResyncTask returns the periodic task. Its uniqueness lock spans one
// interval and failed runs are not retried; the next tick heals.
func (a *Asynq) ResyncTask() *asynq.Task {
	return asynq.NewTask(TaskResync, nil,
		asynq.Queue(QueueResync),
		asynq.Unique(a.interval),
		asynq.MaxRetry(0))
}

// Start registers the task and starts the scheduler and the server.
func (a *Asynq) Start(ctx context.Context) error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskResync, a.HandleResync)

	id, err := a.scheduler.Register(a.Spec(), a.ResyncTask())
	if err != nil {
		return fmt.Errorf("register resync task: %w", err)
	}
	if err := a.server.Start(mux); err != nil {
		return fmt.Errorf("start asynq server: %w", err)
	}
	if err := a.scheduler.Start(); err != nil {
		a.server.Shutdown()
		return fmt.Errorf("start asynq scheduler: %w", err)
	}
	a.logger.Info(ctx, "resync scheduled", logger.String("spec", a.Spec()), logger.String("entry", id))
	return nil
}

// Shutdown stops the scheduler, then waits for an in-flight run.
func (a *Asynq) Shutdown() {
	a.scheduler.Shutdown()
	a.server.Shutdown()
}

// HandleResync is the asynq handler for TaskResync.
func (a *Asynq) HandleResync(ctx context.Context, _ *asynq.Task) error {
	return run(ctx, a.job, a.logger)
}

// Ticker triggers the resync from a local ticker. Runs are sequential.
type Ticker struct {
	interval time.Duration
	job      Trigger
	logger   logger.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewTicker returns a Ticker firing every interval.
func NewTicker(interval time.Duration, job Trigger, opts ...Option) *Ticker {
	o := newOptions(opts)
	return &Ticker{interval: interval, job: job, logger: o.logger}
}

// Start begins ticking until ctx is done or Shutdown is called.
func (t *Ticker) Start(ctx context.Context) error {
	if t.interval <= 0 {
		return fmt.Errorf("ticker interval must be positive, got %s", t.interval)
	}
	ctx, t.cancel = context.WithCancel(ctx)
	t.done = make(chan struct{})

	go func() {
		defer close(t.done)
		tick := time.NewTicker(t.interval)
		defer tick.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tick.C:
				_ = run(ctx, t.job, t.logger)
			}
		}
	}()
	t.logger.Info(ctx, "resync scheduled", logger.Duration("interval", t.interval))
	return nil
}

// Shutdown stops the ticker and waits for a run in progress.
func (t *Ticker) Shutdown() {
	if t.cancel == nil {
		return
	}
	t.cancel()
	<-t.done
}

func run(ctx context.Context, job Trigger, l logger.Logger) error {
	err := job.Trigger()
	switch {
	case err == nil:
		return nil
	case errors.Is(err, resync.ErrAlreadyRunning):
		l.Info(ctx, "resync skipped, previous run still active")
		return nil
	default:
		return fmt.Errorf("resync: %w", err)
	}
}
