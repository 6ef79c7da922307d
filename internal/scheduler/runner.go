// Package scheduler drives recurring report execution. A cron ticker enqueues
// sweep jobs onto a worker queue so slow generations never block the clock.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/noah-isme/hms-report-api/pkg/jobs"
)

// DueRunner fires schedules that are due at a given instant.
type DueRunner interface {
	RunDue(ctx context.Context, asOf time.Time) (int, error)
}

// Config tunes the runner.
type Config struct {
	TickInterval time.Duration
	Workers      int
	Logger       *zap.Logger
}

// Runner periodically sweeps due schedules.
type Runner struct {
	service DueRunner
	cron    *cron.Cron
	queue   *jobs.Queue
	tick    time.Duration
	logger  *zap.Logger
}

// NewRunner constructs the runner with defaults applied.
func NewRunner(service DueRunner, cfg Config) *Runner {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Minute
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	r := &Runner{
		service: service,
		cron:    cron.New(),
		tick:    cfg.TickInterval,
		logger:  cfg.Logger,
	}
	r.queue = jobs.NewQueue("schedule-sweep", r.handleSweep, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.Workers * 2,
		Logger:     cfg.Logger,
	})
	return r
}

// Start begins ticking. The context bounds worker lifetime.
func (r *Runner) Start(ctx context.Context) error {
	r.queue.Start(ctx)

	spec := fmt.Sprintf("@every %s", r.tick)
	if _, err := r.cron.AddFunc(spec, r.enqueueSweep); err != nil {
		return fmt.Errorf("register schedule sweep: %w", err)
	}
	r.cron.Start()
	r.logger.Info("schedule runner started", zap.Duration("tick", r.tick))
	return nil
}

// Stop halts the ticker and drains in-flight sweeps.
func (r *Runner) Stop() {
	stopCtx := r.cron.Stop()
	<-stopCtx.Done()
	r.queue.Stop()
	r.logger.Info("schedule runner stopped")
}

func (r *Runner) enqueueSweep() {
	job := jobs.Job{
		ID:      uuid.NewString(),
		Kind:    "schedule-sweep",
		Payload: time.Now().UTC(),
	}
	if err := r.queue.Enqueue(job); err != nil {
		r.logger.Warn("failed to enqueue schedule sweep", zap.Error(err))
	}
}

func (r *Runner) handleSweep(ctx context.Context, job jobs.Job) error {
	asOf, ok := job.Payload.(time.Time)
	if !ok {
		asOf = time.Now().UTC()
	}
	fired, err := r.service.RunDue(ctx, asOf)
	if err != nil {
		return err
	}
	if fired > 0 {
		r.logger.Info("schedules fired", zap.Int("count", fired), zap.Time("as_of", asOf))
	}
	return nil
}
