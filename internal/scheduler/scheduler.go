// Package scheduler runs periodic maintenance: stale pending orders and old
// security log rows are purged on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

type pendingOrderPurger interface {
	DeleteStalePending(ctx context.Context, cutoff time.Time) (int64, error)
}

type securityLogPurger interface {
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type Options struct {
	Schedule             string
	PendingOrderMaxAge   time.Duration
	SecurityLogRetention time.Duration
}

type Scheduler struct {
	cron    *cron.Cron
	orders  pendingOrderPurger
	logs    securityLogPurger
	opts    Options
	now     func() time.Time
	timeout time.Duration
}

func New(orders pendingOrderPurger, logs securityLogPurger, opts Options) (*Scheduler, error) {
	if opts.Schedule == "" {
		opts.Schedule = "@every 15m"
	}

	s := &Scheduler{
		cron:    cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger))),
		orders:  orders,
		logs:    logs,
		opts:    opts,
		now:     time.Now,
		timeout: time.Minute,
	}

	if _, err := s.cron.AddFunc(opts.Schedule, func() { s.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid cleanup schedule %q: %w", opts.Schedule, err)
	}

	return s, nil
}

// Start runs one cleanup pass immediately, then hands over to cron.
func (s *Scheduler) Start(ctx context.Context) {
	s.RunOnce(ctx)
	s.cron.Start()
	slog.Info("maintenance scheduler started", "schedule", s.opts.Schedule)
}

// Stop waits for a running job to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		slog.Warn("maintenance scheduler stop timed out")
	}
}

// RunOnce executes every cleanup task once. A zero retention disables the
// matching task.
func (s *Scheduler) RunOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	now := s.now().UTC()

	if s.orders != nil && s.opts.PendingOrderMaxAge > 0 {
		removed, err := s.orders.DeleteStalePending(ctx, now.Add(-s.opts.PendingOrderMaxAge))
		if err != nil {
			slog.Error("stale order cleanup failed", "error", err)
		} else if removed > 0 {
			slog.Info("stale pending orders removed", "count", removed)
		}
	}

	if s.logs != nil && s.opts.SecurityLogRetention > 0 {
		removed, err := s.logs.PurgeBefore(ctx, now.Add(-s.opts.SecurityLogRetention))
		if err != nil {
			slog.Error("security log purge failed", "error", err)
		} else if removed > 0 {
			slog.Info("security log rows purged", "count", removed)
		}
	}
}
