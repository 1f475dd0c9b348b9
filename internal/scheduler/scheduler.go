// Package scheduler triggers the daily trial lifecycle check.
package scheduler

import (
	"context"
	"errors"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/campushq/campushq/internal/clock"
	trialdomain "github.com/campushq/campushq/internal/trial/domain"
)

var ErrInvalidConfig = errors.New("scheduler: missing dependencies")

type Params struct {
	fx.In

	Log      *zap.Logger
	TrialSvc trialdomain.Service
	Clock    clock.Clock
	Config   Config `optional:"true"`
}

type Scheduler struct {
	log      *zap.Logger
	cfg      Config
	clock    clock.Clock
	trialSvc trialdomain.Service
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.TrialSvc == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:      p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:      p.Config.withDefaults(),
		clock:    p.Clock,
		trialSvc: p.TrialSvc,
	}, nil
}

// RunOnce executes a single trial lifecycle run.
func (s *Scheduler) RunOnce(parent context.Context) error {
	ctx, cancel := context.WithTimeout(parent, s.cfg.RunTimeout)
	defer cancel()

	summary, err := s.trialSvc.RunCheck(ctx, "scheduler")
	if err != nil {
		return err
	}

	s.log.Info("daily trial check completed",
		zap.String("run_id", summary.RunID),
		zap.Int("trials_checked", summary.TrialsChecked),
		zap.Int("warnings_sent", summary.WarningsSent),
		zap.Int("expiry_notices_sent", summary.ExpiryNoticesSent),
		zap.Int("accounts_suspended", summary.AccountsSuspended),
		zap.Int("tenant_errors", len(summary.PerTenantErrors)),
		zap.Int64("execution_time_ms", summary.ExecutionTimeMs),
	)
	return nil
}

// NextRunAfter returns the first daily slot strictly after t.
func (s *Scheduler) NextRunAfter(t time.Time) time.Time {
	t = t.UTC()
	next := time.Date(t.Year(), t.Month(), t.Day(), s.cfg.RunAtHourUTC, 0, 0, 0, time.UTC)
	if !next.After(t) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// RunForever runs the daily check until ctx is cancelled. The loop
// compares the injected clock against the next slot on every tick, so
// a simulated clock drives it the same way wall time does.
func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	next := s.NextRunAfter(s.clock.Now())
	s.log.Info("daily trial check scheduled",
		zap.Int("run_at_hour_utc", s.cfg.RunAtHourUTC),
		zap.Time("next_run", next),
	)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := s.clock.Now()
			if now.Before(next) {
				continue
			}
			if err := s.RunOnce(ctx); err != nil {
				s.log.Warn("daily trial check failed", zap.Error(err))
			}
			next = s.NextRunAfter(now)
		}
	}
}
