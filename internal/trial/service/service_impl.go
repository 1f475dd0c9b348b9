// Package service runs the trial lifecycle check over all tenants.
package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/campushq/campushq/internal/clock"
	"github.com/campushq/campushq/internal/config"
	"github.com/campushq/campushq/internal/notifier"
	"github.com/campushq/campushq/internal/observability/metrics"
	trialdomain "github.com/campushq/campushq/internal/trial/domain"
	"github.com/campushq/campushq/internal/trial/engine"
)

type Params struct {
	fx.In

	Config     config.Config
	Store      trialdomain.Store
	Dispatcher notifier.Dispatcher
	Clock      clock.Clock
	Snowflake  *snowflake.Node
	Logger     *zap.Logger
}

type service struct {
	cfg        config.TrialConfig
	store      trialdomain.Store
	dispatcher notifier.Dispatcher
	clock      clock.Clock
	node       *snowflake.Node
	log        *zap.Logger

	mu      sync.Mutex
	lastRun *trialdomain.RunSummary
}

// Provide builds the trial lifecycle service.
func Provide(p Params) trialdomain.Service {
	return &service{
		cfg:        p.Config.Trial,
		store:      p.Store,
		dispatcher: p.Dispatcher,
		clock:      p.Clock,
		node:       p.Snowflake,
		log:        p.Logger.Named("trial"),
	}
}

// runCollector aggregates per-tenant outcomes under one lock.
type runCollector struct {
	mu      sync.Mutex
	summary *trialdomain.RunSummary
}

func (c *runCollector) counted(kind trialdomain.EventKind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case kind.Warning():
		c.summary.WarningsSent++
	case kind == trialdomain.EventAccountSuspended:
		c.summary.AccountsSuspended++
	default:
		c.summary.ExpiryNoticesSent++
	}
}

func (c *runCollector) failed(tenantID, stage string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.summary.PerTenantErrors = append(c.summary.PerTenantErrors, trialdomain.TenantError{
		TenantID: tenantID,
		Stage:    stage,
		Message:  err.Error(),
	})
}

func (s *service) RunCheck(ctx context.Context, triggeredBy string) (*trialdomain.RunSummary, error) {
	now := s.clock.Now()
	runID := s.node.Generate().String()

	ctx, span := otel.Tracer("campushq/trial").Start(ctx, "trial.run_check")
	span.SetAttributes(
		attribute.String("run_id", runID),
		attribute.String("triggered_by", triggeredBy),
	)
	defer span.End()

	log := s.log.With(
		zap.String("run_id", runID),
		zap.String("triggered_by", triggeredBy),
	)
	log.Info("trial lifecycle run starting")

	// A listing failure aborts the whole run before any mutation.
	records, err := s.store.ListActiveTrials(ctx)
	if err != nil {
		span.RecordError(err)
		log.Error("listing active trials failed", zap.Error(err))
		return nil, err
	}

	collector := &runCollector{summary: &trialdomain.RunSummary{
		RunID:           runID,
		TriggeredBy:     triggeredBy,
		StartedAt:       now,
		TrialsChecked:   len(records),
		PerTenantErrors: []trialdomain.TenantError{},
	}}
	policy := engine.Policy{
		GraceDays:      s.cfg.GraceDays,
		GraceReminders: s.cfg.GraceReminders,
	}

	var g errgroup.Group
	concurrency := s.cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	g.SetLimit(concurrency)

	for _, rec := range records {
		rec := rec
		g.Go(func() error {
			s.processTenant(ctx, now, rec, policy, collector)
			return nil
		})
	}
	_ = g.Wait()

	summary := collector.summary
	sort.Slice(summary.PerTenantErrors, func(i, j int) bool {
		return summary.PerTenantErrors[i].TenantID < summary.PerTenantErrors[j].TenantID
	})
	elapsed := s.clock.Now().Sub(now)
	summary.ExecutionTimeMs = elapsed.Milliseconds()

	span.SetAttributes(
		attribute.Int("trials_checked", summary.TrialsChecked),
		attribute.Int("tenant_errors", len(summary.PerTenantErrors)),
	)

	metrics.Trial().IncRun(triggeredBy)
	metrics.Trial().ObserveRunDuration(triggeredBy, elapsed)

	s.mu.Lock()
	s.lastRun = summary
	s.mu.Unlock()

	if counts, countErr := s.store.CountByState(ctx); countErr == nil {
		log.Debug("trial state census", zap.Any("counts", counts))
	}

	log.Info("trial lifecycle run finished",
		zap.Int("trials_checked", summary.TrialsChecked),
		zap.Int("warnings_sent", summary.WarningsSent),
		zap.Int("expiry_notices_sent", summary.ExpiryNoticesSent),
		zap.Int("accounts_suspended", summary.AccountsSuspended),
		zap.Int("tenant_errors", len(summary.PerTenantErrors)),
		zap.Int64("execution_time_ms", summary.ExecutionTimeMs),
	)
	return summary, nil
}

// processTenant walks one record through at most two decisions: the
// second pass exists only for a record that entered GRACE_PERIOD with
// its grace window already elapsed, so the suspension still passes
// through a real grace state.
func (s *service) processTenant(ctx context.Context, now time.Time, rec trialdomain.TrialRecord, policy engine.Policy, collector *runCollector) {
	for pass := 0; pass < 2; pass++ {
		decision := engine.Evaluate(now, rec, policy)

		switch decision.Kind {
		case engine.DecisionInvalid:
			metrics.Trial().IncTenantError(metrics.TrialStageInvalid)
			collector.failed(rec.TenantID, metrics.TrialStageInvalid, trialdomain.ErrInvalidTrialRecord)
			s.log.Warn("skipping invalid trial record",
				zap.String("tenant_id", rec.TenantID),
				zap.String("reason", decision.Reason),
			)
			return

		case engine.DecisionNoop:
			if err := s.store.MarkProcessed(ctx, rec.TenantID, now); err != nil {
				metrics.Trial().IncTenantError(metrics.TrialStageWrite)
				collector.failed(rec.TenantID, metrics.TrialStageWrite, err)
			}
			return

		case engine.DecisionNotifyOnly:
			if err := s.dispatcher.Notify(ctx, rec, *decision.Notify); err != nil {
				metrics.Trial().IncTenantError(metrics.TrialStageNotify)
				collector.failed(rec.TenantID, metrics.TrialStageNotify, err)
			} else {
				collector.counted(*decision.Notify)
			}
			if err := s.store.MarkProcessed(ctx, rec.TenantID, now); err != nil {
				metrics.Trial().IncTenantError(metrics.TrialStageWrite)
				collector.failed(rec.TenantID, metrics.TrialStageWrite, err)
			}
			return

		case engine.DecisionTransition:
			applied := s.applyTransition(ctx, now, rec, decision, collector)
			if !applied {
				return
			}
			rec.LifecycleState = decision.NewState
			if decision.GraceEndsAt != nil {
				rec.GraceEndsAt = decision.GraceEndsAt
			}
			if decision.NewState == trialdomain.StateGracePeriod &&
				rec.GraceEndsAt != nil && !now.Before(*rec.GraceEndsAt) {
				continue
			}
			return

		default:
			return
		}
	}
}

// applyTransition performs the state write first and only then
// notifies: a crash between the two loses a notification, never a
// state change. It reports whether the write won.
func (s *service) applyTransition(ctx context.Context, now time.Time, rec trialdomain.TrialRecord, decision engine.Decision, collector *runCollector) bool {
	update := trialdomain.StateUpdate{
		GraceEndsAt:       decision.GraceEndsAt,
		LastNotifiedEvent: decision.Notify,
		LastNotifiedAt:    &now,
		ProcessedAt:       now,
	}

	swapped, err := s.store.CompareAndSwapState(ctx, rec.TenantID, rec.LifecycleState, decision.NewState, update)
	if err != nil {
		// One retry covers transient store hiccups.
		swapped, err = s.store.CompareAndSwapState(ctx, rec.TenantID, rec.LifecycleState, decision.NewState, update)
	}
	if err != nil {
		metrics.Trial().IncTenantError(metrics.TrialStageWrite)
		collector.failed(rec.TenantID, metrics.TrialStageWrite, err)
		return false
	}
	if !swapped {
		// A concurrent run already advanced this record.
		metrics.Trial().IncCASConflict()
		s.log.Debug("state write lost to concurrent run",
			zap.String("tenant_id", rec.TenantID),
			zap.String("expected_state", string(rec.LifecycleState)),
		)
		return false
	}

	metrics.Trial().IncTransition(string(rec.LifecycleState), string(decision.NewState))
	s.log.Info("trial state advanced",
		zap.String("tenant_id", rec.TenantID),
		zap.String("from", string(rec.LifecycleState)),
		zap.String("to", string(decision.NewState)),
		zap.String("reason", decision.Reason),
	)

	notified := rec
	notified.LifecycleState = decision.NewState
	if decision.GraceEndsAt != nil {
		notified.GraceEndsAt = decision.GraceEndsAt
	}
	if err := s.dispatcher.Notify(ctx, notified, *decision.Notify); err != nil {
		metrics.Trial().IncTenantError(metrics.TrialStageNotify)
		collector.failed(rec.TenantID, metrics.TrialStageNotify, err)
		s.log.Warn("notification failed after state write",
			zap.String("tenant_id", rec.TenantID),
			zap.String("kind", string(*decision.Notify)),
			zap.Error(err),
		)
	} else {
		collector.counted(*decision.Notify)
	}
	return true
}

func (s *service) LastRun(ctx context.Context) (*trialdomain.RunSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastRun == nil {
		return nil, trialdomain.ErrNoRunYet
	}
	summary := *s.lastRun
	return &summary, nil
}

func (s *service) ListTrials(ctx context.Context, req trialdomain.ListTrialsRequest) (*trialdomain.ListTrialsResponse, error) {
	records, pageInfo, err := s.store.List(ctx, trialdomain.ListFilter{States: req.States}, req.Pagination)
	if err != nil {
		return nil, err
	}
	return &trialdomain.ListTrialsResponse{Trials: records, PageInfo: pageInfo}, nil
}

func (s *service) GetTrial(ctx context.Context, tenantID string) (*trialdomain.TrialRecord, error) {
	return s.store.Get(ctx, tenantID)
}
