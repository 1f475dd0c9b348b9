package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campushq/campushq/internal/clock"
	trialdomain "github.com/campushq/campushq/internal/trial/domain"
)

type trialServiceStub struct {
	runs atomic.Int64
	err  error
}

func (s *trialServiceStub) RunCheck(ctx context.Context, triggeredBy string) (*trialdomain.RunSummary, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.runs.Add(1)
	return &trialdomain.RunSummary{
		RunID:       "run-1",
		TriggeredBy: triggeredBy,
	}, nil
}

func (s *trialServiceStub) LastRun(ctx context.Context) (*trialdomain.RunSummary, error) {
	return nil, trialdomain.ErrNoRunYet
}

func (s *trialServiceStub) ListTrials(ctx context.Context, req trialdomain.ListTrialsRequest) (*trialdomain.ListTrialsResponse, error) {
	return &trialdomain.ListTrialsResponse{}, nil
}

func (s *trialServiceStub) GetTrial(ctx context.Context, tenantID string) (*trialdomain.TrialRecord, error) {
	return nil, trialdomain.ErrTrialNotFound
}

func newScheduler(t *testing.T, svc trialdomain.Service, fakeClock clock.Clock, cfg Config) *Scheduler {
	t.Helper()
	sched, err := New(Params{
		Log:      zap.NewNop(),
		TrialSvc: svc,
		Clock:    fakeClock,
		Config:   cfg,
	})
	require.NoError(t, err)
	return sched
}

func TestNewRejectsMissingDependencies(t *testing.T) {
	_, err := New(Params{Log: zap.NewNop()})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNextRunAfter(t *testing.T) {
	sched := newScheduler(t, &trialServiceStub{},
		clock.NewFakeClock(time.Time{}), Config{RunAtHourUTC: 6})

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "before todays slot runs today",
			now:  time.Date(2026, time.March, 15, 3, 0, 0, 0, time.UTC),
			want: time.Date(2026, time.March, 15, 6, 0, 0, 0, time.UTC),
		},
		{
			name: "exactly at the slot waits for tomorrow",
			now:  time.Date(2026, time.March, 15, 6, 0, 0, 0, time.UTC),
			want: time.Date(2026, time.March, 16, 6, 0, 0, 0, time.UTC),
		},
		{
			name: "after todays slot runs tomorrow",
			now:  time.Date(2026, time.March, 15, 9, 30, 0, 0, time.UTC),
			want: time.Date(2026, time.March, 16, 6, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sched.NextRunAfter(tt.now))
		})
	}
}

func TestRunOnce(t *testing.T) {
	svc := &trialServiceStub{}
	sched := newScheduler(t, svc, clock.NewFakeClock(time.Now()), Config{})

	require.NoError(t, sched.RunOnce(context.Background()))
	assert.Equal(t, int64(1), svc.runs.Load())
}

func TestRunOnceSurfacesServiceError(t *testing.T) {
	svc := &trialServiceStub{err: errors.New("store down")}
	sched := newScheduler(t, svc, clock.NewFakeClock(time.Now()), Config{})

	err := sched.RunOnce(context.Background())
	require.Error(t, err)
}

func TestRunForeverFiresOncePerDay(t *testing.T) {
	start := time.Date(2026, time.March, 15, 5, 59, 0, 0, time.UTC)
	fakeClock := clock.NewFakeClock(start)
	svc := &trialServiceStub{}
	sched := newScheduler(t, svc, fakeClock, Config{
		RunAtHourUTC: 6,
		PollInterval: time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sched.RunForever(ctx)

	// Before the slot nothing fires.
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, svc.runs.Load())

	// Crossing the slot fires exactly once.
	fakeClock.Set(start.Add(2 * time.Minute))
	require.Eventually(t, func() bool {
		return svc.runs.Load() == 1
	}, time.Second, time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int64(1), svc.runs.Load())

	// The next day fires again.
	fakeClock.Set(start.AddDate(0, 0, 1).Add(2 * time.Minute))
	require.Eventually(t, func() bool {
		return svc.runs.Load() == 2
	}, time.Second, time.Millisecond)
}
