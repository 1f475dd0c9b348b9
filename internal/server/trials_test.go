package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campushq/campushq/internal/config"
	"github.com/campushq/campushq/internal/observability"
	trialdomain "github.com/campushq/campushq/internal/trial/domain"
	"github.com/campushq/campushq/pkg/db/pagination"
)

type trialServiceStub struct {
	lastTriggeredBy string
	runErr          error
	lastRun         *trialdomain.RunSummary
	trials          []trialdomain.TrialRecord
	listStates      []trialdomain.TrialState
}

func (s *trialServiceStub) RunCheck(ctx context.Context, triggeredBy string) (*trialdomain.RunSummary, error) {
	if s.runErr != nil {
		return nil, s.runErr
	}
	s.lastTriggeredBy = triggeredBy
	return &trialdomain.RunSummary{
		RunID:           "run-42",
		TriggeredBy:     triggeredBy,
		TrialsChecked:   3,
		WarningsSent:    1,
		PerTenantErrors: []trialdomain.TenantError{},
	}, nil
}

func (s *trialServiceStub) LastRun(ctx context.Context) (*trialdomain.RunSummary, error) {
	if s.lastRun == nil {
		return nil, trialdomain.ErrNoRunYet
	}
	return s.lastRun, nil
}

func (s *trialServiceStub) ListTrials(ctx context.Context, req trialdomain.ListTrialsRequest) (*trialdomain.ListTrialsResponse, error) {
	s.listStates = req.States
	return &trialdomain.ListTrialsResponse{
		Trials:   s.trials,
		PageInfo: &pagination.PageInfo{},
	}, nil
}

func (s *trialServiceStub) GetTrial(ctx context.Context, tenantID string) (*trialdomain.TrialRecord, error) {
	for i := range s.trials {
		if s.trials[i].TenantID == tenantID {
			return &s.trials[i], nil
		}
	}
	return nil, trialdomain.ErrTrialNotFound
}

func newTestServer(t *testing.T, svc trialdomain.Service) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	engine := NewEngine(observability.Config{Environment: "test"}, zap.NewNop())
	NewServer(ServerParams{
		Gin:      engine,
		Cfg:      config.Config{},
		TrialSvc: svc,
	})
	return engine
}

func doRequest(engine *gin.Engine, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestTriggerTrialRun(t *testing.T) {
	svc := &trialServiceStub{}
	engine := newTestServer(t, svc)

	w := doRequest(engine, http.MethodPost, "/v1/trial-runs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "manual", svc.lastTriggeredBy)

	var body struct {
		Data trialdomain.RunSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "run-42", body.Data.RunID)
	assert.Equal(t, 3, body.Data.TrialsChecked)
}

func TestTriggerTrialRunRecordsOperator(t *testing.T) {
	svc := &trialServiceStub{}
	engine := newTestServer(t, svc)

	w := doRequest(engine, http.MethodPost, "/v1/trial-runs", map[string]string{
		"X-Operator-Id": "alice",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "operator:alice", svc.lastTriggeredBy)
}

func TestTriggerTrialRunStoreUnavailable(t *testing.T) {
	svc := &trialServiceStub{runErr: trialdomain.ErrStoreUnavailable}
	engine := newTestServer(t, svc)

	w := doRequest(engine, http.MethodPost, "/v1/trial-runs", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestGetLastTrialRun(t *testing.T) {
	svc := &trialServiceStub{}
	engine := newTestServer(t, svc)

	w := doRequest(engine, http.MethodGet, "/v1/trial-runs/last", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	svc.lastRun = &trialdomain.RunSummary{RunID: "run-7", TriggeredBy: "scheduler"}
	w = doRequest(engine, http.MethodGet, "/v1/trial-runs/last", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data trialdomain.RunSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "run-7", body.Data.RunID)
}

func TestListTrials(t *testing.T) {
	endsAt := time.Date(2026, time.March, 20, 0, 0, 0, 0, time.UTC)
	svc := &trialServiceStub{trials: []trialdomain.TrialRecord{{
		TenantID:       "tenant-a",
		TrialStartedAt: endsAt.AddDate(0, 0, -30),
		TrialEndsAt:    endsAt,
		LifecycleState: trialdomain.StateWarned3D,
	}}}
	engine := newTestServer(t, svc)

	w := doRequest(engine, http.MethodGet, "/v1/trials?states=warned_3d,grace_period", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []trialdomain.TrialState{
		trialdomain.StateWarned3D,
		trialdomain.StateGracePeriod,
	}, svc.listStates)
}

func TestListTrialsRejectsUnknownState(t *testing.T) {
	engine := newTestServer(t, &trialServiceStub{})

	w := doRequest(engine, http.MethodGet, "/v1/trials?states=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetTrial(t *testing.T) {
	endsAt := time.Date(2026, time.March, 20, 0, 0, 0, 0, time.UTC)
	svc := &trialServiceStub{trials: []trialdomain.TrialRecord{{
		TenantID:       "tenant-a",
		TrialStartedAt: endsAt.AddDate(0, 0, -30),
		TrialEndsAt:    endsAt,
		LifecycleState: trialdomain.StateTrialing,
	}}}
	engine := newTestServer(t, svc)

	w := doRequest(engine, http.MethodGet, "/v1/trials/tenant-a", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(engine, http.MethodGet, "/v1/trials/tenant-x", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealth(t *testing.T) {
	engine := newTestServer(t, &trialServiceStub{})

	w := doRequest(engine, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
