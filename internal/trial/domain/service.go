package domain

import (
	"context"
	"errors"

	"github.com/campushq/campushq/pkg/db/pagination"
)

var (
	// ErrTrialNotFound indicates the tenant has no trial record.
	ErrTrialNotFound = errors.New("trial record not found")

	// ErrInvalidTrialRecord indicates a record that fails validation
	// (unknown state, zero trial_ends_at, grace state without a
	// grace_ends_at). Such records are skipped, never mutated.
	ErrInvalidTrialRecord = errors.New("invalid trial record")

	// ErrStaleState indicates a conditional state write lost to a
	// concurrent run.
	ErrStaleState = errors.New("trial state changed concurrently")

	// ErrStoreUnavailable indicates the backing store could not be
	// queried; the whole run aborts rather than act on partial data.
	ErrStoreUnavailable = errors.New("trial store unavailable")

	// ErrNoRunYet indicates no lifecycle run has completed since boot.
	ErrNoRunYet = errors.New("no trial run recorded yet")
)

// ListTrialsRequest is the operator listing query.
type ListTrialsRequest struct {
	States     []TrialState
	Pagination pagination.Pagination
}

// ListTrialsResponse is one page of trial records.
type ListTrialsResponse struct {
	Trials   []TrialRecord
	PageInfo *pagination.PageInfo
}

// Service coordinates trial lifecycle runs.
type Service interface {
	// RunCheck executes one full lifecycle pass over all active
	// trials and returns the aggregated summary. triggeredBy records
	// who asked for the run ("scheduler" or an operator identity).
	RunCheck(ctx context.Context, triggeredBy string) (*RunSummary, error)

	// LastRun returns the most recent completed run summary, or
	// ErrNoRunYet.
	LastRun(ctx context.Context) (*RunSummary, error)

	// ListTrials returns a page of trial records for operators.
	ListTrials(ctx context.Context, req ListTrialsRequest) (*ListTrialsResponse, error)

	// GetTrial returns one tenant's record.
	GetTrial(ctx context.Context, tenantID string) (*TrialRecord, error)
}
