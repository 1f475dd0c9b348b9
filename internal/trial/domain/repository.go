package domain

import (
	"context"
	"time"

	"github.com/campushq/campushq/pkg/db/pagination"
)

// ListFilter narrows a trial listing.
type ListFilter struct {
	States []TrialState
}

// Store persists trial records.
//
// CompareAndSwapState is the only way the lifecycle engine mutates
// lifecycle_state: the write applies only when the row still holds
// expectedState, so two concurrent runs can never double-apply a
// transition.
type Store interface {
	// ListActiveTrials returns every record not in a terminal state,
	// ordered by tenant id.
	ListActiveTrials(ctx context.Context) ([]TrialRecord, error)

	// Get returns a single tenant's record or ErrTrialNotFound.
	Get(ctx context.Context, tenantID string) (*TrialRecord, error)

	// List returns a page of records for the operator UI.
	List(ctx context.Context, filter ListFilter, p pagination.Pagination) ([]TrialRecord, *pagination.PageInfo, error)

	// CompareAndSwapState atomically advances a record's state.
	// It returns false with a nil error when the record no longer
	// holds expectedState.
	CompareAndSwapState(ctx context.Context, tenantID string, expectedState, newState TrialState, update StateUpdate) (bool, error)

	// MarkProcessed stamps last_processed_at without touching state.
	MarkProcessed(ctx context.Context, tenantID string, at time.Time) error

	// CountByState returns record counts grouped by lifecycle state.
	CountByState(ctx context.Context) (map[TrialState]int64, error)
}

// StateUpdate carries the columns written alongside a state swap.
type StateUpdate struct {
	GraceEndsAt       *time.Time
	LastNotifiedEvent *EventKind
	LastNotifiedAt    *time.Time
	ProcessedAt       time.Time
}
