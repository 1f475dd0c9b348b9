// Package domain contains the trial subscription lifecycle model.
package domain

import (
	"time"
)

// TrialState represents lifecycle states for a tenant trial.
//
// States advance monotonically along TRIALING -> WARNED_7D -> WARNED_3D ->
// WARNED_1D -> GRACE_PERIOD -> SUSPENDED. CONVERTED is reachable from any
// non-terminal state and is terminal; it is set by the billing flow, never
// by the lifecycle engine.
type TrialState string

const (
	StateTrialing    TrialState = "TRIALING"
	StateWarned7D    TrialState = "WARNED_7D"
	StateWarned3D    TrialState = "WARNED_3D"
	StateWarned1D    TrialState = "WARNED_1D"
	StateGracePeriod TrialState = "GRACE_PERIOD"
	StateSuspended   TrialState = "SUSPENDED"
	StateConverted   TrialState = "CONVERTED"
)

var stateRank = map[TrialState]int{
	StateTrialing:    0,
	StateWarned7D:    1,
	StateWarned3D:    2,
	StateWarned1D:    3,
	StateGracePeriod: 4,
	StateSuspended:   5,
}

// Rank returns the position of a state in the monotonic ordering.
// CONVERTED and unknown states report -1.
func (s TrialState) Rank() int {
	rank, ok := stateRank[s]
	if !ok {
		return -1
	}
	return rank
}

// Valid reports whether s is a known lifecycle state.
func (s TrialState) Valid() bool {
	return s == StateConverted || s.Rank() >= 0
}

// Terminal reports whether the engine will never advance past s.
func (s TrialState) Terminal() bool {
	return s == StateConverted || s == StateSuspended
}

// EventKind identifies a tenant-facing notification emitted on a
// boundary crossing.
type EventKind string

const (
	EventFirstWarning             EventKind = "trial.warning.first"
	EventSecondWarning            EventKind = "trial.warning.second"
	EventFinalWarning             EventKind = "trial.warning.final"
	EventTrialExpiredGraceStarted EventKind = "trial.grace.started"
	EventGraceReminder            EventKind = "trial.grace.reminder"
	EventAccountSuspended         EventKind = "trial.suspended"
)

// Warning reports whether the event is one of the pre-expiry warnings.
func (k EventKind) Warning() bool {
	switch k {
	case EventFirstWarning, EventSecondWarning, EventFinalWarning:
		return true
	default:
		return false
	}
}

// TrialRecord is one tenant's trial subscription state.
//
// trial_ends_at is derived once at trial creation and never changes;
// grace_ends_at is set only on entering GRACE_PERIOD and is always
// trial_ends_at + grace days, regardless of when the transition was
// actually observed.
type TrialRecord struct {
	TenantID          string     `gorm:"primaryKey;column:tenant_id" json:"tenant_id"`
	TrialStartedAt    time.Time  `gorm:"not null" json:"trial_started_at"`
	TrialEndsAt       time.Time  `gorm:"not null;index" json:"trial_ends_at"`
	LifecycleState    TrialState `gorm:"type:text;not null;index" json:"lifecycle_state"`
	GraceEndsAt       *time.Time `json:"grace_ends_at,omitempty"`
	LastNotifiedEvent *EventKind `gorm:"type:text" json:"last_notified_event,omitempty"`
	LastNotifiedAt    *time.Time `json:"last_notified_at,omitempty"`
	LastProcessedAt   *time.Time `json:"last_processed_at,omitempty"`
	CreatedAt         time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (TrialRecord) TableName() string { return "trial_records" }

// TenantError records one tenant's failure within an otherwise
// successful run.
type TenantError struct {
	TenantID string `json:"tenant_id"`
	Stage    string `json:"stage"`
	Message  string `json:"message"`
}

// RunSummary is the aggregate outcome of one lifecycle check run,
// returned verbatim to the operator UI or scheduler log.
type RunSummary struct {
	RunID             string        `json:"run_id"`
	TriggeredBy       string        `json:"triggered_by"`
	StartedAt         time.Time     `json:"started_at"`
	TrialsChecked     int           `json:"trials_checked"`
	WarningsSent      int           `json:"warnings_sent"`
	ExpiryNoticesSent int           `json:"expiry_notices_sent"`
	AccountsSuspended int           `json:"accounts_suspended"`
	ExecutionTimeMs   int64         `json:"execution_time_ms"`
	PerTenantErrors   []TenantError `json:"per_tenant_errors"`
}
