// Package engine holds the pure trial lifecycle decision logic.
//
// Evaluate never performs I/O: the coordinator feeds it a record and
// the current time, and it answers with at most one transition. When a
// record has missed several boundaries (scheduler downtime, clock
// skew) the guards are widened so only the latest applicable warning
// fires, instead of replaying every intermediate one.
package engine

import (
	"fmt"
	"time"

	"github.com/campushq/campushq/internal/trial/domain"
)

// Policy carries the tunable lifecycle knobs.
type Policy struct {
	// GraceDays is the read-only grace window length after trial end.
	GraceDays int
	// GraceReminders enables the daily reminder while in grace.
	GraceReminders bool
}

// DecisionKind classifies the engine's verdict for one record.
type DecisionKind string

const (
	DecisionNoop       DecisionKind = "noop"
	DecisionTransition DecisionKind = "transition"
	DecisionNotifyOnly DecisionKind = "notify_only"
	DecisionInvalid    DecisionKind = "invalid"
)

// Decision is the engine's verdict for one record at one instant.
type Decision struct {
	Kind        DecisionKind
	NewState    domain.TrialState
	Notify      *domain.EventKind
	GraceEndsAt *time.Time
	Reason      string
}

func noop(reason string) Decision {
	return Decision{Kind: DecisionNoop, Reason: reason}
}

func transition(to domain.TrialState, kind domain.EventKind, reason string) Decision {
	k := kind
	return Decision{Kind: DecisionTransition, NewState: to, Notify: &k, Reason: reason}
}

// Validate reports whether a record is safe to evaluate.
func Validate(rec domain.TrialRecord) error {
	if rec.TenantID == "" {
		return fmt.Errorf("%w: empty tenant id", domain.ErrInvalidTrialRecord)
	}
	if !rec.LifecycleState.Valid() {
		return fmt.Errorf("%w: unknown state %q", domain.ErrInvalidTrialRecord, rec.LifecycleState)
	}
	if rec.TrialEndsAt.IsZero() {
		return fmt.Errorf("%w: zero trial_ends_at", domain.ErrInvalidTrialRecord)
	}
	if rec.LifecycleState == domain.StateGracePeriod && rec.GraceEndsAt == nil {
		return fmt.Errorf("%w: grace state without grace_ends_at", domain.ErrInvalidTrialRecord)
	}
	return nil
}

// Evaluate decides the next step for one trial record. All boundary
// comparisons are inclusive: a record exactly at a boundary crosses it.
func Evaluate(now time.Time, rec domain.TrialRecord, p Policy) Decision {
	if err := Validate(rec); err != nil {
		return Decision{Kind: DecisionInvalid, Reason: err.Error()}
	}

	state := rec.LifecycleState
	if state.Terminal() {
		return noop("terminal state")
	}

	endsAt := rec.TrialEndsAt

	switch state {
	case domain.StateGracePeriod:
		if !now.Before(*rec.GraceEndsAt) {
			return transition(domain.StateSuspended, domain.EventAccountSuspended, "grace window elapsed")
		}
		if p.GraceReminders {
			k := domain.EventGraceReminder
			return Decision{Kind: DecisionNotifyOnly, Notify: &k, Reason: "grace reminder"}
		}
		return noop("within grace window")

	case domain.StateWarned1D:
		if !now.Before(endsAt) {
			graceEnds := endsAt.AddDate(0, 0, p.GraceDays)
			d := transition(domain.StateGracePeriod, domain.EventTrialExpiredGraceStarted, "trial expired")
			d.GraceEndsAt = &graceEnds
			return d
		}
		return noop("final warning already sent")

	case domain.StateTrialing, domain.StateWarned7D, domain.StateWarned3D:
		// Widened guards: a record that slept through earlier
		// boundaries gets only the latest applicable warning.
		if !now.Before(endsAt.AddDate(0, 0, -1)) {
			return transition(domain.StateWarned1D, domain.EventFinalWarning, "within 1 day of trial end")
		}
		if state != domain.StateWarned3D && !now.Before(endsAt.AddDate(0, 0, -3)) {
			return transition(domain.StateWarned3D, domain.EventSecondWarning, "within 3 days of trial end")
		}
		if state == domain.StateTrialing && !now.Before(endsAt.AddDate(0, 0, -7)) {
			return transition(domain.StateWarned7D, domain.EventFirstWarning, "within 7 days of trial end")
		}
		return noop("no boundary crossed")
	}

	return noop("no rule applies")
}
