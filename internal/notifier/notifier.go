// Package notifier fans lifecycle events out to tenant admins and the
// operations channel.
package notifier

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/campushq/campushq/internal/observability/metrics"
	"github.com/campushq/campushq/internal/providers/email"
	"github.com/campushq/campushq/internal/providers/slack"
	tenantdomain "github.com/campushq/campushq/internal/tenant/domain"
	trialdomain "github.com/campushq/campushq/internal/trial/domain"
)

// Dispatcher delivers one lifecycle event for one tenant. Delivery is
// best effort: a failure is reported to the caller but never blocks
// the state machine.
type Dispatcher interface {
	Notify(ctx context.Context, rec trialdomain.TrialRecord, kind trialdomain.EventKind) error
}

type dispatcher struct {
	directory  tenantdomain.Directory
	email      email.Provider
	slack      slack.Provider
	opsChannel string
	log        *zap.Logger
}

// New builds the dispatcher.
func New(directory tenantdomain.Directory, emailProvider email.Provider, slackProvider slack.Provider, opsChannel string, log *zap.Logger) Dispatcher {
	return &dispatcher{
		directory:  directory,
		email:      emailProvider,
		slack:      slackProvider,
		opsChannel: opsChannel,
		log:        log.Named("notifier"),
	}
}

func (d *dispatcher) Notify(ctx context.Context, rec trialdomain.TrialRecord, kind trialdomain.EventKind) error {
	tenant, err := d.directory.Get(ctx, rec.TenantID)
	if err != nil {
		return fmt.Errorf("resolve tenant: %w", err)
	}

	subject, body := renderEmail(tenant, rec, kind)
	if err := d.email.Send(ctx, []string{tenant.AdminEmail}, subject, body); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	// Operations only cares about accounts losing access.
	if d.opsChannel != "" && opsRelevant(kind) {
		msg := fmt.Sprintf("%s: tenant %s (%s), trial ended %s",
			opsHeadline(kind), tenant.Name, tenant.ID, rec.TrialEndsAt.Format("2006-01-02"))
		if err := d.slack.PostMessage(ctx, d.opsChannel, msg); err != nil {
			d.log.Warn("ops channel post failed",
				zap.String("tenant_id", tenant.ID),
				zap.String("kind", string(kind)),
				zap.Error(err),
			)
		}
	}

	metrics.Trial().IncNotification(string(kind))
	d.log.Info("notification sent",
		zap.String("tenant_id", tenant.ID),
		zap.String("kind", string(kind)),
	)
	return nil
}

func opsRelevant(kind trialdomain.EventKind) bool {
	switch kind {
	case trialdomain.EventTrialExpiredGraceStarted, trialdomain.EventAccountSuspended:
		return true
	default:
		return false
	}
}

func opsHeadline(kind trialdomain.EventKind) string {
	if kind == trialdomain.EventAccountSuspended {
		return "Trial account suspended"
	}
	return "Trial expired, grace period started"
}

func renderEmail(tenant *tenantdomain.Tenant, rec trialdomain.TrialRecord, kind trialdomain.EventKind) (string, string) {
	endsAt := formatForTenant(rec.TrialEndsAt, tenant.Timezone)

	switch kind {
	case trialdomain.EventFirstWarning:
		return fmt.Sprintf("Your CampusHQ trial ends on %s", endsAt),
			fmt.Sprintf("<p>Hi %s,</p><p>Your CampusHQ trial ends on <b>%s</b>. Upgrade any time to keep full access.</p>", tenant.Name, endsAt)
	case trialdomain.EventSecondWarning:
		return "Three days left in your CampusHQ trial",
			fmt.Sprintf("<p>Hi %s,</p><p>Only three days left: your trial ends on <b>%s</b>.</p>", tenant.Name, endsAt)
	case trialdomain.EventFinalWarning:
		return "Your CampusHQ trial ends tomorrow",
			fmt.Sprintf("<p>Hi %s,</p><p>This is your final reminder. Your trial ends on <b>%s</b>.</p>", tenant.Name, endsAt)
	case trialdomain.EventTrialExpiredGraceStarted:
		graceEnds := ""
		if rec.GraceEndsAt != nil {
			graceEnds = formatForTenant(*rec.GraceEndsAt, tenant.Timezone)
		}
		return "Your CampusHQ trial has ended",
			fmt.Sprintf("<p>Hi %s,</p><p>Your trial has ended. Your account is read-only until <b>%s</b>, then it will be suspended.</p>", tenant.Name, graceEnds)
	case trialdomain.EventGraceReminder:
		graceEnds := ""
		if rec.GraceEndsAt != nil {
			graceEnds = formatForTenant(*rec.GraceEndsAt, tenant.Timezone)
		}
		return "Reminder: your CampusHQ account is read-only",
			fmt.Sprintf("<p>Hi %s,</p><p>Your account stays read-only until <b>%s</b>. Upgrade to restore full access.</p>", tenant.Name, graceEnds)
	case trialdomain.EventAccountSuspended:
		return "Your CampusHQ account has been suspended",
			fmt.Sprintf("<p>Hi %s,</p><p>Your account is now suspended. Upgrade to reactivate it, your data is kept safe.</p>", tenant.Name)
	}
	return "CampusHQ trial update",
		fmt.Sprintf("<p>Hi %s,</p><p>There is an update on your trial.</p>", tenant.Name)
}

func formatForTenant(t time.Time, tz string) string {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.UTC
	}
	return t.In(loc).Format("January 2, 2006")
}
