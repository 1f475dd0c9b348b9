package notifier

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/campushq/campushq/internal/config"
	"github.com/campushq/campushq/internal/providers/email"
	"github.com/campushq/campushq/internal/providers/slack"
	tenantdomain "github.com/campushq/campushq/internal/tenant/domain"
)

var Module = fx.Module("notifier",
	fx.Provide(provideDispatcher),
)

type params struct {
	fx.In

	Config    config.Config
	Directory tenantdomain.Directory
	Email     email.Provider
	Slack     slack.Provider
	Logger    *zap.Logger
}

func provideDispatcher(p params) Dispatcher {
	return New(p.Directory, p.Email, p.Slack, p.Config.Slack.OpsChannelID, p.Logger)
}
