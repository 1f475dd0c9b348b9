package providers

import (
	"github.com/campushq/campushq/internal/providers/email"
	"github.com/campushq/campushq/internal/providers/slack"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	email.Module,
	slack.Module,
)
