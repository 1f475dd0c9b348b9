package trial

import (
	"github.com/campushq/campushq/internal/trial/repository"
	"github.com/campushq/campushq/internal/trial/service"
	"go.uber.org/fx"
)

var Module = fx.Module("trial",
	fx.Provide(
		repository.Provide,
		service.Provide,
	),
)
