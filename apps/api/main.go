package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/campushq/campushq/internal/clock"
	"github.com/campushq/campushq/internal/config"
	"github.com/campushq/campushq/internal/migration"
	"github.com/campushq/campushq/internal/notifier"
	"github.com/campushq/campushq/internal/observability"
	"github.com/campushq/campushq/internal/providers"
	"github.com/campushq/campushq/internal/server"
	"github.com/campushq/campushq/internal/tenant"
	"github.com/campushq/campushq/internal/trial"
	"github.com/campushq/campushq/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Functional domains
		tenant.Module,
		providers.Module,
		notifier.Module,
		trial.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
