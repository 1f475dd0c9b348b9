package migration

import (
	"github.com/campushq/campushq/internal/config"
	tenantdomain "github.com/campushq/campushq/internal/tenant/domain"
	trialdomain "github.com/campushq/campushq/internal/trial/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType != "postgres" {
			// Dev and test databases use the ORM schema directly.
			return conn.AutoMigrate(
				&tenantdomain.Tenant{},
				&trialdomain.TrialRecord{},
			)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
