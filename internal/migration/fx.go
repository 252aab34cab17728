package migration

import (
	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/caremarket/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, genID *snowflake.Node, cfg config.Config, log *zap.Logger) error {
		return RunMigrations(conn, genID, cfg, log)
	}),
)
