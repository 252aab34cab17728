package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	glebarezsqlite "github.com/glebarez/sqlite"
	"github.com/railzwaylabs/caremarket/internal/config"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	gormprometheus "gorm.io/plugin/prometheus"
)

var Module = fx.Module("db",
	fx.Provide(New),
)

// New opens the configured database and registers the tracing and
// metrics plugins. The pool is closed when the fx app stops.
func New(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (*gorm.DB, error) {
	conn, err := Open(cfg.Database)
	if err != nil {
		return nil, err
	}
	log = log.Named("db")

	if cfg.Database.Tracing {
		if err := conn.Use(otelgorm.NewPlugin(otelgorm.WithDBName(cfg.Database.Name))); err != nil {
			return nil, fmt.Errorf("register otelgorm: %w", err)
		}
	}
	if cfg.Database.Metrics {
		if err := conn.Use(gormprometheus.New(gormprometheus.Config{
			DBName:          cfg.Database.Name,
			RefreshInterval: 15,
			StartServer:     false,
		})); err != nil {
			return nil, fmt.Errorf("register gorm prometheus: %w", err)
		}
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := sqlDB.PingContext(ctx); err != nil {
				return fmt.Errorf("ping database: %w", err)
			}
			log.Info("database connected", zap.String("driver", cfg.Database.Driver))
			return nil
		},
		OnStop: func(context.Context) error {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})
	return conn, nil
}

// Open is the plugin-free constructor shared by the CLI and tests.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	level := logger.Silent
	if cfg.LogQueries {
		level = logger.Info
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
		Logger:         logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	return conn, nil
}

func dialectorFor(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch strings.ToLower(cfg.Driver) {
	case "postgres":
		return postgres.Open(cfg.DSN), nil
	case "mysql":
		return mysql.Open(cfg.DSN), nil
	case "sqlite":
		// pure-Go driver, no cgo
		return glebarezsqlite.Open(cfg.DSN), nil
	case "sqlite3":
		return sqlite.Open(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// Dialect reports the migration flavour for a driver name.
func Dialect(driver string) string {
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3":
		return "sqlite"
	default:
		return strings.ToLower(driver)
	}
}
