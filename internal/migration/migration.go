package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	auditdomain "github.com/railzwaylabs/caremarket/internal/audit/domain"
	catalogdomain "github.com/railzwaylabs/caremarket/internal/catalog/domain"
	"github.com/railzwaylabs/caremarket/internal/config"
	discountdomain "github.com/railzwaylabs/caremarket/internal/discount/domain"
	invoicedomain "github.com/railzwaylabs/caremarket/internal/invoice/domain"
	payoutdomain "github.com/railzwaylabs/caremarket/internal/payout/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Models lists every table owned by the service, in dependency order.
func Models() []any {
	return []any{
		&SystemBootstrapState{},
		&auditdomain.AuditLog{},
		&catalogdomain.Category{},
		&catalogdomain.ProviderService{},
		&discountdomain.Discount{},
		&invoicedomain.Invoice{},
		&invoicedomain.LineItem{},
		&invoicedomain.Installment{},
		&payoutdomain.Payout{},
		&payoutdomain.LineItem{},
	}
}

// RunMigrations brings the schema to the latest version, seeds the default
// categories, and activates the bootstrap state. Postgres runs the embedded
// SQL migrations under an advisory lock; other dialects use AutoMigrate.
func RunMigrations(db *gorm.DB, genID *snowflake.Node, cfg config.Config, log *zap.Logger) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("migration")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	schema, err := Inspect()
	if err != nil {
		return err
	}

	dialect := db.Dialector.Name()
	if dialect == "postgres" {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		err = withMigrationLock(ctx, sqlDB, func() error {
			return migratePostgres(sqlDB, schema.Version)
		})
		if err != nil {
			return err
		}
	} else {
		if err := db.WithContext(ctx).AutoMigrate(Models()...); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
	}

	if err := seedDefaultCategories(ctx, db, genID, cfg); err != nil {
		return err
	}
	if err := activateSystemBootstrapState(ctx, db, schema.VersionString(), schema.Checksum); err != nil {
		return err
	}

	log.Info("schema ready",
		zap.String("dialect", dialect),
		zap.Uint("version", schema.Version),
	)
	return nil
}

func migratePostgres(db *sql.DB, latestVersion uint) error {
	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if _, err := ensureNotDirty(migrator); err != nil {
		return err
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}

	currentVersion, err := ensureNotDirty(migrator)
	if err != nil {
		return err
	}
	if currentVersion != latestVersion {
		return fmt.Errorf("schema version mismatch after migrate: got %d want %d", currentVersion, latestVersion)
	}
	return nil
}

func ensureNotDirty(migrator *migrate.Migrate) (uint, error) {
	if migrator == nil {
		return 0, errors.New("migrator is required")
	}

	version, dirty, err := migrator.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return 0, nil
		}
		return 0, fmt.Errorf("read migration version: %w", err)
	}
	if dirty {
		return 0, fmt.Errorf("database migrations are dirty at version %d", version)
	}
	return version, nil
}
