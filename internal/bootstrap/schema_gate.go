package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/railzwaylabs/caremarket/internal/migration"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrBootstrapStateInactive = errors.New("system bootstrap state is not active")
	ErrSchemaVersionMismatch  = errors.New("schema version mismatch")
	ErrSchemaChecksumMismatch = errors.New("schema checksum mismatch")
)

// SchemaGate refuses to serve traffic against a database that was not
// migrated by this binary's embedded migrations.
type SchemaGate struct {
	db     *gorm.DB
	schema migration.Schema
}

func NewSchemaGate(db *gorm.DB) (*SchemaGate, error) {
	if db == nil {
		return nil, errors.New("schema gate requires database handle")
	}
	schema, err := migration.Inspect()
	if err != nil {
		return nil, err
	}
	return &SchemaGate{db: db, schema: schema}, nil
}

func (g *SchemaGate) MustBeActive(ctx context.Context) error {
	state, err := loadSystemBootstrapState(ctx, g.db)
	if err != nil {
		return err
	}

	if state.Status != migration.BootstrapStatusActive {
		return fmt.Errorf("%w: status=%s", ErrBootstrapStateInactive, state.Status)
	}
	if want := g.schema.VersionString(); state.SchemaVersion != want {
		return fmt.Errorf("%w: database=%s binary=%s, run `caremarket migrate`", ErrSchemaVersionMismatch, state.SchemaVersion, want)
	}
	// rows written before checksums were recorded carry none
	if state.Checksum != nil && *state.Checksum != "" && *state.Checksum != g.schema.Checksum {
		return fmt.Errorf("%w: database=%s binary=%s", ErrSchemaChecksumMismatch, *state.Checksum, g.schema.Checksum)
	}
	return nil
}

// EnforceSchemaGate fails application start when the schema is not active.
func EnforceSchemaGate(lc fx.Lifecycle, gate *SchemaGate, log *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := gate.MustBeActive(ctx); err != nil {
				return err
			}
			log.Named("bootstrap").Info("schema gate passed", zap.Uint("schema_version", gate.schema.Version))
			return nil
		},
	})
}
