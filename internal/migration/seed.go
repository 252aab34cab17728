package migration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	catalogdomain "github.com/railzwaylabs/caremarket/internal/catalog/domain"
	"github.com/railzwaylabs/caremarket/internal/config"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// defaultCategories use the platform commission until an operator sets one.
var defaultCategories = []string{
	"Home Care",
	"Nursing",
	"Companionship",
	"Child Care",
	"Transport",
	"Cleaning",
}

// seedDefaultCategories inserts missing categories and leaves existing rows
// untouched, so operator edits survive re-runs.
func seedDefaultCategories(ctx context.Context, db *gorm.DB, genID *snowflake.Node, cfg config.Config) error {
	if genID == nil {
		return errors.New("category seed requires id generator")
	}

	vat := decimal.NewFromFloat(cfg.Billing.VATRate)
	now := time.Now().UTC()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, name := range defaultCategories {
			category := catalogdomain.Category{
				ID:        genID.Generate(),
				Code:      slug.Make(name),
				Name:      name,
				VATRate:   vat,
				Active:    true,
				CreatedAt: now,
				UpdatedAt: now,
			}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "code"}},
				DoNothing: true,
			}).Create(&category).Error
			if err != nil {
				return fmt.Errorf("seed category %s: %w", category.Code, err)
			}
		}
		return nil
	})
}
