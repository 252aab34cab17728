package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/caremarket/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, discount *Discount) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Discount, error)
	FindByCode(ctx context.Context, db *gorm.DB, code string) (*Discount, error)
	List(ctx context.Context, db *gorm.DB, filter ListRequest, page pagination.Pagination) ([]*Discount, error)
	Deactivate(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	// IncrementUses bumps uses_count only while the code is active and
	// below max_uses. It reports whether a row was updated.
	IncrementUses(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
}
