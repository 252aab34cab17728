package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/caremarket/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, payout *Payout) error
	InsertLineItems(ctx context.Context, db *gorm.DB, items []LineItem) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Payout, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Payout, error)
	List(ctx context.Context, db *gorm.DB, filter ListRequest, page pagination.Pagination) ([]*Payout, error)
	ListLineItems(ctx context.Context, db *gorm.DB, payoutID snowflake.ID) ([]LineItem, error)
	Update(ctx context.Context, db *gorm.DB, payout *Payout) error
	// ListEligibleInvoices returns invoices paid in [start, end) that are not
	// referenced by a payout outside the cancelled state.
	ListEligibleInvoices(ctx context.Context, db *gorm.DB, start, end time.Time, providerID *snowflake.ID) ([]EligibleInvoice, error)
}
