package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/caremarket/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Invoice, error)
	// FindByIDForUpdate locks the row on databases that support it.
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Invoice, error)
	FindByIdempotencyKey(ctx context.Context, db *gorm.DB, key string) (*Invoice, error)
	List(ctx context.Context, db *gorm.DB, filter ListRequest, page pagination.Pagination) ([]*Invoice, error)
	Update(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	ListOverdueCandidates(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]Invoice, error)

	InsertLineItems(ctx context.Context, db *gorm.DB, items []LineItem) error
	ListLineItems(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) ([]LineItem, error)
	UpdateLineItem(ctx context.Context, db *gorm.DB, item *LineItem) error
	DeleteLineItem(ctx context.Context, db *gorm.DB, invoiceID, itemID snowflake.ID) (bool, error)

	ReplaceInstallments(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID, items []Installment) error
	ListInstallments(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) ([]Installment, error)
}
