package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	invoicedomain "github.com/railzwaylabs/caremarket/internal/invoice/domain"
	"github.com/railzwaylabs/caremarket/internal/payout/domain"
	"github.com/railzwaylabs/caremarket/pkg/db/option"
	"github.com/railzwaylabs/caremarket/pkg/db/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, payout *domain.Payout) error {
	return db.WithContext(ctx).Create(payout).Error
}

func (r *repo) InsertLineItems(ctx context.Context, db *gorm.DB, items []domain.LineItem) error {
	if len(items) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&items).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Payout, error) {
	return first(db.WithContext(ctx).Where("id = ?", id))
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Payout, error) {
	stmt := db.WithContext(ctx).Where("id = ?", id)
	if db.Dialector.Name() != "sqlite" {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return first(stmt)
}

func first(stmt *gorm.DB) (*domain.Payout, error) {
	var payout domain.Payout
	err := stmt.First(&payout).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payout, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListRequest, page pagination.Pagination) ([]*domain.Payout, error) {
	var items []*domain.Payout
	stmt := db.WithContext(ctx).Model(&domain.Payout{})

	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.ProviderID != "" {
		if id, err := snowflake.ParseString(filter.ProviderID); err == nil {
			stmt = stmt.Where("provider_id = ?", id)
		}
	}

	stmt = option.ApplyPagination(page).Apply(stmt)
	if err := stmt.Order("created_at desc, id desc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListLineItems(ctx context.Context, db *gorm.DB, payoutID snowflake.ID) ([]domain.LineItem, error) {
	items := []domain.LineItem{}
	err := db.WithContext(ctx).
		Where("payout_id = ?", payoutID).
		Order("id ASC").
		Find(&items).Error
	return items, err
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, payout *domain.Payout) error {
	return db.WithContext(ctx).Model(&domain.Payout{}).
		Where("id = ?", payout.ID).
		Updates(map[string]any{
			"status":         payout.Status,
			"failure_reason": payout.FailureReason,
			"processed_at":   payout.ProcessedAt,
			"paid_at":        payout.PaidAt,
			"failed_at":      payout.FailedAt,
			"cancelled_at":   payout.CancelledAt,
			"updated_at":     payout.UpdatedAt,
		}).Error
}

func (r *repo) ListEligibleInvoices(ctx context.Context, db *gorm.DB, start, end time.Time, providerID *snowflake.ID) ([]domain.EligibleInvoice, error) {
	covered := db.Table("payout_line_items AS pl").
		Select("pl.invoice_id").
		Joins("JOIN payouts AS p ON p.id = pl.payout_id").
		Where("p.status <> ?", domain.PayoutStatusCancelled)

	stmt := db.WithContext(ctx).Model(&invoicedomain.Invoice{}).
		Select("id, provider_id, currency, total_cents, net_cents, discount_cents, commission_rate, paid_at").
		Where("status = ?", invoicedomain.InvoiceStatusPaid).
		Where("paid_at >= ? AND paid_at < ?", start, end).
		Where("id NOT IN (?)", covered)
	if providerID != nil {
		stmt = stmt.Where("provider_id = ?", *providerID)
	}

	var items []domain.EligibleInvoice
	err := stmt.Order("provider_id ASC, currency ASC, paid_at ASC, id ASC").Scan(&items).Error
	return items, err
}
