package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/caremarket/internal/invoice/domain"
	"github.com/railzwaylabs/caremarket/pkg/db/option"
	"github.com/railzwaylabs/caremarket/pkg/db/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	return db.WithContext(ctx).Create(invoice).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Invoice, error) {
	return first(db.WithContext(ctx).Where("id = ?", id))
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Invoice, error) {
	stmt := db.WithContext(ctx).Where("id = ?", id)
	if db.Dialector.Name() != "sqlite" {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return first(stmt)
}

func (r *repo) FindByIdempotencyKey(ctx context.Context, db *gorm.DB, key string) (*domain.Invoice, error) {
	return first(db.WithContext(ctx).Where("idempotency_key = ?", key))
}

func first(stmt *gorm.DB) (*domain.Invoice, error) {
	var inv domain.Invoice
	err := stmt.First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListRequest, page pagination.Pagination) ([]*domain.Invoice, error) {
	var items []*domain.Invoice
	stmt := db.WithContext(ctx).Model(&domain.Invoice{})

	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.ClientID != "" {
		if id, err := snowflake.ParseString(filter.ClientID); err == nil {
			stmt = stmt.Where("client_id = ?", id)
		}
	}
	if filter.ProviderID != "" {
		if id, err := snowflake.ParseString(filter.ProviderID); err == nil {
			stmt = stmt.Where("provider_id = ?", id)
		}
	}

	stmt = option.ApplyPagination(page).Apply(stmt)
	if page.PageToken != "" || page.PageSize > 0 {
		stmt = stmt.Order("created_at desc, id desc")
	} else {
		stmt = stmt.Order("created_at ASC")
	}

	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	return db.WithContext(ctx).Model(&domain.Invoice{}).
		Where("id = ?", invoice.ID).
		Updates(map[string]any{
			"status":           invoice.Status,
			"payment_type":     invoice.PaymentType,
			"total_cents":      invoice.TotalCents,
			"vat_cents":        invoice.VATCents,
			"net_cents":        invoice.NetCents,
			"discount_id":      invoice.DiscountID,
			"discount_code":    invoice.DiscountCode,
			"discount_percent": invoice.DiscountPercent,
			"discount_value":   invoice.DiscountValue,
			"discount_cents":   invoice.DiscountCents,
			"due_at":           invoice.DueAt,
			"sent_at":          invoice.SentAt,
			"paid_at":          invoice.PaidAt,
			"cancelled_at":     invoice.CancelledAt,
			"updated_at":       invoice.UpdatedAt,
		}).Error
}

func (r *repo) ListOverdueCandidates(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]domain.Invoice, error) {
	var items []domain.Invoice
	err := db.WithContext(ctx).
		Where("status = ? AND due_at IS NOT NULL AND due_at < ?", domain.InvoiceStatusSent, now).
		Order("due_at ASC, id ASC").
		Limit(limit).
		Find(&items).Error
	return items, err
}

func (r *repo) InsertLineItems(ctx context.Context, db *gorm.DB, items []domain.LineItem) error {
	if len(items) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&items).Error
}

func (r *repo) ListLineItems(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) ([]domain.LineItem, error) {
	var items []domain.LineItem
	err := db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("position ASC, id ASC").
		Find(&items).Error
	return items, err
}

func (r *repo) UpdateLineItem(ctx context.Context, db *gorm.DB, item *domain.LineItem) error {
	return db.WithContext(ctx).Model(&domain.LineItem{}).
		Where("id = ? AND invoice_id = ?", item.ID, item.InvoiceID).
		Updates(map[string]any{
			"description":      item.Description,
			"quantity":         item.Quantity,
			"unit_price_cents": item.UnitPriceCents,
			"vat_rate":         item.VATRate,
			"line_total_cents": item.LineTotalCents,
			"vat_cents":        item.VATCents,
			"updated_at":       item.UpdatedAt,
		}).Error
}

func (r *repo) DeleteLineItem(ctx context.Context, db *gorm.DB, invoiceID, itemID snowflake.ID) (bool, error) {
	result := db.WithContext(ctx).
		Where("id = ? AND invoice_id = ?", itemID, invoiceID).
		Delete(&domain.LineItem{})
	return result.RowsAffected > 0, result.Error
}

func (r *repo) ReplaceInstallments(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID, items []domain.Installment) error {
	if err := db.WithContext(ctx).Where("invoice_id = ?", invoiceID).Delete(&domain.Installment{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&items).Error
}

func (r *repo) ListInstallments(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) ([]domain.Installment, error) {
	var items []domain.Installment
	err := db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("sequence ASC").
		Find(&items).Error
	return items, err
}
