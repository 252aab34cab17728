package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/caremarket/internal/discount/domain"
	"github.com/railzwaylabs/caremarket/pkg/db/option"
	"github.com/railzwaylabs/caremarket/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, discount *domain.Discount) error {
	return db.WithContext(ctx).Create(discount).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Discount, error) {
	return r.findOne(ctx, db, "id = ?", id)
}

func (r *repo) FindByCode(ctx context.Context, db *gorm.DB, code string) (*domain.Discount, error) {
	return r.findOne(ctx, db, "code = ?", code)
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, query string, arg any) (*domain.Discount, error) {
	var item domain.Discount
	err := db.WithContext(ctx).Where(query, arg).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListRequest, page pagination.Pagination) ([]*domain.Discount, error) {
	var items []*domain.Discount
	stmt := db.WithContext(ctx).Model(&domain.Discount{})
	if filter.Active != nil {
		stmt = stmt.Where("is_active = ?", *filter.Active)
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

func (r *repo) Deactivate(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Model(&domain.Discount{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"is_active":  false,
			"updated_at": db.NowFunc(),
		}).Error
}

func (r *repo) IncrementUses(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	result := db.WithContext(ctx).Model(&domain.Discount{}).
		Where("id = ? AND is_active = ?", id, true).
		Where("(max_uses IS NULL OR uses_count < max_uses)").
		Updates(map[string]any{
			"uses_count": gorm.Expr("uses_count + 1"),
			"updated_at": db.NowFunc(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
