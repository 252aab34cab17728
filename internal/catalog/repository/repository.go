package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/caremarket/internal/catalog/domain"
	"github.com/railzwaylabs/caremarket/pkg/db/option"
	"github.com/railzwaylabs/caremarket/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertCategory(ctx context.Context, db *gorm.DB, category *domain.Category) error {
	return db.WithContext(ctx).Create(category).Error
}

func (r *repo) FindCategoryByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Category, error) {
	var item domain.Category
	err := db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repo) FindCategoryByCode(ctx context.Context, db *gorm.DB, code string) (*domain.Category, error) {
	var item domain.Category
	err := db.WithContext(ctx).Where("code = ?", code).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repo) ListCategories(ctx context.Context, db *gorm.DB, filter domain.CategoryListRequest, page pagination.Pagination) ([]*domain.Category, error) {
	var items []*domain.Category
	stmt := db.WithContext(ctx).Model(&domain.Category{})
	if filter.Active != nil {
		stmt = stmt.Where("active = ?", *filter.Active)
	}

	stmt = option.ApplyPagination(page).Apply(stmt)
	if page.PageToken != "" || page.PageSize > 0 {
		stmt = stmt.Order("created_at desc, id desc")
	} else {
		stmt = stmt.Order("name ASC")
	}

	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) UpdateCategory(ctx context.Context, db *gorm.DB, category *domain.Category) error {
	return db.WithContext(ctx).Model(&domain.Category{}).
		Where("id = ?", category.ID).
		Updates(map[string]any{
			"name":            category.Name,
			"commission_rate": category.CommissionRate,
			"vat_rate":        category.VATRate,
			"active":          category.Active,
			"updated_at":      category.UpdatedAt,
		}).Error
}

func (r *repo) InsertProviderService(ctx context.Context, db *gorm.DB, item *domain.ProviderService) error {
	return db.WithContext(ctx).Create(item).Error
}

func (r *repo) FindProviderServiceByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.ProviderService, error) {
	var item domain.ProviderService
	err := db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repo) ListProviderServices(ctx context.Context, db *gorm.DB, filter domain.ProviderServiceListRequest, page pagination.Pagination) ([]*domain.ProviderService, error) {
	var items []*domain.ProviderService
	stmt := db.WithContext(ctx).Model(&domain.ProviderService{})

	if id, err := snowflake.ParseString(filter.ProviderID); err == nil && filter.ProviderID != "" {
		stmt = stmt.Where("provider_id = ?", id)
	}
	if id, err := snowflake.ParseString(filter.CategoryID); err == nil && filter.CategoryID != "" {
		stmt = stmt.Where("category_id = ?", id)
	}
	if filter.Active != nil {
		stmt = stmt.Where("active = ?", *filter.Active)
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

func (r *repo) UpdateProviderService(ctx context.Context, db *gorm.DB, item *domain.ProviderService) error {
	return db.WithContext(ctx).Model(&domain.ProviderService{}).
		Where("id = ?", item.ID).
		Updates(map[string]any{
			"name":                     item.Name,
			"description":              item.Description,
			"price_cents":              item.PriceCents,
			"price_unit":               item.PriceUnit,
			"vat_rate":                 item.VATRate,
			"commission_rate_override": item.CommissionRateOverride,
			"active":                   item.Active,
			"updated_at":               item.UpdatedAt,
		}).Error
}
