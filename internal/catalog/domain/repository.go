package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/caremarket/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	InsertCategory(ctx context.Context, db *gorm.DB, category *Category) error
	FindCategoryByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Category, error)
	FindCategoryByCode(ctx context.Context, db *gorm.DB, code string) (*Category, error)
	ListCategories(ctx context.Context, db *gorm.DB, filter CategoryListRequest, page pagination.Pagination) ([]*Category, error)
	UpdateCategory(ctx context.Context, db *gorm.DB, category *Category) error

	InsertProviderService(ctx context.Context, db *gorm.DB, item *ProviderService) error
	FindProviderServiceByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*ProviderService, error)
	ListProviderServices(ctx context.Context, db *gorm.DB, filter ProviderServiceListRequest, page pagination.Pagination) ([]*ProviderService, error)
	UpdateProviderService(ctx context.Context, db *gorm.DB, item *ProviderService) error
}
