package domain

import (
	"context"
	"errors"
	"time"

	"github.com/railzwaylabs/caremarket/internal/pricing"
	"github.com/railzwaylabs/caremarket/pkg/db/pagination"
	"github.com/shopspring/decimal"
)

type Service interface {
	CreateCategory(ctx context.Context, req CreateCategoryRequest) (*CategoryResponse, error)
	ListCategories(ctx context.Context, req CategoryListRequest) (CategoryListResponse, error)
	GetCategory(ctx context.Context, id string) (*CategoryResponse, error)
	UpdateCategory(ctx context.Context, req UpdateCategoryRequest) (*CategoryResponse, error)

	CreateProviderService(ctx context.Context, req CreateProviderServiceRequest) (*ProviderServiceResponse, error)
	ListProviderServices(ctx context.Context, req ProviderServiceListRequest) (ProviderServiceListResponse, error)
	GetProviderService(ctx context.Context, id string) (*ProviderServiceResponse, error)
	UpdateProviderService(ctx context.Context, req UpdateProviderServiceRequest) (*ProviderServiceResponse, error)

	// ResolveCommissionRate walks override, category rate, platform default.
	ResolveCommissionRate(ctx context.Context, providerServiceID string) (decimal.Decimal, error)
	Quote(ctx context.Context, req QuoteRequest) (*QuoteResponse, error)
}

type CreateCategoryRequest struct {
	Code           string
	Name           string
	CommissionRate *decimal.Decimal
	VATRate        *decimal.Decimal
	Active         *bool
}

type UpdateCategoryRequest struct {
	ID                  string
	Name                *string
	CommissionRate      *decimal.Decimal
	ClearCommissionRate bool
	VATRate             *decimal.Decimal
	Active              *bool
}

type CategoryListRequest struct {
	Active    *bool
	PageToken string
	PageSize  int32
}

type CategoryListResponse struct {
	PageInfo   pagination.PageInfo `json:"page_info"`
	Categories []CategoryResponse  `json:"categories"`
}

type CategoryResponse struct {
	ID             string           `json:"id"`
	Code           string           `json:"code"`
	Name           string           `json:"name"`
	CommissionRate *decimal.Decimal `json:"commission_rate"`
	VATRate        decimal.Decimal  `json:"vat_rate"`
	Active         bool             `json:"active"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

type CreateProviderServiceRequest struct {
	ProviderID             string
	CategoryID             string
	Name                   string
	Description            *string
	Price                  decimal.Decimal
	Currency               string
	PriceUnit              string
	VATRate                *decimal.Decimal
	CommissionRateOverride *decimal.Decimal
	Active                 *bool
}

type UpdateProviderServiceRequest struct {
	ID                     string
	Name                   *string
	Description            *string
	Price                  *decimal.Decimal
	PriceUnit              *string
	VATRate                *decimal.Decimal
	CommissionRateOverride *decimal.Decimal
	ClearOverride          bool
	Active                 *bool
}

type ProviderServiceListRequest struct {
	ProviderID string
	CategoryID string
	Active     *bool
	PageToken  string
	PageSize   int32
}

type ProviderServiceListResponse struct {
	PageInfo pagination.PageInfo       `json:"page_info"`
	Services []ProviderServiceResponse `json:"services"`
}

type ProviderServiceResponse struct {
	ID                     string           `json:"id"`
	ProviderID             string           `json:"provider_id"`
	CategoryID             string           `json:"category_id"`
	Name                   string           `json:"name"`
	Description            *string          `json:"description,omitempty"`
	PriceAmount            int64            `json:"price_amount"`
	Currency               string           `json:"currency"`
	PriceUnit              string           `json:"price_unit"`
	DisplayPrice           string           `json:"display_price"`
	VATRate                decimal.Decimal  `json:"vat_rate"`
	CommissionRateOverride *decimal.Decimal `json:"commission_rate_override"`
	Active                 bool             `json:"active"`
	CreatedAt              time.Time        `json:"created_at"`
	UpdatedAt              time.Time        `json:"updated_at"`
}

type QuoteRequest struct {
	ProviderServiceID string
	StartAt           time.Time
	EndAt             *time.Time
	Quantity          *decimal.Decimal
	DistanceKm        *decimal.Decimal
}

// QuoteResponse prices a prospective booking and shows how the estimate
// would split between VAT, platform commission and the provider.
type QuoteResponse struct {
	ProviderServiceID string            `json:"provider_service_id"`
	Currency          string            `json:"currency"`
	Estimate          pricing.Estimate  `json:"estimate"`
	Breakdown         pricing.Breakdown `json:"breakdown"`
}

var (
	ErrInvalidName           = errors.New("invalid_name")
	ErrInvalidCode           = errors.New("invalid_code")
	ErrInvalidID             = errors.New("invalid_id")
	ErrInvalidProvider       = errors.New("invalid_provider")
	ErrInvalidCategory       = errors.New("invalid_category")
	ErrInvalidPrice          = errors.New("invalid_price")
	ErrInvalidCurrency       = errors.New("invalid_currency")
	ErrNotFound              = errors.New("not_found")
	ErrCategoryInactive      = errors.New("category_inactive")
	ErrServiceInactive       = errors.New("provider_service_inactive")
	ErrDuplicateCategoryCode = errors.New("duplicate_category_code")
)
