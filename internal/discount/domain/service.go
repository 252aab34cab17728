package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/caremarket/pkg/db/pagination"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	Get(ctx context.Context, code string) (*Response, error)
	Deactivate(ctx context.Context, code string) (*Response, error)
	// Check evaluates a code against an order amount without redeeming it.
	Check(ctx context.Context, code string, orderAmount decimal.Decimal) (*CheckResponse, error)
	// Evaluate is Check for callers that go on to redeem inside their own
	// transaction.
	Evaluate(ctx context.Context, db *gorm.DB, code string, orderAmount decimal.Decimal) (*Discount, decimal.Decimal, error)
	Redeem(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}

type CreateRequest struct {
	Code           string
	Description    *string
	IsPercentage   bool
	Value          decimal.Decimal
	MinOrderAmount decimal.Decimal
	StartsAt       *time.Time
	EndsAt         *time.Time
	MaxUses        *int
}

type ListRequest struct {
	Active    *bool
	PageToken string
	PageSize  int32
}

type ListResponse struct {
	PageInfo  pagination.PageInfo `json:"page_info"`
	Discounts []Response          `json:"discounts"`
}

type Response struct {
	ID             string          `json:"id"`
	Code           string          `json:"code"`
	Description    *string         `json:"description,omitempty"`
	IsPercentage   bool            `json:"is_percentage"`
	Value          decimal.Decimal `json:"value"`
	MinOrderAmount int64           `json:"min_order_amount"`
	StartsAt       *time.Time      `json:"starts_at,omitempty"`
	EndsAt         *time.Time      `json:"ends_at,omitempty"`
	MaxUses        *int            `json:"max_uses,omitempty"`
	UsesCount      int             `json:"uses_count"`
	IsActive       bool            `json:"is_active"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

type CheckResponse struct {
	Code           string          `json:"code"`
	Valid          bool            `json:"valid"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Reason         string          `json:"reason,omitempty"`
	Message        string          `json:"message,omitempty"`
}

var (
	ErrInvalidCode     = errors.New("invalid_code")
	ErrInvalidWindow   = errors.New("invalid_window")
	ErrInvalidMaxUses  = errors.New("invalid_max_uses")
	ErrInvalidMinOrder = errors.New("invalid_min_order_amount")
	ErrDuplicateCode   = errors.New("duplicate_code")
	ErrNotFound        = errors.New("not_found")
)
