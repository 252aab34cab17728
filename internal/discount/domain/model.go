package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/caremarket/internal/money"
	"github.com/railzwaylabs/caremarket/internal/pricing"
	"github.com/shopspring/decimal"
)

// Discount is a redeemable code. Value holds percentage points when
// IsPercentage is set and a currency amount otherwise.
type Discount struct {
	ID            snowflake.ID    `json:"id" gorm:"primaryKey"`
	Code          string          `json:"code" gorm:"type:varchar(64);not null;uniqueIndex"`
	Description   *string         `json:"description,omitempty" gorm:"type:text"`
	IsPercentage  bool            `json:"is_percentage" gorm:"not null"`
	Value         decimal.Decimal `json:"value" gorm:"type:numeric(12,2);not null"`
	MinOrderCents int64           `json:"min_order_amount" gorm:"not null;default:0"`
	StartsAt      *time.Time      `json:"starts_at,omitempty"`
	EndsAt        *time.Time      `json:"ends_at,omitempty"`
	MaxUses       *int            `json:"max_uses,omitempty"`
	UsesCount     int             `json:"uses_count" gorm:"not null;default:0"`
	IsActive      bool            `json:"is_active" gorm:"not null"`
	CreatedAt     time.Time       `json:"created_at" gorm:"not null"`
	UpdatedAt     time.Time       `json:"updated_at" gorm:"not null"`
}

func (Discount) TableName() string { return "discounts" }

func (d *Discount) ToPricing() pricing.Discount {
	return pricing.Discount{
		Code:           d.Code,
		IsPercentage:   d.IsPercentage,
		Value:          d.Value,
		MinOrderAmount: money.FromCents(d.MinOrderCents),
		StartsAt:       d.StartsAt,
		EndsAt:         d.EndsAt,
		MaxUses:        d.MaxUses,
		UsesCount:      d.UsesCount,
		IsActive:       d.IsActive,
	}
}
