package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Category groups provider services and carries the commission rate that
// applies when a service has no override. A nil rate falls through to the
// platform default.
type Category struct {
	ID             snowflake.ID     `json:"id" gorm:"primaryKey"`
	Code           string           `json:"code" gorm:"type:varchar(64);not null;uniqueIndex"`
	Name           string           `json:"name" gorm:"type:text;not null"`
	CommissionRate *decimal.Decimal `json:"commission_rate" gorm:"type:numeric(5,2)"`
	VATRate        decimal.Decimal  `json:"vat_rate" gorm:"type:numeric(5,2);not null"`
	Active         bool             `json:"active" gorm:"not null"`
	CreatedAt      time.Time        `json:"created_at" gorm:"not null"`
	UpdatedAt      time.Time        `json:"updated_at" gorm:"not null"`
}

func (Category) TableName() string { return "categories" }

type ProviderService struct {
	ID                     snowflake.ID     `json:"id" gorm:"primaryKey"`
	ProviderID             snowflake.ID     `json:"provider_id" gorm:"not null;index"`
	CategoryID             snowflake.ID     `json:"category_id" gorm:"not null;index"`
	Name                   string           `json:"name" gorm:"type:text;not null"`
	Description            *string          `json:"description,omitempty" gorm:"type:text"`
	PriceCents             int64            `json:"price_cents" gorm:"not null"`
	Currency               string           `json:"currency" gorm:"type:text;not null"`
	PriceUnit              string           `json:"price_unit" gorm:"type:text;not null"`
	VATRate                decimal.Decimal  `json:"vat_rate" gorm:"type:numeric(5,2);not null"`
	CommissionRateOverride *decimal.Decimal `json:"commission_rate_override" gorm:"type:numeric(5,2)"`
	Active                 bool             `json:"active" gorm:"not null"`
	CreatedAt              time.Time        `json:"created_at" gorm:"not null"`
	UpdatedAt              time.Time        `json:"updated_at" gorm:"not null"`
}

func (ProviderService) TableName() string { return "provider_services" }
