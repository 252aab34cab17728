package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type PayoutStatus string

const (
	PayoutStatusPending    PayoutStatus = "pending"
	PayoutStatusProcessing PayoutStatus = "processing"
	PayoutStatusPaid       PayoutStatus = "paid"
	PayoutStatusFailed     PayoutStatus = "failed"
	PayoutStatusCancelled  PayoutStatus = "cancelled"
)

// Payout settles the paid invoices of one provider and currency over a
// half-open period [PeriodStart, PeriodEnd). TotalCents is the sum of the
// net-of-commission line amounts.
type Payout struct {
	ID              snowflake.ID `json:"id" gorm:"primaryKey"`
	ProviderID      snowflake.ID `json:"provider_id" gorm:"not null;index"`
	Currency        string       `json:"currency" gorm:"type:text;not null"`
	PeriodStart     time.Time    `json:"period_start" gorm:"not null;index"`
	PeriodEnd       time.Time    `json:"period_end" gorm:"not null"`
	Status          PayoutStatus `json:"status" gorm:"type:varchar(64);not null;index"`
	GrossCents      int64        `json:"gross_amount" gorm:"not null"`
	CommissionCents int64        `json:"commission_amount" gorm:"not null"`
	TotalCents      int64        `json:"total_amount" gorm:"not null"`
	FailureReason   *string      `json:"failure_reason,omitempty" gorm:"type:text"`
	ProcessedAt     *time.Time   `json:"processed_at,omitempty"`
	PaidAt          *time.Time   `json:"paid_at,omitempty"`
	FailedAt        *time.Time   `json:"failed_at,omitempty"`
	CancelledAt     *time.Time   `json:"cancelled_at,omitempty"`
	CreatedAt       time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt       time.Time    `json:"updated_at" gorm:"not null"`
}

func (Payout) TableName() string { return "payouts" }

// LineItem is the earning of one paid invoice.
type LineItem struct {
	ID                    snowflake.ID    `json:"id" gorm:"primaryKey"`
	PayoutID              snowflake.ID    `json:"payout_id" gorm:"not null;index"`
	InvoiceID             snowflake.ID    `json:"invoice_id" gorm:"not null;index"`
	AmountCents           int64           `json:"amount" gorm:"not null"`
	CommissionPercentage  decimal.Decimal `json:"commission_percentage" gorm:"type:numeric(5,2);not null"`
	CommissionAmountCents int64           `json:"commission_amount" gorm:"not null"`
	NetAmountCents        int64           `json:"net_amount" gorm:"not null"`
	CreatedAt             time.Time       `json:"created_at" gorm:"not null"`
}

func (LineItem) TableName() string { return "payout_line_items" }

// EligibleInvoice is a paid invoice that no live payout references yet.
type EligibleInvoice struct {
	ID             snowflake.ID
	ProviderID     snowflake.ID
	Currency       string
	TotalCents     int64
	NetCents       int64
	DiscountCents  int64
	CommissionRate decimal.Decimal
	PaidAt         time.Time
}
