package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/caremarket/internal/money"
	"github.com/railzwaylabs/caremarket/internal/pricing"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusSent      InvoiceStatus = "sent"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusOverdue   InvoiceStatus = "overdue"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

type PaymentType string

const (
	PaymentTypeFull        PaymentType = "full"
	PaymentTypeInstallment PaymentType = "installment"
)

// Invoice amounts are minor units. TotalCents, VATCents and NetCents are
// always the fold of the current line items; DiscountCents is deducted on
// top of TotalCents.
type Invoice struct {
	ID                snowflake.ID      `json:"id" gorm:"primaryKey"`
	InvoiceNumber     string            `json:"invoice_number" gorm:"type:varchar(64);not null;uniqueIndex"`
	ClientID          snowflake.ID      `json:"client_id" gorm:"not null;index"`
	ProviderID        snowflake.ID      `json:"provider_id" gorm:"not null;index"`
	ProviderServiceID *snowflake.ID     `json:"provider_service_id,omitempty"`
	Currency          string            `json:"currency" gorm:"type:text;not null"`
	Status            InvoiceStatus     `json:"status" gorm:"type:varchar(64);not null;index"`
	PaymentType       PaymentType       `json:"payment_type" gorm:"type:text;not null"`
	TotalCents        int64             `json:"total_amount" gorm:"not null"`
	VATCents          int64             `json:"vat_amount" gorm:"column:vat_cents;not null"`
	NetCents          int64             `json:"net_amount" gorm:"not null"`
	DiscountID        *snowflake.ID     `json:"discount_id,omitempty"`
	DiscountCode      *string           `json:"discount_code,omitempty" gorm:"type:text"`
	DiscountPercent   bool              `json:"-" gorm:"not null;default:false"`
	DiscountValue     *decimal.Decimal  `json:"-" gorm:"type:numeric(12,2)"`
	DiscountCents     int64             `json:"discount_amount" gorm:"not null;default:0"`
	CommissionRate    decimal.Decimal   `json:"commission_rate" gorm:"type:numeric(5,2);not null"`
	IdempotencyKey    *string           `json:"-" gorm:"type:varchar(128);uniqueIndex"`
	DueAt             *time.Time        `json:"due_at,omitempty" gorm:"index"`
	SentAt            *time.Time        `json:"sent_at,omitempty"`
	PaidAt            *time.Time        `json:"paid_at,omitempty" gorm:"index"`
	CancelledAt       *time.Time        `json:"cancelled_at,omitempty"`
	Metadata          datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt         time.Time         `json:"created_at" gorm:"not null"`
	UpdatedAt         time.Time         `json:"updated_at" gorm:"not null"`
}

func (Invoice) TableName() string { return "invoices" }

func (i *Invoice) Totals() pricing.Totals {
	return pricing.Totals{
		Total: money.FromCents(i.TotalCents),
		VAT:   money.FromCents(i.VATCents),
		Net:   money.FromCents(i.NetCents),
	}
}

// PayableCents is what the client owes after the discount.
func (i *Invoice) PayableCents() int64 {
	return i.TotalCents - i.DiscountCents
}

// NetAfterDiscount scales the VAT-exclusive total by the share of the
// invoice that is actually payable.
func (i *Invoice) NetAfterDiscount() decimal.Decimal {
	if i.TotalCents == 0 {
		return decimal.Zero
	}
	net := money.FromCents(i.NetCents)
	if i.DiscountCents == 0 {
		return net
	}
	share := decimal.NewFromInt(i.PayableCents()).Div(decimal.NewFromInt(i.TotalCents))
	return money.Round(net.Mul(share))
}

// QuantityScale is the number of decimal places stored for line quantities.
const QuantityScale int32 = 4

type LineItem struct {
	ID             snowflake.ID    `json:"id" gorm:"primaryKey"`
	InvoiceID      snowflake.ID    `json:"invoice_id" gorm:"not null;index"`
	Position       int             `json:"position" gorm:"not null"`
	Description    string          `json:"description" gorm:"type:text;not null"`
	Quantity       decimal.Decimal `json:"quantity" gorm:"type:numeric(12,4);not null"`
	UnitPriceCents int64           `json:"unit_price" gorm:"not null"`
	VATRate        decimal.Decimal `json:"vat_rate" gorm:"type:numeric(5,2);not null"`
	LineTotalCents int64           `json:"line_total" gorm:"not null"`
	// VATCents is the per-line VAT rounded for display. Invoice VAT is
	// summed from the exact figures, not from this column.
	VATCents  int64     `json:"vat_amount" gorm:"column:vat_cents;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null"`
}

func (LineItem) TableName() string { return "invoice_line_items" }

func (l LineItem) ToPricing() pricing.LineItem {
	return pricing.LineItem{
		Description: l.Description,
		Quantity:    l.Quantity,
		UnitPrice:   money.FromCents(l.UnitPriceCents),
		VATRate:     l.VATRate,
	}
}

type Installment struct {
	ID             snowflake.ID    `json:"id" gorm:"primaryKey"`
	InvoiceID      snowflake.ID    `json:"invoice_id" gorm:"not null;index"`
	Sequence       int             `json:"sequence" gorm:"not null"`
	PercentageDue  decimal.Decimal `json:"percentage_due" gorm:"type:numeric(5,2);not null"`
	AmountDueCents int64           `json:"amount_due" gorm:"not null"`
	DueAt          *time.Time      `json:"due_at,omitempty"`
	PaidAt         *time.Time      `json:"paid_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at" gorm:"not null"`
}

func (Installment) TableName() string { return "invoice_installments" }
