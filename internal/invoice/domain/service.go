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
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)

	AddLineItem(ctx context.Context, invoiceID string, item LineItemInput) (*Response, error)
	UpdateLineItem(ctx context.Context, req UpdateLineItemRequest) (*Response, error)
	RemoveLineItem(ctx context.Context, invoiceID, itemID string) (*Response, error)

	ApplyDiscount(ctx context.Context, invoiceID, code string) (*Response, error)
	SetInstallments(ctx context.Context, invoiceID string, plan []InstallmentInput) (*Response, error)

	Send(ctx context.Context, id string) (*Response, error)
	MarkPaid(ctx context.Context, id string) (*Response, error)
	Cancel(ctx context.Context, id string) (*Response, error)
	// MarkOverdue moves sent invoices past their due date to overdue and
	// returns how many were moved.
	MarkOverdue(ctx context.Context) (int, error)

	Verify(ctx context.Context, id string) (*VerifyResponse, error)
	RenderPDF(ctx context.Context, id string) ([]byte, string, error)
}

type LineItemInput struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	// VATRate falls back to the configured rate when nil.
	VATRate *decimal.Decimal
}

type CreateRequest struct {
	ClientID          string
	ProviderID        string
	ProviderServiceID string
	Currency          string
	CommissionRate    *decimal.Decimal
	DueAt             *time.Time
	LineItems         []LineItemInput
	Metadata          map[string]any
	IdempotencyKey    string
}

type UpdateLineItemRequest struct {
	InvoiceID   string
	ItemID      string
	Description *string
	Quantity    *decimal.Decimal
	UnitPrice   *decimal.Decimal
	VATRate     *decimal.Decimal
}

type InstallmentInput struct {
	Percentage decimal.Decimal
	DueAt      *time.Time
}

type ListRequest struct {
	Status     string
	ClientID   string
	ProviderID string
	PageToken  string
	PageSize   int32
}

type ListResponse struct {
	PageInfo pagination.PageInfo `json:"page_info"`
	Invoices []Response          `json:"invoices"`
}

type Response struct {
	ID                string         `json:"id"`
	InvoiceNumber     string         `json:"invoice_number"`
	ClientID          string         `json:"client_id"`
	ProviderID        string         `json:"provider_id"`
	ProviderServiceID *string        `json:"provider_service_id,omitempty"`
	Currency          string         `json:"currency"`
	Status            InvoiceStatus  `json:"status"`
	PaymentType       PaymentType    `json:"payment_type"`
	TotalAmount       int64          `json:"total_amount"`
	VATAmount         int64          `json:"vat_amount"`
	NetAmount         int64          `json:"net_amount"`
	DiscountCode      *string        `json:"discount_code,omitempty"`
	DiscountAmount    int64          `json:"discount_amount"`
	AmountDue         int64          `json:"amount_due"`
	CommissionRate    string         `json:"commission_rate"`
	DueAt             *time.Time     `json:"due_at,omitempty"`
	SentAt            *time.Time     `json:"sent_at,omitempty"`
	PaidAt            *time.Time     `json:"paid_at,omitempty"`
	CancelledAt       *time.Time     `json:"cancelled_at,omitempty"`
	LineItems         []LineItem     `json:"line_items"`
	Installments      []Installment  `json:"installments,omitempty"`
	Metadata          map[string]any `json:"metadata,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// VerifyResponse compares stored totals with a fresh fold of the lines.
type VerifyResponse struct {
	InvoiceID  string            `json:"invoice_id"`
	Consistent bool              `json:"consistent"`
	Stored     pricing.Totals    `json:"stored"`
	Computed   pricing.Totals    `json:"computed"`
	Lines      []LineExplanation `json:"lines"`
	Problem    string            `json:"problem,omitempty"`
}

type LineExplanation struct {
	LineItemID  string          `json:"line_item_id"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	VATRate     decimal.Decimal `json:"vat_rate"`
	LineTotal   decimal.Decimal `json:"line_total"`
	VATExact    decimal.Decimal `json:"vat_exact"`
	VATDisplay  decimal.Decimal `json:"vat_display"`
}

var (
	ErrInvalidID              = errors.New("invalid_id")
	ErrInvalidClient          = errors.New("invalid_client")
	ErrInvalidProvider        = errors.New("invalid_provider")
	ErrInvalidCurrency        = errors.New("invalid_currency")
	ErrInvalidStatus          = errors.New("invalid_status")
	ErrInvalidDescription     = errors.New("invalid_description")
	ErrInvalidQuantity        = errors.New("invalid_quantity")
	ErrInvalidUnitPrice       = errors.New("invalid_unit_price")
	ErrEmptyLineItems         = errors.New("empty_line_items")
	ErrNotFound               = errors.New("not_found")
	ErrLineItemNotFound       = errors.New("line_item_not_found")
	ErrInvoiceNotDraft        = errors.New("invoice_not_draft")
	ErrInvalidTransition      = errors.New("invalid_status_transition")
	ErrDiscountAlreadyApplied = errors.New("discount_already_applied")
	ErrRenderUnavailable      = errors.New("render_unavailable")
)
