package domain

import (
	"context"
	"errors"
	"time"

	"github.com/railzwaylabs/caremarket/pkg/db/pagination"
)

type Service interface {
	// Generate creates one pending payout per provider and currency for the
	// paid invoices of the period. Invoices already covered are skipped, so
	// running it twice for the same period creates nothing new.
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	Get(ctx context.Context, id string) (*Response, error)

	Process(ctx context.Context, id string) (*Response, error)
	MarkPaid(ctx context.Context, id string) (*Response, error)
	Fail(ctx context.Context, id string, reason string) (*Response, error)
	Cancel(ctx context.Context, id string) (*Response, error)
}

type GenerateRequest struct {
	PeriodStart time.Time
	PeriodEnd   time.Time
	ProviderID  string
}

type GenerateResponse struct {
	PeriodStart time.Time  `json:"period_start"`
	PeriodEnd   time.Time  `json:"period_end"`
	Payouts     []Response `json:"payouts"`
}

type ListRequest struct {
	ProviderID string
	Status     string
	PageToken  string
	PageSize   int32
}

type ListResponse struct {
	PageInfo pagination.PageInfo `json:"page_info"`
	Payouts  []Response          `json:"payouts"`
}

type Response struct {
	ID               string       `json:"id"`
	ProviderID       string       `json:"provider_id"`
	Currency         string       `json:"currency"`
	PeriodStart      time.Time    `json:"period_start"`
	PeriodEnd        time.Time    `json:"period_end"`
	Status           PayoutStatus `json:"status"`
	GrossAmount      int64        `json:"gross_amount"`
	CommissionAmount int64        `json:"commission_amount"`
	TotalAmount      int64        `json:"total_amount"`
	FailureReason    *string      `json:"failure_reason,omitempty"`
	ProcessedAt      *time.Time   `json:"processed_at,omitempty"`
	PaidAt           *time.Time   `json:"paid_at,omitempty"`
	FailedAt         *time.Time   `json:"failed_at,omitempty"`
	CancelledAt      *time.Time   `json:"cancelled_at,omitempty"`
	LineItems        []LineItem   `json:"line_items"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

var (
	ErrInvalidID         = errors.New("invalid_id")
	ErrInvalidProvider   = errors.New("invalid_provider")
	ErrInvalidStatus     = errors.New("invalid_status")
	ErrInvalidPeriod     = errors.New("invalid_period")
	ErrNotFound          = errors.New("not_found")
	ErrInvalidTransition = errors.New("invalid_status_transition")
)
