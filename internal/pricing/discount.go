package pricing

import (
	"errors"
	"time"

	"github.com/railzwaylabs/caremarket/internal/money"
	"github.com/shopspring/decimal"
)

// ErrInvalidDiscount matches every discount rejection reason.
var ErrInvalidDiscount = errors.New("invalid_discount")

type DiscountReason string

const (
	DiscountReasonInactive       DiscountReason = "inactive"
	DiscountReasonNotStarted     DiscountReason = "not_started"
	DiscountReasonExpired        DiscountReason = "expired"
	DiscountReasonUsageExhausted DiscountReason = "usage_exhausted"
	DiscountReasonBelowMinimum   DiscountReason = "below_minimum"
)

// DiscountError is a rejection with a reason a client can act on.
type DiscountError struct {
	Reason DiscountReason
}

func (e *DiscountError) Error() string {
	return "invalid_discount: " + string(e.Reason)
}

func (e *DiscountError) Is(target error) bool {
	return target == ErrInvalidDiscount
}

// Message is the user-facing explanation of the rejection.
func (e *DiscountError) Message() string {
	switch e.Reason {
	case DiscountReasonInactive:
		return "This discount code is no longer active."
	case DiscountReasonNotStarted:
		return "This discount code is not valid yet."
	case DiscountReasonExpired:
		return "This discount code has expired."
	case DiscountReasonUsageExhausted:
		return "This discount code has reached its maximum number of uses."
	case DiscountReasonBelowMinimum:
		return "Your order does not reach the minimum amount for this discount code."
	default:
		return "This discount code cannot be applied."
	}
}

var (
	ErrDiscountInactive       = &DiscountError{Reason: DiscountReasonInactive}
	ErrDiscountNotStarted     = &DiscountError{Reason: DiscountReasonNotStarted}
	ErrDiscountExpired        = &DiscountError{Reason: DiscountReasonExpired}
	ErrDiscountUsageExhausted = &DiscountError{Reason: DiscountReasonUsageExhausted}
	ErrDiscountBelowMinimum   = &DiscountError{Reason: DiscountReasonBelowMinimum}
)

// DiscountMessage returns the user-facing message for a discount rejection,
// or an empty string when err is not one.
func DiscountMessage(err error) string {
	var de *DiscountError
	if errors.As(err, &de) {
		return de.Message()
	}
	return ""
}

// Discount is the definition evaluated against an order.
// Value is a percentage when IsPercentage, an amount otherwise.
type Discount struct {
	Code           string
	IsPercentage   bool
	Value          decimal.Decimal
	MinOrderAmount decimal.Decimal
	StartsAt       *time.Time
	EndsAt         *time.Time
	MaxUses        *int
	UsesCount      int
	IsActive       bool
}

// ValidateDiscountValue rejects negative values, values with more than two
// decimals and percentages above 100.
func ValidateDiscountValue(isPercentage bool, value decimal.Decimal) error {
	if value.IsNegative() || !money.FitsScale(value, money.MinorUnits) {
		return ErrInvalidDiscountValue
	}
	if isPercentage && value.GreaterThan(money.Hundred()) {
		return ErrInvalidDiscountValue
	}
	return nil
}

// EvaluateDiscount decides whether d applies to orderAmount at now and
// returns the amount to deduct. The deduction never exceeds the order.
func EvaluateDiscount(d Discount, orderAmount decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	if orderAmount.IsNegative() {
		return decimal.Zero, ErrNegativeAmount
	}
	if err := ValidateDiscountValue(d.IsPercentage, d.Value); err != nil {
		return decimal.Zero, err
	}

	switch {
	case !d.IsActive:
		return decimal.Zero, ErrDiscountInactive
	case d.StartsAt != nil && d.StartsAt.After(now):
		return decimal.Zero, ErrDiscountNotStarted
	case d.EndsAt != nil && d.EndsAt.Before(now):
		return decimal.Zero, ErrDiscountExpired
	case d.MaxUses != nil && d.UsesCount >= *d.MaxUses:
		return decimal.Zero, ErrDiscountUsageExhausted
	case orderAmount.LessThan(d.MinOrderAmount):
		return decimal.Zero, ErrDiscountBelowMinimum
	}

	amount := d.Value
	if d.IsPercentage {
		amount = money.Round(orderAmount.Mul(d.Value).Div(money.Hundred()))
	}
	return decimal.Min(amount, orderAmount), nil
}
