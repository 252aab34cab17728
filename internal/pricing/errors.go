package pricing

import "errors"

var (
	ErrInvalidCommissionRate = errors.New("invalid_commission_rate")
	ErrInvalidVATRate        = errors.New("invalid_vat_rate")
	ErrNegativeAmount        = errors.New("negative_amount")
	ErrRoundingOverflow      = errors.New("rounding_overflow")
	ErrInstallmentPercentage = errors.New("invalid_installment_percentage")
	ErrInstallmentAmount     = errors.New("invalid_installment_amount")
	ErrEmptyInstallments     = errors.New("empty_installments")
	ErrInvalidPriceUnit      = errors.New("invalid_price_unit")
	ErrInvalidPeriod         = errors.New("invalid_period")
	ErrInvalidDiscountValue  = errors.New("invalid_discount_value")
)
