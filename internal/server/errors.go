package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/railzwaylabs/caremarket/internal/audit/domain"
	catalogdomain "github.com/railzwaylabs/caremarket/internal/catalog/domain"
	discountdomain "github.com/railzwaylabs/caremarket/internal/discount/domain"
	invoicedomain "github.com/railzwaylabs/caremarket/internal/invoice/domain"
	"github.com/railzwaylabs/caremarket/internal/money"
	payoutdomain "github.com/railzwaylabs/caremarket/internal/payout/domain"
	"github.com/railzwaylabs/caremarket/internal/pricing"
	"github.com/railzwaylabs/caremarket/internal/redis"
	"github.com/railzwaylabs/caremarket/pkg/db/pagination"
)

const (
	errorTypeInvalidRequest = "invalid_request_error"
	errorTypeNotFound       = "not_found_error"
	errorTypeConflict       = "conflict_error"
	errorTypeDiscount       = "discount_error"
	errorTypeUnavailable    = "unavailable_error"
	errorTypeAPI            = "api_error"
)

type errorBody struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// APIError is an error that already knows its HTTP shape.
type APIError struct {
	Status int
	Body   errorBody
}

func (e *APIError) Error() string { return e.Body.Code }

var (
	ErrInvalidRequest = &APIError{Status: http.StatusBadRequest, Body: errorBody{
		Type: errorTypeInvalidRequest, Code: "invalid_request", Message: "The request could not be parsed.",
	}}
	ErrRouteNotFound = &APIError{Status: http.StatusNotFound, Body: errorBody{
		Type: errorTypeNotFound, Code: "route_not_found", Message: "No route matches the request.",
	}}
	ErrInternal = &APIError{Status: http.StatusInternalServerError, Body: errorBody{
		Type: errorTypeAPI, Code: "internal_error", Message: "An internal error occurred.",
	}}
)

func invalidRequestError() error {
	return ErrInvalidRequest
}

func newValidationError(field, code, message string) error {
	return &APIError{Status: http.StatusBadRequest, Body: errorBody{
		Type:    errorTypeInvalidRequest,
		Code:    code,
		Message: message,
		Field:   field,
	}}
}

type errorMapping struct {
	err    error
	status int
	kind   string
}

var errorMappings = []errorMapping{
	{catalogdomain.ErrNotFound, http.StatusNotFound, errorTypeNotFound},
	{discountdomain.ErrNotFound, http.StatusNotFound, errorTypeNotFound},
	{invoicedomain.ErrNotFound, http.StatusNotFound, errorTypeNotFound},
	{invoicedomain.ErrLineItemNotFound, http.StatusNotFound, errorTypeNotFound},
	{payoutdomain.ErrNotFound, http.StatusNotFound, errorTypeNotFound},

	{invoicedomain.ErrInvoiceNotDraft, http.StatusConflict, errorTypeConflict},
	{invoicedomain.ErrInvalidTransition, http.StatusConflict, errorTypeConflict},
	{invoicedomain.ErrDiscountAlreadyApplied, http.StatusConflict, errorTypeConflict},
	{invoicedomain.ErrEmptyLineItems, http.StatusConflict, errorTypeConflict},
	{payoutdomain.ErrInvalidTransition, http.StatusConflict, errorTypeConflict},
	{catalogdomain.ErrDuplicateCategoryCode, http.StatusConflict, errorTypeConflict},
	{catalogdomain.ErrCategoryInactive, http.StatusConflict, errorTypeConflict},
	{catalogdomain.ErrServiceInactive, http.StatusConflict, errorTypeConflict},
	{discountdomain.ErrDuplicateCode, http.StatusConflict, errorTypeConflict},
	{redis.ErrRequestInProgress, http.StatusConflict, errorTypeConflict},
	{pricing.ErrRoundingOverflow, http.StatusConflict, errorTypeConflict},

	{invoicedomain.ErrRenderUnavailable, http.StatusServiceUnavailable, errorTypeUnavailable},

	{pagination.ErrInvalidPageToken, http.StatusBadRequest, errorTypeInvalidRequest},
	{money.ErrInvalidAmount, http.StatusBadRequest, errorTypeInvalidRequest},
	{pricing.ErrInvalidCommissionRate, http.StatusBadRequest, errorTypeInvalidRequest},
	{pricing.ErrInvalidVATRate, http.StatusBadRequest, errorTypeInvalidRequest},
	{pricing.ErrNegativeAmount, http.StatusBadRequest, errorTypeInvalidRequest},
	{pricing.ErrInstallmentPercentage, http.StatusBadRequest, errorTypeInvalidRequest},
	{pricing.ErrInstallmentAmount, http.StatusBadRequest, errorTypeInvalidRequest},
	{pricing.ErrEmptyInstallments, http.StatusBadRequest, errorTypeInvalidRequest},
	{pricing.ErrInvalidPriceUnit, http.StatusBadRequest, errorTypeInvalidRequest},
	{pricing.ErrInvalidPeriod, http.StatusBadRequest, errorTypeInvalidRequest},
	{pricing.ErrInvalidDiscountValue, http.StatusBadRequest, errorTypeInvalidRequest},
	{catalogdomain.ErrInvalidName, http.StatusBadRequest, errorTypeInvalidRequest},
	{catalogdomain.ErrInvalidCode, http.StatusBadRequest, errorTypeInvalidRequest},
	{catalogdomain.ErrInvalidID, http.StatusBadRequest, errorTypeInvalidRequest},
	{catalogdomain.ErrInvalidProvider, http.StatusBadRequest, errorTypeInvalidRequest},
	{catalogdomain.ErrInvalidCategory, http.StatusBadRequest, errorTypeInvalidRequest},
	{catalogdomain.ErrInvalidPrice, http.StatusBadRequest, errorTypeInvalidRequest},
	{catalogdomain.ErrInvalidCurrency, http.StatusBadRequest, errorTypeInvalidRequest},
	{discountdomain.ErrInvalidCode, http.StatusBadRequest, errorTypeInvalidRequest},
	{discountdomain.ErrInvalidWindow, http.StatusBadRequest, errorTypeInvalidRequest},
	{discountdomain.ErrInvalidMaxUses, http.StatusBadRequest, errorTypeInvalidRequest},
	{discountdomain.ErrInvalidMinOrder, http.StatusBadRequest, errorTypeInvalidRequest},
	{invoicedomain.ErrInvalidID, http.StatusBadRequest, errorTypeInvalidRequest},
	{invoicedomain.ErrInvalidClient, http.StatusBadRequest, errorTypeInvalidRequest},
	{invoicedomain.ErrInvalidProvider, http.StatusBadRequest, errorTypeInvalidRequest},
	{invoicedomain.ErrInvalidCurrency, http.StatusBadRequest, errorTypeInvalidRequest},
	{invoicedomain.ErrInvalidStatus, http.StatusBadRequest, errorTypeInvalidRequest},
	{invoicedomain.ErrInvalidDescription, http.StatusBadRequest, errorTypeInvalidRequest},
	{invoicedomain.ErrInvalidQuantity, http.StatusBadRequest, errorTypeInvalidRequest},
	{invoicedomain.ErrInvalidUnitPrice, http.StatusBadRequest, errorTypeInvalidRequest},
	{payoutdomain.ErrInvalidID, http.StatusBadRequest, errorTypeInvalidRequest},
	{payoutdomain.ErrInvalidProvider, http.StatusBadRequest, errorTypeInvalidRequest},
	{payoutdomain.ErrInvalidStatus, http.StatusBadRequest, errorTypeInvalidRequest},
	{payoutdomain.ErrInvalidPeriod, http.StatusBadRequest, errorTypeInvalidRequest},
	{auditdomain.ErrInvalidExportFormat, http.StatusBadRequest, errorTypeInvalidRequest},
	{auditdomain.ErrInvalidExportRange, http.StatusBadRequest, errorTypeInvalidRequest},
	{auditdomain.ErrInvalidAction, http.StatusBadRequest, errorTypeInvalidRequest},
}

func toAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var discountErr *pricing.DiscountError
	if errors.As(err, &discountErr) {
		return &APIError{Status: http.StatusUnprocessableEntity, Body: errorBody{
			Type:    errorTypeDiscount,
			Code:    string(discountErr.Reason),
			Message: discountErr.Message(),
		}}
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return &APIError{Status: m.status, Body: errorBody{
				Type:    m.kind,
				Code:    m.err.Error(),
				Message: err.Error(),
			}}
		}
	}
	return ErrInternal
}

// AbortWithError records err on the context and writes the error envelope.
func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		err = ErrInternal
	}
	apiErr := toAPIError(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(apiErr.Status, gin.H{"error": apiErr.Body})
}
