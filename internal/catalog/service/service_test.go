package service

import (
	"context"
	"testing"
	"time"

	"github.com/railzwaylabs/caremarket/internal/catalog/domain"
	"github.com/railzwaylabs/caremarket/internal/catalog/repository"
	"github.com/railzwaylabs/caremarket/internal/clock"
	"github.com/railzwaylabs/caremarket/internal/config"
	"github.com/railzwaylabs/caremarket/internal/pricing"
	"github.com/railzwaylabs/caremarket/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func newTestService(t *testing.T) domain.Service {
	t.Helper()
	db := testutil.OpenDB(t, &domain.Category{}, &domain.ProviderService{})
	cfg := config.Config{Billing: config.BillingConfig{
		Currency:               "EUR",
		VATRate:                21,
		PlatformCommissionRate: 15,
	}}
	return New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: testutil.Node(t),
		Clock: clock.NewFixed(time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)),
		Cfg:   cfg,
		Repo:  repository.Provide(),
	})
}

func TestCreateCategoryDerivesSlug(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	cat, err := svc.CreateCategory(ctx, domain.CreateCategoryRequest{Name: "Elderly Care"})
	require.NoError(t, err)
	assert.Equal(t, "elderly-care", cat.Code)
	assert.Nil(t, cat.CommissionRate)
	assert.True(t, cat.VATRate.Equal(dec("21")))
	assert.True(t, cat.Active)

	_, err = svc.CreateCategory(ctx, domain.CreateCategoryRequest{Name: "Elderly care again", Code: "elderly-care"})
	assert.ErrorIs(t, err, domain.ErrDuplicateCategoryCode)

	_, err = svc.CreateCategory(ctx, domain.CreateCategoryRequest{Name: "Bad", Code: "Not A Slug"})
	assert.ErrorIs(t, err, domain.ErrInvalidCode)

	_, err = svc.CreateCategory(ctx, domain.CreateCategoryRequest{Name: "Pets", CommissionRate: decPtr("101")})
	assert.ErrorIs(t, err, pricing.ErrInvalidCommissionRate)

	_, err = svc.CreateCategory(ctx, domain.CreateCategoryRequest{Name: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidName)
}

func TestResolveCommissionRateOrder(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	plain, err := svc.CreateCategory(ctx, domain.CreateCategoryRequest{Name: "Cleaning"})
	require.NoError(t, err)
	custom, err := svc.CreateCategory(ctx, domain.CreateCategoryRequest{Name: "Transport", CommissionRate: decPtr("10")})
	require.NoError(t, err)

	onPlain, err := svc.CreateProviderService(ctx, domain.CreateProviderServiceRequest{
		ProviderID: "1001", CategoryID: plain.ID, Name: "Deep clean", Price: dec("40"), PriceUnit: "per_service",
	})
	require.NoError(t, err)
	onCustom, err := svc.CreateProviderService(ctx, domain.CreateProviderServiceRequest{
		ProviderID: "1001", CategoryID: custom.ID, Name: "Airport run", Price: dec("0.45"), PriceUnit: "per_km",
	})
	require.NoError(t, err)
	overridden, err := svc.CreateProviderService(ctx, domain.CreateProviderServiceRequest{
		ProviderID: "1001", CategoryID: custom.ID, Name: "Night run", Price: dec("0.60"), PriceUnit: "per_km",
		CommissionRateOverride: decPtr("5"),
	})
	require.NoError(t, err)

	rate, err := svc.ResolveCommissionRate(ctx, onPlain.ID)
	require.NoError(t, err)
	assert.True(t, rate.Equal(dec("15")), rate.String())

	rate, err = svc.ResolveCommissionRate(ctx, onCustom.ID)
	require.NoError(t, err)
	assert.True(t, rate.Equal(dec("10")), rate.String())

	rate, err = svc.ResolveCommissionRate(ctx, overridden.ID)
	require.NoError(t, err)
	assert.True(t, rate.Equal(dec("5")), rate.String())

	_, err = svc.UpdateProviderService(ctx, domain.UpdateProviderServiceRequest{ID: overridden.ID, ClearOverride: true})
	require.NoError(t, err)
	rate, err = svc.ResolveCommissionRate(ctx, overridden.ID)
	require.NoError(t, err)
	assert.True(t, rate.Equal(dec("10")), rate.String())

	_, err = svc.ResolveCommissionRate(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrInvalidID)
	_, err = svc.ResolveCommissionRate(ctx, "42")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestQuoteHourlyBooking(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	cat, err := svc.CreateCategory(ctx, domain.CreateCategoryRequest{Name: "Home care"})
	require.NoError(t, err)
	item, err := svc.CreateProviderService(ctx, domain.CreateProviderServiceRequest{
		ProviderID: "77", CategoryID: cat.ID, Name: "Companion visit", Price: dec("20"), PriceUnit: "PER_HOUR",
	})
	require.NoError(t, err)
	assert.Equal(t, "20.00/hour", item.DisplayPrice)
	assert.Equal(t, "EUR", item.Currency)
	assert.Equal(t, int64(2000), item.PriceAmount)

	start := time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)
	end := time.Date(2026, 4, 2, 11, 30, 0, 0, time.UTC)
	quote, err := svc.Quote(ctx, domain.QuoteRequest{ProviderServiceID: item.ID, StartAt: start, EndAt: &end})
	require.NoError(t, err)

	assert.True(t, quote.Estimate.Total.Equal(dec("60")), quote.Estimate.Total.String())
	assert.True(t, quote.Breakdown.NetPrice.Equal(dec("49.59")), quote.Breakdown.NetPrice.String())
	assert.True(t, quote.Breakdown.VATAmount.Equal(dec("10.41")), quote.Breakdown.VATAmount.String())
	assert.True(t, quote.Breakdown.ProviderEarning.Equal(dec("43.12")), quote.Breakdown.ProviderEarning.String())
	assert.True(t, quote.Breakdown.CommissionAmount.Equal(dec("6.47")), quote.Breakdown.CommissionAmount.String())
}

func TestCreateProviderServiceValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	inactive := false
	cat, err := svc.CreateCategory(ctx, domain.CreateCategoryRequest{Name: "Archived", Active: &inactive})
	require.NoError(t, err)

	_, err = svc.CreateProviderService(ctx, domain.CreateProviderServiceRequest{
		ProviderID: "1", CategoryID: cat.ID, Name: "x", Price: dec("10"), PriceUnit: "per_hour",
	})
	assert.ErrorIs(t, err, domain.ErrCategoryInactive)

	_, err = svc.CreateProviderService(ctx, domain.CreateProviderServiceRequest{
		ProviderID: "1", CategoryID: cat.ID, Name: "x", Price: dec("10.005"), PriceUnit: "per_hour",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidPrice)

	_, err = svc.CreateProviderService(ctx, domain.CreateProviderServiceRequest{
		ProviderID: "1", CategoryID: cat.ID, Name: "x", Price: dec("10"), PriceUnit: "per_fortnight",
	})
	assert.ErrorIs(t, err, pricing.ErrInvalidPriceUnit)

	_, err = svc.CreateProviderService(ctx, domain.CreateProviderServiceRequest{
		ProviderID: "", CategoryID: cat.ID, Name: "x", Price: dec("10"), PriceUnit: "per_hour",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidProvider)
}

func TestListCategoriesPaginates(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for _, name := range []string{"A care", "B care", "C care"} {
		_, err := svc.CreateCategory(ctx, domain.CreateCategoryRequest{Name: name})
		require.NoError(t, err)
	}

	first, err := svc.ListCategories(ctx, domain.CategoryListRequest{PageSize: 2})
	require.NoError(t, err)
	require.Len(t, first.Categories, 2)
	assert.True(t, first.PageInfo.HasMore)

	second, err := svc.ListCategories(ctx, domain.CategoryListRequest{PageSize: 2, PageToken: first.PageInfo.NextPageToken})
	require.NoError(t, err)
	require.Len(t, second.Categories, 1)
	assert.False(t, second.PageInfo.HasMore)

	seen := map[string]bool{}
	for _, c := range append(first.Categories, second.Categories...) {
		seen[c.Code] = true
	}
	assert.Len(t, seen, 3)
}

func TestRatesBeyondStoredScaleAreRejected(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateCategory(ctx, domain.CreateCategoryRequest{Name: "Pets", CommissionRate: decPtr("12.345")})
	assert.ErrorIs(t, err, pricing.ErrInvalidCommissionRate)

	_, err = svc.CreateCategory(ctx, domain.CreateCategoryRequest{Name: "Pets", VATRate: decPtr("21.005")})
	assert.ErrorIs(t, err, pricing.ErrInvalidVATRate)

	cat, err := svc.CreateCategory(ctx, domain.CreateCategoryRequest{Name: "Pets", CommissionRate: decPtr("12.5")})
	require.NoError(t, err)

	_, err = svc.UpdateCategory(ctx, domain.UpdateCategoryRequest{ID: cat.ID, CommissionRate: decPtr("12.345")})
	assert.ErrorIs(t, err, pricing.ErrInvalidCommissionRate)

	_, err = svc.CreateProviderService(ctx, domain.CreateProviderServiceRequest{
		ProviderID: "1", CategoryID: cat.ID, Name: "Dog walking", Price: dec("10"), PriceUnit: "per_hour",
		CommissionRateOverride: decPtr("12.345"),
	})
	assert.ErrorIs(t, err, pricing.ErrInvalidCommissionRate)

	item, err := svc.CreateProviderService(ctx, domain.CreateProviderServiceRequest{
		ProviderID: "1", CategoryID: cat.ID, Name: "Dog walking", Price: dec("10"), PriceUnit: "per_hour",
	})
	require.NoError(t, err)

	_, err = svc.UpdateProviderService(ctx, domain.UpdateProviderServiceRequest{ID: item.ID, VATRate: decPtr("9.999")})
	assert.ErrorIs(t, err, pricing.ErrInvalidVATRate)
}
