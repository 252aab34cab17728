package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	auditrepo "github.com/railzwaylabs/caremarket/internal/audit/repository"
	auditservice "github.com/railzwaylabs/caremarket/internal/audit/service"
	catalogrepo "github.com/railzwaylabs/caremarket/internal/catalog/repository"
	catalogservice "github.com/railzwaylabs/caremarket/internal/catalog/service"
	"github.com/railzwaylabs/caremarket/internal/clock"
	"github.com/railzwaylabs/caremarket/internal/config"
	discountrepo "github.com/railzwaylabs/caremarket/internal/discount/repository"
	discountservice "github.com/railzwaylabs/caremarket/internal/discount/service"
	"github.com/railzwaylabs/caremarket/internal/invoice/render"
	invoicerepo "github.com/railzwaylabs/caremarket/internal/invoice/repository"
	invoiceservice "github.com/railzwaylabs/caremarket/internal/invoice/service"
	"github.com/railzwaylabs/caremarket/internal/migration"
	"github.com/railzwaylabs/caremarket/internal/observability"
	payoutrepo "github.com/railzwaylabs/caremarket/internal/payout/repository"
	payoutservice "github.com/railzwaylabs/caremarket/internal/payout/service"
	"github.com/railzwaylabs/caremarket/internal/redis"
	"github.com/railzwaylabs/caremarket/internal/testutil"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var now = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	srv   *Server
	clock *clock.FixedClock
	redis *miniredis.Miniredis
}

func newTestServer(t *testing.T) testServer {
	t.Helper()

	db := testutil.OpenDB(t, migration.Models()...)
	node := testutil.Node(t)
	clk := clock.NewFixed(now)
	log := zap.NewNop()
	metrics := observability.NewMetrics()
	cfg := config.Config{
		App: config.AppConfig{Name: "caremarket", Env: config.EnvTest},
		Billing: config.BillingConfig{
			Currency:               "EUR",
			VATRate:                21,
			PlatformCommissionRate: 15,
			InvoiceDueDays:         14,
			CompanyName:            "Caremarket",
		},
	}

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	audit := auditservice.NewService(auditservice.Params{
		DB: db, Log: log, GenID: node, Clock: clk, Repo: auditrepo.Provide(),
	})
	catalog := catalogservice.New(catalogservice.Params{
		DB: db, Log: log, GenID: node, Clock: clk, Cfg: cfg, Repo: catalogrepo.Provide(), Metrics: metrics,
	})
	discounts := discountservice.New(discountservice.Params{
		DB: db, Log: log, GenID: node, Clock: clk, Repo: discountrepo.Provide(), Metrics: metrics,
	})
	invoices := invoiceservice.NewService(invoiceservice.Params{
		DB: db, Log: log, GenID: node, Clock: clk, Cfg: cfg, Repo: invoicerepo.Provide(),
		Discounts: discounts, Catalog: catalog, Audit: audit, Renderer: render.NewRenderer(cfg), Metrics: metrics,
	})
	payouts := payoutservice.NewService(payoutservice.Params{
		DB: db, Log: log, GenID: node, Clock: clk, Repo: payoutrepo.Provide(), Audit: audit, Metrics: metrics,
	})

	srv := New(Params{
		Cfg:            cfg,
		Log:            log,
		DB:             db,
		Metrics:        metrics,
		Idempotency:    redis.NewIdempotencyStore(client, cfg),
		CatalogSvc:     catalog,
		DiscountSvc:    discounts,
		InvoiceSvc:     invoices,
		PayoutSvc:      payouts,
		AuditSvc:       audit,
		AuditExportSvc: auditservice.NewExportService(db, auditrepo.Provide()),
	})
	return testServer{srv: srv, clock: clk, redis: mr}
}

type envelope struct {
	Data     json.RawMessage `json:"data"`
	PageInfo *struct {
		NextPageToken string `json:"next_page_token"`
		HasMore       bool   `json:"has_more"`
	} `json:"page_info"`
	Error *errorBody `json:"error"`
}

func (ts testServer) do(t *testing.T, method, path string, body any, headers ...string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

func TestQuoteEarningsUsesConfiguredRates(t *testing.T) {
	ts := newTestServer(t)

	w, env := ts.do(t, http.MethodPost, "/v1/quotes/earnings", map[string]any{"selling_price": "121.00"})
	require.Equal(t, http.StatusOK, w.Code)

	got := decode[struct {
		NetPrice         decimal.Decimal `json:"net_price"`
		VATAmount        decimal.Decimal `json:"vat_amount"`
		CommissionAmount decimal.Decimal `json:"commission_amount"`
		ProviderEarning  decimal.Decimal `json:"provider_earning"`
	}](t, env.Data)
	assertDecimal(t, "100.00", got.NetPrice)
	assertDecimal(t, "21.00", got.VATAmount)
	assertDecimal(t, "86.96", got.ProviderEarning)
	assertDecimal(t, "13.04", got.CommissionAmount)
}

func TestQuoteMoneyRendersTwoDecimals(t *testing.T) {
	ts := newTestServer(t)

	_, env := ts.do(t, http.MethodPost, "/v1/quotes/earnings", map[string]any{"selling_price": "121"})
	assert.Contains(t, string(env.Data), `"selling_price":"121.00"`)
	assert.Contains(t, string(env.Data), `"net_price":"100.00"`)
	assert.Contains(t, string(env.Data), `"vat_amount":"21.00"`)
	assert.Contains(t, string(env.Data), `"vat_rate":"21"`)

	_, env = ts.do(t, http.MethodPost, "/v1/quotes/estimate", map[string]any{
		"price":      "20",
		"price_unit": "per_hour",
		"start_at":   "2026-03-02T09:00:00Z",
		"end_at":     "2026-03-02T11:30:00Z",
	})
	assert.Contains(t, string(env.Data), `"estimated_total":"60.00"`)
	assert.Contains(t, string(env.Data), `"unit_price":"20.00"`)

	_, env = ts.do(t, http.MethodPost, "/v1/quotes/invoice_totals", map[string]any{
		"line_items": []map[string]any{{"description": "Visit", "quantity": "1", "unit_price": "110", "vat_rate": "10"}},
	})
	assert.Contains(t, string(env.Data), `"total_amount":"110.00"`)
	assert.Contains(t, string(env.Data), `"vat_amount":"10.00"`)
	assert.Contains(t, string(env.Data), `"line_total":"110.00"`)

	_, env = ts.do(t, http.MethodPost, "/v1/quotes/payout_line", map[string]any{
		"lines": []map[string]any{{"amount": "100", "commission_percentage": "10"}},
	})
	assert.Contains(t, string(env.Data), `"net_amount":"90.00"`)
	assert.Contains(t, string(env.Data), `"total":"90.00"`)

	_, env = ts.do(t, http.MethodPost, "/v1/quotes/installments", map[string]any{
		"total": "100", "percentages": []string{"50", "50"},
	})
	assert.Contains(t, string(env.Data), `"amount_due":"50.00"`)
}

func TestQuoteValidationErrors(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name string
		path string
		body any
		code string
	}{
		{"commission above 100", "/v1/quotes/earnings", map[string]any{"selling_price": "10", "commission_rate": "101"}, "invalid_commission_rate"},
		{"negative price", "/v1/quotes/earnings", map[string]any{"selling_price": "-1"}, "negative_amount"},
		{"percentages off", "/v1/quotes/installments", map[string]any{"total": "100", "percentages": []string{"30", "60"}}, "invalid_installment_percentage"},
		{"unknown unit", "/v1/quotes/estimate", map[string]any{"price": "20", "price_unit": "per_year"}, "invalid_price_unit"},
		{"no lines", "/v1/quotes/invoice_totals", map[string]any{"line_items": []any{}}, "empty_line_items"},
		{"malformed", "/v1/quotes/payout_line", "not an object", "invalid_request"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := ts.do(t, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, env.Error.Code)
			assert.Equal(t, errorTypeInvalidRequest, env.Error.Type)
		})
	}
}

func TestQuoteInvoiceTotalsRoundsVATOnce(t *testing.T) {
	ts := newTestServer(t)

	w, env := ts.do(t, http.MethodPost, "/v1/quotes/invoice_totals", map[string]any{
		"line_items": []map[string]any{
			{"description": "Nursing", "quantity": "2", "unit_price": "50.00", "vat_rate": "21"},
			{"description": "Transport", "quantity": "1", "unit_price": "100.00", "vat_rate": "10"},
		},
	})
	require.Equal(t, http.StatusOK, w.Code)

	got := decode[invoiceTotalsQuoteResponse](t, env.Data)
	assertDecimal(t, "200.00", got.Totals.Total)
	assertDecimal(t, "26.45", got.Totals.VAT)
	assertDecimal(t, "173.55", got.Totals.Net)
	require.Len(t, got.Lines, 2)
	assertDecimal(t, "17.36", got.Lines[0].VATAmount)
	assertDecimal(t, "9.09", got.Lines[1].VATAmount)
}

func TestQuoteInstallmentsAndEstimate(t *testing.T) {
	ts := newTestServer(t)

	w, env := ts.do(t, http.MethodPost, "/v1/quotes/installments", map[string]any{
		"total":       "200.01",
		"percentages": []string{"30", "70"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	parts := decode[[]struct {
		Sequence int             `json:"sequence"`
		Amount   decimal.Decimal `json:"amount_due"`
	}](t, env.Data)
	require.Len(t, parts, 2)
	assertDecimal(t, "60.00", parts[0].Amount)
	assertDecimal(t, "140.01", parts[1].Amount)

	w, env = ts.do(t, http.MethodPost, "/v1/quotes/estimate", map[string]any{
		"price":      "20.00",
		"price_unit": "per_hour",
		"start_at":   "2026-03-02T09:00:00Z",
		"end_at":     "2026-03-02T11:30:00Z",
	})
	require.Equal(t, http.StatusOK, w.Code)
	est := decode[struct {
		Units decimal.Decimal `json:"units"`
		Total decimal.Decimal `json:"estimated_total"`
	}](t, env.Data)
	assertDecimal(t, "3", est.Units)
	assertDecimal(t, "60.00", est.Total)
}

func TestQuotePayoutLines(t *testing.T) {
	ts := newTestServer(t)

	w, env := ts.do(t, http.MethodPost, "/v1/quotes/payout_line", map[string]any{
		"lines": []map[string]any{
			{"amount": "100.00", "commission_percentage": "15"},
			{"amount": "33.33", "commission_percentage": "12.5"},
		},
	})
	require.Equal(t, http.StatusOK, w.Code)

	got := decode[payoutLineQuoteResponse](t, env.Data)
	require.Len(t, got.Lines, 2)
	assertDecimal(t, "15.00", got.Lines[0].CommissionAmount)
	assertDecimal(t, "4.17", got.Lines[1].CommissionAmount)
	assertDecimal(t, "114.16", got.Total)
}

type invoiceView struct {
	ID             string `json:"id"`
	Status         string `json:"status"`
	TotalAmount    int64  `json:"total_amount"`
	VATAmount      int64  `json:"vat_amount"`
	NetAmount      int64  `json:"net_amount"`
	DiscountAmount int64  `json:"discount_amount"`
	AmountDue      int64  `json:"amount_due"`
	LineItems      []struct {
		ID string `json:"id"`
	} `json:"line_items"`
}

func createInvoice(t *testing.T, ts testServer, headers ...string) invoiceView {
	t.Helper()
	w, env := ts.do(t, http.MethodPost, "/v1/invoices", map[string]any{
		"client_id":   "1001",
		"provider_id": "2002",
		"line_items": []map[string]any{
			{"description": "Home care visit", "quantity": "2", "unit_price": "100.00", "vat_rate": "21"},
		},
	}, headers...)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[invoiceView](t, env.Data)
}

func TestInvoiceLifecycle(t *testing.T) {
	ts := newTestServer(t)

	inv := createInvoice(t, ts)
	assert.Equal(t, "draft", inv.Status)
	assert.Equal(t, int64(20000), inv.TotalAmount)
	assert.Equal(t, int64(3471), inv.VATAmount)
	assert.Equal(t, int64(16529), inv.NetAmount)

	w, env := ts.do(t, http.MethodPost, "/v1/invoices/"+inv.ID+"/line_items", map[string]any{
		"description": "Transport", "quantity": "1", "unit_price": "100.00", "vat_rate": "10",
	})
	require.Equal(t, http.StatusOK, w.Code)
	inv = decode[invoiceView](t, env.Data)
	assert.Equal(t, int64(30000), inv.TotalAmount)
	require.Len(t, inv.LineItems, 2)

	w, env = ts.do(t, http.MethodDelete, "/v1/invoices/"+inv.ID+"/line_items/"+inv.LineItems[1].ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	inv = decode[invoiceView](t, env.Data)
	assert.Equal(t, int64(20000), inv.TotalAmount)

	w, _ = ts.do(t, http.MethodPost, "/v1/invoices/"+inv.ID+"/send", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, env = ts.do(t, http.MethodPost, "/v1/invoices/"+inv.ID+"/line_items", map[string]any{
		"description": "Late", "quantity": "1", "unit_price": "1",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "invoice_not_draft", env.Error.Code)

	w, env = ts.do(t, http.MethodPost, "/v1/invoices/"+inv.ID+"/pay", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "paid", decode[invoiceView](t, env.Data).Status)

	w, env = ts.do(t, http.MethodPost, "/v1/invoices/"+inv.ID+"/cancel", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "invalid_status_transition", env.Error.Code)

	w, env = ts.do(t, http.MethodGet, "/v1/invoices/"+inv.ID+"/verify", nil)
	require.Equal(t, http.StatusOK, w.Code)
	verify := decode[struct {
		Consistent bool `json:"consistent"`
	}](t, env.Data)
	assert.True(t, verify.Consistent)

	w, _ = ts.do(t, http.MethodGet, "/v1/invoices/"+inv.ID+"/pdf", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))
}

func TestInvoiceNotFoundAndBadID(t *testing.T) {
	ts := newTestServer(t)

	w, env := ts.do(t, http.MethodGet, "/v1/invoices/12345", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", env.Error.Code)

	w, env = ts.do(t, http.MethodGet, "/v1/invoices/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_id", env.Error.Code)

	w, env = ts.do(t, http.MethodGet, "/v1/nothing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "route_not_found", env.Error.Code)
}

func TestDiscountRejectionIsUnprocessable(t *testing.T) {
	ts := newTestServer(t)

	w, _ := ts.do(t, http.MethodPost, "/v1/discounts", map[string]any{
		"code":             "BIGORDER",
		"is_percentage":    true,
		"value":            "10",
		"min_order_amount": "500.00",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, env := ts.do(t, http.MethodPost, "/v1/discounts/BIGORDER/check", map[string]any{"order_amount": "200.00"})
	require.Equal(t, http.StatusOK, w.Code)
	check := decode[struct {
		Valid   bool   `json:"valid"`
		Reason  string `json:"reason"`
		Message string `json:"message"`
	}](t, env.Data)
	assert.False(t, check.Valid)
	assert.Equal(t, "below_minimum", check.Reason)
	assert.NotEmpty(t, check.Message)

	inv := createInvoice(t, ts)
	w, env = ts.do(t, http.MethodPost, "/v1/invoices/"+inv.ID+"/discount", map[string]any{"code": "bigorder"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, errorTypeDiscount, env.Error.Type)
	assert.Equal(t, "below_minimum", env.Error.Code)
	assert.Equal(t, check.Message, env.Error.Message)
}

func TestApplyDiscountAndInstallments(t *testing.T) {
	ts := newTestServer(t)

	w, _ := ts.do(t, http.MethodPost, "/v1/discounts", map[string]any{
		"code": "TENOFF", "is_percentage": true, "value": "10",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	inv := createInvoice(t, ts)
	w, env := ts.do(t, http.MethodPost, "/v1/invoices/"+inv.ID+"/discount", map[string]any{"code": "TENOFF"})
	require.Equal(t, http.StatusOK, w.Code)
	inv = decode[invoiceView](t, env.Data)
	assert.Equal(t, int64(2000), inv.DiscountAmount)
	assert.Equal(t, int64(18000), inv.AmountDue)

	w, env = ts.do(t, http.MethodPost, "/v1/invoices/"+inv.ID+"/installments", map[string]any{
		"installments": []map[string]any{{"percentage": "30"}, {"percentage": "70"}},
	})
	require.Equal(t, http.StatusOK, w.Code)
	plan := decode[struct {
		Installments []struct {
			AmountDue int64 `json:"amount_due"`
		} `json:"installments"`
	}](t, env.Data)
	require.Len(t, plan.Installments, 2)
	assert.Equal(t, int64(18000), plan.Installments[0].AmountDue+plan.Installments[1].AmountDue)
}

func TestCreateInvoiceReplaysIdempotencyKey(t *testing.T) {
	ts := newTestServer(t)

	first := createInvoice(t, ts, "Idempotency-Key", "booking-77")

	w, env := ts.do(t, http.MethodPost, "/v1/invoices", map[string]any{
		"client_id":   "1001",
		"provider_id": "2002",
		"line_items":  []map[string]any{{"description": "Other", "quantity": "1", "unit_price": "5"}},
	}, "Idempotency-Key", "booking-77")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "true", w.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, first.ID, decode[invoiceView](t, env.Data).ID)

	w, env = ts.do(t, http.MethodGet, "/v1/invoices", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]invoiceView](t, env.Data), 1)
}

func TestPendingIdempotencyKeyConflicts(t *testing.T) {
	ts := newTestServer(t)

	require.NoError(t, ts.redis.Set("caremarket:idem:"+scopeCreateInvoice+":in-flight", "pending"))

	w, env := ts.do(t, http.MethodPost, "/v1/invoices", map[string]any{
		"client_id": "1001", "provider_id": "2002",
	}, "Idempotency-Key", "in-flight")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "idempotent_request_in_progress", env.Error.Code)
}

func TestIdempotencyKeyIsReleasedWhenHandlerPanics(t *testing.T) {
	ts := newTestServer(t)

	calls := 0
	ts.srv.engine.POST("/v1/panics", ts.srv.idempotent("panic.test"), func(c *gin.Context) {
		calls++
		panic("boom")
	})

	for i := 0; i < 2; i++ {
		w, _ := ts.do(t, http.MethodPost, "/v1/panics", map[string]any{}, "Idempotency-Key", "k-1")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	}
	assert.Equal(t, 2, calls)
	assert.False(t, ts.redis.Exists("caremarket:idem:panic.test:k-1"))
}

func TestGeneratePayoutsOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	inv := createInvoice(t, ts)
	w, _ := ts.do(t, http.MethodPost, "/v1/invoices/"+inv.ID+"/send", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = ts.do(t, http.MethodPost, "/v1/invoices/"+inv.ID+"/pay", nil)
	require.Equal(t, http.StatusOK, w.Code)

	period := map[string]any{
		"period_start": "2026-03-01T00:00:00Z",
		"period_end":   "2026-04-01T00:00:00Z",
	}
	w, env := ts.do(t, http.MethodPost, "/v1/payouts/generate", period)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	type payoutView struct {
		ID               string `json:"id"`
		Status           string `json:"status"`
		GrossAmount      int64  `json:"gross_amount"`
		CommissionAmount int64  `json:"commission_amount"`
		TotalAmount      int64  `json:"total_amount"`
	}
	generated := decode[struct {
		Payouts []payoutView `json:"payouts"`
	}](t, env.Data)
	require.Len(t, generated.Payouts, 1)
	p := generated.Payouts[0]
	assert.Equal(t, "pending", p.Status)
	assert.Equal(t, int64(16529), p.GrossAmount)
	assert.Equal(t, int64(2479), p.CommissionAmount)
	assert.Equal(t, int64(14050), p.TotalAmount)

	w, env = ts.do(t, http.MethodPost, "/v1/payouts/generate", period)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Empty(t, decode[struct {
		Payouts []payoutView `json:"payouts"`
	}](t, env.Data).Payouts)

	w, _ = ts.do(t, http.MethodPost, "/v1/payouts/"+p.ID+"/process", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, env = ts.do(t, http.MethodPost, "/v1/payouts/"+p.ID+"/fail", map[string]any{"reason": "bank rejected"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "failed", decode[payoutView](t, env.Data).Status)

	w, env = ts.do(t, http.MethodPost, "/v1/payouts/"+p.ID+"/mark_paid", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "invalid_status_transition", env.Error.Code)

	w, env = ts.do(t, http.MethodGet, "/v1/payouts?status=failed", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]payoutView](t, env.Data), 1)
}

func TestCatalogQuote(t *testing.T) {
	ts := newTestServer(t)

	w, env := ts.do(t, http.MethodPost, "/v1/categories", map[string]any{
		"code": "home-care", "name": "Home Care", "commission_rate": "10",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	category := decode[struct {
		ID string `json:"id"`
	}](t, env.Data)

	w, env = ts.do(t, http.MethodPost, "/v1/provider_services", map[string]any{
		"provider_id": "2002",
		"category_id": category.ID,
		"name":        "Evening care",
		"price":       "24.20",
		"currency":    "EUR",
		"price_unit":  "per_hour",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	service := decode[struct {
		ID           string `json:"id"`
		DisplayPrice string `json:"display_price"`
	}](t, env.Data)

	w, env = ts.do(t, http.MethodGet, "/v1/provider_services/"+service.ID+"/quote?start_at=2026-03-02T18:00:00Z&end_at=2026-03-02T22:00:00Z", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	quote := decode[struct {
		Estimate struct {
			Units decimal.Decimal `json:"units"`
			Total decimal.Decimal `json:"estimated_total"`
		} `json:"estimate"`
		Breakdown struct {
			NetPrice       decimal.Decimal `json:"net_price"`
			CommissionRate decimal.Decimal `json:"commission_rate"`
		} `json:"breakdown"`
	}](t, env.Data)
	assertDecimal(t, "4", quote.Estimate.Units)
	assertDecimal(t, "96.80", quote.Estimate.Total)
	assertDecimal(t, "80.00", quote.Breakdown.NetPrice)
	assertDecimal(t, "10", quote.Breakdown.CommissionRate)

	w, env = ts.do(t, http.MethodGet, "/v1/provider_services/"+service.ID+"/quote?end_at=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "end_at", env.Error.Field)
}

func TestAuditExport(t *testing.T) {
	ts := newTestServer(t)
	createInvoice(t, ts)

	w, _ := ts.do(t, http.MethodGet, "/v1/audit/export?start_date=2026-03-01&end_date=2026-03-02&format=json", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, w.Header().Get("X-Audit-Export-Checksum"), 64)
	assert.Equal(t, "1", w.Header().Get("X-Audit-Export-Count"))

	w, env := ts.do(t, http.MethodGet, "/v1/audit/export?start_date=2026-01-01&end_date=2026-06-01", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_export_range", env.Error.Code)

	w, env = ts.do(t, http.MethodGet, "/v1/audit/export?start_date=2026-03-01&end_date=2026-03-02&format=xml", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_export_format", env.Error.Code)
}

func TestHealthzAndMetrics(t *testing.T) {
	ts := newTestServer(t)

	w, _ := ts.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	ts.do(t, http.MethodPost, "/v1/quotes/earnings", map[string]any{"selling_price": "10"})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `caremarket_pricing_calculations_total{kind="earnings"} 1`)
	assert.Contains(t, rec.Body.String(), "caremarket_http_requests_total")
}

func TestRequestIDIsEchoed(t *testing.T) {
	ts := newTestServer(t)

	w, _ := ts.do(t, http.MethodGet, "/healthz", nil, requestIDHeader, "req-123")
	assert.Equal(t, "req-123", w.Header().Get(requestIDHeader))

	w, _ = ts.do(t, http.MethodGet, "/healthz", nil)
	assert.Len(t, w.Header().Get(requestIDHeader), 36)
}
