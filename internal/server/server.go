package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	auditdomain "github.com/railzwaylabs/caremarket/internal/audit/domain"
	catalogdomain "github.com/railzwaylabs/caremarket/internal/catalog/domain"
	"github.com/railzwaylabs/caremarket/internal/config"
	discountdomain "github.com/railzwaylabs/caremarket/internal/discount/domain"
	invoicedomain "github.com/railzwaylabs/caremarket/internal/invoice/domain"
	"github.com/railzwaylabs/caremarket/internal/observability"
	payoutdomain "github.com/railzwaylabs/caremarket/internal/payout/domain"
	"github.com/railzwaylabs/caremarket/internal/redis"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	scopeCreateInvoice   = "invoice.create"
	scopeGeneratePayouts = "payout.generate"
)

type Params struct {
	fx.In

	Cfg         config.Config
	Log         *zap.Logger
	DB          *gorm.DB
	Metrics     *observability.Metrics  `optional:"true"`
	Tracer      trace.TracerProvider    `optional:"true"`
	Idempotency *redis.IdempotencyStore `optional:"true"`

	CatalogSvc     catalogdomain.Service
	DiscountSvc    discountdomain.Service
	InvoiceSvc     invoicedomain.Service
	PayoutSvc      payoutdomain.Service
	AuditSvc       auditdomain.Service
	AuditExportSvc auditdomain.ExportService
}

type Server struct {
	cfg     config.Config
	log     *zap.Logger
	db      *gorm.DB
	metrics *observability.Metrics
	tracer  trace.Tracer
	idem    *redis.IdempotencyStore

	catalogSvc     catalogdomain.Service
	discountSvc    discountdomain.Service
	invoiceSvc     invoicedomain.Service
	payoutSvc      payoutdomain.Service
	auditSvc       auditdomain.Service
	auditExportSvc auditdomain.ExportService

	engine *gin.Engine
}

func New(p Params) *Server {
	s := &Server{
		cfg:            p.Cfg,
		log:            p.Log.Named("server"),
		db:             p.DB,
		metrics:        p.Metrics,
		idem:           p.Idempotency,
		catalogSvc:     p.CatalogSvc,
		discountSvc:    p.DiscountSvc,
		invoiceSvc:     p.InvoiceSvc,
		payoutSvc:      p.PayoutSvc,
		auditSvc:       p.AuditSvc,
		auditExportSvc: p.AuditExportSvc,
	}
	if p.Tracer != nil {
		s.tracer = p.Tracer.Tracer("github.com/railzwaylabs/caremarket/internal/server")
	}

	if p.Cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	s.engine = gin.New()
	s.RegisterRoutes(s.engine)
	return s
}

// Handler exposes the configured engine, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.Use(
		gin.Recovery(),
		s.requestID(),
		s.tracing(),
		s.accessLog(),
		s.httpMetrics(),
	)
	r.NoRoute(func(c *gin.Context) { AbortWithError(c, ErrRouteNotFound) })

	r.GET("/healthz", s.Healthz)
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(
			prometheus.Gatherers{s.metrics.Registry, prometheus.DefaultGatherer},
			promhttp.HandlerOpts{},
		)))
	}

	v1 := r.Group("/v1")

	quotes := v1.Group("/quotes")
	quotes.POST("/earnings", s.QuoteEarnings)
	quotes.POST("/invoice_totals", s.QuoteInvoiceTotals)
	quotes.POST("/estimate", s.QuoteEstimate)
	quotes.POST("/installments", s.QuoteInstallments)
	quotes.POST("/payout_line", s.QuotePayoutLines)

	v1.POST("/categories", s.CreateCategory)
	v1.GET("/categories", s.ListCategories)
	v1.GET("/categories/:id", s.GetCategory)
	v1.PATCH("/categories/:id", s.UpdateCategory)

	v1.POST("/provider_services", s.CreateProviderService)
	v1.GET("/provider_services", s.ListProviderServices)
	v1.GET("/provider_services/:id", s.GetProviderService)
	v1.PATCH("/provider_services/:id", s.UpdateProviderService)
	v1.GET("/provider_services/:id/quote", s.QuoteProviderService)

	v1.POST("/invoices", s.idempotent(scopeCreateInvoice), s.CreateInvoice)
	v1.GET("/invoices", s.ListInvoices)
	v1.GET("/invoices/:id", s.GetInvoice)
	v1.POST("/invoices/:id/line_items", s.AddInvoiceLineItem)
	v1.PATCH("/invoices/:id/line_items/:item_id", s.UpdateInvoiceLineItem)
	v1.DELETE("/invoices/:id/line_items/:item_id", s.RemoveInvoiceLineItem)
	v1.POST("/invoices/:id/discount", s.ApplyInvoiceDiscount)
	v1.POST("/invoices/:id/installments", s.SetInvoiceInstallments)
	v1.POST("/invoices/:id/send", s.SendInvoice)
	v1.POST("/invoices/:id/pay", s.PayInvoice)
	v1.POST("/invoices/:id/cancel", s.CancelInvoice)
	v1.GET("/invoices/:id/verify", s.VerifyInvoice)
	v1.GET("/invoices/:id/pdf", s.InvoicePDF)

	v1.POST("/payouts/generate", s.idempotent(scopeGeneratePayouts), s.GeneratePayouts)
	v1.GET("/payouts", s.ListPayouts)
	v1.GET("/payouts/:id", s.GetPayout)
	v1.POST("/payouts/:id/process", s.ProcessPayout)
	v1.POST("/payouts/:id/mark_paid", s.MarkPayoutPaid)
	v1.POST("/payouts/:id/fail", s.FailPayout)
	v1.POST("/payouts/:id/cancel", s.CancelPayout)

	v1.POST("/discounts", s.CreateDiscount)
	v1.GET("/discounts", s.ListDiscounts)
	v1.GET("/discounts/:code", s.GetDiscount)
	v1.POST("/discounts/:code/check", s.CheckDiscount)
	v1.POST("/discounts/:code/deactivate", s.DeactivateDiscount)

	v1.GET("/audit/export", s.ExportAuditLogs)
}

// Healthz godoc
// @Summary      Liveness and database health
// @Tags         ops
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /healthz [get]
func (s *Server) Healthz(c *gin.Context) {
	sqlDB, err := s.db.DB()
	if err == nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		s.log.Warn("health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// RegisterHTTP binds the HTTP listener to the fx lifecycle.
func RegisterHTTP(lc fx.Lifecycle, s *Server) {
	srv := &http.Server{
		Addr:              s.cfg.HTTP.Addr,
		Handler:           s.engine,
		ReadTimeout:       s.cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.cfg.HTTP.WriteTimeout,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			s.log.Info("http server listening", zap.String("addr", ln.Addr().String()))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					s.log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			s.log.Info("http server shutting down")
			return srv.Shutdown(ctx)
		},
	})
}

var Module = fx.Module("server",
	fx.Provide(New),
	fx.Invoke(RegisterHTTP),
)
