// @title           Caremarket Billing API
// @version         1.0
// @description     Marketplace billing: quotes, invoices, discounts and provider payouts.

// @host      localhost:8080
// @BasePath  /
// @Schemes   http https

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/caremarket/internal/audit"
	"github.com/railzwaylabs/caremarket/internal/bootstrap"
	"github.com/railzwaylabs/caremarket/internal/catalog"
	"github.com/railzwaylabs/caremarket/internal/clock"
	"github.com/railzwaylabs/caremarket/internal/config"
	"github.com/railzwaylabs/caremarket/internal/discount"
	"github.com/railzwaylabs/caremarket/internal/invoice"
	"github.com/railzwaylabs/caremarket/internal/migration"
	"github.com/railzwaylabs/caremarket/internal/observability"
	"github.com/railzwaylabs/caremarket/internal/payout"
	"github.com/railzwaylabs/caremarket/internal/pricing"
	"github.com/railzwaylabs/caremarket/internal/redis"
	"github.com/railzwaylabs/caremarket/internal/scheduler"
	"github.com/railzwaylabs/caremarket/internal/server"
	"github.com/railzwaylabs/caremarket/pkg/db"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "caremarket",
		Short:   "Caremarket billing service",
		Version: readVersionFromEnv(),
	}
	root.AddCommand(newMigrateCmd(), newServeCmd(), newSchedulerCmd(), newAllCmd(), newQuoteCmd())
	return root
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations and activate schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate()
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			runServe()
			return nil
		},
	}
}

func newSchedulerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scheduler",
		Short: "Run background jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			runScheduler()
			return nil
		},
	}
}

func newAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "all",
		Short: "Run migrations, then start the API and the scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runMigrate(); err != nil {
				return err
			}
			runMonolith()
			return nil
		},
	}
}

func newQuoteCmd() *cobra.Command {
	quote := &cobra.Command{
		Use:   "quote",
		Short: "Offline price calculators",
	}

	var vatRate, commissionRate string
	earnings := &cobra.Command{
		Use:   "earnings <selling-price>",
		Short: "Split a VAT-inclusive selling price into VAT, commission and provider earning",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			in := pricing.EarningsInput{
				VATRate:        decimal.NewFromFloat(cfg.Billing.VATRate),
				CommissionRate: decimal.NewFromFloat(cfg.Billing.PlatformCommissionRate),
			}
			if in.SellingPrice, err = decimal.NewFromString(args[0]); err != nil {
				return fmt.Errorf("selling price: %w", err)
			}
			if vatRate != "" {
				if in.VATRate, err = decimal.NewFromString(vatRate); err != nil {
					return fmt.Errorf("vat rate: %w", err)
				}
			}
			if commissionRate != "" {
				if in.CommissionRate, err = decimal.NewFromString(commissionRate); err != nil {
					return fmt.Errorf("commission rate: %w", err)
				}
			}

			breakdown, err := pricing.Earnings(in)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(breakdown)
		},
	}
	earnings.Flags().StringVar(&vatRate, "vat-rate", "", "VAT percentage (defaults to billing.vat_rate)")
	earnings.Flags().StringVar(&commissionRate, "commission-rate", "", "commission percentage (defaults to billing.platform_commission_rate)")

	quote.AddCommand(earnings)
	return quote
}

func runMigrate() error {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		migration.Module,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("migrate failed: %w", err)
	}
	_ = app.Stop(context.Background())
	return nil
}

func domainModules() fx.Option {
	return fx.Options(
		audit.Module,
		catalog.Module,
		discount.Module,
		invoice.Module,
		payout.Module,
	)
}

func runServe() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		clock.Module,
		redis.Module,
		bootstrap.Module,
		domainModules(),
		server.Module,
		fx.Invoke(config.WatchConfigFile),
	)
	app.Run()
}

func runScheduler() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		clock.Module,
		bootstrap.Module,
		domainModules(),
		scheduler.Module,
		fx.Invoke(config.WatchConfigFile),
	)
	app.Run()
}

func runMonolith() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		clock.Module,
		redis.Module,
		bootstrap.Module,
		domainModules(),
		server.Module,
		scheduler.Module,
		fx.Invoke(config.WatchConfigFile),
	)
	app.Run()
}

func registerSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.App.NodeID)
}

func readVersionFromEnv() string {
	if v := strings.TrimSpace(os.Getenv("APP_VERSION")); v != "" {
		return v
	}
	return "dev"
}
