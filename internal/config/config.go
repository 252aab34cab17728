package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const envPrefix = "CAREMARKET"

type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
	EnvTest        Environment = "test"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Log       LogConfig       `mapstructure:"log"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	Billing   BillingConfig   `mapstructure:"billing"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

type AppConfig struct {
	Name    string      `mapstructure:"name"`
	Env     Environment `mapstructure:"env"`
	Version string      `mapstructure:"version"`
	NodeID  int64       `mapstructure:"node_id"`
}

type HTTPConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	Name            string        `mapstructure:"name"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	Metrics         bool          `mapstructure:"metrics"`
	Tracing         bool          `mapstructure:"tracing"`
	LogQueries      bool          `mapstructure:"log_queries"`
}

type RedisConfig struct {
	Addr           string        `mapstructure:"addr"`
	Password       string        `mapstructure:"password"`
	DB             int           `mapstructure:"db"`
	IdempotencyTTL time.Duration `mapstructure:"idempotency_ttl"`
}

type LogConfig struct {
	Level  string        `mapstructure:"level"`
	Format string        `mapstructure:"format"`
	File   LogFileConfig `mapstructure:"file"`
}

type LogFileConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Insecure    bool    `mapstructure:"insecure"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// BillingConfig holds the platform-wide monetary defaults.
type BillingConfig struct {
	Currency               string  `mapstructure:"currency"`
	VATRate                float64 `mapstructure:"vat_rate"`
	PlatformCommissionRate float64 `mapstructure:"platform_commission_rate"`
	InvoiceDueDays         int     `mapstructure:"invoice_due_days"`
	CompanyName            string  `mapstructure:"company_name"`
}

type SchedulerConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	OverdueSpec        string `mapstructure:"overdue_spec"`
	PayoutSpec         string `mapstructure:"payout_spec"`
	AuditRetentionDays int    `mapstructure:"audit_retention_days"`
	RetentionSpec      string `mapstructure:"retention_spec"`
}

func (c Config) IsProduction() bool {
	return c.App.Env == EnvProduction
}

// Validate rejects configurations the service cannot start with.
func (c Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.Database.Driver) {
	case "postgres", "mysql", "sqlite", "sqlite3":
	default:
		errs = append(errs, fmt.Errorf("database.driver %q is not supported", c.Database.Driver))
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}
	if strings.TrimSpace(c.HTTP.Addr) == "" {
		errs = append(errs, errors.New("http.addr is required"))
	}
	if c.Billing.PlatformCommissionRate < 0 || c.Billing.PlatformCommissionRate > 100 {
		errs = append(errs, errors.New("billing.platform_commission_rate must be within [0,100]"))
	}
	if c.Billing.VATRate < 0 {
		errs = append(errs, errors.New("billing.vat_rate must not be negative"))
	}
	if len(strings.TrimSpace(c.Billing.Currency)) != 3 {
		errs = append(errs, errors.New("billing.currency must be an ISO-4217 code"))
	}
	if c.Billing.InvoiceDueDays < 0 {
		errs = append(errs, errors.New("billing.invoice_due_days must not be negative"))
	}
	if c.App.NodeID < 0 || c.App.NodeID > 1023 {
		errs = append(errs, errors.New("app.node_id must be within [0,1023]"))
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		errs = append(errs, errors.New("tracing.sample_ratio must be within [0,1]"))
	}

	return errors.Join(errs...)
}
