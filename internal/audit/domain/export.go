package domain

import (
	"context"
	"errors"
	"time"
)

// ExportFormat represents the output format for audit exports.
type ExportFormat string

const (
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatJSON ExportFormat = "json"
)

var (
	ErrInvalidExportFormat = errors.New("invalid_export_format")
	ErrInvalidExportRange  = errors.New("invalid_export_range")
)

type ExportRequest struct {
	StartDate time.Time
	EndDate   time.Time
	Format    ExportFormat
	Actions   []string // optional action filter
}

type ExportResult struct {
	Data     []byte
	Checksum string
	Format   ExportFormat
	Count    int
}

type ExportService interface {
	Export(ctx context.Context, req ExportRequest) (*ExportResult, error)
}
