package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"time"

	auditdomain "github.com/railzwaylabs/caremarket/internal/audit/domain"
	"gorm.io/gorm"
)

type ExportService struct {
	db   *gorm.DB
	repo auditdomain.Repository
}

func NewExportService(db *gorm.DB, repo auditdomain.Repository) auditdomain.ExportService {
	return &ExportService{db: db, repo: repo}
}

func (s *ExportService) Export(ctx context.Context, req auditdomain.ExportRequest) (*auditdomain.ExportResult, error) {
	if req.StartDate.IsZero() || req.EndDate.IsZero() || !req.EndDate.After(req.StartDate) {
		return nil, auditdomain.ErrInvalidExportRange
	}
	if req.Format != auditdomain.ExportFormatCSV && req.Format != auditdomain.ExportFormatJSON {
		return nil, auditdomain.ErrInvalidExportFormat
	}

	logs, err := s.repo.List(ctx, s.db, auditdomain.ListFilter{
		Start:   req.StartDate,
		End:     req.EndDate,
		Actions: req.Actions,
	})
	if err != nil {
		return nil, err
	}

	var data []byte
	switch req.Format {
	case auditdomain.ExportFormatCSV:
		data, err = formatCSV(logs)
	default:
		data, err = formatJSON(logs)
	}
	if err != nil {
		return nil, err
	}

	return &auditdomain.ExportResult{
		Data:     data,
		Checksum: calculateChecksum(data),
		Format:   req.Format,
		Count:    len(logs),
	}, nil
}

func formatCSV(logs []auditdomain.AuditLog) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{
		"timestamp",
		"actor_type",
		"actor_id",
		"action",
		"target_type",
		"target_id",
		"request_id",
		"metadata",
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, log := range logs {
		metadataJSON, _ := json.Marshal(log.Metadata)

		row := []string{
			log.CreatedAt.UTC().Format(time.RFC3339),
			log.ActorType,
			formatStringPtr(log.ActorID),
			log.Action,
			log.TargetType,
			formatStringPtr(log.TargetID),
			formatStringPtr(log.RequestID),
			string(metadataJSON),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatJSON(logs []auditdomain.AuditLog) ([]byte, error) {
	type exportRecord struct {
		Timestamp  string         `json:"timestamp"`
		ActorType  string         `json:"actor_type"`
		ActorID    string         `json:"actor_id,omitempty"`
		Action     string         `json:"action"`
		TargetType string         `json:"target_type"`
		TargetID   string         `json:"target_id,omitempty"`
		RequestID  string         `json:"request_id,omitempty"`
		Metadata   map[string]any `json:"metadata,omitempty"`
	}

	records := make([]exportRecord, 0, len(logs))
	for _, log := range logs {
		records = append(records, exportRecord{
			Timestamp:  log.CreatedAt.UTC().Format(time.RFC3339),
			ActorType:  log.ActorType,
			ActorID:    formatStringPtr(log.ActorID),
			Action:     log.Action,
			TargetType: log.TargetType,
			TargetID:   formatStringPtr(log.TargetID),
			RequestID:  formatStringPtr(log.RequestID),
			Metadata:   log.Metadata,
		})
	}
	return json.MarshalIndent(records, "", "  ")
}

func formatStringPtr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func calculateChecksum(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
