package repository

import (
	"context"
	"time"

	"github.com/railzwaylabs/caremarket/internal/audit/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, log *domain.AuditLog) error {
	return db.WithContext(ctx).Create(log).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.AuditLog, error) {
	query := db.WithContext(ctx).Model(&domain.AuditLog{})
	if !filter.Start.IsZero() {
		query = query.Where("created_at >= ?", filter.Start)
	}
	if !filter.End.IsZero() {
		query = query.Where("created_at < ?", filter.End)
	}
	if len(filter.Actions) > 0 {
		query = query.Where("action IN ?", filter.Actions)
	}
	if filter.TargetType != "" {
		query = query.Where("target_type = ?", filter.TargetType)
	}
	if filter.TargetID != "" {
		query = query.Where("target_id = ?", filter.TargetID)
	}

	var logs []domain.AuditLog
	if err := query.Order("created_at ASC, id ASC").Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

func (r *repo) DeleteBefore(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	result := db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&domain.AuditLog{})
	return result.RowsAffected, result.Error
}
