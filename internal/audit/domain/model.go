package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ActorTypeSystem    = "system"
	ActorTypeAPI       = "api"
	ActorTypeScheduler = "scheduler"
)

type AuditLog struct {
	ID         snowflake.ID      `json:"id" gorm:"primaryKey"`
	ActorType  string            `json:"actor_type" gorm:"type:text;not null"`
	ActorID    *string           `json:"actor_id,omitempty" gorm:"type:text"`
	Action     string            `json:"action" gorm:"type:varchar(64);not null;index"`
	TargetType string            `json:"target_type" gorm:"type:text;not null"`
	TargetID   *string           `json:"target_id,omitempty" gorm:"type:varchar(64);index"`
	RequestID  *string           `json:"request_id,omitempty" gorm:"type:text"`
	Metadata   datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"created_at" gorm:"not null;index"`
}

func (AuditLog) TableName() string { return "audit_logs" }

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, log *AuditLog) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]AuditLog, error)
	DeleteBefore(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error)
}

type ListFilter struct {
	Start      time.Time
	End        time.Time
	Actions    []string
	TargetType string
	TargetID   string
}

type Service interface {
	AuditLog(ctx context.Context, actorType string, actorID *string, action string, targetType string, targetID *string, metadata map[string]any) error
	// AuditLogTx writes inside the caller's transaction so the entry
	// commits or rolls back with the change it describes.
	AuditLogTx(ctx context.Context, tx *gorm.DB, actorType string, action string, targetType string, targetID *string, metadata map[string]any) error
	Purge(ctx context.Context, before time.Time) (int64, error)
}

var ErrInvalidAction = errors.New("invalid_action")
