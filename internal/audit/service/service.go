package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/railzwaylabs/caremarket/internal/audit/domain"
	"github.com/railzwaylabs/caremarket/internal/clock"
	"github.com/railzwaylabs/caremarket/internal/requestctx"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  auditdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  auditdomain.Repository
}

func NewService(p Params) auditdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) AuditLog(ctx context.Context, actorType string, actorID *string, action string, targetType string, targetID *string, metadata map[string]any) error {
	entry, err := s.build(ctx, actorType, action, targetType, targetID, metadata)
	if err != nil {
		return err
	}
	entry.ActorID = actorID

	if err := s.repo.Insert(ctx, s.db, entry); err != nil {
		s.log.Warn("audit log write failed", zap.String("action", action), zap.Error(err))
		return err
	}
	return nil
}

func (s *Service) AuditLogTx(ctx context.Context, tx *gorm.DB, actorType string, action string, targetType string, targetID *string, metadata map[string]any) error {
	entry, err := s.build(ctx, actorType, action, targetType, targetID, metadata)
	if err != nil {
		return err
	}
	if tx == nil {
		tx = s.db
	}
	return s.repo.Insert(ctx, tx, entry)
}

func (s *Service) Purge(ctx context.Context, before time.Time) (int64, error) {
	return s.repo.DeleteBefore(ctx, s.db, before)
}

func (s *Service) build(ctx context.Context, actorType string, action string, targetType string, targetID *string, metadata map[string]any) (*auditdomain.AuditLog, error) {
	action = strings.TrimSpace(action)
	if action == "" {
		return nil, auditdomain.ErrInvalidAction
	}
	actorType = strings.TrimSpace(actorType)
	if actorType == "" {
		actorType = auditdomain.ActorTypeAPI
	}

	entry := &auditdomain.AuditLog{
		ID:         s.genID.Generate(),
		ActorType:  actorType,
		Action:     action,
		TargetType: strings.TrimSpace(targetType),
		TargetID:   targetID,
		CreatedAt:  s.clock.Now(ctx),
	}
	if id, ok := requestctx.RequestIDFromContext(ctx); ok {
		entry.RequestID = &id
	}
	if metadata != nil {
		entry.Metadata = datatypes.JSONMap(metadata)
	}
	return entry, nil
}
