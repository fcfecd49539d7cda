package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/datatypes"

	"github.com/openhealth/shared-backend/internal/repos"

	"github.com/openhealth/shared-backend/internal/platform/logger"
	"github.com/openhealth/shared-backend/internal/types"
)

// AuditEvent describes an admin-visible state change (schema activation,
// weight activation, venture status change).
type AuditEvent struct {
	Action       string         `json:"action"`
	ResourceType string         `json:"resource_type"`
	ResourceID   *uuid.UUID     `json:"resource_id,omitempty"`
	AdminUserID  *uuid.UUID     `json:"admin_user_id,omitempty"`
	OldValues    map[string]any `json:"old_values,omitempty"`
	NewValues    map[string]any `json:"new_values,omitempty"`
	At           time.Time      `json:"at"`
}

// AuditService persists audit events and fans them out over Redis pub/sub for
// the admin dashboard. Both sinks are best-effort: audit must never fail the
// operation being audited.
type AuditService interface {
	Record(ctx context.Context, event AuditEvent)
}

type auditService struct {
	log     *logger.Logger
	repo    repos.AuditLogRepo
	rdb     *goredis.Client
	channel string
}

// NewAuditService builds the audit sink. rdb may be nil when Redis is not
// configured; events then only hit Postgres.
func NewAuditService(baseLog *logger.Logger, repo repos.AuditLogRepo, rdb *goredis.Client, channel string) AuditService {
	return &auditService{
		log:     baseLog.With("service", "AuditService"),
		repo:    repo,
		rdb:     rdb,
		channel: channel,
	}
}

func (s *auditService) Record(ctx context.Context, event AuditEvent) {
	if event.At.IsZero() {
		event.At = time.Now()
	}

	if s.repo != nil {
		entry := &types.AuditLog{
			AdminUserID:  event.AdminUserID,
			Action:       event.Action,
			ResourceType: event.ResourceType,
			ResourceID:   event.ResourceID,
			OldValues:    datatypes.JSONMap(event.OldValues),
			NewValues:    datatypes.JSONMap(event.NewValues),
			CreatedAt:    event.At,
		}
		if _, err := s.repo.Create(ctx, nil, entry); err != nil {
			s.log.Warn("Failed to persist audit event", "action", event.Action, "error", err)
		}
	}

	if s.rdb != nil {
		payload, err := json.Marshal(event)
		if err != nil {
			s.log.Warn("Failed to encode audit event", "action", event.Action, "error", err)
			return
		}
		if err := s.rdb.Publish(ctx, s.channel, payload).Err(); err != nil {
			s.log.Warn("Failed to publish audit event", "action", event.Action, "error", err)
		}
	}
}
