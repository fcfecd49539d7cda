package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openhealth/shared-backend/internal/platform/logger"
	"github.com/openhealth/shared-backend/internal/types"
)

type ConversationRepo interface {
	Create(ctx context.Context, tx *gorm.DB, conv *types.Conversation) (*types.Conversation, error)
	GetByID(ctx context.Context, tx *gorm.DB, convID uuid.UUID) (*types.Conversation, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.Conversation, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, convID uuid.UUID, status string) error
	Touch(ctx context.Context, tx *gorm.DB, convID uuid.UUID) error
}

type conversationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewConversationRepo(db *gorm.DB, baseLog *logger.Logger) ConversationRepo {
	return &conversationRepo{db: db, log: baseLog.With("repo", "ConversationRepo")}
}

func (r *conversationRepo) tx(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *conversationRepo) Create(ctx context.Context, tx *gorm.DB, conv *types.Conversation) (*types.Conversation, error) {
	if err := r.tx(tx).WithContext(ctx).Create(conv).Error; err != nil {
		return nil, err
	}
	return conv, nil
}

func (r *conversationRepo) GetByID(ctx context.Context, tx *gorm.DB, convID uuid.UUID) (*types.Conversation, error) {
	var conv types.Conversation
	err := r.tx(tx).WithContext(ctx).Where("id = ?", convID).First(&conv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &conv, nil
}

func (r *conversationRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.Conversation, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []*types.Conversation
	err := r.tx(tx).WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *conversationRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, convID uuid.UUID, status string) error {
	return r.tx(tx).WithContext(ctx).Model(&types.Conversation{}).
		Where("id = ?", convID).
		Updates(map[string]any{"status": status, "updated_at": time.Now()}).Error
}

func (r *conversationRepo) Touch(ctx context.Context, tx *gorm.DB, convID uuid.UUID) error {
	return r.tx(tx).WithContext(ctx).Model(&types.Conversation{}).
		Where("id = ?", convID).
		Update("updated_at", time.Now()).Error
}
