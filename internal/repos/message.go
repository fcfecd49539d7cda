package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openhealth/shared-backend/internal/platform/logger"
	"github.com/openhealth/shared-backend/internal/types"
)

type MessageRepo interface {
	Create(ctx context.Context, tx *gorm.DB, msg *types.Message) (*types.Message, error)
	// ListByConversation returns the newest limit messages in ascending seq
	// order, so the tail of a long conversation is never dropped.
	ListByConversation(ctx context.Context, tx *gorm.DB, convID uuid.UUID, limit int) ([]*types.Message, error)
	// MaxSeq returns the highest sequence number in the conversation, 0 if empty.
	// Callers must hold the per-conversation lock for MaxSeq+Create to be safe.
	MaxSeq(ctx context.Context, tx *gorm.DB, convID uuid.UUID) (int64, error)
}

type messageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMessageRepo(db *gorm.DB, baseLog *logger.Logger) MessageRepo {
	return &messageRepo{db: db, log: baseLog.With("repo", "MessageRepo")}
}

func (r *messageRepo) tx(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *messageRepo) Create(ctx context.Context, tx *gorm.DB, msg *types.Message) (*types.Message, error) {
	if err := r.tx(tx).WithContext(ctx).Create(msg).Error; err != nil {
		return nil, err
	}
	return msg, nil
}

func (r *messageRepo) ListByConversation(ctx context.Context, tx *gorm.DB, convID uuid.UUID, limit int) ([]*types.Message, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []*types.Message
	err := r.tx(tx).WithContext(ctx).
		Where("conversation_id = ?", convID).
		Order("seq DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	// Newest rows came back first; flip to chronological order.
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}

func (r *messageRepo) MaxSeq(ctx context.Context, tx *gorm.DB, convID uuid.UUID) (int64, error) {
	var max *int64
	err := r.tx(tx).WithContext(ctx).Model(&types.Message{}).
		Where("conversation_id = ?", convID).
		Select("MAX(seq)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max, nil
}
