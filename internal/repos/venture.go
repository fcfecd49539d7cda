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

type VentureRepo interface {
	Create(ctx context.Context, tx *gorm.DB, venture *types.Venture) (*types.Venture, error)
	Save(ctx context.Context, tx *gorm.DB, venture *types.Venture) (*types.Venture, error)
	GetByID(ctx context.Context, tx *gorm.DB, ventureID uuid.UUID) (*types.Venture, error)
	GetByConversation(ctx context.Context, tx *gorm.DB, convID uuid.UUID) (*types.Venture, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.Venture, error)
	List(ctx context.Context, tx *gorm.DB, status string, limit int) ([]*types.Venture, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, ventureID uuid.UUID, status string) error
}

type ventureRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVentureRepo(db *gorm.DB, baseLog *logger.Logger) VentureRepo {
	return &ventureRepo{db: db, log: baseLog.With("repo", "VentureRepo")}
}

func (r *ventureRepo) tx(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *ventureRepo) Create(ctx context.Context, tx *gorm.DB, venture *types.Venture) (*types.Venture, error) {
	if err := r.tx(tx).WithContext(ctx).Create(venture).Error; err != nil {
		return nil, err
	}
	return venture, nil
}

func (r *ventureRepo) Save(ctx context.Context, tx *gorm.DB, venture *types.Venture) (*types.Venture, error) {
	venture.UpdatedAt = time.Now()
	if err := r.tx(tx).WithContext(ctx).Save(venture).Error; err != nil {
		return nil, err
	}
	return venture, nil
}

func (r *ventureRepo) GetByID(ctx context.Context, tx *gorm.DB, ventureID uuid.UUID) (*types.Venture, error) {
	var venture types.Venture
	err := r.tx(tx).WithContext(ctx).Where("id = ?", ventureID).First(&venture).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &venture, nil
}

func (r *ventureRepo) GetByConversation(ctx context.Context, tx *gorm.DB, convID uuid.UUID) (*types.Venture, error) {
	var venture types.Venture
	err := r.tx(tx).WithContext(ctx).Where("conversation_id = ?", convID).First(&venture).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &venture, nil
}

func (r *ventureRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.Venture, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []*types.Venture
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

func (r *ventureRepo) List(ctx context.Context, tx *gorm.DB, status string, limit int) ([]*types.Venture, error) {
	if limit <= 0 {
		limit = 100
	}
	q := r.tx(tx).WithContext(ctx).Order("score DESC NULLS LAST").Limit(limit)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var rows []*types.Venture
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ventureRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, ventureID uuid.UUID, status string) error {
	return r.tx(tx).WithContext(ctx).Model(&types.Venture{}).
		Where("id = ?", ventureID).
		Updates(map[string]any{"status": status, "updated_at": time.Now()}).Error
}
