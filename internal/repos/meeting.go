package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openhealth/shared-backend/internal/platform/logger"
	"github.com/openhealth/shared-backend/internal/types"
)

type MeetingRepo interface {
	Create(ctx context.Context, tx *gorm.DB, meeting *types.Meeting) (*types.Meeting, error)
	Save(ctx context.Context, tx *gorm.DB, meeting *types.Meeting) (*types.Meeting, error)
	GetByID(ctx context.Context, tx *gorm.DB, meetingID uuid.UUID) (*types.Meeting, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.Meeting, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, meetingID uuid.UUID, status string) error
}

type meetingRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMeetingRepo(db *gorm.DB, baseLog *logger.Logger) MeetingRepo {
	return &meetingRepo{db: db, log: baseLog.With("repo", "MeetingRepo")}
}

func (r *meetingRepo) tx(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *meetingRepo) Create(ctx context.Context, tx *gorm.DB, meeting *types.Meeting) (*types.Meeting, error) {
	if err := r.tx(tx).WithContext(ctx).Create(meeting).Error; err != nil {
		return nil, err
	}
	return meeting, nil
}

func (r *meetingRepo) Save(ctx context.Context, tx *gorm.DB, meeting *types.Meeting) (*types.Meeting, error) {
	if err := r.tx(tx).WithContext(ctx).Save(meeting).Error; err != nil {
		return nil, err
	}
	return meeting, nil
}

func (r *meetingRepo) GetByID(ctx context.Context, tx *gorm.DB, meetingID uuid.UUID) (*types.Meeting, error) {
	var meeting types.Meeting
	err := r.tx(tx).WithContext(ctx).Where("id = ?", meetingID).First(&meeting).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &meeting, nil
}

func (r *meetingRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.Meeting, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []*types.Meeting
	err := r.tx(tx).WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *meetingRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, meetingID uuid.UUID, status string) error {
	return r.tx(tx).WithContext(ctx).Model(&types.Meeting{}).
		Where("id = ?", meetingID).
		Update("status", status).Error
}
