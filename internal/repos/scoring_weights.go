package repos

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openhealth/shared-backend/internal/platform/logger"
	"github.com/openhealth/shared-backend/internal/types"
)

type ScoringWeightsRepo interface {
	Create(ctx context.Context, tx *gorm.DB, weights *types.ScoringWeights) (*types.ScoringWeights, error)
	GetByID(ctx context.Context, tx *gorm.DB, weightsID uuid.UUID) (*types.ScoringWeights, error)
	GetActive(ctx context.Context, tx *gorm.DB, name string) (*types.ScoringWeights, error)
	List(ctx context.Context, tx *gorm.DB, name string) ([]*types.ScoringWeights, error)
	// Activate deactivates every set with the same name and activates the given
	// row, in one transaction. Returns the previously active row, if any.
	Activate(ctx context.Context, weightsID uuid.UUID) (*types.ScoringWeights, *types.ScoringWeights, error)
}

type scoringWeightsRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewScoringWeightsRepo(db *gorm.DB, baseLog *logger.Logger) ScoringWeightsRepo {
	return &scoringWeightsRepo{db: db, log: baseLog.With("repo", "ScoringWeightsRepo")}
}

func (r *scoringWeightsRepo) tx(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *scoringWeightsRepo) Create(ctx context.Context, tx *gorm.DB, weights *types.ScoringWeights) (*types.ScoringWeights, error) {
	if err := r.tx(tx).WithContext(ctx).Create(weights).Error; err != nil {
		return nil, err
	}
	return weights, nil
}

func (r *scoringWeightsRepo) GetByID(ctx context.Context, tx *gorm.DB, weightsID uuid.UUID) (*types.ScoringWeights, error) {
	var row types.ScoringWeights
	err := r.tx(tx).WithContext(ctx).Where("id = ?", weightsID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *scoringWeightsRepo) GetActive(ctx context.Context, tx *gorm.DB, name string) (*types.ScoringWeights, error) {
	var row types.ScoringWeights
	err := r.tx(tx).WithContext(ctx).
		Where("name = ? AND is_active = true", name).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *scoringWeightsRepo) List(ctx context.Context, tx *gorm.DB, name string) ([]*types.ScoringWeights, error) {
	var rows []*types.ScoringWeights
	q := r.tx(tx).WithContext(ctx).Order("name ASC, created_at DESC")
	if name != "" {
		q = q.Where("name = ?", name)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *scoringWeightsRepo) Activate(ctx context.Context, weightsID uuid.UUID) (*types.ScoringWeights, *types.ScoringWeights, error) {
	var activated, previous *types.ScoringWeights
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var target types.ScoringWeights
		if err := tx.Where("id = ?", weightsID).First(&target).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("weight set %s not found", weightsID)
			}
			return err
		}

		var prev types.ScoringWeights
		err := tx.Where("name = ? AND is_active = true AND id <> ?", target.Name, target.ID).First(&prev).Error
		switch {
		case err == nil:
			previous = &prev
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return err
		}

		if err := tx.Model(&types.ScoringWeights{}).
			Where("name = ?", target.Name).
			Update("is_active", false).Error; err != nil {
			return err
		}
		if err := tx.Model(&types.ScoringWeights{}).
			Where("id = ?", target.ID).
			Update("is_active", true).Error; err != nil {
			return err
		}
		target.IsActive = true
		activated = &target
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return activated, previous, nil
}
