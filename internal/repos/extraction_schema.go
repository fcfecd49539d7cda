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

type ExtractionSchemaRepo interface {
	Create(ctx context.Context, tx *gorm.DB, schema *types.ExtractionSchema) (*types.ExtractionSchema, error)
	GetByID(ctx context.Context, tx *gorm.DB, schemaID uuid.UUID) (*types.ExtractionSchema, error)
	GetActive(ctx context.Context, tx *gorm.DB, name string) (*types.ExtractionSchema, error)
	GetByNameVersion(ctx context.Context, tx *gorm.DB, name string, version int) (*types.ExtractionSchema, error)
	ListByName(ctx context.Context, tx *gorm.DB, name string) ([]*types.ExtractionSchema, error)
	MaxVersion(ctx context.Context, tx *gorm.DB, name string) (int, error)
	// Activate deactivates every version with the same name and activates the
	// given row, in one transaction. Returns the previously active row, if any.
	Activate(ctx context.Context, schemaID uuid.UUID) (*types.ExtractionSchema, *types.ExtractionSchema, error)
}

type extractionSchemaRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewExtractionSchemaRepo(db *gorm.DB, baseLog *logger.Logger) ExtractionSchemaRepo {
	return &extractionSchemaRepo{db: db, log: baseLog.With("repo", "ExtractionSchemaRepo")}
}

func (r *extractionSchemaRepo) tx(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *extractionSchemaRepo) Create(ctx context.Context, tx *gorm.DB, schema *types.ExtractionSchema) (*types.ExtractionSchema, error) {
	if err := r.tx(tx).WithContext(ctx).Create(schema).Error; err != nil {
		return nil, err
	}
	return schema, nil
}

func (r *extractionSchemaRepo) GetByID(ctx context.Context, tx *gorm.DB, schemaID uuid.UUID) (*types.ExtractionSchema, error) {
	var schema types.ExtractionSchema
	err := r.tx(tx).WithContext(ctx).Where("id = ?", schemaID).First(&schema).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &schema, nil
}

func (r *extractionSchemaRepo) GetActive(ctx context.Context, tx *gorm.DB, name string) (*types.ExtractionSchema, error) {
	var schema types.ExtractionSchema
	err := r.tx(tx).WithContext(ctx).
		Where("name = ? AND is_active = true", name).
		First(&schema).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &schema, nil
}

func (r *extractionSchemaRepo) GetByNameVersion(ctx context.Context, tx *gorm.DB, name string, version int) (*types.ExtractionSchema, error) {
	var schema types.ExtractionSchema
	err := r.tx(tx).WithContext(ctx).
		Where("name = ? AND version = ?", name, version).
		First(&schema).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &schema, nil
}

func (r *extractionSchemaRepo) ListByName(ctx context.Context, tx *gorm.DB, name string) ([]*types.ExtractionSchema, error) {
	var rows []*types.ExtractionSchema
	q := r.tx(tx).WithContext(ctx).Order("name ASC, version DESC")
	if name != "" {
		q = q.Where("name = ?", name)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *extractionSchemaRepo) MaxVersion(ctx context.Context, tx *gorm.DB, name string) (int, error) {
	var max *int
	err := r.tx(tx).WithContext(ctx).Model(&types.ExtractionSchema{}).
		Where("name = ?", name).
		Select("MAX(version)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max, nil
}

func (r *extractionSchemaRepo) Activate(ctx context.Context, schemaID uuid.UUID) (*types.ExtractionSchema, *types.ExtractionSchema, error) {
	var activated, previous *types.ExtractionSchema
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var target types.ExtractionSchema
		if err := tx.Where("id = ?", schemaID).First(&target).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("schema %s not found", schemaID)
			}
			return err
		}

		var prev types.ExtractionSchema
		err := tx.Where("name = ? AND is_active = true AND id <> ?", target.Name, target.ID).First(&prev).Error
		switch {
		case err == nil:
			previous = &prev
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return err
		}

		if err := tx.Model(&types.ExtractionSchema{}).
			Where("name = ?", target.Name).
			Update("is_active", false).Error; err != nil {
			return err
		}
		if err := tx.Model(&types.ExtractionSchema{}).
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
