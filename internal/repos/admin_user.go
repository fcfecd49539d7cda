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

type AdminUserRepo interface {
	Create(ctx context.Context, tx *gorm.DB, admin *types.AdminUser) (*types.AdminUser, error)
	GetByID(ctx context.Context, tx *gorm.DB, adminID uuid.UUID) (*types.AdminUser, error)
	GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*types.AdminUser, error)
	TouchLastLogin(ctx context.Context, tx *gorm.DB, adminID uuid.UUID) error
}

type adminUserRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAdminUserRepo(db *gorm.DB, baseLog *logger.Logger) AdminUserRepo {
	return &adminUserRepo{db: db, log: baseLog.With("repo", "AdminUserRepo")}
}

func (r *adminUserRepo) tx(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *adminUserRepo) Create(ctx context.Context, tx *gorm.DB, admin *types.AdminUser) (*types.AdminUser, error) {
	if err := r.tx(tx).WithContext(ctx).Create(admin).Error; err != nil {
		return nil, err
	}
	return admin, nil
}

func (r *adminUserRepo) GetByID(ctx context.Context, tx *gorm.DB, adminID uuid.UUID) (*types.AdminUser, error) {
	var admin types.AdminUser
	err := r.tx(tx).WithContext(ctx).Where("id = ?", adminID).First(&admin).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &admin, nil
}

func (r *adminUserRepo) GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*types.AdminUser, error) {
	var admin types.AdminUser
	err := r.tx(tx).WithContext(ctx).Where("email = ?", email).First(&admin).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &admin, nil
}

func (r *adminUserRepo) TouchLastLogin(ctx context.Context, tx *gorm.DB, adminID uuid.UUID) error {
	return r.tx(tx).WithContext(ctx).Model(&types.AdminUser{}).
		Where("id = ?", adminID).
		Update("last_login", time.Now()).Error
}
