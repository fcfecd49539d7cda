package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AdminUser is an OpenHealth team member with dashboard access.
// Role is one of 'admin', 'analyst', 'partner'.
type AdminUser struct {
	gorm.Model
	ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Email       string         `gorm:"uniqueIndex;not null;column:email" json:"email"`
	Password    string         `gorm:"not null;column:password" json:"-"`
	Name        string         `gorm:"not null;column:name" json:"name"`
	Role        string         `gorm:"not null;column:role;default:'analyst'" json:"role"`
	Permissions datatypes.JSON `gorm:"column:permissions;type:jsonb" json:"permissions"`
	LastLogin   *time.Time     `gorm:"column:last_login" json:"last_login,omitempty"`
	CreatedAt   time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (AdminUser) TableName() string {
	return "admin_user"
}
