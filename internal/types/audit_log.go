package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditLog records admin actions (schema/weights activation, venture status
// changes) with before/after values for reproducibility.
type AuditLog struct {
	gorm.Model
	ID           uuid.UUID         `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	AdminUserID  *uuid.UUID        `gorm:"type:uuid;column:admin_user_id;index" json:"admin_user_id,omitempty"`
	Action       string            `gorm:"column:action;not null" json:"action"`
	ResourceType string            `gorm:"column:resource_type" json:"resource_type"`
	ResourceID   *uuid.UUID        `gorm:"type:uuid;column:resource_id" json:"resource_id,omitempty"`
	OldValues    datatypes.JSONMap `gorm:"column:old_values;type:jsonb" json:"old_values"`
	NewValues    datatypes.JSONMap `gorm:"column:new_values;type:jsonb" json:"new_values"`
	CreatedAt    time.Time         `gorm:"not null;default:now();index" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_log"
}
