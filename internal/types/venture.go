package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	VentureStatusScreening  = "screening"
	VentureStatusInterested = "interested"
	VentureStatusPassed     = "passed"
	VentureStatusInvestment = "investment"
)

// Venture is the persistent record of a healthcare business idea built
// incrementally from conversation turns. ExtractedData is the canonical
// attribute bag; every key in it belongs to the schema version recorded in
// SchemaVersion. Score and ScoreBreakdown are always recomputed in full from
// ExtractedData plus the active weight set, never patched incrementally.
type Venture struct {
	gorm.Model
	ID             uuid.UUID         `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID         uuid.UUID         `gorm:"type:uuid;not null;index" json:"user_id"`
	User           *User             `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	ConversationID *uuid.UUID        `gorm:"type:uuid;index" json:"conversation_id,omitempty"`
	Conversation   *Conversation     `gorm:"constraint:OnDelete:SET NULL;foreignKey:ConversationID;references:ID" json:"conversation,omitempty"`
	Name           string            `gorm:"column:name;not null" json:"name"`
	Description    string            `gorm:"column:description;type:text" json:"description"`
	ExtractedData  datatypes.JSONMap `gorm:"column:extracted_data;type:jsonb" json:"extracted_data"`
	SchemaVersion  int               `gorm:"column:schema_version;not null;default:0" json:"schema_version"`
	Score          *int              `gorm:"column:score" json:"score,omitempty"`
	ScoreBreakdown datatypes.JSONMap `gorm:"column:score_breakdown;type:jsonb" json:"score_breakdown"`
	Status         string            `gorm:"column:status;not null;default:'screening'" json:"status"`
	CreatedAt      time.Time         `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt      time.Time         `gorm:"not null;default:now()" json:"updated_at"`
}

func (Venture) TableName() string {
	return "venture"
}

func ValidVentureStatus(s string) bool {
	switch s {
	case VentureStatusScreening, VentureStatusInterested, VentureStatusPassed, VentureStatusInvestment:
		return true
	}
	return false
}
