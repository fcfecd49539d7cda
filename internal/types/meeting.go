package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	MeetingTypeDiscovery = "discovery"
	MeetingTypePitch     = "pitch"
	MeetingTypeFollowUp  = "follow_up"

	MeetingStatusScheduled = "scheduled"
	MeetingStatusCompleted = "completed"
	MeetingStatusCancelled = "cancelled"
	MeetingStatusNoShow    = "no_show"
)

type Meeting struct {
	gorm.Model
	ID              uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID          uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	User            *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	ConversationID  *uuid.UUID     `gorm:"type:uuid;index" json:"conversation_id,omitempty"`
	Conversation    *Conversation  `gorm:"constraint:OnDelete:SET NULL;foreignKey:ConversationID;references:ID" json:"conversation,omitempty"`
	VentureID       *uuid.UUID     `gorm:"type:uuid;index" json:"venture_id,omitempty"`
	Venture         *Venture       `gorm:"constraint:OnDelete:SET NULL;foreignKey:VentureID;references:ID" json:"venture,omitempty"`
	Title           string         `gorm:"column:title;not null" json:"title"`
	Description     string         `gorm:"column:description;type:text" json:"description"`
	ScheduledTime   *time.Time     `gorm:"column:scheduled_time" json:"scheduled_time,omitempty"`
	DurationMinutes int            `gorm:"column:duration_minutes;not null;default:30" json:"duration_minutes"`
	MeetingType     string         `gorm:"column:meeting_type;not null;default:'discovery'" json:"meeting_type"`
	Status          string         `gorm:"column:status;not null;default:'scheduled'" json:"status"`
	AgendaItems     datatypes.JSON `gorm:"column:agenda_items;type:jsonb" json:"agenda_items,omitempty"`
	Notes           string         `gorm:"column:notes;type:text" json:"notes"`
	CreatedAt       time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (Meeting) TableName() string {
	return "meeting"
}
