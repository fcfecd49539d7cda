package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	MessageRoleUser      = "user"
	MessageRoleAssistant = "assistant"
)

// Message is an append-only log entry within a conversation. Seq is the
// per-conversation monotonic sequence assigned under the conversation lock;
// history reads order by it.
type Message struct {
	gorm.Model
	ID             uuid.UUID         `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ConversationID uuid.UUID         `gorm:"type:uuid;not null;index:idx_message_conversation" json:"conversation_id"`
	Conversation   *Conversation     `gorm:"constraint:OnDelete:CASCADE;foreignKey:ConversationID;references:ID" json:"conversation,omitempty"`
	Seq            int64             `gorm:"column:seq;not null;index:idx_message_conversation" json:"seq"`
	Role           string            `gorm:"column:role;not null" json:"role"`
	Content        string            `gorm:"column:content;not null;type:text" json:"content"`
	Attachments    datatypes.JSON    `gorm:"column:attachments;type:jsonb" json:"attachments,omitempty"`
	Metadata       datatypes.JSONMap `gorm:"column:metadata;type:jsonb" json:"metadata"`
	CreatedAt      time.Time         `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt      time.Time         `gorm:"not null;default:now()" json:"updated_at"`
}

func (Message) TableName() string {
	return "message"
}
