package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	AttrTypeString  = "string"
	AttrTypeInteger = "integer"
	AttrTypeEnum    = "enum"
	AttrTypeObject  = "object"
)

// AttributeDef declares one extractable venture attribute.
type AttributeDef struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Enum        []string `json:"enum,omitempty"`
	Description string   `json:"description,omitempty"`
}

// AttributeDefs is the ordered schema definition, persisted as JSONB.
type AttributeDefs []AttributeDef

func (a AttributeDefs) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (a *AttributeDefs) Scan(value interface{}) error {
	if value == nil {
		*a = nil
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported attribute defs type %T", value)
	}
	return json.Unmarshal(raw, a)
}

// Find returns the definition for name, or nil if the schema does not
// declare it.
func (a AttributeDefs) Find(name string) *AttributeDef {
	for i := range a {
		if a[i].Name == name {
			return &a[i]
		}
	}
	return nil
}

// ExtractionSchema is a versioned definition of which attributes to extract.
// Rows are immutable once created; edits create a new version and activation
// flips the active flag atomically. Exactly one version per logical name may
// be active at a time.
type ExtractionSchema struct {
	gorm.Model
	ID          uuid.UUID     `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name        string        `gorm:"column:name;not null;index:idx_extraction_schema_name_version,unique" json:"name"`
	Description string        `gorm:"column:description;type:text" json:"description"`
	Version     int           `gorm:"column:version;not null;index:idx_extraction_schema_name_version,unique" json:"version"`
	Attributes  AttributeDefs `gorm:"column:schema_definition;type:jsonb;not null" json:"attributes"`
	IsActive    bool          `gorm:"column:is_active;not null;default:false;index" json:"is_active"`
	CreatedBy   *uuid.UUID    `gorm:"type:uuid;column:created_by" json:"created_by,omitempty"`
	CreatedAt   time.Time     `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time     `gorm:"not null;default:now()" json:"updated_at"`
}

func (ExtractionSchema) TableName() string {
	return "extraction_schema"
}
