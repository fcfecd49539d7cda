package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WeightMap maps scoring category -> weight, persisted as JSONB.
type WeightMap map[string]float64

func (w WeightMap) Value() (driver.Value, error) {
	if w == nil {
		return "{}", nil
	}
	b, err := json.Marshal(w)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (w *WeightMap) Scan(value interface{}) error {
	if value == nil {
		*w = nil
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported weight map type %T", value)
	}
	return json.Unmarshal(raw, w)
}

// SumsToOne reports whether the weights sum to 1.0 within eps.
func (w WeightMap) SumsToOne(eps float64) bool {
	var sum float64
	for _, v := range w {
		sum += v
	}
	return math.Abs(sum-1.0) <= eps
}

// ScoringWeights is a named weight set. Exactly one set per name is active at
// a time; sets are immutable once any venture has been scored against them,
// so updates create a new row and apply prospectively.
type ScoringWeights struct {
	gorm.Model
	ID        uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name      string     `gorm:"column:name;not null;index" json:"name"`
	Weights   WeightMap  `gorm:"column:weights;type:jsonb;not null" json:"weights"`
	IsActive  bool       `gorm:"column:is_active;not null;default:false;index" json:"is_active"`
	CreatedBy *uuid.UUID `gorm:"type:uuid;column:created_by" json:"created_by,omitempty"`
	CreatedAt time.Time  `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}

func (ScoringWeights) TableName() string {
	return "scoring_weights"
}
