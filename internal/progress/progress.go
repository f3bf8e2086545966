package progress

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	MinValue = 0.0
	MaxValue = 100.0
)

// DimensionValue is a user's running score in one dimension, always within [0,100].
type DimensionValue struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_dimension,priority:1" json:"userId"`
	DimensionID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_dimension,priority:2" json:"dimensionId"`
	Value       float64   `gorm:"not null;default:0" json:"value"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (DimensionValue) TableName() string {
	return "dimension_values"
}

func (v *DimensionValue) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

// ProgressSnapshot stores the outcome of one aggregation pass. Watermark is the
// id of the last CompletedTask folded into it.
type ProgressSnapshot struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"userId"`
	Watermark  uint           `gorm:"not null;default:0" json:"watermark"`
	Dimensions datatypes.JSON `json:"dimensions"`
	CreatedAt  time.Time      `json:"createdAt"`
}

func (ProgressSnapshot) TableName() string {
	return "progress_snapshots"
}

func (s *ProgressSnapshot) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// Clamp bounds a dimension value to [0,100].
func Clamp(v float64) float64 {
	if v < MinValue {
		return MinValue
	}
	if v > MaxValue {
		return MaxValue
	}
	return v
}

type ProgressResponse struct {
	Dimensions   []DimensionProgress `json:"dimensions"`
	MostImproved []DimensionProgress `json:"mostImproved"`
	UpdatedAt    *time.Time          `json:"updatedAt,omitempty"`
}
