package task

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"growthTrackerAPI/internal/dimension"
)

// Task is an atomic activity tagged to one Dimension. Tasks are templates:
// users complete DailyTasks materialized from them, never the Task itself.
type Task struct {
	ID          uuid.UUID            `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string               `gorm:"not null;size:200" json:"name"`
	Description string               `gorm:"type:text" json:"description,omitempty"`
	DimensionID uuid.UUID            `gorm:"type:uuid;not null;index" json:"dimensionId"`
	Dimension   *dimension.Dimension `gorm:"foreignKey:DimensionID" json:"dimension,omitempty"`
	Points      int                  `gorm:"not null;default:5" json:"points"`
	IsCustom    bool                 `gorm:"not null;default:false" json:"isCustom"`
	AuthorID    *uuid.UUID           `gorm:"type:uuid;index" json:"authorId,omitempty"`
	CreatedAt   time.Time            `json:"createdAt"`
}

func (Task) TableName() string {
	return "tasks"
}

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
