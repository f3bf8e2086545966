package challenge

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"growthTrackerAPI/internal/task"
)

// Challenge bundles an ordered set of Tasks over a fixed number of days.
// Predefined challenges are seeded; custom ones carry their author.
type Challenge struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string          `gorm:"not null;size:100;index" json:"name"`
	Description  string          `gorm:"type:text" json:"description"`
	DurationDays int             `gorm:"not null" json:"durationDays"`
	IsCustom     bool            `gorm:"not null;default:false;index" json:"isCustom"`
	AuthorID     *uuid.UUID      `gorm:"type:uuid;index" json:"authorId,omitempty"`
	Tasks        []ChallengeTask `gorm:"foreignKey:ChallengeID;constraint:OnDelete:CASCADE" json:"tasks,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

func (Challenge) TableName() string {
	return "challenges"
}

func (c *Challenge) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// ChallengeTask joins a Challenge to a Task. Day, when set, restricts the task to
// that day of the challenge (1-based); Position records insertion order.
type ChallengeTask struct {
	ChallengeID uuid.UUID  `gorm:"type:uuid;primaryKey" json:"challengeId"`
	TaskID      uuid.UUID  `gorm:"type:uuid;primaryKey" json:"taskId"`
	Day         *int       `json:"day,omitempty"`
	Position    int        `gorm:"not null;default:0" json:"position"`
	Task        *task.Task `gorm:"foreignKey:TaskID" json:"task,omitempty"`
}

func (ChallengeTask) TableName() string {
	return "challenge_tasks"
}

// AppliesOn reports whether the task is scheduled on the given challenge day.
func (ct ChallengeTask) AppliesOn(dayIndex int) bool {
	return ct.Day == nil || *ct.Day == dayIndex
}

// UserChallenge is a user's enrollment in a Challenge. At most one per user is Active.
type UserChallenge struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID      `gorm:"type:uuid;not null;index" json:"userId"`
	ChallengeID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"challengeId"`
	Challenge       *Challenge     `gorm:"foreignKey:ChallengeID" json:"challenge,omitempty"`
	StartDate       string         `gorm:"type:varchar(10);not null" json:"startDate"`
	Active          bool           `gorm:"not null;default:true;index" json:"active"`
	DaysCompleted   int            `gorm:"not null;default:0" json:"daysCompleted"`
	SelectedTaskIDs datatypes.JSON `json:"selectedTaskIds,omitempty"`
	CompletedAt     *time.Time     `json:"completedAt,omitempty"`
	EndedAt         *time.Time     `json:"endedAt,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

func (UserChallenge) TableName() string {
	return "user_challenges"
}

func (uc *UserChallenge) BeforeCreate(tx *gorm.DB) error {
	if uc.ID == uuid.Nil {
		uc.ID = uuid.New()
	}
	return nil
}

// SelectedTasks returns the subset of challenge tasks the user kept, nil meaning all of them.
func (uc *UserChallenge) SelectedTasks() ([]uuid.UUID, error) {
	if len(uc.SelectedTaskIDs) == 0 {
		return nil, nil
	}
	var ids []uuid.UUID
	if err := json.Unmarshal(uc.SelectedTaskIDs, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (uc *UserChallenge) SetSelectedTasks(ids []uuid.UUID) error {
	if len(ids) == 0 {
		uc.SelectedTaskIDs = nil
		return nil
	}
	raw, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	uc.SelectedTaskIDs = datatypes.JSON(raw)
	return nil
}
