package tracking

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"growthTrackerAPI/internal/task"
)

// DailyTask is a Task scheduled for one user on one calendar date of an enrollment.
type DailyTask struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID  `gorm:"type:uuid;not null;index" json:"userId"`
	UserChallengeID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_daily_task_day,priority:1" json:"userChallengeId"`
	TaskID          uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_daily_task_day,priority:2" json:"taskId"`
	Task            *task.Task `gorm:"foreignKey:TaskID" json:"task,omitempty"`
	Date            string     `gorm:"type:varchar(10);not null;uniqueIndex:idx_daily_task_day,priority:3;index" json:"date"`
	DayIndex        int        `gorm:"not null" json:"dayIndex"`
	CreatedAt       time.Time  `json:"createdAt"`
}

func (DailyTask) TableName() string {
	return "daily_tasks"
}

func (d *DailyTask) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// CompletedTask is an append-only completion record. Its integer id is the log's
// sequence and doubles as the progress aggregation watermark.
type CompletedTask struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	DailyTaskID uuid.UUID `gorm:"type:uuid;not null;index" json:"dailyTaskId"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;index" json:"userId"`
	CompletedAt time.Time `gorm:"not null" json:"completedAt"`
	CompletedOn string    `gorm:"type:varchar(10);not null;index" json:"completedOn"`
}

func (CompletedTask) TableName() string {
	return "completed_tasks"
}

// DayCompletion marks an enrollment day on which every scheduled task was done.
type DayCompletion struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID `gorm:"type:uuid;not null;index" json:"userId"`
	UserChallengeID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_day_completion,priority:1" json:"userChallengeId"`
	Date            string    `gorm:"type:varchar(10);not null;uniqueIndex:idx_day_completion,priority:2" json:"date"`
	DayIndex        int       `gorm:"not null" json:"dayIndex"`
	CreatedAt       time.Time `json:"createdAt"`
}

func (DayCompletion) TableName() string {
	return "day_completions"
}

func (d *DayCompletion) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

type DailyTaskView struct {
	ID          uuid.UUID `json:"id"`
	TaskID      uuid.UUID `json:"taskId"`
	Name        string    `json:"name"`
	Points      int       `json:"points"`
	DimensionID uuid.UUID `json:"dimensionId"`
	Dimension   string    `json:"dimension"`
	Color       string    `json:"color"`
	Date        string    `json:"date"`
	DayIndex    int       `json:"dayIndex"`
	Completed   bool      `json:"completed"`
}

type DailyTasksResponse struct {
	Date      string          `json:"date"`
	DayIndex  int             `json:"dayIndex"`
	Tasks     []DailyTaskView `json:"tasks"`
	Completed int             `json:"completed"`
	Total     int             `json:"total"`
}

type CompleteTaskResponse struct {
	DailyTaskID        uuid.UUID `json:"dailyTaskId"`
	AlreadyCompleted   bool      `json:"alreadyCompleted"`
	DayCompleted       bool      `json:"dayCompleted"`
	ChallengeCompleted bool      `json:"challengeCompleted"`
	CurrentStreak      int       `json:"currentStreak"`
	LongestStreak      int       `json:"longestStreak"`
	Level              int       `json:"level"`
	// BonusStreakDays is celebratory copy only; it is not added to the stored streak.
	BonusStreakDays int `json:"bonusStreakDays,omitempty"`
}

type Stats struct {
	CurrentStreak       int     `json:"currentStreak"`
	LongestStreak       int     `json:"longestStreak"`
	Level               int     `json:"level"`
	ChallengesCompleted int     `json:"challengesCompleted"`
	DaysCompleted       int     `json:"daysCompleted"`
	DayIndex            int     `json:"dayIndex"`
	DurationDays        int     `json:"durationDays"`
	ProgressPercent     float64 `json:"progressPercent"`
	TodayCompleted      int     `json:"todayCompleted"`
	TodayTotal          int     `json:"todayTotal"`
	TodayComplete       bool    `json:"todayComplete"`
}
