package challenge

import (
	"github.com/google/uuid"

	"growthTrackerAPI/internal/dimension"
)

type TaskDetail struct {
	TaskID    uuid.UUID            `json:"taskId"`
	Name      string               `json:"name"`
	Points    int                  `json:"points"`
	Day       *int                 `json:"day,omitempty"`
	Position  int                  `json:"position"`
	Dimension *dimension.Dimension `json:"dimension"`
}

type ChallengeDetail struct {
	ID           uuid.UUID              `json:"id"`
	Name         string                 `json:"name"`
	Description  string                 `json:"description"`
	DurationDays int                    `json:"durationDays"`
	IsCustom     bool                   `json:"isCustom"`
	Tasks        []TaskDetail           `json:"tasks"`
	Dimensions   []*dimension.Dimension `json:"dimensions"`
}

// TaskIDs returns the detail's task ids in display order.
func (d *ChallengeDetail) TaskIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(d.Tasks))
	for _, t := range d.Tasks {
		ids = append(ids, t.TaskID)
	}
	return ids
}

type CustomTaskInput struct {
	Name        string    `json:"name" validate:"required,max=200"`
	DimensionID uuid.UUID `json:"dimensionId" validate:"required"`
	Points      int       `json:"points" validate:"min=0,max=100"`
	Day         *int      `json:"day,omitempty" validate:"omitempty,min=1"`
}

type CreateCustomChallengeRequest struct {
	Name         string            `json:"name" validate:"required,max=100"`
	Description  string            `json:"description" validate:"max=2000"`
	DurationDays int               `json:"durationDays" validate:"required,min=1,max=365"`
	Tasks        []CustomTaskInput `json:"tasks" validate:"required,min=1,max=5,dive"`
}

type EnrollRequest struct {
	ChallengeID uuid.UUID   `json:"challengeId" validate:"required"`
	TaskIDs     []uuid.UUID `json:"taskIds,omitempty"`
}

type SessionResponse struct {
	UserChallenge *UserChallenge   `json:"userChallenge"`
	Challenge     *ChallengeDetail `json:"challenge"`
	DayIndex      int              `json:"dayIndex"`
	DaysLeft      int              `json:"daysLeft"`
}

// NewDetail flattens a challenge loaded with Tasks.Task.Dimension. Dimensions
// are listed once each, in order of first appearance.
func NewDetail(c *Challenge) *ChallengeDetail {
	tasks := append([]ChallengeTask(nil), c.Tasks...)
	SortTasks(tasks)

	d := &ChallengeDetail{
		ID:           c.ID,
		Name:         c.Name,
		Description:  c.Description,
		DurationDays: c.DurationDays,
		IsCustom:     c.IsCustom,
		Tasks:        make([]TaskDetail, 0, len(tasks)),
		Dimensions:   []*dimension.Dimension{},
	}

	seen := make(map[uuid.UUID]bool)
	for _, ct := range tasks {
		if ct.Task == nil {
			continue
		}
		d.Tasks = append(d.Tasks, TaskDetail{
			TaskID:    ct.TaskID,
			Name:      ct.Task.Name,
			Points:    ct.Task.Points,
			Day:       ct.Day,
			Position:  ct.Position,
			Dimension: ct.Task.Dimension,
		})
		if dim := ct.Task.Dimension; dim != nil && !seen[dim.ID] {
			seen[dim.ID] = true
			d.Dimensions = append(d.Dimensions, dim)
		}
	}
	return d
}
