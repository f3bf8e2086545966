package progress

import (
	"sort"

	"github.com/google/uuid"

	"growthTrackerAPI/internal/dimension"
)

// Completion is one completed DailyTask resolved to its Task and Dimension.
type Completion struct {
	DailyTaskID uuid.UUID
	TaskName    string
	DimensionID uuid.UUID
	Points      int
}

type DimensionProgress struct {
	DimensionID       uuid.UUID `json:"dimensionId"`
	Name              string    `json:"name"`
	Color             string    `json:"color"`
	Icon              string    `json:"icon"`
	Previous          float64   `json:"previous"`
	Current           float64   `json:"current"`
	ContributingTasks []string  `json:"contributingTasks"`
}

func (d DimensionProgress) Delta() float64 {
	return d.Current - d.Previous
}

// Result lists every dimension in catalog order.
type Result struct {
	Dimensions []DimensionProgress `json:"dimensions"`
}

// Increment is how far one completion moves its dimension: the task's points.
func Increment(points int) float64 {
	if points < 0 {
		return 0
	}
	return float64(points)
}

// Aggregate folds completions into the baseline values. Each DailyTask counts once
// per pass, completions of unknown dimensions are ignored and every value ends
// clamped to [0,100].
func Aggregate(dims []*dimension.Dimension, baseline map[uuid.UUID]float64, completions []Completion) Result {
	index := make(map[uuid.UUID]int, len(dims))
	res := Result{Dimensions: make([]DimensionProgress, len(dims))}
	for i, d := range dims {
		index[d.ID] = i
		prev := Clamp(baseline[d.ID])
		res.Dimensions[i] = DimensionProgress{
			DimensionID:       d.ID,
			Name:              d.Name,
			Color:             d.Color,
			Icon:              d.Icon,
			Previous:          prev,
			Current:           prev,
			ContributingTasks: []string{},
		}
	}

	seen := make(map[uuid.UUID]struct{}, len(completions))
	for _, c := range completions {
		if _, dup := seen[c.DailyTaskID]; dup {
			continue
		}
		i, ok := index[c.DimensionID]
		if !ok {
			continue
		}
		seen[c.DailyTaskID] = struct{}{}
		res.Dimensions[i].Current += Increment(c.Points)
		res.Dimensions[i].ContributingTasks = append(res.Dimensions[i].ContributingTasks, c.TaskName)
	}

	for i := range res.Dimensions {
		res.Dimensions[i].Current = Clamp(res.Dimensions[i].Current)
	}
	return res
}

// Values returns the current value per dimension id.
func (r Result) Values() map[uuid.UUID]float64 {
	out := make(map[uuid.UUID]float64, len(r.Dimensions))
	for _, d := range r.Dimensions {
		out[d.DimensionID] = d.Current
	}
	return out
}

// MostImproved returns up to n dimensions with the largest gain, ties kept in
// catalog order.
func MostImproved(dims []DimensionProgress, n int) []DimensionProgress {
	ranked := make([]DimensionProgress, len(dims))
	copy(ranked, dims)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Delta() > ranked[j].Delta()
	})
	if n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}
