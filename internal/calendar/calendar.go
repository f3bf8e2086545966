package calendar

type Status string

const (
	StatusComplete Status = "complete"
	StatusPartial  Status = "partial"
	StatusMissed   Status = "missed"
	StatusPending  Status = "pending"
	StatusUpcoming Status = "upcoming"
	StatusNone     Status = "none"
)

type CalendarDay struct {
	Date      string `json:"date"`
	DayIndex  int    `json:"dayIndex,omitempty"`
	Scheduled int    `json:"scheduled"`
	Completed int    `json:"completed"`
	Status    Status `json:"status"`
	IsToday   bool   `json:"isToday"`
}

type CalendarResponse struct {
	Year  int            `json:"year"`
	Month int            `json:"month"`
	Days  []*CalendarDay `json:"days"`
}

// DayStatus colors one calendar cell. inWindow is false outside the enrollment's
// date range; dayComplete is true when the day was recorded as complete.
func DayStatus(date, today string, inWindow, dayComplete bool, completed int) Status {
	switch {
	case !inWindow:
		return StatusNone
	case date > today:
		return StatusUpcoming
	case dayComplete:
		return StatusComplete
	case completed > 0:
		return StatusPartial
	case date == today:
		return StatusPending
	default:
		return StatusMissed
	}
}
