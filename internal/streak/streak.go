package streak

import (
	"sync"

	"github.com/google/uuid"

	"growthTrackerAPI/utils"
)

type State struct {
	Current int    `json:"current"`
	Longest int    `json:"longest"`
	LastDay string `json:"lastDay,omitempty"`
}

// IsDayComplete reports whether every task scheduled for day has at least one
// completion dated that same day. A day with nothing scheduled is never complete.
func IsDayComplete(scheduled []uuid.UUID, completedOn map[uuid.UUID][]string, day string) bool {
	if len(scheduled) == 0 {
		return false
	}
	for _, id := range scheduled {
		if !containsDay(completedOn[id], day) {
			return false
		}
	}
	return true
}

func containsDay(days []string, day string) bool {
	for _, d := range days {
		if d == day {
			return true
		}
	}
	return false
}

// Advance records day as complete. Completing the same day twice leaves the state
// unchanged and reports false. The day after LastDay extends the streak, any gap
// restarts it at 1.
func Advance(s State, day string) (State, bool) {
	if s.LastDay == day {
		return s, false
	}

	next := State{Current: 1, Longest: s.Longest, LastDay: day}
	if s.LastDay != "" {
		if gap, err := utils.DaysBetween(s.LastDay, day); err == nil {
			if gap < 0 {
				return s, false
			}
			if gap == 1 {
				next.Current = s.Current + 1
			}
		}
	}
	if next.Current > next.Longest {
		next.Longest = next.Current
	}
	return next, true
}

// Effective is the streak as of today: it only survives while the last completed
// day is today or yesterday.
func Effective(s State, today string) int {
	if s.LastDay == "" {
		return 0
	}
	gap, err := utils.DaysBetween(s.LastDay, today)
	if err != nil || gap > 1 || gap < 0 {
		return 0
	}
	return s.Current
}

// Guard admits one completion flow per key and date string.
type Guard struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewGuard() *Guard {
	return &Guard{seen: make(map[string]struct{})}
}

// Enter returns false when the flow for key on day has already started.
func (g *Guard) Enter(key, day string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	k := key + "|" + day
	if _, ok := g.seen[k]; ok {
		return false
	}
	g.seen[k] = struct{}{}
	return true
}

// Release lets a failed flow be retried.
func (g *Guard) Release(key, day string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.seen, key+"|"+day)
}

// Forget drops every entry older than day so the guard does not grow forever.
func (g *Guard) Forget(before string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for k := range g.seen {
		if len(k) >= 10 && k[len(k)-10:] < before {
			delete(g.seen, k)
		}
	}
}
