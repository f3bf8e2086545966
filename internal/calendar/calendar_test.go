package calendar

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDayStatus(t *testing.T) {
	today := "2026-06-10"

	cases := []struct {
		name        string
		date        string
		inWindow    bool
		dayComplete bool
		completed   int
		want        Status
	}{
		{"outside enrollment", "2026-06-01", false, false, 0, StatusNone},
		{"future day", "2026-06-11", true, false, 0, StatusUpcoming},
		{"completed day", "2026-06-09", true, true, 3, StatusComplete},
		{"some tasks done", "2026-06-09", true, false, 1, StatusPartial},
		{"today untouched", today, true, false, 0, StatusPending},
		{"past untouched", "2026-06-08", true, false, 0, StatusMissed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DayStatus(tc.date, today, tc.inWindow, tc.dayComplete, tc.completed))
		})
	}
}
