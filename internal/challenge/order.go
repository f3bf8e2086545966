package challenge

import "sort"

// SortTasks orders joins by explicit day when set, then by insertion position.
// Joins without a day sort as day 0, ahead of day-scheduled ones.
func SortTasks(tasks []ChallengeTask) {
	sort.SliceStable(tasks, func(i, j int) bool {
		di, dj := dayOf(tasks[i]), dayOf(tasks[j])
		if di != dj {
			return di < dj
		}
		return tasks[i].Position < tasks[j].Position
	})
}

func dayOf(ct ChallengeTask) int {
	if ct.Day == nil {
		return 0
	}
	return *ct.Day
}
