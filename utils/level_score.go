package utils

import "math"

func CalculateGrowthScore(currentStreak, daysCompleted, challengesCompleted int) float64 {
	streakScore := math.Pow(float64(currentStreak), 2) * 0.3
	daysScore := float64(daysCompleted) * 0.5
	challengeScore := float64(challengesCompleted) * 10.0

	return streakScore + daysScore + challengeScore
}

// LevelForScore maps a growth score to a level starting at 1.
func LevelForScore(score float64) int {
	if score <= 0 {
		return 1
	}
	return 1 + int(math.Floor(math.Sqrt(score)))
}
