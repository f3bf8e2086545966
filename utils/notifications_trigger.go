package utils

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"growthTrackerAPI/internal/notification"
)

// NotificationCreator is the one method triggers need from the notification service.
type NotificationCreator interface {
	Notify(ctx context.Context, req *notification.CreateNotificationRequest) (*notification.Notification, error)
}

func DayCompleted(notifier NotificationCreator, userID uuid.UUID, dayIndex, durationDays, streak int) {
	req := &notification.CreateNotificationRequest{
		UserID:  userID,
		Type:    notification.NotificationDayCompleted,
		Title:   fmt.Sprintf("Day %d complete", dayIndex),
		Message: streakMessage(streak, durationDays-dayIndex),
		Data: map[string]any{
			"day_index": dayIndex,
			"streak":    streak,
		},
	}
	if _, err := notifier.Notify(context.Background(), req); err != nil {
		log.Printf("Failed to create day_completed notification for %s: %v", userID, err)
	}
}

func ChallengeCompleted(notifier NotificationCreator, userID uuid.UUID, challengeName string, bonusDays int) {
	req := &notification.CreateNotificationRequest{
		UserID:  userID,
		Type:    notification.NotificationChallengeCompleted,
		Title:   "Challenge complete!",
		Message: fmt.Sprintf("You finished %s. +%d streak bonus!", challengeName, bonusDays),
		Data: map[string]any{
			"challenge": challengeName,
			"bonus":     bonusDays,
		},
	}
	if _, err := notifier.Notify(context.Background(), req); err != nil {
		log.Printf("Failed to create challenge_completed notification for %s: %v", userID, err)
	}
}

func streakMessage(streak, daysLeft int) string {
	switch {
	case daysLeft <= 0:
		return fmt.Sprintf("%d day streak. That was the last day!", streak)
	case streak == 1:
		return fmt.Sprintf("Your streak has started. %d days to go.", daysLeft)
	default:
		return fmt.Sprintf("%d day streak! %d days to go.", streak, daysLeft)
	}
}
