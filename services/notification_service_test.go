package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"growthTrackerAPI/internal/apperror"
	"growthTrackerAPI/internal/notification"
	"growthTrackerAPI/internal/testutil"
	"growthTrackerAPI/internal/user"
)

type fakePush struct {
	mu     sync.Mutex
	titles []string
	fail   bool
}

func (p *fakePush) SendPush(_ context.Context, tokens []notification.DeviceToken, title, _ string, _ map[string]any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("push rejected")
	}
	p.titles = append(p.titles, title)
	return nil
}

func (p *fakePush) sent() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.titles)
}

func newNotificationFixture(t *testing.T) (*NotificationService, *user.User) {
	t.Helper()
	db := testutil.NewDB(t)
	u := &user.User{Name: "N", Email: "notify@example.com"}
	require.NoError(t, db.Create(u).Error)

	s := NewNotificationService(db)
	t.Cleanup(s.Stop)
	return s, u
}

func TestNotifyPushesToDevices(t *testing.T) {
	s, u := newNotificationFixture(t)
	ctx := context.Background()
	push := &fakePush{}
	s.SetPushProvider(push)

	require.NoError(t, s.RegisterDevice(ctx, u.ID, notification.RegisterDeviceRequest{Token: "tok-1", Platform: "ios"}))

	notif, err := s.Notify(ctx, &notification.CreateNotificationRequest{
		UserID: u.ID,
		Type:   notification.NotificationDayCompleted,
		Title:  "Day 1 complete",
	})
	require.NoError(t, err)
	require.NotNil(t, notif)

	require.Eventually(t, func() bool { return push.sent() == 1 }, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		list, err := s.GetNotifications(ctx, u.ID, 1, 20)
		return err == nil && len(list.Notifications) == 1 && list.Notifications[0].Status == notification.StatusSent
	}, 2*time.Second, 10*time.Millisecond)
}

func TestNotifyRespectsDisabledType(t *testing.T) {
	s, u := newNotificationFixture(t)
	ctx := context.Background()

	_, err := s.UpdatePreferences(ctx, u.ID, &notification.UpdatePreferencesRequest{
		EnabledTypes: map[string]bool{string(notification.NotificationDayCompleted): false},
	})
	require.NoError(t, err)

	notif, err := s.Notify(ctx, &notification.CreateNotificationRequest{UserID: u.ID, Type: notification.NotificationDayCompleted, Title: "skip"})
	require.NoError(t, err)
	assert.Nil(t, notif)

	notif, err = s.Notify(ctx, &notification.CreateNotificationRequest{UserID: u.ID, Type: notification.NotificationChallengeCompleted, Title: "keep"})
	require.NoError(t, err)
	assert.NotNil(t, notif)
}

func TestMarkReadFlow(t *testing.T) {
	s, u := newNotificationFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := s.Notify(ctx, &notification.CreateNotificationRequest{UserID: u.ID, Type: notification.NotificationTest, Title: "hello"})
		require.NoError(t, err)
	}

	count, err := s.GetUnreadCount(ctx, u.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)

	list, err := s.GetNotifications(ctx, u.ID, 1, 2)
	require.NoError(t, err)
	assert.Len(t, list.Notifications, 2)
	assert.EqualValues(t, 3, list.TotalCount)

	require.NoError(t, s.MarkAsRead(ctx, u.ID, list.Notifications[0].ID))
	err = s.MarkAsRead(ctx, u.ID, list.Notifications[0].ID)
	require.ErrorIs(t, err, apperror.ErrNotFound)

	require.NoError(t, s.MarkAllAsRead(ctx, u.ID))
	count, err = s.GetUnreadCount(ctx, u.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRegisterDeviceValidatesPlatform(t *testing.T) {
	s, u := newNotificationFixture(t)

	err := s.RegisterDevice(context.Background(), u.ID, notification.RegisterDeviceRequest{Token: "x", Platform: "fax"})
	require.ErrorIs(t, err, apperror.ErrValidationFailed)
}
