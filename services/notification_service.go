package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"growthTrackerAPI/internal/apperror"
	"growthTrackerAPI/internal/notification"
)

type NotificationService struct {
	db         *gorm.DB
	dispatcher *NotificationDispatcher
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	service := &NotificationService{db: db}
	service.dispatcher = NewNotificationDispatcher(service)
	return service
}

func (s *NotificationService) SetPushProvider(provider notification.PushProvider) {
	s.dispatcher.SetPushProvider(provider)
}

func (s *NotificationService) Stop() {
	s.dispatcher.Stop()
}

// Notify stores a notification and queues it for push delivery. A type the
// user switched off is skipped and returns nil, nil.
func (s *NotificationService) Notify(ctx context.Context, req *notification.CreateNotificationRequest) (*notification.Notification, error) {
	if err := apperror.ValidateStruct(req); err != nil {
		return nil, err
	}

	prefs, err := s.preferences(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if !prefs.Allows(req.Type) {
		return nil, nil
	}

	notif := &notification.Notification{
		UserID:  req.UserID,
		Type:    req.Type,
		Status:  notification.StatusPending,
		Title:   req.Title,
		Message: req.Message,
		Data:    datatypes.JSONMap(req.Data),
	}
	if err := s.db.WithContext(ctx).Create(notif).Error; err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	if prefs.PushEnabled {
		s.dispatcher.DispatchNotification(notif)
	}
	return notif, nil
}

func (s *NotificationService) GetNotifications(ctx context.Context, userID uuid.UUID, page, pageSize int) (*notification.NotificationListResponse, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	db := s.db.WithContext(ctx)
	var notifications []*notification.Notification
	err := db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&notifications).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch notifications: %w", err)
	}

	resp := &notification.NotificationListResponse{
		Notifications: notifications,
		Page:          page,
		PageSize:      pageSize,
	}
	if err := db.Model(&notification.Notification{}).Where("user_id = ?", userID).Count(&resp.TotalCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count notifications: %w", err)
	}
	if resp.UnreadCount, err = s.GetUnreadCount(ctx, userID); err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *NotificationService) GetUnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&notification.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to get unread count: %w", err)
	}
	return count, nil
}

func (s *NotificationService) MarkAsRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	result := s.db.WithContext(ctx).Model(&notification.Notification{}).
		Where("id = ? AND user_id = ? AND read_at IS NULL", notificationID, userID).
		Updates(map[string]any{"read_at": time.Now(), "status": notification.StatusRead})
	if result.Error != nil {
		return fmt.Errorf("failed to mark as read: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperror.NotFound("notification not found or already read")
	}
	return nil
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	return s.db.WithContext(ctx).Model(&notification.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Updates(map[string]any{"read_at": time.Now(), "status": notification.StatusRead}).Error
}

func (s *NotificationService) DeleteNotification(ctx context.Context, userID, notificationID uuid.UUID) error {
	result := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Delete(&notification.Notification{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete notification: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperror.NotFound("notification not found")
	}
	return nil
}

// RegisterDevice stores token for the user, moving it over if another account had it.
func (s *NotificationService) RegisterDevice(ctx context.Context, userID uuid.UUID, req notification.RegisterDeviceRequest) error {
	if err := apperror.ValidateStruct(req); err != nil {
		return err
	}

	token := &notification.DeviceToken{
		UserID:   userID,
		Token:    req.Token,
		Platform: req.Platform,
		LastUsed: time.Now(),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "platform", "last_used"}),
	}).Create(token).Error
	if err != nil {
		return fmt.Errorf("failed to register device: %w", err)
	}
	return nil
}

func (s *NotificationService) deviceTokens(ctx context.Context, userID uuid.UUID) ([]notification.DeviceToken, error) {
	var tokens []notification.DeviceToken
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&tokens).Error
	return tokens, err
}

func (s *NotificationService) GetPreferences(ctx context.Context, userID uuid.UUID) (*notification.Preferences, error) {
	return s.preferences(ctx, userID)
}

func (s *NotificationService) preferences(ctx context.Context, userID uuid.UUID) (*notification.Preferences, error) {
	prefs := &notification.Preferences{UserID: userID, PushEnabled: true}
	err := s.db.WithContext(ctx).
		Where(notification.Preferences{UserID: userID}).
		Attrs(notification.Preferences{PushEnabled: true, EnabledTypes: datatypes.JSONMap{}}).
		FirstOrCreate(prefs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get preferences: %w", err)
	}
	return prefs, nil
}

func (s *NotificationService) UpdatePreferences(ctx context.Context, userID uuid.UUID, req *notification.UpdatePreferencesRequest) (*notification.Preferences, error) {
	prefs, err := s.preferences(ctx, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if req.PushEnabled != nil {
		updates["push_enabled"] = *req.PushEnabled
	}
	if req.EnabledTypes != nil {
		types := datatypes.JSONMap{}
		for k, v := range prefs.EnabledTypes {
			types[k] = v
		}
		for k, v := range req.EnabledTypes {
			types[k] = v
		}
		updates["enabled_types"] = types
	}
	if len(updates) == 0 {
		return prefs, nil
	}

	if err := s.db.WithContext(ctx).Model(prefs).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update preferences: %w", err)
	}
	log.Printf("Notification preferences updated for user %s", userID)
	return s.preferences(ctx, userID)
}
