package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"growthTrackerAPI/internal/notification"
)

// NotificationDispatcher pushes stored notifications from a small worker pool.
type NotificationDispatcher struct {
	service      *NotificationService
	pushProvider notification.PushProvider
	mu           sync.RWMutex
	workers      int
	jobQueue     chan *notification.Notification
	stopChan     chan struct{}
	stopOnce     sync.Once
	wg           sync.WaitGroup
}

func NewNotificationDispatcher(service *NotificationService) *NotificationDispatcher {
	dispatcher := &NotificationDispatcher{
		service:  service,
		workers:  5,
		jobQueue: make(chan *notification.Notification, 100),
		stopChan: make(chan struct{}),
	}

	dispatcher.startWorkers()

	dispatcher.wg.Add(1)
	go dispatcher.cleanupReadNotifications()

	return dispatcher
}

// SetPushProvider injects the FCM provider from main.go.
func (d *NotificationDispatcher) SetPushProvider(provider notification.PushProvider) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pushProvider = provider
}

func (d *NotificationDispatcher) provider() notification.PushProvider {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.pushProvider
}

func (d *NotificationDispatcher) startWorkers() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
}

func (d *NotificationDispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case notif := <-d.jobQueue:
			d.processJob(notif)
		case <-d.stopChan:
			return
		}
	}
}

func (d *NotificationDispatcher) processJob(notif *notification.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	provider := d.provider()
	if provider == nil {
		log.Printf("Skipping push for notification %s: no provider", notif.ID)
		return
	}

	tokens, err := d.service.deviceTokens(ctx, notif.UserID)
	if err != nil {
		log.Printf("Failed to load device tokens for user %s: %v", notif.UserID, err)
		return
	}
	if len(tokens) == 0 {
		return
	}

	if err := provider.SendPush(ctx, tokens, notif.Title, notif.Message, notif.Data); err != nil {
		log.Printf("Push failed for user %s: %v", notif.UserID, err)
		d.markAsFailed(ctx, notif.ID, err)
		return
	}
	d.markAsSent(ctx, notif.ID)
}

// DispatchNotification queues notif without blocking the caller for long.
func (d *NotificationDispatcher) DispatchNotification(notif *notification.Notification) {
	select {
	case d.jobQueue <- notif:
	case <-time.After(5 * time.Second):
		log.Printf("Failed to queue notification %s: queue full", notif.ID)
	case <-d.stopChan:
	}
}

func (d *NotificationDispatcher) cleanupReadNotifications() {
	defer d.wg.Done()
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			d.performCleanup()
		case <-d.stopChan:
			return
		}
	}
}

// performCleanup drops read notifications older than 90 days.
func (d *NotificationDispatcher) performCleanup() {
	cutoff := time.Now().AddDate(0, 0, -90)
	result := d.service.db.
		Where("read_at IS NOT NULL AND read_at < ?", cutoff).
		Delete(&notification.Notification{})
	if result.Error != nil {
		log.Printf("Failed to cleanup old read notifications: %v", result.Error)
		return
	}
	if result.RowsAffected > 0 {
		log.Printf("Cleaned up %d old read notifications", result.RowsAffected)
	}
}

func (d *NotificationDispatcher) markAsSent(ctx context.Context, id uuid.UUID) {
	err := d.service.db.WithContext(ctx).Model(&notification.Notification{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": notification.StatusSent, "sent_at": time.Now()}).Error
	if err != nil {
		log.Printf("Failed to mark notification %s as sent: %v", id, err)
	}
}

func (d *NotificationDispatcher) markAsFailed(ctx context.Context, id uuid.UUID, cause error) {
	err := d.service.db.WithContext(ctx).Model(&notification.Notification{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":         notification.StatusFailed,
			"failed_at":      time.Now(),
			"failure_reason": cause.Error(),
		}).Error
	if err != nil {
		log.Printf("Failed to mark notification %s as failed: %v", id, err)
	}
}

// Stop drains the workers. Safe to call more than once.
func (d *NotificationDispatcher) Stop() {
	d.stopOnce.Do(func() {
		log.Println("Stopping notification dispatcher...")
		close(d.stopChan)
		d.wg.Wait()
		log.Println("Notification dispatcher stopped")
	})
}
