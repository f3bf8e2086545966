package notification

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type NotificationType string

const (
	NotificationDayCompleted       NotificationType = "day_completed"
	NotificationChallengeCompleted NotificationType = "challenge_completed"
	NotificationStreakMilestone    NotificationType = "streak_milestone"
	NotificationTest               NotificationType = "test"
)

type NotificationStatus string

const (
	StatusPending NotificationStatus = "pending"
	StatusSent    NotificationStatus = "sent"
	StatusFailed  NotificationStatus = "failed"
	StatusRead    NotificationStatus = "read"
)

type Notification struct {
	ID            uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID          `gorm:"type:uuid;not null;index" json:"user_id"`
	Type          NotificationType   `gorm:"size:50;not null" json:"type"`
	Status        NotificationStatus `gorm:"size:20;not null;default:pending" json:"status"`
	Title         string             `gorm:"not null" json:"title"`
	Message       string             `gorm:"type:text" json:"message"`
	Data          datatypes.JSONMap  `json:"data"`
	SentAt        *time.Time         `json:"sent_at,omitempty"`
	ReadAt        *time.Time         `json:"read_at,omitempty"`
	FailedAt      *time.Time         `json:"failed_at,omitempty"`
	FailureReason string             `json:"failure_reason,omitempty"`
	CreatedAt     time.Time          `gorm:"index" json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}

func (n *Notification) IsRead() bool {
	return n.ReadAt != nil
}

type DeviceToken struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Token     string    `gorm:"uniqueIndex;not null" json:"token"`
	Platform  string    `gorm:"size:20;not null" json:"platform"`
	LastUsed  time.Time `json:"last_used"`
	CreatedAt time.Time `json:"created_at"`
}

func (DeviceToken) TableName() string {
	return "device_tokens"
}

func (d *DeviceToken) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// Preferences is created lazily with push enabled and every type on.
type Preferences struct {
	UserID       uuid.UUID         `gorm:"type:uuid;primaryKey" json:"user_id"`
	PushEnabled  bool              `gorm:"not null;default:true" json:"push_enabled"`
	EnabledTypes datatypes.JSONMap `json:"enabled_types"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

func (Preferences) TableName() string {
	return "notification_preferences"
}

// Allows reports whether t is enabled. Types missing from EnabledTypes are on.
func (p *Preferences) Allows(t NotificationType) bool {
	if p == nil || p.EnabledTypes == nil {
		return true
	}
	v, ok := p.EnabledTypes[string(t)]
	if !ok {
		return true
	}
	enabled, isBool := v.(bool)
	return !isBool || enabled
}
