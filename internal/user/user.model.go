package user

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID                  uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ClerkID             *string    `gorm:"uniqueIndex;size:100" json:"clerkId,omitempty"`
	Name                string     `gorm:"not null;size:100" json:"name"`
	Email               string     `gorm:"uniqueIndex;not null;size:255" json:"email"`
	PasswordHash        string     `gorm:"size:255" json:"-"`
	ImageURL            string     `json:"imageUrl,omitempty"`
	EmailVerified       bool       `gorm:"not null;default:false" json:"emailVerified"`
	CurrentChallengeID  *uuid.UUID `gorm:"type:uuid" json:"currentChallengeId,omitempty"`
	CurrentStreak       int        `gorm:"not null;default:0" json:"currentStreak"`
	LongestStreak       int        `gorm:"not null;default:0" json:"longestStreak"`
	LastCompletedDay    string     `gorm:"type:varchar(10)" json:"lastCompletedDay,omitempty"`
	Level               int        `gorm:"not null;default:1" json:"level"`
	ChallengesCompleted int        `gorm:"not null;default:0" json:"challengesCompleted"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
