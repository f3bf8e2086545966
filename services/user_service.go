package services

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"growthTrackerAPI/internal/apperror"
	"growthTrackerAPI/internal/user"
)

type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	var u user.User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, dbError(err, "user not found")
	}
	return &u, nil
}

func (s *UserService) GetUserByClerkID(ctx context.Context, clerkID string) (*user.User, error) {
	var u user.User
	if err := s.db.WithContext(ctx).First(&u, "clerk_id = ?", clerkID).Error; err != nil {
		return nil, dbError(err, "user not found")
	}
	return &u, nil
}

// ResolveClerkID maps an identity-provider subject to a local user id,
// provisioning a bare account the first time the subject is seen.
func (s *UserService) ResolveClerkID(ctx context.Context, clerkID string) (uuid.UUID, error) {
	u, err := s.GetUserByClerkID(ctx, clerkID)
	if err == nil {
		return u.ID, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return uuid.Nil, err
	}

	id := clerkID
	created := &user.User{ClerkID: &id, Name: "", Email: clerkID + "@clerk.local"}
	if err := s.db.WithContext(ctx).Create(created).Error; err != nil {
		if isDuplicate(err) {
			u, err := s.GetUserByClerkID(ctx, clerkID)
			if err != nil {
				return uuid.Nil, err
			}
			return u.ID, nil
		}
		return uuid.Nil, dbError(err, "user not found")
	}
	log.Printf("ResolveClerkID: provisioned user %s for clerk subject %s", created.ID, clerkID)
	return created.ID, nil
}

// UpsertFromClerk applies a user.created or user.updated webhook. An existing
// account with the same email is linked rather than duplicated.
func (s *UserService) UpsertFromClerk(ctx context.Context, p *user.ClerkProfile) (*user.User, error) {
	if p.ClerkID == "" {
		return nil, apperror.Field("id", "is required")
	}
	email := normalizeEmail(p.Email)

	var out user.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.First(&out, "clerk_id = ?", p.ClerkID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) && email != "" {
			err = tx.First(&out, "email = ?", email).Error
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return dbError(err, "user not found")
		}

		clerkID := p.ClerkID
		out.ClerkID = &clerkID
		if email != "" {
			out.Email = email
		}
		if p.Name != "" {
			out.Name = p.Name
		}
		out.ImageURL = p.ImageURL
		out.EmailVerified = p.EmailVerified

		if out.ID == uuid.Nil {
			if out.Email == "" {
				out.Email = p.ClerkID + "@clerk.local"
			}
			return dbError(tx.Create(&out).Error, "user not found")
		}
		return dbError(tx.Save(&out).Error, "user not found")
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *UserService) DeleteUserByClerkID(ctx context.Context, clerkID string) error {
	result := s.db.WithContext(ctx).Where("clerk_id = ?", clerkID).Delete(&user.User{})
	if result.Error != nil {
		return dbError(result.Error, "user not found")
	}
	if result.RowsAffected == 0 {
		return apperror.NotFound("user not found")
	}
	return nil
}

func (s *UserService) UpdateProfile(ctx context.Context, id uuid.UUID, req *user.UpdateProfileRequest) (*user.User, error) {
	if err := apperror.ValidateStruct(req); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if name := strings.TrimSpace(req.Name); name != "" {
		updates["name"] = name
	}
	if req.ImageURL != "" {
		updates["image_url"] = req.ImageURL
	}

	if len(updates) > 0 {
		result := s.db.WithContext(ctx).Model(&user.User{}).Where("id = ?", id).Updates(updates)
		if result.Error != nil {
			return nil, dbError(result.Error, "user not found")
		}
		if result.RowsAffected == 0 {
			return nil, apperror.NotFound("user not found")
		}
	}
	return s.GetByID(ctx, id)
}
