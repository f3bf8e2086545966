package services

import (
	"context"
	"errors"
	"log"
	"strings"

	"gorm.io/gorm"

	"growthTrackerAPI/internal/apperror"
	"growthTrackerAPI/internal/security"
	"growthTrackerAPI/internal/user"
)

// ErrInvalidCredentials is returned for an unknown email and a wrong password alike.
var ErrInvalidCredentials = apperror.Unauthenticated("invalid credentials")

type AuthService struct {
	db       *gorm.DB
	hasher   *security.PasswordHasher
	tokens   *security.TokenManager
	sessions security.RefreshStore
}

func NewAuthService(db *gorm.DB, hasher *security.PasswordHasher, tokens *security.TokenManager, sessions security.RefreshStore) *AuthService {
	return &AuthService{db: db, hasher: hasher, tokens: tokens, sessions: sessions}
}

func (s *AuthService) Register(ctx context.Context, req *user.RegisterRequest) (*user.AuthResponse, error) {
	if err := apperror.ValidateStruct(req); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, apperror.Internal("failed to hash password", err)
	}

	u := &user.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        normalizeEmail(req.Email),
		PasswordHash: hash,
	}
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		if isDuplicate(err) {
			return nil, apperror.Conflict("email is already registered")
		}
		return nil, dbError(err, "user not found")
	}

	log.Printf("Register: created user %s", u.ID)
	return s.issue(ctx, u)
}

func (s *AuthService) Login(ctx context.Context, req *user.LoginRequest) (*user.AuthResponse, error) {
	if err := apperror.ValidateStruct(req); err != nil {
		return nil, err
	}

	var u user.User
	err := s.db.WithContext(ctx).First(&u, "email = ?", normalizeEmail(req.Email)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, dbError(err, "user not found")
	}
	if u.PasswordHash == "" || s.hasher.Compare(u.PasswordHash, req.Password) != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issue(ctx, &u)
}

// Refresh rotates a refresh token: the presented one is revoked and a new pair issued.
func (s *AuthService) Refresh(ctx context.Context, req *user.RefreshRequest) (*user.AuthResponse, error) {
	if err := apperror.ValidateStruct(req); err != nil {
		return nil, err
	}

	claims, err := s.tokens.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		return nil, apperror.Unauthenticated("invalid refresh token")
	}

	owner, err := s.sessions.Check(ctx, claims.TokenID)
	if errors.Is(err, security.ErrRefreshNotFound) || (err == nil && owner != claims.UserID) {
		return nil, apperror.Unauthenticated("refresh token has been revoked")
	}
	if err != nil {
		return nil, apperror.Upstream("failed to check refresh token", err)
	}
	if err := s.sessions.Delete(ctx, claims.TokenID); err != nil {
		return nil, apperror.Upstream("failed to revoke refresh token", err)
	}

	var u user.User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Unauthenticated("account no longer exists")
		}
		return nil, dbError(err, "user not found")
	}
	return s.issue(ctx, &u)
}

// Logout revokes the refresh token. Unknown or expired tokens are not an error.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil
	}
	if err := s.sessions.Delete(ctx, claims.TokenID); err != nil {
		return apperror.Upstream("failed to revoke refresh token", err)
	}
	return nil
}

func (s *AuthService) issue(ctx context.Context, u *user.User) (*user.AuthResponse, error) {
	pair, err := s.tokens.Generate(u.ID)
	if err != nil {
		return nil, apperror.Internal("failed to issue tokens", err)
	}

	claims, err := s.tokens.ValidateRefreshToken(pair.RefreshToken)
	if err != nil {
		return nil, apperror.Internal("failed to read issued refresh token", err)
	}
	if err := s.sessions.Save(ctx, claims.TokenID, u.ID, s.tokens.RefreshTTL()); err != nil {
		return nil, apperror.Upstream("failed to store refresh token", err)
	}

	return &user.AuthResponse{User: u, AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}, nil
}
