package user

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type AuthResponse struct {
	User         *User  `json:"user"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// ClerkProfile is what the identity provider's webhooks tell us about a user.
type ClerkProfile struct {
	ClerkID       string
	Email         string
	Name          string
	ImageURL      string
	EmailVerified bool
}

type UpdateProfileRequest struct {
	Name     string `json:"name,omitempty" validate:"max=100"`
	ImageURL string `json:"imageUrl,omitempty" validate:"omitempty,url"`
}
