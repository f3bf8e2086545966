package middleware

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/clerk/clerk-sdk-go/v2/jwt"
	"github.com/google/uuid"

	"growthTrackerAPI/internal/security"
)

type contextKey string

const UserIDKey contextKey = "userID"
const ClerkIDKey contextKey = "clerkID"

// ClerkResolver maps a Clerk subject onto a local user id.
type ClerkResolver interface {
	ResolveClerkID(ctx context.Context, clerkID string) (uuid.UUID, error)
}

// Authenticator accepts locally issued access tokens and, when enabled, Clerk
// session tokens. Either way the handler sees a local user id.
type Authenticator struct {
	tokens    *security.TokenManager
	clerk     ClerkResolver
	signInURL string
}

func NewAuthenticator(tokens *security.TokenManager, signInURL string) *Authenticator {
	return &Authenticator{tokens: tokens, signInURL: signInURL}
}

// EnableClerk turns on verification of Clerk tokens. The Clerk secret key must
// already be set with clerk.SetKey.
func (a *Authenticator) EnableClerk(resolver ClerkResolver) {
	a.clerk = resolver
}

// bearerToken reads the Authorization header, falling back to the token query
// parameter that browsers use for websocket upgrades.
func bearerToken(r *http.Request) (string, string) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		if token := r.URL.Query().Get("token"); token != "" {
			return token, ""
		}
		return "", "Authorization header required"
	}

	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == authHeader || token == "" {
		return "", "Invalid authorization format. Use 'Bearer <token>'"
	}
	return token, ""
}

func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, problem := bearerToken(r)
		if problem != "" {
			a.unauthenticated(w, problem)
			return
		}

		ctx := r.Context()
		if claims, err := a.tokens.ValidateAccessToken(token); err == nil {
			ctx = context.WithValue(ctx, UserIDKey, claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		if a.clerk == nil {
			a.unauthenticated(w, "Invalid or expired token")
			return
		}

		claims, err := jwt.Verify(ctx, &jwt.VerifyParams{Token: token})
		if err != nil {
			log.Printf("Token verification failed: %v", err)
			a.unauthenticated(w, "Invalid or expired token")
			return
		}

		userID, err := a.clerk.ResolveClerkID(ctx, claims.Subject)
		if err != nil {
			log.Printf("Failed to resolve Clerk user %s: %v", claims.Subject, err)
			respondWithError(w, http.StatusServiceUnavailable, map[string]any{
				"error": "Could not resolve user",
				"kind":  "upstream_unavailable",
			})
			return
		}

		ctx = context.WithValue(ctx, ClerkIDKey, claims.Subject)
		ctx = context.WithValue(ctx, UserIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *Authenticator) unauthenticated(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	body := map[string]any{"error": message, "kind": "unauthenticated"}
	if a.signInURL != "" {
		body["signIn"] = a.signInURL
	}
	respondWithError(w, http.StatusUnauthorized, body)
}

// GetClerkID extracts Clerk user ID from context
func GetClerkID(ctx context.Context) (string, bool) {
	clerkID, ok := ctx.Value(ClerkIDKey).(string)
	return clerkID, ok
}

// GetUserID extracts internal user ID from context
func GetUserID(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(UserIDKey).(uuid.UUID)
	return userID, ok && userID != uuid.Nil
}

// WithUserID is what the auth middleware stores; handler tests use it directly.
func WithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

func respondWithError(w http.ResponseWriter, code int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}
