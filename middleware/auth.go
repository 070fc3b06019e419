package middleware

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"agencyops/backend/config"
	"agencyops/backend/migrations"
	"agencyops/backend/models"
	"agencyops/backend/services"
)

// Define context keys
type contextKey string

const UserIDKey contextKey = "user_id"
const UserRoleKey contextKey = "user_role"

// tokenVerifier is the part of the Firebase auth client used here
type tokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

var firebaseAuth tokenVerifier

// RoleLookup resolves the role of an authenticated user
type RoleLookup interface {
	Role(ctx context.Context, userID string) (string, error)
}

// InitializeFirebase initializes the Firebase Admin SDK from configuration.
// Without credentials token verification stays disabled and every request
// runs as the seeded development admin.
func InitializeFirebase(cfg config.FirebaseConfig) error {
	var credentials []byte
	switch {
	case cfg.CredentialsJSON != "":
		log.Println("Using JSON Firebase credentials from configuration")
		credentials = []byte(cfg.CredentialsJSON)
	case cfg.CredentialsBase64 != "":
		log.Println("Using base64-encoded Firebase credentials from configuration")
		decoded, err := base64.StdEncoding.DecodeString(cfg.CredentialsBase64)
		if err != nil {
			return fmt.Errorf("decoding base64 Firebase credentials: %w", err)
		}
		credentials = decoded
	default:
		log.Println("No Firebase credentials configured, running with auth checks disabled")
		firebaseAuth = nil
		return nil
	}

	var fbConfig *firebase.Config
	if cfg.ProjectID != "" {
		fbConfig = &firebase.Config{ProjectID: cfg.ProjectID}
	}

	ctx := context.Background()
	app, err := firebase.NewApp(ctx, fbConfig, option.WithCredentialsJSON(credentials))
	if err != nil {
		return fmt.Errorf("initializing Firebase app: %w", err)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return fmt.Errorf("getting Firebase Auth client: %w", err)
	}
	firebaseAuth = client

	log.Println("Firebase Admin SDK initialized successfully")
	return nil
}

// AuthMiddleware verifies Firebase ID tokens from the Authorization header
// and stores the caller's id and role in the request context
func AuthMiddleware(users RoleLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Skip auth for OPTIONS requests (CORS preflight)
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			// If Firebase auth is not initialized, skip token verification (dev mode)
			if firebaseAuth == nil {
				ctx := context.WithValue(r.Context(), UserIDKey, migrations.DevAdminID)
				ctx = context.WithValue(ctx, UserRoleKey, models.RoleAdmin)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			idToken := extractToken(r.Header.Get("Authorization"))
			if idToken == "" {
				writeJSONError(w, http.StatusUnauthorized, "Unauthorized: No token provided")
				return
			}

			token, err := verifyToken(r.Context(), idToken)
			if err != nil {
				log.Printf("Error verifying token: %v", err)
				writeJSONError(w, http.StatusUnauthorized, "Unauthorized: Invalid token")
				return
			}

			role, err := users.Role(r.Context(), token.UID)
			switch {
			case services.IsKind(err, services.KindNotFound):
				writeJSONError(w, http.StatusForbidden, "Forbidden: User is not registered")
				return
			case services.IsKind(err, services.KindInactive):
				writeJSONError(w, http.StatusForbidden, "Forbidden: User is not active")
				return
			case err != nil:
				log.Printf("Error loading role for user %s: %v", token.UID, err)
				writeJSONError(w, http.StatusInternalServerError, "Failed to load user role")
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, token.UID)
			ctx = context.WithValue(ctx, UserRoleKey, role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken gets the token from the Authorization header
func extractToken(authHeader string) string {
	token, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

// verifyToken verifies the Firebase JWT token
func verifyToken(ctx context.Context, idToken string) (*auth.Token, error) {
	if firebaseAuth == nil {
		return nil, errors.New("Firebase auth client not initialized")
	}

	token, err := firebaseAuth.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("error verifying ID token: %w", err)
	}

	return token, nil
}

// GetUserIDFromContext retrieves the user ID from the request context
func GetUserIDFromContext(r *http.Request) string {
	userID, ok := r.Context().Value(UserIDKey).(string)
	if !ok {
		return ""
	}
	return userID
}

// GetUserRoleFromContext retrieves the user role from the request context
func GetUserRoleFromContext(r *http.Request) string {
	role, ok := r.Context().Value(UserRoleKey).(string)
	if !ok {
		return ""
	}
	return role
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"status": "fail", "message": message})
}
