package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

type contextKey string

const organizerContextKey contextKey = "organizer"

// Определяем константы для имен JWT claims
const (
	jwtClaimSubject = "sub"
	jwtClaimRole    = "role"
	jwtClaimExpiry  = "exp"

	RoleOrganizer = "organizer"
	RoleAdmin     = "admin"
)

var (
	ErrMissingToken   = errors.New("authorization header with bearer token is required")
	ErrInvalidToken   = errors.New("invalid or expired token")
	ErrRoleNotAllowed = errors.New("token role is not allowed to change brackets")
)

// RequireOrganizer guards bracket mutations with an HS256 bearer token whose
// role claim is organizer or admin. An empty secret disables the check.
func RequireOrganizer(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if secret == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := parseBearer(r.Header.Get("Authorization"), []byte(secret))
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, err)
				return
			}
			role, _ := claims[jwtClaimRole].(string)
			if role != RoleOrganizer && role != RoleAdmin {
				writeAuthError(w, http.StatusForbidden, ErrRoleNotAllowed)
				return
			}

			ctx := context.WithValue(r.Context(), organizerContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func parseBearer(header string, secret []byte) (jwt.MapClaims, error) {
	tokenString, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(tokenString) == "" {
		return nil, ErrMissingToken
	}

	token, err := jwt.Parse(strings.TrimSpace(tokenString), func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func writeAuthError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

// GetOrganizerFromContext returns the subject of the token that passed
// RequireOrganizer.
func GetOrganizerFromContext(ctx context.Context) (string, error) {
	claims, ok := ctx.Value(organizerContextKey).(jwt.MapClaims)
	if !ok {
		return "", errors.New("organizer claims not found in context or invalid type")
	}
	subject, ok := claims[jwtClaimSubject].(string)
	if !ok || subject == "" {
		return "", fmt.Errorf("missing '%s' claim in token", jwtClaimSubject)
	}
	return subject, nil
}

// NewOrganizerToken signs a token accepted by RequireOrganizer.
func NewOrganizerToken(secret, subject, role string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		jwtClaimSubject: subject,
		jwtClaimRole:    role,
		jwtClaimExpiry:  time.Now().Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
