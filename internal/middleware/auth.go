package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/studyai/studyai-go/internal/model"
	"github.com/studyai/studyai-go/internal/service"
)

type contextKey string

const identityKey contextKey = "identity"

const msgInvalidCredentials = "Could not validate credentials"

// Authenticator resolves a bearer token to an identity.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (model.Identity, error)
}

// BearerAuth returns middleware that requires a valid Bearer token in the
// Authorization header. Every rejection looks the same to the client.
func BearerAuth(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				Unauthorized(w, msgInvalidCredentials)
				return
			}

			id, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				if !errors.Is(err, service.ErrUnauthorized) {
					slog.ErrorContext(r.Context(), "authentication failed", "error", err)
					writeJSONError(w, http.StatusInternalServerError, "internal server error")
					return
				}
				Unauthorized(w, msgInvalidCredentials)
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext extracts the authenticated identity from the request context.
func IdentityFromContext(ctx context.Context) (model.Identity, bool) {
	id, ok := ctx.Value(identityKey).(model.Identity)
	return id, ok
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id model.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// Unauthorized writes a 401 with a Bearer challenge.
func Unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeJSONError(w, http.StatusUnauthorized, msg)
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"detail": msg})
}
