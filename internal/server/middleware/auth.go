package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	identitydomain "tenant-auth-control-plane/internal/identity/domain"
	"tenant-auth-control-plane/internal/session"
	"tenant-auth-control-plane/pkg/api"
)

// TokenResolver resolves a bearer token to an identity. Satisfied by the
// identity service.
type TokenResolver interface {
	TokenLogin(token string) (*identitydomain.Identity, error)
}

type identityKey struct{}

// Auth rejects requests without a valid bearer session token and stores the
// resolved identity in the request context. Expired tokens get a distinct
// message so clients can prompt re-login instead of treating it as an error.
func Auth(logger *slog.Logger, resolver TokenResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				unauthorized(w, "missing or malformed Authorization header")
				return
			}
			identity, err := resolver.TokenLogin(token)
			if err != nil {
				logger.WarnContext(r.Context(), "token rejected", "error", err)
				if errors.Is(err, session.ErrTokenExpired) {
					unauthorized(w, "session token expired")
					return
				}
				unauthorized(w, "invalid session token")
				return
			}
			ctx := context.WithValue(r.Context(), identityKey{}, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFrom returns the identity stored by Auth, or nil.
func IdentityFrom(ctx context.Context) *identitydomain.Identity {
	identity, _ := ctx.Value(identityKey{}).(*identitydomain.Identity)
	return identity
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(api.ErrorResponse{
		Error:   http.StatusText(http.StatusUnauthorized),
		Message: message,
	})
}
