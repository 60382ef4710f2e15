package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sakif/skillshare/internal/apperror"
	"github.com/sakif/skillshare/internal/model"
)

type contextKey string

const principalKey contextKey = "principal"

// PrincipalLookup resolves a token subject to the stored user. The user
// repository satisfies it.
type PrincipalLookup interface {
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
}

// RequireAuth rejects the request with 401 unless it carries a valid
// "Authorization: Bearer <token>" header whose subject still resolves to a
// user. The resolved user is attached to the request context; handlers read it
// with PrincipalFromContext and pass it on explicitly.
//
// Tokens issued before the user's last email or password change are refused.
// Token timestamps have second precision, so the comparison truncates.
func RequireAuth(tokens *TokenService, users PrincipalLookup, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				writeUnauthorized(w, "authentication required")
				return
			}

			id, err := tokens.Validate(raw)
			if err != nil {
				msg := "invalid token"
				if errors.Is(err, ErrExpiredToken) {
					msg = "token expired"
				}
				writeUnauthorized(w, msg)
				return
			}

			user, err := users.GetUserByEmail(r.Context(), id.Email)
			if err != nil {
				if errors.Is(err, apperror.ErrNotFound) {
					writeUnauthorized(w, "account no longer exists")
					return
				}
				logger.Error("resolving principal", slog.String("error", err.Error()))
				writeJSON(w, http.StatusInternalServerError, "internal_error", "an unexpected error occurred")
				return
			}

			if id.IssuedAt.Before(user.CredentialsChangedAt.Truncate(time.Second)) {
				writeUnauthorized(w, "token revoked")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), user)))
		})
	}
}

// WithPrincipal returns a copy of ctx carrying user as the acting principal.
func WithPrincipal(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, principalKey, user)
}

// PrincipalFromContext returns the user attached by RequireAuth.
func PrincipalFromContext(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(principalKey).(*model.User)
	return u, ok && u != nil
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="skillshare"`)
	writeJSON(w, http.StatusUnauthorized, "unauthorized", msg)
}

func writeJSON(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code, "message": msg})
}
