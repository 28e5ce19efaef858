package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/yamdb/internal/model"
)

// contextKey is unexported so only this package can set or read the user.
type contextKey string

const userKey contextKey = "user"

// UserLoader resolves the user id carried by a token.
type UserLoader interface {
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
}

// Authenticate reads "Authorization: Bearer <jwt>", loads the user and stores
// it in the request context. A missing, malformed or expired token, or a
// token for a deleted user, leaves the request anonymous; whether anonymous
// access is allowed is decided later by the route's permission.
func Authenticate(tokens *TokenService, users UserLoader, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			userID, err := tokens.Validate(raw)
			if err != nil {
				logger.Debug("rejected access token", slog.String("error", err.Error()))
				next.ServeHTTP(w, r)
				return
			}

			user, err := users.GetUserByID(r.Context(), userID)
			if err != nil {
				logger.Debug("token user not loaded",
					slog.Int64("user_id", userID),
					slog.String("error", err.Error()),
				)
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// WithUser returns a copy of ctx carrying user.
func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the authenticated user, or nil for an anonymous
// request.
func UserFromContext(ctx context.Context) *model.User {
	u, _ := ctx.Value(userKey).(*model.User)
	return u
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
