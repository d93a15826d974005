package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pravara/school-backend/internal/apperror"
	"github.com/pravara/school-backend/internal/model"
)

// contextKey is an unexported type used for context keys in this package.
//
// A package-private key type means only this package can read or write the
// authenticated user stored in a request context.
type contextKey string

const userKey contextKey = "user"

// Resolver turns a bearer token into a user record.
// service.AuthService implements it.
type Resolver interface {
	CurrentUser(ctx context.Context, token string) (*model.User, error)
	RequireRole(ctx context.Context, token, role string) (*model.User, error)
}

// RequireUser is a middleware that enforces authentication on protected
// routes without constraining the role.
//
// MIDDLEWARE PATTERN IN GO:
// A middleware takes an http.Handler and returns a new http.Handler that
// wraps it. Chi applies middlewares in a chain:
// req → M1 → M2 → Handler → M2 → M1 → resp
func RequireUser(resolver Resolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return gate(logger, func(ctx context.Context, token string) (*model.User, error) {
		return resolver.CurrentUser(ctx, token)
	})
}

// RequireRole is a middleware that lets a request through only when its
// bearer token resolves to a user whose role equals role exactly.
//
// Failures:
//   - token absent, malformed, expired or for an unknown user → 401
//   - valid user, different role → 403
//
// On success the user is stored in the request context; handlers read it
// with UserFromContext.
func RequireRole(resolver Resolver, role string, logger *slog.Logger) func(http.Handler) http.Handler {
	return gate(logger, func(ctx context.Context, token string) (*model.User, error) {
		return resolver.RequireRole(ctx, token, role)
	})
}

func gate(logger *slog.Logger, resolve func(ctx context.Context, token string) (*model.User, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := BearerToken(r)
			if err != nil {
				deny(w, logger, r, apperror.Unauthenticated(err))
				return
			}

			user, err := resolve(r.Context(), token)
			if err != nil {
				deny(w, logger, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext retrieves the authenticated user from the request context.
// Returns (nil, false) on routes that are not behind RequireUser/RequireRole.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(userKey).(*model.User)
	return u, ok && u != nil
}

// WithUser returns a copy of ctx carrying user. Used by tests that call
// handlers directly, bypassing the middleware.
func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// BearerToken extracts the token from an `Authorization: Bearer <token>` header.
func BearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", errors.New("missing authorization header")
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", errors.New("authorization scheme must be Bearer")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errors.New("empty bearer token")
	}
	return token, nil
}

// deny writes the 401/403/500 response for a failed gate. The precise
// failure kind only goes to the debug log.
func deny(w http.ResponseWriter, logger *slog.Logger, r *http.Request, err error) {
	status := http.StatusInternalServerError
	kind := "internal_error"
	message := "An internal error occurred"

	var appErr *apperror.AppError
	switch {
	case errors.Is(err, apperror.ErrForbidden):
		status, kind = http.StatusForbidden, "forbidden"
		message = "access forbidden"
		if errors.As(err, &appErr) {
			message = appErr.Message
		}
	case errors.Is(err, apperror.ErrUnauthenticated):
		status, kind = http.StatusUnauthorized, "unauthorized"
		message = "could not validate credentials"
		w.Header().Set("WWW-Authenticate", "Bearer")
	}

	if status == http.StatusInternalServerError {
		logger.Error("auth gate failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	} else {
		logger.Debug("auth gate denied request",
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.String("reason", err.Error()),
		)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": kind, "message": message})
}
