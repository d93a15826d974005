package auth

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pravara/school-backend/internal/apperror"
	"github.com/pravara/school-backend/internal/model"
)

// fakeResolver maps tokens straight to users.
type fakeResolver struct {
	users map[string]*model.User
	err   error // returned for every call when set
}

func (f *fakeResolver) CurrentUser(ctx context.Context, token string) (*model.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[token]
	if !ok {
		return nil, apperror.Unauthenticated(ErrTokenInvalid)
	}
	return u, nil
}

func (f *fakeResolver) RequireRole(ctx context.Context, token, role string) (*model.User, error) {
	u, err := f.CurrentUser(ctx, token)
	if err != nil {
		return nil, err
	}
	if u.Role != role {
		return nil, apperror.Forbidden("wrong role")
	}
	return u, nil
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{users: map[string]*model.User{
		"student-token": {ID: 1, Username: "alice", Role: model.RoleStudent},
		"teacher-token": {ID: 2, Username: "bob", Role: model.RoleTeacher},
	}}
}

// echoUser answers 200 with the username found in the context.
var echoUser = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	u, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "no user", http.StatusTeapot)
		return
	}
	_, _ = w.Write([]byte(u.Username))
})

func serveWith(mw func(http.Handler) http.Handler, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rr := httptest.NewRecorder()
	mw(echoUser).ServeHTTP(rr, req)
	return rr
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRequireRole(t *testing.T) {
	teacherOnly := RequireRole(newFakeResolver(), model.RoleTeacher, testLogger())

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"teacher passes", "Bearer teacher-token", http.StatusOK, "bob"},
		{"scheme is case-insensitive", "bearer teacher-token", http.StatusOK, "bob"},
		{"student is forbidden", "Bearer student-token", http.StatusForbidden, ""},
		{"unknown token", "Bearer nope", http.StatusUnauthorized, ""},
		{"no header", "", http.StatusUnauthorized, ""},
		{"basic scheme", "Basic dXNlcjpwdw==", http.StatusUnauthorized, ""},
		{"empty bearer", "Bearer   ", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serveWith(teacherOnly, tt.header)

			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d (body %q)", rr.Code, tt.status, rr.Body.String())
			}
			if tt.body != "" && rr.Body.String() != tt.body {
				t.Errorf("body = %q, want %q", rr.Body.String(), tt.body)
			}
			if tt.status == http.StatusUnauthorized && rr.Header().Get("WWW-Authenticate") != "Bearer" {
				t.Error("401 without WWW-Authenticate: Bearer")
			}
		})
	}
}

func TestRequireRole_ErrorBody(t *testing.T) {
	rr := serveWith(RequireRole(newFakeResolver(), model.RoleTeacher, testLogger()), "Bearer student-token")

	var body map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	if body["error"] != "forbidden" || body["message"] != "wrong role" {
		t.Errorf("body = %v", body)
	}
}

func TestRequireRole_ResolverFailureIs500(t *testing.T) {
	resolver := newFakeResolver()
	resolver.err = errors.New("database is locked")

	rr := serveWith(RequireRole(resolver, model.RoleTeacher, testLogger()), "Bearer teacher-token")
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rr.Code)
	}
	if got := rr.Body.String(); got == "" || strings.Contains(got, "locked") {
		t.Errorf("500 body leaks or is empty: %q", got)
	}
}

func TestRequireUser_AnyRole(t *testing.T) {
	mw := RequireUser(newFakeResolver(), testLogger())

	for token, want := range map[string]string{"student-token": "alice", "teacher-token": "bob"} {
		rr := serveWith(mw, "Bearer "+token)
		if rr.Code != http.StatusOK || rr.Body.String() != want {
			t.Errorf("%s: status %d body %q", token, rr.Code, rr.Body.String())
		}
	}
}

func TestUserFromContext_Empty(t *testing.T) {
	if _, ok := UserFromContext(context.Background()); ok {
		t.Error("UserFromContext() on empty context reported a user")
	}
	if _, ok := UserFromContext(WithUser(context.Background(), nil)); ok {
		t.Error("UserFromContext() reported a nil user as present")
	}
}
