package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pravara/school-backend/internal/apperror"
	"github.com/pravara/school-backend/internal/model"
)

// =========================================================================
// REGISTRATION TESTS
// =========================================================================

func TestRegisterStudent_CreatesUserAndProfile(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestAuthService(t, store)

	u := registerStudent(t, svc, "alice", "a@x.com", "pw")

	if u.ID == 0 {
		t.Fatal("RegisterStudent() did not assign an ID")
	}
	if u.Role != model.RoleStudent {
		t.Errorf("Role = %q, want %q", u.Role, model.RoleStudent)
	}
	if u.PasswordHash == "" || u.PasswordHash == "pw" {
		t.Errorf("PasswordHash = %q, want a bcrypt hash", u.PasswordHash)
	}

	p, ok := store.profiles[u.ID]
	if !ok {
		t.Fatal("no profile created for the new student")
	}
	if p.Marks != 0 || p.Attendance != 0 {
		t.Errorf("profile = %#v, want zero marks and attendance", p)
	}
}

func TestRegisterStudent_DuplicateUsernameAnyEmail(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestAuthService(t, store)
	registerStudent(t, svc, "alice", "a@x.com", "pw")

	for _, email := range []string{"a@x.com", "different@x.com"} {
		_, err := svc.RegisterStudent(context.Background(), RegisterInput{
			Username: "alice", Email: email, Password: "pw2",
		})
		if !errors.Is(err, apperror.ErrConflict) {
			t.Errorf("second registration with email %q: error = %v, want ErrConflict", email, err)
		}
	}
	if len(store.users) != 1 {
		t.Errorf("store has %d users, want 1", len(store.users))
	}
}

func TestRegisterStudent_DuplicateEmail(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestAuthService(t, store)
	registerStudent(t, svc, "alice", "a@x.com", "pw")

	_, err := svc.RegisterStudent(context.Background(), RegisterInput{
		Username: "bob", Email: "a@x.com", Password: "pw",
	})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("error = %v, want ErrConflict", err)
	}
}

func TestRegisterStudent_RejectsOtherRoles(t *testing.T) {
	svc, _ := newTestAuthService(t, newFakeStore())

	for _, role := range []string{model.RoleTeacher, "Student", "admin"} {
		_, err := svc.RegisterStudent(context.Background(), RegisterInput{
			Username: "alice", Email: "a@x.com", Password: "pw", Role: role,
		})
		if !errors.Is(err, apperror.ErrValidation) {
			t.Errorf("role %q: error = %v, want ErrValidation", role, err)
		}
	}
}

func TestRegisterStudent_InputValidation(t *testing.T) {
	svc, _ := newTestAuthService(t, newFakeStore())

	tests := []struct {
		name  string
		in    RegisterInput
		field string
	}{
		{"missing username", RegisterInput{Email: "a@x.com", Password: "pw"}, "username"},
		{"digits in username", RegisterInput{Username: "alice99", Email: "a@x.com", Password: "pw"}, "username"},
		{"bad email", RegisterInput{Username: "alice", Email: "not-an-email", Password: "pw"}, "email"},
		{"missing password", RegisterInput{Username: "alice", Email: "a@x.com"}, "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RegisterStudent(context.Background(), tt.in)
			if !errors.Is(err, apperror.ErrValidation) {
				t.Fatalf("error = %v, want ErrValidation", err)
			}
			var appErr *apperror.AppError
			if errors.As(err, &appErr) && appErr.Field != tt.field {
				t.Errorf("Field = %q, want %q", appErr.Field, tt.field)
			}
		})
	}
}

func TestRegisterStudent_UsernameWithSpaces(t *testing.T) {
	svc, _ := newTestAuthService(t, newFakeStore())

	u := registerStudent(t, svc, "  Mary Ann  ", "m@x.com", "pw")
	if u.Username != "Mary Ann" {
		t.Errorf("Username = %q, want surrounding whitespace trimmed", u.Username)
	}
}

func TestRegisterStudent_StoreFailureIsInternal(t *testing.T) {
	store := newFakeStore()
	store.createErr = errors.New("disk full")
	svc, _ := newTestAuthService(t, store)

	_, err := svc.RegisterStudent(context.Background(), RegisterInput{
		Username: "alice", Email: "a@x.com", Password: "pw",
	})
	if err == nil {
		t.Fatal("expected an error")
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		t.Errorf("store failure surfaced as %v, want an untyped internal error", appErr)
	}
}

func TestRegisterTeacher(t *testing.T) {
	ctx := context.Background()
	in := RegisterInput{Username: "bob", Email: "b@x.com", Password: "pw"}

	t.Run("valid code", func(t *testing.T) {
		store := newFakeStore()
		svc, _ := newTestAuthService(t, store)

		u, err := svc.RegisterTeacher(ctx, in, testTeacherCode)
		if err != nil {
			t.Fatalf("RegisterTeacher() error = %v", err)
		}
		if u.Role != model.RoleTeacher {
			t.Errorf("Role = %q, want %q", u.Role, model.RoleTeacher)
		}
		if _, ok := store.profiles[u.ID]; ok {
			t.Error("teacher should not get a student profile")
		}
	})

	t.Run("wrong code is forbidden", func(t *testing.T) {
		store := newFakeStore()
		svc, _ := newTestAuthService(t, store)

		for _, code := range []string{"", "LET-ME-TEACH", "let-me-teach "} {
			_, err := svc.RegisterTeacher(ctx, in, code)
			if !errors.Is(err, apperror.ErrForbidden) {
				t.Errorf("code %q: error = %v, want ErrForbidden", code, err)
			}
		}
		if len(store.users) != 0 {
			t.Errorf("store has %d users after rejected registrations", len(store.users))
		}
	})

	t.Run("code checked before username", func(t *testing.T) {
		store := newFakeStore()
		svc, _ := newTestAuthService(t, store)
		registerTeacher(t, svc, "bob", "b@x.com", "pw")

		_, err := svc.RegisterTeacher(ctx, in, "nope")
		if !errors.Is(err, apperror.ErrForbidden) {
			t.Errorf("error = %v, want ErrForbidden", err)
		}
	})

	t.Run("student role rejected", func(t *testing.T) {
		svc, _ := newTestAuthService(t, newFakeStore())

		bad := in
		bad.Role = model.RoleStudent
		_, err := svc.RegisterTeacher(ctx, bad, testTeacherCode)
		if !errors.Is(err, apperror.ErrValidation) {
			t.Errorf("error = %v, want ErrValidation", err)
		}
	})

	t.Run("no configured code rejects everything", func(t *testing.T) {
		store := newFakeStore()
		svc, _ := newTestAuthService(t, store)
		svc.teacherCode = ""

		_, err := svc.RegisterTeacher(ctx, in, "")
		if !errors.Is(err, apperror.ErrForbidden) {
			t.Errorf("error = %v, want ErrForbidden", err)
		}
	})
}

// =========================================================================
// LOGIN / TOKEN TESTS
// =========================================================================

func TestLogin_IssuesTokenForUsername(t *testing.T) {
	store := newFakeStore()
	svc, ts := newTestAuthService(t, store)
	registerStudent(t, svc, "alice", "a@x.com", "pw")

	res, err := svc.Login(context.Background(), "alice", "pw")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if res.Token == "" {
		t.Fatal("Login() returned empty token")
	}

	subject, err := ts.Verify(res.Token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if subject != "alice" {
		t.Errorf("subject = %q, want %q", subject, "alice")
	}
}

func TestLogin_BadCredentialsLookTheSame(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestAuthService(t, store)
	registerStudent(t, svc, "alice", "a@x.com", "pw")

	_, wrongPw := svc.Login(context.Background(), "alice", "nope")
	_, noUser := svc.Login(context.Background(), "mallory", "pw")

	for name, err := range map[string]error{"wrong password": wrongPw, "unknown user": noUser} {
		if !errors.Is(err, apperror.ErrUnauthenticated) {
			t.Errorf("%s: error = %v, want ErrUnauthenticated", name, err)
		}
	}
	if wrongPw.Error() != noUser.Error() {
		t.Errorf("error messages differ: %q vs %q", wrongPw, noUser)
	}
}

func TestAuthenticate_StoreFailureIsNotUnauthenticated(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestAuthService(t, store)
	store.lookupErr = errors.New("connection reset")

	_, err := svc.Authenticate(context.Background(), "alice", "pw")
	if err == nil || errors.Is(err, apperror.ErrUnauthenticated) {
		t.Errorf("error = %v, want a non-auth internal error", err)
	}
}

// =========================================================================
// CurrentUser / RequireRole TESTS
// =========================================================================

func TestCurrentUser_ResolvesTokenSubject(t *testing.T) {
	store := newFakeStore()
	svc, ts := newTestAuthService(t, store)
	alice := registerStudent(t, svc, "alice", "a@x.com", "pw")

	token, _ := ts.Issue("alice")
	u, err := svc.CurrentUser(context.Background(), token)
	if err != nil {
		t.Fatalf("CurrentUser() error = %v", err)
	}
	if u.ID != alice.ID {
		t.Errorf("CurrentUser().ID = %d, want %d", u.ID, alice.ID)
	}
}

func TestCurrentUser_Failures(t *testing.T) {
	store := newFakeStore()
	svc, ts := newTestAuthService(t, store)
	registerStudent(t, svc, "alice", "a@x.com", "pw")

	expired, _ := ts.IssueWithTTL("alice", -time.Minute)
	ghost, _ := ts.Issue("ghost")

	for name, token := range map[string]string{
		"garbage":         "not-a-jwt",
		"expired":         expired,
		"unknown subject": ghost,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.CurrentUser(context.Background(), token)
			if !errors.Is(err, apperror.ErrUnauthenticated) {
				t.Errorf("error = %v, want ErrUnauthenticated", err)
			}
		})
	}
}

func TestCurrentUser_DeletedUserTokenStopsWorking(t *testing.T) {
	store := newFakeStore()
	svc, ts := newTestAuthService(t, store)
	alice := registerStudent(t, svc, "alice", "a@x.com", "pw")
	token, _ := ts.Issue("alice")

	if err := store.DeleteStudent(context.Background(), alice.ID); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.CurrentUser(context.Background(), token); !errors.Is(err, apperror.ErrUnauthenticated) {
		t.Errorf("error = %v, want ErrUnauthenticated", err)
	}
}

func TestRequireRole_ValidTokenWrongRoleIsForbidden(t *testing.T) {
	store := newFakeStore()
	svc, ts := newTestAuthService(t, store)
	registerStudent(t, svc, "alice", "a@x.com", "pw")
	registerTeacher(t, svc, "bob", "b@x.com", "pw")

	studentToken, _ := ts.Issue("alice")
	teacherToken, _ := ts.Issue("bob")
	ctx := context.Background()

	_, err := svc.RequireRole(ctx, studentToken, model.RoleTeacher)
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("student on teacher route: error = %v, want ErrForbidden", err)
	}
	if errors.Is(err, apperror.ErrUnauthenticated) {
		t.Error("student on teacher route must not be Unauthenticated")
	}

	_, err = svc.RequireRole(ctx, teacherToken, model.RoleStudent)
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("teacher on student route: error = %v, want ErrForbidden", err)
	}

	u, err := svc.RequireRole(ctx, teacherToken, model.RoleTeacher)
	if err != nil || u.Username != "bob" {
		t.Errorf("RequireRole(teacher) = %v, %v", u, err)
	}
}

func TestRequireRole_CaseSensitive(t *testing.T) {
	store := newFakeStore()
	svc, ts := newTestAuthService(t, store)
	registerTeacher(t, svc, "bob", "b@x.com", "pw")
	token, _ := ts.Issue("bob")

	if _, err := svc.RequireRole(context.Background(), token, "teacher"); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("lower-case role matched: error = %v", err)
	}
}
