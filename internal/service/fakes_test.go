package service

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"testing"

	"github.com/pravara/school-backend/internal/apperror"
	"github.com/pravara/school-backend/internal/auth"
	"github.com/pravara/school-backend/internal/model"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

// fakeStore is an in-memory stand-in for sqlstore.Store. It implements the
// user, profile and course repositories, so a test can inspect every row a
// service wrote.
type fakeStore struct {
	users    map[int64]*model.User
	profiles map[int64]*model.StudentProfile
	courses  map[int64]*model.Course
	nextID   int64

	// set to a non-nil error to simulate a database failure
	createErr error
	lookupErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    make(map[int64]*model.User),
		profiles: make(map[int64]*model.StudentProfile),
		courses:  make(map[int64]*model.Course),
		nextID:   1,
	}
}

func (f *fakeStore) CreateUser(ctx context.Context, user *model.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	for _, u := range f.users {
		if u.Username == user.Username {
			return apperror.Conflict("username", user.Username)
		}
		if u.Email == user.Email {
			return apperror.Conflict("email", user.Email)
		}
	}

	user.ID = f.nextID
	f.nextID++
	copied := *user
	f.users[user.ID] = &copied

	if user.Role == model.RoleStudent {
		f.profiles[user.ID] = &model.StudentProfile{ID: user.ID, Name: user.Username}
	}
	return nil
}

func (f *fakeStore) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", strconv.FormatInt(id, 10))
	}
	copied := *u
	return &copied, nil
}

func (f *fakeStore) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	for _, u := range f.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", username)
}

func (f *fakeStore) DeleteStudent(ctx context.Context, id int64) error {
	if _, ok := f.users[id]; !ok {
		return apperror.NotFound("user", strconv.FormatInt(id, 10))
	}
	delete(f.profiles, id)
	delete(f.users, id)
	return nil
}

func (f *fakeStore) GetProfile(ctx context.Context, id int64) (*model.StudentProfile, error) {
	p, ok := f.profiles[id]
	if !ok {
		return nil, apperror.NotFound("student", strconv.FormatInt(id, 10))
	}
	copied := *p
	return &copied, nil
}

func (f *fakeStore) UpdateMarks(ctx context.Context, id int64, marks int) (*model.StudentProfile, error) {
	p, ok := f.profiles[id]
	if !ok {
		return nil, apperror.NotFound("student", strconv.FormatInt(id, 10))
	}
	p.Marks = marks
	copied := *p
	return &copied, nil
}

func (f *fakeStore) UpdateAttendance(ctx context.Context, id int64, attendance int) (*model.StudentProfile, error) {
	p, ok := f.profiles[id]
	if !ok {
		return nil, apperror.NotFound("student", strconv.FormatInt(id, 10))
	}
	p.Attendance = attendance
	copied := *p
	return &copied, nil
}

func (f *fakeStore) CreateCourse(ctx context.Context, course *model.Course) error {
	if _, ok := f.courses[course.ID]; ok {
		return apperror.Conflict("course id", strconv.FormatInt(course.ID, 10))
	}
	copied := *course
	f.courses[course.ID] = &copied
	return nil
}

func (f *fakeStore) GetCourseByName(ctx context.Context, name string) (*model.Course, error) {
	for _, c := range f.courses {
		if c.Name == name {
			copied := *c
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("course", name)
}

func (f *fakeStore) ListCourses(ctx context.Context) ([]model.Course, error) {
	out := make([]model.Course, 0, len(f.courses))
	for _, c := range f.courses {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

const testTeacherCode = "let-me-teach"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestAuthService returns an AuthService wired to store with a fast
// bcrypt cost and a short-lived token service.
func newTestAuthService(t *testing.T, store *fakeStore) (*AuthService, *auth.TokenService) {
	t.Helper()

	ts, err := auth.NewTokenService("test-secret-at-least-16-chars!!", "", 0)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	return NewAuthService(store, ts, auth.NewPasswordServiceForTest(), testTeacherCode, discardLogger()), ts
}

// registerStudent registers a student and fails the test on error.
func registerStudent(t *testing.T, svc *AuthService, username, email, password string) *model.User {
	t.Helper()
	u, err := svc.RegisterStudent(context.Background(), RegisterInput{
		Username: username,
		Email:    email,
		Password: password,
	})
	if err != nil {
		t.Fatalf("RegisterStudent(%q) error = %v", username, err)
	}
	return u
}

func registerTeacher(t *testing.T, svc *AuthService, username, email, password string) *model.User {
	t.Helper()
	u, err := svc.RegisterTeacher(context.Background(), RegisterInput{
		Username: username,
		Email:    email,
		Password: password,
	}, testTeacherCode)
	if err != nil {
		t.Fatalf("RegisterTeacher(%q) error = %v", username, err)
	}
	return u
}
