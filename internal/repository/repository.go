package repository

import (
	"context"

	"github.com/pravara/school-backend/internal/model"
)

// UserRepository owns User rows and, through CreateUser/DeleteStudent, the
// StudentProfile rows tied to them.
type UserRepository interface {
	// CreateUser inserts user (PasswordHash already set) and, for a student,
	// its zeroed profile in the same transaction. Sets user.ID.
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	// DeleteStudent removes the profile (if any) and then the user.
	DeleteStudent(ctx context.Context, id int64) error
}

type ProfileRepository interface {
	GetProfile(ctx context.Context, id int64) (*model.StudentProfile, error)
	UpdateMarks(ctx context.Context, id int64, marks int) (*model.StudentProfile, error)
	UpdateAttendance(ctx context.Context, id int64, attendance int) (*model.StudentProfile, error)
}

type CourseRepository interface {
	CreateCourse(ctx context.Context, course *model.Course) error
	GetCourseByName(ctx context.Context, name string) (*model.Course, error)
	ListCourses(ctx context.Context) ([]model.Course, error)
}

// Pinger is satisfied by stores that can report connectivity for /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}
