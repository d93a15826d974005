package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pravara/school-backend/internal/apperror"
	"github.com/pravara/school-backend/internal/model"
	"github.com/pravara/school-backend/internal/repository"
)

// StudentService manages student profiles: teachers update marks and
// attendance or delete a student; students read their own profile.
//
// Role checks happen before these methods are called (auth.RequireRole),
// so the methods themselves only enforce data rules.
type StudentService struct {
	users    repository.UserRepository
	profiles repository.ProfileRepository
	logger   *slog.Logger
}

func NewStudentService(users repository.UserRepository, profiles repository.ProfileRepository, logger *slog.Logger) *StudentService {
	return &StudentService{
		users:    users,
		profiles: profiles,
		logger:   logger,
	}
}

// UpdateMarks overwrites the marks of the student with the given id.
// Returns apperror.ErrNotFound if there is no such student profile.
func (s *StudentService) UpdateMarks(ctx context.Context, studentID int64, marks int) (*model.StudentProfile, error) {
	p, err := s.profiles.UpdateMarks(ctx, studentID, marks)
	if err != nil {
		return nil, err
	}

	s.logger.Info("marks updated",
		slog.Int64("studentID", studentID),
		slog.Int("marks", marks),
	)
	return p, nil
}

// UpdateAttendance overwrites the attendance of the student with the given id.
// Returns apperror.ErrNotFound if there is no such student profile.
func (s *StudentService) UpdateAttendance(ctx context.Context, studentID int64, attendance int) (*model.StudentProfile, error) {
	p, err := s.profiles.UpdateAttendance(ctx, studentID, attendance)
	if err != nil {
		return nil, err
	}

	s.logger.Info("attendance updated",
		slog.Int64("studentID", studentID),
		slog.Int("attendance", attendance),
	)
	return p, nil
}

// Profile merges the student's identity with their academic record.
func (s *StudentService) Profile(ctx context.Context, user *model.User) (*model.ProfileView, error) {
	if user == nil {
		return nil, fmt.Errorf("service/student: user must not be nil")
	}
	if !user.IsStudent() {
		return nil, apperror.Forbidden(forbiddenMessage(model.RoleStudent))
	}

	p, err := s.profiles.GetProfile(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	view := model.NewProfileView(user, p)
	return &view, nil
}

// Delete removes a student's profile and account.
// Returns apperror.ErrNotFound if no user has that id.
func (s *StudentService) Delete(ctx context.Context, studentID int64) error {
	if err := s.users.DeleteStudent(ctx, studentID); err != nil {
		return err
	}

	s.logger.Info("student deleted", slog.Int64("studentID", studentID))
	return nil
}
