package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pravara/school-backend/internal/apperror"
	"github.com/pravara/school-backend/internal/model"
	"github.com/pravara/school-backend/internal/repository"
)

// CourseInput is the payload for adding a course. Lengths follow the
// catalog's column sizes.
type CourseInput struct {
	ID          int64  `json:"id"          validate:"gt=0"`
	Name        string `json:"name"        validate:"required,max=50"`
	Description string `json:"description" validate:"max=50"`
}

// CourseService owns the course catalog rules.
type CourseService struct {
	repo   repository.CourseRepository
	logger *slog.Logger
}

func NewCourseService(repo repository.CourseRepository, logger *slog.Logger) *CourseService {
	return &CourseService{
		repo:   repo,
		logger: logger,
	}
}

// Add validates and stores a new course.
//
// Name uniqueness is checked here, before the insert; the repository
// rejects a duplicate id. Both surface as apperror.ErrConflict.
func (s *CourseService) Add(ctx context.Context, in CourseInput) (*model.Course, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	_, err := s.repo.GetCourseByName(ctx, in.Name)
	switch {
	case err == nil:
		return nil, apperror.Conflict("course name", in.Name)
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, fmt.Errorf("service/course: checking name %q: %w", in.Name, err)
	}

	course := &model.Course{
		ID:          in.ID,
		Name:        in.Name,
		Description: in.Description,
	}
	if err := s.repo.CreateCourse(ctx, course); err != nil {
		if !errors.Is(err, apperror.ErrConflict) {
			s.logger.Error("failed to create course",
				slog.Int64("id", in.ID),
				slog.String("error", err.Error()),
			)
		}
		return nil, err
	}

	s.logger.Info("course added",
		slog.Int64("id", course.ID),
		slog.String("name", course.Name),
	)
	return course, nil
}

// List returns the whole catalog.
func (s *CourseService) List(ctx context.Context) ([]model.Course, error) {
	courses, err := s.repo.ListCourses(ctx)
	if err != nil {
		s.logger.Error("failed to list courses", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing courses: %w", err)
	}
	return courses, nil
}
