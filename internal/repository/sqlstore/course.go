package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/pravara/school-backend/internal/apperror"
	"github.com/pravara/school-backend/internal/model"
)

// CreateCourse inserts a course with its caller-chosen id.
// Returns apperror.ErrConflict when a course with that id already exists.
//
// Name uniqueness is a service-level rule (see service.CourseService.Add);
// this method does not check it.
func (s *Store) CreateCourse(ctx context.Context, course *model.Course) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx,
			s.rebind(`SELECT 1 FROM courses WHERE id = ?`), course.ID,
		).Scan(&exists)
		switch {
		case err == nil:
			return apperror.Conflict("course id", strconv.FormatInt(course.ID, 10))
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("sqlstore: checking course %d: %w", course.ID, err)
		}

		_, err = tx.ExecContext(ctx,
			s.rebind(`INSERT INTO courses (id, name, description) VALUES (?, ?, ?)`),
			course.ID, course.Name, course.Description,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return apperror.Conflict("course id", strconv.FormatInt(course.ID, 10))
			}
			return fmt.Errorf("sqlstore: inserting course %d: %w", course.ID, err)
		}
		return nil
	})
}

// GetCourseByName returns the course with exactly this name.
func (s *Store) GetCourseByName(ctx context.Context, name string) (*model.Course, error) {
	var c model.Course
	err := s.conn.QueryRowContext(ctx,
		s.rebind(`SELECT id, name, description FROM courses WHERE name = ? LIMIT 1`), name,
	).Scan(&c.ID, &c.Name, &c.Description)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("course", name)
		}
		return nil, fmt.Errorf("sqlstore: getting course %q: %w", name, err)
	}
	return &c, nil
}

// ListCourses returns every course ordered by id.
//
// ALWAYS CLOSE ROWS:
// sql.Rows holds a connection until it is closed. With SQLite's single
// pooled connection a leaked Rows would block every other query.
func (s *Store) ListCourses(ctx context.Context) ([]model.Course, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT id, name, description FROM courses ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: listing courses: %w", err)
	}
	defer rows.Close()

	// Non-nil so an empty catalog encodes as [] rather than null.
	courses := []model.Course{}
	for rows.Next() {
		var c model.Course
		if err := rows.Scan(&c.ID, &c.Name, &c.Description); err != nil {
			return nil, fmt.Errorf("sqlstore: scanning course: %w", err)
		}
		courses = append(courses, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: iterating courses: %w", err)
	}

	return courses, nil
}
