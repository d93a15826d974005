package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/pravara/school-backend/internal/apperror"
	"github.com/pravara/school-backend/internal/model"
	"github.com/pravara/school-backend/internal/repository"
)

// compile-time checks that *Store implements the repository interfaces
var (
	_ repository.UserRepository    = (*Store)(nil)
	_ repository.ProfileRepository = (*Store)(nil)
	_ repository.CourseRepository  = (*Store)(nil)
	_ repository.Pinger            = (*Store)(nil)
)

const userColumns = `id, username, email, password, role`

// CreateUser inserts a user and, for students, the matching profile.
//
// Everything happens in one transaction:
//  1. reject a taken username or email with apperror.Conflict
//  2. INSERT the user, reading the generated id back with RETURNING
//  3. for role "student", INSERT a profile with marks and attendance at 0
//
// If step 3 fails the user row from step 2 is rolled back with it, so a
// student never exists without a profile.
func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var takenUsername, takenEmail string
		err := tx.QueryRowContext(ctx,
			s.rebind(`SELECT username, email FROM users WHERE username = ? OR email = ? LIMIT 1`),
			user.Username, user.Email,
		).Scan(&takenUsername, &takenEmail)
		switch {
		case err == nil:
			if takenUsername == user.Username {
				return apperror.Conflict("username", user.Username)
			}
			return apperror.Conflict("email", user.Email)
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("sqlstore: checking existing user %q: %w", user.Username, err)
		}

		err = tx.QueryRowContext(ctx,
			s.rebind(`INSERT INTO users (username, email, password, role) VALUES (?, ?, ?, ?) RETURNING id`),
			user.Username, user.Email, user.PasswordHash, user.Role,
		).Scan(&user.ID)
		if err != nil {
			if isUniqueViolation(err) {
				return apperror.Conflict("username", user.Username)
			}
			return fmt.Errorf("sqlstore: inserting user %q: %w", user.Username, err)
		}

		if user.Role != model.RoleStudent {
			return nil
		}

		_, err = tx.ExecContext(ctx,
			s.rebind(`INSERT INTO student_profiles (id, name, marks, attendance) VALUES (?, ?, 0, 0)`),
			user.ID, user.Username,
		)
		if err != nil {
			return fmt.Errorf("sqlstore: inserting profile for user %d: %w", user.ID, err)
		}
		return nil
	})
}

// GetUserByID retrieves a user by id.
// Returns apperror.ErrNotFound if no user exists with that id.
func (s *Store) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	row := s.conn.QueryRowContext(ctx,
		s.rebind(`SELECT `+userColumns+` FROM users WHERE id = ?`), id)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("sqlstore: getting user %d: %w", id, err)
	}
	return u, nil
}

// GetUserByUsername retrieves a user by username (exact match).
// Returns apperror.ErrNotFound if no user has that username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	row := s.conn.QueryRowContext(ctx,
		s.rebind(`SELECT `+userColumns+` FROM users WHERE username = ?`), username)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", username)
		}
		return nil, fmt.Errorf("sqlstore: getting user %q: %w", username, err)
	}
	return u, nil
}

// DeleteStudent removes the profile with the given id (if there is one) and
// then the user row, in that order because the profile references the user.
//
// When no user has that id the transaction is rolled back and
// apperror.ErrNotFound is returned, leaving the store untouched.
func (s *Store) DeleteStudent(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			s.rebind(`DELETE FROM student_profiles WHERE id = ?`), id); err != nil {
			return fmt.Errorf("sqlstore: deleting profile %d: %w", id, err)
		}

		result, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM users WHERE id = ?`), id)
		if err != nil {
			return fmt.Errorf("sqlstore: deleting user %d: %w", id, err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlstore: checking delete of user %d: %w", id, err)
		}
		if affected == 0 {
			return apperror.NotFound("student", strconv.FormatInt(id, 10))
		}
		return nil
	})
}

func scanUser(row *sql.Row) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role); err != nil {
		return nil, err
	}
	return &u, nil
}
