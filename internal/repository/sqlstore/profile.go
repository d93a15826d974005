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

const profileColumns = `id, name, marks, attendance`

// GetProfile returns the student profile with the given id.
func (s *Store) GetProfile(ctx context.Context, id int64) (*model.StudentProfile, error) {
	row := s.conn.QueryRowContext(ctx,
		s.rebind(`SELECT `+profileColumns+` FROM student_profiles WHERE id = ?`), id)

	p, err := scanProfile(row)
	if err != nil {
		return nil, profileErr(err, id, "getting")
	}
	return p, nil
}

// UpdateMarks overwrites a student's marks and returns the updated profile.
func (s *Store) UpdateMarks(ctx context.Context, id int64, marks int) (*model.StudentProfile, error) {
	return s.updateProfileField(ctx, "marks", id, marks)
}

// UpdateAttendance overwrites a student's attendance and returns the
// updated profile.
func (s *Store) UpdateAttendance(ctx context.Context, id int64, attendance int) (*model.StudentProfile, error) {
	return s.updateProfileField(ctx, "attendance", id, attendance)
}

// updateProfileField runs a single UPDATE ... RETURNING, so the write and
// the read-back are one atomic statement. column is one of our own
// constants, never user input.
func (s *Store) updateProfileField(ctx context.Context, column string, id int64, value int) (*model.StudentProfile, error) {
	var p *model.StudentProfile
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			s.rebind(`UPDATE student_profiles SET `+column+` = ? WHERE id = ? RETURNING `+profileColumns),
			value, id,
		)
		var err error
		p, err = scanProfile(row)
		return err
	})
	if err != nil {
		return nil, profileErr(err, id, "updating "+column+" of")
	}
	return p, nil
}

func scanProfile(row *sql.Row) (*model.StudentProfile, error) {
	var p model.StudentProfile
	if err := row.Scan(&p.ID, &p.Name, &p.Marks, &p.Attendance); err != nil {
		return nil, err
	}
	return &p, nil
}

func profileErr(err error, id int64, action string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperror.NotFound("student", strconv.FormatInt(id, 10))
	}
	return fmt.Errorf("sqlstore: %s profile %d: %w", action, id, err)
}
