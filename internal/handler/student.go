package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pravara/school-backend/internal/apperror"
	"github.com/pravara/school-backend/internal/auth"
	"github.com/pravara/school-backend/internal/model"
)

// StudentRecords is implemented by service.StudentService.
type StudentRecords interface {
	UpdateMarks(ctx context.Context, studentID int64, marks int) (*model.StudentProfile, error)
	UpdateAttendance(ctx context.Context, studentID int64, attendance int) (*model.StudentProfile, error)
	Profile(ctx context.Context, user *model.User) (*model.ProfileView, error)
	Delete(ctx context.Context, studentID int64) error
}

// StudentHandler serves the student record endpoints. Role checks happen in
// the auth.RequireRole middleware wrapped around each route.
type StudentHandler struct {
	students StudentRecords
	logger   *slog.Logger
}

func NewStudentHandler(students StudentRecords, logger *slog.Logger) *StudentHandler {
	return &StudentHandler{students: students, logger: logger}
}

// HandleUpdateMarks sets a student's marks.
//
// HTTP: PUT /teacher/update-marks?student_id=3&marks=87
func (h *StudentHandler) HandleUpdateMarks(w http.ResponseWriter, r *http.Request) {
	id, err := queryInt(r, "student_id")
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	marks, err := queryInt(r, "marks")
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	profile, err := h.students.UpdateMarks(r.Context(), id, int(marks))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// HandleUpdateAttendance sets a student's attendance.
//
// HTTP: PUT /attendence?student_id=3&attendence=12
//
// The misspelt path and parameter are part of the public API; the parameter
// is also accepted as "attendance".
func (h *StudentHandler) HandleUpdateAttendance(w http.ResponseWriter, r *http.Request) {
	id, err := queryInt(r, "student_id")
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	attendance, err := queryInt(r, "attendence", "attendance")
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	profile, err := h.students.UpdateAttendance(r.Context(), id, int(attendance))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// HandleProfile returns the calling student's identity and record.
//
// HTTP: GET /student/profile
func (h *StudentHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, r, apperror.Unauthenticated(errors.New("no user in request context")))
		return
	}

	view, err := h.students.Profile(r.Context(), user)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleDelete removes a student and their profile.
//
// HTTP: DELETE /students/{id}
//
// URL PARAMETERS:
// chi.URLParam(r, "id") returns the {id} segment of the matched route.
func (h *StudentHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, h.logger, r, apperror.ValidationFailed("id", "id must be an integer"))
		return
	}

	if err := h.students.Delete(r.Context(), id); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Student deleted successfully"})
}
