package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/pravara/school-backend/internal/model"
	"github.com/pravara/school-backend/internal/service"
)

// CourseCatalog is implemented by service.CourseService.
type CourseCatalog interface {
	Add(ctx context.Context, in service.CourseInput) (*model.Course, error)
	List(ctx context.Context) ([]model.Course, error)
}

// CourseHandler serves the course catalog.
type CourseHandler struct {
	courses CourseCatalog
	logger  *slog.Logger
}

func NewCourseHandler(courses CourseCatalog, logger *slog.Logger) *CourseHandler {
	return &CourseHandler{courses: courses, logger: logger}
}

// HandleCreate adds a course. Teachers only; the route is wrapped in
// auth.RequireRole.
//
// HTTP: POST /course
// REQUEST BODY: {"id": 1, "name": "Maths", "description": "Algebra"}
func (h *CourseHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in service.CourseInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	course, err := h.courses.Add(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, course)
}

// HandleList returns every course.
//
// HTTP: GET /courses
func (h *CourseHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	courses, err := h.courses.List(r.Context())
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, courses)
}
