package handler

import (
	"context"
	"log/slog"
	"mime"
	"net/http"

	"github.com/pravara/school-backend/internal/apperror"
	"github.com/pravara/school-backend/internal/model"
	"github.com/pravara/school-backend/internal/service"
)

// Registrar is the part of service.AuthService the auth endpoints use.
type Registrar interface {
	RegisterStudent(ctx context.Context, in service.RegisterInput) (*model.User, error)
	RegisterTeacher(ctx context.Context, in service.RegisterInput, code string) (*model.User, error)
	Login(ctx context.Context, username, password string) (*service.TokenResult, error)
}

// AuthHandler serves registration and token issuance.
//
// HANDLER RESPONSIBILITIES:
//   - HandleRegister        → POST /register         (students)
//   - HandleRegisterTeacher → POST /register_teacher (teachers, shared code)
//   - HandleToken           → POST /token            (username/password → bearer token)
type AuthHandler struct {
	auth   Registrar
	logger *slog.Logger
}

func NewAuthHandler(auth Registrar, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

// teacherRegisterRequest is RegisterInput plus the shared registration code.
type teacherRegisterRequest struct {
	service.RegisterInput
	AuthCode string `json:"auth_code"`
}

// TokenResponse follows the OAuth2 access token response shape.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// HandleRegister creates a student account.
//
// HTTP: POST /register
// REQUEST BODY: {"username":"alice","email":"a@x.com","password":"pw","role":"student"}
// RESPONSE: 201 with the created user (no password hash)
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	user, err := h.auth.RegisterStudent(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// HandleRegisterTeacher creates a teacher account when auth_code matches
// the configured teacher registration code.
//
// HTTP: POST /register_teacher
// REQUEST BODY: {"username":"bob","email":"b@x.com","password":"pw","auth_code":"..."}
func (h *AuthHandler) HandleRegisterTeacher(w http.ResponseWriter, r *http.Request) {
	var req teacherRegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	user, err := h.auth.RegisterTeacher(r.Context(), req.RegisterInput, req.AuthCode)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// HandleToken exchanges a username and password for a bearer token.
//
// HTTP: POST /token
//
// Accepts the OAuth2 password-grant form body
// (application/x-www-form-urlencoded, fields username and password) as well
// as a JSON object with the same fields.
func (h *AuthHandler) HandleToken(w http.ResponseWriter, r *http.Request) {
	username, password, err := credentials(w, r)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	res, err := h.auth.Login(r.Context(), username, password)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	writeJSON(w, http.StatusOK, TokenResponse{
		AccessToken: res.Token,
		TokenType:   "bearer",
	})
}

func credentials(w http.ResponseWriter, r *http.Request) (username, password string, err error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "application/json":
		var body struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := decodeJSON(w, r, &body); err != nil {
			return "", "", err
		}
		username, password = body.Username, body.Password
	default:
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := r.ParseForm(); err != nil {
			return "", "", apperror.ValidationFailed("body", "invalid form body")
		}
		username, password = r.PostForm.Get("username"), r.PostForm.Get("password")
	}

	if username == "" {
		return "", "", apperror.ValidationFailed("username", "username is required")
	}
	if password == "" {
		return "", "", apperror.ValidationFailed("password", "password is required")
	}
	return username, password, nil
}
