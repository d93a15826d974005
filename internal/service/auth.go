// Package service holds the business rules between handlers and storage.
//
// This file is the authentication part.
//
// AuthService sits between the HTTP handlers and the repository/auth
// utilities:
//
//	AuthHandler (HTTP) → AuthService (business rules) → UserRepository (DB)
//	                   ↘ TokenService (JWT), PasswordService (bcrypt)
//
// KEY RESPONSIBILITIES:
//   - Registration of students and teachers (role rules, teacher code)
//   - Credential checks and token issuance for POST /token
//   - Resolving a bearer token to a user, optionally requiring a role; the
//     auth middleware delegates every role check here
package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pravara/school-backend/internal/apperror"
	"github.com/pravara/school-backend/internal/auth"
	"github.com/pravara/school-backend/internal/model"
	"github.com/pravara/school-backend/internal/repository"
)

// RegisterInput is the registration payload shared by both registration
// endpoints. Role may be left empty to take the endpoint's default.
type RegisterInput struct {
	Username string `json:"username" validate:"required,max=50,alphaspace"`
	Email    string `json:"email"    validate:"required,email,max=100"`
	Password string `json:"password" validate:"required,max=72"`
	Role     string `json:"role"`
}

// AuthService handles the authentication business logic.
//
// DEPENDENCIES (injected via NewAuthService):
//   - users        repository.UserRepository → read/write user records
//   - tokens       *auth.TokenService        → issue/verify JWTs
//   - passwords    *auth.PasswordService     → bcrypt hashing
//   - teacherCode  string                    → shared code required by /register_teacher
//   - logger       *slog.Logger              → structured logging
type AuthService struct {
	users       repository.UserRepository
	tokens      *auth.TokenService
	passwords   *auth.PasswordService
	teacherCode string
	logger      *slog.Logger
}

// compile-time check that *AuthService can back the auth middleware
var _ auth.Resolver = (*AuthService)(nil)

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	teacherCode string,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:       users,
		tokens:      tokens,
		passwords:   passwords,
		teacherCode: teacherCode,
		logger:      logger,
	}
}

// TokenResult is what POST /token returns: the signed token plus the user
// it was issued for.
type TokenResult struct {
	User  *model.User
	Token string
}

// RegisterStudent creates a student account and its zeroed profile.
//
// Checks, in order: input shape, username not taken, role is "student".
func (s *AuthService) RegisterStudent(ctx context.Context, in RegisterInput) (*model.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if in.Role == "" {
		in.Role = model.RoleStudent
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	if err := s.ensureUsernameFree(ctx, in.Username); err != nil {
		return nil, err
	}
	if in.Role != model.RoleStudent {
		return nil, apperror.ValidationFailed("role", "invalid role: only 'student' is allowed")
	}

	return s.createUser(ctx, in)
}

// RegisterTeacher creates a teacher account after checking the shared
// registration code.
//
// Checks, in order: input shape, registration code, username not taken,
// role is "Teacher". A wrong code is Forbidden, not a validation error.
func (s *AuthService) RegisterTeacher(ctx context.Context, in RegisterInput, code string) (*model.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if in.Role == "" {
		in.Role = model.RoleTeacher
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	// Constant-time so response timing says nothing about the code.
	if s.teacherCode == "" || subtle.ConstantTimeCompare([]byte(code), []byte(s.teacherCode)) != 1 {
		s.logger.Warn("teacher registration rejected: bad authorization code",
			slog.String("username", in.Username),
		)
		return nil, apperror.Forbidden("invalid authorization code")
	}

	if err := s.ensureUsernameFree(ctx, in.Username); err != nil {
		return nil, err
	}
	if in.Role != model.RoleTeacher {
		return nil, apperror.ValidationFailed("role", "invalid role: only 'Teacher' is allowed")
	}

	return s.createUser(ctx, in)
}

func (s *AuthService) ensureUsernameFree(ctx context.Context, username string) error {
	_, err := s.users.GetUserByUsername(ctx, username)
	switch {
	case err == nil:
		return apperror.Conflict("username", username)
	case errors.Is(err, apperror.ErrNotFound):
		return nil
	default:
		return fmt.Errorf("service/auth: checking username %q: %w", username, err)
	}
}

// createUser hashes the password and hands the record to the repository,
// which also creates the student profile when the role asks for one.
func (s *AuthService) createUser(ctx context.Context, in RegisterInput) (*model.User, error) {
	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, apperror.ValidationFailed("password", err.Error())
	}

	user := &model.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         in.Role,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		s.logger.Error("failed to create user",
			slog.String("username", in.Username),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("service/auth: creating user %q: %w", in.Username, err)
	}

	s.logger.Info("user registered",
		slog.Int64("userID", user.ID),
		slog.String("username", user.Username),
		slog.String("role", user.Role),
	)
	return user, nil
}

// Authenticate checks a username/password pair. An unknown user and a
// wrong password produce the same error, so callers cannot probe which
// usernames exist.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	invalid := apperror.Unauthenticated(errors.New("invalid username or password"))

	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, invalid
		}
		return nil, fmt.Errorf("service/auth: loading user %q: %w", username, err)
	}

	if !s.passwords.Matches(user.PasswordHash, password) {
		return nil, invalid
	}
	return user, nil
}

// Login authenticates the credentials and issues an access token.
func (s *AuthService) Login(ctx context.Context, username, password string) (*TokenResult, error) {
	user, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(user.Username)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing token for %q: %w", user.Username, err)
	}

	s.logger.Info("token issued",
		slog.Int64("userID", user.ID),
		slog.String("username", user.Username),
	)
	return &TokenResult{User: user, Token: token}, nil
}

// CurrentUser verifies token and loads the user named by its subject.
// A subject that no longer exists (e.g. a deleted student) is treated like
// an invalid token.
func (s *AuthService) CurrentUser(ctx context.Context, token string) (*model.User, error) {
	username, err := s.tokens.Verify(token)
	if err != nil {
		return nil, apperror.Unauthenticated(err)
	}

	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthenticated(fmt.Errorf("token subject %q not found", username))
		}
		return nil, fmt.Errorf("service/auth: resolving token subject: %w", err)
	}
	return user, nil
}

// RequireRole is CurrentUser plus an exact, case-sensitive role match.
// A valid user with another role gets Forbidden, never Unauthenticated.
func (s *AuthService) RequireRole(ctx context.Context, token, role string) (*model.User, error) {
	user, err := s.CurrentUser(ctx, token)
	if err != nil {
		return nil, err
	}
	if user.Role != role {
		return nil, apperror.Forbidden(forbiddenMessage(role))
	}
	return user, nil
}

func forbiddenMessage(role string) string {
	switch role {
	case model.RoleTeacher:
		return "only teachers can perform this action"
	case model.RoleStudent:
		return "only students can perform this action"
	default:
		return "access forbidden"
	}
}
