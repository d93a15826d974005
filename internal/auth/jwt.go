// Package auth provides bearer-token issuance and verification, password
// hashing, and the HTTP middleware that gates routes by role.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. A user registers (POST /register or /register_teacher); the password
//     is stored as a bcrypt hash.
//  2. The user exchanges username + password for a JWT at POST /token.
//  3. Every protected request carries `Authorization: Bearer <jwt>`.
//  4. Middleware verifies the token, resolves the username to a user record
//     and checks that user's role before the handler runs.
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: algorithm + token type → {"alg":"HS256","typ":"JWT"}
//	- Payload: claims → {"sub":"alice","exp":1234567890,"iss":"school-backend",...}
//	- Signature: HMAC-SHA256(header+"."+payload, secretKey)
//
// The signature is checked with the process-wide secret only; there is no
// key list, so rotating the secret invalidates every outstanding token.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/xid"

	"github.com/pravara/school-backend/internal/apperror"
)

// DefaultTokenTTL is how long an access token stays valid after issuance.
const DefaultTokenTTL = 30 * time.Minute

// DefaultIssuer is written to the "iss" claim and required on verification.
const DefaultIssuer = "school-backend"

// Verification failure kinds. Each one wraps apperror.ErrUnauthenticated, so
// the HTTP layer reports every case as the same 401, while tests and logs
// can still tell them apart with errors.Is.
var (
	ErrTokenExpired   = fmt.Errorf("%w: token expired", apperror.ErrUnauthenticated)
	ErrTokenMalformed = fmt.Errorf("%w: token malformed", apperror.ErrUnauthenticated)
	ErrTokenSignature = fmt.Errorf("%w: token signature invalid", apperror.ErrUnauthenticated)
	ErrTokenNoSubject = fmt.Errorf("%w: token has no subject", apperror.ErrUnauthenticated)
	ErrTokenInvalid   = fmt.Errorf("%w: token invalid", apperror.ErrUnauthenticated)
)

// TokenService handles JWT creation and validation.
//
// It holds the HMAC secret key used to sign and verify tokens. The same
// secret must be used for both operations. TokenService is immutable after
// construction and safe for concurrent use.
type TokenService struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewTokenService creates a TokenService with the given secret, issuer and
// default lifetime. An empty issuer falls back to DefaultIssuer and a
// non-positive ttl to DefaultTokenTTL.
//
// The secret should be at least 32 bytes of random data in production.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret, issuer string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if issuer == "" {
		issuer = DefaultIssuer
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), issuer: issuer, ttl: ttl}, nil
}

// TTL reports the default token lifetime.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// claims is the JWT payload. It embeds jwt.RegisteredClaims which includes
// standard fields like Issuer, Subject, ExpiresAt, IssuedAt.
//
// "sub" (Subject) carries the username.
type claims struct {
	jwt.RegisteredClaims
}

// Issue creates and signs a new access token for subject with the default TTL.
func (s *TokenService) Issue(subject string) (string, error) {
	return s.IssueWithTTL(subject, s.ttl)
}

// IssueWithTTL creates a token that expires ttl after now.
// A negative ttl yields an already-expired token, which tests rely on.
//
// Signing algorithm: HS256 (HMAC-SHA256), symmetric.
func (s *TokenService) IssueWithTTL(subject string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", errors.New("auth: token subject must not be empty")
	}

	now := time.Now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        xid.New().String(),
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    s.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Verify parses and verifies a JWT string and returns its subject.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid (wasn't tampered with)
//   - Token is not expired, and carries an expiry at all
//   - Issuer matches the configured issuer
//   - Algorithm is HS256 (prevents algorithm confusion attacks)
//
// The returned error is always one of the ErrToken* kinds.
func (s *TokenService) Verify(tokenStr string) (string, error) {
	if tokenStr == "" {
		return "", ErrTokenMalformed
	}

	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", classify(err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", ErrTokenInvalid
	}
	if c.Subject == "" {
		return "", ErrTokenNoSubject
	}

	return c.Subject, nil
}

// classify maps jwt library errors onto our failure kinds.
func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrTokenMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrTokenSignature
	default:
		return fmt.Errorf("%w (%v)", ErrTokenInvalid, err)
	}
}
