package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"
)

const minPasswordLen = 8

var (
	// ErrInvalidCredentials is returned when username/password don't match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidPassword is returned when a new password is too short.
	ErrInvalidPassword = errors.New("password must be at least 8 characters")
	// ErrLoginDisabled is returned when no admin password hash is configured.
	ErrLoginDisabled = errors.New("admin login is disabled")
)

// Service authenticates the single admin account and issues JWTs for it.
type Service struct {
	username     string
	passwordHash string
	jwtConfig    *JWTConfig
	now          func() time.Time
}

// NewService creates a new authentication service. An empty passwordHash
// disables Login while still validating tokens minted elsewhere.
func NewService(username, passwordHash string, jwtConfig *JWTConfig) *Service {
	return &Service{
		username:     username,
		passwordHash: passwordHash,
		jwtConfig:    jwtConfig,
		now:          time.Now,
	}
}

// Login validates credentials and returns a JWT token.
func (s *Service) Login(username, password string) (string, error) {
	if s.passwordHash == "" {
		return "", ErrLoginDisabled
	}
	if subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) != 1 {
		return "", ErrInvalidCredentials
	}
	if err := ComparePassword(s.passwordHash, password); err != nil {
		return "", ErrInvalidCredentials
	}

	token, err := GenerateToken(s.jwtConfig, s.username, s.now())
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return token, nil
}

// IssueToken mints a token for the admin without a password check.
func (s *Service) IssueToken() (string, error) {
	return GenerateToken(s.jwtConfig, s.username, s.now())
}

// ValidateToken validates a JWT token and returns the claims.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	return ValidateToken(s.jwtConfig, tokenString)
}
