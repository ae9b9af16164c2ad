package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/abduss/postmedia/internal/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Service verifies access tokens minted by the account service.
type Service struct {
	cfg     config.AuthConfig
	nowFunc func() time.Time
	parser  *jwt.Parser
}

// NewService creates a Service for the given token settings.
func NewService(cfg config.AuthConfig) *Service {
	s := &Service{
		cfg:     cfg,
		nowFunc: time.Now,
	}
	s.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithAudience(cfg.Audience),
		jwt.WithTimeFunc(func() time.Time { return s.nowFunc() }),
	)
	return s
}

// UserClaims describes the validated identity extracted from an access token.
type UserClaims struct {
	UserID     uuid.UUID
	Email      string
	IsAdmin    bool
	IsVerified bool
	ExpiresAt  time.Time
	IssuedAt   time.Time
}

type accessClaims struct {
	Email      string `json:"email"`
	IsAdmin    bool   `json:"is_admin"`
	IsVerified bool   `json:"is_verified"`
	jwt.RegisteredClaims
}

// IssueAccessToken signs a token for the identity. Used by tooling and tests;
// production tokens come from the account service sharing the same secret.
func (s *Service) IssueAccessToken(claims UserClaims) (string, time.Time, error) {
	now := s.nowFunc()
	expiresAt := now.Add(s.cfg.AccessTokenTTL)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims{
		Email:      claims.Email,
		IsAdmin:    claims.IsAdmin,
		IsVerified: claims.IsVerified,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.UserID.String(),
			Issuer:    s.cfg.Issuer,
			Audience:  jwt.ClaimStrings{s.cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})

	signed, err := token.SignedString([]byte(s.cfg.AccessTokenSecret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, expiresAt, nil
}

// ValidateAccessToken parses and verifies an access token.
func (s *Service) ValidateAccessToken(raw string) (UserClaims, error) {
	var claims accessClaims
	_, err := s.parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return []byte(s.cfg.AccessTokenSecret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return UserClaims{}, ErrTokenExpired
		}
		return UserClaims{}, ErrUnauthorized
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return UserClaims{}, ErrUnauthorized
	}

	result := UserClaims{
		UserID:     userID,
		Email:      claims.Email,
		IsAdmin:    claims.IsAdmin,
		IsVerified: claims.IsVerified,
	}
	if claims.ExpiresAt != nil {
		result.ExpiresAt = claims.ExpiresAt.Time
	}
	if claims.IssuedAt != nil {
		result.IssuedAt = claims.IssuedAt.Time
	}
	return result, nil
}
