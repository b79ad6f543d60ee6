package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/chnghia/atomic-inference-boilerplate/internal/config"
	appErr "github.com/chnghia/atomic-inference-boilerplate/internal/pkg/errors"
	"github.com/chnghia/atomic-inference-boilerplate/internal/pkg/jwt"
	"github.com/chnghia/atomic-inference-boilerplate/internal/pkg/password"
)

const defaultTokenSubject = "api"

type Token struct {
	Token     string    `json:"token"`
	Subject   string    `json:"subject"`
	ExpiresAt time.Time `json:"expires_at"`
}

type AuthService struct {
	cfg config.AuthConfig
	ttl time.Duration
}

func NewAuthService(cfg config.AuthConfig) *AuthService {
	ttl := time.Duration(cfg.JWTTTLHours) * time.Hour
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &AuthService{cfg: cfg, ttl: ttl}
}

// Issue signs a token for subject without any credential check. It is
// meant for operators holding the secret.
func (s *AuthService) Issue(subject string) (*Token, error) {
	if s.cfg.JWTSecret == "" {
		return nil, fmt.Errorf("%w: jwt secret not configured", appErr.ErrInvalid)
	}
	subject = strings.TrimSpace(subject)
	if subject == "" {
		subject = defaultTokenSubject
	}
	expires := time.Now().Add(s.ttl)
	tok, err := jwt.GenerateToken(subject, []byte(s.cfg.JWTSecret), s.ttl)
	if err != nil {
		return nil, err
	}
	return &Token{Token: tok, Subject: subject, ExpiresAt: expires}, nil
}

// Exchange trades a valid API key for a short lived token.
func (s *AuthService) Exchange(apiKey, subject string) (*Token, error) {
	if s.cfg.APIKeyHash == "" || apiKey == "" {
		return nil, appErr.ErrUnauthorized
	}
	if err := password.Compare(s.cfg.APIKeyHash, apiKey); err != nil {
		return nil, appErr.ErrUnauthorized
	}
	return s.Issue(subject)
}
