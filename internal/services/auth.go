package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/SigNoz/ecommerce-rest-api/internal/apperrors"
	"github.com/SigNoz/ecommerce-rest-api/internal/metrics"
	"github.com/SigNoz/ecommerce-rest-api/internal/models"
	"github.com/SigNoz/ecommerce-rest-api/pkg/jwt"
)

// UserSummary is the user part of a login response.
type UserSummary struct {
	ID        int32           `json:"id"`
	Username  string          `json:"username"`
	Email     string          `json:"email"`
	FirstName string          `json:"firstName"`
	LastName  string          `json:"lastName"`
	UserType  models.UserType `json:"userType"`
}

// LoginResult is returned on successful authentication.
type LoginResult struct {
	Token string      `json:"token"`
	User  UserSummary `json:"user"`
}

// AuthService exchanges credentials for bearer tokens.
type AuthService struct {
	users   *UserService
	tokens  *jwt.Service
	metrics *metrics.AppMetrics
}

func NewAuthService(users *UserService, tokens *jwt.Service, m *metrics.AppMetrics) *AuthService {
	if m == nil {
		m = metrics.NewNoop()
	}
	return &AuthService{users: users, tokens: tokens, metrics: m}
}

// Login authenticates the credentials and issues a token for the user.
func (s *AuthService) Login(ctx context.Context, username, password string) (LoginResult, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return LoginResult{}, apperrors.Validation("Username and password are required")
	}

	u, ok, err := s.users.AuthenticateUser(ctx, username, password)
	if err != nil {
		return LoginResult{}, fmt.Errorf("failed to authenticate: %w", err)
	}
	s.metrics.RecordLogin(ctx, ok)
	if !ok {
		log.Printf("[AUTH] Login failed: username=%s", username)
		return LoginResult{}, apperrors.Auth("Invalid username or password")
	}

	token, err := s.tokens.GenerateToken(u.Username)
	if err != nil {
		return LoginResult{}, fmt.Errorf("failed to issue token: %w", err)
	}
	log.Printf("[AUTH] Login succeeded: user_id=%d", u.ID)

	return LoginResult{
		Token: token,
		User: UserSummary{
			ID:        u.ID,
			Username:  u.Username,
			Email:     u.Email,
			FirstName: u.FirstName,
			LastName:  u.LastName,
			UserType:  u.UserType,
		},
	}, nil
}
