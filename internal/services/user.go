package services

import (
	"context"
	"fmt"
	"log"

	"github.com/SigNoz/ecommerce-rest-api/internal/apperrors"
	"github.com/SigNoz/ecommerce-rest-api/internal/metrics"
	"github.com/SigNoz/ecommerce-rest-api/internal/models"
	"github.com/SigNoz/ecommerce-rest-api/pkg/validator"
)

// UserService handles user-related operations
type UserService struct {
	users   UserStore
	metrics *metrics.AppMetrics
}

// NewUserService creates a new user service
func NewUserService(users UserStore, m *metrics.AppMetrics) *UserService {
	if m == nil {
		m = metrics.NewNoop()
	}
	return &UserService{users: users, metrics: m}
}

func validateUser(u models.User) error {
	if !validator.IsValidUsername(u.Username) {
		return apperrors.Validation("Invalid username: must be 3-20 alphanumeric characters or underscores")
	}
	if !validator.IsValidEmail(u.Email) {
		return apperrors.Validationf("Invalid email format: %s", u.Email)
	}
	if !validator.IsValidName(u.FirstName) {
		return apperrors.Validationf("First name is invalid: %s", u.FirstName)
	}
	if !validator.IsValidName(u.LastName) {
		return apperrors.Validationf("Last name is invalid: %s", u.LastName)
	}
	if u.Phone != "" && !validator.IsValidPhone(u.Phone) {
		return apperrors.Validationf("Phone number is invalid: %s", u.Phone)
	}
	if u.UserType != "" {
		if _, err := models.ParseUserType(string(u.UserType)); err != nil {
			return err
		}
	}
	return nil
}

// RegisterUser validates u, rejects a taken username or email and stores
// the user with the given password. It returns the new id.
func (s *UserService) RegisterUser(ctx context.Context, u models.User, password string) (int32, error) {
	if err := validateUser(u); err != nil {
		return 0, err
	}
	if u.UserType == "" {
		u.UserType = models.UserTypeCustomer
	}

	if _, taken, err := s.users.FindByUsername(ctx, u.Username); err != nil {
		return 0, fmt.Errorf("failed to check username: %w", err)
	} else if taken {
		return 0, apperrors.Conflict("Username already exists: " + u.Username)
	}
	if _, taken, err := s.users.FindByEmail(ctx, u.Email); err != nil {
		return 0, fmt.Errorf("failed to check email: %w", err)
	} else if taken {
		return 0, apperrors.Conflict("Email already exists: " + u.Email)
	}

	id, err := s.users.Create(ctx, u, password)
	if err != nil {
		return 0, err
	}
	log.Printf("[AUTH] User registered: user_id=%d, username=%s", id, u.Username)
	return id, nil
}

// UpdateUser applies the same rules as registration, checking uniqueness
// only for a username or email that actually changed.
func (s *UserService) UpdateUser(ctx context.Context, u models.User) error {
	if err := validateUser(u); err != nil {
		return err
	}
	current, err := s.GetUser(ctx, u.ID)
	if err != nil {
		return err
	}
	if u.UserType == "" {
		u.UserType = current.UserType
	}

	if u.Username != current.Username {
		if _, taken, err := s.users.FindByUsername(ctx, u.Username); err != nil {
			return fmt.Errorf("failed to check username: %w", err)
		} else if taken {
			return apperrors.Conflict("Username already exists: " + u.Username)
		}
	}
	if u.Email != current.Email {
		if _, taken, err := s.users.FindByEmail(ctx, u.Email); err != nil {
			return fmt.Errorf("failed to check email: %w", err)
		} else if taken {
			return apperrors.Conflict("Email already exists: " + u.Email)
		}
	}

	found, err := s.users.Update(ctx, u)
	if err != nil {
		return err
	}
	if !found {
		return apperrors.NotFound("User not found")
	}
	return nil
}

// AuthenticateUser returns the active user matching the credentials.
func (s *UserService) AuthenticateUser(ctx context.Context, username, password string) (models.User, bool, error) {
	return s.users.Authenticate(ctx, username, password)
}

// GetUser returns a user by ID
func (s *UserService) GetUser(ctx context.Context, id int32) (models.User, error) {
	u, found, err := s.users.FindByID(ctx, id)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to get user: %w", err)
	}
	if !found {
		return models.User{}, apperrors.NotFound("User not found")
	}
	return u, nil
}

// GetUserByUsername returns a user by username
func (s *UserService) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	u, found, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to get user: %w", err)
	}
	if !found {
		return models.User{}, apperrors.NotFound("User not found")
	}
	return u, nil
}

// ListUsers returns all users, newest first.
func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.users.FindAll(ctx)
}

// DeactivateUser keeps the account but blocks its logins.
func (s *UserService) DeactivateUser(ctx context.Context, id int32) error {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if !u.IsActive {
		return nil
	}
	u.IsActive = false
	if _, err := s.users.Update(ctx, u); err != nil {
		return err
	}
	log.Printf("[AUTH] User deactivated: user_id=%d", id)
	return nil
}

// EnsureAdmin creates an active administrator unless the username exists.
func (s *UserService) EnsureAdmin(ctx context.Context, username, password, email string) error {
	if _, found, err := s.users.FindByUsername(ctx, username); err != nil {
		return fmt.Errorf("failed to look up admin: %w", err)
	} else if found {
		return nil
	}
	if password == "" {
		return apperrors.Validation("Admin password is required")
	}
	_, err := s.RegisterUser(ctx, models.User{
		Username:  username,
		Email:     email,
		FirstName: "Store",
		LastName:  "Admin",
		UserType:  models.UserTypeAdmin,
		IsActive:  true,
	}, password)
	return err
}
