package dao

import (
	"context"
	"fmt"
	"time"

	"github.com/SigNoz/ecommerce-rest-api/internal/db"
	"github.com/SigNoz/ecommerce-rest-api/internal/models"
	"github.com/google/uuid"
)

const (
	userByIDQuery       = "SELECT * FROM users WHERE user_id = ?"
	userByUsernameQuery = "SELECT * FROM users WHERE username = ?"
	userByEmailQuery    = "SELECT * FROM users WHERE email = ?"
	allUsersQuery       = "SELECT * FROM users ORDER BY created_at DESC"
	activeUserQuery     = "SELECT * FROM users WHERE username = ? AND is_active = TRUE"
	insertUserQuery     = "INSERT INTO users (username, email, password_hash, first_name, last_name, phone, address, user_type, is_active) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)"
	updateUserQuery     = "UPDATE users SET username = ?, email = ?, first_name = ?, last_name = ?, phone = ?, address = ?, user_type = ?, is_active = ?, updated_at = ? WHERE user_id = ?"
	updatePasswordQuery = "UPDATE users SET password_hash = ?, updated_at = ? WHERE user_id = ?"
	deleteUserQuery     = "DELETE FROM users WHERE user_id = ?"
)

// UserDAO persists users.
type UserDAO struct {
	db  *db.DB
	now func() time.Time
}

func NewUserDAO(database *db.DB) *UserDAO {
	return &UserDAO{db: database, now: time.Now}
}

func mapUser(r *db.Row) (models.User, error) {
	u := models.User{
		ID:           r.Int32("user_id"),
		Username:     r.String("username"),
		Email:        r.String("email"),
		PasswordHash: r.String("password_hash"),
		FirstName:    r.String("first_name"),
		LastName:     r.String("last_name"),
		Phone:        r.String("phone"),
		Address:      r.String("address"),
		UserType:     models.UserType(r.String("user_type")),
		CreatedAt:    models.NewTimestamp(r.Time("created_at")),
		UpdatedAt:    models.NewTimestamp(r.Time("updated_at")),
		IsActive:     r.Bool("is_active"),
	}
	return u, r.Err()
}

func (d *UserDAO) FindByID(ctx context.Context, id int32) (models.User, bool, error) {
	return db.QueryOne(ctx, d.db, userByIDQuery, mapUser, id)
}

func (d *UserDAO) FindByUsername(ctx context.Context, username string) (models.User, bool, error) {
	return db.QueryOne(ctx, d.db, userByUsernameQuery, mapUser, username)
}

func (d *UserDAO) FindByEmail(ctx context.Context, email string) (models.User, bool, error) {
	return db.QueryOne(ctx, d.db, userByEmailQuery, mapUser, email)
}

// FindAll returns every user, newest first.
func (d *UserDAO) FindAll(ctx context.Context) ([]models.User, error) {
	return db.QueryMany(ctx, d.db, allUsersQuery, mapUser)
}

// Create stores u with a bcrypt hash of password and returns the new id.
// An empty password stores the hash of a random value, so the account
// cannot log in until a password is set.
func (d *UserDAO) Create(ctx context.Context, u models.User, password string) (int32, error) {
	if password == "" {
		password = uuid.NewString()
	}
	hash, err := models.HashPassword(password)
	if err != nil {
		return 0, err
	}
	if u.UserType == "" {
		u.UserType = models.UserTypeCustomer
	}
	id, err := db.ExecuteInsert(ctx, d.db, insertUserQuery,
		u.Username, u.Email, hash, u.FirstName, u.LastName, u.Phone, u.Address, string(u.UserType), u.IsActive)
	if err != nil {
		return 0, fmt.Errorf("create user: %w", err)
	}
	return id, nil
}

// Update writes every mutable column of u; false when no row has u.ID.
func (d *UserDAO) Update(ctx context.Context, u models.User) (bool, error) {
	affected, err := db.ExecuteUpdate(ctx, d.db, updateUserQuery,
		u.Username, u.Email, u.FirstName, u.LastName, u.Phone, u.Address, string(u.UserType), u.IsActive,
		d.now(), u.ID)
	if err != nil {
		return false, fmt.Errorf("update user %d: %w", u.ID, err)
	}
	return affected > 0, nil
}

func (d *UserDAO) UpdatePassword(ctx context.Context, id int32, password string) (bool, error) {
	hash, err := models.HashPassword(password)
	if err != nil {
		return false, err
	}
	affected, err := db.ExecuteUpdate(ctx, d.db, updatePasswordQuery, hash, d.now(), id)
	if err != nil {
		return false, fmt.Errorf("update password of user %d: %w", id, err)
	}
	return affected > 0, nil
}

func (d *UserDAO) Delete(ctx context.Context, id int32) (bool, error) {
	affected, err := db.ExecuteUpdate(ctx, d.db, deleteUserQuery, id)
	if err != nil {
		return false, fmt.Errorf("delete user %d: %w", id, err)
	}
	return affected > 0, nil
}

// Authenticate returns the active user with this username whose stored
// hash matches password.
func (d *UserDAO) Authenticate(ctx context.Context, username, password string) (models.User, bool, error) {
	u, found, err := db.QueryOne(ctx, d.db, activeUserQuery, mapUser, username)
	if err != nil || !found {
		return models.User{}, false, err
	}
	if !u.CheckPassword(password) {
		return models.User{}, false, nil
	}
	return u, true, nil
}
