package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/SigNoz/ecommerce-rest-api/internal/apperrors"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	// Money goes over the wire as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// TimestampLayout is the wire format for civil date-times (ISO-8601, no zone).
const TimestampLayout = "2006-01-02T15:04:05"

// Timestamp is a civil date-time at second resolution.
type Timestamp struct {
	time.Time
}

// NewTimestamp truncates t to seconds.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.Truncate(time.Second)}
}

// Now returns the current time as a Timestamp.
func Now() Timestamp {
	return NewTimestamp(time.Now())
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.Format(TimestampLayout) + `"`), nil
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" || s == "" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := time.ParseInLocation(TimestampLayout, s, time.Local)
	if err != nil {
		parsed, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return fmt.Errorf("invalid timestamp %q", s)
		}
	}
	t.Time = parsed
	return nil
}

// UserType distinguishes shoppers from administrators.
type UserType string

const (
	UserTypeCustomer UserType = "CUSTOMER"
	UserTypeAdmin    UserType = "ADMIN"
)

// ParseUserType accepts either enum value, case-insensitively.
func ParseUserType(s string) (UserType, error) {
	switch UserType(strings.ToUpper(strings.TrimSpace(s))) {
	case UserTypeCustomer:
		return UserTypeCustomer, nil
	case UserTypeAdmin:
		return UserTypeAdmin, nil
	}
	return "", apperrors.Validationf("Invalid user type: %s", s)
}

// User represents a user account
type User struct {
	ID           int32     `json:"userId"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Phone        string    `json:"phone,omitempty"`
	Address      string    `json:"address,omitempty"`
	UserType     UserType  `json:"userType"`
	CreatedAt    Timestamp `json:"createdAt"`
	UpdatedAt    Timestamp `json:"updatedAt"`
	IsActive     bool      `json:"isActive"`
}

func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (u User) IsAdmin() bool {
	return u.UserType == UserTypeAdmin
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword compares password with the stored hash.
func (u User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// Category represents a node of the catalog tree
type Category struct {
	ID               int32     `json:"categoryId"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	ParentCategoryID *int32    `json:"parentCategoryId"`
	CreatedAt        Timestamp `json:"createdAt"`
	UpdatedAt        Timestamp `json:"updatedAt"`
}

func (c Category) IsRoot() bool {
	return c.ParentCategoryID == nil
}

// ValidateParent rejects a parent assignment that would make category id its
// own ancestor. parentOf returns the parent of a category, or nil for a root.
func ValidateParent(id int32, parent *int32, parentOf func(int32) (*int32, error)) error {
	seen := map[int32]bool{}
	for cur := parent; cur != nil; {
		if *cur == id {
			return apperrors.Validation("Category hierarchy cannot contain a cycle")
		}
		if seen[*cur] {
			return apperrors.Validation("Category hierarchy cannot contain a cycle")
		}
		seen[*cur] = true
		next, err := parentOf(*cur)
		if err != nil {
			return err
		}
		cur = next
	}
	return nil
}

// Product represents a product in the catalog
type Product struct {
	ID          int32           `json:"productId"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	SKU         string          `json:"sku"`
	Weight      decimal.Decimal `json:"weight"`
	Dimensions  string          `json:"dimensions"`
	Brand       string          `json:"brand"`
	CreatedAt   Timestamp       `json:"createdAt"`
	UpdatedAt   Timestamp       `json:"updatedAt"`
	IsActive    bool            `json:"isActive"`
	Categories  []Category      `json:"categories"`

	// Stock not held by reservations, read from the inventory row.
	AvailableForSale int `json:"availableForSale"`
}

// SetPrice rejects negative prices.
func (p *Product) SetPrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return apperrors.Invariant("Price cannot be negative")
	}
	p.Price = price
	return nil
}

// CategoryIDs returns the ids of the product's categories in order.
func (p Product) CategoryIDs() []int32 {
	ids := make([]int32, 0, len(p.Categories))
	for _, c := range p.Categories {
		ids = append(ids, c.ID)
	}
	return ids
}

// Review is a rating left by a user on a product
type Review struct {
	ID                 int32     `json:"reviewId"`
	ProductID          int32     `json:"productId"`
	UserID             int32     `json:"userId"`
	Rating             int       `json:"rating"`
	Title              string    `json:"title"`
	Comment            string    `json:"comment"`
	CreatedAt          Timestamp `json:"createdAt"`
	IsVerifiedPurchase bool      `json:"isVerifiedPurchase"`
}

// NewReview validates the rating before building the review.
func NewReview(productID, userID int32, rating int, title, comment string) (Review, error) {
	if err := ValidateRating(rating); err != nil {
		return Review{}, err
	}
	return Review{
		ProductID: productID,
		UserID:    userID,
		Rating:    rating,
		Title:     title,
		Comment:   comment,
		CreatedAt: Now(),
	}, nil
}

func ValidateRating(rating int) error {
	if rating < 1 || rating > 5 {
		return apperrors.Invariant("Rating must be between 1 and 5")
	}
	return nil
}

func (r *Review) SetRating(rating int) error {
	if err := ValidateRating(rating); err != nil {
		return err
	}
	r.Rating = rating
	return nil
}

// Stars renders the rating as filled and empty stars, e.g. ★★★★☆.
func (r Review) Stars() string {
	n := min(max(r.Rating, 0), 5)
	return strings.Repeat("★", n) + strings.Repeat("☆", 5-n)
}

func (r Review) IsPositive() bool { return r.Rating >= 4 }
func (r Review) IsNegative() bool { return r.Rating <= 2 }
func (r Review) IsNeutral() bool  { return r.Rating == 3 }

// RatingSummary aggregates the reviews of one product.
type RatingSummary struct {
	ProductID int32           `json:"productId"`
	Average   decimal.Decimal `json:"averageRating"`
	Count     int             `json:"reviewCount"`
}
