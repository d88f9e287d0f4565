package services

import (
	"context"

	"github.com/SigNoz/ecommerce-rest-api/internal/models"
	"github.com/shopspring/decimal"
)

// The persistence the services need. The dao package provides the MySQL
// implementations; tests substitute in-memory ones.

type UserStore interface {
	FindByID(ctx context.Context, id int32) (models.User, bool, error)
	FindByUsername(ctx context.Context, username string) (models.User, bool, error)
	FindByEmail(ctx context.Context, email string) (models.User, bool, error)
	FindAll(ctx context.Context) ([]models.User, error)
	Create(ctx context.Context, u models.User, password string) (int32, error)
	Update(ctx context.Context, u models.User) (bool, error)
	Delete(ctx context.Context, id int32) (bool, error)
	Authenticate(ctx context.Context, username, password string) (models.User, bool, error)
}

type ProductStore interface {
	FindByID(ctx context.Context, id int32) (models.Product, bool, error)
	FindAllActive(ctx context.Context) ([]models.Product, error)
	FindByName(ctx context.Context, name string) ([]models.Product, error)
	FindByCategory(ctx context.Context, categoryID int32) ([]models.Product, error)
	FindByPriceRange(ctx context.Context, low, high decimal.Decimal) ([]models.Product, error)
	Create(ctx context.Context, p models.Product) (int32, error)
	Update(ctx context.Context, p models.Product) (bool, error)
	Delete(ctx context.Context, id int32) (bool, error)
}

type CategoryStore interface {
	FindByID(ctx context.Context, id int32) (models.Category, bool, error)
	FindAll(ctx context.Context) ([]models.Category, error)
	FindByName(ctx context.Context, name string) ([]models.Category, error)
	ParentOf(ctx context.Context, id int32) (*int32, error)
	Create(ctx context.Context, c models.Category) (int32, error)
	Update(ctx context.Context, c models.Category) (bool, error)
	Delete(ctx context.Context, id int32) (bool, error)
}

type InventoryStore interface {
	FindByProductID(ctx context.Context, productID int32) (models.Inventory, bool, error)
	FindBelowReorder(ctx context.Context) ([]models.Inventory, error)
	Increase(ctx context.Context, productID int32, n int) (bool, error)
}

type OrderStore interface {
	Create(ctx context.Context, o models.Order) (int32, error)
	FindByID(ctx context.Context, id int32) (models.Order, bool, error)
	FindByUser(ctx context.Context, userID int32) ([]models.Order, error)
	UpdateStatus(ctx context.Context, prev, next models.Order) error
}

type ReviewStore interface {
	Create(ctx context.Context, r models.Review) (int32, error)
	FindByProduct(ctx context.Context, productID int32) ([]models.Review, error)
	HasPurchased(ctx context.Context, userID, productID int32) (bool, error)
	AverageRating(ctx context.Context, productID int32) (models.RatingSummary, error)
}
