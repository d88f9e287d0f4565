package api

import (
	"net/http"
	"strconv"

	"github.com/SigNoz/ecommerce-rest-api/internal/apperrors"
	"github.com/SigNoz/ecommerce-rest-api/internal/models"
	"github.com/SigNoz/ecommerce-rest-api/internal/services"
	"github.com/shopspring/decimal"
)

type productRequest struct {
	Name        string          `json:"name" validate:"required,max=255"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price" validate:"gte=0"`
	SKU         string          `json:"sku" validate:"max=100"`
	Weight      decimal.Decimal `json:"weight" validate:"gte=0"`
	Dimensions  string          `json:"dimensions" validate:"max=100"`
	Brand       string          `json:"brand" validate:"max=100"`
	IsActive    *bool           `json:"isActive"`
	CategoryIDs []int32         `json:"categoryIds"`
}

// apply copies the request onto p. Categories are replaced only when the
// request lists them.
func (req productRequest) apply(p models.Product) models.Product {
	p.Name = req.Name
	p.Description = req.Description
	p.Price = req.Price
	p.SKU = req.SKU
	p.Weight = req.Weight
	p.Dimensions = req.Dimensions
	p.Brand = req.Brand
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	p.Categories = nil
	if req.CategoryIDs != nil {
		p.Categories = make([]models.Category, 0, len(req.CategoryIDs))
		for _, id := range req.CategoryIDs {
			p.Categories = append(p.Categories, models.Category{ID: id})
		}
	}
	return p
}

// inventoryResponse adds the derived stock figures.
type inventoryResponse struct {
	models.Inventory
	AvailableForSale int  `json:"availableForSale"`
	BelowReorder     bool `json:"belowReorder"`
}

func newInventoryResponse(inv models.Inventory) inventoryResponse {
	return inventoryResponse{
		Inventory:        inv,
		AvailableForSale: inv.AvailableForSale(),
		BelowReorder:     inv.BelowReorder(),
	}
}

// ListProductsHandler handles GET /api/products?name=&category=&minPrice=&maxPrice=
func (a *App) ListProductsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := services.ProductFilter{Name: q.Get("name")}

	if raw := q.Get("category"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			writeError(w, r, apperrors.Validation("Invalid category ID"))
			return
		}
		categoryID := int32(id)
		filter.CategoryID = &categoryID
	}
	var err error
	if filter.MinPrice, err = queryPrice(q.Get("minPrice")); err != nil {
		writeError(w, r, err)
		return
	}
	if filter.MaxPrice, err = queryPrice(q.Get("maxPrice")); err != nil {
		writeError(w, r, err)
		return
	}

	products, err := a.productService.ListProducts(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

// queryPrice parses an optional price bound; empty means unset.
func queryPrice(raw string) (*decimal.Decimal, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, apperrors.Validationf("Invalid price: %s", raw)
	}
	return &d, nil
}

// GetProductHandler handles GET /api/products/{id}
func (a *App) GetProductHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "Invalid product ID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	product, err := a.productService.GetProduct(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// CreateProductHandler handles POST /api/products
func (a *App) CreateProductHandler(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	id, err := a.productService.CreateProduct(r.Context(), req.apply(models.Product{IsActive: true}))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int32{"id": id})
}

// UpdateProductHandler handles PUT /api/products/{id}
func (a *App) UpdateProductHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "Invalid product ID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req productRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	current, err := a.productService.GetProduct(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	product, err := a.productService.UpdateProduct(r.Context(), req.apply(current))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// DeleteProductHandler handles DELETE /api/products/{id}
func (a *App) DeleteProductHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "Invalid product ID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := a.productService.DeleteProduct(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "message", "Product deleted successfully")
}

// GetProductInventoryHandler handles GET /api/products/{id}/inventory
func (a *App) GetProductInventoryHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "Invalid product ID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	inv, err := a.productService.GetProductInventory(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newInventoryResponse(inv))
}

type restockRequest struct {
	Quantity int `json:"quantity"`
}

// RestockHandler handles PUT /api/products/{id}/inventory
func (a *App) RestockHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "Invalid product ID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req restockRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	inv, err := a.productService.Restock(r.Context(), id, req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newInventoryResponse(inv))
}

// LowStockHandler handles GET /api/inventory/low-stock
func (a *App) LowStockHandler(w http.ResponseWriter, r *http.Request) {
	rows, err := a.productService.LowStock(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]inventoryResponse, 0, len(rows))
	for _, inv := range rows {
		out = append(out, newInventoryResponse(inv))
	}
	writeJSON(w, http.StatusOK, out)
}

type reviewRequest struct {
	Rating  int    `json:"rating"`
	Title   string `json:"title" validate:"max=200"`
	Comment string `json:"comment" validate:"max=2000"`
}

// ListReviewsHandler handles GET /api/products/{id}/reviews
func (a *App) ListReviewsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "Invalid product ID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	reviews, err := a.reviewService.ListReviews(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reviews)
}

// CreateReviewHandler handles POST /api/products/{id}/reviews
func (a *App) CreateReviewHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "Invalid product ID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req reviewRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := a.currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	reviewID, err := a.reviewService.AddReview(r.Context(), user.ID, id, req.Rating, req.Title, req.Comment)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int32{"id": reviewID})
}

// RatingSummaryHandler handles GET /api/products/{id}/rating
func (a *App) RatingSummaryHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "Invalid product ID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	summary, err := a.reviewService.RatingSummary(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

type categoryRequest struct {
	Name             string `json:"name" validate:"required,max=100"`
	Description      string `json:"description"`
	ParentCategoryID *int32 `json:"parentCategoryId" validate:"omitempty,gt=0"`
}

// ListCategoriesHandler handles GET /api/categories, optionally filtered by ?name=
func (a *App) ListCategoriesHandler(w http.ResponseWriter, r *http.Request) {
	var (
		categories []models.Category
		err        error
	)
	if name := r.URL.Query().Get("name"); name != "" {
		categories, err = a.categoryService.SearchCategories(r.Context(), name)
	} else {
		categories, err = a.categoryService.ListCategories(r.Context())
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

// GetCategoryHandler handles GET /api/categories/{id}
func (a *App) GetCategoryHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "Invalid category ID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	category, err := a.categoryService.GetCategory(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, category)
}

// CreateCategoryHandler handles POST /api/categories
func (a *App) CreateCategoryHandler(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	id, err := a.categoryService.CreateCategory(r.Context(), models.Category{
		Name:             req.Name,
		Description:      req.Description,
		ParentCategoryID: req.ParentCategoryID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int32{"id": id})
}

// UpdateCategoryHandler handles PUT /api/categories/{id}
func (a *App) UpdateCategoryHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "Invalid category ID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req categoryRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	category, err := a.categoryService.UpdateCategory(r.Context(), models.Category{
		ID:               id,
		Name:             req.Name,
		Description:      req.Description,
		ParentCategoryID: req.ParentCategoryID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, category)
}

// DeleteCategoryHandler handles DELETE /api/categories/{id}
func (a *App) DeleteCategoryHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "Invalid category ID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := a.categoryService.DeleteCategory(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "message", "Category deleted successfully")
}
