package dao

import (
	"context"
	"fmt"
	"time"

	"github.com/SigNoz/ecommerce-rest-api/internal/db"
	"github.com/SigNoz/ecommerce-rest-api/internal/models"
)

const (
	categoryByIDQuery     = "SELECT * FROM categories WHERE category_id = ?"
	allCategoriesQuery    = "SELECT * FROM categories ORDER BY name"
	categoriesByNameQuery = "SELECT * FROM categories WHERE name LIKE ? ORDER BY name"
	categoryParentQuery   = "SELECT parent_category_id FROM categories WHERE category_id = ?"
	insertCategoryQuery   = "INSERT INTO categories (name, description, parent_category_id) VALUES (?, ?, ?)"
	updateCategoryQuery   = "UPDATE categories SET name = ?, description = ?, parent_category_id = ?, updated_at = ? WHERE category_id = ?"
	deleteCategoryQuery   = "DELETE FROM categories WHERE category_id = ?"
)

// CategoryDAO persists catalog categories.
type CategoryDAO struct {
	db  *db.DB
	now func() time.Time
}

func NewCategoryDAO(database *db.DB) *CategoryDAO {
	return &CategoryDAO{db: database, now: time.Now}
}

func mapCategory(r *db.Row) (models.Category, error) {
	c := models.Category{
		ID:               r.Int32("category_id"),
		Name:             r.String("name"),
		Description:      r.String("description"),
		ParentCategoryID: r.NullInt32("parent_category_id"),
		CreatedAt:        models.NewTimestamp(r.Time("created_at")),
		UpdatedAt:        models.NewTimestamp(r.Time("updated_at")),
	}
	return c, r.Err()
}

func (d *CategoryDAO) FindByID(ctx context.Context, id int32) (models.Category, bool, error) {
	return db.QueryOne(ctx, d.db, categoryByIDQuery, mapCategory, id)
}

// FindAll returns every category ordered by name.
func (d *CategoryDAO) FindAll(ctx context.Context) ([]models.Category, error) {
	return db.QueryMany(ctx, d.db, allCategoriesQuery, mapCategory)
}

// FindByName matches name anywhere in the category name.
func (d *CategoryDAO) FindByName(ctx context.Context, name string) ([]models.Category, error) {
	return db.QueryMany(ctx, d.db, categoriesByNameQuery, mapCategory, containsPattern(name))
}

// ParentOf returns the parent id of a category, nil for a root or an unknown id.
func (d *CategoryDAO) ParentOf(ctx context.Context, id int32) (*int32, error) {
	parent, _, err := db.QueryOne(ctx, d.db, categoryParentQuery, func(r *db.Row) (*int32, error) {
		p := r.NullInt32("parent_category_id")
		return p, r.Err()
	}, id)
	return parent, err
}

func (d *CategoryDAO) Create(ctx context.Context, c models.Category) (int32, error) {
	id, err := db.ExecuteInsert(ctx, d.db, insertCategoryQuery, c.Name, c.Description, nullableInt32(c.ParentCategoryID))
	if err != nil {
		return 0, fmt.Errorf("create category: %w", err)
	}
	return id, nil
}

func (d *CategoryDAO) Update(ctx context.Context, c models.Category) (bool, error) {
	affected, err := db.ExecuteUpdate(ctx, d.db, updateCategoryQuery,
		c.Name, c.Description, nullableInt32(c.ParentCategoryID), d.now(), c.ID)
	if err != nil {
		return false, fmt.Errorf("update category %d: %w", c.ID, err)
	}
	return affected > 0, nil
}

// Delete removes the category. Product links go with it and child
// categories become roots (schema foreign keys).
func (d *CategoryDAO) Delete(ctx context.Context, id int32) (bool, error) {
	affected, err := db.ExecuteUpdate(ctx, d.db, deleteCategoryQuery, id)
	if err != nil {
		return false, fmt.Errorf("delete category %d: %w", id, err)
	}
	return affected > 0, nil
}
