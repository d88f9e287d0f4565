package dao

import (
	"context"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/SigNoz/ecommerce-rest-api/internal/apperrors"
	"github.com/SigNoz/ecommerce-rest-api/internal/models"
	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	productColumns  = []string{"product_id", "name", "description", "price", "sku", "weight", "dimensions", "brand", "created_at", "updated_at", "is_active", "quantity_available", "reserved_quantity"}
	categoryColumns = []string{"category_id", "name", "description", "parent_category_id", "created_at", "updated_at"}
)

func productRow(rows *sqlmock.Rows, id int64, name, price string, available, reserved any) *sqlmock.Rows {
	return rows.AddRow(id, name, "desc", []byte(price), "SKU-"+name, []byte("1.250"), "10x20x5", "Acme", created, updated, true, available, reserved)
}

func TestProductDAOFindByIDLoadsCategories(t *testing.T) {
	database, mock := newMock(t)
	products := NewProductDAO(database)

	mock.ExpectQuery(productByIDQuery).WithArgs(int32(7)).
		WillReturnRows(productRow(sqlmock.NewRows(productColumns), 7, "Laptop", "999.99", int64(12), int64(2)))
	mock.ExpectQuery(categoriesOfProductQuery).WithArgs(int32(7)).
		WillReturnRows(sqlmock.NewRows(categoryColumns).
			AddRow(int64(1), "Electronics", "", nil, created, updated).
			AddRow(int64(4), "Computers", "", int64(1), created, updated))

	p, found, err := products.FindByID(context.Background(), 7)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Laptop", p.Name)
	assert.Equal(t, "999.99", p.Price.String())
	assert.Equal(t, "1.25", p.Weight.String())
	assert.Equal(t, 10, p.AvailableForSale)
	assert.Equal(t, []int32{1, 4}, p.CategoryIDs())
	assert.True(t, p.Categories[0].IsRoot())
	assert.Equal(t, int32(1), *p.Categories[1].ParentCategoryID)
}

func TestProductDAOFindByIDMissing(t *testing.T) {
	database, mock := newMock(t)
	mock.ExpectQuery(productByIDQuery).WithArgs(int32(8)).WillReturnRows(sqlmock.NewRows(productColumns))

	_, found, err := NewProductDAO(database).FindByID(context.Background(), 8)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestProductDAOFindAllActiveBatchesCategories(t *testing.T) {
	database, mock := newMock(t)
	products := NewProductDAO(database)

	rows := sqlmock.NewRows(productColumns)
	productRow(rows, 2, "Mouse", "25.00", nil, nil)
	productRow(rows, 1, "Desk", "150.00", int64(3), int64(0))
	mock.ExpectQuery(activeProductsQuery).WillReturnRows(rows)
	mock.ExpectQuery(fmt.Sprintf(categoriesOfProductsSQL, "?, ?")).WithArgs(int32(2), int32(1)).
		WillReturnRows(sqlmock.NewRows(append([]string{"owner_id"}, categoryColumns...)).
			AddRow(int64(2), int64(1), "Electronics", "", nil, created, updated))

	list, err := products.FindAllActive(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, []int32{1}, list[0].CategoryIDs())
	assert.Equal(t, 0, list[0].AvailableForSale, "no inventory row")
	assert.NotNil(t, list[1].Categories)
	assert.Empty(t, list[1].Categories)
	assert.Equal(t, 3, list[1].AvailableForSale)
}

func TestProductDAOFinders(t *testing.T) {
	database, mock := newMock(t)
	products := NewProductDAO(database)
	ctx := context.Background()
	low, high := decimal.RequireFromString("10"), decimal.RequireFromString("25.00")

	mock.ExpectQuery(productsByNameQuery).WithArgs(`%100\%%`).WillReturnRows(sqlmock.NewRows(productColumns))
	mock.ExpectQuery(productsByCategoryQuery).WithArgs(int32(3)).WillReturnRows(sqlmock.NewRows(productColumns))
	mock.ExpectQuery(productsByPriceQuery).WithArgs(low, high).WillReturnRows(sqlmock.NewRows(productColumns))

	list, err := products.FindByName(ctx, "100%")
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = products.FindByCategory(ctx, 3)
	require.NoError(t, err)

	_, err = products.FindByPriceRange(ctx, low, high)
	require.NoError(t, err)
}

func TestProductDAOCreate(t *testing.T) {
	database, mock := newMock(t)
	products := NewProductDAO(database)

	p := models.Product{
		Name:       "Laptop",
		Price:      decimal.RequireFromString("999.99"),
		SKU:        "LAP-1",
		Weight:     decimal.RequireFromString("2.5"),
		IsActive:   true,
		Categories: []models.Category{{ID: 1}, {ID: 4}, {ID: 1}},
	}

	mock.ExpectBegin()
	mock.ExpectExec(insertProductQuery).
		WithArgs("Laptop", "", p.Price, "LAP-1", p.Weight, "", "", true).
		WillReturnResult(sqlmock.NewResult(21, 1))
	mock.ExpectExec(insertProductStockQuery).WithArgs(int32(21), models.DefaultReorderLevel).
		WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectExec(insertProductLinkQuery).WithArgs(int32(21), int32(1)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(insertProductLinkQuery).WithArgs(int32(21), int32(4)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	id, err := products.Create(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, int32(21), id)
}

func TestProductDAOCreateRollsBack(t *testing.T) {
	database, mock := newMock(t)
	products := NewProductDAO(database)

	mock.ExpectBegin()
	mock.ExpectExec(insertProductQuery).WillReturnResult(sqlmock.NewResult(21, 1))
	mock.ExpectExec(insertProductStockQuery).WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectExec(insertProductLinkQuery).WithArgs(int32(21), int32(404)).
		WillReturnError(&mysql.MySQLError{Number: 1452, Message: "a foreign key constraint fails"})
	mock.ExpectRollback()

	_, err := products.Create(context.Background(), models.Product{Name: "Laptop", Categories: []models.Category{{ID: 404}}})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestProductDAORejectsNegativePrice(t *testing.T) {
	database, _ := newMock(t)
	_, err := NewProductDAO(database).Create(context.Background(), models.Product{Price: decimal.NewFromInt(-1)})
	assert.True(t, apperrors.IsInvariant(err))
}

func TestProductDAOUpdate(t *testing.T) {
	database, mock := newMock(t)
	products := NewProductDAO(database)
	ctx := context.Background()

	p := models.Product{ID: 7, Name: "Laptop", Price: decimal.NewFromInt(900), Categories: []models.Category{{ID: 2}}}

	mock.ExpectBegin()
	mock.ExpectExec(updateProductQuery).
		WithArgs("Laptop", "", p.Price, "", p.Weight, "", "", false, sqlmock.AnyArg(), int32(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(deleteProductLinksQuery).WithArgs(int32(7)).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(insertProductLinkQuery).WithArgs(int32(7), int32(2)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	found, err := products.Update(ctx, p)
	require.NoError(t, err)
	assert.True(t, found)

	mock.ExpectBegin()
	mock.ExpectExec(updateProductQuery).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	found, err = products.Update(ctx, models.Product{ID: 99, Name: "Ghost"})
	require.NoError(t, err)
	assert.False(t, found)
}

func TestProductDAODelete(t *testing.T) {
	database, mock := newMock(t)
	products := NewProductDAO(database)

	mock.ExpectBegin()
	mock.ExpectExec(deleteProductLinksQuery).WithArgs(int32(7)).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(deleteProductStockQuery).WithArgs(int32(7)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(deleteProductQuery).WithArgs(int32(7)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	deleted, err := products.Delete(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, deleted)
}
