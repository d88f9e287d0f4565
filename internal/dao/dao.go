// Package dao holds the per-entity persistence of the shop. Every statement
// is parameterized and runs through the db gateway.
package dao

import (
	"strings"

	"github.com/SigNoz/ecommerce-rest-api/internal/models"
	"github.com/shopspring/decimal"
)

// placeholders returns "?, ?, ?" for n parameters.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// int32Args converts ids into statement arguments.
func int32Args(ids []int32) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a LIKE pattern matching s anywhere, with the
// wildcards in s taken literally.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// nullableTimestamp maps a missing timestamp to SQL NULL.
func nullableTimestamp(t *models.Timestamp) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return t.Time
}

func nullableInt32(n *int32) any {
	if n == nil {
		return nil
	}
	return *n
}

func decimalFromInt(n int) decimal.Decimal {
	return decimal.NewFromInt(int64(n))
}
