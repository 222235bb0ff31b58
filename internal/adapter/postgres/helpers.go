package postgres

import (
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// quote renders name as a quoted SQL identifier.
func quote(name string) string { return pgx.Identifier{name}.Sanitize() }

// nullDecimal converts a nullable numeric column to a decimal pointer, nil
// for SQL NULL.
func nullDecimal(v *decimal.NullDecimal) *decimal.Decimal {
	if !v.Valid {
		return nil
	}
	d := v.Decimal
	return &d
}
