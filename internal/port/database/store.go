// Package database defines the report data source port (interface).
package database

import (
	"context"

	"github.com/Strob0t/costreport/internal/domain/report"
)

// ReportStore opens tenant-scoped read brackets over the line-item data.
type ReportStore interface {
	// WithTenant runs fn against the schema of tenant. The bracket is
	// released when fn returns, whether or not it failed.
	WithTenant(ctx context.Context, tenant string, fn func(ReportTx) error) error
}

// ReportTx is the data access available inside a tenant bracket.
type ReportTx interface {
	// AggregateRows returns the grouped, annotated and ordered rows of q.
	AggregateRows(ctx context.Context, q report.Query) ([]report.Row, error)
	// ExportRows returns the raw line items of q projected onto the
	// mapper's export columns, newest first.
	ExportRows(ctx context.Context, q report.Query) ([]report.ExportRow, error)
	// FirstUnits returns the units of the first row matching q; ok is false
	// when the filtered set is empty.
	FirstUnits(ctx context.Context, q report.Query) (units string, ok bool, err error)
	// Total sums the entire filtered set of q.
	Total(ctx context.Context, q report.Query, units string) (report.Total, error)
	// PreviousRows returns the aggregate rows of the comparison period,
	// unranked.
	PreviousRows(ctx context.Context, q report.Query) ([]report.Row, error)
}
