package service

import (
	"context"

	"github.com/shopspring/decimal"

	cfotel "github.com/Strob0t/costreport/internal/adapter/otel"
	"github.com/Strob0t/costreport/internal/domain/report"
	"github.com/Strob0t/costreport/internal/port/database"
)

// QueryHandler executes one report request. All data access happens inside
// a single tenant bracket; shaping happens in memory afterwards.
type QueryHandler struct {
	store  database.ReportStore
	tenant string
	query  report.Query
	isSum  bool
	csv    bool
}

// NewQueryHandler creates a handler for q. isSum selects the aggregated
// report over the raw line-item export; csv selects flat rows over the
// nested structure.
func NewQueryHandler(store database.ReportStore, tenant string, q report.Query, isSum, csv bool) *QueryHandler {
	return &QueryHandler{store: store, tenant: tenant, query: q, isSum: isSum, csv: csv}
}

// ExecuteQuery runs the sum report, or the line-item export when the
// request is not a sum and the provider has export columns.
func (h *QueryHandler) ExecuteQuery(ctx context.Context) (report.Response, error) {
	if h.isSum || len(h.query.Mapper.ExportColumns()) == 0 {
		return h.ExecuteSumQuery(ctx)
	}

	var resp report.Response
	err := h.store.WithTenant(ctx, h.tenant, func(tx database.ReportTx) error {
		qctx, span := cfotel.StartQuerySpan(ctx, "export")
		rows, err := tx.ExportRows(qctx, h.query)
		span.End()
		if err != nil {
			return err
		}

		total, err := h.total(ctx, tx)
		if err != nil {
			return err
		}

		if rows == nil {
			rows = []report.ExportRow{}
		}
		resp = report.FormatResponse(h.query.Params, rows, total, nil)
		return nil
	})
	return resp, err
}

// ExecuteSumQuery runs the aggregated report. The query sum is taken over
// the entire filtered set and deltas are applied before any ranking, so
// neither reflects the Other collapse.
func (h *QueryHandler) ExecuteSumQuery(ctx context.Context) (report.Response, error) {
	q := h.query
	groupBy := q.GroupBy()

	var resp report.Response
	err := h.store.WithTenant(ctx, h.tenant, func(tx database.ReportTx) error {
		qctx, span := cfotel.StartQuerySpan(ctx, "aggregate")
		rows, err := tx.AggregateRows(qctx, q)
		span.End()
		if err != nil {
			return err
		}

		total, err := h.total(ctx, tx)
		if err != nil {
			return err
		}

		var delta *report.Delta
		if q.Params.Delta {
			qctx, span := cfotel.StartQuerySpan(ctx, "previous")
			prevRows, err := tx.PreviousRows(qctx, q)
			span.End()
			if err != nil {
				return err
			}
			prev := report.IndexPrevious(prevRows, groupBy, q.Window.AlignPrevious)
			var d report.Delta
			rows, d = report.ApplyDeltas(rows, groupBy, prev, total, q.Params.OrderBy)
			delta = &d
		}

		resp = report.FormatResponse(q.Params, h.shape(rows), total, delta)
		return nil
	})
	return resp, err
}

// shape produces flat rows for CSV, with a single Other row when ranked,
// and the nested per-date structure otherwise.
func (h *QueryHandler) shape(rows []report.Row) any {
	q := h.query
	if len(rows) == 0 {
		return []report.Row{}
	}
	if h.csv {
		if q.Limit() > 0 {
			rows = report.RankedList(rows, q.Limit(), q.GroupBy())
		}
		return rows
	}
	tree := report.ApplyGroupBy(rows, q.Window.Dates(), q.GroupBy(), q.Limit())
	return report.TransformData(report.QueryGroupBy(q.GroupBy()), 0, tree)
}

// total computes the query sum with the units of the first matching row,
// or {value: 0} when nothing matches.
func (h *QueryHandler) total(ctx context.Context, tx database.ReportTx) (report.Total, error) {
	ctx, span := cfotel.StartQuerySpan(ctx, "total")
	defer span.End()

	units, ok, err := tx.FirstUnits(ctx, h.query)
	if err != nil {
		return report.Total{}, err
	}
	if !ok {
		return report.Total{Value: decimal.Zero}, nil
	}
	return tx.Total(ctx, h.query, units)
}
