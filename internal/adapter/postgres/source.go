package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/Strob0t/costreport/internal/domain"
	"github.com/Strob0t/costreport/internal/domain/report"
	"github.com/Strob0t/costreport/internal/port/database"
)

// SQLSTATE codes of a tenant schema that was never migrated.
const (
	codeUndefinedTable    = "42P01"
	codeInvalidSchemaName = "3F000"
)

// Source implements database.ReportStore over a database/sql handle. Each
// tenant lives in its own schema.
type Source struct {
	db *sql.DB
}

// NewSource creates a Source. db is usually OpenDB(pool).
func NewSource(db *sql.DB) *Source {
	return &Source{db: db}
}

// WithTenant opens a read-only transaction, points search_path at the
// tenant schema and runs fn. The transaction is always rolled back, so
// SET LOCAL never leaks to the pooled connection.
func (s *Source) WithTenant(ctx context.Context, tenant string, fn func(database.ReportTx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return fmt.Errorf("begin tenant %s: %w", tenant, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "SET LOCAL search_path TO "+quote(tenant)+", public"); err != nil {
		return fmt.Errorf("enter tenant %s: %w", tenant, err)
	}
	if err := fn(&reportTx{tx: tx}); err != nil {
		return tenantError(tenant, err)
	}
	return nil
}

// tenantError reports a tenant whose schema lacks the report tables as not
// found. search_path accepts missing schemas, so this surfaces on the first
// query rather than on SET LOCAL.
func tenantError(tenant string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == codeUndefinedTable || pgErr.Code == codeInvalidSchemaName) {
		return fmt.Errorf("tenant %s: %w: %w", tenant, domain.ErrNotFound, err)
	}
	return err
}

type reportTx struct {
	tx *sql.Tx
}

func (t *reportTx) AggregateRows(ctx context.Context, q report.Query) ([]report.Row, error) {
	st, err := BuildAggregate(q)
	if err != nil {
		return nil, err
	}
	rows, err := t.queryRows(ctx, st, q)
	if err != nil {
		return nil, fmt.Errorf("aggregate %s %s: %w", q.Mapper.Provider(), q.Mapper.ReportType(), err)
	}
	return rows, nil
}

func (t *reportTx) PreviousRows(ctx context.Context, q report.Query) ([]report.Row, error) {
	st, err := BuildPrevious(q)
	if err != nil {
		return nil, err
	}
	rows, err := t.queryRows(ctx, st, q)
	if err != nil {
		return nil, fmt.Errorf("previous %s %s: %w", q.Mapper.Provider(), q.Mapper.ReportType(), err)
	}
	return rows, nil
}

func (t *reportTx) queryRows(ctx context.Context, st Statement, q report.Query) ([]report.Row, error) {
	rs, err := t.tx.QueryContext(ctx, st.SQL, st.Args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rs.Close() }()

	cols, err := rs.Columns()
	if err != nil {
		return nil, err
	}
	groupBy := q.GroupBy()

	var out []report.Row
	for rs.Next() {
		r, err := scanRow(rs, cols, groupBy)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rs.Err()
}

// scanRow reads one aggregate row. Columns are matched by name: date,
// units and rank are fixed, group-by dimensions and account_alias are
// nullable text, everything else is a summed metric.
func scanRow(rs *sql.Rows, cols, groupBy []string) (report.Row, error) {
	var (
		date  string
		units sql.NullString
		rank  sql.NullInt64
		alias sql.NullString
	)
	texts := make(map[string]*sql.NullString, len(groupBy))
	nums := make(map[string]*decimal.NullDecimal)
	dest := make([]any, len(cols))
	for i, c := range cols {
		switch {
		case c == colDate:
			dest[i] = &date
		case c == colUnits:
			dest[i] = &units
		case c == colRank:
			dest[i] = &rank
		case c == colAccountAlias:
			dest[i] = &alias
		case slices.Contains(groupBy, c):
			v := new(sql.NullString)
			texts[c] = v
			dest[i] = v
		default:
			v := new(decimal.NullDecimal)
			nums[c] = v
			dest[i] = v
		}
	}
	if err := rs.Scan(dest...); err != nil {
		return report.Row{}, fmt.Errorf("scan row: %w", err)
	}

	r := report.Row{Date: date, Units: units.String, Rank: int(rank.Int64)}
	for _, dim := range groupBy {
		g := report.Group{Dimension: dim}
		if v := texts[dim]; v != nil && v.Valid {
			s := v.String
			g.Value = &s
		}
		r.Groups = append(r.Groups, g)
	}
	if alias.Valid {
		s := alias.String
		r.AccountAlias = &s
	}
	for _, c := range cols {
		v, ok := nums[c]
		if !ok {
			continue
		}
		switch c {
		case colTotal:
			r.Total = nullDecimal(v)
		case colCount:
			r.Count = nullDecimal(v)
		default:
			if v.Valid {
				r.Extras = append(r.Extras, report.Metric{Name: c, Value: v.Decimal})
			}
		}
	}
	return r, nil
}

func (t *reportTx) ExportRows(ctx context.Context, q report.Query) ([]report.ExportRow, error) {
	st, err := BuildExport(q)
	if err != nil {
		return nil, err
	}
	rs, err := t.tx.QueryContext(ctx, st.SQL, st.Args...)
	if err != nil {
		return nil, fmt.Errorf("export %s %s: %w", q.Mapper.Provider(), q.Mapper.ReportType(), err)
	}
	defer func() { _ = rs.Close() }()

	cols, err := rs.Columns()
	if err != nil {
		return nil, err
	}
	var out []report.ExportRow
	for rs.Next() {
		values := make([]any, len(cols))
		dest := make([]any, len(cols))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rs.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan export row: %w", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		out = append(out, report.ExportRow{Columns: cols, Values: values})
	}
	return out, rs.Err()
}

func (t *reportTx) FirstUnits(ctx context.Context, q report.Query) (string, bool, error) {
	st, err := BuildFirstUnits(q)
	if err != nil {
		return "", false, err
	}
	var units sql.NullString
	err = t.tx.QueryRowContext(ctx, st.SQL, st.Args...).Scan(&units)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("first units: %w", err)
	}
	return units.String, true, nil
}

func (t *reportTx) Total(ctx context.Context, q report.Query, units string) (report.Total, error) {
	st, err := BuildTotal(q)
	if err != nil {
		return report.Total{}, err
	}
	rs, err := t.tx.QueryContext(ctx, st.SQL, st.Args...)
	if err != nil {
		return report.Total{}, fmt.Errorf("total: %w", err)
	}
	defer func() { _ = rs.Close() }()

	cols, err := rs.Columns()
	if err != nil {
		return report.Total{}, err
	}
	if !rs.Next() {
		if err := rs.Err(); err != nil {
			return report.Total{}, fmt.Errorf("total: %w", err)
		}
		return report.Total{Value: decimal.Zero, Units: units}, nil
	}
	vals := make([]decimal.NullDecimal, len(cols))
	dest := make([]any, len(cols))
	for i := range vals {
		dest[i] = &vals[i]
	}
	if err := rs.Scan(dest...); err != nil {
		return report.Total{}, fmt.Errorf("scan total: %w", err)
	}

	total := report.Total{Value: decimal.Zero, Units: units}
	for i, c := range cols {
		switch c {
		case colTotal:
			if vals[i].Valid {
				total.Value = vals[i].Decimal
			}
		case colCount:
			total.Count = nullDecimal(&vals[i])
		default:
			total.Extras = append(total.Extras, report.Metric{Name: c, Value: vals[i].Decimal})
		}
	}
	return total, nil
}

var _ database.ReportStore = (*Source)(nil)
