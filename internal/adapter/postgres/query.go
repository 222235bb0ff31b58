package postgres

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Strob0t/costreport/internal/domain"
	"github.com/Strob0t/costreport/internal/domain/provider"
	"github.com/Strob0t/costreport/internal/domain/report"
)

// Statement is a rendered SQL query with its positional arguments.
type Statement struct {
	SQL  string
	Args []any
}

// Result column names shared by the builders and the scanners.
const (
	colDate         = report.DateDimension
	colTotal        = "total"
	colUnits        = "units"
	colCount        = "count"
	colAccountAlias = "account_alias"
	colRank         = "rank"
)

// dateExpr annotates each line item with its interval date.
func dateExpr(m provider.Mapper, resolution string) string {
	if resolution == report.ResolutionMonthly {
		return fmt.Sprintf("to_char(date_trunc('month', %s), 'YYYY-MM')", m.DateColumn())
	}
	return fmt.Sprintf("to_char(date_trunc('day', %s), 'YYYY-MM-DD')", m.DateColumn())
}

// fromWhere renders the FROM, JOIN and WHERE clauses for q over window w.
func fromWhere(q report.Query, w report.Window) (string, []any, error) {
	f, err := BuildFilter(q.Mapper, q.Params, w)
	if err != nil {
		return "", nil, err
	}
	where, args := f.Render(0)

	var b strings.Builder
	b.WriteString("FROM ")
	b.WriteString(q.Mapper.QueryTable())
	for _, j := range q.Mapper.Joins() {
		b.WriteString(" ")
		b.WriteString(j)
	}
	b.WriteString(" WHERE ")
	b.WriteString(where)
	return b.String(), args, nil
}

// dimensionSelect returns the projections for the group-by dimensions.
func dimensionSelect(m provider.Mapper, groupBy []string) ([]string, error) {
	out := make([]string, 0, len(groupBy))
	for _, dim := range groupBy {
		col, ok := m.Dimension(dim)
		if !ok {
			return nil, fmt.Errorf("group_by %q: %w", dim, domain.ErrValidation)
		}
		out = append(out, col+" AS "+quote(dim))
	}
	return out, nil
}

// orderExpr resolves the order field to the expression the rank window
// orders by. Ordering by delta ranks by total since the delta is only known
// after the rows are materialized.
func orderExpr(q report.Query) (string, error) {
	m := q.Mapper
	switch field := q.OrderField(); {
	case field == report.OrderTotal || field == report.OrderDelta || field == "":
		return "SUM(" + m.AggregateKey() + ")", nil
	case field == colCount && m.CountColumn() != "":
		return "SUM(" + m.CountColumn() + ")", nil
	case slices.Contains(q.GroupBy(), field):
		col, _ := m.Dimension(field)
		return col, nil
	default:
		for _, e := range m.Extras() {
			if e.Name == field {
				return "SUM(" + e.Column + ")", nil
			}
		}
		return "", fmt.Errorf("order_by %q: %w", field, domain.ErrValidation)
	}
}

func direction(d string) string {
	if d == report.OrderAsc {
		return "ASC"
	}
	return "DESC"
}

// BuildAggregate renders the grouped report query: one row per date and
// group-by combination with the summed total, the units, the account alias
// when accounts are grouped, the rolled-up count and extras. With a limit
// each row is dense-ranked within its date.
func BuildAggregate(q report.Query) (Statement, error) {
	return buildAggregate(q, q.Window, true)
}

// BuildPrevious renders the unranked aggregate of the comparison period.
func BuildPrevious(q report.Query) (Statement, error) {
	return buildAggregate(q, q.Window.Previous(), false)
}

func buildAggregate(q report.Query, w report.Window, ordered bool) (Statement, error) {
	m := q.Mapper
	groupBy := q.GroupBy()
	date := dateExpr(m, q.Window.Resolution)

	dims, err := dimensionSelect(m, groupBy)
	if err != nil {
		return Statement{}, err
	}
	order, err := orderExpr(q)
	if err != nil {
		return Statement{}, err
	}

	cols := make([]string, 0, len(dims)+8)
	cols = append(cols, date+" AS "+quote(colDate))
	cols = append(cols, dims...)
	if q.GroupsByAccount() {
		// Accounts without an alias yield NULL.
		cols = append(cols, "MAX("+m.AliasColumn()+") AS "+quote(colAccountAlias))
	}
	cols = append(cols,
		"SUM("+m.AggregateKey()+") AS "+quote(colTotal),
		"MAX("+m.UnitsKey()+") AS "+quote(colUnits),
	)
	if m.CountColumn() != "" {
		cols = append(cols, "SUM("+m.CountColumn()+") AS "+quote(colCount))
	}
	for _, e := range m.Extras() {
		cols = append(cols, "SUM("+e.Column+") AS "+quote(e.Name))
	}
	ranked := ordered && q.Limit() > 0
	dir := direction(q.OrderDirection())
	if ranked {
		cols = append(cols, fmt.Sprintf("DENSE_RANK() OVER (PARTITION BY %s ORDER BY %s %s) AS %s", date, order, dir, quote(colRank)))
	}

	from, args, err := fromWhere(q, w)
	if err != nil {
		return Statement{}, err
	}

	groups := make([]string, len(groupBy)+1)
	for i := range groups {
		groups[i] = fmt.Sprint(i + 1)
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(cols, ", "))
	b.WriteString(" ")
	b.WriteString(from)
	b.WriteString(" GROUP BY ")
	b.WriteString(strings.Join(groups, ", "))

	if ordered && q.OrderField() != report.OrderDelta {
		b.WriteString(" ORDER BY ")
		b.WriteString(quote(colDate))
		b.WriteString(" DESC, ")
		b.WriteString(quote(q.OrderField()))
		b.WriteString(" ")
		b.WriteString(dir)
		if ranked {
			b.WriteString(", ")
			b.WriteString(quote(colRank))
		}
	}
	return Statement{SQL: b.String(), Args: args}, nil
}

// BuildExport renders the raw line-item query, newest first, projected onto
// date, the group-by dimensions, units and the export columns.
func BuildExport(q report.Query) (Statement, error) {
	m := q.Mapper
	if len(m.ExportColumns()) == 0 {
		return Statement{}, fmt.Errorf("%s %s has no line-item export: %w", m.Provider(), m.ReportType(), domain.ErrValidation)
	}
	dims, err := dimensionSelect(m, q.GroupBy())
	if err != nil {
		return Statement{}, err
	}

	cols := make([]string, 0, len(dims)+len(m.ExportColumns())+2)
	cols = append(cols, dateExpr(m, q.Window.Resolution)+" AS "+quote(colDate))
	cols = append(cols, dims...)
	cols = append(cols, m.UnitsKey()+" AS "+quote(colUnits))
	for _, c := range m.ExportColumns() {
		cols = append(cols, m.Column(c)+" AS "+quote(c))
	}

	from, args, err := fromWhere(q, q.Window)
	if err != nil {
		return Statement{}, err
	}
	return Statement{
		SQL:  "SELECT " + strings.Join(cols, ", ") + " " + from + " ORDER BY " + quote(colDate) + " DESC",
		Args: args,
	}, nil
}

// BuildTotal renders the query sum over the entire filtered set.
func BuildTotal(q report.Query) (Statement, error) {
	m := q.Mapper
	cols := []string{"COALESCE(SUM(" + m.AggregateKey() + "), 0) AS " + quote(colTotal)}
	if m.CountColumn() != "" {
		cols = append(cols, "COALESCE(SUM("+m.CountColumn()+"), 0) AS "+quote(colCount))
	}
	for _, e := range m.Extras() {
		cols = append(cols, "COALESCE(SUM("+e.Column+"), 0) AS "+quote(e.Name))
	}
	from, args, err := fromWhere(q, q.Window)
	if err != nil {
		return Statement{}, err
	}
	return Statement{SQL: "SELECT " + strings.Join(cols, ", ") + " " + from, Args: args}, nil
}

// BuildFirstUnits renders the lookup of the units of the first matching row.
func BuildFirstUnits(q report.Query) (Statement, error) {
	from, args, err := fromWhere(q, q.Window)
	if err != nil {
		return Statement{}, err
	}
	return Statement{
		SQL:  "SELECT " + q.Mapper.UnitsKey() + " AS " + quote(colUnits) + " " + from + " LIMIT 1",
		Args: args,
	}, nil
}
