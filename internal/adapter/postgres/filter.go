package postgres

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Strob0t/costreport/internal/domain"
	"github.com/Strob0t/costreport/internal/domain/provider"
	"github.com/Strob0t/costreport/internal/domain/report"
)

// Filter is a conjunction of SQL predicates written with ? placeholders.
// Placeholders are numbered when the filter is rendered, so filters can be
// composed in any order.
type Filter struct {
	preds []predicate
}

type predicate struct {
	sql  string
	args []any
}

// Raw adds a predicate as is. Each ? outside a string literal consumes one
// argument.
func (f *Filter) Raw(sql string, args ...any) *Filter {
	f.preds = append(f.preds, predicate{sql: sql, args: args})
	return f
}

func (f *Filter) Gte(column string, v any) *Filter { return f.Raw(column+" >= ?", v) }
func (f *Filter) Lt(column string, v any) *Filter  { return f.Raw(column+" < ?", v) }

// ILikeAny matches column case-insensitively against any of values.
func (f *Filter) ILikeAny(column string, values []string) *Filter {
	if len(values) == 0 {
		return f
	}
	parts := make([]string, len(values))
	args := make([]any, len(values))
	for i, v := range values {
		parts[i] = column + " ILIKE ?"
		args[i] = "%" + v + "%"
	}
	sql := parts[0]
	if len(parts) > 1 {
		sql = "(" + strings.Join(parts, " OR ") + ")"
	}
	return f.Raw(sql, args...)
}

// And appends every predicate of other.
func (f *Filter) And(other Filter) *Filter {
	f.preds = append(f.preds, other.preds...)
	return f
}

// Render returns the WHERE body and its arguments. Placeholders start at
// $offset+1. An empty filter renders as TRUE.
func (f Filter) Render(offset int) (string, []any) {
	if len(f.preds) == 0 {
		return "TRUE", nil
	}
	var (
		b    strings.Builder
		args []any
		n    = offset
	)
	for i, p := range f.preds {
		if i > 0 {
			b.WriteString(" AND ")
		}
		n = number(&b, p.sql, n)
		args = append(args, p.args...)
	}
	return b.String(), args
}

// number writes sql with each ? outside single quotes replaced by $n.
func number(b *strings.Builder, sql string, n int) int {
	quoted := false
	for _, r := range sql {
		switch {
		case r == '\'':
			quoted = !quoted
			b.WriteRune(r)
		case r == '?' && !quoted:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteRune(r)
		}
	}
	return n
}

// BuildFilter turns the request parameters into the line-item predicate:
// the window date range, the report type's fixed predicates, the group-by
// value filters and the filter[<dimension>] filters.
func BuildFilter(m provider.Mapper, p report.Params, w report.Window) (Filter, error) {
	var f Filter
	f.Gte(m.DateColumn(), w.Start).Lt(m.DateColumn(), w.Until())
	for _, raw := range m.Filters() {
		f.Raw(raw)
	}
	for _, g := range p.GroupBy {
		if !g.Filtered() {
			continue
		}
		col, ok := m.Dimension(g.Dimension)
		if !ok {
			return Filter{}, fmt.Errorf("group_by %q: %w", g.Dimension, domain.ErrValidation)
		}
		f.ILikeAny(col, g.Values)
	}
	for _, d := range p.Filter.Dimensions {
		if !d.Filtered() {
			continue
		}
		col, ok := m.Dimension(d.Dimension)
		if !ok {
			return Filter{}, fmt.Errorf("filter %q: %w", d.Dimension, domain.ErrValidation)
		}
		f.ILikeAny(col, d.Values)
	}
	return f, nil
}
