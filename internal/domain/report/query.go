package report

import (
	"slices"
	"time"

	"github.com/Strob0t/costreport/internal/domain/provider"
)

// Query is everything a report source needs to build its statements.
type Query struct {
	Mapper provider.Mapper
	Params Params
	Window Window
}

// NewQuery resolves the report window relative to now.
func NewQuery(m provider.Mapper, p Params, now time.Time) Query {
	return Query{Mapper: m, Params: p, Window: ResolveWindow(p.Filter, now)}
}

// GroupBy returns the requested dimensions without the date dimension.
func (q Query) GroupBy() []string { return q.Params.GroupByDims() }

// Limit returns the ranking limit, 0 when unranked.
func (q Query) Limit() int { return q.Params.Filter.Limit }

func (q Query) OrderField() string     { return q.Params.OrderBy.Field }
func (q Query) OrderDirection() string { return q.Params.OrderBy.Direction }

// GroupsByAccount reports whether account is a requested dimension and the
// provider can resolve account aliases.
func (q Query) GroupsByAccount() bool {
	return q.Mapper.AliasColumn() != "" && slices.Contains(q.GroupBy(), AccountDimension)
}

// PreviousPeriod returns a copy of q over the comparison window.
func (q Query) PreviousPeriod() Query {
	p := q
	p.Window = q.Window.Previous()
	return p
}
