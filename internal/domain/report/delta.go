package report

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// RowKey identifies a row by date and group values.
func RowKey(date string, r Row, groupBy []string) string {
	var b strings.Builder
	b.WriteString(date)
	for _, dim := range groupBy {
		b.WriteByte(0x1f)
		if v := r.GroupValue(dim); v != nil {
			b.WriteString(*v)
		} else {
			b.WriteByte(0)
		}
	}
	return b.String()
}

// Previous indexes the totals of the comparison period.
type Previous struct {
	ByKey map[string]decimal.Decimal
	Total decimal.Decimal
}

// IndexPrevious keys previous-period rows by their aligned date so they meet
// the rows of the current period. align maps a previous date onto the
// current window.
func IndexPrevious(rows []Row, groupBy []string, align func(string) string) Previous {
	prev := Previous{ByKey: make(map[string]decimal.Decimal, len(rows)), Total: decimal.Zero}
	for _, r := range rows {
		key := RowKey(align(r.Date), r, groupBy)
		prev.ByKey[key] = prev.ByKey[key].Add(r.TotalOrZero())
		prev.Total = prev.Total.Add(r.TotalOrZero())
	}
	return prev
}

// ApplyDeltas annotates each row with delta_value and delta_percent against
// the previous period and returns the delta of the query sum. When ordering
// by delta, rows are sorted by delta percent here since the field does not
// exist in the database. Rows without a comparable percent sort last.
func ApplyDeltas(rows []Row, groupBy []string, prev Previous, sum Total, order OrderBy) ([]Row, Delta) {
	for i := range rows {
		current := rows[i].TotalOrZero()
		previous := prev.ByKey[RowKey(rows[i].Date, rows[i], groupBy)]
		value := current.Sub(previous)
		rows[i].DeltaValue = &value
		rows[i].DeltaPercent = percentDelta(current, previous)
	}

	delta := Delta{
		Value:   sum.Value.Sub(prev.Total),
		Percent: percentDelta(sum.Value, prev.Total),
	}

	if order.Field == OrderDelta {
		desc := order.Direction == OrderDesc
		sort.SliceStable(rows, func(i, j int) bool {
			a, b := rows[i].DeltaPercent, rows[j].DeltaPercent
			switch {
			case a == nil:
				return false
			case b == nil:
				return true
			case desc:
				return a.GreaterThan(*b)
			default:
				return a.LessThan(*b)
			}
		})
	}
	return rows, delta
}

// percentDelta returns (a-b)/b*100, nil when b is zero.
func percentDelta(a, b decimal.Decimal) *decimal.Decimal {
	if b.IsZero() {
		return nil
	}
	p := a.Sub(b).Div(b).Mul(hundred)
	return &p
}
