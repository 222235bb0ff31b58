package report

import (
	"slices"

	"github.com/shopspring/decimal"
)

// RankedList keeps the rows whose rank is within limit, with rank stripped,
// and folds every other row into a single Other row appended last.
//
// Ranks are computed per date partition, but the Other row is built once for
// the whole input, so overflow rows of different dates share one bucket.
// A row without a total contributes zero.
func RankedList(rows []Row, limit int, groupBy []string) []Row {
	ranked := make([]Row, 0, len(rows))
	var (
		overflow int
		otherSum = decimal.Zero
		count    *decimal.Decimal
	)
	for _, r := range rows {
		if r.Rank <= limit {
			r.Rank = 0
			ranked = append(ranked, r)
			continue
		}
		overflow++
		otherSum = otherSum.Add(r.TotalOrZero())
		if r.Count != nil {
			c := decimal.Zero
			if count != nil {
				c = *count
			}
			c = c.Add(*r.Count)
			count = &c
		}
	}
	if overflow == 0 {
		return ranked
	}

	other := NewOtherRow(latestDate(rows), firstUnits(rows), groupBy, otherSum)
	other.Count = count
	return append(ranked, other)
}

// NewOtherRow builds the Other bucket from named fields: every group-by
// dimension reads "Other", and so does the account alias when accounts are
// grouped.
func NewOtherRow(date, units string, groupBy []string, total decimal.Decimal) Row {
	row := Row{
		Date:   date,
		Units:  units,
		Total:  &total,
		Groups: make([]Group, len(groupBy)),
	}
	for i, dim := range groupBy {
		label := OtherLabel
		row.Groups[i] = Group{Dimension: dim, Value: &label}
	}
	if slices.Contains(groupBy, AccountDimension) {
		alias := OtherLabel
		row.AccountAlias = &alias
	}
	return row
}

func latestDate(rows []Row) string {
	var latest string
	for _, r := range rows {
		if r.Date > latest {
			latest = r.Date
		}
	}
	return latest
}

func firstUnits(rows []Row) string {
	for _, r := range rows {
		if r.Units != "" {
			return r.Units
		}
	}
	return ""
}
