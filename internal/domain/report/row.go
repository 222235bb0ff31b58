package report

import (
	"encoding/json"
	"slices"

	"github.com/shopspring/decimal"
)

// OtherLabel names the synthetic bucket that folds rows outside the top N.
const OtherLabel = "Other"

// AccountDimension is the group-by option that also pulls the account alias.
const AccountDimension = "account"

// Group is the value of one group-by dimension. A nil Value is a SQL NULL.
type Group struct {
	Dimension string
	Value     *string
}

// Metric is a named extra aggregate.
type Metric struct {
	Name  string
	Value decimal.Decimal
}

// Row is one aggregated (date, group values) combination.
type Row struct {
	Date         string
	Groups       []Group
	Units        string
	Total        *decimal.Decimal
	Count        *decimal.Decimal
	AccountAlias *string
	Extras       []Metric
	// Rank is the dense rank within the date partition; 0 when unranked.
	// It never leaves the pipeline.
	Rank int

	DeltaValue   *decimal.Decimal
	DeltaPercent *decimal.Decimal
}

// GroupValue returns the value of dim, nil when absent or NULL.
func (r Row) GroupValue(dim string) *string {
	for _, g := range r.Groups {
		if g.Dimension == dim {
			return g.Value
		}
	}
	return nil
}

func (r Row) hasGroup(dim string) bool {
	for _, g := range r.Groups {
		if g.Dimension == dim {
			return true
		}
	}
	return false
}

// TotalOrZero returns the total, treating a missing total as zero.
func (r Row) TotalOrZero() decimal.Decimal {
	if r.Total == nil {
		return decimal.Zero
	}
	return *r.Total
}

// Fields returns the row as ordered output fields. Rank is never included.
func (r Row) Fields() []Field {
	fields := make([]Field, 0, len(r.Groups)+8)
	fields = append(fields, Field{Name: DateDimension, Value: r.Date})
	for _, g := range r.Groups {
		fields = append(fields, Field{Name: g.Dimension, Value: stringOrNil(g.Value)})
	}
	if r.AccountAlias != nil || r.hasGroup(AccountDimension) {
		fields = append(fields, Field{Name: "account_alias", Value: stringOrNil(r.AccountAlias)})
	}
	fields = append(fields,
		Field{Name: "total", Value: decimalOrNil(r.Total)},
		Field{Name: "units", Value: r.Units},
	)
	if r.Count != nil {
		fields = append(fields, Field{Name: "count", Value: decimalOrNil(r.Count)})
	}
	for _, m := range r.Extras {
		fields = append(fields, Field{Name: m.Name, Value: jsonDecimal(m.Value)})
	}
	if r.DeltaValue != nil {
		fields = append(fields,
			Field{Name: "delta_value", Value: decimalOrNil(r.DeltaValue)},
			Field{Name: "delta_percent", Value: decimalOrNil(r.DeltaPercent)},
		)
	}
	return fields
}

// MarshalJSON renders the row as a flat object.
func (r Row) MarshalJSON() ([]byte, error) {
	return fieldsObject(r.Fields()).MarshalJSON()
}

// ExportRow is one raw line item projected onto the export columns.
type ExportRow struct {
	Columns []string
	Values  []any
}

// Get returns the value of column name.
func (e ExportRow) Get(name string) (any, bool) {
	i := slices.Index(e.Columns, name)
	if i < 0 {
		return nil, false
	}
	return e.Values[i], true
}

// Fields returns the export row as ordered output fields.
func (e ExportRow) Fields() []Field {
	fields := make([]Field, len(e.Columns))
	for i, c := range e.Columns {
		fields[i] = Field{Name: c, Value: e.Values[i]}
	}
	return fields
}

// MarshalJSON renders the export row with columns in projection order.
func (e ExportRow) MarshalJSON() ([]byte, error) {
	return fieldsObject(e.Fields()).MarshalJSON()
}

// Total is the query sum over the entire filtered population.
type Total struct {
	Value  decimal.Decimal
	Units  string
	Count  *decimal.Decimal
	Extras []Metric
}

// MarshalJSON renders {"value": ..., "units": ...}; units is omitted for the
// zero total of an empty population.
func (t Total) MarshalJSON() ([]byte, error) {
	var obj object
	obj.add("value", jsonDecimal(t.Value))
	if t.Units != "" {
		obj.add("units", t.Units)
	}
	if t.Count != nil {
		obj.add("count", jsonDecimal(*t.Count))
	}
	for _, m := range t.Extras {
		obj.add(m.Name, jsonDecimal(m.Value))
	}
	return obj.MarshalJSON()
}

// Delta compares the report period with the previous one.
type Delta struct {
	Value   decimal.Decimal
	Percent *decimal.Decimal
}

func (d Delta) MarshalJSON() ([]byte, error) {
	var obj object
	obj.add("value", jsonDecimal(d.Value))
	obj.add("percent", decimalOrNil(d.Percent))
	return obj.MarshalJSON()
}

// Field is a named output value.
type Field struct {
	Name  string
	Value any
}

func fieldsObject(fields []Field) object {
	obj := make(object, len(fields))
	for i, f := range fields {
		obj[i] = field{key: f.Name, value: f.Value}
	}
	return obj
}

// jsonDecimal renders a decimal as a bare JSON number.
type jsonDecimal decimal.Decimal

func (d jsonDecimal) MarshalJSON() ([]byte, error) {
	return []byte(decimal.Decimal(d).String()), nil
}

func (d jsonDecimal) String() string {
	return decimal.Decimal(d).String()
}

func decimalOrNil(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return jsonDecimal(*d)
}

func stringOrNil(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

var _ json.Marshaler = Row{}
