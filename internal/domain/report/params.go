// Package report holds the cost report data model and the in-memory stages
// of the report pipeline: ranking, nested grouping, deltas and response
// formatting.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/Strob0t/costreport/internal/domain"
)

// Time scope and resolution values.
const (
	UnitsDay   = "day"
	UnitsMonth = "month"

	ResolutionDaily   = "daily"
	ResolutionMonthly = "monthly"

	// DateDimension is always the leading grouping level.
	DateDimension = "date"

	// Wildcard selects every value of a group-by dimension.
	Wildcard = "*"

	OrderAsc  = "asc"
	OrderDesc = "desc"

	OrderTotal = "total"
	OrderDelta = "delta"
)

// GroupBy is one requested grouping dimension with its value filter.
type GroupBy struct {
	Dimension string
	Values    []string
}

// Filtered reports whether the dimension restricts values beyond "*".
func (g GroupBy) Filtered() bool {
	return len(g.Values) > 0 && !slices.Contains(g.Values, Wildcard)
}

// Filter holds the filter[...] request parameters.
type Filter struct {
	TimeScopeUnits string
	TimeScopeValue int
	Resolution     string
	Limit          int
	// Dimensions holds filter[<dimension>] value filters in request order.
	Dimensions []GroupBy
}

// OrderBy is the requested ordering field and direction.
type OrderBy struct {
	Field     string
	Direction string
}

// Params are the validated report request parameters. They are echoed back
// in every response.
type Params struct {
	Filter  Filter
	GroupBy []GroupBy
	OrderBy OrderBy
	Delta   bool
}

// GroupByDims returns the requested group-by dimensions in order. "date" is
// never part of it.
func (p Params) GroupByDims() []string {
	out := make([]string, len(p.GroupBy))
	for i, g := range p.GroupBy {
		out[i] = g.Dimension
	}
	return out
}

// QueryGroupBy prepends the date dimension to the requested dimensions.
func QueryGroupBy(groupBy []string) []string {
	return append([]string{DateDimension}, groupBy...)
}

// Order renders the ordering the way it is echoed in logs: "-total" for
// descending, "total" for ascending.
func (p Params) Order() string {
	if p.OrderBy.Direction == OrderDesc {
		return "-" + p.OrderBy.Field
	}
	return p.OrderBy.Field
}

// Clone returns a deep copy of p.
func (p Params) Clone() Params {
	out := p
	out.GroupBy = cloneGroups(p.GroupBy)
	out.Filter.Dimensions = cloneGroups(p.Filter.Dimensions)
	return out
}

func cloneGroups(in []GroupBy) []GroupBy {
	if in == nil {
		return nil
	}
	out := make([]GroupBy, len(in))
	for i, g := range in {
		out[i] = GroupBy{Dimension: g.Dimension, Values: slices.Clone(g.Values)}
	}
	return out
}

// ParseParams parses a raw query string such as
//
//	filter[time_scope_units]=month&group_by[service]=*&order_by[total]=desc
//
// into Params. The raw string is walked in order because group-by order is
// significant and url.Values loses it. options lists the accepted group-by
// dimensions.
func ParseParams(rawQuery string, options []string) (Params, error) {
	var (
		p         Params
		scopeSet  bool
		resSet    bool
		orderSeen bool
	)

	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		rawKey, rawValue, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			return Params{}, invalid("malformed key %q", rawKey)
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			return Params{}, invalid("malformed value for %s", key)
		}

		section, field, bracketed := splitKey(key)
		switch {
		case section == "filter" && bracketed:
			switch field {
			case "time_scope_units":
				p.Filter.TimeScopeUnits = value
			case "time_scope_value":
				n, err := strconv.Atoi(value)
				if err != nil {
					return Params{}, invalid("filter[time_scope_value] must be an integer")
				}
				p.Filter.TimeScopeValue = n
				scopeSet = true
			case "resolution":
				p.Filter.Resolution = value
				resSet = true
			case "limit":
				n, err := strconv.Atoi(value)
				if err != nil || n < 1 {
					return Params{}, invalid("filter[limit] must be a positive integer")
				}
				p.Filter.Limit = n
			default:
				if !slices.Contains(options, field) {
					return Params{}, invalid("unsupported filter %q", field)
				}
				p.Filter.Dimensions = appendValues(p.Filter.Dimensions, field, value)
			}
		case section == "group_by" && bracketed:
			if !slices.Contains(options, field) {
				return Params{}, invalid("unsupported group_by %q", field)
			}
			p.GroupBy = appendValues(p.GroupBy, field, value)
		case section == "order_by" && bracketed:
			if orderSeen {
				return Params{}, invalid("only one order_by is supported")
			}
			if value != OrderAsc && value != OrderDesc {
				return Params{}, invalid("order_by[%s] must be asc or desc", field)
			}
			p.OrderBy = OrderBy{Field: field, Direction: value}
			orderSeen = true
		case section == "delta" && !bracketed:
			b, err := strconv.ParseBool(value)
			if err != nil {
				return Params{}, invalid("delta must be a boolean")
			}
			p.Delta = b
		default:
			return Params{}, invalid("unsupported parameter %q", key)
		}
	}

	if p.Filter.TimeScopeUnits == "" {
		p.Filter.TimeScopeUnits = UnitsDay
	}
	switch p.Filter.TimeScopeUnits {
	case UnitsDay:
		if !scopeSet {
			p.Filter.TimeScopeValue = -10
		}
		if p.Filter.TimeScopeValue != -10 && p.Filter.TimeScopeValue != -30 {
			return Params{}, invalid("time_scope_value must be -10 or -30 for day scope")
		}
		if !resSet {
			p.Filter.Resolution = ResolutionDaily
		}
	case UnitsMonth:
		if !scopeSet {
			p.Filter.TimeScopeValue = -1
		}
		if p.Filter.TimeScopeValue != -1 && p.Filter.TimeScopeValue != -2 {
			return Params{}, invalid("time_scope_value must be -1 or -2 for month scope")
		}
		if !resSet {
			p.Filter.Resolution = ResolutionMonthly
		}
	default:
		return Params{}, invalid("time_scope_units must be day or month")
	}
	if p.Filter.Resolution != ResolutionDaily && p.Filter.Resolution != ResolutionMonthly {
		return Params{}, invalid("resolution must be daily or monthly")
	}
	if p.Filter.TimeScopeUnits == UnitsDay && p.Filter.Resolution == ResolutionMonthly {
		return Params{}, invalid("monthly resolution requires month scope")
	}

	if !orderSeen {
		p.OrderBy = OrderBy{Field: OrderTotal, Direction: OrderDesc}
	}
	if p.OrderBy.Field == OrderDelta && !p.Delta {
		return Params{}, invalid("order_by[delta] requires delta=true")
	}
	return p, nil
}

func splitKey(key string) (section, field string, bracketed bool) {
	open := strings.IndexByte(key, '[')
	if open < 0 || !strings.HasSuffix(key, "]") {
		return key, "", false
	}
	return key[:open], key[open+1 : len(key)-1], true
}

func appendValues(groups []GroupBy, dim, raw string) []GroupBy {
	var values []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	for i := range groups {
		if groups[i].Dimension == dim {
			groups[i].Values = append(groups[i].Values, values...)
			return groups
		}
	}
	return append(groups, GroupBy{Dimension: dim, Values: values})
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), domain.ErrValidation)
}

// MarshalJSON echoes the parameters in request order.
func (p Params) MarshalJSON() ([]byte, error) {
	var obj object
	obj.add("filter", p.Filter)
	if len(p.GroupBy) > 0 {
		obj.add("group_by", groupObject(p.GroupBy))
	}
	obj.add("order_by", object{{p.OrderBy.Field, p.OrderBy.Direction}})
	if p.Delta {
		obj.add("delta", true)
	}
	return obj.MarshalJSON()
}

// MarshalJSON renders the filter with dimension filters inline.
func (f Filter) MarshalJSON() ([]byte, error) {
	var obj object
	obj.add("time_scope_units", f.TimeScopeUnits)
	obj.add("time_scope_value", f.TimeScopeValue)
	obj.add("resolution", f.Resolution)
	if f.Limit > 0 {
		obj.add("limit", f.Limit)
	}
	for _, d := range f.Dimensions {
		obj.add(d.Dimension, d.Values)
	}
	return obj.MarshalJSON()
}

func groupObject(groups []GroupBy) object {
	obj := make(object, 0, len(groups))
	for _, g := range groups {
		values := g.Values
		if values == nil {
			values = []string{}
		}
		obj.add(g.Dimension, values)
	}
	return obj
}

// object is a JSON object that keeps insertion order.
type object []field

type field struct {
	key   string
	value any
}

func (o *object) add(key string, value any) {
	*o = append(*o, field{key: key, value: value})
}

func (o object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(f.value)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", f.key, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
