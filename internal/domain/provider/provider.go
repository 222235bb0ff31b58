// Package provider maps report requests onto the line-item tables of each
// billing source (AWS cost and usage, OpenShift usage).
package provider

import (
	"fmt"
	"slices"

	"github.com/Strob0t/costreport/internal/domain"
)

// Provider names accepted in report routes.
const (
	AWS = "aws"
	OCP = "ocp"
)

// Extra is an additional summed metric reported next to total.
type Extra struct {
	Name   string
	Column string
}

// Mapper describes where a report reads its data from and which columns
// feed the aggregate, the units and the optional pre-aggregated count.
type Mapper interface {
	Provider() string
	ReportType() string
	// QueryTable returns the FROM target, including its alias.
	QueryTable() string
	Joins() []string
	DateColumn() string
	AggregateKey() string
	UnitsKey() string
	// AliasColumn returns the account alias column, empty when the
	// provider has no account dimension.
	AliasColumn() string
	// CountColumn returns the already rolled-up count column, empty when
	// the source table carries no counts.
	CountColumn() string
	Dimension(name string) (string, bool)
	GroupByOptions() []string
	// ExportColumns returns the raw columns of the line-item export, nil
	// when the provider only supports sum reports.
	ExportColumns() []string
	// Column qualifies a raw column name with the table alias.
	Column(name string) string
	Filters() []string
	Extras() []Extra
}

// Map is the configuration-backed Mapper implementation.
type Map struct {
	provider      string
	reportType    string
	table         string
	tableAlias    string
	joins         []string
	dateColumn    string
	aggregateKey  string
	unitsKey      string
	aliasColumn   string
	countColumn   string
	dimensions    []dimension
	exportColumns []string
	filters       []string
	extras        []Extra
}

type dimension struct {
	name   string
	column string
}

func (m *Map) Provider() string   { return m.provider }
func (m *Map) ReportType() string { return m.reportType }
func (m *Map) QueryTable() string { return m.table + " " + m.tableAlias }
func (m *Map) Joins() []string    { return m.joins }
func (m *Map) DateColumn() string { return m.dateColumn }

func (m *Map) AggregateKey() string { return m.aggregateKey }
func (m *Map) UnitsKey() string     { return m.unitsKey }
func (m *Map) AliasColumn() string  { return m.aliasColumn }
func (m *Map) CountColumn() string  { return m.countColumn }

func (m *Map) ExportColumns() []string { return m.exportColumns }
func (m *Map) Filters() []string       { return m.filters }
func (m *Map) Extras() []Extra         { return m.extras }

func (m *Map) Column(name string) string { return m.tableAlias + "." + name }

// Dimension returns the column backing a group-by option.
func (m *Map) Dimension(name string) (string, bool) {
	for _, d := range m.dimensions {
		if d.name == name {
			return d.column, true
		}
	}
	return "", false
}

// GroupByOptions lists the accepted group-by dimensions in declaration order.
func (m *Map) GroupByOptions() []string {
	out := make([]string, len(m.dimensions))
	for i, d := range m.dimensions {
		out[i] = d.name
	}
	return out
}

type reportTypes map[string]func() *Map

var registry = map[string]reportTypes{
	AWS: awsReportTypes,
	OCP: ocpReportTypes,
}

// Lookup returns the mapper for a provider and report type.
func Lookup(providerName, reportType string) (Mapper, error) {
	types, ok := registry[providerName]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q: %w", providerName, domain.ErrValidation)
	}
	build, ok := types[reportType]
	if !ok {
		return nil, fmt.Errorf("unknown %s report type %q: %w", providerName, reportType, domain.ErrValidation)
	}
	return build(), nil
}

// ReportTypes lists the report types registered for a provider, sorted.
func ReportTypes(providerName string) []string {
	types := registry[providerName]
	out := make([]string, 0, len(types))
	for name := range types {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}
