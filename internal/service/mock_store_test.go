package service

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Strob0t/costreport/internal/domain/report"
	"github.com/Strob0t/costreport/internal/port/database"
)

// Ensure mockStore implements the report ports at compile time.
var (
	_ database.ReportStore = (*mockStore)(nil)
	_ database.ReportTx    = (*mockStore)(nil)
)

// mockStore is an in-memory ReportStore whose bracket hands out itself as
// the transaction.
type mockStore struct {
	mu sync.Mutex

	rows     []report.Row
	previous []report.Row
	export   []report.ExportRow
	units    string
	hasUnits bool
	total    decimal.Decimal

	// Error hooks, set these to inject failures.
	aggregateErr error
	totalErr     error
	previousErr  error

	// block, when set, holds AggregateRows until it is closed.
	block chan struct{}

	tenants []string
	calls   []string
}

func (m *mockStore) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

func (m *mockStore) called(call string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (m *mockStore) WithTenant(_ context.Context, tenant string, fn func(database.ReportTx) error) error {
	m.mu.Lock()
	m.tenants = append(m.tenants, tenant)
	m.mu.Unlock()
	return fn(m)
}

func (m *mockStore) AggregateRows(_ context.Context, _ report.Query) ([]report.Row, error) {
	if m.block != nil {
		<-m.block
	}
	m.record("aggregate")
	if m.aggregateErr != nil {
		return nil, m.aggregateErr
	}
	return cloneRows(m.rows), nil
}

func (m *mockStore) ExportRows(_ context.Context, _ report.Query) ([]report.ExportRow, error) {
	m.record("export")
	return m.export, nil
}

func (m *mockStore) FirstUnits(_ context.Context, _ report.Query) (string, bool, error) {
	m.record("units")
	return m.units, m.hasUnits, nil
}

func (m *mockStore) Total(_ context.Context, _ report.Query, units string) (report.Total, error) {
	m.record("total")
	if m.totalErr != nil {
		return report.Total{}, m.totalErr
	}
	return report.Total{Value: m.total, Units: units}, nil
}

func (m *mockStore) PreviousRows(_ context.Context, _ report.Query) ([]report.Row, error) {
	m.record("previous")
	if m.previousErr != nil {
		return nil, m.previousErr
	}
	return cloneRows(m.previous), nil
}

func cloneRows(rows []report.Row) []report.Row {
	if rows == nil {
		return nil
	}
	out := make([]report.Row, len(rows))
	copy(out, rows)
	return out
}

func serviceRow(date, service string, total float64, rank int) report.Row {
	t := decimal.NewFromFloat(total)
	return report.Row{
		Date:   date,
		Groups: []report.Group{{Dimension: "service", Value: &service}},
		Units:  "USD",
		Total:  &t,
		Rank:   rank,
	}
}

// memCache is a map-backed cache.Cache.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache { return &memCache{data: make(map[string][]byte)} }

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}
