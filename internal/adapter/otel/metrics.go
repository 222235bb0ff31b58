package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "costreport"

// Metrics holds the report service metric instruments.
type Metrics struct {
	ReportsServed  metric.Int64Counter
	ReportsFailed  metric.Int64Counter
	CacheHits      metric.Int64Counter
	CacheMisses    metric.Int64Counter
	ReportDuration metric.Float64Histogram
	ReportRows     metric.Int64Histogram
}

// NewMetrics creates all metric instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	return newMetrics(otel.Meter(meterName))
}

func newMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.ReportsServed, err = meter.Int64Counter("costreport.reports.served",
		metric.WithDescription("Number of reports served"))
	if err != nil {
		return nil, err
	}

	m.ReportsFailed, err = meter.Int64Counter("costreport.reports.failed",
		metric.WithDescription("Number of report requests that failed"))
	if err != nil {
		return nil, err
	}

	m.CacheHits, err = meter.Int64Counter("costreport.cache.hits",
		metric.WithDescription("Reports served from cache"))
	if err != nil {
		return nil, err
	}

	m.CacheMisses, err = meter.Int64Counter("costreport.cache.misses",
		metric.WithDescription("Reports computed because the cache missed"))
	if err != nil {
		return nil, err
	}

	m.ReportDuration, err = meter.Float64Histogram("costreport.report.duration_seconds",
		metric.WithDescription("Report computation time in seconds"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	m.ReportRows, err = meter.Int64Histogram("costreport.report.rows",
		metric.WithDescription("Aggregated rows read per report"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
