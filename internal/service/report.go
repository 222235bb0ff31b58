package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/singleflight"

	cfotel "github.com/Strob0t/costreport/internal/adapter/otel"
	"github.com/Strob0t/costreport/internal/domain"
	"github.com/Strob0t/costreport/internal/domain/provider"
	"github.com/Strob0t/costreport/internal/domain/report"
	"github.com/Strob0t/costreport/internal/port/cache"
	"github.com/Strob0t/costreport/internal/port/database"
	"github.com/Strob0t/costreport/internal/workpool"
)

// Content types produced by Render.
const (
	ContentTypeJSON = "application/json"
	ContentTypeCSV  = "text/csv"
)

// Request identifies one report computation.
type Request struct {
	Tenant     string
	Provider   string
	ReportType string
	RawQuery   string
	// IsSum selects the aggregated report; false asks for the raw
	// line-item export where the provider has one.
	IsSum bool
	CSV   bool
}

// Result is an encoded report body.
type Result struct {
	Body        []byte
	ContentType string
	Cached      bool
}

// ReportService validates report requests, runs them against the tenant's
// schema and encodes the response.
type ReportService struct {
	store    database.ReportStore
	cache    cache.Cache
	cacheTTL time.Duration
	metrics  *cfotel.Metrics
	pool     *workpool.Pool
	group    singleflight.Group
	now      func() time.Time
}

// NewReportService creates a new ReportService.
func NewReportService(store database.ReportStore) *ReportService {
	return &ReportService{store: store, now: time.Now}
}

// SetCache enables caching of encoded reports for ttl.
func (s *ReportService) SetCache(c cache.Cache, ttl time.Duration) {
	s.cache = c
	s.cacheTTL = ttl
}

// SetMetrics sets the metric instruments.
func (s *ReportService) SetMetrics(m *cfotel.Metrics) { s.metrics = m }

// SetPool bounds concurrent computations.
func (s *ReportService) SetPool(p *workpool.Pool) { s.pool = p }

// SetClock replaces the time source used to resolve report windows.
func (s *ReportService) SetClock(now func() time.Time) { s.now = now }

// ReportTypes lists the report types of a provider.
func (s *ReportService) ReportTypes(providerName string) ([]string, error) {
	types := provider.ReportTypes(providerName)
	if len(types) == 0 {
		return nil, fmt.Errorf("unknown provider %q: %w", providerName, domain.ErrValidation)
	}
	return types, nil
}

// Prepare validates a request and resolves its query without touching the
// database.
func (s *ReportService) Prepare(req Request) (report.Query, error) {
	m, err := provider.Lookup(req.Provider, req.ReportType)
	if err != nil {
		return report.Query{}, err
	}
	params, err := report.ParseParams(req.RawQuery, m.GroupByOptions())
	if err != nil {
		return report.Query{}, err
	}
	return report.NewQuery(m, params, s.now()), nil
}

// Run computes a report and returns its structured response.
func (s *ReportService) Run(ctx context.Context, req Request) (report.Response, error) {
	q, err := s.Prepare(req)
	if err != nil {
		return report.Response{}, err
	}
	return s.execute(ctx, req, q)
}

// Render computes a report and encodes it as JSON, or CSV when requested.
// Encoded bodies are cached; concurrent identical requests share one
// computation.
func (s *ReportService) Render(ctx context.Context, req Request) (Result, error) {
	q, err := s.Prepare(req)
	if err != nil {
		return Result{}, err
	}

	contentType := ContentTypeJSON
	if req.CSV {
		contentType = ContentTypeCSV
	}

	key := s.cacheKey(req, q)
	if body, ok := s.cached(ctx, key); ok {
		return Result{Body: body, ContentType: contentType, Cached: true}, nil
	}

	// The shared computation outlives any single caller; a caller that gives
	// up returns its context error while the others keep waiting.
	detached := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (any, error) {
		resp, err := s.execute(detached, req, q)
		if err != nil {
			return nil, err
		}
		body, err := encode(resp, req.CSV)
		if err != nil {
			return nil, err
		}
		s.remember(detached, key, body)
		return body, nil
	})
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Result{}, res.Err
		}
		return Result{Body: res.Val.([]byte), ContentType: contentType}, nil
	}
}

func (s *ReportService) execute(ctx context.Context, req Request, q report.Query) (report.Response, error) {
	ctx, span := cfotel.StartReportSpan(ctx, req.Tenant, req.Provider, req.ReportType, req.IsSum)
	defer span.End()

	attrs := metric.WithAttributes(
		attribute.String("provider", req.Provider),
		attribute.String("report_type", req.ReportType),
	)
	start := time.Now()

	var resp report.Response
	err := s.pool.Run(ctx, func() error {
		var err error
		resp, err = NewQueryHandler(s.store, req.Tenant, q, req.IsSum, req.CSV).ExecuteQuery(ctx)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if s.metrics != nil {
			s.metrics.ReportsFailed.Add(ctx, 1, attrs)
		}
		slog.ErrorContext(ctx, "report failed",
			"provider", req.Provider, "report_type", req.ReportType, "error", err)
		return report.Response{}, err
	}

	elapsed := time.Since(start)
	if s.metrics != nil {
		s.metrics.ReportsServed.Add(ctx, 1, attrs)
		s.metrics.ReportDuration.Record(ctx, elapsed.Seconds(), attrs)
		s.metrics.ReportRows.Record(ctx, int64(dataLen(resp.Data)), attrs)
	}
	slog.InfoContext(ctx, "report served",
		"provider", req.Provider, "report_type", req.ReportType,
		"is_sum", req.IsSum, "duration_ms", elapsed.Milliseconds())
	return resp, nil
}

func (s *ReportService) cached(ctx context.Context, key string) ([]byte, bool) {
	if s.cache == nil {
		return nil, false
	}
	body, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		slog.WarnContext(ctx, "report cache get failed", "error", err)
	}
	if s.metrics != nil {
		if ok {
			s.metrics.CacheHits.Add(ctx, 1)
		} else {
			s.metrics.CacheMisses.Add(ctx, 1)
		}
	}
	return body, ok
}

func (s *ReportService) remember(ctx context.Context, key string, body []byte) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, body, s.cacheTTL); err != nil {
		slog.WarnContext(ctx, "report cache set failed", "error", err)
	}
}

// cacheKey hashes everything that determines a report body into a key that
// is valid for NATS KV. The window start is part of the key so cached
// reports roll over with the date.
func (s *ReportService) cacheKey(req Request, q report.Query) string {
	h := sha256.New()
	for _, part := range []string{
		req.Tenant, req.Provider, req.ReportType, req.RawQuery,
		strconv.FormatBool(req.IsSum), strconv.FormatBool(req.CSV),
		q.Window.Start.Format(time.DateOnly),
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return "report." + hex.EncodeToString(h.Sum(nil))
}

func encode(resp report.Response, csv bool) ([]byte, error) {
	if !csv {
		return json.Marshal(resp)
	}
	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, resp); err != nil {
		return nil, fmt.Errorf("encode csv: %w", err)
	}
	return buf.Bytes(), nil
}

func dataLen(data any) int {
	switch d := data.(type) {
	case []report.Row:
		return len(d)
	case []report.Node:
		return len(report.Leaves(d))
	case []report.ExportRow:
		return len(d)
	default:
		return 0
	}
}
