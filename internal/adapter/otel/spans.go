package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "costreport"

// StartReportSpan starts the span covering one report request.
func StartReportSpan(ctx context.Context, tenant, provider, reportType string, sum bool) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "report",
		trace.WithAttributes(
			attribute.String("tenant", tenant),
			attribute.String("report.provider", provider),
			attribute.String("report.type", reportType),
			attribute.Bool("report.is_sum", sum),
		),
	)
}

// StartQuerySpan starts a span for one statement inside the tenant bracket.
func StartQuerySpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "query."+name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("db.system", "postgresql")),
	)
}
