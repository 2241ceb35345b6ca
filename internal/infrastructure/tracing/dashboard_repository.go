// Package tracing decora el repositorio del tablero con spans de OpenTelemetry.
package tracing

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/agri-dashboard/internal/domain/entity"
	"github.com/jhoicas/agri-dashboard/internal/domain/repository"
)

var _ repository.DashboardRepository = (*DashboardRepo)(nil)

// DashboardRepo envuelve otra implementación y abre un span por llamada.
type DashboardRepo struct {
	next   repository.DashboardRepository
	tracer trace.Tracer
	system string
}

// NewDashboardRepository envuelve next. system es el motor ("postgresql", "mysql").
func NewDashboardRepository(next repository.DashboardRepository, system string) *DashboardRepo {
	return &DashboardRepo{
		next:   next,
		tracer: otel.Tracer("dashboard-repository"),
		system: system,
	}
}

func (r *DashboardRepo) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("db.system", r.system))
	return r.tracer.Start(ctx, "repository."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
}

func end(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func window(from time.Time) attribute.KeyValue {
	return attribute.String("window.from", from.Format(time.RFC3339))
}

func (r *DashboardRepo) GetOverview(ctx context.Context, monthStart, monthEnd, asOf time.Time) (res repository.OverviewResult, err error) {
	ctx, span := r.start(ctx, "GetOverview", window(monthStart))
	defer func() { end(span, err) }()
	return r.next.GetOverview(ctx, monthStart, monthEnd, asOf)
}

func (r *DashboardRepo) GetDailySales(ctx context.Context, from, to time.Time) (rows []repository.DailySalesResult, err error) {
	ctx, span := r.start(ctx, "GetDailySales", window(from))
	defer func() {
		span.SetAttributes(attribute.Int("rows", len(rows)))
		end(span, err)
	}()
	return r.next.GetDailySales(ctx, from, to)
}

func (r *DashboardRepo) ListStockedProducts(ctx context.Context) (rows []entity.Product, err error) {
	ctx, span := r.start(ctx, "ListStockedProducts")
	defer func() {
		span.SetAttributes(attribute.Int("rows", len(rows)))
		end(span, err)
	}()
	return r.next.ListStockedProducts(ctx)
}

func (r *DashboardRepo) CountDeliveriesByStatus(ctx context.Context, from time.Time) (rows []repository.DeliveryCountResult, err error) {
	ctx, span := r.start(ctx, "CountDeliveriesByStatus", window(from))
	defer func() { end(span, err) }()
	return r.next.CountDeliveriesByStatus(ctx, from)
}

func (r *DashboardRepo) GetLatestForecast(ctx context.Context, asOf time.Time) (f *entity.ForecastReport, err error) {
	ctx, span := r.start(ctx, "GetLatestForecast")
	defer func() {
		if f != nil {
			span.SetAttributes(attribute.Int64("forecast.report_id", f.ID))
		}
		end(span, err)
	}()
	return r.next.GetLatestForecast(ctx, asOf)
}

func (r *DashboardRepo) ListRecentInventoryLogs(ctx context.Context, limit int) (rows []entity.InventoryLog, err error) {
	ctx, span := r.start(ctx, "ListRecentInventoryLogs", attribute.Int("limit", limit))
	defer func() { end(span, err) }()
	return r.next.ListRecentInventoryLogs(ctx, limit)
}

func (r *DashboardRepo) GetTopProducts(ctx context.Context, from time.Time, limit int) (rows []repository.ProductSalesResult, err error) {
	ctx, span := r.start(ctx, "GetTopProducts", window(from), attribute.Int("limit", limit))
	defer func() { end(span, err) }()
	return r.next.GetTopProducts(ctx, from, limit)
}

func (r *DashboardRepo) GetCategorySales(ctx context.Context, from time.Time) (rows []repository.CategorySalesResult, err error) {
	ctx, span := r.start(ctx, "GetCategorySales", window(from))
	defer func() { end(span, err) }()
	return r.next.GetCategorySales(ctx, from)
}

func (r *DashboardRepo) GetSalesStats(ctx context.Context, from time.Time) (s repository.SalesStatsResult, err error) {
	ctx, span := r.start(ctx, "GetSalesStats", window(from))
	defer func() { end(span, err) }()
	return r.next.GetSalesStats(ctx, from)
}

func (r *DashboardRepo) GetInventoryStats(ctx context.Context) (s repository.InventoryStatsResult, err error) {
	ctx, span := r.start(ctx, "GetInventoryStats")
	defer func() { end(span, err) }()
	return r.next.GetInventoryStats(ctx)
}

func (r *DashboardRepo) GetDeliveryMetrics(ctx context.Context, from, asOf time.Time) (rows []repository.DeliveryMetricResult, err error) {
	ctx, span := r.start(ctx, "GetDeliveryMetrics", window(from))
	defer func() { end(span, err) }()
	return r.next.GetDeliveryMetrics(ctx, from, asOf)
}

func (r *DashboardRepo) Ping(ctx context.Context) (err error) {
	ctx, span := r.start(ctx, "Ping")
	defer func() { end(span, err) }()
	return r.next.Ping(ctx)
}
