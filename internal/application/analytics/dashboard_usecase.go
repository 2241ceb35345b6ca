// Package analytics contiene los casos de uso del tablero de mercado agrícola:
// una operación por cada pregunta de reporte que responde la API.
package analytics

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/agri-dashboard/internal/application/dto"
	"github.com/jhoicas/agri-dashboard/internal/domain/entity"
	"github.com/jhoicas/agri-dashboard/internal/domain/forecast"
	"github.com/jhoicas/agri-dashboard/internal/domain/repository"
	"github.com/jhoicas/agri-dashboard/pkg/logger"
)

const (
	trendDays          = 7  // días calendario de la tendencia de ventas, incluido hoy
	trailingWindowDays = 30 // ventana de top productos, categorías y estadísticas
	inventoryTopN      = 10
	topProductsLimit   = 5
	recentLogsLimit    = 10
)

// Clock devuelve el instante "ahora" usado como ancla de todas las ventanas.
type Clock func() time.Time

// DashboardUseCase responde las preguntas de reporte del tablero.
//
// Fuente de datos: DashboardRepository (consultas read-only).
// Las ventanas de tiempo se calculan aquí a partir del reloj inyectado.
type DashboardUseCase struct {
	repo  repository.DashboardRepository
	clock Clock
	log   *logger.Logger
}

// NewDashboardUseCase construye el caso de uso. clock nil usa time.Now.
func NewDashboardUseCase(repo repository.DashboardRepository, clock Clock, log *logger.Logger) *DashboardUseCase {
	if clock == nil {
		clock = time.Now
	}
	if log == nil {
		log = logger.Nop()
	}
	return &DashboardUseCase{repo: repo, clock: clock, log: log}
}

// Now expone el reloj para que los handlers fechen las respuestas con la misma ancla.
func (uc *DashboardUseCase) Now() time.Time { return uc.clock() }

// startOfDay medianoche de t en su zona horaria.
func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// trailingFrom inicio de la ventana de n días hacia atrás desde hoy.
func (uc *DashboardUseCase) trailingFrom(days int) time.Time {
	return startOfDay(uc.clock()).AddDate(0, 0, -days)
}

// Overview KPIs del tablero: ventas del mes, stock total, entregas pendientes
// y crecimiento del último pronóstico. Nunca devuelve valores negativos.
func (uc *DashboardUseCase) Overview(ctx context.Context) (*dto.OverviewDTO, error) {
	now := uc.clock()
	today := startOfDay(now)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	monthEnd := monthStart.AddDate(0, 1, 0)

	res, err := uc.repo.GetOverview(ctx, monthStart, monthEnd, today)
	if err != nil {
		return nil, fmt.Errorf("analytics.Overview: %w", err)
	}

	var growth float64
	if res.LatestForecast != nil {
		metrics, err := forecast.Decode(res.LatestForecast)
		if err != nil {
			uc.log.Warn().Err(err).Msg("overview: report_data inválido, growthRate en 0")
		}
		growth, _ = metrics.Get(forecast.SalesGrowth)
	}

	return &dto.OverviewDTO{
		TotalSales:        nonNegative(money(res.MonthSales)),
		TotalProducts:     max(res.TotalStock, 0),
		PendingDeliveries: max(res.PendingDeliveries, 0),
		GrowthRate:        nonNegative(growth),
	}, nil
}

// SalesTrend ventas por día de los últimos 7 días calendario (hoy incluido),
// ascendente. Con fill=true los días sin ventas aparecen en cero.
func (uc *DashboardUseCase) SalesTrend(ctx context.Context, fill bool) ([]dto.SalesPointDTO, error) {
	now := uc.clock()
	from := startOfDay(now).AddDate(0, 0, -(trendDays - 1))

	rows, err := uc.repo.GetDailySales(ctx, from, now)
	if err != nil {
		return nil, fmt.Errorf("analytics.SalesTrend: %w", err)
	}

	points := make([]dto.SalesPointDTO, 0, trendDays)
	for _, r := range rows {
		points = append(points, dto.SalesPointDTO{
			TransactionDate:  r.Day.Format(dto.DateLayout),
			TotalAmount:      money(r.TotalAmount),
			TransactionCount: r.TransactionCount,
		})
	}
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].TransactionDate < points[j].TransactionDate
	})
	if !fill {
		return points, nil
	}
	return fillDays(points, from, trendDays), nil
}

func fillDays(points []dto.SalesPointDTO, from time.Time, days int) []dto.SalesPointDTO {
	byDay := make(map[string]dto.SalesPointDTO, len(points))
	for _, p := range points {
		byDay[p.TransactionDate] = p
	}
	out := make([]dto.SalesPointDTO, 0, days)
	for i := 0; i < days; i++ {
		day := from.AddDate(0, 0, i).Format(dto.DateLayout)
		p, ok := byDay[day]
		if !ok {
			p = dto.SalesPointDTO{TransactionDate: day}
		}
		out = append(out, p)
	}
	return out
}

// InventoryLevels stock actual de los 10 productos con más existencias.
// Los productos cuyo nombre coincide tras recortar espacios y pasar a minúsculas
// se agrupan en una sola fila con el stock sumado.
func (uc *DashboardUseCase) InventoryLevels(ctx context.Context) ([]dto.ProductStockDTO, error) {
	products, err := uc.repo.ListStockedProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("analytics.InventoryLevels: %w", err)
	}

	type group struct {
		ids      []int64
		name     string
		category string
		stock    int64
	}
	groups := make(map[string]*group)
	var order []string
	for _, p := range products {
		if p.QuantityInStock <= 0 {
			continue
		}
		name := p.DisplayName()
		key := strings.ToLower(name)
		g, ok := groups[key]
		if !ok {
			g = &group{name: name}
			groups[key] = g
			order = append(order, key)
		}
		g.ids = append(g.ids, p.ID)
		g.stock += p.QuantityInStock
		if g.category == "" && strings.TrimSpace(p.Category) != "" {
			g.category = p.DisplayCategory()
		}
	}

	out := make([]dto.ProductStockDTO, 0, len(order))
	for _, key := range order {
		g := groups[key]
		item := dto.ProductStockDTO{
			ProductName:     g.name,
			Category:        g.category,
			QuantityInStock: g.stock,
		}
		if item.Category == "" {
			item.Category = entity.UncategorizedLabel
		}
		if len(g.ids) == 1 {
			id := g.ids[0]
			item.ProductID = &id
		}
		out = append(out, item)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].QuantityInStock != out[j].QuantityInStock {
			return out[i].QuantityInStock > out[j].QuantityInStock
		}
		return out[i].ProductName < out[j].ProductName
	})
	if len(out) > inventoryTopN {
		out = out[:inventoryTopN]
	}
	return out, nil
}

// DeliveryStatus conteo de entregas de los últimos 30 días en orden fijo
// Pending, In Transit, Delivered; estados desconocidos al final en orden alfabético.
func (uc *DashboardUseCase) DeliveryStatus(ctx context.Context) ([]dto.DeliveryStatusDTO, error) {
	rows, err := uc.repo.CountDeliveriesByStatus(ctx, uc.trailingFrom(trailingWindowDays))
	if err != nil {
		return nil, fmt.Errorf("analytics.DeliveryStatus: %w", err)
	}
	out := make([]dto.DeliveryStatusDTO, 0, len(rows))
	for _, r := range rows {
		out = append(out, dto.DeliveryStatusDTO{DeliveryStatus: r.Status, Count: r.Count})
	}
	sortByStatus(out, func(d dto.DeliveryStatusDTO) string { return d.DeliveryStatus })
	return out, nil
}

func sortByStatus[T any](items []T, status func(T) string) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := status(items[i]), status(items[j])
		ra, rb := entity.DeliveryStatusRank(a), entity.DeliveryStatusRank(b)
		if ra != rb {
			return ra < rb
		}
		return a < b
	})
}

// GrowthForecast el último pronóstico (0 o 1 elemento) con sus métricas relabeladas.
// Si report_data no se puede interpretar se devuelven las cinco métricas en cero.
func (uc *DashboardUseCase) GrowthForecast(ctx context.Context) ([]dto.ForecastDTO, error) {
	report, err := uc.repo.GetLatestForecast(ctx, startOfDay(uc.clock()))
	if err != nil {
		return nil, fmt.Errorf("analytics.GrowthForecast: %w", err)
	}
	if report == nil {
		return []dto.ForecastDTO{}, nil
	}

	metrics, err := forecast.Decode(report.ReportData)
	if err != nil {
		uc.log.Warn().Err(err).Int64("report_id", report.ID).Msg("forecast: report_data inválido, usando valores por defecto")
	}
	return []dto.ForecastDTO{{
		ReportDate:    report.ReportDate.Format(dto.DateLayout),
		ReportData:    metrics,
		CreatedByName: report.CreatedByName,
	}}, nil
}

// InventoryActivity los 10 movimientos de inventario más recientes.
func (uc *DashboardUseCase) InventoryActivity(ctx context.Context) ([]dto.InventoryLogDTO, error) {
	logs, err := uc.repo.ListRecentInventoryLogs(ctx, recentLogsLimit)
	if err != nil {
		return nil, fmt.Errorf("analytics.InventoryActivity: %w", err)
	}
	out := make([]dto.InventoryLogDTO, 0, len(logs))
	for _, l := range logs {
		out = append(out, dto.InventoryLogDTO{
			LogDate:     l.LogDate,
			ProductName: l.ProductName,
			ActionType:  l.ActionType,
			Quantity:    l.Quantity,
			PerformedBy: l.PerformedBy,
		})
	}
	return out, nil
}

// TopProducts los 5 productos con más ingresos de los últimos 30 días.
func (uc *DashboardUseCase) TopProducts(ctx context.Context) ([]dto.TopProductDTO, error) {
	rows, err := uc.repo.GetTopProducts(ctx, uc.trailingFrom(trailingWindowDays), topProductsLimit)
	if err != nil {
		return nil, fmt.Errorf("analytics.TopProducts: %w", err)
	}
	out := make([]dto.TopProductDTO, 0, len(rows))
	for _, r := range rows {
		out = append(out, dto.TopProductDTO{
			ProductName: entity.Product{Name: r.ProductName}.DisplayName(),
			Category:    entity.Product{Category: r.Category}.DisplayCategory(),
			TotalSales:  r.TotalSales,
			UnitsSold:   r.UnitsSold,
			Revenue:     money(r.Revenue),
		})
	}
	if len(out) > topProductsLimit {
		out = out[:topProductsLimit]
	}
	return out, nil
}

// CategorySales ventas por categoría de los últimos 30 días, por ingreso descendente.
func (uc *DashboardUseCase) CategorySales(ctx context.Context) ([]dto.CategorySalesDTO, error) {
	rows, err := uc.repo.GetCategorySales(ctx, uc.trailingFrom(trailingWindowDays))
	if err != nil {
		return nil, fmt.Errorf("analytics.CategorySales: %w", err)
	}
	out := make([]dto.CategorySalesDTO, 0, len(rows))
	for _, r := range rows {
		out = append(out, dto.CategorySalesDTO{
			Category:   entity.Product{Category: r.Category}.DisplayCategory(),
			TotalSales: r.TotalSales,
			UnitsSold:  r.UnitsSold,
			Revenue:    money(r.Revenue),
		})
	}
	return out, nil
}

// SalesStats estadísticas de ventas de los últimos 30 días.
func (uc *DashboardUseCase) SalesStats(ctx context.Context) (*dto.SalesStatsDTO, error) {
	s, err := uc.repo.GetSalesStats(ctx, uc.trailingFrom(trailingWindowDays))
	if err != nil {
		return nil, fmt.Errorf("analytics.SalesStats: %w", err)
	}
	return &dto.SalesStatsDTO{
		TotalSales:        money(s.TotalSales),
		TotalTransactions: s.TotalTransactions,
		AverageSale:       money(s.AverageSale),
		HighestSale:       money(s.HighestSale),
		LowestSale:        money(s.LowestSale),
	}, nil
}

// InventorySummary estadísticas del catálogo, incluido el conteo de stock bajo.
func (uc *DashboardUseCase) InventorySummary(ctx context.Context) (*dto.InventorySummaryDTO, error) {
	s, err := uc.repo.GetInventoryStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("analytics.InventorySummary: %w", err)
	}
	return &dto.InventorySummaryDTO{
		TotalProducts: s.TotalProducts,
		TotalStock:    s.TotalStock,
		AverageStock:  money(s.AverageStock),
		LowStockItems: s.LowStockItems,
	}, nil
}

// DeliveryMetrics conteo y tiempo medio de entrega en horas por estado,
// para las entregas creadas en los últimos 30 días.
func (uc *DashboardUseCase) DeliveryMetrics(ctx context.Context) ([]dto.DeliveryMetricDTO, error) {
	rows, err := uc.repo.GetDeliveryMetrics(ctx, uc.trailingFrom(trailingWindowDays), uc.clock())
	if err != nil {
		return nil, fmt.Errorf("analytics.DeliveryMetrics: %w", err)
	}
	out := make([]dto.DeliveryMetricDTO, 0, len(rows))
	for _, r := range rows {
		out = append(out, dto.DeliveryMetricDTO{
			DeliveryStatus:  r.Status,
			Count:           r.Count,
			AvgDeliveryTime: money(r.AvgDeliveryTime),
		})
	}
	sortByStatus(out, func(d dto.DeliveryMetricDTO) string { return d.DeliveryStatus })
	return out, nil
}

// Health verifica que el almacén responde.
func (uc *DashboardUseCase) Health(ctx context.Context) error {
	if err := uc.repo.Ping(ctx); err != nil {
		return fmt.Errorf("analytics.Health: %w", err)
	}
	return nil
}

// money redondea a dos decimales y convierte a float64 para el JSON.
func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

func nonNegative(f float64) float64 {
	if math.IsNaN(f) || f < 0 {
		return 0
	}
	return f
}
