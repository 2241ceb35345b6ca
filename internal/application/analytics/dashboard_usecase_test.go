package analytics_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/agri-dashboard/internal/application/analytics"
	"github.com/jhoicas/agri-dashboard/internal/domain"
	"github.com/jhoicas/agri-dashboard/internal/domain/entity"
	"github.com/jhoicas/agri-dashboard/internal/domain/repository"
)

// ─── Fake repository ────────────────────────────────────────────────────────

type fakeRepo struct {
	overview   repository.OverviewResult
	daily      []repository.DailySalesResult
	products   []entity.Product
	deliveries []repository.DeliveryCountResult
	forecast   *entity.ForecastReport
	logs       []entity.InventoryLog
	top        []repository.ProductSalesResult
	categories []repository.CategorySalesResult
	salesStats repository.SalesStatsResult
	invStats   repository.InventoryStatsResult
	metrics    []repository.DeliveryMetricResult
	err        error
	gotFrom    time.Time
	gotTo      time.Time
	gotMonth   [2]time.Time
	gotAsOf    time.Time
	gotLimit   int
}

var _ repository.DashboardRepository = (*fakeRepo)(nil)

func (f *fakeRepo) GetOverview(_ context.Context, ms, me, asOf time.Time) (repository.OverviewResult, error) {
	f.gotMonth = [2]time.Time{ms, me}
	f.gotAsOf = asOf
	return f.overview, f.err
}

func (f *fakeRepo) GetDailySales(_ context.Context, from, to time.Time) ([]repository.DailySalesResult, error) {
	f.gotFrom, f.gotTo = from, to
	return f.daily, f.err
}

func (f *fakeRepo) ListStockedProducts(context.Context) ([]entity.Product, error) {
	return f.products, f.err
}

func (f *fakeRepo) CountDeliveriesByStatus(_ context.Context, from time.Time) ([]repository.DeliveryCountResult, error) {
	f.gotFrom = from
	return f.deliveries, f.err
}

func (f *fakeRepo) GetLatestForecast(_ context.Context, asOf time.Time) (*entity.ForecastReport, error) {
	f.gotAsOf = asOf
	return f.forecast, f.err
}

func (f *fakeRepo) ListRecentInventoryLogs(_ context.Context, limit int) ([]entity.InventoryLog, error) {
	f.gotLimit = limit
	return f.logs, f.err
}

func (f *fakeRepo) GetTopProducts(_ context.Context, from time.Time, limit int) ([]repository.ProductSalesResult, error) {
	f.gotFrom, f.gotLimit = from, limit
	return f.top, f.err
}

func (f *fakeRepo) GetCategorySales(_ context.Context, from time.Time) ([]repository.CategorySalesResult, error) {
	f.gotFrom = from
	return f.categories, f.err
}

func (f *fakeRepo) GetSalesStats(_ context.Context, from time.Time) (repository.SalesStatsResult, error) {
	f.gotFrom = from
	return f.salesStats, f.err
}

func (f *fakeRepo) GetInventoryStats(context.Context) (repository.InventoryStatsResult, error) {
	return f.invStats, f.err
}

func (f *fakeRepo) GetDeliveryMetrics(_ context.Context, from, asOf time.Time) ([]repository.DeliveryMetricResult, error) {
	f.gotFrom, f.gotAsOf = from, asOf
	return f.metrics, f.err
}

func (f *fakeRepo) Ping(context.Context) error { return f.err }

// 2026-03-18 15:30 UTC
var fixedNow = time.Date(2026, time.March, 18, 15, 30, 0, 0, time.UTC)

func newUseCase(repo *fakeRepo) *analytics.DashboardUseCase {
	return analytics.NewDashboardUseCase(repo, func() time.Time { return fixedNow }, nil)
}

func day(d int) time.Time { return time.Date(2026, time.March, d, 0, 0, 0, 0, time.UTC) }

// ─── Overview ───────────────────────────────────────────────────────────────

func TestOverview_SinFilas_TodoEnCero(t *testing.T) {
	repo := &fakeRepo{}
	out, err := newUseCase(repo).Overview(context.Background())
	require.NoError(t, err)

	assert.Zero(t, out.TotalSales)
	assert.Zero(t, out.TotalProducts)
	assert.Zero(t, out.PendingDeliveries)
	assert.Zero(t, out.GrowthRate)
	assert.Equal(t, day(1), repo.gotMonth[0])
	assert.Equal(t, time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC), repo.gotMonth[1])
	assert.Equal(t, day(18), repo.gotAsOf)
}

func TestOverview_ValoresNegativos_SeRecortanACero(t *testing.T) {
	repo := &fakeRepo{overview: repository.OverviewResult{
		MonthSales:        decimal.NewFromInt(-50),
		TotalStock:        -3,
		PendingDeliveries: 4,
		LatestForecast:    []byte(`{"sales_growth": -2.5}`),
	}}
	out, err := newUseCase(repo).Overview(context.Background())
	require.NoError(t, err)

	assert.Zero(t, out.TotalSales)
	assert.Zero(t, out.TotalProducts)
	assert.EqualValues(t, 4, out.PendingDeliveries)
	assert.Zero(t, out.GrowthRate)
}

func TestOverview_GrowthRateDelPronostico(t *testing.T) {
	repo := &fakeRepo{overview: repository.OverviewResult{
		MonthSales:     decimal.RequireFromString("12345.678"),
		TotalStock:     900,
		LatestForecast: []byte(`{"sales_growth": "15.2", "market_share": 8}`),
	}}
	out, err := newUseCase(repo).Overview(context.Background())
	require.NoError(t, err)

	assert.InDelta(t, 12345.68, out.TotalSales, 1e-9)
	assert.EqualValues(t, 900, out.TotalProducts)
	assert.InDelta(t, 15.2, out.GrowthRate, 1e-9)
}

func TestOverview_PronosticoMalformado_GrowthCero(t *testing.T) {
	repo := &fakeRepo{overview: repository.OverviewResult{LatestForecast: []byte(`{roto`)}}
	out, err := newUseCase(repo).Overview(context.Background())
	require.NoError(t, err)
	assert.Zero(t, out.GrowthRate)
}

func TestOverview_ErrorDelAlmacen_SePropaga(t *testing.T) {
	repo := &fakeRepo{err: domain.ErrStoreUnavailable}
	_, err := newUseCase(repo).Overview(context.Background())
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

// ─── SalesTrend ─────────────────────────────────────────────────────────────

func TestSalesTrend_VentanaDeSieteDias_Dispersa(t *testing.T) {
	repo := &fakeRepo{daily: []repository.DailySalesResult{
		{Day: day(17), TotalAmount: decimal.NewFromInt(200), TransactionCount: 2},
		{Day: day(13), TotalAmount: decimal.RequireFromString("99.999"), TransactionCount: 1},
	}}
	out, err := newUseCase(repo).SalesTrend(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, day(12), repo.gotFrom, "7 días calendario incluyendo hoy")
	assert.Equal(t, fixedNow, repo.gotTo)
	require.Len(t, out, 2)
	assert.Equal(t, "2026-03-13", out[0].TransactionDate)
	assert.InDelta(t, 100.0, out[0].TotalAmount, 1e-9)
	assert.Equal(t, "2026-03-17", out[1].TransactionDate)
}

func TestSalesTrend_ConRelleno_SietePuntosContinuos(t *testing.T) {
	repo := &fakeRepo{daily: []repository.DailySalesResult{
		{Day: day(14), TotalAmount: decimal.NewFromInt(10), TransactionCount: 1},
	}}
	out, err := newUseCase(repo).SalesTrend(context.Background(), true)
	require.NoError(t, err)

	require.Len(t, out, 7)
	assert.Equal(t, "2026-03-12", out[0].TransactionDate)
	assert.Equal(t, "2026-03-18", out[6].TransactionDate)
	assert.InDelta(t, 10.0, out[2].TotalAmount, 1e-9)
	assert.Zero(t, out[3].TransactionCount)
}

func TestVentanas_RelojFueraDeUTC_MedianocheLocal(t *testing.T) {
	manila := time.FixedZone("PHT", 8*60*60)
	// 01:30 en Manila: en UTC todavía es el día anterior.
	now := time.Date(2026, time.October, 19, 1, 30, 0, 0, manila)
	repo := &fakeRepo{daily: []repository.DailySalesResult{
		{Day: time.Date(2026, time.October, 19, 0, 0, 0, 0, time.UTC), TotalAmount: decimal.NewFromInt(40), TransactionCount: 1},
	}}
	uc := analytics.NewDashboardUseCase(repo, func() time.Time { return now }, nil)

	_, err := uc.GrowthForecast(context.Background())
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.October, 19, 0, 0, 0, 0, manila), repo.gotAsOf)

	out, err := uc.SalesTrend(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.October, 13, 0, 0, 0, 0, manila), repo.gotFrom)
	require.Len(t, out, 7)
	assert.Equal(t, "2026-10-13", out[0].TransactionDate)
	assert.Equal(t, "2026-10-19", out[6].TransactionDate)
	assert.InDelta(t, 40.0, out[6].TotalAmount, 1e-9)

	_, err = uc.TopProducts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.September, 19, 0, 0, 0, 0, manila), repo.gotFrom)
}

// ─── InventoryLevels ────────────────────────────────────────────────────────

func TestInventoryLevels_AgrupaNombresNormalizados(t *testing.T) {
	repo := &fakeRepo{products: []entity.Product{
		{ID: 1, Name: "Rice ", Category: "Grains", QuantityInStock: 40},
		{ID: 2, Name: "rice", Category: "", QuantityInStock: 25},
		{ID: 3, Name: "Corn", Category: "", QuantityInStock: 50},
		{ID: 4, Name: "  ", Category: "Misc", QuantityInStock: 5},
		{ID: 5, Name: "Mango", Category: "Fruit", QuantityInStock: 0},
	}}
	out, err := newUseCase(repo).InventoryLevels(context.Background())
	require.NoError(t, err)

	require.Len(t, out, 3)
	assert.Equal(t, "Rice", out[0].ProductName)
	assert.EqualValues(t, 65, out[0].QuantityInStock)
	assert.Equal(t, "Grains", out[0].Category)
	assert.Nil(t, out[0].ProductID, "fila agrupada no expone un id")

	assert.Equal(t, "Corn", out[1].ProductName)
	assert.Equal(t, entity.UncategorizedLabel, out[1].Category)
	require.NotNil(t, out[1].ProductID)
	assert.EqualValues(t, 3, *out[1].ProductID)

	assert.Equal(t, entity.UnknownProductName, out[2].ProductName)
}

func TestInventoryLevels_TopDiez(t *testing.T) {
	repo := &fakeRepo{}
	for i := 1; i <= 15; i++ {
		repo.products = append(repo.products, entity.Product{
			ID: int64(i), Name: string(rune('A' + i)), QuantityInStock: int64(i),
		})
	}
	out, err := newUseCase(repo).InventoryLevels(context.Background())
	require.NoError(t, err)

	require.Len(t, out, 10)
	assert.EqualValues(t, 15, out[0].QuantityInStock)
	assert.EqualValues(t, 6, out[9].QuantityInStock)
}

// ─── DeliveryStatus ─────────────────────────────────────────────────────────

func TestDeliveryStatus_OrdenFijo(t *testing.T) {
	repo := &fakeRepo{deliveries: []repository.DeliveryCountResult{
		{Status: "Delivered", Count: 9},
		{Status: "Returned", Count: 1},
		{Status: "In Transit", Count: 3},
		{Status: "Pending", Count: 2},
		{Status: "Cancelled", Count: 1},
	}}
	out, err := newUseCase(repo).DeliveryStatus(context.Background())
	require.NoError(t, err)

	var got []string
	for _, d := range out {
		got = append(got, d.DeliveryStatus)
	}
	assert.Equal(t, []string{"Pending", "In Transit", "Delivered", "Cancelled", "Returned"}, got)
	assert.Equal(t, day(18).AddDate(0, 0, -30), repo.gotFrom)
}

// ─── GrowthForecast ─────────────────────────────────────────────────────────

func TestGrowthForecast_SinReportes_ArregloVacio(t *testing.T) {
	out, err := newUseCase(&fakeRepo{}).GrowthForecast(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestGrowthForecast_Malformado_Defaults(t *testing.T) {
	repo := &fakeRepo{forecast: &entity.ForecastReport{
		ID: 7, ReportDate: day(15), ReportData: []byte(`not json`), CreatedByName: "Ana Cruz",
	}}
	out, err := newUseCase(repo).GrowthForecast(context.Background())
	require.NoError(t, err)

	require.Len(t, out, 1)
	assert.Equal(t, "2026-03-15", out[0].ReportDate)
	assert.Equal(t, "Ana Cruz", out[0].CreatedByName)
	assert.Equal(t, []string{"Sales Growth", "Market Share", "Customer Base", "Product Range", "Supply Chain"}, out[0].ReportData.Labels())
	assert.Equal(t, []float64{0, 0, 0, 0, 0}, out[0].ReportData.Values())
}

func TestGrowthForecast_EtiquetasTitleCase(t *testing.T) {
	repo := &fakeRepo{forecast: &entity.ForecastReport{
		ID: 8, ReportDate: day(16), ReportData: []byte(`{"customer_base": 40, "sales_growth": 73}`),
	}}
	out, err := newUseCase(repo).GrowthForecast(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Sales Growth", "Customer Base"}, out[0].ReportData.Labels())
}

// ─── Ventanas de 30 días ────────────────────────────────────────────────────

func TestTopProducts_LimiteYDefaults(t *testing.T) {
	repo := &fakeRepo{top: []repository.ProductSalesResult{
		{ProductName: "Rice", Category: "", TotalSales: 4, UnitsSold: 20, Revenue: decimal.NewFromInt(500)},
	}}
	out, err := newUseCase(repo).TopProducts(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, repo.gotLimit)
	require.Len(t, out, 1)
	assert.Equal(t, entity.UncategorizedLabel, out[0].Category)
	assert.InDelta(t, 500.0, out[0].Revenue, 1e-9)
}

func TestCategorySales_CategoriaNula(t *testing.T) {
	repo := &fakeRepo{categories: []repository.CategorySalesResult{
		{Category: "", TotalSales: 1, UnitsSold: 1, Revenue: decimal.NewFromInt(10)},
	}}
	out, err := newUseCase(repo).CategorySales(context.Background())
	require.NoError(t, err)
	assert.Equal(t, entity.UncategorizedLabel, out[0].Category)
}

func TestSalesStats_Redondeo(t *testing.T) {
	repo := &fakeRepo{salesStats: repository.SalesStatsResult{
		TotalSales: decimal.NewFromInt(300), TotalTransactions: 3,
		AverageSale: decimal.RequireFromString("100.004"),
		HighestSale: decimal.NewFromInt(150), LowestSale: decimal.NewFromInt(50),
	}}
	out, err := newUseCase(repo).SalesStats(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 100.0, out.AverageSale, 1e-9)
	assert.EqualValues(t, 3, out.TotalTransactions)
}

func TestInventorySummary(t *testing.T) {
	repo := &fakeRepo{invStats: repository.InventoryStatsResult{
		TotalProducts: 4, TotalStock: 100, AverageStock: decimal.NewFromInt(25), LowStockItems: 1,
	}}
	out, err := newUseCase(repo).InventorySummary(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, out.LowStockItems)
	assert.InDelta(t, 25.0, out.AverageStock, 1e-9)
}

func TestDeliveryMetrics_OrdenFijoYAncla(t *testing.T) {
	repo := &fakeRepo{metrics: []repository.DeliveryMetricResult{
		{Status: "Delivered", Count: 2, AvgDeliveryTime: decimal.NewFromInt(36)},
		{Status: "Pending", Count: 1, AvgDeliveryTime: decimal.NewFromInt(12)},
	}}
	out, err := newUseCase(repo).DeliveryMetrics(context.Background())
	require.NoError(t, err)

	assert.Equal(t, fixedNow, repo.gotAsOf)
	assert.Equal(t, "Pending", out[0].DeliveryStatus)
	assert.InDelta(t, 36.0, out[1].AvgDeliveryTime, 1e-9)
}

func TestInventoryActivity_Limite(t *testing.T) {
	repo := &fakeRepo{}
	_, err := newUseCase(repo).InventoryActivity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, repo.gotLimit)
}

func TestHealth_ErrorEnvuelto(t *testing.T) {
	boom := errors.New("boom")
	err := newUseCase(&fakeRepo{err: boom}).Health(context.Background())
	assert.ErrorIs(t, err, boom)
}
