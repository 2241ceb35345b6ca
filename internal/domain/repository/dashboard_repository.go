package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/agri-dashboard/internal/domain/entity"
)

// OverviewResult los cuatro KPIs crudos del tablero. El use case los normaliza.
type OverviewResult struct {
	MonthSales        decimal.Decimal // suma de ventas del mes en curso
	TotalStock        int64           // suma de quantity_in_stock
	PendingDeliveries int64
	LatestForecast    []byte // report_data del último pronóstico; nil si no hay
}

// DailySalesResult ventas agregadas de un día calendario.
type DailySalesResult struct {
	Day              time.Time
	TotalAmount      decimal.Decimal
	TransactionCount int64
}

// DeliveryCountResult conteo de entregas por estado.
type DeliveryCountResult struct {
	Status string
	Count  int64
}

// ProductSalesResult ventas de un producto en la ventana.
type ProductSalesResult struct {
	ProductName string
	Category    string
	TotalSales  int64 // número de transacciones
	UnitsSold   int64
	Revenue     decimal.Decimal
}

// CategorySalesResult ventas agregadas por categoría.
type CategorySalesResult struct {
	Category   string
	TotalSales int64
	UnitsSold  int64
	Revenue    decimal.Decimal
}

// SalesStatsResult estadísticas de una sola fila sobre sales_transactions.
type SalesStatsResult struct {
	TotalSales        decimal.Decimal
	TotalTransactions int64
	AverageSale       decimal.Decimal
	HighestSale       decimal.Decimal
	LowestSale        decimal.Decimal
}

// InventoryStatsResult estadísticas de una sola fila sobre products.
type InventoryStatsResult struct {
	TotalProducts int64
	TotalStock    int64
	AverageStock  decimal.Decimal
	LowStockItems int64 // quantity_in_stock <= reorder_level
}

// DeliveryMetricResult conteo y tiempo medio de entrega (horas) por estado.
type DeliveryMetricResult struct {
	Status          string
	Count           int64
	AvgDeliveryTime decimal.Decimal
}

// DashboardRepository consultas de solo lectura del tablero de mercado.
// Cada método toma una conexión del pool con espera acotada; si no la obtiene
// devuelve domain.ErrStoreUnavailable. Las ventanas de tiempo las calcula el llamador.
type DashboardRepository interface {
	// GetOverview ejecuta las cuatro consultas de KPIs sobre una misma conexión.
	// Los pronósticos posteriores a asOf se ignoran.
	GetOverview(ctx context.Context, monthStart, monthEnd, asOf time.Time) (OverviewResult, error)

	// GetDailySales agrupa ventas por día en [from, to], ascendente. Solo días con ventas.
	GetDailySales(ctx context.Context, from, to time.Time) ([]DailySalesResult, error)

	// ListStockedProducts devuelve todos los productos con stock positivo.
	ListStockedProducts(ctx context.Context) ([]entity.Product, error)

	// CountDeliveriesByStatus cuenta entregas con delivery_date >= from.
	CountDeliveriesByStatus(ctx context.Context, from time.Time) ([]DeliveryCountResult, error)

	// GetLatestForecast devuelve el pronóstico más reciente con report_date <= asOf
	// (empate por mayor id), o nil si no existe ninguno.
	GetLatestForecast(ctx context.Context, asOf time.Time) (*entity.ForecastReport, error)

	// ListRecentInventoryLogs devuelve los `limit` movimientos más recientes.
	ListRecentInventoryLogs(ctx context.Context, limit int) ([]entity.InventoryLog, error)

	// GetTopProducts devuelve los `limit` productos con mayor ingreso desde from.
	GetTopProducts(ctx context.Context, from time.Time, limit int) ([]ProductSalesResult, error)

	// GetCategorySales agrupa ventas por categoría desde from, por ingreso descendente.
	GetCategorySales(ctx context.Context, from time.Time) ([]CategorySalesResult, error)

	GetSalesStats(ctx context.Context, from time.Time) (SalesStatsResult, error)
	GetInventoryStats(ctx context.Context) (InventoryStatsResult, error)

	// GetDeliveryMetrics agrupa por estado las entregas creadas desde from. Para las
	// no entregadas el tiempo se mide hasta asOf.
	GetDeliveryMetrics(ctx context.Context, from, asOf time.Time) ([]DeliveryMetricResult, error)

	// Ping verifica que el almacén responde.
	Ping(ctx context.Context) error
}
