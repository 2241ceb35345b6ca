package dto

import (
	"time"

	"github.com/jhoicas/agri-dashboard/internal/domain/forecast"
)

// DateLayout formato de los días calendario en las respuestas.
const DateLayout = "2006-01-02"

// OverviewDTO respuesta de GET /api/overview. Todos los valores son >= 0.
type OverviewDTO struct {
	TotalSales        float64 `json:"totalSales"`
	TotalProducts     int64   `json:"totalProducts"`
	PendingDeliveries int64   `json:"pendingDeliveries"`
	GrowthRate        float64 `json:"growthRate"`
}

// SalesPointDTO un día de la tendencia de ventas (GET /api/sales).
type SalesPointDTO struct {
	TransactionDate  string  `json:"transaction_date"` // YYYY-MM-DD
	TotalAmount      float64 `json:"total_amount"`
	TransactionCount int64   `json:"transaction_count"`
}

// ProductStockDTO nivel de inventario (GET /api/products).
// ProductID se omite cuando la fila agrupa varios productos con el mismo nombre.
type ProductStockDTO struct {
	ProductID       *int64 `json:"product_id,omitempty"`
	ProductName     string `json:"product_name"`
	Category        string `json:"category"`
	QuantityInStock int64  `json:"quantity_in_stock"`
}

// DeliveryStatusDTO conteo por estado (GET /api/deliveries).
type DeliveryStatusDTO struct {
	DeliveryStatus string `json:"delivery_status"`
	Count          int64  `json:"count"`
}

// ForecastDTO último pronóstico (GET /api/forecasts).
type ForecastDTO struct {
	ReportDate    string           `json:"report_date"` // YYYY-MM-DD
	ReportData    forecast.Metrics `json:"report_data"`
	CreatedByName string           `json:"created_by_name"`
}

// InventoryLogDTO movimiento de inventario (GET /api/inventory-logs).
type InventoryLogDTO struct {
	LogDate     time.Time `json:"log_date"`
	ProductName string    `json:"product_name"`
	ActionType  string    `json:"action_type"`
	Quantity    int64     `json:"quantity"`
	PerformedBy string    `json:"performed_by"`
}

// TopProductDTO GET /api/top-products.
type TopProductDTO struct {
	ProductName string  `json:"product_name"`
	Category    string  `json:"category"`
	TotalSales  int64   `json:"total_sales"`
	UnitsSold   int64   `json:"units_sold"`
	Revenue     float64 `json:"revenue"`
}

// CategorySalesDTO GET /api/category-sales.
type CategorySalesDTO struct {
	Category   string  `json:"category"`
	TotalSales int64   `json:"total_sales"`
	UnitsSold  int64   `json:"units_sold"`
	Revenue    float64 `json:"revenue"`
}

// SalesStatsDTO GET /api/stats/total-sales.
type SalesStatsDTO struct {
	TotalSales        float64 `json:"total_sales"`
	TotalTransactions int64   `json:"total_transactions"`
	AverageSale       float64 `json:"average_sale"`
	HighestSale       float64 `json:"highest_sale"`
	LowestSale        float64 `json:"lowest_sale"`
}

// InventorySummaryDTO GET /api/stats/inventory-summary.
type InventorySummaryDTO struct {
	TotalProducts int64   `json:"total_products"`
	TotalStock    int64   `json:"total_stock"`
	AverageStock  float64 `json:"average_stock"`
	LowStockItems int64   `json:"low_stock_items"`
}

// DeliveryMetricDTO GET /api/stats/delivery-metrics. AvgDeliveryTime en horas.
type DeliveryMetricDTO struct {
	DeliveryStatus  string  `json:"delivery_status"`
	Count           int64   `json:"count"`
	AvgDeliveryTime float64 `json:"avg_delivery_time"`
}

// HealthDTO GET /health.
type HealthDTO struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}
