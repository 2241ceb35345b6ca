package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/agri-dashboard/internal/domain"
	"github.com/jhoicas/agri-dashboard/internal/domain/entity"
	"github.com/jhoicas/agri-dashboard/internal/domain/repository"
)

var _ repository.DashboardRepository = (*DashboardRepo)(nil)

// DashboardRepo consultas de solo lectura del tablero sobre MySQL.
type DashboardRepo struct {
	db             *sqlx.DB
	acquireTimeout time.Duration
}

// NewDashboardRepository construye el adaptador sobre un *sqlx.DB ya abierto.
func NewDashboardRepository(db *sqlx.DB, acquireTimeout time.Duration) *DashboardRepo {
	return &DashboardRepo{db: db, acquireTimeout: acquireTimeout}
}

// civil reetiqueta la hora de pared de t como UTC. El DSN fija Loc=UTC, así el
// driver envía al servidor la misma fecha y hora que ve el reloj del caso de uso.
func civil(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

func (r *DashboardRepo) acquire(ctx context.Context, op string) (*sqlx.Conn, error) {
	actx := ctx
	if r.acquireTimeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, r.acquireTimeout)
		defer cancel()
	}
	conn, err := r.db.Connx(actx)
	if err != nil {
		return nil, fmt.Errorf("dashboard.%s acquire: %w: %w", op, domain.ErrStoreUnavailable, err)
	}
	return conn, nil
}

// selectAll adquiere conexión y escanea todas las filas en dest (slice).
func (r *DashboardRepo) selectAll(ctx context.Context, op string, dest any, q string, args ...any) error {
	conn, err := r.acquire(ctx, op)
	if err != nil {
		return err
	}
	defer conn.Close()
	return classify(op, conn.SelectContext(ctx, dest, q, args...))
}

// get adquiere conexión y escanea una sola fila en dest.
func (r *DashboardRepo) get(ctx context.Context, op string, dest any, q string, args ...any) error {
	conn, err := r.acquire(ctx, op)
	if err != nil {
		return err
	}
	defer conn.Close()
	return classify(op, conn.GetContext(ctx, dest, q, args...))
}

// GetOverview las cuatro consultas de KPIs sobre una conexión, en una transacción de solo lectura.
func (r *DashboardRepo) GetOverview(ctx context.Context, monthStart, monthEnd, asOf time.Time) (repository.OverviewResult, error) {
	const (
		salesQ = `
		SELECT COALESCE(SUM(total_amount), 0)
		FROM sales_transactions
		WHERE transaction_date >= ? AND transaction_date < ?`
		stockQ = `
		SELECT COALESCE(SUM(quantity_in_stock), 0)
		FROM products`
		pendingQ = `
		SELECT COUNT(*)
		FROM delivery_records
		WHERE delivery_status = 'Pending'`
		forecastQ = `
		SELECT CAST(report_data AS CHAR)
		FROM forecast_reports
		WHERE report_date <= DATE(?)
		ORDER BY report_date DESC, report_id DESC
		LIMIT 1`
	)

	var res repository.OverviewResult
	conn, err := r.acquire(ctx, "GetOverview")
	if err != nil {
		return res, err
	}
	defer conn.Close()

	tx, err := conn.BeginTxx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return res, classify("GetOverview begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := tx.GetContext(ctx, &res.MonthSales, salesQ, civil(monthStart), civil(monthEnd)); err != nil {
		return repository.OverviewResult{}, classify("GetOverview sales", err)
	}
	if err := tx.GetContext(ctx, &res.TotalStock, stockQ); err != nil {
		return repository.OverviewResult{}, classify("GetOverview stock", err)
	}
	if err := tx.GetContext(ctx, &res.PendingDeliveries, pendingQ); err != nil {
		return repository.OverviewResult{}, classify("GetOverview pending", err)
	}
	var data sql.NullString
	err = tx.GetContext(ctx, &data, forecastQ, civil(asOf))
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return repository.OverviewResult{}, classify("GetOverview forecast", err)
	case data.Valid:
		res.LatestForecast = []byte(data.String)
	}
	return res, nil
}

type dailySalesRow struct {
	Day              time.Time       `db:"day"`
	TotalAmount      decimal.Decimal `db:"total_amount"`
	TransactionCount int64           `db:"transaction_count"`
}

func (r *DashboardRepo) GetDailySales(ctx context.Context, from, to time.Time) ([]repository.DailySalesResult, error) {
	const q = `
	SELECT
	    DATE(transaction_date)          AS day,
	    COALESCE(SUM(total_amount), 0)  AS total_amount,
	    COUNT(*)                        AS transaction_count
	FROM sales_transactions
	WHERE transaction_date >= ? AND transaction_date <= ?
	GROUP BY DATE(transaction_date)
	ORDER BY day`

	var rows []dailySalesRow
	if err := r.selectAll(ctx, "GetDailySales", &rows, q, civil(from), civil(to)); err != nil {
		return nil, err
	}
	out := make([]repository.DailySalesResult, 0, len(rows))
	for _, row := range rows {
		out = append(out, repository.DailySalesResult(row))
	}
	return out, nil
}

type productRow struct {
	ID              int64  `db:"product_id"`
	Name            string `db:"product_name"`
	Category        string `db:"category"`
	QuantityInStock int64  `db:"quantity_in_stock"`
	ReorderLevel    int64  `db:"reorder_level"`
}

func (r *DashboardRepo) ListStockedProducts(ctx context.Context) ([]entity.Product, error) {
	const q = `
	SELECT
	    product_id,
	    COALESCE(product_name, '')      AS product_name,
	    COALESCE(category, '')          AS category,
	    COALESCE(quantity_in_stock, 0)  AS quantity_in_stock,
	    COALESCE(reorder_level, 0)      AS reorder_level
	FROM products
	WHERE quantity_in_stock > 0
	ORDER BY product_id`

	var rows []productRow
	if err := r.selectAll(ctx, "ListStockedProducts", &rows, q); err != nil {
		return nil, err
	}
	out := make([]entity.Product, 0, len(rows))
	for _, row := range rows {
		out = append(out, entity.Product(row))
	}
	return out, nil
}

type statusCountRow struct {
	Status string `db:"delivery_status"`
	Count  int64  `db:"count"`
}

func (r *DashboardRepo) CountDeliveriesByStatus(ctx context.Context, from time.Time) ([]repository.DeliveryCountResult, error) {
	const q = `
	SELECT
	    COALESCE(delivery_status, 'Unknown') AS delivery_status,
	    COUNT(*)                             AS count
	FROM delivery_records
	WHERE delivery_date >= ?
	GROUP BY delivery_status
	ORDER BY FIELD(delivery_status, 'Pending', 'In Transit', 'Delivered') = 0,
	         FIELD(delivery_status, 'Pending', 'In Transit', 'Delivered'),
	         delivery_status`

	var rows []statusCountRow
	if err := r.selectAll(ctx, "CountDeliveriesByStatus", &rows, q, civil(from)); err != nil {
		return nil, err
	}
	out := make([]repository.DeliveryCountResult, 0, len(rows))
	for _, row := range rows {
		out = append(out, repository.DeliveryCountResult(row))
	}
	return out, nil
}

type forecastRow struct {
	ID            int64     `db:"report_id"`
	ReportDate    time.Time `db:"report_date"`
	ReportData    string    `db:"report_data"`
	CreatedBy     int64     `db:"created_by"`
	CreatedByName string    `db:"created_by_name"`
}

func (r *DashboardRepo) GetLatestForecast(ctx context.Context, asOf time.Time) (*entity.ForecastReport, error) {
	const q = `
	SELECT
	    f.report_id,
	    f.report_date,
	    COALESCE(CAST(f.report_data AS CHAR), '') AS report_data,
	    COALESCE(f.created_by, 0)                 AS created_by,
	    COALESCE(u.full_name, 'Unknown')          AS created_by_name
	FROM forecast_reports f
	LEFT JOIN users u ON u.user_id = f.created_by
	WHERE f.report_date <= DATE(?)
	ORDER BY f.report_date DESC, f.report_id DESC
	LIMIT 1`

	var row forecastRow
	err := r.get(ctx, "GetLatestForecast", &row, q, civil(asOf))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entity.ForecastReport{
		ID:            row.ID,
		ReportDate:    row.ReportDate,
		ReportData:    []byte(row.ReportData),
		CreatedBy:     row.CreatedBy,
		CreatedByName: row.CreatedByName,
	}, nil
}

type inventoryLogRow struct {
	LogDate     time.Time `db:"log_date"`
	ProductName string    `db:"product_name"`
	ActionType  string    `db:"action_type"`
	Quantity    int64     `db:"quantity"`
	PerformedBy string    `db:"performed_by"`
}

func (r *DashboardRepo) ListRecentInventoryLogs(ctx context.Context, limit int) ([]entity.InventoryLog, error) {
	const q = `
	SELECT
	    il.log_date,
	    COALESCE(p.product_name, 'Unknown Product') AS product_name,
	    COALESCE(il.action_type, '')                AS action_type,
	    COALESCE(il.quantity, 0)                    AS quantity,
	    COALESCE(u.full_name, 'Unknown')            AS performed_by
	FROM inventory_logs il
	LEFT JOIN products p ON p.product_id = il.product_id
	LEFT JOIN users    u ON u.user_id    = il.user_id
	ORDER BY il.log_date DESC
	LIMIT ?`

	var rows []inventoryLogRow
	if err := r.selectAll(ctx, "ListRecentInventoryLogs", &rows, q, limit); err != nil {
		return nil, err
	}
	out := make([]entity.InventoryLog, 0, len(rows))
	for _, row := range rows {
		out = append(out, entity.InventoryLog(row))
	}
	return out, nil
}

type productSalesRow struct {
	ProductName string          `db:"product_name"`
	Category    string          `db:"category"`
	TotalSales  int64           `db:"total_sales"`
	UnitsSold   int64           `db:"units_sold"`
	Revenue     decimal.Decimal `db:"revenue"`
}

func (r *DashboardRepo) GetTopProducts(ctx context.Context, from time.Time, limit int) ([]repository.ProductSalesResult, error) {
	const q = `
	SELECT
	    COALESCE(p.product_name, '')       AS product_name,
	    COALESCE(p.category, '')           AS category,
	    COUNT(s.transaction_id)            AS total_sales,
	    COALESCE(SUM(s.quantity_sold), 0)  AS units_sold,
	    COALESCE(SUM(s.total_amount), 0)   AS revenue
	FROM products p
	JOIN sales_transactions s ON p.product_id = s.product_id
	WHERE s.transaction_date >= ?
	GROUP BY p.product_id, p.product_name, p.category
	ORDER BY revenue DESC
	LIMIT ?`

	var rows []productSalesRow
	if err := r.selectAll(ctx, "GetTopProducts", &rows, q, civil(from), limit); err != nil {
		return nil, err
	}
	out := make([]repository.ProductSalesResult, 0, len(rows))
	for _, row := range rows {
		out = append(out, repository.ProductSalesResult(row))
	}
	return out, nil
}

type categorySalesRow struct {
	Category   string          `db:"category"`
	TotalSales int64           `db:"total_sales"`
	UnitsSold  int64           `db:"units_sold"`
	Revenue    decimal.Decimal `db:"revenue"`
}

func (r *DashboardRepo) GetCategorySales(ctx context.Context, from time.Time) ([]repository.CategorySalesResult, error) {
	const q = `
	SELECT
	    COALESCE(p.category, '')           AS category,
	    COUNT(s.transaction_id)            AS total_sales,
	    COALESCE(SUM(s.quantity_sold), 0)  AS units_sold,
	    COALESCE(SUM(s.total_amount), 0)   AS revenue
	FROM products p
	JOIN sales_transactions s ON p.product_id = s.product_id
	WHERE s.transaction_date >= ?
	GROUP BY p.category
	ORDER BY revenue DESC`

	var rows []categorySalesRow
	if err := r.selectAll(ctx, "GetCategorySales", &rows, q, civil(from)); err != nil {
		return nil, err
	}
	out := make([]repository.CategorySalesResult, 0, len(rows))
	for _, row := range rows {
		out = append(out, repository.CategorySalesResult(row))
	}
	return out, nil
}

type salesStatsRow struct {
	TotalSales        decimal.Decimal `db:"total_sales"`
	TotalTransactions int64           `db:"total_transactions"`
	AverageSale       decimal.Decimal `db:"average_sale"`
	HighestSale       decimal.Decimal `db:"highest_sale"`
	LowestSale        decimal.Decimal `db:"lowest_sale"`
}

func (r *DashboardRepo) GetSalesStats(ctx context.Context, from time.Time) (repository.SalesStatsResult, error) {
	const q = `
	SELECT
	    COALESCE(SUM(total_amount), 0)  AS total_sales,
	    COUNT(*)                        AS total_transactions,
	    COALESCE(AVG(total_amount), 0)  AS average_sale,
	    COALESCE(MAX(total_amount), 0)  AS highest_sale,
	    COALESCE(MIN(total_amount), 0)  AS lowest_sale
	FROM sales_transactions
	WHERE transaction_date >= ?`

	var row salesStatsRow
	if err := r.get(ctx, "GetSalesStats", &row, q, civil(from)); err != nil {
		return repository.SalesStatsResult{}, err
	}
	return repository.SalesStatsResult(row), nil
}

type inventoryStatsRow struct {
	TotalProducts int64           `db:"total_products"`
	TotalStock    int64           `db:"total_stock"`
	AverageStock  decimal.Decimal `db:"average_stock"`
	LowStockItems int64           `db:"low_stock_items"`
}

func (r *DashboardRepo) GetInventoryStats(ctx context.Context) (repository.InventoryStatsResult, error) {
	const q = `
	SELECT
	    COUNT(*)                                                  AS total_products,
	    COALESCE(SUM(quantity_in_stock), 0)                       AS total_stock,
	    COALESCE(AVG(quantity_in_stock), 0)                       AS average_stock,
	    COUNT(CASE WHEN quantity_in_stock <= reorder_level THEN 1 END) AS low_stock_items
	FROM products`

	var row inventoryStatsRow
	if err := r.get(ctx, "GetInventoryStats", &row, q); err != nil {
		return repository.InventoryStatsResult{}, err
	}
	return repository.InventoryStatsResult(row), nil
}

type deliveryMetricRow struct {
	Status          string          `db:"delivery_status"`
	Count           int64           `db:"count"`
	AvgDeliveryTime decimal.Decimal `db:"avg_delivery_time"`
}

func (r *DashboardRepo) GetDeliveryMetrics(ctx context.Context, from, asOf time.Time) ([]repository.DeliveryMetricResult, error) {
	const q = `
	SELECT
	    COALESCE(delivery_status, 'Unknown') AS delivery_status,
	    COUNT(*)                             AS count,
	    COALESCE(AVG(TIMESTAMPDIFF(HOUR, created_at,
	        CASE WHEN delivery_status = 'Delivered' THEN delivery_date ELSE ? END
	    )), 0)                               AS avg_delivery_time
	FROM delivery_records
	WHERE created_at >= ?
	GROUP BY delivery_status`

	var rows []deliveryMetricRow
	if err := r.selectAll(ctx, "GetDeliveryMetrics", &rows, q, civil(asOf), civil(from)); err != nil {
		return nil, err
	}
	out := make([]repository.DeliveryMetricResult, 0, len(rows))
	for _, row := range rows {
		out = append(out, repository.DeliveryMetricResult(row))
	}
	return out, nil
}

func (r *DashboardRepo) Ping(ctx context.Context) error {
	conn, err := r.acquire(ctx, "Ping")
	if err != nil {
		return err
	}
	defer conn.Close()
	return classify("Ping", conn.PingContext(ctx))
}
