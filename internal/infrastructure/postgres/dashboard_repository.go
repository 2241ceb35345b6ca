package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/agri-dashboard/internal/domain"
	"github.com/jhoicas/agri-dashboard/internal/domain/entity"
	"github.com/jhoicas/agri-dashboard/internal/domain/repository"
)

var _ repository.DashboardRepository = (*DashboardRepo)(nil)

// conn lo que el repositorio usa de una conexión tomada del pool.
type conn interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
}

// connSource entrega una conexión y la función que la devuelve al pool.
type connSource interface {
	Acquire(ctx context.Context) (conn, func(), error)
}

type poolSource struct{ pool *pgxpool.Pool }

func (s poolSource) Acquire(ctx context.Context) (conn, func(), error) {
	c, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, nil, err
	}
	return c, c.Release, nil
}

// DashboardRepo consultas de solo lectura del tablero sobre PostgreSQL.
type DashboardRepo struct {
	src            connSource
	acquireTimeout time.Duration
}

// NewDashboardRepository construye el adaptador. acquireTimeout acota la espera
// por una conexión libre del pool.
func NewDashboardRepository(pool *pgxpool.Pool, acquireTimeout time.Duration) *DashboardRepo {
	return &DashboardRepo{src: poolSource{pool: pool}, acquireTimeout: acquireTimeout}
}

// acquire toma una conexión del pool o falla con ErrStoreUnavailable al vencer el plazo.
// El llamador debe invocar release.
func (r *DashboardRepo) acquire(ctx context.Context, op string) (c conn, release func(), err error) {
	actx := ctx
	if r.acquireTimeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, r.acquireTimeout)
		defer cancel()
	}
	c, release, err = r.src.Acquire(actx)
	if err != nil {
		return nil, nil, fmt.Errorf("dashboard.%s acquire: %w: %w", op, domain.ErrStoreUnavailable, err)
	}
	return c, release, nil
}

// query adquiere conexión, ejecuta la consulta y entrega cada fila a scan.
func (r *DashboardRepo) query(ctx context.Context, op, sql string, scan func(pgx.Rows) error, args ...any) error {
	c, release, err := r.acquire(ctx, op)
	if err != nil {
		return err
	}
	defer release()

	rows, err := c.Query(ctx, sql, args...)
	if err != nil {
		return classify(op, err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return shapeErr(op, err)
		}
	}
	return classify(op, rows.Err())
}

// queryRow igual que query para consultas de una sola fila.
func (r *DashboardRepo) queryRow(ctx context.Context, op, sql string, dest []any, args ...any) error {
	c, release, err := r.acquire(ctx, op)
	if err != nil {
		return err
	}
	defer release()

	if err := c.QueryRow(ctx, sql, args...).Scan(dest...); err != nil {
		return classifyScan(op, err)
	}
	return nil
}

// classifyScan distingue fallos de ejecución de fallos de conversión de columnas.
func classifyScan(op string, err error) error {
	var argErr pgx.ScanArgError
	if errors.As(err, &argErr) {
		return shapeErr(op, err)
	}
	return classify(op, err)
}

// GetOverview las cuatro consultas de KPIs sobre una sola conexión y una misma foto.
func (r *DashboardRepo) GetOverview(ctx context.Context, monthStart, monthEnd, asOf time.Time) (repository.OverviewResult, error) {
	const (
		salesQ = `
		SELECT COALESCE(SUM(total_amount), 0)
		FROM sales_transactions
		WHERE transaction_date >= $1 AND transaction_date < $2`
		stockQ = `
		SELECT COALESCE(SUM(quantity_in_stock), 0)::BIGINT
		FROM products`
		pendingQ = `
		SELECT COUNT(*)
		FROM delivery_records
		WHERE delivery_status = 'Pending'`
		forecastQ = `
		SELECT report_data::TEXT
		FROM forecast_reports
		WHERE report_date <= $1::DATE
		ORDER BY report_date DESC, report_id DESC
		LIMIT 1`
	)

	var res repository.OverviewResult
	c, release, err := r.acquire(ctx, "GetOverview")
	if err != nil {
		return res, err
	}
	defer release()

	err = readOnlySnapshot(ctx, c, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, salesQ, monthStart, monthEnd).Scan(&res.MonthSales); err != nil {
			return classifyScan("GetOverview sales", err)
		}
		if err := tx.QueryRow(ctx, stockQ).Scan(&res.TotalStock); err != nil {
			return classifyScan("GetOverview stock", err)
		}
		if err := tx.QueryRow(ctx, pendingQ).Scan(&res.PendingDeliveries); err != nil {
			return classifyScan("GetOverview pending", err)
		}
		var data *string
		err := tx.QueryRow(ctx, forecastQ, asOf).Scan(&data)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
		case err != nil:
			return classifyScan("GetOverview forecast", err)
		case data != nil:
			res.LatestForecast = []byte(*data)
		}
		return nil
	})
	if err != nil {
		return repository.OverviewResult{}, classify("GetOverview", err)
	}
	return res, nil
}

// GetDailySales ventas por día calendario en [from, to].
func (r *DashboardRepo) GetDailySales(ctx context.Context, from, to time.Time) ([]repository.DailySalesResult, error) {
	const q = `
	SELECT
	    transaction_date::DATE              AS day,
	    COALESCE(SUM(total_amount), 0)      AS total_amount,
	    COUNT(*)                            AS transaction_count
	FROM sales_transactions
	WHERE transaction_date >= $1 AND transaction_date <= $2
	GROUP BY 1
	ORDER BY 1`

	results := []repository.DailySalesResult{}
	err := r.query(ctx, "GetDailySales", q, func(rows pgx.Rows) error {
		var row repository.DailySalesResult
		if err := rows.Scan(&row.Day, &row.TotalAmount, &row.TransactionCount); err != nil {
			return err
		}
		results = append(results, row)
		return nil
	}, from, to)
	return results, err
}

// ListStockedProducts productos con stock positivo, por id.
func (r *DashboardRepo) ListStockedProducts(ctx context.Context) ([]entity.Product, error) {
	const q = `
	SELECT
	    product_id,
	    COALESCE(product_name, ''),
	    COALESCE(category, ''),
	    COALESCE(quantity_in_stock, 0)::BIGINT,
	    COALESCE(reorder_level, 0)::BIGINT
	FROM products
	WHERE quantity_in_stock > 0
	ORDER BY product_id`

	results := []entity.Product{}
	err := r.query(ctx, "ListStockedProducts", q, func(rows pgx.Rows) error {
		var p entity.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.QuantityInStock, &p.ReorderLevel); err != nil {
			return err
		}
		results = append(results, p)
		return nil
	})
	return results, err
}

// CountDeliveriesByStatus entregas por estado desde from, en el orden fijo de estados.
func (r *DashboardRepo) CountDeliveriesByStatus(ctx context.Context, from time.Time) ([]repository.DeliveryCountResult, error) {
	const q = `
	SELECT COALESCE(delivery_status::TEXT, 'Unknown') AS status, COUNT(*)
	FROM delivery_records
	WHERE delivery_date >= $1
	GROUP BY 1
	ORDER BY CASE COALESCE(delivery_status::TEXT, 'Unknown')
	    WHEN 'Pending' THEN 0 WHEN 'In Transit' THEN 1 WHEN 'Delivered' THEN 2 ELSE 3
	END, 1`

	results := []repository.DeliveryCountResult{}
	err := r.query(ctx, "CountDeliveriesByStatus", q, func(rows pgx.Rows) error {
		var row repository.DeliveryCountResult
		if err := rows.Scan(&row.Status, &row.Count); err != nil {
			return err
		}
		results = append(results, row)
		return nil
	}, from)
	return results, err
}

// GetLatestForecast último pronóstico con report_date <= asOf; nil si no hay.
func (r *DashboardRepo) GetLatestForecast(ctx context.Context, asOf time.Time) (*entity.ForecastReport, error) {
	const q = `
	SELECT
	    f.report_id,
	    f.report_date,
	    COALESCE(f.report_data::TEXT, ''),
	    COALESCE(f.created_by, 0),
	    COALESCE(u.full_name, 'Unknown')
	FROM forecast_reports f
	LEFT JOIN users u ON u.user_id = f.created_by
	WHERE f.report_date <= $1::DATE
	ORDER BY f.report_date DESC, f.report_id DESC
	LIMIT 1`

	var (
		f    entity.ForecastReport
		data string
	)
	err := r.queryRow(ctx, "GetLatestForecast", q,
		[]any{&f.ID, &f.ReportDate, &data, &f.CreatedBy, &f.CreatedByName}, asOf)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	f.ReportData = []byte(data)
	return &f, nil
}

// ListRecentInventoryLogs últimos movimientos con nombres de producto y usuario.
func (r *DashboardRepo) ListRecentInventoryLogs(ctx context.Context, limit int) ([]entity.InventoryLog, error) {
	const q = `
	SELECT
	    il.log_date,
	    COALESCE(p.product_name, 'Unknown Product'),
	    COALESCE(il.action_type::TEXT, ''),
	    COALESCE(il.quantity, 0)::BIGINT,
	    COALESCE(u.full_name, 'Unknown')
	FROM inventory_logs il
	LEFT JOIN products p ON p.product_id = il.product_id
	LEFT JOIN users    u ON u.user_id    = il.user_id
	ORDER BY il.log_date DESC
	LIMIT $1`

	results := []entity.InventoryLog{}
	err := r.query(ctx, "ListRecentInventoryLogs", q, func(rows pgx.Rows) error {
		var l entity.InventoryLog
		if err := rows.Scan(&l.LogDate, &l.ProductName, &l.ActionType, &l.Quantity, &l.PerformedBy); err != nil {
			return err
		}
		results = append(results, l)
		return nil
	}, limit)
	return results, err
}

// GetTopProducts productos con mayor ingreso desde from.
func (r *DashboardRepo) GetTopProducts(ctx context.Context, from time.Time, limit int) ([]repository.ProductSalesResult, error) {
	const q = `
	SELECT
	    COALESCE(p.product_name, ''),
	    COALESCE(p.category, ''),
	    COUNT(s.transaction_id)                    AS total_sales,
	    COALESCE(SUM(s.quantity_sold), 0)::BIGINT  AS units_sold,
	    COALESCE(SUM(s.total_amount), 0)           AS revenue
	FROM products p
	JOIN sales_transactions s ON s.product_id = p.product_id
	WHERE s.transaction_date >= $1
	GROUP BY p.product_id, p.product_name, p.category
	ORDER BY revenue DESC
	LIMIT $2`

	results := []repository.ProductSalesResult{}
	err := r.query(ctx, "GetTopProducts", q, func(rows pgx.Rows) error {
		var row repository.ProductSalesResult
		if err := rows.Scan(&row.ProductName, &row.Category, &row.TotalSales, &row.UnitsSold, &row.Revenue); err != nil {
			return err
		}
		results = append(results, row)
		return nil
	}, from, limit)
	return results, err
}

// GetCategorySales ventas por categoría desde from.
func (r *DashboardRepo) GetCategorySales(ctx context.Context, from time.Time) ([]repository.CategorySalesResult, error) {
	const q = `
	SELECT
	    COALESCE(p.category, '')                   AS category,
	    COUNT(s.transaction_id)                    AS total_sales,
	    COALESCE(SUM(s.quantity_sold), 0)::BIGINT  AS units_sold,
	    COALESCE(SUM(s.total_amount), 0)           AS revenue
	FROM products p
	JOIN sales_transactions s ON s.product_id = p.product_id
	WHERE s.transaction_date >= $1
	GROUP BY p.category
	ORDER BY revenue DESC`

	results := []repository.CategorySalesResult{}
	err := r.query(ctx, "GetCategorySales", q, func(rows pgx.Rows) error {
		var row repository.CategorySalesResult
		if err := rows.Scan(&row.Category, &row.TotalSales, &row.UnitsSold, &row.Revenue); err != nil {
			return err
		}
		results = append(results, row)
		return nil
	}, from)
	return results, err
}

// GetSalesStats total, conteo, promedio, máximo y mínimo de ventas desde from.
func (r *DashboardRepo) GetSalesStats(ctx context.Context, from time.Time) (repository.SalesStatsResult, error) {
	const q = `
	SELECT
	    COALESCE(SUM(total_amount), 0),
	    COUNT(*),
	    COALESCE(AVG(total_amount), 0),
	    COALESCE(MAX(total_amount), 0),
	    COALESCE(MIN(total_amount), 0)
	FROM sales_transactions
	WHERE transaction_date >= $1`

	var s repository.SalesStatsResult
	err := r.queryRow(ctx, "GetSalesStats", q,
		[]any{&s.TotalSales, &s.TotalTransactions, &s.AverageSale, &s.HighestSale, &s.LowestSale}, from)
	return s, err
}

// GetInventoryStats estadísticas del catálogo con conteo de stock bajo.
func (r *DashboardRepo) GetInventoryStats(ctx context.Context) (repository.InventoryStatsResult, error) {
	const q = `
	SELECT
	    COUNT(*),
	    COALESCE(SUM(quantity_in_stock), 0)::BIGINT,
	    COALESCE(AVG(quantity_in_stock), 0),
	    COUNT(*) FILTER (WHERE quantity_in_stock <= reorder_level)
	FROM products`

	var s repository.InventoryStatsResult
	err := r.queryRow(ctx, "GetInventoryStats", q,
		[]any{&s.TotalProducts, &s.TotalStock, &s.AverageStock, &s.LowStockItems})
	return s, err
}

// GetDeliveryMetrics horas enteras promedio desde created_at hasta delivery_date
// (entregadas) o hasta asOf (resto), por estado.
func (r *DashboardRepo) GetDeliveryMetrics(ctx context.Context, from, asOf time.Time) ([]repository.DeliveryMetricResult, error) {
	const q = `
	SELECT
	    COALESCE(delivery_status::TEXT, 'Unknown') AS status,
	    COUNT(*),
	    COALESCE(AVG(TRUNC(EXTRACT(EPOCH FROM (
	        CASE WHEN delivery_status = 'Delivered' THEN delivery_date::TIMESTAMPTZ
	             ELSE $2::TIMESTAMPTZ
	        END - created_at::TIMESTAMPTZ)) / 3600)), 0)
	FROM delivery_records
	WHERE created_at >= $1
	GROUP BY 1
	ORDER BY 1`

	results := []repository.DeliveryMetricResult{}
	err := r.query(ctx, "GetDeliveryMetrics", q, func(rows pgx.Rows) error {
		var row repository.DeliveryMetricResult
		if err := rows.Scan(&row.Status, &row.Count, &row.AvgDeliveryTime); err != nil {
			return err
		}
		results = append(results, row)
		return nil
	}, from, asOf)
	return results, err
}

// Ping verifica la DB con una conexión del pool.
func (r *DashboardRepo) Ping(ctx context.Context) error {
	c, release, err := r.acquire(ctx, "Ping")
	if err != nil {
		return err
	}
	defer release()
	return classify("Ping", c.Ping(ctx))
}
