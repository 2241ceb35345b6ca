package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/agri-dashboard/internal/domain"
)

// ─── Fuentes de conexión de prueba ──────────────────────────────────────────

type mockSource struct{ mock pgxmock.PgxPoolIface }

func (s mockSource) Acquire(ctx context.Context) (conn, func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return s.mock, func() {}, nil
}

// exhaustedSource simula un pool sin conexiones libres: Acquire espera hasta que vence el contexto.
type exhaustedSource struct{}

func (exhaustedSource) Acquire(ctx context.Context) (conn, func(), error) {
	<-ctx.Done()
	return nil, nil, ctx.Err()
}

func newMockRepo(t *testing.T) (*DashboardRepo, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return &DashboardRepo{src: mockSource{mock: mock}, acquireTimeout: time.Second}, mock
}

var (
	pgNow   = time.Date(2026, time.March, 18, 15, 30, 0, 0, time.UTC)
	pgToday = time.Date(2026, time.March, 18, 0, 0, 0, 0, time.UTC)
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// ─── Overview ───────────────────────────────────────────────────────────────

func TestGetOverview_SnapshotDeSoloLectura(t *testing.T) {
	repo, mock := newMockRepo(t)
	monthStart := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0)
	data := `{"sales_growth": 12.5}`

	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	mock.ExpectQuery(`SELECT COALESCE\(SUM\(total_amount\), 0\)\s+FROM sales_transactions`).
		WithArgs(monthStart, monthEnd).
		WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow(dec("1520.46")))
	mock.ExpectQuery(`SUM\(quantity_in_stock\), 0\)::BIGINT`).
		WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow(int64(340)))
	mock.ExpectQuery(`delivery_status = 'Pending'`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(3)))
	mock.ExpectQuery(`report_date <= \$1::DATE`).
		WithArgs(pgToday).
		WillReturnRows(pgxmock.NewRows([]string{"report_data"}).AddRow(&data))
	mock.ExpectRollback()

	res, err := repo.GetOverview(context.Background(), monthStart, monthEnd, pgToday)
	require.NoError(t, err)

	assert.Equal(t, "1520.46", res.MonthSales.String())
	assert.EqualValues(t, 340, res.TotalStock)
	assert.EqualValues(t, 3, res.PendingDeliveries)
	assert.JSONEq(t, data, string(res.LatestForecast))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOverview_SinPronostico_Nil(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	mock.ExpectQuery(`FROM sales_transactions`).WillReturnRows(pgxmock.NewRows([]string{"c"}).AddRow(decimal.Zero))
	mock.ExpectQuery(`FROM products`).WillReturnRows(pgxmock.NewRows([]string{"c"}).AddRow(int64(0)))
	mock.ExpectQuery(`FROM delivery_records`).WillReturnRows(pgxmock.NewRows([]string{"c"}).AddRow(int64(0)))
	mock.ExpectQuery(`FROM forecast_reports`).WillReturnRows(pgxmock.NewRows([]string{"report_data"}))
	mock.ExpectRollback()

	res, err := repo.GetOverview(context.Background(), pgToday, pgToday, pgToday)
	require.NoError(t, err)
	assert.Nil(t, res.LatestForecast)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ─── Series y listados ──────────────────────────────────────────────────────

func TestGetDailySales_AgrupaPorDiaCalendario(t *testing.T) {
	repo, mock := newMockRepo(t)
	from := pgToday.AddDate(0, 0, -6)
	day := pgToday.AddDate(0, 0, -1)

	mock.ExpectQuery(`transaction_date::DATE\s+AS day`).
		WithArgs(from, pgNow).
		WillReturnRows(pgxmock.NewRows([]string{"day", "total_amount", "transaction_count"}).
			AddRow(day, dec("200.00"), int64(2)).
			AddRow(pgToday, dec("75.5"), int64(1)))

	out, err := repo.GetDailySales(context.Background(), from, pgNow)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, day, out[0].Day)
	assert.Equal(t, "200", out[0].TotalAmount.String())
	assert.EqualValues(t, 1, out[1].TransactionCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListStockedProducts_SoloStockPositivo(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`WHERE quantity_in_stock > 0\s+ORDER BY product_id`).
		WillReturnRows(pgxmock.NewRows([]string{"product_id", "product_name", "category", "quantity_in_stock", "reorder_level"}).
			AddRow(int64(1), "Rice ", "Grains", int64(40), int64(10)).
			AddRow(int64(2), "", "", int64(5), int64(0)))

	out, err := repo.ListStockedProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "Rice ", out[0].Name)
	assert.Equal(t, "Unknown Product", out[1].DisplayName())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountDeliveriesByStatus_OrdenFijoEnSQL(t *testing.T) {
	repo, mock := newMockRepo(t)
	from := pgToday.AddDate(0, 0, -30)

	mock.ExpectQuery(`WHEN 'Pending' THEN 0 WHEN 'In Transit' THEN 1 WHEN 'Delivered' THEN 2 ELSE 3`).
		WithArgs(from).
		WillReturnRows(pgxmock.NewRows([]string{"status", "count"}).
			AddRow("Pending", int64(4)).
			AddRow("Delivered", int64(9)))

	out, err := repo.CountDeliveriesByStatus(context.Background(), from)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "Pending", out[0].Status)
	assert.EqualValues(t, 9, out[1].Count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetLatestForecast_DesempatePorId(t *testing.T) {
	repo, mock := newMockRepo(t)
	date := pgToday.AddDate(0, 0, -3)

	mock.ExpectQuery(`ORDER BY f.report_date DESC, f.report_id DESC\s+LIMIT 1`).
		WithArgs(pgToday).
		WillReturnRows(pgxmock.NewRows([]string{"report_id", "report_date", "report_data", "created_by", "created_by_name"}).
			AddRow(int64(9), date, `{"market_share": 4}`, int64(2), "Ana Cruz"))

	f, err := repo.GetLatestForecast(context.Background(), pgToday)
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.EqualValues(t, 9, f.ID)
	assert.Equal(t, date, f.ReportDate)
	assert.JSONEq(t, `{"market_share": 4}`, string(f.ReportData))
	assert.Equal(t, "Ana Cruz", f.CreatedByName)
}

func TestGetLatestForecast_SinFilas_Nil(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`FROM forecast_reports f`).
		WillReturnRows(pgxmock.NewRows([]string{"report_id", "report_date", "report_data", "created_by", "created_by_name"}))

	f, err := repo.GetLatestForecast(context.Background(), pgToday)
	require.NoError(t, err)
	assert.Nil(t, f)
}

func TestListRecentInventoryLogs_Limite(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`ORDER BY il.log_date DESC\s+LIMIT \$1`).
		WithArgs(10).
		WillReturnRows(pgxmock.NewRows([]string{"log_date", "product_name", "action_type", "quantity", "full_name"}).
			AddRow(pgNow, "Rice", "restock", int64(20), "Unknown"))

	out, err := repo.ListRecentInventoryLogs(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "restock", out[0].ActionType)
	assert.EqualValues(t, 20, out[0].Quantity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTopProducts_PorIngreso(t *testing.T) {
	repo, mock := newMockRepo(t)
	from := pgToday.AddDate(0, 0, -30)

	mock.ExpectQuery(`ORDER BY revenue DESC\s+LIMIT \$2`).
		WithArgs(from, 5).
		WillReturnRows(pgxmock.NewRows([]string{"product_name", "category", "total_sales", "units_sold", "revenue"}).
			AddRow("Mango", "Fruits", int64(3), int64(30), dec("900.00")))

	out, err := repo.GetTopProducts(context.Background(), from, 5)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Mango", out[0].ProductName)
	assert.EqualValues(t, 30, out[0].UnitsSold)
	assert.Equal(t, "900", out[0].Revenue.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetCategorySales(t *testing.T) {
	repo, mock := newMockRepo(t)
	from := pgToday.AddDate(0, 0, -30)

	mock.ExpectQuery(`GROUP BY p.category`).
		WithArgs(from).
		WillReturnRows(pgxmock.NewRows([]string{"category", "total_sales", "units_sold", "revenue"}).
			AddRow("", int64(1), int64(2), dec("10"))) // COALESCE deja categoría vacía

	out, err := repo.GetCategorySales(context.Background(), from)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Empty(t, out[0].Category)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ─── Estadísticas ───────────────────────────────────────────────────────────

func TestGetSalesStats_UnaFila(t *testing.T) {
	repo, mock := newMockRepo(t)
	from := pgToday.AddDate(0, 0, -30)

	mock.ExpectQuery(`COALESCE\(MIN\(total_amount\), 0\)`).
		WithArgs(from).
		WillReturnRows(pgxmock.NewRows([]string{"sum", "count", "avg", "max", "min"}).
			AddRow(dec("300"), int64(3), dec("100"), dec("150"), dec("50")))

	s, err := repo.GetSalesStats(context.Background(), from)
	require.NoError(t, err)
	assert.EqualValues(t, 3, s.TotalTransactions)
	assert.Equal(t, "150", s.HighestSale.String())
	assert.Equal(t, "50", s.LowestSale.String())
}

func TestGetInventoryStats_StockBajoConFilter(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`COUNT\(\*\)\s+FILTER\s+\(WHERE quantity_in_stock <= reorder_level\)`).
		WillReturnRows(pgxmock.NewRows([]string{"count", "sum", "avg", "low"}).
			AddRow(int64(4), int64(100), dec("25.0000"), int64(1)))

	s, err := repo.GetInventoryStats(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 4, s.TotalProducts)
	assert.EqualValues(t, 1, s.LowStockItems)
	assert.Equal(t, "25", s.AverageStock.String())
}

func TestGetDeliveryMetrics_AnclaTemporal(t *testing.T) {
	repo, mock := newMockRepo(t)
	from := pgToday.AddDate(0, 0, -30)

	mock.ExpectQuery(`ELSE \$2::TIMESTAMPTZ`).
		WithArgs(from, pgNow).
		WillReturnRows(pgxmock.NewRows([]string{"status", "count", "avg"}).
			AddRow("Delivered", int64(2), dec("36")))

	out, err := repo.GetDeliveryMetrics(context.Background(), from, pgNow)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "36", out[0].AvgDeliveryTime.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPing(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectPing()

	assert.NoError(t, repo.Ping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ─── Errores ────────────────────────────────────────────────────────────────

func TestConsultaFallida_ErrQueryFailed(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`FROM sales_transactions`).
		WillReturnError(&pgconn.PgError{Code: "42P01", Message: `relation "sales_transactions" does not exist`})

	_, err := repo.GetCategorySales(context.Background(), pgToday)
	assert.ErrorIs(t, err, domain.ErrQueryFailed)
}

func TestTipoDeColumnaInesperado_ErrInvalidResultShape(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`FROM delivery_records`).
		WillReturnRows(pgxmock.NewRows([]string{"status", "count"}).AddRow("Pending", "muchos"))

	_, err := repo.CountDeliveriesByStatus(context.Background(), pgToday)
	assert.ErrorIs(t, err, domain.ErrInvalidResultShape)
}

func TestPoolAgotado_FallaDentroDelPlazoDeAcquire(t *testing.T) {
	repo := &DashboardRepo{src: exhaustedSource{}, acquireTimeout: 100 * time.Millisecond}

	start := time.Now()
	_, err := repo.GetSalesStats(context.Background(), pgToday)
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
	assert.Less(t, elapsed, time.Second, "no espera más que el plazo de acquire")
}
