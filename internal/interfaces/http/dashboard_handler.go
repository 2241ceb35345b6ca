package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	appanalytics "github.com/jhoicas/agri-dashboard/internal/application/analytics"
	"github.com/jhoicas/agri-dashboard/internal/application/dto"
)

// DashboardHandler maneja los endpoints de lectura del tablero.
type DashboardHandler struct {
	uc           *appanalytics.DashboardUseCase
	errs         errorResponder
	queryTimeout time.Duration
}

// NewDashboardHandler construye el handler. queryTimeout acota cada petición contra la DB.
func NewDashboardHandler(uc *appanalytics.DashboardUseCase, errs errorResponder, queryTimeout time.Duration) *DashboardHandler {
	return &DashboardHandler{uc: uc, errs: errs, queryTimeout: queryTimeout}
}

// respond ejecuta fn con el plazo de consulta y envuelve el resultado en el sobre uniforme.
func respond[T any](h *DashboardHandler, c *fiber.Ctx, feed string, fn func(ctx context.Context) (T, error)) error {
	ctx := c.UserContext()
	if h.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.queryTimeout)
		defer cancel()
	}
	data, err := fn(ctx)
	if err != nil {
		return h.errs.fail(c, feed, err)
	}
	return c.JSON(dto.NewEnvelope(data, h.uc.Now()))
}

// Overview godoc
// @Summary      KPIs del tablero
// @Description  Ventas del mes, stock total, entregas pendientes y crecimiento del último pronóstico.
// @Tags         dashboard
// @Produce      json
// @Success      200  {object}  dto.Envelope{data=dto.OverviewDTO}
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/overview [get]
func (h *DashboardHandler) Overview(c *fiber.Ctx) error {
	return respond(h, c, "overview", h.uc.Overview)
}

// Sales godoc
// @Summary      Tendencia de ventas de 7 días
// @Tags         dashboard
// @Produce      json
// @Param        fill  query  bool  false  "Rellenar con cero los días sin ventas"
// @Success      200  {object}  dto.Envelope{data=[]dto.SalesPointDTO}
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/sales [get]
func (h *DashboardHandler) Sales(c *fiber.Ctx) error {
	fill := c.QueryBool("fill", false)
	return respond(h, c, "sales", func(ctx context.Context) ([]dto.SalesPointDTO, error) {
		return h.uc.SalesTrend(ctx, fill)
	})
}

// Products godoc
// @Summary      Niveles de inventario (top 10)
// @Tags         dashboard
// @Produce      json
// @Success      200  {object}  dto.Envelope{data=[]dto.ProductStockDTO}
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/products [get]
func (h *DashboardHandler) Products(c *fiber.Ctx) error {
	return respond(h, c, "products", h.uc.InventoryLevels)
}

// Deliveries godoc
// @Summary      Entregas por estado (30 días)
// @Tags         dashboard
// @Produce      json
// @Success      200  {object}  dto.Envelope{data=[]dto.DeliveryStatusDTO}
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/deliveries [get]
func (h *DashboardHandler) Deliveries(c *fiber.Ctx) error {
	return respond(h, c, "deliveries", h.uc.DeliveryStatus)
}

// Forecasts godoc
// @Summary      Último pronóstico de crecimiento
// @Tags         dashboard
// @Produce      json
// @Success      200  {object}  dto.Envelope{data=[]dto.ForecastDTO}
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/forecasts [get]
func (h *DashboardHandler) Forecasts(c *fiber.Ctx) error {
	return respond(h, c, "forecasts", h.uc.GrowthForecast)
}

// InventoryLogs godoc
// @Summary      Últimos 10 movimientos de inventario
// @Tags         dashboard
// @Produce      json
// @Success      200  {object}  dto.Envelope{data=[]dto.InventoryLogDTO}
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/inventory-logs [get]
func (h *DashboardHandler) InventoryLogs(c *fiber.Ctx) error {
	return respond(h, c, "inventory-logs", h.uc.InventoryActivity)
}

// TopProducts godoc
// @Summary      Top 5 productos por ingreso (30 días)
// @Tags         dashboard
// @Produce      json
// @Success      200  {object}  dto.Envelope{data=[]dto.TopProductDTO}
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/top-products [get]
func (h *DashboardHandler) TopProducts(c *fiber.Ctx) error {
	return respond(h, c, "top-products", h.uc.TopProducts)
}

// CategorySales godoc
// @Summary      Ventas por categoría (30 días)
// @Tags         dashboard
// @Produce      json
// @Success      200  {object}  dto.Envelope{data=[]dto.CategorySalesDTO}
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/category-sales [get]
func (h *DashboardHandler) CategorySales(c *fiber.Ctx) error {
	return respond(h, c, "category-sales", h.uc.CategorySales)
}

// SalesStats godoc
// @Summary      Estadísticas de ventas (30 días)
// @Tags         stats
// @Produce      json
// @Success      200  {object}  dto.Envelope{data=dto.SalesStatsDTO}
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/stats/total-sales [get]
func (h *DashboardHandler) SalesStats(c *fiber.Ctx) error {
	return respond(h, c, "total-sales", h.uc.SalesStats)
}

// InventorySummary godoc
// @Summary      Estadísticas de inventario
// @Tags         stats
// @Produce      json
// @Success      200  {object}  dto.Envelope{data=dto.InventorySummaryDTO}
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/stats/inventory-summary [get]
func (h *DashboardHandler) InventorySummary(c *fiber.Ctx) error {
	return respond(h, c, "inventory-summary", h.uc.InventorySummary)
}

// DeliveryMetrics godoc
// @Summary      Tiempo medio de entrega por estado (30 días)
// @Tags         stats
// @Produce      json
// @Success      200  {object}  dto.Envelope{data=[]dto.DeliveryMetricDTO}
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/stats/delivery-metrics [get]
func (h *DashboardHandler) DeliveryMetrics(c *fiber.Ctx) error {
	return respond(h, c, "delivery-metrics", h.uc.DeliveryMetrics)
}

// Health godoc
// @Summary      Estado del servicio y de la base de datos
// @Tags         health
// @Produce      json
// @Success      200  {object}  dto.Envelope{data=dto.HealthDTO}
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /health [get]
func (h *DashboardHandler) Health(c *fiber.Ctx) error {
	ctx := c.UserContext()
	if h.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.queryTimeout)
		defer cancel()
	}
	if err := h.uc.Health(ctx); err != nil {
		h.errs.log.Warn().Err(err).Msg("health: base de datos no disponible")
		return h.errs.write(c, fiber.StatusServiceUnavailable, dto.CodeDBConnectionFailed, "base de datos no disponible", err)
	}
	return c.JSON(dto.NewEnvelope(dto.HealthDTO{Status: "ok", Database: "up"}, h.uc.Now()))
}
