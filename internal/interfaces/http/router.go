package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"

	appanalytics "github.com/jhoicas/agri-dashboard/internal/application/analytics"
	"github.com/jhoicas/agri-dashboard/pkg/logger"
)

// AppConfig opciones de la aplicación Fiber de la API.
type AppConfig struct {
	Name       string
	Log        *logger.Logger
	Production bool
	Tracing    bool
	Metrics    *Metrics // nil = sin métricas
}

// NewApp crea la app Fiber con la cadena de middlewares común:
// recover -> requestid -> tracing -> log -> métricas.
func NewApp(cfg AppConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      cfg.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
		ErrorHandler: ErrorHandler(cfg.Log, cfg.Production),
	})
	app.Use(recover.New())
	app.Use(RequestIDMiddleware())
	if cfg.Tracing {
		app.Use(TracingMiddleware(cfg.Name))
	}
	app.Use(RequestLogger(cfg.Log))
	if cfg.Metrics != nil {
		app.Use(cfg.Metrics.Middleware())
		app.Get("/metrics", cfg.Metrics.Handler())
	}
	return app
}

// RouterDeps dependencias para el router.
type RouterDeps struct {
	DashboardUC  *appanalytics.DashboardUseCase
	Log          *logger.Logger
	Production   bool
	QueryTimeout time.Duration
	Redis        *redis.Client // nil = sin caché
	CacheTTL     time.Duration
}

// Router registra las rutas de la API. La ruta comodín 404 va al final.
func Router(app *fiber.App, deps RouterDeps) {
	errs := errorResponder{log: deps.Log, production: deps.Production}
	h := NewDashboardHandler(deps.DashboardUC, errs, deps.QueryTimeout)

	app.Get("/health", h.Health)

	api := app.Group("/api")
	if deps.Redis != nil {
		api.Use(CacheMiddleware(deps.Redis, CacheConfig{TTL: deps.CacheTTL}, deps.Log))
	}
	api.Get("/overview", h.Overview)
	api.Get("/sales", h.Sales)
	api.Get("/products", h.Products)
	api.Get("/deliveries", h.Deliveries)
	api.Get("/forecasts", h.Forecasts)
	api.Get("/inventory-logs", h.InventoryLogs)
	api.Get("/top-products", h.TopProducts)
	api.Get("/category-sales", h.CategorySales)

	stats := api.Group("/stats")
	stats.Get("/total-sales", h.SalesStats)
	stats.Get("/inventory-summary", h.InventorySummary)
	stats.Get("/delivery-metrics", h.DeliveryMetrics)

	app.Use(NotFound)
}
