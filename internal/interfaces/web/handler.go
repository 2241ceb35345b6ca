package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/agri-dashboard/internal/application/dto"
	apphttp "github.com/jhoicas/agri-dashboard/internal/interfaces/http"
	"github.com/jhoicas/agri-dashboard/pkg/logger"
)

// EChartsURL script de ECharts que usan los gráficos generados.
const EChartsURL = "https://go-echarts.github.io/go-echarts-assets/assets/echarts.min.js"

// CodeUpstreamUnavailable el servicio de agregación no respondió al último refresco.
const CodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"

//go:embed templates/dashboard.html
var templatesFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templatesFS, "templates/dashboard.html"))

// HandlerConfig dependencias del tablero.
type HandlerConfig struct {
	Feeds           FeedSource
	KPIs            *KPIRefresher
	Currency        string
	RefreshInterval time.Duration
	Log             *logger.Logger
}

// Handler sirve la página del tablero y los KPIs.
type Handler struct {
	feeds    FeedSource
	kpis     *KPIRefresher
	currency string
	refresh  time.Duration
	log      *logger.Logger
}

func NewHandler(cfg HandlerConfig) *Handler {
	h := &Handler{
		feeds:    cfg.Feeds,
		kpis:     cfg.KPIs,
		currency: cfg.Currency,
		refresh:  cfg.RefreshInterval,
		log:      cfg.Log,
	}
	if h.refresh <= 0 {
		h.refresh = 5 * time.Minute
	}
	if h.log == nil {
		h.log = logger.Nop()
	}
	return h
}

type kpiTile struct {
	ID     string
	Label  string
	Value  string
	Failed bool
}

type tablePanel struct {
	Title       string
	Header      []string
	Rows        [][]string
	Placeholder string
	Failed      bool
}

type pageData struct {
	Title      string
	EChartsURL string
	Layout     Layout
	HasWidth   bool
	Breakpoint int
	DebounceMs int64
	PollMs     int64
	Currency   string
	KPIError   string
	Tiles      []kpiTile
	Panels     []Panel
	Tables     []tablePanel
}

// Page GET / : tiles de KPIs y gráficos. Cada panel se resuelve por separado:
// una fuente caída muestra su aviso y el resto se dibuja normalmente.
func (h *Handler) Page(c *fiber.Ctx) error {
	width := c.QueryInt("w", 0)
	layout := LayoutFor(width)
	feeds := LoadFeeds(c.UserContext(), h.feeds)
	h.logFeedErrors(c, feeds)

	data := pageData{
		Title:      "Agri Market Dashboard",
		EChartsURL: EChartsURL,
		Layout:     layout,
		HasWidth:   width > 0,
		Breakpoint: MobileBreakpoint,
		DebounceMs: DebounceDelay.Milliseconds(),
		PollMs:     KPIPollInterval(h.refresh).Milliseconds(),
		Currency:   h.currency,
		KPIError:   MsgKPIError,
		Tiles:      h.tiles(),
		Panels:     BuildPanels(feeds, layout, h.currency),
		Tables:     h.tables(feeds),
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		return fmt.Errorf("web.Page: %w", err)
	}
	c.Type("html", "utf-8")
	return c.Send(buf.Bytes())
}

func (h *Handler) logFeedErrors(c *fiber.Ctx, f Feeds) {
	for name, err := range map[string]error{
		"products":       f.Inventory.Err,
		"sales":          f.Sales.Err,
		"deliveries":     f.Deliveries.Err,
		"forecasts":      f.Forecasts.Err,
		"top-products":   f.TopProducts.Err,
		"category-sales": f.CategorySales.Err,
	} {
		if err != nil {
			h.log.Warn().Err(err).Str("feed", name).Str("request_id", apphttp.RequestID(c)).Msg("fuente del tablero no disponible")
		}
	}
}

// BuildPanels arma los cuatro paneles de gráficos a partir de las fuentes.
func BuildPanels(f Feeds, l Layout, currency string) []Panel {
	panels := make([]Panel, 0, 4)

	switch {
	case f.Inventory.Err != nil:
		panels = append(panels, errorPanel("inventoryChart", "Product Inventory Levels"))
	case len(f.Inventory.Data) == 0:
		panels = append(panels, emptyPanel("inventoryChart", "Product Inventory Levels", MsgNoData))
	default:
		panels = append(panels, chartPanel("inventoryChart", "Product Inventory Levels", InventoryChart(f.Inventory.Data, l)))
	}

	switch {
	case f.Sales.Err != nil:
		panels = append(panels, errorPanel("salesChart", "Daily Sales Trend"))
	case len(f.Sales.Data) == 0:
		panels = append(panels, emptyPanel("salesChart", "Daily Sales Trend", MsgNoData))
	default:
		panels = append(panels, chartPanel("salesChart", "Daily Sales Trend", SalesChart(f.Sales.Data, l, currency),
			currencyTooltipJS(currency), currencyJS(currency)))
	}

	if f.Deliveries.Err != nil {
		panels = append(panels, errorPanel("deliveryChart", "Delivery Status Distribution"))
	} else {
		panels = append(panels, chartPanel("deliveryChart", "Delivery Status Distribution", DeliveryChart(f.Deliveries.Data, l)))
	}

	switch {
	case f.Forecasts.Err != nil:
		panels = append(panels, errorPanel("forecastChart", "Growth Metrics"))
	case len(f.Forecasts.Data) == 0 || len(f.Forecasts.Data[0].ReportData) == 0:
		panels = append(panels, emptyPanel("forecastChart", "Growth Metrics", MsgNoForecast))
	default:
		panels = append(panels, chartPanel("forecastChart", "Growth Metrics", ForecastChart(f.Forecasts.Data[0], l)))
	}
	return panels
}

func (h *Handler) tables(f Feeds) []tablePanel {
	top := tablePanel{Title: "Top Products (30 days)", Header: []string{"Product", "Category", "Units", "Revenue"}}
	switch {
	case f.TopProducts.Err != nil:
		top.Placeholder, top.Failed = MsgChartError, true
	case len(f.TopProducts.Data) == 0:
		top.Placeholder = MsgNoData
	}
	for _, p := range f.TopProducts.Data {
		top.Rows = append(top.Rows, []string{p.ProductName, p.Category, FormatCount(p.UnitsSold), FormatCurrency(h.currency, p.Revenue)})
	}

	cat := tablePanel{Title: "Sales by Category (30 days)", Header: []string{"Category", "Transactions", "Units", "Revenue"}}
	switch {
	case f.CategorySales.Err != nil:
		cat.Placeholder, cat.Failed = MsgChartError, true
	case len(f.CategorySales.Data) == 0:
		cat.Placeholder = MsgNoData
	}
	for _, s := range f.CategorySales.Data {
		cat.Rows = append(cat.Rows, []string{s.Category, FormatCount(s.TotalSales), FormatCount(s.UnitsSold), FormatCurrency(h.currency, s.Revenue)})
	}
	return []tablePanel{top, cat}
}

// tiles valores iniciales de los KPIs según el último refresco.
func (h *Handler) tiles() []kpiTile {
	tiles := []kpiTile{
		{ID: "totalSales", Label: "Total Sales"},
		{ID: "totalProducts", Label: "Total Products"},
		{ID: "pendingDeliveries", Label: "Pending Deliveries"},
		{ID: "growthRate", Label: "Growth Rate"},
	}
	snap := h.kpis.Snapshot()
	switch {
	case snap.Err != nil:
		for i := range tiles {
			tiles[i].Value, tiles[i].Failed = MsgKPIError, true
		}
	case snap.Overview == nil:
		for i := range tiles {
			tiles[i].Value = "…"
		}
	default:
		o := snap.Overview
		tiles[0].Value = FormatCurrency(h.currency, o.TotalSales)
		tiles[1].Value = FormatCount(o.TotalProducts)
		tiles[2].Value = FormatCount(o.PendingDeliveries)
		tiles[3].Value = fmt.Sprintf("%.1f%%", o.GrowthRate)
	}
	return tiles
}

// KPIView cuerpo de GET /kpis.
type KPIView struct {
	Overview  *dto.OverviewDTO `json:"overview"`
	UpdatedAt string           `json:"updated_at,omitempty"`
}

// KPIs GET /kpis : última instantánea; 502 si el último refresco falló.
func (h *Handler) KPIs(c *fiber.Ctx) error {
	snap := h.kpis.Snapshot()
	now := time.Now()
	if snap.Err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(dto.NewErrorResponse(CodeUpstreamUnavailable, MsgKPIError, "", now))
	}
	view := KPIView{Overview: snap.Overview}
	if !snap.UpdatedAt.IsZero() {
		view.UpdatedAt = dto.Timestamp(snap.UpdatedAt)
	}
	return c.JSON(dto.NewEnvelope(view, now))
}

// RefreshView respuesta de POST /refresh.
type RefreshView struct {
	Scheduled   bool   `json:"scheduled"`
	RequestedBy string `json:"requested_by,omitempty"`
}

// Refresh POST /refresh : pide un refresco de KPIs (agrupado por el debouncer).
func (h *Handler) Refresh(c *fiber.Ctx) error {
	userID := apphttp.GetUserID(c)
	h.log.Info().Str("user_id", userID).Str("role", apphttp.GetRole(c)).
		Str("request_id", apphttp.RequestID(c)).Msg("refresco de KPIs solicitado")
	h.kpis.Trigger()
	return c.Status(fiber.StatusAccepted).JSON(dto.NewEnvelope(RefreshView{Scheduled: true, RequestedBy: userID}, time.Now()))
}

// Routes registra las rutas del tablero detrás de la sesión.
func Routes(app *fiber.App, h *Handler, sessionSecret string) {
	session := apphttp.SessionMiddleware(sessionSecret)
	app.Get("/", session, h.Page)
	app.Get("/kpis", session, h.KPIs)
	app.Post("/refresh", session, h.Refresh)
	app.Use(apphttp.NotFound)
}
