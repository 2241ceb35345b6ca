package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/jhoicas/agri-dashboard/internal/application/dto"
	"github.com/jhoicas/agri-dashboard/internal/domain/entity"
)

// Paleta del tablero.
const (
	ColorPrimary   = "#2F5A34"
	ColorSecondary = "#8BC34A"
	ColorPending   = "#D32F2F"
	ColorTransit   = "#FFA000"
	ColorDelivered = "#4CAF50"
	colorAreaFill  = "rgba(139, 195, 74, 0.1)"
)

// Textos de los paneles sin gráfico.
const (
	MsgChartError = "Error loading chart data. Please try refreshing the page."
	MsgNoForecast = "No forecast data available"
	MsgNoData     = "No data available"
	MsgKPIError   = "Error loading data"
)

// DeliveryPalette color fijo por estado de entrega.
var DeliveryPalette = map[string]string{
	entity.DeliveryPending:   ColorPending,
	entity.DeliveryInTransit: ColorTransit,
	entity.DeliveryDelivered: ColorDelivered,
}

// Panel un gráfico del tablero o su reemplazo visible.
type Panel struct {
	ID          string
	Title       string
	Option      template.JS // opción ECharts; vacía cuando hay Placeholder
	Placeholder string
	Failed      bool
}

type echartsOption interface {
	Validate()
	JSONNotEscaped() template.HTML
}

// funcMarker envuelve las funciones JS de opts.FuncOpts dentro del JSON.
const funcMarker = "__f__"

// scriptSafe escapa lo que podría cerrar el <script> o cortar un literal JS.
var scriptSafe = strings.NewReplacer(
	"<", `\u003c`,
	">", `\u003e`,
	"&", `\u0026`,
	"\u2028", `\u2028`,
	"\u2029", `\u2029`,
)

// chartPanel serializa la opción para incrustarla en <script>. Solo las funciones
// listadas en funcs se convierten en código; cualquier otro texto queda como string JSON.
func chartPanel(id, title string, chart echartsOption, funcs ...string) Panel {
	chart.Validate()
	option := string(chart.JSONNotEscaped())
	for _, fn := range funcs {
		wrapped := string(opts.FuncOpts(fn))
		quoted, err := jsonString(wrapped)
		if err != nil {
			continue
		}
		code := strings.TrimSuffix(strings.TrimPrefix(wrapped, funcMarker), funcMarker)
		option = strings.ReplaceAll(option, quoted, code)
	}
	return Panel{ID: id, Title: title, Option: template.JS(scriptSafe.Replace(option))}
}

// jsonString codifica s igual que JSONNotEscaped, sin escapar HTML.
func jsonString(s string) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

func errorPanel(id, title string) Panel {
	return Panel{ID: id, Title: title, Placeholder: MsgChartError, Failed: true}
}

func emptyPanel(id, title, msg string) Panel {
	return Panel{ID: id, Title: title, Placeholder: msg}
}

func titleOpts(title string, l Layout) charts.GlobalOpts {
	return charts.WithTitleOpts(opts.Title{
		Title:      title,
		TitleStyle: &opts.TextStyle{FontSize: l.TitleSize, Color: ColorPrimary},
	})
}

func legendOpts(l Layout) charts.GlobalOpts {
	return charts.WithLegendOpts(opts.Legend{
		Show:      opts.Bool(true),
		Top:       "bottom",
		TextStyle: &opts.TextStyle{FontSize: l.FontSize},
	})
}

// jsSymbol literal JS entre comillas simples; se descartan los caracteres que
// romperían el JSON de la opción.
func jsSymbol(symbol string) string {
	return "'" + strings.Map(func(r rune) rune {
		switch r {
		case '\\', '\'', '"', '<', '>':
			return -1
		}
		return r
	}, symbol) + "'"
}

// currencyJS función JS que antepone el símbolo y agrega separadores de miles.
func currencyJS(symbol string) string {
	return fmt.Sprintf(`function (v) { return %s + Number(v).toLocaleString(); }`, jsSymbol(symbol))
}

func currencyTooltipJS(symbol string) string {
	return fmt.Sprintf(`function (params) {
  var p = Array.isArray(params) ? params[0] : params;
  return p.name + '<br/>Sales: ' + %s + Number(p.value).toLocaleString();
}`, jsSymbol(symbol))
}

// InventoryChart barras de stock actual por producto.
func InventoryChart(products []dto.ProductStockDTO, l Layout) *charts.Bar {
	names := make([]string, 0, len(products))
	data := make([]opts.BarData, 0, len(products))
	for _, p := range products {
		names = append(names, p.ProductName)
		data = append(data, opts.BarData{Name: p.ProductName, Value: p.QuantityInStock})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		titleOpts("Product Inventory Levels", l),
		legendOpts(l),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{
			Name:      "Products",
			AxisLabel: &opts.AxisLabel{Rotate: l.LabelRotate, Interval: "0"},
		}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Quantity"}),
	)
	bar.SetXAxis(names).AddSeries("Current Stock", data,
		charts.WithItemStyleOpts(opts.ItemStyle{Color: ColorSecondary, BorderColor: ColorPrimary}),
	)
	return bar
}

// SalesChart línea suavizada con área; eje y tooltip con símbolo de moneda.
func SalesChart(points []dto.SalesPointDTO, l Layout, currency string) *charts.Line {
	days := make([]string, 0, len(points))
	data := make([]opts.LineData, 0, len(points))
	for _, p := range points {
		days = append(days, shortDate(p.TransactionDate))
		data = append(data, opts.LineData{Value: p.TotalAmount})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		titleOpts("Daily Sales Trend", l),
		legendOpts(l),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:      opts.Bool(true),
			Trigger:   "axis",
			Formatter: opts.FuncOpts(currencyTooltipJS(currency)),
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Date"}),
		charts.WithYAxisOpts(opts.YAxis{
			Name:      "Amount",
			AxisLabel: &opts.AxisLabel{Formatter: opts.FuncOpts(currencyJS(currency))},
		}),
	)
	line.SetXAxis(days).AddSeries("Sales Amount", data,
		charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}),
		charts.WithAreaStyleOpts(opts.AreaStyle{Color: colorAreaFill}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: ColorPrimary}),
	)
	return line
}

func shortDate(day string) string {
	t, err := time.Parse(dto.DateLayout, day)
	if err != nil {
		return day
	}
	return t.Format("Jan 2")
}

// DeliveryChart dona por estado. Los tres estados conocidos siempre aparecen,
// con cero si no hay entregas.
func DeliveryChart(counts []dto.DeliveryStatusDTO, l Layout) *charts.Pie {
	byStatus := make(map[string]int64, len(counts))
	var extra []string
	for _, c := range counts {
		if _, seen := byStatus[c.DeliveryStatus]; !seen && DeliveryPalette[c.DeliveryStatus] == "" {
			extra = append(extra, c.DeliveryStatus)
		}
		byStatus[c.DeliveryStatus] += c.Count
	}

	data := make([]opts.PieData, 0, len(entity.DeliveryStatuses)+len(extra))
	for _, status := range entity.DeliveryStatuses {
		data = append(data, opts.PieData{
			Name:      status,
			Value:     byStatus[status],
			ItemStyle: &opts.ItemStyle{Color: DeliveryPalette[status], BorderColor: "#ffffff"},
		})
	}
	for _, status := range extra {
		data = append(data, opts.PieData{Name: status, Value: byStatus[status]})
	}

	pie := charts.NewPie()
	pie.SetGlobalOptions(
		titleOpts("Delivery Status Distribution", l),
		legendOpts(l),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "item"}),
	)
	pie.AddSeries("Deliveries", data,
		charts.WithPieChartOpts(opts.PieChart{Radius: []string{"40%", "70%"}}),
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Formatter: "{b}: {c}"}),
	)
	return pie
}

// ForecastChart radar de las métricas del pronóstico con escala de RadarScale.
func ForecastChart(report dto.ForecastDTO, l Layout) *charts.Radar {
	values := report.ReportData.Values()
	scaleMax, _ := RadarScale(values)

	indicators := make([]*opts.Indicator, 0, len(report.ReportData))
	for _, m := range report.ReportData {
		indicators = append(indicators, &opts.Indicator{Name: m.Label, Max: float32(scaleMax), Min: 0})
	}

	radar := charts.NewRadar()
	radar.SetGlobalOptions(
		titleOpts("Growth Metrics", l),
		legendOpts(l),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithRadarComponentOpts(opts.RadarComponent{
			Indicator:   indicators,
			SplitNumber: 5,
			Shape:       "polygon",
		}),
	)
	radar.AddSeries("Growth Metrics (%)", []opts.RadarData{{Name: "Growth Metrics (%)", Value: values}},
		charts.WithAreaStyleOpts(opts.AreaStyle{Color: "rgba(47, 90, 52, 0.2)"}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: ColorPrimary}),
	)
	return radar
}
