package web

import (
	"math"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// MobileBreakpoint ancho (px) por debajo del cual se usa la disposición compacta.
const MobileBreakpoint = 768

// DebounceDelay espera mínima entre eventos de resize o refresco consecutivos.
const DebounceDelay = 250 * time.Millisecond

// Layout tamaños de fuente y rotación de etiquetas según el ancho de la ventana.
type Layout struct {
	Width       int
	Mobile      bool
	FontSize    int
	TitleSize   int
	LabelRotate float64
}

// LayoutFor devuelve la disposición para width. Un ancho desconocido (<= 0) es escritorio.
func LayoutFor(width int) Layout {
	if width > 0 && width < MobileBreakpoint {
		return Layout{Width: width, Mobile: true, FontSize: 10, TitleSize: 14, LabelRotate: 45}
	}
	return Layout{Width: width, FontSize: 12, TitleSize: 16}
}

// RadarScale máximo y paso de la escala radial: el siguiente múltiplo de 10
// sobre el mayor valor, en cinco pasos. Nunca menos de 10.
func RadarScale(values []float64) (scaleMax, step float64) {
	largest := 0.0
	for _, v := range values {
		if v > largest {
			largest = v
		}
	}
	scaleMax = math.Ceil(largest/10) * 10
	if scaleMax < 10 {
		scaleMax = 10
	}
	return scaleMax, scaleMax / 5
}

// FormatCurrency formatea v con símbolo y separador de miles: ₱1,520.46.
func FormatCurrency(symbol string, v float64) string {
	p := message.NewPrinter(language.English)
	if v < 0 {
		return "-" + symbol + p.Sprintf("%.2f", -v)
	}
	return symbol + p.Sprintf("%.2f", v)
}

// FormatCount entero con separador de miles.
func FormatCount(n int64) string {
	return message.NewPrinter(language.English).Sprintf("%d", n)
}
