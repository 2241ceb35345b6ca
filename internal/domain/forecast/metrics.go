// Package forecast decodifica el payload JSON de forecast_reports.report_data
// a un conjunto tipado y ordenado de métricas con etiquetas legibles.
package forecast

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Métricas conocidas, en el orden en que se presentan.
const (
	SalesGrowth  = "Sales Growth"
	MarketShare  = "Market Share"
	CustomerBase = "Customer Base"
	ProductRange = "Product Range"
	SupplyChain  = "Supply Chain"
)

// KnownLabels orden fijo de las métricas conocidas.
var KnownLabels = []string{SalesGrowth, MarketShare, CustomerBase, ProductRange, SupplyChain}

var (
	ErrEmptyPayload   = errors.New("forecast: payload vacío")
	ErrNotAnObject    = errors.New("forecast: el payload no es un objeto JSON")
	ErrNonNumeric     = errors.New("forecast: valor no numérico")
	ErrDuplicateLabel = errors.New("forecast: dos claves producen la misma etiqueta")
)

// Metric una métrica con su etiqueta de presentación.
type Metric struct {
	Label string
	Value float64
}

// Metrics lista ordenada de métricas. Se serializa como objeto JSON
// conservando el orden de la lista.
type Metrics []Metric

// Defaults las cinco métricas conocidas en cero.
func Defaults() Metrics {
	m := make(Metrics, 0, len(KnownLabels))
	for _, l := range KnownLabels {
		m = append(m, Metric{Label: l})
	}
	return m
}

// Get devuelve el valor de la etiqueta y si existe.
func (m Metrics) Get(label string) (float64, bool) {
	for _, x := range m {
		if x.Label == label {
			return x.Value, true
		}
	}
	return 0, false
}

// Labels etiquetas en orden.
func (m Metrics) Labels() []string {
	out := make([]string, len(m))
	for i, x := range m {
		out[i] = x.Label
	}
	return out
}

// Values valores en orden.
func (m Metrics) Values() []float64 {
	out := make([]float64, len(m))
	for i, x := range m {
		out[i] = x.Value
	}
	return out
}

// Decode interpreta report_data. Ante cualquier problema devuelve Defaults()
// junto con el error, nunca un resultado parcial.
func Decode(raw []byte) (Metrics, error) {
	m, err := decode(raw)
	if err != nil {
		return Defaults(), err
	}
	return m, nil
}

func decode(raw []byte) (Metrics, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, ErrEmptyPayload
	}
	if raw[0] != '{' {
		return nil, ErrNotAnObject
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("forecast: json inválido: %w", err)
	}
	if len(obj) == 0 {
		return nil, ErrEmptyPayload
	}

	byLabel := make(map[string]float64, len(obj))
	for key, val := range obj {
		label := Label(key)
		if label == "" {
			return nil, fmt.Errorf("%w: clave %q", ErrNonNumeric, key)
		}
		if _, dup := byLabel[label]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateLabel, label)
		}
		f, err := numeric(val)
		if err != nil {
			return nil, fmt.Errorf("%w: clave %q", err, key)
		}
		byLabel[label] = f
	}
	return order(byLabel), nil
}

// numeric acepta números JSON y cadenas numéricas finitas.
func numeric(val json.RawMessage) (float64, error) {
	var f float64
	switch {
	case len(val) > 0 && val[0] == '"':
		var s string
		if err := json.Unmarshal(val, &s); err != nil {
			return 0, ErrNonNumeric
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, ErrNonNumeric
		}
		f = v
	default:
		if err := json.Unmarshal(val, &f); err != nil || bytes.Equal(val, []byte("null")) {
			return 0, ErrNonNumeric
		}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, ErrNonNumeric
	}
	return f, nil
}

func order(byLabel map[string]float64) Metrics {
	out := make(Metrics, 0, len(byLabel))
	for _, l := range KnownLabels {
		if v, ok := byLabel[l]; ok {
			out = append(out, Metric{Label: l, Value: v})
			delete(byLabel, l)
		}
	}
	rest := make([]string, 0, len(byLabel))
	for l := range byLabel {
		rest = append(rest, l)
	}
	sort.Strings(rest)
	for _, l := range rest {
		out = append(out, Metric{Label: l, Value: byLabel[l]})
	}
	return out
}

// Label convierte una clave almacenada (sales_growth, market-share, customerBase)
// a su forma de presentación (Sales Growth, Market Share, Customer Base).
func Label(key string) string {
	words := splitWords(key)
	if len(words) == 0 {
		return ""
	}
	// cases.Caser no es seguro para uso concurrente
	title := cases.Title(language.English)
	for i, w := range words {
		words[i] = title.String(w)
	}
	return strings.Join(words, " ")
}

func splitWords(key string) []string {
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = cur[:0]
		}
	}
	runes := []rune(key)
	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || unicode.IsSpace(r):
			flush()
		case unicode.IsUpper(r) && i > 0 && unicode.IsLower(runes[i-1]):
			flush()
			cur = append(cur, r)
		default:
			cur = append(cur, r)
		}
	}
	flush()
	return words
}

// MarshalJSON escribe un objeto {"Label": valor, ...} en el orden de la lista.
func (m Metrics) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, x := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(x.Label)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(x.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON lee un objeto conservando el orden de las claves.
func (m *Metrics) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return ErrNotAnObject
	}
	out := Metrics{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		var v float64
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("forecast: %q: %w", key, err)
		}
		out = append(out, Metric{Label: key, Value: v})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*m = out
	return nil
}
