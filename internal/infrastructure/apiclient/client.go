package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jhoicas/agri-dashboard/pkg/logger"
)

const (
	maxBackoff   = 5 * time.Second
	maxBodyBytes = 1 << 20
)

// ErrInvalidResponse el cuerpo no es un objeto JSON con "success" booleano o "data".
var ErrInvalidResponse = errors.New("respuesta con forma inválida")

// StatusError la API respondió con un estado no exitoso o success=false.
type StatusError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API HTTP %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("API HTTP %d: %s", e.StatusCode, e.Message)
}

// Terminal los 4xx no se reintentan.
func (e *StatusError) Terminal() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// Config opciones del cliente del servicio de agregación.
type Config struct {
	BaseURL    string
	Timeout    time.Duration // plazo de cada intento
	Attempts   int
	Backoff    time.Duration // base del backoff exponencial
	HTTPClient *http.Client
	Log        *logger.Logger
}

// Client cliente HTTP del servicio de agregación con reintentos acotados.
type Client struct {
	baseURL    string
	timeout    time.Duration
	attempts   int
	backoff    time.Duration
	httpClient *http.Client
	log        *logger.Logger
}

// New construye el cliente. Attempts < 1 se trata como 1.
func New(cfg Config) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		timeout:    cfg.Timeout,
		attempts:   cfg.Attempts,
		backoff:    cfg.Backoff,
		httpClient: cfg.HTTPClient,
		log:        cfg.Log,
	}
	if c.attempts < 1 {
		c.attempts = 1
	}
	if c.timeout <= 0 {
		c.timeout = 10 * time.Second
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	if c.log == nil {
		c.log = logger.Nop()
	}
	return c
}

// envelope forma mínima que se valida en cada respuesta.
type envelope struct {
	Success *json.RawMessage `json:"success"`
	Data    *json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Backoff espera antes del intento n+1: base * 2^(n-1), con tope de 5 s.
func Backoff(base time.Duration, n int) time.Duration {
	if base <= 0 || n < 1 {
		return 0
	}
	d := base
	for i := 1; i < n; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

// Fetch obtiene path y devuelve el campo data. Reintenta errores de red, timeouts,
// 5xx y respuestas con forma inválida hasta agotar los intentos; un 4xx corta el ciclo.
// Cancelar ctx detiene tanto la petición en curso como la espera entre intentos.
func (c *Client) Fetch(ctx context.Context, path string) (json.RawMessage, error) {
	var lastErr error
	for n := 1; n <= c.attempts; n++ {
		data, err := c.attempt(ctx, path)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, fmt.Errorf("apiclient %s: %w", path, ctx.Err())
		}
		var se *StatusError
		if errors.As(err, &se) && se.Terminal() {
			return nil, fmt.Errorf("apiclient %s: %w", path, err)
		}
		c.log.Warn().Err(err).Str("path", path).Int("attempt", n).Int("max", c.attempts).Msg("intento fallido")
		if n == c.attempts {
			break
		}

		timer := time.NewTimer(Backoff(c.backoff, n))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("apiclient %s: %w", path, ctx.Err())
		case <-timer.C:
		}
	}
	return nil, fmt.Errorf("apiclient %s: %d intentos agotados: %w", path, c.attempts, lastErr)
}

func (c *Client) attempt(ctx context.Context, path string) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("crear request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("timeout o cancelación: %w", ctx.Err())
		}
		return nil, fmt.Errorf("llamada HTTP fallida: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("leer respuesta: %w", err)
	}
	return decode(resp.StatusCode, raw)
}

// decode valida el sobre y devuelve data.
func decode(status int, raw []byte) (json.RawMessage, error) {
	var env envelope
	jsonErr := json.Unmarshal(raw, &env)

	if status < 200 || status > 299 {
		se := &StatusError{StatusCode: status, Message: http.StatusText(status)}
		if jsonErr == nil && env.Error != nil {
			se.Code, se.Message = env.Error.Code, env.Error.Message
		}
		return nil, se
	}
	if jsonErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, jsonErr)
	}

	if env.Success != nil {
		var ok bool
		if err := json.Unmarshal(*env.Success, &ok); err != nil {
			return nil, fmt.Errorf("%w: success no es booleano", ErrInvalidResponse)
		}
		if !ok {
			// success=false con estado 2xx se trata como 502 (reintentable)
			se := &StatusError{StatusCode: http.StatusBadGateway, Message: "success=false"}
			if env.Error != nil {
				se.Code, se.Message = env.Error.Code, env.Error.Message
			}
			return nil, se
		}
	}
	if env.Data == nil {
		if env.Success == nil {
			return nil, fmt.Errorf("%w: sin success ni data", ErrInvalidResponse)
		}
		return json.RawMessage("null"), nil
	}
	return *env.Data, nil
}
