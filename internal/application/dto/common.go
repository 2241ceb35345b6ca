package dto

import "time"

// Envelope cuerpo uniforme de toda respuesta exitosa de la API.
type Envelope struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data"`
	Timestamp string `json:"timestamp"`
}

// ErrorBody detalle del error. Details solo se llena fuera de producción.
type ErrorBody struct {
	Message   string `json:"message"`
	Details   string `json:"details,omitempty"`
	Code      string `json:"code"`
	Timestamp string `json:"timestamp"`
}

// ErrorResponse cuerpo HTTP de error: {success:false, error:{...}}.
type ErrorResponse struct {
	Success bool      `json:"success"`
	Error   ErrorBody `json:"error"`
}

// Códigos de error expuestos al cliente.
const (
	CodeDBConnectionFailed = "DB_CONNECTION_FAILED"
	CodeDBQueryFailed      = "DB_QUERY_FAILED"
	CodeInvalidResultShape = "INVALID_RESULT_SHAPE"
	CodeInternal           = "INTERNAL_SERVER_ERROR"
	CodeNotFound           = "NOT_FOUND"
	CodeUnauthorized       = "UNAUTHORIZED"
)

// Timestamp formatea t en RFC 3339 UTC con milisegundos.
func Timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

// NewEnvelope envuelve data con success=true.
func NewEnvelope(data any, now time.Time) Envelope {
	return Envelope{Success: true, Data: data, Timestamp: Timestamp(now)}
}

// NewErrorResponse construye el sobre de error.
func NewErrorResponse(code, message, details string, now time.Time) ErrorResponse {
	return ErrorResponse{
		Error: ErrorBody{
			Message:   message,
			Details:   details,
			Code:      code,
			Timestamp: Timestamp(now),
		},
	}
}
