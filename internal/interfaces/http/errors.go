package http

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/agri-dashboard/internal/application/dto"
	"github.com/jhoicas/agri-dashboard/internal/domain"
	"github.com/jhoicas/agri-dashboard/pkg/logger"
)

// errorResponder convierte errores en el sobre {success:false, error:{...}}.
// En producción no se expone el detalle interno.
type errorResponder struct {
	log        *logger.Logger
	production bool
}

// classifyError mapea un error de la capa de aplicación a código y mensaje públicos.
func classifyError(feed string, err error) (code, message string) {
	switch {
	case errors.Is(err, domain.ErrStoreUnavailable), errors.Is(err, context.DeadlineExceeded):
		return dto.CodeDBConnectionFailed, "falló la conexión a la base de datos"
	case errors.Is(err, domain.ErrInvalidResultShape):
		return dto.CodeInvalidResultShape, fmt.Sprintf("respuesta inesperada de la base de datos (%s)", feed)
	case errors.Is(err, domain.ErrQueryFailed):
		return dto.CodeDBQueryFailed, fmt.Sprintf("no se pudieron obtener los datos (%s)", feed)
	default:
		return dto.CodeInternal, "error interno del servidor"
	}
}

// fail registra el error y responde 500 con el sobre de error.
func (r errorResponder) fail(c *fiber.Ctx, feed string, err error) error {
	code, message := classifyError(feed, err)
	r.log.Error().
		Err(err).
		Str("feed", feed).
		Str("code", code).
		Str("request_id", RequestID(c)).
		Msg("consulta del tablero fallida")
	return r.write(c, fiber.StatusInternalServerError, code, message, err)
}

func (r errorResponder) write(c *fiber.Ctx, status int, code, message string, err error) error {
	details := ""
	if !r.production && err != nil {
		details = err.Error()
	}
	return c.Status(status).JSON(dto.NewErrorResponse(code, message, details, time.Now()))
}

// ErrorHandler manejador de errores de Fiber: panics recuperados, errores no
// clasificados y fiber.Error (404, 405...) salen con el mismo sobre.
func ErrorHandler(log *logger.Logger, production bool) fiber.ErrorHandler {
	r := errorResponder{log: log, production: production}
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code := dto.CodeInternal
			if fe.Code == fiber.StatusNotFound {
				code = dto.CodeNotFound
			}
			return r.write(c, fe.Code, code, fe.Message, nil)
		}
		log.Error().
			Err(err).
			Str("path", c.Path()).
			Str("request_id", RequestID(c)).
			Msg("error no controlado")
		return r.write(c, fiber.StatusInternalServerError, dto.CodeInternal, "error interno del servidor", err)
	}
}

// NotFound responde 404 con el sobre de error para rutas desconocidas.
func NotFound(c *fiber.Ctx) error {
	return fiber.NewError(fiber.StatusNotFound, "ruta no encontrada: "+c.Method()+" "+c.Path())
}
