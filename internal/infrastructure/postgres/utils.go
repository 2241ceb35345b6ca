package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jhoicas/agri-dashboard/internal/domain"
)

// classify envuelve el error del driver con el error de dominio que le corresponde.
//
//	plazo vencido / red caída       -> ErrStoreUnavailable
//	sin filas donde se esperaba una -> ErrInvalidResultShape
//	error del servidor (SQLSTATE)   -> ErrQueryFailed
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	var netErr net.Error
	switch {
	case classified(err):
		return fmt.Errorf("dashboard.%s: %w", op, err)
	case errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("dashboard.%s: %w: %w", op, domain.ErrInvalidResultShape, err)
	case errors.As(err, &pgErr):
		return fmt.Errorf("dashboard.%s: %w: %w", op, domain.ErrQueryFailed, err)
	case errors.Is(err, context.DeadlineExceeded), pgconn.Timeout(err), errors.As(err, &netErr):
		return fmt.Errorf("dashboard.%s: %w: %w", op, domain.ErrStoreUnavailable, err)
	default:
		return fmt.Errorf("dashboard.%s: %w: %w", op, domain.ErrQueryFailed, err)
	}
}

// shapeErr error de escaneo: columnas o tipos distintos a los esperados.
func shapeErr(op string, err error) error {
	return fmt.Errorf("dashboard.%s scan: %w: %w", op, domain.ErrInvalidResultShape, err)
}

func classified(err error) bool {
	return errors.Is(err, domain.ErrStoreUnavailable) ||
		errors.Is(err, domain.ErrQueryFailed) ||
		errors.Is(err, domain.ErrInvalidResultShape)
}
