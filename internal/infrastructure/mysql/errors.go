package mysql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/jhoicas/agri-dashboard/internal/domain"
)

// classify envuelve el error del driver con el error de dominio que le corresponde.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var myErr *mysql.MySQLError
	var netErr net.Error
	switch {
	case errors.Is(err, domain.ErrStoreUnavailable),
		errors.Is(err, domain.ErrQueryFailed),
		errors.Is(err, domain.ErrInvalidResultShape):
		return fmt.Errorf("dashboard.%s: %w", op, err)
	case errors.Is(err, sql.ErrNoRows), isScanError(err):
		return fmt.Errorf("dashboard.%s: %w: %w", op, domain.ErrInvalidResultShape, err)
	case errors.As(err, &myErr):
		return fmt.Errorf("dashboard.%s: %w: %w", op, domain.ErrQueryFailed, err)
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, driver.ErrBadConn),
		errors.Is(err, mysql.ErrInvalidConn),
		errors.Is(err, sql.ErrConnDone),
		errors.As(err, &netErr):
		return fmt.Errorf("dashboard.%s: %w: %w", op, domain.ErrStoreUnavailable, err)
	default:
		return fmt.Errorf("dashboard.%s: %w: %w", op, domain.ErrQueryFailed, err)
	}
}

// isScanError database/sql y sqlx no exportan tipos para errores de conversión.
func isScanError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "Scan error") ||
		strings.Contains(msg, "missing destination name") ||
		strings.Contains(msg, "expected") && strings.Contains(msg, "destination arguments")
}
