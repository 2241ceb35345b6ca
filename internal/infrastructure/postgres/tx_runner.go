package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// readOnlySnapshot ejecuta fn dentro de una transacción de solo lectura REPEATABLE READ
// sobre la conexión dada, para que varias consultas vean la misma foto de los datos.
// La transacción siempre termina en Rollback: no hay nada que confirmar.
func readOnlySnapshot(ctx context.Context, c conn, fn func(tx pgx.Tx) error) error {
	tx, err := c.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	return fn(tx)
}
