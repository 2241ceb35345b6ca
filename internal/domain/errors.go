package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	// ErrStoreUnavailable no se pudo obtener una conexión: pool agotado o DB inalcanzable.
	ErrStoreUnavailable = errors.New("almacén de datos no disponible")
	// ErrQueryFailed la consulta falló al ejecutarse (SQL inválido, tabla o columna inexistente).
	ErrQueryFailed = errors.New("falló la consulta")
	// ErrInvalidResultShape el resultado no tiene la forma esperada (columnas, tipos o filas).
	ErrInvalidResultShape = errors.New("resultado con forma inesperada")
)
