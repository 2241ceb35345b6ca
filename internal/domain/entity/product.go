package entity

// Product representa un producto del catálogo con su stock actual.
// El stock vive en la propia fila del producto (no hay bodegas).
type Product struct {
	ID              int64
	Name            string
	Category        string
	QuantityInStock int64
	ReorderLevel    int64
}

// Valores mostrados cuando la fila no trae nombre o categoría.
const (
	UnknownProductName = "Unknown Product"
	UncategorizedLabel = "Uncategorized"
)

// DisplayName devuelve el nombre recortado o el valor por defecto.
func (p Product) DisplayName() string {
	return nameOr(p.Name, UnknownProductName)
}

// DisplayCategory devuelve la categoría recortada o "Uncategorized".
func (p Product) DisplayCategory() string {
	return nameOr(p.Category, UncategorizedLabel)
}
