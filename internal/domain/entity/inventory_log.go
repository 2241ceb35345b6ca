package entity

import "time"

// InventoryLog movimiento de stock registrado en inventory_logs,
// con los nombres de producto y usuario ya resueltos.
type InventoryLog struct {
	LogDate     time.Time
	ProductName string
	ActionType  string // restock, sale, adjustment...
	Quantity    int64
	PerformedBy string
}
