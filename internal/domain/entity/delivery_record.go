package entity

import "strings"

// Estados de entrega (enum en la tabla delivery_records).
const (
	DeliveryPending   = "Pending"
	DeliveryInTransit = "In Transit"
	DeliveryDelivered = "Delivered"
)

// DeliveryStatuses orden fijo de presentación: Pending, In Transit, Delivered.
var DeliveryStatuses = []string{DeliveryPending, DeliveryInTransit, DeliveryDelivered}

// DeliveryStatusRank posición del estado en el orden fijo; los desconocidos van al final.
func DeliveryStatusRank(status string) int {
	for i, s := range DeliveryStatuses {
		if s == status {
			return i
		}
	}
	return len(DeliveryStatuses)
}

func nameOr(s, def string) string {
	if t := strings.TrimSpace(s); t != "" {
		return t
	}
	return def
}
