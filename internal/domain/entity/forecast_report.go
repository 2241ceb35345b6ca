package entity

import "time"

// ForecastReport snapshot periódico de crecimiento.
// ReportData es el JSON almacenado tal cual; se decodifica con forecast.Decode.
type ForecastReport struct {
	ID            int64
	ReportDate    time.Time
	ReportData    []byte
	CreatedBy     int64
	CreatedByName string
}
