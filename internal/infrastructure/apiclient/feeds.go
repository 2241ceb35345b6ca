package apiclient

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jhoicas/agri-dashboard/internal/application/dto"
)

// Rutas del servicio de agregación que consume el tablero.
const (
	PathOverview      = "/api/overview"
	PathSales         = "/api/sales"
	PathProducts      = "/api/products"
	PathDeliveries    = "/api/deliveries"
	PathForecasts     = "/api/forecasts"
	PathInventoryLogs = "/api/inventory-logs"
	PathTopProducts   = "/api/top-products"
	PathCategorySales = "/api/category-sales"
)

func fetchInto[T any](ctx context.Context, c *Client, path string) (T, error) {
	var out T
	data, err := c.Fetch(ctx, path)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("apiclient %s: %w: %v", path, ErrInvalidResponse, err)
	}
	return out, nil
}

// FetchOverview KPIs del tablero.
func (c *Client) FetchOverview(ctx context.Context) (*dto.OverviewDTO, error) {
	out, err := fetchInto[*dto.OverviewDTO](ctx, c, PathOverview)
	if err == nil && out == nil {
		return nil, fmt.Errorf("apiclient %s: %w: data vacío", PathOverview, ErrInvalidResponse)
	}
	return out, err
}

// FetchSales tendencia de ventas de 7 días.
func (c *Client) FetchSales(ctx context.Context) ([]dto.SalesPointDTO, error) {
	return fetchInto[[]dto.SalesPointDTO](ctx, c, PathSales)
}

// FetchProducts niveles de inventario.
func (c *Client) FetchProducts(ctx context.Context) ([]dto.ProductStockDTO, error) {
	return fetchInto[[]dto.ProductStockDTO](ctx, c, PathProducts)
}

// FetchDeliveries entregas por estado.
func (c *Client) FetchDeliveries(ctx context.Context) ([]dto.DeliveryStatusDTO, error) {
	return fetchInto[[]dto.DeliveryStatusDTO](ctx, c, PathDeliveries)
}

// FetchForecasts último pronóstico (cero o un elemento).
func (c *Client) FetchForecasts(ctx context.Context) ([]dto.ForecastDTO, error) {
	return fetchInto[[]dto.ForecastDTO](ctx, c, PathForecasts)
}

func (c *Client) FetchInventoryLogs(ctx context.Context) ([]dto.InventoryLogDTO, error) {
	return fetchInto[[]dto.InventoryLogDTO](ctx, c, PathInventoryLogs)
}

func (c *Client) FetchTopProducts(ctx context.Context) ([]dto.TopProductDTO, error) {
	return fetchInto[[]dto.TopProductDTO](ctx, c, PathTopProducts)
}

func (c *Client) FetchCategorySales(ctx context.Context) ([]dto.CategorySalesDTO, error) {
	return fetchInto[[]dto.CategorySalesDTO](ctx, c, PathCategorySales)
}
