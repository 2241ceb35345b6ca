package web

import (
	"context"
	"sync"

	"github.com/jhoicas/agri-dashboard/internal/application/dto"
)

// FeedSource fuentes de datos del tablero. *apiclient.Client la implementa.
type FeedSource interface {
	FetchProducts(ctx context.Context) ([]dto.ProductStockDTO, error)
	FetchSales(ctx context.Context) ([]dto.SalesPointDTO, error)
	FetchDeliveries(ctx context.Context) ([]dto.DeliveryStatusDTO, error)
	FetchForecasts(ctx context.Context) ([]dto.ForecastDTO, error)
	FetchTopProducts(ctx context.Context) ([]dto.TopProductDTO, error)
	FetchCategorySales(ctx context.Context) ([]dto.CategorySalesDTO, error)
}

// Feed resultado de una fuente: datos o error, nunca ambos.
type Feed[T any] struct {
	Data T
	Err  error
}

// Feeds resultados independientes de cada fuente del tablero.
type Feeds struct {
	Inventory     Feed[[]dto.ProductStockDTO]
	Sales         Feed[[]dto.SalesPointDTO]
	Deliveries    Feed[[]dto.DeliveryStatusDTO]
	Forecasts     Feed[[]dto.ForecastDTO]
	TopProducts   Feed[[]dto.TopProductDTO]
	CategorySales Feed[[]dto.CategorySalesDTO]
}

func load[T any](ctx context.Context, wg *sync.WaitGroup, dst *Feed[T], fetch func(context.Context) (T, error)) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		data, err := fetch(ctx)
		if err != nil {
			*dst = Feed[T]{Err: err}
			return
		}
		*dst = Feed[T]{Data: data}
	}()
}

// LoadFeeds consulta todas las fuentes en paralelo y espera a que terminen.
// El fallo de una fuente no cancela ni retrasa a las demás.
func LoadFeeds(ctx context.Context, src FeedSource) Feeds {
	var (
		wg    sync.WaitGroup
		feeds Feeds
	)
	load(ctx, &wg, &feeds.Inventory, src.FetchProducts)
	load(ctx, &wg, &feeds.Sales, src.FetchSales)
	load(ctx, &wg, &feeds.Deliveries, src.FetchDeliveries)
	load(ctx, &wg, &feeds.Forecasts, src.FetchForecasts)
	load(ctx, &wg, &feeds.TopProducts, src.FetchTopProducts)
	load(ctx, &wg, &feeds.CategorySales, src.FetchCategorySales)
	wg.Wait()
	return feeds
}
