package web

import (
	"context"
	"sync"
	"time"

	"github.com/jhoicas/agri-dashboard/internal/application/dto"
	"github.com/jhoicas/agri-dashboard/pkg/logger"
)

// OverviewSource fuente de los KPIs.
type OverviewSource interface {
	FetchOverview(ctx context.Context) (*dto.OverviewDTO, error)
}

// KPISnapshot último resultado del refresco de KPIs. Overview conserva el
// último valor bueno; Err es el error del último intento (nil si fue exitoso).
type KPISnapshot struct {
	Overview  *dto.OverviewDTO
	Err       error
	UpdatedAt time.Time
}

// KPIRefresher refresca los KPIs periódicamente en su propia goroutine,
// independiente de la carga de gráficos.
type KPIRefresher struct {
	src      OverviewSource
	interval time.Duration
	log      *logger.Logger
	kick     chan struct{}
	debounce *Debouncer

	mu   sync.RWMutex
	snap KPISnapshot
}

// KPIPollInterval cada cuánto la página consulta /kpis: una quinta parte del
// intervalo del refresher, mínimo un segundo. Así un tile nunca queda más de
// interval+interval/5 detrás de la base.
func KPIPollInterval(refresh time.Duration) time.Duration {
	poll := refresh / 5
	if poll < time.Second {
		poll = time.Second
	}
	return poll
}

// NewKPIRefresher crea el refresher. interval <= 0 usa 5 minutos.
func NewKPIRefresher(src OverviewSource, interval time.Duration, log *logger.Logger) *KPIRefresher {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if log == nil {
		log = logger.Nop()
	}
	r := &KPIRefresher{
		src:      src,
		interval: interval,
		log:      log,
		kick:     make(chan struct{}, 1),
	}
	r.debounce = NewDebouncer(DebounceDelay, r.requestRefresh)
	return r
}

func (r *KPIRefresher) requestRefresh() {
	select {
	case r.kick <- struct{}{}:
	default: // ya hay un refresco pendiente
	}
}

// Trigger pide un refresco inmediato; ráfagas de llamadas se agrupan en una.
func (r *KPIRefresher) Trigger() { r.debounce.Trigger() }

// Snapshot devuelve el último estado conocido.
func (r *KPIRefresher) Snapshot() KPISnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snap
}

// Run refresca al inicio y luego cada intervalo o Trigger, hasta que ctx se cancele.
func (r *KPIRefresher) Run(ctx context.Context) {
	defer r.debounce.Stop()
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.refresh(ctx)
		case <-r.kick:
			r.refresh(ctx)
		}
	}
}

func (r *KPIRefresher) refresh(ctx context.Context) {
	overview, err := r.src.FetchOverview(ctx)
	if ctx.Err() != nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.snap.UpdatedAt = time.Now()
	r.snap.Err = err
	if err != nil {
		r.log.Warn().Err(err).Msg("no se pudieron refrescar los KPIs")
		return
	}
	r.snap.Overview = overview
}
