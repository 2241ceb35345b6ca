package web_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/agri-dashboard/internal/application/dto"
	"github.com/jhoicas/agri-dashboard/internal/interfaces/web"
)

// ─── Debouncer ──────────────────────────────────────────────────────────────

func TestDebouncer_RafagaSeEjecutaUnaVez(t *testing.T) {
	var calls atomic.Int64
	d := web.NewDebouncer(30*time.Millisecond, func() { calls.Add(1) })

	for i := 0; i < 10; i++ {
		d.Trigger()
		time.Sleep(5 * time.Millisecond)
	}
	assert.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 10*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	assert.EqualValues(t, 1, calls.Load())
}

func TestDebouncer_StopDescartaPendiente(t *testing.T) {
	var calls atomic.Int64
	d := web.NewDebouncer(20*time.Millisecond, func() { calls.Add(1) })

	d.Trigger()
	d.Stop()
	d.Trigger()
	time.Sleep(60 * time.Millisecond)
	assert.Zero(t, calls.Load())
}

// ─── KPIRefresher ───────────────────────────────────────────────────────────

func startRefresher(t *testing.T, src web.OverviewSource, interval time.Duration) (*web.KPIRefresher, context.CancelFunc, <-chan struct{}) {
	t.Helper()
	r := web.NewKPIRefresher(src, interval, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return r, cancel, done
}

func TestKPIRefresher_RefrescaAlInicio(t *testing.T) {
	src := &fakeSource{overview: &dto.OverviewDTO{TotalSales: 1520.46, TotalProducts: 340}}
	r, _, _ := startRefresher(t, src, time.Hour)

	require.Eventually(t, func() bool { return r.Snapshot().Overview != nil }, time.Second, 10*time.Millisecond)
	snap := r.Snapshot()
	assert.NoError(t, snap.Err)
	assert.Equal(t, 1520.46, snap.Overview.TotalSales)
	assert.False(t, snap.UpdatedAt.IsZero())
}

func TestKPIRefresher_Periodico(t *testing.T) {
	src := &fakeSource{overview: &dto.OverviewDTO{}}
	startRefresher(t, src, 20*time.Millisecond)

	assert.Eventually(t, func() bool { return src.overviewN.Load() >= 3 }, time.Second, 10*time.Millisecond)
}

func TestKPIRefresher_ErrorConservaUltimoValor(t *testing.T) {
	src := &fakeSource{overview: &dto.OverviewDTO{PendingDeliveries: 4}}
	r := web.NewKPIRefresher(src, time.Hour, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { r.Run(ctx); close(done) }()
	defer func() { cancel(); <-done }()

	require.Eventually(t, func() bool { return r.Snapshot().Overview != nil }, time.Second, 10*time.Millisecond)

	src.overviewErr = errors.New("timeout")
	r.Trigger()

	require.Eventually(t, func() bool { return r.Snapshot().Err != nil }, 2*time.Second, 10*time.Millisecond)
	snap := r.Snapshot()
	require.NotNil(t, snap.Overview)
	assert.EqualValues(t, 4, snap.Overview.PendingDeliveries)
}

func TestKPIRefresher_TriggersAgrupados(t *testing.T) {
	src := &fakeSource{overview: &dto.OverviewDTO{}}
	r, _, _ := startRefresher(t, src, time.Hour)
	require.Eventually(t, func() bool { return src.overviewN.Load() == 1 }, time.Second, 5*time.Millisecond)

	for i := 0; i < 5; i++ {
		r.Trigger()
	}
	require.Eventually(t, func() bool { return src.overviewN.Load() == 2 }, time.Second, 10*time.Millisecond)
	time.Sleep(web.DebounceDelay + 100*time.Millisecond)
	assert.EqualValues(t, 2, src.overviewN.Load())
}

func TestKPIRefresher_SeDetieneConCancelacion(t *testing.T) {
	src := &fakeSource{overview: &dto.OverviewDTO{}}
	_, cancel, done := startRefresher(t, src, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run no terminó tras cancelar el contexto")
	}
}

func TestKPIPollInterval(t *testing.T) {
	assert.Equal(t, time.Minute, web.KPIPollInterval(5*time.Minute))
	assert.Equal(t, time.Second, web.KPIPollInterval(2*time.Second), "mínimo un segundo")
	assert.Less(t, web.KPIPollInterval(time.Hour), time.Hour)
}
