package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jhoicas/agri-dashboard/internal/infrastructure/apiclient"
	httpRouter "github.com/jhoicas/agri-dashboard/internal/interfaces/http"
	"github.com/jhoicas/agri-dashboard/internal/interfaces/web"
	"github.com/jhoicas/agri-dashboard/pkg/config"
	"github.com/jhoicas/agri-dashboard/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name + "-web",
	})
	dc := cfg.Dashboard
	log.Info().
		Str("api", dc.APIBaseURL).
		Dur("fetch_timeout", dc.FetchTimeout).
		Int("fetch_attempts", dc.FetchAttempts).
		Bool("session", dc.SessionSecret != "").
		Msg("iniciando tablero")

	client := apiclient.New(apiclient.Config{
		BaseURL:  dc.APIBaseURL,
		Timeout:  dc.FetchTimeout,
		Attempts: dc.FetchAttempts,
		Backoff:  dc.RetryBackoff,
		Log:      log,
	})

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	kpis := web.NewKPIRefresher(client, dc.KPIRefresh, log)
	refresherDone := make(chan struct{})
	go func() {
		kpis.Run(ctx)
		close(refresherDone)
	}()

	app := httpRouter.NewApp(httpRouter.AppConfig{
		Name:       cfg.App.Name + "-web",
		Log:        log,
		Production: cfg.App.IsProduction(),
	})
	web.Routes(app, web.NewHandler(web.HandlerConfig{
		Feeds:           client,
		KPIs:            kpis,
		Currency:        dc.CurrencySymbol,
		RefreshInterval: dc.KPIRefresh,
		Log:             log,
	}), dc.SessionSecret)

	go func() {
		if err := app.Listen(dc.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando tablero...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	stop()
	<-refresherDone

	log.Info().Msg("tablero detenido")
}
