package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"

	appanalytics "github.com/jhoicas/agri-dashboard/internal/application/analytics"
	"github.com/jhoicas/agri-dashboard/internal/domain/repository"
	"github.com/jhoicas/agri-dashboard/internal/infrastructure/mysql"
	"github.com/jhoicas/agri-dashboard/internal/infrastructure/postgres"
	infratracing "github.com/jhoicas/agri-dashboard/internal/infrastructure/tracing"
	httpRouter "github.com/jhoicas/agri-dashboard/internal/interfaces/http"
	"github.com/jhoicas/agri-dashboard/pkg/config"
	"github.com/jhoicas/agri-dashboard/pkg/logger"
	"github.com/jhoicas/agri-dashboard/pkg/tracing"
)

const swaggerFile = "./docs/swagger.json"

// store repositorio del tablero con su collector de pool y su cierre.
type store struct {
	repo      repository.DashboardRepository
	collector prometheus.Collector
	close     func()
}

func openStore(ctx context.Context, cfg config.DBConfig) (*store, error) {
	if cfg.Driver == config.DriverMySQL {
		db, err := mysql.Open(cfg)
		if err != nil {
			return nil, err
		}
		return &store{
			repo:      mysql.NewDashboardRepository(db, cfg.AcquireTimeout),
			collector: collectors.NewDBStatsCollector(db.DB, "agri"),
			close:     func() { _ = db.Close() },
		}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &store{
		repo:      postgres.NewDashboardRepository(pool, cfg.AcquireTimeout),
		collector: postgres.NewPoolCollector(pool),
		close:     pool.Close,
	}, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("driver", cfg.DB.Driver).
		Int("pool_size", cfg.DB.PoolSize).
		Msg("iniciando servicio de agregación")

	var tp trace.TracerProvider
	if cfg.Tracing.Enabled {
		tp, err = tracing.InitTracer(cfg.App.Name, cfg.Tracing.JaegerEndpoint)
		if err != nil {
			log.Fatal().Err(err).Msg("inicializar tracing")
		}
	}

	ctx := context.Background()
	st, err := openStore(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("crear pool de conexiones")
	}

	// El servicio arranca aunque la base no responda; cada petición reporta el fallo.
	pingCtx, cancelPing := context.WithTimeout(ctx, cfg.DB.AcquireTimeout)
	if err := st.repo.Ping(pingCtx); err != nil {
		log.Warn().Err(err).Msg("base de datos no disponible al iniciar")
	}
	cancelPing()

	repo := st.repo
	if cfg.Tracing.Enabled {
		repo = infratracing.NewDashboardRepository(repo, cfg.DB.Driver)
	}
	loc := cfg.App.Location()
	dashboardUC := appanalytics.NewDashboardUseCase(repo, func() time.Time { return time.Now().In(loc) }, log)

	registry := prometheus.NewRegistry()
	metrics := httpRouter.NewMetrics(registry,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		st.collector,
	)

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		redisCtx, cancelRedis := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(redisCtx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis no disponible, caché desactivada")
			_ = redisClient.Close()
			redisClient = nil
		}
		cancelRedis()
	}

	app := httpRouter.NewApp(httpRouter.AppConfig{
		Name:       cfg.App.Name,
		Log:        log,
		Production: cfg.App.IsProduction(),
		Tracing:    cfg.Tracing.Enabled,
		Metrics:    metrics,
	})

	// Swagger UI en local: http://localhost:<port>/docs
	if _, err := os.Stat(swaggerFile); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: swaggerFile,
			Path:     "docs",
			Title:    "Agri Market Dashboard API",
		}))
	}

	httpRouter.Router(app, httpRouter.RouterDeps{
		DashboardUC:  dashboardUC,
		Log:          log,
		Production:   cfg.App.IsProduction(),
		QueryTimeout: cfg.DB.QueryTimeout,
		Redis:        redisClient,
		CacheTTL:     cfg.Redis.TTL,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// primero se drenan las peticiones en curso, después se cierra el pool
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	st.close()
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if tp != nil {
		if err := tracing.Shutdown(shutdownCtx, tp); err != nil {
			log.Error().Err(err).Msg("apagado del tracer")
		}
	}

	log.Info().Msg("aplicación detenida")
}
