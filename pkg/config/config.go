package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // APP_TIMEZONE funciona en imágenes sin zoneinfo

	"github.com/spf13/viper"
)

// Drivers de base de datos soportados.
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// Config agrupa la configuración de la aplicación (lectura vía Viper desde env y opcionalmente archivo).
type Config struct {
	App       AppConfig
	DB        DBConfig
	HTTP      HTTPConfig
	Redis     RedisConfig
	Tracing   TracingConfig
	Dashboard DashboardConfig
}

// AppConfig configuración general de la aplicación.
type AppConfig struct {
	Env      string // development, staging, production
	Name     string
	LogLevel string
	TimeZone string // zona IANA de los días del tablero
}

// Location zona en la que se calculan medianoches y ventanas.
// TimeZone ya fue validado en Load; un valor inválido cae a UTC.
func (c AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsProduction indica si los errores deben ocultar el detalle interno.
func (c AppConfig) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// DBConfig configuración del almacén relacional.
// Si DatabaseURL no está vacío, se usa como connection string completo.
type DBConfig struct {
	Driver         string // postgres | mysql
	DatabaseURL    string
	Host           string
	Port           int
	User           string
	Password       string
	DBName         string
	SSLMode        string
	PoolSize       int           // capacidad fija del pool
	AcquireTimeout time.Duration // espera máxima por una conexión libre
	QueryTimeout   time.Duration // plazo total de una petición contra la DB
	TimeZone       string        // zona de la sesión; igual a la del reloj de la aplicación
}

// ConnectionString devuelve el DSN a usar: DATABASE_URL si está definido, si no el construido con DSN().
func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.DSN()
}

// DSN devuelve el connection string para PostgreSQL con URL encoding para caracteres especiales.
func (c DBConfig) DSN() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s", c.SSLMode),
	}
	return u.String()
}

// HTTPConfig configuración del servidor HTTP de la API.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr devuelve la dirección de escucha (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RedisConfig caché de respuestas. Addr vacío desactiva la caché.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// Enabled indica si hay un Redis configurado.
func (c RedisConfig) Enabled() bool { return c.Addr != "" }

// TracingConfig exportación de trazas OpenTelemetry.
type TracingConfig struct {
	Enabled        bool
	JaegerEndpoint string
}

// DashboardConfig configuración del proceso que renderiza el tablero.
type DashboardConfig struct {
	Host           string
	Port           int
	APIBaseURL     string
	FetchTimeout   time.Duration
	FetchAttempts  int
	RetryBackoff   time.Duration
	KPIRefresh     time.Duration
	SessionSecret  string // vacío = sin verificación de sesión
	CurrencySymbol string
}

// Addr devuelve la dirección de escucha del tablero.
func (c DashboardConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Load lee la configuración desde variables de entorno (y opcionalmente desde archivo).
// Las env vars tienen prioridad. Nombres esperados: APP_ENV, DB_HOST, DB_POOL_SIZE, REDIS_ADDR, etc.
func Load() (*Config, error) {
	v := viper.New()

	// Opcional: archivo de configuración (.env o config.env)
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // ignoramos error si no existe

	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	driver := strings.ToLower(getString(v, "DB_DRIVER", DriverPostgres))
	defaultPort := 5432
	if driver == DriverMySQL {
		defaultPort = 3306
	}

	cfg := &Config{
		App: AppConfig{
			Env:      getString(v, "APP_ENV", "development"),
			Name:     getString(v, "APP_NAME", "agri-dashboard"),
			LogLevel: getString(v, "LOG_LEVEL", "info"),
			TimeZone: getString(v, "APP_TIMEZONE", "UTC"),
		},
		DB: DBConfig{
			Driver:         driver,
			DatabaseURL:    getString(v, "DATABASE_URL", ""),
			Host:           getString(v, "DB_HOST", "localhost"),
			Port:           getInt(v, "DB_PORT", defaultPort),
			User:           getString(v, "DB_USER", "postgres"),
			Password:       getString(v, "DB_PASSWORD", ""),
			DBName:         getString(v, "DB_NAME", "casador_agri_market"),
			SSLMode:        getString(v, "DB_SSLMODE", "disable"),
			PoolSize:       getInt(v, "DB_POOL_SIZE", 10),
			AcquireTimeout: getMillis(v, "DB_ACQUIRE_TIMEOUT_MS", 2000),
			QueryTimeout:   getMillis(v, "DB_QUERY_TIMEOUT_MS", 8000),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: getInt(v, "HTTP_PORT", 3001),
		},
		Redis: RedisConfig{
			Addr:     getString(v, "REDIS_ADDR", ""),
			Password: getString(v, "REDIS_PASSWORD", ""),
			DB:       getInt(v, "REDIS_DB", 0),
			TTL:      time.Duration(getInt(v, "CACHE_TTL_SECONDS", 30)) * time.Second,
		},
		Tracing: TracingConfig{
			Enabled:        getBool(v, "TRACING_ENABLED", false),
			JaegerEndpoint: getString(v, "JAEGER_ENDPOINT", "http://localhost:14268/api/traces"),
		},
		Dashboard: DashboardConfig{
			Host:           getString(v, "DASHBOARD_HOST", "0.0.0.0"),
			Port:           getInt(v, "DASHBOARD_PORT", 3000),
			APIBaseURL:     strings.TrimRight(getString(v, "DASHBOARD_API_BASE_URL", "http://localhost:3001"), "/"),
			FetchTimeout:   getMillis(v, "DASHBOARD_FETCH_TIMEOUT_MS", 10000),
			FetchAttempts:  getInt(v, "DASHBOARD_FETCH_ATTEMPTS", 3),
			RetryBackoff:   getMillis(v, "DASHBOARD_RETRY_BACKOFF_MS", 500),
			KPIRefresh:     time.Duration(getInt(v, "DASHBOARD_KPI_REFRESH_SECONDS", 300)) * time.Second,
			SessionSecret:  getString(v, "DASHBOARD_SESSION_SECRET", ""),
			CurrencySymbol: getString(v, "CURRENCY_SYMBOL", "₱"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DB.Driver {
	case DriverPostgres, DriverMySQL:
	default:
		return fmt.Errorf("DB_DRIVER no soportado: %q", c.DB.Driver)
	}
	if _, err := time.LoadLocation(c.App.TimeZone); err != nil {
		return fmt.Errorf("APP_TIMEZONE inválido %q: %w", c.App.TimeZone, err)
	}
	c.DB.TimeZone = c.App.TimeZone
	if c.DB.PoolSize <= 0 {
		return fmt.Errorf("DB_POOL_SIZE debe ser mayor que cero")
	}
	if c.Dashboard.FetchAttempts <= 0 {
		c.Dashboard.FetchAttempts = 1
	}
	return nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case int:
			return v.GetInt(key)
		case string:
			n, err := strconv.Atoi(v.GetString(key))
			if err != nil {
				return def
			}
			return n
		default:
			return v.GetInt(key)
		}
	}
	return def
}

func getBool(v *viper.Viper, key string, def bool) bool {
	if v.IsSet(key) {
		b, err := strconv.ParseBool(v.GetString(key))
		if err != nil {
			return def
		}
		return b
	}
	return def
}

func getMillis(v *viper.Viper, key string, def int) time.Duration {
	return time.Duration(getInt(v, key, def)) * time.Millisecond
}
