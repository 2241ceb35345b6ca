// Package mysql implementa el repositorio del tablero sobre MySQL con sqlx,
// el motor del mercado en producción.
package mysql

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/jhoicas/agri-dashboard/pkg/config"
)

// DSN devuelve el DSN de go-sql-driver/mysql. Si DATABASE_URL está definido se
// interpreta como DSN del driver; en ambos casos se fuerza parseTime y UTC.
func DSN(cfg config.DBConfig) (string, error) {
	var mc *mysql.Config
	if cfg.DatabaseURL != "" {
		parsed, err := mysql.ParseDSN(cfg.DatabaseURL)
		if err != nil {
			return "", fmt.Errorf("parse DSN: %w", err)
		}
		mc = parsed
	} else {
		mc = mysql.NewConfig()
		mc.User = cfg.User
		mc.Passwd = cfg.Password
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
		mc.DBName = cfg.DBName
	}
	mc.ParseTime = true
	mc.Loc = time.UTC
	if cfg.AcquireTimeout > 0 {
		mc.Timeout = cfg.AcquireTimeout
	}
	return mc.FormatDSN(), nil
}

// Open crea el pool *sqlx.DB con capacidad fija DB_POOL_SIZE. No conecta hasta la primera consulta.
func Open(cfg config.DBConfig) (*sqlx.DB, error) {
	dsn, err := DSN(cfg)
	if err != nil {
		return nil, err
	}
	db, err := sqlx.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("abrir mysql: %w", err)
	}
	db.SetMaxOpenConns(cfg.PoolSize)
	db.SetMaxIdleConns(cfg.PoolSize)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(30 * time.Minute)
	return db, nil
}
