package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/angelmondragon/repairshop-backend/pkg/config"
	"github.com/angelmondragon/repairshop-backend/pkg/logger"
)

// Client owns the shop's Postgres pool behind gorm.
type Client struct {
	conn *gorm.DB
}

// Pinger is what readiness checks need.
type Pinger interface {
	Ping(ctx context.Context) error
}

// New opens the pool and pings it. Slow statements are reported through logg.
func New(ctx context.Context, cfg config.DBConfig, logg *logger.Logger) (*Client, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database DSN is required")
	}

	conn, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DSN,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger:                 newQueryLogger(logg, cfg.SlowQuery),
		SkipDefaultTransaction: true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("opening db connection: %w", err)
	}

	client := &Client{conn: conn}
	pool, err := client.pool()
	if err != nil {
		return nil, err
	}
	configurePool(pool, cfg)
	if err := pool.PingContext(ctx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"max_open_conns": cfg.MaxOpenConns,
			"slow_query":     cfg.SlowQuery.String(),
		}), "database connection established")
	}
	return client, nil
}

func configurePool(pool *sql.DB, cfg config.DBConfig) {
	if cfg.MaxOpenConns > 0 {
		pool.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		pool.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		pool.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		pool.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
}

// NewFromConn wraps an open gorm handle (sqlite in tests).
func NewFromConn(conn *gorm.DB) *Client {
	return &Client{conn: conn}
}

func (c *Client) DB() *gorm.DB {
	return c.conn
}

func (c *Client) pool() (*sql.DB, error) {
	pool, err := c.conn.DB()
	if err != nil {
		return nil, fmt.Errorf("sql handle: %w", err)
	}
	return pool, nil
}

func (c *Client) Ping(ctx context.Context) error {
	pool, err := c.pool()
	if err != nil {
		return err
	}
	return pool.PingContext(ctx)
}

func (c *Client) Close() error {
	pool, err := c.pool()
	if err != nil {
		return err
	}
	return pool.Close()
}

// WithTx runs fn in one transaction. An error or panic from fn rolls back;
// gorm re-raises the panic after the rollback.
func (c *Client) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return c.conn.WithContext(ctx).Transaction(fn)
}
