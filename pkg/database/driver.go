package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"
	_ "github.com/lib/pq"

	"github.com/Alijeyrad/mindcare_backend/config"
)

// NewDriver opens the application database and wraps it in an ent SQL driver.
func NewDriver(cfg config.DatabaseConfig) (dialect.Driver, error) {
	return NewDriverFromConfig(FromCentralConfig(cfg))
}

// NewDriverFromConfig creates a driver from package Config. With query logging
// enabled every statement is logged at debug level and slow ones at warn.
func NewDriverFromConfig(cfg Config) (dialect.Driver, error) {
	db, err := open(cfg)
	if err != nil {
		return nil, err
	}

	var drv dialect.Driver = entsql.OpenDB(dialect.Postgres, db)
	if cfg.EnableLogging {
		drv = &slowQueryDriver{
			Driver:    dialect.DebugWithContext(drv, logQuery),
			threshold: cfg.SlowQueryThreshold(),
		}
	}

	return drv, nil
}

// open connects with database/sql, sizes the pool and pings once.
func open(cfg Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.DBName, err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.DBName, err)
	}
	return db, nil
}

// Migrate creates or alters tables to match the given schema. Safe mode never
// drops columns or indexes.
func Migrate(ctx context.Context, drv dialect.Driver, safe bool, tables ...*schema.Table) error {
	opts := []schema.MigrateOption{schema.WithForeignKeys(true)}
	if !safe {
		opts = append(opts, schema.WithDropColumn(true), schema.WithDropIndex(true))
	}

	m, err := schema.NewMigrate(drv, opts...)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	if err := m.Create(ctx, tables...); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func logQuery(ctx context.Context, args ...any) {
	slog.DebugContext(ctx, "database: query", "statement", fmt.Sprint(args...))
}

type slowQueryDriver struct {
	dialect.Driver
	threshold time.Duration
}

func (d *slowQueryDriver) Exec(ctx context.Context, query string, args, v any) error {
	defer d.observe(ctx, query, time.Now())
	return d.Driver.Exec(ctx, query, args, v)
}

func (d *slowQueryDriver) Query(ctx context.Context, query string, args, v any) error {
	defer d.observe(ctx, query, time.Now())
	return d.Driver.Query(ctx, query, args, v)
}

func (d *slowQueryDriver) observe(ctx context.Context, query string, start time.Time) {
	if d.threshold <= 0 {
		return
	}
	if elapsed := time.Since(start); elapsed >= d.threshold {
		slog.WarnContext(ctx, "database: slow query", "statement", query, "elapsed", elapsed)
	}
}
