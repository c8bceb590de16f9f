package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const imagesTable = "images"

// PoolConfig configures the PostgreSQL connection pool.
type PoolConfig struct {
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

func (c *PoolConfig) defaults() {
	if c.MaxConns == 0 {
		c.MaxConns = 10
	}
	if c.MinConns == 0 {
		c.MinConns = 1
	}
	if c.MaxConnLifetime == 0 {
		c.MaxConnLifetime = 30 * time.Minute
	}
	if c.MaxConnIdleTime == 0 {
		c.MaxConnIdleTime = 10 * time.Minute
	}
}

// Postgres is a Store backed by a PostgreSQL table.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps an existing pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// OpenPostgres connects to the database at dsn and verifies the connection.
func OpenPostgres(ctx context.Context, dsn string, cfg PoolConfig) (*Postgres, error) {
	cfg.defaults()
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("store parse dsn: %w", err)
	}
	pcfg.MaxConns = cfg.MaxConns
	pcfg.MinConns = cfg.MinConns
	pcfg.MaxConnLifetime = cfg.MaxConnLifetime
	pcfg.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("store connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store ping: %w", err)
	}
	return NewPostgres(pool), nil
}

// Migrate creates the images table if it does not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	sql := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id       BIGSERIAL PRIMARY KEY,
	filename TEXT NOT NULL,
	data     TEXT NOT NULL
)`, imagesTable)
	if _, err := p.pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("store migrate %s: %w", imagesTable, err)
	}
	return nil
}

func (p *Postgres) Create(ctx context.Context, filename, data string) (Record, error) {
	sql := fmt.Sprintf("INSERT INTO %s (filename, data) VALUES ($1, $2) RETURNING id", imagesTable)
	rec := Record{Filename: filename, Data: data}
	if err := p.pool.QueryRow(ctx, sql, filename, data).Scan(&rec.ID); err != nil {
		return Record{}, fmt.Errorf("store create %s: %w", imagesTable, err)
	}
	return rec, nil
}

func (p *Postgres) Get(ctx context.Context, id int64) (Record, error) {
	sql := fmt.Sprintf("SELECT id, filename, data FROM %s WHERE id = $1", imagesTable)
	var rec Record
	err := p.pool.QueryRow(ctx, sql, id).Scan(&rec.ID, &rec.Filename, &rec.Data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("store get %s: %w", imagesTable, err)
	}
	return rec, nil
}

// Ping verifies the pool is reachable.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close shuts down the underlying connection pool.
func (p *Postgres) Close() { p.pool.Close() }
