package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alexisbeaulieu97/batchflow/internal/domain/scenario"
	"github.com/alexisbeaulieu97/batchflow/internal/ports"
)

const postgresConnectTimeout = 10 * time.Second

// Postgres runs statements through a pgx connection pool. Statements are
// sent without parameters, so a single SQL text may hold several statements.
type Postgres struct {
	name   string
	pool   *pgxpool.Pool
	logger ports.Logger
}

// NewPostgres parses cfg, opens a pool and verifies it can reach the server.
func NewPostgres(ctx context.Context, name string, cfg scenario.DbConnectionConfig, logger ports.Logger) (*Postgres, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres DSN: %w", err)
	}
	if cfg.User != "" {
		poolCfg.ConnConfig.User = cfg.User
	}
	if cfg.Password != "" {
		poolCfg.ConnConfig.Password = cfg.Password
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, postgresConnectTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	logger.Info(ctx, "postgres pool ready", "target_db", name, "host", poolCfg.ConnConfig.Host, "database", poolCfg.ConnConfig.Database)
	return &Postgres{name: name, pool: pool, logger: logger}, nil
}

// ExecuteSQL implements ports.DBExecutor.
func (p *Postgres) ExecuteSQL(ctx context.Context, sql string) error {
	start := time.Now()
	tag, err := p.pool.Exec(ctx, sql)
	if err != nil {
		return fmt.Errorf("postgres %s: %w", p.name, err)
	}
	p.logger.Debug(ctx, "statement executed",
		"target_db", p.name,
		"rows_affected", tag.RowsAffected(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Close releases the pool.
func (p *Postgres) Close() {
	p.pool.Close()
}
