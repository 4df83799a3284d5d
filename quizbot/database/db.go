package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"time"

	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/maxter9595/O2RusQuizBot/quizbot/database/models"
	"github.com/maxter9595/O2RusQuizBot/quizbot/logger"
)

const (
	defaultConnTimeout   = 5 * time.Second
	defaultMaxRetries    = 3
	defaultRetryInterval = time.Second
)

type DBConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	PoolSize int    `toml:"pool_size"`
}

type DB struct {
	pool  *pgxpool.Pool
	bunDB *bun.DB
}

// New checks the server is reachable, then builds the pgx pool and the bun
// handle over it.
func New(ctx context.Context, cfg DBConfig) (*DB, error) {
	addr := net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port))

	var conn net.Conn
	var err error
	for i := 0; i < defaultMaxRetries; i++ {
		conn, err = net.DialTimeout("tcp", addr, defaultConnTimeout)
		if err == nil {
			break
		}
		time.Sleep(defaultRetryInterval)
	}
	if err != nil {
		return nil, fmt.Errorf("database server unreachable after %d attempts: %w", defaultMaxRetries, err)
	}
	conn.Close()

	poolConfig, err := pgxpool.ParseConfig(buildConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	if cfg.PoolSize > 0 {
		poolConfig.MaxConns = int32(cfg.PoolSize)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	return &DB{pool: pool, bunDB: newBunDB(cfg)}, nil
}

func buildConnString(cfg DBConfig) string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?connect_timeout=5",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database,
	)
}

func newBunDB(cfg DBConfig) *bun.DB {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

func (db *DB) BunDB() *bun.DB {
	return db.bunDB
}

func (db *DB) Close() {
	if db.bunDB != nil {
		db.bunDB.Close()
	}
	if db.pool != nil {
		db.pool.Close()
	}
}

// InitializeSchema creates all required tables and indexes.
func (db *DB) InitializeSchema(ctx context.Context) error {
	start := time.Now()

	tables := []interface{}{
		(*models.Participant)(nil),
		(*models.Credential)(nil),
		(*models.Tour)(nil),
		(*models.Question)(nil),
		(*models.PointEvent)(nil),
		(*models.StandingsRow)(nil),
	}

	for _, model := range tables {
		_, err := db.bunDB.NewCreateTable().
			Model(model).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	indexes := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_questions_tour_number ON questions (tour_number, number)`,
		`CREATE INDEX IF NOT EXISTS idx_point_events_sender ON point_events (sender_id)`,
		`CREATE INDEX IF NOT EXISTS idx_point_events_receiver ON point_events (receiver_id)`,
		`CREATE INDEX IF NOT EXISTS idx_point_events_director ON point_events (director_id)`,
		`CREATE INDEX IF NOT EXISTS idx_point_events_question ON point_events (question_id)`,
	}
	for _, ddl := range indexes {
		if _, err := db.bunDB.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	logger.LogQuery("initialize schema", time.Since(start), nil)
	slog.Info("Database schema ready",
		slog.String("type", "db"),
		slog.Int("tables", len(tables)),
		slog.Int("indexes", len(indexes)))
	return nil
}
