package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// pgx を database/sql ドライバ "pgx" として登録する。
	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresConfig は PostgreSQL 接続の設定値をまとめた構造体。
type PostgresConfig struct {
	// URL は接続文字列（postgres://... または key=value 形式）。
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// PingTimeout が正の場合、接続確認を行う。
	PingTimeout time.Duration
}

// DefaultPostgresConfig は url に既定のプール設定を付与した PostgresConfig を返す。
func DefaultPostgresConfig(url string) PostgresConfig {
	return PostgresConfig{
		URL:             url,
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		PingTimeout:     3 * time.Second,
	}
}

// OpenPostgres は pgx ドライバで PostgreSQL に接続する。
func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*sql.DB, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("open postgres: url must not be empty")
	}

	db, err := sql.Open(DialectPostgres.DriverName(), cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns >= 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if cfg.PingTimeout > 0 {
		pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
	}

	return db, nil
}
