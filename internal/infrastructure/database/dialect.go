package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

// Dialect はドライバごとの SQL 方言の差異を表す。
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite3"
	DialectPostgres Dialect = "pgx"
)

// ParseDialect はドライバ名を Dialect に変換する。
func ParseDialect(driver string) (Dialect, error) {
	switch d := Dialect(driver); d {
	case DialectSQLite, DialectPostgres:
		return d, nil
	default:
		return "", fmt.Errorf("database: unsupported driver %q", driver)
	}
}

// DriverName は database/sql に登録されたドライバ名を返す。
func (d Dialect) DriverName() string {
	return string(d)
}

// Rebind は "?" プレースホルダをドライバの形式に書き換える。
// PostgreSQL では $1, $2, ... になる。クエリ中の文字列リテラルは考慮しない。
func (d Dialect) Rebind(query string) string {
	if d != DialectPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d Dialect) timestampType() string {
	if d == DialectPostgres {
		return "TIMESTAMPTZ"
	}
	return "TIMESTAMP"
}

// EnsureSchema は必要なテーブルが存在することを保証するマイグレーション関数。
func EnsureSchema(ctx context.Context, db *sql.DB, dialect Dialect) error {
	createTable := `
CREATE TABLE IF NOT EXISTS diagnostic_runs (
    id TEXT PRIMARY KEY,
    input TEXT NOT NULL,
    rewritten TEXT NOT NULL,
    arabic_replaced TEXT,
    arabic_skipped TEXT,
    chinese_replaced TEXT,
    chinese_skipped TEXT,
    min_number INTEGER NOT NULL,
    max_number INTEGER NOT NULL,
    strategy TEXT NOT NULL,
    created_at ` + dialect.timestampType() + ` NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`
	const createIndex = `CREATE INDEX IF NOT EXISTS idx_diagnostic_runs_created_at ON diagnostic_runs (created_at DESC);`

	if _, err := db.ExecContext(ctx, createTable); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	if _, err := db.ExecContext(ctx, createIndex); err != nil {
		return fmt.Errorf("ensure schema index: %w", err)
	}

	return nil
}

// Open は driver に応じて SQLite または PostgreSQL を開き、スキーマを用意する。
func Open(ctx context.Context, driver, sqlitePath, postgresURL string) (*sql.DB, Dialect, error) {
	dialect, err := ParseDialect(driver)
	if err != nil {
		return nil, "", err
	}

	var db *sql.DB
	switch dialect {
	case DialectPostgres:
		db, err = OpenPostgres(ctx, DefaultPostgresConfig(postgresURL))
	default:
		db, err = OpenSQLite(DefaultSQLiteConfig(sqlitePath))
	}
	if err != nil {
		return nil, "", err
	}

	if err := EnsureSchema(ctx, db, dialect); err != nil {
		_ = db.Close()
		return nil, "", err
	}
	return db, dialect, nil
}
