package database

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	// SQLite ドライバを匿名インポートして database/sql に登録する。
	_ "github.com/mattn/go-sqlite3"
)

// MemoryPath を Path に指定するとオンメモリ DB を利用する。
const MemoryPath = ":memory:"

// SQLiteConfig は SQLite 接続の設定値をまとめた構造体。
type SQLiteConfig struct {
	// Path は DB ファイルへのパス。
	Path string
	// BusyTimeout はロック解放を待つ上限。0 の場合は待たずに SQLITE_BUSY を返す。
	BusyTimeout time.Duration
	// WAL が true の場合、ファイル DB をジャーナルモード WAL で開く。
	WAL bool
	// MaxOpenConns は最大同時接続数。SQLite はシングルライタのため 1 を既定とする。
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// DefaultSQLiteConfig は path に既定の接続設定を付与した SQLiteConfig を返す。
func DefaultSQLiteConfig(path string) SQLiteConfig {
	return SQLiteConfig{
		Path:         path,
		BusyTimeout:  5 * time.Second,
		WAL:          true,
		MaxOpenConns: 1,
	}
}

// DSN は go-sqlite3 へ渡す接続文字列を組み立てる。
func (c SQLiteConfig) DSN() string {
	if c.Path == MemoryPath {
		return MemoryPath
	}

	params := url.Values{}
	if c.BusyTimeout > 0 {
		params.Set("_busy_timeout", strconv.FormatInt(c.BusyTimeout.Milliseconds(), 10))
	}
	if c.WAL {
		params.Set("_journal_mode", "WAL")
	}
	if len(params) == 0 {
		return c.Path
	}
	return c.Path + "?" + params.Encode()
}

// OpenSQLite は設定に基づき SQLite データベースを開く。
func OpenSQLite(cfg SQLiteConfig) (*sql.DB, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("open sqlite: path must not be empty")
	}
	if cfg.Path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	db, err := sql.Open(DialectSQLite.DriverName(), cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// オンメモリ DB は接続ごとに別のデータベースになるため 1 本に固定する。
	switch {
	case cfg.Path == MemoryPath:
		db.SetMaxOpenConns(1)
	case cfg.MaxOpenConns > 0:
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	return db, nil
}
