package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/2509-hackz-ichthyo/numobf/internal/app"
	"github.com/2509-hackz-ichthyo/numobf/internal/domain"
	"github.com/joho/godotenv"
)

// ErrInvalidConfig は環境変数の値が解釈できない場合に返す。
var ErrInvalidConfig = errors.New("config: invalid value")

// Config はアプリケーション全体で共有する設定値を保持する。
type Config struct {
	// ServerPort は HTTP サーバがバインドするポート番号。
	ServerPort string
	// DatabaseDriver は "sqlite3" または "pgx"。
	DatabaseDriver string
	// DatabasePath は SQLite ファイルの配置パス。
	DatabasePath string
	// DatabaseURL は PostgreSQL の接続文字列。DatabaseDriver が "pgx" の場合のみ使う。
	DatabaseURL string
	// JWTSecret が空でない場合、/v1 配下に Bearer トークン認証を掛ける。
	JWTSecret string
	// CORSAllowOrigins は CORS を許可するオリジンの一覧。空の場合 CORS ミドルウェアを使わない。
	CORSAllowOrigins []string
	// Obfuscator は数値混淆フィルタの設定。
	Obfuscator Obfuscator
}

// Obfuscator は数値混淆フィルタの設定値。
type Obfuscator struct {
	Enable              bool
	MinNumber           int
	MaxNumber           int
	Strategy            string
	ProcessSystemPrompt bool
	InjectHint          bool
	HintLanguage        string
	Debug               bool
}

const (
	envFile        = "ENV_FILE"
	envServerPort  = "SERVER_PORT"
	envDatabaseDir = "DATABASE_DIR"
	envDatabaseURI = "DATABASE_PATH"
	envDatabaseDrv = "DATABASE_DRIVER"
	envDatabaseURL = "DATABASE_URL"
	envJWTSecret   = "JWT_SECRET_KEY"
	envCORSOrigins = "CORS_ALLOW_ORIGINS"

	envEnable              = "NUMOBF_ENABLE"
	envMinNumber           = "NUMOBF_MIN_NUMBER"
	envMaxNumber           = "NUMOBF_MAX_NUMBER"
	envStrategy            = "NUMOBF_STRATEGY"
	envProcessSystemPrompt = "NUMOBF_PROCESS_SYSTEM_PROMPT"
	envInjectHint          = "NUMOBF_INJECT_HINT"
	envHintLanguage        = "NUMOBF_HINT_LANGUAGE"
	envDebug               = "NUMOBF_DEBUG"

	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// Load は .env ファイル（存在すれば）と環境変数から設定値を読み込む。指定が無い場合はデフォルト値を用いる。
// 既に設定されている環境変数は .env の値で上書きしない。
func Load() (Config, error) {
	if err := loadDotEnv(); err != nil {
		return Config{}, err
	}

	port := os.Getenv(envServerPort)
	if port == "" {
		port = "3000"
	}

	driver := strings.ToLower(strings.TrimSpace(os.Getenv(envDatabaseDrv)))
	if driver == "" {
		driver = DriverSQLite
	}

	cfg := Config{
		ServerPort:       port,
		DatabaseDriver:   driver,
		JWTSecret:        os.Getenv(envJWTSecret),
		CORSAllowOrigins: splitList(os.Getenv(envCORSOrigins)),
	}

	switch driver {
	case DriverSQLite:
		cfg.DatabasePath = sqlitePath()
	case DriverPostgres:
		cfg.DatabaseURL = os.Getenv(envDatabaseURL)
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("%w: %s is required when %s=%s", ErrInvalidConfig, envDatabaseURL, envDatabaseDrv, DriverPostgres)
		}
	default:
		return Config{}, fmt.Errorf("%w: %s=%q", ErrInvalidConfig, envDatabaseDrv, driver)
	}

	obfuscator, err := loadObfuscator()
	if err != nil {
		return Config{}, err
	}
	cfg.Obfuscator = obfuscator

	return cfg, nil
}

// DefaultObfuscator は混淆フィルタの既定値を返す。範囲は 1..17、方式は random。
func DefaultObfuscator() Obfuscator {
	return Obfuscator{
		Enable:              true,
		MinNumber:           domain.DefaultMinNumber,
		MaxNumber:           domain.DefaultMaxNumber,
		Strategy:            string(domain.StrategyRandom),
		ProcessSystemPrompt: false,
		InjectHint:          true,
		HintLanguage:        "zh",
	}
}

// Options はドメイン層へ渡す不変の設定値へ変換する。未対応の方式は difference に読み替える。
func (o Obfuscator) Options() (domain.Options, error) {
	rng, err := domain.NewEncodingRange(o.MinNumber, o.MaxNumber)
	if err != nil {
		return domain.Options{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return domain.Options{Range: rng, Strategy: domain.StrategyOrDefault(o.Strategy)}, nil
}

// Settings はリクエストフィルタの設定値へ変換する。
func (o Obfuscator) Settings() (app.Settings, error) {
	opts, err := o.Options()
	if err != nil {
		return app.Settings{}, err
	}
	return app.Settings{
		Enable:              o.Enable,
		Options:             opts,
		ProcessSystemPrompt: o.ProcessSystemPrompt,
		InjectHint:          o.InjectHint,
		HintLanguage:        o.HintLanguage,
		Debug:               o.Debug,
	}, nil
}

func loadObfuscator() (Obfuscator, error) {
	o := DefaultObfuscator()

	var err error
	if o.Enable, err = boolEnv(envEnable, o.Enable); err != nil {
		return Obfuscator{}, err
	}
	if o.MinNumber, err = intEnv(envMinNumber, o.MinNumber); err != nil {
		return Obfuscator{}, err
	}
	if o.MaxNumber, err = intEnv(envMaxNumber, o.MaxNumber); err != nil {
		return Obfuscator{}, err
	}
	if o.ProcessSystemPrompt, err = boolEnv(envProcessSystemPrompt, o.ProcessSystemPrompt); err != nil {
		return Obfuscator{}, err
	}
	if o.InjectHint, err = boolEnv(envInjectHint, o.InjectHint); err != nil {
		return Obfuscator{}, err
	}
	if o.Debug, err = boolEnv(envDebug, o.Debug); err != nil {
		return Obfuscator{}, err
	}
	if v := strings.TrimSpace(os.Getenv(envStrategy)); v != "" {
		o.Strategy = v
	}
	if v := strings.TrimSpace(os.Getenv(envHintLanguage)); v != "" {
		o.HintLanguage = v
	}

	if _, err := o.Options(); err != nil {
		return Obfuscator{}, err
	}
	return o, nil
}

func loadDotEnv() error {
	path := os.Getenv(envFile)
	explicit := path != ""
	if !explicit {
		path = ".env"
	}

	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// sqlitePath はファイルパスを決めるだけで、ディレクトリは作成しない。
// 作成は DB を実際に開くときに行う。
func sqlitePath() string {
	if path := os.Getenv(envDatabaseURI); path != "" {
		return path
	}

	dir := os.Getenv(envDatabaseDir)
	if dir == "" {
		dir = "./data"
	}
	return filepath.Join(dir, "numobf.sqlite3")
}

func boolEnv(key string, fallback bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %s=%q", ErrInvalidConfig, key, raw)
	}
	return v, nil
}

func intEnv(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidConfig, key, raw)
	}
	return v, nil
}

func splitList(raw string) []string {
	var values []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			values = append(values, part)
		}
	}
	return values
}
