package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/2509-hackz-ichthyo/numobf/internal/app"
	"github.com/2509-hackz-ichthyo/numobf/internal/auth"
	"github.com/2509-hackz-ichthyo/numobf/internal/config"
	"github.com/2509-hackz-ichthyo/numobf/internal/infrastructure/database"
	"github.com/2509-hackz-ichthyo/numobf/internal/infrastructure/repository"
	"github.com/2509-hackz-ichthyo/numobf/internal/server/httpserver"
	"github.com/2509-hackz-ichthyo/numobf/internal/usecases"
)

var (
	loadConfig     = config.Load
	listenAndServe = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownServer = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
	logFatalf      = log.Fatalf
)

// main は HTTP サーバーを起動し、数値混淆 API を提供する。
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logFatalf("%v", err)
	}
}

func run(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("設定の読み込みに失敗しました: %w", err)
	}

	settings, err := cfg.Obfuscator.Settings()
	if err != nil {
		return fmt.Errorf("設定の読み込みに失敗しました: %w", err)
	}

	service, err := app.NewService(settings)
	if err != nil {
		return fmt.Errorf("サービスの初期化に失敗しました: %w", err)
	}

	// 起動処理はシグナル受信で中断しない
	db, dialect, err := database.Open(context.WithoutCancel(ctx), cfg.DatabaseDriver, cfg.DatabasePath, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("データベースの初期化に失敗しました: %w", err)
	}
	defer db.Close()

	executor := usecases.NewDiagnosticExecutor(
		repository.NewSQLRunRepository(db, dialect),
		settings,
		usecases.WithStageNames(service.Stages()),
	)

	opts := httpserver.Options{CORSAllowOrigins: cfg.CORSAllowOrigins}
	if cfg.JWTSecret != "" {
		signer, err := auth.NewSigner(cfg.JWTSecret)
		if err != nil {
			return fmt.Errorf("認証の初期化に失敗しました: %w", err)
		}
		opts.Signer = signer
	}

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           httpserver.NewRouter(service, executor, opts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("サーバーを起動しました: http://0.0.0.0:%s (db=%s, strategy=%s)", cfg.ServerPort, dialect, settings.Options.Strategy)
		serverErr <- listenAndServe(srv)
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("サーバー起動に失敗しました: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("シャットダウンシグナルを受信しました。終了処理を開始します。")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := shutdownServer(srv, shutdownCtx); err != nil {
		return fmt.Errorf("サーバーの正常終了に失敗しました: %w", err)
	}

	if err := <-serverErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("サーバー起動に失敗しました: %w", err)
	}

	log.Println("サーバーを終了しました。")
	return nil
}
