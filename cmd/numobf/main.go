package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
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

const usage = `使い方: numobf <command> [flags]

commands:
  filter   標準入力のテキストを書き換えて標準出力へ書き出す (-request で LLM リクエスト JSON を処理)
  test     [文本] 混淆結果と内訳を表示し履歴に保存する
  status   現在の設定状態を表示する
  reveal   標準入力中の算術式を数値へ戻す (filter が生成しうる形の式のみ。例: (2019-20) は残る)
  token    API 用のトークンを発行する (JWT_SECRET_KEY が必要)
`

var errUsage = errors.New("usage")

var loadConfig = config.Load

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(stderr, "設定の読み込みに失敗しました: %v\n", err)
		return 1
	}

	var cmdErr error
	switch args[0] {
	case "filter":
		cmdErr = runFilter(ctx, cfg, args[1:], stdin, stdout, stderr)
	case "test":
		cmdErr = runTest(ctx, cfg, args[1:], stdout)
	case "status":
		cmdErr = runStatus(ctx, cfg, stdout)
	case "reveal":
		cmdErr = runReveal(ctx, stdin, stdout)
	case "token":
		cmdErr = runToken(cfg, args[1:], stdout)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		cmdErr = fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}

	switch {
	case cmdErr == nil:
		return 0
	case errors.Is(cmdErr, errUsage), errors.Is(cmdErr, flag.ErrHelp):
		fmt.Fprintf(stderr, "%v\n\n%s", cmdErr, usage)
		return 2
	default:
		fmt.Fprintf(stderr, "エラー: %v\n", cmdErr)
		return 1
	}
}

func newService(cfg config.Config, logOutput io.Writer) (*app.Service, error) {
	settings, err := cfg.Obfuscator.Settings()
	if err != nil {
		return nil, err
	}
	return app.NewService(settings, app.WithServiceLogger(log.New(logOutput, "", log.LstdFlags)))
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func runFilter(ctx context.Context, cfg config.Config, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := newFlagSet("filter")
	strategy := fs.String("strategy", "", "random | difference | modulo | floordiv")
	asRequest := fs.Bool("request", false, "標準入力を LLM リクエスト JSON として処理する")
	lang := fs.String("lang", "", "注意書きの言語 (Accept-Language 形式)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}

	// 処理ログは標準出力の結果に混ぜない
	service, err := newService(cfg, stderr)
	if err != nil {
		return err
	}

	input, err := io.ReadAll(stdin)
	if err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}

	if *asRequest {
		var req app.LLMRequest
		if err := json.Unmarshal(input, &req); err != nil {
			return fmt.Errorf("decode request: %w", err)
		}
		result, err := service.FilterRequest(ctx, app.FilterCommand{Request: req, AcceptLanguage: *lang})
		if err != nil {
			return err
		}
		enc := json.NewEncoder(stdout)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(httpserver.NewFilterResponse(result))
	}

	result, err := service.ObfuscateText(ctx, app.ObfuscateCommand{Text: string(input), Strategy: *strategy})
	if err != nil {
		return err
	}
	_, err = io.WriteString(stdout, result.Rewritten)
	return err
}

func runTest(ctx context.Context, cfg config.Config, args []string, stdout io.Writer) error {
	fs := newFlagSet("test")
	strategy := fs.String("strategy", "", "random | difference | modulo | floordiv")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}

	settings, err := cfg.Obfuscator.Settings()
	if err != nil {
		return err
	}

	db, dialect, err := database.Open(ctx, cfg.DatabaseDriver, cfg.DatabasePath, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	executor := usecases.NewDiagnosticExecutor(repository.NewSQLRunRepository(db, dialect), settings)
	run, err := executor.RunDiagnostic(ctx, usecases.RunDiagnosticInput{
		Text:     strings.Join(fs.Args(), " "),
		Strategy: *strategy,
	})
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(stdout, "%s\n\n🆔 %s\n", usecases.FormatRun(run), run.ID)
	return err
}

func runStatus(ctx context.Context, cfg config.Config, stdout io.Writer) error {
	service, err := newService(cfg, io.Discard)
	if err != nil {
		return err
	}

	executor := usecases.NewDiagnosticExecutor(nil, service.Settings(), usecases.WithStageNames(service.Stages()))
	_, err = fmt.Fprintln(stdout, usecases.FormatStatus(executor.Status(ctx)))
	return err
}

func runReveal(ctx context.Context, stdin io.Reader, stdout io.Writer) error {
	input, err := io.ReadAll(stdin)
	if err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}

	service, err := app.NewService(app.DefaultSettings())
	if err != nil {
		return err
	}
	result, err := service.Reveal(ctx, string(input))
	if err != nil {
		return err
	}
	_, err = io.WriteString(stdout, result.Revealed)
	return err
}

func runToken(cfg config.Config, args []string, stdout io.Writer) error {
	fs := newFlagSet("token")
	subject := fs.String("sub", "numobf-cli", "トークンの subject")
	ttl := fs.Duration("ttl", 24*time.Hour, "有効期間 (0 で無期限)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}

	signer, err := auth.NewSigner(cfg.JWTSecret)
	if err != nil {
		return err
	}
	token, err := signer.Issue(*subject, *ttl)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, token)
	return err
}
