package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/2509-hackz-ichthyo/numobf/internal/domain"
)

// ObfuscateCommand は単一テキストの書き換え要求を表す。
type ObfuscateCommand struct {
	Text string
	// Strategy が空でない場合、設定された方式の代わりに使う。
	Strategy string
}

// ObfuscateResult は単一テキストの書き換え結果を表す。
type ObfuscateResult struct {
	Original  string
	Rewritten string
	Changed   bool
	Enabled   bool
}

// FilterCommand は LLM リクエスト全体の書き換え要求を表す。
type FilterCommand struct {
	Request        LLMRequest
	AcceptLanguage string
}

// FilterResult はパイプライン適用後のリクエストと各ステージの集計を表す。
type FilterResult struct {
	Request              LLMRequest
	Modified             bool
	PromptModified       bool
	ContextsModified     int
	SystemPromptModified bool
	HintInjected         bool
	Stages               []StageOutcome
}

// RevealResult は算術式を評価して戻した結果を表す。
type RevealResult struct {
	Text        string
	Revealed    string
	Expressions int
}

// Service はリクエストフィルタのユースケースをまとめる。
type Service struct {
	settings    Settings
	pipeline    *Pipeline
	rewriter    *domain.Rewriter
	revealer    domain.Revealer
	encoderOpts []domain.EncoderOption
}

// ServiceOption は Service のオプション設定を表す。
type ServiceOption func(*serviceConfig)

type serviceConfig struct {
	stages      []Stage
	logger      Logger
	encoderOpts []domain.EncoderOption
}

// WithStages は数値ステージより前に実行するステージを追加する。
func WithStages(stages ...Stage) ServiceOption {
	return func(c *serviceConfig) {
		c.stages = append(c.stages, stages...)
	}
}

// WithServiceLogger はステージのログ出力先を差し替える。
func WithServiceLogger(logger Logger) ServiceOption {
	return func(c *serviceConfig) {
		c.logger = logger
	}
}

// WithEncoderOptions は Encoder のオプションを指定する。
func WithEncoderOptions(opts ...domain.EncoderOption) ServiceOption {
	return func(c *serviceConfig) {
		c.encoderOpts = append(c.encoderOpts, opts...)
	}
}

// NewService は settings を検証し、数値ステージを末尾に持つ Service を生成する。
func NewService(settings Settings, opts ...ServiceOption) (*Service, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	var cfg serviceConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	rewriter := domain.NewRewriter(settings.Options, cfg.encoderOpts...)
	number := NewNumberStage(settings, WithRewriter(rewriter), WithLogger(cfg.logger))

	return &Service{
		settings:    settings,
		pipeline:    NewPipeline(append(cfg.stages, number)...),
		rewriter:    rewriter,
		revealer:    domain.NewRevealer(),
		encoderOpts: cfg.encoderOpts,
	}, nil
}

// Settings は Service の設定値を返す。
func (s *Service) Settings() Settings {
	return s.settings
}

// Stages は実行順のステージ名を返す。
func (s *Service) Stages() []string {
	return s.pipeline.Stages()
}

// ObfuscateText は 1 つのテキストを書き換える。無効化されている場合は入力をそのまま返す。
func (s *Service) ObfuscateText(ctx context.Context, cmd ObfuscateCommand) (ObfuscateResult, error) {
	if err := ctx.Err(); err != nil {
		return ObfuscateResult{}, err
	}

	rewriter, err := s.rewriterFor(cmd.Strategy)
	if err != nil {
		return ObfuscateResult{}, err
	}

	result := ObfuscateResult{Original: cmd.Text, Rewritten: cmd.Text, Enabled: s.settings.Enable}
	if !s.settings.Enable {
		return result, nil
	}

	result.Rewritten = rewriter.Obfuscate(cmd.Text)
	result.Changed = result.Rewritten != cmd.Text
	return result, nil
}

// FilterRequest はリクエストの複製にパイプラインを適用する。入力のリクエストは変更しない。
func (s *Service) FilterRequest(ctx context.Context, cmd FilterCommand) (FilterResult, error) {
	req := cmd.Request.Clone()

	outcomes, err := s.pipeline.Run(ctx, &req, RequestMeta{AcceptLanguage: cmd.AcceptLanguage})
	if err != nil {
		return FilterResult{}, fmt.Errorf("filter request: %w", err)
	}

	result := FilterResult{Request: req, Stages: outcomes}
	for _, o := range outcomes {
		result.Modified = result.Modified || o.Modified
		result.PromptModified = result.PromptModified || o.PromptModified
		result.ContextsModified += o.ContextsModified
		result.SystemPromptModified = result.SystemPromptModified || o.SystemPromptModified
		result.HintInjected = result.HintInjected || o.HintInjected
	}
	return result, nil
}

// Reveal はテキスト中の算術式のうち、Encoder が生成しうるものを評価結果へ戻す。
func (s *Service) Reveal(ctx context.Context, text string) (RevealResult, error) {
	if err := ctx.Err(); err != nil {
		return RevealResult{}, err
	}
	revealed, count := s.revealer.Reveal(text)
	return RevealResult{Text: text, Revealed: revealed, Expressions: count}, nil
}

func (s *Service) rewriterFor(raw string) (*domain.Rewriter, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return s.rewriter, nil
	}
	strategy, err := domain.ParseStrategy(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}
	if strategy == s.settings.Options.Strategy {
		return s.rewriter, nil
	}
	return domain.NewRewriter(s.settings.Options.WithStrategy(strategy), s.encoderOpts...), nil
}
