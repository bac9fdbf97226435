package usecases

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/2509-hackz-ichthyo/numobf/internal/app"
	"github.com/2509-hackz-ichthyo/numobf/internal/domain"
	"github.com/google/uuid"
)

// SampleText は入力が空の場合に使う組み込みの検証用テキスト。
const SampleText = "这个女孩今年16岁，她的弟弟8岁。\n" +
	"房间温度是15.5度，时间是10:30。\n" +
	"她住在3楼，2024年入学。\n" +
	"班级里有5个男生和12个女生。\n" +
	"角色年龄：14岁，身高155cm。\n" +
	"第17章 第18节 第19回\n" +
	"────── 中文数字测试 ──────\n" +
	"她今年十六岁，弟弟八岁。\n" +
	"一声令下，三个人跑了出去。\n" +
	"这孩子才一岁半。\n" +
	"少女十四岁就出道了。\n" +
	"他活了一百岁。\n" +
	"十七岁的花季，十八岁的雨季。\n" +
	"她五岁开始学琴，十岁登台演出。"

// DiagnosticExecutor は RunRepository とドメインの Rewriter を仲介し、診断フローを担う。
type DiagnosticExecutor struct {
	repo        RunRepository
	settings    app.Settings
	rewriter    *domain.Rewriter
	encoderOpts []domain.EncoderOption
	stages      []string
	ids         IDGenerator
	clock       Clock
	defaultLim  int
}

// DiagnosticExecutorOption は DiagnosticExecutor のオプション設定を表す。
type DiagnosticExecutorOption func(*DiagnosticExecutor)

// WithIDGenerator は識別子生成器を差し替えるオプション。
func WithIDGenerator(generator IDGenerator) DiagnosticExecutorOption {
	return func(executor *DiagnosticExecutor) {
		if generator != nil {
			executor.ids = generator
		}
	}
}

// WithClock は時刻取得を差し替えるオプション。
func WithClock(clock Clock) DiagnosticExecutorOption {
	return func(executor *DiagnosticExecutor) {
		if clock != nil {
			executor.clock = clock
		}
	}
}

// WithDefaultLimit は履歴取得時のデフォルト件数を設定するオプション。
func WithDefaultLimit(limit int) DiagnosticExecutorOption {
	return func(executor *DiagnosticExecutor) {
		if limit > 0 {
			executor.defaultLim = limit
		}
	}
}

// WithEncoderOptions は Encoder のオプションを指定する。
func WithEncoderOptions(opts ...domain.EncoderOption) DiagnosticExecutorOption {
	return func(executor *DiagnosticExecutor) {
		executor.encoderOpts = append(executor.encoderOpts, opts...)
	}
}

// WithStageNames は状態表示に含めるパイプラインのステージ名を設定するオプション。
func WithStageNames(names []string) DiagnosticExecutorOption {
	return func(executor *DiagnosticExecutor) {
		executor.stages = append([]string(nil), names...)
	}
}

// NewDiagnosticExecutor はユースケース実装を生成する。
func NewDiagnosticExecutor(repo RunRepository, settings app.Settings, opts ...DiagnosticExecutorOption) *DiagnosticExecutor {
	executor := &DiagnosticExecutor{
		repo:       repo,
		settings:   settings,
		ids:        defaultIDGenerator{},
		clock:      systemClock{},
		defaultLim: 20,
	}

	for _, opt := range opts {
		opt(executor)
	}
	executor.rewriter = domain.NewRewriter(settings.Options, executor.encoderOpts...)

	return executor
}

// RunDiagnostic は入力を書き換え、マッチの内訳とともに履歴へ保存する。
// 有効フラグに関係なく書き換えを行う。
func (d *DiagnosticExecutor) RunDiagnostic(ctx context.Context, input RunDiagnosticInput) (DiagnosticRun, error) {
	text := input.Text
	if strings.TrimSpace(text) == "" {
		text = SampleText
	}

	rewriter, err := d.rewriterFor(input.Strategy)
	if err != nil {
		return DiagnosticRun{}, err
	}

	run := convertAnalysisToRun(d.ids.NewID(), rewriter.Analyze(text), rewriter.Options(), d.clock.Now())

	if err := d.repo.Save(ctx, run); err != nil {
		return DiagnosticRun{}, fmt.Errorf("save diagnostic run: %w", err)
	}

	return run, nil
}

// GetRun は識別子で履歴を取得する。
func (d *DiagnosticExecutor) GetRun(ctx context.Context, id string) (DiagnosticRun, error) {
	if strings.TrimSpace(id) == "" {
		return DiagnosticRun{}, fmt.Errorf("%w: id must not be blank", ErrValidationFailed)
	}
	run, err := d.repo.FindByID(ctx, id)
	if err != nil {
		return DiagnosticRun{}, err
	}
	return run, nil
}

// ListRuns は最新順で履歴を返す。
func (d *DiagnosticExecutor) ListRuns(ctx context.Context, limit int) ([]DiagnosticRun, error) {
	if limit <= 0 {
		limit = d.defaultLim
	}
	runs, err := d.repo.ListRecent(ctx, limit)
	if err != nil {
		return nil, err
	}
	return runs, nil
}

// Status は現在の設定状態を返す。
func (d *DiagnosticExecutor) Status(context.Context) Status {
	opts := d.settings.Options
	return Status{
		Enabled:             d.settings.Enable,
		MinNumber:           opts.Range.Min,
		MaxNumber:           opts.Range.Max,
		Strategy:            opts.Strategy,
		ProcessSystemPrompt: d.settings.ProcessSystemPrompt,
		InjectHint:          d.settings.InjectHint,
		HintLanguage:        app.NewHintSelector(d.settings.HintLanguage).Language().String(),
		Stages:              cloneSlice(d.stages),
	}
}

func (d *DiagnosticExecutor) rewriterFor(raw string) (*domain.Rewriter, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return d.rewriter, nil
	}
	strategy, err := domain.ParseStrategy(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}
	return domain.NewRewriter(d.settings.Options.WithStrategy(strategy), d.encoderOpts...), nil
}

func convertAnalysisToRun(id string, analysis domain.Analysis, opts domain.Options, now time.Time) DiagnosticRun {
	return DiagnosticRun{
		ID:              id,
		Input:           analysis.Original,
		Rewritten:       analysis.Rewritten,
		ArabicReplaced:  tokenValues(analysis.ArabicReplaced),
		ArabicSkipped:   tokenValues(analysis.ArabicSkipped),
		ChineseReplaced: chineseMatches(analysis.ChineseReplaced),
		ChineseSkipped:  chineseMatches(analysis.ChineseSkipped),
		MinNumber:       opts.Range.Min,
		MaxNumber:       opts.Range.Max,
		Strategy:        opts.Strategy,
		CreatedAt:       now.UTC(),
	}
}

func tokenValues(tokens []domain.NumberToken) []int {
	if len(tokens) == 0 {
		return nil
	}
	values := make([]int, len(tokens))
	for i, token := range tokens {
		values[i] = token.Value
	}
	return values
}

func chineseMatches(tokens []domain.NumberToken) []ChineseMatch {
	if len(tokens) == 0 {
		return nil
	}
	matches := make([]ChineseMatch, len(tokens))
	for i, token := range tokens {
		matches[i] = ChineseMatch{Numeral: token.Numeral, Value: token.Value}
	}
	return matches
}

// Clock は現在時刻を取得するインタフェース。
type Clock interface {
	Now() time.Time
}

// IDGenerator は新しい識別子を発行するインタフェース。
type IDGenerator interface {
	NewID() string
}

type systemClock struct{}

type defaultIDGenerator struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (defaultIDGenerator) NewID() string {
	return uuid.NewString()
}
