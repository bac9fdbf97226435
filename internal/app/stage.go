package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/2509-hackz-ichthyo/numobf/internal/domain"
)

const (
	numberStageName = "number-obfuscation"
	logPrefix       = "[数字混淆]"
	debugPreview    = 100
)

// Logger はステージが使うログ出力先。*log.Logger が満たす。
type Logger interface {
	Printf(format string, args ...any)
}

// NumberStage はリクエスト内の数値を算術式へ置き換えるステージ。
// 他のステージが追加したテキストも対象にするため、常に最後に実行される。
type NumberStage struct {
	settings Settings
	rewriter *domain.Rewriter
	hints    HintSelector
	logger   Logger
}

// NumberStageOption は NumberStage のオプション設定を表す。
type NumberStageOption func(*NumberStage)

// WithLogger はログ出力先を差し替えるオプション。
func WithLogger(logger Logger) NumberStageOption {
	return func(s *NumberStage) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRewriter は Rewriter を差し替えるオプション。テストで乱数源を固定する場合に使う。
func WithRewriter(rewriter *domain.Rewriter) NumberStageOption {
	return func(s *NumberStage) {
		if rewriter != nil {
			s.rewriter = rewriter
		}
	}
}

// NewNumberStage は settings に従う NumberStage を生成する。
func NewNumberStage(settings Settings, opts ...NumberStageOption) *NumberStage {
	s := &NumberStage{
		settings: settings,
		rewriter: domain.NewRewriter(settings.Options),
		hints:    NewHintSelector(settings.HintLanguage),
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *NumberStage) Name() string { return numberStageName }

func (s *NumberStage) Order() int { return OrderLast }

// Apply は prompt、contexts の各 content、設定に応じて system prompt を書き換える。
// いずれかが変化し InjectHint が有効な場合は system prompt の末尾に注意書きを追記する。
func (s *NumberStage) Apply(ctx context.Context, req *LLMRequest, meta RequestMeta) (StageOutcome, error) {
	var out StageOutcome
	if !s.settings.Enable || req == nil {
		return out, nil
	}

	if req.Prompt != "" {
		rewritten := s.rewriter.Obfuscate(req.Prompt)
		if rewritten != req.Prompt {
			s.debugf("%s prompt 原文: %s", logPrefix, preview(req.Prompt))
			s.debugf("%s prompt 替换后: %s", logPrefix, preview(rewritten))
			req.Prompt = rewritten
			out.PromptModified = true
		}
	}

	for i, raw := range req.Contexts {
		if err := ctx.Err(); err != nil {
			return StageOutcome{}, err
		}
		msg, ok := ParseMessage(raw)
		if !ok {
			continue
		}
		content, ok := msg.Content()
		if !ok || content == "" {
			continue
		}
		rewritten := s.rewriter.Obfuscate(content)
		if rewritten == content {
			continue
		}
		encoded, err := json.Marshal(msg.WithContent(rewritten))
		if err != nil {
			return StageOutcome{}, fmt.Errorf("encode context %d: %w", i, err)
		}
		req.Contexts[i] = encoded
		out.ContextsModified++
	}

	if s.settings.ProcessSystemPrompt && req.SystemPrompt != "" {
		rewritten := s.rewriter.Obfuscate(req.SystemPrompt)
		if rewritten != req.SystemPrompt {
			req.SystemPrompt = rewritten
			out.SystemPromptModified = true
			s.logger.Printf("%s 已处理系统提示词", logPrefix)
		}
	}

	out.Modified = out.PromptModified || out.ContextsModified > 0 || out.SystemPromptModified
	if !out.Modified {
		return out, nil
	}

	if s.settings.InjectHint {
		req.SystemPrompt += s.hints.Hint(meta.AcceptLanguage)
		out.HintInjected = true
	}

	promptState := "无"
	if req.Prompt != "" {
		promptState = "已处理"
	}
	s.logger.Printf("%s 处理完成: prompt=%s, 上下文修改=%d条, 总上下文=%d条",
		logPrefix, promptState, out.ContextsModified, len(req.Contexts))

	return out, nil
}

func (s *NumberStage) debugf(format string, args ...any) {
	if s.settings.Debug {
		s.logger.Printf(format, args...)
	}
}

// preview は先頭 debugPreview 文字（ルーン単位）を返す。
func preview(text string) string {
	count := 0
	for i := range text {
		if count == debugPreview {
			return text[:i]
		}
		count++
	}
	return text
}
