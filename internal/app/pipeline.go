package app

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
)

// OrderLast は他のすべてのステージの後に実行されるステージの順序値。
const OrderLast = math.MaxInt32

// StageOutcome はステージ 1 回分の実行結果を表す。
type StageOutcome struct {
	Stage                string
	Modified             bool
	PromptModified       bool
	ContextsModified     int
	SystemPromptModified bool
	HintInjected         bool
}

// Stage は LLM リクエストを送信前に書き換えるパイプラインの 1 段を表す。
// Order が小さいほど先に実行される。
type Stage interface {
	Name() string
	Order() int
	Apply(ctx context.Context, req *LLMRequest, meta RequestMeta) (StageOutcome, error)
}

// RequestMeta はリクエスト本体以外にステージへ渡す付随情報。
type RequestMeta struct {
	// AcceptLanguage はクライアントの Accept-Language ヘッダ値。
	AcceptLanguage string
}

// Pipeline は Stage を Order 順に実行する。
type Pipeline struct {
	stages []Stage
}

// NewPipeline は Order の昇順（同順位は登録順）に並べた Pipeline を生成する。
func NewPipeline(stages ...Stage) *Pipeline {
	sorted := slices.Clone(stages)
	slices.SortStableFunc(sorted, func(a, b Stage) int {
		return cmp.Compare(a.Order(), b.Order())
	})
	return &Pipeline{stages: sorted}
}

// Stages は実行順に並んだステージ名を返す。
func (p *Pipeline) Stages() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name()
	}
	return names
}

// Run は req に対して全ステージを順に適用する。いずれかが失敗した時点で中断する。
func (p *Pipeline) Run(ctx context.Context, req *LLMRequest, meta RequestMeta) ([]StageOutcome, error) {
	outcomes := make([]StageOutcome, 0, len(p.stages))
	for _, stage := range p.stages {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}
		outcome, err := stage.Apply(ctx, req, meta)
		if err != nil {
			return outcomes, fmt.Errorf("%w: %s: %w", ErrStageFailed, stage.Name(), err)
		}
		outcome.Stage = stage.Name()
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}
