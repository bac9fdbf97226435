package usecases

import (
	"fmt"
	"time"

	"github.com/2509-hackz-ichthyo/numobf/internal/domain"
)

// RunDiagnosticInput はユースケース層が受け取る診断要求を表す。
type RunDiagnosticInput struct {
	// Text は検証するテキスト。空白のみの場合は組み込みのサンプルを使う。
	Text string
	// Strategy が空でない場合、設定された方式の代わりに使う。
	Strategy string
}

// ChineseMatch は漢数字 + 岁 のマッチを表す。
type ChineseMatch struct {
	Numeral string `json:"numeral"`
	Value   int    `json:"value"`
}

// String は "十六(16)" 形式で返す。
func (m ChineseMatch) String() string {
	return fmt.Sprintf("%s(%d)", m.Numeral, m.Value)
}

// DiagnosticRun は永続化された診断履歴をユースケース層で扱うための構造体。
type DiagnosticRun struct {
	ID              string
	Input           string
	Rewritten       string
	ArabicReplaced  []int
	ArabicSkipped   []int
	ChineseReplaced []ChineseMatch
	ChineseSkipped  []ChineseMatch
	MinNumber       int
	MaxNumber       int
	Strategy        domain.Strategy
	CreatedAt       time.Time
}

// Changed は書き換えによってテキストが変化したかを返す。
func (r DiagnosticRun) Changed() bool {
	return r.Input != r.Rewritten
}

// Clone はスライスを複製した DiagnosticRun を返す。
func (r DiagnosticRun) Clone() DiagnosticRun {
	clone := r
	clone.ArabicReplaced = cloneSlice(r.ArabicReplaced)
	clone.ArabicSkipped = cloneSlice(r.ArabicSkipped)
	clone.ChineseReplaced = cloneSlice(r.ChineseReplaced)
	clone.ChineseSkipped = cloneSlice(r.ChineseSkipped)
	return clone
}

// Status はフィルタの現在の設定状態を表す。
type Status struct {
	Enabled             bool
	MinNumber           int
	MaxNumber           int
	Strategy            domain.Strategy
	ProcessSystemPrompt bool
	InjectHint          bool
	HintLanguage        string
	Stages              []string
}

func cloneSlice[T any](src []T) []T {
	if len(src) == 0 {
		return nil
	}
	clone := make([]T, len(src))
	copy(clone, src)
	return clone
}
