package app

import (
	"fmt"

	"github.com/2509-hackz-ichthyo/numobf/internal/domain"
)

// Settings はリクエストフィルタの動作設定を表す。
type Settings struct {
	// Enable が false の場合、数値ステージは何もしない。
	Enable bool
	// Options は書き換えに使う範囲と方式。
	Options domain.Options
	// ProcessSystemPrompt が true の場合、システムプロンプトも書き換える。
	ProcessSystemPrompt bool
	// InjectHint が true の場合、書き換えが発生したときに注意書きを追記する。
	InjectHint bool
	// HintLanguage は Accept-Language が無い場合に使う注意書きの言語（BCP 47）。
	HintLanguage string
	// Debug が true の場合、書き換え前後のプロンプト先頭を記録する。
	Debug bool
}

// DefaultSettings は既定の設定値を返す。
func DefaultSettings() Settings {
	return Settings{
		Enable:       true,
		Options:      domain.DefaultOptions(),
		InjectHint:   true,
		HintLanguage: "zh",
	}
}

// Validate は設定値を検証する。
func (s Settings) Validate() error {
	if err := s.Options.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}
	return nil
}
