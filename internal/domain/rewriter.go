package domain

import (
	"fmt"
	"strings"
)

// Options は書き換え 1 回分の不変な設定値を表す。
type Options struct {
	Range    EncodingRange
	Strategy Strategy
}

// DefaultOptions は範囲 1〜17、方式 random の既定値を返す。
func DefaultOptions() Options {
	return Options{Range: DefaultRange(), Strategy: StrategyRandom}
}

// WithStrategy は方式のみを差し替えた Options を返す。
func (o Options) WithStrategy(s Strategy) Options {
	o.Strategy = s
	return o
}

// Validate は範囲が不正な場合にエラーを返す。
func (o Options) Validate() error {
	if err := o.Range.Validate(); err != nil {
		return fmt.Errorf("validate options: %w", err)
	}
	return nil
}

// Rewriter は Matcher と Encoder を組み合わせてテキストを書き換える。
// 状態を持たないため、複数ゴルーチンから同時に利用できる（乱数源が並行安全である限り）。
type Rewriter struct {
	opts    Options
	encoder *Encoder
}

// NewRewriter は Options に従う Rewriter を生成する。
func NewRewriter(opts Options, encoderOpts ...EncoderOption) *Rewriter {
	return &Rewriter{
		opts:    opts,
		encoder: NewEncoder(opts.Strategy, encoderOpts...),
	}
}

// Options は Rewriter が使う設定値を返す。
func (r *Rewriter) Options() Options {
	return r.opts
}

// span は書き換え後テキスト上の挿入済み式の位置を表す。
type span struct {
	start, end int
}

// Obfuscate は範囲内の数値をすべて算術式へ置き換えたテキストを返す。
//
// 漢数字 + 岁 を先に処理し、その結果に対してアラビア数字を処理する。
// 1 回目で挿入した式の中の数字は 2 回目の走査で置換しない。
func (r *Rewriter) Obfuscate(text string) string {
	if text == "" {
		return text
	}
	intermediate, inserted := r.rewriteChineseAges(text)
	return r.rewriteArabic(intermediate, inserted)
}

func (r *Rewriter) rewriteChineseAges(text string) (string, []span) {
	var (
		b        strings.Builder
		inserted []span
		last     int
	)

	for token := range ChineseAgeTokens(text) {
		if !r.opts.Range.Contains(token.Value) {
			continue
		}
		expr, err := r.encoder.Encode(token.Value)
		if err != nil {
			continue
		}
		if b.Len() == 0 {
			b.Grow(len(text) + 16)
		}
		b.WriteString(text[last:token.Start])
		start := b.Len()
		b.WriteString(expr.String())
		inserted = append(inserted, span{start: start, end: b.Len()})
		b.WriteString(AgeUnit)
		last = token.End
	}

	if inserted == nil {
		return text, nil
	}
	b.WriteString(text[last:])
	return b.String(), inserted
}

func (r *Rewriter) rewriteArabic(text string, inserted []span) string {
	var (
		b        strings.Builder
		last     int
		next     int
		replaced bool
	)

	for token := range ArabicTokens(text) {
		for next < len(inserted) && inserted[next].end <= token.Start {
			next++
		}
		if next < len(inserted) && inserted[next].start <= token.Start {
			continue
		}
		if !r.opts.Range.Contains(token.Value) {
			continue
		}
		expr, err := r.encoder.Encode(token.Value)
		if err != nil {
			continue
		}
		if !replaced {
			b.Grow(len(text) + 16)
			replaced = true
		}
		b.WriteString(text[last:token.Start])
		b.WriteString(expr.String())
		last = token.End
	}

	if !replaced {
		return text
	}
	b.WriteString(text[last:])
	return b.String()
}

// Analysis は診断用に書き換え結果とマッチの内訳をまとめたもの。
type Analysis struct {
	Original        string
	Rewritten       string
	ArabicReplaced  []NumberToken
	ArabicSkipped   []NumberToken
	ChineseReplaced []NumberToken
	ChineseSkipped  []NumberToken
}

// Analyze は text を書き換え、元テキスト中のマッチを範囲内・範囲外に分類して返す。
func (r *Rewriter) Analyze(text string) Analysis {
	a := Analysis{Original: text, Rewritten: r.Obfuscate(text)}

	for token := range ArabicTokens(text) {
		if r.opts.Range.Contains(token.Value) {
			a.ArabicReplaced = append(a.ArabicReplaced, token)
		} else {
			a.ArabicSkipped = append(a.ArabicSkipped, token)
		}
	}

	for token := range ChineseAgeTokens(text) {
		if r.opts.Range.Contains(token.Value) {
			a.ChineseReplaced = append(a.ChineseReplaced, token)
		} else {
			a.ChineseSkipped = append(a.ChineseSkipped, token)
		}
	}

	return a
}

// Changed は書き換えによってテキストが変化したかを返す。
func (a Analysis) Changed() bool {
	return a.Original != a.Rewritten
}
