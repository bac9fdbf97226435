package domain

import (
	"strconv"
	"strings"
)

// Revealer は書き換えで挿入された算術式を評価し、元の数値へ戻す。
type Revealer struct{}

// NewRevealer は Revealer を生成する。
func NewRevealer() Revealer {
	return Revealer{}
}

// Reveal は text 中の (a-b) (a%b) (a//b) のうち Encoder が生成しうる式を評価結果に置き換え、
// 置き換えたテキストと評価した式の数を返す。
// 被演算子が 19 未満の式、値が 0〜99 に収まらない式、ゼロ除算になる式はそのまま残すため、
// 「(2019-20)」のような利用者自身の表記は変わらない。
func (Revealer) Reveal(text string) (string, int) {
	matches := expressionPattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text, 0
	}

	var b strings.Builder
	b.Grow(len(text))

	last, count := 0, 0
	for _, loc := range matches {
		expr, err := expressionFromMatch([]string{
			text[loc[0]:loc[1]],
			text[loc[2]:loc[3]],
			text[loc[4]:loc[5]],
			text[loc[6]:loc[7]],
		})
		if err != nil {
			continue
		}
		value, err := expr.Evaluate()
		if err != nil || !encodable(expr, value) {
			continue
		}
		b.WriteString(text[last:loc[0]])
		b.WriteString(strconv.Itoa(value))
		last = loc[1]
		count++
	}

	b.WriteString(text[last:])
	return b.String(), count
}
