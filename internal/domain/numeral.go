package domain

import "unicode"

// AgeUnit は年齢を表す単位「岁」。
const AgeUnit = "岁"

// chineseNumerals は「一」〜「十七」を整数へ対応付ける固定表。
var chineseNumerals = map[string]int{
	"一": 1, "二": 2, "三": 3, "四": 4, "五": 5,
	"六": 6, "七": 7, "八": 8, "九": 9, "十": 10,
	"十一": 11, "十二": 12, "十三": 13, "十四": 14,
	"十五": 15, "十六": 16, "十七": 17,
}

// ChineseNumeralValue は漢数字文字列に対応する整数を返す。表に無い場合は false を返す。
func ChineseNumeralValue(numeral string) (int, bool) {
	value, ok := chineseNumerals[numeral]
	return value, ok
}

// digitValue は Unicode の 10 進数字 (Nd) の値を返す。
// Nd の文字は 0〜9 が連続した 10 文字単位で並ぶため、連続区間の先頭からの距離で値が決まる。
func digitValue(r rune) int {
	if '0' <= r && r <= '9' {
		return int(r - '0')
	}
	zero := r
	for zero > 0 && unicode.IsDigit(zero-1) {
		zero--
	}
	return int(r-zero) % 10
}
