package domain

import (
	"iter"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
)

// arabicPattern は前後が数字でも小数点でもない 1〜2 桁の数字に一致する。直後のコロンも除外する。
// \d は Unicode の 10 進数字 (Nd) 全体に一致する。
var arabicPattern = regexp2.MustCompile(`(?<![\d.])\d{1,2}(?![\d.:])`, regexp2.None)

// chineseAgePattern は「十一岁」〜「十七岁」「十岁」「一岁」〜「九岁」に一致する。
// 直前に漢数字がある場合は複合漢数字の一部なので一致させない。
var chineseAgePattern = regexp2.MustCompile(
	`(?<![零〇一二两三四五六七八九十百千万亿])(十[一二三四五六七]|十|[一二三四五六七八九])岁`,
	regexp2.None,
)

// ArabicTokens は s に含まれる 1〜2 桁の数字トークンを左から順に返す。
//
// 「15.5」「2024」からは何も返さない。「10:30」の「10」は直後がコロンなので除外されるが、
// 「30」は直前がコロンなのでトークンとして返す。
func ArabicTokens(s string) iter.Seq[NumberToken] {
	return func(yield func(NumberToken) bool) {
		for m := range matches(arabicPattern, s) {
			value := 0
			for _, r := range m.text {
				value = value*10 + digitValue(r)
			}
			token := NumberToken{
				Text:    m.text,
				Numeral: m.text,
				Value:   value,
				Kind:    KindArabic,
				Start:   m.start,
				End:     m.end,
			}
			if !yield(token) {
				return
			}
		}
	}
}

// ChineseAgeTokens は s に含まれる「漢数字 + 岁」のトークンを左から順に返す。
// 複合漢数字（十八岁、二十岁、一百岁 など）の一部には一致しない。
func ChineseAgeTokens(s string) iter.Seq[NumberToken] {
	return func(yield func(NumberToken) bool) {
		for m := range matches(chineseAgePattern, s) {
			value, ok := ChineseNumeralValue(m.group)
			if !ok {
				continue
			}
			token := NumberToken{
				Text:    m.text,
				Numeral: m.group,
				Value:   value,
				Kind:    KindChineseAge,
				Start:   m.start,
				End:     m.end,
			}
			if !yield(token) {
				return
			}
		}
	}
}

// match は 1 件の一致をバイトオフセットで表す。group は最初のキャプチャグループ。
type match struct {
	text       string
	group      string
	start, end int
}

// matches は re の一致を左から順に返す。regexp2 のインデックスはルーン単位なのでバイト単位へ変換する。
func matches(re *regexp2.Regexp, s string) iter.Seq[match] {
	return func(yield func(match) bool) {
		if s == "" {
			return
		}

		offsets := make([]int, 0, utf8.RuneCountInString(s)+1)
		for i := range s {
			offsets = append(offsets, i)
		}
		offsets = append(offsets, len(s))

		m, err := re.FindStringMatch(s)
		for err == nil && m != nil {
			found := match{
				text:  m.String(),
				start: offsets[m.Index],
				end:   offsets[m.Index+m.Length],
			}
			if groups := m.Groups(); len(groups) > 1 {
				found.group = groups[1].String()
			}
			if !yield(found) {
				return
			}
			m, err = re.FindNextMatch(m)
		}
	}
}
