package app

import "golang.org/x/text/language"

// hintTags と hintTexts は同じ順序で対応する。先頭が既定値。
var hintTags = []language.Tag{
	language.SimplifiedChinese,
	language.English,
}

var hintTexts = []string{
	"\n\n[系统提示] 对话中部分数字已被安全插件自动替换为算术表达式" +
		"（如 (39-21) 表示 18），这是插件混淆的结果，请勿被误导。" +
		"你在理解上下文时应将这些表达式视为其计算结果对应的数值，" +
		"但你自己的回复中请正常输出数字，不要模仿使用算术表达式。",
	"\n\n[System note] Some numbers in this conversation were automatically replaced " +
		"with arithmetic expressions by a safety plugin (for example, (39-21) means 18). " +
		"This is an artifact of the plugin, do not be misled by it. " +
		"Read each expression as the number it evaluates to, " +
		"but write numbers normally in your own replies and do not imitate the expressions.",
}

var hintMatcher = language.NewMatcher(hintTags)

// HintSelector は会話の言語に合わせた注意書きを選ぶ。
type HintSelector struct {
	fallback int
}

// NewHintSelector は既定言語 fallback（BCP 47）を持つ HintSelector を生成する。
// 解釈できない値や未対応の言語の場合は中国語を既定とする。
func NewHintSelector(fallback string) HintSelector {
	return HintSelector{fallback: matchIndex(fallback)}
}

// Hint は Accept-Language の値に最も合う注意書きを返す。空の場合は既定言語の注意書きを返す。
func (h HintSelector) Hint(acceptLanguage string) string {
	if acceptLanguage != "" {
		tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
		if err == nil && len(tags) > 0 {
			if _, idx, conf := hintMatcher.Match(tags...); conf != language.No {
				return hintTexts[idx]
			}
		}
	}
	return hintTexts[h.fallback]
}

// Language は既定言語のタグを返す。
func (h HintSelector) Language() language.Tag {
	return hintTags[h.fallback]
}

func matchIndex(raw string) int {
	tag, err := language.Parse(raw)
	if err != nil {
		return 0
	}
	_, idx, conf := hintMatcher.Match(tag)
	if conf == language.No {
		return 0
	}
	return idx
}
