package usecases

import (
	"fmt"
	"strconv"
	"strings"
)

const ruler = "━━━━━━━━━━━━━━━━━━━━"

// FormatRun は診断結果をチャット向けのプレーンテキストに整形する。
func FormatRun(run DiagnosticRun) string {
	lines := []string{
		"🔢 数字混淆测试结果",
		ruler,
		"",
		"📥 原文：",
		run.Input,
		"",
		"📤 替换后：",
		run.Rewritten,
		"",
		ruler,
		"📊 阿拉伯数字：",
		"  ✅ 已替换：" + formatList(run.ArabicReplaced, strconv.Itoa),
		"  ⏭️ 已跳过：" + formatList(run.ArabicSkipped, strconv.Itoa),
		"",
		"📊 中文数字+岁：",
		"  ✅ 已替换：" + formatList(run.ChineseReplaced, ChineseMatch.String),
		"  ⏭️ 已跳过：" + formatList(run.ChineseSkipped, ChineseMatch.String),
		"",
		fmt.Sprintf("📐 当前范围：%d ~ %d", run.MinNumber, run.MaxNumber),
		"🎲 当前策略：" + string(run.Strategy),
		"",
		"💡 规则说明：",
		fmt.Sprintf("   阿拉伯数字：独立的%d~%d均替换", run.MinNumber, run.MaxNumber),
		"   中文数字：仅「X岁」形式才替换",
		"   不替换：一声、三个、五楼等",
	}
	return strings.Join(lines, "\n")
}

// FormatStatus は設定状態をチャット向けのプレーンテキストに整形する。
func FormatStatus(status Status) string {
	state := "❌ 已禁用"
	if status.Enabled {
		state = "✅ 已启用"
	}

	lines := []string{
		"🔢 数字混淆插件状态",
		ruler,
		"  插件状态：" + state,
		fmt.Sprintf("  混淆范围：%d ~ %d", status.MinNumber, status.MaxNumber),
		"  替换策略：" + status.Strategy.Description(),
		"  处理用户消息：✅",
		"  处理对话历史：✅",
		"  处理中文数字+岁：✅",
		"  处理系统提示词：" + mark(status.ProcessSystemPrompt),
		"  注入解读提示：" + mark(status.InjectHint),
		"  提示语言：" + status.HintLanguage,
		"  执行顺序：最后执行",
	}
	if len(status.Stages) > 0 {
		lines = append(lines, "  处理阶段："+strings.Join(status.Stages, " → "))
	}
	lines = append(lines,
		"",
		ruler,
		"可用命令：",
		"  numobf test [文本]   测试混淆效果",
		"  numobf status        查看当前状态",
		"  numobf filter        过滤标准输入",
		"  numobf reveal        还原算术表达式",
	)
	return strings.Join(lines, "\n")
}

func mark(on bool) string {
	if on {
		return "✅"
	}
	return "❌"
}

func formatList[T any](values []T, format func(T) string) string {
	if len(values) == 0 {
		return "无"
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = format(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
