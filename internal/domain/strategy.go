package domain

import "fmt"

// Strategy は整数を算術式へ変換する方式を表す。
type Strategy string

const (
	// StrategyRandom は呼び出しごとに 3 方式から一様に選ぶ。
	StrategyRandom Strategy = "random"

	// StrategyDifference は (a-b) 形式の差で表す。
	StrategyDifference Strategy = "difference"

	// StrategyModulo は (a%b) 形式の剰余で表す。
	StrategyModulo Strategy = "modulo"

	// StrategyFloorDiv は (a//b) 形式の整数除算で表す。
	StrategyFloorDiv Strategy = "floordiv"
)

// concreteStrategies は StrategyRandom が選択する具体的な方式の一覧。
var concreteStrategies = [...]Strategy{StrategyDifference, StrategyModulo, StrategyFloorDiv}

// ParseStrategy は文字列を Strategy に変換し、未対応の値の場合はエラーを返す。
func ParseStrategy(raw string) (Strategy, error) {
	s := Strategy(raw)
	switch s {
	case StrategyRandom, StrategyDifference, StrategyModulo, StrategyFloorDiv:
		return s, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownStrategy, raw)
	}
}

// StrategyOrDefault は未対応の値を StrategyDifference に読み替える。
func StrategyOrDefault(raw string) Strategy {
	s, err := ParseStrategy(raw)
	if err != nil {
		return StrategyDifference
	}
	return s
}

// Description は状態表示用の説明文を返す。
func (s Strategy) Description() string {
	switch s {
	case StrategyRandom:
		return "随机选择"
	case StrategyDifference:
		return "差值法 (a-b)"
	case StrategyModulo:
		return "取模法 (a%b)"
	case StrategyFloorDiv:
		return "整除法 (a//b)"
	default:
		return string(s)
	}
}
