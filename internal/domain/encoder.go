package domain

import (
	"fmt"
	"math/rand/v2"
)

// operandFloor は生成する被演算子の下限。被演算子自身が置換対象にならないよう 18 より大きくする。
const operandFloor = 19

const (
	differenceMaxRight = 55
	moduloSpan         = 21
	moduloMaxFactor    = 3
	floorDivMaxRight   = 30
)

// IntSource は [0, n) の一様乱数を返す乱数源。
// 複数ゴルーチンから使う場合は並行安全な実装を渡すこと。
type IntSource interface {
	IntN(n int) int
}

// globalSource は math/rand/v2 のトップレベル関数を使う並行安全な乱数源。
type globalSource struct{}

func (globalSource) IntN(n int) int { return rand.IntN(n) }

// Encoder は整数から等価な算術式を生成する純粋なコンポーネントを表す。
type Encoder struct {
	strategy Strategy
	src      IntSource
}

// EncoderOption は Encoder のオプション設定を表す。
type EncoderOption func(*Encoder)

// WithIntSource は乱数源を差し替えるオプション。
func WithIntSource(src IntSource) EncoderOption {
	return func(e *Encoder) {
		if src != nil {
			e.src = src
		}
	}
}

// NewEncoder は指定された方式で式を生成する Encoder を返す。
// 未対応の方式は StrategyDifference として扱う。
func NewEncoder(strategy Strategy, opts ...EncoderOption) *Encoder {
	e := &Encoder{strategy: strategy, src: globalSource{}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Strategy は設定された方式を返す。
func (e *Encoder) Strategy() Strategy {
	return e.strategy
}

// Encode は n と等しい値を持つ算術式を返す。両被演算子は 18 より大きい。
func (e *Encoder) Encode(n int) (Expression, error) {
	if n < 0 {
		return Expression{}, fmt.Errorf("%w: %d", ErrNegativeValue, n)
	}

	strategy := e.strategy
	if strategy == StrategyRandom {
		strategy = concreteStrategies[e.src.IntN(len(concreteStrategies))]
	}

	switch strategy {
	case StrategyModulo:
		return e.modulo(n), nil
	case StrategyFloorDiv:
		return e.floorDiv(n), nil
	default:
		return e.difference(n), nil
	}
}

// difference: b ∈ [19, 55], a = b + n
func (e *Encoder) difference(n int) Expression {
	b := e.between(operandFloor, differenceMaxRight)
	return Expression{Left: b + n, Right: b, Operator: OperatorSubtract}
}

// modulo: b ∈ [lo, lo+21] (lo = max(19, n+1)), k ∈ {1,2,3}, a = k*b + n
// a % b == n には n < b が必要なため、n が大きい場合は下限を引き上げる。
func (e *Encoder) modulo(n int) Expression {
	lo := max(operandFloor, n+1)
	b := e.between(lo, lo+moduloSpan)
	k := e.between(1, moduloMaxFactor)
	return Expression{Left: k*b + n, Right: b, Operator: OperatorModulo}
}

// floorDiv: b ∈ [19, 30], r ∈ [0, b-1], a = n*b + r
// n == 0 のときは a > 18 を保つため r を [19, b-1] から選ぶ。
func (e *Encoder) floorDiv(n int) Expression {
	if n == 0 {
		b := e.between(operandFloor+1, floorDivMaxRight)
		r := e.between(operandFloor, b-1)
		return Expression{Left: r, Right: b, Operator: OperatorFloorDiv}
	}
	b := e.between(operandFloor, floorDivMaxRight)
	r := e.between(0, b-1)
	return Expression{Left: n*b + r, Right: b, Operator: OperatorFloorDiv}
}

// between は [lo, hi] の一様乱数を返す。
func (e *Encoder) between(lo, hi int) int {
	return lo + e.src.IntN(hi-lo+1)
}

// encodable は value と等しい式 e を Encoder が生成しうる場合に true を返す。
func encodable(e Expression, value int) bool {
	if value < 0 || value > maxRangeBound {
		return false
	}
	if e.Left < operandFloor || e.Right < operandFloor {
		return false
	}
	switch e.Operator {
	case OperatorSubtract:
		return e.Right <= differenceMaxRight
	case OperatorModulo:
		k := (e.Left - value) / e.Right
		return e.Right <= max(operandFloor, value+1)+moduloSpan && 1 <= k && k <= moduloMaxFactor
	case OperatorFloorDiv:
		return e.Right <= floorDivMaxRight
	default:
		return false
	}
}
