package domain

import (
	"fmt"
	"regexp"
	"strconv"
)

// Operator は算術式の演算子を表す。
type Operator string

const (
	OperatorSubtract Operator = "-"
	OperatorModulo   Operator = "%"
	OperatorFloorDiv Operator = "//"
)

// Expression は 2 項の算術式 (Left Operator Right) を表す。
type Expression struct {
	Left     int
	Right    int
	Operator Operator
}

// expressionPattern は Expression.String が生成する形式に一致する。
var expressionPattern = regexp.MustCompile(`\((\d+)(-|%|//)(\d+)\)`)

// String は "(a-b)" "(a%b)" "(a//b)" のいずれかを返す。
func (e Expression) String() string {
	return "(" + strconv.Itoa(e.Left) + string(e.Operator) + strconv.Itoa(e.Right) + ")"
}

// Evaluate は式を評価する。% と // は床関数に基づく剰余・商として計算する。
func (e Expression) Evaluate() (int, error) {
	switch e.Operator {
	case OperatorSubtract:
		return e.Left - e.Right, nil
	case OperatorModulo:
		if e.Right == 0 {
			return 0, &ErrDivisionByZeroError{Expression: e.String()}
		}
		m := e.Left % e.Right
		if m != 0 && (m < 0) != (e.Right < 0) {
			m += e.Right
		}
		return m, nil
	case OperatorFloorDiv:
		if e.Right == 0 {
			return 0, &ErrDivisionByZeroError{Expression: e.String()}
		}
		q := e.Left / e.Right
		if (e.Left%e.Right != 0) && ((e.Left < 0) != (e.Right < 0)) {
			q--
		}
		return q, nil
	default:
		return 0, fmt.Errorf("%w: unsupported operator %q", ErrInvalidExpression, e.Operator)
	}
}

// ParseExpression は "(a-b)" 形式の文字列を Expression に変換する。
func ParseExpression(raw string) (Expression, error) {
	m := expressionPattern.FindStringSubmatch(raw)
	if m == nil || m[0] != raw {
		return Expression{}, fmt.Errorf("%w: %q", ErrInvalidExpression, raw)
	}
	return expressionFromMatch(m)
}

func expressionFromMatch(m []string) (Expression, error) {
	left, err := strconv.Atoi(m[1])
	if err != nil {
		return Expression{}, fmt.Errorf("%w: %v", ErrInvalidExpression, err)
	}
	right, err := strconv.Atoi(m[3])
	if err != nil {
		return Expression{}, fmt.Errorf("%w: %v", ErrInvalidExpression, err)
	}
	return Expression{Left: left, Right: right, Operator: Operator(m[2])}, nil
}
