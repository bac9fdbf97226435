package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRange      = errors.New("invalid encoding range")
	ErrNegativeValue     = errors.New("value must not be negative")
	ErrUnknownStrategy   = errors.New("unknown strategy")
	ErrInvalidExpression = errors.New("invalid arithmetic expression")
)

// 式の評価でゼロ除算が発生した場合に使用するカスタムエラー型
type ErrDivisionByZeroError struct {
	Expression string
}

// エラーメッセージのフォーマットを定義
func (e *ErrDivisionByZeroError) Error() string {
	return fmt.Sprintf("division by zero in %s", e.Expression)
}

// errors.Is(err, ErrInvalidExpression) を可能に
func (e *ErrDivisionByZeroError) Unwrap() error { return ErrInvalidExpression }
