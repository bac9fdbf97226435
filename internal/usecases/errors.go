package usecases

import "errors"

var (
	// ErrValidationFailed は入力値の検証に失敗した場合に返す。
	ErrValidationFailed = errors.New("usecases: validation failed")

	// ErrRunNotFound は指定した診断履歴が存在しない場合に返す。
	ErrRunNotFound = errors.New("usecases: diagnostic run not found")
)
