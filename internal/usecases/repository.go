package usecases

import "context"

// RunRepository は診断履歴を永続化・取得するインタフェースである。
type RunRepository interface {
	// Save は新しい診断履歴を永続化する。
	Save(ctx context.Context, run DiagnosticRun) error
	// FindByID は識別子に一致する履歴を返す。存在しない場合は ErrRunNotFound を返す。
	FindByID(ctx context.Context, id string) (DiagnosticRun, error)
	// ListRecent は新しい順に履歴を返す。limit が 0 以下の場合は実装側のデフォルト値を利用する。
	ListRecent(ctx context.Context, limit int) ([]DiagnosticRun, error)
}
