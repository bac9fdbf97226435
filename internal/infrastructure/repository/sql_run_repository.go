package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/2509-hackz-ichthyo/numobf/internal/domain"
	"github.com/2509-hackz-ichthyo/numobf/internal/infrastructure/database"
	"github.com/2509-hackz-ichthyo/numobf/internal/usecases"
)

const defaultListLimit = 20

// SQLRunRepository は database/sql をバックエンドとする RunRepository の実装。
// SQLite と PostgreSQL の両方で動作する。
type SQLRunRepository struct {
	db      *sql.DB
	dialect database.Dialect
}

// NewSQLRunRepository は SQLRunRepository を生成する。
func NewSQLRunRepository(db *sql.DB, dialect database.Dialect) *SQLRunRepository {
	return &SQLRunRepository{db: db, dialect: dialect}
}

// Save は診断履歴を挿入する。
func (r *SQLRunRepository) Save(ctx context.Context, run usecases.DiagnosticRun) error {
	if r.db == nil {
		return errors.New("sql run repository: db is nil")
	}

	const query = `
INSERT INTO diagnostic_runs (
    id, input, rewritten, arabic_replaced, arabic_skipped, chinese_replaced, chinese_skipped,
    min_number, max_number, strategy, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

	columns := make([]sql.NullString, 4)
	for i, values := range []any{run.ArabicReplaced, run.ArabicSkipped, run.ChineseReplaced, run.ChineseSkipped} {
		encoded, err := encodeJSON(values)
		if err != nil {
			return fmt.Errorf("encode matches: %w", err)
		}
		columns[i] = encoded
	}

	if _, err := r.db.ExecContext(
		ctx,
		r.dialect.Rebind(query),
		run.ID,
		run.Input,
		run.Rewritten,
		columns[0],
		columns[1],
		columns[2],
		columns[3],
		run.MinNumber,
		run.MaxNumber,
		string(run.Strategy),
		run.CreatedAt.UTC(),
	); err != nil {
		return fmt.Errorf("insert diagnostic run: %w", err)
	}

	return nil
}

// FindByID は指定された ID の履歴を取得する。
func (r *SQLRunRepository) FindByID(ctx context.Context, id string) (usecases.DiagnosticRun, error) {
	const query = `
SELECT id, input, rewritten, arabic_replaced, arabic_skipped, chinese_replaced, chinese_skipped,
       min_number, max_number, strategy, created_at
FROM diagnostic_runs
WHERE id = ?
`

	row := r.db.QueryRowContext(ctx, r.dialect.Rebind(query), id)
	return scanRun(row)
}

// ListRecent は作成日時の降順で履歴を取得する。
func (r *SQLRunRepository) ListRecent(ctx context.Context, limit int) ([]usecases.DiagnosticRun, error) {
	const query = `
SELECT id, input, rewritten, arabic_replaced, arabic_skipped, chinese_replaced, chinese_skipped,
       min_number, max_number, strategy, created_at
FROM diagnostic_runs
ORDER BY created_at DESC, id DESC
LIMIT ?
`

	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(query), limit)
	if err != nil {
		return nil, fmt.Errorf("query diagnostic runs: %w", err)
	}
	defer rows.Close()

	runs := make([]usecases.DiagnosticRun, 0, limit)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate diagnostic runs: %w", err)
	}

	return runs, nil
}

func scanRun(scanner interface {
	Scan(dest ...any) error
}) (usecases.DiagnosticRun, error) {
	var (
		run             usecases.DiagnosticRun
		strategy        string
		arabicReplaced  sql.NullString
		arabicSkipped   sql.NullString
		chineseReplaced sql.NullString
		chineseSkipped  sql.NullString
	)

	if err := scanner.Scan(
		&run.ID,
		&run.Input,
		&run.Rewritten,
		&arabicReplaced,
		&arabicSkipped,
		&chineseReplaced,
		&chineseSkipped,
		&run.MinNumber,
		&run.MaxNumber,
		&strategy,
		&run.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return usecases.DiagnosticRun{}, usecases.ErrRunNotFound
		}
		return usecases.DiagnosticRun{}, fmt.Errorf("scan diagnostic run: %w", err)
	}

	run.Strategy = domain.Strategy(strategy)

	targets := []struct {
		raw  sql.NullString
		dest any
	}{
		{arabicReplaced, &run.ArabicReplaced},
		{arabicSkipped, &run.ArabicSkipped},
		{chineseReplaced, &run.ChineseReplaced},
		{chineseSkipped, &run.ChineseSkipped},
	}
	for _, target := range targets {
		if !target.raw.Valid {
			continue
		}
		if err := json.Unmarshal([]byte(target.raw.String), target.dest); err != nil {
			return usecases.DiagnosticRun{}, fmt.Errorf("decode matches: %w", err)
		}
	}

	run.CreatedAt = run.CreatedAt.UTC()

	return run, nil
}

// encodeJSON は空のスライスを NULL として扱う。
func encodeJSON(values any) (sql.NullString, error) {
	switch v := values.(type) {
	case []int:
		if len(v) == 0 {
			return sql.NullString{}, nil
		}
	case []usecases.ChineseMatch:
		if len(v) == 0 {
			return sql.NullString{}, nil
		}
	}
	bytes, err := json.Marshal(values)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(bytes), Valid: true}, nil
}
