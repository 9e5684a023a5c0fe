package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/taskman/internal/model"
)

// PostgresTaskRepo はPostgreSQLを使用したタスクリポジトリ。
// 全クエリの述語にuser_idを含めることで所有者スコープを強制する。
type PostgresTaskRepo struct {
	db *sql.DB
}

// NewPostgresTaskRepo はPostgresTaskRepoを生成する。
func NewPostgresTaskRepo(db *sql.DB) *PostgresTaskRepo {
	return &PostgresTaskRepo{db: db}
}

const taskColumns = `id, user_id, title, description, completed, completed_at, created_at, updated_at`

// scanTask は1行分のタスクをスキャンする。
func scanTask(row interface{ Scan(...any) error }) (*model.Task, error) {
	task := &model.Task{}
	var completedAt sql.NullTime
	err := row.Scan(
		&task.ID, &task.UserID, &task.Title, &task.Description,
		&task.Completed, &completedAt, &task.CreatedAt, &task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if completedAt.Valid {
		task.CompletedAt = &completedAt.Time
	}
	return task, nil
}

// ListByOwner は所有者のタスク一覧をフィルタ付きで返す。作成日時の降順。
func (r *PostgresTaskRepo) ListByOwner(ctx context.Context, ownerID string, filter model.TaskFilter) ([]*model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = $1`
	switch filter {
	case model.TaskFilterPending:
		query += ` AND completed = FALSE`
	case model.TaskFilterCompleted:
		query += ` AND completed = TRUE`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []*model.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}

	return tasks, nil
}

// CountByOwner は所有者の全タスクを母集合とする件数集計を返す。
// フィルタ適用前の母集合で数えるため、一覧のフィルタとは独立している。
func (r *PostgresTaskRepo) CountByOwner(ctx context.Context, ownerID string) (model.TaskCounts, error) {
	var counts model.TaskCounts
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE NOT completed),
		        COUNT(*) FILTER (WHERE completed)
		 FROM tasks WHERE user_id = $1`,
		ownerID,
	).Scan(&counts.Total, &counts.Pending, &counts.Completed)
	if err != nil {
		return model.TaskCounts{}, fmt.Errorf("failed to count tasks: %w", err)
	}

	return counts, nil
}

// FindByOwnerAndID は所有者スコープでタスクを取得する。
// 存在しない場合と所有者が異なる場合のどちらもnilを返す。
func (r *PostgresTaskRepo) FindByOwnerAndID(ctx context.Context, ownerID string, taskID int64) (*model.Task, error) {
	task, err := scanTask(r.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1 AND user_id = $2`,
		taskID, ownerID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	return task, nil
}

// Create はタスクを作成し、採番されたIDをtask.IDに設定する。
func (r *PostgresTaskRepo) Create(ctx context.Context, task *model.Task) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO tasks (user_id, title, description, completed, completed_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		task.UserID, task.Title, task.Description, task.Completed,
		nullTime(task.CompletedAt), task.CreatedAt, task.UpdatedAt,
	).Scan(&task.ID)
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}

	return nil
}

// Update はタスクを所有者スコープで上書き更新する。
func (r *PostgresTaskRepo) Update(ctx context.Context, task *model.Task) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE tasks
		 SET title = $1, description = $2, completed = $3, completed_at = $4, updated_at = $5
		 WHERE id = $6 AND user_id = $7`,
		task.Title, task.Description, task.Completed,
		nullTime(task.CompletedAt), task.UpdatedAt,
		task.ID, task.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	return nil
}

// DeleteByOwnerAndID は所有者スコープでタスクを削除する。
func (r *PostgresTaskRepo) DeleteByOwnerAndID(ctx context.Context, ownerID string, taskID int64) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM tasks WHERE id = $1 AND user_id = $2`,
		taskID, ownerID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// nullTime は*time.TimeをNULL対応のsql.NullTimeに変換する。
func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// compile-time interface check
var _ TaskRepository = (*PostgresTaskRepo)(nil)
