// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/taskman/internal/model"
)

// ErrDuplicateEmail はusers.emailのUNIQUE制約違反を示す。
// 同時サインアップのレースはこの制約が最終的な強制点となる。
var ErrDuplicateEmail = errors.New("email already registered")

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレス完全一致（大文字小文字を区別）でユーザーを
	// 検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。
	// email重複時はErrDuplicateEmailを返す。
	Create(ctx context.Context, user *model.User) error
}

// TaskRepository はタスクデータの永続化インターフェース。
// 全操作がownerIDで絞り込まれ、他ユーザーのタスクを観測・変更できない。
type TaskRepository interface {
	// ListByOwner は所有者のタスク一覧をフィルタ付きで返す。
	// 作成日時の降順で並ぶ。
	ListByOwner(ctx context.Context, ownerID string, filter model.TaskFilter) ([]*model.Task, error)

	// CountByOwner は所有者の全タスクを母集合とする件数集計を返す。
	CountByOwner(ctx context.Context, ownerID string) (model.TaskCounts, error)

	// FindByOwnerAndID は所有者スコープでタスクを取得する。
	// 存在しない場合と所有者が異なる場合のどちらもnilを返す。
	FindByOwnerAndID(ctx context.Context, ownerID string, taskID int64) (*model.Task, error)

	// Create はタスクを作成し、採番されたIDをtask.IDに設定する。
	Create(ctx context.Context, task *model.Task) error

	// Update はタスクを所有者スコープで上書き更新する。
	Update(ctx context.Context, task *model.Task) error

	// DeleteByOwnerAndID は所有者スコープでタスクを削除する。
	// 削除した場合はtrue、対象が存在しない（または所有者が異なる）場合はfalseを返す。
	DeleteByOwnerAndID(ctx context.Context, ownerID string, taskID int64) (bool, error)
}
