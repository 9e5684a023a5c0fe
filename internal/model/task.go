// Package model はドメインモデルを定義する。
package model

import "time"

// Task はユーザーが所有するタスクを表す。
// IDはストレージが採番する連番。UserIDは作成時に認証済みユーザーから
// 設定され、以後変更されない。
type Task struct {
	ID          int64
	UserID      string
	Title       string
	Description string
	Completed   bool
	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TaskFilter はタスク一覧のフィルタ種別を表す。
type TaskFilter string

const (
	// TaskFilterAll は全タスクを表示するフィルタ。
	TaskFilterAll TaskFilter = "all"
	// TaskFilterPending は未完了タスクのみを表示するフィルタ。
	TaskFilterPending TaskFilter = "pending"
	// TaskFilterCompleted は完了タスクのみを表示するフィルタ。
	TaskFilterCompleted TaskFilter = "completed"
)

// Valid はフィルタが定義済みの値であるかを返す。
func (f TaskFilter) Valid() bool {
	switch f {
	case TaskFilterAll, TaskFilterPending, TaskFilterCompleted:
		return true
	}
	return false
}

// TaskPatch は部分更新の入力を表す。
// nilのフィールドは「変更しない」を意味し、値が入っているフィールドのみ
// 適用される。descriptionのようなクリア可能フィールドについても
// null-as-sentinelの曖昧さを避けるためポインタで存在有無を表現する。
type TaskPatch struct {
	Title       *string
	Description *string
	Completed   *bool
}

// TaskCounts は所有者スコープのタスク件数集計を表す。
// フィルタの有無に関わらず、常に所有者の全タスクを母集合とする。
type TaskCounts struct {
	Total     int
	Pending   int
	Completed int
}
