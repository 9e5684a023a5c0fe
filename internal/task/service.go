// Package task はタスク管理のドメインロジックを提供する。
//
// 全操作は認証済みユーザーのIDを所有者として暗黙のパラメータに取り、
// 他ユーザーのタスクを観測・変更できない。所有者不一致と不存在は
// 同一のTaskNotFoundエラーとして扱う。
package task

import (
	"context"
	"fmt"
	"time"

	"github.com/hitoshi/taskman/internal/model"
	"github.com/hitoshi/taskman/internal/repository"
)

// Sanitizer はユーザー入力テキストのサニタイズインターフェース。
// security.InputSanitizerServiceの部分集合として定義する。
type Sanitizer interface {
	Sanitize(raw string) string
}

// MetricsRecorder はタスク操作のメトリクス記録インターフェース。
type MetricsRecorder interface {
	RecordTaskCreated()
	RecordTaskCompleted()
	RecordTaskDeleted()
}

// ListResult はタスク一覧と件数集計をまとめた結果。
// 件数はフィルタの有無に関わらず所有者の全タスクを母集合とする。
type ListResult struct {
	Tasks  []*model.Task
	Counts model.TaskCounts
}

// Service はタスク管理のサービス層。
type Service struct {
	taskRepo  repository.TaskRepository
	sanitizer Sanitizer
	metrics   MetricsRecorder
}

// NewService はServiceを生成する。
// metricsはnil可（記録を行わない）。
func NewService(taskRepo repository.TaskRepository, sanitizer Sanitizer, metrics MetricsRecorder) *Service {
	return &Service{
		taskRepo:  taskRepo,
		sanitizer: sanitizer,
		metrics:   metrics,
	}
}

// List は所有者のタスク一覧を件数集計付きで返す。
// filter: "all"=全件, "pending"=未完了のみ, "completed"=完了のみ
func (s *Service) List(ctx context.Context, ownerID string, filter model.TaskFilter) (*ListResult, error) {
	if !filter.Valid() {
		return nil, model.NewInvalidFilterError(string(filter))
	}

	tasks, err := s.taskRepo.ListByOwner(ctx, ownerID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	counts, err := s.taskRepo.CountByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}

	return &ListResult{Tasks: tasks, Counts: counts}, nil
}

// Create は新規タスクを作成する。
// completedは常にfalse、completed_atは常にnullで開始し、所有者は
// 認証済みユーザーから設定される（クライアント入力からは設定されない）。
func (s *Service) Create(ctx context.Context, ownerID, title, description string) (*model.Task, error) {
	title = s.sanitizer.Sanitize(title)
	if title == "" {
		return nil, model.NewValidationError("title", "タイトルは必須です")
	}

	now := time.Now()
	task := &model.Task{
		UserID:      ownerID,
		Title:       title,
		Description: s.sanitizer.Sanitize(description),
		Completed:   false,
		CompletedAt: nil,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordTaskCreated()
	}

	return task, nil
}

// Get は所有者スコープでタスク詳細を返す。
// 存在しない場合と所有者が異なる場合で同一のエラーを返す。
func (s *Service) Get(ctx context.Context, ownerID string, taskID int64) (*model.Task, error) {
	task, err := s.taskRepo.FindByOwnerAndID(ctx, ownerID, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	if task == nil {
		return nil, model.NewTaskNotFoundError(taskID)
	}

	return task, nil
}

// Update はタスクを部分更新する。
// patchでnilのフィールドは変更せず、値のあるフィールドのみ適用する。
// 完了状態の遷移規則（両更新経路で共通）:
//   - completed=true を書き込むときは直前の値に関わらずcompleted_atに現在時刻を設定
//   - completed=false を書き込むときはcompleted_atをnullにクリア
//
// updated_atは変更の有無に関わらず毎回進む。
func (s *Service) Update(ctx context.Context, ownerID string, taskID int64, patch model.TaskPatch) (*model.Task, error) {
	task, err := s.taskRepo.FindByOwnerAndID(ctx, ownerID, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	if task == nil {
		return nil, model.NewTaskNotFoundError(taskID)
	}

	now := time.Now()

	if patch.Title != nil {
		title := s.sanitizer.Sanitize(*patch.Title)
		if title == "" {
			return nil, model.NewValidationError("title", "タイトルは必須です")
		}
		task.Title = title
	}
	if patch.Description != nil {
		task.Description = s.sanitizer.Sanitize(*patch.Description)
	}
	if patch.Completed != nil {
		wasCompleted := task.Completed
		task.Completed = *patch.Completed
		if task.Completed {
			task.CompletedAt = &now
			if !wasCompleted && s.metrics != nil {
				s.metrics.RecordTaskCompleted()
			}
		} else {
			task.CompletedAt = nil
		}
	}
	task.UpdatedAt = now

	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	return task, nil
}

// ToggleCompletion は完了状態のみを更新する第2の更新経路。
// ルート形状が異なるだけで、遷移規則はUpdateと完全に同一。
func (s *Service) ToggleCompletion(ctx context.Context, ownerID string, taskID int64, completed *bool) (*model.Task, error) {
	return s.Update(ctx, ownerID, taskID, model.TaskPatch{Completed: completed})
}

// Delete はタスクを物理削除する。
// 存在しない場合と所有者が異なる場合で同一のエラーを返す。
func (s *Service) Delete(ctx context.Context, ownerID string, taskID int64) error {
	deleted, err := s.taskRepo.DeleteByOwnerAndID(ctx, ownerID, taskID)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if !deleted {
		return model.NewTaskNotFoundError(taskID)
	}

	if s.metrics != nil {
		s.metrics.RecordTaskDeleted()
	}

	return nil
}
