package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/taskman/internal/middleware"
	"github.com/hitoshi/taskman/internal/model"
	"github.com/hitoshi/taskman/internal/task"
)

// TaskServiceInterface はタスクハンドラーが必要とするサービスインターフェース。
type TaskServiceInterface interface {
	// List は所有者のタスク一覧と全体の件数集計を返す。
	List(ctx context.Context, ownerID string, filter model.TaskFilter) (*task.ListResult, error)
	// Create は新規タスクを未完了状態で作成する。
	Create(ctx context.Context, ownerID, title, description string) (*model.Task, error)
	// Get は所有者スコープでタスク詳細を返す。
	Get(ctx context.Context, ownerID string, taskID int64) (*model.Task, error)
	// Update はタスクを部分更新する。
	Update(ctx context.Context, ownerID string, taskID int64, patch model.TaskPatch) (*model.Task, error)
	// ToggleCompletion は完了状態のみを更新する。
	ToggleCompletion(ctx context.Context, ownerID string, taskID int64, completed *bool) (*model.Task, error)
	// Delete はタスクを削除する。
	Delete(ctx context.Context, ownerID string, taskID int64) error
}

// TaskHandler はタスク管理のHTTPハンドラー。
type TaskHandler struct {
	service TaskServiceInterface
}

// NewTaskHandler はTaskHandlerを生成する。
func NewTaskHandler(service TaskServiceInterface) *TaskHandler {
	return &TaskHandler{
		service: service,
	}
}

// createTaskRequest はタスク作成リクエストのボディ。
type createTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// updateTaskRequest はタスク更新リクエストのボディ。
// 省略されたフィールドは変更しない。
type updateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Completed   *bool   `json:"completed"`
}

// toggleTaskRequest は完了状態更新リクエストのボディ。
type toggleTaskRequest struct {
	Completed *bool `json:"completed"`
}

// taskResponse はタスク情報のAPIレスポンス。
type taskResponse struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Completed   bool       `json:"completed"`
	UserID      string     `json:"user_id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

// taskListResponse はタスク一覧のAPIレスポンス。
// 件数集計はフィルタに関わらず所有者の全タスクを母集合とする。
type taskListResponse struct {
	Tasks     []taskResponse `json:"tasks"`
	Total     int            `json:"total"`
	Pending   int            `json:"pending"`
	Completed int            `json:"completed"`
}

// deleteTaskResponse はタスク削除のAPIレスポンス。
type deleteTaskResponse struct {
	Message string `json:"message"`
}

// List はタスク一覧を取得する。
// GET /api/tasks?status_filter=all|pending|completed
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	filter := model.TaskFilterAll
	if q := r.URL.Query().Get("status_filter"); q != "" {
		filter = model.TaskFilter(q)
	}

	result, err := h.service.List(r.Context(), userID, filter)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toTaskListResponse(result))
}

// Create は新規タスクを作成する。
// POST /api/tasks
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequest(w)
		return
	}

	created, err := h.service.Create(r.Context(), userID, req.Title, req.Description)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toTaskResponse(created))
}

// Get はタスク詳細を取得する。
// GET /api/tasks/{id}
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	taskID, ok := taskIDFromRequest(w, r)
	if !ok {
		return
	}

	found, err := h.service.Get(r.Context(), userID, taskID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toTaskResponse(found))
}

// Update はタスクを部分更新する。
// PUT /api/tasks/{id}
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	taskID, ok := taskIDFromRequest(w, r)
	if !ok {
		return
	}

	var req updateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequest(w)
		return
	}

	updated, err := h.service.Update(r.Context(), userID, taskID, model.TaskPatch{
		Title:       req.Title,
		Description: req.Description,
		Completed:   req.Completed,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toTaskResponse(updated))
}

// Toggle は完了状態のみを更新する第2の更新経路。
// PATCH /api/tasks/{id}/complete
func (h *TaskHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	taskID, ok := taskIDFromRequest(w, r)
	if !ok {
		return
	}

	// completedフィールドが省略された場合はnilのまま渡し、状態を変更しない
	var req toggleTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeInvalidRequest(w)
		return
	}

	updated, err := h.service.ToggleCompletion(r.Context(), userID, taskID, req.Completed)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toTaskResponse(updated))
}

// Delete はタスクを削除する。
// DELETE /api/tasks/{id}
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	taskID, ok := taskIDFromRequest(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), userID, taskID); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, deleteTaskResponse{Message: "タスクを削除しました。"})
}

// --- ヘルパー関数 ---

// taskIDFromRequest はURLパラメータからタスクIDを取り出す。
// 数値として解析できないIDは存在しないタスクと同様に404で応答する。
func taskIDFromRequest(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	taskID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewTaskNotFoundError(0))
		return 0, false
	}
	return taskID, true
}

// toTaskResponse はmodel.TaskからAPIレスポンスに変換する。
func toTaskResponse(t *model.Task) taskResponse {
	return taskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		UserID:      t.UserID,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		CompletedAt: t.CompletedAt,
	}
}

// toTaskListResponse はListResultからAPIレスポンスに変換する。
func toTaskListResponse(result *task.ListResult) taskListResponse {
	tasks := make([]taskResponse, 0, len(result.Tasks))
	for _, t := range result.Tasks {
		tasks = append(tasks, toTaskResponse(t))
	}
	return taskListResponse{
		Tasks:     tasks,
		Total:     result.Counts.Total,
		Pending:   result.Counts.Pending,
		Completed: result.Counts.Completed,
	}
}
