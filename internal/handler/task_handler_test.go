package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/taskman/internal/middleware"
	"github.com/hitoshi/taskman/internal/model"
	"github.com/hitoshi/taskman/internal/task"
)

// --- モック定義 ---

type mockTaskService struct {
	listFn   func(ctx context.Context, ownerID string, filter model.TaskFilter) (*task.ListResult, error)
	createFn func(ctx context.Context, ownerID, title, description string) (*model.Task, error)
	getFn    func(ctx context.Context, ownerID string, taskID int64) (*model.Task, error)
	updateFn func(ctx context.Context, ownerID string, taskID int64, patch model.TaskPatch) (*model.Task, error)
	toggleFn func(ctx context.Context, ownerID string, taskID int64, completed *bool) (*model.Task, error)
	deleteFn func(ctx context.Context, ownerID string, taskID int64) error
}

func (m *mockTaskService) List(ctx context.Context, ownerID string, filter model.TaskFilter) (*task.ListResult, error) {
	if m.listFn != nil {
		return m.listFn(ctx, ownerID, filter)
	}
	return &task.ListResult{}, nil
}
func (m *mockTaskService) Create(ctx context.Context, ownerID, title, description string) (*model.Task, error) {
	if m.createFn != nil {
		return m.createFn(ctx, ownerID, title, description)
	}
	return nil, nil
}
func (m *mockTaskService) Get(ctx context.Context, ownerID string, taskID int64) (*model.Task, error) {
	if m.getFn != nil {
		return m.getFn(ctx, ownerID, taskID)
	}
	return nil, nil
}
func (m *mockTaskService) Update(ctx context.Context, ownerID string, taskID int64, patch model.TaskPatch) (*model.Task, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, ownerID, taskID, patch)
	}
	return nil, nil
}
func (m *mockTaskService) ToggleCompletion(ctx context.Context, ownerID string, taskID int64, completed *bool) (*model.Task, error) {
	if m.toggleFn != nil {
		return m.toggleFn(ctx, ownerID, taskID, completed)
	}
	return nil, nil
}
func (m *mockTaskService) Delete(ctx context.Context, ownerID string, taskID int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, ownerID, taskID)
	}
	return nil
}

// taskRouter はタスクルートのみを構成したテスト用ルーターを返す。
func taskRouter(service TaskServiceInterface) http.Handler {
	h := NewTaskHandler(service)
	r := chi.NewRouter()
	r.Route("/api/tasks", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Put("/", h.Update)
			r.Delete("/", h.Delete)
			r.Patch("/complete", h.Toggle)
		})
	})
	return r
}

// withUserID は認証済みコンテキストを持つリクエストを生成する。
func withUserID(req *http.Request, userID string) *http.Request {
	return req.WithContext(middleware.ContextWithUserID(req.Context(), userID))
}

func sampleTask() *model.Task {
	now := time.Now()
	return &model.Task{
		ID:          1,
		UserID:      "user-123",
		Title:       "Buy Groceries",
		Description: "Milk, Bread, Eggs",
		Completed:   false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// --- テスト ---

func TestTaskHandler_List_ReturnsTasksWithCounts(t *testing.T) {
	service := &mockTaskService{
		listFn: func(ctx context.Context, ownerID string, filter model.TaskFilter) (*task.ListResult, error) {
			return &task.ListResult{
				Tasks:  []*model.Task{sampleTask()},
				Counts: model.TaskCounts{Total: 3, Pending: 2, Completed: 1},
			}, nil
		},
	}
	router := taskRouter(service)

	req := withUserID(httptest.NewRequest(http.MethodGet, "/api/tasks", nil), "user-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var got taskListResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if len(got.Tasks) != 1 {
		t.Errorf("len(tasks) = %d, want 1", len(got.Tasks))
	}
	if got.Total != 3 || got.Pending != 2 || got.Completed != 1 {
		t.Errorf("counts = total:%d pending:%d completed:%d, want 3/2/1", got.Total, got.Pending, got.Completed)
	}
}

func TestTaskHandler_List_PassesStatusFilter(t *testing.T) {
	var gotFilter model.TaskFilter
	service := &mockTaskService{
		listFn: func(ctx context.Context, ownerID string, filter model.TaskFilter) (*task.ListResult, error) {
			gotFilter = filter
			return &task.ListResult{}, nil
		},
	}
	router := taskRouter(service)

	req := withUserID(httptest.NewRequest(http.MethodGet, "/api/tasks?status_filter=pending", nil), "user-123")
	router.ServeHTTP(httptest.NewRecorder(), req)

	if gotFilter != model.TaskFilterPending {
		t.Errorf("filter = %q, want %q", gotFilter, model.TaskFilterPending)
	}
}

func TestTaskHandler_List_DefaultsToAllFilter(t *testing.T) {
	var gotFilter model.TaskFilter
	service := &mockTaskService{
		listFn: func(ctx context.Context, ownerID string, filter model.TaskFilter) (*task.ListResult, error) {
			gotFilter = filter
			return &task.ListResult{}, nil
		},
	}
	router := taskRouter(service)

	req := withUserID(httptest.NewRequest(http.MethodGet, "/api/tasks", nil), "user-123")
	router.ServeHTTP(httptest.NewRecorder(), req)

	if gotFilter != model.TaskFilterAll {
		t.Errorf("filter = %q, want %q", gotFilter, model.TaskFilterAll)
	}
}

func TestTaskHandler_List_InvalidFilter_Returns400(t *testing.T) {
	service := &mockTaskService{
		listFn: func(ctx context.Context, ownerID string, filter model.TaskFilter) (*task.ListResult, error) {
			return nil, model.NewInvalidFilterError(string(filter))
		},
	}
	router := taskRouter(service)

	req := withUserID(httptest.NewRequest(http.MethodGet, "/api/tasks?status_filter=bogus", nil), "user-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
}

func TestTaskHandler_Create_Returns201(t *testing.T) {
	service := &mockTaskService{
		createFn: func(ctx context.Context, ownerID, title, description string) (*model.Task, error) {
			created := sampleTask()
			created.Title = title
			created.Description = description
			return created, nil
		},
	}
	router := taskRouter(service)

	body := `{"title":"Buy Groceries","description":"Milk, Bread, Eggs"}`
	req := withUserID(httptest.NewRequest(http.MethodPost, "/api/tasks", strings.NewReader(body)), "user-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}

	var got taskResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if got.Title != "Buy Groceries" {
		t.Errorf("title = %q, want %q", got.Title, "Buy Groceries")
	}
	if got.Completed {
		t.Error("new task should not be completed")
	}
	if got.CompletedAt != nil {
		t.Error("new task should have null completed_at")
	}
	if got.UserID != "user-123" {
		t.Errorf("user_id = %q, want %q", got.UserID, "user-123")
	}
}

func TestTaskHandler_Create_EmptyTitle_Returns422(t *testing.T) {
	service := &mockTaskService{
		createFn: func(ctx context.Context, ownerID, title, description string) (*model.Task, error) {
			return nil, model.NewValidationError("title", "タイトルは必須です")
		},
	}
	router := taskRouter(service)

	body := `{"title":"","description":""}`
	req := withUserID(httptest.NewRequest(http.MethodPost, "/api/tasks", strings.NewReader(body)), "user-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnprocessableEntity)
	}
}

func TestTaskHandler_Get_ReturnsTask(t *testing.T) {
	service := &mockTaskService{
		getFn: func(ctx context.Context, ownerID string, taskID int64) (*model.Task, error) {
			found := sampleTask()
			found.ID = taskID
			return found, nil
		},
	}
	router := taskRouter(service)

	req := withUserID(httptest.NewRequest(http.MethodGet, "/api/tasks/7", nil), "user-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var got taskResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if got.ID != 7 {
		t.Errorf("id = %d, want 7", got.ID)
	}
}

func TestTaskHandler_Get_NotFound_Returns404(t *testing.T) {
	service := &mockTaskService{
		getFn: func(ctx context.Context, ownerID string, taskID int64) (*model.Task, error) {
			return nil, model.NewTaskNotFoundError(taskID)
		},
	}
	router := taskRouter(service)

	req := withUserID(httptest.NewRequest(http.MethodGet, "/api/tasks/99", nil), "user-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNotFound)
	}
}

func TestTaskHandler_Get_NonNumericID_Returns404(t *testing.T) {
	getCalled := false
	service := &mockTaskService{
		getFn: func(ctx context.Context, ownerID string, taskID int64) (*model.Task, error) {
			getCalled = true
			return sampleTask(), nil
		},
	}
	router := taskRouter(service)

	req := withUserID(httptest.NewRequest(http.MethodGet, "/api/tasks/abc", nil), "user-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNotFound)
	}
	if getCalled {
		t.Error("service should not be called for a non-numeric ID")
	}
}

func TestTaskHandler_Update_PassesPatchFields(t *testing.T) {
	var gotPatch model.TaskPatch
	service := &mockTaskService{
		updateFn: func(ctx context.Context, ownerID string, taskID int64, patch model.TaskPatch) (*model.Task, error) {
			gotPatch = patch
			return sampleTask(), nil
		},
	}
	router := taskRouter(service)

	body := `{"title":"New Title","completed":true}`
	req := withUserID(httptest.NewRequest(http.MethodPut, "/api/tasks/1", strings.NewReader(body)), "user-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	if gotPatch.Title == nil || *gotPatch.Title != "New Title" {
		t.Errorf("patch.Title = %v, want New Title", gotPatch.Title)
	}
	if gotPatch.Description != nil {
		t.Error("patch.Description should be nil for omitted field")
	}
	if gotPatch.Completed == nil || !*gotPatch.Completed {
		t.Errorf("patch.Completed = %v, want true", gotPatch.Completed)
	}
}

// TestTaskHandler_Toggle_OmittedCompleted_LeavesStateUnchanged は
// ボディなしのPATCHでcompletedフィールドが省略された場合、サービスに
// nilが渡り状態が変更されないことを検証する。
func TestTaskHandler_Toggle_OmittedCompleted_LeavesStateUnchanged(t *testing.T) {
	var gotCompleted *bool
	service := &mockTaskService{
		toggleFn: func(ctx context.Context, ownerID string, taskID int64, completed *bool) (*model.Task, error) {
			gotCompleted = completed
			return sampleTask(), nil
		},
	}
	router := taskRouter(service)

	req := withUserID(httptest.NewRequest(http.MethodPatch, "/api/tasks/1/complete", nil), "user-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if gotCompleted != nil {
		t.Errorf("completed = %v, want nil for omitted field", *gotCompleted)
	}

	var got taskResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if got.Completed || got.CompletedAt != nil {
		t.Error("response should reflect the unchanged pending state")
	}
}

// TestTaskHandler_Toggle_EmptyObjectBody_LeavesStateUnchanged は
// 空のJSONオブジェクト{}でも省略時と同様にnilが渡ることを検証する。
func TestTaskHandler_Toggle_EmptyObjectBody_LeavesStateUnchanged(t *testing.T) {
	var gotCompleted *bool
	service := &mockTaskService{
		toggleFn: func(ctx context.Context, ownerID string, taskID int64, completed *bool) (*model.Task, error) {
			gotCompleted = completed
			return sampleTask(), nil
		},
	}
	router := taskRouter(service)

	req := withUserID(httptest.NewRequest(http.MethodPatch, "/api/tasks/1/complete", strings.NewReader(`{}`)), "user-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	if gotCompleted != nil {
		t.Errorf("completed = %v, want nil for empty object body", *gotCompleted)
	}
}

// TestTaskHandler_Toggle_ExplicitTrue は明示的なcompleted=trueで完了への
// 遷移がサービスに渡ることを検証する。
func TestTaskHandler_Toggle_ExplicitTrue(t *testing.T) {
	var gotCompleted *bool
	service := &mockTaskService{
		toggleFn: func(ctx context.Context, ownerID string, taskID int64, completed *bool) (*model.Task, error) {
			gotCompleted = completed
			updated := sampleTask()
			updated.Completed = true
			now := time.Now()
			updated.CompletedAt = &now
			return updated, nil
		},
	}
	router := taskRouter(service)

	body := `{"completed":true}`
	req := withUserID(httptest.NewRequest(http.MethodPatch, "/api/tasks/1/complete", strings.NewReader(body)), "user-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if gotCompleted == nil || !*gotCompleted {
		t.Errorf("completed = %v, want true", gotCompleted)
	}

	var got taskResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if !got.Completed || got.CompletedAt == nil {
		t.Error("response should reflect completed state with completed_at")
	}
}

func TestTaskHandler_Toggle_ExplicitFalse(t *testing.T) {
	var gotCompleted *bool
	service := &mockTaskService{
		toggleFn: func(ctx context.Context, ownerID string, taskID int64, completed *bool) (*model.Task, error) {
			gotCompleted = completed
			return sampleTask(), nil
		},
	}
	router := taskRouter(service)

	body := `{"completed":false}`
	req := withUserID(httptest.NewRequest(http.MethodPatch, "/api/tasks/1/complete", strings.NewReader(body)), "user-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	if gotCompleted == nil || *gotCompleted {
		t.Errorf("completed = %v, want false", gotCompleted)
	}
}

func TestTaskHandler_Delete_Returns200WithMessage(t *testing.T) {
	var gotOwner string
	service := &mockTaskService{
		deleteFn: func(ctx context.Context, ownerID string, taskID int64) error {
			gotOwner = ownerID
			return nil
		},
	}
	router := taskRouter(service)

	req := withUserID(httptest.NewRequest(http.MethodDelete, "/api/tasks/1", nil), "user-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if gotOwner != "user-123" {
		t.Errorf("ownerID = %q, want %q", gotOwner, "user-123")
	}

	var got deleteTaskResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if got.Message == "" {
		t.Error("message should be populated")
	}
}

func TestTaskHandler_Delete_NotFound_Returns404(t *testing.T) {
	service := &mockTaskService{
		deleteFn: func(ctx context.Context, ownerID string, taskID int64) error {
			return model.NewTaskNotFoundError(taskID)
		},
	}
	router := taskRouter(service)

	req := withUserID(httptest.NewRequest(http.MethodDelete, "/api/tasks/99", nil), "user-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNotFound)
	}
}

func TestTaskHandler_NoAuthContext_Returns401(t *testing.T) {
	router := taskRouter(&mockTaskService{})

	tests := []struct {
		name   string
		method string
		path   string
	}{
		{name: "list", method: http.MethodGet, path: "/api/tasks"},
		{name: "create", method: http.MethodPost, path: "/api/tasks"},
		{name: "get", method: http.MethodGet, path: "/api/tasks/1"},
		{name: "update", method: http.MethodPut, path: "/api/tasks/1"},
		{name: "toggle", method: http.MethodPatch, path: "/api/tasks/1/complete"},
		{name: "delete", method: http.MethodDelete, path: "/api/tasks/1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Result().StatusCode != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
			}
		})
	}
}
