package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/jinford/autoview/internal/module/tasks/domain"
)

// createTaskRequest はタスク作成リクエストのボディ
type createTaskRequest struct {
	Filters domain.RawFilterInput `json:"filters"`
}

// createTaskResponse はタスク作成レスポンスのボディ
type createTaskResponse struct {
	Message string       `json:"message"`
	Task    taskResponse `json:"task"`
}

// taskResponse はタスクレコードのワイヤ表現です。
// result キーは status が completed の場合に限り必ず含まれ、
// 一致0件の完了タスクでは空配列になります。
type taskResponse struct {
	ID           string               `json:"id"`
	Filters      domain.FilterSpec    `json:"filters"`
	Status       domain.TaskStatus    `json:"status"`
	CreatedAt    time.Time            `json:"created_at"`
	CompletedAt  *time.Time           `json:"completed_at,omitempty"`
	Result       *[]domain.DatasetRow `json:"result,omitempty"`
	ErrorMessage string               `json:"error_message,omitempty"`
}

// newTaskResponse はタスクレコードをワイヤ表現に変換します
func newTaskResponse(task *domain.Task) taskResponse {
	resp := taskResponse{
		ID:           task.ID.String(),
		Filters:      task.Filters,
		Status:       task.Status,
		CreatedAt:    task.CreatedAt,
		CompletedAt:  task.CompletedAt,
		ErrorMessage: task.ErrorMessage,
	}
	if task.Status == domain.StatusCompleted {
		result := task.Result
		if result == nil {
			result = []domain.DatasetRow{}
		}
		resp.Result = &result
	}
	return resp
}

// errorResponse はエラーレスポンスのボディ
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// healthResponse はヘルスチェックレスポンスのボディ
type healthResponse struct {
	Status     string `json:"status"`
	QueueDepth int    `json:"queue_depth"`
	Workers    int    `json:"workers"`
}

// handleCreateTask はタスク作成エンドポイントです。
// 検証エラーは 400 で即座に返り、タスクは作成されません。
func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   "Invalid request",
			Message: "request body must be a JSON object",
		})
		return
	}

	task, err := s.tasks.Submit(r.Context(), req.Filters)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidFilter) || errors.Is(err, domain.ErrInvalidFilterRange) {
			writeJSON(w, http.StatusBadRequest, errorResponse{
				Error:   "Invalid filters",
				Message: err.Error(),
			})
			return
		}
		s.log.Error("failed to submit task", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   "Internal server error",
			Message: "failed to create task",
		})
		return
	}

	// キューが満杯だった場合、タスクは作成済みだが即座に失敗している
	if task.Status == domain.StatusFailed {
		writeJSON(w, http.StatusServiceUnavailable, createTaskResponse{
			Message: "Server is busy, please try again later",
			Task:    newTaskResponse(task),
		})
		return
	}

	writeJSON(w, http.StatusCreated, createTaskResponse{
		Message: "Task created",
		Task:    newTaskResponse(task),
	})
}

// handleGetTask はタスク状態取得エンドポイントです。
// result は status が completed の場合にのみ含まれます。
func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{
			Error:   "Not found",
			Message: "task not found",
		})
		return
	}

	task, err := s.tasks.Status(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrTaskNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{
				Error:   "Not found",
				Message: "task not found",
			})
			return
		}
		s.log.Error("failed to get task", "taskID", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   "Internal server error",
			Message: "failed to get task",
		})
		return
	}

	writeJSON(w, http.StatusOK, newTaskResponse(task))
}

// handleHealth はヘルスチェックエンドポイントです
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:     "healthy",
		QueueDepth: s.tasks.QueueDepth(),
		Workers:    s.tasks.Workers(),
	})
}

// writeJSON はレスポンスをJSONとして書き出します
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
