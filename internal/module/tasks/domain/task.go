package domain

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus はタスクの状態を表します
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusProcessing TaskStatus = "processing"
	StatusCompleted  TaskStatus = "completed"
	StatusFailed     TaskStatus = "failed"
)

// Terminal は終端状態(completed / failed)かどうかを返します。
// 終端状態に到達したタスクは以後一切変更されません。
func (s TaskStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

// CanTransition は from から to への状態遷移が許可されているかを返します。
// 許可される遷移は pending→processing、processing→completed、
// processing→failed の3つのみです。
func CanTransition(from, to TaskStatus) bool {
	switch from {
	case StatusPending:
		return to == StatusProcessing
	case StatusProcessing:
		return to == StatusCompleted || to == StatusFailed
	default:
		return false
	}
}

// Task は1件のフィルタリング要求とそのライフサイクルレコードを表します
type Task struct {
	ID           uuid.UUID    `json:"id"`
	Filters      FilterSpec   `json:"filters"`
	Status       TaskStatus   `json:"status"`
	CreatedAt    time.Time    `json:"created_at"`
	CompletedAt  *time.Time   `json:"completed_at,omitempty"`
	Result       []DatasetRow `json:"result,omitempty"`
	ErrorMessage string       `json:"error_message,omitempty"`
}

// Clone はタスクの独立したコピーを返します。
// ストアが返すスナップショットを呼び出し側の変更から隔離するために使います。
func (t *Task) Clone() *Task {
	c := *t
	c.Filters = t.Filters.clone()
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		c.CompletedAt = &at
	}
	if t.Result != nil {
		c.Result = make([]DatasetRow, len(t.Result))
		copy(c.Result, t.Result)
	}
	return &c
}
