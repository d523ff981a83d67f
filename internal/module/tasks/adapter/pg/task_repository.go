package pg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jinford/autoview/internal/module/tasks/domain"
)

// TaskRepository はタスクレコードの PostgreSQL 永続化アダプターです。
// 同一IDへの Update は行ロック(SELECT ... FOR UPDATE)で直列化され、
// 異なるIDへの操作は互いにブロックしません。
type TaskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository は新しいタスクリポジトリを作成します
func NewTaskRepository(pool *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{pool: pool}
}

// コンパイル時の型チェック
var _ domain.TaskRepository = (*TaskRepository)(nil)

// EnsureSchema はタスクテーブルを作成します(存在しない場合のみ)
func (r *TaskRepository) EnsureSchema(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS tasks (
			id UUID PRIMARY KEY,
			filters JSONB NOT NULL,
			status TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			completed_at TIMESTAMPTZ,
			result JSONB,
			error_message TEXT NOT NULL DEFAULT ''
		)`
	if _, err := r.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create tasks table: %w", err)
	}
	return nil
}

// Create は新しいIDを払い出し、pending 状態のタスクを保存して返します
func (r *TaskRepository) Create(ctx context.Context, filters domain.FilterSpec) (*domain.Task, error) {
	task := &domain.Task{
		ID:        uuid.New(),
		Filters:   filters,
		Status:    domain.StatusPending,
		CreatedAt: time.Now().UTC(),
	}

	filtersJSON, err := json.Marshal(task.Filters)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal filters: %w", err)
	}

	const query = `
		INSERT INTO tasks (id, filters, status, created_at)
		VALUES ($1, $2, $3, $4)`
	if _, err := r.pool.Exec(ctx, query, task.ID, filtersJSON, task.Status, task.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to insert task: %w", err)
	}

	return task, nil
}

// Get は現在のタスクのスナップショットを返します
func (r *TaskRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	const query = `
		SELECT id, filters, status, created_at, completed_at, result, error_message
		FROM tasks
		WHERE id = $1`
	return scanTask(r.pool.QueryRow(ctx, query, id), id)
}

// List は全タスクのスナップショットを作成時刻の昇順で返します
func (r *TaskRepository) List(ctx context.Context) ([]*domain.Task, error) {
	const query = `
		SELECT id, filters, status, created_at, completed_at, result, error_message
		FROM tasks
		ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*domain.Task
	for rows.Next() {
		task, err := scanTask(rows, uuid.Nil)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}
	return tasks, nil
}

// Update は行ロックの下で mutate を現在のタスクに適用します
func (r *TaskRepository) Update(ctx context.Context, id uuid.UUID, mutate func(*domain.Task) error) (*domain.Task, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	const query = `
		SELECT id, filters, status, created_at, completed_at, result, error_message
		FROM tasks
		WHERE id = $1
		FOR UPDATE`
	current, err := scanTask(tx.QueryRow(ctx, query, id), id)
	if err != nil {
		return nil, err
	}

	if current.Status.Terminal() {
		return nil, fmt.Errorf("task %s is already %s: %w", id, current.Status, domain.ErrInvalidTransition)
	}

	next := current.Clone()
	if err := mutate(next); err != nil {
		return nil, err
	}

	if next.Status != current.Status && !domain.CanTransition(current.Status, next.Status) {
		return nil, fmt.Errorf("task %s: %s -> %s: %w", id, current.Status, next.Status, domain.ErrInvalidTransition)
	}

	// ID・作成時刻・フィルタは不変
	next.ID = current.ID
	next.CreatedAt = current.CreatedAt
	next.Filters = current.Filters

	var resultJSON []byte
	if next.Result != nil {
		resultJSON, err = json.Marshal(next.Result)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal result: %w", err)
		}
	}

	const update = `
		UPDATE tasks
		SET status = $2, completed_at = $3, result = $4, error_message = $5
		WHERE id = $1`
	if _, err := tx.Exec(ctx, update, next.ID, next.Status, next.CompletedAt, resultJSON, next.ErrorMessage); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return next, nil
}

// scanTask は1行をタスクレコードに変換します
func scanTask(row pgx.Row, id uuid.UUID) (*domain.Task, error) {
	var (
		task         domain.Task
		filtersJSON  []byte
		resultJSON   []byte
		completedAt  *time.Time
		errorMessage string
	)

	err := row.Scan(&task.ID, &filtersJSON, &task.Status, &task.CreatedAt, &completedAt, &resultJSON, &errorMessage)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", id, domain.ErrTaskNotFound)
		}
		return nil, fmt.Errorf("failed to scan task: %w", err)
	}

	if err := json.Unmarshal(filtersJSON, &task.Filters); err != nil {
		return nil, fmt.Errorf("failed to unmarshal filters: %w", err)
	}
	if resultJSON != nil {
		if err := json.Unmarshal(resultJSON, &task.Result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal result: %w", err)
		}
	}
	task.CompletedAt = completedAt
	task.ErrorMessage = errorMessage

	return &task, nil
}
