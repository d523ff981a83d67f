package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jinford/autoview/internal/module/tasks/domain"
)

// Store は domain.TaskRepository のインメモリ実装です。
// マップ全体のロックはエントリの出し入れにのみ使い、レコードの読み書きは
// エントリごとのロックで行うため、異なるIDへの操作は互いにブロックしません。
type Store struct {
	mu    sync.RWMutex
	tasks map[uuid.UUID]*entry
}

// entry は1レコードとそのレコード専用ロックを保持します
type entry struct {
	mu   sync.Mutex
	task *domain.Task
}

// NewStore は新しいインメモリストアを作成します
func NewStore() *Store {
	return &Store{
		tasks: make(map[uuid.UUID]*entry),
	}
}

// コンパイル時の型チェック
var _ domain.TaskRepository = (*Store)(nil)

// Create は新しいIDを払い出し、pending 状態のタスクを保存して返します
func (s *Store) Create(_ context.Context, filters domain.FilterSpec) (*domain.Task, error) {
	task := &domain.Task{
		ID:        uuid.New(),
		Filters:   filters,
		Status:    domain.StatusPending,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.tasks[task.ID] = &entry{task: task}
	s.mu.Unlock()

	return task.Clone(), nil
}

// Get は現在のタスクのスナップショットを返します
func (s *Store) Get(_ context.Context, id uuid.UUID) (*domain.Task, error) {
	e, ok := s.lookup(id)
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, domain.ErrTaskNotFound)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.task.Clone(), nil
}

// List は全タスクのスナップショットを作成時刻の昇順で返します
func (s *Store) List(_ context.Context) ([]*domain.Task, error) {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.tasks))
	for _, e := range s.tasks {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	tasks := make([]*domain.Task, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		tasks = append(tasks, e.task.Clone())
		e.mu.Unlock()
	}

	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
	return tasks, nil
}

// Update はレコード単位の排他の下で mutate を適用します。
// mutate は現在のレコードのコピーを受け取るため、mutate がエラーを返した場合や
// 遷移が拒否された場合に保存済みレコードが汚れることはありません。
func (s *Store) Update(_ context.Context, id uuid.UUID, mutate func(*domain.Task) error) (*domain.Task, error) {
	e, ok := s.lookup(id)
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, domain.ErrTaskNotFound)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.task.Status.Terminal() {
		return nil, fmt.Errorf("task %s is already %s: %w", id, e.task.Status, domain.ErrInvalidTransition)
	}

	next := e.task.Clone()
	if err := mutate(next); err != nil {
		return nil, err
	}

	if next.Status != e.task.Status && !domain.CanTransition(e.task.Status, next.Status) {
		return nil, fmt.Errorf("task %s: %s -> %s: %w", id, e.task.Status, next.Status, domain.ErrInvalidTransition)
	}

	// ID・作成時刻・フィルタは不変
	next.ID = e.task.ID
	next.CreatedAt = e.task.CreatedAt
	next.Filters = e.task.Filters

	e.task = next
	return next.Clone(), nil
}

// Len は保存されているタスク数を返します(ヘルスチェック用)
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

// lookup はマップロックの下でエントリを取り出します
func (s *Store) lookup(id uuid.UUID) (*entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.tasks[id]
	return e, ok
}
