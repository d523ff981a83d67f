package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jinford/autoview/internal/module/tasks/domain"
)

const (
	// DefaultQueueSize は実行待ちキューのデフォルト容量
	DefaultQueueSize = 100

	// DefaultWorkers はワーカーゴルーチンのデフォルト数
	DefaultWorkers = 1
)

// errAlreadyStarted は再スケジュールされたタスクの実行開始を静かに打ち切るための番兵
var errAlreadyStarted = errors.New("task execution already started")

// スケジュール不能の理由。failed レコードの ErrorMessage に使われる。
var (
	errQueueFull     = errors.New("task queue is full")
	errEngineStopped = errors.New("task engine is stopped")
)

// Config は TaskService の実行設定です
type Config struct {
	// QueueSize は実行待ちキューの容量。0以下の場合は DefaultQueueSize。
	QueueSize int

	// Workers はワーカーゴルーチンの数。0以下の場合は DefaultWorkers。
	Workers int
}

// TaskService はタスクエンジン本体です。フィルタ入力の検証、タスクレコードの
// 作成、非同期実行のディスパッチ、状態遷移の適用を統括します。
type TaskService struct {
	repo    domain.TaskRepository
	dataset domain.DatasetAccessor
	log     *slog.Logger

	queue   chan uuid.UUID
	workers int

	// mu は queue への送信と close の排他に使う。stopped が立った後に
	// 送信側が閉じたチャネルへ書き込むことはない。
	mu      sync.RWMutex
	stopped bool

	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewTaskService は新しい TaskService を作成します
func NewTaskService(repo domain.TaskRepository, dataset domain.DatasetAccessor, log *slog.Logger, cfg Config) *TaskService {
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	return &TaskService{
		repo:    repo,
		dataset: dataset,
		log:     log,
		queue:   make(chan uuid.UUID, queueSize),
		workers: workers,
	}
}

// Start はワーカーゴルーチンを起動します。二重起動は無視されます。
// ctx がキャンセルされるとワーカーは現在の実行を終えた後に停止します。
func (s *TaskService) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		for i := 0; i < s.workers; i++ {
			s.wg.Add(1)
			go s.workerLoop(ctx, i)
		}
		s.log.Info("task workers started", "workers", s.workers, "queueSize", cap(s.queue))
	})
}

// Stop はキューを閉じ、すべてのワーカーの終了を待ちます。
// Stop 以降の Submit はスケジュールされず、タスクは即座に failed になります。
func (s *TaskService) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopped = true
		close(s.queue)
		s.mu.Unlock()
	})
	s.wg.Wait()
	s.log.Info("task workers stopped")
}

// workerLoop はキューからタスクIDを取り出して実行し続けます
func (s *TaskService) workerLoop(ctx context.Context, worker int) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("worker shutting down", "worker", worker, "reason", ctx.Err())
			return
		case id, ok := <-s.queue:
			if !ok {
				return
			}
			s.runExecution(ctx, id)
		}
	}
}

// Submit はフィルタ入力を検証し、タスクレコードを作成して実行をスケジュール
// します。作成されたレコードは即座に返り、実行は呼び出し元をブロックしません。
// 検証に失敗した場合、レコードは一切作成されません。
func (s *TaskService) Submit(ctx context.Context, raw domain.RawFilterInput) (*domain.Task, error) {
	spec, err := domain.ParseFilterSpec(raw)
	if err != nil {
		return nil, err
	}

	task, err := s.repo.Create(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.log.Info("task submitted", "taskID", task.ID, "filters", spec)

	if err := s.enqueue(task.ID); err != nil {
		// スケジュールできなかったタスクは即座に失敗させる。
		// レコードは返すので、呼び出し側は失敗の理由を参照できる。
		s.log.Error("task could not be scheduled", "taskID", task.ID, "reason", err)
		return s.failUnscheduled(ctx, task.ID, err)
	}

	return task, nil
}

// enqueue はタスクIDをキューに載せます。キューが満杯の場合は errQueueFull、
// エンジンが停止済みの場合は errEngineStopped を返します。
func (s *TaskService) enqueue(id uuid.UUID) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.stopped {
		return errEngineStopped
	}

	select {
	case s.queue <- id:
		return nil
	default:
		return errQueueFull
	}
}

// Status は現在のタスクレコードをそのまま返します。
// 存在しないIDの場合は domain.ErrTaskNotFound を返します。
func (s *TaskService) Status(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	return s.repo.Get(ctx, id)
}

// List は全タスクレコードを作成時刻の昇順で返します
func (s *TaskService) List(ctx context.Context) ([]*domain.Task, error) {
	return s.repo.List(ctx)
}

// QueueDepth は実行待ちタスク数を返します(ヘルスチェック用)
func (s *TaskService) QueueDepth() int {
	return len(s.queue)
}

// Workers はワーカー数を返します(ヘルスチェック用)
func (s *TaskService) Workers() int {
	return s.workers
}

// runExecution は1タスクの実行フローです。
// pending→processing に遷移した後は、どのような失敗が起きても必ず1回だけ
// 終端遷移(completed または failed)を行い、processing のまま放置しません。
func (s *TaskService) runExecution(ctx context.Context, id uuid.UUID) {
	task, err := s.repo.Update(ctx, id, func(t *domain.Task) error {
		if t.Status != domain.StatusPending {
			return errAlreadyStarted
		}
		t.Status = domain.StatusProcessing
		return nil
	})
	if err != nil {
		// すでに実行が始まっている(あるいは終端に達している)タスクは静かに打ち切る
		if errors.Is(err, errAlreadyStarted) || errors.Is(err, domain.ErrInvalidTransition) {
			s.log.Warn("skipping task not in pending state", "taskID", id)
			return
		}
		s.log.Error("failed to start task execution", "taskID", id, "error", err)
		return
	}

	s.log.Info("task processing started", "taskID", id)

	var finished bool
	defer func() {
		if r := recover(); r != nil {
			s.finalizeFailure(ctx, id, fmt.Sprintf("panic during execution: %v", r))
			return
		}
		if !finished {
			s.finalizeFailure(ctx, id, "execution ended without a result")
		}
	}()

	rows, err := s.dataset.Rows(ctx)
	if err != nil {
		s.finalizeFailure(ctx, id, fmt.Sprintf("%v: %v", domain.ErrDatasetRead, err))
		finished = true
		return
	}

	result := task.Filters.Apply(rows)

	s.finalizeSuccess(ctx, id, result)
	finished = true
}

// finalizeSuccess は processing→completed の終端遷移を行います
func (s *TaskService) finalizeSuccess(ctx context.Context, id uuid.UUID, result []domain.DatasetRow) {
	_, err := s.repo.Update(ctx, id, func(t *domain.Task) error {
		now := time.Now().UTC()
		t.Status = domain.StatusCompleted
		t.Result = result
		t.CompletedAt = &now
		return nil
	})
	if err != nil {
		s.log.Error("failed to complete task", "taskID", id, "error", err)
		return
	}
	s.log.Info("task completed", "taskID", id, "rows", len(result))
}

// finalizeFailure は processing→failed の終端遷移を行います。
// タスク1件の失敗はそのタスクの終端状態に閉じ込め、他のタスクや
// エンジン自体には波及させません。
func (s *TaskService) finalizeFailure(ctx context.Context, id uuid.UUID, message string) {
	_, err := s.repo.Update(ctx, id, func(t *domain.Task) error {
		now := time.Now().UTC()
		t.Status = domain.StatusFailed
		t.ErrorMessage = message
		t.CompletedAt = &now
		return nil
	})
	if err != nil {
		s.log.Error("failed to mark task as failed", "taskID", id, "error", err)
		return
	}
	s.log.Warn("task failed", "taskID", id, "errorMessage", message)
}

// failUnscheduled はキューに載せられなかったタスクを failed まで送り届けます。
// 状態機械の正当性を保つため processing を経由して失敗させます。
func (s *TaskService) failUnscheduled(ctx context.Context, id uuid.UUID, cause error) (*domain.Task, error) {
	_, err := s.repo.Update(ctx, id, func(t *domain.Task) error {
		t.Status = domain.StatusProcessing
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fail unscheduled task: %w", err)
	}

	task, err := s.repo.Update(ctx, id, func(t *domain.Task) error {
		now := time.Now().UTC()
		t.Status = domain.StatusFailed
		t.ErrorMessage = fmt.Sprintf("%v, please retry later", cause)
		t.CompletedAt = &now
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fail unscheduled task: %w", err)
	}
	return task, nil
}
