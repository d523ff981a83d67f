package domain

import (
	"context"

	"github.com/google/uuid"
)

// TaskRepository はタスクレコードの永続化ポートです。
//
// 並行性の契約:
//   - 異なるIDに対する操作は互いにブロックしない
//   - 同一IDに対する操作は直列化される(レコード単位の排他)
type TaskRepository interface {
	// Create は新しいIDを払い出し、pending 状態のタスクを保存して返します。
	// 2つの並行呼び出しが同じIDを受け取ることはありません。
	Create(ctx context.Context, filters FilterSpec) (*Task, error)

	// Get は現在のタスクのスナップショットを返します。
	// 存在しないIDの場合は ErrTaskNotFound を返します。
	Get(ctx context.Context, id uuid.UUID) (*Task, error)

	// List は全タスクのスナップショットを作成時刻の昇順で返します
	List(ctx context.Context) ([]*Task, error)

	// Update はレコード単位の排他の下で mutate を現在のタスクに適用します。
	// 終端状態のレコードを動かそうとする変更、および許可されていない状態遷移は
	// ErrInvalidTransition で拒否され、レコードは変更されません。
	Update(ctx context.Context, id uuid.UUID, mutate func(*Task) error) (*Task, error)
}
