package testing

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jinford/autoview/internal/module/tasks/domain"
)

// MockTaskRepository はテスト用のモック TaskRepository です
type MockTaskRepository struct {
	CreateFunc func(ctx context.Context, filters domain.FilterSpec) (*domain.Task, error)
	GetFunc    func(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	ListFunc   func(ctx context.Context) ([]*domain.Task, error)
	UpdateFunc func(ctx context.Context, id uuid.UUID, mutate func(*domain.Task) error) (*domain.Task, error)
}

func (m *MockTaskRepository) Create(ctx context.Context, filters domain.FilterSpec) (*domain.Task, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, filters)
	}
	return nil, nil
}

func (m *MockTaskRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockTaskRepository) List(ctx context.Context) ([]*domain.Task, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return nil, nil
}

func (m *MockTaskRepository) Update(ctx context.Context, id uuid.UUID, mutate func(*domain.Task) error) (*domain.Task, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, mutate)
	}
	return nil, nil
}

// MockDatasetAccessor はテスト用のモック DatasetAccessor です
type MockDatasetAccessor struct {
	RowsFunc func(ctx context.Context) ([]domain.DatasetRow, error)
}

func (m *MockDatasetAccessor) Rows(ctx context.Context) ([]domain.DatasetRow, error) {
	if m.RowsFunc != nil {
		return m.RowsFunc(ctx)
	}
	return nil, nil
}

// TestRow はテスト用のデータセット行を作成します
func TestRow(company, name string, saleDate string, price float64) domain.DatasetRow {
	row := domain.DatasetRow{
		Company: company,
		Name:    name,
		Price:   &price,
	}
	if saleDate != "" {
		t, err := time.Parse(domain.DateFormat, saleDate)
		if err != nil {
			panic(err)
		}
		row.SaleDate = &t
	}
	return row
}
