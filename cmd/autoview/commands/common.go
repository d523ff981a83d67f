package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jinford/autoview/internal/module/dataset/csv"
	"github.com/jinford/autoview/internal/module/tasks/adapter/memory"
	"github.com/jinford/autoview/internal/module/tasks/adapter/pg"
	"github.com/jinford/autoview/internal/module/tasks/application"
	"github.com/jinford/autoview/internal/module/tasks/domain"
	"github.com/jinford/autoview/internal/platform/config"
	"github.com/jinford/autoview/internal/platform/database"
	"github.com/jinford/autoview/internal/platform/logger"
)

// AppContext はコマンド実行に必要な共通コンテキストを保持する
type AppContext struct {
	Config   *config.Config
	Logger   *slog.Logger
	Store    domain.TaskRepository
	Dataset  domain.DatasetAccessor
	Tasks    *application.TaskService
	database *database.Database
}

// NewAppContext は設定を読み込み、ストアとタスクエンジンを組み立てて
// AppContext を作成する
func NewAppContext(ctx context.Context, envFile string) (*AppContext, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, fmt.Errorf("設定の読み込みに失敗: %w", err)
	}

	appLogger := logger.New(logger.Config{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
	})

	appCtx := &AppContext{
		Config: cfg,
		Logger: appLogger,
	}

	// タスクストアの組み立て
	switch cfg.Store.Backend {
	case config.StoreBackendPostgres:
		db, err := database.New(ctx, database.ConnectionParams{
			Host:     cfg.Store.Database.Host,
			Port:     cfg.Store.Database.Port,
			User:     cfg.Store.Database.User,
			Password: cfg.Store.Database.Password,
			DBName:   cfg.Store.Database.DBName,
			SSLMode:  cfg.Store.Database.SSLMode,
		})
		if err != nil {
			return nil, fmt.Errorf("データベース接続に失敗: %w", err)
		}
		repo := pg.NewTaskRepository(db.Pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("スキーマの初期化に失敗: %w", err)
		}
		appCtx.database = db
		appCtx.Store = repo
	default:
		appCtx.Store = memory.NewStore()
	}

	appCtx.Dataset = csv.NewAccessor(cfg.Dataset.UnifiedPath)
	appCtx.Tasks = application.NewTaskService(appCtx.Store, appCtx.Dataset, appLogger, application.Config{
		QueueSize: cfg.Tasks.QueueSize,
		Workers:   cfg.Tasks.Workers,
	})

	return appCtx, nil
}

// Close はAppContextが保持するリソースをクリーンアップする
func (ac *AppContext) Close() {
	if ac.database != nil {
		ac.database.Close()
	}
}
