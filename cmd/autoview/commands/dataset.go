package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/jinford/autoview/internal/module/dataset/csv"
	"github.com/jinford/autoview/internal/module/dataset/unify"
	"github.com/jinford/autoview/internal/platform/config"
)

// DatasetBuildAction は2つの生データソースを統合CSVに変換するコマンドの
// アクション
func DatasetBuildAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("env"))
	if err != nil {
		return fmt.Errorf("設定の読み込みに失敗: %w", err)
	}

	opts := unify.Options{
		CarsJSONPath: cfg.Dataset.CarsJSONPath,
		MPGCSVPath:   cfg.Dataset.MPGCSVPath,
		OutputPath:   cfg.Dataset.UnifiedPath,
		Seed:         cmd.Int("seed"),
	}
	if v := cmd.String("cars-json"); v != "" {
		opts.CarsJSONPath = v
	}
	if v := cmd.String("mpg-csv"); v != "" {
		opts.MPGCSVPath = v
	}
	if v := cmd.String("out"); v != "" {
		opts.OutputPath = v
	}

	count, err := unify.Build(opts)
	if err != nil {
		return err
	}

	fmt.Printf("統合データを書き出しました: %s (%d行)\n", opts.OutputPath, count)
	return nil
}

// DatasetCheckAction は統合CSVが読み込めることを確認するコマンドのアクション
func DatasetCheckAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("env"))
	if err != nil {
		return fmt.Errorf("設定の読み込みに失敗: %w", err)
	}

	path := cfg.Dataset.UnifiedPath
	if v := cmd.String("path"); v != "" {
		path = v
	}

	rows, err := csv.NewAccessor(path).Rows(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("データセットOK: %s (%d行)\n", path, len(rows))
	return nil
}
