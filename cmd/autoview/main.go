package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jinford/autoview/cmd/autoview/commands"
	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 構造化ログの設定
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	app := &cli.Command{
		Name:  "autoview",
		Usage: "自動車販売データの非同期フィルタリングタスクエンジン",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "HTTP APIサーバを起動",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "env",
						Usage: "環境変数ファイルパス",
						Value: ".env",
					},
				},
				Action: commands.ServeAction,
			},
			{
				Name:  "task",
				Usage: "タスク管理コマンド",
				Commands: []*cli.Command{
					{
						Name:  "submit",
						Usage: "フィルタ条件を指定してタスクを投入",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "env",
								Usage: "環境変数ファイルパス",
								Value: ".env",
							},
							&cli.StringFlag{
								Name:  "start-date",
								Usage: "販売日の下限 (YYYY-MM-DD)",
							},
							&cli.StringFlag{
								Name:  "end-date",
								Usage: "販売日の上限 (YYYY-MM-DD)",
							},
							&cli.StringFlag{
								Name:  "companies",
								Usage: "メーカー名（カンマ区切り）",
							},
							&cli.StringFlag{
								Name:  "min-price",
								Usage: "価格の下限",
							},
							&cli.StringFlag{
								Name:  "max-price",
								Usage: "価格の上限",
							},
							&cli.BoolFlag{
								Name:  "wait",
								Usage: "タスク完了まで待機して結果を表示",
							},
						},
						Action: commands.TaskSubmitAction,
					},
					{
						Name:  "show",
						Usage: "タスクの状態と結果を表示",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "env",
								Usage: "環境変数ファイルパス",
								Value: ".env",
							},
							&cli.StringFlag{
								Name:     "id",
								Usage:    "タスクID",
								Required: true,
							},
						},
						Action: commands.TaskShowAction,
					},
					{
						Name:  "list",
						Usage: "タスク一覧を表示",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "env",
								Usage: "環境変数ファイルパス",
								Value: ".env",
							},
						},
						Action: commands.TaskListAction,
					},
					{
						Name:  "ask",
						Usage: "自然言語の問い合わせからタスクを投入",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "env",
								Usage: "環境変数ファイルパス",
								Value: ".env",
							},
							&cli.StringFlag{
								Name:     "query",
								Usage:    "自然言語の絞り込み条件 (例: フォードの2000ドル以下の車)",
								Required: true,
							},
						},
						Action: commands.TaskAskAction,
					},
				},
			},
			{
				Name:  "dataset",
				Usage: "データセット管理コマンド",
				Commands: []*cli.Command{
					{
						Name:  "build",
						Usage: "生データソースを統合CSVに変換",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "env",
								Usage: "環境変数ファイルパス",
								Value: ".env",
							},
							&cli.StringFlag{
								Name:  "cars-json",
								Usage: "cars.json のパス（省略時は環境変数）",
							},
							&cli.StringFlag{
								Name:  "mpg-csv",
								Usage: "mpg.csv のパス（省略時は環境変数）",
							},
							&cli.StringFlag{
								Name:  "out",
								Usage: "出力先CSVパス（省略時は環境変数）",
							},
							&cli.IntFlag{
								Name:  "seed",
								Usage: "価格シミュレーションの乱数シード",
							},
						},
						Action: commands.DatasetBuildAction,
					},
					{
						Name:  "check",
						Usage: "統合CSVの読み込み確認",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "env",
								Usage: "環境変数ファイルパス",
								Value: ".env",
							},
							&cli.StringFlag{
								Name:  "path",
								Usage: "統合CSVパス（省略時は環境変数）",
							},
						},
						Action: commands.DatasetCheckAction,
					},
				},
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
