package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"

	"github.com/jinford/autoview/internal/module/tasks/domain"
	translateadapter "github.com/jinford/autoview/internal/module/translate/adapter"
	translateapp "github.com/jinford/autoview/internal/module/translate/application"
)

// pollInterval はタスク完了待ちのポーリング間隔
const pollInterval = 50 * time.Millisecond

// TaskSubmitAction はフィルタリングタスクを投入するコマンドのアクション
func TaskSubmitAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	raw := domain.RawFilterInput{
		StartDate: cmd.String("start-date"),
		EndDate:   cmd.String("end-date"),
		Companies: cmd.String("companies"),
		MinPrice:  cmd.String("min-price"),
		MaxPrice:  cmd.String("max-price"),
	}

	return submitAndReport(ctx, appCtx, raw, cmd.Bool("wait"))
}

// TaskShowAction はタスクの現在状態を表示するコマンドのアクション
func TaskShowAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	id, err := uuid.Parse(cmd.String("id"))
	if err != nil {
		return fmt.Errorf("不正なタスクID: %w", err)
	}

	task, err := appCtx.Tasks.Status(ctx, id)
	if err != nil {
		return err
	}

	printTask(task)
	return nil
}

// TaskListAction は全タスクの一覧を表示するコマンドのアクション
func TaskListAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	tasks, err := appCtx.Tasks.List(ctx)
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("ID", "Status", "Created At", "Rows", "Error")

	for _, task := range tasks {
		rows := ""
		if task.Status == domain.StatusCompleted {
			rows = fmt.Sprintf("%d", len(task.Result))
		}
		table.Append(task.ID.String(), string(task.Status), task.CreatedAt.Format(time.RFC3339), rows, task.ErrorMessage)
	}

	table.Render()
	return nil
}

// TaskAskAction は自然言語の質問からタスクを投入するコマンドのアクション
func TaskAskAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	client, err := translateadapter.NewOpenAIClient(
		appCtx.Config.Translate.APIKey,
		appCtx.Config.Translate.Model,
	)
	if err != nil {
		return fmt.Errorf("LLMクライアントの初期化に失敗: %w", err)
	}

	translator := translateapp.NewTranslator(client, appCtx.Logger)
	raw, err := translator.Translate(ctx, cmd.String("query"))
	if err != nil {
		return fmt.Errorf("質問の変換に失敗: %w", err)
	}

	fmt.Printf("変換されたフィルタ: %+v\n", raw)

	return submitAndReport(ctx, appCtx, raw, true)
}

// submitAndReport はタスクを投入し、必要に応じて完了を待って結果を表示する
func submitAndReport(ctx context.Context, appCtx *AppContext, raw domain.RawFilterInput, wait bool) error {
	appCtx.Tasks.Start(ctx)
	defer appCtx.Tasks.Stop()

	task, err := appCtx.Tasks.Submit(ctx, raw)
	if err != nil {
		return fmt.Errorf("タスクの投入に失敗: %w", err)
	}

	fmt.Printf("タスクを作成しました: %s\n", task.ID)

	if !wait {
		printTask(task)
		return nil
	}

	for !task.Status.Terminal() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}

		task, err = appCtx.Tasks.Status(ctx, task.ID)
		if err != nil {
			return err
		}
	}

	printTask(task)
	return nil
}

// printTask はタスクレコードを人間向けに表示する
func printTask(task *domain.Task) {
	fmt.Printf("ID:         %s\n", task.ID)
	fmt.Printf("Status:     %s\n", task.Status)
	fmt.Printf("Created At: %s\n", task.CreatedAt.Format(time.RFC3339))
	if task.CompletedAt != nil {
		fmt.Printf("Completed:  %s\n", task.CompletedAt.Format(time.RFC3339))
	}
	if task.ErrorMessage != "" {
		fmt.Printf("Error:      %s\n", task.ErrorMessage)
	}

	if task.Status != domain.StatusCompleted {
		return
	}

	fmt.Printf("Rows:       %d\n", len(task.Result))

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Company", "Name", "Sale Date", "Price", "Origin")

	for _, row := range task.Result {
		saleDate := ""
		if row.SaleDate != nil {
			saleDate = row.SaleDate.Format(domain.DateFormat)
		}
		price := ""
		if row.Price != nil {
			price = fmt.Sprintf("%.0f", *row.Price)
		}
		table.Append(row.Company, row.Name, saleDate, price, row.Origin)
	}

	table.Render()
}
