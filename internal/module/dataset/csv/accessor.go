package csv

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jinford/autoview/internal/module/tasks/domain"
)

// Accessor は統合済み CSV ファイルを読み込む domain.DatasetAccessor 実装です。
// 最初の読み込みが成功した後は行をメモリに保持し、以後の呼び出しはコピーを
// 返すだけです。読み込みに失敗した場合はキャッシュせず、次の呼び出しで再試行
// します。
type Accessor struct {
	path string

	mu   sync.Mutex
	rows []domain.DatasetRow
}

// NewAccessor は新しい CSV アクセサを作成します。
// ファイルの読み込みは最初の Rows 呼び出しまで遅延されます。
func NewAccessor(path string) *Accessor {
	return &Accessor{path: path}
}

// コンパイル時の型チェック
var _ domain.DatasetAccessor = (*Accessor)(nil)

// Rows はデータセットの全行をファイル内の並び順で返します
func (a *Accessor) Rows(ctx context.Context) ([]domain.DatasetRow, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if a.rows == nil {
		rows, err := loadFile(a.path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrDatasetRead, err)
		}
		a.rows = rows
	}

	out := make([]domain.DatasetRow, len(a.rows))
	copy(out, a.rows)
	return out, nil
}

// loadFile は CSV ファイル全体を読み込んで行に変換します
func loadFile(path string) ([]domain.DatasetRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset file: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse は CSV データを読み取って行に変換します。
// 1行目はヘッダとして解釈し、列順には依存しません。未知の列は無視します。
// 数値セルが空の場合は欠損(nil)として扱います。
func Parse(r io.Reader) ([]domain.DatasetRow, error) {
	reader := csv.NewReader(r)

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	index := make(map[string]int, len(headers))
	for i, h := range headers {
		index[strings.TrimSpace(strings.ToLower(h))] = i
	}
	for _, required := range []string{"company", "sale_date", "price"} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("dataset is missing required column %q", required)
		}
	}

	var rows []domain.DatasetRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}

		cell := func(name string) string {
			i, ok := index[name]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		rows = append(rows, domain.DatasetRow{
			Company:      cell("company"),
			Name:         cell("name"),
			MPG:          parseFloatCell(cell("mpg")),
			Cylinders:    parseIntCell(cell("cylinders")),
			Displacement: parseFloatCell(cell("displacement")),
			Horsepower:   parseFloatCell(cell("horsepower")),
			Weight:       parseFloatCell(cell("weight")),
			Acceleration: parseFloatCell(cell("acceleration")),
			SaleDate:     parseDateCell(cell("sale_date")),
			Price:        parseFloatCell(cell("price")),
			Origin:       cell("origin"),
		})
	}

	return rows, nil
}

// parseDateCell は日付セルを解釈します。pandas のエクスポートは暦日のみの形式と
// タイムスタンプ付きの形式の両方を出力しうるため、両方を受け付けます。
func parseDateCell(value string) *time.Time {
	if value == "" {
		return nil
	}
	for _, layout := range []string{"2006-01-02", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	return nil
}

// parseFloatCell は数値セルを解釈します。空や解釈不能なセルは欠損扱いです。
func parseFloatCell(value string) *float64 {
	if value == "" {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// parseIntCell は整数セルを解釈します。"8.0" のような小数表記も受け付けます。
func parseIntCell(value string) *int {
	f := parseFloatCell(value)
	if f == nil {
		return nil
	}
	n := int(*f)
	return &n
}
