package domain

import (
	"context"
	"time"
)

// DatasetRow は統合済みデータセットの1行を表します。
// フィルタリングに使うのは company / sale_date / price のみで、残りの項目は
// 結果にそのまま載せる読み取り専用のペイロードです。元データに欠損があるため
// 数値項目はポインタで保持します。
type DatasetRow struct {
	Company      string     `json:"company"`
	Name         string     `json:"name"`
	MPG          *float64   `json:"mpg"`
	Cylinders    *int       `json:"cylinders"`
	Displacement *float64   `json:"displacement"`
	Horsepower   *float64   `json:"horsepower"`
	Weight       *float64   `json:"weight"`
	Acceleration *float64   `json:"acceleration"`
	SaleDate     *time.Time `json:"sale_date"`
	Price        *float64   `json:"price"`
	Origin       string     `json:"origin"`
}

// DatasetAccessor は統合済みデータセットへの読み取り専用ハンドルです。
// データセットは実体化された後に書き込まれることがないため、実装は複数の
// タスク実行から同時に呼ばれても安全でなければなりません。
type DatasetAccessor interface {
	// Rows はデータセットの全行を元の並び順で返します
	Rows(ctx context.Context) ([]DatasetRow, error)
}
