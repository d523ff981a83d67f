package unify

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// 2つの生データソース(cars.json と mpg.csv)を1つの行指向テーブルに統合する
// ビルダーです。出力された unified_cars.csv をタスクエンジンのデータセット
// アクセサが読み込みます。

// DefaultSeed は価格シミュレーション用の乱数シードです。
// 固定シードにより同じ入力からは常に同じ統合結果が得られます。
const DefaultSeed = 42

const (
	priceLow  = 10000
	priceHigh = 50000
)

// Options は統合処理の入出力を指定します
type Options struct {
	// CarsJSONPath は Vega 形式の cars.json のパス
	CarsJSONPath string

	// MPGCSVPath は model_year 形式(2桁年)の mpg.csv のパス
	MPGCSVPath string

	// OutputPath は統合結果 CSV の書き出し先
	OutputPath string

	// Seed は価格シミュレーションの乱数シード。0 の場合は DefaultSeed。
	Seed int
}

// row は統合中の1行を表します
type row struct {
	company      string
	name         string
	mpg          *float64
	cylinders    *float64
	displacement *float64
	horsepower   *float64
	weight       *float64
	acceleration *float64
	saleDate     *time.Time
	price        int
	origin       string
}

// carsJSONEntry は cars.json の1要素を表します(Vega cars データセットの項目名)
type carsJSONEntry struct {
	Name           string   `json:"Name"`
	MilesPerGallon *float64 `json:"Miles_per_Gallon"`
	Cylinders      *float64 `json:"Cylinders"`
	Displacement   *float64 `json:"Displacement"`
	Horsepower     *float64 `json:"Horsepower"`
	WeightInLbs    *float64 `json:"Weight_in_lbs"`
	Acceleration   *float64 `json:"Acceleration"`
	Year           string   `json:"Year"`
	Origin         string   `json:"Origin"`
}

// Build は2つの生データソースを読み込み、統合 CSV を書き出します。
// 戻り値は書き出した行数です。
func Build(opts Options) (int, error) {
	seed := opts.Seed
	if seed == 0 {
		seed = DefaultSeed
	}
	rng := rand.New(rand.NewSource(int64(seed)))

	jsonRows, err := loadCarsJSON(opts.CarsJSONPath, rng)
	if err != nil {
		return 0, fmt.Errorf("failed to load %s: %w", opts.CarsJSONPath, err)
	}

	csvRows, err := loadMPGCSV(opts.MPGCSVPath, rng)
	if err != nil {
		return 0, fmt.Errorf("failed to load %s: %w", opts.MPGCSVPath, err)
	}

	combined := append(jsonRows, csvRows...)

	// sale_date の昇順で安定ソート。日付のない行は末尾に寄せる。
	sort.SliceStable(combined, func(i, j int) bool {
		a, b := combined[i].saleDate, combined[j].saleDate
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})

	if err := writeUnifiedCSV(opts.OutputPath, combined); err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", opts.OutputPath, err)
	}

	return len(combined), nil
}

// loadCarsJSON は cars.json を読み込んで統合行に変換します
func loadCarsJSON(path string, rng *rand.Rand) ([]row, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var entries []carsJSONEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse cars JSON: %w", err)
	}

	rows := make([]row, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, row{
			company:      companyFromName(e.Name),
			name:         e.Name,
			mpg:          e.MilesPerGallon,
			cylinders:    e.Cylinders,
			displacement: e.Displacement,
			horsepower:   e.Horsepower,
			weight:       e.WeightInLbs,
			acceleration: e.Acceleration,
			saleDate:     parseLooseDate(e.Year),
			price:        simulatePrice(rng),
			origin:       e.Origin,
		})
	}
	return rows, nil
}

// loadMPGCSV は mpg.csv を読み込んで統合行に変換します。
// model_year 列は2桁年(70 など)なので 19xx-01-01 の暦日に展開します。
func loadMPGCSV(path string, rng *rand.Rand) ([]row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	index := make(map[string]int, len(headers))
	for i, h := range headers {
		index[strings.TrimSpace(strings.ToLower(h))] = i
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV rows: %w", err)
	}

	rows := make([]row, 0, len(records))
	for _, record := range records {
		cell := func(name string) string {
			i, ok := index[name]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		name := cell("name")
		rows = append(rows, row{
			company:      companyFromName(name),
			name:         name,
			mpg:          parseOptionalFloat(cell("mpg")),
			cylinders:    parseOptionalFloat(cell("cylinders")),
			displacement: parseOptionalFloat(cell("displacement")),
			horsepower:   parseOptionalFloat(cell("horsepower")),
			weight:       parseOptionalFloat(cell("weight")),
			acceleration: parseOptionalFloat(cell("acceleration")),
			saleDate:     expandModelYear(cell("model_year")),
			price:        simulatePrice(rng),
			origin:       cell("origin"),
		})
	}
	return rows, nil
}

// writeUnifiedCSV は統合行を所定の列順で書き出します
func writeUnifiedCSV(path string, rows []row) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{
		"company", "name", "mpg", "cylinders", "displacement", "horsepower",
		"weight", "acceleration", "sale_date", "price", "origin",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, r := range rows {
		record := []string{
			r.company,
			r.name,
			formatOptionalFloat(r.mpg),
			formatOptionalFloat(r.cylinders),
			formatOptionalFloat(r.displacement),
			formatOptionalFloat(r.horsepower),
			formatOptionalFloat(r.weight),
			formatOptionalFloat(r.acceleration),
			formatOptionalDate(r.saleDate),
			strconv.Itoa(r.price),
			r.origin,
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

var titleCaser = cases.Title(language.English)

// companyFromName は車名の先頭1語を会社名として切り出します(先頭のみ大文字)
func companyFromName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return titleCaser.String(strings.ToLower(fields[0]))
}

// simulatePrice は [priceLow, priceHigh) の一様乱数で販売価格を模擬します
func simulatePrice(rng *rand.Rand) int {
	return priceLow + rng.Intn(priceHigh-priceLow)
}

// expandModelYear は "70" を "1970-01-01" の暦日に展開します
func expandModelYear(value string) *time.Time {
	if value == "" {
		return nil
	}
	year, err := strconv.Atoi(value)
	if err != nil {
		return nil
	}
	t, err := time.Parse("2006-01-02", fmt.Sprintf("19%02d-01-01", year))
	if err != nil {
		return nil
	}
	return &t
}

// parseLooseDate は "1970-01-01" または "1970-01-01T00:00:00" 形式を解釈します
func parseLooseDate(value string) *time.Time {
	if value == "" {
		return nil
	}
	for _, layout := range []string{"2006-01-02", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	return nil
}

func parseOptionalFloat(value string) *float64 {
	if value == "" {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil
	}
	return &f
}

func formatOptionalFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

func formatOptionalDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
