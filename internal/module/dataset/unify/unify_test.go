package unify_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	datasetcsv "github.com/jinford/autoview/internal/module/dataset/csv"
	"github.com/jinford/autoview/internal/module/dataset/unify"
	"github.com/jinford/autoview/internal/module/tasks/domain"
)

const carsJSON = `[
  {"Name": "chevrolet chevelle malibu", "Miles_per_Gallon": 18, "Cylinders": 8,
   "Displacement": 307, "Horsepower": 130, "Weight_in_lbs": 3504,
   "Acceleration": 12, "Year": "1972-01-01", "Origin": "USA"},
  {"Name": "peugeot 504", "Miles_per_Gallon": 25, "Cylinders": 4,
   "Displacement": 110, "Horsepower": null, "Weight_in_lbs": 2672,
   "Acceleration": 17.5, "Year": "1970-01-01", "Origin": "Europe"}
]`

const mpgCSV = `mpg,cylinders,displacement,horsepower,weight,acceleration,model_year,origin,name
24.0,4,113.0,95.0,2372.0,15.0,71,japan,toyota corona mark ii
18.0,6,199.0,97.0,2774.0,15.5,75,usa,amc hornet
`

func TestBuild_UnifiesBothSources(t *testing.T) {
	dir := t.TempDir()
	carsPath := filepath.Join(dir, "cars.json")
	mpgPath := filepath.Join(dir, "mpg.csv")
	outPath := filepath.Join(dir, "unified_cars.csv")
	require.NoError(t, os.WriteFile(carsPath, []byte(carsJSON), 0o644))
	require.NoError(t, os.WriteFile(mpgPath, []byte(mpgCSV), 0o644))

	count, err := unify.Build(unify.Options{
		CarsJSONPath: carsPath,
		MPGCSVPath:   mpgPath,
		OutputPath:   outPath,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	// 出力はタスクエンジンのアクセサでそのまま読める
	rows, err := datasetcsv.NewAccessor(outPath).Rows(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 4)

	// sale_date の昇順に並ぶ
	names := make([]string, len(rows))
	for i, r := range rows {
		names[i] = r.Name
	}
	assert.Equal(t, []string{
		"peugeot 504",
		"toyota corona mark ii",
		"chevrolet chevelle malibu",
		"amc hornet",
	}, names)

	// 会社名は車名の先頭1語(先頭のみ大文字)
	assert.Equal(t, "Peugeot", rows[0].Company)
	assert.Equal(t, "Toyota", rows[1].Company)
	assert.Equal(t, "Chevrolet", rows[2].Company)
	assert.Equal(t, "Amc", rows[3].Company)

	// 価格は全行に付与され、範囲内に収まる
	for _, r := range rows {
		require.NotNil(t, r.Price)
		assert.GreaterOrEqual(t, *r.Price, 10000.0)
		assert.Less(t, *r.Price, 50000.0)
	}

	// JSON 側の null は欠損のまま引き継がれる
	var peugeot domain.DatasetRow
	for _, r := range rows {
		if r.Name == "peugeot 504" {
			peugeot = r
		}
	}
	assert.Nil(t, peugeot.Horsepower)
}

func TestBuild_IsDeterministic(t *testing.T) {
	dir := t.TempDir()
	carsPath := filepath.Join(dir, "cars.json")
	mpgPath := filepath.Join(dir, "mpg.csv")
	require.NoError(t, os.WriteFile(carsPath, []byte(carsJSON), 0o644))
	require.NoError(t, os.WriteFile(mpgPath, []byte(mpgCSV), 0o644))

	out1 := filepath.Join(dir, "out1.csv")
	out2 := filepath.Join(dir, "out2.csv")

	_, err := unify.Build(unify.Options{CarsJSONPath: carsPath, MPGCSVPath: mpgPath, OutputPath: out1})
	require.NoError(t, err)
	_, err = unify.Build(unify.Options{CarsJSONPath: carsPath, MPGCSVPath: mpgPath, OutputPath: out2})
	require.NoError(t, err)

	b1, err := os.ReadFile(out1)
	require.NoError(t, err)
	b2, err := os.ReadFile(out2)
	require.NoError(t, err)
	assert.Equal(t, string(b1), string(b2))
}

func TestBuild_SeedChangesSimulatedPrices(t *testing.T) {
	dir := t.TempDir()
	carsPath := filepath.Join(dir, "cars.json")
	mpgPath := filepath.Join(dir, "mpg.csv")
	require.NoError(t, os.WriteFile(carsPath, []byte(carsJSON), 0o644))
	require.NoError(t, os.WriteFile(mpgPath, []byte(mpgCSV), 0o644))

	out1 := filepath.Join(dir, "out1.csv")
	out2 := filepath.Join(dir, "out2.csv")

	_, err := unify.Build(unify.Options{CarsJSONPath: carsPath, MPGCSVPath: mpgPath, OutputPath: out1, Seed: 7})
	require.NoError(t, err)
	_, err = unify.Build(unify.Options{CarsJSONPath: carsPath, MPGCSVPath: mpgPath, OutputPath: out2, Seed: 8})
	require.NoError(t, err)

	b1, err := os.ReadFile(out1)
	require.NoError(t, err)
	b2, err := os.ReadFile(out2)
	require.NoError(t, err)
	assert.NotEqual(t, string(b1), string(b2))
}

func TestBuild_MissingSourceFile(t *testing.T) {
	dir := t.TempDir()

	_, err := unify.Build(unify.Options{
		CarsJSONPath: filepath.Join(dir, "missing.json"),
		MPGCSVPath:   filepath.Join(dir, "missing.csv"),
		OutputPath:   filepath.Join(dir, "out.csv"),
	})

	require.Error(t, err)
}
