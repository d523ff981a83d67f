package csv_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	datasetcsv "github.com/jinford/autoview/internal/module/dataset/csv"
	"github.com/jinford/autoview/internal/module/tasks/domain"
)

const sampleCSV = `company,name,mpg,cylinders,displacement,horsepower,weight,acceleration,sale_date,price,origin
Chevrolet,chevrolet chevelle malibu,18.0,8,307.0,130.0,3504.0,12.0,1970-01-01,14000,USA
Ford,ford pinto,25.0,4,98.0,,2046.0,19.0,1973-05-01,4500,USA
Toyota,toyota corolla,31.0,4,76.0,52.0,1649.0,16.5,1976-03-01,8000,Japan
`

func writeSample(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "unified_cars.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestAccessor_Rows(t *testing.T) {
	ctx := context.Background()
	accessor := datasetcsv.NewAccessor(writeSample(t, sampleCSV))

	rows, err := accessor.Rows(ctx)

	require.NoError(t, err)
	require.Len(t, rows, 3)

	// ファイル内の並び順が保存される
	assert.Equal(t, "Chevrolet", rows[0].Company)
	assert.Equal(t, "Ford", rows[1].Company)
	assert.Equal(t, "Toyota", rows[2].Company)

	pinto := rows[1]
	assert.Equal(t, "ford pinto", pinto.Name)
	require.NotNil(t, pinto.SaleDate)
	assert.Equal(t, "1973-05-01", pinto.SaleDate.Format(domain.DateFormat))
	require.NotNil(t, pinto.Price)
	assert.Equal(t, 4500.0, *pinto.Price)
	require.NotNil(t, pinto.Cylinders)
	assert.Equal(t, 4, *pinto.Cylinders)
	// 空セルは欠損として扱う
	assert.Nil(t, pinto.Horsepower)
}

func TestAccessor_Rows_ReturnsIndependentCopies(t *testing.T) {
	ctx := context.Background()
	accessor := datasetcsv.NewAccessor(writeSample(t, sampleCSV))

	first, err := accessor.Rows(ctx)
	require.NoError(t, err)
	first[0].Company = "mutated"

	second, err := accessor.Rows(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Chevrolet", second[0].Company)
}

func TestAccessor_Rows_MissingFile(t *testing.T) {
	ctx := context.Background()
	accessor := datasetcsv.NewAccessor(filepath.Join(t.TempDir(), "no-such-file.csv"))

	_, err := accessor.Rows(ctx)

	require.ErrorIs(t, err, domain.ErrDatasetRead)
}

func TestParse_MissingRequiredColumn(t *testing.T) {
	_, err := datasetcsv.Parse(strings.NewReader("name,origin\nford pinto,USA\n"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "company")
}

func TestParse_TimestampDates(t *testing.T) {
	input := "company,name,sale_date,price\nFord,ford pinto,1973-05-01 00:00:00,4500\n"

	rows, err := datasetcsv.Parse(strings.NewReader(input))

	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].SaleDate)
	assert.Equal(t, "1973-05-01", rows[0].SaleDate.Format(domain.DateFormat))
}
