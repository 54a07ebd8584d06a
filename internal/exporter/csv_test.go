package exporter

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartsales/internal/config"
	"smartsales/internal/infrastructure"
	"smartsales/internal/olap"
)

func setupTestEnv(t *testing.T) (*CSVWriter, string) {
	t.Helper()
	tempDir := t.TempDir()
	writer := NewCSVWriter(&config.Paths{
		ReportsDir: filepath.Join(tempDir, "reports"),
	}, infrastructure.NewDiscardLogger())
	return writer, tempDir
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	content = bytes.TrimPrefix(content, []byte{0xEF, 0xBB, 0xBF})
	return strings.Split(strings.TrimSpace(string(content)), "\n")
}

func TestCSVWriter_WriteCSV(t *testing.T) {
	writer, tempDir := setupTestEnv(t)

	tests := []struct {
		name     string
		filePath string
		options  WriteOptions
		validate func(t *testing.T, filePath string)
	}{
		{
			name:     "basic write with headers",
			filePath: "test_basic.csv",
			options: WriteOptions{
				Headers: []string{"Category", "Region"},
				Records: [][]string{{"Electronics", "West"}, {"Furniture", "East"}},
			},
			validate: func(t *testing.T, filePath string) {
				assert.Equal(t, []string{"Category,Region", "Electronics,West", "Furniture,East"}, readLines(t, filePath))
			},
		},
		{
			name:     "write with BOM prefix",
			filePath: "test_bom.csv",
			options: WriteOptions{
				Headers:   []string{"Category", "Total"},
				Records:   [][]string{{"Toys", "150.25"}},
				BOMPrefix: true,
			},
			validate: func(t *testing.T, filePath string) {
				content, err := os.ReadFile(filePath)
				require.NoError(t, err)
				assert.True(t, bytes.HasPrefix(content, []byte{0xEF, 0xBB, 0xBF}))
				assert.Equal(t, []string{"Category,Total", "Toys,150.25"}, readLines(t, filePath))
			},
		},
		{
			name:     "empty records",
			filePath: "test_empty.csv",
			options: WriteOptions{
				Headers: []string{"Col1", "Col2"},
				Records: [][]string{},
			},
			validate: func(t *testing.T, filePath string) {
				assert.Equal(t, []string{"Col1,Col2"}, readLines(t, filePath))
			},
		},
		{
			name:     "nested directory is created",
			filePath: filepath.Join("nested", "deep.csv"),
			options: WriteOptions{
				Headers: []string{"A"},
				Records: [][]string{{"1"}},
			},
			validate: func(t *testing.T, filePath string) {
				assert.Equal(t, []string{"A", "1"}, readLines(t, filePath))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, writer.WriteCSV(tt.filePath, tt.options))
			tt.validate(t, filepath.Join(tempDir, "reports", tt.filePath))
		})
	}
}

func TestCSVWriter_Append(t *testing.T) {
	writer, tempDir := setupTestEnv(t)

	require.NoError(t, writer.WriteSimpleCSV("append.csv", []string{"Col1"}, [][]string{{"a"}}))
	require.NoError(t, writer.WriteCSV("append.csv", WriteOptions{
		Headers: []string{"ignored"},
		Records: [][]string{{"b"}},
		Append:  true,
	}))

	assert.Equal(t, []string{"Col1", "a", "b"}, readLines(t, filepath.Join(tempDir, "reports", "append.csv")))
}

func TestCSVWriter_ResolvePath(t *testing.T) {
	writer, tempDir := setupTestEnv(t)

	abs := filepath.Join(tempDir, "elsewhere.csv")
	assert.Equal(t, abs, writer.resolvePath(abs))
	assert.Equal(t, filepath.Join(tempDir, "reports", "x.csv"), writer.resolvePath("x.csv"))
}

func TestCSVWriter_SpecialCharacters(t *testing.T) {
	writer, tempDir := setupTestEnv(t)

	headers := []string{"Category", "Notes"}
	records := [][]string{
		{"Home, Garden", "with \"quotes\""},
		{"Café", "line\nbreak"},
	}
	require.NoError(t, writer.WriteSimpleCSV("special.csv", headers, records))

	file, err := os.Open(filepath.Join(tempDir, "reports", "special.csv"))
	require.NoError(t, err)
	defer file.Close()

	all, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, append([][]string{headers}, records...), all)
}

func TestCSVWriter_ExportReport(t *testing.T) {
	writer, tempDir := setupTestEnv(t)
	report := &olap.Report{
		Categories: []olap.CategoryRevenue{
			{Category: "Electronics", TotalRepeatRevenue: decimal.RequireFromString("30.3"), RepeatPurchases: 2},
		},
		CategoryRegions: []olap.CategoryRegionRevenue{
			{Category: "Electronics", Region: "West", TotalRepeatRevenue: decimal.RequireFromString("30.3")},
		},
		Pivot: &olap.Pivot{
			Regions: []string{"East", "West"},
			Rows: []olap.PivotRow{{
				Category: "Electronics",
				Values:   []decimal.Decimal{decimal.Zero, decimal.RequireFromString("30.3")},
				Total:    decimal.RequireFromString("30.3"),
			}},
		},
	}

	files, err := writer.ExportReport(report)
	require.NoError(t, err)

	dir := filepath.Join(tempDir, "reports")
	assert.Equal(t, []string{
		filepath.Join(dir, CategoryFile),
		filepath.Join(dir, CategoryRegionFile),
		filepath.Join(dir, PivotFile),
	}, files)

	assert.Equal(t, []string{"Category,TotalRepeatRevenue,RepeatPurchases", "Electronics,30.30,2"}, readLines(t, files[0]))
	assert.Equal(t, []string{"Category,Region,TotalRepeatRevenue", "Electronics,West,30.30"}, readLines(t, files[1]))
	assert.Equal(t, []string{"Category,East,West,Total", "Electronics,0.00,30.30,30.30"}, readLines(t, files[2]))
}
