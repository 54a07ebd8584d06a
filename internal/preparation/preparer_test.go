package preparation

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"smartsales/internal/config"
	apperrors "smartsales/internal/errors"
	"smartsales/internal/infrastructure"
	"smartsales/internal/shared/testutil"
	"smartsales/internal/table"
)

func newTestPreparer(t *testing.T, cfg config.CleaningConfig) (*Preparer, *config.Paths) {
	t.Helper()
	paths, err := config.NewPaths(t.TempDir())
	require.NoError(t, err)
	return NewPreparer(paths, cfg, infrastructure.NewDiscardLogger(), infrastructure.NewNoopTelemetry()), paths
}

func defaultCleaning() config.CleaningConfig {
	return config.Default().Cleaning
}

func TestPrepare_Customers(t *testing.T) {
	p, paths := newTestPreparer(t, defaultCleaning())
	testutil.WriteRawFile(t, paths, Customers, "CustomerID,Name,Region,TotalSpend\n"+
		"1,A ,East,\n"+
		"1,A ,East,\n"+
		",B,West,50\n")

	result, err := p.Prepare(context.Background(), Customers)
	require.NoError(t, err)
	assert.Equal(t, 3, result.RowsBefore)
	assert.Equal(t, 1, result.RowsAfter)
	assert.Equal(t, 2, result.RowsRemoved())
	assert.Equal(t, paths.ProcessedFile(Customers), result.Output)

	cleaned, err := table.ReadCSV(result.Output)
	require.NoError(t, err)
	require.Equal(t, 1, cleaned.NumRows())
	assert.Equal(t, table.Int(1), cleaned.Get(0, "CustomerID"))
	assert.Equal(t, table.Str("A"), cleaned.Get(0, "Name"))
	assert.Equal(t, table.Int(0), cleaned.Get(0, "TotalSpend"))
}

func TestPrepare_ProductsStockRepair(t *testing.T) {
	p, paths := newTestPreparer(t, defaultCleaning())
	testutil.WriteRawFile(t, paths, Products, "ProductID,ProductName,StockQuantity\n"+
		"1,Widget,-5\n"+
		"2,Gadget,\n"+
		"3,Doohickey,10\n")

	result, err := p.Prepare(context.Background(), Products)
	require.NoError(t, err)
	require.Equal(t, 3, result.RowsAfter)

	cleaned, err := table.ReadCSV(result.Output)
	require.NoError(t, err)
	stock, ok := cleaned.Column("StockQuantity")
	require.True(t, ok)
	assert.Equal(t, []table.Value{table.Int(0), table.Int(0), table.Int(10)}, stock.Values)
}

func TestPrepare_SalesOutliersIgnoreIDColumns(t *testing.T) {
	p, paths := newTestPreparer(t, defaultCleaning())
	testutil.WriteRawFile(t, paths, Sales, "TransactionID,SaleDate,CustomerID,ProductID,SaleAmount\n"+
		"1,2024-01-01,1,1,10\n"+
		"2,2024-01-02,1,2,11\n"+
		"3,2024-01-03,2,1,12\n"+
		"900000,2024-01-04,2,2,13\n"+
		"5,2024-01-05,3,1,1000\n"+
		"6,,3,1,12\n")

	result, err := p.Prepare(context.Background(), Sales)
	require.NoError(t, err)

	cleaned, err := table.ReadCSV(result.Output)
	require.NoError(t, err)
	ids, _ := cleaned.Column("TransactionID")
	assert.Equal(t, []table.Value{table.Int(1), table.Int(2), table.Int(3), table.Int(900000)}, ids.Values)
}

func TestPrepare_NoKeyColumnsIsNoOp(t *testing.T) {
	p, paths := newTestPreparer(t, defaultCleaning())
	testutil.WriteRawFile(t, paths, Customers, "Label,Score\nx,1\n,2\ny,3\n")

	result, err := p.Prepare(context.Background(), Customers)
	require.NoError(t, err)
	assert.Equal(t, 3, result.RowsAfter)
}

func TestPrepare_MissingInput(t *testing.T) {
	p, paths := newTestPreparer(t, defaultCleaning())

	_, err := p.Prepare(context.Background(), Customers)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeMissingInput))
	assert.False(t, config.FileExists(paths.ProcessedFile(Customers)))
}

func TestPrepare_UnknownDataset(t *testing.T) {
	p, _ := newTestPreparer(t, defaultCleaning())

	_, err := p.Prepare(context.Background(), "suppliers")
	assert.ErrorContains(t, err, "unknown dataset")
}

func TestPrepare_WorkbookFallback(t *testing.T) {
	p, paths := newTestPreparer(t, defaultCleaning())

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"ProductID", "ProductName", "StockQuantity"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{1, "Widget", -2}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]interface{}{2, "Gadget", 4}))
	require.NoError(t, os.MkdirAll(paths.RawDir, 0755))
	require.NoError(t, f.SaveAs(paths.RawWorkbook(Products)))
	require.NoError(t, f.Close())

	result, err := p.Prepare(context.Background(), Products)
	require.NoError(t, err)
	assert.Equal(t, paths.RawWorkbook(Products), result.Source)

	cleaned, err := table.ReadCSV(result.Output)
	require.NoError(t, err)
	assert.Equal(t, table.Int(0), cleaned.Get(0, "StockQuantity"))
	assert.Equal(t, table.Int(4), cleaned.Get(1, "StockQuantity"))
}

func TestPrepare_StrictCastRejectsTextRepairColumn(t *testing.T) {
	cfg := defaultCleaning()
	cfg.StrictCasts = true
	p, paths := newTestPreparer(t, cfg)
	testutil.WriteRawFile(t, paths, Products, "ProductID,ProductName,StockQuantity\n1,Widget,many\n")

	_, err := p.Prepare(context.Background(), Products)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
}

func TestPrepareAll_HaltsOnFirstFailure(t *testing.T) {
	p, paths := newTestPreparer(t, defaultCleaning())
	testutil.WriteRawFile(t, paths, Customers, "CustomerID,Name\n1,A\n")
	testutil.WriteRawFile(t, paths, Sales, "TransactionID,SaleDate\n1,2024-01-01\n")

	results, err := p.PrepareAll(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeMissingInput))
	require.Len(t, results, 1)
	assert.Equal(t, Customers, results[0].Dataset)
	assert.True(t, config.FileExists(paths.ProcessedFile(Customers)))
	assert.False(t, config.FileExists(paths.ProcessedFile(Sales)))
}

func TestPrepare_HeaderOnlyIsEmptyResult(t *testing.T) {
	p, paths := newTestPreparer(t, defaultCleaning())
	testutil.WriteRawFile(t, paths, Customers, "CustomerID,Name\n")

	_, err := p.Prepare(context.Background(), Customers)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeEmptyResult))
	assert.NoFileExists(t, paths.ProcessedFile(Customers))
}

func TestPrepare_CustomersNullNumericDroppedByOutlierFilter(t *testing.T) {
	p, paths := newTestPreparer(t, defaultCleaning())
	testutil.WriteRawFile(t, paths, Customers, "CustomerID,Name,LoyaltyPoints,TotalSpend\n"+
		"1,A,10,\n"+
		"2,B,,20\n"+
		"3,C,12,30\n")

	result, err := p.Prepare(context.Background(), Customers)
	require.NoError(t, err)
	assert.Equal(t, 2, result.RowsAfter)

	cleaned, err := table.ReadCSV(result.Output)
	require.NoError(t, err)
	ids, _ := cleaned.Column("CustomerID")
	assert.Equal(t, []table.Value{table.Int(1), table.Int(3)}, ids.Values)
	// the repair column is zero-filled before filtering, so its null survives
	assert.Equal(t, table.Int(0), cleaned.Get(0, "TotalSpend"))
}
