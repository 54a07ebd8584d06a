package olap

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "smartsales/internal/errors"
	"smartsales/internal/infrastructure"
	"smartsales/internal/table"
	"smartsales/internal/warehouse"
)

func dims() (*table.Table, *table.Table) {
	customers := table.MustNew(
		table.NewColumn("CustomerID", table.TypeInt, table.Int(1), table.Int(2), table.Int(3)),
		table.NewColumn("Region", table.TypeString, table.Str("East"), table.Str("West"), table.Str("East")),
	)
	products := table.MustNew(
		table.NewColumn("ProductID", table.TypeInt, table.Int(10), table.Int(11)),
		table.NewColumn("Category", table.TypeString, table.Str("Electronics"), table.Str("Furniture")),
	)
	return customers, products
}

// facts: customer 1 (A) buys once, customer 2 (B) twice, customer 3 three times
func facts() *table.Table {
	return table.MustNew(
		table.NewColumn("TransactionID", table.TypeInt,
			table.Int(100), table.Int(101), table.Int(102), table.Int(103), table.Int(104), table.Int(105)),
		table.NewColumn("SaleDate", table.TypeString,
			table.Str("2024-01-05"), table.Str("2024-01-06"), table.Str("2024-02-01"),
			table.Str("2024-02-02"), table.Str("2024-02-03"), table.Null()),
		table.NewColumn("CustomerID", table.TypeInt,
			table.Int(1), table.Int(2), table.Int(2), table.Int(3), table.Int(3), table.Int(3)),
		table.NewColumn("ProductID", table.TypeInt,
			table.Int(10), table.Int(10), table.Int(11), table.Int(11), table.Int(11), table.Int(99)),
		table.NewColumn("SaleAmount", table.TypeFloat,
			table.Float(500), table.Float(200.25), table.Float(80), table.Float(40), table.Float(60), table.Float(5)),
	)
}

func TestBuildEnrichedFacts_LeftJoin(t *testing.T) {
	customers, products := dims()
	enriched, err := BuildEnrichedFacts(facts(), customers, products)
	require.NoError(t, err)

	assert.Equal(t, 6, enriched.NumRows())
	assert.Equal(t, table.Str("West"), enriched.Get(1, ColRegion))
	assert.Equal(t, table.Str("Electronics"), enriched.Get(1, ColCategory))
	assert.Equal(t, table.Str("2024-02"), enriched.Get(2, ColYearMonth))

	// product 99 has no dimension row: the fact stays with a null category
	assert.True(t, enriched.Get(5, ColCategory).IsNull())
	assert.Equal(t, table.Str("East"), enriched.Get(5, ColRegion))
	assert.True(t, enriched.Get(5, ColYearMonth).IsNull())
}

func TestBuildEnrichedFacts_CoercesSaleAmount(t *testing.T) {
	customers, products := dims()
	f := table.MustNew(
		table.NewColumn("TransactionID", table.TypeInt, table.Int(1), table.Int(2)),
		table.NewColumn("SaleDate", table.TypeString, table.Str("2024-01-01"), table.Str("2024-01-02")),
		table.NewColumn("CustomerID", table.TypeInt, table.Int(1), table.Int(1)),
		table.NewColumn("ProductID", table.TypeInt, table.Int(10), table.Int(10)),
		table.NewColumn("SaleAmount", table.TypeString, table.Str("12.5"), table.Str("n/a")),
	)

	enriched, err := BuildEnrichedFacts(f, customers, products)
	require.NoError(t, err)
	assert.Equal(t, table.Float(12.5), enriched.Get(0, "SaleAmount"))
	assert.True(t, enriched.Get(1, "SaleAmount").IsNull())
}

func TestBuildEnrichedFacts_MissingColumns(t *testing.T) {
	customers, products := dims()
	_, err := BuildEnrichedFacts(table.MustNew(table.NewColumn("TransactionID", table.TypeInt)), customers, products)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
}

func TestRepeatCustomerSlice(t *testing.T) {
	customers, products := dims()
	enriched, err := BuildEnrichedFacts(facts(), customers, products)
	require.NoError(t, err)

	slice, err := RepeatCustomerSlice(enriched)
	require.NoError(t, err)

	ids, _ := slice.Column("CustomerID")
	assert.Equal(t, []table.Value{table.Int(2), table.Int(2), table.Int(3), table.Int(3), table.Int(3)}, ids.Values)
	flags, _ := slice.Column(ColIsRepeatCustomer)
	for _, v := range flags.Values {
		assert.Equal(t, table.Bool(true), v)
	}
}

func TestRepeatCustomerSlice_CountsDistinctTransactions(t *testing.T) {
	enriched := table.MustNew(
		table.NewColumn("TransactionID", table.TypeInt, table.Int(1), table.Int(1), table.Int(2)),
		table.NewColumn("CustomerID", table.TypeInt, table.Int(7), table.Int(7), table.Null()),
	)
	slice, err := RepeatCustomerSlice(enriched)
	require.NoError(t, err)
	assert.Equal(t, 0, slice.NumRows())
}

func TestAggregates_OnlyRepeatCustomers(t *testing.T) {
	// A has one transaction, B has two: only B's sales are counted
	f := table.MustNew(
		table.NewColumn("TransactionID", table.TypeInt, table.Int(1), table.Int(2), table.Int(3)),
		table.NewColumn("SaleDate", table.TypeString, table.Str("2024-01-01"), table.Str("2024-01-02"), table.Str("2024-01-03")),
		table.NewColumn("CustomerID", table.TypeInt, table.Int(1), table.Int(2), table.Int(2)),
		table.NewColumn("ProductID", table.TypeInt, table.Int(10), table.Int(10), table.Int(10)),
		table.NewColumn("SaleAmount", table.TypeFloat, table.Float(1000), table.Float(10.1), table.Float(20.2)),
	)
	customers, products := dims()

	report, err := Analyze(&Tables{Facts: f, Customers: customers, Products: products})
	require.NoError(t, err)

	assert.Equal(t, 2, report.RepeatFacts)
	assert.Equal(t, 1, report.RepeatCustomers)
	require.Len(t, report.Categories, 1)
	assert.Equal(t, "Electronics", report.Categories[0].Category)
	assert.True(t, decimal.RequireFromString("30.3").Equal(report.Categories[0].TotalRepeatRevenue))
	assert.Equal(t, 2, report.Categories[0].RepeatPurchases)
}

func TestAggregateByCategory_SortedByRevenue(t *testing.T) {
	customers, products := dims()
	report, err := Analyze(&Tables{Facts: facts(), Customers: customers, Products: products})
	require.NoError(t, err)

	require.Len(t, report.Categories, 2)
	assert.Equal(t, "Electronics", report.Categories[0].Category)
	assert.True(t, decimal.RequireFromString("200.25").Equal(report.Categories[0].TotalRepeatRevenue))
	assert.Equal(t, 1, report.Categories[0].RepeatPurchases)
	assert.Equal(t, "Furniture", report.Categories[1].Category)
	assert.True(t, decimal.NewFromInt(180).Equal(report.Categories[1].TotalRepeatRevenue))
	assert.Equal(t, 3, report.Categories[1].RepeatPurchases)
}

func TestAggregateByCategoryRegion(t *testing.T) {
	customers, products := dims()
	report, err := Analyze(&Tables{Facts: facts(), Customers: customers, Products: products})
	require.NoError(t, err)

	got := make([]string, len(report.CategoryRegions))
	for i, r := range report.CategoryRegions {
		got[i] = r.Category + "/" + r.Region + "=" + r.TotalRepeatRevenue.String()
	}
	assert.Equal(t, []string{"Electronics/West=200.25", "Furniture/East=100", "Furniture/West=80"}, got)
}

func TestPivot_FillsZeroAndTotals(t *testing.T) {
	customers, products := dims()
	report, err := Analyze(&Tables{Facts: facts(), Customers: customers, Products: products})
	require.NoError(t, err)

	p := report.Pivot
	assert.Equal(t, []string{"East", "West"}, p.Regions)
	require.Len(t, p.Rows, 2)
	assert.Equal(t, "Electronics", p.Rows[0].Category)
	assert.True(t, decimal.Zero.Equal(p.Value("Electronics", "East")))
	assert.True(t, decimal.RequireFromString("200.25").Equal(p.Rows[0].Total))
	assert.True(t, decimal.NewFromInt(180).Equal(p.Rows[1].Total))
	assert.True(t, decimal.Zero.Equal(p.Value("Toys", "East")))

	header, records := report.PivotRecords()
	assert.Equal(t, []string{"Category", "East", "West", "Total"}, header)
	assert.Equal(t, []string{"Electronics", "0.00", "200.25", "200.25"}, records[0])
}

func TestWriteText(t *testing.T) {
	customers, products := dims()
	report, err := Analyze(&Tables{Facts: facts(), Customers: customers, Products: products})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, report.WriteText(&buf))
	out := buf.String()
	assert.Contains(t, out, "Repeat customers: 2")
	assert.Contains(t, out, "Furniture")
	assert.Contains(t, out, "200.25")
}

func seedWarehouse(t *testing.T, path string) {
	t.Helper()
	ctx := context.Background()
	store, err := warehouse.Open(ctx, path, infrastructure.NewDiscardLogger())
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.CreateSchema(ctx))

	customers, products := dims()
	require.NoError(t, store.Append(ctx, warehouse.TableCustomer, customers))
	require.NoError(t, store.Append(ctx, warehouse.TableProduct, products))
	require.NoError(t, store.Append(ctx, warehouse.TableSales, facts()))
}

func TestReporter_Report(t *testing.T) {
	path := filepath.Join(t.TempDir(), "smart_sales.db")
	seedWarehouse(t, path)

	reporter := NewReporter(path, infrastructure.NewDiscardLogger(), infrastructure.NewNoopTelemetry())
	report, err := reporter.Report(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, report.Facts)
	assert.Equal(t, 5, report.RepeatFacts)
	require.Len(t, report.Categories, 2)
	assert.Equal(t, "Electronics", report.Categories[0].Category)
}

func TestReporter_MissingWarehouse(t *testing.T) {
	reporter := NewReporter(filepath.Join(t.TempDir(), "absent.db"), infrastructure.NewDiscardLogger(), nil)
	_, err := reporter.Report(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeMissingInput))
}

func TestReporter_EmptyFacts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "smart_sales.db")
	store, err := warehouse.Open(context.Background(), path, infrastructure.NewDiscardLogger())
	require.NoError(t, err)
	require.NoError(t, store.CreateSchema(context.Background()))
	require.NoError(t, store.Close())

	_, err = NewReporter(path, infrastructure.NewDiscardLogger(), nil).Report(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeEmptyResult))
}
