package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"smartsales/internal/config"
)

// Raw extracts small enough to reason about by hand. Numeric columns other
// than IDs are constant so outlier filtering keeps every row. Customer 2 is
// the only repeat buyer: Electronics 20 and Furniture 30, both West.
const (
	RawCustomers = "CustomerID,Name,Region,JoinDate,LoyaltyPoints_Num,PreferredContactMethod_Cat,TotalSpend\n" +
		"1,  Ada ,East,2023-01-15,10,Email,100\n" +
		"2,Bo,West,2023-02-01,10,SMS,\n" +
		"3,Cy,East,2023-03-01,10,Phone,100\n"
	RawProducts = "ProductID,ProductName,Category,UnitPrice,CurrentDiscount_Pct,Supplier_Cat,StockQuantity\n" +
		"10,Laptop,Electronics,50,0,A,5\n" +
		"11,Desk,Furniture,50,0,B,-2\n"
	RawSales = "TransactionID,SaleDate,CustomerID,ProductID,StoreID,CampaignID,SaleAmount,BonusPoints_Num,PaymentType_Cat,QuantitySold\n" +
		"100,2024-01-05,1,10,401,0,10,1,Card,1\n" +
		"101,2024-01-06,2,10,401,0,20,1,Cash,1\n" +
		"102,2024-02-01,2,11,402,0,30,1,Card,1\n" +
		"103,2024-02-02,3,11,401,0,40,1,Card,1\n"
)

// WriteRawFile writes content as the raw CSV extract of dataset
func WriteRawFile(t testing.TB, paths *config.Paths, dataset, content string) {
	t.Helper()
	path := paths.RawFile(dataset)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// WriteRawFixtures writes all three raw extracts
func WriteRawFixtures(t testing.TB, paths *config.Paths) {
	t.Helper()
	WriteRawFile(t, paths, "customers", RawCustomers)
	WriteRawFile(t, paths, "products", RawProducts)
	WriteRawFile(t, paths, "sales", RawSales)
}
