package warehouse

// Warehouse table names
const (
	TableCustomer = "dim_customer"
	TableProduct  = "dim_product"
	TableSales    = "fact_sales"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS dim_customer (
		CustomerID INTEGER PRIMARY KEY,
		Name TEXT,
		Region TEXT,
		JoinDate TEXT,
		LoyaltyPoints_Num INTEGER,
		PreferredContactMethod_Cat TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS dim_product (
		ProductID INTEGER PRIMARY KEY,
		ProductName TEXT,
		Category TEXT,
		UnitPrice REAL,
		CurrentDiscount_Pct REAL,
		Supplier_Cat TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS fact_sales (
		TransactionID INTEGER PRIMARY KEY,
		SaleDate TEXT,
		CustomerID INTEGER,
		ProductID INTEGER,
		StoreID INTEGER,
		CampaignID INTEGER,
		SaleAmount REAL,
		BonusPoints_Num INTEGER,
		PaymentType_Cat TEXT,
		FOREIGN KEY (CustomerID) REFERENCES dim_customer (CustomerID),
		FOREIGN KEY (ProductID) REFERENCES dim_product (ProductID)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_fact_sales_customer ON fact_sales (CustomerID)`,
	`CREATE INDEX IF NOT EXISTS idx_fact_sales_product ON fact_sales (ProductID)`,
	`CREATE INDEX IF NOT EXISTS idx_fact_sales_store ON fact_sales (StoreID)`,
}

// resetOrder deletes facts before the dimensions they reference
var resetOrder = []string{TableSales, TableCustomer, TableProduct}

// Mapping is the contract between a cleaned CSV and one warehouse table.
// Source names are matched after trimming and lowercasing.
type Mapping struct {
	Table string
	Key   string
	// DateColumn is normalised to YYYY-MM-DD
	DateColumn string
	Columns    []ColumnMapping
}

// ColumnMapping maps one source column to a warehouse column
type ColumnMapping struct {
	Source string
	Target string
}

// Targets returns the warehouse column names in insert order
func (m Mapping) Targets() []string {
	out := make([]string, len(m.Columns))
	for i, c := range m.Columns {
		out[i] = c.Target
	}
	return out
}

// CustomerMapping loads dim_customer
var CustomerMapping = Mapping{
	Table:      TableCustomer,
	Key:        "CustomerID",
	DateColumn: "JoinDate",
	Columns: []ColumnMapping{
		{"customerid", "CustomerID"},
		{"name", "Name"},
		{"region", "Region"},
		{"joindate", "JoinDate"},
		{"loyaltypoints_num", "LoyaltyPoints_Num"},
		{"preferredcontactmethod_cat", "PreferredContactMethod_Cat"},
	},
}

// ProductMapping loads dim_product
var ProductMapping = Mapping{
	Table: TableProduct,
	Key:   "ProductID",
	Columns: []ColumnMapping{
		{"productid", "ProductID"},
		{"productname", "ProductName"},
		{"category", "Category"},
		{"unitprice", "UnitPrice"},
		{"currentdiscount_pct", "CurrentDiscount_Pct"},
		{"supplier_cat", "Supplier_Cat"},
	},
}

// SalesMapping loads fact_sales
var SalesMapping = Mapping{
	Table:      TableSales,
	Key:        "TransactionID",
	DateColumn: "SaleDate",
	Columns: []ColumnMapping{
		{"transactionid", "TransactionID"},
		{"saledate", "SaleDate"},
		{"customerid", "CustomerID"},
		{"productid", "ProductID"},
		{"storeid", "StoreID"},
		{"campaignid", "CampaignID"},
		{"saleamount", "SaleAmount"},
		{"bonuspoints_num", "BonusPoints_Num"},
		{"paymenttype_cat", "PaymentType_Cat"},
	},
}

// Dimension identifies a dimension table for LoadDimension
type Dimension string

const (
	DimensionCustomer Dimension = "customer"
	DimensionProduct  Dimension = "product"
)

// Mapping returns the column contract of the dimension
func (d Dimension) Mapping() (Mapping, bool) {
	switch d {
	case DimensionCustomer:
		return CustomerMapping, true
	case DimensionProduct:
		return ProductMapping, true
	}
	return Mapping{}, false
}

func knownTable(name string) bool {
	return name == TableCustomer || name == TableProduct || name == TableSales
}
