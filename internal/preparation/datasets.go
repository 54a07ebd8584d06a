package preparation

import (
	"fmt"
	"log/slog"
	"strings"

	"smartsales/internal/config"
	"smartsales/internal/scrubber"
	"smartsales/internal/table"
)

// Dataset names used for file names, metrics labels and CLI arguments
const (
	Customers = "customers"
	Products  = "products"
	Sales     = "sales"
)

// Repair describes the scalar fix applied to one numeric column
type Repair struct {
	Column        string
	ClampNegative bool
}

// Dataset is the fixed cleaning definition of one raw extract
type Dataset struct {
	Name string
	// KeyColumns are lowercase names; a row missing any present key is dropped
	KeyColumns []string
	Repair     Repair
}

var datasets = []Dataset{
	{
		Name:       Customers,
		KeyColumns: []string{"customerid", "customer_id", "name", "customername"},
		Repair:     Repair{Column: "TotalSpend"},
	},
	{
		Name:       Products,
		KeyColumns: []string{"productid", "product_id", "sku", "name", "productname"},
		Repair:     Repair{Column: "StockQuantity", ClampNegative: true},
	},
	{
		Name: Sales,
		KeyColumns: []string{
			"saleid", "sale_id", "salesid", "sales_id",
			"customerid", "customer_id",
			"productid", "product_id",
			"orderid", "order_id",
			"transactionid", "transaction_id",
			"date", "orderdate", "saledate", "sale_date",
		},
		Repair: Repair{Column: "QuantitySold", ClampNegative: true},
	},
}

// Datasets returns the known datasets in pipeline order
func Datasets() []Dataset {
	out := make([]Dataset, len(datasets))
	copy(out, datasets)
	return out
}

// Lookup finds a dataset by name, ignoring case
func Lookup(name string) (Dataset, error) {
	for _, ds := range datasets {
		if strings.EqualFold(ds.Name, strings.TrimSpace(name)) {
			return ds, nil
		}
	}
	return Dataset{}, fmt.Errorf("unknown dataset %q (expected one of %s)", name, strings.Join(Names(), ", "))
}

// Names returns the dataset names in pipeline order
func Names() []string {
	names := make([]string, len(datasets))
	for i, ds := range datasets {
		names[i] = ds.Name
	}
	return names
}

// presentKeys returns the table's columns that match a key name
func (ds Dataset) presentKeys(columns []string) []string {
	var keys []string
	for _, c := range columns {
		lower := strings.ToLower(strings.TrimSpace(c))
		for _, k := range ds.KeyColumns {
			if lower == k {
				keys = append(keys, c)
				break
			}
		}
	}
	return keys
}

// IsIDColumn reports whether a column holds identifiers and must be kept
// out of outlier filtering
func IsIDColumn(name string) bool {
	return strings.Contains(strings.ToLower(name), "id")
}

// Recipe returns the cleaning steps for ds:
// trim text and drop blank rows, drop duplicates, drop rows missing keys,
// repair the dataset's numeric column, remove IQR outliers.
func (ds Dataset) Recipe(cfg config.CleaningConfig) scrubber.Recipe {
	k := cfg.OutlierMultiplier
	if k == 0 {
		k = 1.5
	}
	return scrubber.Recipe{
		{Name: "strip_whitespace", Apply: func(s *scrubber.Scrubber) *scrubber.Scrubber {
			return s.StripWhitespace()
		}},
		{Name: "drop_fully_empty_rows", Apply: func(s *scrubber.Scrubber) *scrubber.Scrubber {
			return s.DropFullyEmptyRows()
		}},
		{Name: "drop_duplicate_rows", Apply: func(s *scrubber.Scrubber) *scrubber.Scrubber {
			return s.DropDuplicateRows()
		}},
		{Name: "drop_missing_keys", Apply: func(s *scrubber.Scrubber) *scrubber.Scrubber {
			keys := ds.presentKeys(s.ColumnNames())
			if len(keys) == 0 {
				return s
			}
			s.Logger().Info("Dropping rows with missing key fields", slog.Any("key_columns", keys))
			return s.DropRowsWithNulls(keys...)
		}},
		{Name: "repair_" + scrubber.StandardizeName(ds.Repair.Column), Apply: func(s *scrubber.Scrubber) *scrubber.Scrubber {
			return ds.Repair.apply(s, cfg.StrictCasts)
		}},
		{Name: "filter_outliers_iqr", Apply: func(s *scrubber.Scrubber) *scrubber.Scrubber {
			return s.FilterOutliersIQR(k, IsIDColumn)
		}},
	}
}

// apply fills nulls with 0 and optionally clamps negatives to 0. A missing
// column is a no-op; a text column is cast to float first.
func (r Repair) apply(s *scrubber.Scrubber, strict bool) *scrubber.Scrubber {
	typ, ok := s.ColumnType(r.Column)
	if !ok {
		return s
	}
	if typ != table.TypeInt && typ != table.TypeFloat {
		s = s.CastColumns(map[string]table.Type{r.Column: table.TypeFloat}, strict)
	}

	s = s.Then("fill_"+scrubber.StandardizeName(r.Column), func(t *table.Table) (*table.Table, error) {
		c, _ := t.Column(r.Column)
		missing := c.NullCount()
		c.FillNull(table.Int(0))
		s.Logger().Info("Filled missing values with 0",
			slog.String("column", r.Column),
			slog.Int("count", missing))
		return t, nil
	})
	if !r.ClampNegative {
		return s
	}

	return s.Then("clamp_"+scrubber.StandardizeName(r.Column), func(t *table.Table) (*table.Table, error) {
		c, _ := t.Column(r.Column)
		if !c.IsNumeric() {
			return t, nil
		}
		negatives := 0
		c.Map(func(v table.Value) table.Value {
			f, _ := v.Float64()
			if f >= 0 {
				return v
			}
			negatives++
			if v.Type() == table.TypeInt {
				return table.Int(0)
			}
			return table.Float(0)
		})
		if negatives > 0 {
			s.Logger().Info("Set negative values to 0",
				slog.String("column", r.Column),
				slog.Int("count", negatives))
		}
		return t, nil
	})
}
