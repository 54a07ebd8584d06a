package olap

import (
	"fmt"
	"strings"

	apperrors "smartsales/internal/errors"
	"smartsales/internal/table"
	"smartsales/internal/warehouse"
)

// Columns of the enriched fact table beyond fact_sales
const (
	ColRegion           = "Region"
	ColCategory         = "Category"
	ColYearMonth        = "YearMonth"
	ColIsRepeatCustomer = "IsRepeatCustomer"

	colTransactionID = "TransactionID"
	colCustomerID    = "CustomerID"
	colProductID     = "ProductID"
	colSaleDate      = "SaleDate"
	colSaleAmount    = "SaleAmount"
)

func requireColumns(t *table.Table, source string, names ...string) error {
	var missing []string
	for _, n := range names {
		if t.ColumnIndex(n) < 0 {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return apperrors.NewAppValidationError(fmt.Sprintf("%s is missing columns %s", source, strings.Join(missing, ", ")))
	}
	return nil
}

// lookup maps a key column to one attribute, first row wins
func lookup(t *table.Table, key, attr string) map[string]table.Value {
	keys, _ := t.Column(key)
	values, _ := t.Column(attr)
	out := make(map[string]table.Value, t.NumRows())
	for i := 0; i < t.NumRows(); i++ {
		if keys.Values[i].IsNull() {
			continue
		}
		k := keys.Values[i].Key()
		if _, seen := out[k]; !seen {
			out[k] = values.Values[i]
		}
	}
	return out
}

// BuildEnrichedFacts left-joins every fact to its customer's region and its
// product's category. Unmatched keys leave the attribute null and keep the
// row. SaleAmount is coerced to a number, unparseable amounts become null,
// and YearMonth (YYYY-MM) is derived from SaleDate.
func BuildEnrichedFacts(facts, customers, products *table.Table) (*table.Table, error) {
	if err := requireColumns(facts, warehouse.TableSales, colTransactionID, colCustomerID, colProductID, colSaleDate, colSaleAmount); err != nil {
		return nil, err
	}
	if err := requireColumns(customers, warehouse.TableCustomer, colCustomerID, ColRegion); err != nil {
		return nil, err
	}
	if err := requireColumns(products, warehouse.TableProduct, colProductID, ColCategory); err != nil {
		return nil, err
	}

	out := facts.Clone()
	n := out.NumRows()

	regions := lookup(customers, colCustomerID, ColRegion)
	categories := lookup(products, colProductID, ColCategory)
	customerIDs, _ := out.Column(colCustomerID)
	productIDs, _ := out.Column(colProductID)

	region := make([]table.Value, n)
	category := make([]table.Value, n)
	for i := 0; i < n; i++ {
		if v := customerIDs.Values[i]; !v.IsNull() {
			region[i] = regions[v.Key()]
		}
		if v := productIDs.Values[i]; !v.IsNull() {
			category[i] = categories[v.Key()]
		}
	}

	amounts, _ := out.Column(colSaleAmount)
	numeric := make([]table.Value, n)
	for i, v := range amounts.Values {
		numeric[i] = table.ToNumber(v)
	}
	amounts.Values = numeric
	amounts.Type = table.TypeFloat

	dates, _ := out.Column(colSaleDate)
	yearMonth := make([]table.Value, n)
	for i, v := range dates.Values {
		if v.IsNull() {
			continue
		}
		if ts, ok := warehouse.ParseDate(v.String()); ok {
			yearMonth[i] = table.Str(ts.Format("2006-01"))
		}
	}

	for _, c := range []*table.Column{
		table.NewColumn(ColYearMonth, table.TypeString, yearMonth...),
		table.NewColumn(ColRegion, table.TypeString, region...),
		table.NewColumn(ColCategory, table.TypeString, category...),
	} {
		if err := out.SetColumn(c); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// RepeatCustomerSlice keeps the facts of customers with at least two
// distinct transactions. Every surviving row carries IsRepeatCustomer=true.
// Facts without a customer key never qualify.
func RepeatCustomerSlice(enriched *table.Table) (*table.Table, error) {
	if err := requireColumns(enriched, "enriched facts", colCustomerID, colTransactionID); err != nil {
		return nil, err
	}
	customers, _ := enriched.Column(colCustomerID)
	transactions, _ := enriched.Column(colTransactionID)

	distinct := make(map[string]map[string]struct{})
	for i := 0; i < enriched.NumRows(); i++ {
		c, tx := customers.Values[i], transactions.Values[i]
		if c.IsNull() {
			continue
		}
		set, ok := distinct[c.Key()]
		if !ok {
			set = make(map[string]struct{})
			distinct[c.Key()] = set
		}
		if !tx.IsNull() {
			set[tx.Key()] = struct{}{}
		}
	}

	flags := make([]table.Value, enriched.NumRows())
	for i, c := range customers.Values {
		flags[i] = table.Bool(!c.IsNull() && len(distinct[c.Key()]) >= 2)
	}
	flagged := enriched.Clone()
	if err := flagged.SetColumn(table.NewColumn(ColIsRepeatCustomer, table.TypeBool, flags...)); err != nil {
		return nil, err
	}
	return flagged.Filter(func(i int) bool {
		b, _ := flags[i].Boolean()
		return b
	}), nil
}
