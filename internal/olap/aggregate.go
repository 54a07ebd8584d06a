package olap

import (
	"sort"

	"github.com/shopspring/decimal"

	"smartsales/internal/table"
)

// CategoryRevenue is one row of the revenue by category aggregate
type CategoryRevenue struct {
	Category           string          `json:"category"`
	TotalRepeatRevenue decimal.Decimal `json:"total_repeat_revenue"`
	RepeatPurchases    int             `json:"repeat_purchases"`
}

// CategoryRegionRevenue is one row of the category by region aggregate
type CategoryRegionRevenue struct {
	Category           string          `json:"category"`
	Region             string          `json:"region"`
	TotalRepeatRevenue decimal.Decimal `json:"total_repeat_revenue"`
}

// PivotRow is one category of the pivot. Values follow Pivot.Regions.
type PivotRow struct {
	Category string            `json:"category"`
	Values   []decimal.Decimal `json:"values"`
	Total    decimal.Decimal   `json:"total"`
}

// Pivot cross-tabulates category by region. Regions are sorted ascending,
// rows by descending total.
type Pivot struct {
	Regions []string   `json:"regions"`
	Rows    []PivotRow `json:"rows"`
}

// Value returns the cell for a category and region, zero when absent
func (p *Pivot) Value(category, region string) decimal.Decimal {
	col := sort.SearchStrings(p.Regions, region)
	if col == len(p.Regions) || p.Regions[col] != region {
		return decimal.Zero
	}
	for _, row := range p.Rows {
		if row.Category == category {
			return row.Values[col]
		}
	}
	return decimal.Zero
}

// amount returns the sale amount of row i; nulls count as zero
func amount(c *table.Column, i int) decimal.Decimal {
	f, ok := c.Values[i].Float64()
	if !ok {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}

// text returns the grouping label of a cell; ok is false for nulls, which
// are left out of every group
func text(c *table.Column, i int) (string, bool) {
	v := c.Values[i]
	if v.IsNull() {
		return "", false
	}
	return v.String(), true
}

// AggregateByCategory sums sale amounts and counts distinct transactions per
// category, highest revenue first
func AggregateByCategory(slice *table.Table) ([]CategoryRevenue, error) {
	if err := requireColumns(slice, "slice", ColCategory, colSaleAmount, colTransactionID); err != nil {
		return nil, err
	}
	categories, _ := slice.Column(ColCategory)
	amounts, _ := slice.Column(colSaleAmount)
	transactions, _ := slice.Column(colTransactionID)

	index := map[string]int{}
	var out []CategoryRevenue
	seen := map[string]map[string]struct{}{}
	for i := 0; i < slice.NumRows(); i++ {
		cat, ok := text(categories, i)
		if !ok {
			continue
		}
		k, ok := index[cat]
		if !ok {
			k = len(out)
			index[cat] = k
			out = append(out, CategoryRevenue{Category: cat, TotalRepeatRevenue: decimal.Zero})
			seen[cat] = map[string]struct{}{}
		}
		out[k].TotalRepeatRevenue = out[k].TotalRepeatRevenue.Add(amount(amounts, i))
		if tx := transactions.Values[i]; !tx.IsNull() {
			seen[cat][tx.Key()] = struct{}{}
		}
	}
	for k := range out {
		out[k].RepeatPurchases = len(seen[out[k].Category])
	}

	sort.Slice(out, func(a, b int) bool {
		if c := out[a].TotalRepeatRevenue.Cmp(out[b].TotalRepeatRevenue); c != 0 {
			return c > 0
		}
		return out[a].Category < out[b].Category
	})
	return out, nil
}

// AggregateByCategoryRegion sums sale amounts per (category, region) pair,
// highest revenue first
func AggregateByCategoryRegion(slice *table.Table) ([]CategoryRegionRevenue, error) {
	if err := requireColumns(slice, "slice", ColCategory, ColRegion, colSaleAmount); err != nil {
		return nil, err
	}
	categories, _ := slice.Column(ColCategory)
	regions, _ := slice.Column(ColRegion)
	amounts, _ := slice.Column(colSaleAmount)

	type pair struct{ category, region string }
	index := map[pair]int{}
	var out []CategoryRegionRevenue
	for i := 0; i < slice.NumRows(); i++ {
		cat, ok := text(categories, i)
		if !ok {
			continue
		}
		reg, ok := text(regions, i)
		if !ok {
			continue
		}
		key := pair{cat, reg}
		k, ok := index[key]
		if !ok {
			k = len(out)
			index[key] = k
			out = append(out, CategoryRegionRevenue{Category: cat, Region: reg, TotalRepeatRevenue: decimal.Zero})
		}
		out[k].TotalRepeatRevenue = out[k].TotalRepeatRevenue.Add(amount(amounts, i))
	}

	sort.Slice(out, func(a, b int) bool {
		if c := out[a].TotalRepeatRevenue.Cmp(out[b].TotalRepeatRevenue); c != 0 {
			return c > 0
		}
		if out[a].Category != out[b].Category {
			return out[a].Category < out[b].Category
		}
		return out[a].Region < out[b].Region
	})
	return out, nil
}

// PivotCategoryRegion cross-tabulates summed sale amount with categories as
// rows and regions as columns. Missing combinations are zero and each row
// carries its total.
func PivotCategoryRegion(slice *table.Table) (*Pivot, error) {
	pairs, err := AggregateByCategoryRegion(slice)
	if err != nil {
		return nil, err
	}
	return pivotFrom(pairs), nil
}

func pivotFrom(pairs []CategoryRegionRevenue) *Pivot {
	regionSet := map[string]struct{}{}
	for _, p := range pairs {
		regionSet[p.Region] = struct{}{}
	}
	regions := make([]string, 0, len(regionSet))
	for r := range regionSet {
		regions = append(regions, r)
	}
	sort.Strings(regions)
	col := make(map[string]int, len(regions))
	for i, r := range regions {
		col[r] = i
	}

	index := map[string]int{}
	var rows []PivotRow
	for _, p := range pairs {
		k, ok := index[p.Category]
		if !ok {
			k = len(rows)
			index[p.Category] = k
			values := make([]decimal.Decimal, len(regions))
			for i := range values {
				values[i] = decimal.Zero
			}
			rows = append(rows, PivotRow{Category: p.Category, Values: values, Total: decimal.Zero})
		}
		rows[k].Values[col[p.Region]] = rows[k].Values[col[p.Region]].Add(p.TotalRepeatRevenue)
		rows[k].Total = rows[k].Total.Add(p.TotalRepeatRevenue)
	}

	sort.Slice(rows, func(a, b int) bool {
		if c := rows[a].Total.Cmp(rows[b].Total); c != 0 {
			return c > 0
		}
		return rows[a].Category < rows[b].Category
	})
	return &Pivot{Regions: regions, Rows: rows}
}
