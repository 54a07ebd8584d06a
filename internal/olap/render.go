package olap

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// moneyPlaces is the number of decimals amounts are rendered with
const moneyPlaces = 2

// CategoryRecords returns the category aggregate as CSV header and rows
func (r *Report) CategoryRecords() ([]string, [][]string) {
	records := make([][]string, len(r.Categories))
	for i, c := range r.Categories {
		records[i] = []string{c.Category, c.TotalRepeatRevenue.StringFixed(moneyPlaces), fmt.Sprint(c.RepeatPurchases)}
	}
	return []string{"Category", "TotalRepeatRevenue", "RepeatPurchases"}, records
}

// CategoryRegionRecords returns the category by region aggregate
func (r *Report) CategoryRegionRecords() ([]string, [][]string) {
	records := make([][]string, len(r.CategoryRegions))
	for i, c := range r.CategoryRegions {
		records[i] = []string{c.Category, c.Region, c.TotalRepeatRevenue.StringFixed(moneyPlaces)}
	}
	return []string{"Category", "Region", "TotalRepeatRevenue"}, records
}

// PivotRecords returns the pivot with one column per region and a Total column
func (r *Report) PivotRecords() ([]string, [][]string) {
	header := append([]string{"Category"}, r.Pivot.Regions...)
	header = append(header, "Total")
	records := make([][]string, len(r.Pivot.Rows))
	for i, row := range r.Pivot.Rows {
		rec := make([]string, 0, len(header))
		rec = append(rec, row.Category)
		for _, v := range row.Values {
			rec = append(rec, v.StringFixed(moneyPlaces))
		}
		records[i] = append(rec, row.Total.StringFixed(moneyPlaces))
	}
	return header, records
}

// WriteText prints the three aggregates as aligned tables
func (r *Report) WriteText(w io.Writer) error {
	sections := []struct {
		title string
		rows  func() ([]string, [][]string)
	}{
		{"Repeat-purchase revenue by category", r.CategoryRecords},
		{"Repeat-purchase revenue by category and region", r.CategoryRegionRecords},
		{"Pivot: category x region", r.PivotRecords},
	}

	fmt.Fprintf(w, "Facts: %d  Repeat facts: %d  Repeat customers: %d\n",
		r.Facts, r.RepeatFacts, r.RepeatCustomers)
	for _, s := range sections {
		header, records := s.rows()
		fmt.Fprintf(w, "\n%s\n", s.title)
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(tw, strings.Join(header, "\t")+"\t")
		for _, rec := range records {
			fmt.Fprintln(tw, strings.Join(rec, "\t")+"\t")
		}
		if len(records) == 0 {
			fmt.Fprintln(tw, "(no repeat customers)\t")
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}
