package charts

import (
	"bytes"
	"fmt"
	"math"

	chart "github.com/wcharczuk/go-chart/v2"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

const (
	plotWidth  = 10 * vg.Inch
	plotHeight = 6 * vg.Inch
	// maxBarWidth caps bars when there are only a few categories
	maxBarWidth = 40.0
	// PieSize is the pixel width and height of the share chart
	PieSize = 800

	labelCategory = "Product Category"
	labelRevenue  = "Total Repeat Revenue"
	emptyShare    = "No repeat-purchase revenue"
)

// barWidth shares 80% of the plot width between n bars so any number of
// categories stays inside the canvas
func barWidth(n int) vg.Length {
	if n < 1 {
		n = 1
	}
	w := 0.8 * float64(plotWidth) / float64(n)
	return vg.Length(math.Min(w, maxBarWidth))
}

func newPlot(title string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = labelCategory
	p.Y.Label.Text = labelRevenue
	p.Y.Min = 0
	return p
}

func encodePlot(p *plot.Plot) ([]byte, error) {
	w, err := p.WriterTo(plotWidth, plotHeight, "png")
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BarPNG draws one labelled bar per category
func BarPNG(title string, categories []string, values []float64) ([]byte, error) {
	if len(categories) != len(values) {
		return nil, fmt.Errorf("bar chart: %d labels for %d values", len(categories), len(values))
	}
	p := newPlot(title)
	if len(values) > 0 {
		bars, err := plotter.NewBarChart(plotter.Values(values), barWidth(len(values)))
		if err != nil {
			return nil, err
		}
		bars.Color = plotutil.Color(0)
		bars.LineStyle.Width = 0
		p.Add(bars)
		p.NominalX(categories...)
	}
	return encodePlot(p)
}

// StackedBarPNG draws one bar per category with a segment per region.
// matrix[i][j] is the revenue of categories[i] in regions[j]; negative
// amounts are drawn as zero.
func StackedBarPNG(title string, categories, regions []string, matrix [][]float64) ([]byte, error) {
	if len(categories) != len(matrix) {
		return nil, fmt.Errorf("stacked chart: %d labels for %d rows", len(categories), len(matrix))
	}
	p := newPlot(title)
	if len(categories) > 0 && len(regions) > 0 {
		width := barWidth(len(categories))
		var below *plotter.BarChart
		for j, region := range regions {
			column := make(plotter.Values, len(categories))
			for i, row := range matrix {
				if j < len(row) {
					column[i] = math.Max(row[j], 0)
				}
			}
			bars, err := plotter.NewBarChart(column, width)
			if err != nil {
				return nil, err
			}
			bars.Color = plotutil.Color(j)
			bars.LineStyle.Width = 0
			if below != nil {
				bars.StackOn(below)
			}
			p.Add(bars)
			p.Legend.Add(region, bars)
			below = bars
		}
		p.Legend.Top = true
		p.NominalX(categories...)
	}
	return encodePlot(p)
}

// PiePNG draws one slice per category labelled with its share of the total.
// Non-positive amounts get no slice.
func PiePNG(title string, categories []string, values []float64) ([]byte, error) {
	if len(categories) != len(values) {
		return nil, fmt.Errorf("pie chart: %d labels for %d values", len(categories), len(values))
	}
	total := 0.0
	for _, v := range values {
		if v > 0 {
			total += v
		}
	}

	var slices []chart.Value
	for i, v := range values {
		if v <= 0 {
			continue
		}
		slices = append(slices, chart.Value{
			Value: v,
			Label: fmt.Sprintf("%s %.1f%%", categories[i], v/total*100),
		})
	}
	if len(slices) == 0 {
		slices = []chart.Value{{Value: 1, Label: emptyShare}}
	}

	pie := chart.PieChart{
		Title:  title,
		Width:  PieSize,
		Height: PieSize,
		Values: slices,
	}
	var buf bytes.Buffer
	if err := pie.Render(chart.PNG, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
