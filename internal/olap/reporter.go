package olap

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"smartsales/internal/infrastructure"
	"smartsales/internal/table"
	"smartsales/internal/warehouse"
)

// Report bundles the repeat-customer analysis
type Report struct {
	GeneratedAt     time.Time               `json:"generated_at"`
	Facts           int                     `json:"facts"`
	RepeatFacts     int                     `json:"repeat_facts"`
	RepeatCustomers int                     `json:"repeat_customers"`
	Categories      []CategoryRevenue       `json:"categories"`
	CategoryRegions []CategoryRegionRevenue `json:"category_regions"`
	Pivot           *Pivot                  `json:"pivot"`

	// Slice holds the repeat-customer facts the aggregates were built from
	Slice *table.Table `json:"-"`
}

// Tables holds the warehouse tables read into memory
type Tables struct {
	Facts     *table.Table
	Customers *table.Table
	Products  *table.Table
}

// Reporter runs the OLAP queries over a warehouse file
type Reporter struct {
	warehouseFile string
	logger        *slog.Logger
	telemetry     *infrastructure.Telemetry
}

// NewReporter creates a reporter over the warehouse at warehouseFile
func NewReporter(warehouseFile string, logger *slog.Logger, telemetry *infrastructure.Telemetry) *Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	if telemetry == nil {
		telemetry = infrastructure.NewNoopTelemetry()
	}
	return &Reporter{
		warehouseFile: warehouseFile,
		logger:        logger.With(slog.String("component", "olap")),
		telemetry:     telemetry,
	}
}

// LoadWarehouseTables reads the three warehouse tables in full. The store is
// closed before returning on every path.
func (r *Reporter) LoadWarehouseTables(ctx context.Context) (*Tables, error) {
	store, err := warehouse.OpenExisting(ctx, r.warehouseFile, r.logger)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	facts, err := store.ReadTable(ctx, warehouse.TableSales)
	if err != nil {
		return nil, err
	}
	customers, err := store.ReadTable(ctx, warehouse.TableCustomer)
	if err != nil {
		return nil, err
	}
	products, err := store.ReadTable(ctx, warehouse.TableProduct)
	if err != nil {
		return nil, err
	}
	r.logger.DebugContext(ctx, "Warehouse tables loaded",
		slog.Int("fact_sales", facts.NumRows()),
		slog.Int("dim_customer", customers.NumRows()),
		slog.Int("dim_product", products.NumRows()))
	return &Tables{Facts: facts, Customers: customers, Products: products}, nil
}

// Report loads the warehouse and computes the repeat-customer aggregates.
// An empty fact table is an error.
func (r *Reporter) Report(ctx context.Context) (*Report, error) {
	ctx, span := r.telemetry.StartSpan(ctx, "olap.report",
		attribute.String("path", r.warehouseFile))
	defer span.End()

	tables, err := r.LoadWarehouseTables(ctx)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, err
	}
	if err := table.RequireRows(tables.Facts, warehouse.TableSales); err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, err
	}

	report, err := Analyze(tables)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, err
	}
	r.logger.InfoContext(ctx, "OLAP report built",
		slog.Int("facts", report.Facts),
		slog.Int("repeat_facts", report.RepeatFacts),
		slog.Int("repeat_customers", report.RepeatCustomers),
		slog.Int("categories", len(report.Categories)))
	return report, nil
}

// Analyze runs enrich, slice and the three aggregates over in-memory tables
func Analyze(tables *Tables) (*Report, error) {
	enriched, err := BuildEnrichedFacts(tables.Facts, tables.Customers, tables.Products)
	if err != nil {
		return nil, err
	}
	slice, err := RepeatCustomerSlice(enriched)
	if err != nil {
		return nil, err
	}
	categories, err := AggregateByCategory(slice)
	if err != nil {
		return nil, err
	}
	pairs, err := AggregateByCategoryRegion(slice)
	if err != nil {
		return nil, err
	}

	customers := map[string]struct{}{}
	ids, _ := slice.Column(colCustomerID)
	for _, v := range ids.Values {
		customers[v.Key()] = struct{}{}
	}

	return &Report{
		GeneratedAt:     time.Now().UTC(),
		Facts:           enriched.NumRows(),
		RepeatFacts:     slice.NumRows(),
		RepeatCustomers: len(customers),
		Categories:      categories,
		CategoryRegions: pairs,
		Pivot:           pivotFrom(pairs),
		Slice:           slice,
	}, nil
}
