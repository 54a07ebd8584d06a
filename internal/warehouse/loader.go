package warehouse

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"smartsales/internal/config"
	apperrors "smartsales/internal/errors"
	"smartsales/internal/infrastructure"
	"smartsales/internal/table"
)

// Sources names the cleaned CSVs a load reads
type Sources struct {
	Customers string
	Products  string
	Sales     string
}

// SourcesFromPaths returns the processed files of the standard layout
func SourcesFromPaths(paths *config.Paths) Sources {
	return Sources{
		Customers: paths.ProcessedFile("customers"),
		Products:  paths.ProcessedFile("products"),
		Sales:     paths.ProcessedFile("sales"),
	}
}

// LoadResult reports what a full load wrote
type LoadResult struct {
	Path     string        `json:"path"`
	Counts   Counts        `json:"counts"`
	Facts    FactStats     `json:"facts"`
	Duration time.Duration `json:"duration"`
}

// FactStats accounts for every sales source row: each is loaded, a repeat
// of an earlier transaction id, or dropped for its sale date
type FactStats struct {
	Source       int `json:"source_rows"`
	Loaded       int `json:"loaded"`
	Duplicates   int `json:"duplicates"`
	InvalidDates int `json:"invalid_dates"`
}

// Loader maps cleaned tables onto the star schema
type Loader struct {
	store     *Store
	cfg       config.WarehouseConfig
	logger    *slog.Logger
	telemetry *infrastructure.Telemetry
}

// NewLoader creates a loader writing through store
func NewLoader(store *Store, cfg config.WarehouseConfig, logger *slog.Logger, telemetry *infrastructure.Telemetry) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	if telemetry == nil {
		telemetry = infrastructure.NewNoopTelemetry()
	}
	return &Loader{
		store:     store,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "warehouse_loader")),
		telemetry: telemetry,
	}
}

// Run rebuilds the warehouse from the cleaned CSVs: schema, reset, customer
// dimension, product dimension, facts. Each step commits on its own, so a
// failure part way leaves the earlier tables loaded.
func (l *Loader) Run(ctx context.Context, sources Sources) (*LoadResult, error) {
	ctx, span := l.telemetry.StartSpan(ctx, "warehouse.load",
		attribute.String("path", l.store.Path()))
	defer span.End()

	start := time.Now()
	l.logger.InfoContext(ctx, "Starting warehouse load", slog.String("path", l.store.Path()))

	customers, err := readSource(sources.Customers)
	if err != nil {
		return nil, l.fail(ctx, err)
	}
	products, err := readSource(sources.Products)
	if err != nil {
		return nil, l.fail(ctx, err)
	}
	sales, err := readSource(sources.Sales)
	if err != nil {
		return nil, l.fail(ctx, err)
	}

	if err := l.store.CreateSchema(ctx); err != nil {
		return nil, l.fail(ctx, err)
	}
	if err := l.store.ResetWarehouse(ctx); err != nil {
		return nil, l.fail(ctx, err)
	}
	if _, err := l.LoadDimension(ctx, DimensionCustomer, customers); err != nil {
		return nil, l.fail(ctx, err)
	}
	if _, err := l.LoadDimension(ctx, DimensionProduct, products); err != nil {
		return nil, l.fail(ctx, err)
	}
	facts, err := l.LoadFacts(ctx, sales)
	if err != nil {
		return nil, l.fail(ctx, err)
	}

	counts, err := l.store.Counts(ctx)
	if err != nil {
		return nil, l.fail(ctx, err)
	}
	result := &LoadResult{
		Path:     l.store.Path(),
		Counts:   counts,
		Facts:    facts,
		Duration: time.Since(start),
	}
	l.logger.InfoContext(ctx, "Warehouse load completed",
		slog.Int("dim_customer", counts.Customers),
		slog.Int("dim_product", counts.Products),
		slog.Int("fact_sales", counts.Sales),
		slog.Int("fact_duplicates", facts.Duplicates),
		slog.Int("fact_invalid_dates", facts.InvalidDates),
		slog.Duration("duration", result.Duration))
	return result, nil
}

func (l *Loader) fail(ctx context.Context, err error) error {
	infrastructure.RecordError(ctx, err)
	l.logger.ErrorContext(ctx, "Warehouse load failed", slog.String("error", err.Error()))
	return err
}

func readSource(path string) (*table.Table, error) {
	t, err := table.ReadCSV(path)
	if err != nil {
		return nil, err
	}
	if err := table.RequireRows(t, path); err != nil {
		return nil, err
	}
	return t, nil
}

// LoadDimension projects src onto the dimension's columns, keeps the first
// row per key and appends the rows. The customer join date must parse
// unless strict join dates are disabled, in which case bad dates load as
// null. It returns the number of rows inserted.
func (l *Loader) LoadDimension(ctx context.Context, dim Dimension, src *table.Table) (int, error) {
	mapping, ok := dim.Mapping()
	if !ok {
		return 0, apperrors.NewNotFoundError(fmt.Sprintf("dimension %q", dim))
	}
	t, err := project(src, mapping)
	if err != nil {
		return 0, err
	}
	t = dedupeByKey(t, mapping.Key)

	if mapping.DateColumn != "" {
		bad, err := normalizeDates(t, mapping.DateColumn)
		if err != nil {
			return 0, err
		}
		if len(bad) > 0 {
			if l.cfg.StrictJoinDate {
				return 0, unparseableDates(mapping, bad)
			}
			l.logger.WarnContext(ctx, "Unparseable dates loaded as null",
				slog.String("table", mapping.Table),
				slog.Int("count", len(bad)))
		}
	}

	if err := l.store.Append(ctx, mapping.Table, t); err != nil {
		return 0, err
	}
	l.telemetry.Metrics.RecordLoaded(ctx, mapping.Table, t.NumRows())
	l.logger.InfoContext(ctx, "Dimension loaded",
		slog.String("table", mapping.Table),
		slog.Int("source_rows", src.NumRows()),
		slog.Int("rows", t.NumRows()))
	return t.NumRows(), nil
}

// LoadFacts projects src onto fact_sales, keeps the first row per
// transaction and drops rows whose sale date is missing or does not parse,
// unless strict sale dates are enabled
func (l *Loader) LoadFacts(ctx context.Context, src *table.Table) (FactStats, error) {
	stats := FactStats{Source: src.NumRows()}
	mapping := SalesMapping
	t, err := project(src, mapping)
	if err != nil {
		return stats, err
	}
	t = dedupeByKey(t, mapping.Key)
	stats.Duplicates = stats.Source - t.NumRows()
	if stats.Duplicates > 0 {
		l.logger.InfoContext(ctx, "Dropped repeated transaction ids",
			slog.Int("count", stats.Duplicates))
		l.telemetry.Metrics.RecordDropped(ctx, "sales", "duplicate_transaction", stats.Duplicates)
	}

	bad, err := normalizeDates(t, mapping.DateColumn)
	if err != nil {
		return stats, err
	}
	if len(bad) > 0 && l.cfg.StrictSaleDate {
		return stats, unparseableDates(mapping, bad)
	}

	dates, _ := t.Column(mapping.DateColumn)
	before := t.NumRows()
	t = t.Filter(func(i int) bool { return !dates.Values[i].IsNull() })
	stats.InvalidDates = before - t.NumRows()
	if stats.InvalidDates > 0 {
		l.logger.WarnContext(ctx, "Dropped facts without a valid sale date",
			slog.Int("count", stats.InvalidDates))
		l.telemetry.Metrics.RecordDropped(ctx, "sales", "invalid_sale_date", stats.InvalidDates)
	}

	if err := l.store.Append(ctx, mapping.Table, t); err != nil {
		return stats, err
	}
	stats.Loaded = t.NumRows()
	l.telemetry.Metrics.RecordLoaded(ctx, mapping.Table, stats.Loaded)
	l.logger.InfoContext(ctx, "Facts loaded",
		slog.String("table", mapping.Table),
		slog.Int("source_rows", stats.Source),
		slog.Int("rows", stats.Loaded))
	return stats, nil
}

// project renames src columns (trimmed, lowercased) through the mapping and
// keeps exactly the mapped columns in mapping order
func project(src *table.Table, mapping Mapping) (*table.Table, error) {
	t := src.Clone()
	lookup := make(map[string]string, len(mapping.Columns))
	for _, c := range mapping.Columns {
		lookup[c.Source] = c.Target
	}
	t.Rename(func(name string) string {
		normalized := strings.ToLower(strings.TrimSpace(name))
		if target, ok := lookup[normalized]; ok {
			return target
		}
		return normalized
	})

	var missing []string
	for _, c := range mapping.Columns {
		if t.ColumnIndex(c.Target) < 0 {
			missing = append(missing, c.Source)
		}
	}
	if len(missing) > 0 {
		return nil, apperrors.NewAppValidationError(fmt.Sprintf("%s: source is missing columns %s",
			mapping.Table, strings.Join(missing, ", ")))
	}
	return t.Select(mapping.Targets()...)
}

func dedupeByKey(t *table.Table, key string) *table.Table {
	positions := []int{t.ColumnIndex(key)}
	seen := make(map[string]struct{}, t.NumRows())
	return t.Filter(func(i int) bool {
		k := t.RowKey(i, positions)
		if _, dup := seen[k]; dup {
			return false
		}
		seen[k] = struct{}{}
		return true
	})
}

// normalizeDates rewrites the date column to ISO text in place. Values that
// do not parse become null and their row indexes are returned.
func normalizeDates(t *table.Table, column string) ([]int, error) {
	c, ok := t.Column(column)
	if !ok {
		return nil, apperrors.NewAppValidationError(fmt.Sprintf("column %q not found", column))
	}
	var bad []int
	out := make([]table.Value, c.Len())
	for i, v := range c.Values {
		norm, ok := normalizeDate(v)
		if !ok {
			bad = append(bad, i)
			out[i] = table.Null()
			continue
		}
		out[i] = norm
	}
	c.Values = out
	c.Type = table.TypeString
	return bad, nil
}

func unparseableDates(mapping Mapping, rows []int) error {
	return apperrors.NewParsingError(
		fmt.Sprintf("%s: %d unparseable %s values", mapping.Table, len(rows), mapping.DateColumn), nil).
		WithContext("rows", rows)
}
