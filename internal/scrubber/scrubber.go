package scrubber

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	apperrors "smartsales/internal/errors"
	"smartsales/internal/infrastructure"
	"smartsales/internal/table"
)

// Scrubber applies cleaning steps to a private working copy of a table.
// Every step returns the receiver so calls chain left to right; the first
// failing step is remembered and every later step becomes a no-op.
type Scrubber struct {
	table   *table.Table
	err     error
	ctx     context.Context
	logger  *slog.Logger
	metrics *infrastructure.PipelineMetrics
	dataset string
}

// Option configures a Scrubber
type Option func(*Scrubber)

// WithLogger sets the logger used for per-step row counts
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scrubber) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics records dropped rows per step under the dataset label
func WithMetrics(metrics *infrastructure.PipelineMetrics, dataset string) Option {
	return func(s *Scrubber) {
		s.metrics = metrics
		s.dataset = dataset
	}
}

// WithContext sets the context passed to logs and metrics
func WithContext(ctx context.Context) Option {
	return func(s *Scrubber) {
		if ctx != nil {
			s.ctx = ctx
		}
	}
}

// New starts a chain over a deep copy of t; t itself is never modified
func New(t *table.Table, opts ...Option) *Scrubber {
	s := &Scrubber{
		table:  t.Clone(),
		ctx:    context.Background(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("component", "scrubber"))
	if s.dataset != "" {
		s.logger = s.logger.With(slog.String("dataset", s.dataset))
	}
	return s
}

// Err returns the first error recorded by the chain
func (s *Scrubber) Err() error { return s.err }

// NumRows returns the current row count of the working table
func (s *Scrubber) NumRows() int { return s.table.NumRows() }

// ColumnNames returns the current column names of the working table
func (s *Scrubber) ColumnNames() []string { return s.table.ColumnNames() }

// ColumnType reports the type of a working column
func (s *Scrubber) ColumnType(name string) (table.Type, bool) {
	c, ok := s.table.Column(name)
	if !ok {
		return 0, false
	}
	return c.Type, true
}

// Logger returns the logger steps report to
func (s *Scrubber) Logger() *slog.Logger { return s.logger }

// Materialize returns an owned copy of the working table
func (s *Scrubber) Materialize() (*table.Table, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.table.Clone(), nil
}

// WriteCSV persists the working table, creating parent directories
func (s *Scrubber) WriteCSV(path string) error {
	if s.err != nil {
		return s.err
	}
	if err := table.WriteCSV(s.table, path); err != nil {
		return apperrors.NewStorageError("failed to write cleaned table", err).WithContext("path", path)
	}
	s.logger.InfoContext(s.ctx, "Cleaned table written",
		slog.String("path", path),
		slog.Int("rows", s.table.NumRows()),
		slog.Int("columns", s.table.NumCols()))
	return nil
}

// step runs fn against the working table and logs the row delta
func (s *Scrubber) step(name string, fn func(t *table.Table) (*table.Table, error)) *Scrubber {
	if s.err != nil {
		return s
	}
	before := s.table.NumRows()
	out, err := fn(s.table)
	if err != nil {
		s.err = fmt.Errorf("%s: %w", name, err)
		s.logger.ErrorContext(s.ctx, "Cleaning step failed",
			slog.String("step", name),
			slog.String("error", err.Error()))
		return s
	}
	s.table = out

	removed := before - out.NumRows()
	s.logger.DebugContext(s.ctx, "Cleaning step applied",
		slog.String("step", name),
		slog.Int("rows_before", before),
		slog.Int("rows_after", out.NumRows()),
		slog.Int("rows_removed", removed))
	s.metrics.RecordDropped(s.ctx, s.dataset, name, removed)
	return s
}

// Then applies a custom named step to the working table. fn owns the table
// it is given and may return it modified or a new one.
func (s *Scrubber) Then(name string, fn func(t *table.Table) (*table.Table, error)) *Scrubber {
	return s.step(name, fn)
}

// StandardizeName lowercases, trims and replaces spaces with underscores
func StandardizeName(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

// StandardizeColumnNames rewrites every column name with StandardizeName
func (s *Scrubber) StandardizeColumnNames() *Scrubber {
	return s.step("standardize_column_names", func(t *table.Table) (*table.Table, error) {
		t.Rename(StandardizeName)
		return t, nil
	})
}

// RenameColumns renames columns by exact name; unknown names are ignored
func (s *Scrubber) RenameColumns(mapping map[string]string) *Scrubber {
	return s.step("rename_columns", func(t *table.Table) (*table.Table, error) {
		t.Rename(func(name string) string {
			if to, ok := mapping[name]; ok {
				return to
			}
			return name
		})
		return t, nil
	})
}

// StripWhitespace trims leading and trailing whitespace in the given text
// columns, or in every text column when none are named. Columns that are
// missing or not text are left alone.
func (s *Scrubber) StripWhitespace(columns ...string) *Scrubber {
	return s.step("strip_whitespace", func(t *table.Table) (*table.Table, error) {
		targets := t.Columns()
		if len(columns) > 0 {
			targets = targets[:0:0]
			for _, name := range columns {
				if c, ok := t.Column(name); ok {
					targets = append(targets, c)
				}
			}
		}
		for _, c := range targets {
			if c.Type != table.TypeString {
				continue
			}
			c.Map(func(v table.Value) table.Value {
				text, _ := v.Text()
				return table.Str(strings.TrimSpace(text))
			})
		}
		return t, nil
	})
}

// DropDuplicateRows keeps the first occurrence of each row, compared over
// the subset columns or all columns
func (s *Scrubber) DropDuplicateRows(subset ...string) *Scrubber {
	return s.step("drop_duplicate_rows", func(t *table.Table) (*table.Table, error) {
		positions, err := positionsOf(t, subset)
		if err != nil {
			return nil, err
		}
		seen := make(map[string]struct{}, t.NumRows())
		return t.Filter(func(i int) bool {
			key := t.RowKey(i, positions)
			if _, dup := seen[key]; dup {
				return false
			}
			seen[key] = struct{}{}
			return true
		}), nil
	})
}

// DropFullyEmptyRows removes rows in which every value is null
func (s *Scrubber) DropFullyEmptyRows() *Scrubber {
	return s.step("drop_fully_empty_rows", func(t *table.Table) (*table.Table, error) {
		return t.Filter(func(i int) bool {
			for _, c := range t.Columns() {
				if !c.Values[i].IsNull() {
					return true
				}
			}
			return false
		}), nil
	})
}

// DropFullyEmptyColumns removes columns in which every value is null
func (s *Scrubber) DropFullyEmptyColumns() *Scrubber {
	return s.step("drop_fully_empty_columns", func(t *table.Table) (*table.Table, error) {
		if t.NumRows() == 0 {
			return t, nil
		}
		var empty []string
		for _, c := range t.Columns() {
			if c.NullCount() == c.Len() {
				empty = append(empty, c.Name)
			}
		}
		if len(empty) > 0 {
			s.logger.DebugContext(s.ctx, "Dropping empty columns", slog.Any("columns", empty))
		}
		t.DropColumns(empty...)
		return t, nil
	})
}

// DropRowsWithNulls removes rows holding a null in any subset column, or in
// any column when none are named
func (s *Scrubber) DropRowsWithNulls(subset ...string) *Scrubber {
	return s.step("drop_rows_with_nulls", func(t *table.Table) (*table.Table, error) {
		positions, err := positionsOf(t, subset)
		if err != nil {
			return nil, err
		}
		cols := t.Columns()
		if positions == nil {
			positions = make([]int, len(cols))
			for j := range cols {
				positions[j] = j
			}
		}
		return t.Filter(func(i int) bool {
			for _, j := range positions {
				if cols[j].Values[i].IsNull() {
					return false
				}
			}
			return true
		}), nil
	})
}

// FillNulls replaces nulls column by column; columns not in the map, or not
// present in the table, are untouched
func (s *Scrubber) FillNulls(defaults map[string]table.Value) *Scrubber {
	return s.step("fill_nulls", func(t *table.Table) (*table.Table, error) {
		for _, name := range sortedKeys(defaults) {
			if c, ok := t.Column(name); ok {
				c.FillNull(defaults[name])
			}
		}
		return t, nil
	})
}

// CastColumns converts the named columns to the given types. A column that
// is missing or fails to convert is left unchanged: with strict unset this
// is logged as a warning, with strict set it fails the chain.
func (s *Scrubber) CastColumns(types map[string]table.Type, strict bool) *Scrubber {
	return s.step("cast_columns", func(t *table.Table) (*table.Table, error) {
		var failures []string
		for _, name := range sortedKeys(types) {
			c, ok := t.Column(name)
			if !ok {
				failures = append(failures, fmt.Sprintf("column %q not found", name))
				continue
			}
			if err := c.CastTo(types[name]); err != nil {
				failures = append(failures, err.Error())
			}
		}
		if len(failures) == 0 {
			return t, nil
		}
		if strict {
			return nil, apperrors.NewAppValidationError(strings.Join(failures, "; "))
		}
		s.logger.WarnContext(s.ctx, "Cast left columns unchanged",
			slog.Any("failures", failures))
		return t, nil
	})
}

// FilterOutliersIQR drops rows outside [Q1 - k*IQR, Q3 + k*IQR] for each
// numeric column not excluded. Columns are processed in table order and each
// filter sees only the rows that survived the previous one. A null in a
// filtered column is outside every fence, so its row is dropped.
func (s *Scrubber) FilterOutliersIQR(k float64, exclude func(name string) bool) *Scrubber {
	return s.step("filter_outliers_iqr", func(t *table.Table) (*table.Table, error) {
		if k < 0 {
			return nil, apperrors.NewAppValidationError(fmt.Sprintf("negative IQR multiplier %v", k))
		}
		names := t.ColumnNames()
		for _, name := range names {
			if exclude != nil && exclude(name) {
				continue
			}
			c, _ := t.Column(name)
			if !c.IsNumeric() {
				continue
			}
			lower, upper, ok := IQRBounds(c.Floats(), k)
			if !ok {
				continue
			}
			before := t.NumRows()
			t = t.Filter(func(i int) bool {
				f, ok := c.Values[i].Float64()
				return ok && f >= lower && f <= upper
			})
			if removed := before - t.NumRows(); removed > 0 {
				s.logger.DebugContext(s.ctx, "Outliers removed",
					slog.String("column", name),
					slog.Float64("lower", lower),
					slog.Float64("upper", upper),
					slog.Int("rows_removed", removed))
			}
		}
		return t, nil
	})
}

// Apply runs each recipe step in order
func (s *Scrubber) Apply(recipe Recipe) *Scrubber {
	for _, st := range recipe {
		if s.err != nil {
			break
		}
		before := s.table.NumRows()
		st.Apply(s)
		s.logger.InfoContext(s.ctx, "Recipe step complete",
			slog.String("step", st.Name),
			slog.Int("rows_before", before),
			slog.Int("rows_after", s.table.NumRows()))
	}
	return s
}

func positionsOf(t *table.Table, names []string) ([]int, error) {
	if len(names) == 0 {
		return nil, nil
	}
	positions := make([]int, len(names))
	for k, n := range names {
		j := t.ColumnIndex(n)
		if j < 0 {
			return nil, apperrors.NewAppValidationError(fmt.Sprintf("column %q not found", n))
		}
		positions[k] = j
	}
	return positions, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
