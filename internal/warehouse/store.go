package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver

	apperrors "smartsales/internal/errors"
	"smartsales/internal/table"
)

// Store owns the single connection to the warehouse file
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// Counts holds the row count of each warehouse table
type Counts struct {
	Customers int `json:"dim_customer"`
	Products  int `json:"dim_product"`
	Sales     int `json:"fact_sales"`
}

// Open creates the parent directory and opens the warehouse at path.
// The pool is capped at one connection; callers must Close the store.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, apperrors.NewStorageError("create warehouse directory", err).WithContext("path", path)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, apperrors.NewStorageError("open sqlite", err).WithContext("path", path)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, apperrors.NewStorageError("connect sqlite", err).WithContext("path", path)
	}

	logger = logger.With(slog.String("component", "warehouse"))
	logger.DebugContext(ctx, "Warehouse opened", slog.String("path", path))
	return &Store{db: db, path: path, logger: logger}, nil
}

// OpenExisting opens a warehouse that must already exist on disk
func OpenExisting(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperrors.NewMissingInputError(path, err)
		}
		return nil, apperrors.NewStorageError("stat warehouse", err)
	}
	return Open(ctx, path, logger)
}

// Path returns the warehouse file location
func (s *Store) Path() string { return s.path }

// DB exposes the underlying handle
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the connection
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close sqlite: %w", err)
	}
	return nil
}

// CreateSchema creates the three tables and the fact indexes when absent
func (s *Store) CreateSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return apperrors.NewStorageError("create schema", err)
		}
	}
	s.logger.DebugContext(ctx, "Warehouse schema ensured")
	return nil
}

// ResetWarehouse deletes every row, facts first, in one transaction
func (s *Store) ResetWarehouse(ctx context.Context) (retErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewStorageError("begin reset", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for _, name := range resetOrder {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+name); err != nil {
			return apperrors.NewStorageError("delete from "+name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return apperrors.NewStorageError("commit reset", err)
	}
	s.logger.InfoContext(ctx, "Warehouse tables cleared")
	return nil
}

// Append inserts every row of t into the named table in one transaction.
// Column names of t must be warehouse column names.
func (s *Store) Append(ctx context.Context, name string, t *table.Table) (retErr error) {
	if !knownTable(name) {
		return apperrors.NewNotFoundError("table " + name)
	}
	columns := t.ColumnNames()
	if len(columns) == 0 || t.NumRows() == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewStorageError("begin insert", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, insertStatement(name, columns))
	if err != nil {
		return apperrors.NewStorageError("prepare insert into "+name, err)
	}
	defer stmt.Close()

	args := make([]any, len(columns))
	for i := 0; i < t.NumRows(); i++ {
		for j, c := range t.Columns() {
			args[j] = driverValue(c.Values[i])
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return apperrors.NewStorageError(fmt.Sprintf("insert row %d into %s", i, name), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return apperrors.NewStorageError("commit insert into "+name, err)
	}
	return nil
}

// ReadTable loads a whole warehouse table in rowid order
func (s *Store) ReadTable(ctx context.Context, name string) (*table.Table, error) {
	if !knownTable(name) {
		return nil, apperrors.NewNotFoundError("table " + name)
	}
	rows, err := s.db.QueryContext(ctx, "SELECT * FROM "+name+" ORDER BY rowid")
	if err != nil {
		return nil, apperrors.NewStorageError("select from "+name, err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, apperrors.NewStorageError("columns of "+name, err)
	}

	var records [][]table.Value
	for rows.Next() {
		raw := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, apperrors.NewStorageError("scan "+name, err)
		}
		record := make([]table.Value, len(columns))
		for i, v := range raw {
			record[i] = table.FromAny(v)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("iterate "+name, err)
	}
	return table.FromRows(columns, records)
}

// Counts returns the number of rows in each warehouse table
func (s *Store) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	targets := []struct {
		name string
		dst  *int
	}{
		{TableCustomer, &c.Customers},
		{TableProduct, &c.Products},
		{TableSales, &c.Sales},
	}
	for _, tgt := range targets {
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+tgt.name).Scan(tgt.dst); err != nil {
			return Counts{}, apperrors.NewStorageError("count "+tgt.name, err)
		}
	}
	return c, nil
}

func insertStatement(name string, columns []string) string {
	query := "INSERT INTO " + name + " ("
	values := ""
	for i, c := range columns {
		if i > 0 {
			query += ", "
			values += ", "
		}
		query += c
		values += "?"
	}
	return query + ") VALUES (" + values + ")"
}

func driverValue(v table.Value) any {
	if v.IsNull() {
		return nil
	}
	switch v.Type() {
	case table.TypeInt:
		i, _ := v.Int64()
		return i
	case table.TypeFloat:
		f, _ := v.Float64()
		return f
	case table.TypeBool:
		b, _ := v.Boolean()
		return b
	default:
		s, _ := v.Text()
		return s
	}
}
