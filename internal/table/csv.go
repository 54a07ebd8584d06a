package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	apperrors "smartsales/internal/errors"
)

// ReadCSV loads a CSV file whose first row is the header. Cell types are
// inferred per column (int, then float, then bool, then string) and the usual
// missing-value markers (empty, NA, NaN, null, ...) become nulls.
func ReadCSV(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperrors.NewMissingInputError(path, err)
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	t, err := DecodeCSV(file)
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("failed to parse %s", path), err).
			WithContext("path", path)
	}
	return t, nil
}

// DecodeCSV reads a header-first CSV stream
func DecodeCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no columns to parse")
	}
	return FromRecords(records[0], records[1:])
}

// FromRecords builds a table from a header and raw string records. Short
// records are padded with nulls; long ones are an error.
func FromRecords(header []string, records [][]string) (*Table, error) {
	names := make([]string, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		if h == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}
		names[i] = h
	}
	names = dedupeNames(names)

	raw := make([][]string, len(names))
	for j := range raw {
		raw[j] = make([]string, len(records))
	}
	for i, rec := range records {
		if len(rec) > len(names) {
			return nil, fmt.Errorf("line %d: expected %d fields, saw %d", i+2, len(names), len(rec))
		}
		for j := range names {
			if j < len(rec) {
				raw[j][i] = rec[j]
			} else {
				raw[j][i] = ""
			}
		}
	}

	t := &Table{rows: len(records)}
	for j, name := range names {
		if err := t.AddColumn(InferColumn(name, raw[j])); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// InferColumn parses raw cells into the narrowest type that holds every
// non-missing value. A column with no values at all is float, except in a
// zero-row table where it is string.
func InferColumn(name string, raw []string) *Column {
	present := 0
	isInt, isFloat, isBool := true, true, true
	for _, s := range raw {
		if IsNAToken(s) {
			continue
		}
		present++
		if isInt {
			if _, ok := parseInt(s); !ok {
				isInt = false
			}
		}
		if isFloat {
			if _, ok := parseFloat(s); !ok {
				isFloat = false
			}
		}
		if isBool {
			if _, ok := parseBool(s); !ok {
				isBool = false
			}
		}
	}

	typ := TypeString
	switch {
	case present == 0 && len(raw) == 0:
		typ = TypeString
	case present == 0:
		typ = TypeFloat
	case isInt:
		typ = TypeInt
	case isFloat:
		typ = TypeFloat
	case isBool:
		typ = TypeBool
	}

	values := make([]Value, len(raw))
	for i, s := range raw {
		if IsNAToken(s) {
			continue
		}
		switch typ {
		case TypeInt:
			n, _ := parseInt(s)
			values[i] = Int(n)
		case TypeFloat:
			f, _ := parseFloat(s)
			values[i] = Float(f)
		case TypeBool:
			b, _ := parseBool(s)
			values[i] = Bool(b)
		default:
			values[i] = Str(s)
		}
	}
	return &Column{Name: name, Type: typ, Values: values}
}

// WriteCSV writes the table with a header row and no index column,
// creating parent directories as needed.
func WriteCSV(t *Table, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	if err := EncodeCSV(t, file); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return file.Close()
}

// EncodeCSV writes the table as CSV to w
func EncodeCSV(t *Table, w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.ColumnNames()); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	record := make([]string, t.NumCols())
	for i := 0; i < t.NumRows(); i++ {
		for j, c := range t.columns {
			record[j] = c.Values[i].String()
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// RequireRows fails with an empty-result error when t has no rows
func RequireRows(t *Table, source string) error {
	if t == nil || t.NumRows() == 0 {
		return apperrors.NewEmptyResultError(source)
	}
	return nil
}
