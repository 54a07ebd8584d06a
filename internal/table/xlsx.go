package table

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "smartsales/internal/errors"
)

// ReadXLSX loads one sheet of a workbook with the same header and type
// rules as ReadCSV. An empty sheet name selects the first sheet.
func ReadXLSX(path, sheet string) (*Table, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperrors.NewMissingInputError(path, err)
		}
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("failed to open workbook %s", path), err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, apperrors.NewParsingError(fmt.Sprintf("workbook %s has no sheets", path), nil)
		}
		sheet = sheets[0]
	} else {
		found := false
		for _, sh := range f.GetSheetList() {
			if strings.EqualFold(sh, sheet) {
				sheet, found = sh, true
				break
			}
		}
		if !found {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("sheet %s in %s", sheet, path))
		}
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("failed to read sheet %s", sheet), err)
	}

	// GetRows trims trailing empty cells, so blank rows come back empty
	var records [][]string
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		records = append(records, row)
	}
	if len(records) == 0 {
		return nil, apperrors.NewParsingError(fmt.Sprintf("sheet %s has no header row", sheet), nil)
	}

	t, err := FromRecords(records[0], records[1:])
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("failed to parse %s", path), err)
	}
	return t, nil
}
