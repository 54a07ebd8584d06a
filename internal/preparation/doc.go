// Package preparation cleans the raw customer, product and sales extracts.
//
// Each dataset has a fixed recipe built on the scrubber package:
//
//  1. trim text values and drop blank rows
//  2. drop exact duplicate rows
//  3. drop rows missing a key column (matched case-insensitively)
//  4. repair the dataset's numeric column: nulls become 0, and for
//     products and sales negative values become 0
//  5. drop IQR outliers in every numeric column whose name does not
//     contain "id"
//
// Raw input is read from data/raw/<dataset>_data.csv, or the .xlsx of the
// same name when the CSV is absent, and the result is written to
// data/processed/<dataset>_data_clean.csv.
package preparation
