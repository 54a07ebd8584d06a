// Package pipeline drives the three batch stages over a project layout:
// prepare (raw extracts to cleaned CSVs), load (cleaned CSVs to the SQLite
// warehouse) and report (warehouse to aggregates, CSV exports and charts).
//
// RunAll executes the stages in order under one run id, records each stage
// in a RunManifest saved next to the reports and flushes metrics to the
// configured textfile. Scheduler repeats RunAll with gocron in singleton
// mode.
package pipeline
