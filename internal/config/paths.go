package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains all the resolved application paths.
// Every component receives its locations from here instead of deriving them.
type Paths struct {
	Root          string
	RawDir        string
	ProcessedDir  string
	WarehouseFile string
	FiguresDir    string
	ReportsDir    string
	LogFile       string
	MetricsFile   string
}

// ResolvePaths anchors the configured locations at root. An empty root falls
// back to Paths.Root and then to the working directory.
func (c *Config) ResolvePaths(root string) (*Paths, error) {
	if root == "" {
		root = c.Paths.Root
	}
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		root = wd
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root %s: %w", root, err)
	}

	logFile := c.Paths.LogFile
	if c.Logging.FilePath != "" {
		logFile = c.Logging.FilePath
	}

	paths := &Paths{
		Root:          root,
		RawDir:        anchor(root, c.Paths.RawDir),
		ProcessedDir:  anchor(root, c.Paths.ProcessedDir),
		WarehouseFile: anchor(root, c.Paths.WarehouseFile),
		FiguresDir:    anchor(root, c.Paths.FiguresDir),
		ReportsDir:    anchor(root, c.Paths.ReportsDir),
		LogFile:       anchor(root, logFile),
	}
	if c.Telemetry.MetricsFile != "" {
		paths.MetricsFile = anchor(root, c.Telemetry.MetricsFile)
	}
	return paths, nil
}

// NewPaths returns the default layout under root
func NewPaths(root string) (*Paths, error) {
	return Default().ResolvePaths(root)
}

func anchor(root, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

// RawFile returns the raw CSV extract for a dataset, e.g. data/raw/customers_data.csv
func (p *Paths) RawFile(dataset string) string {
	return filepath.Join(p.RawDir, dataset+"_data.csv")
}

// RawWorkbook returns the spreadsheet alternative of RawFile
func (p *Paths) RawWorkbook(dataset string) string {
	return filepath.Join(p.RawDir, dataset+"_data.xlsx")
}

// ProcessedFile returns the cleaned CSV for a dataset
func (p *Paths) ProcessedFile(dataset string) string {
	return filepath.Join(p.ProcessedDir, dataset+"_data_clean.csv")
}

// ReportFile returns a file inside the reports directory
func (p *Paths) ReportFile(name string) string {
	return filepath.Join(p.ReportsDir, name)
}

// FigureFile returns a file inside the figures directory
func (p *Paths) FigureFile(name string) string {
	return filepath.Join(p.FiguresDir, name)
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.RawDir,
		p.ProcessedDir,
		filepath.Dir(p.WarehouseFile),
		p.FiguresDir,
		p.ReportsDir,
		filepath.Dir(p.LogFile),
	}
	if p.MetricsFile != "" {
		directories = append(directories, filepath.Dir(p.MetricsFile))
	}

	logger := slog.Default()
	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		logger.Debug("Ensured directory exists", slog.String("directory", dir))
	}
	return nil
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
