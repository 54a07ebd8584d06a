// Package config provides configuration loading and path resolution for the
// SmartSales pipeline.
//
// # Configuration Sources
//
// Configuration is assembled from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. A YAML file (config.yaml or configs/config.yaml, or --config)
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern SMARTSALES_<SECTION>_<FIELD>:
//
//	SMARTSALES_LOGGING_LEVEL=debug
//	SMARTSALES_CLEANING_OUTLIER_MULTIPLIER=3
//	SMARTSALES_WAREHOUSE_STRICT_SALE_DATE=true
//	SMARTSALES_SERVER_PORT=9090
//
// # Path Management
//
// Paths are resolved once against a project root and handed to each
// component:
//
//	paths, err := cfg.ResolvePaths(root)
//	raw := paths.RawFile("customers")         // data/raw/customers_data.csv
//	clean := paths.ProcessedFile("customers") // data/processed/customers_data_clean.csv
//
// # Usage
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    return err
//	}
package config
