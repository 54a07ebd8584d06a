package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"smartsales/internal/app"
	"smartsales/internal/preparation"
)

type rootOptions struct {
	configFile string
	root       string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "smartsales",
		Short: "Clean, warehouse and analyze sales extracts",
		Long: `smartsales is a batch BI pipeline over three raw extracts
(customers, products, sales):

  prepare   clean data/raw/<name>_data.csv into data/processed/
  load      rebuild the SQLite star schema in data/dw/smart_sales.db
  report    repeat-customer revenue by category and region, CSVs and charts
  run       all three stages in order
  serve     read-only HTTP API over the warehouse
  schedule  repeat run on a fixed interval`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (default: config.yaml or configs/config.yaml if present)")
	cmd.PersistentFlags().StringVar(&opts.root, "root", "", "project root the data paths are relative to (default: working directory)")

	cmd.AddCommand(
		newPrepareCommand(opts),
		newLoadCommand(opts),
		newReportCommand(opts),
		newRunCommand(opts),
		newServeCommand(opts),
		newScheduleCommand(opts),
	)
	return cmd
}

// withApp builds the application, runs fn with a context cancelled on
// SIGINT or SIGTERM and closes the application afterwards
func withApp(opts *rootOptions, fn func(ctx context.Context, a *app.Application) error) error {
	a, err := app.New(opts.configFile, opts.root)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := fn(ctx, a)
	if err := a.Close(context.Background()); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

func newPrepareCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "prepare [dataset...]",
		Short:     "Clean raw extracts into processed CSVs",
		ValidArgs: preparation.Names(),
		Args:      cobra.OnlyValidArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(ctx context.Context, a *app.Application) error {
				results, err := a.Runner.Prepare(ctx, args...)
				out := cmd.OutOrStdout()
				for _, r := range results {
					fmt.Fprintf(out, "%-10s %5d -> %5d rows  %s\n", r.Dataset, r.RowsBefore, r.RowsAfter, r.Output)
				}
				return err
			})
		},
	}
}

func newLoadCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "load",
		Short: "Rebuild the warehouse from the processed CSVs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(ctx context.Context, a *app.Application) error {
				result, err := a.Runner.Load(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d customers, %d products, %d sales\n",
					result.Path, result.Counts.Customers, result.Counts.Products, result.Counts.Sales)
				fmt.Fprintf(cmd.OutOrStdout(), "sales rows skipped: %d repeated transaction ids, %d invalid sale dates\n",
					result.Facts.Duplicates, result.Facts.InvalidDates)
				return nil
			})
		},
	}
}

func newReportCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Print the repeat-customer aggregates and write CSVs and charts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(ctx context.Context, a *app.Application) error {
				out, err := a.Runner.Report(ctx)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				if err := out.Report.WriteText(w); err != nil {
					return err
				}
				printFiles(w, append(out.Exports, out.Figures...))
				return nil
			})
		},
	}
}

func newRunCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run prepare, load and report in order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(ctx context.Context, a *app.Application) error {
				manifest, err := a.Runner.RunAll(ctx)
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "run %s: %s\n", manifest.ID, manifest.Status)
				for _, s := range manifest.Stages {
					fmt.Fprintf(w, "  %-8s %-9s %s\n", s.Stage, s.Status, s.Duration)
				}
				return err
			})
		},
	}
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the warehouse aggregates over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(ctx context.Context, a *app.Application) error {
				if cmd.Flags().Changed("port") {
					a.Config.Server.Port = port
				}
				return a.Serve(ctx)
			})
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides server.port)")
	return cmd
}

func newScheduleCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Repeat the full pipeline on the configured interval",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(ctx context.Context, a *app.Application) error {
				return a.Schedule(ctx)
			})
		},
	}
}

func printFiles(w io.Writer, files []string) {
	if len(files) == 0 {
		return
	}
	fmt.Fprintln(w, "\nWritten:")
	for _, f := range files {
		fmt.Fprintf(w, "  %s\n", f)
	}
}
