package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/frameport/frameport/internal/output"
	"github.com/frameport/frameport/pkg/config"
	"github.com/frameport/frameport/pkg/engine"
	"github.com/frameport/frameport/pkg/frame"
	"github.com/frameport/frameport/pkg/logger"
	"github.com/frameport/frameport/pkg/query"
)

var version = "0.1.0"

func main() {
	var configFile, logLevel string

	root := &cobra.Command{
		Use:   "frameport",
		Short: "Frameport - inspect and query parquet files",
		Long: `Frameport reads, filters and writes columnar parquet data.
The CLI exposes the library's scan and query paths for quick inspection.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			lc := cfg.LoggerConfig()
			if logLevel != "" {
				lc.Level = logLevel
			}
			return logger.Init(lc)
		},
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "Path to a frameport config file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("frameport v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "schema FILE",
		Short: "Print a file's columns and types",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := engine.Default.Schema(args[0])
			if err != nil {
				return err
			}
			for _, field := range sc.Fields() {
				fmt.Printf("%s\t%s\n", field.Name, frame.TagOf(field.Type))
			}
			return nil
		},
	})

	var catColumns []string
	var catFormat, catOutput string
	catCmd := &cobra.Command{
		Use:   "cat FILE",
		Short: "Print a file's rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := frame.OpenProjected(context.Background(), args[0], catColumns)
			if err != nil {
				return err
			}
			defer f.Close()
			return render(f, catFormat, catOutput)
		},
	}
	catCmd.Flags().StringSliceVarP(&catColumns, "columns", "c", nil, "Columns to read (default all)")
	catCmd.Flags().StringVarP(&catFormat, "format", "f", "table", "Output format (table, csv, jsonl)")
	catCmd.Flags().StringVarP(&catOutput, "output", "o", "", "Output file (.gz and .zst compress; default stdout)")
	root.AddCommand(catCmd)

	var qColumns, qFilters []string
	var qLimit int64
	var qFormat, qOutput string
	queryCmd := &cobra.Command{
		Use:   "query FILE",
		Short: "Filter and project a file's rows",
		Long: `Filter and project a file's rows. Filters combine with AND and use the
form "column op literal" where op is one of ==, !=, <, <=, >, >=.

Example:
  frameport query data.parquet -c name,score -w "score > 80" -w "active == true"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := query.New(args[0])
			if err != nil {
				return err
			}
			if len(qColumns) > 0 {
				q.Select(qColumns...)
			}
			if len(qFilters) > 0 {
				sc, err := engine.Default.Schema(args[0])
				if err != nil {
					return err
				}
				for _, expr := range qFilters {
					pred, err := parseFilter(expr, sc)
					if err != nil {
						return err
					}
					if err := q.AddFilter(pred.Column, pred.Op, pred.Value); err != nil {
						return err
					}
				}
			}
			if qLimit > 0 {
				q.Limit(qLimit)
			}
			f, err := q.Collect(context.Background())
			if err != nil {
				return err
			}
			defer f.Close()
			return render(f, qFormat, qOutput)
		},
	}
	queryCmd.Flags().StringSliceVarP(&qColumns, "columns", "c", nil, "Columns to select (default all)")
	queryCmd.Flags().StringArrayVarP(&qFilters, "where", "w", nil, "Filter expression, repeatable")
	queryCmd.Flags().Int64VarP(&qLimit, "limit", "n", 0, "Maximum rows to return (0 = no limit)")
	queryCmd.Flags().StringVarP(&qFormat, "format", "f", "table", "Output format (table, csv, jsonl)")
	queryCmd.Flags().StringVarP(&qOutput, "output", "o", "", "Output file (.gz and .zst compress; default stdout)")
	root.AddCommand(queryCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// render writes the frame to dest (stdout when empty) in the named format
func render(f *frame.Frame, format, dest string) error {
	var w io.Writer = os.Stdout
	if dest != "" {
		wc, err := output.Create(dest)
		if err != nil {
			return err
		}
		defer wc.Close()
		w = wc
	}

	var fm output.Formatter
	switch format {
	case "table":
		fm = output.NewTableFormatter(w)
	case "csv":
		fm = output.NewCSVFormatter(w)
	case "jsonl":
		fm = output.NewJSONLFormatter(w)
	default:
		return fmt.Errorf("unknown format %q (want table, csv or jsonl)", format)
	}
	return fm.Format(f)
}
