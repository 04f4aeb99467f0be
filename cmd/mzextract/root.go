package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/locvowork/mzextract/internal/config"
	"github.com/locvowork/mzextract/internal/domain"
	"github.com/locvowork/mzextract/internal/logger"
	"github.com/locvowork/mzextract/internal/service"
	"github.com/locvowork/mzextract/pkg/simpleexcel"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	envFile     string
	presetsFile string
	keyColumn   string
	noTrim      bool
	logLevel    string
}

type extractOptions struct {
	value     string
	sheets    []string
	allSheets bool
	ranges    []string
	preset    string
	format    string
	outDir    string
	workers   int
	preview   int
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "mzextract",
		Short: "Filter fragment workbooks to m/z ranges",
		Long: `mzextract selects the rows of each chosen sheet whose m/z falls in one of
the given ranges and merges the selected value column of every sheet into a
single table keyed by m/z.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var files []string
			if opts.envFile != "" {
				files = append(files, opts.envFile)
			}
			if err := config.LoadEnvConfig(files...); err != nil {
				return err
			}
			logger.SetLogger(newConsoleLogger(cmd.ErrOrStderr(), opts.logLevel))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.envFile, "env", "", "Env file to load (default: .env if present)")
	rootCmd.PersistentFlags().StringVar(&opts.presetsFile, "presets", "", "Range presets YAML (default: PRESETS_FILE)")
	rootCmd.PersistentFlags().StringVar(&opts.keyColumn, "key", "", "Key column header (default: KEY_COLUMN or m/z)")
	rootCmd.PersistentFlags().BoolVar(&opts.noTrim, "no-trim", false, "Keep surrounding whitespace in headers")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(newInspectCmd(opts), newExtractCmd(opts))
	return rootCmd
}

func newConsoleLogger(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.WarnLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, NoColor: true}).Level(lvl).With().Timestamp().Logger()
}

// newService builds the extraction service from the environment and flags.
func newService(opts *rootOptions, workers int) (service.ExtractionService, error) {
	cfg := config.DefaultEnvConfig

	presetsFile := cfg.PRESETS_FILE
	if opts.presetsFile != "" {
		presetsFile = opts.presetsFile
	}
	presets, err := config.LoadPresets(presetsFile)
	if err != nil {
		return nil, err
	}

	key := cfg.KEY_COLUMN
	if opts.keyColumn != "" {
		key = opts.keyColumn
	}
	if workers < 1 {
		workers = cfg.BATCH_WORKERS
	}

	return service.NewExtractionService(service.Options{
		KeyColumn:   key,
		TrimHeaders: cfg.TRIM_HEADERS && !opts.noTrim,
		Workers:     workers,
		Presets:     presets,
	}), nil
}

func newInspectCmd(root *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "inspect FILE",
		Short: "List the sheets and value columns of a workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService(root, 1)
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return domain.NewLoadError(args[0], err)
			}
			defer f.Close()

			info, err := svc.Inspect(cmd.Context(), filepath.Base(args[0]), f)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderInspect(info))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the workbook summary as JSON")
	return cmd
}

func newExtractCmd(root *rootOptions) *cobra.Command {
	opts := &extractOptions{}

	cmd := &cobra.Command{
		Use:   "extract FILE...",
		Short: "Extract a value column over m/z ranges and write the merged table",
		Example: `  mzextract extract fragments.xlsx --value Ala --sheet S1 --sheet S2 --range 100-200
  mzextract extract runs/*.xlsx --value Ala --all-sheets --preset immonium --format csv --out results`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd, root, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.value, "value", "", "Value column to extract (required)")
	cmd.Flags().StringArrayVar(&opts.sheets, "sheet", nil, "Sheet to read (repeatable)")
	cmd.Flags().BoolVar(&opts.allSheets, "all-sheets", false, "Read every sheet of the workbook")
	cmd.Flags().StringArrayVar(&opts.ranges, "range", nil, "m/z range as low-high (repeatable)")
	cmd.Flags().StringVar(&opts.preset, "preset", "", "Named range preset to add")
	cmd.Flags().StringVar(&opts.format, "format", "xlsx", "Output format: xlsx, csv, json")
	cmd.Flags().StringVarP(&opts.outDir, "out", "o", ".", "Output directory")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "Files processed concurrently (default: BATCH_WORKERS)")
	cmd.Flags().IntVar(&opts.preview, "preview", 0, "Print the first N rows of each result")
	_ = cmd.MarkFlagRequired("value")
	return cmd
}

func runExtract(cmd *cobra.Command, root *rootOptions, opts *extractOptions, paths []string) error {
	format := strings.ToLower(opts.format)
	if format != "xlsx" && format != "csv" && format != "json" {
		return fmt.Errorf("invalid format: %s (must be xlsx, csv, or json)", opts.format)
	}

	ranges, err := domain.ParseRangeList(opts.ranges)
	if err != nil {
		return err
	}

	svc, err := newService(root, opts.workers)
	if err != nil {
		return err
	}

	q := service.Query{
		ValueColumn: opts.value,
		Sheets:      opts.sheets,
		AllSheets:   opts.allSheets,
		Ranges:      ranges,
		Preset:      opts.preset,
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	results, err := svc.ExtractFiles(ctx, paths, q)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(opts.outDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
	var failed int
	for _, r := range results {
		name := filepath.Base(r.Path)
		if r.Err != nil {
			failed++
			fmt.Fprintln(errOut, errorStyle.Render(fmt.Sprintf("%s: %v", name, r.Err)))
			continue
		}
		for _, w := range r.Result.Warnings {
			fmt.Fprintln(errOut, warnStyle.Render(fmt.Sprintf("%s: %s", name, w.Message)))
		}
		if r.Result.NoData() {
			fmt.Fprintln(errOut, warnStyle.Render(fmt.Sprintf("%s: no data in the selected ranges", name)))
			continue
		}

		target := filepath.Join(opts.outDir, outputName(name, opts.value, format, len(results) > 1))
		if err := writeResult(target, format, opts.value, r.Result); err != nil {
			return fmt.Errorf("failed to write %s: %w", target, err)
		}
		fmt.Fprintln(out, okStyle.Render(fmt.Sprintf("%s: %d rows from %s -> %s",
			name, r.Result.Table.Len(), strings.Join(r.Result.MatchedSheets, ", "), target)))

		if opts.preview > 0 {
			fmt.Fprintln(out, renderPreview(r.Result.Table, opts.preview))
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(results))
	}
	return nil
}

// outputName prefixes the download name with the input file when several
// files are written to the same directory.
func outputName(input, value, format string, prefixed bool) string {
	name := simpleexcel.OutputFilename(value, format)
	if !prefixed {
		return name
	}
	return strings.TrimSuffix(input, filepath.Ext(input)) + "_" + name
}

func writeResult(path, format, value string, result *domain.ExtractionResult) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	switch format {
	case "csv":
		return simpleexcel.WriteCSV(f, result.Table)
	case "json":
		records := result.Table.Records()
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Columns  []string                 `json:"columns"`
			Rows     []map[string]interface{} `json:"rows"`
			Warnings []domain.Warning         `json:"warnings,omitempty"`
		}{result.Table.Columns, records, result.Warnings})
	default:
		return simpleexcel.WriteXLSX(f, value, result.Table)
	}
}
