// Package main provides the survey CLI entrypoint.
package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Vinayak1844/Statathon-Project/internal/app"
	"github.com/Vinayak1844/Statathon-Project/internal/config"
	"github.com/Vinayak1844/Statathon-Project/internal/filters"
	"github.com/Vinayak1844/Statathon-Project/internal/observability"
	"github.com/Vinayak1844/Statathon-Project/internal/storage"
	"github.com/Vinayak1844/Statathon-Project/internal/survey"
)

var version = "dev"

var (
	// Global flags
	cfgFile    string
	outputJSON bool
	noColor    bool
	verbose    bool

	// Configuration and logger
	cfg    *config.Config
	logger *observability.Logger
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "nss-cli",
	Short: "Query and maintain the household survey dataset",
	Long: `nss-cli works against the same database and configuration as the API.

Use this tool to:
- Filter household records by state, district, sector and other keys
- Ask a question in plain language and see the filters it maps to
- Seed the dataset and codes tables from CSV exports
- Export filtered records to CSV

All commands support --json for automation.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if cfgFile != "" && cfg.Database.Driver == "sqlite" {
			cfg.Database.DSN = config.ResolveRelativePath(cfgFile, cfg.Database.DSN)
		}

		level := cfg.Observability.LogLevel
		if verbose {
			level = "debug"
		}
		format := "console"
		if outputJSON {
			format = "json"
		}
		logger = observability.NewLogger(observability.LogConfig{
			Level:       level,
			Format:      format,
			Output:      os.Stderr,
			ServiceName: "nss-cli",
		})
		return nil
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default: uses env vars)")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.AddCommand(newQueryCmd())
	rootCmd.AddCommand(newChatCmd())
	rootCmd.AddCommand(newLoadCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// filterFlags binds one string flag per filter key.
type filterFlags struct {
	values map[filters.Key]*string
}

func addFilterFlags(cmd *cobra.Command) *filterFlags {
	ff := &filterFlags{values: make(map[filters.Key]*string)}
	for _, k := range filters.Keys() {
		v := new(string)
		cmd.Flags().StringVar(v, string(k), "", fmt.Sprintf("filter on %s", k))
		ff.values[k] = v
	}
	return ff
}

// Set returns the flags as a filter set; unset flags are absent.
func (ff *filterFlags) Set() filters.Set {
	var s filters.Set
	for k, v := range ff.values {
		s.Put(k, *v)
	}
	return s
}

func openApp(ctx context.Context, withChat bool) (*app.App, error) {
	a, err := app.New(ctx, cfg, logger, app.Options{WithChat: withChat})
	if err != nil {
		return nil, fmt.Errorf("open app: %w", err)
	}
	return a, nil
}

func closeApp(a *app.App) {
	if err := a.Close(); err != nil {
		logger.Warn().Err(err).Msg("Failed to release resources")
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// newQueryCmd creates the query subcommand.
func newQueryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Filter household records",
		Long: `Query compiles the given filters into one SQL statement and prints the
matching records. State and district names are resolved through the codes
table unless reference.resolve_names is off.`,
		Example: `  nss-cli query --state_name Bihar --sector Urban
  nss-cli query --district_name Patna --json`,
	}
	ff := addFilterFlags(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		a, err := openApp(ctx, false)
		if err != nil {
			return err
		}
		defer closeApp(a)

		set := ff.Set()
		logger.Debug().Str("filters", set.String()).Msg("Executing query")

		res, err := a.Service.Filter(ctx, set)
		if err != nil {
			return fmt.Errorf("query failed: %w", err)
		}

		if outputJSON {
			return printJSON(os.Stdout, res)
		}
		if !res.Success {
			return errors.New(res.Error)
		}

		ui := NewUI(false, noColor)
		defer ui.Close()
		printResult(ui, res.FiltersApplied, res.Data, limit)
		return nil
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum rows to print (0 for all)")
	return cmd
}

// newChatCmd creates the chat subcommand.
func newChatCmd() *cobra.Command {
	var (
		userID string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "chat <message>",
		Short: "Ask a question in plain language",
		Long: `Chat sends the message to the configured language model, turns its
answer into filters and runs them like query does. Unparseable model output
falls back to no filters.`,
		Example: `  nss-cli chat "Show me urban households in Bihar that are Hindu"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			a, err := openApp(ctx, true)
			if err != nil {
				return err
			}
			defer closeApp(a)

			ui := NewUI(outputJSON, noColor)
			defer ui.Close()

			stop := ui.Spinner("Asking " + cfg.LLM.Provider)
			resp, err := a.Service.Chat(ctx, survey.ChatRequest{
				UserID:  userID,
				Message: strings.Join(args, " "),
			})
			stop()
			if err != nil {
				return fmt.Errorf("chat failed: %w", err)
			}

			if outputJSON {
				return printJSON(os.Stdout, resp)
			}

			ui.Info("%s", resp.Reply)
			printResult(ui, filters.FromMap(resp.Filters), resp.Data, limit)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "session id to record the turn under")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum rows to print (0 for all)")
	return cmd
}

// newLoadCmd creates the load subcommand.
func newLoadCmd() *cobra.Command {
	var (
		datasetPath string
		codesPath   string
		replace     bool
	)

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Seed the dataset and codes tables from CSV",
		Long: `Load creates the configured dataset and codes tables from CSV exports.
Column types are inferred from the data. Use --replace to drop existing
tables first.

Loading codes also drops cached code lookups. A running API server only
sees that when cache.driver is redis; the memory cache is per process and
is cleared by restarting the server.`,
		Example: `  nss-cli load --dataset microdata_op.csv --codes codes.csv --replace`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Minute)
			defer cancel()

			a, err := openApp(ctx, false)
			if err != nil {
				return err
			}
			defer closeApp(a)

			ui := NewUI(outputJSON, noColor)
			loader := storage.NewLoader(a.DB, a.Dialect)

			jobs := []struct {
				path  string
				table string
			}{
				{datasetPath, cfg.Database.DatasetTable},
				{codesPath, cfg.Database.CodesTable},
			}

			loaded := make(map[string]int)
			for _, job := range jobs {
				if job.path == "" {
					continue
				}
				n, err := loadFile(ctx, ui, loader, job.path, job.table, replace)
				if err != nil {
					ui.Close()
					return fmt.Errorf("load %s: %w", job.path, err)
				}
				loaded[job.table] = n
				logger.Info().Str("table", job.table).Int("rows", n).Msg("Table loaded")
			}
			ui.Close()

			if codesPath != "" {
				if err := a.InvalidateReferences(ctx); err != nil {
					logger.Warn().Err(err).Msg("Failed to drop cached code lookups")
				}
			}

			if outputJSON {
				return printJSON(os.Stdout, loaded)
			}
			for _, job := range jobs {
				if n, ok := loaded[job.table]; ok {
					ui.Success("Loaded %d rows into %s", n, job.table)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&datasetPath, "dataset", "", "dataset CSV file")
	cmd.Flags().StringVar(&codesPath, "codes", "", "codes CSV file")
	cmd.Flags().BoolVar(&replace, "replace", false, "drop tables before loading")
	cmd.MarkFlagsOneRequired("dataset", "codes")

	return cmd
}

func loadFile(ctx context.Context, ui *UI, loader *storage.Loader, path, table string, replace bool) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	bar := ui.ProgressBar(filepath.Base(path), 0)
	opts := storage.LoadOptions{Replace: replace}
	if bar != nil {
		opts.Progress = func(done, total int) {
			bar.SetTotal(int64(total), false)
			bar.SetCurrent(int64(done))
		}
	}

	n, err := loader.LoadCSV(ctx, table, f, opts)
	if bar != nil {
		if err != nil {
			bar.Abort(false)
		} else {
			bar.SetTotal(-1, true)
		}
	}
	return n, err
}

// newExportCmd creates the export subcommand.
func newExportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export filtered records to CSV",
		Long: `Export runs the given filters and writes every matching record to a CSV
file with the dataset's column order.`,
		Example: `  nss-cli export --out bihar.csv --state_name Bihar`,
	}
	ff := addFilterFlags(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
		defer cancel()

		a, err := openApp(ctx, false)
		if err != nil {
			return err
		}
		defer closeApp(a)

		res, err := a.Service.Filter(ctx, ff.Set())
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
		if !res.Success {
			return errors.New(res.Error)
		}

		logger.Info().
			Str("filters", res.FiltersApplied.String()).
			Int("rows", res.Count).
			Str("output", output).
			Msg("Exporting records")

		file, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer file.Close()

		ui := NewUI(outputJSON, noColor)
		bar := ui.CountBar(len(res.Data), "Exporting")
		err = writeCSV(file, res.Data, func() {
			if bar != nil {
				_ = bar.Add(1)
			}
		})
		if err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
		if bar != nil {
			_ = bar.Finish()
		}

		if outputJSON {
			return printJSON(os.Stdout, map[string]any{"output": output, "count": res.Count})
		}
		if res.Count == 0 {
			ui.Warning("No records matched; %s is empty", output)
			return nil
		}
		ui.Success("Exported %d records to %s", res.Count, output)
		return nil
	}

	cmd.Flags().StringVarP(&output, "out", "o", "", "output file path (required)")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}

// newVersionCmd creates the version subcommand.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the CLI version",
		RunE: func(cmd *cobra.Command, args []string) error {
			if outputJSON {
				return printJSON(os.Stdout, map[string]string{"version": version})
			}
			fmt.Println("nss-cli", version)
			return nil
		},
	}
}

func printResult(ui *UI, applied filters.Set, rows []storage.Row, limit int) {
	ui.Section("Filters")
	if applied.IsEmpty() {
		ui.KeyValue("applied", "none")
	}
	for _, e := range applied.Entries() {
		ui.KeyValue(string(e.Key), e.Value)
	}

	if len(rows) == 0 {
		ui.Warning("No records found")
		return
	}
	ui.Section("Records")
	headers, cells := rowsTable(rows, limit)
	ui.Table(headers, cells)
	ui.Info("Showing %d of %d records", len(cells), len(rows))
}

// rowsTable flattens rows into printable cells. Headers come from the first
// row; limit <= 0 keeps every row.
func rowsTable(rows []storage.Row, limit int) ([]string, [][]string) {
	if len(rows) == 0 {
		return nil, nil
	}
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	headers := append([]string(nil), rows[0].Columns...)
	cells := make([][]string, len(rows))
	for i, r := range rows {
		cells[i] = rowStrings(r)
	}
	return headers, cells
}

// writeCSV writes a header from the first row and one record per row.
func writeCSV(w io.Writer, rows []storage.Row, onRow func()) error {
	if len(rows) == 0 {
		return nil
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(rows[0].Columns); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(rowStrings(r)); err != nil {
			return err
		}
		if onRow != nil {
			onRow()
		}
	}
	cw.Flush()
	return cw.Error()
}

func rowStrings(r storage.Row) []string {
	out := make([]string, len(r.Values))
	for i, v := range r.Values {
		out[i] = formatCell(v)
	}
	return out
}

func formatCell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(t)
	case string:
		return t
	case time.Time:
		return t.Format(time.RFC3339)
	default:
		return fmt.Sprint(t)
	}
}
