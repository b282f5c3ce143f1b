package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-salesfeat/internal/pipeline"
	"github.com/pgEdge/pgedge-salesfeat/internal/report"
	"github.com/pgEdge/pgedge-salesfeat/internal/store"
	"github.com/pgEdge/pgedge-salesfeat/pkg/version"
)

var (
	runMinDate    string
	runMaxDate    string
	runTop        int
	runWindow     int
	runWorkers    int
	runXLSXReport bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Compute sales features and rank forecast error",
	Long: `Load the product, brand, store and sales tables, keep sales between
--min-date and --max-date inclusive, compute the hierarchy features and
write the features table. Groups are then scored by WMAPE using the
product moving average as forecast, and the worst --top are written to
the mapes table.

Example:
  pgedge-salesfeat run --input-dir data/input --output-dir data/output
  pgedge-salesfeat run --min-date 2021-02-01 --max-date 2021-04-30 --top 10
  pgedge-salesfeat run --store postgres --connection "postgres://..." --xlsx-report`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runMinDate, "min-date", "",
		"first sales date kept, YYYY-MM-DD (default: 2021-01-08)")
	runCmd.Flags().StringVar(&runMaxDate, "max-date", "",
		"last sales date kept, YYYY-MM-DD (default: 2021-05-30)")
	runCmd.Flags().IntVar(&runTop, "top", 0,
		"number of worst WMAPE groups to report (default: 5)")
	runCmd.Flags().IntVar(&runWindow, "window", 0,
		"moving average and lag window in days (default: 7)")
	runCmd.Flags().IntVar(&runWorkers, "workers", 0,
		"parallel workers for window features (default: 4)")
	runCmd.Flags().BoolVar(&runXLSXReport, "xlsx-report", false,
		"also write mapes.xlsx to the output directory")
}

func runRun(cmd *cobra.Command, args []string) error {
	// Override config with CLI flags; explicit numbers are validated below
	flags := cmd.Flags()
	if runMinDate != "" {
		cfg.Run.MinDate = runMinDate
	}
	if runMaxDate != "" {
		cfg.Run.MaxDate = runMaxDate
	}
	if flags.Changed("top") {
		cfg.Run.Top = runTop
	}
	if flags.Changed("window") {
		cfg.Run.Window = runWindow
	}
	if flags.Changed("workers") {
		cfg.Run.Workers = runWorkers
	}
	if runXLSXReport {
		cfg.Run.XLSXReport = true
	}

	// Validate configuration
	if err := cfg.ValidateRun(); err != nil {
		return err
	}
	opts, err := cfg.PipelineOptions()
	if err != nil {
		return err
	}

	logger := newLogger(cmd)
	ctx, stop := signalContext(cmd)
	defer stop()

	s, err := store.Open(ctx, logger, cfg.StoreOptions())
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.Store, err)
	}
	defer s.Close()

	if pg, ok := s.(*store.PostgresStore); ok {
		exists, err := pg.SchemaExists(ctx)
		if err != nil {
			return fmt.Errorf("failed to check schema: %w", err)
		}
		if !exists {
			return fmt.Errorf("database is not initialized; run 'pgedge-salesfeat init' first")
		}
		if v, err := pg.SchemaVersion(ctx); err == nil && v != version.Short() {
			logger.Warn().Str("schema_version", v).Str("version", version.Short()).
				Msg("Schema was created by a different version")
		}
	}

	inputs, err := store.LoadInputs(ctx, s)
	if err != nil {
		if errors.Is(err, store.ErrInputNotFound) {
			return fmt.Errorf("failed to load inputs: %w (try 'pgedge-salesfeat generate')", err)
		}
		return fmt.Errorf("failed to load inputs: %w", err)
	}

	res, err := pipeline.New(logger, opts).Run(ctx, inputs)
	if err != nil {
		return err
	}
	if err := store.SaveResult(ctx, s, res, opts); err != nil {
		return fmt.Errorf("failed to save results: %w", err)
	}

	if cfg.Run.XLSXReport {
		path := filepath.Join(cfg.OutputDir, report.FileName)
		if err := report.WriteXLSX(path, res, opts); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		logger.Info().Str("path", path).Msg("Wrote report")
	}

	return printMapes(cmd, res)
}

// printMapes writes the ranked groups as a table.
func printMapes(cmd *cobra.Command, res *pipeline.Result) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Top %d of %d groups by WMAPE (run %s)\n", len(res.Mapes), res.Groups, res.RunID)
	fmt.Fprintln(w, "RANK\tPRODUCT\tSTORE\tBRAND\tWMAPE")
	for i, r := range res.Mapes {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", i+1, r.ProductID, r.StoreID, orNull(r.BrandID), formatScore(r.WMAPE))
	}
	return w.Flush()
}

func orNull(s *string) string {
	if s == nil {
		return "null"
	}
	return *s
}

func formatScore(v *float64) string {
	if v == nil {
		return "null"
	}
	return strconv.FormatFloat(*v, 'f', 4, 64)
}
