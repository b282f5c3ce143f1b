package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-salesfeat/internal/datagen"
	"github.com/pgEdge/pgedge-salesfeat/internal/store"
)

var (
	genProducts      int
	genBrands        int
	genStores        int
	genDays          int
	genStartDate     string
	genSeed          uint64
	genProfile       string
	genUnmatchedRate float64
	genDropExisting  bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a synthetic set of input tables",
	Long: `Generate brand, product, store and daily sales tables shaped by a
demand profile and write them to the configured store. A share of products
can be given brand names missing from the brand table, the case the
feature pipeline keeps with a null brand.

Example:
  pgedge-salesfeat generate --input-dir data/input --seed 42
  pgedge-salesfeat generate --products 200 --stores 25 --profile seasonal
  pgedge-salesfeat generate --store postgres --connection "..." --drop-existing`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().IntVar(&genProducts, "products", 0,
		"number of products (default: 50)")
	generateCmd.Flags().IntVar(&genBrands, "brands", 0,
		"number of brands (default: 8)")
	generateCmd.Flags().IntVar(&genStores, "stores", 0,
		"number of stores (default: 10)")
	generateCmd.Flags().IntVar(&genDays, "days", 0,
		"days of sales per product and store (default: 150)")
	generateCmd.Flags().StringVar(&genStartDate, "start-date", "",
		"first sales date, YYYY-MM-DD (default: 2021-01-01)")
	generateCmd.Flags().Uint64Var(&genSeed, "seed", 0,
		"random seed for reproducible output (default: random)")
	generateCmd.Flags().StringVar(&genProfile, "profile", "",
		"demand profile (see 'pgedge-salesfeat profiles')")
	generateCmd.Flags().Float64Var(&genUnmatchedRate, "unmatched-rate", 0,
		"share of products whose brand is missing from the brand table (default: 0.05)")
	generateCmd.Flags().BoolVar(&genDropExisting, "drop-existing", false,
		"drop and recreate postgres tables before writing")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	// Override config with CLI flags; explicit numbers are validated below
	flags := cmd.Flags()
	if flags.Changed("products") {
		cfg.Generate.Products = genProducts
	}
	if flags.Changed("brands") {
		cfg.Generate.Brands = genBrands
	}
	if flags.Changed("stores") {
		cfg.Generate.Stores = genStores
	}
	if flags.Changed("days") {
		cfg.Generate.Days = genDays
	}
	if genStartDate != "" {
		cfg.Generate.StartDate = genStartDate
	}
	if flags.Changed("seed") {
		cfg.Generate.Seed = genSeed
	}
	if genProfile != "" {
		cfg.Generate.Profile = genProfile
	}
	if flags.Changed("unmatched-rate") {
		cfg.Generate.UnmatchedRate = genUnmatchedRate
	}
	if genDropExisting {
		cfg.Generate.DropExisting = true
	}

	// Validate configuration
	if err := cfg.ValidateGenerate(); err != nil {
		return err
	}
	genCfg, err := cfg.GeneratorConfig()
	if err != nil {
		return err
	}

	logger := newLogger(cmd)
	ctx, stop := signalContext(cmd)
	defer stop()

	gen, err := datagen.NewGenerator(logger, genCfg)
	if err != nil {
		return err
	}

	s, err := store.Open(ctx, logger, cfg.StoreOptions())
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.Store, err)
	}
	defer s.Close()

	if pg, ok := s.(*store.PostgresStore); ok {
		if err := prepareSchema(ctx, pg, cfg.Generate.DropExisting); err != nil {
			return err
		}
	}
	w, ok := s.(store.InputWriter)
	if !ok {
		return fmt.Errorf("%s store cannot write input tables", cfg.Store)
	}

	ds, err := gen.Generate(ctx)
	if err != nil {
		return fmt.Errorf("failed to generate data: %w", err)
	}
	if err := ds.Write(ctx, w); err != nil {
		return fmt.Errorf("failed to write data: %w", err)
	}

	logger.Info().
		Int("products", len(ds.Products)).
		Int("brands", len(ds.Brands)).
		Int("stores", len(ds.Stores)).
		Int("sales", len(ds.Sales)).
		Str("profile", genCfg.Profile).
		Msg("Generated input tables")
	return nil
}
