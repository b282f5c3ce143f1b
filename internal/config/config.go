//-------------------------------------------------------------------------
//
// pgEdge Sales Feature Generator
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package config handles configuration management for pgedge-salesfeat.
// Values come from defaults, then a YAML config file, then environment
// variables (optionally loaded from a .env file). CLI flags take precedence
// over all of them.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/pgEdge/pgedge-salesfeat/internal/datagen"
	"github.com/pgEdge/pgedge-salesfeat/internal/datagen/profiles"
	"github.com/pgEdge/pgedge-salesfeat/internal/logging"
	"github.com/pgEdge/pgedge-salesfeat/internal/pipeline"
	"github.com/pgEdge/pgedge-salesfeat/internal/schema"
	"github.com/pgEdge/pgedge-salesfeat/internal/store"
)

// DefaultEnvFile is read when no env file is named. It may be absent.
const DefaultEnvFile = ".env"

// envBindings maps config keys to the environment variables that set them.
var envBindings = map[string]string{
	"input_dir":  "INPUT_DATA_DIR",
	"output_dir": "OUTPUT_DATA_DIR",
	"connection": "SALESFEAT_CONNECTION",
	"log_level":  "SALESFEAT_LOG_LEVEL",
	"log_format": "SALESFEAT_LOG_FORMAT",
	"store":      "SALESFEAT_STORE",
}

// Config holds all configuration for pgedge-salesfeat.
type Config struct {
	// Store selects the table backend: csv or postgres.
	Store string `mapstructure:"store"`

	// Connection is the PostgreSQL connection string (postgres store).
	Connection string `mapstructure:"connection"`

	// InputDir holds product.csv, brand.csv, store.csv and sales.csv (csv store).
	InputDir string `mapstructure:"input_dir"`

	// OutputDir receives features.csv and mapes.csv (csv store).
	OutputDir string `mapstructure:"output_dir"`

	// LogLevel controls logging verbosity (debug, info, warn, error).
	LogLevel string `mapstructure:"log_level"`

	// LogFormat selects pretty console output or JSON lines.
	LogFormat string `mapstructure:"log_format"`

	// Run holds configuration for the run subcommand.
	Run RunConfig `mapstructure:"run"`

	// Generate holds configuration for the generate subcommand.
	Generate GenerateConfig `mapstructure:"generate"`
}

// RunConfig holds configuration for a feature pipeline run.
type RunConfig struct {
	// MinDate and MaxDate bound the sales kept, inclusive, as YYYY-MM-DD.
	MinDate string `mapstructure:"min_date"`
	MaxDate string `mapstructure:"max_date"`

	// Top is how many of the worst WMAPE groups are reported.
	Top int `mapstructure:"top"`

	// Window is the moving average and lag length in days.
	Window int `mapstructure:"window"`

	// Workers bounds parallel window computation.
	Workers int `mapstructure:"workers"`

	// XLSXReport also writes mapes.xlsx to the output directory.
	XLSXReport bool `mapstructure:"xlsx_report"`
}

// GenerateConfig holds configuration for synthetic input generation.
type GenerateConfig struct {
	Products  int    `mapstructure:"products"`
	Brands    int    `mapstructure:"brands"`
	Stores    int    `mapstructure:"stores"`
	Days      int    `mapstructure:"days"`
	StartDate string `mapstructure:"start_date"`

	// Seed makes generation reproducible; 0 picks a random seed.
	Seed uint64 `mapstructure:"seed"`

	// Profile is the demand profile shaping daily quantities.
	Profile string `mapstructure:"profile"`

	// UnmatchedRate is the share of products whose brand is not in brand.
	UnmatchedRate float64 `mapstructure:"unmatched_rate"`

	// DropExisting recreates the postgres schema before writing.
	DropExisting bool `mapstructure:"drop_existing"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	gen := datagen.DefaultConfig()
	return &Config{
		Store:     store.KindCSV,
		InputDir:  filepath.Join("data", "input"),
		OutputDir: filepath.Join("data", "output"),
		LogLevel:  "info",
		LogFormat: logging.FormatPretty,
		Run: RunConfig{
			MinDate: "2021-01-08",
			MaxDate: "2021-05-30",
			Top:     5,
			Window:  7,
			Workers: 4,
		},
		Generate: GenerateConfig{
			Products:      gen.Products,
			Brands:        gen.Brands,
			Stores:        gen.Stores,
			Days:          gen.Days,
			StartDate:     gen.StartDate.Format(schema.DateLayout),
			Profile:       gen.Profile,
			UnmatchedRate: gen.UnmatchedRate,
		},
	}
}

// Load reads configuration from config files and the environment.
// Config file locations (in order of precedence):
// 1. Path specified by configFile parameter
// 2. ./pgedge-salesfeat.yaml
// 3. ~/.config/pgedge-salesfeat/config.yaml
//
// envFile is loaded into the process environment first without overriding
// variables already set. An empty envFile means DefaultEnvFile, which may be
// missing.
func Load(configFile, envFile string) (*Config, error) {
	if err := loadEnvFile(envFile); err != nil {
		return nil, err
	}

	v := viper.New()

	// Set config name and type
	v.SetConfigName("pgedge-salesfeat")
	v.SetConfigType("yaml")

	// Add config paths
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "pgedge-salesfeat"))
	}

	// Use specific config file if provided
	if configFile != "" {
		v.SetConfigFile(configFile)
	}

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("error binding %s: %w", env, err)
		}
	}

	// Start with defaults
	cfg := DefaultConfig()

	// Unmarshal config file and environment values
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

func loadEnvFile(envFile string) error {
	explicit := envFile != ""
	if !explicit {
		envFile = DefaultEnvFile
	}
	err := godotenv.Load(envFile)
	if err == nil || (!explicit && errors.Is(err, fs.ErrNotExist)) {
		return nil
	}
	return fmt.Errorf("error reading env file %s: %w", envFile, err)
}

// Logging returns the logger configuration.
func (c *Config) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = c.LogLevel
	cfg.Format = c.LogFormat
	return cfg
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if !slices.Contains(store.Kinds(), c.Store) {
		return fmt.Errorf("store must be one of %v, got %q", store.Kinds(), c.Store)
	}
	if c.Store == store.KindPostgres && c.Connection == "" {
		return fmt.Errorf("connection string is required for the postgres store")
	}
	if c.Store == store.KindCSV && c.InputDir == "" {
		return fmt.Errorf("input directory is required for the csv store")
	}
	return c.Logging().Validate()
}

// ValidateRun checks configuration required for run command.
func (c *Config) ValidateRun() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Store == store.KindCSV && c.OutputDir == "" {
		return fmt.Errorf("output directory is required for the csv store")
	}
	if c.Run.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}
	_, err := c.PipelineOptions()
	return err
}

// ValidateGenerate checks configuration required for generate command.
func (c *Config) ValidateGenerate() error {
	if err := c.Validate(); err != nil {
		return err
	}
	_, err := c.GeneratorConfig()
	return err
}

// ValidateInit checks configuration required for init command.
func (c *Config) ValidateInit() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Store != store.KindPostgres {
		return fmt.Errorf("init requires the postgres store")
	}
	return nil
}

// PipelineOptions converts the run section into pipeline options.
func (c *Config) PipelineOptions() (pipeline.Options, error) {
	dates, err := pipeline.NewDateRange(c.Run.MinDate, c.Run.MaxDate)
	if err != nil {
		return pipeline.Options{}, err
	}
	opts := pipeline.Options{
		Dates:   dates,
		Top:     c.Run.Top,
		Window:  c.Run.Window,
		Workers: c.Run.Workers,
	}
	if err := opts.Validate(); err != nil {
		return pipeline.Options{}, err
	}
	return opts, nil
}

// GeneratorConfig converts the generate section into generator settings.
func (c *Config) GeneratorConfig() (datagen.Config, error) {
	start, err := schema.ParseDate(c.Generate.StartDate)
	if err != nil {
		return datagen.Config{}, fmt.Errorf("start date: %w", err)
	}
	if _, err := profiles.Get(c.Generate.Profile); err != nil {
		return datagen.Config{}, fmt.Errorf("%w (available: %v)", err, profiles.List())
	}
	gen := datagen.DefaultConfig()
	gen.Products = c.Generate.Products
	gen.Brands = c.Generate.Brands
	gen.Stores = c.Generate.Stores
	gen.Days = c.Generate.Days
	gen.StartDate = start
	gen.Seed = c.Generate.Seed
	gen.Profile = c.Generate.Profile
	gen.UnmatchedRate = c.Generate.UnmatchedRate
	if err := gen.Validate(); err != nil {
		return datagen.Config{}, err
	}
	return gen, nil
}

// StoreOptions returns the options for opening the configured store.
func (c *Config) StoreOptions() store.Options {
	return store.Options{
		Kind:       c.Store,
		Connection: c.Connection,
		InputDir:   c.InputDir,
		OutputDir:  c.OutputDir,
		MaxConns:   int32(max(c.Run.Workers, 1)),
	}
}
