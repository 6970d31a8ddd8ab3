package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pfrederiksen/district-ratings/internal/aggregate"
	"github.com/pfrederiksen/district-ratings/internal/config"
	"github.com/pfrederiksen/district-ratings/internal/fetcher"
	"github.com/pfrederiksen/district-ratings/internal/logger"
	"github.com/pfrederiksen/district-ratings/internal/scraper"
	"github.com/pfrederiksen/district-ratings/internal/storage"
	"github.com/spf13/cobra"
)

const (
	ExitSuccess = 0
	ExitError   = 1
)

var errNoDistricts = errors.New("no districts given: pass names as arguments or use --input")

var (
	flagConfig    string
	flagVerbose   bool
	flagLogFormat string

	flagInput           string
	flagOutput          string
	flagCheckpointEvery int
	flagState           string
	flagStateName       string
	flagSummary         bool
	flagFormat          string
	flagSort            string

	flagSourceOut string
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "district-ratings",
		Short: "Collect school district ratings from GreatSchools, Niche and SchoolDigger",
		Long: `A CLI tool that looks up school districts on GreatSchools, Niche and
SchoolDigger and writes one row per district with each site's rating and page
URL, plus enrollment and student/teacher ratio.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&flagConfig, "config", "", "YAML configuration file")
	cmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable verbose logging")
	cmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "Log format: text or json (default from config)")

	cmd.AddCommand(newCollectCmd(), newLookupCmd(), newSourceCmd())

	return cmd
}

func newCollectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collect [district...]",
		Short: "Look up a list of districts and write the results table",
		Example: `  district-ratings collect --input districts.csv
  district-ratings collect "Pittsburgh School District" "Erie City School District" --summary`,
		RunE: runCollect,
	}

	cmd.Flags().StringVar(&flagInput, "input", "", "CSV or TSV file with a district_name column")
	cmd.Flags().StringVar(&flagOutput, "output", "", "Output file, .csv or .json (default from config)")
	cmd.Flags().IntVar(&flagCheckpointEvery, "checkpoint-every", 0, "Write a checkpoint every N districts (default from config)")
	addStateFlags(cmd)
	cmd.Flags().BoolVar(&flagSummary, "summary", false, "Print a summary table after the run")
	cmd.Flags().StringVar(&flagFormat, "format", "text", "Summary format: text or json")
	cmd.Flags().StringVar(&flagSort, "sort", "input", "Summary order: input, name, greatschools or niche")

	return cmd
}

func newLookupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lookup NAME",
		Short: "Look up a single district and print its record",
		Args:  cobra.ExactArgs(1),
		RunE:  runLookup,
	}

	addStateFlags(cmd)
	cmd.Flags().StringVar(&flagFormat, "format", "text", "Output format: text or json")

	return cmd
}

func newSourceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "source URL",
		Short: "Save the raw HTML of a page for inspection",
		Args:  cobra.ExactArgs(1),
		RunE:  runSource,
	}

	cmd.Flags().StringVar(&flagSourceOut, "out", "", "File to write the page to (required)")
	cmd.MarkFlagRequired("out")

	return cmd
}

func addStateFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagState, "state", "", "Two-letter state code (default from config)")
	cmd.Flags().StringVar(&flagStateName, "state-name", "", "State name as used in site URLs, e.g. pennsylvania")
}

// loadConfig loads the configuration file and applies flags that were set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("output") {
		cfg.Output.Path = flagOutput
	}
	if flags.Changed("checkpoint-every") {
		cfg.Output.CheckpointEvery = flagCheckpointEvery
	}
	if flags.Changed("state") {
		cfg.State.Code = strings.ToUpper(strings.TrimSpace(flagState))
	}
	if flags.Changed("state-name") {
		cfg.State.Name = strings.ToLower(strings.TrimSpace(flagStateName))
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format = strings.ToLower(flagLogFormat)
	}
	if flagVerbose {
		cfg.Logging.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	level, err := logger.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	logger.SetDefault(logger.New(level, cmd.ErrOrStderr(), logger.Format(cfg.Logging.Format)))

	return cfg, nil
}

func stateOf(cfg *config.Config) scraper.State {
	return scraper.State{Code: cfg.State.Code, Name: cfg.State.Name}
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// runCollect is the main command logic
func runCollect(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(flagFormat)
	if err != nil {
		return err
	}
	order, err := parseSortOrder(flagSort)
	if err != nil {
		return err
	}

	if flagInput == "" && len(args) == 0 {
		return errNoDistricts
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	var names []string
	if flagInput != "" {
		fromFile, err := storage.ReadDistrictNames(flagInput)
		if err != nil {
			logger.Error("Could not read district list", logger.Fields{"path": flagInput}, err)
		}
		names = append(names, fromFile...)
	}
	names = append(names, args...)

	sources, err := scraper.FromConfig(cfg)
	if err != nil {
		return fmt.Errorf("building sources: %w", err)
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	agg := aggregate.New(sources, aggregate.Options{
		State:           stateOf(cfg),
		OutputPath:      cfg.Output.Path,
		CheckpointEvery: cfg.Output.CheckpointEvery,
	})

	records, err := agg.Run(ctx, names)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return fmt.Errorf("interrupted after %d districts, partial results in %s", len(records), agg.CheckpointPath())
		}
		return err
	}

	if flagSummary {
		sortRecords(records, order)
		if err := WriteSummary(cmd.OutOrStdout(), NewSummary(records, cfg.Output.Path, time.Now()), format); err != nil {
			return fmt.Errorf("writing summary: %w", err)
		}
	}

	if flagVerbose {
		writeMetrics(cmd.ErrOrStderr(), logger.GetMetricsSnapshot())
	}

	return nil
}

func runLookup(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(flagFormat)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	sources, err := scraper.FromConfig(cfg)
	if err != nil {
		return fmt.Errorf("building sources: %w", err)
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	rec, err := aggregate.New(sources, aggregate.Options{State: stateOf(cfg)}).Lookup(ctx, args[0])
	if err != nil {
		return err
	}

	return WriteRecord(cmd.OutOrStdout(), rec, format)
}

func runSource(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	f := fetcher.New(fetcher.Options{
		Timeout:    cfg.Fetch.Timeout(),
		UserAgent:  cfg.Fetch.UserAgent,
		BrowserTLS: cfg.Fetch.BrowserTLS,
	})

	ctx, stop := signalContext(cmd)
	defer stop()

	if err := f.SaveSource(ctx, args[0], flagSourceOut); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Saved %s to %s\n", args[0], flagSourceOut)
	return nil
}

// Execute runs the CLI
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitError)
	}
}
