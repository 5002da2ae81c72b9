package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/s0up4200/lolzmarket/config"
	"github.com/s0up4200/lolzmarket/lolz"
)

const (
	// skipInit marks commands that run without configuration or API access
	skipInit = "skip-init"
	// configOnly marks commands that read the configuration but never call the API
	configOnly = "config-only"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  = zerolog.Nop()
	client  *lolz.Client

	// Command flags
	dryRun       bool
	noConfirm    bool
	outputFormat string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "lolzmarket",
	Short: "Command line client for the lolz.guru market",
	Long: `lolzmarket talks to the lolz.guru (zelenka.guru) market API. It lists and
filters accounts, reserves and buys them, manages your own listings, shows
payment history, transfers balance and can watch categories for new offers.`,
	PersistentPreRunE: initializeApp,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "d", false, "show what would happen without buying, transferring or deleting")
	rootCmd.PersistentFlags().BoolVarP(&noConfirm, "yes", "y", false, "skip confirmation prompts")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "", "output format: table, json or yaml")
}

// initializeApp loads configuration and creates the API client
func initializeApp(cmd *cobra.Command, args []string) error {
	if cmd.Annotations[skipInit] == "true" {
		return nil
	}

	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger = setupLogger(cfg.Logging)

	if cmd.Flags().Changed("dry-run") {
		cfg.Safety.DryRun = dryRun
	}
	if outputFormat != "" {
		switch outputFormat {
		case "table", "json", "yaml":
			cfg.Output.Format = outputFormat
		default:
			return fmt.Errorf("invalid output format: %s", outputFormat)
		}
	}

	if cmd.Annotations[configOnly] == "true" {
		return nil
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.API.Timeout+5*time.Second)
	defer cancel()

	client, err = lolz.NewClient(ctx, cfg.API.Token, logger, clientOptions(cfg.API)...)
	if err != nil {
		return fmt.Errorf("failed to create market client: %w", err)
	}

	return nil
}

func clientOptions(api config.APIConfig) []lolz.Option {
	opts := []lolz.Option{
		lolz.WithBaseURL(api.BaseURL),
		lolz.WithTransferURL(api.TransferURL),
		lolz.WithRetry(api.RetryMax, 0, 0),
		lolz.WithRateLimit(api.RateLimit, api.RateBurst),
	}
	if api.UserAgent != "" {
		opts = append(opts, lolz.WithUserAgent(api.UserAgent))
	}
	if api.Timeout > 0 {
		opts = append(opts, lolz.WithTimeout(api.Timeout))
	}
	if api.Token == "" {
		opts = append(opts, lolz.WithClientCredentials(api.ClientID, api.ClientSecret, lolz.ParseScopes(api.Scopes)...))
	}
	return opts
}

// setupLogger configures the zerolog logger
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level := zerolog.InfoLevel
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	if cfg.Format == "json" {
		return zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	fd := os.Stderr.Fd()
	colored := cfg.Color && (isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd))

	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    !colored,
	}

	return zerolog.New(output).With().Timestamp().Logger()
}
