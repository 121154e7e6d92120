package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"repocket/pkg/repocket/config"
	"repocket/pkg/repocket/logging"
)

var rootCmd = &cobra.Command{
	Use:   "repocket",
	Short: "Sync your Pocket reading list onto a reMarkable",
	Long: `Repocket pulls unread articles from your Pocket list, turns each one
into an on-device document, and pushes read state back: articles you move
into the archive folder on the device get archived in Pocket.

Examples:
  repocket                   # Run one sync cycle
  repocket watch             # Keep running, sync when documents move
  repocket status            # Show tracked items and the last sync
  repocket auth <consumer>   # Obtain and store an access token`,
	Args: cobra.NoArgs,
	RunE: runSync,

	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringP("format", "f", "", "document format: epub, pdf or html")
	rootCmd.PersistentFlags().IntP("workers", "w", 0, "concurrent article fetches")
	rootCmd.PersistentFlags().StringP("tag", "t", "", "only sync items carrying this tag")
	rootCmd.PersistentFlags().String("device-root", "", "device document directory")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug output on the console")
}

// loadConfig loads the configuration and applies command-line overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("format") {
		cfg.Format, _ = flags.GetString("format")
	}
	if flags.Changed("workers") {
		cfg.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("tag") {
		cfg.Query.Tag, _ = flags.GetString("tag")
	}
	if flags.Changed("device-root") {
		cfg.Device.Root, _ = flags.GetString("device-root")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// initLogging wires the component loggers from the configuration. With
// --verbose everything also goes to the console at debug level.
func initLogging(cmd *cobra.Command, cfg *config.Config) error {
	verbose, _ := cmd.Flags().GetBool("verbose")

	logCfg := logging.Config{
		Level:      cfg.Logging.Level,
		Path:       cfg.Logging.Path,
		Console:    cfg.Logging.Console || verbose,
		Components: cfg.Logging.Components,
	}
	if verbose {
		logCfg.Level = "debug"
	}
	if logCfg.Path == "" {
		logCfg.Path = logging.DefaultLogPath()
	}
	return logging.Init(logCfg)
}

func printError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}

// Execute runs the root command.
func Execute() error {
	defer func() { _ = logging.Close() }()
	return rootCmd.Execute()
}
