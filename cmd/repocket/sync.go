package main

import (
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"repocket/pkg/article"
	"repocket/pkg/daemon"
	"repocket/pkg/device/store"
	"repocket/pkg/pocket"
	"repocket/pkg/repocket/config"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one sync cycle",
	Long: `Pull changed items from Pocket, write new articles into the reading
folder on the device, and archive items that were moved into the archive
folder since the last run.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		printError("%v", err)
		return err
	}
	if err := initLogging(cmd, cfg); err != nil {
		printError("initializing logging: %v", err)
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d, err := buildDaemon(cfg)
	if err != nil {
		printError("%v", err)
		return err
	}

	if err := d.RunCycle(ctx); err != nil {
		printError("sync failed: %v", err)
		return err
	}
	fmt.Println("Sync complete.")
	return nil
}

// buildDaemon assembles the store, remote client and synthesis pipeline from
// the configuration.
func buildDaemon(cfg *config.Config) (*daemon.Daemon, error) {
	creds, err := pocket.LoadCredentials(cfg.CredentialsPath)
	if err != nil {
		return nil, fmt.Errorf("loading credentials (run `repocket auth` first): %w", err)
	}

	if err := config.EnsureStateDir(); err != nil {
		return nil, err
	}

	st, err := store.Load(store.Options{
		Root:              cfg.Device.Root,
		StatePath:         cfg.StatePath,
		FolderName:        cfg.Device.FolderName,
		ArchiveFolderName: cfg.Device.ArchiveFolderName,
	})
	if err != nil {
		return nil, fmt.Errorf("loading device store: %w", err)
	}

	client := pocket.NewClient(creds,
		pocket.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))

	pipeline := article.New(article.Options{
		Format:  cfg.Format,
		Timeout: cfg.Timeout,
	})

	return daemon.New(st, client, pipeline, daemon.Options{
		Workers:    cfg.Workers,
		QueryCount: cfg.Query.Count,
		Tag:        cfg.Query.Tag,
	}), nil
}
