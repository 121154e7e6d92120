package main

import (
	"context"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"repocket/pkg/daemon"
	"repocket/pkg/repocket/logging"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run continuously, syncing when documents move",
	Long: `Run an initial sync cycle, then watch the device document directory.
Whenever descriptor files change and settle (for example after moving an
article into the archive folder), another cycle runs. An optional interval
adds periodic cycles regardless of filesystem activity.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().Duration("interval", 0, "also sync every interval (0 disables)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
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

	log := logging.Get("watch")

	if err := d.RunCycle(ctx); err != nil {
		// A failed initial cycle is not fatal; the watch loop retries on the
		// next trigger.
		log.Error("initial sync failed", "error", err)
		printError("initial sync failed: %v", err)
	}

	w, err := daemon.NewWatcher(cfg.Device.Root)
	if err != nil {
		printError("starting watcher: %v", err)
		return err
	}
	defer func() { _ = w.Close() }()

	// Cycles must not overlap: the watch callback and the ticker share one
	// guarded entry point.
	var mu sync.Mutex
	cycle := func() {
		mu.Lock()
		defer mu.Unlock()
		if err := d.RunCycle(ctx); err != nil {
			log.Error("sync cycle failed", "error", err)
		}
	}

	interval, _ := cmd.Flags().GetDuration("interval")
	if interval > 0 {
		go runTicker(ctx, cycle, interval)
	}

	fmt.Printf("Watching %s (Ctrl-C to stop)\n", cfg.Device.Root)
	w.Run(ctx, cycle)
	return nil
}

func runTicker(ctx context.Context, cycle func(), interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cycle()
		}
	}
}
