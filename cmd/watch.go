package cmd

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/modelkeep/modelkeep/internal/catalog"
	"github.com/modelkeep/modelkeep/internal/scan"
	"github.com/modelkeep/modelkeep/internal/watch"
	"github.com/modelkeep/modelkeep/pkg/logger"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Reconcile automatically when storage roots change",
	Long: `Watch runs an initial reconciliation, then observes the storage roots
and re-reconciles after each debounced burst of file events. Because
reconciliation is idempotent, overlapping triggers collapse into
convergent passes. Stop with Ctrl-C.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().Duration("debounce", 0, "Event debounce interval (default from config)")
}

func runWatch(cmd *cobra.Command, _ []string) error {
	debounce, _ := cmd.Flags().GetDuration("debounce")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if debounce <= 0 {
		debounce = cfg.Watch.Debounce
	}

	cat := catalog.New(cfg)
	if err := cat.LoadSnapshot(); err != nil {
		logger.Warn("existing registry unreadable, rebuilding from scan", logger.Err(err))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reconcile := func() {
		start := time.Now()
		report, err := cat.Reconcile(ctx)
		if err != nil {
			logger.Error("reconciliation failed", logger.Err(err))
			return
		}
		logger.Info("reconciliation complete",
			logger.Int("mutations", report.Mutations),
			logger.Int("warnings", report.Warnings),
			logger.String("took", time.Since(start).Round(time.Millisecond).String()))
	}

	reconcile()

	return watch.Watch(ctx, scan.RootsFromConfig(cfg), debounce, func() {
		if ctx.Err() != nil {
			return
		}
		reconcile()
	})
}
