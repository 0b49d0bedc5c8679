package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/modelkeep/modelkeep/internal/catalog"
	"github.com/modelkeep/modelkeep/internal/resolve"
	"github.com/modelkeep/modelkeep/pkg/logger"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Scan storage roots, repair asset state, and rebuild the registry",
	Long: `Reconcile runs one full pass over the configured storage roots:
misnamed assets are renamed to their canonical form, completed
downloads replace their placeholders, stale placeholders are removed,
and the registry is rebuilt from the files that verify as real assets.

The pass is idempotent; running it twice over an unchanged tree makes
no further changes. With --dry-run the full report is produced without
touching the filesystem.`,
	RunE: runReconcile,
}

func init() {
	reconcileCmd.Flags().Bool("dry-run", false, "Report without mutating the filesystem")
	reconcileCmd.Flags().Int("workers", 0, "Scan workers (0 = one per storage root)")
	reconcileCmd.Flags().String("output", "text", "Output format: text|json|yaml")
}

func runReconcile(cmd *cobra.Command, _ []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	workers, _ := cmd.Flags().GetInt("workers")
	output, _ := cmd.Flags().GetString("output")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if workers > 0 {
		cfg.Reconcile.Workers = workers
	}

	cat := catalog.New(cfg, catalog.WithDryRun(dryRun))
	if err := cat.LoadSnapshot(); err != nil {
		// A corrupt registry file must not block repairing the tree;
		// reconcile rewrites it from disk truth anyway.
		logger.Warn("existing registry unreadable, rebuilding from scan", logger.Err(err))
	}

	report, err := cat.Reconcile(cmd.Context())
	if err != nil {
		return err
	}

	if output == "text" {
		printReport(cmd, report)
		return nil
	}
	return renderAs(cmd.OutOrStdout(), output, report)
}

func printReport(cmd *cobra.Command, report *resolve.Report) {
	mode := ""
	if report.DryRun {
		mode = " (dry-run)"
	}
	cmd.Printf("Reconciliation%s: %d candidates, %d valid, %d mutations, %d warnings in %v\n",
		mode, report.Scanned, report.ValidAssets, report.Mutations, report.Warnings, report.Duration.Round(time.Millisecond))

	for _, action := range report.Actions {
		line := fmt.Sprintf("  [%s] %s (%s): %s", strings.ToUpper(string(action.Kind)), action.Name, action.Category, action.Reason)
		if action.NewPath != "" {
			line += fmt.Sprintf(" -> %s", action.NewPath)
		}
		if action.Error != "" {
			line += fmt.Sprintf(" (error: %s)", action.Error)
		}
		cmd.Println(line)
	}
}
