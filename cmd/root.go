package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/modelkeep/modelkeep/internal/registry"
	"github.com/modelkeep/modelkeep/pkg/buildinfo"
	"github.com/modelkeep/modelkeep/pkg/config"
	"github.com/modelkeep/modelkeep/pkg/exitcode"
	"github.com/modelkeep/modelkeep/pkg/logger"
)

// newRootCommand creates a fresh root command instance.
// This factory pattern allows tests to create isolated command trees without shared state.
func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "modelkeep",
		Short: "Model asset registry and integrity reconciliation",
		Long: `Modelkeep keeps a catalog of large model assets honest: it scans the
configured storage roots, repairs misnamed and half-downloaded files,
removes stale placeholders, and maintains the registry consumers
resolve model names through.

Examples:
   modelkeep reconcile            # Scan, repair, and rebuild the registry
   modelkeep reconcile --dry-run  # Report what a pass would do
   modelkeep lookup my_model      # Resolve a model name to a file path
   modelkeep list --category custom
   modelkeep watch                # Reconcile automatically on changes`,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			initializeLogger(cmd)
		},
	}

	// Global flags
	cmd.PersistentFlags().String("log-level", "info", "Set log level (trace|debug|info|warn|error)")
	cmd.PersistentFlags().Bool("json", false, "Output logs in JSON format")
	cmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
	cmd.PersistentFlags().String("config", "", "Path to an explicit config file")

	cmd.Version = buildinfo.BinaryVersion
	cmd.SetVersionTemplate("modelkeep {{.Version}}\n")

	return cmd
}

// registerSubcommands adds all subcommands to the root command.
// Called from init() for production; tests can call it on isolated trees.
func registerSubcommands(cmd *cobra.Command) {
	cmd.AddCommand(versionCmd)
	cmd.AddCommand(reconcileCmd)
	cmd.AddCommand(lookupCmd)
	cmd.AddCommand(listCmd)
	cmd.AddCommand(watchCmd)
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = newRootCommand()

// Execute runs the command tree. Errors map to domain exit codes so
// operator tooling can tell a persistence failure from a bad flag.
func Execute() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}
	logger.Error("Command execution failed", logger.Err(err))
	switch {
	case errors.Is(err, registry.ErrPersistence):
		os.Exit(exitcode.PersistenceError)
	case errors.Is(err, registry.ErrNotFound):
		os.Exit(exitcode.IntegrityError)
	default:
		os.Exit(exitcode.GeneralError)
	}
}

func init() {
	registerSubcommands(rootCmd)
}

// loadConfig resolves configuration, honoring the global --config flag.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return config.LoadConfigFile(path)
	}
	return config.LoadConfig()
}

// initializeLogger sets up the logger based on command flags
func initializeLogger(cmd *cobra.Command) {
	logLevelStr, _ := cmd.Flags().GetString("log-level")
	jsonLogs, _ := cmd.Flags().GetBool("json")
	noColor, _ := cmd.Flags().GetBool("no-color")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	cfg := logger.Config{
		Level:     logger.ParseLevel(logLevelStr),
		UseColor:  !noColor,
		JSON:      jsonLogs,
		Component: "modelkeep",
		DryRun:    dryRun,
	}

	if err := logger.Initialize(cfg); err != nil {
		if _, writeErr := os.Stderr.WriteString("Failed to initialize logger: " + err.Error() + "\n"); writeErr != nil {
			_ = writeErr
		}
		os.Exit(exitcode.ConfigError)
	}
}
