package cmd

import (
	"github.com/spf13/cobra"

	"github.com/modelkeep/modelkeep/internal/catalog"
	"github.com/modelkeep/modelkeep/internal/fallback"
	"github.com/modelkeep/modelkeep/internal/scan"
	"github.com/modelkeep/modelkeep/pkg/safeio"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup NAME",
	Short: "Resolve a logical model name to a usable file path",
	Long: `Lookup resolves a model name through the registry. Without --category
the categories are searched in precedence order (active, custom,
prebuilt, archived).

With --fallback the command never fails: when the requested model is
unavailable or fails its integrity re-check, the alternate
implementation is substituted and the result is marked degraded.`,
	Args: cobra.ExactArgs(1),
	RunE: runLookup,
}

func init() {
	lookupCmd.Flags().String("category", "", "Restrict lookup to one category")
	lookupCmd.Flags().Bool("fallback", false, "Substitute the alternate implementation on failure")
	lookupCmd.Flags().String("alternate-name", "passthrough", "Name of the alternate implementation")
	lookupCmd.Flags().String("alternate-path", "", "Path of the alternate implementation")
	lookupCmd.Flags().String("output", "text", "Output format: text|json|yaml")
}

func runLookup(cmd *cobra.Command, args []string) error {
	name := args[0]
	categoryStr, _ := cmd.Flags().GetString("category")
	useFallback, _ := cmd.Flags().GetBool("fallback")
	altName, _ := cmd.Flags().GetString("alternate-name")
	altPath, _ := cmd.Flags().GetString("alternate-path")
	output, _ := cmd.Flags().GetString("output")

	if altPath != "" {
		var err error
		if altPath, err = safeio.CleanUserPath(altPath); err != nil {
			return err
		}
	}

	var category scan.Category
	if categoryStr != "" {
		var err error
		if category, err = scan.ParseCategory(categoryStr); err != nil {
			return err
		}
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	cat := catalog.New(cfg, catalog.WithAlternate(fallback.NewStatic(altName, altPath)))
	if err := cat.LoadSnapshot(); err != nil {
		return err
	}

	if !useFallback {
		path, err := cat.Lookup(name, category)
		if err != nil {
			return err
		}
		if output == "text" {
			cmd.Println(path)
			return nil
		}
		return renderAs(cmd.OutOrStdout(), output, map[string]string{"name": name, "path": path})
	}

	asset := cat.Resolve(cmd.Context(), name, category)
	if output == "text" {
		if asset.Degraded {
			cmd.Printf("%s (degraded: %s, %s)\n", asset.Path, asset.Kind, asset.Reason)
		} else {
			cmd.Println(asset.Path)
		}
		return nil
	}
	return renderAs(cmd.OutOrStdout(), output, asset)
}
