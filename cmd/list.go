package cmd

import (
	"github.com/spf13/cobra"

	"github.com/modelkeep/modelkeep/internal/catalog"
	"github.com/modelkeep/modelkeep/internal/scan"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List cataloged models",
	RunE:  runList,
}

func init() {
	listCmd.Flags().String("category", "", "Restrict listing to one category")
	listCmd.Flags().String("output", "text", "Output format: text|json|yaml")
}

// listing is the structured list output shape.
type listing struct {
	Version     string              `json:"version" yaml:"version"`
	LastUpdated string              `json:"last_updated" yaml:"last_updated"`
	Categories  map[string][]string `json:"categories" yaml:"categories"`
}

func runList(cmd *cobra.Command, _ []string) error {
	categoryStr, _ := cmd.Flags().GetString("category")
	output, _ := cmd.Flags().GetString("output")

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

	cat := catalog.New(cfg)
	if err := cat.LoadSnapshot(); err != nil {
		return err
	}
	reg := cat.Snapshot()

	cats := scan.LookupPrecedence
	if category != "" {
		cats = []scan.Category{category}
	}

	out := listing{
		Version:     reg.Version,
		LastUpdated: reg.LastUpdated,
		Categories:  make(map[string][]string),
	}
	for _, c := range cats {
		out.Categories[string(c)] = reg.List(c)
	}

	if output != "text" {
		return renderAs(cmd.OutOrStdout(), output, out)
	}

	for _, c := range cats {
		names := out.Categories[string(c)]
		cmd.Printf("%s (%d):\n", c, len(names))
		for _, name := range names {
			cmd.Printf("  %s\n", name)
		}
	}
	return nil
}
