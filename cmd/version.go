package cmd

import (
	"runtime"

	"github.com/spf13/cobra"

	"github.com/modelkeep/modelkeep/pkg/buildinfo"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE:  runVersion,
}

func init() {
	versionCmd.Flags().Bool("extended", false, "Include build details")
}

func runVersion(cmd *cobra.Command, _ []string) error {
	extended, _ := cmd.Flags().GetBool("extended")

	cmd.Printf("modelkeep %s\n", buildinfo.BinaryVersion)
	if extended {
		if mv := buildinfo.ModuleVersion(); mv != "" {
			cmd.Printf("module version: %s\n", mv)
		}
		cmd.Printf("go: %s\n", runtime.Version())
		cmd.Printf("platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	}
	return nil
}
