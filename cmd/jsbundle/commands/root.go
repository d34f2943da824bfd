package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCommand assembles the jsbundle command tree.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "jsbundle",
		Short: "jsbundle - bundle JavaScript ES modules into one script",
		Long: `jsbundle combines the ES modules reachable from an entry into a single script.
Top-level names are renamed so modules cannot collide, and every import and
export declaration is removed.

Settings come from .jsbundle.yaml (working directory or $HOME) and
JSBUNDLE_* environment variables, e.g. JSBUNDLE_BUNDLE_ENTRY=src/main.js.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String(ConfigFlag, "", "config file (default .jsbundle.yaml)")

	rootCmd.AddCommand(
		NewBundleCommand(),
		NewGraphCommand(),
		NewServeCommand(),
		NewMCPCommand(),
		NewLSPCommand(),
		NewVersionCommand(),
	)

	return rootCmd
}
