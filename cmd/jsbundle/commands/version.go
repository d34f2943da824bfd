package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/jsbundle/pkg/version"
)

// NewVersionCommand creates the version subcommand.
func NewVersionCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.Get()

			if asJSON {
				err := json.NewEncoder(cmd.OutOrStdout()).Encode(info)
				if err != nil {
					return fmt.Errorf("encode version: %w", err)
				}

				return nil
			}

			_, err := fmt.Fprintln(cmd.OutOrStdout(), info.String())
			if err != nil {
				return fmt.Errorf("write version: %w", err)
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")

	return cmd
}
