package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"tokenfarm"
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print build information",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipSession: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), tokenfarm.BuildInfo())
			return nil
		},
	}
}
