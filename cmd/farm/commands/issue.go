package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"tokenfarm/scripts"
)

func issueTokensCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "issue-tokens",
		Short: "Reward every staker with DAPP equal to their staked USD value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			receipt, err := scripts.IssueTokens(session)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Issued %d rewards in block %d\n",
				len(receipt.Events("Transfer")), receipt.BlockNumber)
			return nil
		},
	}
}
