package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"tokenfarm/scripts"
)

func deployCmd() *cobra.Command {
	var frontEnd string

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy DappToken and TokenFarm",
		Long: `Deploy DappToken and TokenFarm from the active account, fund the farm with
all but 100 DAPP and allow the dapp, fau and weth tokens. Mocks for the
tokens and price feeds are deployed on first use.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			farm, dapp, err := scripts.DeployTokenFarmAndDappToken(session, frontEnd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "DappToken: %s\n", dapp.Address().Hex())
			fmt.Fprintf(out, "TokenFarm: %s\n", farm.Address().Hex())
			return nil
		},
	}

	cmd.Flags().StringVar(&frontEnd, "front-end", "", "front end directory to receive chain-info and config")
	return cmd
}
