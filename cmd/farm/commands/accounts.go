package commands

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"tokenfarm/chain"
	"tokenfarm/contracts"
	"tokenfarm/shared"
)

func accountsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "accounts",
		Short: "List dev accounts and their DAPP balances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dapp, err := contracts.LatestERC20(session.Chain, contracts.NameDappToken)
			if err != nil && !errors.Is(err, chain.ErrNoDeployment) {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "INDEX\tADDRESS\tDAPP")
			for i, acct := range session.Chain.Accounts() {
				balance := "-"
				if dapp != nil {
					b, err := dapp.BalanceOf(acct.Address)
					if err != nil {
						return err
					}
					balance = shared.FormatEther(b)
				}
				fmt.Fprintf(w, "%d\t%s\t%s\n", i, acct.Address.Hex(), balance)
			}
			return w.Flush()
		},
	}
}
