package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"tokenfarm/chain"
	"tokenfarm/scripts"
	"tokenfarm/shared"
)

// accountFlags selects the signing account of a command
type accountFlags struct {
	index int
	id    string
}

func (f *accountFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.index, "account", -1, "dev account index")
	cmd.Flags().StringVar(&f.id, "id", "", "keystore account id")
}

func (f *accountFlags) resolve() (*chain.Account, error) {
	var opts []scripts.AccountOption
	if f.index >= 0 {
		opts = append(opts, scripts.WithIndex(f.index))
	}
	if f.id != "" {
		opts = append(opts, scripts.WithID(f.id))
	}
	return scripts.GetAccount(session, opts...)
}

func stakeCmd() *cobra.Command {
	var (
		token   string
		amount  string
		account accountFlags
	)

	cmd := &cobra.Command{
		Use:   "stake",
		Short: "Approve the farm and stake a token",
		Example: `  farm stake --token dapp --amount 100
  farm stake --token weth_token --amount 0.5 --account 1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			wei, err := shared.ToWei(amount)
			if err != nil {
				return err
			}
			addr, err := scripts.ResolveToken(session, token)
			if err != nil {
				return err
			}
			acct, err := account.resolve()
			if err != nil {
				return err
			}
			receipt, err := scripts.StakeTokens(session, acct, addr, wei)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Staked %s of %s from %s in block %d\n",
				shared.FormatEther(wei), addr.Hex(), acct.Address.Hex(), receipt.BlockNumber)
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "dapp", "token address, \"dapp\" or config contract name")
	cmd.Flags().StringVar(&amount, "amount", "", "amount in ether units")
	_ = cmd.MarkFlagRequired("amount")
	account.register(cmd)
	return cmd
}

func unstakeCmd() *cobra.Command {
	var (
		token   string
		account accountFlags
	)

	cmd := &cobra.Command{
		Use:   "unstake",
		Short: "Withdraw the full staked balance of a token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := scripts.ResolveToken(session, token)
			if err != nil {
				return err
			}
			acct, err := account.resolve()
			if err != nil {
				return err
			}
			receipt, err := scripts.UnstakeTokens(session, acct, addr)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Unstaked %s for %s in block %d\n",
				addr.Hex(), acct.Address.Hex(), receipt.BlockNumber)
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "dapp", "token address, \"dapp\" or config contract name")
	account.register(cmd)
	return cmd
}
