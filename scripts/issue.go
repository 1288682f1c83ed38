package scripts

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"tokenfarm/chain"
	"tokenfarm/contracts"
	"tokenfarm/shared"
)

// IssueTokens rewards every staker of the latest TokenFarm
func IssueTokens(s *Session) (*chain.Receipt, error) {
	account, err := GetAccount(s)
	if err != nil {
		return nil, err
	}
	farm, err := contracts.LatestTokenFarm(s.Chain)
	if err != nil {
		return nil, err
	}
	receipt, err := farm.IssueTokens(account.Opts())
	if err != nil {
		return nil, fmt.Errorf("failed to issue tokens: %w", err)
	}
	s.Logger.Info("Issued reward tokens",
		zap.String("token_farm", farm.Address().Hex()),
		zap.Int("transfers", len(receipt.Events("Transfer"))),
		zap.Uint64("block", receipt.BlockNumber),
	)
	return receipt, nil
}

// StakeTokens approves the latest TokenFarm and stakes amount of token from account
func StakeTokens(s *Session, account *chain.Account, token common.Address, amount *big.Int) (*chain.Receipt, error) {
	farm, err := contracts.LatestTokenFarm(s.Chain)
	if err != nil {
		return nil, err
	}
	erc, err := contracts.ERC20At(s.Chain, token)
	if err != nil {
		return nil, err
	}
	if _, err := erc.Approve(account.Opts(), farm.Address(), amount); err != nil {
		return nil, fmt.Errorf("failed to approve: %w", err)
	}
	receipt, err := farm.StakeTokens(account.Opts(), amount, token)
	if err != nil {
		return nil, fmt.Errorf("failed to stake: %w", err)
	}
	balance, err := farm.StakingBalance(token, account.Address)
	if err != nil {
		return nil, err
	}
	s.Logger.Info("Staked tokens",
		zap.String("account", account.Address.Hex()),
		zap.String("token", token.Hex()),
		zap.String("staking_balance", shared.FormatEther(balance)),
	)
	return receipt, nil
}

// UnstakeTokens withdraws account's whole balance of token from the latest TokenFarm
func UnstakeTokens(s *Session, account *chain.Account, token common.Address) (*chain.Receipt, error) {
	farm, err := contracts.LatestTokenFarm(s.Chain)
	if err != nil {
		return nil, err
	}
	receipt, err := farm.UnStakeTokens(account.Opts(), token)
	if err != nil {
		return nil, fmt.Errorf("failed to unstake: %w", err)
	}
	s.Logger.Info("Unstaked tokens",
		zap.String("account", account.Address.Hex()),
		zap.String("token", token.Hex()),
	)
	return receipt, nil
}
