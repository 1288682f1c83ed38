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

// AllowedToken pairs a stakeable token with its price feed
type AllowedToken struct {
	Token     common.Address
	PriceFeed common.Address
}

// DeployTokenFarmAndDappToken deploys the dapp token and the farm, funds the
// farm with everything but KeptBalance and allows the dapp, fau and weth
// tokens. A non-empty frontEndDir also exports the deployment for the UI.
func DeployTokenFarmAndDappToken(s *Session, frontEndDir string) (*contracts.TokenFarm, *contracts.ERC20, error) {
	account, err := GetAccount(s)
	if err != nil {
		return nil, nil, err
	}

	dapp, _, err := contracts.DeployDappToken(s.Chain, account.Opts())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to deploy DappToken: %w", err)
	}

	farm, _, err := contracts.DeployTokenFarm(s.Chain, account.Opts(), dapp.Address())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to deploy TokenFarm: %w", err)
	}
	if nc, ok := s.Config.Network(s.Network); ok && nc.Verify {
		s.Logger.Warn("Source verification is not available on the dev chain", zap.String("contract", contracts.NameTokenFarm))
	}

	supply, err := dapp.TotalSupply()
	if err != nil {
		return nil, nil, err
	}
	if _, err := dapp.Transfer(account.Opts(), farm.Address(), new(big.Int).Sub(supply, KeptBalance)); err != nil {
		return nil, nil, fmt.Errorf("failed to fund TokenFarm: %w", err)
	}

	weth, err := GetContract(s, WethToken)
	if err != nil {
		return nil, nil, err
	}
	fau, err := GetContract(s, FauToken)
	if err != nil {
		return nil, nil, err
	}
	daiFeed, err := GetContract(s, DaiUsdPriceFeed)
	if err != nil {
		return nil, nil, err
	}
	ethFeed, err := GetContract(s, EthUsdPriceFeed)
	if err != nil {
		return nil, nil, err
	}

	allowed := []AllowedToken{
		{Token: dapp.Address(), PriceFeed: daiFeed.Address()},
		{Token: fau.Address(), PriceFeed: daiFeed.Address()},
		{Token: weth.Address(), PriceFeed: ethFeed.Address()},
	}
	if err := AddAllowedTokens(s, farm, allowed, account); err != nil {
		return nil, nil, err
	}

	s.Logger.Info("Deployed token farm",
		zap.String("token_farm", farm.Address().Hex()),
		zap.String("dapp_token", dapp.Address().Hex()),
	)

	if frontEndDir != "" {
		if _, err := UpdateFrontEnd(s, frontEndDir); err != nil {
			return nil, nil, err
		}
	}
	return farm, dapp, nil
}

// AddAllowedTokens allows every token on farm and maps it to its price feed
func AddAllowedTokens(s *Session, farm *contracts.TokenFarm, tokens []AllowedToken, account *chain.Account) error {
	for _, t := range tokens {
		if _, err := farm.AddAllowedTokens(account.Opts(), t.Token); err != nil {
			return fmt.Errorf("failed to allow %s: %w", t.Token.Hex(), err)
		}
		if _, err := farm.SetPriceFeedContract(account.Opts(), t.Token, t.PriceFeed); err != nil {
			return fmt.Errorf("failed to set price feed of %s: %w", t.Token.Hex(), err)
		}
		s.Logger.Debug("Allowed token",
			zap.String("token", t.Token.Hex()),
			zap.String("price_feed", t.PriceFeed.Hex()),
		)
	}
	return nil
}

// ResolveToken turns a token reference into an address: a 0x address, "dapp"
// for the latest DappToken, or a config contract name such as weth_token.
func ResolveToken(s *Session, ref string) (common.Address, error) {
	if shared.ValidateAddress(ref) == nil {
		return common.HexToAddress(ref), nil
	}
	if ref == "dapp" || ref == contracts.NameDappToken {
		dapp, err := contracts.LatestERC20(s.Chain, contracts.NameDappToken)
		if err != nil {
			return common.Address{}, err
		}
		return dapp.Address(), nil
	}
	contract, err := GetContract(s, ref)
	if err != nil {
		return common.Address{}, err
	}
	return contract.Address(), nil
}
