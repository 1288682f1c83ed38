package scripts

import (
	"errors"
	"fmt"
	"math/big"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"
	"go.uber.org/zap"

	"tokenfarm/chain"
	"tokenfarm/contracts"
	"tokenfarm/crypto"
	"tokenfarm/shared"
)

// Decimals is the precision of the mock price feed
const Decimals = 18

// Config contract names resolved by GetContract
const (
	EthUsdPriceFeed = "eth_usd_price_feed"
	DaiUsdPriceFeed = "dai_usd_price_feed"
	FauToken        = "fau_token"
	WethToken       = "weth_token"
)

var (
	// InitialPriceFeedValue is the mock feed answer: 2000 with 18 decimals
	InitialPriceFeedValue = new(big.Int).Mul(big.NewInt(2000), big.NewInt(params.Ether))
	// KeptBalance is the dapp token amount the deployer keeps
	KeptBalance = new(big.Int).Mul(big.NewInt(100), big.NewInt(params.Ether))
)

// contractToMock maps config contract names to the mock deployed locally
var contractToMock = map[string]string{
	EthUsdPriceFeed: contracts.NameMockV3Aggregator,
	DaiUsdPriceFeed: contracts.NameMockV3Aggregator,
	FauToken:        contracts.NameMockDAI,
	WethToken:       contracts.NameMockWETH,
}

var (
	// ErrUnknownContractName signals a name GetContract does not know
	ErrUnknownContractName = errors.New("unknown contract name")
	// ErrNoFromKey signals a live network without wallets.from_key
	ErrNoFromKey = errors.New("wallets.from_key is not configured")
)

type accountQuery struct {
	index *int
	id    string
}

// AccountOption narrows GetAccount
type AccountOption func(*accountQuery)

// WithIndex selects dev account i
func WithIndex(i int) AccountOption {
	return func(q *accountQuery) { q.index = &i }
}

// WithID selects the keystore account stored as <keystore dir>/<id>.json
func WithID(id string) AccountOption {
	return func(q *accountQuery) { q.id = id }
}

// GetAccount resolves the sending account: an explicit index, then a
// keystore id, then account 0 on local networks, else wallets.from_key.
func GetAccount(s *Session, opts ...AccountOption) (*chain.Account, error) {
	var q accountQuery
	for _, opt := range opts {
		opt(&q)
	}

	switch {
	case q.index != nil:
		return s.Chain.Account(*q.index)
	case q.id != "":
		return loadKeystoreAccount(s, q.id)
	case shared.IsLocalNetwork(s.Network) || shared.IsForkedNetwork(s.Network):
		return s.Chain.Account(0)
	}

	if s.Config.Wallets.FromKey == "" {
		return nil, ErrNoFromKey
	}
	kd, err := crypto.DeriveKeys(s.Config.Wallets.FromKey)
	if err != nil {
		return nil, fmt.Errorf("wallets.from_key: %w", err)
	}
	return chain.NewAccount(kd.PrivateKey), nil
}

func loadKeystoreAccount(s *Session, id string) (*chain.Account, error) {
	if filepath.Base(id) != id {
		return nil, fmt.Errorf("invalid account id %q", id)
	}
	path := filepath.Join(s.Config.Keystore.Dir, id+".json")
	kd, err := crypto.LoadKeystore(path, s.Config.Keystore.Password)
	if err != nil {
		return nil, err
	}
	acct := chain.NewAccount(kd.PrivateKey)
	acct.ID = id
	return acct, nil
}

// GetContract returns the contract configured under name. On local networks
// the mocks are deployed when missing and the newest mock is returned;
// elsewhere the address comes from the network config.
func GetContract(s *Session, name string) (chain.Contract, error) {
	mock, ok := contractToMock[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownContractName, name)
	}

	if s.IsLocal() {
		if len(s.Chain.Deployments(mock)) == 0 {
			if err := DeployMocks(s, Decimals, InitialPriceFeedValue); err != nil {
				return nil, err
			}
		}
		return s.Chain.Latest(mock)
	}

	addr, err := s.Config.ContractAddress(s.Network, name)
	if err != nil {
		return nil, err
	}
	contract, err := s.Chain.At(common.HexToAddress(addr))
	if err != nil {
		return nil, err
	}
	if contract.ContractName() != mock {
		return nil, fmt.Errorf("%w: %s at %s is a %s", contracts.ErrWrongContract, name, addr, contract.ContractName())
	}
	return contract, nil
}

// DeployMocks deploys the price feed, DAI and WETH mocks
func DeployMocks(s *Session, decimals uint8, initialValue *big.Int) error {
	s.Logger.Info("Deploying Mocks...")
	account, err := GetAccount(s)
	if err != nil {
		return err
	}

	feed, _, err := contracts.DeployMockV3Aggregator(s.Chain, account.Opts(), decimals, initialValue)
	if err != nil {
		return fmt.Errorf("failed to deploy mock price feed: %w", err)
	}
	s.Logger.Info("Deployed Mock Price Feed", zap.String("address", feed.Address().Hex()))

	dai, _, err := contracts.DeployMockDAI(s.Chain, account.Opts())
	if err != nil {
		return fmt.Errorf("failed to deploy mock DAI: %w", err)
	}
	s.Logger.Info("Deployed Mock DAI", zap.String("address", dai.Address().Hex()))

	weth, _, err := contracts.DeployMockWETH(s.Chain, account.Opts())
	if err != nil {
		return fmt.Errorf("failed to deploy mock WETH: %w", err)
	}
	s.Logger.Info("Deployed Mock WETH", zap.String("address", weth.Address().Hex()))
	return nil
}
