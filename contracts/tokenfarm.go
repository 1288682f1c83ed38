package contracts

import (
	"encoding/json"
	"math/big"
	"slices"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"tokenfarm/chain"
)

// tokenFarm lets users stake allowed tokens and rewards them in the dapp
// token, one dapp token per staked dollar on every issuance.
type tokenFarm struct {
	addr  common.Address
	state farmState
}

type farmState struct {
	ownable
	DappToken             common.Address                                     `json:"dapp_token"`
	AllowedTokens         []common.Address                                   `json:"allowed_tokens"`
	Stakers               []common.Address                                   `json:"stakers"`
	StakingBalance        map[common.Address]map[common.Address]*uint256.Int `json:"staking_balance"` // token -> staker -> amount
	UniqueTokensStaked    map[common.Address]uint64                          `json:"unique_tokens_staked"`
	TokenPriceFeedMapping map[common.Address]common.Address                  `json:"token_price_feed_mapping"`
}

func newTokenFarm(env *chain.Env, dappToken common.Address) *tokenFarm {
	f := &tokenFarm{addr: env.Self()}
	f.reset()
	f.state.Owner = env.Sender()
	f.state.DappToken = dappToken
	return f
}

func (f *tokenFarm) Address() common.Address { return f.addr }
func (f *tokenFarm) ContractName() string    { return NameTokenFarm }

func (f *tokenFarm) MarshalState() ([]byte, error) { return json.Marshal(&f.state) }

func (f *tokenFarm) UnmarshalState(data []byte) error {
	f.reset()
	return json.Unmarshal(data, &f.state)
}

func (f *tokenFarm) reset() {
	f.state = farmState{
		StakingBalance:        make(map[common.Address]map[common.Address]*uint256.Int),
		UniqueTokensStaked:    make(map[common.Address]uint64),
		TokenPriceFeedMapping: make(map[common.Address]common.Address),
	}
}

func (f *tokenFarm) setPriceFeedContract(env *chain.Env, token, priceFeed common.Address) error {
	if err := f.state.onlyOwner(env); err != nil {
		return err
	}
	f.state.TokenPriceFeedMapping[token] = priceFeed
	return nil
}

func (f *tokenFarm) addAllowedTokens(env *chain.Env, token common.Address) error {
	if err := f.state.onlyOwner(env); err != nil {
		return err
	}
	f.state.AllowedTokens = append(f.state.AllowedTokens, token)
	return nil
}

func (f *tokenFarm) tokenIsAllowed(token common.Address) bool {
	return slices.Contains(f.state.AllowedTokens, token)
}

func (f *tokenFarm) stakingBalance(token, user common.Address) *uint256.Int {
	if b, ok := f.state.StakingBalance[token][user]; ok {
		return new(uint256.Int).Set(b)
	}
	return new(uint256.Int)
}

func (f *tokenFarm) setStakingBalance(token, user common.Address, amount *uint256.Int) {
	if f.state.StakingBalance[token] == nil {
		f.state.StakingBalance[token] = make(map[common.Address]*uint256.Int)
	}
	if amount.IsZero() {
		delete(f.state.StakingBalance[token], user)
		if len(f.state.StakingBalance[token]) == 0 {
			delete(f.state.StakingBalance, token)
		}
		return
	}
	f.state.StakingBalance[token][user] = amount
}

func (f *tokenFarm) stakeTokens(env *chain.Env, amount *uint256.Int, token common.Address) error {
	if err := env.Require(!amount.IsZero(), ReasonAmountZero); err != nil {
		return err
	}
	if err := env.Require(f.tokenIsAllowed(token), ReasonTokenNotAllowed); err != nil {
		return err
	}

	user := env.Sender()
	nested, erc, err := callAs[*erc20](env, token)
	if err != nil {
		return err
	}
	if err := erc.transferFrom(nested, user, f.addr, amount); err != nil {
		return err
	}

	balance := f.stakingBalance(token, user)
	if balance.IsZero() {
		f.state.UniqueTokensStaked[user]++
		if f.state.UniqueTokensStaked[user] == 1 {
			f.state.Stakers = append(f.state.Stakers, user)
		}
	}
	next, overflow := new(uint256.Int).AddOverflow(balance, amount)
	if err := env.Require(!overflow, ReasonOverflow); err != nil {
		return err
	}
	f.setStakingBalance(token, user, next)
	return nil
}

func (f *tokenFarm) unStakeTokens(env *chain.Env, token common.Address) error {
	user := env.Sender()
	balance := f.stakingBalance(token, user)
	if err := env.Require(!balance.IsZero(), ReasonZeroStakingBalance); err != nil {
		return err
	}

	nested, erc, err := callAs[*erc20](env, token)
	if err != nil {
		return err
	}
	if err := erc.transfer(nested, user, balance); err != nil {
		return err
	}

	f.setStakingBalance(token, user, new(uint256.Int))
	f.state.UniqueTokensStaked[user]--
	if f.state.UniqueTokensStaked[user] == 0 {
		delete(f.state.UniqueTokensStaked, user)
		if i := slices.Index(f.state.Stakers, user); i >= 0 {
			f.state.Stakers = slices.Delete(f.state.Stakers, i, i+1)
		}
	}
	return nil
}

func (f *tokenFarm) issueTokens(env *chain.Env) error {
	if err := f.state.onlyOwner(env); err != nil {
		return err
	}
	nested, dapp, err := callAs[*erc20](env, f.state.DappToken)
	if err != nil {
		return err
	}
	for _, recipient := range slices.Clone(f.state.Stakers) {
		total, err := f.getUserTotalValue(env, recipient)
		if err != nil {
			return err
		}
		if err := dapp.transfer(nested, recipient, total); err != nil {
			return err
		}
	}
	return nil
}

func (f *tokenFarm) getUserTotalValue(env *chain.Env, user common.Address) (*uint256.Int, error) {
	if err := env.Require(f.state.UniqueTokensStaked[user] > 0, ReasonNoTokensStaked); err != nil {
		return nil, err
	}
	total := new(uint256.Int)
	seen := make(map[common.Address]bool, len(f.state.AllowedTokens))
	for _, token := range f.state.AllowedTokens {
		if seen[token] {
			continue
		}
		seen[token] = true
		value, err := f.getUserSingleTokenValue(env, user, token)
		if err != nil {
			return nil, err
		}
		var overflow bool
		total, overflow = new(uint256.Int).AddOverflow(total, value)
		if err := env.Require(!overflow, ReasonOverflow); err != nil {
			return nil, err
		}
	}
	return total, nil
}

func (f *tokenFarm) getUserSingleTokenValue(env *chain.Env, user, token common.Address) (*uint256.Int, error) {
	if f.state.UniqueTokensStaked[user] == 0 {
		return new(uint256.Int), nil
	}
	balance := f.stakingBalance(token, user)
	if balance.IsZero() {
		return new(uint256.Int), nil
	}
	price, decimals, err := f.getTokenValue(env, token)
	if err != nil {
		return nil, err
	}
	product, overflow := new(uint256.Int).MulOverflow(balance, price)
	if err := env.Require(!overflow, ReasonOverflow); err != nil {
		return nil, err
	}
	scale, err := pow10(env, decimals)
	if err != nil {
		return nil, err
	}
	return product.Div(product, scale), nil
}

func (f *tokenFarm) getTokenValue(env *chain.Env, token common.Address) (*uint256.Int, *uint256.Int, error) {
	feed, ok := f.state.TokenPriceFeedMapping[token]
	if err := env.Require(ok && feed != (common.Address{}), ReasonPriceFeedNotSet); err != nil {
		return nil, nil, err
	}
	nested, aggregator, err := callAs[*mockV3Aggregator](env, feed)
	if err != nil {
		return nil, nil, err
	}
	round, err := aggregator.latestRoundData(nested)
	if err != nil {
		return nil, nil, err
	}
	if err := env.Require(round.Answer.Sign() >= 0, ReasonInvalidPrice); err != nil {
		return nil, nil, err
	}
	price, _ := uint256.FromBig(round.Answer)
	return price, uint256.NewInt(uint64(aggregator.state.Decimals)), nil
}

func pow10(env *chain.Env, decimals *uint256.Int) (*uint256.Int, error) {
	// 10**77 is the largest power of ten below 2**256
	if err := env.Require(decimals.LtUint64(78), ReasonOverflow); err != nil {
		return nil, err
	}
	return new(uint256.Int).Exp(uint256.NewInt(10), decimals), nil
}

func (f *tokenFarm) indexed(env *chain.Env, list []common.Address, i uint64) (common.Address, error) {
	if err := env.Require(i < uint64(len(list)), ReasonIndexOutOfRange); err != nil {
		return common.Address{}, err
	}
	return list[i], nil
}

// TokenFarm is a typed binding to a deployed token farm
type TokenFarm struct {
	binding
}

// DeployTokenFarm deploys a farm rewarding in dappToken; the sender becomes owner
func DeployTokenFarm(c *chain.Chain, opts *chain.TransactOpts, dappToken common.Address) (*TokenFarm, *chain.Receipt, error) {
	contract, receipt, err := c.Deploy(opts, NameTokenFarm, func(env *chain.Env) (chain.Contract, error) {
		return newTokenFarm(env, dappToken), nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &TokenFarm{binding{chain: c, address: contract.Address()}}, receipt, nil
}

// TokenFarmAt binds the farm at addr
func TokenFarmAt(c *chain.Chain, addr common.Address) (*TokenFarm, error) {
	b, err := bindAt[*tokenFarm](c, addr)
	if err != nil {
		return nil, err
	}
	return &TokenFarm{b}, nil
}

// LatestTokenFarm binds the newest farm deployment (TokenFarm[-1])
func LatestTokenFarm(c *chain.Chain) (*TokenFarm, error) {
	addr, err := latestAddress(c, NameTokenFarm)
	if err != nil {
		return nil, err
	}
	return TokenFarmAt(c, addr)
}

func (f *TokenFarm) transact(opts *chain.TransactOpts, method string, args []any, fn func(env *chain.Env, n *tokenFarm) error) (*chain.Receipt, error) {
	return transactAs(&f.binding, opts, method, args, fn)
}

func (f *TokenFarm) view(fn func(env *chain.Env, n *tokenFarm) error) error {
	return viewAs(&f.binding, fn)
}

// AddAllowedTokens allows token to be staked; owner only
func (f *TokenFarm) AddAllowedTokens(opts *chain.TransactOpts, token common.Address) (*chain.Receipt, error) {
	return f.transact(opts, "addAllowedTokens", []any{token}, func(env *chain.Env, n *tokenFarm) error {
		return n.addAllowedTokens(env, token)
	})
}

// SetPriceFeedContract maps token to priceFeed; owner only
func (f *TokenFarm) SetPriceFeedContract(opts *chain.TransactOpts, token, priceFeed common.Address) (*chain.Receipt, error) {
	return f.transact(opts, "setPriceFeedContract", []any{token, priceFeed}, func(env *chain.Env, n *tokenFarm) error {
		return n.setPriceFeedContract(env, token, priceFeed)
	})
}

// StakeTokens moves amount of token from the sender into the farm.
// The sender must have approved the farm for at least amount.
func (f *TokenFarm) StakeTokens(opts *chain.TransactOpts, amount *big.Int, token common.Address) (*chain.Receipt, error) {
	amt, err := ToU256(amount)
	if err != nil {
		return nil, err
	}
	return f.transact(opts, "stakeTokens", []any{amount, token}, func(env *chain.Env, n *tokenFarm) error {
		return n.stakeTokens(env, amt, token)
	})
}

// UnStakeTokens returns the sender's whole staking balance of token
func (f *TokenFarm) UnStakeTokens(opts *chain.TransactOpts, token common.Address) (*chain.Receipt, error) {
	return f.transact(opts, "unStakeTokens", []any{token}, func(env *chain.Env, n *tokenFarm) error {
		return n.unStakeTokens(env, token)
	})
}

// IssueTokens pays every staker its total staked value in dapp tokens; owner only
func (f *TokenFarm) IssueTokens(opts *chain.TransactOpts) (*chain.Receipt, error) {
	return f.transact(opts, "issueTokens", nil, func(env *chain.Env, n *tokenFarm) error {
		return n.issueTokens(env)
	})
}

// TransferOwnership hands the farm to newOwner; owner only
func (f *TokenFarm) TransferOwnership(opts *chain.TransactOpts, newOwner common.Address) (*chain.Receipt, error) {
	return f.transact(opts, "transferOwnership", []any{newOwner}, func(env *chain.Env, n *tokenFarm) error {
		return n.state.transferOwnership(env, newOwner)
	})
}

// RenounceOwnership leaves the farm without an owner; owner only
func (f *TokenFarm) RenounceOwnership(opts *chain.TransactOpts) (*chain.Receipt, error) {
	return f.transact(opts, "renounceOwnership", nil, func(env *chain.Env, n *tokenFarm) error {
		return n.state.renounceOwnership(env)
	})
}

// Owner returns the farm owner
func (f *TokenFarm) Owner() (common.Address, error) {
	var out common.Address
	err := f.view(func(_ *chain.Env, n *tokenFarm) error {
		out = n.state.Owner
		return nil
	})
	return out, err
}

// DappToken returns the reward token address
func (f *TokenFarm) DappToken() (common.Address, error) {
	var out common.Address
	err := f.view(func(_ *chain.Env, n *tokenFarm) error {
		out = n.state.DappToken
		return nil
	})
	return out, err
}

// AllowedTokens returns allowed token i
func (f *TokenFarm) AllowedTokens(i uint64) (common.Address, error) {
	var out common.Address
	err := f.view(func(env *chain.Env, n *tokenFarm) error {
		var err error
		out, err = n.indexed(env, n.state.AllowedTokens, i)
		return err
	})
	return out, err
}

// AllowedTokenList returns every allowed token in insertion order
func (f *TokenFarm) AllowedTokenList() ([]common.Address, error) {
	var out []common.Address
	err := f.view(func(_ *chain.Env, n *tokenFarm) error {
		out = slices.Clone(n.state.AllowedTokens)
		return nil
	})
	return out, err
}

// Stakers returns staker i
func (f *TokenFarm) Stakers(i uint64) (common.Address, error) {
	var out common.Address
	err := f.view(func(env *chain.Env, n *tokenFarm) error {
		var err error
		out, err = n.indexed(env, n.state.Stakers, i)
		return err
	})
	return out, err
}

// StakerList returns every current staker
func (f *TokenFarm) StakerList() ([]common.Address, error) {
	var out []common.Address
	err := f.view(func(_ *chain.Env, n *tokenFarm) error {
		out = slices.Clone(n.state.Stakers)
		return nil
	})
	return out, err
}

// TokenIsAllowed reports whether token may be staked
func (f *TokenFarm) TokenIsAllowed(token common.Address) (bool, error) {
	var out bool
	err := f.view(func(_ *chain.Env, n *tokenFarm) error {
		out = n.tokenIsAllowed(token)
		return nil
	})
	return out, err
}

// StakingBalance returns how much of token user has staked
func (f *TokenFarm) StakingBalance(token, user common.Address) (*big.Int, error) {
	var out *big.Int
	err := f.view(func(_ *chain.Env, n *tokenFarm) error {
		out = fromU256(n.stakingBalance(token, user))
		return nil
	})
	return out, err
}

// UniqueTokensStaked returns how many distinct tokens user has staked
func (f *TokenFarm) UniqueTokensStaked(user common.Address) (*big.Int, error) {
	var out *big.Int
	err := f.view(func(_ *chain.Env, n *tokenFarm) error {
		out = new(big.Int).SetUint64(n.state.UniqueTokensStaked[user])
		return nil
	})
	return out, err
}

// TokenPriceFeedMapping returns the price feed mapped to token
func (f *TokenFarm) TokenPriceFeedMapping(token common.Address) (common.Address, error) {
	var out common.Address
	err := f.view(func(_ *chain.Env, n *tokenFarm) error {
		out = n.state.TokenPriceFeedMapping[token]
		return nil
	})
	return out, err
}

// GetUserTotalValue returns the value of everything user has staked
func (f *TokenFarm) GetUserTotalValue(user common.Address) (*big.Int, error) {
	var out *big.Int
	err := f.view(func(env *chain.Env, n *tokenFarm) error {
		v, err := n.getUserTotalValue(env, user)
		if err != nil {
			return err
		}
		out = fromU256(v)
		return nil
	})
	return out, err
}

// GetUserSingleTokenValue returns the value of user's stake in token
func (f *TokenFarm) GetUserSingleTokenValue(user, token common.Address) (*big.Int, error) {
	var out *big.Int
	err := f.view(func(env *chain.Env, n *tokenFarm) error {
		v, err := n.getUserSingleTokenValue(env, user, token)
		if err != nil {
			return err
		}
		out = fromU256(v)
		return nil
	})
	return out, err
}

// GetTokenValue returns the feed price of token and its decimals
func (f *TokenFarm) GetTokenValue(token common.Address) (*big.Int, *big.Int, error) {
	var price, decimals *big.Int
	err := f.view(func(env *chain.Env, n *tokenFarm) error {
		p, d, err := n.getTokenValue(env, token)
		if err != nil {
			return err
		}
		price, decimals = fromU256(p), fromU256(d)
		return nil
	})
	return price, decimals, err
}
