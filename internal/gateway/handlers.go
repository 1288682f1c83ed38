package gateway

import (
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"tokenfarm/contracts"
	"tokenfarm/shared"
)

// AllowedToken is a stakeable token and its price feed
type AllowedToken struct {
	Address   string `json:"address"`
	PriceFeed string `json:"price_feed"`
}

// FarmResponse describes the latest TokenFarm
type FarmResponse struct {
	Address       string         `json:"address"`
	Owner         string         `json:"owner"`
	DappToken     string         `json:"dapp_token"`
	AllowedTokens []AllowedToken `json:"allowed_tokens"`
	Stakers       []string       `json:"stakers"`
	Block         uint64         `json:"block"`
}

// Amount is a token amount in wei and in whole tokens
type Amount struct {
	Wei   string `json:"wei"`
	Ether string `json:"ether"`
}

func newAmount(wei *big.Int) Amount {
	if wei == nil {
		wei = new(big.Int)
	}
	return Amount{Wei: wei.String(), Ether: shared.FormatEther(wei)}
}

// StakeBalance is the stake of one token
type StakeBalance struct {
	Token   string `json:"token"`
	Balance Amount `json:"balance"`
	Value   Amount `json:"value"`
}

// StakerResponse describes the stake of one account
type StakerResponse struct {
	Address            string         `json:"address"`
	UniqueTokensStaked uint64         `json:"unique_tokens_staked"`
	Balances           []StakeBalance `json:"balances"`
	TotalValue         Amount         `json:"total_value"`
}

// TokenValueResponse is the price feed value of a token
type TokenValueResponse struct {
	Token     string `json:"token"`
	PriceFeed string `json:"price_feed"`
	Price     string `json:"price"`
	Decimals  uint64 `json:"decimals"`
}

func (s *Server) farm() (*contracts.TokenFarm, error) {
	farm, err := contracts.LatestTokenFarm(s.session.Chain)
	if err != nil {
		return nil, ErrNotFound("TokenFarm", err)
	}
	return farm, nil
}

// GET /api/farm
func (s *Server) handleFarm(r *http.Request) (any, error) {
	farm, err := s.farm()
	if err != nil {
		return nil, err
	}
	owner, err := farm.Owner()
	if err != nil {
		return nil, err
	}
	dapp, err := farm.DappToken()
	if err != nil {
		return nil, err
	}
	tokens, err := farm.AllowedTokenList()
	if err != nil {
		return nil, err
	}
	stakers, err := farm.StakerList()
	if err != nil {
		return nil, err
	}

	resp := &FarmResponse{
		Address:       farm.Address().Hex(),
		Owner:         owner.Hex(),
		DappToken:     dapp.Hex(),
		AllowedTokens: make([]AllowedToken, 0, len(tokens)),
		Stakers:       make([]string, 0, len(stakers)),
		Block:         s.session.Chain.BlockNumber(),
	}
	for _, token := range tokens {
		feed, err := farm.TokenPriceFeedMapping(token)
		if err != nil {
			return nil, err
		}
		resp.AllowedTokens = append(resp.AllowedTokens, AllowedToken{Address: token.Hex(), PriceFeed: feed.Hex()})
	}
	for _, staker := range stakers {
		resp.Stakers = append(resp.Stakers, staker.Hex())
	}
	return resp, nil
}

// GET /api/stakers/{address}
func (s *Server) handleStaker(r *http.Request) (any, error) {
	user, err := pathAddress(r)
	if err != nil {
		return nil, err
	}
	farm, err := s.farm()
	if err != nil {
		return nil, err
	}

	unique, err := farm.UniqueTokensStaked(user)
	if err != nil {
		return nil, err
	}
	resp := &StakerResponse{
		Address:            user.Hex(),
		UniqueTokensStaked: unique.Uint64(),
		Balances:           []StakeBalance{},
		TotalValue:         newAmount(nil),
	}
	if unique.Sign() == 0 {
		return resp, nil
	}

	tokens, err := farm.AllowedTokenList()
	if err != nil {
		return nil, err
	}
	seen := make(map[common.Address]bool)
	for _, token := range tokens {
		if seen[token] {
			continue
		}
		seen[token] = true
		balance, err := farm.StakingBalance(token, user)
		if err != nil {
			return nil, err
		}
		if balance.Sign() == 0 {
			continue
		}
		value, err := farm.GetUserSingleTokenValue(user, token)
		if err != nil {
			return nil, err
		}
		resp.Balances = append(resp.Balances, StakeBalance{
			Token:   token.Hex(),
			Balance: newAmount(balance),
			Value:   newAmount(value),
		})
	}

	total, err := farm.GetUserTotalValue(user)
	if err != nil {
		return nil, err
	}
	resp.TotalValue = newAmount(total)
	return resp, nil
}

// GET /api/tokens/{address}/value
func (s *Server) handleTokenValue(r *http.Request) (any, error) {
	token, err := pathAddress(r)
	if err != nil {
		return nil, err
	}
	farm, err := s.farm()
	if err != nil {
		return nil, err
	}
	price, decimals, err := farm.GetTokenValue(token)
	if err != nil {
		return nil, err
	}
	feed, err := farm.TokenPriceFeedMapping(token)
	if err != nil {
		return nil, err
	}
	return &TokenValueResponse{
		Token:     token.Hex(),
		PriceFeed: feed.Hex(),
		Price:     price.String(),
		Decimals:  decimals.Uint64(),
	}, nil
}
