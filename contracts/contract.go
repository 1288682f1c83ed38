// Package contracts holds the native farm contracts (ERC20 tokens, the
// MockV3Aggregator price feed and the TokenFarm) and their typed bindings.
//
// Native contract state uses uint256 arithmetic; bindings take and return
// *big.Int the way abigen bindings do.
package contracts

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"
	"github.com/holiman/uint256"

	"tokenfarm/chain"
)

// Contract names as recorded in the chain deployment history
const (
	NameDappToken        = "DappToken"
	NameMockDAI          = "MockDAI"
	NameMockWETH         = "MockWETH"
	NameMockERC20        = "MockERC20"
	NameMockV3Aggregator = "MockV3Aggregator"
	NameTokenFarm        = "TokenFarm"
)

// InitialSupply is minted to the deployer of every token: 1,000,000 ether
var InitialSupply = new(big.Int).Mul(big.NewInt(1_000_000), big.NewInt(params.Ether))

// Factory rebuilds an empty native contract by name, for chain.LoadState
func Factory(name string, addr common.Address) (chain.Contract, error) {
	switch name {
	case NameDappToken, NameMockDAI, NameMockWETH, NameMockERC20:
		return &erc20{addr: addr, kind: name}, nil
	case NameMockV3Aggregator:
		return &mockV3Aggregator{addr: addr}, nil
	case NameTokenFarm:
		return &tokenFarm{addr: addr}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownName, name)
}

// ToU256 converts a binding amount to contract storage width
func ToU256(v *big.Int) (*uint256.Int, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: nil", ErrInvalidAmount)
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative value %s", ErrInvalidAmount, v)
	}
	u, overflow := uint256.FromBig(v)
	if overflow {
		return nil, fmt.Errorf("%w: %s exceeds 256 bits", ErrInvalidAmount, v)
	}
	return u, nil
}

func fromU256(v *uint256.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v.ToBig()
}

// nativeAs asserts the type of a contract reached during execution
func nativeAs[T chain.Contract](env *chain.Env, c chain.Contract) (T, error) {
	t, ok := c.(T)
	if !ok {
		var zero T
		return zero, env.Revert(fmt.Sprintf("%s: %s at %s", ReasonIncompatibleAddress, c.ContractName(), c.Address().Hex()))
	}
	return t, nil
}

// callAs enters the contract at addr and asserts its type
func callAs[T chain.Contract](env *chain.Env, addr common.Address) (*chain.Env, T, error) {
	nested, c, err := env.Call(addr)
	if err != nil {
		var zero T
		return nil, zero, err
	}
	t, err := nativeAs[T](nested, c)
	return nested, t, err
}

// binding is the common part of every typed binding
type binding struct {
	chain   *chain.Chain
	address common.Address
}

// Address returns the bound contract address
func (b *binding) Address() common.Address { return b.address }

// bindAt checks the contract at addr has native type T
func bindAt[T chain.Contract](c *chain.Chain, addr common.Address) (binding, error) {
	contract, err := c.At(addr)
	if err != nil {
		return binding{}, err
	}
	if _, ok := contract.(T); !ok {
		return binding{}, fmt.Errorf("%w: %s at %s", ErrWrongContract, contract.ContractName(), addr.Hex())
	}
	return binding{chain: c, address: addr}, nil
}

// transactAs runs fn as method against the native contract behind b
func transactAs[T chain.Contract](b *binding, opts *chain.TransactOpts, method string, args []any, fn func(env *chain.Env, native T) error) (*chain.Receipt, error) {
	return b.chain.Transact(opts, b.address, method, args, func(env *chain.Env) error {
		c, ok := env.Lookup(env.Self())
		if !ok {
			return env.Revert(chain.ErrUnknownContract.Error())
		}
		native, err := nativeAs[T](env, c)
		if err != nil {
			return err
		}
		return fn(env, native)
	})
}

// viewAs runs fn read-only against the native contract behind b
func viewAs[T chain.Contract](b *binding, fn func(env *chain.Env, native T) error) error {
	return b.chain.CallView(b.address, func(env *chain.Env, c chain.Contract) error {
		native, err := nativeAs[T](env, c)
		if err != nil {
			return err
		}
		return fn(env, native)
	})
}

// latestAddress returns the newest deployment of name
func latestAddress(c *chain.Chain, name string) (common.Address, error) {
	contract, err := c.Latest(name)
	if err != nil {
		return common.Address{}, err
	}
	return contract.Address(), nil
}
