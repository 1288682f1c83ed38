package contracts

import (
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"tokenfarm/chain"
)

// erc20 is an OpenZeppelin style fungible token.
// kind is the deployed contract name (DappToken, MockDAI, ...).
type erc20 struct {
	addr  common.Address
	kind  string
	state erc20State
}

type erc20State struct {
	Name        string                                            `json:"name"`
	Symbol      string                                            `json:"symbol"`
	Decimals    uint8                                             `json:"decimals"`
	TotalSupply *uint256.Int                                      `json:"total_supply"`
	Balances    map[common.Address]*uint256.Int                   `json:"balances"`
	Allowances  map[common.Address]map[common.Address]*uint256.Int `json:"allowances"`
}

var maxUint256 = new(uint256.Int).SetAllOne()

func newERC20(env *chain.Env, kind, name, symbol string, supply *uint256.Int) (*erc20, error) {
	t := &erc20{addr: env.Self(), kind: kind}
	t.reset()
	t.state.Name = name
	t.state.Symbol = symbol
	if err := t.mint(env, env.Sender(), supply); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *erc20) Address() common.Address { return t.addr }
func (t *erc20) ContractName() string    { return t.kind }

func (t *erc20) MarshalState() ([]byte, error) { return json.Marshal(&t.state) }

func (t *erc20) UnmarshalState(data []byte) error {
	t.reset()
	return json.Unmarshal(data, &t.state)
}

func (t *erc20) reset() {
	t.state = erc20State{
		Decimals:    18,
		TotalSupply: new(uint256.Int),
		Balances:    make(map[common.Address]*uint256.Int),
		Allowances:  make(map[common.Address]map[common.Address]*uint256.Int),
	}
}

func (t *erc20) balanceOf(owner common.Address) *uint256.Int {
	if b, ok := t.state.Balances[owner]; ok {
		return new(uint256.Int).Set(b)
	}
	return new(uint256.Int)
}

func (t *erc20) allowance(owner, spender common.Address) *uint256.Int {
	if a, ok := t.state.Allowances[owner][spender]; ok {
		return new(uint256.Int).Set(a)
	}
	return new(uint256.Int)
}

func (t *erc20) transfer(env *chain.Env, to common.Address, amount *uint256.Int) error {
	return t.move(env, env.Sender(), to, amount)
}

func (t *erc20) approve(env *chain.Env, spender common.Address, amount *uint256.Int) error {
	return t.setAllowance(env, env.Sender(), spender, amount)
}

func (t *erc20) transferFrom(env *chain.Env, from, to common.Address, amount *uint256.Int) error {
	spender := env.Sender()
	current := t.allowance(from, spender)
	if !current.Eq(maxUint256) {
		if err := env.Require(!current.Lt(amount), ReasonInsufficientAllow); err != nil {
			return err
		}
		if err := t.setAllowance(env, from, spender, new(uint256.Int).Sub(current, amount)); err != nil {
			return err
		}
	}
	return t.move(env, from, to, amount)
}

func (t *erc20) move(env *chain.Env, from, to common.Address, amount *uint256.Int) error {
	if err := env.Mutate(); err != nil {
		return err
	}
	if err := env.Require(from != (common.Address{}), ReasonTransferFromZero); err != nil {
		return err
	}
	if err := env.Require(to != (common.Address{}), ReasonTransferToZero); err != nil {
		return err
	}
	fromBalance := t.balanceOf(from)
	if err := env.Require(!fromBalance.Lt(amount), ReasonExceedsBalance); err != nil {
		return err
	}
	toBalance, overflow := new(uint256.Int).AddOverflow(t.balanceOf(to), amount)
	if from != to {
		if err := env.Require(!overflow, ReasonOverflow); err != nil {
			return err
		}
	}

	t.state.Balances[from] = new(uint256.Int).Sub(fromBalance, amount)
	if from != to {
		t.state.Balances[to] = toBalance
	} else {
		t.state.Balances[to] = fromBalance
	}
	env.Emit("Transfer", map[string]any{"from": from, "to": to, "value": amount.ToBig()})
	return nil
}

func (t *erc20) mint(env *chain.Env, to common.Address, amount *uint256.Int) error {
	if err := env.Require(to != (common.Address{}), ReasonMintToZero); err != nil {
		return err
	}
	supply, overflow := new(uint256.Int).AddOverflow(t.state.TotalSupply, amount)
	if err := env.Require(!overflow, ReasonOverflow); err != nil {
		return err
	}
	t.state.TotalSupply = supply
	t.state.Balances[to] = new(uint256.Int).Add(t.balanceOf(to), amount)
	env.Emit("Transfer", map[string]any{"from": common.Address{}, "to": to, "value": amount.ToBig()})
	return nil
}

func (t *erc20) setAllowance(env *chain.Env, owner, spender common.Address, amount *uint256.Int) error {
	if err := env.Mutate(); err != nil {
		return err
	}
	if err := env.Require(spender != (common.Address{}), ReasonApproveToZero); err != nil {
		return err
	}
	if t.state.Allowances[owner] == nil {
		t.state.Allowances[owner] = make(map[common.Address]*uint256.Int)
	}
	t.state.Allowances[owner][spender] = new(uint256.Int).Set(amount)
	env.Emit("Approval", map[string]any{"owner": owner, "spender": spender, "value": amount.ToBig()})
	return nil
}

// ERC20 is a typed binding to a deployed token
type ERC20 struct {
	binding
}

func deployERC20(c *chain.Chain, opts *chain.TransactOpts, kind, name, symbol string) (*ERC20, *chain.Receipt, error) {
	supply := uint256.MustFromBig(InitialSupply)
	contract, receipt, err := c.Deploy(opts, kind, func(env *chain.Env) (chain.Contract, error) {
		return newERC20(env, kind, name, symbol, supply)
	})
	if err != nil {
		return nil, nil, err
	}
	return &ERC20{binding{chain: c, address: contract.Address()}}, receipt, nil
}

// DeployDappToken deploys the farm reward token, minting the initial supply to the sender
func DeployDappToken(c *chain.Chain, opts *chain.TransactOpts) (*ERC20, *chain.Receipt, error) {
	return deployERC20(c, opts, NameDappToken, "Dapp Token", "DAPP")
}

// DeployMockDAI deploys a DAI stand-in (the fau_token)
func DeployMockDAI(c *chain.Chain, opts *chain.TransactOpts) (*ERC20, *chain.Receipt, error) {
	return deployERC20(c, opts, NameMockDAI, "Mock DAI", "DAI")
}

// DeployMockWETH deploys a WETH stand-in
func DeployMockWETH(c *chain.Chain, opts *chain.TransactOpts) (*ERC20, *chain.Receipt, error) {
	return deployERC20(c, opts, NameMockWETH, "Mock WETH", "WETH")
}

// DeployMockERC20 deploys a generic test token
func DeployMockERC20(c *chain.Chain, opts *chain.TransactOpts) (*ERC20, *chain.Receipt, error) {
	return deployERC20(c, opts, NameMockERC20, "Mock ERC20", "MOCK")
}

// ERC20At binds the token at addr
func ERC20At(c *chain.Chain, addr common.Address) (*ERC20, error) {
	b, err := bindAt[*erc20](c, addr)
	if err != nil {
		return nil, err
	}
	return &ERC20{b}, nil
}

// LatestERC20 binds the newest deployment of the token contract named name
func LatestERC20(c *chain.Chain, name string) (*ERC20, error) {
	addr, err := latestAddress(c, name)
	if err != nil {
		return nil, err
	}
	return ERC20At(c, addr)
}

// Name returns the token name
func (t *ERC20) Name() (string, error) {
	var out string
	err := viewAs(&t.binding, func(_ *chain.Env, n *erc20) error {
		out = n.state.Name
		return nil
	})
	return out, err
}

// Symbol returns the token symbol
func (t *ERC20) Symbol() (string, error) {
	var out string
	err := viewAs(&t.binding, func(_ *chain.Env, n *erc20) error {
		out = n.state.Symbol
		return nil
	})
	return out, err
}

// Decimals returns the token decimals
func (t *ERC20) Decimals() (uint8, error) {
	var out uint8
	err := viewAs(&t.binding, func(_ *chain.Env, n *erc20) error {
		out = n.state.Decimals
		return nil
	})
	return out, err
}

// TotalSupply returns the minted supply
func (t *ERC20) TotalSupply() (*big.Int, error) {
	var out *big.Int
	err := viewAs(&t.binding, func(_ *chain.Env, n *erc20) error {
		out = fromU256(n.state.TotalSupply)
		return nil
	})
	return out, err
}

// BalanceOf returns the balance of owner
func (t *ERC20) BalanceOf(owner common.Address) (*big.Int, error) {
	var out *big.Int
	err := viewAs(&t.binding, func(_ *chain.Env, n *erc20) error {
		out = fromU256(n.balanceOf(owner))
		return nil
	})
	return out, err
}

// Allowance returns what spender may still move from owner
func (t *ERC20) Allowance(owner, spender common.Address) (*big.Int, error) {
	var out *big.Int
	err := viewAs(&t.binding, func(_ *chain.Env, n *erc20) error {
		out = fromU256(n.allowance(owner, spender))
		return nil
	})
	return out, err
}

// Transfer moves amount from the sender to to
func (t *ERC20) Transfer(opts *chain.TransactOpts, to common.Address, amount *big.Int) (*chain.Receipt, error) {
	amt, err := ToU256(amount)
	if err != nil {
		return nil, err
	}
	return transactAs(&t.binding, opts, "transfer", []any{to, amount}, func(env *chain.Env, n *erc20) error {
		return n.transfer(env, to, amt)
	})
}

// Approve lets spender move up to amount of the sender's tokens
func (t *ERC20) Approve(opts *chain.TransactOpts, spender common.Address, amount *big.Int) (*chain.Receipt, error) {
	amt, err := ToU256(amount)
	if err != nil {
		return nil, err
	}
	return transactAs(&t.binding, opts, "approve", []any{spender, amount}, func(env *chain.Env, n *erc20) error {
		return n.approve(env, spender, amt)
	})
}

// TransferFrom moves amount from from to to using the sender's allowance
func (t *ERC20) TransferFrom(opts *chain.TransactOpts, from, to common.Address, amount *big.Int) (*chain.Receipt, error) {
	amt, err := ToU256(amount)
	if err != nil {
		return nil, err
	}
	return transactAs(&t.binding, opts, "transferFrom", []any{from, to, amount}, func(env *chain.Env, n *erc20) error {
		return n.transferFrom(env, from, to, amt)
	})
}
