// Package chain implements the in-process development chain the farm
// contracts and scripts run against. Transactions are signed, executed
// atomically and mined one block each.
package chain

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"tokenfarm/crypto"
	"tokenfarm/shared"
)

// Contract is native contract code deployed on the chain
type Contract interface {
	Address() common.Address
	ContractName() string
	MarshalState() ([]byte, error)
	UnmarshalState(data []byte) error
}

// Option configures a Chain
type Option func(*Chain)

// WithAccounts sets the number of dev accounts
func WithAccounts(n int) Option { return func(c *Chain) { c.accountCount = n } }

// WithMnemonic sets the seed dev accounts are derived from
func WithMnemonic(m string) Option { return func(c *Chain) { c.mnemonic = m } }

// WithChainID sets the chain id
func WithChainID(id uint64) Option { return func(c *Chain) { c.chainID = id } }

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option { return func(c *Chain) { c.logger = l } }

// WithRegisterer registers chain metrics on reg
func WithRegisterer(reg prometheus.Registerer) Option { return func(c *Chain) { c.reg = reg } }

// WithClock sets the source of block timestamps
func WithClock(now func() time.Time) Option { return func(c *Chain) { c.now = now } }

// Chain is a single-node automining development chain
type Chain struct {
	mu sync.RWMutex

	chainID      uint64
	mnemonic     string
	accountCount int
	accounts     []*Account

	block       uint64
	nonces      map[common.Address]uint64
	contracts   map[common.Address]Contract
	order       []common.Address
	deployments map[string][]common.Address
	receipts    map[common.Hash]*Receipt

	now     func() time.Time
	logger  *zap.Logger
	reg     prometheus.Registerer
	metrics *metrics
}

// New creates a chain with deterministic dev accounts
func New(opts ...Option) (*Chain, error) {
	c := &Chain{
		chainID:      shared.DevChainID,
		mnemonic:     shared.DevMnemonic,
		accountCount: shared.DevAccountCount,
		nonces:       make(map[common.Address]uint64),
		contracts:    make(map[common.Address]Contract),
		deployments:  make(map[string][]common.Address),
		receipts:     make(map[common.Hash]*Receipt),
		now:          time.Now,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.accountCount <= 0 || c.accountCount > shared.MaxDevAccounts {
		return nil, fmt.Errorf("account count must be between 1 and %d, got %d", shared.MaxDevAccounts, c.accountCount)
	}
	if c.chainID == 0 {
		return nil, fmt.Errorf("chain id must be positive")
	}

	for i := 0; i < c.accountCount; i++ {
		kd, err := crypto.DeriveDevKey(c.mnemonic, i)
		if err != nil {
			return nil, fmt.Errorf("failed to derive dev account %d: %w", i, err)
		}
		c.accounts = append(c.accounts, NewAccount(kd.PrivateKey))
	}

	c.metrics = newMetrics(c.reg)
	c.logger.Debug("Dev chain started",
		zap.Uint64("chain_id", c.chainID),
		zap.Int("accounts", len(c.accounts)),
	)
	return c, nil
}

// ChainID returns the chain id
func (c *Chain) ChainID() uint64 { return c.chainID }

// Logger returns the chain logger
func (c *Chain) Logger() *zap.Logger { return c.logger }

// Accounts returns the dev accounts
func (c *Chain) Accounts() []*Account {
	out := make([]*Account, len(c.accounts))
	copy(out, c.accounts)
	return out
}

// Account returns dev account i
func (c *Chain) Account(i int) (*Account, error) {
	if i < 0 || i >= len(c.accounts) {
		return nil, fmt.Errorf("%w: %d (have %d)", ErrAccountIndex, i, len(c.accounts))
	}
	return c.accounts[i], nil
}

// BlockNumber returns the latest mined block
func (c *Chain) BlockNumber() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.block
}

// Nonce returns the next nonce of addr
func (c *Chain) Nonce(addr common.Address) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.nonces[addr]
}

// Deploy runs build as the constructor of a new contract named name.
// The contract address is the CREATE address of the sender and its nonce.
func (c *Chain) Deploy(opts *TransactOpts, name string, build func(env *Env) (Contract, error)) (Contract, *Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if opts == nil {
		return nil, nil, ErrNoSigner
	}
	start := time.Now()
	from := opts.From
	nonce := c.nonces[from]
	addr := ethcrypto.CreateAddress(from, nonce)

	tx := &txData{ChainID: c.chainID, Nonce: nonce, From: from, Method: "constructor", Args: []string{name}}
	h, err := authorize(opts, tx)
	if err != nil {
		c.metrics.transactions.WithLabelValues(name, "constructor", StatusRejected).Inc()
		return nil, nil, err
	}
	c.nonces[from] = nonce + 1

	var logs []Log
	env := c.newEnv(from, addr, &logs, false)
	contract, err := build(env)
	if err == nil && contract.Address() != addr {
		err = fmt.Errorf("constructor returned contract at %s, want %s", contract.Address().Hex(), addr.Hex())
	}
	if err != nil {
		vmErr := asVMError(err)
		vmErr.Method = "constructor"
		if vmErr.Contract == "" {
			vmErr.Contract = name
			vmErr.Address = addr
		}
		c.metrics.transactions.WithLabelValues(name, "constructor", StatusReverted).Inc()
		c.logger.Debug("Deployment reverted", zap.String("contract", name), zap.String("reason", vmErr.Reason))
		return nil, nil, vmErr
	}

	c.contracts[addr] = contract
	c.order = append(c.order, addr)
	c.deployments[name] = append(c.deployments[name], addr)

	receipt := c.mine(h, from, common.Address{}, "constructor", logs)
	receipt.ContractAddress = addr

	c.metrics.deployments.WithLabelValues(name).Inc()
	c.metrics.transactions.WithLabelValues(name, "constructor", StatusSuccess).Inc()
	c.metrics.txDuration.WithLabelValues("constructor").Observe(time.Since(start).Seconds())
	c.logger.Info("Deployed contract",
		zap.String("contract", name),
		zap.String("address", addr.Hex()),
		zap.Uint64("block", receipt.BlockNumber),
	)
	return contract, receipt, nil
}

// Transact executes fn as method on the contract at to.
// On failure every contract state is restored and a *VMError returned;
// the sender nonce still advances and no block is mined.
func (c *Chain) Transact(opts *TransactOpts, to common.Address, method string, args []any, fn func(env *Env) error) (*Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	contractName := "unknown"
	if target, ok := c.contracts[to]; ok {
		contractName = target.ContractName()
	}

	if opts == nil {
		return nil, ErrNoSigner
	}
	from := opts.From
	nonce := c.nonces[from]
	tx := &txData{ChainID: c.chainID, Nonce: nonce, From: from, To: to, Method: method, Args: encodeArgs(args)}
	h, err := authorize(opts, tx)
	if err != nil {
		c.metrics.transactions.WithLabelValues(contractName, method, StatusRejected).Inc()
		return nil, err
	}
	c.nonces[from] = nonce + 1

	snapshot, err := c.snapshotContracts()
	if err != nil {
		return nil, err
	}

	var logs []Log
	err = func() error {
		if _, ok := c.contracts[to]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownContract, to.Hex())
		}
		return fn(c.newEnv(from, to, &logs, false))
	}()
	if err != nil {
		if restoreErr := c.restoreContracts(snapshot); restoreErr != nil {
			return nil, errors.Join(err, restoreErr)
		}
		vmErr := asVMError(err)
		vmErr.Method = method
		if vmErr.Contract == "" {
			vmErr.Contract = contractName
			vmErr.Address = to
		}
		c.metrics.transactions.WithLabelValues(contractName, method, StatusReverted).Inc()
		c.logger.Debug("Transaction reverted",
			zap.String("contract", contractName),
			zap.String("method", method),
			zap.String("from", from.Hex()),
			zap.String("reason", vmErr.Reason),
		)
		return nil, vmErr
	}

	receipt := c.mine(h, from, to, method, logs)
	c.metrics.transactions.WithLabelValues(contractName, method, StatusSuccess).Inc()
	c.metrics.txDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	c.logger.Debug("Transaction mined",
		zap.String("contract", contractName),
		zap.String("method", method),
		zap.String("tx", h.Hex()),
		zap.Uint64("block", receipt.BlockNumber),
	)
	return receipt, nil
}

// View runs fn read-only against the latest state
func (c *Chain) View(fn func(env *Env) error) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if err := fn(c.newEnv(common.Address{}, common.Address{}, nil, true)); err != nil {
		return asVMError(err)
	}
	return nil
}

// CallView runs fn read-only inside the contract at addr
func (c *Chain) CallView(addr common.Address, fn func(env *Env, contract Contract) error) error {
	return c.View(func(env *Env) error {
		nested, contract, err := env.Call(addr)
		if err != nil {
			return err
		}
		return fn(nested, contract)
	})
}

// Deployments returns the addresses of every deployment of name, oldest first
func (c *Chain) Deployments(name string) []common.Address {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]common.Address, len(c.deployments[name]))
	copy(out, c.deployments[name])
	return out
}

// Latest returns the most recent deployment of name
func (c *Chain) Latest(name string) (Contract, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	addrs := c.deployments[name]
	if len(addrs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoDeployment, name)
	}
	return c.contracts[addrs[len(addrs)-1]], nil
}

// At returns the contract at addr
func (c *Chain) At(addr common.Address) (Contract, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	contract, ok := c.contracts[addr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownContract, addr.Hex())
	}
	return contract, nil
}

// DeploymentNames returns every contract name with at least one deployment
func (c *Chain) DeploymentNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	seen := make(map[string]bool)
	var names []string
	for _, addr := range c.order {
		name := c.contracts[addr].ContractName()
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

// TransactionReceipt returns the receipt of a mined transaction
func (c *Chain) TransactionReceipt(h common.Hash) (*Receipt, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.receipts[h]
	return r, ok
}

func (c *Chain) newEnv(sender, self common.Address, logs *[]Log, readOnly bool) *Env {
	block := c.block
	if !readOnly {
		block++
	}
	return &Env{
		chain:    c,
		sender:   sender,
		self:     self,
		block:    block,
		time:     uint64(c.now().Unix()),
		logs:     logs,
		readOnly: readOnly,
	}
}

func (c *Chain) mine(h common.Hash, from, to common.Address, method string, logs []Log) *Receipt {
	c.block++
	c.metrics.blockHeight.Set(float64(c.block))
	r := &Receipt{
		TxHash:      h,
		BlockNumber: c.block,
		From:        from,
		To:          to,
		Method:      method,
		Status:      ReceiptStatusSuccessful,
		Logs:        logs,
	}
	c.receipts[h] = r
	return r
}
