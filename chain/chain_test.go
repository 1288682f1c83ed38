package chain

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// counter is a minimal contract used to exercise the chain
type counter struct {
	addr  common.Address
	Owner common.Address `json:"owner"`
	Value uint64         `json:"value"`
}

func (c *counter) Address() common.Address       { return c.addr }
func (c *counter) ContractName() string          { return "Counter" }
func (c *counter) MarshalState() ([]byte, error) { return json.Marshal(c) }
func (c *counter) UnmarshalState(data []byte) error {
	*c = counter{addr: c.addr}
	return json.Unmarshal(data, c)
}

func (c *counter) add(env *Env, n uint64) error {
	if err := env.Require(n > 0, "n must be positive"); err != nil {
		return err
	}
	c.Value += n
	env.Emit("Added", map[string]any{"n": n})
	return env.Require(c.Value < 100, "too big")
}

func counterFactory(name string, addr common.Address) (Contract, error) {
	if name != "Counter" {
		return nil, errors.New("unknown contract")
	}
	return &counter{addr: addr}, nil
}

func newTestChain(t *testing.T, opts ...Option) *Chain {
	t.Helper()
	c, err := New(opts...)
	require.NoError(t, err)
	return c
}

func deployCounter(t *testing.T, c *Chain, from *Account) *counter {
	t.Helper()
	contract, receipt, err := c.Deploy(from.Opts(), "Counter", func(env *Env) (Contract, error) {
		return &counter{addr: env.Self(), Owner: env.Sender()}, nil
	})
	require.NoError(t, err)
	require.Equal(t, ReceiptStatusSuccessful, receipt.Status)
	return contract.(*counter)
}

func addTx(c *Chain, from *Account, ctr *counter, n uint64) (*Receipt, error) {
	return c.Transact(from.Opts(), ctr.Address(), "add", []any{n}, func(env *Env) error {
		return ctr.add(env, n)
	})
}

func TestNew_DeterministicAccounts(t *testing.T) {
	a := newTestChain(t)
	b := newTestChain(t)

	require.Len(t, a.Accounts(), 10)
	for i := range a.Accounts() {
		assert.Equal(t, a.Accounts()[i].Address, b.Accounts()[i].Address)
	}
	assert.NotEqual(t, a.Accounts()[0].Address, a.Accounts()[1].Address)

	other := newTestChain(t, WithMnemonic("other"), WithAccounts(2))
	require.Len(t, other.Accounts(), 2)
	assert.NotEqual(t, a.Accounts()[0].Address, other.Accounts()[0].Address)
}

func TestNew_InvalidOptions(t *testing.T) {
	_, err := New(WithAccounts(0))
	assert.Error(t, err)
	_, err = New(WithChainID(0))
	assert.Error(t, err)
}

func TestAccount_OutOfRange(t *testing.T) {
	c := newTestChain(t, WithAccounts(3))
	_, err := c.Account(3)
	assert.ErrorIs(t, err, ErrAccountIndex)
	_, err = c.Account(-1)
	assert.ErrorIs(t, err, ErrAccountIndex)
}

func TestDeploy_CreateAddressAndHistory(t *testing.T) {
	c := newTestChain(t)
	owner, _ := c.Account(0)

	first := deployCounter(t, c, owner)
	second := deployCounter(t, c, owner)

	assert.Equal(t, ethcrypto.CreateAddress(owner.Address, 0), first.Address())
	assert.Equal(t, ethcrypto.CreateAddress(owner.Address, 1), second.Address())
	assert.Equal(t, owner.Address, first.Owner)
	assert.Equal(t, []common.Address{first.Address(), second.Address()}, c.Deployments("Counter"))
	assert.Equal(t, uint64(2), c.BlockNumber())

	latest, err := c.Latest("Counter")
	require.NoError(t, err)
	assert.Same(t, second, latest)

	_, err = c.Latest("Missing")
	assert.ErrorIs(t, err, ErrNoDeployment)
}

func TestTransact_MinesOneBlockAndEmitsLogs(t *testing.T) {
	c := newTestChain(t)
	owner, _ := c.Account(0)
	ctr := deployCounter(t, c, owner)

	receipt, err := addTx(c, owner, ctr, 5)
	require.NoError(t, err)

	assert.Equal(t, uint64(5), ctr.Value)
	assert.Equal(t, uint64(2), receipt.BlockNumber)
	assert.Equal(t, c.BlockNumber(), receipt.BlockNumber)
	require.Len(t, receipt.Events("Added"), 1)
	assert.Equal(t, ctr.Address(), receipt.Logs[0].Address)

	stored, ok := c.TransactionReceipt(receipt.TxHash)
	require.True(t, ok)
	assert.Same(t, receipt, stored)
}

func TestTransact_RevertRestoresState(t *testing.T) {
	c := newTestChain(t)
	owner, _ := c.Account(0)
	ctr := deployCounter(t, c, owner)

	_, err := addTx(c, owner, ctr, 10)
	require.NoError(t, err)
	block := c.BlockNumber()
	nonce := c.Nonce(owner.Address)

	// value is mutated before the final require fails
	_, err = addTx(c, owner, ctr, 95)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrVMError)
	assert.Equal(t, "too big", RevertReason(err))

	var vmErr *VMError
	require.ErrorAs(t, err, &vmErr)
	assert.Equal(t, "Counter", vmErr.Contract)
	assert.Equal(t, "add", vmErr.Method)

	assert.Equal(t, uint64(10), ctr.Value)
	assert.Equal(t, block, c.BlockNumber(), "reverted tx must not mine a block")
	assert.Equal(t, nonce+1, c.Nonce(owner.Address), "reverted tx still consumes a nonce")
}

func TestTransact_NonRevertErrorsSurfaceAsVMError(t *testing.T) {
	c := newTestChain(t)
	owner, _ := c.Account(0)

	_, err := c.Transact(owner.Opts(), common.HexToAddress("0x01"), "noop", nil, func(env *Env) error {
		return nil
	})
	assert.ErrorIs(t, err, ErrVMError)
	assert.ErrorIs(t, err, ErrUnknownContract)
}

func TestTransact_RejectsForgedSender(t *testing.T) {
	c := newTestChain(t)
	owner, _ := c.Account(0)
	attacker, _ := c.Account(1)
	ctr := deployCounter(t, c, owner)

	forged := &TransactOpts{
		From: owner.Address,
		Signer: func(_ common.Address, message string) ([]byte, error) {
			return attacker.sign(attacker.Address, message)
		},
	}
	_, err := c.Transact(forged, ctr.Address(), "add", []any{uint64(1)}, func(env *Env) error {
		return ctr.add(env, 1)
	})
	assert.ErrorIs(t, err, ErrInvalidSender)
	assert.NotErrorIs(t, err, ErrVMError)
	assert.Equal(t, uint64(0), ctr.Value)
	assert.Equal(t, uint64(0), c.Nonce(owner.Address))

	_, err = c.Transact(&TransactOpts{From: owner.Address}, ctr.Address(), "add", nil, nil)
	assert.ErrorIs(t, err, ErrNoSigner)
}

func TestView_ReadOnly(t *testing.T) {
	c := newTestChain(t)
	owner, _ := c.Account(0)
	ctr := deployCounter(t, c, owner)

	err := c.CallView(ctr.Address(), func(env *Env, contract Contract) error {
		assert.True(t, env.ReadOnly())
		return env.Mutate()
	})
	assert.ErrorIs(t, err, ErrVMError)

	err = c.View(func(env *Env) error {
		return env.Revert("nope")
	})
	assert.Equal(t, "nope", RevertReason(err))
}

func TestEnv_CallSetsSender(t *testing.T) {
	c := newTestChain(t)
	owner, _ := c.Account(0)
	a := deployCounter(t, c, owner)
	b := deployCounter(t, c, owner)

	_, err := c.Transact(owner.Opts(), a.Address(), "forward", nil, func(env *Env) error {
		nested, contract, err := env.Call(b.Address())
		if err != nil {
			return err
		}
		assert.Equal(t, a.Address(), nested.Sender())
		assert.Equal(t, b.Address(), nested.Self())
		return contract.(*counter).add(nested, 1)
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), b.Value)
}

func TestSaveAndLoadState(t *testing.T) {
	c := newTestChain(t)
	owner, _ := c.Account(0)
	ctr := deployCounter(t, c, owner)
	_, err := addTx(c, owner, ctr, 7)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, c.SaveState(path))

	restored := newTestChain(t)
	ok, err := restored.LoadState(path, counterFactory)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, c.BlockNumber(), restored.BlockNumber())
	assert.Equal(t, c.Nonce(owner.Address), restored.Nonce(owner.Address))
	latest, err := restored.Latest("Counter")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), latest.(*counter).Value)
	assert.Equal(t, ctr.Address(), latest.Address())

	// next deployment continues from the persisted nonce
	next := deployCounter(t, restored, owner)
	assert.Equal(t, ethcrypto.CreateAddress(owner.Address, 2), next.Address())

	ok, err = newTestChain(t).LoadState(filepath.Join(t.TempDir(), "absent.json"), counterFactory)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = newTestChain(t, WithChainID(5)).LoadState(path, counterFactory)
	assert.ErrorIs(t, err, ErrChainIDMismatch)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := newTestChain(t, WithRegisterer(reg), WithClock(func() time.Time { return time.Unix(1700000000, 0) }))
	owner, _ := c.Account(0)
	ctr := deployCounter(t, c, owner)

	_, err := addTx(c, owner, ctr, 1)
	require.NoError(t, err)
	_, err = addTx(c, owner, ctr, 0)
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.metrics.deployments.WithLabelValues("Counter")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.metrics.transactions.WithLabelValues("Counter", "add", StatusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.metrics.transactions.WithLabelValues("Counter", "add", StatusReverted)))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.metrics.blockHeight))
}

func TestVMErrorMessage(t *testing.T) {
	assert.Equal(t, "VirtualMachineError: revert", (&VMError{}).Error())
	assert.Equal(t, "VirtualMachineError: revert: Amount must be more than 0", Revert("Amount must be more than 0").Error())
	assert.Empty(t, RevertReason(errors.New("plain")))
}
