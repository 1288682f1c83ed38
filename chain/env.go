package chain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Log is an event emitted during execution
type Log struct {
	Address common.Address `json:"address"`
	Event   string         `json:"event"`
	Args    map[string]any `json:"args"`
}

// Env is the execution environment handed to contract code.
// A nested Env from Call has the calling contract as its sender.
type Env struct {
	chain    *Chain
	sender   common.Address
	self     common.Address
	block    uint64
	time     uint64
	logs     *[]Log
	readOnly bool
}

// Sender is msg.sender
func (e *Env) Sender() common.Address { return e.sender }

// Self is the address of the executing contract
func (e *Env) Self() common.Address { return e.self }

// BlockNumber is the number of the block being executed
func (e *Env) BlockNumber() uint64 { return e.block }

// Timestamp is the block timestamp in unix seconds
func (e *Env) Timestamp() uint64 { return e.time }

// ReadOnly reports whether this is a view
func (e *Env) ReadOnly() bool { return e.readOnly }

// Require reverts with reason unless cond holds
func (e *Env) Require(cond bool, reason string) error {
	if cond {
		return nil
	}
	return e.Revert(reason)
}

// Revert aborts execution with reason
func (e *Env) Revert(reason string) error {
	vmErr := Revert(reason)
	vmErr.Address = e.self
	if c, ok := e.chain.contracts[e.self]; ok {
		vmErr.Contract = c.ContractName()
	}
	return vmErr
}

// Mutate guards a state change; views revert
func (e *Env) Mutate() error {
	if e.readOnly {
		return e.Revert(ErrReadOnly.Error())
	}
	return nil
}

// Emit appends an event to the transaction receipt; views drop events
func (e *Env) Emit(event string, args map[string]any) {
	if e.readOnly || e.logs == nil {
		return
	}
	*e.logs = append(*e.logs, Log{Address: e.self, Event: event, Args: args})
}

// Lookup returns the contract at addr
func (e *Env) Lookup(addr common.Address) (Contract, bool) {
	c, ok := e.chain.contracts[addr]
	return c, ok
}

// Call enters the contract at addr with the current contract as sender
func (e *Env) Call(addr common.Address) (*Env, Contract, error) {
	c, ok := e.chain.contracts[addr]
	if !ok {
		return nil, nil, e.Revert(fmt.Sprintf("call to non-contract %s", addr.Hex()))
	}
	nested := *e
	nested.sender = e.self
	nested.self = addr
	return &nested, c, nil
}
