package chain

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
)

// Factory rebuilds an empty contract of a given name at addr
type Factory func(name string, addr common.Address) (Contract, error)

// ContractState is the persisted form of a deployed contract
type ContractState struct {
	Name    string          `json:"name"`
	Address common.Address  `json:"address"`
	State   json.RawMessage `json:"state"`
}

// State is the full persisted chain state
type State struct {
	ChainID   uint64                    `json:"chain_id"`
	Block     uint64                    `json:"block"`
	Nonces    map[common.Address]uint64 `json:"nonces"`
	Contracts []ContractState           `json:"contracts"`
}

// Snapshot captures the full chain state
func (c *Chain) Snapshot() (*State, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	st := &State{
		ChainID: c.chainID,
		Block:   c.block,
		Nonces:  make(map[common.Address]uint64, len(c.nonces)),
	}
	for addr, n := range c.nonces {
		st.Nonces[addr] = n
	}
	for _, addr := range c.order {
		contract := c.contracts[addr]
		data, err := contract.MarshalState()
		if err != nil {
			return nil, fmt.Errorf("failed to snapshot %s at %s: %w", contract.ContractName(), addr.Hex(), err)
		}
		st.Contracts = append(st.Contracts, ContractState{
			Name:    contract.ContractName(),
			Address: addr,
			State:   data,
		})
	}
	return st, nil
}

// Restore replaces the chain state with st, rebuilding contracts with factory.
// Deployment history is rebuilt in the order contracts were deployed.
func (c *Chain) Restore(st *State, factory Factory) error {
	if st == nil {
		return fmt.Errorf("state is nil")
	}
	if st.ChainID != c.chainID {
		return fmt.Errorf("%w: state has %d, chain has %d", ErrChainIDMismatch, st.ChainID, c.chainID)
	}

	contracts := make(map[common.Address]Contract, len(st.Contracts))
	order := make([]common.Address, 0, len(st.Contracts))
	deployments := make(map[string][]common.Address)
	for _, cs := range st.Contracts {
		contract, err := factory(cs.Name, cs.Address)
		if err != nil {
			return fmt.Errorf("failed to rebuild %s at %s: %w", cs.Name, cs.Address.Hex(), err)
		}
		if err := contract.UnmarshalState(cs.State); err != nil {
			return fmt.Errorf("failed to restore %s at %s: %w", cs.Name, cs.Address.Hex(), err)
		}
		contracts[cs.Address] = contract
		order = append(order, cs.Address)
		deployments[cs.Name] = append(deployments[cs.Name], cs.Address)
	}

	nonces := make(map[common.Address]uint64, len(st.Nonces))
	for addr, n := range st.Nonces {
		nonces[addr] = n
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.block = st.Block
	c.nonces = nonces
	c.contracts = contracts
	c.order = order
	c.deployments = deployments
	c.receipts = make(map[common.Hash]*Receipt)
	c.metrics.blockHeight.Set(float64(c.block))
	return nil
}

// SaveState writes the chain state to path as JSON
func (c *Chain) SaveState(path string) error {
	st, err := c.Snapshot()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}
	return nil
}

// LoadState restores the chain state saved at path.
// A missing file leaves the chain untouched and reports false.
func (c *Chain) LoadState(path string, factory Factory) (bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read state: %w", err)
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return false, fmt.Errorf("failed to decode state: %w", err)
	}
	if err := c.Restore(&st, factory); err != nil {
		return false, err
	}
	return true, nil
}

// snapshotContracts captures every contract state for revert; caller holds the lock
func (c *Chain) snapshotContracts() (map[common.Address][]byte, error) {
	snap := make(map[common.Address][]byte, len(c.contracts))
	for addr, contract := range c.contracts {
		data, err := contract.MarshalState()
		if err != nil {
			return nil, fmt.Errorf("failed to snapshot %s: %w", contract.ContractName(), err)
		}
		snap[addr] = data
	}
	return snap, nil
}

func (c *Chain) restoreContracts(snap map[common.Address][]byte) error {
	for addr, data := range snap {
		if err := c.contracts[addr].UnmarshalState(data); err != nil {
			return fmt.Errorf("failed to restore %s: %w", addr.Hex(), err)
		}
	}
	return nil
}
