package chain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"

	"tokenfarm/internal/ethsign"
)

// Receipt is the outcome of a mined transaction
type Receipt struct {
	TxHash          common.Hash    `json:"tx_hash"`
	BlockNumber     uint64         `json:"block_number"`
	From            common.Address `json:"from"`
	To              common.Address `json:"to"`
	ContractAddress common.Address `json:"contract_address,omitempty"`
	Method          string         `json:"method"`
	Status          uint64         `json:"status"`
	Logs            []Log          `json:"logs"`
}

// Receipt statuses
const (
	ReceiptStatusFailed     = uint64(0)
	ReceiptStatusSuccessful = uint64(1)
)

// Events returns the logs named event
func (r *Receipt) Events(event string) []Log {
	var out []Log
	for _, l := range r.Logs {
		if l.Event == event {
			out = append(out, l)
		}
	}
	return out
}

// txData is the RLP-encoded payload whose keccak hash identifies a transaction.
// Arguments are encoded by their string form; rlp has no signed integers.
type txData struct {
	ChainID uint64
	Nonce   uint64
	From    common.Address
	To      common.Address
	Method  string
	Args    []string
}

func (tx *txData) hash() (common.Hash, error) {
	enc, err := rlp.EncodeToBytes(tx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to encode transaction: %w", err)
	}
	return ethcrypto.Keccak256Hash(enc), nil
}

// encodeArgs renders call arguments for hashing
func encodeArgs(args []any) []string {
	out := make([]string, len(args))
	for i, a := range args {
		switch v := a.(type) {
		case common.Address:
			out[i] = v.Hex()
		case *big.Int:
			if v == nil {
				out[i] = "<nil>"
			} else {
				out[i] = v.String()
			}
		case *uint256.Int:
			if v == nil {
				out[i] = "<nil>"
			} else {
				out[i] = v.Dec()
			}
		default:
			out[i] = fmt.Sprint(v)
		}
	}
	return out
}

// authorize signs tx with opts and checks the signature recovers to opts.From
func authorize(opts *TransactOpts, tx *txData) (common.Hash, error) {
	if opts == nil || opts.Signer == nil {
		return common.Hash{}, ErrNoSigner
	}
	h, err := tx.hash()
	if err != nil {
		return common.Hash{}, err
	}
	sig, err := opts.Signer(opts.From, h.Hex())
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}
	signer, err := ethsign.RecoverAddress(h.Hex(), sig)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: %v", ErrInvalidSender, err)
	}
	if signer != opts.From {
		return common.Hash{}, fmt.Errorf("%w: recovered %s, want %s", ErrInvalidSender, signer.Hex(), opts.From.Hex())
	}
	return h, nil
}
