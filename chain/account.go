package chain

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"tokenfarm/internal/ethsign"
)

// SignerFn signs a transaction hash message on behalf of from
type SignerFn func(from common.Address, message string) ([]byte, error)

// TransactOpts selects the sender of a transaction
type TransactOpts struct {
	From   common.Address
	Signer SignerFn
}

// Account is an externally owned account with its signing key
type Account struct {
	Address common.Address
	ID      string // keystore id, empty for dev and raw-key accounts
	key     *ecdsa.PrivateKey
}

// NewAccount wraps a private key as an account
func NewAccount(key *ecdsa.PrivateKey) *Account {
	return &Account{
		Address: ethsign.PubKeyToAddress(&key.PublicKey),
		key:     key,
	}
}

// Opts returns transact options sending from a
func (a *Account) Opts() *TransactOpts {
	return &TransactOpts{From: a.Address, Signer: a.sign}
}

// PrivateKey returns the account key
func (a *Account) PrivateKey() *ecdsa.PrivateKey {
	return a.key
}

func (a *Account) String() string {
	return a.Address.Hex()
}

func (a *Account) sign(from common.Address, message string) ([]byte, error) {
	if from != a.Address {
		return nil, fmt.Errorf("account %s cannot sign for %s", a.Address.Hex(), from.Hex())
	}
	return ethsign.SignEthereumMessage(a.key, message)
}
