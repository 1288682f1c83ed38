package crypto

import (
	"crypto/ecdsa"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Domain separator for dev account derivation
const DomainSeparatorDevAccount = "TOKENFARM_DEV_ACCOUNT_V1"

// KeyDerivation contains a parsed account key
type KeyDerivation struct {
	PrivateKey *ecdsa.PrivateKey
	Address    common.Address
}

// HexToBytes decodes hex string to bytes, accepting an optional 0x prefix
func HexToBytes(hexStr string) ([]byte, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(hexStr, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}
	return b, nil
}

// BytesToHex encodes bytes to hex string
func BytesToHex(b []byte) string {
	return hex.EncodeToString(b)
}

// DeriveKeys parses a secp256k1 private key and derives its Ethereum address
func DeriveKeys(privateKeyHex string) (*KeyDerivation, error) {
	privKeyBytes, err := HexToBytes(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid private key hex encoding: %w", err)
	}

	if len(privKeyBytes) != 32 {
		return nil, fmt.Errorf("invalid private key length: expected 32 bytes, got %d", len(privKeyBytes))
	}

	return keyFromBytes(privKeyBytes)
}

// DeriveDevKey derives the private key of dev account index from mnemonic.
// HMAC-SHA256(mnemonic, "TOKENFARM_DEV_ACCOUNT_V1" || uint32be(index))
func DeriveDevKey(mnemonic string, index int) (*KeyDerivation, error) {
	if mnemonic == "" {
		return nil, fmt.Errorf("mnemonic cannot be empty")
	}
	if index < 0 {
		return nil, fmt.Errorf("account index must be non-negative, got %d", index)
	}

	var idx [4]byte
	binary.BigEndian.PutUint32(idx[:], uint32(index))

	h := hmac.New(sha256.New, []byte(mnemonic))
	h.Write([]byte(DomainSeparatorDevAccount))
	h.Write(idx[:])

	return keyFromBytes(h.Sum(nil))
}

// LoadKeystore decrypts a web3 secret storage file
func LoadKeystore(path, password string) (*KeyDerivation, error) {
	keyJSON, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keystore: %w", err)
	}

	key, err := keystore.DecryptKey(keyJSON, password)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt keystore %s: %w", path, err)
	}

	return &KeyDerivation{
		PrivateKey: key.PrivateKey,
		Address:    key.Address,
	}, nil
}

func keyFromBytes(b []byte) (*KeyDerivation, error) {
	// btcec reduces modulo the curve order; only zero is unusable
	priv, _ := btcec.PrivKeyFromBytes(b)
	if priv.Key.IsZero() {
		return nil, fmt.Errorf("invalid private key: zero scalar")
	}

	key, err := ethcrypto.ToECDSA(priv.Serialize())
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	return &KeyDerivation{
		PrivateKey: key,
		Address:    ethcrypto.PubkeyToAddress(key.PublicKey),
	}, nil
}
