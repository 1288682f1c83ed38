// Package ethsign implements EIP-191 personal_sign signatures over secp256k1
// and the matching public key recovery. The dev chain uses it to authenticate
// the sender of every transaction.
package ethsign

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
	btcecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// SignatureLength is the size of an [R || S || V] signature.
const SignatureLength = 65

var (
	// ErrNilKey signals that a nil private key was supplied
	ErrNilKey = errors.New("private key is nil")
	// ErrInvalidSignature signals a signature that is not 65 bytes or has a bad V
	ErrInvalidSignature = errors.New("invalid signature")
	// ErrRecoveryFailed signals that no public key could be recovered
	ErrRecoveryFailed = errors.New("public key recovery failed")
)

// HashMessage returns keccak256("\x19Ethereum Signed Message:\n" + len(message) + message)
func HashMessage(message string) []byte {
	prefix := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(prefix))
	return h.Sum(nil)
}

// SignEthereumMessage signs message with the EIP-191 prefix.
// The result is [R || S || V] with V in {27, 28}, the layout eth_sign returns.
func SignEthereumMessage(privKey *ecdsa.PrivateKey, message string) ([]byte, error) {
	if privKey == nil || privKey.D == nil {
		return nil, ErrNilKey
	}

	key, _ := btcec.PrivKeyFromBytes(privKey.D.FillBytes(make([]byte, 32)))

	// SignCompact returns [V || R || S] with V = 27 + recoveryID for uncompressed keys
	compact := btcecdsa.SignCompact(key, HashMessage(message), false)
	if len(compact) != SignatureLength {
		return nil, fmt.Errorf("signing failed: unexpected signature length %d", len(compact))
	}

	sig := make([]byte, SignatureLength)
	copy(sig[0:64], compact[1:65])
	sig[64] = compact[0]
	return sig, nil
}

// RecoverAddress returns the address that produced sig over message.
func RecoverAddress(message string, sig []byte) (common.Address, error) {
	if len(sig) != SignatureLength {
		return common.Address{}, fmt.Errorf("%w: length %d", ErrInvalidSignature, len(sig))
	}
	v := sig[64]
	if v != 27 && v != 28 {
		return common.Address{}, fmt.Errorf("%w: v = %d", ErrInvalidSignature, v)
	}

	r := new(big.Int).SetBytes(sig[0:32])
	s := new(big.Int).SetBytes(sig[32:64])

	pub := tryRecoverPublicKey(HashMessage(message), r, s, v-27)
	if pub == nil {
		return common.Address{}, ErrRecoveryFailed
	}
	return PubKeyToAddress(pub.ToECDSA()), nil
}

// PubKeyToAddress derives the Ethereum address of a secp256k1 public key.
func PubKeyToAddress(pub *ecdsa.PublicKey) common.Address {
	key, err := publicKeyFromECDSA(pub)
	if err != nil {
		return common.Address{}
	}
	uncompressed := key.SerializeUncompressed()

	h := sha3.NewLegacyKeccak256()
	h.Write(uncompressed[1:])
	return common.BytesToAddress(h.Sum(nil)[12:])
}

// tryRecoverPublicKey recovers the signing key for hash, or nil when r, s
// and recoveryID do not describe a valid signature.
func tryRecoverPublicKey(hash []byte, r, s *big.Int, recoveryID byte) *btcec.PublicKey {
	if len(hash) != 32 || recoveryID > 1 {
		return nil
	}
	if r == nil || s == nil || r.Sign() <= 0 || s.Sign() <= 0 {
		return nil
	}
	if r.BitLen() > 256 || s.BitLen() > 256 {
		return nil
	}

	compact := make([]byte, SignatureLength)
	compact[0] = 27 + recoveryID
	r.FillBytes(compact[1:33])
	s.FillBytes(compact[33:65])

	pub, _, err := btcecdsa.RecoverCompact(compact, hash)
	if err != nil {
		return nil
	}
	return pub
}

func publicKeyFromECDSA(pub *ecdsa.PublicKey) (*btcec.PublicKey, error) {
	if pub == nil || pub.X == nil || pub.Y == nil {
		return nil, ErrNilKey
	}
	var x, y btcec.FieldVal
	if overflow := x.SetByteSlice(pub.X.Bytes()); overflow {
		return nil, fmt.Errorf("public key x coordinate overflows field")
	}
	if overflow := y.SetByteSlice(pub.Y.Bytes()); overflow {
		return nil, fmt.Errorf("public key y coordinate overflows field")
	}
	return btcec.NewPublicKey(&x, &y), nil
}
