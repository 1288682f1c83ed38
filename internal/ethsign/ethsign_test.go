package ethsign

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

const testPrivateKey = "e0144cfbe97dcb2554ebf918b1ee12c1a51d4db1385aea75ec96d6632806bb2c"

func mustKey(t testing.TB, keyHex string) *ecdsa.PrivateKey {
	t.Helper()
	b, err := hex.DecodeString(keyHex)
	if err != nil {
		t.Fatalf("bad key hex: %v", err)
	}
	priv, _ := btcec.PrivKeyFromBytes(b)
	return priv.ToECDSA()
}

// ============================================================================
// Round-trip tests: sign, recover, compare
// ============================================================================

func TestSignAndRecover_RoundTrip(t *testing.T) {
	privKey, err := ecdsa.GenerateKey(btcec.S256(), rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	expected := PubKeyToAddress(&privKey.PublicKey)

	messages := []string{
		"hello world",
		"",
		"0x5e1f0c9ddbe3cb57b80c933fab5151627d7966fa",
		string(make([]byte, 1000)),
	}

	for i, message := range messages {
		t.Run(fmt.Sprintf("message_%d", i), func(t *testing.T) {
			sig, err := SignEthereumMessage(privKey, message)
			if err != nil {
				t.Fatalf("SignEthereumMessage failed: %v", err)
			}
			if len(sig) != SignatureLength {
				t.Fatalf("signature length = %d, want %d", len(sig), SignatureLength)
			}
			if v := sig[64]; v != 27 && v != 28 {
				t.Errorf("v = %d, want 27 or 28", v)
			}

			got, err := RecoverAddress(message, sig)
			if err != nil {
				t.Fatalf("RecoverAddress failed: %v", err)
			}
			if got != expected {
				t.Errorf("recovered %s, want %s", got.Hex(), expected.Hex())
			}
		})
	}
}

func TestRecoverAddress_WrongMessage(t *testing.T) {
	privKey := mustKey(t, testPrivateKey)
	sig, err := SignEthereumMessage(privKey, "original")
	if err != nil {
		t.Fatalf("SignEthereumMessage failed: %v", err)
	}

	got, err := RecoverAddress("tampered", sig)
	if err == nil && got == PubKeyToAddress(&privKey.PublicKey) {
		t.Error("tampered message recovered the signer address")
	}
}

func TestRecoverAddress_InvalidSignatures(t *testing.T) {
	privKey := mustKey(t, testPrivateKey)
	sig, _ := SignEthereumMessage(privKey, "msg")

	badV := append([]byte(nil), sig...)
	badV[64] = 29

	tests := []struct {
		name string
		sig  []byte
		want error
	}{
		{"empty", nil, ErrInvalidSignature},
		{"short", sig[:64], ErrInvalidSignature},
		{"bad v", badV, ErrInvalidSignature},
		{"zero r and s", append(make([]byte, 64), 27), ErrRecoveryFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := RecoverAddress("msg", tt.sig)
			if !errors.Is(err, tt.want) {
				t.Errorf("RecoverAddress() error = %v, want %v", err, tt.want)
			}
		})
	}
}

// ============================================================================
// tryRecoverPublicKey edge cases
// ============================================================================

func TestTryRecoverPublicKey_KnownKey(t *testing.T) {
	privKey := mustKey(t, testPrivateKey)
	keyBytes, _ := hex.DecodeString(testPrivateKey)
	_, btcPub := btcec.PrivKeyFromBytes(keyBytes)

	message := "test message for recovery"
	sig, err := SignEthereumMessage(privKey, message)
	if err != nil {
		t.Fatalf("SignEthereumMessage failed: %v", err)
	}

	r := new(big.Int).SetBytes(sig[0:32])
	s := new(big.Int).SetBytes(sig[32:64])
	recoveryID := sig[64] - 27

	// Independent hash computation
	prefix := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(prefix))
	messageHash := h.Sum(nil)

	if !bytes.Equal(messageHash, HashMessage(message)) {
		t.Fatalf("HashMessage mismatch")
	}

	recovered := tryRecoverPublicKey(messageHash, r, s, recoveryID)
	if recovered == nil {
		t.Fatal("expected recovery to succeed")
	}
	if !bytes.Equal(recovered.SerializeUncompressed(), btcPub.SerializeUncompressed()) {
		t.Errorf("recovered wrong public key")
	}

	wrong := tryRecoverPublicKey(messageHash, r, s, (recoveryID+1)%2)
	if wrong != nil && bytes.Equal(wrong.SerializeUncompressed(), btcPub.SerializeUncompressed()) {
		t.Error("wrong recovery ID recovered the correct public key")
	}
}

func TestTryRecoverPublicKey_Rejects(t *testing.T) {
	hash := HashMessage("x")
	one := big.NewInt(1)
	huge := new(big.Int).Lsh(big.NewInt(1), 300)

	tests := []struct {
		name       string
		hash       []byte
		r, s       *big.Int
		recoveryID byte
	}{
		{"short hash", hash[:31], one, one, 0},
		{"nil r", hash, nil, one, 0},
		{"zero s", hash, one, big.NewInt(0), 0},
		{"oversized r", hash, huge, one, 0},
		{"recovery id 2", hash, one, one, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tryRecoverPublicKey(tt.hash, tt.r, tt.s, tt.recoveryID); got != nil {
				t.Errorf("expected nil, got %x", got.SerializeCompressed())
			}
		})
	}
}

func TestSignEthereumMessage_Deterministic(t *testing.T) {
	privKey := mustKey(t, testPrivateKey)

	a, err := SignEthereumMessage(privKey, "same")
	if err != nil {
		t.Fatal(err)
	}
	b, err := SignEthereumMessage(privKey, "same")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Error("RFC6979 signatures should be deterministic")
	}
}

func TestSignEthereumMessage_NilKey(t *testing.T) {
	if _, err := SignEthereumMessage(nil, "m"); !errors.Is(err, ErrNilKey) {
		t.Errorf("error = %v, want ErrNilKey", err)
	}
}

func TestPubKeyToAddress_KnownVector(t *testing.T) {
	// Hardhat/Anvil account #0
	privKey := mustKey(t, "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80")
	want := common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	if got := PubKeyToAddress(&privKey.PublicKey); got != want {
		t.Errorf("PubKeyToAddress() = %s, want %s", got.Hex(), want.Hex())
	}
}

func BenchmarkRecoverAddress(b *testing.B) {
	privKey := mustKey(b, testPrivateKey)
	sig, _ := SignEthereumMessage(privKey, "bench")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = RecoverAddress("bench", sig)
	}
}
