package shared

import (
	"strings"
	"testing"
)

// =============================================================================
// Network Name Validation Tests
// =============================================================================

func TestIsValidNetworkName(t *testing.T) {
	tests := []struct {
		name    string
		network string
		want    bool
	}{
		// Valid names
		{"development", "development", true},
		{"with hyphens", "ganache-local", true},
		{"with dots", "polygon.mumbai", true},
		{"with underscores", "mainnet_fork", true},
		{"uppercase", "Kovan", true},

		// Invalid names
		{"empty string", "", false},
		{"with spaces", "main net", false},
		{"with slash", "main/net", false},
		{"with colon", "http://x", false},
		{"with newline", "dev\nnet", false},
		{"unicode chars", "tëst", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidNetworkName(tt.network); got != tt.want {
				t.Errorf("IsValidNetworkName(%q) = %v, want %v", tt.network, got, tt.want)
			}
		})
	}
}

func TestValidateNetworkName(t *testing.T) {
	tests := []struct {
		name    string
		network string
		wantErr bool
		errMsg  string
	}{
		{"valid", "development", false, ""},
		{"empty", "", true, "network required"},
		{"too long", strings.Repeat("a", MaxNetworkLength+1), true, "too long"},
		{"max length", strings.Repeat("a", MaxNetworkLength), false, ""},
		{"invalid chars", "dev@net", true, "invalid characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNetworkName(tt.network)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateNetworkName(%q) error = %v, wantErr %v", tt.network, err, tt.wantErr)
				return
			}
			if tt.wantErr && !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("error = %q, want substring %q", err.Error(), tt.errMsg)
			}
		})
	}
}

func TestLocalAndForkedNetworks(t *testing.T) {
	for _, n := range LocalBlockchainEnvironments {
		if !IsLocalNetwork(n) {
			t.Errorf("IsLocalNetwork(%q) = false", n)
		}
		if IsForkedNetwork(n) {
			t.Errorf("IsForkedNetwork(%q) = true", n)
		}
	}
	for _, n := range ForkedLocalEnvironments {
		if !IsForkedNetwork(n) {
			t.Errorf("IsForkedNetwork(%q) = false", n)
		}
		if IsLocalNetwork(n) {
			t.Errorf("IsLocalNetwork(%q) = true", n)
		}
	}
	if IsLocalNetwork("kovan") {
		t.Error("kovan is not a local network")
	}
}

// =============================================================================
// Address / Key Validation Tests
// =============================================================================

func TestValidateAddress(t *testing.T) {
	tests := []struct {
		name    string
		addr    string
		wantErr bool
		errMsg  string
	}{
		{"valid lowercase", "0x5b3ebc3622dd75f0a680c2b7e4613ad813c72f82", false, ""},
		{"valid checksummed", "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", false, ""},
		{"empty", "", true, "address required"},
		{"too short", "0x123", true, "must be 42 characters"},
		{"too long", "0x5b3ebc3622dd75f0a680c2b7e4613ad813c72f82a", true, "must be 42 characters"},
		{"missing 0x", "5b3ebc3622dd75f0a680c2b7e4613ad813c72f8200", true, "must start with '0x'"},
		{"invalid hex", "0x5b3ebc3622dd75f0a680c2b7e4613ad813c72fGG", true, "invalid hex character"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAddress(tt.addr)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAddress(%q) error = %v, wantErr %v", tt.addr, err, tt.wantErr)
				return
			}
			if tt.wantErr && !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("error = %q, want substring %q", err.Error(), tt.errMsg)
			}
		})
	}
}

func TestValidatePrivateKeyHex(t *testing.T) {
	valid := "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{"valid", valid, false},
		{"valid with prefix", "0x" + valid, false},
		{"short", valid[:10], true},
		{"non hex", strings.Repeat("z", PrivateKeyLength), true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidatePrivateKeyHex(tt.key); (err != nil) != tt.wantErr {
				t.Errorf("ValidatePrivateKeyHex() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestIsValidHex(t *testing.T) {
	if !IsValidHex("deadBEEF") {
		t.Error("mixed case hex should be valid")
	}
	if IsValidHex("") {
		t.Error("empty string should be invalid")
	}
	if IsValidHex("0x12") {
		t.Error("prefix is not hex")
	}
}
