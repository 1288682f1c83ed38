package shared

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// Compiled regexes for validation (compiled once for performance)
var (
	validNetworkRegex = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)
	validHexRegex     = regexp.MustCompile(`^[0-9a-fA-F]+$`)
)

// IsValidNetworkName checks if a network name contains only allowed characters
// Allows: alphanumeric, dots, hyphens, underscores
func IsValidNetworkName(name string) bool {
	if name == "" {
		return false
	}
	return validNetworkRegex.MatchString(name)
}

// IsValidHex checks if string is valid hex (either case)
func IsValidHex(s string) bool {
	if s == "" {
		return false
	}
	return validHexRegex.MatchString(s)
}

// IsLocalNetwork reports whether network runs on the in-process dev chain
func IsLocalNetwork(network string) bool {
	return slices.Contains(LocalBlockchainEnvironments, network)
}

// IsForkedNetwork reports whether network is a local fork of a live network
func IsForkedNetwork(network string) bool {
	return slices.Contains(ForkedLocalEnvironments, network)
}

// ValidateNetworkName validates a network name
func ValidateNetworkName(name string) error {
	if name == "" {
		return fmt.Errorf("network required")
	}
	if len(name) > MaxNetworkLength {
		return fmt.Errorf("network name too long: max %d chars, got %d", MaxNetworkLength, len(name))
	}
	if !IsValidNetworkName(name) {
		return fmt.Errorf("network name contains invalid characters (only alphanumeric, dots, hyphens, underscores allowed)")
	}
	return nil
}

// ValidateAddress validates a 0x-prefixed 20 byte hex address
func ValidateAddress(addr string) error {
	if addr == "" {
		return fmt.Errorf("address required")
	}
	if len(addr) != AddressLength {
		return fmt.Errorf("address must be %d characters, got %d", AddressLength, len(addr))
	}
	if !strings.HasPrefix(addr, "0x") && !strings.HasPrefix(addr, "0X") {
		return fmt.Errorf("address must start with '0x'")
	}
	if !IsValidHex(addr[2:]) {
		return fmt.Errorf("address contains invalid hex character")
	}
	return nil
}

// ValidatePrivateKeyHex validates a hex-encoded secp256k1 private key (optional 0x prefix)
func ValidatePrivateKeyHex(key string) error {
	key = strings.TrimPrefix(key, "0x")
	if len(key) != PrivateKeyLength {
		return fmt.Errorf("private key must be %d hex chars, got %d", PrivateKeyLength, len(key))
	}
	if !IsValidHex(key) {
		return fmt.Errorf("private key contains invalid hex character")
	}
	return nil
}
