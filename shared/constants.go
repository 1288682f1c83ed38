// Package shared contains configuration, constants and validation shared by the chain, scripts and CLI
package shared

const (
	// Network names
	NetworkDevelopment    = "development"
	NetworkGanacheLocal   = "ganache-local"
	NetworkGanache        = "ganache"
	NetworkMainnetFork    = "mainnet-fork"
	NetworkMainnetForkDev = "mainnet-fork-dev"
	DefaultNetwork        = NetworkDevelopment

	// Dev chain
	DevChainID       = 1337
	DevAccountCount  = 10
	MaxDevAccounts   = 100
	DevMnemonic      = "tokenfarm"
	MaxNetworkLength = 64

	// Key material
	PrivateKeyLength = 64 // 32 bytes hex-encoded
	AddressLength    = 42 // 0x + 20 bytes hex-encoded

	// Config defaults
	DefaultConfigFile = "farm-config.yaml"
	DefaultKeystore   = "keystore"
	DefaultStateFile  = "farm-state.json"
	DefaultPort       = "8080"

	// Environment variables
	EnvNetwork    = "FARM_NETWORK"
	EnvPrivateKey = "PRIVATE_KEY"
	EnvState      = "FARM_STATE"
	EnvConfig     = "FARM_CONFIG"
	EnvKeystorePW = "KEYSTORE_PASSWORD"
	EnvPort       = "PORT"
)

// LocalBlockchainEnvironments are networks backed by the in-process dev chain
var LocalBlockchainEnvironments = []string{
	NetworkDevelopment,
	NetworkGanacheLocal,
	NetworkGanache,
}

// ForkedLocalEnvironments are local forks of a live network
var ForkedLocalEnvironments = []string{
	NetworkMainnetFork,
	NetworkMainnetForkDev,
}
