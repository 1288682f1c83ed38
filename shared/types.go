package shared

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Config holds project configuration (the farm-config.yaml file)
type Config struct {
	DefaultNetwork string                   `yaml:"default_network" json:"default_network"`
	Networks       map[string]NetworkConfig `yaml:"networks" json:"networks"`
	Wallets        WalletsConfig            `yaml:"wallets" json:"-"`
	Keystore       KeystoreConfig           `yaml:"keystore" json:"-"`
	Dev            DevConfig                `yaml:"dev" json:"dev"`
}

// NetworkConfig holds per-network settings
type NetworkConfig struct {
	Verify    bool              `yaml:"verify" json:"verify"`
	Contracts map[string]string `yaml:"contracts,omitempty" json:"contracts,omitempty"` // name -> 0x address
}

// WalletsConfig holds signing keys for non-local networks
type WalletsConfig struct {
	FromKey string `yaml:"from_key"`
}

// KeystoreConfig locates encrypted account files loaded by id
type KeystoreConfig struct {
	Dir      string `yaml:"dir"`
	Password string `yaml:"password"`
}

// DevConfig configures the in-process dev chain
type DevConfig struct {
	Accounts int    `yaml:"accounts" json:"accounts"`
	Mnemonic string `yaml:"mnemonic" json:"-"`
	ChainID  uint64 `yaml:"chain_id" json:"chain_id"`
}

// DefaultConfig returns the configuration used when no config file exists
func DefaultConfig() *Config {
	return &Config{
		DefaultNetwork: DefaultNetwork,
		Networks: map[string]NetworkConfig{
			NetworkDevelopment:  {Verify: false},
			NetworkGanacheLocal: {Verify: false},
		},
		Keystore: KeystoreConfig{Dir: DefaultKeystore},
		Dev: DevConfig{
			Accounts: DevAccountCount,
			Mnemonic: DevMnemonic,
			ChainID:  DevChainID,
		},
	}
}

// LoadConfig reads path; a missing file yields DefaultConfig
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.ApplyEnv()
		return cfg, cfg.Validate()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses YAML config, expanding ${VAR} references from the environment
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// ApplyEnv fills secrets left empty by the file from the environment
func (c *Config) ApplyEnv() {
	if c.Wallets.FromKey == "" {
		c.Wallets.FromKey = os.Getenv(EnvPrivateKey)
	}
	if c.Keystore.Password == "" {
		c.Keystore.Password = os.Getenv(EnvKeystorePW)
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config is nil")
	}
	if err := ValidateNetworkName(c.DefaultNetwork); err != nil {
		return fmt.Errorf("default_network: %w", err)
	}
	if _, ok := c.Networks[c.DefaultNetwork]; !ok && !IsLocalNetwork(c.DefaultNetwork) {
		return fmt.Errorf("default_network %q is not configured", c.DefaultNetwork)
	}

	for _, name := range c.NetworkNames() {
		if err := ValidateNetworkName(name); err != nil {
			return fmt.Errorf("networks: %w", err)
		}
		for contract, addr := range c.Networks[name].Contracts {
			if err := ValidateAddress(addr); err != nil {
				return fmt.Errorf("networks.%s.contracts.%s: %w", name, contract, err)
			}
		}
	}

	if c.Wallets.FromKey != "" {
		if err := ValidatePrivateKeyHex(c.Wallets.FromKey); err != nil {
			return fmt.Errorf("wallets.from_key: %w", err)
		}
	}

	return c.Dev.Validate()
}

// Validate validates dev chain settings
func (d *DevConfig) Validate() error {
	if d.Accounts <= 0 || d.Accounts > MaxDevAccounts {
		return fmt.Errorf("dev.accounts must be between 1 and %d, got %d", MaxDevAccounts, d.Accounts)
	}
	if d.Mnemonic == "" {
		return fmt.Errorf("dev.mnemonic required")
	}
	if d.ChainID == 0 {
		return fmt.Errorf("dev.chain_id must be positive")
	}
	return nil
}

// NetworkNames returns configured network names in sorted order
func (c *Config) NetworkNames() []string {
	names := make([]string, 0, len(c.Networks))
	for name := range c.Networks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Network returns the settings for name; local networks default to an empty entry
func (c *Config) Network(name string) (NetworkConfig, bool) {
	nc, ok := c.Networks[name]
	if !ok && IsLocalNetwork(name) {
		return NetworkConfig{}, true
	}
	return nc, ok
}

// ContractAddress returns the configured address of contract on network
func (c *Config) ContractAddress(network, contract string) (string, error) {
	nc, ok := c.Networks[network]
	if !ok {
		return "", fmt.Errorf("network %q is not configured", network)
	}
	addr, ok := nc.Contracts[contract]
	if !ok || addr == "" {
		return "", fmt.Errorf("contract %q has no address on network %q", contract, network)
	}
	return addr, nil
}

// ResolveNetwork picks the active network: explicit flag, then FARM_NETWORK, then default_network
func (c *Config) ResolveNetwork(flag string) string {
	if flag != "" {
		return flag
	}
	if env := os.Getenv(EnvNetwork); env != "" {
		return env
	}
	return c.DefaultNetwork
}
