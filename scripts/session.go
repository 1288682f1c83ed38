// Package scripts holds the deployment and operation scripts for the token
// farm: account and contract resolution, deployment, token issuance and
// staking, run against a Session.
package scripts

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"tokenfarm/chain"
	"tokenfarm/contracts"
	"tokenfarm/shared"
)

// ErrLiveNetwork signals a network that needs an RPC backend
var ErrLiveNetwork = errors.New("network is not backed by the local chain")

// Session is the active network: its chain, configuration and logger
type Session struct {
	Chain   *chain.Chain
	Config  *shared.Config
	Network string
	Logger  *zap.Logger
}

// NewSession starts a dev chain for a local network
func NewSession(cfg *shared.Config, network string, logger *zap.Logger, reg prometheus.Registerer) (*Session, error) {
	if cfg == nil {
		cfg = shared.DefaultConfig()
	}
	if err := shared.ValidateNetworkName(network); err != nil {
		return nil, err
	}
	if !shared.IsLocalNetwork(network) {
		return nil, fmt.Errorf("%w: %s", ErrLiveNetwork, network)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c, err := chain.New(
		chain.WithAccounts(cfg.Dev.Accounts),
		chain.WithMnemonic(cfg.Dev.Mnemonic),
		chain.WithChainID(cfg.Dev.ChainID),
		chain.WithLogger(logger.Named("chain")),
		chain.WithRegisterer(reg),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start dev chain: %w", err)
	}
	return NewSessionWithChain(c, cfg, network, logger), nil
}

// NewSessionWithChain binds an existing chain to network
func NewSessionWithChain(c *chain.Chain, cfg *shared.Config, network string, logger *zap.Logger) *Session {
	if cfg == nil {
		cfg = shared.DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		Chain:   c,
		Config:  cfg,
		Network: network,
		Logger:  logger.With(zap.String("network", network)),
	}
}

// IsLocal reports whether mocks are deployed on demand
func (s *Session) IsLocal() bool {
	return shared.IsLocalNetwork(s.Network)
}

// LoadState restores chain state persisted by an earlier run
func (s *Session) LoadState(path string) (bool, error) {
	if path == "" {
		return false, nil
	}
	loaded, err := s.Chain.LoadState(path, contracts.Factory)
	if err != nil {
		return false, err
	}
	if loaded {
		s.Logger.Debug("Loaded chain state", zap.String("path", path), zap.Uint64("block", s.Chain.BlockNumber()))
	}
	return loaded, nil
}

// SaveState persists chain state for later runs
func (s *Session) SaveState(path string) error {
	if path == "" {
		return nil
	}
	if err := s.Chain.SaveState(path); err != nil {
		return err
	}
	s.Logger.Debug("Saved chain state", zap.String("path", path), zap.Uint64("block", s.Chain.BlockNumber()))
	return nil
}
