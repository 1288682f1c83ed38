package commands

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tokenfarm/internal/logging"
	"tokenfarm/scripts"
	"tokenfarm/shared"
)

var (
	configPath string
	network    string
	statePath  string

	cfg      *shared.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	session  *scripts.Session
)

// skipSession marks commands that run without a chain session
const skipSession = "skip-session"

// Execute runs the farm CLI
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "farm",
		Short:         "Deploy and operate the token farm on the local dev chain",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			session = nil
			if _, ok := cmd.Annotations[skipSession]; ok {
				return nil
			}
			return setup()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if session == nil {
				return nil
			}
			defer logger.Sync() //nolint:errcheck
			return session.SaveState(statePath)
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $FARM_CONFIG or ./farm-config.yaml)")
	root.PersistentFlags().StringVar(&network, "network", "", "network to use (default $FARM_NETWORK or default_network)")
	root.PersistentFlags().StringVar(&statePath, "state", "", "chain state file (default $FARM_STATE or ./farm-state.json)")

	root.AddCommand(
		deployCmd(),
		issueTokensCmd(),
		stakeCmd(),
		unstakeCmd(),
		accountsCmd(),
		serveCmd(),
		versionCmd(),
	)
	return root
}

// setup loads config, logger and session, then restores persisted state
func setup() error {
	if configPath == "" {
		configPath = envOr(shared.EnvConfig, shared.DefaultConfigFile)
	}
	if statePath == "" {
		statePath = envOr(shared.EnvState, shared.DefaultStateFile)
	}

	var err error
	logger, err = logging.New()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	cfg, err = shared.LoadConfig(configPath)
	if err != nil {
		return err
	}

	registry = prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	active := cfg.ResolveNetwork(network)
	s, err := scripts.NewSession(cfg, active, logger, registry)
	if err != nil {
		return err
	}
	if _, err := s.LoadState(statePath); err != nil {
		return err
	}
	session = s
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
