package scripts

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Front end export layout, relative to the front end source dir
const (
	ChainInfoDir   = "chain-info"
	DeploymentsMap = "chain-info/deployments/map.json"
	ManifestFile   = "chain-info/manifest.json"
	ConfigJSONFile = "farm-config.json"
)

// DeploymentMap is chain id -> contract name -> addresses, newest first
type DeploymentMap map[string]map[string][]string

// Manifest describes one front end export
type Manifest struct {
	RunID       string    `json:"run_id"`
	ChainID     uint64    `json:"chain_id"`
	Network     string    `json:"network"`
	Block       uint64    `json:"block"`
	GeneratedAt time.Time `json:"generated_at"`
}

// UpdateFrontEnd exports deployments and config for the front end in dir.
// Entries of other chains already present in the map are kept.
func UpdateFrontEnd(s *Session, dir string) (*Manifest, error) {
	mapPath := filepath.Join(dir, DeploymentsMap)
	if err := os.MkdirAll(filepath.Dir(mapPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", filepath.Dir(mapPath), err)
	}

	deployments := make(DeploymentMap)
	if data, err := os.ReadFile(mapPath); err == nil {
		if err := json.Unmarshal(data, &deployments); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", mapPath, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read %s: %w", mapPath, err)
	}

	chainKey := strconv.FormatUint(s.Chain.ChainID(), 10)
	current := make(map[string][]string)
	for _, name := range s.Chain.DeploymentNames() {
		addrs := s.Chain.Deployments(name)
		slices.Reverse(addrs)
		hexes := make([]string, len(addrs))
		for i, a := range addrs {
			hexes[i] = a.Hex()
		}
		current[name] = hexes
	}
	deployments[chainKey] = current

	if err := writeJSON(mapPath, deployments); err != nil {
		return nil, err
	}
	if err := writeJSON(filepath.Join(dir, ConfigJSONFile), s.Config); err != nil {
		return nil, err
	}

	manifest := &Manifest{
		RunID:       uuid.NewString(),
		ChainID:     s.Chain.ChainID(),
		Network:     s.Network,
		Block:       s.Chain.BlockNumber(),
		GeneratedAt: time.Now().UTC(),
	}
	if err := writeJSON(filepath.Join(dir, ManifestFile), manifest); err != nil {
		return nil, err
	}

	s.Logger.Info("Front end updated!", zap.String("dir", dir), zap.String("run_id", manifest.RunID))
	return manifest, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
