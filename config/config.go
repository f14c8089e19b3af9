package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"alsmadex/crypto"
)

// Config is the daemon configuration, loaded from TOML.
type Config struct {
	RPCAddress     string `toml:"RPCAddress"`
	MetricsAddress string `toml:"MetricsAddress"`
	DataDir        string `toml:"DataDir"`
	// Backend selects the embedded store: "leveldb" (default) or "bolt".
	Backend string `toml:"Backend"`
	// Owner is the bech32 address authorized for token registration and
	// treasury withdrawal.
	Owner string `toml:"Owner"`
	// ModuleAddress is the engine's own account on external token ledgers.
	ModuleAddress string `toml:"ModuleAddress"`
	// TokenManifest points at the YAML manifest of tokens to bind at boot.
	TokenManifest string `toml:"TokenManifest"`

	Environment string `toml:"Environment"`
	LogFile     string `toml:"LogFile"`

	Commission CommissionConfig `toml:"Commission"`
}

// CommissionConfig carries the commission curve, in basis points.
type CommissionConfig struct {
	BaseRateBps    uint64 `toml:"BaseRateBps"`
	MinRateBps     uint64 `toml:"MinRateBps"`
	MaxRateBps     uint64 `toml:"MaxRateBps"`
	StakerShareBps uint64 `toml:"StakerShareBps"`
}

// Load loads the configuration from the given path, creating a default file
// when none exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = ":8645"
	}
	if strings.TrimSpace(cfg.MetricsAddress) == "" {
		cfg.MetricsAddress = ":9464"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./data"
	}
	if strings.TrimSpace(cfg.Backend) == "" {
		cfg.Backend = "leveldb"
	}
	if strings.TrimSpace(cfg.Environment) == "" {
		cfg.Environment = "local"
	}
}

// Validate checks address fields and backend selection.
func (cfg *Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "leveldb", "bolt":
	default:
		return fmt.Errorf("config: unsupported backend %q", cfg.Backend)
	}
	if strings.TrimSpace(cfg.Owner) == "" {
		return fmt.Errorf("config: Owner is required")
	}
	if _, err := crypto.DecodeAddress(cfg.Owner); err != nil {
		return fmt.Errorf("config: invalid Owner address: %w", err)
	}
	if strings.TrimSpace(cfg.ModuleAddress) == "" {
		return fmt.Errorf("config: ModuleAddress is required")
	}
	if _, err := crypto.DecodeAddress(cfg.ModuleAddress); err != nil {
		return fmt.Errorf("config: invalid ModuleAddress: %w", err)
	}
	return nil
}

// OwnerAddress decodes the configured owner. Call Validate first.
func (cfg *Config) OwnerAddress() (crypto.Address, error) {
	return crypto.DecodeAddress(cfg.Owner)
}

// EngineAddress decodes the configured module account. Call Validate first.
func (cfg *Config) EngineAddress() (crypto.Address, error) {
	return crypto.DecodeAddress(cfg.ModuleAddress)
}

func createDefault(path string) (*Config, error) {
	ownerKey, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	moduleKey, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	cfg := &Config{
		Owner:         ownerKey.PubKey().Address().String(),
		ModuleAddress: moduleKey.PubKey().Address().String(),
	}
	applyDefaults(cfg)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
