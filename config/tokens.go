package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// TokenManifest lists the tokens the daemon binds at boot. Entries without a
// ledger integration run as in-process fixtures seeded with the listed supply.
type TokenManifest struct {
	Tokens []TokenEntry `yaml:"tokens"`
}

// TokenEntry describes one token binding.
type TokenEntry struct {
	Symbol   string `yaml:"symbol"`
	Decimals uint8  `yaml:"decimals"`
	// Address and FeedAddress are bech32 identities; generated when empty.
	Address     string `yaml:"address"`
	FeedAddress string `yaml:"feedAddress"`
	// PriceAnswer is the fixture feed's fixed answer, scaled by PriceDecimals.
	PriceAnswer   string `yaml:"priceAnswer"`
	PriceDecimals uint8  `yaml:"priceDecimals"`
	// Supply is minted to the owner account on fixture ledgers.
	Supply string `yaml:"supply"`
}

// LoadTokenManifest reads and validates the YAML manifest at path.
func LoadTokenManifest(path string) (*TokenManifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	manifest := &TokenManifest{}
	if err := yaml.Unmarshal(raw, manifest); err != nil {
		return nil, fmt.Errorf("config: token manifest: %w", err)
	}
	seen := make(map[string]struct{}, len(manifest.Tokens))
	for i, entry := range manifest.Tokens {
		symbol := strings.TrimSpace(entry.Symbol)
		if symbol == "" {
			return nil, fmt.Errorf("config: token manifest entry %d: symbol is required", i)
		}
		if _, ok := seen[symbol]; ok {
			return nil, fmt.Errorf("config: token manifest: duplicate symbol %q", symbol)
		}
		seen[symbol] = struct{}{}
		if strings.TrimSpace(entry.PriceAnswer) == "" {
			return nil, fmt.Errorf("config: token manifest entry %q: priceAnswer is required", symbol)
		}
	}
	return manifest, nil
}
