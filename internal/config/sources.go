package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Sources holds the symbol allow-lists of the restricted asset classes.
type Sources struct {
	// Crypto maps a ticker to its display name.
	Crypto map[string]string `yaml:"crypto"`
	// Funds maps a fund symbol to the broker's fund identifier.
	Funds map[string]string `yaml:"funds"`
}

// DefaultSources returns the built-in allow-lists.
func DefaultSources() Sources {
	return Sources{
		Crypto: map[string]string{
			"BTC":  "ビットコイン",
			"ETH":  "イーサリアム",
			"XRP":  "リップル",
			"DOGE": "ドージコイン",
		},
		Funds: map[string]string{
			"S&P500": "JP90C000GKC6",
			"オルカン":   "JP90C000H1T1",
			"FANG+":  "JP90C000FZD4",
		},
	}
}

// LoadSources returns the allow-lists from path, or the defaults when path is empty.
// Sections missing from the file keep their defaults.
func LoadSources(path string) (Sources, error) {
	sources := DefaultSources()
	if path == "" {
		return sources, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Sources{}, fmt.Errorf("failed to read sources file: %w", err)
	}

	var override Sources
	if err := yaml.Unmarshal(data, &override); err != nil {
		return Sources{}, fmt.Errorf("failed to parse sources file %s: %w", path, err)
	}
	if len(override.Crypto) > 0 {
		sources.Crypto = override.Crypto
	}
	if len(override.Funds) > 0 {
		sources.Funds = override.Funds
	}
	return sources, nil
}
