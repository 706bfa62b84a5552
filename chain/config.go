// config.go - Configuration management for the ledger core.

package chain

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Tritonn204/zkledger/digest"
)

// Config holds the tunable ledger settings.
type Config struct {
	// Difficulty is the required number of leading zero bits in a block
	// hash. Values near 256 make mining effectively unbounded.
	Difficulty uint32 `json:"difficulty"`

	// HashAlgo selects the digest algorithm for block and Merkle hashing.
	HashAlgo string `json:"hash_algo"`

	// MaxPendingTransactions caps the pending queue; 0 means unlimited.
	MaxPendingTransactions int `json:"max_pending_transactions"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Difficulty:             8,
		HashAlgo:               digest.DefaultAlgo,
		MaxPendingTransactions: 1000,
	}
}

// Validate checks the configuration for usable values.
func (c Config) Validate() error {
	if c.Difficulty > 256 {
		return fmt.Errorf("difficulty must be at most 256, got %d", c.Difficulty)
	}
	if _, err := digest.New(c.HashAlgo); err != nil {
		return err
	}
	if c.MaxPendingTransactions < 0 {
		return fmt.Errorf("max_pending_transactions must not be negative, got %d", c.MaxPendingTransactions)
	}
	return nil
}

// LoadConfig loads configuration from file, creating the file with defaults
// when it does not exist yet.
func LoadConfig(path string) (Config, error) {
	if _, err := os.Stat(path); err == nil {
		file, err := os.Open(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to open config file: %w", err)
		}
		defer file.Close()

		var config Config
		if err := json.NewDecoder(file).Decode(&config); err != nil {
			return Config{}, fmt.Errorf("failed to decode config file: %w", err)
		}
		return config, nil
	}

	config := DefaultConfig()
	if err := SaveConfig(config, path); err != nil {
		return Config{}, fmt.Errorf("failed to save default config: %w", err)
	}
	return config, nil
}

// SaveConfig saves configuration to file, creating parent directories as
// needed.
func SaveConfig(config Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}
