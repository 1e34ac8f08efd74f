package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"invariant-swap/pkg/client"
)

// SolanaConfig holds the wallet and RPC settings used to execute swaps
type SolanaConfig struct {
	RPCUrl        string
	PrivateKey    string
	Commitment    string
	SkipPreflight bool
}

// Config holds the application configuration
type Config struct {
	BaseURL          string
	LogLevel         string
	OrderStoragePath string
	Solana           SolanaConfig
}

var globalConfig *Config

// Load reads configuration from environment variables and config file
func Load() (*Config, error) {
	// .env files are optional
	_ = godotenv.Load()

	viper.SetConfigName(".invariant-swap")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME")
	viper.AddConfigPath(".")

	// Set default values
	viper.SetDefault("base_url", client.DefaultBaseURL)
	viper.SetDefault("log_level", "info")
	viper.SetDefault("order_storage_path", "")
	viper.SetDefault("solana.rpc_url", "https://api.mainnet-beta.solana.com")
	viper.SetDefault("solana.commitment", "confirmed")
	viper.SetDefault("solana.skip_preflight", false)

	// Read from environment variables
	viper.SetEnvPrefix("INVARIANT_SWAP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Read config file (optional)
	_ = viper.ReadInConfig()

	// Create config struct
	cfg := &Config{
		BaseURL:          viper.GetString("base_url"),
		LogLevel:         viper.GetString("log_level"),
		OrderStoragePath: viper.GetString("order_storage_path"),
		Solana: SolanaConfig{
			RPCUrl:        viper.GetString("solana.rpc_url"),
			PrivateKey:    viper.GetString("solana.private_key"),
			Commitment:    viper.GetString("solana.commitment"),
			SkipPreflight: viper.GetBool("solana.skip_preflight"),
		},
	}

	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("aggregator base URL not configured. Set INVARIANT_SWAP_BASE_URL or base_url in .invariant-swap.yaml")
	}

	globalConfig = cfg
	return cfg, nil
}

// Get returns the global configuration
func Get() *Config {
	if globalConfig == nil {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
			os.Exit(1)
		}
		return cfg
	}
	return globalConfig
}

// Set updates the global configuration
func Set(cfg *Config) {
	globalConfig = cfg
}
