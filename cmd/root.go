package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"invariant-swap/config"
	"invariant-swap/pkg/client"
)

var rootCmd = &cobra.Command{
	Use:   "invariant-swap",
	Short: "A CLI for swapping Solana tokens through the Invariant aggregator",
	Long: `invariant-swap is a command-line tool for swapping tokens on Solana through
the Invariant swap aggregator. It asks the aggregator for the best route
across Invariant markets, simulates the returned transaction against an RPC
node, and submits it with your wallet.

Examples:
  invariant-swap quote 1 SOL to USDC
  invariant-swap swap 1 SOL to USDC --yes
  invariant-swap list-tokens
  invariant-swap price SOL --watch
  invariant-swap order create sol-dip --from USDC --to SOL --amount 100 --when-price "below 95"`,
	Version: "0.1.0",
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Add global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "Output in JSON format")
}

func printError(err error) {
	fmt.Printf("\nError: %v\n\n", err)
}

func printSuccess(message string) {
	fmt.Printf("\n%s\n\n", message)
}

// newLogger builds a console logger at the configured level. Verbose mode
// forces debug.
func newLogger(cfg *config.Config, verbose bool) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if verbose {
		level = zerolog.DebugLevel
	}

	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	return zerolog.New(writer).With().Timestamp().Logger().Level(level)
}

// newSwapClient builds an aggregator client from config. Verbose mode wires
// a debug logger into the client so every request is printed.
func newSwapClient(cfg *config.Config, verbose bool) *client.SwapClient {
	var opts []client.Option
	if verbose {
		opts = append(opts, client.WithLogger(newLogger(cfg, true)))
	}
	return client.NewSwapClient(cfg.BaseURL, opts...)
}
