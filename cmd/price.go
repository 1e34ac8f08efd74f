package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"invariant-swap/config"
	"invariant-swap/pkg/client"
	"invariant-swap/pkg/types"
)

var (
	watchPrice    bool
	watchInterval int
)

var priceCmd = &cobra.Command{
	Use:   "price <token>",
	Short: "Check the current price of a token",
	Long: `Check the aggregator's current price for a token, by symbol or by
mint address.

Examples:
  invariant-swap price SOL
  invariant-swap price EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v
  invariant-swap price SOL --watch
  invariant-swap price SOL --watch --interval 10`,
	Args: cobra.ExactArgs(1),
	Run:  runPrice,
}

func init() {
	rootCmd.AddCommand(priceCmd)

	priceCmd.Flags().BoolVarP(&watchPrice, "watch", "w", false, "Watch price updates continuously")
	priceCmd.Flags().IntVar(&watchInterval, "interval", 5, "Polling interval in seconds (when watching)")
}

func runPrice(cmd *cobra.Command, args []string) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	apiClient := newSwapClient(cfg, verbose)
	ctx := context.Background()

	// Resolve the token with spinner
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Resolving token..."
		s.Start()
	}

	token, err := apiClient.FindToken(ctx, args[0])
	if !jsonOutput {
		s.Stop()
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if watchPrice {
		watchTokenPrice(ctx, apiClient, token, jsonOutput)
	} else {
		checkTokenPrice(ctx, apiClient, token, jsonOutput)
	}
}

func checkTokenPrice(ctx context.Context, apiClient *client.SwapClient, token *types.TokenInfo, jsonOutput bool) {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Checking price..."
		s.Start()
	}

	price, err := apiClient.GetTokenPrice(ctx, token.Address)
	if !jsonOutput {
		s.Stop()
	}

	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		output := map[string]interface{}{
			"symbol":  token.Symbol,
			"address": token.Address.String(),
			"price":   formatAmount(price),
		}
		jsonData, _ := json.MarshalIndent(output, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	fmt.Printf("\n  1 %s = %s\n\n", color.YellowString(token.Symbol), color.GreenString(formatAmount(price)))
}

func watchTokenPrice(ctx context.Context, apiClient *client.SwapClient, token *types.TokenInfo, jsonOutput bool) {
	if jsonOutput {
		fmt.Println(`{"error": "watch mode not supported with JSON output"}`)
		os.Exit(1)
	}

	fmt.Printf("\nWatching price of %s (%s)\n", color.YellowString(token.Symbol), color.HiBlackString(token.Address.String()))
	fmt.Printf("Checking every %d seconds. Press Ctrl+C to stop.\n\n", watchInterval)

	ticker := time.NewTicker(time.Duration(watchInterval) * time.Second)
	defer ticker.Stop()

	// Check immediately first
	checkAndDisplayPrice(ctx, apiClient, token)

	// Then check periodically
	for range ticker.C {
		checkAndDisplayPrice(ctx, apiClient, token)
	}
}

func checkAndDisplayPrice(ctx context.Context, apiClient *client.SwapClient, token *types.TokenInfo) {
	price, err := apiClient.GetTokenPrice(ctx, token.Address)
	if err != nil {
		color.Red("[%s] Error: %v", time.Now().Format("15:04:05"), err)
		return
	}

	fmt.Printf("[%s]  %s  %s\n",
		time.Now().Format("15:04:05"),
		color.YellowString("%-8s", token.Symbol),
		color.GreenString(formatAmount(price)))
}
