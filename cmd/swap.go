package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/spf13/cobra"

	"invariant-swap/config"
	"invariant-swap/pkg/client"
	"invariant-swap/pkg/parser"
	"invariant-swap/pkg/sender"
	"invariant-swap/pkg/types"
)

var (
	swapTwoHops bool
	noConfirm   bool
)

var swapCmd = &cobra.Command{
	Use:   "swap <amount> <token> to <token>",
	Short: "Swap tokens through the best available route",
	Long: `Swap tokens on Solana through the Invariant aggregator.

The aggregator returns a ready-to-send transaction for the best route. The
transaction is simulated against the configured RPC node before your wallet
signs and submits it. Routes that lock too many accounts are requoted
automatically with the route capped at two hops.

Requires a configured wallet (solana.private_key) and RPC node
(solana.rpc_url).

Examples:
  invariant-swap swap 1 SOL to USDC
  invariant-swap swap 100 USDC to SOL --two-hops
  invariant-swap swap 1 SOL to USDC --yes`,
	Args: cobra.MinimumNArgs(1),
	Run:  runSwap,
}

func init() {
	rootCmd.AddCommand(swapCmd)

	swapCmd.Flags().BoolVar(&swapTwoHops, "two-hops", false, "Cap the route at two hops")
	swapCmd.Flags().BoolVarP(&noConfirm, "yes", "y", false, "Skip confirmation prompt")
}

func runSwap(cmd *cobra.Command, args []string) {
	// Parse the command
	commandStr := strings.Join(args, " ")
	swapReq, err := parser.ParseSwapCommand(commandStr)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	// Create the wallet sender
	snd, err := sender.New(cfg.Solana)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	apiClient := newSwapClient(cfg, verbose)
	ctx := context.Background()

	tokenIn, tokenOut, err := resolveTokenPair(ctx, apiClient, swapReq.TokenIn, swapReq.TokenOut, jsonOutput)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if verbose {
		printWalletBalance(ctx, snd)
	}

	// Get quote with spinner
	quote, err := fetchSwapQuote(ctx, apiClient, snd, swapReq, tokenIn, tokenOut, swapTwoHops, jsonOutput)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	// Display quote
	if !jsonOutput {
		displayQuote(quote, swapReq, tokenIn, tokenOut)
	}

	// Ask for confirmation
	if !noConfirm && !jsonOutput {
		if !confirmSwap() {
			fmt.Println("\nSwap cancelled.")
			os.Exit(0)
		}
	}

	// Simulate before signing. A route that locks too many accounts gets
	// one retry with the route capped at two hops.
	outcome, simErr := simulateWithSpinner(ctx, apiClient, snd, quote, jsonOutput)
	if errors.Is(simErr, client.ErrTooManyAccountLocks) && !swapTwoHops {
		if !jsonOutput {
			color.Yellow("\nThe route locks too many accounts. Requoting with a two hop route...")
		}

		quote, err = fetchSwapQuote(ctx, apiClient, snd, swapReq, tokenIn, tokenOut, true, jsonOutput)
		if err != nil {
			printError(err)
			os.Exit(1)
		}
		outcome, simErr = simulateWithSpinner(ctx, apiClient, snd, quote, jsonOutput)
	}
	if simErr != nil {
		if verbose {
			printSimulationLogs(outcome)
		}
		printError(simErr)
		os.Exit(1)
	}
	if outcome != nil && outcome.Value != nil && outcome.Value.Err != nil {
		if verbose {
			printSimulationLogs(outcome)
		}
		printError(fmt.Errorf("simulation reported an error: %v", outcome.Value.Err))
		os.Exit(1)
	}

	if verbose {
		printSimulationLogs(outcome)
	}

	// Sign and submit
	if err := snd.SignRemaining(quote.Transaction); err != nil {
		printError(err)
		os.Exit(1)
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Submitting transaction..."
		s.Start()
	}

	sig, err := snd.Submit(ctx, quote.Transaction)
	if !jsonOutput {
		s.Stop()
	}

	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		output := map[string]interface{}{
			"signature":  sig.String(),
			"amount_in":  swapReq.Amount,
			"token_in":   tokenIn.Symbol,
			"amount_out": formatAmount(quote.AmountOutUI),
			"token_out":  tokenOut.Symbol,
			"status":     "submitted",
		}
		jsonData, _ := json.MarshalIndent(output, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	color.Green("\n✓ Swap submitted!")
	fmt.Printf("  Signature: %s\n", color.CyanString(sig.String()))
	fmt.Println("\nTrack the transaction at:")
	color.Cyan("  https://solscan.io/tx/%s\n\n", sig)
}

// fetchSwapQuote requests a swap transaction for the parsed command
func fetchSwapQuote(ctx context.Context, apiClient *client.SwapClient, snd *sender.Sender, swapReq *parser.SwapCommand, tokenIn, tokenOut *types.TokenInfo, twoHops, jsonOutput bool) (*types.TransactionQuote, error) {
	req := &types.SwapQuoteRequest{
		Sender:   snd.PublicKey(),
		TokenIn:  tokenIn.Address,
		TokenOut: tokenOut.Address,
		AmountIn: swapReq.Amount,
		DexID:    types.DexInvariant,
	}
	if twoHops {
		req.Options = &types.QuoteOptions{ReduceToTwoHops: true}
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Fetching quote..."
		s.Start()
		defer s.Stop()
	}

	return apiClient.GetSwapTransaction(ctx, req)
}

func simulateWithSpinner(ctx context.Context, apiClient *client.SwapClient, snd *sender.Sender, quote *types.TransactionQuote, jsonOutput bool) (*rpc.SimulateTransactionResponse, error) {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Simulating transaction..."
		s.Start()
		defer s.Stop()
	}

	return apiClient.SimulateTransaction(ctx, snd.RPC(), quote.Transaction)
}

func printWalletBalance(ctx context.Context, snd *sender.Sender) {
	balance, err := snd.Balance(ctx)
	if err != nil {
		fmt.Printf("\nDebug: failed to get wallet balance: %v\n", err)
		return
	}
	fmt.Printf("\nDebug: wallet %s holds %.9f SOL\n",
		snd.PublicKey(), float64(balance)/float64(solana.LAMPORTS_PER_SOL))
}

func printSimulationLogs(outcome *rpc.SimulateTransactionResponse) {
	if outcome == nil || outcome.Value == nil {
		return
	}
	if outcome.Value.UnitsConsumed != nil {
		fmt.Printf("\nDebug: simulation consumed %d compute units\n", *outcome.Value.UnitsConsumed)
	}
	for _, line := range outcome.Value.Logs {
		fmt.Printf("  %s\n", line)
	}
}

func confirmSwap() bool {
	reader := bufio.NewReader(os.Stdin)
	fmt.Print("\nProceed with swap? (y/N): ")

	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
