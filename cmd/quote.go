package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"invariant-swap/config"
	"invariant-swap/pkg/client"
	"invariant-swap/pkg/parser"
	"invariant-swap/pkg/types"
)

var (
	quoteTwoHops      bool
	quoteInstructions bool
	quoteSenderAddr   string
)

var quoteCmd = &cobra.Command{
	Use:   "quote <amount> <token> to <token>",
	Short: "Get the best swap route without executing it",
	Long: `Ask the aggregator for the best route between two tokens and display it.

The aggregator builds the swap transaction for the configured wallet, so a
sender address is required. It comes from the configured private key, or
from --sender for a read-only lookup.

Examples:
  invariant-swap quote 1 SOL to USDC
  invariant-swap quote 100 USDC to SOL --two-hops
  invariant-swap quote 1 SOL to USDC --instructions
  invariant-swap quote 1 SOL to USDC --sender <address> --json`,
	Args: cobra.MinimumNArgs(1),
	Run:  runQuote,
}

func init() {
	rootCmd.AddCommand(quoteCmd)

	quoteCmd.Flags().BoolVar(&quoteTwoHops, "two-hops", false, "Cap the route at two hops")
	quoteCmd.Flags().BoolVar(&quoteInstructions, "instructions", false, "Request instruction groups instead of a transaction")
	quoteCmd.Flags().StringVar(&quoteSenderAddr, "sender", "", "Sender address (defaults to the configured wallet)")
}

func runQuote(cmd *cobra.Command, args []string) {
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

	sender, err := resolveSender(cfg, quoteSenderAddr)
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

	req := &types.SwapQuoteRequest{
		Sender:   sender,
		TokenIn:  tokenIn.Address,
		TokenOut: tokenOut.Address,
		AmountIn: swapReq.Amount,
		DexID:    types.DexInvariant,
	}
	if quoteTwoHops {
		req.Options = &types.QuoteOptions{ReduceToTwoHops: true}
	}

	// Get quote with spinner
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Fetching quote..."
		s.Start()
	}

	if quoteInstructions {
		quote, err := apiClient.GetSwapInstructions(ctx, req)
		if !jsonOutput {
			s.Stop()
		}
		if err != nil {
			printError(err)
			os.Exit(1)
		}

		if jsonOutput {
			printInstructionQuoteJSON(quote, swapReq, tokenIn, tokenOut)
		} else {
			displayInstructionQuote(quote, swapReq, tokenIn, tokenOut)
		}
		return
	}

	quote, err := apiClient.GetSwapTransaction(ctx, req)
	if !jsonOutput {
		s.Stop()
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		printTransactionQuoteJSON(quote, swapReq, tokenIn, tokenOut)
	} else {
		displayQuote(quote, swapReq, tokenIn, tokenOut)
	}
}

// resolveSender picks the sender address for quote requests, preferring an
// explicit override over the configured wallet key
func resolveSender(cfg *config.Config, override string) (solana.PublicKey, error) {
	if override != "" {
		pub, err := solana.PublicKeyFromBase58(override)
		if err != nil {
			return solana.PublicKey{}, fmt.Errorf("invalid sender address: %w", err)
		}
		return pub, nil
	}

	if cfg.Solana.PrivateKey == "" {
		return solana.PublicKey{}, fmt.Errorf("no sender address available. Configure solana.private_key or pass --sender")
	}

	key, err := solana.PrivateKeyFromBase58(cfg.Solana.PrivateKey)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid private key: %w", err)
	}
	return key.PublicKey(), nil
}

// resolveTokenPair looks up both swap legs against the aggregator token list
func resolveTokenPair(ctx context.Context, apiClient *client.SwapClient, in, out string, jsonOutput bool) (*types.TokenInfo, *types.TokenInfo, error) {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Resolving tokens..."
		s.Start()
		defer s.Stop()
	}

	tokenIn, err := apiClient.FindToken(ctx, in)
	if err != nil {
		return nil, nil, err
	}

	tokenOut, err := apiClient.FindToken(ctx, out)
	if err != nil {
		return nil, nil, err
	}

	return tokenIn, tokenOut, nil
}

func displayQuote(quote *types.TransactionQuote, swapReq *parser.SwapCommand, tokenIn, tokenOut *types.TokenInfo) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                     SWAP QUOTE")
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\n  From:            %s %s\n", swapReq.Amount, color.YellowString(tokenIn.Symbol))
	fmt.Printf("  To:              ~%s %s\n", formatAmount(quote.AmountOutUI), color.YellowString(tokenOut.Symbol))
	fmt.Printf("  Raw Amount Out:  %d\n", quote.AmountOut)

	displayRoutePlan(quote.RoutePlan, tokenIn, tokenOut)

	if len(quote.LookupAccounts) > 0 {
		fmt.Printf("  Lookup Tables:   %d\n", len(quote.LookupAccounts))
	}
	if len(quote.Signers) > 0 {
		fmt.Printf("  Extra Signers:   %d (applied)\n", len(quote.Signers))
	}

	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("\nTo execute this swap, run:")
	color.Cyan("  invariant-swap swap %s %s to %s\n", swapReq.Amount, tokenIn.Symbol, tokenOut.Symbol)
}

func displayInstructionQuote(quote *types.InstructionQuote, swapReq *parser.SwapCommand, tokenIn, tokenOut *types.TokenInfo) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                SWAP INSTRUCTIONS")
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\n  From:            %s %s\n", swapReq.Amount, color.YellowString(tokenIn.Symbol))
	fmt.Printf("  To:              ~%s %s\n", formatAmount(quote.AmountOutUI), color.YellowString(tokenOut.Symbol))

	displayRoutePlan(quote.RoutePlan, tokenIn, tokenOut)

	fmt.Printf("\n  Instruction Groups:\n")
	for _, group := range quote.Groups {
		fmt.Printf("    %-24s %d instruction(s), %d cleanup, %d signer(s)\n",
			color.CyanString(group.Name), len(group.Instructions), len(group.CleanupInstructions), len(group.Signers))
	}

	if len(quote.LookupAccounts) > 0 {
		fmt.Printf("\n  Lookup Tables:   %d\n", len(quote.LookupAccounts))
	}

	fmt.Println("\n" + strings.Repeat("=", 60) + "\n")
}

func displayRoutePlan(hops []types.RouteHop, tokenIn, tokenOut *types.TokenInfo) {
	if len(hops) == 0 {
		return
	}

	fmt.Printf("\n  Route Plan:\n")
	for i, hop := range hops {
		fmt.Printf("    %d. %s -> %s  (%s)\n",
			i+1,
			hopLabel(hop.TokenIn, tokenIn, tokenOut),
			hopLabel(hop.TokenOut, tokenIn, tokenOut),
			hop.DexID)
	}
}

// hopLabel prints a symbol for the swap endpoints and a shortened mint
// address for intermediate tokens
func hopLabel(mint solana.PublicKey, tokenIn, tokenOut *types.TokenInfo) string {
	if mint.Equals(tokenIn.Address) {
		return tokenIn.Symbol
	}
	if mint.Equals(tokenOut.Address) {
		return tokenOut.Symbol
	}
	return truncateString(mint.String(), 12)
}

func printTransactionQuoteJSON(quote *types.TransactionQuote, swapReq *parser.SwapCommand, tokenIn, tokenOut *types.TokenInfo) {
	output := map[string]interface{}{
		"amount_in":      swapReq.Amount,
		"token_in":       tokenIn.Symbol,
		"amount_out":     formatAmount(quote.AmountOutUI),
		"amount_out_raw": quote.AmountOut,
		"token_out":      tokenOut.Symbol,
		"route":          routePlanJSON(quote.RoutePlan),
		"lookup_tables":  len(quote.LookupAccounts),
		"status":         "quote_generated",
	}
	jsonData, _ := json.MarshalIndent(output, "", "  ")
	fmt.Println(string(jsonData))
}

func printInstructionQuoteJSON(quote *types.InstructionQuote, swapReq *parser.SwapCommand, tokenIn, tokenOut *types.TokenInfo) {
	groups := make([]map[string]interface{}, 0, len(quote.Groups))
	for _, group := range quote.Groups {
		groups = append(groups, map[string]interface{}{
			"name":                 group.Name,
			"instructions":         len(group.Instructions),
			"cleanup_instructions": len(group.CleanupInstructions),
			"signers":              len(group.Signers),
		})
	}

	output := map[string]interface{}{
		"amount_in":      swapReq.Amount,
		"token_in":       tokenIn.Symbol,
		"amount_out":     formatAmount(quote.AmountOutUI),
		"amount_out_raw": quote.AmountOut,
		"token_out":      tokenOut.Symbol,
		"route":          routePlanJSON(quote.RoutePlan),
		"groups":         groups,
		"lookup_tables":  len(quote.LookupAccounts),
	}
	jsonData, _ := json.MarshalIndent(output, "", "  ")
	fmt.Println(string(jsonData))
}

func routePlanJSON(hops []types.RouteHop) []map[string]string {
	route := make([]map[string]string, 0, len(hops))
	for _, hop := range hops {
		route = append(route, map[string]string{
			"token_in":  hop.TokenIn.String(),
			"token_out": hop.TokenOut.String(),
			"dex":       string(hop.DexID),
		})
	}
	return route
}

// formatAmount prints a UI amount without trailing zeros
func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
