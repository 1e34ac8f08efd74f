package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"invariant-swap/config"
	"invariant-swap/pkg/order"
	"invariant-swap/pkg/sender"
)

var (
	// Order creation flags
	orderFrom       string
	orderTo         string
	orderAmount     string
	orderWhenPrice  string
	orderWatchToken string
	orderTwoHops    bool

	// Order list flags
	orderStatusFilter string

	// Order run flags
	runInterval int
)

var orderCmd = &cobra.Command{
	Use:   "order",
	Short: "Manage limit orders",
	Long: `Create and manage limit orders that swap automatically when a token's
price crosses a target.

Limit orders let you set up strategies like:
- Sell 10 SOL when SOL goes above 250
- Buy SOL with 100 USDC when SOL drops below 95

Orders are persisted across restarts. Run 'invariant-swap order run' to
watch and execute armed orders.`,
}

var orderCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new limit order",
	Long: `Create a new limit order. The order starts paused; arm it with
'order start'.

By default the price of the input token is watched. Use --watch-token to
trigger on another token, for example the one you are buying.

Examples:
  # Sell 10 SOL for USDC when SOL goes above 250
  invariant-swap order create sol-high \
    --from SOL --to USDC --amount 10 \
    --when-price "above 250"

  # Buy SOL with 100 USDC when SOL drops below 95
  invariant-swap order create sol-dip \
    --from USDC --to SOL --amount 100 \
    --when-price "below 95" --watch-token SOL`,
	Args: cobra.ExactArgs(1),
	Run:  runOrderCreate,
}

var orderListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all limit orders",
	Long: `Display all limit orders with their current status.

Examples:
  invariant-swap order list
  invariant-swap order list --status active
  invariant-swap order list --json`,
	Run: runOrderList,
}

var orderViewCmd = &cobra.Command{
	Use:   "view <name>",
	Short: "View details of a limit order",
	Long: `Display detailed information about a limit order, including its fill
once executed.

Examples:
  invariant-swap order view sol-dip
  invariant-swap order view sol-dip --json`,
	Args: cobra.ExactArgs(1),
	Run:  runOrderView,
}

var orderStartCmd = &cobra.Command{
	Use:   "start <name>",
	Short: "Arm a limit order for execution",
	Long: `Arm a paused or failed limit order. Armed orders are watched and
executed by 'order run'.

Examples:
  invariant-swap order start sol-dip`,
	Args: cobra.ExactArgs(1),
	Run:  runOrderStart,
}

var orderPauseCmd = &cobra.Command{
	Use:   "pause <name>",
	Short: "Pause an armed limit order",
	Long: `Pause an armed limit order. The order can be re-armed later with
'order start'.

Examples:
  invariant-swap order pause sol-dip`,
	Args: cobra.ExactArgs(1),
	Run:  runOrderPause,
}

var orderCancelCmd = &cobra.Command{
	Use:   "cancel <name>",
	Short: "Cancel a limit order",
	Long: `Cancel a limit order that has not filled yet. Cancelled orders cannot
be re-armed.

Examples:
  invariant-swap order cancel sol-dip`,
	Args: cobra.ExactArgs(1),
	Run:  runOrderCancel,
}

var orderDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a limit order",
	Long: `Permanently remove a limit order.

Note: Armed orders must be paused or cancelled before deletion.

Examples:
  invariant-swap order delete sol-dip`,
	Args: cobra.ExactArgs(1),
	Run:  runOrderDelete,
}

var orderRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Watch and execute armed limit orders",
	Long: `Start a foreground watcher that polls token prices and executes armed
limit orders when their trigger price is reached.

The watcher:
- Reloads the order file every pass, so orders created, armed, or paused
  in another terminal are picked up without a restart
- Fetches each watched token's price once per pass
- Quotes, simulates, signs, and submits triggered orders
- Requotes with a two hop route when a route locks too many accounts
- Stops gracefully on Ctrl+C

Requires a configured wallet (solana.private_key) and RPC node
(solana.rpc_url).

Examples:
  # Run in the foreground
  invariant-swap order run

  # Poll every 10 seconds instead of 30
  invariant-swap order run --interval 10

  # Run in the background (Linux/Mac)
  nohup invariant-swap order run > ~/invariant-swap-orders.log 2>&1 &`,
	Run: runOrderRun,
}

func init() {
	rootCmd.AddCommand(orderCmd)

	// Add subcommands
	orderCmd.AddCommand(orderCreateCmd)
	orderCmd.AddCommand(orderListCmd)
	orderCmd.AddCommand(orderViewCmd)
	orderCmd.AddCommand(orderStartCmd)
	orderCmd.AddCommand(orderPauseCmd)
	orderCmd.AddCommand(orderCancelCmd)
	orderCmd.AddCommand(orderDeleteCmd)
	orderCmd.AddCommand(orderRunCmd)

	// Create command flags
	orderCreateCmd.Flags().StringVar(&orderFrom, "from", "", "Input token symbol or mint address")
	orderCreateCmd.Flags().StringVar(&orderTo, "to", "", "Output token symbol or mint address")
	orderCreateCmd.Flags().StringVar(&orderAmount, "amount", "", "Amount of the input token to swap")
	orderCreateCmd.Flags().StringVar(&orderWhenPrice, "when-price", "", "Price trigger condition (e.g., 'above 250', 'below 95')")
	orderCreateCmd.Flags().StringVar(&orderWatchToken, "watch-token", "", "Token whose price triggers the order (defaults to the input token)")
	orderCreateCmd.Flags().BoolVar(&orderTwoHops, "two-hops", false, "Always request routes capped at two hops")

	orderCreateCmd.MarkFlagRequired("from")
	orderCreateCmd.MarkFlagRequired("to")
	orderCreateCmd.MarkFlagRequired("amount")
	orderCreateCmd.MarkFlagRequired("when-price")

	// List command flags
	orderListCmd.Flags().StringVar(&orderStatusFilter, "status", "", "Filter by status (active, paused, filled, cancelled, failed)")

	// Run command flags
	orderRunCmd.Flags().IntVar(&runInterval, "interval", 30, "Price polling interval in seconds")
}

func runOrderCreate(cmd *cobra.Command, args []string) {
	orderName := args[0]
	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	// Parse price condition
	condition, price, err := parsePriceCondition(orderWhenPrice)
	if err != nil {
		printError(fmt.Errorf("invalid price condition: %w", err))
		os.Exit(1)
	}

	amount, err := decimal.NewFromString(orderAmount)
	if err != nil {
		printError(fmt.Errorf("invalid amount %q: %w", orderAmount, err))
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	apiClient := newSwapClient(cfg, verbose)
	ctx := context.Background()

	// Resolve tokens against the aggregator token list
	tokenIn, tokenOut, err := resolveTokenPair(ctx, apiClient, orderFrom, orderTo, jsonOutput)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	watchToken := tokenIn
	if orderWatchToken != "" {
		watchToken, err = apiClient.FindToken(ctx, orderWatchToken)
		if err != nil {
			printError(err)
			os.Exit(1)
		}
	}

	// Create order manager
	manager, err := order.NewManager(cfg.OrderStoragePath)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	newOrder, err := manager.CreateOrder(&order.LimitOrder{
		Name:           orderName,
		TokenInSymbol:  tokenIn.Symbol,
		TokenOutSymbol: tokenOut.Symbol,
		TokenIn:        tokenIn.Address,
		TokenOut:       tokenOut.Address,
		AmountIn:       amount,
		TwoHopsOnly:    orderTwoHops,
		WatchToken:     watchToken.Address,
		TriggerPrice:   price,
		PriceCondition: condition,
	})
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		output, _ := json.MarshalIndent(newOrder, "", "  ")
		fmt.Println(string(output))
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("               LIMIT ORDER CREATED")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("\n  Name:         %s\n", color.CyanString(newOrder.Name))
	fmt.Printf("  Swap:         %s %s -> %s\n", newOrder.AmountIn, newOrder.TokenInSymbol, newOrder.TokenOutSymbol)
	fmt.Printf("  Trigger:      When %s is %s %s\n", watchToken.Symbol, condition, price)
	if newOrder.TwoHopsOnly {
		fmt.Printf("  Routing:      two hops max\n")
	}
	fmt.Printf("  Status:       %s\n", getOrderStatusColor(newOrder.Status))
	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("\nTo arm the order, run:")
	color.Cyan("  invariant-swap order start %s\n", orderName)
	fmt.Println("\nThen watch and execute armed orders with:")
	color.Cyan("  invariant-swap order run\n")
}

func runOrderList(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	// Load config
	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	// Create order manager
	manager, err := order.NewManager(cfg.OrderStoragePath)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	// Get orders
	var orders []*order.LimitOrder
	if orderStatusFilter != "" {
		orders = manager.ListByStatus(order.OrderStatus(orderStatusFilter))
	} else {
		orders = manager.ListOrders()
	}

	if jsonOutput {
		output, _ := json.MarshalIndent(orders, "", "  ")
		fmt.Println(string(output))
		return
	}

	if len(orders) == 0 {
		color.Yellow("No limit orders found.\n")
		fmt.Println("\nCreate a new order with:")
		color.Cyan("  invariant-swap order create <name> --from <token> --to <token> --amount <amount> --when-price \"below <price>\"\n")
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 100))
	color.Green("                                        LIMIT ORDERS")
	fmt.Println(strings.Repeat("=", 100))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\nNAME\tSWAP\tAMOUNT\tTRIGGER\tSTATUS")
	fmt.Fprintln(w, strings.Repeat("-", 100))

	for _, o := range orders {
		swap := fmt.Sprintf("%s -> %s", o.TokenInSymbol, o.TokenOutSymbol)
		trigger := fmt.Sprintf("%s %s", o.PriceCondition, o.TriggerPrice)

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			o.Name, swap, o.AmountIn, trigger, getOrderStatusColor(o.Status))
	}

	w.Flush()
	fmt.Println("\n" + strings.Repeat("=", 100) + "\n")
}

func runOrderView(cmd *cobra.Command, args []string) {
	orderName := args[0]
	jsonOutput, _ := cmd.Flags().GetBool("json")

	// Load config
	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	// Create order manager
	manager, err := order.NewManager(cfg.OrderStoragePath)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	o, err := manager.GetOrder(orderName)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		output, _ := json.MarshalIndent(o, "", "  ")
		fmt.Println(string(output))
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Green("                      LIMIT ORDER DETAILS")
	fmt.Println(strings.Repeat("=", 70))

	fmt.Printf("\n  Name:            %s\n", color.CyanString(o.Name))
	fmt.Printf("  Status:          %s\n", getOrderStatusColor(o.Status))
	fmt.Printf("  Created:         %s\n", o.Created.Format("2006-01-02 15:04:05"))
	fmt.Printf("  Last Updated:    %s\n", o.LastUpdated.Format("2006-01-02 15:04:05"))

	fmt.Printf("\n  Swap:\n")
	fmt.Printf("    From:          %s %s (%s)\n", o.AmountIn, o.TokenInSymbol, color.HiBlackString(o.TokenIn.String()))
	fmt.Printf("    To:            %s (%s)\n", o.TokenOutSymbol, color.HiBlackString(o.TokenOut.String()))
	if o.TwoHopsOnly {
		fmt.Printf("    Routing:       two hops max\n")
	}

	fmt.Printf("\n  Trigger:\n")
	fmt.Printf("    Condition:     price %s %s\n", o.PriceCondition, o.TriggerPrice)
	fmt.Printf("    Watched Mint:  %s\n", o.WatchToken)

	if o.Fill != nil {
		fmt.Printf("\n  Fill:\n")
		fmt.Printf("    Time:          %s\n", o.Fill.Timestamp.Format("2006-01-02 15:04:05"))
		fmt.Printf("    Price:         %s\n", o.Fill.Price)
		fmt.Printf("    Amount Out:    %s %s (%d raw)\n", formatAmount(o.Fill.AmountOutUI), o.TokenOutSymbol, o.Fill.AmountOut)
		fmt.Printf("    Signature:     %s\n", color.CyanString(o.Fill.Signature))
	}

	if o.LastError != "" {
		fmt.Printf("\n  Last Error:      %s\n", color.RedString(o.LastError))
	}

	fmt.Println("\n" + strings.Repeat("=", 70) + "\n")
}

func runOrderStart(cmd *cobra.Command, args []string) {
	orderName := args[0]

	manager := mustOrderManager()
	if err := manager.StartOrder(orderName); err != nil {
		printError(err)
		os.Exit(1)
	}

	color.Green("\n✓ Limit order '%s' is armed.\n", orderName)
	fmt.Println("\nMake sure a watcher is running:")
	color.Cyan("  invariant-swap order run\n")
}

func runOrderPause(cmd *cobra.Command, args []string) {
	orderName := args[0]

	manager := mustOrderManager()
	if err := manager.PauseOrder(orderName); err != nil {
		printError(err)
		os.Exit(1)
	}

	color.Green("\n✓ Limit order '%s' has been paused.\n", orderName)
	fmt.Println("\nTo re-arm the order, run:")
	color.Cyan("  invariant-swap order start %s\n", orderName)
}

func runOrderCancel(cmd *cobra.Command, args []string) {
	orderName := args[0]

	manager := mustOrderManager()
	if err := manager.CancelOrder(orderName); err != nil {
		printError(err)
		os.Exit(1)
	}

	color.Green("\n✓ Limit order '%s' has been cancelled.\n", orderName)
}

func runOrderDelete(cmd *cobra.Command, args []string) {
	orderName := args[0]

	manager := mustOrderManager()
	if err := manager.DeleteOrder(orderName); err != nil {
		printError(err)
		os.Exit(1)
	}

	printSuccess(color.GreenString("✓ Limit order '%s' has been deleted.", orderName))
}

func runOrderRun(cmd *cobra.Command, args []string) {
	verbose, _ := cmd.Flags().GetBool("verbose")

	// Load config
	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	// Create order manager
	manager, err := order.NewManager(cfg.OrderStoragePath)
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

	activeOrders := manager.ListByStatus(order.StatusActive)
	if len(activeOrders) == 0 {
		color.Yellow("\nNo armed orders found.\n")
		fmt.Println("\nTo create and arm an order:")
		color.Cyan("  1. Create: invariant-swap order create <name> ...")
		color.Cyan("  2. Arm:    invariant-swap order start <name>")
		color.Cyan("  3. Watch:  invariant-swap order run\n")
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Green("                 INVARIANT SWAP ORDER WATCHER")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("\nWatching %d armed order(s) with wallet %s\n\n", len(activeOrders), color.CyanString(snd.PublicKey().String()))

	for _, o := range activeOrders {
		fmt.Printf("  [%s] %s\n", color.GreenString("ARMED"), color.CyanString(o.Name))
		fmt.Printf("      Swap:     %s %s -> %s\n", o.AmountIn, o.TokenInSymbol, o.TokenOutSymbol)
		fmt.Printf("      Trigger:  price %s %s\n", o.PriceCondition, o.TriggerPrice)
		fmt.Println()
	}

	fmt.Println(strings.Repeat("=", 70))
	color.Green("\nStarting watcher...")
	color.Cyan("• Checking prices every %d seconds", runInterval)
	color.Magenta("• You can create/arm/pause orders in another terminal")
	color.Yellow("• Press Ctrl+C to stop gracefully\n")
	fmt.Println(strings.Repeat("=", 70) + "\n")

	apiClient := newSwapClient(cfg, verbose)
	log := newLogger(cfg, verbose)

	executor := order.NewExecutor(manager, apiClient, snd, snd.RPC(), log)
	executor.SetCheckInterval(time.Duration(runInterval) * time.Second)

	if err := executor.Start(context.Background()); err != nil {
		printError(err)
		os.Exit(1)
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Wait for interrupt signal
	<-sigChan

	color.Yellow("\nReceived shutdown signal. Stopping watcher...")
	executor.Stop()

	color.Green("\n✓ Watcher stopped.")
	fmt.Println("\nOrder states are saved. Restart anytime with:")
	color.Cyan("  invariant-swap order run\n")
}

// Helper functions

// mustOrderManager builds an order manager from config, exiting on failure
func mustOrderManager() *order.Manager {
	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	manager, err := order.NewManager(cfg.OrderStoragePath)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	return manager
}

func parsePriceCondition(input string) (order.PriceCondition, decimal.Decimal, error) {
	parts := strings.Fields(input)
	if len(parts) != 2 {
		return "", decimal.Zero, fmt.Errorf("price condition must be in format '<condition> <price>' (e.g., 'above 250')")
	}

	var condition order.PriceCondition
	switch strings.ToLower(parts[0]) {
	case "above", ">":
		condition = order.PriceAbove
	case "below", "<":
		condition = order.PriceBelow
	default:
		return "", decimal.Zero, fmt.Errorf("invalid condition '%s', must be 'above' or 'below'", parts[0])
	}

	price, err := decimal.NewFromString(parts[1])
	if err != nil {
		return "", decimal.Zero, fmt.Errorf("invalid price %q: %w", parts[1], err)
	}

	return condition, price, nil
}

func getOrderStatusColor(status order.OrderStatus) string {
	switch status {
	case order.StatusActive:
		return color.GreenString(string(status))
	case order.StatusPaused:
		return color.YellowString(string(status))
	case order.StatusFilled:
		return color.BlueString(string(status))
	case order.StatusCancelled, order.StatusFailed:
		return color.RedString(string(status))
	default:
		return string(status)
	}
}
