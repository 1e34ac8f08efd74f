package order

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"invariant-swap/pkg/client"
	"invariant-swap/pkg/types"
)

const (
	// DefaultCheckInterval is how often prices are checked
	DefaultCheckInterval = 30 * time.Second

	// MinCheckInterval is the minimum allowed check interval
	MinCheckInterval = 10 * time.Second
)

// SwapAPI is the slice of the aggregator client the executor uses
type SwapAPI interface {
	GetTokenPrice(ctx context.Context, token solana.PublicKey) (float64, error)
	GetSwapTransaction(ctx context.Context, req *types.SwapQuoteRequest) (*types.TransactionQuote, error)
	SimulateTransaction(ctx context.Context, sim client.TransactionSimulator, tx *solana.Transaction) (*rpc.SimulateTransactionResponse, error)
}

// Wallet signs and submits quoted transactions
type Wallet interface {
	PublicKey() solana.PublicKey
	SignRemaining(tx *solana.Transaction) error
	Submit(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
}

// Executor watches active orders and executes them when their trigger
// price is reached
type Executor struct {
	manager  *Manager
	api      SwapAPI
	wallet   Wallet
	sim      client.TransactionSimulator
	log      zerolog.Logger
	interval time.Duration

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
}

// NewExecutor creates a new order executor
func NewExecutor(manager *Manager, api SwapAPI, wallet Wallet, sim client.TransactionSimulator, log zerolog.Logger) *Executor {
	return &Executor{
		manager:  manager,
		api:      api,
		wallet:   wallet,
		sim:      sim,
		log:      log,
		interval: DefaultCheckInterval,
	}
}

// SetCheckInterval changes the price polling interval, clamped to
// MinCheckInterval
func (e *Executor) SetCheckInterval(d time.Duration) {
	if d < MinCheckInterval {
		d = MinCheckInterval
	}
	e.interval = d
}

// Start begins watching active orders until Stop is called or the context
// is cancelled
func (e *Executor) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return fmt.Errorf("executor is already running")
	}

	e.running = true
	e.stopChan = make(chan struct{})

	go e.run(ctx)
	return nil
}

// Stop halts the executor
func (e *Executor) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return
	}

	e.running = false
	close(e.stopChan)
}

// IsRunning reports whether the executor is watching orders
func (e *Executor) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

func (e *Executor) run(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	e.log.Info().Dur("interval", e.interval).Msg("order executor started")

	for {
		select {
		case <-ctx.Done():
			e.log.Info().Msg("order executor stopped, context cancelled")
			return
		case <-e.stopChan:
			e.log.Info().Msg("order executor stopped")
			return
		case <-ticker.C:
			e.checkOrders(ctx)
		}
	}
}

// checkOrders runs one pass over all active orders. The order file is
// reloaded first so orders managed from another process are picked up.
func (e *Executor) checkOrders(ctx context.Context) {
	if err := e.manager.Reload(); err != nil {
		e.log.Warn().Err(err).Msg("failed to reload orders")
	}

	orders := e.manager.ListByStatus(StatusActive)
	if len(orders) == 0 {
		return
	}

	// One price fetch per distinct watch token per pass
	prices := make(map[solana.PublicKey]decimal.Decimal)
	for _, o := range orders {
		if _, ok := prices[o.WatchToken]; ok {
			continue
		}
		price, err := e.api.GetTokenPrice(ctx, o.WatchToken)
		if err != nil {
			e.log.Warn().Err(err).Str("token", o.WatchToken.String()).Msg("price check failed")
			continue
		}
		prices[o.WatchToken] = decimal.NewFromFloat(price)
	}

	for _, o := range orders {
		price, ok := prices[o.WatchToken]
		if !ok {
			continue
		}
		if !o.ShouldTrigger(price) {
			continue
		}

		e.log.Info().
			Str("order", o.Name).
			Str("price", price.String()).
			Str("trigger", o.TriggerPrice.String()).
			Msg("trigger price reached")

		if err := e.executeOrder(ctx, o, price); err != nil {
			e.log.Error().Err(err).Str("order", o.Name).Msg("order execution failed")
			if recErr := e.manager.RecordFailure(o.Name, err.Error()); recErr != nil {
				e.log.Error().Err(recErr).Str("order", o.Name).Msg("failed to record failure")
			}
		}
	}
}

// executeOrder quotes, simulates, signs and submits one triggered order.
// A route that trips the account lock limit in simulation is requoted once
// with the route capped at two hops.
func (e *Executor) executeOrder(ctx context.Context, o *LimitOrder, price decimal.Decimal) error {
	quote, err := e.quoteOrder(ctx, o, o.TwoHopsOnly)
	if err != nil {
		return err
	}

	outcome, simErr := e.api.SimulateTransaction(ctx, e.sim, quote.Transaction)
	if errors.Is(simErr, client.ErrTooManyAccountLocks) && !o.TwoHopsOnly {
		e.log.Warn().Str("order", o.Name).Msg("route locks too many accounts, requoting with two hops")
		quote, err = e.quoteOrder(ctx, o, true)
		if err != nil {
			return err
		}
		outcome, simErr = e.api.SimulateTransaction(ctx, e.sim, quote.Transaction)
	}
	if simErr != nil {
		return fmt.Errorf("simulation failed: %w", simErr)
	}
	if outcome != nil && outcome.Value != nil && outcome.Value.Err != nil {
		return fmt.Errorf("simulation reported an error: %v", outcome.Value.Err)
	}

	if err := e.wallet.SignRemaining(quote.Transaction); err != nil {
		return fmt.Errorf("failed to sign transaction: %w", err)
	}

	sig, err := e.wallet.Submit(ctx, quote.Transaction)
	if err != nil {
		return fmt.Errorf("failed to submit transaction: %w", err)
	}

	e.log.Info().
		Str("order", o.Name).
		Str("signature", sig.String()).
		Uint64("amount_out", quote.AmountOut).
		Msg("order filled")

	return e.manager.RecordFill(o.Name, Fill{
		Signature:   sig.String(),
		Price:       price,
		AmountOut:   quote.AmountOut,
		AmountOutUI: quote.AmountOutUI,
		Timestamp:   time.Now(),
	})
}

// quoteOrder requests a swap transaction for the order
func (e *Executor) quoteOrder(ctx context.Context, o *LimitOrder, twoHops bool) (*types.TransactionQuote, error) {
	req := &types.SwapQuoteRequest{
		Sender:   e.wallet.PublicKey(),
		TokenIn:  o.TokenIn,
		TokenOut: o.TokenOut,
		AmountIn: o.AmountIn,
		DexID:    types.DexInvariant,
	}
	if twoHops {
		req.Options = &types.QuoteOptions{ReduceToTwoHops: true}
	}

	quote, err := e.api.GetSwapTransaction(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}

	return quote, nil
}
