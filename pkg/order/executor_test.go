package order

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"invariant-swap/pkg/client"
	"invariant-swap/pkg/types"
)

type fakeAPI struct {
	price    float64
	priceErr error

	quote     *types.TransactionQuote
	quoteErr  error
	quoteReqs []*types.SwapQuoteRequest

	simResp  *rpc.SimulateTransactionResponse
	simErrs  []error
	simCalls int
}

func (f *fakeAPI) GetTokenPrice(ctx context.Context, token solana.PublicKey) (float64, error) {
	return f.price, f.priceErr
}

func (f *fakeAPI) GetSwapTransaction(ctx context.Context, req *types.SwapQuoteRequest) (*types.TransactionQuote, error) {
	f.quoteReqs = append(f.quoteReqs, req)
	if f.quoteErr != nil {
		return nil, f.quoteErr
	}
	return f.quote, nil
}

func (f *fakeAPI) SimulateTransaction(ctx context.Context, sim client.TransactionSimulator, tx *solana.Transaction) (*rpc.SimulateTransactionResponse, error) {
	var err error
	if f.simCalls < len(f.simErrs) {
		err = f.simErrs[f.simCalls]
	}
	f.simCalls++
	if f.simResp != nil {
		return f.simResp, err
	}
	return &rpc.SimulateTransactionResponse{}, err
}

type fakeWallet struct {
	key       solana.PrivateKey
	signCalls int
	signErr   error
	submitted []*solana.Transaction
	submitErr error
	sig       solana.Signature
}

func (w *fakeWallet) PublicKey() solana.PublicKey {
	return w.key.PublicKey()
}

func (w *fakeWallet) SignRemaining(tx *solana.Transaction) error {
	w.signCalls++
	return w.signErr
}

func (w *fakeWallet) Submit(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	if w.submitErr != nil {
		return solana.Signature{}, w.submitErr
	}
	w.submitted = append(w.submitted, tx)
	return w.sig, nil
}

func newTestQuote(t *testing.T, payer solana.PublicKey) *types.TransactionQuote {
	t.Helper()

	program := solana.NewWallet().PublicKey()
	ix := solana.NewInstruction(program, solana.AccountMetaSlice{
		solana.NewAccountMeta(payer, true, true),
	}, []byte{1})

	tx, err := solana.NewTransaction([]solana.Instruction{ix}, solana.Hash{}, solana.TransactionPayer(payer))
	if err != nil {
		t.Fatalf("failed to build transaction: %v", err)
	}

	return &types.TransactionQuote{
		Transaction: tx,
		AmountOut:   250000,
		AmountOutUI: 0.25,
	}
}

// newTestExecutor wires an executor around fakes with one armed order
func newTestExecutor(t *testing.T, api *fakeAPI, wallet *fakeWallet, o *LimitOrder) (*Executor, *Manager) {
	t.Helper()

	m := newTestManager(t)
	if _, err := m.CreateOrder(o); err != nil {
		t.Fatalf("failed to create order: %v", err)
	}
	if err := m.StartOrder(o.Name); err != nil {
		t.Fatalf("failed to start order: %v", err)
	}

	return NewExecutor(m, api, wallet, nil, zerolog.Nop()), m
}

func TestExecutorFillsTriggeredOrder(t *testing.T) {
	wallet := &fakeWallet{key: solana.NewWallet().PrivateKey, sig: solana.Signature{9, 9, 9}}
	api := &fakeAPI{price: 2.0, quote: newTestQuote(t, wallet.PublicKey())}

	o := newTestOrder("fill-me")
	e, m := newTestExecutor(t, api, wallet, o)

	e.checkOrders(context.Background())

	if len(api.quoteReqs) != 1 {
		t.Fatalf("expected 1 quote request, got %d", len(api.quoteReqs))
	}
	req := api.quoteReqs[0]
	if !req.Sender.Equals(wallet.PublicKey()) {
		t.Errorf("quote sender is %s, want wallet %s", req.Sender, wallet.PublicKey())
	}
	if req.Options != nil {
		t.Errorf("expected no quote options, got %+v", req.Options)
	}
	if wallet.signCalls != 1 {
		t.Errorf("expected 1 signing pass, got %d", wallet.signCalls)
	}
	if len(wallet.submitted) != 1 {
		t.Fatalf("expected 1 submitted transaction, got %d", len(wallet.submitted))
	}

	got, err := m.GetOrder("fill-me")
	if err != nil {
		t.Fatalf("failed to get order: %v", err)
	}
	if got.Status != StatusFilled {
		t.Fatalf("expected status %s, got %s", StatusFilled, got.Status)
	}
	if got.Fill == nil {
		t.Fatal("expected fill details to be recorded")
	}
	if got.Fill.Signature != wallet.sig.String() {
		t.Errorf("fill signature is %q, want %q", got.Fill.Signature, wallet.sig.String())
	}
	if !got.Fill.Price.Equal(decimal.NewFromFloat(2.0)) {
		t.Errorf("fill price is %s, want 2", got.Fill.Price)
	}
	if got.Fill.AmountOut != 250000 {
		t.Errorf("fill amount out is %d, want 250000", got.Fill.AmountOut)
	}
}

func TestExecutorSkipsUntriggeredOrder(t *testing.T) {
	wallet := &fakeWallet{key: solana.NewWallet().PrivateKey}
	api := &fakeAPI{price: 1.0, quote: newTestQuote(t, wallet.PublicKey())}

	o := newTestOrder("patience") // triggers above 1.5
	e, m := newTestExecutor(t, api, wallet, o)

	e.checkOrders(context.Background())

	if len(api.quoteReqs) != 0 {
		t.Fatalf("expected no quote requests, got %d", len(api.quoteReqs))
	}
	got, _ := m.GetOrder("patience")
	if got.Status != StatusActive {
		t.Fatalf("expected order to stay active, got %s", got.Status)
	}
}

func TestExecutorBelowCondition(t *testing.T) {
	wallet := &fakeWallet{key: solana.NewWallet().PrivateKey}
	api := &fakeAPI{price: 0.9, quote: newTestQuote(t, wallet.PublicKey())}

	o := newTestOrder("buy-the-dip")
	o.PriceCondition = PriceBelow
	o.TriggerPrice = decimal.RequireFromString("1.0")
	e, m := newTestExecutor(t, api, wallet, o)

	e.checkOrders(context.Background())

	if len(wallet.submitted) != 1 {
		t.Fatalf("expected 1 submitted transaction, got %d", len(wallet.submitted))
	}
	got, _ := m.GetOrder("buy-the-dip")
	if got.Status != StatusFilled {
		t.Fatalf("expected status %s, got %s", StatusFilled, got.Status)
	}
}

func TestExecutorRequotesWithTwoHops(t *testing.T) {
	wallet := &fakeWallet{key: solana.NewWallet().PrivateKey, sig: solana.Signature{1}}
	api := &fakeAPI{
		price:   2.0,
		quote:   newTestQuote(t, wallet.PublicKey()),
		simErrs: []error{client.ErrTooManyAccountLocks, nil},
	}

	o := newTestOrder("wide-route")
	e, m := newTestExecutor(t, api, wallet, o)

	e.checkOrders(context.Background())

	if len(api.quoteReqs) != 2 {
		t.Fatalf("expected 2 quote requests, got %d", len(api.quoteReqs))
	}
	if api.quoteReqs[0].Options != nil {
		t.Errorf("first quote should not cap hops, got %+v", api.quoteReqs[0].Options)
	}
	if api.quoteReqs[1].Options == nil || !api.quoteReqs[1].Options.ReduceToTwoHops {
		t.Error("second quote should request a two hop route")
	}
	if api.simCalls != 2 {
		t.Errorf("expected 2 simulations, got %d", api.simCalls)
	}
	if len(wallet.submitted) != 1 {
		t.Fatalf("expected 1 submitted transaction, got %d", len(wallet.submitted))
	}

	got, _ := m.GetOrder("wide-route")
	if got.Status != StatusFilled {
		t.Fatalf("expected status %s, got %s", StatusFilled, got.Status)
	}
}

func TestExecutorTwoHopOrderIsNotRequoted(t *testing.T) {
	wallet := &fakeWallet{key: solana.NewWallet().PrivateKey}
	api := &fakeAPI{
		price:   2.0,
		quote:   newTestQuote(t, wallet.PublicKey()),
		simErrs: []error{client.ErrTooManyAccountLocks},
	}

	o := newTestOrder("already-capped")
	o.TwoHopsOnly = true
	e, m := newTestExecutor(t, api, wallet, o)

	e.checkOrders(context.Background())

	if len(api.quoteReqs) != 1 {
		t.Fatalf("expected 1 quote request, got %d", len(api.quoteReqs))
	}
	if api.quoteReqs[0].Options == nil || !api.quoteReqs[0].Options.ReduceToTwoHops {
		t.Error("quote for a two hop order should cap the route")
	}
	if len(wallet.submitted) != 0 {
		t.Fatalf("expected no submissions, got %d", len(wallet.submitted))
	}

	got, _ := m.GetOrder("already-capped")
	if got.Status != StatusFailed {
		t.Fatalf("expected status %s, got %s", StatusFailed, got.Status)
	}
}

func TestExecutorAbortsOnSimulationError(t *testing.T) {
	wallet := &fakeWallet{key: solana.NewWallet().PrivateKey}
	api := &fakeAPI{
		price: 2.0,
		quote: newTestQuote(t, wallet.PublicKey()),
		simResp: &rpc.SimulateTransactionResponse{
			Value: &rpc.SimulateTransactionResult{
				Err: map[string]interface{}{"InstructionError": []interface{}{0.0, map[string]interface{}{"Custom": 6001.0}}},
			},
		},
	}

	o := newTestOrder("sim-fails")
	e, m := newTestExecutor(t, api, wallet, o)

	e.checkOrders(context.Background())

	if len(wallet.submitted) != 0 {
		t.Fatalf("expected no submissions after a failed simulation, got %d", len(wallet.submitted))
	}

	got, _ := m.GetOrder("sim-fails")
	if got.Status != StatusFailed {
		t.Fatalf("expected status %s, got %s", StatusFailed, got.Status)
	}
	if !strings.Contains(got.LastError, "simulation") {
		t.Errorf("last error should mention the simulation, got %q", got.LastError)
	}
}

func TestExecutorRecordsSubmitFailure(t *testing.T) {
	wallet := &fakeWallet{
		key:       solana.NewWallet().PrivateKey,
		submitErr: errors.New("node unreachable"),
	}
	api := &fakeAPI{price: 2.0, quote: newTestQuote(t, wallet.PublicKey())}

	o := newTestOrder("doomed")
	e, m := newTestExecutor(t, api, wallet, o)

	e.checkOrders(context.Background())

	got, _ := m.GetOrder("doomed")
	if got.Status != StatusFailed {
		t.Fatalf("expected status %s, got %s", StatusFailed, got.Status)
	}
	if got.LastError == "" {
		t.Error("expected last error to be recorded")
	}
}

func TestExecutorStartStop(t *testing.T) {
	wallet := &fakeWallet{key: solana.NewWallet().PrivateKey}
	api := &fakeAPI{price: 1.0}

	o := newTestOrder("idle")
	e, _ := newTestExecutor(t, api, wallet, o)
	e.SetCheckInterval(time.Second)
	if e.interval != MinCheckInterval {
		t.Fatalf("expected interval clamped to %s, got %s", MinCheckInterval, e.interval)
	}

	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("failed to start executor: %v", err)
	}
	if !e.IsRunning() {
		t.Fatal("executor should be running")
	}
	if err := e.Start(context.Background()); err == nil {
		t.Fatal("expected error starting a running executor")
	}

	e.Stop()
	if e.IsRunning() {
		t.Fatal("executor should be stopped")
	}
	e.Stop() // second stop is a no-op
}
