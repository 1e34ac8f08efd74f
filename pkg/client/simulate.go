package client

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// tooManyAccountLocksMarker is the substring the runtime embeds in a
// simulation error when a transaction locks more accounts than allowed.
// It is the only thing to update if the upstream error format changes.
const tooManyAccountLocksMarker = "TooManyAccountLocks"

// ErrTooManyAccountLocks reports that the simulated transaction locks more
// accounts than the runtime permits. Requesting the quote again with
// ReduceToTwoHops set keeps the route short enough to fit.
var ErrTooManyAccountLocks = errors.New("transaction locks too many accounts: request the quote again with the ReduceToTwoHops option to cap the route at two hops")

// TransactionSimulator runs a transaction against a node without submitting
// it. *rpc.Client satisfies it.
type TransactionSimulator interface {
	SimulateTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts *rpc.SimulateTransactionOpts) (*rpc.SimulateTransactionResponse, error)
}

// SimulateTransaction runs tx through sim at confirmed commitment and
// translates the account-lock-limit failure into ErrTooManyAccountLocks,
// returned alongside the outcome. Any other failure recorded in the outcome
// is left in place for the caller to inspect.
func (c *SwapClient) SimulateTransaction(ctx context.Context, sim TransactionSimulator, tx *solana.Transaction) (*rpc.SimulateTransactionResponse, error) {
	out, err := sim.SimulateTransactionWithOpts(ctx, tx, &rpc.SimulateTransactionOpts{
		Commitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return nil, fmt.Errorf("simulation request failed: %w", err)
	}

	return out, classifySimulationErr(out)
}

// classifySimulationErr inspects the error payload embedded in a simulation
// outcome. The payload has no stable shape, so detection is a substring
// match on its textual rendering.
func classifySimulationErr(out *rpc.SimulateTransactionResponse) error {
	if out == nil || out.Value == nil || out.Value.Err == nil {
		return nil
	}
	if strings.Contains(fmt.Sprintf("%v", out.Value.Err), tooManyAccountLocksMarker) {
		return ErrTooManyAccountLocks
	}
	return nil
}
