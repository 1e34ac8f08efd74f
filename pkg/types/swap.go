package types

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// DexID selects the routing backend a quote runs against. The client
// forwards it as-is; the service decides which values it accepts.
type DexID string

// DexInvariant is the only backend the aggregator currently routes through.
const DexInvariant DexID = "INVARIANT"

// QuoteOptions tunes how the service builds a route.
type QuoteOptions struct {
	// ReduceToTwoHops caps the route at two hops so the built transaction
	// stays under the runtime's account-lock limit.
	ReduceToTwoHops bool `json:"reduceToTwoHops"`
}

// SwapQuoteRequest describes a swap to quote. AmountIn is in human units
// and travels as a JSON string so precision survives the wire.
type SwapQuoteRequest struct {
	Sender   solana.PublicKey `json:"sender"`
	TokenIn  solana.PublicKey `json:"tokenA"`
	TokenOut solana.PublicKey `json:"tokenB"`
	AmountIn decimal.Decimal  `json:"amountIn"`
	DexID    DexID            `json:"dexId"`
	Options  *QuoteOptions    `json:"options,omitempty"`
}

// Validate checks the request is complete enough to send
func (r *SwapQuoteRequest) Validate() error {
	if r.Sender.IsZero() {
		return fmt.Errorf("sender address is required")
	}
	if r.TokenIn.IsZero() {
		return fmt.Errorf("input token address is required")
	}
	if r.TokenOut.IsZero() {
		return fmt.Errorf("output token address is required")
	}
	if r.AmountIn.IsNegative() {
		return fmt.Errorf("amount must not be negative")
	}
	return nil
}

// RouteHop is one token-to-token leg of a quoted route
type RouteHop struct {
	TokenIn  solana.PublicKey `json:"tokenA"`
	TokenOut solana.PublicKey `json:"tokenB"`
	DexID    DexID            `json:"dexId"`
}

// TransactionQuote is a quote materialized as a ready-to-submit transaction.
// Every signature the service supplied is already applied; the sender signs
// the remaining slot and submits.
type TransactionQuote struct {
	Transaction    *solana.Transaction
	AmountOut      uint64
	AmountOutUI    float64
	RoutePlan      []RouteHop
	LookupAccounts []solana.PublicKey
	Signers        []solana.PrivateKey
}

// InstructionQuote is the same quote materialized as instruction groups, for
// callers that assemble and sign their own transaction. Signers stay as the
// base64 strings the service sent.
type InstructionQuote struct {
	Groups         []InstructionGroup
	AmountOut      uint64
	AmountOutUI    float64
	RoutePlan      []RouteHop
	LookupAccounts []solana.PublicKey
	Signers        []string
}

// InstructionGroup is a named batch of instructions plus the cleanup
// instructions that release its temporary accounts
type InstructionGroup struct {
	Name                string
	Instructions        []solana.Instruction
	CleanupInstructions []solana.Instruction
	Signers             []string
}

// TokenInfo describes one token the aggregator can route
type TokenInfo struct {
	Name     string           `json:"name"`
	Symbol   string           `json:"symbol"`
	Address  solana.PublicKey `json:"address"`
	ChainID  int              `json:"chainId"`
	Decimals uint8            `json:"decimals"`
	LogoURI  string           `json:"logoURI"`
}
