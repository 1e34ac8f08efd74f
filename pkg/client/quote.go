package client

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"invariant-swap/pkg/types"
)

// Wire shapes for /bestSwapRoute. Output amounts arrive string-encoded;
// array fields the service omits decode to empty.
type bestSwapRouteResponse struct {
	Transaction    string                `json:"transaction"`
	Groups         []rawInstructionGroup `json:"inXs"`
	AmountOut      string                `json:"amountOut"`
	AmountOutUI    string                `json:"amountOutUi"`
	RoutePlan      []types.RouteHop      `json:"routePlan"`
	LookupAccounts []solana.PublicKey    `json:"lookUpAccounts"`
	Signers        []string              `json:"signers"`
}

type rawInstructionGroup struct {
	Name                string           `json:"name"`
	Instructions        []rawInstruction `json:"ixs"`
	CleanupInstructions []rawInstruction `json:"cleanupIxs"`
	Signers             []string         `json:"signers"`
}

type rawInstruction struct {
	Keys      []rawAccountMeta `json:"keys"`
	ProgramID solana.PublicKey `json:"programId"`
	Data      []byte           `json:"data"`
}

type rawAccountMeta struct {
	PubKey     solana.PublicKey `json:"pubkey"`
	IsSigner   bool             `json:"isSigner"`
	IsWritable bool             `json:"isWritable"`
}

// amounts parses the string-encoded output amounts. Both are required.
func (r *bestSwapRouteResponse) amounts() (uint64, float64, error) {
	amountOut, err := strconv.ParseUint(r.AmountOut, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid amountOut %q: %w", r.AmountOut, err)
	}
	amountOutUI, err := strconv.ParseFloat(r.AmountOutUI, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid amountOutUi %q: %w", r.AmountOutUI, err)
	}
	return amountOut, amountOutUI, nil
}

// GetSwapTransaction asks the aggregator for the best route and returns it
// as a ready-to-submit transaction. Signer secrets the service supplies are
// decoded into keypairs and their signatures applied before returning, so
// the caller only adds their own.
func (c *SwapClient) GetSwapTransaction(ctx context.Context, req *types.SwapQuoteRequest) (*types.TransactionQuote, error) {
	raw, err := c.postBestSwapRoute(ctx, req)
	if err != nil {
		return nil, err
	}

	if raw.Transaction == "" {
		return nil, fmt.Errorf("transaction missing from quote response")
	}
	txBytes, err := base64.StdEncoding.DecodeString(raw.Transaction)
	if err != nil {
		return nil, fmt.Errorf("failed to decode transaction: %w", err)
	}
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(txBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal transaction: %w", err)
	}

	signers := make([]solana.PrivateKey, len(raw.Signers))
	for i, secret := range raw.Signers {
		key, err := decodeSignerSecret(secret)
		if err != nil {
			return nil, fmt.Errorf("invalid signer %d: %w", i, err)
		}
		signers[i] = key
	}
	if err := applySignatures(tx, signers); err != nil {
		return nil, err
	}

	amountOut, amountOutUI, err := raw.amounts()
	if err != nil {
		return nil, err
	}

	return &types.TransactionQuote{
		Transaction:    tx,
		AmountOut:      amountOut,
		AmountOutUI:    amountOutUI,
		RoutePlan:      raw.RoutePlan,
		LookupAccounts: raw.LookupAccounts,
		Signers:        signers,
	}, nil
}

// GetSwapInstructions asks the aggregator for the best route and returns the
// instruction groups instead of an assembled transaction. Signers pass
// through undecoded; assembling and signing is the caller's job in this
// mode.
func (c *SwapClient) GetSwapInstructions(ctx context.Context, req *types.SwapQuoteRequest) (*types.InstructionQuote, error) {
	raw, err := c.postBestSwapRoute(ctx, req)
	if err != nil {
		return nil, err
	}

	groups := make([]types.InstructionGroup, len(raw.Groups))
	for i, group := range raw.Groups {
		groups[i] = types.InstructionGroup{
			Name:                group.Name,
			Instructions:        buildInstructions(group.Instructions),
			CleanupInstructions: buildInstructions(group.CleanupInstructions),
			Signers:             group.Signers,
		}
	}

	amountOut, amountOutUI, err := raw.amounts()
	if err != nil {
		return nil, err
	}

	return &types.InstructionQuote{
		Groups:         groups,
		AmountOut:      amountOut,
		AmountOutUI:    amountOutUI,
		RoutePlan:      raw.RoutePlan,
		LookupAccounts: raw.LookupAccounts,
		Signers:        raw.Signers,
	}, nil
}

func (c *SwapClient) postBestSwapRoute(ctx context.Context, req *types.SwapQuoteRequest) (*bestSwapRouteResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid quote request: %w", err)
	}

	var resp bestSwapRouteResponse
	if err := c.postJSON(ctx, "/bestSwapRoute", req, &resp); err != nil {
		return nil, fmt.Errorf("failed to get swap route: %w", err)
	}
	return &resp, nil
}

// decodeSignerSecret decodes one base64 secret key into a keypair
func decodeSignerSecret(secret string) (solana.PrivateKey, error) {
	raw, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		return nil, fmt.Errorf("failed to decode signer secret: %w", err)
	}
	if len(raw) != 64 {
		return nil, fmt.Errorf("signer secret must be 64 bytes, got %d", len(raw))
	}
	return solana.PrivateKey(raw), nil
}

// applySignatures signs tx with every supplied keypair. Each keypair must
// match a signer slot the message declares; signing is all-or-nothing so a
// half-signed transaction never escapes.
func applySignatures(tx *solana.Transaction, signers []solana.PrivateKey) error {
	if len(signers) == 0 {
		return nil
	}

	keys := make(map[solana.PublicKey]*solana.PrivateKey, len(signers))
	for i := range signers {
		keys[signers[i].PublicKey()] = &signers[i]
	}

	applied := make(map[solana.PublicKey]bool, len(keys))
	if _, err := tx.PartialSign(func(key solana.PublicKey) *solana.PrivateKey {
		if pk, ok := keys[key]; ok {
			applied[key] = true
			return pk
		}
		return nil
	}); err != nil {
		return fmt.Errorf("failed to sign transaction: %w", err)
	}

	for pub := range keys {
		if !applied[pub] {
			return fmt.Errorf("signer %s does not match any required signer", pub)
		}
	}
	return nil
}

// buildInstructions converts raw wire instructions into typed ones
func buildInstructions(raw []rawInstruction) []solana.Instruction {
	out := make([]solana.Instruction, len(raw))
	for i, instruction := range raw {
		accounts := make(solana.AccountMetaSlice, len(instruction.Keys))
		for k, key := range instruction.Keys {
			accounts[k] = &solana.AccountMeta{
				PublicKey:  key.PubKey,
				IsSigner:   key.IsSigner,
				IsWritable: key.IsWritable,
			}
		}
		out[i] = solana.NewInstruction(instruction.ProgramID, accounts, instruction.Data)
	}
	return out
}
