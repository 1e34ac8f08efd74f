package sender

import (
	"context"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"invariant-swap/config"
)

// Sender holds the operator wallet and RPC connection used to execute
// quoted swaps on Solana
type Sender struct {
	config     config.SolanaConfig
	client     *rpc.Client
	privateKey solana.PrivateKey
	publicKey  solana.PublicKey
}

// New creates a sender from the Solana configuration
func New(cfg config.SolanaConfig) (*Sender, error) {
	// Validate configuration
	if cfg.RPCUrl == "" {
		return nil, fmt.Errorf("RPC URL not configured for Solana")
	}
	if cfg.PrivateKey == "" {
		return nil, fmt.Errorf("private key not configured for Solana")
	}

	// Connect to Solana RPC
	client := rpc.New(cfg.RPCUrl)

	// Parse private key (Base58 encoded)
	privateKey, err := solana.PrivateKeyFromBase58(cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	return &Sender{
		config:     cfg,
		client:     client,
		privateKey: privateKey,
		publicKey:  privateKey.PublicKey(),
	}, nil
}

// PublicKey returns the wallet address swaps are sent from
func (s *Sender) PublicKey() solana.PublicKey {
	return s.publicKey
}

// RPC returns the underlying connection, usable for simulation
func (s *Sender) RPC() *rpc.Client {
	return s.client
}

// SignRemaining fills the wallet's own signature slot on a quoted
// transaction. Signatures the service already applied are left untouched.
// The transaction must name the wallet as a required signer, which holds
// whenever the quote was requested with this wallet as sender.
func (s *Sender) SignRemaining(tx *solana.Transaction) error {
	signed := false
	_, err := tx.PartialSign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(s.publicKey) {
			signed = true
			return &s.privateKey
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to sign transaction: %w", err)
	}
	if !signed {
		return fmt.Errorf("transaction does not require a signature from %s", s.publicKey)
	}
	return nil
}

// Submit sends a fully signed transaction
func (s *Sender) Submit(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	opts := rpc.TransactionOpts{
		SkipPreflight:       s.config.SkipPreflight,
		PreflightCommitment: s.Commitment(),
	}

	sig, err := s.client.SendTransactionWithOpts(ctx, tx, opts)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to send transaction: %w", err)
	}
	return sig, nil
}

// Balance returns the wallet's SOL balance in lamports
func (s *Sender) Balance(ctx context.Context) (uint64, error) {
	balance, err := s.client.GetBalance(ctx, s.publicKey, s.Commitment())
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance.Value, nil
}

// Commitment returns the commitment level from config
func (s *Sender) Commitment() rpc.CommitmentType {
	switch strings.ToLower(s.config.Commitment) {
	case "finalized":
		return rpc.CommitmentFinalized
	case "confirmed":
		return rpc.CommitmentConfirmed
	case "processed":
		return rpc.CommitmentProcessed
	default:
		return rpc.CommitmentConfirmed
	}
}
