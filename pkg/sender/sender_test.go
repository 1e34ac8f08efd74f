package sender

import (
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"invariant-swap/config"
)

func testConfig(wallet *solana.Wallet, commitment string) config.SolanaConfig {
	return config.SolanaConfig{
		RPCUrl:     "http://localhost:8899",
		PrivateKey: wallet.PrivateKey.String(),
		Commitment: commitment,
	}
}

func TestNewValidatesConfig(t *testing.T) {
	wallet := solana.NewWallet()

	if _, err := New(config.SolanaConfig{PrivateKey: wallet.PrivateKey.String()}); err == nil {
		t.Fatalf("expected error for missing rpc url")
	}
	if _, err := New(config.SolanaConfig{RPCUrl: "http://localhost:8899"}); err == nil {
		t.Fatalf("expected error for missing private key")
	}
	if _, err := New(config.SolanaConfig{RPCUrl: "http://localhost:8899", PrivateKey: "garbage"}); err == nil {
		t.Fatalf("expected error for invalid private key")
	}

	s, err := New(testConfig(wallet, "confirmed"))
	if err != nil {
		t.Fatalf("expected sender, got error: %v", err)
	}
	if !s.PublicKey().Equals(wallet.PublicKey()) {
		t.Fatalf("expected public key %s, got %s", wallet.PublicKey(), s.PublicKey())
	}
}

func TestCommitmentMapping(t *testing.T) {
	wallet := solana.NewWallet()

	cases := []struct {
		configured string
		expected   rpc.CommitmentType
	}{
		{"finalized", rpc.CommitmentFinalized},
		{"Confirmed", rpc.CommitmentConfirmed},
		{"processed", rpc.CommitmentProcessed},
		{"", rpc.CommitmentConfirmed},
		{"bogus", rpc.CommitmentConfirmed},
	}

	for _, tc := range cases {
		s, err := New(testConfig(wallet, tc.configured))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := s.Commitment(); got != tc.expected {
			t.Fatalf("commitment %q: expected %v, got %v", tc.configured, tc.expected, got)
		}
	}
}

func TestSignRemaining(t *testing.T) {
	wallet := solana.NewWallet()
	s, err := New(testConfig(wallet, "confirmed"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ix := solana.NewInstruction(
		solana.NewWallet().PublicKey(),
		solana.AccountMetaSlice{solana.NewAccountMeta(wallet.PublicKey(), true, true)},
		[]byte{0x01},
	)
	tx, err := solana.NewTransaction([]solana.Instruction{ix}, solana.Hash{}, solana.TransactionPayer(wallet.PublicKey()))
	if err != nil {
		t.Fatalf("failed to build transaction: %v", err)
	}

	if err := s.SignRemaining(tx); err != nil {
		t.Fatalf("SignRemaining returned error: %v", err)
	}

	msg, err := tx.Message.MarshalBinary()
	if err != nil {
		t.Fatalf("failed to marshal message: %v", err)
	}
	if len(tx.Signatures) != 1 || !tx.Signatures[0].Verify(wallet.PublicKey(), msg) {
		t.Fatalf("wallet signature not applied")
	}
}

func TestSignRemainingRejectsForeignTransaction(t *testing.T) {
	wallet := solana.NewWallet()
	other := solana.NewWallet()

	s, err := New(testConfig(wallet, "confirmed"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Transaction pays from a different wallet, so ours is not a required
	// signer.
	ix := solana.NewInstruction(
		solana.NewWallet().PublicKey(),
		solana.AccountMetaSlice{solana.NewAccountMeta(other.PublicKey(), true, true)},
		[]byte{0x01},
	)
	tx, err := solana.NewTransaction([]solana.Instruction{ix}, solana.Hash{}, solana.TransactionPayer(other.PublicKey()))
	if err != nil {
		t.Fatalf("failed to build transaction: %v", err)
	}

	err = s.SignRemaining(tx)
	if err == nil {
		t.Fatalf("expected error when wallet is not a required signer")
	}
	if !strings.Contains(err.Error(), "does not require") {
		t.Fatalf("unexpected error: %v", err)
	}
}
