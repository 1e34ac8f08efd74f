package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// SwapCommand is a parsed natural language swap instruction. Token symbols
// are normalized but not resolved to mints.
type SwapCommand struct {
	Amount   decimal.Decimal
	TokenIn  string
	TokenOut string
}

var commandPattern = regexp.MustCompile(`^(\d+\.?\d*)\s+([A-Z0-9$]+)\s+TO\s+([A-Z0-9$]+)$`)

// ParseSwapCommand parses a natural language swap command
// Examples:
//   - "swap 1 SOL to USDC"
//   - "1.5 WSOL to USDC"
//   - "100 USDC to SOL"
func ParseSwapCommand(command string) (*SwapCommand, error) {
	// Normalize the command
	command = strings.TrimSpace(strings.ToUpper(command))

	// Remove the word "SWAP" if present at the beginning
	command = strings.TrimPrefix(command, "SWAP ")

	// Pattern: <amount> <input_token> TO <output_token>
	matches := commandPattern.FindStringSubmatch(command)
	if matches == nil {
		return nil, fmt.Errorf("invalid swap command format. Expected: 'swap <amount> <token> to <token>' (e.g., 'swap 1 SOL to USDC')")
	}

	amount, err := decimal.NewFromString(matches[1])
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", matches[1], err)
	}
	if amount.IsZero() {
		return nil, fmt.Errorf("amount must be greater than 0")
	}

	return &SwapCommand{
		Amount:   amount,
		TokenIn:  NormalizeTokenSymbol(matches[2]),
		TokenOut: NormalizeTokenSymbol(matches[3]),
	}, nil
}

// NormalizeTokenSymbol normalizes token symbols to the form the token list
// uses
func NormalizeTokenSymbol(symbol string) string {
	symbol = strings.TrimSpace(strings.ToUpper(symbol))

	// Tickers are often written with a leading dollar sign
	symbol = strings.TrimPrefix(symbol, "$")

	// The aggregator lists wrapped SOL as SOL
	if symbol == "WSOL" {
		return "SOL"
	}

	return symbol
}
