package order

import (
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// PriceCondition defines when an order should be triggered
type PriceCondition string

const (
	PriceAbove PriceCondition = "above" // Trigger when price goes above target
	PriceBelow PriceCondition = "below" // Trigger when price goes below target
)

// OrderStatus defines the current state of a limit order
type OrderStatus string

const (
	StatusActive    OrderStatus = "active"    // Order is being watched
	StatusPaused    OrderStatus = "paused"    // Order is paused
	StatusFilled    OrderStatus = "filled"    // Order executed successfully
	StatusCancelled OrderStatus = "cancelled" // Order was cancelled
	StatusFailed    OrderStatus = "failed"    // Last execution attempt failed
)

// LimitOrder is a swap that executes once a watched token's price crosses
// a target
type LimitOrder struct {
	// Identity
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Created     time.Time `json:"created"`
	LastUpdated time.Time `json:"last_updated"`

	// Swap parameters
	TokenInSymbol  string           `json:"token_in_symbol"`
	TokenOutSymbol string           `json:"token_out_symbol"`
	TokenIn        solana.PublicKey `json:"token_in"`
	TokenOut       solana.PublicKey `json:"token_out"`
	AmountIn       decimal.Decimal  `json:"amount_in"`
	TwoHopsOnly    bool             `json:"two_hops_only"` // Always request two-hop-capped routes

	// Trigger
	WatchToken     solana.PublicKey `json:"watch_token"`
	TriggerPrice   decimal.Decimal  `json:"trigger_price"`
	PriceCondition PriceCondition   `json:"price_condition"`

	// Execution tracking
	Status    OrderStatus `json:"status"`
	Fill      *Fill       `json:"fill,omitempty"`
	LastError string      `json:"last_error,omitempty"`
}

// Fill records the execution of an order
type Fill struct {
	Signature   string          `json:"signature"`
	Price       decimal.Decimal `json:"price"`
	AmountOut   uint64          `json:"amount_out"`
	AmountOutUI float64         `json:"amount_out_ui"`
	Timestamp   time.Time       `json:"timestamp"`
}

// Validate checks if the order has valid parameters
func (o *LimitOrder) Validate() error {
	if o.Name == "" {
		return fmt.Errorf("order name is required")
	}
	if o.TokenIn.IsZero() {
		return fmt.Errorf("input token is required")
	}
	if o.TokenOut.IsZero() {
		return fmt.Errorf("output token is required")
	}
	if o.TokenIn.Equals(o.TokenOut) {
		return fmt.Errorf("input and output tokens must differ")
	}
	if !o.AmountIn.IsPositive() {
		return fmt.Errorf("amount must be greater than 0")
	}
	if o.WatchToken.IsZero() {
		return fmt.Errorf("watch token is required")
	}
	if !o.TriggerPrice.IsPositive() {
		return fmt.Errorf("trigger price must be greater than 0")
	}
	if o.PriceCondition != PriceAbove && o.PriceCondition != PriceBelow {
		return fmt.Errorf("price condition must be 'above' or 'below'")
	}
	return nil
}

// IsActive returns true if the order is currently being watched
func (o *LimitOrder) IsActive() bool {
	return o.Status == StatusActive
}

// IsTerminal returns true once the order can no longer execute
func (o *LimitOrder) IsTerminal() bool {
	return o.Status == StatusFilled || o.Status == StatusCancelled
}

// ShouldTrigger reports whether the given price crosses the order's target
func (o *LimitOrder) ShouldTrigger(price decimal.Decimal) bool {
	switch o.PriceCondition {
	case PriceAbove:
		return price.GreaterThanOrEqual(o.TriggerPrice)
	case PriceBelow:
		return price.LessThanOrEqual(o.TriggerPrice)
	default:
		return false
	}
}
