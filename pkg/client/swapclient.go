package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"

	"invariant-swap/pkg/types"
)

// DefaultBaseURL points at the public aggregator deployment. Pass a
// different URL to NewSwapClient to target another one.
const DefaultBaseURL = "http://168.119.64.170:3000"

// APIError is returned whenever the aggregator answers with a non-success
// HTTP status. The response body is not read; the status line is all it
// carries.
type APIError struct {
	StatusCode int
	Status     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api returned status %s", e.Status)
}

// SwapClient talks to the Invariant swap-aggregator HTTP API. It holds no
// mutable state, so a single client can serve concurrent callers. It does
// not retry, cache, or enforce timeouts; cancellation and deadlines come
// from the caller's context or the injected transport.
type SwapClient struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// Option configures a SwapClient
type Option func(*SwapClient)

// WithHTTPClient replaces the transport. Timeout policy, if wanted, belongs
// on the client passed here.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *SwapClient) {
		c.httpClient = httpClient
	}
}

// WithLogger enables debug logging of outgoing requests
func WithLogger(log zerolog.Logger) Option {
	return func(c *SwapClient) {
		c.log = log
	}
}

// NewSwapClient creates a client for the aggregator at baseURL. An empty
// baseURL selects DefaultBaseURL.
func NewSwapClient(baseURL string, opts ...Option) *SwapClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &SwapClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the base URL the client was built with
func (c *SwapClient) BaseURL() string {
	return c.baseURL
}

// GetTokenList retrieves all tokens the aggregator can route. Every address
// in the response must parse as a valid key or the whole call fails.
func (c *SwapClient) GetTokenList(ctx context.Context) ([]types.TokenInfo, error) {
	var tokens []types.TokenInfo
	if err := c.getJSON(ctx, "/tokenList", &tokens); err != nil {
		return nil, fmt.Errorf("failed to get token list: %w", err)
	}
	return tokens, nil
}

type tokenPriceResponse struct {
	Price *float64 `json:"price,string"`
}

// GetTokenPrice returns the current price of a token
func (c *SwapClient) GetTokenPrice(ctx context.Context, token solana.PublicKey) (float64, error) {
	var resp tokenPriceResponse
	if err := c.getJSON(ctx, "/tokenPrice/"+token.String(), &resp); err != nil {
		return 0, fmt.Errorf("failed to get token price: %w", err)
	}
	if resp.Price == nil {
		return 0, fmt.Errorf("price missing from response for token %s", token)
	}
	return *resp.Price, nil
}

// FindToken resolves a mint address or a symbol against the token list.
// Symbols match case-insensitively, exact match first.
func (c *SwapClient) FindToken(ctx context.Context, query string) (*types.TokenInfo, error) {
	tokens, err := c.GetTokenList(ctx)
	if err != nil {
		return nil, err
	}

	if addr, err := solana.PublicKeyFromBase58(query); err == nil {
		for _, token := range tokens {
			if token.Address.Equals(addr) {
				return &token, nil
			}
		}
	}

	symbol := strings.ToUpper(query)

	// Try exact match first
	for _, token := range tokens {
		if strings.ToUpper(token.Symbol) == symbol {
			return &token, nil
		}
	}

	// Try partial match
	for _, token := range tokens {
		if strings.Contains(strings.ToUpper(token.Symbol), symbol) {
			return &token, nil
		}
	}

	return nil, fmt.Errorf("token '%s' not found", query)
}

func (c *SwapClient) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	return c.doJSON(req, out)
}

func (c *SwapClient) postJSON(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doJSON(req, out)
}

// doJSON runs one request/response exchange. A non-2xx status becomes an
// *APIError without reading the body.
func (c *SwapClient) doJSON(req *http.Request, out interface{}) error {
	c.log.Debug().Str("method", req.Method).Str("url", req.URL.String()).Msg("calling swap api")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
