// Package backend is the client for the remote persistence service. The
// core delegates all durable storage to it: wallet/transaction records and
// authoritative balances live there, and its change stream feeds the
// realtime bridge.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Fortis-Ledger/payoova2-sub000/internal/domain/entities"
	"github.com/Fortis-Ledger/payoova2-sub000/pkg/retry"
)

const defaultTimeout = 10 * time.Second

// Client talks to the persistence backend over HTTP
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	retrier    *retry.Retrier
	logger     *zap.Logger
}

// Config holds backend client configuration
type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
}

// NewClient creates a backend client
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}

	policy := retry.DefaultPolicy()
	if cfg.MaxRetries > 0 {
		policy.MaxRetries = cfg.MaxRetries
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		retrier:    retry.NewRetrier(policy, logger),
		logger:     logger,
	}
}

// InsertTransaction persists a pending transaction. The record carries a
// client-generated ID, so retries are safe: the backend upserts by ID.
func (c *Client) InsertTransaction(ctx context.Context, tx *entities.Transaction) error {
	return c.retrier.Do(ctx, func() error {
		return c.post(ctx, "/transactions", tx, tx)
	})
}

// CreateWallet asks the backend to provision a wallet for the user on the
// network. Address generation and key custody happen server-side.
func (c *Client) CreateWallet(ctx context.Context, userID uuid.UUID, network entities.Network) (*entities.Wallet, error) {
	request := map[string]string{
		"user_id": userID.String(),
		"network": string(network),
	}

	var wallet entities.Wallet
	err := c.retrier.Do(ctx, func() error {
		return c.post(ctx, "/wallets", request, &wallet)
	})
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

// ListWallets fetches the user's wallet records
func (c *Client) ListWallets(ctx context.Context, userID uuid.UUID) ([]entities.Wallet, error) {
	var wallets []entities.Wallet
	endpoint := "/wallets?user_id=" + url.QueryEscape(userID.String())
	if err := c.get(ctx, endpoint, &wallets); err != nil {
		return nil, err
	}
	return wallets, nil
}

// ListTransactions fetches the user's transaction records
func (c *Client) ListTransactions(ctx context.Context, userID uuid.UUID) ([]entities.Transaction, error) {
	var txs []entities.Transaction
	endpoint := "/transactions?user_id=" + url.QueryEscape(userID.String())
	if err := c.get(ctx, endpoint, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

// FetchBalances fetches authoritative balances for the user's wallets
func (c *Client) FetchBalances(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	var payload []struct {
		WalletID uuid.UUID       `json:"wallet_id"`
		Balance  decimal.Decimal `json:"balance"`
	}
	endpoint := "/wallets/balances?user_id=" + url.QueryEscape(userID.String())
	if err := c.get(ctx, endpoint, &payload); err != nil {
		return nil, err
	}

	balances := make(map[uuid.UUID]decimal.Decimal, len(payload))
	for _, entry := range payload {
		balances[entry.WalletID] = entry.Balance
	}
	return balances, nil
}

func (c *Client) post(ctx context.Context, path string, body, dest interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	c.setHeaders(req)

	return c.do(req, dest)
}

func (c *Client) get(ctx context.Context, path string, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	c.setHeaders(req)

	return c.do(req, dest)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

func (c *Client) do(req *http.Request, dest interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("backend request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("backend returned %d: %s", resp.StatusCode, string(body))
	}

	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode backend response: %w", err)
	}
	return nil
}
