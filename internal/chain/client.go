// Package chain adapts the CDP-style onchain toolkit API. The pipeline sees
// it as "submit mint, get receipt or failure"; wallet custody, nonces and gas
// stay on the platform side.
package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/phdargen/xoninAgent/internal/core/domain"
	"github.com/phdargen/xoninAgent/internal/core/ports"
)

const (
	receiptPollInterval = 3 * time.Second
	receiptPollTimeout  = 2 * time.Minute
)

var errNotFound = errors.New("not found")

type Client struct {
	BaseURL    string
	APIKey     string
	NetworkID  string
	Contract   string
	WalletFile string
	HTTPClient *http.Client
	Log        *zap.Logger

	wallet walletData
}

// walletData is the persisted wallet export. It round-trips through a local
// file so every run reuses the same agent wallet.
type walletData struct {
	WalletID string `json:"wallet_id"`
	Address  string `json:"address"`
	Seed     string `json:"seed"`
}

func NewClient(baseURL, apiKey, networkID, contract, walletFile string, log *zap.Logger) *Client {
	return &Client{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		NetworkID:  networkID,
		Contract:   contract,
		WalletFile: walletFile,
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
		Log:        log,
	}
}

var (
	_ ports.Chain       = (*Client)(nil)
	_ ports.NameService = (*Client)(nil)
)

// Initialize loads the persisted wallet or provisions a new one, then tops up
// from the faucet on test networks if the wallet is dry.
func (c *Client) Initialize(ctx context.Context) error {
	if err := c.loadWallet(); err != nil {
		return err
	}
	if c.wallet.WalletID == "" {
		if err := c.createWallet(ctx); err != nil {
			return fmt.Errorf("provision wallet: %w", err)
		}
		if err := c.persistWallet(); err != nil {
			return fmt.Errorf("persist wallet: %w", err)
		}
		c.Log.Info("provisioned agent wallet",
			zap.String("address", c.wallet.Address),
			zap.String("network", c.NetworkID))
	}

	if c.NetworkID == "base-sepolia" {
		if err := c.topUpIfDry(ctx); err != nil {
			// faucet trouble only matters once a mint actually needs gas
			c.Log.Warn("faucet top-up failed", zap.Error(err))
		}
	}
	return nil
}

func (c *Client) loadWallet() error {
	raw, err := os.ReadFile(c.WalletFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read wallet data: %w", err)
	}
	if err := json.Unmarshal(raw, &c.wallet); err != nil {
		return fmt.Errorf("parse wallet data: %w", err)
	}
	return nil
}

func (c *Client) persistWallet() error {
	if err := os.MkdirAll(filepath.Dir(c.WalletFile), 0700); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(c.wallet, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.WalletFile, raw, 0600)
}

func (c *Client) createWallet(ctx context.Context) error {
	var res struct {
		WalletID string `json:"wallet_id"`
		Address  string `json:"default_address"`
		Seed     string `json:"seed"`
	}
	err := c.post(ctx, "/v1/wallets", map[string]string{"network_id": c.NetworkID}, &res)
	if err != nil {
		return err
	}
	c.wallet = walletData{WalletID: res.WalletID, Address: res.Address, Seed: res.Seed}
	return nil
}

func (c *Client) topUpIfDry(ctx context.Context) error {
	var bal struct {
		BalanceWei string `json:"balance_wei"`
	}
	path := fmt.Sprintf("/v1/wallets/%s/balance", c.wallet.WalletID)
	if err := c.get(ctx, path, &bal); err != nil {
		return err
	}
	if bal.BalanceWei != "" && bal.BalanceWei != "0" {
		return nil
	}
	c.Log.Info("wallet empty, requesting faucet funds")
	return c.post(ctx, fmt.Sprintf("/v1/wallets/%s/faucet", c.wallet.WalletID), nil, nil)
}

// Mint submits the mint and blocks until the receipt lands or the poll
// budget runs out. An onchain revert is a terminal failure, not an error.
func (c *Client) Mint(ctx context.Context, to string, tier domain.Tier, tokenURI string) (domain.MintResult, error) {
	if !common.IsHexAddress(to) {
		return domain.MintResult{}, fmt.Errorf("mint: %q is not an address", to)
	}

	req := map[string]any{
		"wallet_id":       c.wallet.WalletID,
		"network_id":      c.NetworkID,
		"destination":     to,
		"token_uri":       tokenURI,
		"idempotency_key": uuid.NewString(),
	}
	var res struct {
		TxHash  string `json:"transaction_hash"`
		TokenID string `json:"token_id"`
	}
	if err := c.post(ctx, fmt.Sprintf("/v1/contracts/%s/mint", c.Contract), req, &res); err != nil {
		return domain.MintResult{}, err
	}

	status, err := c.awaitReceipt(ctx, res.TxHash)
	if err != nil {
		return domain.MintResult{}, err
	}

	result := domain.MintResult{
		Address: to,
		Tier:    tier,
		TxHash:  res.TxHash,
		TokenID: res.TokenID,
		Success: status == "confirmed",
	}
	if !result.Success {
		result.Reason = fmt.Sprintf("transaction %s: %s", res.TxHash, status)
	}
	return result, nil
}

func (c *Client) awaitReceipt(ctx context.Context, txHash string) (string, error) {
	deadline := time.Now().Add(receiptPollTimeout)
	for {
		var res struct {
			Status string `json:"status"` // pending | confirmed | failed
		}
		if err := c.get(ctx, "/v1/transactions/"+txHash, &res); err != nil {
			return "", err
		}
		if res.Status != "pending" {
			return res.Status, nil
		}
		if time.Now().After(deadline) {
			return "", fmt.Errorf("receipt for %s still pending after %s", txHash, receiptPollTimeout)
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(receiptPollInterval):
		}
	}
}

// ResolveName looks up an ENS name through the toolkit's name service.
func (c *Client) ResolveName(ctx context.Context, name string) (string, error) {
	var res struct {
		Address string `json:"address"`
	}
	path := fmt.Sprintf("/v1/networks/%s/names/%s", c.NetworkID, name)
	if err := c.get(ctx, path, &res); err != nil {
		if errors.Is(err, errNotFound) {
			return "", domain.ErrNameNotRegistered
		}
		return "", err
	}
	if res.Address == "" {
		return "", domain.ErrNameNotRegistered
	}
	return res.Address, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, _ := http.NewRequestWithContext(ctx, "GET", c.BaseURL+path, nil)
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, _ := http.NewRequestWithContext(ctx, "POST", c.BaseURL+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%s %s: status %d: %s", req.Method, req.URL.Path, resp.StatusCode, body)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
