package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/phdargen/xoninAgent/internal/core/domain"
)

const destAddr = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	walletFile := filepath.Join(t.TempDir(), "wallet_data.json")
	return NewClient(srv.URL, "api-key", "base-sepolia",
		"0x4B9523186371F5a805d2EF882Cf0c6a52120deF8", walletFile, zap.NewNop())
}

func TestInitialize_ProvisionsAndPersistsWallet(t *testing.T) {
	faucetCalls := 0
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == "POST" && r.URL.Path == "/v1/wallets":
			fmt.Fprint(w, `{"wallet_id": "w1", "default_address": "0xA11ce00000000000000000000000000000000000", "seed": "s3cret"}`)
		case r.URL.Path == "/v1/wallets/w1/balance":
			fmt.Fprint(w, `{"balance_wei": "0"}`)
		case r.Method == "POST" && r.URL.Path == "/v1/wallets/w1/faucet":
			faucetCalls++
			fmt.Fprint(w, `{}`)
		default:
			http.NotFound(w, r)
		}
	}))

	require.NoError(t, c.Initialize(context.Background()))
	assert.Equal(t, 1, faucetCalls, "dry wallet on a test network hits the faucet")

	// wallet export persisted for the next run
	raw, err := os.ReadFile(c.WalletFile)
	require.NoError(t, err)
	var persisted map[string]string
	require.NoError(t, json.Unmarshal(raw, &persisted))
	assert.Equal(t, "w1", persisted["wallet_id"])

	// a fresh client reuses the wallet instead of provisioning again
	c2 := NewClient(c.BaseURL, "api-key", "base-sepolia", c.Contract, c.WalletFile, zap.NewNop())
	c2.HTTPClient = c.HTTPClient
	require.NoError(t, c2.loadWallet())
	assert.Equal(t, "w1", c2.wallet.WalletID)
}

func TestInitialize_SkipsFaucetWhenFunded(t *testing.T) {
	faucetCalls := 0
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/v1/wallets":
			fmt.Fprint(w, `{"wallet_id": "w1", "default_address": "0xA11ce00000000000000000000000000000000000"}`)
		case r.URL.Path == "/v1/wallets/w1/balance":
			fmt.Fprint(w, `{"balance_wei": "5000000000000000"}`)
		case r.URL.Path == "/v1/wallets/w1/faucet":
			faucetCalls++
		default:
			http.NotFound(w, r)
		}
	}))

	require.NoError(t, c.Initialize(context.Background()))
	assert.Zero(t, faucetCalls)
}

func TestMint_ConfirmedAfterPolling(t *testing.T) {
	polls := 0
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == "POST":
			var req map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, destAddr, req["destination"])
			assert.NotEmpty(t, req["idempotency_key"])
			fmt.Fprint(w, `{"transaction_hash": "0xfeed", "token_id": "7"}`)
		default:
			polls++
			if polls < 2 {
				fmt.Fprint(w, `{"status": "pending"}`)
			} else {
				fmt.Fprint(w, `{"status": "confirmed"}`)
			}
		}
	}))

	result, err := c.Mint(context.Background(), destAddr, domain.TierBloom, "https://xonin.art/meta/bloom/"+destAddr)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "0xfeed", result.TxHash)
	assert.Equal(t, "7", result.TokenID)
	assert.GreaterOrEqual(t, polls, 2)
}

func TestMint_RevertIsTerminalFailureNotError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "POST" {
			fmt.Fprint(w, `{"transaction_hash": "0xdead"}`)
			return
		}
		fmt.Fprint(w, `{"status": "failed"}`)
	}))

	result, err := c.Mint(context.Background(), destAddr, domain.TierSprout, "uri")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Reason, "0xdead")
}

func TestMint_RejectsNonAddress(t *testing.T) {
	c := newTestClient(t, http.NotFoundHandler())
	_, err := c.Mint(context.Background(), "not-an-address", domain.TierSprout, "uri")
	require.Error(t, err)
}

func TestResolveName(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/networks/base-sepolia/names/vitalik.eth":
			fmt.Fprint(w, `{"address": "0xd8da6bf26964af9d7eed9e03e53415d37aa96045"}`)
		default:
			http.NotFound(w, r)
		}
	}))

	t.Run("registered", func(t *testing.T) {
		addr, err := c.ResolveName(context.Background(), "vitalik.eth")
		require.NoError(t, err)
		assert.Equal(t, "0xd8da6bf26964af9d7eed9e03e53415d37aa96045", addr)
	})

	t.Run("unregistered maps to the sentinel", func(t *testing.T) {
		_, err := c.ResolveName(context.Background(), "nobody.eth")
		assert.ErrorIs(t, err, domain.ErrNameNotRegistered)
	})
}
