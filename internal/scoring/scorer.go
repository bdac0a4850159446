// Package scoring turns onchain activity into a reputation score and maps it
// to the discrete tier that parameterizes the minted art.
package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/phdargen/xoninAgent/internal/core/domain"
	"github.com/phdargen/xoninAgent/internal/core/ports"
)

const weiPerEth = 1e18

// ExplorerScorer reads account signals from an Etherscan-style explorer API.
type ExplorerScorer struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Tiers      []float64 // ascending thresholds for tiers 1..4
	Log        *zap.Logger
}

func NewExplorerScorer(baseURL, apiKey string, tiers []float64, log *zap.Logger) *ExplorerScorer {
	return &ExplorerScorer{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Tiers:      tiers,
		Log:        log,
	}
}

var _ ports.Scorer = (*ExplorerScorer)(nil)

// Score queries current chain state; results are intentionally not cached
// across runs, reputation moves with the chain.
func (s *ExplorerScorer) Score(ctx context.Context, address string) (domain.ReputationScore, error) {
	txs, err := s.fetchTransactions(ctx, address)
	if err != nil {
		return domain.ReputationScore{}, fmt.Errorf("fetch transactions for %s: %w", address, err)
	}
	balance, err := s.fetchBalance(ctx, address)
	if err != nil {
		return domain.ReputationScore{}, fmt.Errorf("fetch balance for %s: %w", address, err)
	}

	sig := summarize(txs, balance, time.Now())
	value := Value(sig)
	score := domain.ReputationScore{
		Address:  address,
		Value:    value,
		Tier:     TierFor(value, s.Tiers),
		Signals:  sig,
		ScoredAt: time.Now().UTC(),
	}
	s.Log.Debug("scored address",
		zap.String("address", address),
		zap.Float64("value", score.Value),
		zap.String("tier", score.Tier.String()))
	return score, nil
}

// explorerTx is the subset of the txlist response the scorer needs.
type explorerTx struct {
	TimeStamp       string `json:"timeStamp"`
	To              string `json:"to"`
	ContractAddress string `json:"contractAddress"`
	Input           string `json:"input"`
}

func (s *ExplorerScorer) fetchTransactions(ctx context.Context, address string) ([]explorerTx, error) {
	q := url.Values{}
	q.Set("module", "account")
	q.Set("action", "txlist")
	q.Set("address", address)
	q.Set("sort", "asc")
	if s.APIKey != "" {
		q.Set("apikey", s.APIKey)
	}

	req, _ := http.NewRequestWithContext(ctx, "GET", s.BaseURL+"?"+q.Encode(), nil)
	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("explorer txlist status %d", resp.StatusCode)
	}

	var data struct {
		Status string       `json:"status"`
		Result []explorerTx `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, err
	}
	// status "0" with empty result means a fresh address, not an error
	return data.Result, nil
}

func (s *ExplorerScorer) fetchBalance(ctx context.Context, address string) (*big.Int, error) {
	q := url.Values{}
	q.Set("module", "account")
	q.Set("action", "balance")
	q.Set("address", address)
	if s.APIKey != "" {
		q.Set("apikey", s.APIKey)
	}

	req, _ := http.NewRequestWithContext(ctx, "GET", s.BaseURL+"?"+q.Encode(), nil)
	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("explorer balance status %d", resp.StatusCode)
	}

	var data struct {
		Result string `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, err
	}
	wei, ok := new(big.Int).SetString(data.Result, 10)
	if !ok {
		wei = big.NewInt(0)
	}
	return wei, nil
}

func summarize(txs []explorerTx, balanceWei *big.Int, now time.Time) domain.Signals {
	sig := domain.Signals{TxCount: int64(len(txs))}

	contracts := make(map[string]struct{})
	for _, tx := range txs {
		// calls with input data hit contracts; plain transfers don't count
		if len(tx.Input) > 2 && tx.To != "" {
			contracts[tx.To] = struct{}{}
		}
	}
	sig.ContractCount = int64(len(contracts))

	if len(txs) > 0 {
		if ts, err := strconv.ParseInt(txs[0].TimeStamp, 10, 64); err == nil {
			sig.AgeDays = int64(now.Sub(time.Unix(ts, 0)).Hours() / 24)
		}
	}

	eth, _ := new(big.Float).Quo(new(big.Float).SetInt(balanceWei), big.NewFloat(weiPerEth)).Float64()
	sig.BalanceEth = eth
	return sig
}

// Value is the scoring polynomial: activity dominates, balance and account
// age contribute diminishing bonuses.
func Value(sig domain.Signals) float64 {
	v := float64(sig.TxCount) + 3*float64(sig.ContractCount)
	v += 10 * sig.BalanceEth
	v += float64(sig.AgeDays) / 30
	return v
}

// TierFor maps a score onto the banded tiers. Below the first threshold is
// still a tier: low activity changes the art, it never blocks the mint.
func TierFor(value float64, thresholds []float64) domain.Tier {
	tier := domain.TierSeedling
	for i, th := range thresholds {
		if value >= th {
			tier = domain.Tier(i + 1)
		}
	}
	return tier
}
