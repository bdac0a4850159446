package domain

import (
	"errors"
	"time"
)

// Resolution sentinel errors. Both map to a skipped-invalid outcome in the
// pipeline, never to a run failure.
var (
	ErrNoAddress         = errors.New("no address or name found in text")
	ErrNameNotRegistered = errors.New("name is not registered")
)

// Mention represents one inbound post that tags the agent's handle.
type Mention struct {
	ID             string // platform-assigned, immutable; the dedup key
	AuthorID       string
	AuthorUsername string
	Text           string
	CreatedAt      time.Time
}

// ResolutionMethod tells how an address was derived from mention text.
type ResolutionMethod string

const (
	ResolveDirect ResolutionMethod = "direct"
	ResolveENS    ResolutionMethod = "ens"
)

// ResolvedAddress is a checksum-normalized address extracted from a mention.
type ResolvedAddress struct {
	Address string // EIP-55 form
	Span    string // the matched text, e.g. "0xabc..." or "xonin.eth"
	Method  ResolutionMethod
}

// Tier is the discrete reputation band that parameterizes the minted art.
type Tier int

const (
	TierSeedling Tier = iota
	TierSprout
	TierBloom
	TierCanopy
	TierAncient
)

func (t Tier) String() string {
	switch t {
	case TierSeedling:
		return "seedling"
	case TierSprout:
		return "sprout"
	case TierBloom:
		return "bloom"
	case TierCanopy:
		return "canopy"
	case TierAncient:
		return "ancient"
	}
	return "unknown"
}

// Signals are the raw onchain observations that feed the score.
type Signals struct {
	TxCount       int64   `json:"tx_count"`
	BalanceEth    float64 `json:"balance_eth"`
	ContractCount int64   `json:"contract_count"`
	AgeDays       int64   `json:"age_days"`
}

// ReputationScore is the scored snapshot of an address at query time.
// Scores are never cached across runs; chain state moves.
type ReputationScore struct {
	Address  string
	Value    float64
	Tier     Tier
	Signals  Signals
	ScoredAt time.Time
}

// MintResult is the outcome of one mint attempt.
type MintResult struct {
	Address   string
	Tier      Tier
	TxHash    string
	TokenID   string
	Success   bool
	Reason    string // failure reason when Success is false
	MediaPath string // rendered preview artifact, may be empty
}

// Outcome is the terminal state of a processed mention.
type Outcome string

const (
	OutcomeMinted           Outcome = "minted"
	OutcomeSkippedInvalid   Outcome = "skipped-invalid"
	OutcomeSkippedDuplicate Outcome = "skipped-duplicate"
	OutcomeFailed           Outcome = "failed"
)

// Terminal reports whether the outcome should suppress reprocessing on later
// runs. Failed mints stay retryable.
func (o Outcome) Terminal() bool {
	return o == OutcomeMinted || o == OutcomeSkippedInvalid || o == OutcomeSkippedDuplicate
}

// ProcessedRecord is the append-only audit entry for one handled mention.
type ProcessedRecord struct {
	MentionID   string    `json:"mention_id"`
	Address     string    `json:"address,omitempty"`
	Outcome     Outcome   `json:"outcome"`
	TxHash      string    `json:"tx_hash,omitempty"`
	ReplyID     string    `json:"reply_id,omitempty"`
	ProcessedAt time.Time `json:"processed_at"`
}

// RunReport summarizes one pipeline pass.
type RunReport struct {
	Started  time.Time
	Finished time.Time
	Fetched  int
	Minted   int
	Skipped  int
	Failed   int
}
