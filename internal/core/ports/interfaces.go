package ports

import (
	"context"

	"github.com/phdargen/xoninAgent/internal/core/domain"
)

// Social is the platform adapter: fetch mentions of the agent's account and
// post replies. Implementations handle auth, pagination limits and mapping.
type Social interface {
	Name() string
	// FetchMentionsSince returns mentions newer than sinceID, oldest first.
	// An empty sinceID means "as far back as the platform allows".
	FetchMentionsSince(ctx context.Context, sinceID string) ([]domain.Mention, error)
	// PostReply replies to a mention, optionally attaching a media file.
	// mediaPath may be empty.
	PostReply(ctx context.Context, mentionID, text, mediaPath string) (string, error)
}

// NameService resolves a human-readable name (ENS) to a hex address.
type NameService interface {
	ResolveName(ctx context.Context, name string) (string, error)
}

// Scorer computes a reputation snapshot for an address.
type Scorer interface {
	Score(ctx context.Context, address string) (domain.ReputationScore, error)
}

// Chain is the onchain toolkit boundary: submit a mint, get a receipt or a
// failure. Wallet and nonce management live behind this interface.
type Chain interface {
	// Mint mints one token to the address and blocks until a receipt or a
	// terminal failure. Errors are transport-level only; an onchain revert
	// comes back as MintResult{Success: false}.
	Mint(ctx context.Context, to string, tier domain.Tier, tokenURI string) (domain.MintResult, error)
}

// Renderer produces the preview artwork for an address at a tier and returns
// the path of the written artifact.
type Renderer interface {
	Render(address string, tier domain.Tier) (string, error)
}

// Composer writes the human-facing reply text. Optional: the pipeline falls
// back to a template when no composer is wired or composition fails.
type Composer interface {
	ComposeReply(ctx context.Context, mention domain.Mention, result domain.MintResult) (string, error)
}

// Notifier pushes a run summary to the owner. Best effort, optional.
type Notifier interface {
	NotifyRunReport(ctx context.Context, report domain.RunReport) error
}

// Storage is the memory store: the only state carried between runs.
// Mutators flush durably before returning.
type Storage interface {
	// Seen reports whether the mention already reached a terminal outcome.
	// Failed mints are recorded but not seen, so they retry next run.
	Seen(mentionID string) bool
	// MintedAddress reports whether the address already received a mint,
	// regardless of which mention requested it.
	MintedAddress(address string) bool
	Record(rec domain.ProcessedRecord) error
	LoadCursor() (string, error)
	SaveCursor(sinceID string) error
	Records() []domain.ProcessedRecord
}
