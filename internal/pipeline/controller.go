// Package pipeline sequences one run of the agent: fetch mentions, resolve
// addresses, score, mint, reply. It owns the invariants: a mention is handled
// at most once across runs, an address is minted at most once ever, and no
// single mention's failure aborts the run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/phdargen/xoninAgent/internal/core/domain"
	"github.com/phdargen/xoninAgent/internal/core/ports"
)

// Resolver is the address-extraction step. Declared here so the controller
// accepts any implementation, fakes included.
type Resolver interface {
	Resolve(ctx context.Context, text string) (domain.ResolvedAddress, error)
}

type Controller struct {
	Social   ports.Social
	Resolver Resolver
	Scorer   ports.Scorer
	Chain    ports.Chain
	Renderer ports.Renderer // optional; mints proceed without a preview
	Composer ports.Composer // optional; template reply used instead
	Notifier ports.Notifier // optional
	Store    ports.Storage
	Log      *zap.Logger

	ReplyTemplate string
	TokenURIBase  string
}

// Run executes one full pass. Only wiring-level problems return an error;
// per-mention failures are recorded in the store and the pass continues.
func (c *Controller) Run(ctx context.Context) (domain.RunReport, error) {
	report := domain.RunReport{Started: time.Now().UTC()}

	cursor, err := c.Store.LoadCursor()
	if err != nil {
		return report, fmt.Errorf("load cursor: %w", err)
	}

	mentions, err := c.Social.FetchMentionsSince(ctx, cursor)
	if err != nil {
		return report, fmt.Errorf("fetch mentions: %w", err)
	}
	report.Fetched = len(mentions)

	// the cursor may only advance past terminal mentions: since_id narrows
	// the next fetch, so skipping a retryable (failed) mention here would
	// drop it forever. Once one mention in the batch stays retryable, the
	// cursor is pinned before it for the rest of the run.
	newest := cursor
	advance := true
	for _, m := range mentions {
		if err := ctx.Err(); err != nil {
			// committed records survive; the cursor stays put so the
			// unfinished tail of the batch is re-fetched next run
			c.Log.Warn("run cancelled mid-batch", zap.String("at_mention", m.ID))
			return c.finish(ctx, report), nil
		}

		if c.Store.Seen(m.ID) {
			if advance {
				newest = m.ID
			}
			c.Log.Debug("mention already processed", zap.String("mention_id", m.ID))
			continue
		}

		rec := c.processMention(ctx, m)
		switch rec.Outcome {
		case domain.OutcomeMinted:
			report.Minted++
		case domain.OutcomeFailed:
			report.Failed++
		default:
			report.Skipped++
		}

		if err := c.Store.Record(rec); err != nil {
			// the onchain action already happened; losing the record is
			// worse than noisy, but aborting now would not undo anything
			c.Log.Error("failed to persist record",
				zap.String("mention_id", m.ID), zap.Error(err))
		}

		if !rec.Outcome.Terminal() {
			advance = false
		} else if advance {
			newest = m.ID
		}

		c.Log.Info("mention processed",
			zap.String("mention_id", m.ID),
			zap.String("outcome", string(rec.Outcome)),
			zap.String("address", rec.Address),
			zap.String("tx_hash", rec.TxHash))
	}

	if newest != cursor {
		if err := c.Store.SaveCursor(newest); err != nil {
			c.Log.Error("failed to save cursor", zap.Error(err))
		}
	}

	return c.finish(ctx, report), nil
}

// processMention walks one mention through the state machine to a terminal
// outcome. It never returns an error: every failure maps to an outcome.
func (c *Controller) processMention(ctx context.Context, m domain.Mention) domain.ProcessedRecord {
	rec := domain.ProcessedRecord{MentionID: m.ID, ProcessedAt: time.Now().UTC()}

	// Fetched -> Resolved | ResolutionFailed
	resolved, err := c.Resolver.Resolve(ctx, m.Text)
	if err != nil {
		if !errors.Is(err, domain.ErrNoAddress) && !errors.Is(err, domain.ErrNameNotRegistered) {
			c.Log.Warn("resolution lookup failed",
				zap.String("mention_id", m.ID), zap.Error(err))
		}
		rec.Outcome = domain.OutcomeSkippedInvalid
		return rec
	}
	rec.Address = resolved.Address

	// cross-mention dedup: one mint per address, ever
	if c.Store.MintedAddress(resolved.Address) {
		rec.Outcome = domain.OutcomeSkippedDuplicate
		return rec
	}

	// Resolved -> Scored
	score, err := c.Scorer.Score(ctx, resolved.Address)
	if err != nil {
		c.Log.Warn("scoring failed",
			zap.String("mention_id", m.ID),
			zap.String("address", resolved.Address),
			zap.Error(err))
		rec.Outcome = domain.OutcomeFailed
		return rec
	}

	mediaPath := ""
	if c.Renderer != nil {
		mediaPath, err = c.Renderer.Render(resolved.Address, score.Tier)
		if err != nil {
			c.Log.Warn("render failed, minting without preview",
				zap.String("address", resolved.Address), zap.Error(err))
			mediaPath = ""
		}
	}

	// Scored -> Minted | MintFailed
	tokenURI := fmt.Sprintf("%s/%s/%s", c.TokenURIBase, score.Tier, resolved.Address)
	result, err := c.Chain.Mint(ctx, resolved.Address, score.Tier, tokenURI)
	if err != nil {
		c.Log.Warn("mint error",
			zap.String("mention_id", m.ID),
			zap.String("address", resolved.Address),
			zap.Error(err))
		rec.Outcome = domain.OutcomeFailed
		return rec
	}
	if !result.Success {
		rec.Outcome = domain.OutcomeFailed
		rec.TxHash = result.TxHash
		c.Log.Warn("mint reverted",
			zap.String("mention_id", m.ID),
			zap.String("reason", result.Reason))
		return rec
	}
	result.MediaPath = mediaPath
	rec.Outcome = domain.OutcomeMinted
	rec.TxHash = result.TxHash

	// Minted -> Replied | ReplyFailed. The mint is authoritative; a reply
	// failure never rolls the outcome back.
	text := c.composeReply(ctx, m, result)
	replyID, err := c.Social.PostReply(ctx, m.ID, text, mediaPath)
	if err != nil {
		c.Log.Warn("reply failed",
			zap.String("mention_id", m.ID), zap.Error(err))
		return rec
	}
	rec.ReplyID = replyID
	return rec
}

func (c *Controller) composeReply(ctx context.Context, m domain.Mention, result domain.MintResult) string {
	if c.Composer != nil {
		text, err := c.Composer.ComposeReply(ctx, m, result)
		if err == nil && text != "" {
			return text
		}
		if err != nil {
			c.Log.Warn("composer failed, using template", zap.Error(err))
		}
	}

	r := strings.NewReplacer(
		"{{tier}}", result.Tier.String(),
		"{{address}}", result.Address,
		"{{tx}}", result.TxHash,
	)
	return r.Replace(c.ReplyTemplate)
}

func (c *Controller) finish(ctx context.Context, report domain.RunReport) domain.RunReport {
	report.Finished = time.Now().UTC()

	c.Log.Info("run complete",
		zap.Int("fetched", report.Fetched),
		zap.Int("minted", report.Minted),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
		zap.Duration("took", report.Finished.Sub(report.Started)))

	if c.Notifier != nil {
		if err := c.Notifier.NotifyRunReport(ctx, report); err != nil {
			c.Log.Warn("run report notification failed", zap.Error(err))
		}
	}
	return report
}
