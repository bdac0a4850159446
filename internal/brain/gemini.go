package brain

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"

	"github.com/phdargen/xoninAgent/internal/core/domain"
	"github.com/phdargen/xoninAgent/internal/core/ports"
)

const systemPrompt = `You are Xonin, an onchain reputation bot. When someone asks you to
mint, you score their address and mint them a generative artwork whose look
reflects their onchain history.

Voice:
- One short tweet, under 240 characters, friendly and a little playful.
- Always include the transaction hash you are given, verbatim.
- Mention the tier name naturally ("a bloom-tier garden", "ancient roots").
- Never invent facts about the address beyond the tier you were given.
- No hashtags, no emoji spam (one emoji is fine).`

type modelConfig struct {
	Name string
	RPM  int
	RPD  int
}

// GeminiComposer writes personalized reply text. Model fallback and request
// budgets follow the free-tier limits per model.
type GeminiComposer struct {
	Client *genai.Client
	Models []modelConfig

	dailyCount   map[string]int
	minuteCount  map[string]int
	lastResetDay time.Time
	lastResetMin time.Time
	mu           sync.Mutex
}

func NewGeminiComposer(ctx context.Context, apiKey string) (*GeminiComposer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, err
	}

	return &GeminiComposer{
		Client: client,
		Models: []modelConfig{
			{Name: "gemini-2.5-flash", RPM: 10, RPD: 250},
			{Name: "gemini-2.5-flash-lite", RPM: 15, RPD: 1000},
		},
		dailyCount:   make(map[string]int),
		minuteCount:  make(map[string]int),
		lastResetDay: time.Now(),
		lastResetMin: time.Now(),
	}, nil
}

var _ ports.Composer = (*GeminiComposer)(nil)

func (b *GeminiComposer) ComposeReply(ctx context.Context, mention domain.Mention, result domain.MintResult) (string, error) {
	prompt := fmt.Sprintf(`%s

Task: write the reply tweet for this mint.
Requester: @%s
Requester's message: %s
Minted to: %s
Reputation tier: %s
Transaction hash: %s

Output the tweet text only, no quotes, no JSON.`,
		systemPrompt, mention.AuthorUsername, mention.Text,
		result.Address, result.Tier, result.TxHash)

	text, err := b.tryGenerateWithFallback(ctx, prompt)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if !strings.Contains(text, result.TxHash) {
		// the hash is the one non-negotiable part of the reply
		text = fmt.Sprintf("%s Tx: %s", text, result.TxHash)
	}
	return text, nil
}

func (b *GeminiComposer) tryGenerateWithFallback(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for _, cfg := range b.Models {
		if !b.canUseModel(cfg) {
			continue
		}

		result, err := b.Client.Models.GenerateContent(ctx, cfg.Name, genai.Text(prompt), nil)
		if err != nil {
			errStr := strings.ToLower(err.Error())
			if strings.Contains(errStr, "429") || strings.Contains(errStr, "rate limit") ||
				strings.Contains(errStr, "exhausted") || strings.Contains(errStr, "not found") {
				lastErr = err
				continue
			}
			return "", err
		}

		if text, ok := firstText(result); ok {
			b.recordUsage(cfg)
			return text, nil
		}
	}
	return "", fmt.Errorf("all models unavailable: %v", lastErr)
}

// firstText extracts the first candidate's text. A safety-blocked candidate
// arrives with nil Content, so every hop is checked.
func firstText(result *genai.GenerateContentResponse) (string, bool) {
	if result == nil || len(result.Candidates) == 0 {
		return "", false
	}
	content := result.Candidates[0].Content
	if content == nil || len(content.Parts) == 0 {
		return "", false
	}
	return content.Parts[0].Text, true
}

func (b *GeminiComposer) canUseModel(cfg modelConfig) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := time.Now()
	if now.YearDay() != b.lastResetDay.YearDay() {
		b.dailyCount = make(map[string]int)
		b.lastResetDay = now
	}
	if now.Sub(b.lastResetMin) >= time.Minute {
		b.minuteCount = make(map[string]int)
		b.lastResetMin = now
	}
	if b.dailyCount[cfg.Name] >= cfg.RPD {
		return false
	}
	if b.minuteCount[cfg.Name] >= cfg.RPM {
		return false
	}
	return true
}

func (b *GeminiComposer) recordUsage(cfg modelConfig) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dailyCount[cfg.Name]++
	b.minuteCount[cfg.Name]++
}
