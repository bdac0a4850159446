// Package fake is an offline ports.Social adapter used by --dry-run and by
// tests. Mentions come from a JSON file in the X API payload shape or from a
// preloaded slice; replies are captured instead of posted.
package fake

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/phdargen/xoninAgent/internal/core/domain"
	"github.com/phdargen/xoninAgent/internal/core/ports"
)

type Reply struct {
	MentionID string
	Text      string
	MediaPath string
}

type Client struct {
	mu       sync.Mutex
	Mentions []domain.Mention
	Replies  []Reply
	nextID   int
}

func NewClient(mentions []domain.Mention) *Client {
	return &Client{Mentions: mentions, nextID: 9000}
}

// NewClientFromFile loads a dummy-mentions JSON file shaped like the platform
// mentions payload: {"data": [{"id": "...", "text": "..."}]}.
func NewClientFromFile(path string) (*Client, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dummy mentions %s: %w", path, err)
	}

	var payload struct {
		Data []struct {
			ID        string `json:"id"`
			AuthorID  string `json:"author_id"`
			Text      string `json:"text"`
			CreatedAt string `json:"created_at"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("parse dummy mentions %s: %w", path, err)
	}

	mentions := make([]domain.Mention, 0, len(payload.Data))
	for _, t := range payload.Data {
		created, _ := time.Parse(time.RFC3339, t.CreatedAt)
		mentions = append(mentions, domain.Mention{
			ID:        t.ID,
			AuthorID:  t.AuthorID,
			Text:      t.Text,
			CreatedAt: created,
		})
	}
	return NewClient(mentions), nil
}

var _ ports.Social = (*Client)(nil)

func (c *Client) Name() string {
	return "fake"
}

func (c *Client) FetchMentionsSince(ctx context.Context, sinceID string) ([]domain.Mention, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []domain.Mention
	for _, m := range c.Mentions {
		if sinceID == "" || newer(m.ID, sinceID) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (c *Client) PostReply(ctx context.Context, mentionID, text, mediaPath string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Replies = append(c.Replies, Reply{MentionID: mentionID, Text: text, MediaPath: mediaPath})
	c.nextID++
	return fmt.Sprintf("%d", c.nextID), nil
}

// newer compares decimal string ids without parsing; shorter means smaller.
func newer(id, sinceID string) bool {
	if len(id) != len(sinceID) {
		return len(id) > len(sinceID)
	}
	return id > sinceID
}
