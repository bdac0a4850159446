// Package x is the adapter for the X (Twitter) v2 API. It implements
// ports.Social: mention fetching with a since_id cursor and reply posting
// with an optional media attachment.
package x

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/phdargen/xoninAgent/internal/core/domain"
	"github.com/phdargen/xoninAgent/internal/core/ports"
)

const (
	DefaultBaseURL        = "https://api.twitter.com"
	DefaultMediaUploadURL = "https://upload.twitter.com/1.1/media/upload.json"

	// Free-tier mention lookups allow one call per 15 minutes; the daily
	// cadence stays far under that, but one run never paginates.
	maxResultsCap = 100
)

type Client struct {
	BaseURL        string
	MediaUploadURL string
	// BearerToken is the app-only token; it can only read. Posting tweets
	// and uploading media require user-context auth, so UserToken carries
	// an OAuth2 user access token for the write endpoints.
	BearerToken string
	UserToken   string
	AccountID   string
	MaxResults  int
	HTTPClient  *http.Client
	Log         *zap.Logger
}

func NewClient(bearerToken, userToken, accountID string, maxResults int, log *zap.Logger) *Client {
	if maxResults <= 0 || maxResults > maxResultsCap {
		maxResults = maxResultsCap
	}
	return &Client{
		BaseURL:        DefaultBaseURL,
		MediaUploadURL: DefaultMediaUploadURL,
		BearerToken:    bearerToken,
		UserToken:      userToken,
		AccountID:      accountID,
		MaxResults:     maxResults,
		HTTPClient:     &http.Client{Timeout: 30 * time.Second},
		Log:            log,
	}
}

var _ ports.Social = (*Client)(nil)

func (c *Client) Name() string {
	return "x"
}

// FetchMentionsSince returns mentions newer than sinceID, oldest first. The
// API answers newest first; the slice is reversed so the pipeline processes
// in arrival order.
func (c *Client) FetchMentionsSince(ctx context.Context, sinceID string) ([]domain.Mention, error) {
	q := url.Values{}
	q.Set("expansions", "author_id")
	q.Set("user.fields", "username")
	q.Set("tweet.fields", "created_at")
	q.Set("max_results", strconv.Itoa(c.MaxResults))
	if sinceID != "" {
		q.Set("since_id", sinceID)
	}

	endpoint := fmt.Sprintf("%s/2/users/%s/mentions?%s", c.BaseURL, c.AccountID, q.Encode())
	req, _ := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	req.Header.Set("Authorization", "Bearer "+c.BearerToken)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("fetch mentions: status %d: %s", resp.StatusCode, body)
	}

	var data mentionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, err
	}

	usernames := make(map[string]string, len(data.Includes.Users))
	for _, u := range data.Includes.Users {
		usernames[u.ID] = u.Username
	}

	mentions := make([]domain.Mention, 0, len(data.Data))
	for _, t := range data.Data {
		created, _ := time.Parse(time.RFC3339, t.CreatedAt)
		mentions = append(mentions, domain.Mention{
			ID:             t.ID,
			AuthorID:       t.AuthorID,
			AuthorUsername: usernames[t.AuthorID],
			Text:           t.Text,
			CreatedAt:      created,
		})
	}
	// tweet ids are decimal snowflakes; shorter means older
	sort.Slice(mentions, func(i, j int) bool {
		a, b := mentions[i].ID, mentions[j].ID
		if len(a) != len(b) {
			return len(a) < len(b)
		}
		return a < b
	})

	c.Log.Info("fetched mentions",
		zap.Int("count", len(mentions)),
		zap.String("since_id", sinceID))
	return mentions, nil
}

// PostReply posts a reply tweet, uploading mediaPath first when given. A
// media upload failure degrades to a text-only reply; the notification still
// goes out.
func (c *Client) PostReply(ctx context.Context, mentionID, text, mediaPath string) (string, error) {
	var mediaID string
	if mediaPath != "" {
		id, err := c.uploadMedia(ctx, mediaPath)
		if err != nil {
			c.Log.Warn("media upload failed, replying without preview",
				zap.String("path", mediaPath), zap.Error(err))
		} else {
			mediaID = id
		}
	}

	reqBody := createTweetRequest{Text: text}
	reqBody.Reply.InReplyToTweetID = mentionID
	if mediaID != "" {
		reqBody.Media = &tweetMedia{MediaIDs: []string{mediaID}}
	}
	raw, _ := json.Marshal(reqBody)

	req, _ := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/2/tweets", bytes.NewBuffer(raw))
	req.Header.Set("Authorization", "Bearer "+c.UserToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("post reply: status %d: %s", resp.StatusCode, body)
	}

	var res createTweetResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return "", err
	}
	return res.Data.ID, nil
}

func (c *Client) uploadMedia(ctx context.Context, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("media", filepath.Base(path))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", err
	}
	writer.Close()

	req, _ := http.NewRequestWithContext(ctx, "POST", c.MediaUploadURL, &buf)
	req.Header.Set("Authorization", "Bearer "+c.UserToken)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("media upload: status %d", resp.StatusCode)
	}

	var res mediaUploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return "", err
	}
	return res.MediaIDString, nil
}
