package x

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
)

func TestFetchMentionsSince(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/2/users/42/mentions", r.URL.Path)
		require.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		gotQuery = map[string]string{
			"since_id":    r.URL.Query().Get("since_id"),
			"max_results": r.URL.Query().Get("max_results"),
			"expansions":  r.URL.Query().Get("expansions"),
		}
		// newest first, as the platform answers
		fmt.Fprint(w, `{
			"data": [
				{"id": "103", "author_id": "u2", "text": "me too", "created_at": "2026-08-23T10:00:00Z"},
				{"id": "101", "author_id": "u1", "text": "mint for 0xabc", "created_at": "2026-08-23T09:00:00Z"}
			],
			"includes": {"users": [{"id": "u1", "username": "alice"}, {"id": "u2", "username": "bob"}]},
			"meta": {"result_count": 2, "newest_id": "103", "oldest_id": "101"}
		}`)
	}))
	defer srv.Close()

	c := NewClient("token-1", "user-token", "42", 25, zap.NewNop())
	c.BaseURL = srv.URL

	mentions, err := c.FetchMentionsSince(context.Background(), "100")
	require.NoError(t, err)

	assert.Equal(t, "100", gotQuery["since_id"])
	assert.Equal(t, "25", gotQuery["max_results"])
	assert.Equal(t, "author_id", gotQuery["expansions"])

	require.Len(t, mentions, 2)
	assert.Equal(t, "101", mentions[0].ID, "oldest first")
	assert.Equal(t, "103", mentions[1].ID)
	assert.Equal(t, "alice", mentions[0].AuthorUsername)
	assert.Equal(t, "bob", mentions[1].AuthorUsername)
	assert.False(t, mentions[0].CreatedAt.IsZero())
}

func TestFetchMentionsSince_EmptySinceIDOmitted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, present := r.URL.Query()["since_id"]
		assert.False(t, present, "first-ever run sends no since_id")
		fmt.Fprint(w, `{"data": [], "meta": {"result_count": 0}}`)
	}))
	defer srv.Close()

	c := NewClient("t", "u", "42", 10, zap.NewNop())
	c.BaseURL = srv.URL

	mentions, err := c.FetchMentionsSince(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, mentions)
}

func TestFetchMentionsSince_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"title":"Too Many Requests"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient("t", "u", "42", 10, zap.NewNop())
	c.BaseURL = srv.URL

	_, err := c.FetchMentionsSince(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestPostReply(t *testing.T) {
	uploads := 0
	var lastTweet createTweetRequest
	var writeAuth []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/2/tweets":
			writeAuth = append(writeAuth, r.Header.Get("Authorization"))
			var req createTweetRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			lastTweet = req
			w.WriteHeader(http.StatusCreated)
			fmt.Fprint(w, `{"data": {"id": "555", "text": "gm, minted!"}}`)
		case "/upload":
			writeAuth = append(writeAuth, r.Header.Get("Authorization"))
			uploads++
			fmt.Fprint(w, `{"media_id_string": "m777"}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient("app-token", "user-token", "42", 10, zap.NewNop())
	c.BaseURL = srv.URL
	c.MediaUploadURL = srv.URL + "/upload"

	t.Run("text only", func(t *testing.T) {
		id, err := c.PostReply(context.Background(), "100", "gm, minted!", "")
		require.NoError(t, err)
		assert.Equal(t, "555", id)
		assert.Zero(t, uploads)
		assert.Equal(t, "100", lastTweet.Reply.InReplyToTweetID)
		assert.Equal(t, "gm, minted!", lastTweet.Text)
		assert.Nil(t, lastTweet.Media)
	})

	t.Run("with media attachment", func(t *testing.T) {
		media := filepath.Join(t.TempDir(), "preview.svg")
		require.NoError(t, os.WriteFile(media, []byte("<svg/>"), 0644))

		id, err := c.PostReply(context.Background(), "100", "gm, minted!", media)
		require.NoError(t, err)
		assert.Equal(t, "555", id)
		assert.Equal(t, 1, uploads)
		require.NotNil(t, lastTweet.Media)
		assert.Equal(t, []string{"m777"}, lastTweet.Media.MediaIDs)
	})

	t.Run("missing media degrades to text-only reply", func(t *testing.T) {
		id, err := c.PostReply(context.Background(), "100", "gm, minted!", "/nope/missing.svg")
		require.NoError(t, err)
		assert.Equal(t, "555", id)
		assert.Equal(t, 1, uploads, "no upload attempted for an unreadable file")
		assert.Nil(t, lastTweet.Media)
	})

	t.Run("writes authenticate with the user-context token", func(t *testing.T) {
		require.NotEmpty(t, writeAuth)
		for _, auth := range writeAuth {
			assert.Equal(t, "Bearer user-token", auth, "app-only bearer cannot post")
		}
	})
}
