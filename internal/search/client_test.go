package search

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/botlens/botlens/internal/config"
)

func testConfig(host string) config.SearchConfig {
	return config.SearchConfig{
		Host:        host,
		APIKey:      "test-key",
		Collection:  "bots",
		PageSize:    3,
		Capacity:    9,
		MaxWorkers:  2,
		TimeoutSecs: 5,
		MaxRetries:  2,
		RetrySecs:   0,
		RatePerSec:  1000,
		RateBurst:   1000,
	}
}

func writeResults(t *testing.T, w http.ResponseWriter, results ...interface{}) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(map[string]interface{}{"results": results}))
}

func TestMultiSearchParsesHitsAndCountsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/multi_search", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-TYPESENSE-API-KEY"))

		writeResults(t, w, map[string]interface{}{
			"found": 3,
			"page":  1,
			"hits": []interface{}{
				map[string]interface{}{"document": map[string]interface{}{
					"character_id": "a", "name": "Alpha", "num_messages": 42,
					"tags": []interface{}{"fantasy", "drama"},
				}},
				// No id: skipped, counted, never fatal.
				map[string]interface{}{"document": map[string]interface{}{
					"name": "Ghost", "num_messages": 7,
				}},
				// Message count under a historical key spelling.
				map[string]interface{}{"document": map[string]interface{}{
					"id": "b", "messageCount": "1234",
				}},
			},
		})
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL))
	results, err := c.MultiSearch(context.Background(), []SearchQuery{c.BaseQuery("type:STANDARD")})
	require.NoError(t, err)
	require.Len(t, results, 1)

	res := results[0]
	assert.Equal(t, 3, res.Found)
	assert.Equal(t, 1, res.Malformed)
	require.Len(t, res.Bots, 2)
	assert.Equal(t, "a", res.Bots[0].ID)
	assert.Equal(t, []string{"fantasy", "drama"}, res.Bots[0].Tags)
	assert.Equal(t, int64(1234), res.Bots[1].NumMessages)
}

func TestMultiSearchResultCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeResults(t, w) // zero results for one query
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL))
	_, err := c.MultiSearch(context.Background(), []SearchQuery{c.BaseQuery("")})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPageUnavailable)
}

func TestFetchPageRetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeResults(t, w, map[string]interface{}{
			"found": 1,
			"page":  2,
			"hits": []interface{}{
				map[string]interface{}{"document": map[string]interface{}{
					"character_id": "a", "num_messages": 1,
				}},
			},
		})
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL))
	res, err := c.FetchPage(context.Background(), c.BaseQuery(""), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Page)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchPageUnavailableAfterRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL))
	_, err := c.FetchPage(context.Background(), c.BaseQuery(""), 4)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPageUnavailable)

	var transient *TransientError
	assert.ErrorAs(t, err, &transient)
	assert.Equal(t, int32(3), calls.Load()) // initial attempt + 2 retries
}

func TestFetchPageEmptyPayloadIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeResults(t, w, map[string]interface{}{
			"found": 0, "page": 1, "hits": []interface{}{},
		})
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL))
	_, err := c.FetchPage(context.Background(), c.BaseQuery(""), 1)
	assert.ErrorIs(t, err, ErrPageUnavailable)
}

func TestParseDocumentKeyTolerance(t *testing.T) {
	bot, err := parseDocument(map[string]interface{}{
		"uuid":             "x1",
		"characterName":    "Fallback Name",
		"creator_username": "alice",
		"message_count":    float64(99),
		"num_messages_24h": float64(5),
		"avatarUrl":        "pic.png",
	})
	require.NoError(t, err)
	assert.Equal(t, "x1", bot.ID)
	assert.Equal(t, "Fallback Name", bot.Name)
	assert.Equal(t, "alice", bot.CreatorName)
	assert.Equal(t, int64(99), bot.NumMessages)
	assert.Equal(t, int64(5), bot.DailyMessages)
	assert.Equal(t, "pic.png", bot.AvatarURL)

	_, err = parseDocument(map[string]interface{}{"character_id": "x2"})
	assert.Error(t, err, "missing message count must not parse")
}

func TestTransientErrorWrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := pageUnavailable(3, &TransientError{Page: 3, Err: cause})

	assert.ErrorIs(t, err, ErrPageUnavailable)
	assert.ErrorIs(t, err, cause)
}
