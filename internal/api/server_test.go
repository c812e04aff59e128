package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/botlens/botlens/internal/config"
	"github.com/botlens/botlens/internal/models"
	"github.com/botlens/botlens/internal/scheduler"
	"github.com/botlens/botlens/internal/search"
	"github.com/botlens/botlens/internal/trending"
)

type fakeStore struct {
	pingErr error
	totals  []models.SnapshotRecord
	ranks   []models.RankHistoryRecord
	topN    []models.TopNHistoryRecord
}

func (f *fakeStore) Connect(ctx context.Context) error    { return nil }
func (f *fakeStore) Disconnect(ctx context.Context) error { return nil }
func (f *fakeStore) Ping(ctx context.Context) error       { return f.pingErr }

func (f *fakeStore) RecordSnapshot(ctx context.Context, date string, bots []models.TrackedBot, set *models.TrendingSet) error {
	return nil
}

func (f *fakeStore) ReadRange(ctx context.Context, botID, from, to string) ([]models.SnapshotRecord, error) {
	return f.totals, nil
}

func (f *fakeStore) ReadRankRange(ctx context.Context, botID, from, to string) ([]models.RankHistoryRecord, error) {
	return f.ranks, nil
}

func (f *fakeStore) ReadTopNRange(ctx context.Context, threshold int, from, to string) ([]models.TopNHistoryRecord, error) {
	return f.topN, nil
}

func (f *fakeStore) LatestDate(ctx context.Context) (string, error)  { return "", nil }
func (f *fakeStore) DeleteDate(ctx context.Context, date string) error { return nil }

type fakeBots struct{}

func (fakeBots) TrackedBots(ctx context.Context) ([]models.TrackedBot, error) {
	return []models.TrackedBot{{ID: "bot-000", NumMessages: 10}}, nil
}

type fakeSignal struct{}

func (fakeSignal) IsValid(ctx context.Context) bool { return true }
func (fakeSignal) Events() <-chan struct{}          { return make(chan struct{}) }

// searchStub serves a fixed trending universe over the multi_search wire
// format so the aggregator under test runs its real fetch path. The
// returned counter tracks page requests hitting the stub.
func searchStub(t *testing.T, totalBots, pageSize int) (*httptest.Server, *atomic.Int32) {
	var calls atomic.Int32
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var req struct {
			Searches []struct {
				Page int `json:"page"`
			} `json:"searches"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		pageNum := req.Searches[0].Page

		hits := []map[string]interface{}{}
		start := (pageNum - 1) * pageSize
		for i := start; i < start+pageSize && i < totalBots; i++ {
			tags := []string{"fantasy"}
			if i%2 == 0 {
				tags = []string{"romance"}
			}
			hits = append(hits, map[string]interface{}{
				"document": map[string]interface{}{
					"character_id":     fmt.Sprintf("bot-%03d", i),
					"name":             fmt.Sprintf("Bot %d", i),
					"creator_username": fmt.Sprintf("creator-%d", i%2),
					"num_messages":     totalBots - i,
					"tags":             tags,
				},
			})
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"results": []map[string]interface{}{
				{"found": totalBots, "page": pageNum, "hits": hits},
			},
		})
	})), &calls
}

func testServer(t *testing.T, store *fakeStore) (*Server, *atomic.Int32, func()) {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Search.PageSize = 2
	cfg.Search.Capacity = 6
	cfg.Search.MaxWorkers = 2
	cfg.Search.MaxRetries = 0
	cfg.Search.RatePerSec = 1000
	cfg.Search.RateBurst = 1000

	stub, calls := searchStub(t, 6, cfg.Search.PageSize)
	cfg.Search.Host = stub.URL

	agg := trending.NewAggregator(search.New(cfg.Search), cfg.Search, cfg.AvatarCDN)
	sched := scheduler.New(store, fakeBots{}, agg, fakeSignal{}, cfg.Snapshot, cfg.Search.BaseFilter)

	return NewServer(agg, store, sched, cfg), calls, stub.Close
}

func doGet(t *testing.T, s *Server, path string) (int, models.APIResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	s.Handler().ServeHTTP(rec, req)

	var body models.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestGetTrending(t *testing.T) {
	s, _, done := testServer(t, &fakeStore{})
	defer done()

	code, body := doGet(t, s, "/api/v1/trending")
	require.Equal(t, http.StatusOK, code)
	require.True(t, body.Success)

	data := body.Data.(map[string]interface{})
	assert.Equal(t, float64(6), data["set_size"])
	assert.Equal(t, float64(6), data["total_matched"])

	entries := data["entries"].([]interface{})
	first := entries[0].(map[string]interface{})
	assert.Equal(t, "bot-000", first["id"])
	assert.Equal(t, float64(1), first["rank"])
}

func TestGetTrendingWithFilters(t *testing.T) {
	s, _, done := testServer(t, &fakeStore{})
	defer done()

	code, body := doGet(t, s, "/api/v1/trending?and=fantasy&not=romance&sort=messages&order=desc")
	require.Equal(t, http.StatusOK, code)

	data := body.Data.(map[string]interface{})
	assert.Equal(t, float64(3), data["total_matched"])

	entries := data["entries"].([]interface{})
	require.Len(t, entries, 3)
	first := entries[0].(map[string]interface{})
	assert.Equal(t, "bot-001", first["id"])
}

func TestGetTrendingFreshBypassesCache(t *testing.T) {
	s, calls, done := testServer(t, &fakeStore{})
	defer done()

	code, _ := doGet(t, s, "/api/v1/trending")
	require.Equal(t, http.StatusOK, code)
	firstFetch := calls.Load()
	require.Positive(t, firstFetch)

	code, _ = doGet(t, s, "/api/v1/trending")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, firstFetch, calls.Load()) // served from cache

	code, _ = doGet(t, s, "/api/v1/trending?fresh=true")
	require.Equal(t, http.StatusOK, code)
	assert.Greater(t, calls.Load(), firstFetch)

	afterFresh := calls.Load()
	code, _ = doGet(t, s, "/api/v1/trending?fresh=banana")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, afterFresh, calls.Load()) // malformed value ignored
}

func TestGetTrendingBadInputNeverErrors(t *testing.T) {
	s, _, done := testServer(t, &fakeStore{})
	defer done()

	code, body := doGet(t, s, "/api/v1/trending?page=9999&page_size=bogus&sort=nonsense")
	require.Equal(t, http.StatusOK, code)
	assert.True(t, body.Success)
}

func TestGetBotHistory(t *testing.T) {
	rank := 3
	store := &fakeStore{
		totals: []models.SnapshotRecord{{BotID: "b1", Date: "2026-08-01", Total: 100, Delta: 0}},
		ranks:  []models.RankHistoryRecord{{BotID: "b1", Date: "2026-08-01", Rank: &rank}},
	}
	s, _, done := testServer(t, store)
	defer done()

	code, body := doGet(t, s, "/api/v1/bots/b1/history?from=2026-08-01&to=2026-08-31")
	require.Equal(t, http.StatusOK, code)

	data := body.Data.(map[string]interface{})
	assert.Equal(t, "b1", data["bot_id"])
	assert.Len(t, data["totals"].([]interface{}), 1)
	assert.Len(t, data["ranks"].([]interface{}), 1)
}

func TestGetTopNRequiresThreshold(t *testing.T) {
	s, _, done := testServer(t, &fakeStore{})
	defer done()

	code, body := doGet(t, s, "/api/v1/topn")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, body.Success)

	code, _ = doGet(t, s, "/api/v1/topn?threshold=240")
	assert.Equal(t, http.StatusOK, code)
}

func TestTriggerSnapshot(t *testing.T) {
	s, _, done := testServer(t, &fakeStore{})
	defer done()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/snapshot", nil)
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body models.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.True(t, body.Success)

	data := body.Data.(map[string]interface{})
	assert.Equal(t, float64(1), data["tracked_bots"])
	assert.NotEmpty(t, data["run_id"])
}

func TestHealthCheck(t *testing.T) {
	s, _, done := testServer(t, &fakeStore{})
	defer done()

	code, body := doGet(t, s, "/api/v1/health")
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, body.Success)

	unhealthy, _, done2 := testServer(t, &fakeStore{pingErr: fmt.Errorf("down")})
	defer done2()

	code, _ = doGet(t, unhealthy, "/api/v1/health")
	assert.Equal(t, http.StatusServiceUnavailable, code)
}
