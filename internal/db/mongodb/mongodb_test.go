package mongodb

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/botlens/botlens/internal/models"
)

type fakeColl struct {
	name string
	log  *[]string // shared op log, "delete:<coll>" / "insert:<coll>:<n>"

	failInsert bool
}

func (f *fakeColl) DeleteMany(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	*f.log = append(*f.log, "delete:"+f.name)
	return &mongo.DeleteResult{}, nil
}

func (f *fakeColl) InsertMany(ctx context.Context, documents []interface{}, opts ...*options.InsertManyOptions) (*mongo.InsertManyResult, error) {
	if f.failInsert {
		return nil, errors.New("insert rejected")
	}
	*f.log = append(*f.log, fmt.Sprintf("insert:%s:%d", f.name, len(documents)))
	return &mongo.InsertManyResult{}, nil
}

func fakeCollections(failInsertOn string) (func(string) collectionWriter, *[]string) {
	log := &[]string{}
	return func(name string) collectionWriter {
		return &fakeColl{name: name, log: log, failInsert: name == failInsertOn}
	}, log
}

func trendingSet() *models.TrendingSet {
	return &models.TrendingSet{
		Capacity: 480,
		Entries: []models.TrendingEntry{
			{Bot: models.Bot{ID: "b1"}, Rank: 1, Page: 1},
			{Bot: models.Bot{ID: "b2"}, Rank: 3, Page: 1},
		},
	}
}

func TestWriteRecordGroupDeletesBeforeInserting(t *testing.T) {
	bots := []models.TrackedBot{
		{ID: "b1", Name: "Alpha", NumMessages: 100},
		{ID: "b9", Name: "Ghost", NumMessages: 50},
	}
	group := buildRecordDocs("2026-08-31", bots, map[string]int64{"b1": 10}, trendingSet(), []int{2, 4})

	coll, log := fakeCollections("")
	err := writeRecordGroup(context.Background(), coll, "2026-08-31", group)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"delete:snapshot_totals",
		"delete:bot_rank_history",
		"delete:top_n_history",
		"insert:snapshot_totals:2",
		"insert:bot_rank_history:2",
		"insert:top_n_history:2",
	}, *log)
}

func TestWriteRecordGroupStopsAtFailedInsert(t *testing.T) {
	bots := []models.TrackedBot{{ID: "b1", Name: "Alpha", NumMessages: 100}}
	group := buildRecordDocs("2026-08-31", bots, nil, trendingSet(), []int{2})

	coll, log := fakeCollections(collRanks)
	err := writeRecordGroup(context.Background(), coll, "2026-08-31", group)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to insert ranks")

	// nothing after the failing collection is written
	assert.Equal(t, []string{
		"delete:snapshot_totals",
		"delete:bot_rank_history",
		"delete:top_n_history",
		"insert:snapshot_totals:1",
	}, *log)
}

func TestWriteRecordGroupWithNoBotsStillWritesTopN(t *testing.T) {
	group := buildRecordDocs("2026-08-31", nil, nil, trendingSet(), []int{2})

	coll, log := fakeCollections("")
	err := writeRecordGroup(context.Background(), coll, "2026-08-31", group)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"delete:snapshot_totals",
		"delete:bot_rank_history",
		"delete:top_n_history",
		"insert:top_n_history:1",
	}, *log)
}

func TestBuildRecordDocs(t *testing.T) {
	bots := []models.TrackedBot{
		{ID: "b1", Name: "Alpha", NumMessages: 160},
		{ID: "b2", Name: "Beta", NumMessages: 40},
		{ID: "b9", Name: "Ghost", NumMessages: 10},
	}
	group := buildRecordDocs("2026-08-31", bots, map[string]int64{"b1": 60}, trendingSet(), []int{2, 4})

	require.Len(t, group.totals, 3)
	first := group.totals[0].(bson.M)
	assert.Equal(t, "b1", first["bot_id"])
	assert.Equal(t, "2026-08-31", first["date"])
	assert.Equal(t, int64(160), first["total"])
	assert.Equal(t, int64(60), first["delta"])
	assert.Equal(t, int64(0), group.totals[1].(bson.M)["delta"])

	require.Len(t, group.ranks, 3)
	assert.Equal(t, 1, group.ranks[0].(bson.M)["rank"])
	assert.Equal(t, 3, group.ranks[1].(bson.M)["rank"])
	assert.Nil(t, group.ranks[2].(bson.M)["rank"]) // not in the trending set

	require.Len(t, group.topN, 2)
	assert.Equal(t, 2, group.topN[0].(bson.M)["threshold"])
	assert.Equal(t, 1, group.topN[0].(bson.M)["count"]) // rank 3 outside top 2
	assert.Equal(t, 2, group.topN[1].(bson.M)["count"])
}

func TestTransactionsUnsupported(t *testing.T) {
	assert.True(t, transactionsUnsupported(mongo.CommandError{Code: 20, Message: "Transaction numbers are only allowed on a replica set member or mongos"}))
	assert.True(t, transactionsUnsupported(errors.New("(IllegalOperation) Transaction numbers are only allowed on a replica set member or mongos")))
	assert.False(t, transactionsUnsupported(errors.New("connection reset")))
	assert.False(t, transactionsUnsupported(mongo.CommandError{Code: 11000, Message: "duplicate key"}))
}
