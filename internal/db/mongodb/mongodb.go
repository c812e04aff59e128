package mongodb

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/botlens/botlens/internal/models"
)

// MongoDB implements the HistoryStore interface for MongoDB
type MongoDB struct {
	client     *mongo.Client
	database   *mongo.Database
	config     *models.Config
	thresholds []int
}

const (
	collTotals = "snapshot_totals"
	collRanks  = "bot_rank_history"
	collTopN   = "top_n_history"
)

// New creates a new MongoDB history store instance
func New(config *models.Config, thresholds []int) (*MongoDB, error) {
	return &MongoDB{
		config:     config,
		thresholds: thresholds,
	}, nil
}

// Connect establishes connection to MongoDB
func (m *MongoDB) Connect(ctx context.Context) error {
	clientOptions := options.Client().ApplyURI(m.config.URI)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	m.client = client
	m.database = client.Database(m.config.Database)

	// Create indexes
	if err := m.createIndexes(ctx); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

// Disconnect closes the MongoDB connection
func (m *MongoDB) Disconnect(ctx context.Context) error {
	if m.client != nil {
		return m.client.Disconnect(ctx)
	}
	return nil
}

// Ping checks the database connection
func (m *MongoDB) Ping(ctx context.Context) error {
	if m.client == nil {
		return fmt.Errorf("not connected to database")
	}
	return m.client.Ping(ctx, nil)
}

// createIndexes creates necessary indexes for optimal query performance
func (m *MongoDB) createIndexes(ctx context.Context) error {
	totalsIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "bot_id", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "date", Value: -1}},
		},
	}
	if _, err := m.database.Collection(collTotals).Indexes().CreateMany(ctx, totalsIndexes); err != nil {
		return fmt.Errorf("failed to create snapshot_totals indexes: %w", err)
	}

	rankIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "bot_id", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	if _, err := m.database.Collection(collRanks).Indexes().CreateMany(ctx, rankIndexes); err != nil {
		return fmt.Errorf("failed to create bot_rank_history indexes: %w", err)
	}

	topNIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "date", Value: 1}, {Key: "threshold", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	if _, err := m.database.Collection(collTopN).Indexes().CreateMany(ctx, topNIndexes); err != nil {
		return fmt.Errorf("failed to create top_n_history indexes: %w", err)
	}

	return nil
}

// collectionWriter is the slice of *mongo.Collection used by the snapshot
// write path.
type collectionWriter interface {
	DeleteMany(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
	InsertMany(ctx context.Context, documents []interface{}, opts ...*options.InsertManyOptions) (*mongo.InsertManyResult, error)
}

// recordGroup holds one date's fully built documents, ready to commit.
type recordGroup struct {
	totals []interface{}
	ranks  []interface{}
	topN   []interface{}
}

// RecordSnapshot persists one date's record group. The date's previous rows
// are removed first so a manual re-capture overwrites instead of
// duplicating, and the delete+insert group runs inside a session
// transaction so the three collections commit together. Standalone servers
// reject multi-document transactions; those fall back to a plain write.
func (m *MongoDB) RecordSnapshot(ctx context.Context, date string, bots []models.TrackedBot, set *models.TrendingSet) error {
	group, err := m.buildRecordGroup(ctx, date, bots, set)
	if err != nil {
		return err
	}

	write := func(ctx context.Context) error {
		return writeRecordGroup(ctx, func(name string) collectionWriter {
			return m.database.Collection(name)
		}, date, group)
	}

	session, err := m.client.StartSession()
	if err != nil {
		return write(ctx)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, write(sc)
	})
	if err != nil && transactionsUnsupported(err) {
		return write(ctx)
	}
	return err
}

// buildRecordGroup reads each bot's prior total and assembles the date's
// documents. Reads stay outside the write transaction.
func (m *MongoDB) buildRecordGroup(ctx context.Context, date string, bots []models.TrackedBot, set *models.TrendingSet) (recordGroup, error) {
	deltas := make(map[string]int64, len(bots))
	for _, bot := range bots {
		delta, err := m.deltaFor(ctx, bot.ID, date, bot.NumMessages)
		if err != nil {
			return recordGroup{}, err
		}
		deltas[bot.ID] = delta
	}
	return buildRecordDocs(date, bots, deltas, set, m.thresholds), nil
}

// buildRecordDocs turns one capture into insert documents: totals with
// deltas, rank rows (nil rank for bots outside the trending set), and one
// top-N count per threshold.
func buildRecordDocs(date string, bots []models.TrackedBot, deltas map[string]int64, set *models.TrendingSet, thresholds []int) recordGroup {
	var group recordGroup

	for _, bot := range bots {
		group.totals = append(group.totals, bson.M{
			"bot_id":   bot.ID,
			"bot_name": bot.Name,
			"date":     date,
			"total":    bot.NumMessages,
			"delta":    deltas[bot.ID],
		})

		var rank interface{}
		if r := set.RankOf(bot.ID); r > 0 {
			rank = r
		}
		group.ranks = append(group.ranks, bson.M{
			"bot_id": bot.ID,
			"date":   date,
			"rank":   rank,
		})
	}

	for _, threshold := range thresholds {
		count := 0
		for _, bot := range bots {
			if r := set.RankOf(bot.ID); r > 0 && r <= threshold {
				count++
			}
		}
		group.topN = append(group.topN, bson.M{
			"date":      date,
			"threshold": threshold,
			"count":     count,
		})
	}

	return group
}

// writeRecordGroup applies one date's delete-then-insert group. Callers
// are expected to run it inside a transaction when the server supports
// them.
func writeRecordGroup(ctx context.Context, coll func(string) collectionWriter, date string, group recordGroup) error {
	dateFilter := bson.M{"date": date}
	for _, name := range []string{collTotals, collRanks, collTopN} {
		if _, err := coll(name).DeleteMany(ctx, dateFilter); err != nil {
			return fmt.Errorf("failed to clear %s for %s: %w", name, date, err)
		}
	}

	if len(group.totals) > 0 {
		if _, err := coll(collTotals).InsertMany(ctx, group.totals); err != nil {
			return fmt.Errorf("failed to insert totals for %s: %w", date, err)
		}
		if _, err := coll(collRanks).InsertMany(ctx, group.ranks); err != nil {
			return fmt.Errorf("failed to insert ranks for %s: %w", date, err)
		}
	}

	if len(group.topN) > 0 {
		if _, err := coll(collTopN).InsertMany(ctx, group.topN); err != nil {
			return fmt.Errorf("failed to insert top-N counts for %s: %w", date, err)
		}
	}

	return nil
}

// transactionsUnsupported reports whether err is the server rejecting
// multi-document transactions outright (standalone deployments, command
// error code 20).
func transactionsUnsupported(err error) bool {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.Code == 20 {
		return true
	}
	return strings.Contains(err.Error(), "Transaction numbers")
}

// deltaFor computes the total delta against the bot's most recent prior
// recorded date, 0 when this is its first record.
func (m *MongoDB) deltaFor(ctx context.Context, botID, date string, total int64) (int64, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "date", Value: -1}})
	filter := bson.M{"bot_id": botID, "date": bson.M{"$lt": date}}

	var prior struct {
		Total int64 `bson:"total"`
	}
	err := m.database.Collection(collTotals).FindOne(ctx, filter, opts).Decode(&prior)
	if err == mongo.ErrNoDocuments {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read prior total for %s: %w", botID, err)
	}
	return total - prior.Total, nil
}

// ReadRange returns a bot's snapshot records between from and to inclusive,
// ascending by date.
func (m *MongoDB) ReadRange(ctx context.Context, botID, from, to string) ([]models.SnapshotRecord, error) {
	filter := bson.M{"bot_id": botID, "date": bson.M{"$gte": from, "$lte": to}}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})

	cursor, err := m.database.Collection(collTotals).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []models.SnapshotRecord
	for cursor.Next(ctx) {
		var doc struct {
			BotID   string `bson:"bot_id"`
			BotName string `bson:"bot_name"`
			Date    string `bson:"date"`
			Total   int64  `bson:"total"`
			Delta   int64  `bson:"delta"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		records = append(records, models.SnapshotRecord{
			BotID:   doc.BotID,
			BotName: doc.BotName,
			Date:    doc.Date,
			Total:   doc.Total,
			Delta:   doc.Delta,
		})
	}

	return records, cursor.Err()
}

// ReadRankRange returns a bot's rank history between from and to inclusive,
// ascending by date.
func (m *MongoDB) ReadRankRange(ctx context.Context, botID, from, to string) ([]models.RankHistoryRecord, error) {
	filter := bson.M{"bot_id": botID, "date": bson.M{"$gte": from, "$lte": to}}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})

	cursor, err := m.database.Collection(collRanks).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []models.RankHistoryRecord
	for cursor.Next(ctx) {
		var doc struct {
			BotID string `bson:"bot_id"`
			Date  string `bson:"date"`
			Rank  *int   `bson:"rank"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		records = append(records, models.RankHistoryRecord{
			BotID: doc.BotID,
			Date:  doc.Date,
			Rank:  doc.Rank,
		})
	}

	return records, cursor.Err()
}

// ReadTopNRange returns daily top-N counts for one threshold between from
// and to inclusive, ascending by date.
func (m *MongoDB) ReadTopNRange(ctx context.Context, threshold int, from, to string) ([]models.TopNHistoryRecord, error) {
	filter := bson.M{"threshold": threshold, "date": bson.M{"$gte": from, "$lte": to}}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})

	cursor, err := m.database.Collection(collTopN).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []models.TopNHistoryRecord
	for cursor.Next(ctx) {
		var doc struct {
			Date      string `bson:"date"`
			Threshold int    `bson:"threshold"`
			Count     int    `bson:"count"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		records = append(records, models.TopNHistoryRecord{
			Date:      doc.Date,
			Threshold: doc.Threshold,
			Count:     doc.Count,
		})
	}

	return records, cursor.Err()
}

// LatestDate returns the most recent recorded date, or "" when empty.
func (m *MongoDB) LatestDate(ctx context.Context) (string, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "date", Value: -1}})

	var doc struct {
		Date string `bson:"date"`
	}
	err := m.database.Collection(collTotals).FindOne(ctx, bson.M{}, opts).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return doc.Date, nil
}

// DeleteDate removes one date's whole record group.
func (m *MongoDB) DeleteDate(ctx context.Context, date string) error {
	dateFilter := bson.M{"date": date}
	for _, coll := range []string{collTotals, collRanks, collTopN} {
		if _, err := m.database.Collection(coll).DeleteMany(ctx, dateFilter); err != nil {
			return fmt.Errorf("failed to delete from %s: %w", coll, err)
		}
	}
	return nil
}
