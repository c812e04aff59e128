package db

import (
	"context"

	"github.com/botlens/botlens/internal/models"
)

// HistoryStore defines append-only persistence of snapshot facts: per-bot
// totals and deltas, per-bot rank history, and daily top-N membership
// counts. Writes are idempotent per date — recording the same date twice
// overwrites that date's record group instead of duplicating it — and each
// date's group commits transactionally or not at all.
type HistoryStore interface {
	// Connection management
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Ping(ctx context.Context) error

	// RecordSnapshot persists one date's record group: totals with deltas
	// for every tracked bot, a rank row per tracked bot (nil rank when the
	// bot is absent from the trending set), and one top-N count row per
	// configured threshold.
	RecordSnapshot(ctx context.Context, date string, bots []models.TrackedBot, set *models.TrendingSet) error

	// Read operations. Ranges are inclusive, ordered ascending by date,
	// and never synthesize gaps: a missing date means no capture ran.
	ReadRange(ctx context.Context, botID, from, to string) ([]models.SnapshotRecord, error)
	ReadRankRange(ctx context.Context, botID, from, to string) ([]models.RankHistoryRecord, error)
	ReadTopNRange(ctx context.Context, threshold int, from, to string) ([]models.TopNHistoryRecord, error)

	// LatestDate returns the most recent recorded date, or "" when the
	// store is empty.
	LatestDate(ctx context.Context) (string, error)

	// DeleteDate removes one date's whole record group (maintenance).
	DeleteDate(ctx context.Context, date string) error
}
