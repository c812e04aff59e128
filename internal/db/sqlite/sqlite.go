package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/botlens/botlens/internal/models"
)

// SQLite implements the HistoryStore interface for SQLite
type SQLite struct {
	db         *sql.DB
	config     *models.Config
	thresholds []int
}

// New creates a new SQLite history store instance
func New(config *models.Config, thresholds []int) (*SQLite, error) {
	return &SQLite{
		config:     config,
		thresholds: thresholds,
	}, nil
}

// Connect establishes connection to SQLite
func (s *SQLite) Connect(ctx context.Context) error {
	// Expand the URI path (handle ~ and relative paths)
	dbPath := s.config.URI
	if strings.HasPrefix(dbPath, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(home, dbPath[1:])
	} else if !filepath.IsAbs(dbPath) {
		absPath, err := filepath.Abs(dbPath)
		if err != nil {
			return fmt.Errorf("failed to resolve absolute path: %w", err)
		}
		dbPath = absPath
	}

	// Ensure the directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return fmt.Errorf("failed to open SQLite database at path '%s': %w", dbPath, err)
	}

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping SQLite database at path '%s': %w", dbPath, err)
	}

	s.db = db

	// Create tables
	if err := s.createTables(ctx); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	return nil
}

// Disconnect closes the SQLite connection
func (s *SQLite) Disconnect(ctx context.Context) error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping checks the database connection
func (s *SQLite) Ping(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("not connected to database")
	}
	return s.db.PingContext(ctx)
}

// createTables creates necessary tables
func (s *SQLite) createTables(ctx context.Context) error {
	createTotalsTable := `
	CREATE TABLE IF NOT EXISTS snapshot_totals (
		bot_id TEXT NOT NULL,
		bot_name TEXT,
		date TEXT NOT NULL,
		total INTEGER NOT NULL,
		delta INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (bot_id, date)
	);`

	createRankHistoryTable := `
	CREATE TABLE IF NOT EXISTS bot_rank_history (
		bot_id TEXT NOT NULL,
		date TEXT NOT NULL,
		rank INTEGER,
		PRIMARY KEY (bot_id, date)
	);`

	createTopNHistoryTable := `
	CREATE TABLE IF NOT EXISTS top_n_history (
		date TEXT NOT NULL,
		threshold INTEGER NOT NULL,
		count INTEGER NOT NULL,
		PRIMARY KEY (date, threshold)
	);`

	createIndexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_snapshot_totals_date ON snapshot_totals(date);",
		"CREATE INDEX IF NOT EXISTS idx_rank_history_date ON bot_rank_history(date);",
	}

	queries := []string{createTotalsTable, createRankHistoryTable, createTopNHistoryTable}
	queries = append(queries, createIndexes...)

	for _, query := range queries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}

	return nil
}

// RecordSnapshot persists one date's record group inside a single
// transaction. Re-running a date deletes that date's rows first, so a
// manual re-capture for "today" overwrites instead of duplicating.
func (s *SQLite) RecordSnapshot(ctx context.Context, date string, bots []models.TrackedBot, set *models.TrendingSet) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"snapshot_totals", "bot_rank_history"} {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE date = ?", table), date); err != nil {
			return fmt.Errorf("failed to clear %s for %s: %w", table, date, err)
		}
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM top_n_history WHERE date = ?", date); err != nil {
		return fmt.Errorf("failed to clear top_n_history for %s: %w", date, err)
	}

	for _, bot := range bots {
		// Delta against the most recent prior recorded date; 0 when this
		// is the bot's first-ever record.
		var prior sql.NullInt64
		err := tx.QueryRowContext(ctx,
			"SELECT total FROM snapshot_totals WHERE bot_id = ? AND date < ? ORDER BY date DESC LIMIT 1",
			bot.ID, date,
		).Scan(&prior)
		if err != nil && err != sql.ErrNoRows {
			return fmt.Errorf("failed to read prior total for %s: %w", bot.ID, err)
		}

		delta := int64(0)
		if prior.Valid {
			delta = bot.NumMessages - prior.Int64
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO snapshot_totals (bot_id, bot_name, date, total, delta) VALUES (?, ?, ?, ?, ?)",
			bot.ID, bot.Name, date, bot.NumMessages, delta,
		); err != nil {
			return fmt.Errorf("failed to insert total for %s: %w", bot.ID, err)
		}

		// Absence from the trending set is informative and gets a NULL
		// rank row, never an omitted one.
		var rank interface{}
		if r := set.RankOf(bot.ID); r > 0 {
			rank = r
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO bot_rank_history (bot_id, date, rank) VALUES (?, ?, ?)",
			bot.ID, date, rank,
		); err != nil {
			return fmt.Errorf("failed to insert rank for %s: %w", bot.ID, err)
		}
	}

	for _, threshold := range s.thresholds {
		count := 0
		for _, bot := range bots {
			if r := set.RankOf(bot.ID); r > 0 && r <= threshold {
				count++
			}
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO top_n_history (date, threshold, count) VALUES (?, ?, ?)",
			date, threshold, count,
		); err != nil {
			return fmt.Errorf("failed to insert top-%d count: %w", threshold, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot for %s: %w", date, err)
	}

	return nil
}

// ReadRange returns a bot's snapshot records between from and to inclusive,
// ascending by date. Gaps are not synthesized.
func (s *SQLite) ReadRange(ctx context.Context, botID, from, to string) ([]models.SnapshotRecord, error) {
	query := `
		SELECT bot_id, bot_name, date, total, delta
		FROM snapshot_totals
		WHERE bot_id = ? AND date >= ? AND date <= ?
		ORDER BY date ASC`

	rows, err := s.db.QueryContext(ctx, query, botID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.SnapshotRecord
	for rows.Next() {
		var rec models.SnapshotRecord
		var name sql.NullString
		if err := rows.Scan(&rec.BotID, &name, &rec.Date, &rec.Total, &rec.Delta); err != nil {
			return nil, err
		}
		rec.BotName = name.String
		records = append(records, rec)
	}

	return records, rows.Err()
}

// ReadRankRange returns a bot's rank history between from and to inclusive,
// ascending by date.
func (s *SQLite) ReadRankRange(ctx context.Context, botID, from, to string) ([]models.RankHistoryRecord, error) {
	query := `
		SELECT bot_id, date, rank
		FROM bot_rank_history
		WHERE bot_id = ? AND date >= ? AND date <= ?
		ORDER BY date ASC`

	rows, err := s.db.QueryContext(ctx, query, botID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.RankHistoryRecord
	for rows.Next() {
		var rec models.RankHistoryRecord
		var rank sql.NullInt64
		if err := rows.Scan(&rec.BotID, &rec.Date, &rank); err != nil {
			return nil, err
		}
		if rank.Valid {
			r := int(rank.Int64)
			rec.Rank = &r
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// ReadTopNRange returns daily top-N counts for one threshold between from
// and to inclusive, ascending by date.
func (s *SQLite) ReadTopNRange(ctx context.Context, threshold int, from, to string) ([]models.TopNHistoryRecord, error) {
	query := `
		SELECT date, threshold, count
		FROM top_n_history
		WHERE threshold = ? AND date >= ? AND date <= ?
		ORDER BY date ASC`

	rows, err := s.db.QueryContext(ctx, query, threshold, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.TopNHistoryRecord
	for rows.Next() {
		var rec models.TopNHistoryRecord
		if err := rows.Scan(&rec.Date, &rec.Threshold, &rec.Count); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// LatestDate returns the most recent recorded date, or "" when empty.
func (s *SQLite) LatestDate(ctx context.Context) (string, error) {
	var date string
	err := s.db.QueryRowContext(ctx,
		"SELECT date FROM snapshot_totals ORDER BY date DESC LIMIT 1",
	).Scan(&date)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return date, nil
}

// DeleteDate removes one date's whole record group.
func (s *SQLite) DeleteDate(ctx context.Context, date string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"snapshot_totals", "bot_rank_history", "top_n_history"} {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE date = ?", table), date); err != nil {
			return fmt.Errorf("failed to delete from %s: %w", table, err)
		}
	}

	return tx.Commit()
}
