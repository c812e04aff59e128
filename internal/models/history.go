package models

import (
	"time"
)

// Durable history models. One row per (key, date); rows are written exactly
// once per date by the snapshot scheduler and never mutated after the date
// passes.

// SnapshotRecord is a bot's message total on a given date, with a delta
// against the most recent prior date on record for that bot (0 when none).
type SnapshotRecord struct {
	BotID   string `json:"bot_id"`
	BotName string `json:"bot_name,omitempty"`
	Date    string `json:"date"`
	Total   int64  `json:"total"`
	Delta   int64  `json:"delta"`
}

// RankHistoryRecord is a bot's captured global rank on a given date.
// Rank is nil when the bot was absent from that day's trending set;
// absence is recorded, not omitted.
type RankHistoryRecord struct {
	BotID string `json:"bot_id"`
	Date  string `json:"date"`
	Rank  *int   `json:"rank"`
}

// TopNHistoryRecord is the daily count of tracked bots whose rank fell
// within one threshold.
type TopNHistoryRecord struct {
	Date      string `json:"date"`
	Threshold int    `json:"threshold"`
	Count     int    `json:"count"`
}

// CaptureResult summarizes one snapshot run.
type CaptureResult struct {
	RunID       string    `json:"run_id"`
	Date        string    `json:"date"`
	TrackedBots int       `json:"tracked_bots"`
	Ranked      int       `json:"ranked"`
	SetSize     int       `json:"set_size"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}
