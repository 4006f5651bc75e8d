// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package services provides the long-lived application services sitting
// between the HTTP API and the pipeline. This file implements the review
// history archive, a local SQLite table holding every completed review.
//
// The archive is append-only from the task service's perspective: a row is
// written once when a task reaches Done, then only ever read. Task state is
// deliberately NOT persisted here; pending and running tasks live in memory
// only and do not survive a restart, while their finished reviews do.
package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver, registered as "sqlite".

	"github.com/jaycherian/go-movie-review-agent/internal/core/model"
)

const historySchema = `
CREATE TABLE IF NOT EXISTS review_history (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    task_id         TEXT    NOT NULL,
    title           TEXT    NOT NULL,
    year            INTEGER NOT NULL DEFAULT 0,
    review_style    TEXT    NOT NULL DEFAULT '',
    polarity        TEXT    NOT NULL DEFAULT '',
    composite_score REAL    NOT NULL DEFAULT 0,
    word_count      INTEGER NOT NULL DEFAULT 0,
    review_count    INTEGER NOT NULL DEFAULT 0,
    themes          TEXT    NOT NULL DEFAULT '[]',
    review_text     TEXT    NOT NULL,
    generated_at    INTEGER NOT NULL -- Unix nanoseconds, so ordering is numeric.
);
CREATE INDEX IF NOT EXISTS idx_review_history_generated_at
    ON review_history (generated_at DESC);
`

// HistoryEntry is one archived review as returned to API consumers.
type HistoryEntry struct {
	TaskID         string    `json:"task_id"`
	Title          string    `json:"title"`
	Year           int       `json:"year,omitempty"`
	ReviewStyle    string    `json:"review_style"`
	Polarity       string    `json:"polarity,omitempty"`
	CompositeScore float64   `json:"composite_score"`
	WordCount      int       `json:"word_count"`
	ReviewCount    int       `json:"review_count"`
	Themes         []string  `json:"themes,omitempty"`
	Text           string    `json:"text"`
	GeneratedAt    time.Time `json:"generated_at"`
}

// HistoryService archives completed reviews in SQLite.
type HistoryService struct {
	db *sql.DB
}

// NewHistoryService opens (or creates) the archive at path and applies the
// schema. Use ":memory:" for an ephemeral archive in tests. File-backed
// databases run in WAL mode so archive writes never block history reads.
func NewHistoryService(path string) (*HistoryService, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database %s: %w", path, err)
	}
	// The driver is safe for concurrent use, but SQLite wants one writer.
	db.SetMaxOpenConns(1)

	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL on %s: %w", path, err)
		}
	}
	if _, err := db.Exec(historySchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply history schema: %w", err)
	}

	return &HistoryService{db: db}, nil
}

// Close releases the underlying database handle.
func (h *HistoryService) Close() error {
	return h.db.Close()
}

// Save archives one completed review under its task id.
func (h *HistoryService) Save(ctx context.Context, taskID string, result *model.ReviewResult) error {
	themes, err := json.Marshal(result.ThemeList)
	if err != nil {
		return fmt.Errorf("failed to encode themes: %w", err)
	}

	_, err = h.db.ExecContext(ctx, `
        INSERT INTO review_history
            (task_id, title, year, review_style, polarity, composite_score,
             word_count, review_count, themes, review_text, generated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		taskID,
		result.Title,
		result.Year,
		result.ReviewStyle,
		result.Polarity,
		result.CompositeScore,
		result.WordCount,
		result.ReviewCount,
		string(themes),
		result.Text,
		result.GeneratedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert history row for task %s: %w", taskID, err)
	}
	return nil
}

// Recent returns the newest archived reviews, most recent first. limit is
// clamped to [1, 100].
func (h *HistoryService) Recent(ctx context.Context, limit int) ([]*HistoryEntry, error) {
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	rows, err := h.db.QueryContext(ctx, `
        SELECT task_id, title, year, review_style, polarity, composite_score,
               word_count, review_count, themes, review_text, generated_at
        FROM review_history
        ORDER BY generated_at DESC, id DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []*HistoryEntry
	for rows.Next() {
		var entry HistoryEntry
		var themes string
		var generatedAt int64
		if err := rows.Scan(
			&entry.TaskID,
			&entry.Title,
			&entry.Year,
			&entry.ReviewStyle,
			&entry.Polarity,
			&entry.CompositeScore,
			&entry.WordCount,
			&entry.ReviewCount,
			&themes,
			&entry.Text,
			&generatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		if err := json.Unmarshal([]byte(themes), &entry.Themes); err != nil {
			entry.Themes = nil
		}
		entry.GeneratedAt = time.Unix(0, generatedAt).UTC()
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}
