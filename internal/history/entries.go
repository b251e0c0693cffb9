package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status values recorded for a render.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// ErrNotFound reports a lookup for an unknown render id.
var ErrNotFound = errors.New("render not found")

// Entry is one row of the render ledger.
type Entry struct {
	ID            string
	Status        string
	ErrorClass    string
	ErrorDetail   string
	Turns         int
	Segments      int
	Words         int
	Overlays      int
	TotalDuration float64
	VideoBytes    int64
	Source        string
	StartedAt     time.Time
	FinishedAt    time.Time
}

// Elapsed returns the wall-clock time spent on the request.
func (e Entry) Elapsed() time.Duration {
	if e.FinishedAt.Before(e.StartedAt) {
		return 0
	}
	return e.FinishedAt.Sub(e.StartedAt)
}

// Summary aggregates counts over the whole ledger.
type Summary struct {
	Total         int
	Succeeded     int
	Failed        int
	TotalDuration float64
}

// timeLayout keeps a fixed width so timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const entryColumns = `id, status, error_class, error_detail, turns, segments, words, overlays,
	total_duration, video_bytes, source, started_at, finished_at`

// Record inserts or replaces an entry.
func (s *Store) Record(ctx context.Context, entry Entry) error {
	if strings.TrimSpace(entry.ID) == "" {
		return errors.New("history: entry id required")
	}
	if entry.Status == "" {
		entry.Status = StatusSucceeded
	}
	if entry.StartedAt.IsZero() {
		entry.StartedAt = time.Now()
	}
	if entry.FinishedAt.IsZero() {
		entry.FinishedAt = time.Now()
	}
	err := s.execWithRetry(ctx,
		`INSERT OR REPLACE INTO renders (`+entryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.Status,
		entry.ErrorClass,
		entry.ErrorDetail,
		entry.Turns,
		entry.Segments,
		entry.Words,
		entry.Overlays,
		entry.TotalDuration,
		entry.VideoBytes,
		entry.Source,
		entry.StartedAt.UTC().Format(timeLayout),
		entry.FinishedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("record render %s: %w", entry.ID, err)
	}
	return nil
}

// Get returns the entry with the given id.
func (s *Store) Get(ctx context.Context, id string) (*Entry, error) {
	var entry *Entry
	err := retryOnBusy(ctx, func() error {
		row := s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM renders WHERE id = ?`, id)
		scanned, err := scanEntry(row)
		if err != nil {
			return err
		}
		entry = scanned
		return nil
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get render %s: %w", id, err)
	}
	return entry, nil
}

// List returns the newest entries first. A limit of zero or less returns all
// rows. Statuses, when provided, restrict the result.
func (s *Store) List(ctx context.Context, limit int, statuses ...string) ([]Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM renders`
	args := make([]any, 0, len(statuses)+1)
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, status := range statuses {
			placeholders[i] = "?"
			args = append(args, status)
		}
		query += ` WHERE status IN (` + strings.Join(placeholders, ", ") + `)`
	}
	query += ` ORDER BY started_at DESC, id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	var entries []Entry
	err := retryOnBusy(ctx, func() error {
		entries = entries[:0]
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			entry, err := scanEntry(rows)
			if err != nil {
				return err
			}
			entries = append(entries, *entry)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list renders: %w", err)
	}
	return entries, nil
}

// Summarize aggregates the ledger.
func (s *Store) Summarize(ctx context.Context) (Summary, error) {
	var summary Summary
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx, `SELECT
			COUNT(1),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = ? THEN total_duration ELSE 0 END), 0)
			FROM renders`,
			StatusSucceeded, StatusFailed, StatusSucceeded,
		).Scan(&summary.Total, &summary.Succeeded, &summary.Failed, &summary.TotalDuration)
	})
	if err != nil {
		return Summary{}, fmt.Errorf("summarize renders: %w", err)
	}
	return summary, nil
}

// Prune deletes entries that started before cutoff and returns how many were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	var removed int64
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM renders WHERE started_at < ?`,
			cutoff.UTC().Format(timeLayout))
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("prune renders: %w", err)
	}
	return removed, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*Entry, error) {
	var (
		entry             Entry
		started, finished string
	)
	if err := row.Scan(
		&entry.ID,
		&entry.Status,
		&entry.ErrorClass,
		&entry.ErrorDetail,
		&entry.Turns,
		&entry.Segments,
		&entry.Words,
		&entry.Overlays,
		&entry.TotalDuration,
		&entry.VideoBytes,
		&entry.Source,
		&started,
		&finished,
	); err != nil {
		return nil, err
	}
	entry.StartedAt = parseTime(started)
	entry.FinishedAt = parseTime(finished)
	return &entry, nil
}

func parseTime(value string) time.Time {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
