package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/ericfisherdev/pyautofix/internal/domain/model"
	"github.com/ericfisherdev/pyautofix/internal/domain/port/driven"
)

// timeLayout is fixed-width so recorded_at sorts chronologically as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Compile-time interface satisfaction check.
var _ driven.UsageStore = (*UsageRepo)(nil)

// UsageRepo is the SQLite implementation of the UsageStore port interface.
type UsageRepo struct {
	db *DB
}

// NewUsageRepo creates a new UsageRepo backed by the given DB.
func NewUsageRepo(db *DB) *UsageRepo {
	return &UsageRepo{db: db}
}

// Record appends one usage record. A zero RecordedAt is stamped with the
// current time.
func (r *UsageRepo) Record(ctx context.Context, rec model.UsageRecord) error {
	recordedAt := rec.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}

	const query = `
		INSERT INTO usage_records (
			installation_id, repo, pull_number, head_sha, action, plan, outcome,
			summary, applied_fixes, unsafe_fixes, commented, duration_ms, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Writer.ExecContext(ctx, query,
		rec.InstallationID, rec.Repo, rec.PullNumber, rec.HeadSHA, rec.Action,
		string(rec.Plan), string(rec.Outcome), rec.Summary,
		boolToInt(rec.AppliedFixes), boolToInt(rec.UnsafeFixes), boolToInt(rec.Commented),
		rec.Duration.Milliseconds(), recordedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert usage record for %s#%d: %w", rec.Repo, rec.PullNumber, err)
	}

	return nil
}

// ListRecent returns up to limit records, newest first.
func (r *UsageRepo) ListRecent(ctx context.Context, limit int) ([]model.UsageRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	const query = `
		SELECT id, installation_id, repo, pull_number, head_sha, action, plan, outcome,
		       summary, applied_fixes, unsafe_fixes, commented, duration_ms, recorded_at
		FROM usage_records
		ORDER BY recorded_at DESC, id DESC
		LIMIT ?
	`

	rows, err := r.db.Reader.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query usage records: %w", err)
	}
	defer rows.Close()

	records := []model.UsageRecord{}
	for rows.Next() {
		rec, err := scanUsageRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan usage record: %w", err)
		}
		records = append(records, *rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate usage records: %w", err)
	}

	return records, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUsageRecord(s scanner) (*model.UsageRecord, error) {
	var rec model.UsageRecord
	var plan, outcome, recordedAt string
	var applied, unsafe, commented int
	var durationMs int64

	err := s.Scan(
		&rec.ID, &rec.InstallationID, &rec.Repo, &rec.PullNumber, &rec.HeadSHA, &rec.Action,
		&plan, &outcome, &rec.Summary, &applied, &unsafe, &commented, &durationMs, &recordedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Plan = model.Plan(plan)
	rec.Outcome = model.UsageOutcome(outcome)
	rec.AppliedFixes = applied != 0
	rec.UnsafeFixes = unsafe != 0
	rec.Commented = commented != 0
	rec.Duration = time.Duration(durationMs) * time.Millisecond

	rec.RecordedAt, err = parseTime(recordedAt)
	if err != nil {
		return nil, fmt.Errorf("parse recorded_at: %w", err)
	}

	return &rec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// parseTime attempts to parse a time string in common SQLite formats.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		timeLayout,
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %q", s)
}
