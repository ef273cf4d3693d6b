package store

import (
	"context"
	"time"

	"github.com/1genadam/tileshop-rag-sub001/dbopen"
)

// Run is one logged pipeline run.
type Run struct {
	ID         string  `json:"id"`
	URL        string  `json:"url"`
	Family     string  `json:"family"`
	Confidence float64 `json:"confidence"`
	Incomplete bool    `json:"incomplete"`
	ReportJSON string  `json:"report_json"`
	DurationMS int64   `json:"duration_ms"`
	RanAt      int64   `json:"ran_at"`
}

// InsertRun logs a completed pipeline run.
func (s *Store) InsertRun(ctx context.Context, r *Run) error {
	if r.RanAt == 0 {
		r.RanAt = time.Now().UnixMilli()
	}
	if r.ReportJSON == "" {
		r.ReportJSON = "{}"
	}
	_, err := dbopen.Exec(ctx, s.DB, `
		INSERT INTO extraction_runs (id, url, family, confidence, incomplete,
			report_json, duration_ms, ran_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.URL, r.Family, r.Confidence, r.Incomplete,
		r.ReportJSON, r.DurationMS, r.RanAt,
	)
	return err
}

// ListRuns returns runs, newest first, optionally filtered by URL.
func (s *Store) ListRuns(ctx context.Context, url string, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, url, family, confidence, incomplete, report_json,
		duration_ms, ran_at FROM extraction_runs`
	args := []any{}
	if url != "" {
		query += ` WHERE url = ?`
		args = append(args, url)
	}
	query += ` ORDER BY ran_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.URL, &r.Family, &r.Confidence,
			&r.Incomplete, &r.ReportJSON, &r.DurationMS, &r.RanAt); err != nil {
			return nil, err
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

// PruneRuns deletes run log rows older than the cutoff, returning the
// number removed.
func (s *Store) PruneRuns(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.DB.ExecContext(ctx,
		`DELETE FROM extraction_runs WHERE ran_at < ?`, olderThan.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
