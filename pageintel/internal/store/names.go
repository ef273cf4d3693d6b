package store

import (
	"context"
	"time"

	"github.com/1genadam/tileshop-rag-sub001/pageintel/internal/record"
)

// AddCanonicalName records a newly registered canonical name. Inserting an
// existing name is a no-op, matching the registry's append-only semantics.
func (s *Store) AddCanonicalName(ctx context.Context, name string, pass record.Pass) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO canonical_names (name, first_pass, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO NOTHING`,
		name, pass.String(), time.Now().UnixMilli(),
	)
	return err
}

// CanonicalNames returns every registered canonical name in sorted order.
func (s *Store) CanonicalNames(ctx context.Context) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT name FROM canonical_names ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
