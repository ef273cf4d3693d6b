package store

import "context"

// Stats summarizes catalog coverage for the read API.
type Stats struct {
	Records    int            `json:"records"`
	Incomplete int            `json:"incomplete"`
	Runs       int            `json:"runs"`
	Names      int            `json:"canonical_names"`
	ByFamily   map[string]int `json:"by_family"`
}

// Stats computes record, run, and registry counts.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{ByFamily: make(map[string]int)}

	row := s.DB.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN incomplete THEN 1 ELSE 0 END), 0)
		FROM product_records`)
	if err := row.Scan(&st.Records, &st.Incomplete); err != nil {
		return nil, err
	}
	if err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM extraction_runs`).Scan(&st.Runs); err != nil {
		return nil, err
	}
	if err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM canonical_names`).Scan(&st.Names); err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT family, COUNT(*) FROM product_records GROUP BY family`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var family string
		var n int
		if err := rows.Scan(&family, &n); err != nil {
			return nil, err
		}
		st.ByFamily[family] = n
	}
	return st, rows.Err()
}
