package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/1genadam/tileshop-rag-sub001/dbopen"
	"github.com/1genadam/tileshop-rag-sub001/pageintel/internal/record"
)

// UpsertRecord writes a product record, replacing any prior row for the
// same URL wholesale. There is no partial-update path: re-extraction
// always produces a complete replacement. Concurrent batch workers share
// one database, so the write retries on SQLITE_BUSY.
func (s *Store) UpsertRecord(ctx context.Context, rec *record.ProductRecord) error {
	openJSON, err := json.Marshal(orEmptyMap(rec.Open))
	if err != nil {
		return fmt.Errorf("store: marshal open fields: %w", err)
	}
	resJSON, err := json.Marshal(orEmptySlice(rec.Resources))
	if err != nil {
		return fmt.Errorf("store: marshal resources: %w", err)
	}
	now := time.Now().UnixMilli()

	return dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
		INSERT INTO product_records (url, sku, title, family,
			price_per_sqft, price_per_box, price_per_unit, coverage,
			dimensions, material, finish, markdown,
			open_json, resources_json, incomplete, ref_version,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			sku=excluded.sku, title=excluded.title, family=excluded.family,
			price_per_sqft=excluded.price_per_sqft,
			price_per_box=excluded.price_per_box,
			price_per_unit=excluded.price_per_unit,
			coverage=excluded.coverage,
			dimensions=excluded.dimensions, material=excluded.material,
			finish=excluded.finish, markdown=excluded.markdown,
			open_json=excluded.open_json,
			resources_json=excluded.resources_json,
			incomplete=excluded.incomplete, ref_version=excluded.ref_version,
			updated_at=excluded.updated_at`,
			rec.URL, rec.SKU, rec.Title, string(rec.Family),
			rec.PricePerSqFt, rec.PricePerBox, rec.PricePerUnit, rec.Coverage,
			rec.Dimensions, rec.Material, rec.Finish, rec.Markdown,
			string(openJSON), string(resJSON), rec.Incomplete, rec.RefVersion,
			now, now,
		)
		return err
	})
}

// GetRecordByURL retrieves the record for a canonical URL.
func (s *Store) GetRecordByURL(ctx context.Context, url string) (*record.ProductRecord, error) {
	row := s.DB.QueryRowContext(ctx, selectRecord+` WHERE url = ?`, url)
	return scanRecord(row)
}

// GetRecordBySKU retrieves the most recently updated record carrying sku.
func (s *Store) GetRecordBySKU(ctx context.Context, sku string) (*record.ProductRecord, error) {
	row := s.DB.QueryRowContext(ctx,
		selectRecord+` WHERE sku = ? ORDER BY updated_at DESC LIMIT 1`, sku)
	return scanRecord(row)
}

// ListRecords returns records, optionally filtered by family, newest first.
func (s *Store) ListRecords(ctx context.Context, family record.Family, limit int) ([]*record.ProductRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	var (
		rows *sql.Rows
		err  error
	)
	if family == "" {
		rows, err = s.DB.QueryContext(ctx,
			selectRecord+` ORDER BY updated_at DESC LIMIT ?`, limit)
	} else {
		rows, err = s.DB.QueryContext(ctx,
			selectRecord+` WHERE family = ? ORDER BY updated_at DESC LIMIT ?`,
			string(family), limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*record.ProductRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

const selectRecord = `
	SELECT url, sku, title, family,
		price_per_sqft, price_per_box, price_per_unit, coverage,
		dimensions, material, finish, markdown,
		open_json, resources_json, incomplete, ref_version
	FROM product_records`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*record.ProductRecord, error) {
	var (
		rec                  record.ProductRecord
		family               string
		sqft, box, unit, cov sql.NullFloat64
		openJSON, resJSON    string
	)
	err := row.Scan(&rec.URL, &rec.SKU, &rec.Title, &family,
		&sqft, &box, &unit, &cov,
		&rec.Dimensions, &rec.Material, &rec.Finish, &rec.Markdown,
		&openJSON, &resJSON, &rec.Incomplete, &rec.RefVersion)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rec.Family = record.Family(family)
	rec.PricePerSqFt = nullableFloat(sqft)
	rec.PricePerBox = nullableFloat(box)
	rec.PricePerUnit = nullableFloat(unit)
	rec.Coverage = nullableFloat(cov)

	if openJSON != "" && openJSON != "{}" {
		if err := json.Unmarshal([]byte(openJSON), &rec.Open); err != nil {
			return nil, fmt.Errorf("store: open fields for %s: %w", rec.URL, err)
		}
	}
	if resJSON != "" && resJSON != "[]" {
		if err := json.Unmarshal([]byte(resJSON), &rec.Resources); err != nil {
			return nil, fmt.Errorf("store: resources for %s: %w", rec.URL, err)
		}
	}
	return &rec, nil
}

func nullableFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func orEmptyMap(m map[string]record.CanonicalField) map[string]record.CanonicalField {
	if m == nil {
		return map[string]record.CanonicalField{}
	}
	return m
}

func orEmptySlice(s []record.ResourceLink) []record.ResourceLink {
	if s == nil {
		return []record.ResourceLink{}
	}
	return s
}
