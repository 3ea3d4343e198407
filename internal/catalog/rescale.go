package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/lib/pq"
)

// RescaleFactor is one accepted sigma rescale result: applying factor to
// WEIGHT (w / factor^2) makes the scatter of table's window match its
// claimed uncertainties.
type RescaleFactor struct {
	Table     string
	SpwID     int
	Factor    float64
	NVis      int64
	RunID     string
	UpdatedAt time.Time
}

// RescaleStore keeps accepted factors in the visread_rescale_factors
// table, one row per (table, spectral window).
type RescaleStore struct {
	db *sql.DB
}

// NewRescaleStore ensures the schema and wraps db.
func NewRescaleStore(db *sql.DB) (*RescaleStore, error) {
	if db == nil {
		return nil, errors.New("catalog: db is required")
	}
	const ddl = `
CREATE TABLE IF NOT EXISTS visread_rescale_factors (
  table_name text NOT NULL,
  spw_id integer NOT NULL,
  factor double precision NOT NULL,
  nvis bigint NOT NULL DEFAULT 0,
  run_id text NOT NULL DEFAULT '',
  updated_at timestamptz NOT NULL DEFAULT now(),
  PRIMARY KEY (table_name, spw_id)
);
`
	if _, err := db.Exec(ddl); err != nil {
		return nil, fmt.Errorf("catalog: ensure visread_rescale_factors: %w", err)
	}
	return &RescaleStore{db: db}, nil
}

// NewRescaleStoreFromEnv connects using VISREAD_DATABASE_URL, falling
// back to DATABASE_URL.
func NewRescaleStoreFromEnv() (*RescaleStore, error) {
	dsn := os.Getenv("VISREAD_DATABASE_URL")
	if dsn == "" {
		dsn = os.Getenv("DATABASE_URL")
	}
	if dsn == "" {
		return nil, errors.New("catalog: VISREAD_DATABASE_URL/DATABASE_URL not set")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return NewRescaleStore(db)
}

// Put upserts one factor.
func (s *RescaleStore) Put(ctx context.Context, f RescaleFactor) error {
	if f.Table == "" {
		return errors.New("catalog: table name is required")
	}
	if f.Factor <= 0 {
		return fmt.Errorf("catalog: factor %v is not positive", f.Factor)
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO visread_rescale_factors (table_name, spw_id, factor, nvis, run_id, updated_at)
VALUES ($1, $2, $3, $4, $5, now())
ON CONFLICT (table_name, spw_id) DO UPDATE SET
  factor = EXCLUDED.factor,
  nvis = EXCLUDED.nvis,
  run_id = EXCLUDED.run_id,
  updated_at = now();`,
		f.Table, f.SpwID, f.Factor, f.NVis, f.RunID)
	return err
}

// ForTable returns every stored factor for a table, window order.
func (s *RescaleStore) ForTable(ctx context.Context, table string) ([]RescaleFactor, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT table_name, spw_id, factor, nvis, run_id, updated_at
FROM visread_rescale_factors WHERE table_name = $1 ORDER BY spw_id;`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectFactors(rows)
}

// ForWindows returns factor-by-window for the named spectral windows.
// Windows without a stored factor are simply absent from the map.
func (s *RescaleStore) ForWindows(ctx context.Context, table string, spwIDs []int) (map[int]float64, error) {
	if len(spwIDs) == 0 {
		return map[int]float64{}, nil
	}
	ids := make([]int64, len(spwIDs))
	for i, id := range spwIDs {
		ids[i] = int64(id)
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT spw_id, factor FROM visread_rescale_factors
WHERE table_name = $1 AND spw_id = ANY($2);`, table, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[int]float64{}
	for rows.Next() {
		var spw int
		var factor float64
		if err := rows.Scan(&spw, &factor); err != nil {
			return nil, err
		}
		out[spw] = factor
	}
	return out, rows.Err()
}

// Close closes the underlying connection.
func (s *RescaleStore) Close() error {
	return s.db.Close()
}

func collectFactors(rows *sql.Rows) ([]RescaleFactor, error) {
	var out []RescaleFactor
	for rows.Next() {
		var f RescaleFactor
		if err := rows.Scan(&f.Table, &f.SpwID, &f.Factor, &f.NVis, &f.RunID, &f.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
