// Package store persists reconciled neighborhood records and join-run
// diagnostics to Postgres. The core stays pure; everything durable goes
// through here.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/My-Advanced-Machine-Learning-Project/urban-risk-lens/internal/hierarchy"
	"github.com/My-Advanced-Machine-Learning-Project/urban-risk-lens/internal/join"
)

// Store wraps the database handle.
type Store struct {
	db *sql.DB
}

// Open connects to Postgres with the given DSN and verifies the
// connection.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	return &Store{db: db}, nil
}

// New wraps an existing handle; used by tests with a mock driver.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close closes the underlying handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// EnsureSchema creates the tables if they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS join_run (
			run_id UUID PRIMARY KEY,
			run_label TEXT NOT NULL,
			strategy TEXT NOT NULL,
			tabular_key TEXT,
			geometry_key TEXT,
			matched INT NOT NULL,
			missing INT NOT NULL,
			total_features INT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS neighborhood_risk (
			run_id UUID NOT NULL REFERENCES join_run(run_id),
			entity_id TEXT NOT NULL,
			city TEXT,
			district TEXT,
			name TEXT,
			risk_score DOUBLE PRECISION,
			risk_class DOUBLE PRECISION,
			population DOUBLE PRECISION,
			building_count DOUBLE PRECISION,
			vs30 DOUBLE PRECISION,
			min_x DOUBLE PRECISION,
			min_y DOUBLE PRECISION,
			max_x DOUBLE PRECISION,
			max_y DOUBLE PRECISION,
			PRIMARY KEY (run_id, entity_id)
		);`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// SaveJoinRun records one join invocation's diagnostics and returns the
// generated run id.
func (s *Store) SaveJoinRun(ctx context.Context, label string, diag join.Diagnostics) (string, error) {
	runID := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO join_run (run_id, run_label, strategy, tabular_key, geometry_key, matched, missing, total_features)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		runID, label, diag.Strategy.String(), diag.TabularKey, diag.GeometryKey,
		diag.Matched, diag.Missing, diag.TotalFeatures,
	)
	if err != nil {
		return "", fmt.Errorf("failed to save join run: %w", err)
	}
	return runID, nil
}

// SaveEntities batch-inserts normalized entities for a run inside one
// transaction. Duplicate entity ids within the run (synthesized-id
// collisions) upsert rather than abort, matching the core's
// report-don't-fail posture.
func (s *Store) SaveEntities(ctx context.Context, runID string, entities []*hierarchy.Entity) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO neighborhood_risk (
			run_id, entity_id, city, district, name,
			risk_score, risk_class, population, building_count, vs30,
			min_x, min_y, max_x, max_y
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (run_id, entity_id) DO UPDATE SET
			risk_score = EXCLUDED.risk_score,
			risk_class = EXCLUDED.risk_class,
			population = EXCLUDED.population,
			building_count = EXCLUDED.building_count,
			vs30 = EXCLUDED.vs30`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entities {
		var minX, minY, maxX, maxY sql.NullFloat64
		if e.BBox != nil {
			minX = sql.NullFloat64{Float64: e.BBox.MinX(), Valid: true}
			minY = sql.NullFloat64{Float64: e.BBox.MinY(), Valid: true}
			maxX = sql.NullFloat64{Float64: e.BBox.MaxX(), Valid: true}
			maxY = sql.NullFloat64{Float64: e.BBox.MaxY(), Valid: true}
		}
		_, err = stmt.ExecContext(ctx,
			runID, e.ID, e.City, e.District, e.Name,
			e.RiskScore, e.RiskClass, e.Population, e.BuildingCount, e.VS30,
			minX, minY, maxX, maxY,
		)
		if err != nil {
			return fmt.Errorf("failed to insert entity %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// CountNeighborhoods returns the number of persisted entities for a run.
func (s *Store) CountNeighborhoods(ctx context.Context, runID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM neighborhood_risk WHERE run_id = $1`, runID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count neighborhoods: %w", err)
	}
	return count, nil
}
