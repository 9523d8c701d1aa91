package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/godilite/report-collector/internal/collector"
	"github.com/godilite/report-collector/internal/repository/models"
)

// ErrSnapshotNotFound is returned when no stored run matches.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Fixed-width so lexical order equals chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const schema = `
	CREATE TABLE IF NOT EXISTS runs (
		id               TEXT PRIMARY KEY,
		base_url         TEXT NOT NULL,
		collected_at     TEXT NOT NULL,
		assessment_types INTEGER NOT NULL,
		unit_count       INTEGER NOT NULL,
		payload          TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_collected_at ON runs (collected_at);
	CREATE TABLE IF NOT EXISTS report_units (
		run_id                  TEXT NOT NULL,
		position                INTEGER NOT NULL,
		assessment_type         TEXT NOT NULL,
		org_unit_name           TEXT NOT NULL,
		org_unit_code           TEXT NOT NULL,
		primary_assessment_name TEXT NOT NULL,
		report_count            INTEGER NOT NULL,
		PRIMARY KEY (run_id, position),
		FOREIGN KEY (run_id) REFERENCES runs(id)
	);
`

type SnapshotRepository struct {
	db *sql.DB
}

func NewSnapshotRepository(db *sql.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Migrate creates the snapshot tables if they do not exist.
func (r *SnapshotRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate snapshot schema: %w", err)
	}
	return nil
}

// SaveSnapshot stores a dataset and one row per (type, unit) record in a single transaction.
func (r *SnapshotRepository) SaveSnapshot(ctx context.Context, ds *collector.Dataset) (err error) {
	if ds == nil || ds.Index == nil {
		return errors.New("save snapshot: dataset has no index")
	}

	payload, err := json.Marshal(ds)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin SaveSnapshot: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insertRun = `
		INSERT INTO runs (id, base_url, collected_at, assessment_types, unit_count, payload)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	if _, err = tx.ExecContext(ctx, insertRun,
		ds.RunID,
		ds.BaseURL,
		ds.CollectedAt.UTC().Format(timeLayout),
		len(ds.Index.Types),
		ds.Index.UnitCount(),
		string(payload),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	const insertUnit = `
		INSERT INTO report_units (run_id, position, assessment_type, org_unit_name, org_unit_code, primary_assessment_name, report_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	pos := 0
	for _, g := range ds.Index.Types {
		for _, u := range g.Units {
			if _, err = tx.ExecContext(ctx, insertUnit,
				ds.RunID, pos, g.AssessmentType, u.OrgUnitName, u.OrgUnitCode, u.PrimaryAssessmentName, len(u.Reports),
			); err != nil {
				return fmt.Errorf("insert report unit %q: %w", u.OrgUnitName, err)
			}
			pos++
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit SaveSnapshot: %w", err)
	}
	return nil
}

// GetSnapshot loads the dataset stored under runID.
func (r *SnapshotRepository) GetSnapshot(ctx context.Context, runID string) (*collector.Dataset, error) {
	const query = `SELECT payload FROM runs WHERE id = ?`
	return r.loadPayload(ctx, "GetSnapshot", query, runID)
}

// LatestSnapshot loads the most recently collected dataset.
func (r *SnapshotRepository) LatestSnapshot(ctx context.Context) (*collector.Dataset, error) {
	const query = `SELECT payload FROM runs ORDER BY collected_at DESC LIMIT 1`
	return r.loadPayload(ctx, "LatestSnapshot", query)
}

func (r *SnapshotRepository) loadPayload(ctx context.Context, op, query string, args ...any) (*collector.Dataset, error) {
	var payload string
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("query %s: %w", op, err)
	}

	var ds collector.Dataset
	if err := json.Unmarshal([]byte(payload), &ds); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", op, err)
	}
	return &ds, nil
}

// ListRuns returns run summaries, newest first.
func (r *SnapshotRepository) ListRuns(ctx context.Context, limit int) ([]models.RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	const query = `
		SELECT id, base_url, collected_at, assessment_types, unit_count
		FROM runs
		ORDER BY collected_at DESC
		LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query ListRuns: %w", err)
	}
	defer rows.Close()

	var results []models.RunSummary
	for rows.Next() {
		var s models.RunSummary
		var collectedAt string
		if err := rows.Scan(&s.RunID, &s.BaseURL, &collectedAt, &s.AssessmentTypes, &s.UnitCount); err != nil {
			return nil, fmt.Errorf("scan ListRuns row: %w", err)
		}
		if s.CollectedAt, err = time.Parse(timeLayout, collectedAt); err != nil {
			return nil, fmt.Errorf("parse collected_at %q: %w", collectedAt, err)
		}
		results = append(results, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ListRuns: %w", err)
	}
	return results, nil
}

// ListUnits returns the unit rows of a run in index order.
func (r *SnapshotRepository) ListUnits(ctx context.Context, runID string) ([]models.UnitRow, error) {
	const query = `
		SELECT run_id, position, assessment_type, org_unit_name, org_unit_code, primary_assessment_name, report_count
		FROM report_units
		WHERE run_id = ?
		ORDER BY position
	`
	rows, err := r.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query ListUnits: %w", err)
	}
	defer rows.Close()

	var results []models.UnitRow
	for rows.Next() {
		var u models.UnitRow
		if err := rows.Scan(&u.RunID, &u.Position, &u.AssessmentType, &u.OrgUnitName, &u.OrgUnitCode, &u.PrimaryAssessmentName, &u.ReportCount); err != nil {
			return nil, fmt.Errorf("scan ListUnits row: %w", err)
		}
		results = append(results, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ListUnits: %w", err)
	}
	return results, nil
}
