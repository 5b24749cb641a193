// Package postgres persists run history when a database is configured.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"surveyprep/domain/run"
	"surveyprep/ports"
)

// runRepository implements the RunRepository interface
type runRepository struct {
	db *sqlx.DB
}

// NewRunRepository creates a new run-history repository
func NewRunRepository(db *sqlx.DB) ports.RunRepository {
	return &runRepository{db: db}
}

// Migrate creates the run-history table if it does not exist.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	schema := `CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		row_count INTEGER NOT NULL,
		column_count INTEGER NOT NULL,
		mr_set_count INTEGER NOT NULL,
		steps_run JSONB NOT NULL DEFAULT '[]',
		skipped_steps JSONB NOT NULL DEFAULT '[]',
		finding_counts JSONB NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create runs table: %w", err)
	}
	return nil
}

// Save inserts one run record
func (r *runRepository) Save(ctx context.Context, record *run.Record) error {
	stepsJSON, err := json.Marshal(record.StepsRun)
	if err != nil {
		return fmt.Errorf("failed to marshal steps: %w", err)
	}
	skippedJSON, err := json.Marshal(record.SkippedSteps)
	if err != nil {
		return fmt.Errorf("failed to marshal skipped steps: %w", err)
	}
	findingsJSON, err := json.Marshal(record.FindingCounts)
	if err != nil {
		return fmt.Errorf("failed to marshal finding counts: %w", err)
	}

	query := `INSERT INTO runs (
		id, filename, row_count, column_count, mr_set_count,
		steps_run, skipped_steps, finding_counts, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = r.db.ExecContext(ctx, query,
		record.ID, record.Filename, record.RowCount, record.ColumnCount, record.MRSetCount,
		stepsJSON, skippedJSON, findingsJSON, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save run record: %w", err)
	}
	return nil
}

// List returns the most recent run records
func (r *runRepository) List(ctx context.Context, limit int) ([]run.Record, error) {
	query := `SELECT id, filename, row_count, column_count, mr_set_count,
		steps_run, skipped_steps, finding_counts, created_at
	FROM runs ORDER BY created_at DESC LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var records []run.Record
	for rows.Next() {
		var record run.Record
		var stepsJSON, skippedJSON, findingsJSON []byte
		if err := rows.Scan(
			&record.ID, &record.Filename, &record.RowCount, &record.ColumnCount, &record.MRSetCount,
			&stepsJSON, &skippedJSON, &findingsJSON, &record.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run record: %w", err)
		}
		if err := json.Unmarshal(stepsJSON, &record.StepsRun); err != nil {
			return nil, fmt.Errorf("failed to unmarshal steps: %w", err)
		}
		if err := json.Unmarshal(skippedJSON, &record.SkippedSteps); err != nil {
			return nil, fmt.Errorf("failed to unmarshal skipped steps: %w", err)
		}
		if err := json.Unmarshal(findingsJSON, &record.FindingCounts); err != nil {
			return nil, fmt.Errorf("failed to unmarshal finding counts: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
