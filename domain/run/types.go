package run

import (
	"time"

	"surveyprep/domain/core"
)

// Record summarizes one completed pipeline run for the run-history store.
type Record struct {
	ID            core.RunID     `db:"id" json:"id"`
	Filename      string         `db:"filename" json:"filename"`
	RowCount      int            `db:"row_count" json:"row_count"`
	ColumnCount   int            `db:"column_count" json:"column_count"`
	MRSetCount    int            `db:"mr_set_count" json:"mr_set_count"`
	StepsRun      []string       `db:"-" json:"steps_run"`
	SkippedSteps  []string       `db:"-" json:"skipped_steps"`
	FindingCounts map[string]int `db:"-" json:"finding_counts"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
}
