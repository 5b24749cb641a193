package ports

import (
	"context"

	"surveyprep/domain/run"
)

// RunRepository persists run-history records. Persistence is optional; a
// nil repository means history is disabled.
type RunRepository interface {
	Save(ctx context.Context, record *run.Record) error
	List(ctx context.Context, limit int) ([]run.Record, error)
}
