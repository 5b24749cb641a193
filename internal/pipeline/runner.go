// Package pipeline implements the survey pre-processing stages: schema
// resolution, missing-value handling, weight calculation, label encoding
// and tidy export. Stages are pure table-to-table functions run in a fixed
// order; each reads its predecessor's output and returns a fresh table.
package pipeline

import (
	"context"

	"surveyprep/domain/core"
	"surveyprep/domain/survey"
	"surveyprep/domain/table"
	"surveyprep/internal"
	"surveyprep/internal/errors"
)

// RunInput carries the tables one run operates on. Population may be nil
// when weight calculation is disabled.
type RunInput struct {
	Raw        *table.Table
	Population *table.Table
}

// RunResult is everything a completed run hands back to the caller: the
// processed wide table, the optional tidy outputs, the resolved schema and
// the accumulated report.
type RunResult struct {
	RunID  core.RunID
	Schema *survey.Schema
	Wide   *table.Table
	Tidy   *TidyOutput
	Report *Report
}

// Pipeline runs the processing stages for one configuration. Independent
// runs over independent tables may execute concurrently; a Pipeline holds
// no per-run state.
type Pipeline struct {
	opts     Options
	resolver *Resolver
	logger   *internal.Logger
}

// New builds a pipeline, compiling the configured naming conventions.
func New(opts Options) (*Pipeline, error) {
	resolver, err := NewResolver(opts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build schema resolver")
	}
	return &Pipeline{
		opts:     opts,
		resolver: resolver,
		logger:   internal.NewDefaultLogger(),
	}, nil
}

// Options returns the options the pipeline was built with.
func (p *Pipeline) Options() Options {
	return p.opts
}

// Run executes the enabled stages over one raw table. A structurally
// impossible step is skipped for the whole run and recorded in the report;
// downstream steps continue on the unmodified table. Cancellation is
// coarse-grained: the context is only checked between stages.
func (p *Pipeline) Run(ctx context.Context, in RunInput) (*RunResult, error) {
	if in.Raw == nil || in.Raw.NumRows() == 0 {
		return nil, errors.InvalidInput("raw table is empty")
	}

	result := &RunResult{
		RunID:  core.RunID(core.NewID()),
		Report: NewReport(),
	}
	p.logger.Info("Run %s started (%d rows, %d columns)",
		result.RunID, in.Raw.NumRows(), len(in.Raw.Columns))

	schema := p.resolver.Resolve(in.Raw, result.Report)
	wide := in.Raw

	if p.opts.RunMissingValueHandling {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		wide = HandleMissing(wide, schema, p.opts.SkipSentinel)
	}

	if p.opts.RunWeightCalculation {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		weighted, err := CalculateWeights(wide, in.Population, p.opts, result.Report)
		if err != nil {
			result.Report.SkipStep(StepWeights, err.Error())
			p.logger.Warn("Run %s: weight calculation skipped: %v", result.RunID, err)
		} else {
			wide = weighted
		}
	}

	if p.opts.RunLabelEncoding {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		encoded, renames := EncodeLabels(wide, schema, p.opts, result.Report)
		wide = encoded
		schema = schema.WithRenamedColumns(renames)
	}

	if p.opts.RunTidyExport {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result.Tidy = ExportTidy(wide, schema)
	}

	result.Schema = schema
	result.Wide = wide
	p.logger.Info("Run %s finished with %d finding(s)", result.RunID, len(result.Report.Findings))
	if p.logger.GetLevel() >= internal.LogLevelDebug {
		for _, f := range result.Report.Findings {
			p.logger.Debug("Run %s: %s %s: %s", result.RunID, f.Kind, f.Subject, f.Detail)
		}
	}
	return result, nil
}
