package pipeline

import "surveyprep/internal/config"

// Step names used by the runner, the report and the UI.
const (
	StepMissingValues = "missing_value_handling"
	StepWeights       = "weight_calculation"
	StepLabels        = "label_encoding"
	StepTidy          = "tidy_export"
)

// Options carries the step toggles and naming conventions for one run.
// The zero value is not usable; start from DefaultOptions or FromConfig.
type Options struct {
	RunMissingValueHandling bool
	RunWeightCalculation    bool
	RunLabelEncoding        bool
	RunTidyExport           bool

	MRPattern    string
	LabelSuffix  string
	SkipSentinel string
	SkipRules    string
	IDColumn     string
	DropTextCols bool

	StrataColumns []string
	ShareColumn   string
	Rescale       bool
}

// DefaultOptions returns the documented defaults: missing-value handling on,
// everything else off.
func DefaultOptions() Options {
	return Options{
		RunMissingValueHandling: true,
		MRPattern:               config.DefaultMRPattern,
		LabelSuffix:             config.DefaultLabelSuffix,
		SkipSentinel:            config.DefaultSkipSentinel,
		ShareColumn:             config.DefaultShareColumn,
		DropTextCols:            true,
	}
}

// FromConfig builds run options from the application configuration.
func FromConfig(cfg *config.Config) Options {
	return Options{
		RunMissingValueHandling: cfg.Pipeline.RunMissingValueHandling,
		RunWeightCalculation:    cfg.Pipeline.RunWeightCalculation,
		RunLabelEncoding:        cfg.Pipeline.RunLabelEncoding,
		RunTidyExport:           cfg.Pipeline.RunTidyExport,
		MRPattern:               cfg.Pipeline.MRPattern,
		LabelSuffix:             cfg.Pipeline.LabelSuffix,
		SkipSentinel:            cfg.Pipeline.SkipSentinel,
		SkipRules:               cfg.Pipeline.SkipRules,
		IDColumn:                cfg.Pipeline.IDColumn,
		DropTextCols:            cfg.Pipeline.DropTextCols,
		StrataColumns:           cfg.Weighting.StrataColumns,
		ShareColumn:             cfg.Weighting.ShareColumn,
		Rescale:                 cfg.Weighting.Rescale,
	}
}
