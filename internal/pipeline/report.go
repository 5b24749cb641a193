package pipeline

import (
	"fmt"
	"strings"
)

// FindingKind classifies the non-fatal conditions a run can accumulate.
type FindingKind string

const (
	// KindSchemaAmbiguity marks a column that partially matches an MR
	// pattern and was left ungrouped.
	KindSchemaAmbiguity FindingKind = "schema_ambiguity"
	// KindUnresolvedSkipGate marks a skip rule whose gate or dependent
	// column is absent; no fill was applied for it.
	KindUnresolvedSkipGate FindingKind = "unresolved_skip_gate"
	// KindUnmatchedStratum marks respondents whose strata combination is
	// absent from the population reference; their weight stays unset.
	KindUnmatchedStratum FindingKind = "unmatched_stratum"
	// KindMissingLabelPair marks a response column without a paired text
	// column, or a row whose paired cell is blank.
	KindMissingLabelPair FindingKind = "missing_label_pair"
	// KindStructuralInputError marks an enabled step that had to be
	// skipped for the whole run.
	KindStructuralInputError FindingKind = "structural_input_error"
)

// Finding is one reported condition.
type Finding struct {
	Kind    FindingKind
	Subject string // column, stratum or step the condition applies to
	Detail  string
}

// WeightSummary describes the weight distribution of one run.
type WeightSummary struct {
	Weighted  int
	Unmatched int
	Sum       float64
	Min       float64
	Max       float64
	Mean      float64
	Median    float64
	Rescaled  bool
}

// Report accumulates everything a run wants to tell the caller without
// aborting. Stages append findings; the caller decides whether quality is
// acceptable.
type Report struct {
	Findings     []Finding
	SkippedSteps []string
	Weights      *WeightSummary
}

// NewReport creates an empty run report
func NewReport() *Report {
	return &Report{}
}

// Add records one finding.
func (r *Report) Add(kind FindingKind, subject, detail string) {
	r.Findings = append(r.Findings, Finding{Kind: kind, Subject: subject, Detail: detail})
}

// Addf records one finding with a formatted detail.
func (r *Report) Addf(kind FindingKind, subject, format string, args ...interface{}) {
	r.Add(kind, subject, fmt.Sprintf(format, args...))
}

// SkipStep records a step skipped for the whole run and the structural
// finding explaining why.
func (r *Report) SkipStep(step, reason string) {
	r.SkippedSteps = append(r.SkippedSteps, step)
	r.Add(KindStructuralInputError, step, reason)
}

// Count returns the number of findings of one kind.
func (r *Report) Count(kind FindingKind) int {
	n := 0
	for _, f := range r.Findings {
		if f.Kind == kind {
			n++
		}
	}
	return n
}

// Examples returns up to max findings of one kind.
func (r *Report) Examples(kind FindingKind, max int) []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Kind == kind {
			out = append(out, f)
			if len(out) >= max {
				break
			}
		}
	}
	return out
}

// StepSkipped reports whether the named step was structurally skipped.
func (r *Report) StepSkipped(step string) bool {
	for _, s := range r.SkippedSteps {
		if s == step {
			return true
		}
	}
	return false
}

// kindOrder fixes the rendering order of the taxonomy.
var kindOrder = []FindingKind{
	KindStructuralInputError,
	KindSchemaAmbiguity,
	KindUnresolvedSkipGate,
	KindUnmatchedStratum,
	KindMissingLabelPair,
}

var kindTitles = map[FindingKind]string{
	KindSchemaAmbiguity:      "Schema ambiguities",
	KindUnresolvedSkipGate:   "Unresolved skip gates",
	KindUnmatchedStratum:     "Unmatched strata",
	KindMissingLabelPair:     "Missing label pairs",
	KindStructuralInputError: "Skipped steps",
}

// Markdown renders the report for the result page and the archive.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("# Processing Report\n\n")

	if len(r.Findings) == 0 {
		b.WriteString("No issues found.\n")
	}
	const maxExamples = 5
	for _, kind := range kindOrder {
		count := r.Count(kind)
		if count == 0 {
			continue
		}
		fmt.Fprintf(&b, "## %s (%d)\n\n", kindTitles[kind], count)
		for _, f := range r.Examples(kind, maxExamples) {
			fmt.Fprintf(&b, "- **%s**: %s\n", f.Subject, f.Detail)
		}
		if count > maxExamples {
			fmt.Fprintf(&b, "- … and %d more\n", count-maxExamples)
		}
		b.WriteString("\n")
	}

	if r.Weights != nil {
		w := r.Weights
		b.WriteString("## Weight summary\n\n")
		fmt.Fprintf(&b, "- Weighted respondents: %d\n", w.Weighted)
		fmt.Fprintf(&b, "- Unmatched respondents: %d\n", w.Unmatched)
		fmt.Fprintf(&b, "- Sum: %.6f (rescaled: %v)\n", w.Sum, w.Rescaled)
		fmt.Fprintf(&b, "- Min/Max: %.6f / %.6f\n", w.Min, w.Max)
		fmt.Fprintf(&b, "- Mean/Median: %.6f / %.6f\n", w.Mean, w.Median)
	}

	return b.String()
}
