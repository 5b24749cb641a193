package pipeline

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"

	"surveyprep/domain/table"
	"surveyprep/internal/errors"
)

// WeightColumn is the name of the attribute added by the weight stage.
const WeightColumn = "weight"

// strataKeySep joins strata values into a single map key. Unit separator,
// so stratifying values containing commas or spaces stay unambiguous.
const strataKeySep = "\x1f"

// CalculateWeights joins the table against the population reference on the
// stratifying key columns and appends a per-respondent sampling weight.
// Respondents whose stratum is absent from the reference keep an empty
// weight cell and are reported, never given a fabricated default.
//
// A structural error (missing strata columns, unusable reference) means the
// whole step cannot run; the caller keeps the unmodified table.
func CalculateWeights(t *table.Table, pop *table.Table, opts Options, report *Report) (*table.Table, error) {
	if pop == nil || pop.NumRows() == 0 {
		return nil, errors.StructuralInput("weight calculation enabled but no population reference supplied")
	}
	if len(opts.StrataColumns) == 0 {
		return nil, errors.StructuralInput("weight calculation enabled but no strata columns configured")
	}
	for _, col := range opts.StrataColumns {
		if !t.HasColumn(col) {
			return nil, errors.StructuralInput(fmt.Sprintf("strata column %q missing from survey table", col))
		}
		if !pop.HasColumn(col) {
			return nil, errors.StructuralInput(fmt.Sprintf("strata column %q missing from population reference", col))
		}
	}
	if !pop.HasColumn(opts.ShareColumn) {
		return nil, errors.StructuralInput(fmt.Sprintf("population share column %q missing from reference", opts.ShareColumn))
	}

	targets, err := targetShares(pop, opts)
	if err != nil {
		return nil, err
	}

	// Observed share per stratum across the whole sample.
	n := t.NumRows()
	observed := make(map[string]int)
	keys := make([]string, n)
	for i, row := range t.Rows {
		key := strataKey(row, opts.StrataColumns)
		keys[i] = key
		observed[key]++
	}

	out := t.Clone()
	out.AppendColumn(WeightColumn)

	weights := make([]float64, n)
	matched := make([]bool, n)
	unmatchedStrata := make(map[string]int)
	for i := range out.Rows {
		target, ok := targets[keys[i]]
		if !ok || target <= 0 {
			unmatchedStrata[keys[i]]++
			out.Set(i, WeightColumn, "")
			continue
		}
		observedShare := float64(observed[keys[i]]) / float64(n)
		weights[i] = target / observedShare
		matched[i] = true
	}

	for key, count := range unmatchedStrata {
		report.Addf(KindUnmatchedStratum, strataLabel(key),
			"%d respondent(s) in a stratum absent from the population reference; weight left unset", count)
	}

	// Rescale so weights sum to the matched respondent count. Unmatched
	// respondents are excluded from the denominator; their weight is unset
	// either way.
	matchedCount := 0
	var matchedWeights []float64
	for i, ok := range matched {
		if ok {
			matchedCount++
			matchedWeights = append(matchedWeights, weights[i])
		}
	}
	if opts.Rescale && matchedCount > 0 {
		factor := float64(matchedCount) / floats.Sum(matchedWeights)
		for i := range weights {
			if matched[i] {
				weights[i] *= factor
			}
		}
		matchedWeights = matchedWeights[:0]
		for i, ok := range matched {
			if ok {
				matchedWeights = append(matchedWeights, weights[i])
			}
		}
	}

	for i, ok := range matched {
		if ok {
			out.Set(i, WeightColumn, strconv.FormatFloat(weights[i], 'f', -1, 64))
		}
	}

	report.Weights = summarizeWeights(matchedWeights, n-matchedCount, opts.Rescale)
	log.Printf("[Weights] weighted %d of %d respondents across %d observed strata (rescale=%v)",
		matchedCount, n, len(observed), opts.Rescale)
	return out, nil
}

// countThreshold separates proportion references from count references:
// proportions sum to at most 1, so any column sum past it (with float
// slack) is raw counts.
const countThreshold = 1 + 1e-6

// targetShares reads the population reference into a stratum → proportion
// map. Proportions are read directly, so a partial reference keeps its
// listed targets; raw counts are detected by their column sum exceeding 1
// and normalized across the strata present. Duplicate stratum rows are
// summed.
func targetShares(pop *table.Table, opts Options) (map[string]float64, error) {
	shares := make(map[string]float64, pop.NumRows())
	values := make([]float64, 0, pop.NumRows())
	for i, row := range pop.Rows {
		raw := strings.TrimSpace(row[opts.ShareColumn])
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, errors.StructuralInput(
				fmt.Sprintf("population reference row %d has non-numeric %s value %q", i+1, opts.ShareColumn, raw))
		}
		if v < 0 {
			return nil, errors.StructuralInput(
				fmt.Sprintf("population reference row %d has negative %s value %q", i+1, opts.ShareColumn, raw))
		}
		shares[strataKey(row, opts.StrataColumns)] += v
		values = append(values, v)
	}
	total := floats.Sum(values)
	if total <= 0 {
		return nil, errors.StructuralInput("population reference shares sum to zero")
	}
	if total > countThreshold {
		for key := range shares {
			shares[key] /= total
		}
	}
	return shares, nil
}

// strataKey builds the stratum lookup key for one row.
func strataKey(row table.Row, strata []string) string {
	parts := make([]string, len(strata))
	for i, col := range strata {
		parts[i] = strings.TrimSpace(row[col])
	}
	return strings.Join(parts, strataKeySep)
}

// strataLabel renders a stratum key for human-readable reporting.
func strataLabel(key string) string {
	return strings.Join(strings.Split(key, strataKeySep), "/")
}

// summarizeWeights computes the report's weight distribution summary.
func summarizeWeights(weights []float64, unmatched int, rescaled bool) *WeightSummary {
	summary := &WeightSummary{
		Weighted:  len(weights),
		Unmatched: unmatched,
		Rescaled:  rescaled,
	}
	if len(weights) == 0 {
		return summary
	}
	summary.Sum = floats.Sum(weights)
	summary.Min, _ = stats.Min(weights)
	summary.Max, _ = stats.Max(weights)
	summary.Mean, _ = stats.Mean(weights)
	summary.Median, _ = stats.Median(weights)
	return summary
}
