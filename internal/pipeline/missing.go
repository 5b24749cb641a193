package pipeline

import (
	"log"
	"strconv"
	"strings"

	"surveyprep/domain/survey"
	"surveyprep/domain/table"
)

// HandleMissing binarizes MR member columns and fills structurally skipped
// cells with the skip sentinel. The input table is never mutated; the stage
// is idempotent on its own output.
func HandleMissing(t *table.Table, schema *survey.Schema, sentinel string) *table.Table {
	out := t.Clone()

	// MR binarization first so a skip sentinel can override a computed 0/1.
	binarized := 0
	for _, set := range schema.Sets {
		for _, member := range set.Members {
			for i := range out.Rows {
				v := out.Get(i, member)
				if v == sentinel {
					continue
				}
				out.Set(i, member, binarize(v))
			}
			binarized++
		}
	}

	// Skip fill: sentinel iff the gate value is outside the satisfying set.
	// Rules may chain (one rule's dependent gating another), so the fill
	// iterates to a fixpoint: a gate that becomes the sentinel cascades to
	// its dependents no matter the declaration order. Cells only ever move
	// toward the sentinel, so the loop terminates.
	filled := 0
	for changed := true; changed; {
		changed = false
		for _, rule := range schema.Skips {
			for i := range out.Rows {
				if rule.Satisfied(out.Get(i, rule.Gate)) {
					continue
				}
				if out.Get(i, rule.Dependent) != sentinel {
					out.Set(i, rule.Dependent, sentinel)
					filled++
					changed = true
				}
			}
		}
	}

	log.Printf("[MissingValues] binarized %d MR columns, sentinel-filled %d cells", binarized, filled)
	return out
}

// binarize maps a raw MR cell to its 0/1 indicator: any non-empty, non-zero
// value counts as selected.
func binarize(value string) string {
	v := strings.TrimSpace(value)
	if v == "" {
		return "0"
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil && f == 0 {
		return "0"
	}
	return "1"
}
