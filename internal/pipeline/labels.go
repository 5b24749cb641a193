package pipeline

import (
	"fmt"
	"log"

	"surveyprep/domain/survey"
	"surveyprep/domain/table"
)

// EncodeLabels substitutes numeric response codes with the text drawn from
// each column's paired label column, per row and without any external
// code→label dictionary. MR member columns are handled differently: their
// values are already 0/1/sentinel indicators, so the column itself is
// renamed to its option label instead.
//
// The returned rename map lets the caller derive an updated schema for the
// tidy stage; the input schema value is not touched.
func EncodeLabels(t *table.Table, schema *survey.Schema, opts Options, report *Report) (*table.Table, map[string]string) {
	out := t.Clone()
	renames := make(map[string]string)

	used := make(map[string]bool, len(out.Columns))
	for _, col := range out.Columns {
		used[col] = true
	}

	substituted := 0
	for _, pair := range schema.Pairs {
		if !out.HasColumn(pair.CodeColumn) || !out.HasColumn(pair.TextColumn) {
			continue
		}
		if schema.IsMRMember(pair.CodeColumn) {
			label := firstLabel(out, pair.TextColumn)
			if label == "" {
				report.Add(KindMissingLabelPair, pair.CodeColumn,
					"paired text column holds no label; indicator column keeps its code name")
			} else {
				label = dedupe(label, used)
				out.RenameColumn(pair.CodeColumn, label)
				renames[pair.CodeColumn] = label
				used[label] = true
			}
		} else {
			blank := 0
			for i := range out.Rows {
				code := out.Get(i, pair.CodeColumn)
				if code == "" || code == opts.SkipSentinel {
					continue
				}
				text := out.Get(i, pair.TextColumn)
				if text == "" {
					blank++
					continue
				}
				out.Set(i, pair.CodeColumn, text)
				substituted++
			}
			if blank > 0 {
				report.Addf(KindMissingLabelPair, pair.CodeColumn,
					"%d row(s) have a blank paired cell; numeric code retained", blank)
			}
		}
		if opts.DropTextCols {
			out.DropColumn(pair.TextColumn)
		}
	}

	// Response columns with no detected pairing pass through unmodified.
	for _, col := range schema.Ungrouped {
		if _, ok := schema.PairFor(col); !ok {
			report.Add(KindMissingLabelPair, col, "no paired text column detected; column left unmodified")
		}
	}

	log.Printf("[Labels] substituted %d cells, renamed %d MR columns", substituted, len(renames))
	return out, renames
}

// firstLabel returns the first non-blank value of a text column, the label
// every row of that option shares in well-formed data.
func firstLabel(t *table.Table, column string) string {
	for i := range t.Rows {
		if v := t.Get(i, column); v != "" {
			return v
		}
	}
	return ""
}

// dedupe suffixes a candidate column name until it is unused.
func dedupe(name string, used map[string]bool) string {
	if !used[name] {
		return name
	}
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d", name, i)
		if !used[candidate] {
			return candidate
		}
	}
}
