package pipeline

import (
	"log"
	"strconv"

	"surveyprep/domain/survey"
	"surveyprep/domain/table"
)

// Long-table column names shared by every tidy output.
const (
	TidyQuestionColumn = "question"
	TidyOptionColumn   = "option"
	TidyValueColumn    = "value"
)

// positionalIDColumn names respondent identity in tidy outputs when the
// wide table has no usable ID column; values are 1-based row positions.
const positionalIDColumn = "row"

// TidyOutput bundles the per-set long tables and the master long table.
// SetOrder preserves the schema's set order for deterministic packaging.
type TidyOutput struct {
	PerSet   map[string]*table.Table
	SetOrder []string
	Master   *table.Table
}

// ExportTidy reshapes the processed wide table into one long table per MR
// set plus a master long table spanning all sets and the ungrouped
// single-response columns.
//
// Invariants: a per-set table has exactly respondents × members rows; no
// respondent or option is dropped or duplicated; a respondent's ID and
// weight are identical on every one of its long rows; row order is wide
// row order × declared option order.
func ExportTidy(t *table.Table, schema *survey.Schema) *TidyOutput {
	idColumn := schema.IDColumn
	if idColumn == "" || !t.HasColumn(idColumn) {
		idColumn = positionalIDColumn
	}
	hasWeight := t.HasColumn(WeightColumn)

	longColumns := []string{idColumn, TidyQuestionColumn, TidyOptionColumn, TidyValueColumn}
	if hasWeight {
		longColumns = append(longColumns, WeightColumn)
	}

	respondentID := func(rowIdx int) string {
		if idColumn == positionalIDColumn {
			return strconv.Itoa(rowIdx + 1)
		}
		return t.Get(rowIdx, idColumn)
	}

	longRow := func(rowIdx int, question, option string) table.Row {
		row := table.Row{
			idColumn:           respondentID(rowIdx),
			TidyQuestionColumn: question,
			TidyOptionColumn:   option,
			TidyValueColumn:    t.Get(rowIdx, option),
		}
		if hasWeight {
			row[WeightColumn] = t.Get(rowIdx, WeightColumn)
		}
		return row
	}

	out := &TidyOutput{
		PerSet: make(map[string]*table.Table, len(schema.Sets)),
		Master: table.New(longColumns),
	}

	for _, set := range schema.Sets {
		long := table.New(longColumns)
		for rowIdx := range t.Rows {
			for _, member := range set.Members {
				long.AppendRow(longRow(rowIdx, set.Name, member))
				out.Master.AppendRow(longRow(rowIdx, set.Name, member))
			}
		}
		out.PerSet[set.Name] = long
		out.SetOrder = append(out.SetOrder, set.Name)
	}

	// Ungrouped single-response columns reshape analogously: the question
	// and the option are the column itself.
	for _, col := range schema.Ungrouped {
		if !t.HasColumn(col) || col == idColumn || col == WeightColumn {
			continue
		}
		for rowIdx := range t.Rows {
			out.Master.AppendRow(longRow(rowIdx, col, col))
		}
	}

	log.Printf("[Tidy] exported %d per-set tables, master table has %d rows",
		len(out.PerSet), out.Master.NumRows())
	return out
}
