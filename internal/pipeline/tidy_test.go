package pipeline

import (
	"strconv"
	"testing"

	"surveyprep/domain/survey"
	"surveyprep/domain/table"
)

func tidySchema() *survey.Schema {
	return &survey.Schema{
		IDColumn:  "id",
		Sets:      []survey.MRSet{{Name: "Q1", Members: []string{"Q1_1", "Q1_2"}}},
		Ungrouped: []string{"age"},
	}
}

// wideFixture builds 4 respondents with a 2-option MR set plus weight.
func wideFixture() *table.Table {
	indicators := [][2]string{{"1", "0"}, {"0", "1"}, {"1", "1"}, {"0", "0"}}
	tbl := table.New([]string{"id", "Q1_1", "Q1_2", "age", WeightColumn})
	for i, ind := range indicators {
		tbl.AppendRow(table.Row{
			"id":         "r" + strconv.Itoa(i+1),
			"Q1_1":       ind[0],
			"Q1_2":       ind[1],
			"age":        strconv.Itoa(20 + i),
			WeightColumn: "1.25",
		})
	}
	return tbl
}

func TestExportTidy_RowCountInvariant(t *testing.T) {
	out := ExportTidy(wideFixture(), tidySchema())

	long, ok := out.PerSet["Q1"]
	if !ok {
		t.Fatal("per-set table for Q1 missing")
	}
	// 4 respondents × 2 options.
	if long.NumRows() != 8 {
		t.Fatalf("long table has %d rows, want 8", long.NumRows())
	}

	perRespondent := make(map[string]int)
	for _, row := range long.Rows {
		perRespondent[row["id"]]++
	}
	for id, count := range perRespondent {
		if count != 2 {
			t.Errorf("respondent %s appears %d times, want 2", id, count)
		}
	}
}

func TestExportTidy_IndicatorsMatchWideRowForRow(t *testing.T) {
	wide := wideFixture()
	out := ExportTidy(wide, tidySchema())
	long := out.PerSet["Q1"]

	// Deterministic order: wide row order × declared option order.
	idx := 0
	for rowIdx := 0; rowIdx < wide.NumRows(); rowIdx++ {
		for _, member := range []string{"Q1_1", "Q1_2"} {
			row := long.Rows[idx]
			if row["id"] != wide.Get(rowIdx, "id") {
				t.Errorf("long row %d id = %q, want %q", idx, row["id"], wide.Get(rowIdx, "id"))
			}
			if row[TidyOptionColumn] != member {
				t.Errorf("long row %d option = %q, want %q", idx, row[TidyOptionColumn], member)
			}
			if row[TidyValueColumn] != wide.Get(rowIdx, member) {
				t.Errorf("long row %d value = %q, want wide cell %q", idx, row[TidyValueColumn], wide.Get(rowIdx, member))
			}
			idx++
		}
	}
}

func TestExportTidy_MasterSpansSetsAndSingles(t *testing.T) {
	out := ExportTidy(wideFixture(), tidySchema())

	// 8 MR rows + 4 single-response rows for "age".
	if out.Master.NumRows() != 12 {
		t.Fatalf("master has %d rows, want 12", out.Master.NumRows())
	}

	// Weight identical across all of a respondent's rows.
	weights := make(map[string]map[string]bool)
	for _, row := range out.Master.Rows {
		id := row["id"]
		if weights[id] == nil {
			weights[id] = make(map[string]bool)
		}
		weights[id][row[WeightColumn]] = true
	}
	for id, seen := range weights {
		if len(seen) != 1 {
			t.Errorf("respondent %s has inconsistent weights in master: %v", id, seen)
		}
	}

	// Single-response rows carry the column as both question and option.
	found := 0
	for _, row := range out.Master.Rows {
		if row[TidyQuestionColumn] == "age" {
			found++
			if row[TidyOptionColumn] != "age" {
				t.Errorf("single-response option = %q, want %q", row[TidyOptionColumn], "age")
			}
		}
	}
	if found != 4 {
		t.Errorf("master has %d age rows, want 4", found)
	}
}

func TestExportTidy_PositionalIdentityWithoutIDColumn(t *testing.T) {
	schema := &survey.Schema{
		Sets: []survey.MRSet{{Name: "Q1", Members: []string{"Q1_1", "Q1_2"}}},
	}
	tbl := rawTable([]string{"Q1_1", "Q1_2"},
		table.Row{"Q1_1": "1", "Q1_2": "0"},
		table.Row{"Q1_1": "0", "Q1_2": "1"})

	out := ExportTidy(tbl, schema)
	long := out.PerSet["Q1"]

	if got := long.Rows[0]["row"]; got != "1" {
		t.Errorf("first respondent positional id = %q, want %q", got, "1")
	}
	if got := long.Rows[2]["row"]; got != "2" {
		t.Errorf("second respondent positional id = %q, want %q", got, "2")
	}
}

func TestExportTidy_Deterministic(t *testing.T) {
	wide := wideFixture()
	schema := tidySchema()

	a := ExportTidy(wide, schema)
	b := ExportTidy(wide, schema)

	if a.Master.NumRows() != b.Master.NumRows() {
		t.Fatal("master row count differs between identical runs")
	}
	for i := range a.Master.Rows {
		for _, col := range a.Master.Columns {
			if a.Master.Rows[i][col] != b.Master.Rows[i][col] {
				t.Fatalf("row %d column %s differs between identical runs", i, col)
			}
		}
	}
}
