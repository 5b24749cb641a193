package pipeline

import (
	"testing"

	"surveyprep/domain/survey"
	"surveyprep/domain/table"
)

func TestEncodeLabels_PerRowSubstitution(t *testing.T) {
	schema := &survey.Schema{
		IDColumn:  "id",
		Pairs:     []survey.LabelPair{{CodeColumn: "region", TextColumn: "region(TEXT)"}},
		Ungrouped: []string{"region"},
	}
	// Same code, different per-row label text: each row copies its own
	// paired cell, never another row's.
	tbl := rawTable([]string{"id", "region", "region(TEXT)"},
		table.Row{"id": "A", "region": "1", "region(TEXT)": "Seoul"},
		table.Row{"id": "B", "region": "1", "region(TEXT)": "서울"},
		table.Row{"id": "C", "region": "2", "region(TEXT)": "Busan"})

	out, renames := EncodeLabels(tbl, schema, DefaultOptions(), NewReport())

	want := []string{"Seoul", "서울", "Busan"}
	for i, w := range want {
		if got := out.Get(i, "region"); got != w {
			t.Errorf("row %d region = %q, want %q", i, got, w)
		}
	}
	if len(renames) != 0 {
		t.Errorf("single-response substitution should not rename columns: %v", renames)
	}
	if out.HasColumn("region(TEXT)") {
		t.Error("text column should be dropped by default")
	}
	// Input untouched.
	if got := tbl.Get(0, "region"); got != "1" {
		t.Errorf("input mutated: region = %q", got)
	}
}

func TestEncodeLabels_BlankPairedCellKeepsCode(t *testing.T) {
	schema := &survey.Schema{
		IDColumn:  "id",
		Pairs:     []survey.LabelPair{{CodeColumn: "region", TextColumn: "region(TEXT)"}},
		Ungrouped: []string{"region"},
	}
	tbl := rawTable([]string{"id", "region", "region(TEXT)"},
		table.Row{"id": "A", "region": "3", "region(TEXT)": ""})
	report := NewReport()

	out, _ := EncodeLabels(tbl, schema, DefaultOptions(), report)

	if got := out.Get(0, "region"); got != "3" {
		t.Errorf("region = %q, want numeric code retained", got)
	}
	if report.Count(KindMissingLabelPair) != 1 {
		t.Errorf("missing label findings = %d, want 1", report.Count(KindMissingLabelPair))
	}
}

func TestEncodeLabels_SentinelCellLeftAlone(t *testing.T) {
	opts := DefaultOptions()
	schema := &survey.Schema{
		IDColumn:  "id",
		Pairs:     []survey.LabelPair{{CodeColumn: "Q2", TextColumn: "Q2(TEXT)"}},
		Ungrouped: []string{"Q2"},
	}
	tbl := rawTable([]string{"id", "Q2", "Q2(TEXT)"},
		table.Row{"id": "A", "Q2": opts.SkipSentinel, "Q2(TEXT)": "stale label"})

	out, _ := EncodeLabels(tbl, schema, opts, NewReport())

	if got := out.Get(0, "Q2"); got != opts.SkipSentinel {
		t.Errorf("Q2 = %q, want sentinel preserved", got)
	}
}

func TestEncodeLabels_MRMemberRenamedToOptionLabel(t *testing.T) {
	schema := &survey.Schema{
		IDColumn: "id",
		Sets:     []survey.MRSet{{Name: "Q1", Members: []string{"Q1_1", "Q1_2"}}},
		Pairs: []survey.LabelPair{
			{CodeColumn: "Q1_1", TextColumn: "Q1_1(TEXT)"},
			{CodeColumn: "Q1_2", TextColumn: "Q1_2(TEXT)"},
		},
	}
	tbl := rawTable([]string{"id", "Q1_1", "Q1_1(TEXT)", "Q1_2", "Q1_2(TEXT)"},
		table.Row{"id": "A", "Q1_1": "1", "Q1_1(TEXT)": "Coffee", "Q1_2": "0", "Q1_2(TEXT)": ""},
		table.Row{"id": "B", "Q1_1": "0", "Q1_1(TEXT)": "", "Q1_2": "1", "Q1_2(TEXT)": "Tea"})

	out, renames := EncodeLabels(tbl, schema, DefaultOptions(), NewReport())

	if got := renames["Q1_1"]; got != "Coffee" {
		t.Errorf("Q1_1 renamed to %q, want %q", got, "Coffee")
	}
	if got := renames["Q1_2"]; got != "Tea" {
		t.Errorf("Q1_2 renamed to %q, want %q", got, "Tea")
	}
	// Indicator values survive the rename untouched.
	if got := out.Get(0, "Coffee"); got != "1" {
		t.Errorf("Coffee[A] = %q, want 1", got)
	}
	if got := out.Get(1, "Tea"); got != "1" {
		t.Errorf("Tea[B] = %q, want 1", got)
	}
}

func TestEncodeLabels_DuplicateOptionLabelsDeduped(t *testing.T) {
	schema := &survey.Schema{
		IDColumn: "id",
		Sets:     []survey.MRSet{{Name: "Q1", Members: []string{"Q1_1", "Q1_2"}}},
		Pairs: []survey.LabelPair{
			{CodeColumn: "Q1_1", TextColumn: "Q1_1(TEXT)"},
			{CodeColumn: "Q1_2", TextColumn: "Q1_2(TEXT)"},
		},
	}
	tbl := rawTable([]string{"id", "Q1_1", "Q1_1(TEXT)", "Q1_2", "Q1_2(TEXT)"},
		table.Row{"id": "A", "Q1_1": "1", "Q1_1(TEXT)": "Other", "Q1_2": "1", "Q1_2(TEXT)": "Other"})

	out, renames := EncodeLabels(tbl, schema, DefaultOptions(), NewReport())

	if renames["Q1_1"] == renames["Q1_2"] {
		t.Fatalf("duplicate labels not deduped: %v", renames)
	}
	if !out.HasColumn("Other") || !out.HasColumn("Other_1") {
		t.Errorf("expected Other and Other_1 columns, got %v", out.Columns)
	}
}

func TestEncodeLabels_UnpairedColumnReportedAndUntouched(t *testing.T) {
	schema := &survey.Schema{
		IDColumn:  "id",
		Ungrouped: []string{"age"},
	}
	tbl := rawTable([]string{"id", "age"}, table.Row{"id": "A", "age": "31"})
	report := NewReport()

	out, _ := EncodeLabels(tbl, schema, DefaultOptions(), report)

	if got := out.Get(0, "age"); got != "31" {
		t.Errorf("unpaired column modified: age = %q", got)
	}
	if report.Count(KindMissingLabelPair) != 1 {
		t.Errorf("unpaired column should be reported as skipped, findings = %d", report.Count(KindMissingLabelPair))
	}
}
