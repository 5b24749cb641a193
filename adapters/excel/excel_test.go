package excel

import (
	"archive/zip"
	"bytes"
	"log"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surveyprep/domain/survey"
	"surveyprep/domain/table"
	"surveyprep/internal/pipeline"
)

func TestReadFrom_CSV(t *testing.T) {
	input := "id,Q1_1,Q1_2\r\nA,1,\r\nB,,2\r\n"

	tbl, err := ReadFrom(strings.NewReader(input), "survey.csv")
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "Q1_1", "Q1_2"}, tbl.Columns)
	require.Equal(t, 2, tbl.NumRows())
	assert.Equal(t, "1", tbl.Get(0, "Q1_1"))
	assert.Equal(t, "", tbl.Get(0, "Q1_2"))
	assert.Equal(t, "2", tbl.Get(1, "Q1_2"))
}

func TestReadFrom_CSVWithBOM(t *testing.T) {
	input := "\xEF\xBB\xBFid,age\nA,30\n"

	tbl, err := ReadFrom(strings.NewReader(input), "survey.csv")
	require.NoError(t, err)
	assert.Equal(t, "id", tbl.Columns[0], "BOM must not leak into the first header")
}

func TestReadFrom_HeaderOnlyRejected(t *testing.T) {
	_, err := ReadFrom(strings.NewReader("id,age\n"), "survey.csv")
	assert.Error(t, err)
}

func TestReadFrom_RaggedRowLogged(t *testing.T) {
	var logged bytes.Buffer
	log.SetOutput(&logged)
	defer log.SetOutput(os.Stderr)

	input := "id,age\nA,30,stray\nB,41\n"
	tbl, err := ReadFrom(strings.NewReader(input), "survey.csv")
	require.NoError(t, err)

	require.Equal(t, 2, tbl.NumRows())
	assert.Equal(t, "30", tbl.Get(0, "age"))
	assert.Contains(t, logged.String(), "1 row(s) carry cells beyond")
}

func TestWriteCSV_RoundTrip(t *testing.T) {
	tbl := table.New([]string{"id", "value"})
	tbl.AppendRow(table.Row{"id": "A", "value": "서울, 강남"})

	data, err := WriteCSV(tbl)
	require.NoError(t, err)

	parsed, err := ReadFrom(bytes.NewReader(data), "out.csv")
	require.NoError(t, err)
	assert.Equal(t, "서울, 강남", parsed.Get(0, "value"))
}

func TestWriteWideXLSX_ReadsBack(t *testing.T) {
	tbl := table.New([]string{"id", "weight"})
	tbl.AppendRow(table.Row{"id": "A", "weight": "1.25"})
	tbl.AppendRow(table.Row{"id": "B", "weight": ""})

	data, err := WriteWideXLSX(tbl)
	require.NoError(t, err)

	parsed, err := ReadFrom(bytes.NewReader(data), "out.xlsx")
	require.NoError(t, err)
	require.Equal(t, 2, parsed.NumRows())
	assert.Equal(t, "1.25", parsed.Get(0, "weight"))
}

func TestBuildArchive_Contents(t *testing.T) {
	wide := table.New([]string{"id", "Q1_1", "Q1_2"})
	wide.AppendRow(table.Row{"id": "A", "Q1_1": "1", "Q1_2": "0"})
	schema := &survey.Schema{
		IDColumn: "id",
		Sets:     []survey.MRSet{{Name: "Q1", Members: []string{"Q1_1", "Q1_2"}}},
	}
	result := &pipeline.RunResult{
		Schema: schema,
		Wide:   wide,
		Tidy:   pipeline.ExportTidy(wide, schema),
		Report: pipeline.NewReport(),
	}

	data, err := BuildArchive(result)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range zr.File {
		names[f.Name] = true
	}
	for _, want := range []string{"processed.xlsx", "Q1_tidy.csv", "master_tidy.csv", "report.md"} {
		assert.True(t, names[want], "archive missing %s", want)
	}
}

func TestSafeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Q1", "Q1"},
		{"취미/여가", "취미_여가"},
		{"a b:c", "a_b_c"},
		{"///", "set"},
	}
	for _, tt := range tests {
		if got := SafeFilename(tt.in); got != tt.want {
			t.Errorf("SafeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
