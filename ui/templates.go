package ui

import (
	"html/template"
	"strings"

	"surveyprep/internal/pipeline"
)

// indexData feeds the upload form with the configured defaults.
type indexData struct {
	Defaults pipeline.Options
	Strata   string
}

// resultData feeds the run result page.
type resultData struct {
	RunID      string
	Filename   string
	Rows       int
	Columns    int
	SetCount   int
	Findings   int
	ReportHTML template.HTML
}

const indexTemplate = `{{define "index"}}<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>Survey Pre-processing Toolkit</title>
  <style>
    body { font-family: sans-serif; max-width: 46rem; margin: 2rem auto; padding: 0 1rem; }
    fieldset { margin-bottom: 1rem; }
    label { display: block; margin: 0.4rem 0; }
    input[type=text] { width: 24rem; }
  </style>
</head>
<body>
  <h1>Survey Pre-processing Toolkit</h1>
  <form method="post" action="/process" enctype="multipart/form-data">
    <fieldset>
      <legend>Files</legend>
      <label>Raw survey file (xlsx/csv) <input type="file" name="raw_file" accept=".xlsx,.xls,.csv" required></label>
      <label>Population reference (for weights) <input type="file" name="population_file" accept=".xlsx,.xls,.csv"></label>
    </fieldset>
    <fieldset>
      <legend>Steps</legend>
      <label><input type="checkbox" name="run_missing" {{if .Defaults.RunMissingValueHandling}}checked{{end}}> Missing-value handling</label>
      <label><input type="checkbox" name="run_weights" {{if .Defaults.RunWeightCalculation}}checked{{end}}> Weight calculation</label>
      <label><input type="checkbox" name="run_labels" {{if .Defaults.RunLabelEncoding}}checked{{end}}> Label encoding</label>
      <label><input type="checkbox" name="run_tidy" {{if .Defaults.RunTidyExport}}checked{{end}}> Tidy (long) export</label>
    </fieldset>
    <fieldset>
      <legend>Options</legend>
      <label>Respondent ID column <input type="text" name="id_column" value="{{.Defaults.IDColumn}}" placeholder="auto-detect"></label>
      <label>Strata columns (comma-separated) <input type="text" name="strata" value="{{.Strata}}"></label>
      <label>Population share column <input type="text" name="share_column" value="{{.Defaults.ShareColumn}}"></label>
      <label><input type="checkbox" name="rescale" {{if .Defaults.Rescale}}checked{{end}}> Rescale weights to sample size</label>
      <label>Skip rules <input type="text" name="skip_rules" value="{{.Defaults.SkipRules}}" placeholder="Q2<=Q1_1{1};Q3<=Q2{1,2}"></label>
    </fieldset>
    <button type="submit">Run Processing</button>
  </form>
</body>
</html>{{end}}`

const resultTemplate = `{{define "result"}}<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>Run {{.RunID}}</title>
  <style>
    body { font-family: sans-serif; max-width: 46rem; margin: 2rem auto; padding: 0 1rem; }
    .summary { background: #f4f4f4; padding: 1rem; border-radius: 4px; }
  </style>
</head>
<body>
  <h1>Processing complete</h1>
  <div class="summary">
    <p><strong>{{.Filename}}</strong> — {{.Rows}} rows, {{.Columns}} columns, {{.SetCount}} MR set(s), {{.Findings}} finding(s)</p>
    <p><a href="/runs/{{.RunID}}/download">Download outputs (zip)</a> · <a href="/">New run</a></p>
  </div>
  {{.ReportHTML}}
</body>
</html>{{end}}`

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func joinList(values []string) string {
	return strings.Join(values, ", ")
}
