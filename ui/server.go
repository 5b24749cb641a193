// Package ui serves the upload/download surface around the processing
// pipeline: a form to submit a raw survey file and step toggles, a result
// page with the run report, and the output archive download.
package ui

import (
	"fmt"
	"html/template"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"surveyprep/adapters/excel"
	"surveyprep/domain/core"
	"surveyprep/domain/run"
	"surveyprep/domain/table"
	"surveyprep/internal/config"
	"surveyprep/internal/pipeline"
	"surveyprep/ports"
)

// maxUploadBytes caps one multipart submission (raw + population file).
const maxUploadBytes = 50 << 20

// maxStoredRuns caps the in-memory result store; the oldest run is evicted
// once the cap is reached.
const maxStoredRuns = 20

// storedRun keeps one finished run in memory until the server restarts.
type storedRun struct {
	result    *pipeline.RunResult
	filename  string
	archive   []byte
	createdAt time.Time
}

// Server hosts the web UI around the pipeline.
type Server struct {
	router    *chi.Mux
	cfg       *config.Config
	templates *template.Template
	history   ports.RunRepository // nil when persistence is disabled

	mu   sync.RWMutex
	runs map[core.RunID]*storedRun
}

// NewServer creates the web server. history may be nil.
func NewServer(cfg *config.Config, history ports.RunRepository) (*Server, error) {
	templates, err := template.New("").Parse(indexTemplate + resultTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	s := &Server{
		router:    chi.NewRouter(),
		cfg:       cfg,
		templates: templates,
		history:   history,
		runs:      make(map[core.RunID]*storedRun),
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/", s.handleIndex)
	s.router.Post("/process", s.handleProcess)
	s.router.Get("/runs/{id}", s.handleRunResult)
	s.router.Get("/runs/{id}/download", s.handleDownload)
	s.router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
}

// Start runs the HTTP server until it fails.
func (s *Server) Start() error {
	addr := ":" + s.cfg.Server.Port
	log.Printf("[Server] listening on %s", addr)
	return http.ListenAndServe(addr, s.router)
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := indexData{
		Defaults: pipeline.FromConfig(s.cfg),
		Strata:   joinList(s.cfg.Weighting.StrataColumns),
	}
	if err := s.templates.ExecuteTemplate(w, "index", data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// handleProcess runs the pipeline over one uploaded file and stores the
// result bundle for the report and download pages.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "failed to parse upload: "+err.Error(), http.StatusBadRequest)
		return
	}

	rawFile, rawHeader, err := r.FormFile("raw_file")
	if err != nil {
		http.Error(w, "raw survey file is required", http.StatusBadRequest)
		return
	}
	defer rawFile.Close()

	raw, err := excel.ReadFrom(rawFile, rawHeader.Filename)
	if err != nil {
		http.Error(w, "failed to read survey file: "+err.Error(), http.StatusBadRequest)
		return
	}

	opts := s.optionsFromForm(r)

	var population *table.Table
	if popFile, popHeader, err := r.FormFile("population_file"); err == nil {
		defer popFile.Close()
		population, err = excel.ReadFrom(popFile, popHeader.Filename)
		if err != nil {
			http.Error(w, "failed to read population file: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	p, err := pipeline.New(opts)
	if err != nil {
		http.Error(w, "invalid processing options: "+err.Error(), http.StatusBadRequest)
		return
	}

	result, err := p.Run(r.Context(), pipeline.RunInput{Raw: raw, Population: population})
	if err != nil {
		http.Error(w, "processing failed: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}

	archive, err := excel.BuildArchive(result)
	if err != nil {
		http.Error(w, "failed to package outputs: "+err.Error(), http.StatusInternalServerError)
		return
	}

	s.storeRun(result.RunID, &storedRun{
		result:    result,
		filename:  rawHeader.Filename,
		archive:   archive,
		createdAt: time.Now(),
	})

	s.saveHistory(r, rawHeader.Filename, raw, result, opts)

	http.Redirect(w, r, "/runs/"+result.RunID.String(), http.StatusSeeOther)
}

// saveHistory records the run if a repository is configured. History is
// best-effort: a storage failure never fails the request.
func (s *Server) saveHistory(r *http.Request, filename string, raw *table.Table, result *pipeline.RunResult, opts pipeline.Options) {
	if s.history == nil {
		return
	}

	counts := make(map[string]int)
	for _, f := range result.Report.Findings {
		counts[string(f.Kind)]++
	}
	var steps []string
	for _, step := range []struct {
		name    string
		enabled bool
	}{
		{pipeline.StepMissingValues, opts.RunMissingValueHandling},
		{pipeline.StepWeights, opts.RunWeightCalculation},
		{pipeline.StepLabels, opts.RunLabelEncoding},
		{pipeline.StepTidy, opts.RunTidyExport},
	} {
		if step.enabled && !result.Report.StepSkipped(step.name) {
			steps = append(steps, step.name)
		}
	}

	record := &run.Record{
		ID:            result.RunID,
		Filename:      filename,
		RowCount:      raw.NumRows(),
		ColumnCount:   len(raw.Columns),
		MRSetCount:    len(result.Schema.Sets),
		StepsRun:      steps,
		SkippedSteps:  result.Report.SkippedSteps,
		FindingCounts: counts,
		CreatedAt:     time.Now(),
	}
	if err := s.history.Save(r.Context(), record); err != nil {
		log.Printf("[Server] failed to save run history for %s: %v", result.RunID, err)
	}
}

func (s *Server) handleRunResult(w http.ResponseWriter, r *http.Request) {
	stored, ok := s.lookupRun(chi.URLParam(r, "id"))
	if !ok {
		http.NotFound(w, r)
		return
	}

	result := stored.result
	data := resultData{
		RunID:      result.RunID.String(),
		Filename:   stored.filename,
		Rows:       result.Wide.NumRows(),
		Columns:    len(result.Wide.Columns),
		SetCount:   len(result.Schema.Sets),
		Findings:   len(result.Report.Findings),
		ReportHTML: renderMarkdown(result.Report.Markdown()),
	}
	if err := s.templates.ExecuteTemplate(w, "result", data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	stored, ok := s.lookupRun(chi.URLParam(r, "id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="processed_outputs.zip"`)
	w.Write(stored.archive)
}

// storeRun keeps a finished run for the result/download pages, evicting
// the oldest stored run past maxStoredRuns.
func (s *Server) storeRun(id core.RunID, stored *storedRun) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[id] = stored
	for len(s.runs) > maxStoredRuns {
		var oldestID core.RunID
		var oldestAt time.Time
		for runID, r := range s.runs {
			if oldestID == "" || r.createdAt.Before(oldestAt) {
				oldestID = runID
				oldestAt = r.createdAt
			}
		}
		delete(s.runs, oldestID)
	}
}

func (s *Server) lookupRun(id string) (*storedRun, bool) {
	runID, err := core.ParseRunID(id)
	if err != nil {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.runs[runID]
	return stored, ok
}

// optionsFromForm merges the submitted step toggles and conventions over
// the configured defaults.
func (s *Server) optionsFromForm(r *http.Request) pipeline.Options {
	opts := pipeline.FromConfig(s.cfg)

	opts.RunMissingValueHandling = r.FormValue("run_missing") != ""
	opts.RunWeightCalculation = r.FormValue("run_weights") != ""
	opts.RunLabelEncoding = r.FormValue("run_labels") != ""
	opts.RunTidyExport = r.FormValue("run_tidy") != ""
	opts.Rescale = r.FormValue("rescale") != ""

	if v := r.FormValue("id_column"); v != "" {
		opts.IDColumn = v
	}
	if v := r.FormValue("skip_rules"); v != "" {
		opts.SkipRules = v
	}
	if v := r.FormValue("strata"); v != "" {
		opts.StrataColumns = splitList(v)
	}
	if v := r.FormValue("share_column"); v != "" {
		opts.ShareColumn = v
	}
	return opts
}

// renderMarkdown converts the run report to HTML for the result page.
func renderMarkdown(src string) template.HTML {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: mdhtml.CommonFlags})
	return template.HTML(markdown.ToHTML([]byte(src), p, renderer))
}
