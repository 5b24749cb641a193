package ui

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"surveyprep/domain/core"
	"surveyprep/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: "0"},
		Pipeline: config.PipelineConfig{
			RunMissingValueHandling: true,
			MRPattern:               config.DefaultMRPattern,
			LabelSuffix:             config.DefaultLabelSuffix,
			SkipSentinel:            config.DefaultSkipSentinel,
			DropTextCols:            true,
		},
		Weighting: config.WeightingConfig{ShareColumn: config.DefaultShareColumn},
	}
}

func uploadRequest(t *testing.T, fields map[string]string, files map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			t.Fatalf("failed to write form field: %v", err)
		}
	}
	for field, content := range files {
		part, err := writer.CreateFormFile(field, field+".csv")
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		if _, err := io.Copy(part, strings.NewReader(content)); err != nil {
			t.Fatalf("failed to write form file: %v", err)
		}
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/process", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestServer_ProcessAndDownload(t *testing.T) {
	server, err := NewServer(testConfig(), nil)
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}

	req := uploadRequest(t,
		map[string]string{"run_missing": "on", "run_tidy": "on"},
		map[string]string{"raw_file": "id,Q1_1,Q1_2\nA,1,\nB,,2\n"})
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("process status = %d, body: %s", rec.Code, rec.Body.String())
	}
	location := rec.Header().Get("Location")
	if !strings.HasPrefix(location, "/runs/") {
		t.Fatalf("unexpected redirect target %q", location)
	}

	// Result page renders.
	rec = httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, location, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("result page status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Processing Report") {
		t.Error("result page missing rendered report")
	}

	// Archive downloads.
	rec = httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, location+"/download", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("download status = %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/zip" {
		t.Errorf("download content type = %q", got)
	}
	if rec.Body.Len() == 0 {
		t.Error("empty archive")
	}
}

func TestServer_MissingRawFileRejected(t *testing.T) {
	server, err := NewServer(testConfig(), nil)
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}

	req := uploadRequest(t, map[string]string{"run_missing": "on"}, nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestServer_StoreEvictsOldestRun(t *testing.T) {
	server, err := NewServer(testConfig(), nil)
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}

	base := time.Now()
	for i := 0; i <= maxStoredRuns; i++ {
		id := core.RunID("run-" + strconv.Itoa(i))
		server.storeRun(id, &storedRun{createdAt: base.Add(time.Duration(i) * time.Second)})
	}

	server.mu.RLock()
	defer server.mu.RUnlock()
	if len(server.runs) != maxStoredRuns {
		t.Fatalf("stored runs = %d, want cap %d", len(server.runs), maxStoredRuns)
	}
	if _, ok := server.runs[core.RunID("run-0")]; ok {
		t.Error("oldest run should have been evicted")
	}
	if _, ok := server.runs[core.RunID("run-"+strconv.Itoa(maxStoredRuns))]; !ok {
		t.Error("newest run missing from store")
	}
}

func TestServer_UnknownRunIs404(t *testing.T) {
	server, err := NewServer(testConfig(), nil)
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
