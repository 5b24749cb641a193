package excel

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"fmt"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"

	"surveyprep/domain/table"
	"surveyprep/internal/pipeline"
)

// utf8BOM is prepended to CSV outputs so spreadsheet software detects the
// encoding (the tidy files routinely carry non-ASCII labels).
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteWideXLSX renders a table as a single-sheet xlsx file.
func WriteWideXLSX(t *table.Table) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	header := make([]interface{}, len(t.Columns))
	for i, col := range t.Columns {
		header[i] = col
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header row: %w", err)
	}
	for i, row := range t.Rows {
		cells := make([]interface{}, len(t.Columns))
		for j, col := range t.Columns {
			cells[j] = row[col]
		}
		cellRef, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cellRef, &cells); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteCSV renders a table as UTF-8 CSV with a BOM.
func WriteCSV(t *table.Table) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(utf8BOM)

	w := csv.NewWriter(&buf)
	if err := w.Write(t.Columns); err != nil {
		return nil, err
	}
	record := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for j, col := range t.Columns {
			record[j] = row[col]
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildArchive packages one run's outputs into a zip: the processed wide
// table as xlsx, one tidy CSV per MR set, the master tidy CSV and the
// processing report.
func BuildArchive(result *pipeline.RunResult) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	addFile := func(name string, data []byte) error {
		entry, err := zw.Create(name)
		if err != nil {
			return err
		}
		_, err = entry.Write(data)
		return err
	}

	wide, err := WriteWideXLSX(result.Wide)
	if err != nil {
		return nil, fmt.Errorf("failed to render processed table: %w", err)
	}
	if err := addFile("processed.xlsx", wide); err != nil {
		return nil, err
	}

	if result.Tidy != nil {
		for _, name := range result.Tidy.SetOrder {
			data, err := WriteCSV(result.Tidy.PerSet[name])
			if err != nil {
				return nil, fmt.Errorf("failed to render tidy table for %s: %w", name, err)
			}
			if err := addFile(SafeFilename(name)+"_tidy.csv", data); err != nil {
				return nil, err
			}
		}
		master, err := WriteCSV(result.Tidy.Master)
		if err != nil {
			return nil, fmt.Errorf("failed to render master tidy table: %w", err)
		}
		if err := addFile("master_tidy.csv", master); err != nil {
			return nil, err
		}
	}

	if err := addFile("report.md", []byte(result.Report.Markdown())); err != nil {
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var unsafeFilenameChars = regexp.MustCompile(`[^0-9A-Za-z가-힣._-]+`)

// SafeFilename maps a set name to something every OS accepts as a filename.
func SafeFilename(name string) string {
	cleaned := unsafeFilenameChars.ReplaceAllString(name, "_")
	cleaned = strings.Trim(cleaned, "_")
	if cleaned == "" {
		return "set"
	}
	return cleaned
}
