// Package excel adapts spreadsheet and CSV files to the pipeline's table
// model, and packages run outputs into a downloadable archive.
package excel

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"surveyprep/domain/table"
)

// DataReader reads an Excel or CSV file from disk into a Table.
type DataReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
}

// NewDataReader creates a reader for the given path, picking the format
// from the file extension.
func NewDataReader(filePath string) *DataReader {
	fileType := "xlsx"
	if strings.ToLower(filepath.Ext(filePath)) == ".csv" {
		fileType = "csv"
	}
	return &DataReader{filePath: filePath, fileType: fileType}
}

// ReadTable reads the file into a wide table. Implements ports.TableSource.
func (r *DataReader) ReadTable() (*table.Table, error) {
	log.Printf("[DataReader] reading %s file: %s", r.fileType, r.filePath)

	f, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s file: %w", r.fileType, err)
	}
	defer f.Close()

	return ReadFrom(f, r.filePath)
}

// ReadFrom reads a table from a stream; the filename only selects the
// format. Used directly for uploads so no temp file is needed.
func ReadFrom(reader io.Reader, filename string) (*table.Table, error) {
	if strings.ToLower(filepath.Ext(filename)) == ".csv" {
		return readCSV(reader)
	}
	return readExcel(reader)
}

func readExcel(reader io.Reader) (*table.Table, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel data: %w", err)
	}
	defer f.Close()

	// First sheet, whatever its name.
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("Excel file has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return fromRows(rows)
}

func readCSV(reader io.Reader) (*table.Table, error) {
	csvReader := csv.NewReader(stripBOM(reader))
	csvReader.FieldsPerRecord = -1
	rows, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV data: %w", err)
	}
	return fromRows(rows)
}

// fromRows converts raw string rows into a Table, trimming cells and
// treating the first row as headers.
func fromRows(rows [][]string) (*table.Table, error) {
	if len(rows) < 2 {
		return nil, fmt.Errorf("input must have at least a header row and one data row")
	}

	headers := make([]string, len(rows[0]))
	for i, header := range rows[0] {
		headers[i] = strings.TrimSpace(header)
	}

	out := table.New(headers)
	ragged := 0
	for i := 1; i < len(rows); i++ {
		rowData := make(table.Row, len(headers))
		for j, cell := range rows[i] {
			if j < len(headers) {
				rowData[headers[j]] = strings.TrimSpace(cell)
			}
		}
		if len(rows[i]) > len(headers) {
			ragged++
		}
		out.AppendRow(rowData)
	}

	if ragged > 0 {
		log.Printf("[DataReader] %d row(s) carry cells beyond the %d header column(s); extra cells dropped", ragged, len(headers))
	}
	log.Printf("[DataReader] parsed %d columns, %d rows", len(headers), out.NumRows())
	return out, nil
}

// stripBOM drops a leading UTF-8 byte order mark so the first header cell
// comes out clean.
func stripBOM(reader io.Reader) io.Reader {
	buffered := make([]byte, 3)
	n, _ := io.ReadFull(reader, buffered)
	if n == 3 && buffered[0] == 0xEF && buffered[1] == 0xBB && buffered[2] == 0xBF {
		return reader
	}
	return io.MultiReader(strings.NewReader(string(buffered[:n])), reader)
}
