// Package ports declares the interfaces the core depends on: table sources
// feeding the pipeline and sinks consuming its outputs.
package ports

import "surveyprep/domain/table"

// TableSource supplies a wide table independent of the original file
// encoding. Implementations own parsing; the core only sees columns and
// rows.
type TableSource interface {
	ReadTable() (*table.Table, error)
}
