// Package export writes a reconciled report in download formats: CSV (the
// canonical export), XLSX, JSON, and YAML.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/goccy/go-yaml"
	"github.com/xuri/excelize/v2"

	"github.com/agentstation/homestay/pkg/display"
	"github.com/agentstation/homestay/pkg/errors"
	"github.com/agentstation/homestay/pkg/homestay"
)

// Format is a download format.
type Format string

// Supported formats.
const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ContentType returns the MIME type for a format.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatJSON:
		return "application/json"
	case FormatYAML:
		return "application/yaml"
	default:
		return "application/octet-stream"
	}
}

// Filename returns the download file name for a format.
func (f Format) Filename() string {
	return "homestay_summary." + string(f)
}

// Write encodes table in the given format.
func Write(w io.Writer, format Format, table *homestay.ReportTable, labels display.Labels) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, table, labels)
	case FormatXLSX:
		return WriteXLSX(w, table, labels)
	case FormatJSON:
		return WriteJSON(w, table)
	case FormatYAML:
		return WriteYAML(w, table)
	default:
		return &errors.ValidationError{Field: "format", Value: format, Message: "unsupported export format"}
	}
}

// WriteCSV writes the header row and then every table row, total first.
// Lines end in "\n" and the file ends with a newline.
func WriteCSV(w io.Writer, table *homestay.ReportTable, labels display.Labels) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(labels.Header()); err != nil {
		return errors.WrapIO("write", "csv", err)
	}
	for _, row := range table.Rows {
		record := []string{
			row.District,
			row.Cluster,
			strconv.Itoa(row.New),
			strconv.Itoa(row.Upgradation),
		}
		if err := cw.Write(record); err != nil {
			return errors.WrapIO("write", "csv", err)
		}
	}
	cw.Flush()
	return errors.WrapIO("write", "csv", cw.Error())
}

// SheetName is the worksheet holding the report in XLSX exports.
const SheetName = "Summary"

// WriteXLSX writes a workbook with one sheet: a bold header row followed by
// the table rows, counts stored as numbers.
func WriteXLSX(w io.Writer, table *homestay.ReportTable, labels display.Labels) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return errors.WrapResource("create", "sheet", SheetName, err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errors.WrapResource("create", "style", "header", err)
	}

	for i, header := range labels.Header() {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(SheetName, cell, header); err != nil {
			return errors.WrapResource("write", "cell", cell, err)
		}
	}
	if err := f.SetCellStyle(SheetName, "A1", "D1", bold); err != nil {
		return errors.WrapResource("write", "style", "A1:D1", err)
	}
	_ = f.SetColWidth(SheetName, "A", "B", 28)
	_ = f.SetColWidth(SheetName, "C", "D", 22)

	for i, row := range table.Rows {
		line := i + 2
		values := []any{row.District, row.Cluster, row.New, row.Upgradation}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, line)
			if err := f.SetCellValue(SheetName, cell, v); err != nil {
				return errors.WrapResource("write", "cell", cell, err)
			}
		}
	}
	if len(table.Rows) > 0 {
		_ = f.SetCellStyle(SheetName, "A2", "D2", bold)
	}

	if _, err := f.WriteTo(w); err != nil {
		return errors.WrapIO("write", "xlsx", err)
	}
	return nil
}

// Document is the structured form of a report used by JSON and YAML output.
type Document struct {
	Total homestay.AggregateRow   `json:"total" yaml:"total"`
	Rows  []homestay.AggregateRow `json:"rows" yaml:"rows"`
}

// NewDocument splits a table into its total and body.
func NewDocument(table *homestay.ReportTable) Document {
	body := table.Body()
	if body == nil {
		body = []homestay.AggregateRow{}
	}
	return Document{Total: table.Total(), Rows: body}
}

// WriteJSON writes the table as an indented JSON document.
func WriteJSON(w io.Writer, table *homestay.ReportTable) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(NewDocument(table)); err != nil {
		return errors.WrapIO("write", "json", err)
	}
	return nil
}

// WriteYAML writes the table as a YAML document.
func WriteYAML(w io.Writer, table *homestay.ReportTable) error {
	data, err := yaml.MarshalWithOptions(NewDocument(table), yaml.Indent(2))
	if err != nil {
		return errors.WrapParse("yaml", "", err)
	}
	if _, err := w.Write(data); err != nil {
		return errors.WrapIO("write", "yaml", err)
	}
	return nil
}

// ParseFormat parses a format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatCSV, FormatXLSX, FormatJSON, FormatYAML:
		return Format(s), nil
	}
	return "", errors.NewValidationError("format", s, fmt.Sprintf("must be one of %s, %s, %s, %s", FormatCSV, FormatXLSX, FormatJSON, FormatYAML))
}
