package pipeline

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/aluiziolira/stockreport/models"
	"github.com/nao1215/markdown"
)

// Writer persists a report. Every implementation leaves the destination
// untouched when the report has no records.
type Writer interface {
	Write(report *models.Report) error
}

// NewWriter picks a writer from the destination's extension: .csv, .json,
// .md, .db and .sqlite have their own formats, anything else gets the
// plain-text table.
func NewWriter(path, runID string) Writer {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return &CSVWriter{Path: path}
	case ".json":
		return &JSONWriter{Path: path}
	case ".md":
		return &MarkdownWriter{Path: path}
	case ".db", ".sqlite":
		return &SQLiteWriter{Path: path, RunID: runID}
	default:
		return &TableWriter{Path: path}
	}
}

// TableWriter writes the titled fixed-width text table.
type TableWriter struct {
	Path string
}

// Write renders report and replaces the file at Path.
func (tw *TableWriter) Write(report *models.Report) error {
	if report.Empty() {
		return nil
	}
	return writeFile(tw.Path, []byte(RenderTable(report)))
}

// RenderTable formats report as a title line, a header row, a dash
// separator and one row per record, joined by newlines. Each column is as
// wide as its longest cell or header.
func RenderTable(report *models.Report) string {
	if report.Empty() {
		return ""
	}
	columns := report.Columns()
	widths := make([]int, len(columns))
	for i, col := range columns {
		widths[i] = utf8.RuneCountInString(col)
	}
	rows := make([][]string, len(report.Records))
	for r, record := range report.Records {
		rows[r] = record.Values()
		for i := range columns {
			widths[i] = max(widths[i], utf8.RuneCountInString(rows[r][i]))
		}
	}

	line := func(cells []string) string {
		padded := make([]string, len(columns))
		for i := range columns {
			padded[i] = ljust(cells[i], widths[i])
		}
		return "| " + strings.Join(padded, " | ") + " |"
	}

	header := line(columns)
	width := utf8.RuneCountInString(header)
	lines := make([]string, 0, len(rows)+3)
	lines = append(lines,
		center(" "+report.Title+" ", width, '='),
		header,
		strings.Repeat("-", width),
	)
	for _, cells := range rows {
		lines = append(lines, line(cells))
	}
	return strings.Join(lines, "\n")
}

func ljust(s string, width int) string {
	if pad := width - utf8.RuneCountInString(s); pad > 0 {
		return s + strings.Repeat(" ", pad)
	}
	return s
}

// center places s in width runes of fill. An odd margin puts the extra
// fill on the left only when width is odd as well.
func center(s string, width int, fill rune) string {
	margin := width - utf8.RuneCountInString(s)
	if margin <= 0 {
		return s
	}
	left := margin/2 + (margin & width & 1)
	f := string(fill)
	return strings.Repeat(f, left) + s + strings.Repeat(f, margin-left)
}

// CSVWriter writes a header row of column names followed by the records.
type CSVWriter struct {
	Path string
}

// Write replaces the file at Path with the CSV form of report.
func (cw *CSVWriter) Write(report *models.Report) error {
	if report.Empty() {
		return nil
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(report.Columns()); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, record := range report.Records {
		if err := w.Write(record.Values()); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv records: %w", err)
	}
	return writeFile(cw.Path, buf.Bytes())
}

// JSONWriter writes {"title": ..., "records": [...]} with each record's
// keys in column order.
type JSONWriter struct {
	Path string
}

// Write replaces the file at Path with the JSON form of report.
func (jw *JSONWriter) Write(report *models.Report) error {
	if report.Empty() {
		return nil
	}
	doc := struct {
		Title   string          `json:"title"`
		Records []orderedRecord `json:"records"`
	}{Title: report.Title}
	for _, r := range report.Records {
		doc.Records = append(doc.Records, orderedRecord(r))
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json report: %w", err)
	}
	return writeFile(jw.Path, append(data, '\n'))
}

// orderedRecord marshals as an object whose keys keep field order.
type orderedRecord models.Record

func (r orderedRecord) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.Fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarkdownWriter writes the report title as a heading above a table.
type MarkdownWriter struct {
	Path string
}

// Write replaces the file at Path with the Markdown form of report.
func (mw *MarkdownWriter) Write(report *models.Report) error {
	if report.Empty() {
		return nil
	}
	var buf bytes.Buffer
	md := markdown.NewMarkdown(&buf)
	md.H2(report.Title)
	md.PlainText("")

	rows := make([][]string, len(report.Records))
	for i, r := range report.Records {
		rows[i] = r.Values()
	}
	md.Table(markdown.TableSet{Header: report.Columns(), Rows: rows})
	if err := md.Build(); err != nil {
		return fmt.Errorf("build markdown: %w", err)
	}
	return writeFile(mw.Path, buf.Bytes())
}

func writeFile(path string, data []byte) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
