// Package parser turns markup into navigable documents and validates the
// records built from them.
package parser

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/stockreport/models"
)

// ValidateRecord ensures a record carries exactly the expected columns, in order.
func ValidateRecord(r models.Record, columns []string) error {
	if len(r.Fields) != len(columns) {
		return fmt.Errorf("record has %d fields, want %d", len(r.Fields), len(columns))
	}
	for i, f := range r.Fields {
		if strings.TrimSpace(f.Name) == "" {
			return fmt.Errorf("record field %d has no name", i)
		}
		if f.Name != columns[i] {
			return fmt.Errorf("record field %d is %q, want %q", i, f.Name, columns[i])
		}
	}
	return nil
}

// NormalizeText trims surrounding whitespace from extracted text.
func NormalizeText(text string) string {
	return strings.TrimSpace(text)
}

// CellText returns the normalized text of a selection.
func CellText(sel *goquery.Selection) string {
	return NormalizeText(sel.Text())
}
