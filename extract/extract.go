// Package extract holds the per-field extraction functions used to fill
// report columns. Every function is total: any structural mismatch yields
// Sentinel instead of an error, so table columns stay well-formed.
package extract

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/stockreport/parser"
	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xpath"
)

// Sentinel marks a field that could not be extracted.
const Sentinel = "N/A"

// ErrUnknownField is returned when a column has no registered extractor.
var ErrUnknownField = errors.New("extract: unknown field")

// Func extracts one field from a detail document.
type Func func(*parser.Document) string

// Text returns the trimmed text of the element at path.
func Text(path parser.Path) Func {
	return func(doc *parser.Document) string {
		sel, ok := doc.Resolve(path)
		if !ok {
			return Sentinel
		}
		return parser.CellText(sel)
	}
}

// Search scans the rows under Rows for the first whose Label cell matches
// Pattern. Rows without a label cell are passed over.
type Search struct {
	Rows    parser.Path
	Label   int
	Pattern *regexp.Regexp
}

// Row returns the cells of the first matching row.
func (s Search) Row(doc *parser.Document) (*goquery.Selection, bool) {
	container, ok := doc.Resolve(s.Rows)
	if !ok {
		return nil, false
	}
	var match *goquery.Selection
	container.Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		cells := row.Find("td")
		label := cells.Eq(s.Label)
		if label.Length() == 0 {
			return true
		}
		if s.Pattern.MatchString(parser.CellText(label)) {
			match = cells
			return false
		}
		return true
	})
	return match, match != nil
}

// Cell extracts cell index of the matching row; negative counts from the end.
func (s Search) Cell(index int) Func {
	return func(doc *parser.Document) string {
		cells, ok := s.Row(doc)
		if !ok {
			return Sentinel
		}
		cell := cells.Eq(index)
		if cell.Length() == 0 {
			return Sentinel
		}
		return parser.CellText(cell)
	}
}

// titlePath locates the quote heading, e.g. "Tesla, Inc. (TSLA)".
var titlePath = parser.Path{parser.Find("article"), parser.Find("h1")}

// TitleNameCode splits the quote heading at its last opening parenthesis.
func TitleNameCode(doc *parser.Document) (string, string) {
	sel, ok := doc.Resolve(titlePath)
	if !ok {
		return Sentinel, Sentinel
	}
	title := sel.Text()
	cut := strings.LastIndex(title, "(")
	if cut < 0 {
		return Sentinel, Sentinel
	}
	name := strings.TrimSpace(title[:cut])
	code := strings.TrimSpace(strings.TrimRight(title[cut+1:], ")"))
	return name, code
}

// QuoteName is the company name taken from the quote heading.
func QuoteName(doc *parser.Document) string {
	name, _ := TitleNameCode(doc)
	return name
}

// QuoteCode is the ticker taken from the quote heading.
func QuoteCode(doc *parser.Document) string {
	_, code := TitleNameCode(doc)
	return code
}

// XPath compiles expr into a field extractor. Compilation happens here so a
// malformed expression is rejected before any page is fetched.
func XPath(expr string) (Func, error) {
	compiled, err := xpath.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("compile xpath %q: %w", expr, err)
	}
	return func(doc *parser.Document) string {
		root := doc.Root()
		if root == nil {
			return Sentinel
		}
		node := htmlquery.QuerySelector(root, compiled)
		if node == nil {
			return Sentinel
		}
		return parser.NormalizeText(htmlquery.InnerText(node))
	}, nil
}

// Registry maps column names to extractors.
type Registry map[string]Func

// Resolve looks up every name. Unknown names fail with ErrUnknownField.
func (r Registry) Resolve(names []string) ([]Func, error) {
	funcs := make([]Func, len(names))
	for i, name := range names {
		fn, ok := r[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q (known: %s)", ErrUnknownField, name, strings.Join(r.Names(), ", "))
		}
		funcs[i] = guard(name, fn)
	}
	return funcs, nil
}

// Names lists registered columns in sorted order.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// With returns a copy of r with fn registered under name.
func (r Registry) With(name string, fn Func) Registry {
	out := make(Registry, len(r)+1)
	for k, v := range r {
		out[k] = v
	}
	out[name] = fn
	return out
}

func guard(name string, fn Func) Func {
	return func(doc *parser.Document) (value string) {
		defer func() {
			if r := recover(); r != nil {
				slog.Debug("extractor panicked", slog.String("field", name), slog.Any("panic", r))
				value = Sentinel
			}
		}()
		if doc == nil {
			return Sentinel
		}
		return fn(doc)
	}
}
