package pipeline

import (
	"log/slog"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/stockreport/models"
	"github.com/aluiziolira/stockreport/parser"
)

// ListingRows is the results table body of the screener listings.
var ListingRows = parser.Path{parser.Find("article"), parser.Find("tbody")}

// Scanner reads the bounded top rows of a listing's results table.
// Scanning is all-or-nothing: a missing table or a short row yields no
// rows at all.
type Scanner struct {
	Rows parser.Path
}

// Scan extracts up to topK stubs: code from the first cell, name from the
// second. With wantLinks the first cell's anchor href becomes the link; a
// cell without an anchor leaves it empty and an anchor without href aborts.
func (s Scanner) Scan(listing *parser.Document, topK int, wantLinks bool) []models.EntityStub {
	rows, ok := s.rows(listing, topK)
	if !ok {
		return nil
	}

	stubs := make([]models.EntityStub, 0, len(rows))
	for i, cells := range rows {
		if cells.Length() < 2 {
			slog.Debug("listing row too short, discarding scan", slog.Int("row", i), slog.Int("cells", cells.Length()))
			return nil
		}
		first := cells.Eq(0)
		stub := models.EntityStub{
			Code: parser.CellText(first),
			Name: parser.CellText(cells.Eq(1)),
		}
		if anchor := first.Find("a").First(); wantLinks && anchor.Length() > 0 {
			href, ok := anchor.Attr("href")
			if !ok {
				slog.Debug("listing anchor without href, discarding scan", slog.Int("row", i))
				return nil
			}
			stub.Link = href
		}
		stubs = append(stubs, stub)
	}
	return stubs
}

// ScanRows returns the trimmed cell texts of up to topK rows. Every row
// must have at least minCells cells.
func (s Scanner) ScanRows(listing *parser.Document, topK, minCells int) [][]string {
	rows, ok := s.rows(listing, topK)
	if !ok {
		return nil
	}

	out := make([][]string, 0, len(rows))
	for i, cells := range rows {
		if cells.Length() < minCells {
			slog.Debug("listing row too short, discarding scan", slog.Int("row", i), slog.Int("cells", cells.Length()))
			return nil
		}
		texts := make([]string, cells.Length())
		cells.Each(func(j int, cell *goquery.Selection) {
			texts[j] = parser.CellText(cell)
		})
		out = append(out, texts)
	}
	return out
}

func (s Scanner) rows(listing *parser.Document, topK int) ([]*goquery.Selection, bool) {
	if listing == nil || topK <= 0 {
		return nil, false
	}
	path := s.Rows
	if len(path) == 0 {
		path = ListingRows
	}
	container, ok := listing.Resolve(path)
	if !ok {
		slog.Debug("listing table not found")
		return nil, false
	}

	trs := container.Find("tr")
	n := min(trs.Length(), topK)
	rows := make([]*goquery.Selection, n)
	for i := range n {
		rows[i] = trs.Eq(i).Find("td")
	}
	return rows, true
}
