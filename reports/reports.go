// Package reports is the catalog of report definitions the CLI can run.
package reports

import (
	"errors"
	"fmt"
	"slices"

	"github.com/aluiziolira/stockreport/config"
	"github.com/aluiziolira/stockreport/extract"
	"github.com/aluiziolira/stockreport/pipeline"
	"github.com/aluiziolira/stockreport/scraper"
)

// ErrXPathWithoutDetail is returned when XPath columns are declared for a
// report whose records come straight from the listing.
var ErrXPathWithoutDetail = errors.New("xpath columns need detail pages")

// Report couples a pipeline definition with its page layout and output.
type Report struct {
	Definition    pipeline.Definition
	Layout        scraper.Layout
	DefaultOutput string
	Short         string
}

// Gainers lists the 52-week gainers with their change and total cash.
func Gainers() Report {
	return Report{
		Definition: pipeline.Definition{
			Name:    "gainers",
			Title:   "10 stocks with best 52-Week Change",
			TopK:    10,
			Listing: pipeline.Scanner{Rows: pipeline.ListingRows},
			Columns: []string{pipeline.ColumnName, pipeline.ColumnCode, "52-Week Change", "Total Cash"},
			Fields:  extract.KeyStatistics(),
		},
		Layout: scraper.Layout{
			ListingFile:  "best_year_change.html",
			ListingPath:  "/markets/stocks/52-week-gainers/",
			DetailSuffix: "stats",
			DetailPath:   "/key-statistics/",
		},
		DefaultOutput: "best_year_change.txt",
		Short:         "Best 52-week change among the top gainers",
	}
}

// Holders lists BlackRock's largest institutional holders.
func Holders() Report {
	return Report{
		Definition: pipeline.Definition{
			Name:          "holders",
			Title:         "10 largest holds of Blackrock Inc.",
			TopK:          10,
			Listing:       pipeline.Scanner{Rows: extract.HoldersRows},
			RowsAsRecords: true,
			Columns:       slices.Clone(extract.HolderColumns),
		},
		Layout: scraper.Layout{
			ListingFile: "blk_holders.html",
			ListingPath: "/quote/BLK/holders/",
		},
		DefaultOutput: "blackrock_holders.txt",
		Short:         "Top institutional holders of BlackRock",
	}
}

// YoungestCEO ranks the most active stocks by their CEO's year of birth.
func YoungestCEO() Report {
	return Report{
		Definition: pipeline.Definition{
			Name:    "ceo",
			Title:   "5 stocks with youngest CEOs",
			TopK:    10,
			Listing: pipeline.Scanner{Rows: pipeline.ListingRows},
			Columns: []string{
				pipeline.ColumnName, pipeline.ColumnCode,
				"Country", "Employees", "CEO Name", "CEO Year Born",
			},
			Fields:   extract.Profile(),
			Required: []string{"CEO Year Born"},
			SortBy:   "CEO Year Born",
			Limit:    5,
		},
		Layout: scraper.Layout{
			ListingFile:  "main_page.html",
			ListingPath:  "/markets/stocks/most-active/",
			DetailSuffix: "profile",
			DetailPath:   "/profile",
		},
		DefaultOutput: "most_youngest_ceo.txt",
		Short:         "Most active stocks with the youngest CEOs",
	}
}

// All returns every report in CLI order.
func All() []Report {
	return []Report{Gainers(), Holders(), YoungestCEO()}
}

// Lookup finds a report by name.
func Lookup(name string) (Report, bool) {
	for _, r := range All() {
		if r.Definition.Name == name {
			return r, true
		}
	}
	return Report{}, false
}

// Apply returns a copy of r adjusted by o. XPath columns are compiled here
// and appended to the columns unless o lists the columns explicitly.
func (r Report) Apply(o config.ReportOverride) (Report, error) {
	def := r.Definition
	def.Columns = slices.Clone(def.Columns)

	if o.Title != "" {
		def.Title = o.Title
	}
	if o.TopK != nil {
		def.TopK = *o.TopK
	}
	if o.Limit != nil {
		def.Limit = *o.Limit
	}
	if len(o.Columns) > 0 {
		def.Columns = slices.Clone(o.Columns)
	}

	if len(o.XPath) > 0 && def.RowsAsRecords {
		return Report{}, fmt.Errorf("report %s: %w", def.Name, ErrXPathWithoutDetail)
	}
	for _, col := range o.XPath {
		fn, err := extract.XPath(col.Expr)
		if err != nil {
			return Report{}, fmt.Errorf("report %s column %q: %w", def.Name, col.Name, err)
		}
		def.Fields = def.Fields.With(col.Name, fn)
		if len(o.Columns) == 0 && !slices.Contains(def.Columns, col.Name) {
			def.Columns = append(def.Columns, col.Name)
		}
	}

	r.Definition = def
	return r, nil
}

// Output returns the destination file: the configured one or the default.
func (r Report) Output(cfg *config.Config) string {
	if cfg.Output != "" {
		return cfg.Output
	}
	return r.DefaultOutput
}

// Build applies the configured overrides and wires the pipeline to its
// pages. Unknown columns fail here.
func (r Report) Build(cfg *config.Config, metrics *scraper.Metrics) (*pipeline.Pipeline, *scraper.Pages, error) {
	if o, ok := cfg.Reports[r.Definition.Name]; ok {
		var err error
		if r, err = r.Apply(o); err != nil {
			return nil, nil, err
		}
	}

	pages, err := scraper.NewPages(cfg, r.Layout, metrics)
	if err != nil {
		return nil, nil, err
	}
	p, err := pipeline.NewPipeline(r.Definition, pages, cfg.Parallelism)
	if err != nil {
		return nil, nil, err
	}
	return p, pages, nil
}
