package scraper

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/aluiziolira/stockreport/config"
	"github.com/aluiziolira/stockreport/models"
	"github.com/aluiziolira/stockreport/parser"
)

// Layout describes where a report's pages live in both modes.
type Layout struct {
	// ListingFile is the snapshot file name of the listing page.
	ListingFile string
	// ListingPath is appended to the base URL to reach the live listing.
	ListingPath string
	// DetailSuffix names snapshot detail files {code}_{suffix}.html.
	// Empty means the report has no detail pages.
	DetailSuffix string
	// DetailPath is appended to an entity link to reach its live detail page.
	DetailPath string
}

// HasDetail reports whether the layout declares detail pages.
func (l Layout) HasDetail() bool {
	return l.DetailSuffix != "" || l.DetailPath != ""
}

// Pages binds a Source to a Layout so callers can ask for the listing and
// entity details without knowing whether they come from disk or the network.
type Pages struct {
	source Source
	layout Layout
	root   string
	online bool
}

// NewPages selects the live site when cfg.Input is an http(s) URL and the
// snapshot directory otherwise.
func NewPages(cfg *config.Config, layout Layout, metrics *Metrics) (*Pages, error) {
	if cfg.IsOnline() {
		web, err := NewWebSource(cfg, metrics)
		if err != nil {
			return nil, err
		}
		return NewOnlinePages(cfg.Input, layout, web), nil
	}
	return NewOfflinePages(cfg.Input, layout, NewFileSource(metrics)), nil
}

// NewOfflinePages reads pages from dir.
func NewOfflinePages(dir string, layout Layout, source Source) *Pages {
	return &Pages{source: source, layout: layout, root: dir}
}

// NewOnlinePages fetches pages below baseURL.
func NewOnlinePages(baseURL string, layout Layout, source Source) *Pages {
	return &Pages{source: source, layout: layout, root: strings.TrimRight(baseURL, "/"), online: true}
}

// Online reports whether pages are fetched from the network.
func (p *Pages) Online() bool {
	return p.online
}

// Source returns the underlying page source.
func (p *Pages) Source() Source {
	return p.source
}

// ListingLocation is the file path or URL of the listing page.
func (p *Pages) ListingLocation() string {
	if p.online {
		return p.root + p.layout.ListingPath
	}
	return filepath.Join(p.root, p.layout.ListingFile)
}

// Listing fetches the listing page. Any error is fatal to a run.
func (p *Pages) Listing(ctx context.Context) (*parser.Document, error) {
	loc := p.ListingLocation()
	doc, err := p.source.Fetch(ctx, loc)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", loc, err)
	}
	return doc, nil
}

// DetailLocation resolves the detail page of stub. It fails with ErrNoDetail
// when the entity has none.
func (p *Pages) DetailLocation(stub models.EntityStub) (string, error) {
	if p.online {
		if p.layout.DetailPath == "" || stub.Link == "" {
			return "", fmt.Errorf("%w: %s has no link", ErrNoDetail, stub.Code)
		}
		if strings.HasPrefix(stub.Link, "/") {
			return p.root + stub.Link + p.layout.DetailPath, nil
		}
		if config.IsURL(stub.Link) {
			return strings.TrimRight(stub.Link, "/") + p.layout.DetailPath, nil
		}
		return p.root + "/" + stub.Link + p.layout.DetailPath, nil
	}

	if p.layout.DetailSuffix == "" || stub.Code == "" || strings.ContainsAny(stub.Code, `/\`) {
		return "", fmt.Errorf("%w: %s", ErrNoDetail, stub.Code)
	}
	path := filepath.Join(p.root, stub.Code+"_"+p.layout.DetailSuffix+".html")
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNoDetail, path)
		}
		return "", fmt.Errorf("stat detail %s: %w", path, err)
	}
	return path, nil
}

// Detail fetches the detail page of stub.
func (p *Pages) Detail(ctx context.Context, stub models.EntityStub) (*parser.Document, error) {
	loc, err := p.DetailLocation(stub)
	if err != nil {
		return nil, err
	}
	return p.source.Fetch(ctx, loc)
}
