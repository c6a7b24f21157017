package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/aluiziolira/stockreport/extract"
	"github.com/aluiziolira/stockreport/models"
	"github.com/aluiziolira/stockreport/parser"
	"github.com/aluiziolira/stockreport/scraper"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Columns filled from the listing stub rather than the detail page.
const (
	ColumnName = "Name"
	ColumnCode = "Code"
)

// Reasons an entity contributes no record.
const (
	SkipNoDetail        = "no_detail"
	SkipFetchError      = "fetch_error"
	SkipMissingRequired = "missing_required"
	SkipInvalid         = "invalid_record"
)

var (
	// ErrNoColumns is returned for a definition without columns.
	ErrNoColumns = errors.New("pipeline: definition has no columns")
	// ErrUnknownColumn is returned when a required or sort column is not declared.
	ErrUnknownColumn = errors.New("pipeline: column not declared")
)

// Pages supplies the listing and per-entity detail documents.
type Pages interface {
	Online() bool
	Listing(ctx context.Context) (*parser.Document, error)
	Detail(ctx context.Context, stub models.EntityStub) (*parser.Document, error)
}

// Definition declares one report: where its rows come from, which columns
// it has and how the result is ordered.
type Definition struct {
	Name    string
	Title   string
	TopK    int
	Listing Scanner

	// RowsAsRecords maps listing cell i to column i; no detail pages are read.
	RowsAsRecords bool

	Columns []string
	// Fields resolves every column other than Name and Code.
	Fields extract.Registry
	// Required columns must not hold the sentinel or the record is dropped.
	Required []string
	// SortBy sorts records by the integer value of a column, descending.
	SortBy string
	// Limit truncates the sorted records; 0 keeps all of them.
	Limit int
}

type columnFunc func(models.EntityStub, *parser.Document) string

// Pipeline turns a listing and its detail pages into a report.
type Pipeline struct {
	def         Definition
	pages       Pages
	parallelism int
	columns     []columnFunc

	metrics metrics
}

// NewPipeline validates def and resolves its extractors. Unknown columns
// fail here, before any page is fetched.
func NewPipeline(def Definition, pages Pages, parallelism int) (*Pipeline, error) {
	if pages == nil {
		return nil, fmt.Errorf("pipeline %s: pages are required", def.Name)
	}
	if len(def.Columns) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoColumns, def.Name)
	}
	for _, name := range append(slices.Clone(def.Required), def.SortBy) {
		if name != "" && !slices.Contains(def.Columns, name) {
			return nil, fmt.Errorf("%w: %q in %s", ErrUnknownColumn, name, def.Name)
		}
	}
	if parallelism < 1 {
		parallelism = 1
	}

	p := &Pipeline{
		def:         def,
		pages:       pages,
		parallelism: parallelism,
		metrics:     newMetrics(),
	}
	if def.RowsAsRecords {
		return p, nil
	}

	p.columns = make([]columnFunc, len(def.Columns))
	for i, name := range def.Columns {
		switch name {
		case ColumnName:
			p.columns[i] = func(stub models.EntityStub, _ *parser.Document) string { return stub.Name }
		case ColumnCode:
			p.columns[i] = func(stub models.EntityStub, _ *parser.Document) string { return stub.Code }
		default:
			funcs, err := def.Fields.Resolve([]string{name})
			if err != nil {
				return nil, fmt.Errorf("pipeline %s: %w", def.Name, err)
			}
			fn := funcs[0]
			p.columns[i] = func(_ models.EntityStub, doc *parser.Document) string { return fn(doc) }
		}
	}
	return p, nil
}

// Run fetches the listing, builds the records and returns the report. Only
// a listing fetch failure or cancellation of ctx is an error; unusable
// entities are skipped.
func (p *Pipeline) Run(ctx context.Context) (*models.Report, error) {
	p.metrics.start()
	defer p.metrics.finish()

	listing, err := p.pages.Listing(ctx)
	if err != nil {
		return nil, err
	}

	var records []models.Record
	if p.def.RowsAsRecords {
		records = p.rowRecords(listing)
	} else {
		records, err = p.detailRecords(ctx, listing)
		if err != nil {
			return nil, err
		}
	}

	records = p.filter(records)
	if p.def.SortBy != "" {
		SortDescending(records, p.def.SortBy)
	}
	if p.def.Limit > 0 && len(records) > p.def.Limit {
		records = records[:p.def.Limit]
	}
	p.metrics.setRecords(len(records))

	slog.Info("report built",
		slog.String("report", p.def.Name),
		slog.Int("records", len(records)),
	)
	return &models.Report{Title: p.def.Title, Records: records}, nil
}

// Stats returns the counters of the last run.
func (p *Pipeline) Stats() models.RunStats {
	return p.metrics.snapshot()
}

func (p *Pipeline) rowRecords(listing *parser.Document) []models.Record {
	rows := p.def.Listing.ScanRows(listing, p.def.TopK, len(p.def.Columns))
	p.metrics.setScanned(len(rows))

	records := make([]models.Record, 0, len(rows))
	for _, cells := range rows {
		records = append(records, models.NewRecord(p.def.Columns, cells))
		p.metrics.incrementProcessed()
	}
	return records
}

func (p *Pipeline) detailRecords(ctx context.Context, listing *parser.Document) ([]models.Record, error) {
	stubs := p.def.Listing.Scan(listing, p.def.TopK, p.pages.Online())
	p.metrics.setScanned(len(stubs))

	results := make([]*models.Record, len(stubs))
	var g errgroup.Group
	g.SetLimit(p.parallelism)

	for i, stub := range stubs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			doc, err := p.pages.Detail(ctx, stub)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				p.skip(stub, err)
				return nil
			}
			record := p.buildRecord(stub, doc)
			results[i] = &record
			p.metrics.incrementProcessed()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	records := make([]models.Record, 0, len(results))
	for _, r := range results {
		if r != nil {
			records = append(records, *r)
		}
	}
	return records, nil
}

func (p *Pipeline) buildRecord(stub models.EntityStub, doc *parser.Document) models.Record {
	values := make([]string, len(p.columns))
	for i, column := range p.columns {
		values[i] = column(stub, doc)
		if values[i] == extract.Sentinel {
			p.metrics.addDegraded()
			slog.Debug("field not found",
				slog.String("code", stub.Code),
				slog.String("field", p.def.Columns[i]),
			)
		}
	}
	return models.NewRecord(p.def.Columns, values)
}

func (p *Pipeline) skip(stub models.EntityStub, err error) {
	if errors.Is(err, scraper.ErrNoDetail) {
		p.metrics.addSkipped(SkipNoDetail)
		slog.Debug("no detail page", slog.String("code", stub.Code))
		return
	}
	p.metrics.addSkipped(SkipFetchError)
	slog.Warn("detail fetch failed",
		slog.String("code", stub.Code),
		slog.String("category", scraper.ErrorType(err)),
		slog.Any("error", err),
	)
}

func (p *Pipeline) filter(records []models.Record) []models.Record {
	kept := records[:0]
	for _, r := range records {
		if err := parser.ValidateRecord(r, p.def.Columns); err != nil {
			p.metrics.addSkipped(SkipInvalid)
			slog.Warn("invalid record", slog.Any("error", err))
			continue
		}
		if name, ok := missingRequired(r, p.def.Required); ok {
			p.metrics.addSkipped(SkipMissingRequired)
			slog.Debug("required field missing", slog.String("field", name))
			continue
		}
		kept = append(kept, r)
	}
	return kept
}

func missingRequired(r models.Record, required []string) (string, bool) {
	for _, name := range required {
		if v, _ := r.Get(name); v == extract.Sentinel {
			return name, true
		}
	}
	return "", false
}

type metrics struct {
	mu        sync.Mutex
	runID     string
	startTime time.Time
	endTime   time.Time
	scanned   int
	processed int
	records   int
	degraded  int
	skipped   map[string]int
}

func newMetrics() metrics {
	return metrics{skipped: make(map[string]int)}
}

func (m *metrics) start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runID = uuid.NewString()
	m.startTime = time.Now()
	m.endTime = time.Time{}
	m.scanned, m.processed, m.records, m.degraded = 0, 0, 0, 0
	m.skipped = make(map[string]int)
}

func (m *metrics) finish() {
	m.mu.Lock()
	m.endTime = time.Now()
	m.mu.Unlock()
}

func (m *metrics) setScanned(n int) {
	m.mu.Lock()
	m.scanned = n
	m.mu.Unlock()
}

func (m *metrics) setRecords(n int) {
	m.mu.Lock()
	m.records = n
	m.mu.Unlock()
}

func (m *metrics) incrementProcessed() {
	m.mu.Lock()
	m.processed++
	m.mu.Unlock()
}

func (m *metrics) addDegraded() {
	m.mu.Lock()
	m.degraded++
	m.mu.Unlock()
}

func (m *metrics) addSkipped(reason string) {
	m.mu.Lock()
	m.skipped[reason]++
	m.mu.Unlock()
}

func (m *metrics) snapshot() models.RunStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	skipped := make(map[string]int, len(m.skipped))
	for k, v := range m.skipped {
		skipped[k] = v
	}
	return models.RunStats{
		RunID:         m.runID,
		StartTime:     m.startTime,
		EndTime:       m.endTime,
		Scanned:       m.scanned,
		Processed:     m.processed,
		Records:       m.records,
		Skipped:       skipped,
		DegradedCells: m.degraded,
	}
}
