package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/aluiziolira/stockreport/config"
	"github.com/aluiziolira/stockreport/parser"
	"github.com/gocolly/colly/v2"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/unicode"
)

// Source turns a page descriptor (file path or URL) into a parsed document.
type Source interface {
	Fetch(ctx context.Context, descriptor string) (*parser.Document, error)
}

// FileSource reads pre-fetched pages from disk.
type FileSource struct {
	Metrics *Metrics
}

// NewFileSource returns a FileSource reporting to metrics (may be nil).
func NewFileSource(metrics *Metrics) *FileSource {
	return &FileSource{Metrics: metrics}
}

// Fetch reads and parses the file at path. A leading UTF-8 BOM is dropped.
func (s *FileSource) Fetch(ctx context.Context, path string) (*parser.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	defer func() { s.Metrics.ObserveDuration(time.Since(start)) }()

	f, err := os.Open(path) //nolint:gosec // snapshot paths come from the operator
	if err != nil {
		s.Metrics.IncFetch(sourceFile, "error")
		if errors.Is(err, fs.ErrNotExist) {
			err = ErrNotFound{Err: err}
		}
		s.Metrics.IncError(errorTypeLabel(err))
		return nil, fmt.Errorf("open page: %w", err)
	}
	defer f.Close()

	doc, err := parser.Parse(unicode.UTF8BOM.NewDecoder().Reader(f))
	if err != nil {
		s.Metrics.IncFetch(sourceFile, "error")
		s.Metrics.IncError("other")
		return nil, fmt.Errorf("read page %s: %w", path, err)
	}
	s.Metrics.IncFetch(sourceFile, "ok")
	return doc, nil
}

// WebSource issues blocking GET requests through a colly collector and
// retries transient failures with capped exponential backoff.
type WebSource struct {
	cfg       *config.Config
	collector *colly.Collector
	Metrics   *Metrics

	retries int64
	sleep   func(context.Context, time.Duration) error
}

// NewWebSource builds a WebSource configured from cfg.
func NewWebSource(cfg *config.Config, metrics *Metrics) (*WebSource, error) {
	collector := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)

	// Statuses are judged in fetchOnce; colly alone rejects everything above 202.
	collector.ParseHTTPErrorResponse = true
	collector.SetRequestTimeout(cfg.Timeout)
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: cfg.Parallelism,
	}); err != nil {
		return nil, fmt.Errorf("configure rate limits: %w", err)
	}

	collector.OnResponse(func(r *colly.Response) {
		r.Ctx.Put("status", r.StatusCode)
		r.Ctx.Put("body", r.Body)
		r.Ctx.Put("content_type", r.Headers.Get("Content-Type"))
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r == nil || r.Ctx == nil {
			return
		}
		r.Ctx.Put("status", r.StatusCode)
	})

	return &WebSource{
		cfg:       cfg,
		collector: collector,
		Metrics:   metrics,
		sleep:     sleepContext,
	}, nil
}

// WithTransport replaces the HTTP transport used by the collector.
func (w *WebSource) WithTransport(rt http.RoundTripper) {
	w.collector.WithTransport(rt)
}

// TotalRetries reports how many retries have been issued so far.
func (w *WebSource) TotalRetries() int {
	return int(atomic.LoadInt64(&w.retries))
}

// Fetch GETs url and parses the body. Retryable failures are attempted up
// to MaxRetries more times; cancellation of ctx stops the loop.
func (w *WebSource) Fetch(ctx context.Context, url string) (*parser.Document, error) {
	var lastErr error
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		doc, err := w.fetchOnce(url)
		if err == nil {
			w.Metrics.IncFetch(sourceWeb, "ok")
			return doc, nil
		}
		lastErr = err
		category := errorTypeLabel(err)
		w.Metrics.IncError(category)

		if attempt >= w.cfg.MaxRetries || !retryable(err) {
			break
		}
		atomic.AddInt64(&w.retries, 1)
		w.Metrics.IncRetries()

		delay := w.backoff(attempt + 1)
		slog.Debug("retrying fetch",
			slog.String("url", url),
			slog.String("category", category),
			slog.Int("attempt", attempt+1),
			slog.Duration("delay", delay),
		)
		if err := w.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	w.Metrics.IncFetch(sourceWeb, "error")
	return nil, lastErr
}

func (w *WebSource) fetchOnce(url string) (*parser.Document, error) {
	reqCtx := colly.NewContext()
	start := time.Now()
	err := w.collector.Request(http.MethodGet, url, nil, reqCtx, nil)
	w.Metrics.ObserveDuration(time.Since(start))
	if err != nil {
		status, _ := reqCtx.GetAny("status").(int)
		return nil, fmt.Errorf("fetch %s: %w", url, classifyError(err, status))
	}
	if status, _ := reqCtx.GetAny("status").(int); status < 200 || status > 299 {
		return nil, fmt.Errorf("fetch %s: %w", url, classifyError(nil, status))
	}

	body, _ := reqCtx.GetAny("body").([]byte)
	reader, err := decodeBody(body, reqCtx.Get("content_type"))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", url, err)
	}
	doc, err := parser.Parse(reader)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", url, err)
	}
	return doc, nil
}

// decodeBody converts body to UTF-8. colly already transcodes bodies whose
// Content-Type names a charset; the rest are sniffed from their markup.
func decodeBody(body []byte, contentType string) (io.Reader, error) {
	if strings.Contains(strings.ToLower(contentType), "charset") {
		return bytes.NewReader(body), nil
	}
	if contentType == "" {
		contentType = "text/html"
	}
	return charset.NewReader(bytes.NewReader(body), contentType)
}

func (w *WebSource) backoff(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}

	base := w.cfg.RetryBackoff
	if base <= 0 {
		base = 100 * time.Millisecond
	}

	delay := base * time.Duration(1<<(attempt-1))
	if max := w.cfg.RetryBackoffMax; max > 0 && delay > max {
		delay = max
	}
	return delay
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func classifyError(err error, statusCode int) error {
	if err == nil && statusCode == 0 {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout{Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrConnection{Err: err}
	}

	if statusCode != 0 {
		wrapped := err
		if wrapped == nil {
			wrapped = fmt.Errorf("http status %d", statusCode)
		}
		switch {
		case statusCode == http.StatusForbidden:
			return ErrForbidden{Err: wrapped}
		case statusCode == http.StatusNotFound:
			return ErrNotFound{Err: wrapped}
		case statusCode == http.StatusTooManyRequests:
			return ErrRateLimited{Err: wrapped}
		case statusCode >= http.StatusInternalServerError:
			return ErrServer{Status: statusCode, Err: wrapped}
		}
		if err == nil {
			return wrapped
		}
		return fmt.Errorf("http status %d: %w", statusCode, err)
	}

	return err
}
