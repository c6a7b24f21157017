package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aluiziolira/stockreport/config"
	"github.com/aluiziolira/stockreport/models"
	"github.com/aluiziolira/stockreport/pipeline"
	"github.com/aluiziolira/stockreport/reports"
	"github.com/aluiziolira/stockreport/scraper"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func runReport(ctx context.Context, out io.Writer, cfg *config.Config, r reports.Report) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, level := newLogger(cfg.Verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := scraper.NewMetrics()
	p, pages, err := r.Build(cfg, metrics)
	if err != nil {
		return err
	}

	if cfg.MetricsAddr != "" {
		srv := serveMetrics(cfg.MetricsAddr, metrics)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown failed", slog.Any("error", err))
			}
		}()
	}

	slog.Info("starting report",
		slog.String("report", r.Definition.Name),
		slog.String("input", cfg.Input),
		slog.Bool("online", pages.Online()),
		slog.Int("workers", cfg.Parallelism),
	)

	report, err := p.Run(ctx)
	if err != nil {
		return fmt.Errorf("%s report: %w", r.Definition.Name, err)
	}
	stats := p.Stats()

	output := r.Output(cfg)
	if err := pipeline.NewWriter(output, stats.RunID).Write(report); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}
	if report.Empty() {
		slog.Info("no records extracted, nothing written", slog.String("report", r.Definition.Name))
		output = ""
	}

	printSummary(out, r, pages, report, stats, output)
	return nil
}

func serveMetrics(addr string, metrics *scraper.Metrics) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", slog.Any("error", err))
		}
	}()
	slog.Info("metrics server enabled", slog.String("addr", addr))
	return srv
}

func printSummary(out io.Writer, r reports.Report, pages *scraper.Pages, report *models.Report, stats models.RunStats, output string) {
	mode := "offline"
	if pages.Online() {
		mode = "online"
	}
	retries := 0
	if web, ok := pages.Source().(*scraper.WebSource); ok {
		retries = web.TotalRetries()
	}
	skipped := 0
	for _, n := range stats.Skipped {
		skipped += n
	}
	if output == "" {
		output = "no file"
	}

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetTitle(report.Title)
	t.AppendRows([]table.Row{
		{"Report", r.Definition.Name},
		{"Mode", mode},
		{"Records", len(report.Records)},
		{"Scanned", stats.Scanned},
		{"Skipped", skipped},
		{"Degraded cells", stats.DegradedCells},
		{"Retries", retries},
		{"Duration", stats.EndTime.Sub(stats.StartTime).Round(time.Millisecond)},
		{"Output", output},
	})
	t.SetStyle(table.StyleRounded)
	t.Render()
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stderr) {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
