package main

import (
	"bytes"
	"errors"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aluiziolira/stockreport/config"
	"github.com/aluiziolira/stockreport/scraper"
	"github.com/google/go-cmp/cmp"
)

const gainersListing = `
<article>
    <tbody>
        <tr><td><a href="/quote/GME">GME</a></td><td>GameStop Corp.</td><td>+99.99%</td></tr>
    </tbody>
</article>`

const gmeStats = `
<article><article><div>
    <section><div>
        <section></section><section></section><section></section><section></section>
        <section><table><tr><td>Total Cash</td><td>123.45B</td></tr></table></section>
    </div></section>
    <section><div>
        <section><table>
            <tr><td>Beta (5Y Monthly)</td><td>2.5</td></tr>
            <tr><td>52-Week Change</td><td>+99.99%</td></tr>
        </table></section>
    </div></section>
</div></article></article>`

const holdersPage = `
<section data-testid="holders-top-institutional-holders">
    <table>
        <thead><tr><th>Holder</th><th>Shares</th><th>Date Reported</th><th>% Out</th><th>Value</th></tr></thead>
        <tbody>
            <tr><td>Vanguard Group Inc</td><td>10.5M</td><td>Mar 30, 2023</td><td>8.50%</td><td>$7.5B</td></tr>
            <tr><td>SSgA Funds Management, Inc.</td><td>5.2M</td><td>Mar 30, 2023</td><td>4.20%</td><td>$3.7B</td></tr>
        </tbody>
    </table>
</section>`

const mostActiveListing = `
<article>
    <tbody>
        <tr><td><a href="/quote/AAPL">AAPL</a></td><td>Apple Inc.</td></tr>
        <tr><td><a href="/quote/TSLA">TSLA</a></td><td>Tesla, Inc.</td></tr>
    </tbody>
</article>`

const tslaProfile = `
<article>
    <div class="company-info">
        <div><div>3500 Deer Creek Road</div><div>United States</div></div>
    </div>
    <dl class="company-stats">
        <div><dt>Sector</dt><dd>Automotive</dd></div>
        <div><dt>Employees</dt><dd>99290</dd></div>
    </dl>
    <table>
        <tbody>
            <tr><td>Mr. Zachary J. Kirkhorn</td><td>Master of Coin</td><td>1985</td></tr>
            <tr><td>Mr. Elon R. Musk</td><td>Technoking of Tesla, CEO & Director</td><td>1971</td></tr>
        </tbody>
    </table>
</article>`

// No officer carries a chief executive title.
const aaplProfile = `
<article>
    <div class="company-info"><div><div>One Apple Park Way</div><div>United States</div></div></div>
    <table>
        <tbody>
            <tr><td>Mr. Luca Maestri</td><td>CFO & Senior VP</td><td>1964</td></tr>
            <tr><td>Ms. Katherine L. Adams</td><td>Senior VP & General Counsel</td><td>1964</td></tr>
        </tbody>
    </table>
</article>`

func writePages(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv(config.EnvConfigFile, "")
	t.Setenv(config.EnvMetricsAddr, "")

	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func readOutput(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestNewRootCmd(t *testing.T) {
	cmd := NewRootCmd()
	if cmd.Use != "stockreport" {
		t.Fatalf("unexpected use %q", cmd.Use)
	}

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
		for _, flag := range []struct{ name, short string }{{"input", "i"}, {"output", "o"}} {
			f := sub.Flags().Lookup(flag.name)
			if f == nil || f.Shorthand != flag.short {
				t.Fatalf("%s: missing -%s/--%s", sub.Name(), flag.short, flag.name)
			}
		}
	}
	if diff := cmp.Diff([]string{"ceo", "gainers", "holders"}, names); diff != "" {
		t.Fatalf("subcommands mismatch (-want +got):\n%s", diff)
	}

	if got := cmd.Commands()[1].Flags().Lookup("input").DefValue; got != "pages" {
		t.Fatalf("input default = %q, want pages", got)
	}
}

func TestReportScenarios(t *testing.T) {
	tests := []struct {
		name   string
		report string
		pages  map[string]string
		want   string
	}{
		{
			name:   "gainers",
			report: "gainers",
			pages: map[string]string{
				"best_year_change.html": gainersListing,
				"GME_stats.html":        gmeStats,
			},
			want: strings.Join([]string{
				"========== 10 stocks with best 52-Week Change =========",
				"| Name           | Code | 52-Week Change | Total Cash |",
				"-------------------------------------------------------",
				"| GameStop Corp. | GME  | +99.99%        | 123.45B    |",
			}, "\n"),
		},
		{
			name:   "holders",
			report: "holders",
			pages:  map[string]string{"blk_holders.html": holdersPage},
			want: strings.Join([]string{
				"================== 10 largest holds of Blackrock Inc. ==================",
				"| Name                        | Shares | Date Reported | % Out | Value |",
				"------------------------------------------------------------------------",
				"| Vanguard Group Inc          | 10.5M  | Mar 30, 2023  | 8.50% | $7.5B |",
				"| SSgA Funds Management, Inc. | 5.2M   | Mar 30, 2023  | 4.20% | $3.7B |",
			}, "\n"),
		},
		{
			name:   "ceo keyword filter",
			report: "ceo",
			pages: map[string]string{
				"main_page.html":    mostActiveListing,
				"TSLA_profile.html": tslaProfile,
				"AAPL_profile.html": aaplProfile,
			},
			want: strings.Join([]string{
				"============================ 5 stocks with youngest CEOs ============================",
				"| Name        | Code | Country       | Employees | CEO Name         | CEO Year Born |",
				"-------------------------------------------------------------------------------------",
				"| Tesla, Inc. | TSLA | United States | 99290     | Mr. Elon R. Musk | 1971          |",
			}, "\n"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writePages(t, tt.pages)
			output := filepath.Join(t.TempDir(), "report.txt")

			summary, err := execute(t, tt.report, "-i", dir, "-o", output)
			if err != nil {
				t.Fatalf("execute: %v", err)
			}
			if diff := cmp.Diff(tt.want, readOutput(t, output)); diff != "" {
				t.Fatalf("report mismatch (-want +got):\n%s", diff)
			}
			if !strings.Contains(summary, output) || !strings.Contains(summary, "offline") {
				t.Fatalf("summary does not describe the run:\n%s", summary)
			}
		})
	}
}

func TestEmptyInputWritesNothing(t *testing.T) {
	tests := []struct {
		name  string
		pages map[string]string
	}{
		{name: "empty listing", pages: map[string]string{"best_year_change.html": ""}},
		{name: "malformed listing", pages: map[string]string{"best_year_change.html": "<article><p>market closed"}},
		{name: "no detail pages", pages: map[string]string{"best_year_change.html": gainersListing}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writePages(t, tt.pages)
			output := filepath.Join(t.TempDir(), "best_year_change.txt")

			summary, err := execute(t, "gainers", "--input", dir, "--output", output)
			if err != nil {
				t.Fatalf("empty runs must succeed, got %v", err)
			}
			if _, err := os.Stat(output); !errors.Is(err, fs.ErrNotExist) {
				t.Fatalf("expected no output file, stat err = %v", err)
			}
			if !strings.Contains(summary, "no file") {
				t.Fatalf("summary must report the missing file:\n%s", summary)
			}
		})
	}
}

func TestEmptyRunKeepsExistingOutput(t *testing.T) {
	const previous = "========== previous report =========="
	dir := writePages(t, map[string]string{"best_year_change.html": "<article><p>market closed"})
	output := filepath.Join(t.TempDir(), "best_year_change.txt")
	if err := os.WriteFile(output, []byte(previous), 0o644); err != nil {
		t.Fatalf("seed output: %v", err)
	}

	if _, err := execute(t, "gainers", "-i", dir, "-o", output); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got := readOutput(t, output); got != previous {
		t.Fatalf("existing output was modified: %q", got)
	}
}

func TestOutputFormatFollowsExtension(t *testing.T) {
	dir := writePages(t, map[string]string{"blk_holders.html": holdersPage})
	output := filepath.Join(t.TempDir(), "holders.csv")

	if _, err := execute(t, "holders", "-i", dir, "-o", output); err != nil {
		t.Fatalf("execute: %v", err)
	}
	content := readOutput(t, output)
	if !strings.HasPrefix(content, "Name,Shares,Date Reported,% Out,Value\n") {
		t.Fatalf("unexpected csv:\n%s", content)
	}
	if !strings.Contains(content, `"SSgA Funds Management, Inc.",5.2M`) {
		t.Fatalf("csv missing quoted holder:\n%s", content)
	}
}

func TestFatalErrors(t *testing.T) {
	t.Run("missing listing", func(t *testing.T) {
		output := filepath.Join(t.TempDir(), "out.txt")
		_, err := execute(t, "gainers", "-i", t.TempDir(), "-o", output)
		var notFound scraper.ErrNotFound
		if !errors.As(err, &notFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if _, statErr := os.Stat(output); !errors.Is(statErr, fs.ErrNotExist) {
			t.Fatalf("no file may be written on failure")
		}
	})

	t.Run("empty input", func(t *testing.T) {
		if _, err := execute(t, "ceo", "-i", ""); !errors.Is(err, config.ErrEmptyInput) {
			t.Fatalf("expected ErrEmptyInput, got %v", err)
		}
	})

	t.Run("unexpected argument", func(t *testing.T) {
		if _, err := execute(t, "holders", "extra"); err == nil {
			t.Fatalf("expected an error for positional arguments")
		}
	})
}

func TestOnlineGainers(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/markets/stocks/52-week-gainers/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(gainersListing))
	})
	mux.HandleFunc("/quote/GME/key-statistics/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(gmeStats))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	output := filepath.Join(t.TempDir(), "gainers.json")
	summary, err := execute(t, "gainers", "-i", srv.URL, "-o", output)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	content := readOutput(t, output)
	for _, want := range []string{`"GameStop Corp."`, `"+99.99%"`, `"123.45B"`} {
		if !strings.Contains(content, want) {
			t.Fatalf("json missing %s:\n%s", want, content)
		}
	}
	if !strings.Contains(summary, "online") {
		t.Fatalf("summary must report online mode:\n%s", summary)
	}
}
