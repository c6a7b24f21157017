package parser

import (
	"regexp"
	"strings"
	"testing"

	"github.com/aluiziolira/stockreport/models"
)

const statsFixture = `
<article>
    <h1>GameStop Corp. (GME)</h1>
    <article>
        <div>
            <section>
                <div>
                    <section></section>
                    <section><table><tr><td>Nested</td><td>skip</td></tr></table></section>
                </div>
            </section>
            <section>
                <div>
                    <section>
                        <table>
                            <tr><td>Beta (5Y Monthly)</td><td>2.5</td></tr>
                            <tr><td>52-Week Change</td><td>+99.99%</td></tr>
                        </table>
                    </section>
                </div>
            </section>
        </div>
    </article>
</article>`

func mustParse(t *testing.T, markup string) *Document {
	t.Helper()
	doc, err := ParseString(markup)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

func TestParseKeepsFragmentStructure(t *testing.T) {
	doc := mustParse(t, `<article><tbody><tr><td><a href="/quote/GME">GME</a></td><td>GameStop Corp.</td></tr></tbody></article>`)

	cell, ok := doc.Resolve(Path{Find("article"), Find("tbody"), Find("tr"), FindNth("td", 1)})
	if !ok {
		t.Fatalf("expected tbody rows to survive outside a table")
	}
	if got := CellText(cell); got != "GameStop Corp." {
		t.Fatalf("cell text = %q, want %q", got, "GameStop Corp.")
	}

	anchor, ok := doc.Resolve(Path{Find("tbody"), Find("a")})
	if !ok {
		t.Fatalf("expected anchor")
	}
	if href, _ := anchor.Attr("href"); href != "/quote/GME" {
		t.Fatalf("href = %q, want /quote/GME", href)
	}
}

func TestParseTolerance(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		path   Path
		want   string
		wantOK bool
	}{
		{
			name:   "stray end tag ignored",
			markup: `<div></span><p>kept</p></div>`,
			path:   Path{Find("div"), Child("p", 0)},
			want:   "kept",
			wantOK: true,
		},
		{
			name:   "end tag closes nearest open match",
			markup: `<section><div><b>bold</section><p>after</p>`,
			path:   Path{Child("p", 0)},
			want:   "after",
			wantOK: true,
		},
		{
			name:   "void elements do not nest",
			markup: `<div><br><img src="x.png"><span>text</span></div>`,
			path:   Path{Find("div"), Child("span", 0)},
			want:   "text",
			wantOK: true,
		},
		{
			name:   "entities decoded",
			markup: `<td>AT&amp;T</td>`,
			path:   Path{Find("td")},
			want:   "AT&T",
			wantOK: true,
		},
		{
			name:   "empty input",
			markup: ``,
			path:   Path{Find("article")},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := mustParse(t, tt.markup)
			sel, ok := doc.Resolve(tt.path)
			if ok != tt.wantOK {
				t.Fatalf("resolve ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && CellText(sel) != tt.want {
				t.Fatalf("text = %q, want %q", CellText(sel), tt.want)
			}
		})
	}
}

func TestPathResolve(t *testing.T) {
	doc := mustParse(t, statsFixture)
	sections := Path{Find("article"), Find("article"), Find("div")}

	tests := []struct {
		name   string
		path   Path
		want   string
		wantOK bool
	}{
		{
			name:   "positional child hops",
			path:   sections.Then(Child("section", 1), Find("div"), Child("section", 0), Find("table"), FindNth("tr", 1), FindNth("td", 1)),
			want:   "+99.99%",
			wantOK: true,
		},
		{
			name:   "negative index counts from end",
			path:   sections.Then(Child("section", -1), Find("tr"), FindNth("td", -1)),
			want:   "2.5",
			wantOK: true,
		},
		{
			name:   "child index out of range",
			path:   sections.Then(Child("section", 0), Find("div"), Child("section", 4)),
			wantOK: false,
		},
		{
			name:   "descendant search crosses levels",
			path:   Path{FindNth("section", 2), Find("td")},
			want:   "Nested",
			wantOK: true,
		},
		{
			name:   "missing tag",
			path:   Path{Find("article"), Find("h2")},
			wantOK: false,
		},
		{
			name:   "text predicate",
			path:   Path{FindWhere("td", TextMatches(regexp.MustCompile(`(?i)^52-week`)))},
			want:   "52-Week Change",
			wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, ok := doc.Resolve(tt.path)
			if ok != tt.wantOK {
				t.Fatalf("resolve ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && CellText(sel) != tt.want {
				t.Fatalf("text = %q, want %q", CellText(sel), tt.want)
			}
		})
	}
}

func TestAttributePredicates(t *testing.T) {
	doc := mustParse(t, `
<div class="summary"><span>skip</span></div>
<div class="company-info_x8 yf-1"><span>info</span></div>
<section data-testid="holders-top-institutional-holders"><span>holders</span></section>`)

	tests := []struct {
		name string
		path Path
		want string
	}{
		{name: "class prefix", path: Path{FindWhere("div", ClassPrefix("company-info")), Find("span")}, want: "info"},
		{name: "attribute equals", path: Path{FindWhere("section", AttrEquals("data-testid", "holders-top-institutional-holders")), Find("span")}, want: "holders"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, ok := doc.Resolve(tt.path)
			if !ok {
				t.Fatalf("expected match")
			}
			if got := CellText(sel); got != tt.want {
				t.Fatalf("text = %q, want %q", got, tt.want)
			}
		})
	}

	if _, ok := doc.Resolve(Path{FindWhere("div", ClassPrefix("x8"))}); ok {
		t.Fatalf("class prefix must match token starts only")
	}
}

func TestParseIdenticalForIdenticalMarkup(t *testing.T) {
	a := mustParse(t, statsFixture)
	b, err := Parse(strings.NewReader(statsFixture))
	if err != nil {
		t.Fatalf("parse reader: %v", err)
	}
	if a.Text() != b.Text() {
		t.Fatalf("documents differ: %q vs %q", a.Text(), b.Text())
	}
}

func TestValidateRecord(t *testing.T) {
	columns := []string{"Name", "Code"}
	tests := []struct {
		name    string
		record  models.Record
		wantErr bool
	}{
		{
			name:    "matching columns",
			record:  models.NewRecord(columns, []string{"GameStop Corp.", "GME"}),
			wantErr: false,
		},
		{
			name:    "missing field",
			record:  models.NewRecord([]string{"Name"}, []string{"GameStop Corp."}),
			wantErr: true,
		},
		{
			name:    "reordered",
			record:  models.NewRecord([]string{"Code", "Name"}, []string{"GME", "GameStop Corp."}),
			wantErr: true,
		},
		{
			name:    "blank name",
			record:  models.Record{Fields: []models.Field{{Name: " ", Value: "x"}, {Name: "Code", Value: "GME"}}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRecord(tt.record, columns)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRecord() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{input: "  Mar 30, 2023 ", expected: "Mar 30, 2023"},
		{input: "\n\t99290\n", expected: "99290"},
		{input: "", expected: ""},
	}

	for _, tt := range tests {
		if got := NormalizeText(tt.input); got != tt.expected {
			t.Errorf("NormalizeText(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
