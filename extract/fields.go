package extract

import (
	"regexp"

	"github.com/aluiziolira/stockreport/parser"
)

// Key statistics page: two top-level sections (financials, trading info),
// each holding a div of subsections with one table apiece.
var statsSections = parser.Path{parser.Find("article"), parser.Find("article"), parser.Find("div")}

var (
	// YearChangePath is trading info → stock price history → row 2, value cell.
	YearChangePath = statsSections.Then(
		parser.Child("section", 1), parser.Find("div"), parser.Child("section", 0),
		parser.Find("table"), parser.FindNth("tr", 1), parser.FindNth("td", 1),
	)
	// TotalCashPath is financials → balance sheet → row 1, value cell.
	TotalCashPath = statsSections.Then(
		parser.Child("section", 0), parser.Find("div"), parser.Child("section", 4),
		parser.Find("table"), parser.FindNth("tr", 0), parser.FindNth("td", 1),
	)
)

// KeyStatistics returns the extractors for a company's key-statistics page.
func KeyStatistics() Registry {
	return Registry{
		"52-Week Change": Text(YearChangePath),
		"Total Cash":     Text(TotalCashPath),
		"Quote Name":     QuoteName,
		"Quote Code":     QuoteCode,
	}
}

// CEOPattern matches officer titles naming the chief executive.
var CEOPattern = regexp.MustCompile(`(?i)\b(CEO|Chief Executive Officer)\b`)

var (
	// CountryPath is the last address line of the company info block.
	CountryPath = parser.Path{
		parser.FindWhere("div", parser.ClassPrefix("company-info")),
		parser.Find("div"), parser.FindNth("div", -1),
	}
	// EmployeesPath is the value of the last company stats entry.
	EmployeesPath = parser.Path{
		parser.FindWhere("dl", parser.ClassPrefix("company-stats")),
		parser.FindNth("div", -1), parser.Find("dd"),
	}
	// ExecutiveSearch finds the CEO row of the key executives table.
	ExecutiveSearch = Search{
		Rows:    parser.Path{parser.Find("table"), parser.Find("tbody")},
		Label:   1,
		Pattern: CEOPattern,
	}
)

// Profile returns the extractors for a company's profile page.
func Profile() Registry {
	return Registry{
		"Country":       Text(CountryPath),
		"Employees":     Text(EmployeesPath),
		"CEO Name":      ExecutiveSearch.Cell(0),
		"CEO Year Born": ExecutiveSearch.Cell(-1),
		"Quote Name":    QuoteName,
		"Quote Code":    QuoteCode,
	}
}

// HoldersRows is the body of the top institutional holders table.
var HoldersRows = parser.Path{
	parser.FindWhere("section", parser.AttrEquals("data-testid", "holders-top-institutional-holders")),
	parser.Find("tbody"),
}

// HolderColumns names the holders table cells in order.
var HolderColumns = []string{"Name", "Shares", "Date Reported", "% Out", "Value"}
