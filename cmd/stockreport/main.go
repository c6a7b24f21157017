// Package main provides the stockreport CLI.
//
// Usage:
//
//	stockreport gainers [-i pages] [-o best_year_change.txt]
//	stockreport holders [-i https://finance.yahoo.com]
//	stockreport ceo -o ceo.md
//
// The input is either a directory of saved pages or a base URL.
package main

func main() {
	Execute()
}
