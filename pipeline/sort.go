package pipeline

import (
	"sort"
	"strconv"
	"strings"

	"github.com/aluiziolira/stockreport/models"
)

// SortDescending orders records by the integer value of column, largest
// first. Values that are not integers, the sentinel included, go last in
// their input order. Equal values keep their relative order.
func SortDescending(records []models.Record, column string) {
	sort.SliceStable(records, func(i, j int) bool {
		a, aok := intValue(records[i], column)
		b, bok := intValue(records[j], column)
		switch {
		case aok && bok:
			return a > b
		case aok:
			return true
		default:
			return false
		}
	})
}

func intValue(r models.Record, column string) (int64, bool) {
	v, ok := r.Get(column)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.ReplaceAll(strings.TrimSpace(v), ",", ""), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
