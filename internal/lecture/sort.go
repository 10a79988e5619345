package lecture

import "sort"

// SortByDateDesc orders records newest first. Records without a date are
// never reordered relative to their neighbours, so equal or missing dates
// keep load order.
func SortByDateDesc(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !a.HasDate() || !b.HasDate() {
			return false
		}
		return a.Date > b.Date
	})
}
