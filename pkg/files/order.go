package files

import "sort"

// SortByModified orders records by LastModified, newest first.
//
// The sort is stable: records with equal timestamps keep their relative
// order. The slice is sorted in place and returned for convenience.
func SortByModified(records []Record) []Record {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].LastModified > records[j].LastModified
	})
	return records
}
