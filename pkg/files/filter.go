package files

import (
	"strings"
	"time"
)

// Criteria selects which records of a directory snapshot are returned.
//
// Every criterion is optional; the zero value keeps all records.
type Criteria struct {
	// Extensions is matched case-insensitively by substring: a record is kept
	// when its extension (without the dot) occurs anywhere in this string.
	// For example "xml,json" keeps ".xml", ".json" and also ".js".
	Extensions string

	// NameFilters keeps a record whose name contains any of the substrings.
	NameFilters []string

	// ModifiedSince keeps records modified at or after this instant.
	ModifiedSince *time.Time
}

// Extension returns the lowercased extension of name without its dot.
//
// A name whose only dot is its first character (".env") and a name ending
// in a dot ("file.") have no extension.
func Extension(name string) string {
	idx := strings.LastIndexByte(name, '.')
	if idx <= 0 {
		return ""
	}
	return strings.ToLower(name[idx+1:])
}

// Apply returns the records matching every criterion, preserving order.
//
// The input slice is not modified.
func (c Criteria) Apply(records []Record) []Record {
	exts := strings.ToLower(c.Extensions)

	names := make([]string, 0, len(c.NameFilters))
	for _, n := range c.NameFilters {
		names = append(names, strings.ToLower(n))
	}

	var since int64
	if c.ModifiedSince != nil {
		since = c.ModifiedSince.UnixMilli()
	}

	out := make([]Record, 0, len(records))
	for _, r := range records {
		if exts != "" {
			ext := Extension(r.Name)
			if ext == "" || !strings.Contains(exts, ext) {
				continue
			}
		}
		if len(names) > 0 && !containsAny(strings.ToLower(r.Name), names) {
			continue
		}
		if c.ModifiedSince != nil && r.LastModified < since {
			continue
		}
		out = append(out, r)
	}
	return out
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
