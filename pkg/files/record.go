// Package files implements the file-listing pipeline: reading a directory
// snapshot, filtering and ordering the entries, and materializing the
// contents of a page of results.
package files

import (
	"io/fs"
	"time"
)

// Record describes one regular file found in a directory listing.
//
// Records are immutable once constructed and are what a session freezes.
// Timestamps are milliseconds since the Unix epoch.
type Record struct {
	Name         string `json:"name"`
	Path         string `json:"path"`
	LastModified int64  `json:"lastModified"`
	Created      int64  `json:"created"`
	IsFile       bool   `json:"isFile"`
}

// ModTime returns LastModified as a time.Time.
func (r Record) ModTime() time.Time {
	return time.UnixMilli(r.LastModified)
}

// NewRecord builds a Record from a stat result.
func NewRecord(path string, info fs.FileInfo) Record {
	return Record{
		Name:         info.Name(),
		Path:         path,
		LastModified: info.ModTime().UnixMilli(),
		Created:      changeTime(info).UnixMilli(),
		IsFile:       info.Mode().IsRegular(),
	}
}
