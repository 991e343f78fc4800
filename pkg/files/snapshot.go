package files

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// ReadDirectory returns a Record for every regular file directly inside dir.
//
// Symlinks are followed. Subdirectories and other non-regular entries are
// omitted. Entries that vanish between the listing and the stat are skipped.
// The order of the result is the order the filesystem enumerated entries in
// and callers should not depend on it.
//
// Returns ErrDirectoryUnreadable if dir cannot be listed.
func ReadDirectory(dir string) ([]Record, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, NewError(ErrDirectoryUnreadable, "cannot read directory", dir, err)
	}

	records := make([]Record, 0, len(entries))
	for _, entry := range entries {
		full := filepath.Join(dir, entry.Name())

		info, err := os.Stat(full)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, NewError(ErrDirectoryUnreadable, "cannot stat directory entry", full, err)
		}
		if !info.Mode().IsRegular() {
			continue
		}

		rec := NewRecord(full, info)
		records = append(records, rec)
	}

	return records, nil
}
