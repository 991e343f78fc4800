//go:build !linux && !darwin

package files

import (
	"io/fs"
	"time"
)

// changeTime falls back to the modification time where the platform does
// not expose an inode change time through os.Stat.
func changeTime(info fs.FileInfo) time.Time {
	return info.ModTime()
}
