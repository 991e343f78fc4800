package browser

import (
	"os"
	"time"

	"github.com/marmos91/filebrowse/pkg/files"
	"github.com/marmos91/filebrowse/pkg/paging"
)

// SessionRef points a listing request at a frozen session.
type SessionRef struct {
	ID     string `validate:"required"`
	Offset int    `validate:"gte=0"`
}

// Settings are the request-scoped listing parameters.
//
// They start from Service.DefaultSettings and are then overridden by the
// request. Settings never outlive the request that built them.
type Settings struct {
	// RemotePath is the directory below the site root. Ignored on resume.
	RemotePath string

	// Limit is the page size in effect.
	Limit int `validate:"gt=0"`

	// Filters is the extension filter (see files.Criteria.Extensions).
	Filters string

	// FileNameFilters are OR-ed name substrings.
	FileNameFilters []string

	LastModified *time.Time

	// Session, when set, resumes a frozen session instead of listing
	// RemotePath.
	Session *SessionRef
}

// Criteria returns the filter criteria described by the settings.
func (s Settings) Criteria() files.Criteria {
	return files.Criteria{
		Extensions:    s.Filters,
		NameFilters:   s.FileNameFilters,
		ModifiedSince: s.LastModified,
	}
}

// PageResult is one page of a listing.
type PageResult struct {
	Files   []files.Payload
	HasMore bool

	// Next is the cursor of the following page; nil on the last page.
	Next *paging.Cursor
}

// NextRecordsURL renders Next as a resume URL, or "" on the last page.
func (p *PageResult) NextRecordsURL() string {
	if p.Next == nil {
		return ""
	}
	return p.Next.Path()
}

func requireDirectory(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return files.NewError(files.ErrDirectoryUnreadable, "cannot access directory", dir, err)
	}
	if !info.IsDir() {
		return files.NewError(files.ErrDirectoryUnreadable, "not a directory", dir, nil)
	}
	return nil
}
