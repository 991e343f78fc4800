// Package paging decides how an ordered result set is cut into pages and
// renders the resume cursor handed back to clients.
package paging

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
)

// ErrOffsetOutOfRange is returned when a resumed fetch asks for an offset at
// or beyond the end of the frozen result set.
var ErrOffsetOutOfRange = errors.New("offset out of range")

// ResumePath is the route prefix of resumed listing requests.
const ResumePath = "/api/v1/GetFiles"

// Window is the half-open range [Start, End) of a page.
type Window struct {
	Start   int
	End     int
	HasMore bool
}

// Len returns the number of items in the window.
func (w Window) Len() int {
	return w.End - w.Start
}

// Split reports whether a fresh result of total items must be frozen in a
// session because it does not fit in a single page of limit items.
func Split(total, limit int) bool {
	return total > limit
}

// Compute returns the window starting at offset.
//
// Returns ErrOffsetOutOfRange when offset >= total, which includes every
// offset into an empty set.
func Compute(total, offset, limit int) (Window, error) {
	if offset < 0 || offset >= total {
		return Window{}, fmt.Errorf("%w: offset %d, total %d", ErrOffsetOutOfRange, offset, total)
	}
	if limit <= 0 {
		return Window{}, fmt.Errorf("invalid page limit %d", limit)
	}

	end := offset + limit
	if end > total {
		end = total
	}
	return Window{Start: offset, End: end, HasMore: end < total}, nil
}

// Cursor identifies the next page of a frozen result set.
type Cursor struct {
	SessionID string
	Offset    int

	// Limit is non-zero only when the page limit in effect differs from the
	// site default, so that the client keeps paging with the same size.
	Limit int
}

// NewCursor builds the cursor pointing at the page after w.
//
// Returns nil when w is the last page.
func NewCursor(sessionID string, w Window, limit, defaultLimit int) *Cursor {
	if !w.HasMore {
		return nil
	}
	c := &Cursor{SessionID: sessionID, Offset: w.End}
	if limit != defaultLimit {
		c.Limit = limit
	}
	return c
}

// Path renders the resume URL path (and query, when a limit is carried).
func (c Cursor) Path() string {
	p := ResumePath + "/" + url.PathEscape(c.SessionID) + "/" + strconv.Itoa(c.Offset)
	if c.Limit != 0 {
		p += "?limit=" + strconv.Itoa(c.Limit)
	}
	return p
}
