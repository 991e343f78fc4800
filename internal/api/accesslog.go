package api

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/marmos91/filebrowse/internal/logger"
)

// AccessLog appends one entry per request to the log file of the request's
// site, or to the server error log when no site could be determined.
//
// Entry format:
//
//	2006-01-02 15:04:05 <ip, 40 wide><method, 5 wide><scheme, 6 wide><host><uri> -> status <code>\r\n
//	<one line per collected message>\r\n
//
// Entries without a destination file go through the process logger.
type AccessLog struct {
	errorLog string
	siteLogs map[string]string
	now      func() time.Time

	// mu serializes appends so entries never interleave
	mu sync.Mutex
}

// NewAccessLog creates an AccessLog. siteLogs maps site names to log file
// paths; sites without an entry (or with an empty path) fall back to errorLog.
func NewAccessLog(errorLog string, siteLogs map[string]string) *AccessLog {
	logs := make(map[string]string, len(siteLogs))
	for site, path := range siteLogs {
		if path != "" {
			logs[site] = path
		}
	}
	return &AccessLog{
		errorLog: errorLog,
		siteLogs: logs,
		now:      time.Now,
	}
}

// Write records one request.
func (l *AccessLog) Write(site string, r *http.Request, status int, messages []string) {
	entry := formatEntry(l.now(), r, status, messages)

	path := l.errorLog
	if p, ok := l.siteLogs[site]; ok {
		path = p
	}
	if path == "" {
		logger.Info("%s", strings.TrimRight(strings.ReplaceAll(entry, "\r\n", "\n"), "\n"))
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := appendFile(path, entry); err != nil {
		logger.Warn("Failed to write access log %s: %v", path, err)
		logger.Info("%s", strings.TrimRight(strings.ReplaceAll(entry, "\r\n", "\n"), "\n"))
	}
}

func appendFile(path, data string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(data); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func formatEntry(now time.Time, r *http.Request, status int, messages []string) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}

	host := r.Host
	if h, _, err := net.SplitHostPort(r.Host); err == nil {
		host = h
	}

	var b strings.Builder
	b.WriteString(now.Format("2006-01-02 15:04:05"))
	b.WriteByte(' ')
	b.WriteString(fixedWidth(clientIP(r.RemoteAddr), 40))
	b.WriteString(fixedWidth(r.Method, 5))
	b.WriteString(fixedWidth(scheme, 6))
	b.WriteString(host)
	b.WriteString(r.URL.RequestURI())
	fmt.Fprintf(&b, " -> status %d\r\n", status)
	for _, m := range messages {
		b.WriteString(m)
		b.WriteString("\r\n")
	}
	return b.String()
}

// fixedWidth pads s with spaces to width, truncating longer values.
func fixedWidth(s string, width int) string {
	if len(s) >= width {
		return s[:width]
	}
	return s + strings.Repeat(" ", width-len(s))
}
