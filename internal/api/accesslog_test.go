package api

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatEntry(t *testing.T) {
	now := time.Date(2024, 5, 1, 8, 30, 15, 0, time.UTC)
	r := httptest.NewRequest(http.MethodGet, "http://files.example.com:7592/api/v1/GetFiles?remotePath=in", nil)
	r.RemoteAddr = "203.0.113.9:51000"

	got := formatEntry(now, r, http.StatusBadRequest, []string{"Missing request headers [Authorization,Site]"})

	want := "2024-05-01 08:30:15 " +
		"203.0.113.9" + strings.Repeat(" ", 29) +
		"GET  " +
		"http  " +
		"files.example.com/api/v1/GetFiles?remotePath=in -> status 400\r\n" +
		"Missing request headers [Authorization,Site]\r\n"
	assert.Equal(t, want, got)
}

func TestFixedWidth(t *testing.T) {
	assert.Equal(t, "ab   ", fixedWidth("ab", 5))
	assert.Equal(t, "abcde", fixedWidth("abcdefg", 5))
	assert.Equal(t, "DELET", fixedWidth(http.MethodDelete, 5))
}

func TestAccessLogRoutesBySite(t *testing.T) {
	dir := t.TempDir()
	errorLog := filepath.Join(dir, "error.log")
	siteLog := filepath.Join(dir, "acme.log")

	l := NewAccessLog(errorLog, map[string]string{"acme": siteLog, "empty": ""})
	l.now = func() time.Time { return time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC) }

	r := httptest.NewRequest(http.MethodGet, "/api/v1/GetFiles", nil)
	l.Write("acme", r, http.StatusOK, nil)
	l.Write("acme", r, http.StatusNotFound, []string{"session expired"})
	l.Write("", r, http.StatusBadRequest, []string{"no site"})
	l.Write("empty", r, http.StatusBadRequest, nil)

	data, err := os.ReadFile(siteLog)
	require.NoError(t, err)
	entries := strings.Split(strings.TrimSuffix(string(data), "\r\n"), "\r\n")
	require.Len(t, entries, 3)
	assert.True(t, strings.HasSuffix(entries[0], " -> status 200"))
	assert.True(t, strings.HasSuffix(entries[1], " -> status 404"))
	assert.Equal(t, "session expired", entries[2])

	data, err = os.ReadFile(errorLog)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), " -> status 400\r\n"))
	assert.Contains(t, string(data), "no site\r\n")
}

func TestAccessLogFromHandler(t *testing.T) {
	dir := t.TempDir()
	siteLog := filepath.Join(dir, "acme.log")
	errorLog := filepath.Join(dir, "error.log")

	f := newFixture(t, func(o *Options) {
		o.AccessLog = NewAccessLog(errorLog, map[string]string{"acme": siteLog})
	})

	// Known site, bad token: logged to the site file
	r := authorized(httptest.NewRequest(http.MethodGet, "/api/v1/GetFiles?remotePath=in", nil))
	r.Header.Set("Authorization", "Bearer nope")
	f.do(t, r)

	// No headers: no site, logged to the error log
	f.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/GetFiles?remotePath=in", nil))

	// Health checks are not logged
	f.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	data, err := os.ReadFile(siteLog)
	require.NoError(t, err)
	assert.Contains(t, string(data), " -> status 401\r\nAuthorization does not match\r\n")
	assert.NotContains(t, string(data), "nope")

	data, err = os.ReadFile(errorLog)
	require.NoError(t, err)
	assert.Contains(t, string(data), " -> status 400\r\nMissing request headers [Authorization,Site]\r\n")
	assert.NotContains(t, string(data), "healthz")
}
