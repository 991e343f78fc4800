package api

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/marmos91/filebrowse/pkg/browser"
)

// request is a validated API request.
type request struct {
	service  *browser.Service
	settings browser.Settings

	// fields is the decoded top-level JSON object of a POST body
	fields map[string]json.RawMessage
}

// rejection is a failed validation step.
type rejection struct {
	status  int
	message string
}

func reject(status int, format string, args ...any) *rejection {
	return &rejection{status: status, message: fmt.Sprintf(format, args...)}
}

// prepare validates r and builds its settings. On failure the error
// response is already written and prepare returns false.
//
// Validation steps, first failure wins:
//  1. Site and Authorization headers are present
//  2. Site names a configured site
//  3. request parameters build valid settings
//  4. Authorization matches the configured token
//  5. POST only: JSON content type and a non-empty body
func (h *Handler) prepare(w http.ResponseWriter, r *http.Request) (*request, bool) {
	ex := exchangeFrom(r.Context())

	req, rej := h.validate(r, ex)
	if rej != nil {
		ex.note("%s", rej.message)
		writeError(w, rej.status, "Invalid request", "Error in request")
		return nil, false
	}
	return req, true
}

func (h *Handler) validate(r *http.Request, ex *exchange) (*request, *rejection) {
	siteName := r.Header.Get("Site")
	authorization := r.Header.Get("Authorization")
	if siteName == "" || authorization == "" {
		return nil, reject(http.StatusBadRequest, "Missing request headers [Authorization,Site]")
	}

	svc, ok := h.sites.Get(siteName)
	if !ok {
		return nil, reject(http.StatusBadRequest, "Site [%s] was not found in config.sites", siteName)
	}
	ex.site = svc.Site()

	req := &request{service: svc}

	var bodyErr error
	if r.Method == http.MethodPost {
		req.fields, bodyErr = readBody(r)
		if tooLarge := (*http.MaxBytesError)(nil); errors.As(bodyErr, &tooLarge) {
			return nil, reject(http.StatusRequestEntityTooLarge, "Request body exceeds %d bytes", tooLarge.Limit)
		}
	}

	settings, err := buildSettings(svc.DefaultSettings(), r, req.fields)
	if err != nil {
		return nil, reject(http.StatusBadRequest, "Error occured while reading site settings: %v", err)
	}
	req.settings = settings

	if subtle.ConstantTimeCompare([]byte(authorization), []byte(h.authorization)) != 1 {
		return nil, reject(http.StatusUnauthorized, "Authorization does not match")
	}

	if r.Method == http.MethodPost {
		mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil || mediaType != "application/json" {
			return nil, reject(http.StatusBadRequest, "Header Content-Type was missing or does not match application/json")
		}
		if bodyErr != nil {
			return nil, reject(http.StatusBadRequest, "Request body could not be decoded: %v", bodyErr)
		}
		if len(req.fields) == 0 {
			return nil, reject(http.StatusBadRequest, "No body was received in request")
		}
	}

	return req, nil
}

// readBody decodes a JSON object body into its top-level fields. An empty
// body yields no fields and no error.
func readBody(r *http.Request) (map[string]json.RawMessage, error) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// param returns a path parameter, falling back to the query string.
func param(r *http.Request, name string) string {
	if v := r.PathValue(name); v != "" {
		return v
	}
	return r.URL.Query().Get(name)
}

// buildSettings applies the request parameters to the site defaults.
func buildSettings(settings browser.Settings, r *http.Request, fields map[string]json.RawMessage) (browser.Settings, error) {
	// Only listings resume sessions
	var sessionID string
	if r.Method == http.MethodGet {
		sessionID = param(r, "sessionId")
	}

	if remotePath := param(r, "remotePath"); remotePath != "" {
		settings.RemotePath = remotePath
	} else if raw, ok := fields["remotePath"]; ok {
		if err := json.Unmarshal(raw, &settings.RemotePath); err != nil {
			return settings, errors.New("invalid [remotePath] parameter")
		}
	} else if sessionID == "" {
		return settings, errors.New("missing [remotePath] parameter")
	}

	if v := param(r, "limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 {
			return settings, fmt.Errorf("invalid [limit] parameter %q", v)
		}
		// The site limit is also the maximum page size
		if limit < settings.Limit {
			settings.Limit = limit
		}
	}

	if v := param(r, "filters"); v != "" {
		settings.Filters = v
	}

	if v := param(r, "fileNameFilters"); v != "" {
		settings.FileNameFilters = splitList(v)
	}

	if v := param(r, "lastModified"); v != "" {
		t, err := parseLastModified(v)
		if err != nil {
			return settings, err
		}
		settings.LastModified = &t
	}

	if sessionID != "" {
		ref := &browser.SessionRef{ID: sessionID}
		if v := param(r, "offset"); v != "" {
			offset, err := strconv.Atoi(v)
			if err != nil || offset < 0 {
				return settings, fmt.Errorf("invalid [offset] parameter %q", v)
			}
			ref.Offset = offset
		}
		settings.Session = ref
	}

	return settings, nil
}

// splitList splits a comma separated list, dropping empty items.
func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// lastModifiedLayouts are tried in order. A date-only value is UTC
// midnight, a date-time without offset is local time.
var lastModifiedLayouts = []struct {
	layout string
	loc    *time.Location
}{
	{time.RFC3339Nano, time.Local},
	{"2006-01-02T15:04:05", time.Local},
	{"2006-01-02", time.UTC},
}

// parseLastModified accepts RFC 3339, a local date-time, a date or epoch
// milliseconds.
func parseLastModified(v string) (time.Time, error) {
	for _, l := range lastModifiedLayouts {
		if t, err := time.ParseInLocation(l.layout, v, l.loc); err == nil {
			return t, nil
		}
	}
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.UnixMilli(ms), nil
	}
	return time.Time{}, fmt.Errorf("invalid [lastModified] parameter %q", v)
}
