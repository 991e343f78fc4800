package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/marmos91/filebrowse/internal/logger"
	"github.com/marmos91/filebrowse/pkg/browser"
	"github.com/marmos91/filebrowse/pkg/files"
	"github.com/marmos91/filebrowse/pkg/paging"
	"github.com/marmos91/filebrowse/pkg/session"
	"github.com/marmos91/filebrowse/pkg/upload"
)

// listResponse is the body of a successful listing.
type listResponse struct {
	Files          []files.Payload `json:"files"`
	HasMore        bool            `json:"hasMore"`
	NextRecordsURL string          `json:"nextRecordsUrl,omitempty"`
}

func (h *Handler) handleGetFiles(w http.ResponseWriter, r *http.Request) {
	req, ok := h.prepare(w, r)
	if !ok {
		return
	}

	page, err := req.service.ListFiles(r.Context(), req.settings)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	resp := listResponse{
		Files:          page.Files,
		HasMore:        page.HasMore,
		NextRecordsURL: page.NextRecordsURL(),
	}
	if resp.Files == nil {
		resp.Files = []files.Payload{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handlePostFiles(w http.ResponseWriter, r *http.Request) {
	req, ok := h.prepare(w, r)
	if !ok {
		return
	}

	var batch []upload.File
	raw, ok := req.fields["files"]
	if !ok || json.Unmarshal(raw, &batch) != nil || batch == nil {
		exchangeFrom(r.Context()).note("Missing [files] parameter")
		writeError(w, http.StatusBadRequest, "Error in request", "Missing [files] parameter")
		return
	}

	result, err := req.service.PostFiles(r.Context(), req.settings.RemotePath, batch)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	ex := exchangeFrom(r.Context())
	for _, fr := range result.Files {
		if fr.HasError {
			ex.note("%s: %s", fr.Name, fr.Message)
		}
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeServiceError maps a browser service error to a response.
//
//	404: directory unreadable, session not found
//	400: offset out of range, invalid settings
//	500: anything else
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	exchangeFrom(r.Context()).note("%v", err)

	status, message := classify(err)
	if status == http.StatusInternalServerError {
		logger.Error("Request failed: %s %s: %v", r.Method, r.URL.Path, err)
	}
	writeError(w, status, "Error in request", message)
}

// classify returns the status code and client message of err. Messages of
// typed file errors leave out server paths.
func classify(err error) (int, string) {
	var fe *files.Error
	switch {
	case files.IsCode(err, files.ErrDirectoryUnreadable):
		errors.As(err, &fe)
		return http.StatusNotFound, fe.Message
	case errors.Is(err, session.ErrSessionNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, paging.ErrOffsetOutOfRange):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, browser.ErrInvalidSettings):
		return http.StatusBadRequest, "Invalid request settings"
	case errors.As(err, &fe):
		return http.StatusInternalServerError, fe.Message
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}
