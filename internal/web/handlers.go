package web

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/sheetwatch/internal/core"
	"github.com/JonMunkholm/sheetwatch/internal/export"
	"github.com/JonMunkholm/sheetwatch/internal/logging"
	"github.com/JonMunkholm/sheetwatch/internal/notify"
	"github.com/JonMunkholm/sheetwatch/internal/source"
	"github.com/JonMunkholm/sheetwatch/internal/web/templates"
)

// Page sizes for history listings.
const (
	DefaultHistoryLimit = 50
	PageHistoryLimit    = 20
)

// statusResponse is the reply to every settings and lifecycle command.
type statusResponse struct {
	core.Status
	Report  string `json:"report"`
	Warning string `json:"warning,omitempty"`
}

func (s *Server) respondStatus(w http.ResponseWriter, r *http.Request, warning string) {
	st := s.service.Status(userKey(r))
	writeJSON(w, r, http.StatusOK, statusResponse{
		Status:  st,
		Report:  st.String(),
		Warning: warning,
	})
}

// parseIntParam parses a positive integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// ----------------------------------------------------------------------------
// Health and pages
// ----------------------------------------------------------------------------

type healthResponse struct {
	Status   string                `json:"status"`
	Sessions int                   `json:"sessions"`
	Database string                `json:"database,omitempty"`
	Fetch    *source.LimiterStatus `json:"fetch,omitempty"`
}

// handleHealth reports liveness, session count and fetch slot usage.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:   "ok",
		Sessions: s.service.Registry().Len(),
	}
	if s.fetch != nil {
		st := s.fetch.Status()
		resp.Fetch = &st
	}

	status := http.StatusOK
	if s.ping != nil {
		resp.Database = "ok"
		if err := s.ping(r.Context()); err != nil {
			logging.FromContext(r.Context()).Error("database ping failed", "error", err)
			resp.Status = "degraded"
			resp.Database = "unavailable"
			status = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, r, status, resp)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.Dashboard(s.service.Statuses()).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render dashboard", "error", err)
	}
}

func (s *Server) handleStatusPage(w http.ResponseWriter, r *http.Request) {
	key := userKey(r)
	history, err := s.service.History(r.Context(), key, PageHistoryLimit)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	params := templates.StatusPageParams{
		Status:  s.service.Status(key),
		History: history,
	}
	if s.inbox != nil {
		params.Pending = s.inbox.Pending(key)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.StatusPage(params).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render status page", "error", err)
	}
}

// ----------------------------------------------------------------------------
// Status and settings
// ----------------------------------------------------------------------------

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"users": s.service.Statuses(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.respondStatus(w, r, "")
}

func (s *Server) handleSetSheet(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL   string `json:"url"`
		Sheet string `json:"sheet"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	if err := s.service.SetSheet(r.Context(), userKey(r), req.URL, req.Sheet); err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	s.respondStatus(w, r, "")
}

func (s *Server) handleSetInterval(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Seconds int `json:"seconds"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	warning, err := s.service.SetInterval(r.Context(), userKey(r), req.Seconds)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	s.respondStatus(w, r, warning)
}

func (s *Server) handleSetThreshold(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Threshold int `json:"threshold"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	if err := s.service.SetThreshold(r.Context(), userKey(r), req.Threshold); err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	s.respondStatus(w, r, "")
}

func (s *Server) handleSetFormat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Format string `json:"format"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	if err := s.service.SetFormat(r.Context(), userKey(r), req.Format); err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	s.respondStatus(w, r, "")
}

func (s *Server) handleSetColumns(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Columns []string `json:"columns"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	s.service.SetColumns(r.Context(), userKey(r), req.Columns)
	s.respondStatus(w, r, "")
}

func (s *Server) handleResetColumns(w http.ResponseWriter, r *http.Request) {
	s.service.SetColumns(r.Context(), userKey(r), nil)
	s.respondStatus(w, r, "")
}

// ----------------------------------------------------------------------------
// Lifecycle
// ----------------------------------------------------------------------------

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Start(r.Context(), userKey(r)); err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	s.respondStatus(w, r, "")
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.service.Stop(r.Context(), userKey(r))
	s.respondStatus(w, r, "")
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.service.Reset(r.Context(), userKey(r))
	s.respondStatus(w, r, "")
}

type checkResponse struct {
	Count    int           `json:"count"`
	Changes  []core.Change `json:"changes"`
	Messages []string      `json:"messages"`
}

// handleCheck diffs the live sheet against the baseline once, without
// touching the baseline or the schedule.
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	key := userKey(r)
	changes, err := s.service.Preview(r.Context(), key)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	resp := checkResponse{
		Count:    len(changes),
		Changes:  changes,
		Messages: []string{},
	}
	if resp.Changes == nil {
		resp.Changes = []core.Change{}
	}
	if len(changes) > 0 {
		format, _ := core.ParseFormat(s.service.Status(key).Format)
		resp.Messages = core.Format(changes, format, s.cfg.Notify.ChunkSize)
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// ----------------------------------------------------------------------------
// Output
// ----------------------------------------------------------------------------

type messagesResponse struct {
	Messages []notify.Message `json:"messages"`
	Dropped  int              `json:"dropped"`
}

// handleMessages drains the user's inbox.
func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	resp := messagesResponse{Messages: []notify.Message{}}
	if s.inbox != nil {
		msgs, dropped := s.inbox.Drain(userKey(r))
		if msgs != nil {
			resp.Messages = msgs
		}
		resp.Dropped = dropped
	}
	writeJSON(w, r, http.StatusOK, resp)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := min(parseIntParam(r, "limit", DefaultHistoryLimit), export.Limit)

	batches, err := s.service.History(r.Context(), userKey(r), limit)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	if batches == nil {
		batches = []core.ChangeBatch{}
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"batches": batches,
	})
}

func (s *Server) handleHistoryCSV(w http.ResponseWriter, r *http.Request) {
	s.exportHistory(w, r, "csv", "text/csv; charset=utf-8", export.WriteCSV)
}

func (s *Server) handleHistoryXLSX(w http.ResponseWriter, r *http.Request) {
	s.exportHistory(w, r, "xlsx",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", export.WriteXLSX)
}

// exportHistory renders the user's history into a buffer first so that a
// failed export still gets a proper error response.
func (s *Server) exportHistory(w http.ResponseWriter, r *http.Request, ext, contentType string,
	write func(io.Writer, []core.ChangeBatch) error) {
	key := userKey(r)

	batches, err := s.service.History(r.Context(), key, export.Limit)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := write(&buf, batches); err != nil {
		s.respondError(w, r, fmt.Errorf("export history: %w", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-history.%s"`, key, ext))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		logging.FromContext(r.Context()).Warn("write export", "error", err)
	}
}
