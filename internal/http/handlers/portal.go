package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/office-portal/internal/csvexport"
	"github.com/wolfman30/office-portal/internal/dashboard"
	"github.com/wolfman30/office-portal/internal/messaging"
	"github.com/wolfman30/office-portal/internal/records"
	"github.com/wolfman30/office-portal/internal/session"
	"github.com/wolfman30/office-portal/pkg/logging"
)

const maxBodyBytes = 64 << 10

// PortalHandler exposes the session, the dashboard views and the messaging
// panel as JSON endpoints for the office front-end.
type PortalHandler struct {
	sessions *session.Manager
	board    *dashboard.Dashboard
	messages *messaging.Service
	archive  csvexport.Sink
	logger   *logging.Logger
}

// NewPortalHandler wires the handler. archive may be nil, which disables
// POST /api/export/archive.
func NewPortalHandler(sessions *session.Manager, board *dashboard.Dashboard, messages *messaging.Service, archive csvexport.Sink, logger *logging.Logger) *PortalHandler {
	if sessions == nil || board == nil || messages == nil {
		panic("handlers: session manager, dashboard and messaging service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &PortalHandler{
		sessions: sessions,
		board:    board,
		messages: messages,
		archive:  archive,
		logger:   logger,
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Remember bool   `json:"remember"`
}

type sessionResponse struct {
	State      session.State        `json:"state"`
	Range      *dashboard.DateRange `json:"range,omitempty"`
	FetchError string               `json:"fetch_error,omitempty"`
}

type rangeRequest struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Quick string `json:"quick"`
}

type bookingRow struct {
	records.Row
	Selected bool `json:"selected"`
}

type bookingsResponse struct {
	Range     dashboard.DateRange `json:"range"`
	Query     string              `json:"query"`
	Sort      dashboard.SortMode  `json:"sort"`
	Loaded    bool                `json:"loaded"`
	FetchedAt *time.Time          `json:"fetched_at,omitempty"`
	Cached    int                 `json:"cached"`
	Rows      []bookingRow        `json:"rows"`
}

type breakdownResponse struct {
	New      int `json:"new"`
	Existing int `json:"existing"`
	Total    int `json:"total"`
}

type toggleRequest struct {
	ID string `json:"id"`
}

type selectionResponse struct {
	IDs      []string `json:"ids"`
	ID       string   `json:"id,omitempty"`
	Selected *bool    `json:"selected,omitempty"`
}

type deleteRequest struct {
	Confirm bool `json:"confirm"`
}

type deleteResponse struct {
	Deleted      int    `json:"deleted"`
	RefreshError string `json:"refresh_error,omitempty"`
}

type sendRequest struct {
	To      string `json:"to"`
	Body    string `json:"body"`
	Context string `json:"context"`
}

type sendResponse struct {
	messaging.Thread
	ReloadError string `json:"reload_error,omitempty"`
}

// Health reports liveness and the session state.
// GET /health
func (h *PortalHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "session": string(h.sessions.State())})
}

// GetSession returns the session state.
// GET /api/session
func (h *PortalHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionResponse{State: h.sessions.State()})
}

// Login verifies the office credential and loads the default range.
// POST /api/session/login
func (h *PortalHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.sessions.Login(r.Context(), req.Username, req.Password, req.Remember); err != nil {
		writeError(w, h.logger, err)
		return
	}
	resp := sessionResponse{State: h.sessions.State()}
	rng := h.board.Range()
	resp.Range = &rng
	if err := h.board.Fetch(r.Context(), rng); err != nil {
		resp.FetchError = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// Logout clears the office credential.
// POST /api/session/logout
func (h *PortalHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Logout(r.Context()); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{State: h.sessions.State()})
}

// SetRange fetches a new date range, given explicitly or as a quick range.
// POST /api/range
func (h *PortalHandler) SetRange(w http.ResponseWriter, r *http.Request) {
	var req rangeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	var (
		rng dashboard.DateRange
		err error
	)
	if strings.TrimSpace(req.Quick) != "" {
		rng, err = dashboard.QuickRange(req.Quick, h.board.Today())
	} else {
		rng, err = dashboard.ParseDateRange(req.Start, req.End)
	}
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.board.Fetch(r.Context(), rng); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.writeBookings(w)
}

// Refresh refetches the current range.
// POST /api/refresh
func (h *PortalHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.board.Refresh(r.Context()); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.writeBookings(w)
}

// ListBookings returns the filtered table. q and sort, when present,
// replace the current search and ordering.
// GET /api/bookings?q=&sort=
func (h *PortalHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	_, hasQ := query["q"]
	_, hasSort := query["sort"]
	if hasQ || hasSort {
		q, mode := h.board.View()
		if hasQ {
			q = query.Get("q")
		}
		if hasSort {
			mode = dashboard.ParseSortMode(query.Get("sort"))
		}
		h.board.SetView(q, mode)
	}
	h.writeBookings(w)
}

func (h *PortalHandler) writeBookings(w http.ResponseWriter) {
	table := h.board.Table()

	resp := bookingsResponse{
		Range:  table.Range,
		Query:  table.Query,
		Sort:   table.Sort,
		Loaded: table.Loaded,
		Cached: table.Cached,
		Rows:   make([]bookingRow, 0, len(table.Rows)),
	}
	if table.Loaded {
		fetched := table.FetchedAt
		resp.FetchedAt = &fetched
	}
	for _, row := range table.Rows {
		resp.Rows = append(resp.Rows, bookingRow{Row: row.Booking.Row(), Selected: row.Selected})
	}
	writeJSON(w, http.StatusOK, resp)
}

// Series returns the per-day booking counts.
// GET /api/series
func (h *PortalHandler) Series(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.board.Series())
}

// Breakdown returns the new/existing patient counts.
// GET /api/breakdown
func (h *PortalHandler) Breakdown(w http.ResponseWriter, r *http.Request) {
	s := h.board.Breakdown()
	writeJSON(w, http.StatusOK, breakdownResponse{New: s.New, Existing: s.Existing, Total: s.Total()})
}

// ExportCSV downloads the filtered table.
// GET /api/export.csv
func (h *PortalHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	name, data := h.board.ExportCSV()
	w.Header().Set("Content-Type", csvexport.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// ArchiveCSV stores the filtered table in the configured export sink.
// POST /api/export/archive
func (h *PortalHandler) ArchiveCSV(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "export archive not configured")
		return
	}
	name, data := h.board.ExportCSV()
	location, err := h.archive.Put(r.Context(), name, data)
	if err != nil {
		h.logger.Error("failed to archive export", "name", name, "error", err)
		writeJSONError(w, http.StatusBadGateway, "failed to archive export")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"name": name, "location": location})
}

// ToggleSelection flips one booking in the delete selection.
// POST /api/selection/toggle
func (h *PortalHandler) ToggleSelection(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	selected, err := h.board.Toggle(strings.TrimSpace(req.ID))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, selectionResponse{IDs: h.board.SelectedIDs(), ID: req.ID, Selected: &selected})
}

// ClearSelection empties the delete selection.
// POST /api/selection/clear
func (h *PortalHandler) ClearSelection(w http.ResponseWriter, r *http.Request) {
	h.board.ClearSelection()
	writeJSON(w, http.StatusOK, selectionResponse{IDs: h.board.SelectedIDs()})
}

// GetSelection lists the selected confirmation ids.
// GET /api/selection
func (h *PortalHandler) GetSelection(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, selectionResponse{IDs: h.board.SelectedIDs()})
}

// DeleteSelected deletes the selection after an explicit confirmation.
// POST /api/bookings/delete
func (h *PortalHandler) DeleteSelected(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !req.Confirm {
		writeJSONError(w, http.StatusBadRequest, "deletion must be confirmed")
		return
	}
	n, err := h.board.DeleteSelected(r.Context())
	if err != nil && n == 0 {
		writeError(w, h.logger, err)
		return
	}
	resp := deleteResponse{Deleted: n}
	if err != nil {
		resp.RefreshError = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// Recipients lists the visible bookings for the messaging picker.
// GET /api/recipients
func (h *PortalHandler) Recipients(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"recipients": h.board.Recipients()})
}

// Recipient resolves one booking's phone, if it normalizes.
// GET /api/recipients/{id}
func (h *PortalHandler) Recipient(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if !h.board.HasBooking(id) {
		writeJSONError(w, http.StatusNotFound, "booking not found")
		return
	}
	p, ok := h.board.RecipientFor(id)
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "phone": p, "valid": ok})
}

// ListMessages returns the thread for a number.
// GET /api/messages?to=
func (h *PortalHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	thread, err := h.messages.ListThread(r.Context(), r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, thread)
}

// SendMessage texts a patient. A blank "to" with a context id uses that
// booking's phone when it normalizes.
// POST /api/messages/send
func (h *PortalHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	to := strings.TrimSpace(req.To)
	if to == "" && req.Context != "" {
		p, ok := h.board.RecipientFor(strings.TrimSpace(req.Context))
		if !ok {
			writeJSONError(w, http.StatusBadRequest, "booking has no usable phone, enter the number manually")
			return
		}
		to = p
	}
	thread, err := h.messages.Send(r.Context(), to, req.Body, req.Context)
	if err != nil && !errors.Is(err, messaging.ErrThreadReload) {
		writeError(w, h.logger, err)
		return
	}
	resp := sendResponse{Thread: thread}
	if err != nil {
		resp.ReloadError = err.Error()
	}
	writeJSON(w, http.StatusAccepted, resp)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid json body")
		return false
	}
	return true
}
