package handler

import (
	"net/http"
	"time"

	"github.com/phdlabs/admind/internal/config"
	"github.com/phdlabs/admind/internal/model"
)

// alertWindow is how far back failed sign-ins count as security alerts.
const alertWindow = 24 * time.Hour

// DashboardHandler serves the overview counters, the activity log and the
// console preferences.
type DashboardHandler struct {
	store *config.Store
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(store *config.Store) *DashboardHandler {
	return &DashboardHandler{store: store}
}

// Overview returns the dashboard counters.
// GET /api/v1/admin/overview
func (h *DashboardHandler) Overview(w http.ResponseWriter, r *http.Request) {
	o, err := h.store.Overview(r.Context(), time.Now().Add(-alertWindow))
	if err != nil {
		writeStoreError(w, err, "Failed to load overview")
		return
	}
	writeOK(w, http.StatusOK, "OK", o)
}

// ListUserLogs returns one page of the activity log.
// GET /api/v1/admin/user-log
func (h *DashboardHandler) ListUserLogs(w http.ResponseWriter, r *http.Request) {
	logs, total, err := h.store.ListUserLogs(r.Context(), listState(r, config.UserLogList))
	if err != nil {
		writeStoreError(w, err, "Failed to list activity")
		return
	}
	writePage(w, logs, total)
}

// GetSettings returns the console preferences.
// GET /api/v1/admin/settings
func (h *DashboardHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	st, err := h.store.GetSettings(r.Context())
	if err != nil {
		writeStoreError(w, err, "Failed to load settings")
		return
	}
	writeOK(w, http.StatusOK, "OK", st)
}

// UpdateSettings replaces the console preferences.
// PUT /api/v1/admin/settings
func (h *DashboardHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var st model.Settings
	if err := readJSON(r, &st); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := h.store.SaveSettings(r.Context(), st); err != nil {
		writeStoreError(w, err, "Failed to save settings")
		return
	}
	writeOK(w, http.StatusOK, "Settings saved", st)
}
