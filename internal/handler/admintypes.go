package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/phdlabs/admind/internal/config"
	"github.com/phdlabs/admind/internal/model"
	"github.com/phdlabs/admind/internal/service"
)

// AdminTypeHandler manages admin types and their privilege matrices.
type AdminTypeHandler struct {
	store      *config.Store
	privileges *service.PrivilegeCache
}

// NewAdminTypeHandler creates a new AdminTypeHandler.
func NewAdminTypeHandler(store *config.Store, privileges *service.PrivilegeCache) *AdminTypeHandler {
	return &AdminTypeHandler{store: store, privileges: privileges}
}

type adminTypeRequest struct {
	ID          int64             `json:"id"`
	Name        string            `json:"name" validate:"required,min=3"`
	Description string            `json:"description" validate:"required,min=12"`
	Privileges  []model.Privilege `json:"privileges"`
}

func (req adminTypeRequest) toModel() *model.AdminType {
	return &model.AdminType{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
		Privileges:  req.Privileges,
	}
}

// ListAdminTypes returns one page of admin types with their privileges.
// GET /api/v1/admin/admin-type
func (h *AdminTypeHandler) ListAdminTypes(w http.ResponseWriter, r *http.Request) {
	types, total, err := h.store.ListAdminTypes(r.Context(), listState(r, config.AdminTypeList))
	if err != nil {
		writeStoreError(w, err, "Failed to list admin types")
		return
	}
	writePage(w, types, total)
}

// GetAdminType returns an admin type with its full privilege matrix.
// GET /api/v1/admin/admin-type/{id}
func (h *AdminTypeHandler) GetAdminType(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	at, err := h.store.GetAdminType(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "Failed to get admin type")
		return
	}
	writeOK(w, http.StatusOK, "OK", at)
}

// CreateAdminType creates an admin type.
// POST /api/v1/admin/admin-type
func (h *AdminTypeHandler) CreateAdminType(w http.ResponseWriter, r *http.Request) {
	var req adminTypeRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if msg := validateStruct(req); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	at := req.toModel()
	if err := h.store.CreateAdminType(r.Context(), at); err != nil {
		h.writeMatrixError(w, err, "Failed to create admin type")
		return
	}

	// Reload so the matrix carries a row for every function.
	saved, err := h.store.GetAdminType(r.Context(), at.ID)
	if err != nil {
		writeStoreError(w, err, "Failed to get admin type")
		return
	}
	writeOK(w, http.StatusCreated, "Admin type created", saved)
}

// UpdateAdminType modifies an admin type and replaces its privilege matrix.
// Cached privileges of every admin are dropped since any of them may hold the
// type.
// PUT /api/v1/admin/admin-type
func (h *AdminTypeHandler) UpdateAdminType(w http.ResponseWriter, r *http.Request) {
	var req adminTypeRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.ID <= 0 {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	if msg := validateStruct(req); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	at := req.toModel()
	if err := h.store.UpdateAdminType(r.Context(), at); err != nil {
		h.writeMatrixError(w, err, "Failed to update admin type")
		return
	}
	h.invalidateAll(r)

	// Reload for the timestamps the update did not touch.
	saved, err := h.store.GetAdminType(r.Context(), at.ID)
	if err != nil {
		writeStoreError(w, err, "Failed to get admin type")
		return
	}
	writeOK(w, http.StatusOK, "Admin type updated", saved)
}

// DeleteAdminTypes removes admin types. Types still assigned to an admin are
// refused with 409.
// DELETE /api/v1/admin/admin-type/delete/{ids}
func (h *AdminTypeHandler) DeleteAdminTypes(w http.ResponseWriter, r *http.Request) {
	ids, err := pathIDs(r, "ids")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	n, err := h.store.DeleteAdminTypes(r.Context(), ids)
	if err != nil {
		writeStoreError(w, err, "Failed to delete admin types")
		return
	}
	if n == 0 {
		writeError(w, http.StatusNotFound, "No admin types deleted")
		return
	}
	h.invalidateAll(r)
	writeOK(w, http.StatusOK, fmt.Sprintf("%d admin type(s) deleted", n), map[string]int64{"deleted": n})
}

// ListFunctions returns the functions the privilege matrix editor offers.
// GET /api/v1/admin/functions
func (h *AdminTypeHandler) ListFunctions(w http.ResponseWriter, r *http.Request) {
	fns, err := h.store.ListFunctions(r.Context())
	if err != nil {
		writeStoreError(w, err, "Failed to list functions")
		return
	}
	if fns == nil {
		fns = []model.Function{}
	}
	writeOK(w, http.StatusOK, "OK", fns)
}

// writeMatrixError reports a privilege naming an unknown function as a bad
// request rather than a missing admin type.
func (h *AdminTypeHandler) writeMatrixError(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, config.ErrUnknownFunction) {
		writeError(w, http.StatusBadRequest, msg+": "+err.Error())
		return
	}
	writeStoreError(w, err, msg)
}

func (h *AdminTypeHandler) invalidateAll(r *http.Request) {
	if err := h.privileges.InvalidateAll(r.Context()); err != nil {
		slog.Warn("failed to invalidate cached privileges", "error", err)
	}
}
