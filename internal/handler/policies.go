package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/phdlabs/admind/internal/config"
	"github.com/phdlabs/admind/internal/model"
	"github.com/phdlabs/admind/internal/server/middleware"
	"github.com/phdlabs/admind/internal/service"
)

// PolicyHandler serves the policy generator and the policy library.
type PolicyHandler struct {
	store     *config.Store
	generator *service.PolicyGenerator
}

// NewPolicyHandler creates a new PolicyHandler.
func NewPolicyHandler(store *config.Store, generator *service.PolicyGenerator) *PolicyHandler {
	return &PolicyHandler{store: store, generator: generator}
}

// Options returns the choices offered by the generator form.
// GET /api/v1/policy/options
func (h *PolicyHandler) Options(w http.ResponseWriter, r *http.Request) {
	writeOK(w, http.StatusOK, "OK", service.Options())
}

// Generate renders a policy from an organisational context without saving
// it.
// POST /api/v1/policy/generate
func (h *PolicyHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var pc model.PolicyContext
	if err := readJSON(r, &pc); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	gp, err := h.generator.Generate(r.Context(), pc)
	if err != nil {
		if errors.Is(err, service.ErrInvalidContext) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeStoreError(w, err, "Failed to generate policy")
		return
	}
	writeOK(w, http.StatusOK, "Policy generated", gp)
}

// policyRequest is the create and update payload of the library.
type policyRequest struct {
	Title            string                `json:"title" validate:"required,min=3"`
	Sector           string                `json:"sector" validate:"required"`
	OrganizationSize string                `json:"organizationSize"`
	RiskAppetite     string                `json:"riskAppetite"`
	Timeline         string                `json:"timeline"`
	Status           string                `json:"status" validate:"omitempty,oneof=draft review approved archived"`
	ExecutiveSummary string                `json:"executiveSummary"`
	Sections         []model.PolicySection `json:"sections"`
}

func (req policyRequest) apply(p *model.Policy) {
	p.Title = req.Title
	p.Sector = req.Sector
	p.OrganizationSize = req.OrganizationSize
	p.RiskAppetite = req.RiskAppetite
	p.Timeline = req.Timeline
	if req.Status != "" {
		p.Status = req.Status
	}
	p.ExecutiveSummary = req.ExecutiveSummary
	p.Sections = req.Sections
	if p.Sections == nil {
		p.Sections = []model.PolicySection{}
	}
}

func readPolicyRequest(w http.ResponseWriter, r *http.Request) (policyRequest, bool) {
	var req policyRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return req, false
	}
	if msg := validateStruct(req); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return req, false
	}
	return req, true
}

// ListPolicies returns one page of the library.
// GET /api/v1/policies
func (h *PolicyHandler) ListPolicies(w http.ResponseWriter, r *http.Request) {
	policies, total, err := h.store.ListPolicies(r.Context(), listState(r, config.PolicyList))
	if err != nil {
		writeStoreError(w, err, "Failed to list policies")
		return
	}
	writePage(w, policies, total)
}

// CreatePolicy saves a policy, typically a generated one, at version 1.
// POST /api/v1/policies
func (h *PolicyHandler) CreatePolicy(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())
	if principal == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	req, ok := readPolicyRequest(w, r)
	if !ok {
		return
	}

	p := &model.Policy{CreatedBy: principal.AdminID}
	req.apply(p)
	if err := h.store.CreatePolicy(r.Context(), p); err != nil {
		writeStoreError(w, err, "Failed to create policy")
		return
	}
	writeOK(w, http.StatusCreated, "Policy created", p)
}

// GetPolicy returns a policy.
// GET /api/v1/policies/{id}
func (h *PolicyHandler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := h.store.GetPolicy(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "Failed to get policy")
		return
	}
	writeOK(w, http.StatusOK, "OK", p)
}

// UpdatePolicy replaces a policy's content and bumps its version. The
// previous content is kept in the version history.
// PUT /api/v1/policies/{id}
func (h *PolicyHandler) UpdatePolicy(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())
	if principal == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req, ok := readPolicyRequest(w, r)
	if !ok {
		return
	}

	p, err := h.store.GetPolicy(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "Failed to update policy")
		return
	}
	req.apply(p)
	if err := h.store.UpdatePolicy(r.Context(), p, principal.AdminID); err != nil {
		writeStoreError(w, err, "Failed to update policy")
		return
	}
	writeOK(w, http.StatusOK, "Policy updated", p)
}

// DeletePolicies removes policies and their version history.
// DELETE /api/v1/policies/delete/{ids}
func (h *PolicyHandler) DeletePolicies(w http.ResponseWriter, r *http.Request) {
	ids, err := pathIDs(r, "ids")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	n, err := h.store.DeletePolicies(r.Context(), ids)
	if err != nil {
		writeStoreError(w, err, "Failed to delete policies")
		return
	}
	if n == 0 {
		writeError(w, http.StatusNotFound, "No policies deleted")
		return
	}
	writeOK(w, http.StatusOK, fmt.Sprintf("%d policies deleted", n), map[string]int64{"deleted": n})
}

// ListVersions returns the version history of a policy, newest first.
// GET /api/v1/policies/{id}/versions
func (h *PolicyHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := h.store.GetPolicy(r.Context(), id); err != nil {
		writeStoreError(w, err, "Failed to get policy")
		return
	}
	versions, err := h.store.ListPolicyVersions(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "Failed to list versions")
		return
	}
	if versions == nil {
		versions = []model.PolicyVersion{}
	}
	writeOK(w, http.StatusOK, "OK", versions)
}

// ExportPolicy downloads a policy as pdf or markdown.
// GET /api/v1/policies/{id}/export?format=pdf|md
func (h *PolicyHandler) ExportPolicy(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	exp, err := service.LookupExporter(service.PolicyExporters, formatParam(r))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := h.store.GetPolicy(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "Failed to get policy")
		return
	}
	writeDownload(w, exp, p, p.Title)
}
