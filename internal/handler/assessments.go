package handler

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/phdlabs/admind/internal/config"
	"github.com/phdlabs/admind/internal/model"
	"github.com/phdlabs/admind/internal/server/middleware"
	"github.com/phdlabs/admind/internal/service"
)

// AssessmentHandler serves readiness assessments and the reports they
// produce.
type AssessmentHandler struct {
	store       *config.Store
	assessments *service.AssessmentService
	uploads     *Uploads
}

// NewAssessmentHandler creates a new AssessmentHandler.
func NewAssessmentHandler(store *config.Store, assessments *service.AssessmentService, uploads *Uploads) *AssessmentHandler {
	return &AssessmentHandler{store: store, assessments: assessments, uploads: uploads}
}

// assessmentPayload is an assessment with its computed progress.
type assessmentPayload struct {
	*model.Assessment
	Progress model.Progress `json:"progress"`
}

// Domains returns the question catalogue.
// GET /api/v1/assessment/domains
func (h *AssessmentHandler) Domains(w http.ResponseWriter, r *http.Request) {
	writeOK(w, http.StatusOK, "OK", service.Domains())
}

// ListAssessments returns one page of assessments.
// GET /api/v1/assessments
func (h *AssessmentHandler) ListAssessments(w http.ResponseWriter, r *http.Request) {
	list, total, err := h.store.ListAssessments(r.Context(), listState(r, config.AssessmentList))
	if err != nil {
		writeStoreError(w, err, "Failed to list assessments")
		return
	}
	writePage(w, list, total)
}

// CreateAssessment starts a draft owned by the current admin.
// POST /api/v1/assessments
func (h *AssessmentHandler) CreateAssessment(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())
	if principal == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	var req struct {
		Title string `json:"title" validate:"max=200"`
	}
	if err := readJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if msg := validateStruct(req); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	a, err := h.assessments.Create(r.Context(), principal.AdminID, req.Title)
	if err != nil {
		writeStoreError(w, err, "Failed to create assessment")
		return
	}
	writeOK(w, http.StatusCreated, "Assessment created", assessmentPayload{a, service.ComputeProgress(a.Answers)})
}

// GetAssessment returns an assessment with its progress.
// GET /api/v1/assessments/{id}
func (h *AssessmentHandler) GetAssessment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	a, progress, err := h.assessments.Get(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "Failed to get assessment")
		return
	}
	writeOK(w, http.StatusOK, "OK", assessmentPayload{a, progress})
}

// SaveAnswers merges answers into a draft.
// PUT /api/v1/assessments/{id}/answers
func (h *AssessmentHandler) SaveAnswers(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req struct {
		Answers map[string]model.Answer `json:"answers"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	a, progress, err := h.assessments.SaveAnswers(r.Context(), id, req.Answers)
	if err != nil {
		writeAssessmentError(w, err, "Failed to save answers")
		return
	}
	writeOK(w, http.StatusOK, "Answers saved", assessmentPayload{a, progress})
}

// UploadEvidence stores a supporting document for a file question.
// POST /api/v1/assessments/{id}/evidence/{questionId}
func (h *AssessmentHandler) UploadEvidence(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	questionID := chi.URLParam(r, "questionId")
	if _, q, ok := service.LookupQuestion(questionID); !ok || q.Kind != model.QuestionFile {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("question %q does not accept files", questionID))
		return
	}

	multipart, err := parseMultipart(r, MaxEvidenceSize)
	if err != nil || !multipart {
		writeError(w, http.StatusBadRequest, "Expected a multipart form with a file field")
		return
	}
	name, err := h.uploads.SaveEvidence(r, "file")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if name == "" {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}

	a, progress, err := h.assessments.AddEvidence(r.Context(), id, questionID, name)
	if err != nil {
		writeAssessmentError(w, err, "Failed to attach evidence")
		return
	}
	writeOK(w, http.StatusCreated, "Evidence uploaded", assessmentPayload{a, progress})
}

// CompleteAssessment scores a finished draft and returns its report.
// POST /api/v1/assessments/{id}/complete
func (h *AssessmentHandler) CompleteAssessment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	report, err := h.assessments.Complete(r.Context(), id)
	if err != nil {
		writeAssessmentError(w, err, "Failed to complete assessment")
		return
	}
	writeOK(w, http.StatusCreated, "Assessment completed", report)
}

// ListReports returns one page of readiness reports.
// GET /api/v1/reports
func (h *AssessmentHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	reports, total, err := h.store.ListReports(r.Context(), listState(r, config.ReportList))
	if err != nil {
		writeStoreError(w, err, "Failed to list reports")
		return
	}
	writePage(w, reports, total)
}

// GetReport returns a readiness report.
// GET /api/v1/reports/{id}
func (h *AssessmentHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	report, err := h.store.GetReport(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "Failed to get report")
		return
	}
	writeOK(w, http.StatusOK, "OK", report)
}

// ExportReport downloads a report as pdf or excel.
// GET /api/v1/reports/{id}/export?format=pdf|excel
func (h *AssessmentHandler) ExportReport(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	exp, err := service.LookupExporter(service.ReportExporters, formatParam(r))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	report, err := h.store.GetReport(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "Failed to get report")
		return
	}
	writeDownload(w, exp, report, report.Title)
}

func writeAssessmentError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, service.ErrInvalidAnswer):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrIncomplete), errors.Is(err, service.ErrNotDraft):
		writeError(w, http.StatusConflict, msg+": "+err.Error())
	default:
		writeStoreError(w, err, msg)
	}
}

// formatParam returns the export format, pdf when none is given.
func formatParam(r *http.Request) string {
	if f := strings.TrimSpace(r.URL.Query().Get("format")); f != "" {
		return f
	}
	return "pdf"
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// writeDownload renders doc into a buffer first so a failed export still gets
// an error envelope instead of a truncated file.
func writeDownload[T any](w http.ResponseWriter, exp service.Exporter[T], doc *T, title string) {
	var buf bytes.Buffer
	if err := exp.Write(&buf, doc); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to export: "+err.Error())
		return
	}
	name := strings.Trim(unsafeFileChars.ReplaceAllString(title, "-"), "-")
	if name == "" {
		name = "export"
	}
	w.Header().Set("Content-Type", exp.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s%s"`, name, exp.Extension))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}
