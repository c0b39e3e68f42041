package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/phdlabs/admind/internal/config"
	"github.com/phdlabs/admind/internal/model"
	"github.com/phdlabs/admind/internal/table"
)

// writeJSON serializes v as JSON and writes it to the response with the given
// HTTP status code. The Content-Type header is set to application/json.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeOK wraps results in the response envelope.
func writeOK(w http.ResponseWriter, status int, message string, results interface{}) {
	writeJSON(w, status, model.ApiResponse{
		Message: message,
		Results: results,
		Code:    status,
	})
}

// writePage writes one page of a list endpoint.
func writePage[T any](w http.ResponseWriter, data []T, total int64) {
	if data == nil {
		data = []T{}
	}
	writeOK(w, http.StatusOK, "OK", model.Page[T]{Data: data, TotalCount: total})
}

// writeError writes a failed response envelope.
func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, model.ApiResponse{
		Message: message,
		Error:   true,
		Code:    code,
	})
}

// writeStoreError classifies a store error and writes it.
func writeStoreError(w http.ResponseWriter, err error, fallbackMsg string) {
	status, msg := classifyDBError(err, fallbackMsg)
	writeError(w, status, msg)
}

// readJSON decodes the request body as JSON into v. The body is closed after
// decoding regardless of success or failure.
func readJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// classifyDBError maps common database errors to appropriate HTTP status codes.
// Returns (httpStatus, cleanMessage).
func classifyDBError(err error, fallbackMsg string) (int, string) {
	switch {
	case errors.Is(err, config.ErrNotFound):
		return http.StatusNotFound, fallbackMsg + ": not found"
	case errors.Is(err, config.ErrConflict):
		return http.StatusConflict, fallbackMsg + ": " + err.Error()
	}

	msg := err.Error()
	lower := strings.ToLower(msg)

	switch {
	// Unique constraint violations → 409 Conflict
	case strings.Contains(lower, "unique constraint") ||
		strings.Contains(lower, "duplicate key") ||
		strings.Contains(lower, "duplicate entry"):
		return http.StatusConflict, fallbackMsg + ": already exists"

	// NOT NULL violations → 400 Bad Request
	case strings.Contains(lower, "not null constraint") ||
		strings.Contains(lower, "null value in column") ||
		strings.Contains(lower, "column cannot be null"):
		return http.StatusBadRequest, fallbackMsg + ": " + msg

	// Foreign key violations → 400 Bad Request
	case strings.Contains(lower, "foreign key") ||
		strings.Contains(lower, "fk constraint"):
		return http.StatusBadRequest, fallbackMsg + ": referenced record does not exist"

	default:
		return http.StatusInternalServerError, fallbackMsg + ": " + msg
	}
}

// pathID parses a numeric URL parameter.
func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return id, nil
}

// pathIDs parses a comma separated ID list URL parameter.
func pathIDs(r *http.Request, name string) ([]int64, error) {
	return parseIDs(chi.URLParam(r, name))
}

// parseIDs parses a comma separated list of IDs such as "3,5,8".
func parseIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid id %q", part)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, errors.New("no ids given")
	}
	return ids, nil
}

// listSpec is the part of a store list description handlers need.
type listSpec interface {
	SortKeys() []string
	FilterKeys() []string
}

// listState builds the table state of a list request.
func listState(r *http.Request, spec listSpec) *table.State {
	return table.ParseListParams(r.URL.Query(), spec.SortKeys(), spec.FilterKeys())
}

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// validateStruct runs the validate tags of v and returns a readable message
// for the first failure, or "" when v is valid.
func validateStruct(v interface{}) string {
	err := validate.Struct(v)
	if err == nil {
		return ""
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return strings.Join(msgs, "; ")
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	default:
		return fe.Field() + " is invalid"
	}
}
