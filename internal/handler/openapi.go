package handler

import (
	"net/http"

	"github.com/phdlabs/admind/internal/openapi"
)

// ServeOpenAPI returns the OpenAPI document of the API, with the server URL
// taken from the request.
// GET /openapi.json
func ServeOpenAPI(w http.ResponseWriter, r *http.Request) {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	writeJSON(w, http.StatusOK, openapi.Generate(scheme+"://"+r.Host))
}
