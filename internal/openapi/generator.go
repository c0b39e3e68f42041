// Package openapi describes the admind REST API as an OpenAPI 3.1 document.
package openapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/phdlabs/admind/internal/authz"
	"github.com/phdlabs/admind/internal/model"
)

// Endpoint describes one API route.
type Endpoint struct {
	Method      string
	Path        string
	Tag         string
	Summary     string
	OperationID string
	// Function is the privilege function checked for the route, if any.
	Function string
	Public   bool
	// Body is a value of the request body type, nil when there is none.
	Body         interface{}
	OptionalBody bool
	Multipart    []string
	// Result names the component schema of the results payload, or is a Go
	// value for an inline schema.
	Result interface{}
	// List marks paginated routes; Filters are their filter parameters.
	List    bool
	Filters []string
	Status  int
	Query   openapi3.Parameters
}

// Endpoints is the route table of the API, all relative to /api/v1.
var Endpoints = []Endpoint{
	// Authentication
	{Method: http.MethodPost, Path: "/admin/login", Tag: "auth", Summary: "Sign in", OperationID: "login", Public: true, Body: loginBody{}, Result: "LoginResult"},
	{Method: http.MethodPost, Path: "/auth-admin/refresh-token", Tag: "auth", Summary: "Rotate the refresh token", OperationID: "refreshToken", Public: true, Body: refreshBody{}, Result: "LoginResult"},
	{Method: http.MethodPost, Path: "/auth-admin/logout", Tag: "auth", Summary: "Sign out", OperationID: "logout", Public: true, Body: refreshBody{}, OptionalBody: true},
	{Method: http.MethodGet, Path: "/privilege", Tag: "auth", Summary: "Privileges of the current admin", OperationID: "getPrivileges", Result: "PrivilegesPayload"},
	{Method: http.MethodGet, Path: "/admin/me", Tag: "auth", Summary: "Current admin", OperationID: "getMe", Result: "Admin"},

	// Admins
	{Method: http.MethodGet, Path: "/admin/admins", Tag: "admins", Summary: "List admins", OperationID: "listAdmins", Function: model.FunctionAdmins, Result: "Admin", List: true, Filters: []string{"isActive", "adminType"}},
	{Method: http.MethodGet, Path: "/admin/admins/{id}", Tag: "admins", Summary: "Get an admin", OperationID: "getAdmin", Function: model.FunctionAdmins, Result: "Admin"},
	{Method: http.MethodPost, Path: "/admin/admins", Tag: "admins", Summary: "Invite an admin", OperationID: "createAdmin", Function: model.FunctionAdmins, Body: adminBody{}, Multipart: []string{"image"}, Result: "Admin", Status: http.StatusCreated},
	{Method: http.MethodPut, Path: "/admin/admins/update", Tag: "admins", Summary: "Update an admin", OperationID: "updateAdmin", Function: model.FunctionAdmins, Body: adminBody{}, Multipart: []string{"image"}, Result: "Admin"},
	{Method: http.MethodDelete, Path: "/admin/admins/delete/{ids}", Tag: "admins", Summary: "Delete admins", OperationID: "deleteAdmins", Function: model.FunctionAdmins, Result: deletedBody{}},

	// Admin types
	{Method: http.MethodGet, Path: "/admin/admin-type", Tag: "adminTypes", Summary: "List admin types", OperationID: "listAdminTypes", Function: model.FunctionAdminTypes, Result: "AdminType", List: true},
	{Method: http.MethodGet, Path: "/admin/admin-type/{id}", Tag: "adminTypes", Summary: "Get an admin type", OperationID: "getAdminType", Function: model.FunctionAdminTypes, Result: "AdminType"},
	{Method: http.MethodPost, Path: "/admin/admin-type", Tag: "adminTypes", Summary: "Create an admin type", OperationID: "createAdminType", Function: model.FunctionAdminTypes, Body: adminTypeBody{}, Result: "AdminType", Status: http.StatusCreated},
	{Method: http.MethodPut, Path: "/admin/admin-type", Tag: "adminTypes", Summary: "Update an admin type", OperationID: "updateAdminType", Function: model.FunctionAdminTypes, Body: adminTypeBody{}, Result: "AdminType"},
	{Method: http.MethodDelete, Path: "/admin/admin-type/delete/{ids}", Tag: "adminTypes", Summary: "Delete admin types", OperationID: "deleteAdminTypes", Function: model.FunctionAdminTypes, Result: deletedBody{}},
	{Method: http.MethodGet, Path: "/admin/functions", Tag: "adminTypes", Summary: "List functions", OperationID: "listFunctions", Function: model.FunctionAdminTypes, Result: []model.Function{}},

	// Users
	{Method: http.MethodGet, Path: "/admin/users", Tag: "users", Summary: "List users", OperationID: "listUsers", Function: model.FunctionUsers, Result: "User", List: true, Filters: []string{"isActive", "isVerified"}},
	{Method: http.MethodGet, Path: "/admin/users/{id}", Tag: "users", Summary: "Get a user", OperationID: "getUser", Function: model.FunctionUsers, Result: "User"},
	{Method: http.MethodPost, Path: "/admin/users", Tag: "users", Summary: "Create a user", OperationID: "createUser", Function: model.FunctionUsers, Body: userBody{}, Multipart: []string{"image"}, Result: "User", Status: http.StatusCreated},
	{Method: http.MethodPut, Path: "/admin/users/update", Tag: "users", Summary: "Update a user", OperationID: "updateUser", Function: model.FunctionUsers, Body: userBody{}, Multipart: []string{"image"}, Result: "User"},
	{Method: http.MethodDelete, Path: "/admin/users/delete/{ids}", Tag: "users", Summary: "Delete users", OperationID: "deleteUsers", Function: model.FunctionUsers, Result: deletedBody{}},

	// Activity, dashboard and settings
	{Method: http.MethodGet, Path: "/admin/user-log", Tag: "activity", Summary: "List the activity log", OperationID: "listUserLogs", Function: model.FunctionUserLogs, Result: "UserLog", List: true, Filters: []string{"action", "table", "user"}},
	{Method: http.MethodGet, Path: "/admin/overview", Tag: "dashboard", Summary: "Dashboard counters", OperationID: "getOverview", Function: model.FunctionDashboard, Result: "Overview"},
	{Method: http.MethodGet, Path: "/admin/settings", Tag: "settings", Summary: "Get preferences", OperationID: "getSettings", Function: model.FunctionSettings, Result: "Settings"},
	{Method: http.MethodPut, Path: "/admin/settings", Tag: "settings", Summary: "Save preferences", OperationID: "updateSettings", Function: model.FunctionSettings, Body: model.Settings{}, Result: "Settings"},

	// Readiness assessment and reports
	{Method: http.MethodGet, Path: "/assessment/domains", Tag: "assessments", Summary: "Question catalogue", OperationID: "listDomains", Result: []model.Domain{}},
	{Method: http.MethodGet, Path: "/assessments", Tag: "assessments", Summary: "List assessments", OperationID: "listAssessments", Result: "Assessment", List: true, Filters: []string{"status"}},
	{Method: http.MethodPost, Path: "/assessments", Tag: "assessments", Summary: "Start an assessment", OperationID: "createAssessment", Body: assessmentBody{}, OptionalBody: true, Result: "Assessment", Status: http.StatusCreated},
	{Method: http.MethodGet, Path: "/assessments/{id}", Tag: "assessments", Summary: "Get an assessment with progress", OperationID: "getAssessment", Result: "Assessment"},
	{Method: http.MethodPut, Path: "/assessments/{id}/answers", Tag: "assessments", Summary: "Save answers", OperationID: "saveAnswers", Body: answersBody{}, Result: "Assessment"},
	{Method: http.MethodPost, Path: "/assessments/{id}/evidence/{questionId}", Tag: "assessments", Summary: "Upload evidence", OperationID: "uploadEvidence", Multipart: []string{"file"}, Result: "Assessment", Status: http.StatusCreated},
	{Method: http.MethodPost, Path: "/assessments/{id}/complete", Tag: "assessments", Summary: "Complete and score an assessment", OperationID: "completeAssessment", Result: "Report", Status: http.StatusCreated},
	{Method: http.MethodGet, Path: "/reports", Tag: "reports", Summary: "List readiness reports", OperationID: "listReports", Result: "Report", List: true, Filters: []string{"level"}},
	{Method: http.MethodGet, Path: "/reports/{id}", Tag: "reports", Summary: "Get a readiness report", OperationID: "getReport", Result: "Report"},
	{Method: http.MethodGet, Path: "/reports/{id}/export", Tag: "reports", Summary: "Download a report", OperationID: "exportReport", Query: formatParameter("pdf", "excel")},

	// Policies
	{Method: http.MethodGet, Path: "/policy/options", Tag: "policies", Summary: "Generator options", OperationID: "getPolicyOptions"},
	{Method: http.MethodPost, Path: "/policy/generate", Tag: "policies", Summary: "Generate a policy", OperationID: "generatePolicy", Body: model.PolicyContext{}, Result: "GeneratedPolicy"},
	{Method: http.MethodGet, Path: "/policies", Tag: "policies", Summary: "List the policy library", OperationID: "listPolicies", Result: "Policy", List: true, Filters: []string{"status", "sector"}},
	{Method: http.MethodPost, Path: "/policies", Tag: "policies", Summary: "Save a policy", OperationID: "createPolicy", Body: policyBody{}, Result: "Policy", Status: http.StatusCreated},
	{Method: http.MethodGet, Path: "/policies/{id}", Tag: "policies", Summary: "Get a policy", OperationID: "getPolicy", Result: "Policy"},
	{Method: http.MethodPut, Path: "/policies/{id}", Tag: "policies", Summary: "Update a policy", OperationID: "updatePolicy", Body: policyBody{}, Result: "Policy"},
	{Method: http.MethodDelete, Path: "/policies/delete/{ids}", Tag: "policies", Summary: "Delete policies", OperationID: "deletePolicies", Result: deletedBody{}},
	{Method: http.MethodGet, Path: "/policies/{id}/versions", Tag: "policies", Summary: "Version history", OperationID: "listPolicyVersions", Result: []model.PolicyVersion{}},
	{Method: http.MethodGet, Path: "/policies/{id}/export", Tag: "policies", Summary: "Download a policy", OperationID: "exportPolicy", Query: formatParameter("pdf", "md")},
}

// Generate builds the OpenAPI document of the API served at baseURL.
func Generate(baseURL string) *openapi3.T {
	doc := &openapi3.T{
		OpenAPI: "3.1.0",
		Info: &openapi3.Info{
			Title:       "admind API",
			Description: "Administration console API: admins, privileges, users, activity, AI readiness assessments and policies.",
			Version:     "1.0.0",
		},
		Servers: openapi3.Servers{
			{URL: strings.TrimSuffix(baseURL, "/") + "/api/v1"},
		},
	}

	components := openapi3.NewComponents()
	components.Schemas = componentSchemas()
	components.SecuritySchemes = openapi3.SecuritySchemes{
		"bearerAuth": &openapi3.SecuritySchemeRef{
			Value: &openapi3.SecurityScheme{
				Type:         "http",
				Scheme:       "bearer",
				BearerFormat: "JWT",
			},
		},
	}
	doc.Components = &components
	doc.Security = openapi3.SecurityRequirements{{"bearerAuth": {}}}

	doc.Paths = openapi3.NewPaths()
	for _, ep := range Endpoints {
		doc.AddOperation(ep.Path, ep.Method, operation(ep))
	}
	return doc
}

// ─── Operation Builders ─────────────────────────────────────────────────────

func operation(ep Endpoint) *openapi3.Operation {
	op := &openapi3.Operation{
		Tags:        []string{ep.Tag},
		Summary:     ep.Summary,
		OperationID: ep.OperationID,
	}
	if ep.Function != "" {
		op.Description = fmt.Sprintf("Requires the %s privilege on %q for this method.",
			authz.AccessForMethod(ep.Method), ep.Function)
	}
	if ep.Public {
		op.Security = &openapi3.SecurityRequirements{}
	}

	for _, name := range pathParams(ep.Path) {
		op.Parameters = append(op.Parameters, &openapi3.ParameterRef{
			Value: openapi3.NewPathParameter(name).WithSchema(openapi3.NewStringSchema()),
		})
	}
	if ep.List {
		op.Parameters = append(op.Parameters, listQueryParameters(ep.Filters)...)
	}
	op.Parameters = append(op.Parameters, ep.Query...)

	if ep.Body != nil || len(ep.Multipart) > 0 {
		op.RequestBody = requestBody(ep)
	}

	status := ep.Status
	if status == 0 {
		status = http.StatusOK
	}
	if strings.HasSuffix(ep.Path, "/export") {
		op.Responses = downloadResponses()
	} else {
		op.Responses = newResponses(fmt.Sprint(status), ep.Summary, envelope(resultSchema(ep)))
	}
	return op
}

func requestBody(ep Endpoint) *openapi3.RequestBodyRef {
	content := openapi3.Content{}
	var form *openapi3.SchemaRef
	if ep.Body != nil {
		body := inlineSchema(ep.Body)
		content["application/json"] = &openapi3.MediaType{Schema: body}
		form = inlineSchema(ep.Body)
	} else {
		form = &openapi3.SchemaRef{Value: openapi3.NewObjectSchema()}
	}
	if len(ep.Multipart) > 0 {
		if form.Value.Properties == nil {
			form.Value.Properties = openapi3.Schemas{}
		}
		for _, field := range ep.Multipart {
			form.Value.Properties[field] = &openapi3.SchemaRef{
				Value: openapi3.NewStringSchema().WithFormat("binary"),
			}
		}
		content["multipart/form-data"] = &openapi3.MediaType{Schema: form}
	}
	return &openapi3.RequestBodyRef{
		Value: &openapi3.RequestBody{
			Required: !ep.OptionalBody,
			Content:  content,
		},
	}
}

// resultSchema resolves the results payload of an endpoint.
func resultSchema(ep Endpoint) *openapi3.SchemaRef {
	var item *openapi3.SchemaRef
	switch r := ep.Result.(type) {
	case nil:
		return &openapi3.SchemaRef{Value: openapi3.NewObjectSchema()}
	case string:
		item = componentRef(r)
	default:
		item = inlineSchema(r)
	}
	if !ep.List {
		return item
	}
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"data": &openapi3.SchemaRef{
					Value: &openapi3.Schema{Type: &openapi3.Types{"array"}, Items: item},
				},
				"totalCount": &openapi3.SchemaRef{
					Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int64"},
				},
			},
		},
	}
}

// envelope wraps a results schema in the response envelope.
func envelope(results *openapi3.SchemaRef) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"message": &openapi3.SchemaRef{Value: openapi3.NewStringSchema()},
				"error":   &openapi3.SchemaRef{Value: openapi3.NewBoolSchema()},
				"code":    &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int32"}},
				"results": results,
			},
		},
	}
}

// ─── Parameter Builders ─────────────────────────────────────────────────────

// listQueryParameters returns the paging, search and sort parameters of list
// endpoints followed by their filters.
func listQueryParameters(filters []string) openapi3.Parameters {
	params := openapi3.Parameters{
		&openapi3.ParameterRef{
			Value: openapi3.NewQueryParameter("page").
				WithDescription("1-based page number.").
				WithSchema(&openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int32"}),
		},
		&openapi3.ParameterRef{
			Value: openapi3.NewQueryParameter("limit").
				WithDescription("Page size: 10, 25, 50 or 100.").
				WithSchema(&openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int32"}),
		},
		&openapi3.ParameterRef{
			Value: openapi3.NewQueryParameter("term").
				WithDescription("Case-insensitive search term.").
				WithSchema(openapi3.NewStringSchema()),
		},
		&openapi3.ParameterRef{
			Value: openapi3.NewQueryParameter("sortBy").
				WithDescription("Column to sort by.").
				WithSchema(openapi3.NewStringSchema()),
		},
		&openapi3.ParameterRef{
			Value: openapi3.NewQueryParameter("sortDirection").
				WithSchema(openapi3.NewStringSchema().WithEnum("asc", "desc")),
		},
	}
	for _, f := range filters {
		params = append(params, &openapi3.ParameterRef{
			Value: openapi3.NewQueryParameter(f).
				WithDescription("Exact match filter.").
				WithSchema(openapi3.NewStringSchema()),
		})
	}
	return params
}

func formatParameter(formats ...string) openapi3.Parameters {
	enum := make([]interface{}, len(formats))
	for i, f := range formats {
		enum[i] = f
	}
	return openapi3.Parameters{
		&openapi3.ParameterRef{
			Value: openapi3.NewQueryParameter("format").
				WithDescription("Download format, " + formats[0] + " by default.").
				WithSchema(openapi3.NewStringSchema().WithEnum(enum...)),
		},
	}
}

// pathParams extracts the {name} segments of a route.
func pathParams(path string) []string {
	var names []string
	for _, seg := range strings.Split(path, "/") {
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			names = append(names, seg[1:len(seg)-1])
		}
	}
	return names
}

// ─── Response Helpers ───────────────────────────────────────────────────────

// newResponses builds a Responses map with a success response and standard error responses.
func newResponses(statusCode, description string, schema *openapi3.SchemaRef) *openapi3.Responses {
	responses := openapi3.NewResponses()
	responses.Set(statusCode, &openapi3.ResponseRef{
		Value: openapi3.NewResponse().
			WithDescription(description).
			WithContent(openapi3.NewContentWithJSONSchemaRef(schema)),
	})
	addErrorResponses(responses)
	return responses
}

func downloadResponses() *openapi3.Responses {
	responses := openapi3.NewResponses()
	file := &openapi3.SchemaRef{Value: openapi3.NewStringSchema().WithFormat("binary")}
	responses.Set("200", &openapi3.ResponseRef{
		Value: openapi3.NewResponse().
			WithDescription("The exported document").
			WithContent(openapi3.Content{"application/octet-stream": &openapi3.MediaType{Schema: file}}),
	})
	addErrorResponses(responses)
	return responses
}

func addErrorResponses(responses *openapi3.Responses) {
	errorRef := componentRef("ApiResponse")
	for code, desc := range map[string]string{
		"400": "Bad request",
		"401": "Unauthorized",
		"403": "Forbidden",
		"404": "Not found",
		"500": "Internal server error",
	} {
		responses.Set(code, &openapi3.ResponseRef{
			Value: openapi3.NewResponse().
				WithDescription(desc).
				WithContent(openapi3.NewContentWithJSONSchemaRef(errorRef)),
		})
	}
}
