package openapi

import (
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3gen"

	"github.com/phdlabs/admind/internal/model"
)

// componentTypes are the API payload types published under
// #/components/schemas, keyed by component name.
var componentTypes = map[string]interface{}{
	"Admin":             model.Admin{},
	"AdminType":         model.AdminType{},
	"Privilege":         model.Privilege{},
	"Function":          model.Function{},
	"User":              model.User{},
	"UserLog":           model.UserLog{},
	"Overview":          model.Overview{},
	"Settings":          model.Settings{},
	"LoginResult":       model.LoginResult{},
	"PrivilegesPayload": model.PrivilegesPayload{},
	"Domain":            model.Domain{},
	"Assessment":        assessmentWithProgress{},
	"Report":            model.Report{},
	"PolicyContext":     model.PolicyContext{},
	"GeneratedPolicy":   model.GeneratedPolicy{},
	"Policy":            model.Policy{},
	"PolicyVersion":     model.PolicyVersion{},
	"ApiResponse":       model.ApiResponse{},
}

// assessmentWithProgress mirrors the assessment payload, which carries its
// progress next to the stored fields.
type assessmentWithProgress struct {
	model.Assessment
	Progress model.Progress `json:"progress"`
}

// Request bodies that have no model type of their own.
type (
	loginBody struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	refreshBody struct {
		RefreshToken string `json:"refreshToken"`
	}
	adminBody struct {
		ID        int64  `json:"id,omitempty"`
		Email     string `json:"email"`
		Name      string `json:"name"`
		Password  string `json:"password,omitempty"`
		AdminType *int64 `json:"adminType,omitempty"`
		IsActive  *bool  `json:"isActive,omitempty"`
	}
	adminTypeBody struct {
		ID          int64             `json:"id,omitempty"`
		Name        string            `json:"name"`
		Description string            `json:"description"`
		Privileges  []model.Privilege `json:"privileges"`
	}
	userBody struct {
		ID         int64       `json:"id,omitempty"`
		Email      string      `json:"email"`
		FirstName  string      `json:"firstName"`
		LastName   string      `json:"lastName"`
		Password   string      `json:"password,omitempty"`
		Phone      model.Phone `json:"phone"`
		IsActive   *bool       `json:"isActive,omitempty"`
		IsVerified *bool       `json:"isVerified,omitempty"`
	}
	assessmentBody struct {
		Title string `json:"title,omitempty"`
	}
	answersBody struct {
		Answers map[string]model.Answer `json:"answers"`
	}
	policyBody struct {
		Title            string                `json:"title"`
		Sector           string                `json:"sector"`
		OrganizationSize string                `json:"organizationSize"`
		RiskAppetite     string                `json:"riskAppetite"`
		Timeline         string                `json:"timeline"`
		Status           string                `json:"status,omitempty"`
		ExecutiveSummary string                `json:"executiveSummary"`
		Sections         []model.PolicySection `json:"sections"`
	}
	deletedBody struct {
		Deleted int64 `json:"deleted"`
	}
)

// inlineSchema generates the schema of a Go value from its json tags.
func inlineSchema(v interface{}) *openapi3.SchemaRef {
	ref, err := openapi3gen.NewSchemaRefForValue(v, nil)
	if err != nil {
		// Only reachable with a type openapi3gen cannot describe, which the
		// fixed type lists above rule out.
		panic(fmt.Sprintf("openapi: schema for %T: %v", v, err))
	}
	return ref
}

// componentSchemas generates every published component schema.
func componentSchemas() openapi3.Schemas {
	schemas := openapi3.Schemas{}
	for name, v := range componentTypes {
		schemas[name] = inlineSchema(v)
	}
	return schemas
}

// componentRef references a published component schema.
func componentRef(name string) *openapi3.SchemaRef {
	return openapi3.NewSchemaRef("#/components/schemas/"+name, nil)
}
