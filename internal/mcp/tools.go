package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/phdlabs/admind/internal/authz"
	"github.com/phdlabs/admind/internal/config"
	"github.com/phdlabs/admind/internal/model"
	"github.com/phdlabs/admind/internal/service"
)

// registerTools registers all admind MCP tools on the given server.
func (s *MCPServer) registerTools(srv *server.MCPServer) {

	// ----- Directory tools -----

	srv.AddTool(
		mcp.NewTool("admind_list_admins",
			mcp.WithDescription(
				"List console administrators with their admin type, active state and "+
					"last sign in. Supports a free-text search over name and email and "+
					"page-based pagination.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("term",
				mcp.Description("Case-insensitive search over name and email"),
			),
			mcp.WithBoolean("active",
				mcp.Description("Only return active (true) or inactive (false) admins"),
			),
			mcp.WithNumber("page",
				mcp.Description("1-based page number (default 1)"),
			),
			mcp.WithNumber("limit",
				mcp.Description("Admins per page (default 25, max 100)"),
			),
		),
		s.handleListAdmins,
	)

	srv.AddTool(
		mcp.NewTool("admind_check_privilege",
			mcp.WithDescription(
				"Check whether an administrator may perform an operation on a function. "+
					"Functions are permission scopes such as \"admins\", \"adminTypes\", "+
					"\"users\", \"userLogs\", \"settings\" and \"dashboard\". Super admins "+
					"are granted everything.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("email",
				mcp.Required(),
				mcp.Description("Email address of the administrator"),
			),
			mcp.WithString("function",
				mcp.Required(),
				mcp.Description("Function key, e.g. \"admins\""),
			),
			mcp.WithString("access",
				mcp.Required(),
				mcp.Description("Operation to check"),
				mcp.Enum("read", "write", "update", "delete"),
			),
		),
		s.handleCheckPrivilege,
	)

	// ----- Governance tools -----

	srv.AddTool(
		mcp.NewTool("admind_list_policies",
			mcp.WithDescription(
				"List AI governance policies in the policy library, newest change first. "+
					"Each entry carries its status, version and organisational context.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("term",
				mcp.Description("Case-insensitive search over title and sector"),
			),
			mcp.WithString("status",
				mcp.Description("Only return policies in this status"),
				mcp.Enum(model.PolicyDraft, model.PolicyReview, model.PolicyApproved, model.PolicyArchived),
			),
			mcp.WithNumber("page",
				mcp.Description("1-based page number (default 1)"),
			),
			mcp.WithNumber("limit",
				mcp.Description("Policies per page (default 25, max 100)"),
			),
		),
		s.handleListPolicies,
	)

	srv.AddTool(
		mcp.NewTool("admind_get_report",
			mcp.WithDescription(
				"Get a scored AI readiness report: the overall score and readiness level, "+
					"and for each domain its score, status, gaps and recommendations.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithNumber("id",
				mcp.Required(),
				mcp.Description("Report ID"),
			),
		),
		s.handleGetReport,
	)

	opts := service.Options()
	srv.AddTool(
		mcp.NewTool("admind_generate_policy",
			mcp.WithDescription(
				"Draft an AI governance policy for an organisational context. The draft "+
					"is returned, not saved. When a readiness report is given its weakest "+
					"domains become priority risks.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("sector",
				mcp.Required(),
				mcp.Enum(opts.Sectors...),
			),
			mcp.WithString("organizationSize",
				mcp.Required(),
				mcp.Enum(opts.OrganizationSizes...),
			),
			mcp.WithString("riskAppetite",
				mcp.Required(),
				mcp.Enum(opts.RiskAppetites...),
			),
			mcp.WithString("timeline",
				mcp.Required(),
				mcp.Enum(opts.Timelines...),
			),
			mcp.WithNumber("reportId",
				mcp.Description("Optional readiness report to prioritise risks from"),
			),
		),
		s.handleGeneratePolicy,
	)
}

// --------------------------------------------------------------------------
// Tool handlers
// --------------------------------------------------------------------------

func (s *MCPServer) handleListAdmins(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	st := listState(request)
	if args := request.GetArguments(); args != nil {
		if _, ok := args["active"]; ok {
			st.Filters["isActive"] = fmt.Sprint(request.GetBool("active", true))
		}
	}

	admins, total, err := s.store.ListAdmins(ctx, st)
	if err != nil {
		return toolError("Failed to list admins: %v", err)
	}
	return successJSON(model.Page[model.Admin]{Data: admins, TotalCount: total})
}

func (s *MCPServer) handleListPolicies(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	st := listState(request)
	if status := optionalString(request, "status"); status != "" {
		if !model.ValidPolicyStatus(status) {
			return toolError("Unknown status %q. Valid statuses: draft, review, approved, archived", status)
		}
		st.Filters["status"] = status
	}

	policies, total, err := s.store.ListPolicies(ctx, st)
	if err != nil {
		return toolError("Failed to list policies: %v", err)
	}
	return successJSON(model.Page[model.Policy]{Data: policies, TotalCount: total})
}

func (s *MCPServer) handleGetReport(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	id := int64(optionalInt(request, "id", 0))
	if id <= 0 {
		return toolError("missing required parameter \"id\"")
	}

	report, err := s.store.GetReport(ctx, id)
	if errors.Is(err, config.ErrNotFound) {
		return toolError("Report %d not found. Use the readiness reports list in the console to find report IDs.", id)
	}
	if err != nil {
		return toolError("Failed to get report %d: %v", id, err)
	}
	return successJSON(report)
}

func (s *MCPServer) handleGeneratePolicy(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	pc := model.PolicyContext{
		Sector:           optionalString(request, "sector"),
		OrganizationSize: optionalString(request, "organizationSize"),
		RiskAppetite:     optionalString(request, "riskAppetite"),
		Timeline:         optionalString(request, "timeline"),
	}
	if id := int64(optionalInt(request, "reportId", 0)); id > 0 {
		pc.ReportID = &id
	}

	gp, err := s.generator.Generate(ctx, pc)
	switch {
	case errors.Is(err, service.ErrInvalidContext):
		return toolError("%v", err)
	case errors.Is(err, config.ErrNotFound):
		return toolError("Report %d not found", *pc.ReportID)
	case err != nil:
		return toolError("Failed to generate policy: %v", err)
	}
	return successJSON(gp)
}

func (s *MCPServer) handleCheckPrivilege(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	email, err := requireString(request, "email")
	if err != nil {
		return toolError("%v", err)
	}
	fnKey, err := requireString(request, "function")
	if err != nil {
		return toolError("%v", err)
	}
	rawAccess, err := requireString(request, "access")
	if err != nil {
		return toolError("%v", err)
	}
	access, err := authz.ParseAccess(rawAccess)
	if err != nil {
		return toolError("%v. Valid access kinds: read, write, update, delete", err)
	}

	fns, err := s.store.ListFunctions(ctx)
	if err != nil {
		return toolError("Failed to list functions: %v", err)
	}
	keys := make([]string, len(fns))
	known := false
	for i, fn := range fns {
		keys[i] = fn.Key
		known = known || fn.Key == fnKey
	}
	if !known {
		return toolError("Unknown function %q. Available functions: %s", fnKey, strings.Join(keys, ", "))
	}

	admin, err := s.store.GetAdminByEmail(ctx, email)
	if errors.Is(err, config.ErrNotFound) {
		return toolError("No admin with email %q", email)
	}
	if err != nil {
		return toolError("Failed to look up admin: %v", err)
	}
	privs, err := s.privileges.Get(ctx, admin.ID)
	if err != nil {
		return toolError("Failed to load privileges: %v", err)
	}

	return successJSON(privilegeCheck{
		Email:           admin.Email,
		Function:        fnKey,
		Access:          access,
		Allowed:         admin.IsActive && privs.Has(fnKey, access),
		Active:          admin.IsActive,
		SuperAdmin:      admin.IsSuperAdmin,
		FirstAccessible: authz.FirstAccessible(privs),
	})
}

type privilegeCheck struct {
	Email           string       `json:"email"`
	Function        string       `json:"function"`
	Access          authz.Access `json:"access"`
	Allowed         bool         `json:"allowed"`
	Active          bool         `json:"active"`
	SuperAdmin      bool         `json:"superAdmin"`
	FirstAccessible string       `json:"firstAccessible"`
}
