package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/phdlabs/admind/internal/config"
	"github.com/phdlabs/admind/internal/model"
	"github.com/phdlabs/admind/internal/service"
)

func newTestServer(t *testing.T) (*MCPServer, *config.Store) {
	t.Helper()
	store, err := config.NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewMCPServer(store, service.NewPrivilegeCache(store, nil, 0), "test", logger), store
}

func callRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

// resultText returns the text of a single-content tool result.
func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want TextContent", res.Content[0])
	}
	return text.Text
}

func decodeResult(t *testing.T, res *mcp.CallToolResult, v interface{}) {
	t.Helper()
	if res.IsError {
		t.Fatalf("tool error: %s", resultText(t, res))
	}
	if err := json.Unmarshal([]byte(resultText(t, res)), v); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func seedAdmin(t *testing.T, store *config.Store, email string, active bool, adminTypeID *int64) *model.Admin {
	t.Helper()
	admin := &model.Admin{
		Email:        email,
		PasswordHash: "x",
		Name:         "Seeded",
		IsActive:     active,
		AdminTypeID:  adminTypeID,
		IsSuperAdmin: adminTypeID == nil,
	}
	if err := store.CreateAdmin(context.Background(), admin); err != nil {
		t.Fatalf("CreateAdmin: %v", err)
	}
	return admin
}

func TestRegisteredTools(t *testing.T) {
	s, _ := newTestServer(t)
	tools := s.Server().ListTools()

	for _, name := range []string{
		"admind_list_admins",
		"admind_list_policies",
		"admind_get_report",
		"admind_generate_policy",
		"admind_check_privilege",
	} {
		tool, ok := tools[name]
		if !ok {
			t.Errorf("tool %s is not registered", name)
			continue
		}
		if ro := tool.Tool.Annotations.ReadOnlyHint; ro == nil || !*ro {
			t.Errorf("tool %s should be annotated read-only", name)
		}
	}
}

func TestListAdmins(t *testing.T) {
	s, store := newTestServer(t)
	seedAdmin(t, store, "ada@example.com", true, nil)
	seedAdmin(t, store, "grace@example.com", false, nil)

	tests := []struct {
		name string
		args map[string]interface{}
		want []string
	}{
		{"all", nil, []string{"ada@example.com", "grace@example.com"}},
		{"term", map[string]interface{}{"term": "GRACE"}, []string{"grace@example.com"}},
		{"active only", map[string]interface{}{"active": true}, []string{"ada@example.com"}},
		{"inactive only", map[string]interface{}{"active": false}, []string{"grace@example.com"}},
		{"second page", map[string]interface{}{"page": 2, "limit": 1}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.handleListAdmins(context.Background(), callRequest("admind_list_admins", tt.args))
			if err != nil {
				t.Fatal(err)
			}
			var page model.Page[model.Admin]
			decodeResult(t, res, &page)

			if tt.want == nil {
				if len(page.Data) != 1 || page.TotalCount != 2 {
					t.Errorf("page = %d rows of %d", len(page.Data), page.TotalCount)
				}
				return
			}
			var got []string
			for _, a := range page.Data {
				got = append(got, a.Email)
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("emails = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestListPolicies(t *testing.T) {
	s, store := newTestServer(t)
	admin := seedAdmin(t, store, "ada@example.com", true, nil)
	ctx := context.Background()
	for _, p := range []*model.Policy{
		{Title: "Finance AI Policy", Sector: "Finance", Status: model.PolicyApproved, CreatedBy: admin.ID},
		{Title: "Clinical AI Policy", Sector: "Healthcare", CreatedBy: admin.ID},
	} {
		if err := store.CreatePolicy(ctx, p); err != nil {
			t.Fatal(err)
		}
	}

	res, _ := s.handleListPolicies(ctx, callRequest("admind_list_policies", map[string]interface{}{"status": "approved"}))
	var page model.Page[model.Policy]
	decodeResult(t, res, &page)
	if page.TotalCount != 1 || page.Data[0].Title != "Finance AI Policy" {
		t.Errorf("approved policies = %+v", page)
	}

	res, _ = s.handleListPolicies(ctx, callRequest("admind_list_policies", map[string]interface{}{"status": "published"}))
	if !res.IsError {
		t.Error("unknown status should be a tool error")
	}
}

func TestGetReport(t *testing.T) {
	s, store := newTestServer(t)
	ctx := context.Background()
	admin := seedAdmin(t, store, "ada@example.com", true, nil)

	svc := service.NewAssessmentService(store)
	a, err := svc.Create(ctx, admin.ID, "")
	if err != nil {
		t.Fatal(err)
	}
	answers := map[string]model.Answer{}
	for _, d := range service.Domains() {
		for _, q := range d.Questions {
			switch {
			case q.Kind == model.QuestionSelect:
				answers[q.ID] = model.Answer{Value: q.Options[0]}
			case q.Required:
				answers[q.ID] = model.Answer{Value: "Documented."}
			}
		}
	}
	if _, _, err := svc.SaveAnswers(ctx, a.ID, answers); err != nil {
		t.Fatal(err)
	}
	report, err := svc.Complete(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}

	res, _ := s.handleGetReport(ctx, callRequest("admind_get_report", map[string]interface{}{"id": report.ID}))
	var got model.Report
	decodeResult(t, res, &got)
	if got.ID != report.ID || len(got.Domains) != 5 {
		t.Errorf("report = %+v", got)
	}

	res, _ = s.handleGetReport(ctx, callRequest("admind_get_report", map[string]interface{}{"id": 999}))
	if !res.IsError || !strings.Contains(resultText(t, res), "not found") {
		t.Errorf("missing report result = %s", resultText(t, res))
	}

	res, _ = s.handleGetReport(ctx, callRequest("admind_get_report", nil))
	if !res.IsError {
		t.Error("missing id should be a tool error")
	}
}

func TestGeneratePolicy(t *testing.T) {
	s, _ := newTestServer(t)
	args := map[string]interface{}{
		"sector":           "Finance",
		"organizationSize": "Small (< 50 employees)",
		"riskAppetite":     "Conservative",
		"timeline":         "Immediate (0-3 months)",
	}

	res, _ := s.handleGeneratePolicy(context.Background(), callRequest("admind_generate_policy", args))
	var gp model.GeneratedPolicy
	decodeResult(t, res, &gp)
	if gp.Title != "Finance AI Governance Policy" || len(gp.Sections) == 0 {
		t.Errorf("generated = %q with %d sections", gp.Title, len(gp.Sections))
	}

	args["riskAppetite"] = "Reckless"
	res, _ = s.handleGeneratePolicy(context.Background(), callRequest("admind_generate_policy", args))
	if !res.IsError {
		t.Error("invalid context should be a tool error")
	}

	args["riskAppetite"] = "Moderate"
	args["reportId"] = 42
	res, _ = s.handleGeneratePolicy(context.Background(), callRequest("admind_generate_policy", args))
	if !res.IsError || !strings.Contains(resultText(t, res), "Report 42 not found") {
		t.Errorf("missing report result = %s", resultText(t, res))
	}
}

func TestCheckPrivilege(t *testing.T) {
	s, store := newTestServer(t)
	ctx := context.Background()

	at := &model.AdminType{
		Name:        "Auditors",
		Description: "Read-only access to admins",
		Privileges: []model.Privilege{
			{Function: model.Function{Key: model.FunctionAdmins}, Read: true},
		},
	}
	if err := store.CreateAdminType(ctx, at); err != nil {
		t.Fatal(err)
	}
	seedAdmin(t, store, "root@example.com", true, nil)
	seedAdmin(t, store, "auditor@example.com", true, &at.ID)
	seedAdmin(t, store, "gone@example.com", false, nil)

	tests := []struct {
		email, function, access string
		allowed                 bool
	}{
		{"root@example.com", "settings", "delete", true},
		{"auditor@example.com", "admins", "read", true},
		{"auditor@example.com", "admins", "write", false},
		{"auditor@example.com", "users", "read", false},
		{"gone@example.com", "admins", "read", false},
	}
	for _, tt := range tests {
		t.Run(tt.email+" "+tt.function+" "+tt.access, func(t *testing.T) {
			res, _ := s.handleCheckPrivilege(ctx, callRequest("admind_check_privilege", map[string]interface{}{
				"email": tt.email, "function": tt.function, "access": tt.access,
			}))
			var got privilegeCheck
			decodeResult(t, res, &got)
			if got.Allowed != tt.allowed {
				t.Errorf("allowed = %v, want %v", got.Allowed, tt.allowed)
			}
		})
	}

	errorCases := []map[string]interface{}{
		{"email": "nobody@example.com", "function": "admins", "access": "read"},
		{"email": "root@example.com", "function": "billing", "access": "read"},
		{"email": "root@example.com", "function": "admins", "access": "execute"},
		{"function": "admins", "access": "read"},
	}
	for _, args := range errorCases {
		res, _ := s.handleCheckPrivilege(ctx, callRequest("admind_check_privilege", args))
		if !res.IsError {
			t.Errorf("args %v should be a tool error", args)
		}
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		name     string
		val      int
		min      int
		max      int
		expected int
	}{
		{"value in range", 5, 1, 10, 5},
		{"value below min", -3, 1, 10, 1},
		{"value above max", 15, 1, 10, 10},
		{"value equals min", 1, 1, 10, 1},
		{"value equals max", 10, 1, 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := clamp(tt.val, tt.min, tt.max)
			if got != tt.expected {
				t.Errorf("clamp(%d, %d, %d) = %d, want %d", tt.val, tt.min, tt.max, got, tt.expected)
			}
		})
	}
}
