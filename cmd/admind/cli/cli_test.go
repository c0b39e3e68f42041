package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/phdlabs/admind/internal/config"
	"github.com/phdlabs/admind/internal/model"
	"github.com/phdlabs/admind/internal/table"
)

func newTestStore(t *testing.T) *config.Store {
	t.Helper()
	store, err := config.NewStore("")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// run executes the root command with args against a temporary data
// directory and returns stdout.
func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd("1.2.3", "abc123", "2026-01-01")
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--data-dir", dir}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestCreateAdmin(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	admin, err := createAdmin(ctx, store, adminCreateOptions{Email: " Ada@Example.com ", Password: "secret123"})
	if err != nil {
		t.Fatalf("createAdmin: %v", err)
	}
	if admin.Email != "ada@example.com" || admin.Name != "ada" {
		t.Errorf("admin = %q / %q", admin.Email, admin.Name)
	}
	if !admin.IsSuperAdmin || !admin.IsActive {
		t.Errorf("admin without a type should be an active super admin: %+v", admin)
	}

	tests := []struct {
		name string
		opts adminCreateOptions
		want string
	}{
		{"bad email", adminCreateOptions{Email: "nobody", Password: "secret123"}, "invalid email"},
		{"short password", adminCreateOptions{Email: "b@example.com", Password: "short"}, "at least 8"},
		{"unknown type", adminCreateOptions{Email: "c@example.com", Password: "secret123", AdminType: "Ghost"}, "Ghost"},
		{"duplicate", adminCreateOptions{Email: "ada@example.com", Password: "secret123"}, "create admin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := createAdmin(ctx, store, tt.opts)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestCreateAdminWithType(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	at, err := createAdminType(ctx, store, adminTypeCreateOptions{
		Name:        "Auditor",
		Description: "Read only access for audits",
		Grants:      []string{"admins=r", "userLogs=r"},
	})
	if err != nil {
		t.Fatalf("createAdminType: %v", err)
	}
	if got := formatGrants(at.Privileges); got != "admins:r userLogs:r" {
		t.Errorf("grants = %q", got)
	}

	admin, err := createAdmin(ctx, store, adminCreateOptions{Email: "aud@example.com", Password: "secret123", AdminType: "Auditor"})
	if err != nil {
		t.Fatalf("createAdmin: %v", err)
	}
	if admin.IsSuperAdmin || admin.AdminTypeID == nil || *admin.AdminTypeID != at.ID {
		t.Errorf("admin should hold the Auditor type: %+v", admin)
	}
}

func TestCreateAdminTypeValidation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name string
		opts adminTypeCreateOptions
		want string
	}{
		{"short name", adminTypeCreateOptions{Name: "QA", Description: "Quality assurance team"}, "name must be"},
		{"short description", adminTypeCreateOptions{Name: "Support", Description: "Helpdesk"}, "description must be"},
		{"bad grant", adminTypeCreateOptions{Name: "Support", Description: "Helpdesk and support", Grants: []string{"users"}}, "invalid grant"},
		{"unknown function", adminTypeCreateOptions{Name: "Support", Description: "Helpdesk and support", Grants: []string{"billing=r"}}, "billing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := createAdminType(ctx, store, tt.opts)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestParseGrant(t *testing.T) {
	tests := []struct {
		in      string
		want    model.Privilege
		wantErr bool
	}{
		{in: "admins=rwud", want: model.Privilege{Function: model.Function{Key: "admins"}, Read: true, Write: true, Update: true, Delete: true}},
		{in: " settings = R ", want: model.Privilege{Function: model.Function{Key: "settings"}, Read: true}},
		{in: "users=", want: model.Privilege{Function: model.Function{Key: "users"}}},
		{in: "users=rx", wantErr: true},
		{in: "=r", wantErr: true},
		{in: "users", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseGrant(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFormatGrantsNone(t *testing.T) {
	privs := []model.Privilege{{Function: model.Function{Key: "admins"}}}
	if got := formatGrants(privs); got != "(none)" {
		t.Errorf("got %q", got)
	}
}

func TestListAllWalksPages(t *testing.T) {
	rows := make([]int, 230)
	for i := range rows {
		rows[i] = i
	}
	var calls int
	list := func(_ context.Context, st *table.State) ([]int, int64, error) {
		calls++
		if st.Term != "x" {
			t.Errorf("term = %q", st.Term)
		}
		end := min(st.Offset()+st.PageSize, len(rows))
		return rows[st.Offset():end], int64(len(rows)), nil
	}

	got, err := listAll(context.Background(), "x", list)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 230 || calls != 3 {
		t.Errorf("got %d rows in %d calls, want 230 in 3", len(got), calls)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("ADMIND_SERVER_PORT", "9090")
	t.Setenv("ADMIND_AUTH_JWT_SECRET", "from-env")
	t.Setenv("ADMIND_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("ADMIND_MCP_ENABLED", "false")

	cfg := config.DefaultYAMLConfig()
	applyEnv(cfg)

	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Auth.JWTSecret != "from-env" {
		t.Errorf("secret = %q", cfg.Auth.JWTSecret)
	}
	if len(cfg.Server.CORS.Origins) != 2 || cfg.Server.CORS.Origins[1] != "https://b.example" {
		t.Errorf("origins = %v", cfg.Server.CORS.Origins)
	}
	if cfg.MCP.Enabled {
		t.Error("mcp should be disabled")
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("unset keys keep defaults, host = %q", cfg.Server.Host)
	}
}

func TestNewLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(config.LoggingConfig{Level: "warn", Format: "json"}, &buf)
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info should be filtered at warn level")
	}
	var rec map[string]interface{}
	if err := json.Unmarshal([]byte(out), &rec); err != nil {
		t.Fatalf("json output: %v (%q)", err, out)
	}
	if rec["msg"] != "shown" || rec["k"] != "v" {
		t.Errorf("record = %v", rec)
	}
}

func TestAdminCommands(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, dir, "admin-type", "create", "--name", "Auditor",
		"--description", "Read only access for audits", "--grant", "userLogs=r")
	if err != nil {
		t.Fatalf("admin-type create: %v", err)
	}
	if !strings.Contains(out, `Created admin type "Auditor"`) {
		t.Errorf("output = %q", out)
	}

	if _, err := run(t, dir, "admin", "create", "--email", "root@example.com", "--password", "secret123"); err != nil {
		t.Fatalf("admin create: %v", err)
	}
	if _, err := run(t, dir, "admin", "create", "--email", "aud@example.com", "--password", "secret123", "--admin-type", "Auditor"); err != nil {
		t.Fatalf("admin create with type: %v", err)
	}

	out, err = run(t, dir, "admin", "list")
	if err != nil {
		t.Fatalf("admin list: %v", err)
	}
	for _, want := range []string{"root@example.com", "super admin", "aud@example.com", "Auditor"} {
		if !strings.Contains(out, want) {
			t.Errorf("admin list missing %q:\n%s", want, out)
		}
	}

	out, err = run(t, dir, "admin", "list", "--json", "--search", "aud")
	if err != nil {
		t.Fatalf("admin list --json: %v", err)
	}
	var admins []model.Admin
	if err := json.Unmarshal([]byte(out), &admins); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(admins) != 1 || admins[0].Email != "aud@example.com" {
		t.Errorf("admins = %+v", admins)
	}

	out, err = run(t, dir, "admin-type", "list")
	if err != nil {
		t.Fatalf("admin-type list: %v", err)
	}
	if !strings.Contains(out, "userLogs:r") {
		t.Errorf("admin-type list = %q", out)
	}
}

func TestOpenAPICommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "openapi.json")

	if _, err := run(t, dir, "openapi", "--base-url", "https://admin.example.com/", "-o", path); err != nil {
		t.Fatalf("openapi: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var doc struct {
		OpenAPI string `json:"openapi"`
		Servers []struct {
			URL string `json:"url"`
		} `json:"servers"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.OpenAPI != "3.1.0" || len(doc.Servers) != 1 || doc.Servers[0].URL != "https://admin.example.com/api/v1" {
		t.Errorf("doc = %+v", doc)
	}
}

func TestConfigInit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "admind.yaml")

	if _, err := run(t, dir, "config", "init", "-o", path); err != nil {
		t.Fatalf("config init: %v", err)
	}
	if _, err := config.LoadYAMLConfig(path); err != nil {
		t.Fatalf("generated config does not load: %v", err)
	}
	if _, err := run(t, dir, "config", "init", "-o", path); err == nil {
		t.Error("init should refuse to overwrite without --force")
	}
	if _, err := run(t, dir, "config", "init", "-o", path, "--force"); err != nil {
		t.Errorf("init --force: %v", err)
	}
}

func TestWhoamiOutput(t *testing.T) {
	admin := &model.Admin{Name: "Ada", Email: "ada@example.com", AdminType: &model.AdminTypeRef{ID: 2, Name: "Auditor"}}
	privs := []model.Privilege{
		{Function: model.Function{Key: "admins"}},
		{Function: model.Function{Key: "userLogs"}, Read: true},
	}

	var buf bytes.Buffer
	if err := printWhoami(&buf, admin, privs, false); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "Ada <ada@example.com> (Auditor)") {
		t.Errorf("header missing:\n%s", out)
	}
	if !strings.Contains(out, "Start page: /dashboard/ai-readiness-assessment") {
		t.Errorf("start page missing:\n%s", out)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, t.TempDir(), "version", "--json")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	var info buildInfo
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info.Version != "1.2.3" || info.Commit != "abc123" {
		t.Errorf("info = %+v", info)
	}

	out, err = run(t, t.TempDir(), "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "admind v1.2.3 (abc123") {
		t.Errorf("output = %q", out)
	}
}
