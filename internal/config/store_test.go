package config

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/phdlabs/admind/internal/model"
	"github.com/phdlabs/admind/internal/table"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore("") // in-memory
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func createAdmin(t *testing.T, s *Store, email string, typeID *int64) *model.Admin {
	t.Helper()
	a := &model.Admin{
		Email:        email,
		PasswordHash: "$2a$10$fakehash",
		Name:         "Admin " + email,
		AdminTypeID:  typeID,
		IsActive:     true,
	}
	if err := s.CreateAdmin(context.Background(), a); err != nil {
		t.Fatalf("CreateAdmin: %v", err)
	}
	return a
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(Options{Driver: "oracle"}); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
	if _, err := Open(Options{Driver: "postgres"}); err == nil {
		t.Fatal("expected error for postgres without dsn")
	}
}

func TestOnDiskStore(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	createAdmin(t, s, "disk@example.com", nil)
	s.Close()

	s2, err := NewStore(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	if ok, _ := s2.HasAnyAdmin(context.Background()); !ok {
		t.Error("expected admin to survive reopen")
	}
}

func TestSeededFunctions(t *testing.T) {
	s := newTestStore(t)
	fns, err := s.ListFunctions(context.Background())
	if err != nil {
		t.Fatalf("ListFunctions: %v", err)
	}
	if len(fns) != len(model.DefaultFunctions()) {
		t.Fatalf("got %d functions, want %d", len(fns), len(model.DefaultFunctions()))
	}
	if fns[0].Key != model.FunctionDashboard || fns[0].ID == 0 {
		t.Errorf("first function = %+v", fns[0])
	}
}

func TestAdminCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if ok, _ := s.HasAnyAdmin(ctx); ok {
		t.Fatal("fresh store should have no admins")
	}

	at := &model.AdminType{Name: "Operators", Description: "Day to day operations"}
	if err := s.CreateAdminType(ctx, at); err != nil {
		t.Fatalf("CreateAdminType: %v", err)
	}

	a := createAdmin(t, s, "ops@example.com", &at.ID)
	if a.ID == 0 {
		t.Fatal("expected non-zero ID after create")
	}
	if a.AdminType == nil || a.AdminType.Name != "Operators" {
		t.Errorf("AdminType = %+v", a.AdminType)
	}

	got, err := s.GetAdmin(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetAdmin: %v", err)
	}
	if got.Email != "ops@example.com" || got.AdminType == nil || got.AdminType.ID != at.ID {
		t.Errorf("GetAdmin = %+v", got)
	}

	byEmail, err := s.GetAdminByEmail(ctx, "ops@example.com")
	if err != nil || byEmail.ID != a.ID {
		t.Fatalf("GetAdminByEmail: %v, %+v", err, byEmail)
	}

	// Update without touching the password.
	got.Name = "Renamed"
	got.PasswordHash = ""
	got.AdminTypeID = nil
	if err := s.UpdateAdmin(ctx, got); err != nil {
		t.Fatalf("UpdateAdmin: %v", err)
	}
	again, _ := s.GetAdmin(ctx, a.ID)
	if again.Name != "Renamed" || again.PasswordHash != "$2a$10$fakehash" || again.AdminType != nil {
		t.Errorf("after update = %+v", again)
	}

	if err := s.UpdateAdminLastLogin(ctx, a.ID); err != nil {
		t.Fatalf("UpdateAdminLastLogin: %v", err)
	}
	again, _ = s.GetAdmin(ctx, a.ID)
	if again.LastLoginAt == nil {
		t.Error("expected last_login_at to be set")
	}

	missing := &model.Admin{ID: 9999, Email: "x@example.com"}
	if err := s.UpdateAdmin(ctx, missing); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateAdmin missing: %v", err)
	}

	n, err := s.DeleteAdmins(ctx, []int64{a.ID, 12345})
	if err != nil || n != 1 {
		t.Fatalf("DeleteAdmins = %d, %v", n, err)
	}
	if _, err := s.GetAdmin(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDuplicateAdminEmail(t *testing.T) {
	s := newTestStore(t)
	createAdmin(t, s, "dup@example.com", nil)
	err := s.CreateAdmin(context.Background(), &model.Admin{Email: "dup@example.com", PasswordHash: "x"})
	if err == nil {
		t.Fatal("expected unique constraint error")
	}
}

func TestListAdmins(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for _, e := range []string{"carol@example.com", "alice@example.com", "bob@example.com", "dave@corp.io"} {
		createAdmin(t, s, e, nil)
	}
	inactive, _ := s.GetAdminByEmail(ctx, "dave@corp.io")
	inactive.IsActive = false
	if err := s.UpdateAdmin(ctx, inactive); err != nil {
		t.Fatal(err)
	}

	st := table.New(true)
	st.SetPageSize(10)
	st.ToggleSort("email")
	admins, total, err := s.ListAdmins(ctx, st)
	if err != nil {
		t.Fatalf("ListAdmins: %v", err)
	}
	if total != 4 || len(admins) != 4 || admins[0].Email != "alice@example.com" {
		t.Fatalf("sorted list = %d/%d first %q", len(admins), total, admins[0].Email)
	}

	st.SetSearch("EXAMPLE")
	_, total, _ = s.ListAdmins(ctx, st)
	if total != 3 {
		t.Errorf("search total = %d, want 3", total)
	}

	st.SetSearch("")
	st.SetFilter("isActive", "false")
	admins, total, _ = s.ListAdmins(ctx, st)
	if total != 1 || admins[0].Email != "dave@corp.io" {
		t.Errorf("filter isActive=false = %d %v", total, admins)
	}

	st.ClearFilters()
	st.PageSize = 3
	st.Page = 2
	admins, total, _ = s.ListAdmins(ctx, st)
	if total != 4 || len(admins) != 1 {
		t.Errorf("page 2 = %d rows, total %d", len(admins), total)
	}

	st.SetFilter("isActive", "maybe")
	if _, _, err := s.ListAdmins(ctx, st); err == nil {
		t.Error("expected error for malformed boolean filter")
	}
}

func TestAdminTypePrivileges(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	at := &model.AdminType{
		Name:        "Auditors",
		Description: "Read-only access to logs",
		Privileges: []model.Privilege{
			{Function: model.Function{Key: model.FunctionUserLogs}, Read: true},
			{Function: model.Function{Key: model.FunctionAdmins}, Read: true, Update: true},
		},
	}
	if err := s.CreateAdminType(ctx, at); err != nil {
		t.Fatalf("CreateAdminType: %v", err)
	}
	if len(at.Privileges) != len(model.DefaultFunctions()) {
		t.Fatalf("expected a full matrix, got %d entries", len(at.Privileges))
	}

	byKey := map[string]model.Privilege{}
	for _, p := range at.Privileges {
		byKey[p.Function.Key] = p
	}
	if p := byKey[model.FunctionUserLogs]; !p.Read || p.Write {
		t.Errorf("userLogs privilege = %+v", p)
	}
	if p := byKey[model.FunctionAdmins]; !p.Read || !p.Update || p.Delete {
		t.Errorf("admins privilege = %+v", p)
	}
	if p := byKey[model.FunctionSettings]; p.Read || p.Write || p.Update || p.Delete {
		t.Errorf("settings privilege should be empty, got %+v", p)
	}

	// Replace the matrix.
	at.Privileges = []model.Privilege{{Function: model.Function{Key: model.FunctionSettings}, Read: true, Write: true}}
	if err := s.UpdateAdminType(ctx, at); err != nil {
		t.Fatalf("UpdateAdminType: %v", err)
	}
	got, err := s.GetAdminType(ctx, at.ID)
	if err != nil {
		t.Fatalf("GetAdminType: %v", err)
	}
	for _, p := range got.Privileges {
		switch p.Function.Key {
		case model.FunctionSettings:
			if !p.Read || !p.Write {
				t.Errorf("settings = %+v", p)
			}
		default:
			if p.Read {
				t.Errorf("%s should have been cleared", p.Function.Key)
			}
		}
	}

	bad := &model.AdminType{Name: "Broken", Description: "References a missing function",
		Privileges: []model.Privilege{{Function: model.Function{Key: "nope"}, Read: true}}}
	if err := s.CreateAdminType(ctx, bad); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown function: %v", err)
	}
	if _, err := s.GetAdminTypeByName(ctx, "Broken"); !errors.Is(err, ErrNotFound) {
		t.Errorf("failed create must roll back, got %v", err)
	}
}

func TestDeleteAssignedAdminType(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	at := &model.AdminType{Name: "Support", Description: "Support desk staff"}
	if err := s.CreateAdminType(ctx, at); err != nil {
		t.Fatal(err)
	}
	a := createAdmin(t, s, "support@example.com", &at.ID)

	if _, err := s.DeleteAdminTypes(ctx, []int64{at.ID}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	if _, err := s.DeleteAdmins(ctx, []int64{a.ID}); err != nil {
		t.Fatal(err)
	}
	n, err := s.DeleteAdminTypes(ctx, []int64{at.ID})
	if err != nil || n != 1 {
		t.Fatalf("DeleteAdminTypes = %d, %v", n, err)
	}

	st := table.New(true)
	types, total, err := s.ListAdminTypes(ctx, st)
	if err != nil || total != 0 || len(types) != 0 {
		t.Errorf("ListAdminTypes after delete = %v %d %v", types, total, err)
	}
}

func TestUserCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := &model.User{
		Email:     "ada@example.com",
		FirstName: "Ada",
		LastName:  "Lovelace",
		Phone:     model.Phone{Code: "+44", Number: "7700900000"},
		IsActive:  true,
	}
	if err := s.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	got, err := s.GetUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.Phone.Code != "+44" || got.FullName() != "Ada Lovelace" {
		t.Errorf("GetUser = %+v", got)
	}

	got.IsVerified = true
	if err := s.UpdateUser(ctx, got); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}

	st := table.New(true)
	st.SetFilter("isVerified", "true")
	st.SetSearch("7700")
	users, total, err := s.ListUsers(ctx, st)
	if err != nil || total != 1 || users[0].ID != u.ID {
		t.Fatalf("ListUsers = %v %d %v", users, total, err)
	}

	if n, err := s.DeleteUsers(ctx, []int64{u.ID}); err != nil || n != 1 {
		t.Fatalf("DeleteUsers = %d %v", n, err)
	}
}

func TestUserLogsAndOverview(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := createAdmin(t, s, "logger@example.com", nil)
	pending := &model.Admin{Email: "invitee@example.com", PasswordHash: "x", IsActive: false}
	if err := s.CreateAdmin(ctx, pending); err != nil {
		t.Fatal(err)
	}

	if err := s.CreateUserLog(ctx, a.ID, model.ActionPost, "admins", "Created admin invitee@example.com"); err != nil {
		t.Fatalf("CreateUserLog: %v", err)
	}
	if err := s.CreateUserLog(ctx, 0, model.ActionPost, TableAuth, "Failed login for mallory@example.com"); err != nil {
		t.Fatalf("CreateUserLog anonymous: %v", err)
	}

	st := table.New(true)
	logs, total, err := s.ListUserLogs(ctx, st)
	if err != nil || total != 2 {
		t.Fatalf("ListUserLogs = %d %v", total, err)
	}
	// Newest first by default.
	if logs[0].User != nil || logs[1].User == nil || logs[1].User.Email != "logger@example.com" {
		t.Errorf("logs = %+v", logs)
	}

	st.SetFilter("table", "admins")
	_, total, _ = s.ListUserLogs(ctx, st)
	if total != 1 {
		t.Errorf("filtered total = %d, want 1", total)
	}

	o, err := s.Overview(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	want := model.Overview{ActiveAdmins: 1, PendingInvites: 1, AdminTypes: 0, SecurityAlerts: 1}
	if *o != want {
		t.Errorf("Overview = %+v, want %+v", *o, want)
	}

	o, _ = s.Overview(ctx, time.Now().Add(time.Hour))
	if o.SecurityAlerts != 0 {
		t.Errorf("alerts in the future = %d", o.SecurityAlerts)
	}
}

func TestRefreshTokens(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := createAdmin(t, s, "tok@example.com", nil)

	hash := HashToken("raw-refresh-token")
	if err := s.CreateRefreshToken(ctx, a.ID, hash, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("CreateRefreshToken: %v", err)
	}
	rt, err := s.GetRefreshToken(ctx, hash)
	if err != nil {
		t.Fatalf("GetRefreshToken: %v", err)
	}
	if rt.AdminID != a.ID || rt.RevokedAt != nil {
		t.Errorf("token = %+v", rt)
	}

	if err := s.RevokeRefreshToken(ctx, rt.ID); err != nil {
		t.Fatalf("RevokeRefreshToken: %v", err)
	}
	if err := s.RevokeRefreshToken(ctx, rt.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second revoke: %v", err)
	}
	rt, _ = s.GetRefreshToken(ctx, hash)
	if rt.RevokedAt == nil {
		t.Error("expected revoked_at set")
	}

	if _, err := s.GetRefreshToken(ctx, HashToken("other")); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown token: %v", err)
	}
}

func TestSettings(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	got, err := s.GetSettings(ctx)
	if err != nil {
		t.Fatalf("GetSettings: %v", err)
	}
	if got != model.DefaultSettings() {
		t.Errorf("defaults = %+v", got)
	}

	want := model.Settings{SecurityAlerts: false, WeeklyDigest: true, AutoApproveInvitations: true}
	if err := s.SaveSettings(ctx, want); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}
	// Saving twice exercises the update path.
	if err := s.SaveSettings(ctx, want); err != nil {
		t.Fatalf("SaveSettings again: %v", err)
	}
	got, _ = s.GetSettings(ctx)
	if got != want {
		t.Errorf("settings = %+v, want %+v", got, want)
	}

	if _, err := s.GetSetting(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing setting: %v", err)
	}
}

func TestHashToken(t *testing.T) {
	h1 := HashToken("test-key-123")
	h2 := HashToken("test-key-123")
	if h1 != h2 {
		t.Error("HashToken must be deterministic")
	}
	if len(h1) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(h1))
	}
	if HashToken("other") == h1 {
		t.Error("different inputs should hash differently")
	}
}
