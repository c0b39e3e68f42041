package client

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/phdlabs/admind/internal/config"
	"github.com/phdlabs/admind/internal/model"
	"github.com/phdlabs/admind/internal/server"
	"github.com/phdlabs/admind/internal/service"
	"github.com/phdlabs/admind/internal/session"
	"github.com/phdlabs/admind/internal/table"
)

const (
	testEmail    = "admin@example.com"
	testPassword = "supersecretpassword"
)

// newTestClient starts a full API server with one super admin and returns a
// client with an empty session pointed at it.
func newTestClient(t *testing.T) (*Client, *config.Store) {
	t.Helper()

	store, err := config.NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	hash, err := service.HashPassword(testPassword)
	if err != nil {
		t.Fatal(err)
	}
	admin := &model.Admin{Email: testEmail, Name: "Root", PasswordHash: hash, IsActive: true, IsSuperAdmin: true}
	if err := store.CreateAdmin(context.Background(), admin); err != nil {
		t.Fatal(err)
	}

	cfg := server.DefaultConfig()
	cfg.UploadDir = t.TempDir()
	srv, err := server.New(cfg, store, service.NewAuthService(store, "client-test-secret"), nil,
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	sess, err := session.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return New(ts.URL, sess), store
}

func TestLoginStoresSession(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	res, err := c.Login(ctx, testEmail, testPassword)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	d := c.Session().Load()
	if d.AccessToken != res.AccessToken || d.RefreshToken != res.RefreshToken {
		t.Error("tokens were not stored")
	}
	if d.Admin == nil || d.Admin.Email != testEmail {
		t.Errorf("admin = %+v", d.Admin)
	}
	if !c.Session().HasPrivilege(model.FunctionSettings, "delete") {
		t.Error("super admin privileges were not stored")
	}

	me, err := c.Me(ctx)
	if err != nil {
		t.Fatalf("Me: %v", err)
	}
	if me.Email != testEmail {
		t.Errorf("me = %+v", me)
	}
}

func TestLoginFailure(t *testing.T) {
	c, _ := newTestClient(t)

	_, err := c.Login(context.Background(), testEmail, "wrong-password")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		t.Fatalf("err = %v, want a 401 APIError", err)
	}
	if c.Session().AccessToken() != "" {
		t.Error("failed login must not store a session")
	}
}

func TestExpiredTokenIsRefreshed(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()
	first, err := c.Login(ctx, testEmail, testPassword)
	if err != nil {
		t.Fatal(err)
	}

	// Pretend the access token has expired.
	c.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	if _, err := c.Me(ctx); err != nil {
		t.Fatalf("Me after expiry: %v", err)
	}
	if got := c.Session().RefreshToken(); got == "" || got == first.RefreshToken {
		t.Error("refresh token was not rotated")
	}
}

func TestExpiredWithoutRefreshToken(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()
	if _, err := c.Login(ctx, testEmail, testPassword); err != nil {
		t.Fatal(err)
	}
	d := c.Session().Load()
	d.RefreshToken = ""
	c.Session().Save(d)
	c.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	if _, err := c.Me(ctx); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
	if c.Session().AccessToken() != "" {
		t.Error("session should be cleared")
	}
}

func TestUnauthorizedClearsSession(t *testing.T) {
	c, _ := newTestClient(t)

	// A well-formed token the server did not sign.
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "1",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("someone-else"))
	if err != nil {
		t.Fatal(err)
	}
	c.Session().Save(session.Data{AccessToken: forged, RefreshToken: "r"})

	if _, err := c.Me(context.Background()); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
	if c.Session().AccessToken() != "" || c.Session().RefreshToken() != "" {
		t.Error("session should be cleared after a 401")
	}
}

func TestUnauthorizedPlainTextClearsSession(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, "401 Authorization Required\n")
	}))
	t.Cleanup(ts.Close)

	sess, err := session.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "1",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("any"))
	if err != nil {
		t.Fatal(err)
	}
	sess.Save(session.Data{AccessToken: token, RefreshToken: "r"})
	c := New(ts.URL, sess)

	if _, err := c.Me(context.Background()); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
	if sess.AccessToken() != "" || sess.RefreshToken() != "" {
		t.Error("session should be cleared after a plain text 401")
	}
}

func TestPlainTextErrorBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, "<html>bad gateway</html>")
	}))
	t.Cleanup(ts.Close)

	sess, err := session.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	_, err = New(ts.URL, sess).Login(context.Background(), testEmail, testPassword)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadGateway {
		t.Fatalf("err = %v, want APIError 502", err)
	}
}

func TestListAndPrivileges(t *testing.T) {
	c, store := newTestClient(t)
	ctx := context.Background()
	for _, email := range []string{"b@example.com", "c@example.com"} {
		if err := store.CreateAdmin(ctx, &model.Admin{Email: email, Name: "Member", PasswordHash: "x"}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := c.Login(ctx, testEmail, testPassword); err != nil {
		t.Fatal(err)
	}

	st := table.New(true)
	st.SetFilter("isActive", "false")
	page, err := c.ListAdmins(ctx, st)
	if err != nil {
		t.Fatalf("ListAdmins: %v", err)
	}
	if page.TotalCount != 2 {
		t.Errorf("inactive admins = %d", page.TotalCount)
	}

	rows, err := c.List(ctx, "/admin/admins", table.New(true))
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if rows.TotalCount != 3 || rows.Data[0]["email"] != testEmail {
		t.Errorf("rows = %+v", rows)
	}

	privs, err := c.Privileges(ctx)
	if err != nil {
		t.Fatalf("Privileges: %v", err)
	}
	if len(privs) != len(model.DefaultFunctions()) {
		t.Errorf("privileges = %d", len(privs))
	}
}

func TestLogout(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()
	res, err := c.Login(ctx, testEmail, testPassword)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if c.Session().AccessToken() != "" {
		t.Error("session should be cleared")
	}

	// The revoked refresh token no longer works.
	c.Session().Save(session.Data{RefreshToken: res.RefreshToken})
	if _, err := c.Me(ctx); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}
}

func TestLookupResource(t *testing.T) {
	if r, ok := LookupResource("admin-types"); !ok || r.Function != model.FunctionAdminTypes {
		t.Errorf("admin-types = %+v, %v", r, ok)
	}
	if _, ok := LookupResource("billing"); ok {
		t.Error("unknown resource should not resolve")
	}
}
