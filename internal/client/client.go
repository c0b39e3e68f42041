// Package client is a Go client for the admind REST API. It keeps its tokens
// in a session.Store so the CLI and the terminal UI share one sign in.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/phdlabs/admind/internal/model"
	"github.com/phdlabs/admind/internal/session"
	"github.com/phdlabs/admind/internal/table"
)

// ErrUnauthorized is returned when the API rejects the session. The session
// has been cleared by the time it is returned.
var ErrUnauthorized = errors.New("unauthorized: please sign in again")

// APIError is a failed response envelope.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// Client talks to one admind server.
type Client struct {
	baseURL string
	http    *http.Client
	session *session.Store

	// refreshMu serialises token refreshes.
	refreshMu sync.Mutex
	now       func() time.Time
}

// New creates a client for the server at baseURL, e.g.
// "http://localhost:8080".
func New(baseURL string, sess *session.Store) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		session: sess,
		now:     time.Now,
	}
}

// Session returns the session store the client signs in to.
func (c *Client) Session() *session.Store {
	return c.session
}

// ---------------------------------------------------------------------------
// Authentication
// ---------------------------------------------------------------------------

// Login signs in and stores the tokens and privileges in the session.
func (c *Client) Login(ctx context.Context, email, password string) (*model.LoginResult, error) {
	var res model.LoginResult
	err := c.do(ctx, http.MethodPost, "/admin/login", nil, map[string]string{
		"email":    email,
		"password": password,
	}, &res, false)
	if err != nil {
		return nil, err
	}
	if err := c.store(&res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Logout revokes the refresh token and clears the session. The session is
// cleared even if the server cannot be reached.
func (c *Client) Logout(ctx context.Context) error {
	refresh := c.session.RefreshToken()
	var err error
	if refresh != "" {
		err = c.do(ctx, http.MethodPost, "/auth-admin/logout", nil,
			map[string]string{"refreshToken": refresh}, nil, false)
	}
	if cerr := c.session.Clear(); cerr != nil {
		return cerr
	}
	return err
}

// Me returns the signed-in admin.
func (c *Client) Me(ctx context.Context) (*model.Admin, error) {
	var admin model.Admin
	if err := c.get(ctx, "/admin/me", nil, &admin); err != nil {
		return nil, err
	}
	return &admin, nil
}

// Privileges fetches the privilege matrix and stores it in the session.
func (c *Client) Privileges(ctx context.Context) ([]model.Privilege, error) {
	var payload model.PrivilegesPayload
	if err := c.get(ctx, "/privilege", nil, &payload); err != nil {
		return nil, err
	}
	if err := c.session.SetPrivileges(payload.AdminPrivileges); err != nil {
		return nil, err
	}
	return payload.AdminPrivileges, nil
}

// refresh exchanges the refresh token for a new pair. It is a no-op when
// another caller refreshed while this one waited.
func (c *Client) refresh(ctx context.Context, stale string) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	if current := c.session.AccessToken(); current != stale && c.fresh(current) {
		return nil
	}
	refresh := c.session.RefreshToken()
	if refresh == "" {
		return c.expire()
	}

	var res model.LoginResult
	err := c.do(ctx, http.MethodPost, "/auth-admin/refresh-token", nil,
		map[string]string{"refreshToken": refresh}, &res, false)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
			return c.expire()
		}
		return err
	}
	return c.store(&res)
}

// expire clears a session the server rejected. The returned error always
// matches ErrUnauthorized and carries the failure to remove the session file,
// if any.
func (c *Client) expire() error {
	if err := c.session.Clear(); err != nil {
		return errors.Join(ErrUnauthorized, err)
	}
	return ErrUnauthorized
}

func (c *Client) store(res *model.LoginResult) error {
	d := c.session.Load()
	d.BaseURL = c.baseURL
	d.AccessToken = res.AccessToken
	d.RefreshToken = res.RefreshToken
	if res.Admin != nil {
		d.Admin = res.Admin
	}
	if res.Privileges != nil {
		d.Privileges = res.Privileges
	}
	return c.session.Save(d)
}

// fresh reports whether token is present and not yet expired.
func (c *Client) fresh(token string) bool {
	if token == "" {
		return false
	}
	exp, err := session.Expiry(token)
	return err == nil && c.now().Before(exp)
}

// ---------------------------------------------------------------------------
// Resources
// ---------------------------------------------------------------------------

// Resource names a list endpoint of the API.
type Resource struct {
	Name     string
	Path     string
	Function string
}

// Resources are the collections the terminal browser can page through. An
// empty Function is open to every signed-in admin.
var Resources = []Resource{
	{Name: "admins", Path: "/admin/admins", Function: model.FunctionAdmins},
	{Name: "users", Path: "/admin/users", Function: model.FunctionUsers},
	{Name: "admin-types", Path: "/admin/admin-type", Function: model.FunctionAdminTypes},
	{Name: "user-logs", Path: "/admin/user-log", Function: model.FunctionUserLogs},
	{Name: "policies", Path: "/policies"},
}

// LookupResource finds a resource by name.
func LookupResource(name string) (Resource, bool) {
	for _, r := range Resources {
		if r.Name == name {
			return r, true
		}
	}
	return Resource{}, false
}

// List fetches one page of a collection as generic rows, using the query of
// the table state.
func (c *Client) List(ctx context.Context, path string, st *table.State) (model.Page[map[string]interface{}], error) {
	var page model.Page[map[string]interface{}]
	err := c.get(ctx, path, st.Query(), &page)
	return page, err
}

// ListAdmins fetches one page of admins.
func (c *Client) ListAdmins(ctx context.Context, st *table.State) (model.Page[model.Admin], error) {
	var page model.Page[model.Admin]
	err := c.get(ctx, "/admin/admins", st.Query(), &page)
	return page, err
}

// ListAdminTypes fetches one page of admin types.
func (c *Client) ListAdminTypes(ctx context.Context, st *table.State) (model.Page[model.AdminType], error) {
	var page model.Page[model.AdminType]
	err := c.get(ctx, "/admin/admin-type", st.Query(), &page)
	return page, err
}

// ---------------------------------------------------------------------------
// Transport
// ---------------------------------------------------------------------------

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out, true)
}

// do sends a request to the API and decodes the envelope results into out.
// Authenticated requests refresh an expired access token first and clear the
// session on 401.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}, auth bool) error {
	var token string
	if auth {
		token = c.session.AccessToken()
		if !c.fresh(token) {
			if err := c.refresh(ctx, token); err != nil {
				return err
			}
			token = c.session.AccessToken()
		}
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	u := c.baseURL + "/api/v1" + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	// A rejected session is cleared whatever the body holds, e.g. a proxy's
	// plain text error page.
	if resp.StatusCode == http.StatusUnauthorized && auth {
		return c.expire()
	}

	var env struct {
		Message string          `json:"message"`
		Error   bool            `json:"error"`
		Results json.RawMessage `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil && !errors.Is(err, io.EOF) {
		if resp.StatusCode >= 400 {
			return &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	if resp.StatusCode >= 400 || env.Error {
		msg := env.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	if out != nil && len(env.Results) > 0 {
		if err := json.Unmarshal(env.Results, out); err != nil {
			return fmt.Errorf("%s %s: decode results: %w", method, path, err)
		}
	}
	return nil
}
