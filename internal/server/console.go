package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/phdlabs/admind/internal/authz"
	"github.com/phdlabs/admind/internal/handler"
	"github.com/phdlabs/admind/internal/service"
	"github.com/phdlabs/admind/internal/ui"
)

// sectionAPI maps console sections to the API collection they display.
var sectionAPI = map[string]string{
	"/dashboard/ai-readiness-assessment": "/assessments",
	"/dashboard/readiness-reports":       "/reports",
	"/dashboard/policy-generator":        "/policy/options",
	"/dashboard/policy-library":          "/policies",
	"/dashboard/admins":                  "/admin/admins",
	"/dashboard/admin-types":             "/admin/admin-type",
	"/dashboard/activity-logs":           "/admin/user-log",
	"/dashboard/settings":                "/admin/settings",
	"/dashboard/settings/general":        "/admin/settings",
	"/dashboard/settings/admins":         "/admin/admins",
	"/dashboard/settings/admin-types":    "/admin/admin-type",
	"/dashboard/settings/users":          "/admin/users",
}

type consoleSession struct {
	state authz.State
	email string
}

func (s *Server) consoleRoutes(r chi.Router) {
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, authz.DashboardPath, http.StatusFound)
	})
	r.Get(authz.LoginPath, s.guarded(s.loginPage))
	r.Post(authz.LoginPath, s.loginSubmit)
	r.Post("/logout", s.logoutSubmit)
	r.Get(authz.DashboardPath, s.guarded(s.sectionPage))
	r.Get(authz.DashboardPath+"/*", s.guarded(s.sectionPage))
}

// session resolves the console session from the session cookie. Any failure
// leaves the session signed out.
func (s *Server) session(r *http.Request) consoleSession {
	c, err := r.Cookie(handler.SessionCookie)
	if err != nil || c.Value == "" {
		return consoleSession{}
	}
	p, err := s.authSvc.ValidateJWT(r.Context(), c.Value)
	if err != nil {
		return consoleSession{}
	}
	if _, err := s.authSvc.ResolveAdmin(r.Context(), p.AdminID); err != nil {
		return consoleSession{}
	}
	privs, err := s.authSvc.Privileges(r.Context(), p.AdminID)
	if err != nil {
		s.logger.Warn("console privileges unavailable", "admin_id", p.AdminID, "error", err)
		return consoleSession{}
	}
	return consoleSession{state: authz.State{LoggedIn: true, Privileges: privs}, email: p.Email}
}

// guarded runs the navigation guards before rendering a console page.
func (s *Server) guarded(page func(http.ResponseWriter, *http.Request, consoleSession)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := s.session(r)
		if to, ok := authz.Check(r.URL.Path, sess.state); !ok {
			http.Redirect(w, r, to, http.StatusFound)
			return
		}
		page(w, r, sess)
	}
}

func (s *Server) loginPage(w http.ResponseWriter, r *http.Request, _ consoleSession) {
	s.renderLogin(w, http.StatusOK, ui.LoginPage{ReturnURL: r.URL.Query().Get("returnUrl")})
}

func (s *Server) loginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderLogin(w, http.StatusBadRequest, ui.LoginPage{Error: "Invalid form"})
		return
	}
	page := ui.LoginPage{
		ReturnURL: r.PostForm.Get("returnUrl"),
		Email:     strings.TrimSpace(r.PostForm.Get("email")),
	}

	res, err := s.authSvc.Login(r.Context(), page.Email, r.PostForm.Get("password"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			page.Error = "Invalid email or password"
		case errors.Is(err, service.ErrAccountDisabled):
			page.Error = "This account is disabled"
		default:
			s.logger.Error("console sign in failed", "error", err)
			page.Error = "Sign in is unavailable, please try again"
		}
		s.renderLogin(w, http.StatusUnauthorized, page)
		return
	}

	s.setConsoleCookie(w, handler.SessionCookie, res.AccessToken, res.ExpiresIn)
	s.setConsoleCookie(w, handler.RefreshCookie, res.RefreshToken, int(s.authSvc.RefreshTTL().Seconds()))

	to := page.ReturnURL
	if !isLocalPath(to) {
		to = authz.FirstAccessible(res.Privileges)
	}
	http.Redirect(w, r, to, http.StatusFound)
}

// logoutSubmit revokes the console's refresh token and clears both cookies.
// A failed revocation is logged and the cookies are cleared anyway.
func (s *Server) logoutSubmit(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(handler.RefreshCookie); err == nil && c.Value != "" {
		if err := s.authSvc.Logout(r.Context(), c.Value); err != nil {
			s.logger.Error("console sign out failed to revoke refresh token", "error", err)
		}
	}
	s.setConsoleCookie(w, handler.SessionCookie, "", -1)
	s.setConsoleCookie(w, handler.RefreshCookie, "", -1)
	http.Redirect(w, r, authz.LoginPath, http.StatusFound)
}

func (s *Server) setConsoleCookie(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) sectionPage(w http.ResponseWriter, r *http.Request, sess consoleSession) {
	path := strings.TrimSuffix(r.URL.Path, "/")
	route, _ := authz.Lookup(path)
	privs := sess.state.Privileges

	page := ui.SectionPage{
		Title:   route.Label,
		Path:    path,
		Admin:   sess.email,
		Nav:     privs.Visible(authz.NavRoutes),
		APIPath: sectionAPI[path],
	}
	if route.Path == "/dashboard/settings" {
		page.Tabs = privs.Visible(authz.SettingsTabs)
		for _, tab := range authz.SettingsTabs {
			if tab.Path != path {
				continue
			}
			if !privs.CanVisit(tab) {
				http.Redirect(w, r, route.Path, http.StatusFound)
				return
			}
			page.Title = route.Label + " · " + tab.Label
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := ui.RenderSection(w, page); err != nil {
		s.logger.Error("render console section", "path", path, "error", err)
	}
}

func (s *Server) renderLogin(w http.ResponseWriter, status int, page ui.LoginPage) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := ui.RenderLogin(w, page); err != nil {
		s.logger.Error("render login page", "error", err)
	}
}

// isLocalPath accepts same-site absolute paths only, never another host.
func isLocalPath(p string) bool {
	return strings.HasPrefix(p, "/") && !strings.HasPrefix(p, "//") && !strings.HasPrefix(p, "/\\")
}
