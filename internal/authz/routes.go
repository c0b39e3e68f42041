package authz

import "strings"

// Console paths.
const (
	LoginPath     = "/login"
	DashboardPath = "/dashboard"
)

// Route is an entry of the console navigation. Routes with an empty Function
// are open to every signed-in admin.
type Route struct {
	Path     string
	Label    string
	Function string
}

// NavRoutes is the sidebar in display order. The first route a session may
// read is where denied navigation lands.
var NavRoutes = []Route{
	{Path: "/dashboard/ai-readiness-assessment", Label: "AI Readiness Assessment"},
	{Path: "/dashboard/readiness-reports", Label: "Readiness Reports"},
	{Path: "/dashboard/policy-generator", Label: "Policy Generator"},
	{Path: "/dashboard/policy-library", Label: "Policy Library"},
	{Path: "/dashboard/admins", Label: "Admins", Function: "admins"},
	{Path: "/dashboard/admin-types", Label: "Admin Types", Function: "adminTypes"},
	{Path: "/dashboard/activity-logs", Label: "Activity Logs", Function: "userLogs"},
	{Path: "/dashboard/settings", Label: "Settings", Function: "settings"},
}

// SettingsTabs are the tabs of the settings page.
var SettingsTabs = []Route{
	{Path: "/dashboard/settings/general", Label: "General", Function: "settings"},
	{Path: "/dashboard/settings/admins", Label: "Admins", Function: "admins"},
	{Path: "/dashboard/settings/admin-types", Label: "Admin Types", Function: "adminTypes"},
	{Path: "/dashboard/settings/users", Label: "Users", Function: "users"},
}

// CanVisit reports whether the matrix allows reading the route.
func (p Privileges) CanVisit(r Route) bool {
	return r.Function == "" || p.Has(r.Function, Read)
}

// Visible filters routes down to the ones the matrix can read, keeping order.
func (p Privileges) Visible(routes []Route) []Route {
	var out []Route
	for _, r := range routes {
		if p.CanVisit(r) {
			out = append(out, r)
		}
	}
	return out
}

// FirstAccessible returns the first navigation route the matrix can read, or
// the login path when there is none.
func FirstAccessible(p Privileges) string {
	for _, r := range NavRoutes {
		if p.CanVisit(r) {
			return r.Path
		}
	}
	return LoginPath
}

// Lookup finds the navigation route owning path. Nested paths such as
// /dashboard/settings/general resolve to their top-level route.
func Lookup(path string) (Route, bool) {
	path = strings.TrimSuffix(path, "/")
	for _, r := range NavRoutes {
		if path == r.Path || strings.HasPrefix(path, r.Path+"/") {
			return r, true
		}
	}
	return Route{}, false
}
