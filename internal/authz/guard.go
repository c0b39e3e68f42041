package authz

import (
	"net/url"
	"strings"
)

// State is what the guards know about the current session.
type State struct {
	LoggedIn   bool
	Privileges Privileges
}

// Guard inspects a navigation and returns a redirect target when it must be
// refused. An empty string lets the navigation through.
type Guard func(path string, st State) string

// Guards is the chain applied to every console navigation, in order.
var Guards = []Guard{LoginGuard, AuthGuard, PrivilegeGuard}

// Check runs the guard chain and returns the first redirect, if any.
func Check(path string, st State) (redirect string, ok bool) {
	for _, g := range Guards {
		if to := g(path, st); to != "" {
			return to, false
		}
	}
	return "", true
}

// AuthGuard sends anonymous sessions on protected paths to the login page,
// remembering where they were going.
func AuthGuard(path string, st State) string {
	if st.LoggedIn || !isProtected(path) {
		return ""
	}
	return LoginPath + "?returnUrl=" + url.QueryEscape(path)
}

// LoginGuard keeps signed-in sessions away from the login page.
func LoginGuard(path string, st State) string {
	if st.LoggedIn && strings.TrimSuffix(path, "/") == LoginPath {
		return DashboardPath
	}
	return ""
}

// PrivilegeGuard refuses dashboard sections the session cannot read. The bare
// dashboard path and unknown sections resolve to the first accessible route.
func PrivilegeGuard(path string, st State) string {
	if !st.LoggedIn || !isProtected(path) {
		return ""
	}
	r, found := Lookup(path)
	if found && st.Privileges.CanVisit(r) {
		return ""
	}
	first := FirstAccessible(st.Privileges)
	if first == strings.TrimSuffix(path, "/") {
		return ""
	}
	return first
}

func isProtected(path string) bool {
	path = strings.TrimSuffix(path, "/")
	return path == DashboardPath || strings.HasPrefix(path, DashboardPath+"/")
}
