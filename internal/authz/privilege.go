// Package authz evaluates cached privilege matrices and decides which console
// routes a session may visit.
package authz

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/phdlabs/admind/internal/model"
)

// Access is the kind of operation a privilege flag grants.
type Access string

const (
	Read   Access = "read"
	Write  Access = "write"
	Update Access = "update"
	Delete Access = "delete"
)

// ParseAccess converts a string such as "read" into an Access.
func ParseAccess(s string) (Access, error) {
	switch a := Access(strings.ToLower(strings.TrimSpace(s))); a {
	case Read, Write, Update, Delete:
		return a, nil
	}
	return "", fmt.Errorf("unknown access kind %q", s)
}

// AccessForMethod maps an HTTP method to the access kind it requires.
func AccessForMethod(method string) Access {
	switch method {
	case http.MethodPost:
		return Write
	case http.MethodPut, http.MethodPatch:
		return Update
	case http.MethodDelete:
		return Delete
	default:
		return Read
	}
}

// Privileges is a privilege matrix as cached by a session.
type Privileges []model.Privilege

// Has reports whether the privilege for functionKey grants access. A function
// with no privilege record is denied.
func (p Privileges) Has(functionKey string, access Access) bool {
	for _, pr := range p {
		if pr.Function.Key != functionKey {
			continue
		}
		switch access {
		case Read:
			return pr.Read
		case Write:
			return pr.Write
		case Update:
			return pr.Update
		case Delete:
			return pr.Delete
		}
		return false
	}
	return false
}

// Covers reports whether p grants every access that other grants.
func (p Privileges) Covers(other Privileges) bool {
	for _, pr := range other {
		key := pr.Function.Key
		if (pr.Read && !p.Has(key, Read)) ||
			(pr.Write && !p.Has(key, Write)) ||
			(pr.Update && !p.Has(key, Update)) ||
			(pr.Delete && !p.Has(key, Delete)) {
			return false
		}
	}
	return true
}

// Full returns a matrix granting every access kind on every function. It is
// the effective matrix of a super admin.
func Full(functions []model.Function) Privileges {
	out := make(Privileges, 0, len(functions))
	for _, fn := range functions {
		out = append(out, model.Privilege{
			Function: fn,
			Read:     true,
			Write:    true,
			Update:   true,
			Delete:   true,
		})
	}
	return out
}
