package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// column is one column of a resource table. Key is a dotted path into the
// JSON row; Sort is the API sort key, empty when the column cannot be sorted.
type column struct {
	Title string
	Key   string
	Sort  string
	Width int
}

// resourceColumns are the columns shown per browsable resource.
var resourceColumns = map[string][]column{
	"admins": {
		{Title: "ID", Key: "id", Width: 5},
		{Title: "Name", Key: "name", Sort: "name", Width: 20},
		{Title: "Email", Key: "email", Sort: "email", Width: 28},
		{Title: "Type", Key: "adminType.name", Width: 16},
		{Title: "Active", Key: "isActive", Sort: "isActive", Width: 7},
		{Title: "Last sign in", Key: "lastLoginAt", Sort: "lastLoginAt", Width: 17},
	},
	"users": {
		{Title: "ID", Key: "id", Width: 5},
		{Title: "First name", Key: "firstName", Sort: "firstName", Width: 14},
		{Title: "Last name", Key: "lastName", Sort: "lastName", Width: 14},
		{Title: "Email", Key: "email", Sort: "email", Width: 28},
		{Title: "Phone", Key: "phone.number", Width: 14},
		{Title: "Active", Key: "isActive", Sort: "isActive", Width: 7},
		{Title: "Verified", Key: "isVerified", Width: 8},
	},
	"admin-types": {
		{Title: "ID", Key: "id", Width: 5},
		{Title: "Name", Key: "name", Sort: "name", Width: 20},
		{Title: "Description", Key: "description", Width: 40},
		{Title: "Created", Key: "createdAt", Sort: "createdAt", Width: 17},
	},
	"user-logs": {
		{Title: "ID", Key: "id", Width: 6},
		{Title: "Admin", Key: "user.email", Width: 24},
		{Title: "Action", Key: "action", Sort: "action", Width: 7},
		{Title: "Table", Key: "table", Sort: "table", Width: 12},
		{Title: "Description", Key: "description", Width: 40},
		{Title: "When", Key: "createdAt", Sort: "createdAt", Width: 17},
	},
	"policies": {
		{Title: "ID", Key: "id", Width: 5},
		{Title: "Title", Key: "title", Sort: "title", Width: 32},
		{Title: "Sector", Key: "sector", Sort: "sector", Width: 14},
		{Title: "Status", Key: "status", Sort: "status", Width: 9},
		{Title: "Version", Key: "version", Width: 8},
		{Title: "Modified", Key: "lastModified", Sort: "lastModified", Width: 17},
	},
}

// lookup resolves a dotted path in a decoded JSON object.
func lookup(row map[string]interface{}, path string) interface{} {
	var cur interface{} = row
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil
		}
		cur = m[part]
	}
	return cur
}

// formatCell renders a decoded JSON value for a table cell.
func formatCell(v interface{}) string {
	switch v := v.(type) {
	case nil:
		return ""
	case bool:
		if v {
			return "yes"
		}
		return "no"
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', 1, 64)
	case string:
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t.Local().Format("2006-01-02 15:04")
		}
		return v
	default:
		return fmt.Sprint(v)
	}
}
