package model

// ApiResponse is the envelope wrapping every JSON response of the API.
type ApiResponse struct {
	Message string      `json:"message"`
	Error   bool        `json:"error"`
	Results interface{} `json:"results"`
	Code    int         `json:"code"`
}

// Page is the results payload of paginated list endpoints.
type Page[T any] struct {
	Data       []T   `json:"data"`
	TotalCount int64 `json:"totalCount"`
}

// Overview holds the dashboard counters.
type Overview struct {
	ActiveAdmins   int64 `json:"activeAdmins"`
	PendingInvites int64 `json:"pendingInvites"`
	AdminTypes     int64 `json:"adminTypes"`
	SecurityAlerts int64 `json:"securityAlerts"`
}

// Settings holds the console preferences.
type Settings struct {
	SecurityAlerts         bool `json:"securityAlerts"`
	WeeklyDigest           bool `json:"weeklyDigest"`
	AutoApproveInvitations bool `json:"autoApproveInvitations"`
}

// DefaultSettings returns the preferences of a fresh installation.
func DefaultSettings() Settings {
	return Settings{SecurityAlerts: true, WeeklyDigest: false, AutoApproveInvitations: false}
}
