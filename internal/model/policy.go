package model

import "time"

// Policy statuses.
const (
	PolicyDraft    = "draft"
	PolicyReview   = "review"
	PolicyApproved = "approved"
	PolicyArchived = "archived"
)

// PolicyContext holds the organisational inputs of the policy generator.
type PolicyContext struct {
	Sector           string `json:"sector" validate:"required"`
	OrganizationSize string `json:"organizationSize" validate:"required"`
	RiskAppetite     string `json:"riskAppetite" validate:"required"`
	Timeline         string `json:"timeline" validate:"required"`
	ReportID         *int64 `json:"reportId,omitempty"`
}

// PolicySection is one titled part of a generated policy.
type PolicySection struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Rationale  string   `json:"rationale"`
	References []string `json:"references"`
}

// GeneratedPolicy is the output of the policy generator before it is saved.
type GeneratedPolicy struct {
	Title            string          `json:"title"`
	Context          PolicyContext   `json:"context"`
	ExecutiveSummary string          `json:"executiveSummary"`
	Sections         []PolicySection `json:"sections"`
}

// Policy is a policy document kept in the library.
type Policy struct {
	ID               int64           `json:"id" db:"id"`
	Title            string          `json:"title" db:"title"`
	Sector           string          `json:"sector" db:"sector"`
	OrganizationSize string          `json:"organizationSize" db:"organization_size"`
	RiskAppetite     string          `json:"riskAppetite" db:"risk_appetite"`
	Timeline         string          `json:"timeline" db:"timeline"`
	Status           string          `json:"status" db:"status"`
	Version          int             `json:"version" db:"version"`
	ExecutiveSummary string          `json:"executiveSummary" db:"executive_summary"`
	Sections         []PolicySection `json:"sections"`
	CreatedBy        int64           `json:"createdBy" db:"created_by"`
	CreatedAt        time.Time       `json:"createdAt" db:"created_at"`
	LastModified     time.Time       `json:"lastModified" db:"last_modified"`
}

// PolicyVersion is a snapshot of a policy taken before it was modified.
type PolicyVersion struct {
	ID               int64           `json:"id" db:"id"`
	PolicyID         int64           `json:"policyId" db:"policy_id"`
	Version          int             `json:"version" db:"version"`
	Title            string          `json:"title" db:"title"`
	Status           string          `json:"status" db:"status"`
	ExecutiveSummary string          `json:"executiveSummary" db:"executive_summary"`
	Sections         []PolicySection `json:"sections"`
	ModifiedBy       int64           `json:"modifiedBy" db:"modified_by"`
	CreatedAt        time.Time       `json:"createdAt" db:"created_at"`
}

// ValidPolicyStatus reports whether s is a known policy status.
func ValidPolicyStatus(s string) bool {
	switch s {
	case PolicyDraft, PolicyReview, PolicyApproved, PolicyArchived:
		return true
	}
	return false
}
