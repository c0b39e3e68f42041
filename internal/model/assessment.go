package model

import "time"

// Question kinds used by the readiness assessment.
const (
	QuestionSelect   = "select"
	QuestionTextarea = "textarea"
	QuestionFile     = "file"
)

// Assessment statuses.
const (
	AssessmentDraft     = "draft"
	AssessmentCompleted = "completed"
)

// Domain is one area of the readiness assessment.
type Domain struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Questions   []Question `json:"questions"`
}

// Question is a single assessment question. Options is only set for select
// questions.
type Question struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	Kind     string   `json:"type"`
	Required bool     `json:"required"`
	Options  []string `json:"options,omitempty"`
}

// Answer is the response to one question. File questions carry the stored
// evidence file names in Files.
type Answer struct {
	Value string   `json:"value,omitempty"`
	Files []string `json:"files,omitempty"`
}

// Assessment is a readiness assessment being filled in by an admin.
type Assessment struct {
	ID          int64             `json:"id" db:"id"`
	Title       string            `json:"title" db:"title"`
	AdminID     int64             `json:"adminId" db:"admin_id"`
	Status      string            `json:"status" db:"status"`
	Answers     map[string]Answer `json:"answers"`
	ReportID    *int64            `json:"reportId,omitempty" db:"report_id"`
	CreatedAt   time.Time         `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time         `json:"updatedAt" db:"updated_at"`
	CompletedAt *time.Time        `json:"completedAt,omitempty" db:"completed_at"`
}

// Progress summarizes how far an assessment is from completion.
type Progress struct {
	Domains     []DomainProgress `json:"domains"`
	Overall     float64          `json:"overall"`
	CanComplete bool             `json:"canComplete"`
}

// DomainProgress is the completion state of one domain.
type DomainProgress struct {
	DomainID string  `json:"domainId"`
	Answered int     `json:"answered"`
	Total    int     `json:"total"`
	Percent  float64 `json:"percent"`
	Complete bool    `json:"complete"`
}
