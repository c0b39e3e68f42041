package model

import "time"

// Domain score statuses.
const (
	StatusExcellent        = "excellent"
	StatusGood             = "good"
	StatusModerate         = "moderate"
	StatusNeedsImprovement = "needs-improvement"
)

// Overall readiness levels.
const (
	LevelHigh   = "high"
	LevelMedium = "medium"
	LevelLow    = "low"
)

// Report is a scored readiness report produced from a completed assessment.
type Report struct {
	ID           int64         `json:"id" db:"id"`
	AssessmentID int64         `json:"assessmentId" db:"assessment_id"`
	Title        string        `json:"title" db:"title"`
	OverallScore float64       `json:"overallScore" db:"overall_score"`
	MaxScore     float64       `json:"maxScore" db:"max_score"`
	Level        string        `json:"level" db:"level"`
	Domains      []DomainScore `json:"domains"`
	CreatedAt    time.Time     `json:"createdAt" db:"created_at"`
}

// DomainScore is the scored result of one assessment domain.
type DomainScore struct {
	DomainID        string   `json:"domainId"`
	Title           string   `json:"title"`
	Score           float64  `json:"score"`
	MaxScore        float64  `json:"maxScore"`
	Status          string   `json:"status"`
	Gaps            []string `json:"gaps"`
	Recommendations []string `json:"recommendations"`
}

// Percent returns the score as a percentage of the domain maximum.
func (d DomainScore) Percent() float64 {
	if d.MaxScore == 0 {
		return 0
	}
	return d.Score / d.MaxScore * 100
}
