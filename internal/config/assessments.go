package config

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/phdlabs/admind/internal/model"
	"github.com/phdlabs/admind/internal/table"
)

// ---------------------------------------------------------------------------
// Assessments
// ---------------------------------------------------------------------------

type assessmentRow struct {
	ID          int64      `db:"id"`
	Title       string     `db:"title"`
	AdminID     int64      `db:"admin_id"`
	Status      string     `db:"status"`
	AnswersJSON string     `db:"answers_json"`
	ReportID    *int64     `db:"report_id"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
	CompletedAt *time.Time `db:"completed_at"`
}

func (r assessmentRow) toModel() (model.Assessment, error) {
	a := model.Assessment{
		ID:          r.ID,
		Title:       r.Title,
		AdminID:     r.AdminID,
		Status:      r.Status,
		ReportID:    r.ReportID,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		CompletedAt: r.CompletedAt,
		Answers:     map[string]model.Answer{},
	}
	if r.AnswersJSON != "" {
		if err := json.Unmarshal([]byte(r.AnswersJSON), &a.Answers); err != nil {
			return a, fmt.Errorf("decode answers: %w", err)
		}
	}
	return a, nil
}

// AssessmentList describes the assessment list view.
var AssessmentList = listSpec{
	from: "assessments",
	columns: []string{
		"id", "title", "admin_id", "status", "answers_json", "report_id",
		"created_at", "updated_at", "completed_at",
	},
	search: []string{"title"},
	sortable: map[string]string{
		"title":     "title",
		"createdAt": "created_at",
		"updatedAt": "updated_at",
		"status":    "status",
	},
	filters: map[string]func(string) (sq.Sqlizer, error){
		"status": eqFilter("status"),
	},
	defaultSort: "id DESC",
}

// CreateAssessment inserts a draft assessment.
func (s *Store) CreateAssessment(ctx context.Context, a *model.Assessment) error {
	if a.Answers == nil {
		a.Answers = map[string]model.Answer{}
	}
	answers, err := json.Marshal(a.Answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}
	now := time.Now().UTC()
	a.Status = model.AssessmentDraft
	id, err := s.insert(ctx, s.db, s.sb.Insert("assessments").
		Columns("title", "admin_id", "status", "answers_json", "created_at", "updated_at").
		Values(a.Title, a.AdminID, a.Status, string(answers), now, now))
	if err != nil {
		return fmt.Errorf("insert assessment: %w", err)
	}
	a.ID = id
	a.CreatedAt = now
	a.UpdatedAt = now
	return nil
}

// GetAssessment retrieves an assessment by ID.
func (s *Store) GetAssessment(ctx context.Context, id int64) (*model.Assessment, error) {
	var row assessmentRow
	if err := s.get(ctx, s.db, &row, s.sb.Select(AssessmentList.columns...).From("assessments").Where(sq.Eq{"id": id})); err != nil {
		return nil, err
	}
	a, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAssessments returns one page of assessments, newest first by default.
func (s *Store) ListAssessments(ctx context.Context, st *table.State) ([]model.Assessment, int64, error) {
	var rows []assessmentRow
	total, err := s.list(ctx, AssessmentList, st, &rows)
	if err != nil {
		return nil, 0, fmt.Errorf("list assessments: %w", err)
	}
	out := make([]model.Assessment, len(rows))
	for i, r := range rows {
		if out[i], err = r.toModel(); err != nil {
			return nil, 0, err
		}
	}
	return out, total, nil
}

// SaveAnswers replaces the answers of a draft assessment.
func (s *Store) SaveAnswers(ctx context.Context, id int64, answers map[string]model.Answer) error {
	raw, err := json.Marshal(answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}
	return s.execAffected(ctx, s.db, s.sb.Update("assessments").
		Set("answers_json", string(raw)).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": id, "status": model.AssessmentDraft}))
}

// CompleteAssessment stores the report of an assessment and marks the
// assessment completed, atomically.
func (s *Store) CompleteAssessment(ctx context.Context, id int64, r *model.Report) error {
	domains, err := json.Marshal(r.Domains)
	if err != nil {
		return fmt.Errorf("encode report domains: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	reportID, err := s.insert(ctx, tx, s.sb.Insert("readiness_reports").
		Columns("assessment_id", "title", "overall_score", "max_score", "level", "domains_json", "created_at").
		Values(id, r.Title, r.OverallScore, r.MaxScore, r.Level, string(domains), now))
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	err = s.execAffected(ctx, tx, s.sb.Update("assessments").
		Set("status", model.AssessmentCompleted).
		Set("report_id", reportID).
		Set("completed_at", now).
		Set("updated_at", now).
		Where(sq.Eq{"id": id, "status": model.AssessmentDraft}))
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	r.ID = reportID
	r.AssessmentID = id
	r.CreatedAt = now
	return nil
}

// ---------------------------------------------------------------------------
// Readiness reports
// ---------------------------------------------------------------------------

type reportRow struct {
	ID           int64     `db:"id"`
	AssessmentID int64     `db:"assessment_id"`
	Title        string    `db:"title"`
	OverallScore float64   `db:"overall_score"`
	MaxScore     float64   `db:"max_score"`
	Level        string    `db:"level"`
	DomainsJSON  string    `db:"domains_json"`
	CreatedAt    time.Time `db:"created_at"`
}

func (r reportRow) toModel() (model.Report, error) {
	out := model.Report{
		ID:           r.ID,
		AssessmentID: r.AssessmentID,
		Title:        r.Title,
		OverallScore: r.OverallScore,
		MaxScore:     r.MaxScore,
		Level:        r.Level,
		CreatedAt:    r.CreatedAt,
	}
	if err := json.Unmarshal([]byte(r.DomainsJSON), &out.Domains); err != nil {
		return out, fmt.Errorf("decode report domains: %w", err)
	}
	return out, nil
}

// ReportList describes the readiness report list view.
var ReportList = listSpec{
	from: "readiness_reports",
	columns: []string{
		"id", "assessment_id", "title", "overall_score", "max_score", "level",
		"domains_json", "created_at",
	},
	search: []string{"title"},
	sortable: map[string]string{
		"title":        "title",
		"createdAt":    "created_at",
		"overallScore": "overall_score",
	},
	filters: map[string]func(string) (sq.Sqlizer, error){
		"level": eqFilter("level"),
	},
	defaultSort: "id DESC",
}

// GetReport retrieves a readiness report by ID.
func (s *Store) GetReport(ctx context.Context, id int64) (*model.Report, error) {
	var row reportRow
	if err := s.get(ctx, s.db, &row, s.sb.Select(ReportList.columns...).From("readiness_reports").Where(sq.Eq{"id": id})); err != nil {
		return nil, err
	}
	r, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListReports returns one page of readiness reports, newest first by default.
func (s *Store) ListReports(ctx context.Context, st *table.State) ([]model.Report, int64, error) {
	var rows []reportRow
	total, err := s.list(ctx, ReportList, st, &rows)
	if err != nil {
		return nil, 0, fmt.Errorf("list reports: %w", err)
	}
	out := make([]model.Report, len(rows))
	for i, r := range rows {
		if out[i], err = r.toModel(); err != nil {
			return nil, 0, err
		}
	}
	return out, total, nil
}
