package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/phdlabs/admind/internal/config"
	"github.com/phdlabs/admind/internal/model"
)

var (
	ErrIncomplete    = errors.New("assessment is incomplete")
	ErrNotDraft      = errors.New("assessment is already completed")
	ErrInvalidAnswer = errors.New("invalid answer")
)

// DefaultAssessmentTitle is used when an assessment is created without one.
const DefaultAssessmentTitle = "AI Readiness Assessment"

// AssessmentService drives readiness assessments from draft to report.
type AssessmentService struct {
	store *config.Store
}

func NewAssessmentService(store *config.Store) *AssessmentService {
	return &AssessmentService{store: store}
}

// Create starts a draft assessment owned by adminID.
func (s *AssessmentService) Create(ctx context.Context, adminID int64, title string) (*model.Assessment, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultAssessmentTitle
	}
	a := &model.Assessment{Title: title, AdminID: adminID}
	if err := s.store.CreateAssessment(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Get returns an assessment together with its progress.
func (s *AssessmentService) Get(ctx context.Context, id int64) (*model.Assessment, model.Progress, error) {
	a, err := s.store.GetAssessment(ctx, id)
	if err != nil {
		return nil, model.Progress{}, err
	}
	return a, ComputeProgress(a.Answers), nil
}

// SaveAnswers merges answers into a draft. An answer with neither a value nor
// files clears the question. Evidence files can be dropped through this call
// but only added with AddEvidence.
func (s *AssessmentService) SaveAnswers(ctx context.Context, id int64, answers map[string]model.Answer) (*model.Assessment, model.Progress, error) {
	a, err := s.draft(ctx, id)
	if err != nil {
		return nil, model.Progress{}, err
	}

	for qid, ans := range answers {
		_, q, ok := LookupQuestion(qid)
		if !ok {
			return nil, model.Progress{}, fmt.Errorf("%w: unknown question %q", ErrInvalidAnswer, qid)
		}
		ans.Value = strings.TrimSpace(ans.Value)

		switch q.Kind {
		case model.QuestionSelect:
			if ans.Value != "" && !slices.Contains(q.Options, ans.Value) {
				return nil, model.Progress{}, fmt.Errorf("%w: %q is not an option of %s", ErrInvalidAnswer, ans.Value, qid)
			}
			ans.Files = nil
		case model.QuestionFile:
			ans.Value = ""
			for _, f := range ans.Files {
				if !slices.Contains(a.Answers[qid].Files, f) {
					return nil, model.Progress{}, fmt.Errorf("%w: unknown evidence file %q", ErrInvalidAnswer, f)
				}
			}
		default:
			ans.Files = nil
		}

		if ans.Value == "" && len(ans.Files) == 0 {
			delete(a.Answers, qid)
		} else {
			a.Answers[qid] = ans
		}
	}

	if err := s.store.SaveAnswers(ctx, id, a.Answers); err != nil {
		return nil, model.Progress{}, err
	}
	return a, ComputeProgress(a.Answers), nil
}

// AddEvidence attaches a stored file to a file question of a draft.
func (s *AssessmentService) AddEvidence(ctx context.Context, id int64, questionID, fileName string) (*model.Assessment, model.Progress, error) {
	_, q, ok := LookupQuestion(questionID)
	if !ok || q.Kind != model.QuestionFile {
		return nil, model.Progress{}, fmt.Errorf("%w: %q does not accept files", ErrInvalidAnswer, questionID)
	}
	a, err := s.draft(ctx, id)
	if err != nil {
		return nil, model.Progress{}, err
	}

	ans := a.Answers[questionID]
	ans.Files = append(ans.Files, fileName)
	a.Answers[questionID] = ans

	if err := s.store.SaveAnswers(ctx, id, a.Answers); err != nil {
		return nil, model.Progress{}, err
	}
	return a, ComputeProgress(a.Answers), nil
}

// Complete scores a finished draft and stores its readiness report.
func (s *AssessmentService) Complete(ctx context.Context, id int64) (*model.Report, error) {
	a, err := s.draft(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ComputeProgress(a.Answers).CanComplete {
		return nil, ErrIncomplete
	}

	scores, overall, level := ScoreAssessment(a.Answers)
	r := &model.Report{
		Title:        a.Title + " Report",
		OverallScore: overall,
		MaxScore:     OverallMaxScore,
		Level:        level,
		Domains:      scores,
	}
	if err := s.store.CompleteAssessment(ctx, id, r); err != nil {
		if errors.Is(err, config.ErrNotFound) {
			return nil, ErrNotDraft
		}
		return nil, fmt.Errorf("store report: %w", err)
	}
	return r, nil
}

func (s *AssessmentService) draft(ctx context.Context, id int64) (*model.Assessment, error) {
	a, err := s.store.GetAssessment(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status != model.AssessmentDraft {
		return nil, ErrNotDraft
	}
	if a.Answers == nil {
		a.Answers = map[string]model.Answer{}
	}
	return a, nil
}
