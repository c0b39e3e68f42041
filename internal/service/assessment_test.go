package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/phdlabs/admind/internal/config"
	"github.com/phdlabs/admind/internal/model"
)

// strongAnswers fills every question of every domain with the best answer.
func strongAnswers() map[string]model.Answer {
	out := map[string]model.Answer{}
	for _, d := range Domains() {
		for _, q := range d.Questions {
			switch q.Kind {
			case model.QuestionSelect:
				v := q.Options[0]
				if reversedSelects[q.ID] {
					v = q.Options[len(q.Options)-1]
				}
				out[q.ID] = model.Answer{Value: v}
			case model.QuestionFile:
				out[q.ID] = model.Answer{Files: []string{q.ID + ".pdf"}}
			default:
				out[q.ID] = model.Answer{Value: strings.Repeat("detailed answer ", 4)}
			}
		}
	}
	return out
}

// requiredOnly answers each required question with the weakest option and
// a brief text.
func requiredOnly() map[string]model.Answer {
	out := map[string]model.Answer{}
	for _, d := range Domains() {
		for _, q := range d.Questions {
			if !q.Required {
				continue
			}
			if q.Kind == model.QuestionSelect {
				v := q.Options[len(q.Options)-1]
				if reversedSelects[q.ID] {
					v = q.Options[0]
				}
				out[q.ID] = model.Answer{Value: v}
				continue
			}
			out[q.ID] = model.Answer{Value: "brief"}
		}
	}
	return out
}

func TestCatalogue(t *testing.T) {
	ds := Domains()
	if len(ds) != 5 {
		t.Fatalf("domains: got %d, want 5", len(ds))
	}
	for _, d := range ds {
		if len(d.Questions) != 4 {
			t.Errorf("%s: got %d questions, want 4", d.ID, len(d.Questions))
			continue
		}
		kinds := []string{model.QuestionSelect, model.QuestionTextarea, model.QuestionTextarea, model.QuestionFile}
		required := []bool{true, true, false, false}
		for i, q := range d.Questions {
			if q.Kind != kinds[i] || q.Required != required[i] {
				t.Errorf("%s: got kind=%s required=%v, want %s/%v", q.ID, q.Kind, q.Required, kinds[i], required[i])
			}
		}
	}

	// Callers get a copy.
	ds[0].Questions[0].Text = "changed"
	if Domains()[0].Questions[0].Text == "changed" {
		t.Error("Domains must return a copy")
	}

	d, q, ok := LookupQuestion("gp-1")
	if !ok || d.ID != DomainPolicy || q.Kind != model.QuestionSelect {
		t.Errorf("LookupQuestion(gp-1): got %s/%s/%v", d.ID, q.ID, ok)
	}
	if _, _, ok := LookupQuestion("zz-9"); ok {
		t.Error("expected unknown question")
	}
}

func TestComputeProgress(t *testing.T) {
	tests := []struct {
		name        string
		answers     map[string]model.Answer
		wantOverall float64
		canComplete bool
	}{
		// Optional questions always count, so an empty domain is half done.
		{"empty", nil, 50, false},
		{"required only", requiredOnly(), 100, true},
		{"all", strongAnswers(), 100, true},
		{"one domain", map[string]model.Answer{
			"ti-1": {Value: "Hybrid cloud"},
			"ti-2": {Value: "some text"},
		}, 60, false},
		{"blank value does not count", map[string]model.Answer{
			"ti-1": {Value: "Hybrid cloud"},
			"ti-2": {Value: "   "},
		}, 55, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ComputeProgress(tt.answers)
			if p.Overall != tt.wantOverall {
				t.Errorf("Overall: got %v, want %v", p.Overall, tt.wantOverall)
			}
			if p.CanComplete != tt.canComplete {
				t.Errorf("CanComplete: got %v, want %v", p.CanComplete, tt.canComplete)
			}
			if len(p.Domains) != 5 {
				t.Errorf("domains: got %d", len(p.Domains))
			}
		})
	}
}

func TestScoreAssessment(t *testing.T) {
	scores, overall, level := ScoreAssessment(strongAnswers())
	if overall != OverallMaxScore {
		t.Errorf("strong overall: got %v, want %v", overall, OverallMaxScore)
	}
	if level != model.LevelHigh {
		t.Errorf("strong level: got %s", level)
	}
	for _, ds := range scores {
		if ds.Status != model.StatusExcellent {
			t.Errorf("%s: got status %s", ds.DomainID, ds.Status)
		}
		if len(ds.Gaps) != 0 || len(ds.Recommendations) != 1 {
			t.Errorf("%s: got %d gaps, %d recommendations", ds.DomainID, len(ds.Gaps), len(ds.Recommendations))
		}
	}

	// Weakest option (2) + brief text (3) = 5 of 20 per domain.
	scores, overall, level = ScoreAssessment(requiredOnly())
	if overall != 25 {
		t.Errorf("weak overall: got %v, want 25", overall)
	}
	if level != model.LevelLow {
		t.Errorf("weak level: got %s", level)
	}
	for _, ds := range scores {
		if ds.Score != 5 || ds.Status != model.StatusNeedsImprovement {
			t.Errorf("%s: got %v/%s", ds.DomainID, ds.Score, ds.Status)
		}
		if len(ds.Gaps) != 4 || len(ds.Gaps) != len(ds.Recommendations) {
			t.Errorf("%s: got %d gaps, %d recommendations", ds.DomainID, len(ds.Gaps), len(ds.Recommendations))
		}
	}
}

func TestScoreHumanCapitalReversed(t *testing.T) {
	answers := map[string]model.Answer{"hc-1": {Value: "50+"}}
	scores, _, _ := ScoreAssessment(answers)
	for _, ds := range scores {
		if ds.DomainID == DomainHumanCapital && ds.Score != 10 {
			t.Errorf("50+ should score 10, got %v", ds.Score)
		}
	}
}

func TestStatusAndLevel(t *testing.T) {
	statuses := []struct {
		pct  float64
		want string
	}{
		{100, model.StatusExcellent}, {85, model.StatusExcellent}, {84.9, model.StatusGood},
		{65, model.StatusGood}, {40, model.StatusModerate}, {39.9, model.StatusNeedsImprovement},
	}
	for _, tt := range statuses {
		if got := StatusFor(tt.pct); got != tt.want {
			t.Errorf("StatusFor(%v): got %s, want %s", tt.pct, got, tt.want)
		}
	}
	levels := []struct {
		pct  float64
		want string
	}{
		{70, model.LevelHigh}, {69.9, model.LevelMedium}, {40, model.LevelMedium}, {0, model.LevelLow},
	}
	for _, tt := range levels {
		if got := LevelFor(tt.pct); got != tt.want {
			t.Errorf("LevelFor(%v): got %s, want %s", tt.pct, got, tt.want)
		}
	}
}

func newTestAssessments(t *testing.T) (*AssessmentService, *config.Store, int64) {
	t.Helper()
	_, store := newTestAuth(t)
	admin := seedAdmin(t, store, "assess@example.com", "password123", nil)
	return NewAssessmentService(store), store, admin.ID
}

func TestAssessmentLifecycle(t *testing.T) {
	svc, store, adminID := newTestAssessments(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, adminID, "  ")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if a.Title != DefaultAssessmentTitle || a.Status != model.AssessmentDraft {
		t.Fatalf("unexpected assessment: %+v", a)
	}

	if _, err := svc.Complete(ctx, a.ID); !errors.Is(err, ErrIncomplete) {
		t.Fatalf("Complete empty: got %v, want ErrIncomplete", err)
	}

	answers := strongAnswers()
	evidence := map[string]string{}
	for qid, ans := range answers {
		if len(ans.Files) > 0 {
			evidence[qid] = ans.Files[0]
			delete(answers, qid)
		}
	}
	_, p, err := svc.SaveAnswers(ctx, a.ID, answers)
	if err != nil {
		t.Fatalf("SaveAnswers: %v", err)
	}
	if !p.CanComplete {
		t.Fatal("expected assessment to be completable")
	}
	for qid, name := range evidence {
		if _, _, err := svc.AddEvidence(ctx, a.ID, qid, name); err != nil {
			t.Fatalf("AddEvidence(%s): %v", qid, err)
		}
	}

	report, err := svc.Complete(ctx, a.ID)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if report.ID == 0 || report.OverallScore != OverallMaxScore || report.Level != model.LevelHigh {
		t.Errorf("unexpected report: %+v", report)
	}

	got, _, err := svc.Get(ctx, a.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != model.AssessmentCompleted || got.ReportID == nil || *got.ReportID != report.ID {
		t.Errorf("assessment not completed: %+v", got)
	}

	stored, err := store.GetReport(ctx, report.ID)
	if err != nil {
		t.Fatalf("GetReport: %v", err)
	}
	if len(stored.Domains) != 5 {
		t.Errorf("stored domains: got %d", len(stored.Domains))
	}

	if _, _, err := svc.SaveAnswers(ctx, a.ID, answers); !errors.Is(err, ErrNotDraft) {
		t.Errorf("SaveAnswers after completion: got %v", err)
	}
	if _, err := svc.Complete(ctx, a.ID); !errors.Is(err, ErrNotDraft) {
		t.Errorf("Complete twice: got %v", err)
	}
}

func TestSaveAnswersValidation(t *testing.T) {
	svc, _, adminID := newTestAssessments(t)
	ctx := context.Background()
	a, err := svc.Create(ctx, adminID, "Validation")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	tests := []struct {
		name    string
		answers map[string]model.Answer
	}{
		{"unknown question", map[string]model.Answer{"xx-1": {Value: "a"}}},
		{"bad option", map[string]model.Answer{"de-1": {Value: "Amazing"}}},
		{"unknown file", map[string]model.Answer{"de-4": {Files: []string{"nope.pdf"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := svc.SaveAnswers(ctx, a.ID, tt.answers); !errors.Is(err, ErrInvalidAnswer) {
				t.Fatalf("got %v, want ErrInvalidAnswer", err)
			}
		})
	}

	if _, _, err := svc.AddEvidence(ctx, a.ID, "de-2", "x.pdf"); !errors.Is(err, ErrInvalidAnswer) {
		t.Errorf("AddEvidence on textarea: got %v", err)
	}
}

func TestSaveAnswersMergeAndClear(t *testing.T) {
	svc, _, adminID := newTestAssessments(t)
	ctx := context.Background()
	a, _ := svc.Create(ctx, adminID, "Merge")

	if _, _, err := svc.SaveAnswers(ctx, a.ID, map[string]model.Answer{"ti-1": {Value: "Mixed"}}); err != nil {
		t.Fatalf("SaveAnswers: %v", err)
	}
	if _, _, err := svc.AddEvidence(ctx, a.ID, "ti-4", "arch.pdf"); err != nil {
		t.Fatalf("AddEvidence: %v", err)
	}
	got, _, err := svc.SaveAnswers(ctx, a.ID, map[string]model.Answer{"ti-2": {Value: " text "}})
	if err != nil {
		t.Fatalf("SaveAnswers: %v", err)
	}
	if got.Answers["ti-1"].Value != "Mixed" || got.Answers["ti-2"].Value != "text" {
		t.Errorf("merge failed: %+v", got.Answers)
	}
	if len(got.Answers["ti-4"].Files) != 1 {
		t.Errorf("evidence lost: %+v", got.Answers["ti-4"])
	}

	got, _, err = svc.SaveAnswers(ctx, a.ID, map[string]model.Answer{"ti-1": {}, "ti-4": {}})
	if err != nil {
		t.Fatalf("SaveAnswers clear: %v", err)
	}
	if _, ok := got.Answers["ti-1"]; ok {
		t.Error("expected ti-1 to be cleared")
	}
	if _, ok := got.Answers["ti-4"]; ok {
		t.Error("expected ti-4 evidence to be dropped")
	}
}
