package service

import (
	"strings"

	"github.com/phdlabs/admind/internal/model"
)

// Domain IDs of the readiness assessment.
const (
	DomainInfrastructure = "technological-infrastructure"
	DomainData           = "data-ecosystem"
	DomainHumanCapital   = "human-capital"
	DomainPolicy         = "government-policy"
	DomainInnovation     = "ai-innovation"
)

var domains = []model.Domain{
	{
		ID:          DomainInfrastructure,
		Title:       "Technological Infrastructure",
		Description: "Assess IT infrastructure, cloud capabilities, and technical readiness",
		Questions: []model.Question{
			{ID: "ti-1", Text: "What is your current cloud infrastructure setup?", Kind: model.QuestionSelect, Required: true,
				Options: []string{"Fully cloud-based", "Hybrid cloud", "On-premise", "Mixed"}},
			{ID: "ti-2", Text: "Describe your current AI/ML infrastructure capabilities", Kind: model.QuestionTextarea, Required: true},
			{ID: "ti-3", Text: "What AI/ML tools and platforms are currently in use?", Kind: model.QuestionTextarea},
			{ID: "ti-4", Text: "Upload evidence documents related to infrastructure (optional)", Kind: model.QuestionFile},
		},
	},
	{
		ID:          DomainData,
		Title:       "Data Ecosystem",
		Description: "Evaluate data quality, governance, and availability",
		Questions: []model.Question{
			{ID: "de-1", Text: "How would you rate your data quality?", Kind: model.QuestionSelect, Required: true,
				Options: []string{"Excellent", "Good", "Moderate", "Poor"}},
			{ID: "de-2", Text: "Describe your data governance framework", Kind: model.QuestionTextarea, Required: true},
			{ID: "de-3", Text: "What data sources are available for AI initiatives?", Kind: model.QuestionTextarea},
			{ID: "de-4", Text: "Upload data governance documentation (optional)", Kind: model.QuestionFile},
		},
	},
	{
		ID:          DomainHumanCapital,
		Title:       "Human Capital",
		Description: "Review workforce skills, training, and AI expertise",
		Questions: []model.Question{
			{ID: "hc-1", Text: "How many employees have AI/ML expertise?", Kind: model.QuestionSelect, Required: true,
				Options: []string{"0-5", "6-20", "21-50", "50+"}},
			{ID: "hc-2", Text: "Describe your AI training and development programs", Kind: model.QuestionTextarea, Required: true},
			{ID: "hc-3", Text: "What recruitment strategies are in place for AI talent?", Kind: model.QuestionTextarea},
			{ID: "hc-4", Text: "Upload training documentation or certifications (optional)", Kind: model.QuestionFile},
		},
	},
	{
		ID:          DomainPolicy,
		Title:       "Government Policy & Regulation",
		Description: "Analyze regulatory framework and policy alignment",
		Questions: []model.Question{
			{ID: "gp-1", Text: "How well-aligned is your organization with current AI regulations?", Kind: model.QuestionSelect, Required: true,
				Options: []string{"Fully aligned", "Mostly aligned", "Partially aligned", "Not aligned"}},
			{ID: "gp-2", Text: "Describe your compliance framework for AI governance", Kind: model.QuestionTextarea, Required: true},
			{ID: "gp-3", Text: "What regulatory challenges do you face?", Kind: model.QuestionTextarea},
			{ID: "gp-4", Text: "Upload compliance documentation (optional)", Kind: model.QuestionFile},
		},
	},
	{
		ID:          DomainInnovation,
		Title:       "AI Innovation & Economic Drivers",
		Description: "Examine innovation ecosystem and economic factors",
		Questions: []model.Question{
			{ID: "ai-1", Text: "What is your organization's AI innovation strategy?", Kind: model.QuestionSelect, Required: true,
				Options: []string{"Aggressive expansion", "Moderate growth", "Cautious exploration", "No strategy"}},
			{ID: "ai-2", Text: "Describe your AI research and development initiatives", Kind: model.QuestionTextarea, Required: true},
			{ID: "ai-3", Text: "What economic factors drive your AI investments?", Kind: model.QuestionTextarea},
			{ID: "ai-4", Text: "Upload innovation strategy documents (optional)", Kind: model.QuestionFile},
		},
	},
}

// Domains returns a copy of the assessment catalogue in display order.
func Domains() []model.Domain {
	out := make([]model.Domain, len(domains))
	for i, d := range domains {
		out[i] = d
		out[i].Questions = append([]model.Question(nil), d.Questions...)
	}
	return out
}

// LookupQuestion finds a question and the domain it belongs to.
func LookupQuestion(id string) (model.Domain, model.Question, bool) {
	for _, d := range domains {
		for _, q := range d.Questions {
			if q.ID == id {
				return d, q, true
			}
		}
	}
	return model.Domain{}, model.Question{}, false
}

// ComputeProgress reports per-domain and overall completion. A required
// question counts once it has a non-blank value (file questions need at least
// one file); optional questions always count.
func ComputeProgress(answers map[string]model.Answer) model.Progress {
	p := model.Progress{Domains: make([]model.DomainProgress, 0, len(domains)), CanComplete: true}
	var sum float64
	for _, d := range domains {
		dp := model.DomainProgress{DomainID: d.ID, Total: len(d.Questions)}
		for _, q := range d.Questions {
			if isAnswered(q, answers[q.ID]) {
				dp.Answered++
			}
		}
		if dp.Total > 0 {
			dp.Percent = float64(dp.Answered) / float64(dp.Total) * 100
		}
		dp.Complete = dp.Answered == dp.Total
		if !dp.Complete {
			p.CanComplete = false
		}
		sum += dp.Percent
		p.Domains = append(p.Domains, dp)
	}
	if len(domains) > 0 {
		p.Overall = sum / float64(len(domains))
	}
	return p
}

func isAnswered(q model.Question, a model.Answer) bool {
	if !q.Required {
		return true
	}
	if q.Kind == model.QuestionFile {
		return len(a.Files) > 0
	}
	return strings.TrimSpace(a.Value) != ""
}
