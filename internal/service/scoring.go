package service

import (
	"strings"

	"github.com/phdlabs/admind/internal/model"
)

// Scoring weights. Each domain is worth DomainMaxScore, the overall report
// OverallMaxScore.
const (
	DomainMaxScore  = 20.0
	OverallMaxScore = 100.0

	detailScore      = 5.0
	briefDetailScore = 3.0
	optionalScore    = 2.5
	evidenceScore    = 2.5

	// Required free-text answers shorter than this earn briefDetailScore.
	minDetailLength = 40
)

// selectScores are awarded from the strongest option down.
var selectScores = []float64{10, 8, 5, 2}

// reversedSelects lists select questions whose options run weakest first.
var reversedSelects = map[string]bool{
	"hc-1": true,
}

// guidance holds the gap and recommendation texts of one domain, keyed by
// the weakness they address.
type guidance struct {
	weakSelect  [2]string
	noDetail    [2]string
	noExtra     [2]string
	noEvidence  [2]string
	strongPoint string
}

var domainGuidance = map[string]guidance{
	DomainInfrastructure: {
		weakSelect:  [2]string{"Infrastructure is not yet ready to host AI workloads at scale", "Develop a cloud adoption roadmap that covers GPU capacity and MLOps tooling"},
		noDetail:    [2]string{"Current AI/ML infrastructure capabilities are not documented", "Inventory compute, storage and deployment capabilities available to AI projects"},
		noExtra:     [2]string{"No AI/ML tools or platforms identified", "Standardise on a supported set of AI/ML platforms"},
		noEvidence:  [2]string{"No infrastructure evidence provided", "Upload architecture diagrams or capacity assessments to support the assessment"},
		strongPoint: "Maintain infrastructure capacity planning as AI workloads grow",
	},
	DomainData: {
		weakSelect:  [2]string{"Data quality is insufficient for reliable AI outcomes", "Introduce data quality metrics and remediation for priority datasets"},
		noDetail:    [2]string{"Data governance framework is missing or undocumented", "Define data ownership, stewardship and access policies"},
		noExtra:     [2]string{"Data sources available for AI are not catalogued", "Build a data catalogue covering sources eligible for AI initiatives"},
		noEvidence:  [2]string{"No data governance documentation provided", "Upload data governance policies or data management plans"},
		strongPoint: "Keep data governance controls under periodic review",
	},
	DomainHumanCapital: {
		weakSelect:  [2]string{"Limited in-house AI/ML expertise", "Establish an AI skills programme and partner with academic institutions"},
		noDetail:    [2]string{"No structured AI training or development programme", "Launch role-based AI literacy and upskilling programmes"},
		noExtra:     [2]string{"No recruitment strategy for AI talent", "Define a talent acquisition plan for data science and ML engineering roles"},
		noEvidence:  [2]string{"No training documentation or certifications provided", "Upload training curricula or staff certifications"},
		strongPoint: "Retain AI talent through career paths and continuous learning",
	},
	DomainPolicy: {
		weakSelect:  [2]string{"Weak alignment with current AI regulations", "Map obligations under applicable AI regulation and close compliance gaps"},
		noDetail:    [2]string{"AI compliance framework is missing or undocumented", "Adopt an AI governance framework such as the NIST AI RMF"},
		noExtra:     [2]string{"Regulatory challenges have not been identified", "Run a regulatory horizon scan for upcoming AI legislation"},
		noEvidence:  [2]string{"No compliance documentation provided", "Upload compliance assessments or audit reports"},
		strongPoint: "Monitor regulatory developments and update controls accordingly",
	},
	DomainInnovation: {
		weakSelect:  [2]string{"No clear AI innovation strategy", "Define an AI strategy with measurable objectives and executive sponsorship"},
		noDetail:    [2]string{"AI research and development initiatives are not described", "Set up a pipeline of AI pilots with clear success criteria"},
		noExtra:     [2]string{"Economic drivers for AI investment are not articulated", "Build business cases that quantify expected AI value"},
		noEvidence:  [2]string{"No innovation strategy documents provided", "Upload strategy documents or innovation roadmaps"},
		strongPoint: "Scale successful AI pilots into production programmes",
	},
}

// ScoreAssessment scores every domain of the answers and returns the domain
// scores, the overall score and the readiness level.
func ScoreAssessment(answers map[string]model.Answer) ([]model.DomainScore, float64, string) {
	out := make([]model.DomainScore, 0, len(domains))
	var overall float64
	for _, d := range domains {
		ds := scoreDomain(d, answers)
		overall += ds.Score
		out = append(out, ds)
	}
	return out, overall, LevelFor(overall / OverallMaxScore * 100)
}

func scoreDomain(d model.Domain, answers map[string]model.Answer) model.DomainScore {
	ds := model.DomainScore{
		DomainID:        d.ID,
		Title:           d.Title,
		MaxScore:        DomainMaxScore,
		Gaps:            []string{},
		Recommendations: []string{},
	}
	g := domainGuidance[d.ID]
	addGap := func(texts [2]string) {
		ds.Gaps = append(ds.Gaps, texts[0])
		ds.Recommendations = append(ds.Recommendations, texts[1])
	}

	for _, q := range d.Questions {
		a := answers[q.ID]
		value := strings.TrimSpace(a.Value)
		switch {
		case q.Kind == model.QuestionSelect:
			rank := optionRank(q, value)
			if rank >= 0 && rank < len(selectScores) {
				ds.Score += selectScores[rank]
			}
			if rank < 0 || rank >= 2 {
				addGap(g.weakSelect)
			}
		case q.Kind == model.QuestionFile:
			if len(a.Files) > 0 {
				ds.Score += evidenceScore
			} else {
				addGap(g.noEvidence)
			}
		case q.Required:
			switch {
			case len(value) >= minDetailLength:
				ds.Score += detailScore
			case value != "":
				ds.Score += briefDetailScore
				addGap(g.noDetail)
			default:
				addGap(g.noDetail)
			}
		default:
			if value != "" {
				ds.Score += optionalScore
			} else {
				addGap(g.noExtra)
			}
		}
	}

	ds.Status = StatusFor(ds.Percent())
	if len(ds.Gaps) == 0 {
		ds.Recommendations = append(ds.Recommendations, g.strongPoint)
	}
	return ds
}

// optionRank returns the strength rank of a select answer, 0 being the
// strongest, or -1 when the value is not an option.
func optionRank(q model.Question, value string) int {
	for i, opt := range q.Options {
		if opt == value {
			if reversedSelects[q.ID] {
				return len(q.Options) - 1 - i
			}
			return i
		}
	}
	return -1
}

// StatusFor maps a domain percentage to its status.
func StatusFor(percent float64) string {
	switch {
	case percent >= 85:
		return model.StatusExcellent
	case percent >= 65:
		return model.StatusGood
	case percent >= 40:
		return model.StatusModerate
	default:
		return model.StatusNeedsImprovement
	}
}

// LevelFor maps an overall percentage to a readiness level.
func LevelFor(percent float64) string {
	switch {
	case percent >= 70:
		return model.LevelHigh
	case percent >= 40:
		return model.LevelMedium
	default:
		return model.LevelLow
	}
}
