package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"text/template"

	"github.com/phdlabs/admind/internal/config"
	"github.com/phdlabs/admind/internal/model"
)

var ErrInvalidContext = errors.New("invalid policy context")

// PolicyOptions are the accepted values of the policy generator form.
type PolicyOptions struct {
	Sectors           []string `json:"sectors"`
	OrganizationSizes []string `json:"organizationSizes"`
	RiskAppetites     []string `json:"riskAppetites"`
	Timelines         []string `json:"timelines"`
}

var policyOptions = PolicyOptions{
	Sectors: []string{
		"Government", "Healthcare", "Finance", "Education", "Technology", "Manufacturing", "Other",
	},
	OrganizationSizes: []string{
		"Small (< 50 employees)",
		"Medium (50-500 employees)",
		"Large (500-5000 employees)",
		"Enterprise (> 5000 employees)",
	},
	RiskAppetites: []string{"Conservative", "Moderate", "Aggressive"},
	Timelines: []string{
		"Immediate (0-3 months)",
		"Short-term (3-6 months)",
		"Medium-term (6-12 months)",
		"Long-term (12+ months)",
	},
}

// Options returns the accepted generator inputs.
func Options() PolicyOptions {
	return PolicyOptions{
		Sectors:           slices.Clone(policyOptions.Sectors),
		OrganizationSizes: slices.Clone(policyOptions.OrganizationSizes),
		RiskAppetites:     slices.Clone(policyOptions.RiskAppetites),
		Timelines:         slices.Clone(policyOptions.Timelines),
	}
}

// ---------------------------------------------------------------------------
// Section templates
// ---------------------------------------------------------------------------

type sectionDef struct {
	id         string
	title      string
	rationale  string
	references []string
	body       string
}

var sectionDefs = []sectionDef{
	{
		id:         "1",
		title:      "Introduction and Scope",
		rationale:  "Based on EU AI Act and OECD AI Principles",
		references: []string{"EU AI Act (2024)", "OECD AI Principles (2019)"},
		body: `This policy establishes guidelines for the development, deployment, and use of artificial intelligence systems within the organization. ` +
			`It applies to every employee, contractor and third party who designs, procures or operates AI systems on behalf of the organization. ` +
			`As a {{lower .Sector}} sector organization, particular attention is given to {{.SectorFocus}}.`,
	},
	{
		id:         "2",
		title:      "AI Governance Framework",
		rationale:  "Aligned with ISO/IEC 23053:2022 framework",
		references: []string{"ISO/IEC 23053:2022", "NIST AI Risk Management Framework"},
		body: `{{if .Small}}The organization shall designate an AI lead accountable for overseeing AI initiatives, supported by representatives from legal, security and the business.` +
			`{{else}}The organization shall establish an AI governance committee responsible for overseeing AI initiatives, with members drawn from legal, security, data protection and the business units.{{end}} ` +
			`All AI systems shall be recorded in an inventory with a named owner, intended purpose and risk classification. Governance arrangements are reviewed {{.ReviewCadence}}.`,
	},
	{
		id:         "3",
		title:      "Risk Management",
		rationale:  "Follows the NIST AI RMF govern, map, measure and manage functions",
		references: []string{"NIST AI Risk Management Framework (2023)", "ISO/IEC 23894:2023"},
		body: `Reflecting a {{lower .RiskAppetite}} risk appetite, the organization requires {{.RiskControl}}. ` +
			`Identified risks are recorded in the AI risk register and reassessed {{.ReviewCadence}}.` +
			`{{if .Priorities}} Based on the latest readiness report, the following areas are treated as priority risks: {{join .Priorities "; "}}.{{end}}`,
	},
	{
		id:         "4",
		title:      "Data Governance and Privacy",
		rationale:  "Consistent with GDPR data protection principles",
		references: []string{"General Data Protection Regulation (2016/679)", "ISO/IEC 27701:2019"},
		body: `Data used to train, validate or operate AI systems shall be lawfully obtained, documented and of sufficient quality for its intended purpose. ` +
			`Personal data is processed only where a legal basis exists, minimised to what is necessary and protected by privacy impact assessments for high-risk processing.`,
	},
	{
		id:         "5",
		title:      "Ethics and Transparency",
		rationale:  "Grounded in the UNESCO Recommendation on the Ethics of AI",
		references: []string{"UNESCO Recommendation on the Ethics of Artificial Intelligence (2021)", "OECD AI Principles (2019)"},
		body: `AI systems shall be designed to respect human rights, avoid unfair bias and remain subject to meaningful human oversight. ` +
			`People affected by AI-assisted decisions shall be informed that AI is used and given a route to contest outcomes.`,
	},
	{
		id:         "6",
		title:      "Implementation Roadmap",
		rationale:  "Phased adoption matched to the selected timeline",
		references: []string{"NIST AI RMF Playbook"},
		body: `The policy is implemented over {{.Months}} months in three phases. ` +
			`{{range $i, $p := .Phases}}{{if $i}} {{end}}Phase {{inc $i}} ({{$p.Window}}): {{$p.Goal}}.{{end}}`,
	},
}

var sectionFuncs = template.FuncMap{
	"lower": strings.ToLower,
	"join":  strings.Join,
	"inc":   func(i int) int { return i + 1 },
}

type roadmapPhase struct {
	Window string
	Goal   string
}

type policyData struct {
	model.PolicyContext
	Small         bool
	SectorFocus   string
	RiskControl   string
	ReviewCadence string
	Priorities    []string
	Months        int
	Phases        []roadmapPhase
}

var sectorFocus = map[string]string{
	"Government":    "public accountability and transparency obligations",
	"Healthcare":    "patient safety and the protection of health data",
	"Finance":       "model risk management and consumer protection",
	"Education":     "learner privacy and academic integrity",
	"Technology":    "product safety and responsible release practices",
	"Manufacturing": "operational safety and quality assurance",
	"Other":         "the regulatory obligations specific to its activities",
}

var riskControls = map[string][2]string{
	"Conservative": {"a documented impact assessment and approval by the governance body before any AI system is deployed", "quarterly"},
	"Moderate":     {"impact assessments for systems classified as high risk and lightweight review for all others", "every six months"},
	"Aggressive":   {"risk-tiered assessment, allowing rapid experimentation in sandboxed environments before production use", "annually"},
}

var timelineMonths = map[string]int{
	"Immediate (0-3 months)":    3,
	"Short-term (3-6 months)":   6,
	"Medium-term (6-12 months)": 12,
	"Long-term (12+ months)":    18,
}

// ---------------------------------------------------------------------------
// Generator
// ---------------------------------------------------------------------------

// PolicyGenerator renders AI policies from an organisational context.
type PolicyGenerator struct {
	store    *config.Store
	sections []*template.Template
}

func NewPolicyGenerator(store *config.Store) *PolicyGenerator {
	g := &PolicyGenerator{store: store}
	for _, def := range sectionDefs {
		g.sections = append(g.sections, template.Must(template.New(def.id).Funcs(sectionFuncs).Parse(def.body)))
	}
	return g
}

// Generate validates pc and renders a policy. When pc references a readiness
// report, the report's weakest domains become priority risks.
func (g *PolicyGenerator) Generate(ctx context.Context, pc model.PolicyContext) (*model.GeneratedPolicy, error) {
	if err := ValidatePolicyContext(pc); err != nil {
		return nil, err
	}

	data := policyData{
		PolicyContext: pc,
		Small:         pc.OrganizationSize == policyOptions.OrganizationSizes[0],
		SectorFocus:   sectorFocus[pc.Sector],
		RiskControl:   riskControls[pc.RiskAppetite][0],
		ReviewCadence: riskControls[pc.RiskAppetite][1],
		Months:        timelineMonths[pc.Timeline],
		Phases:        roadmap(timelineMonths[pc.Timeline]),
	}

	if pc.ReportID != nil {
		report, err := g.store.GetReport(ctx, *pc.ReportID)
		if err != nil {
			return nil, fmt.Errorf("load report %d: %w", *pc.ReportID, err)
		}
		data.Priorities = priorities(report)
	}

	out := &model.GeneratedPolicy{
		Title:            pc.Sector + " AI Governance Policy",
		Context:          pc,
		ExecutiveSummary: executiveSummary(pc),
		Sections:         make([]model.PolicySection, 0, len(sectionDefs)),
	}
	for i, def := range sectionDefs {
		var buf bytes.Buffer
		if err := g.sections[i].Execute(&buf, data); err != nil {
			return nil, fmt.Errorf("render section %q: %w", def.title, err)
		}
		out.Sections = append(out.Sections, model.PolicySection{
			ID:         def.id,
			Title:      def.title,
			Content:    buf.String(),
			Rationale:  def.rationale,
			References: slices.Clone(def.references),
		})
	}
	return out, nil
}

// ValidatePolicyContext checks every field against the accepted options.
func ValidatePolicyContext(pc model.PolicyContext) error {
	checks := []struct {
		field, value string
		options      []string
	}{
		{"sector", pc.Sector, policyOptions.Sectors},
		{"organizationSize", pc.OrganizationSize, policyOptions.OrganizationSizes},
		{"riskAppetite", pc.RiskAppetite, policyOptions.RiskAppetites},
		{"timeline", pc.Timeline, policyOptions.Timelines},
	}
	for _, c := range checks {
		if c.value == "" {
			return fmt.Errorf("%w: %s is required", ErrInvalidContext, c.field)
		}
		if !slices.Contains(c.options, c.value) {
			return fmt.Errorf("%w: unknown %s %q", ErrInvalidContext, c.field, c.value)
		}
	}
	return nil
}

func executiveSummary(pc model.PolicyContext) string {
	return fmt.Sprintf("This AI policy has been tailored for a %s organization in the %s sector with a %s risk appetite. "+
		"The policy addresses key AI governance, ethics, and compliance requirements based on international best practices and regulatory frameworks.",
		strings.ToLower(pc.OrganizationSize), pc.Sector, strings.ToLower(pc.RiskAppetite))
}

// roadmap splits the implementation window into three phases.
func roadmap(months int) []roadmapPhase {
	goals := []string{
		"appoint governance roles, build the AI system inventory and adopt this policy",
		"classify existing systems by risk, run impact assessments and deliver staff training",
		"audit compliance, measure outcomes and refine controls for the next cycle",
	}
	step := months / 3
	out := make([]roadmapPhase, len(goals))
	for i, goal := range goals {
		start, end := i*step, (i+1)*step
		if i == len(goals)-1 {
			end = months
		}
		out[i] = roadmapPhase{Window: fmt.Sprintf("months %d-%d", start, end), Goal: goal}
	}
	return out
}

// priorities lists the domains of a report that are below good, weakest first.
func priorities(r *model.Report) []string {
	weak := make([]model.DomainScore, 0, len(r.Domains))
	for _, d := range r.Domains {
		if d.Status == model.StatusModerate || d.Status == model.StatusNeedsImprovement {
			weak = append(weak, d)
		}
	}
	slices.SortStableFunc(weak, func(a, b model.DomainScore) int {
		switch {
		case a.Percent() < b.Percent():
			return -1
		case a.Percent() > b.Percent():
			return 1
		}
		return 0
	})
	out := make([]string, len(weak))
	for i, d := range weak {
		out[i] = d.Title
	}
	return out
}
