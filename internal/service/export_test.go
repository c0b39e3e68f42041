package service

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/phdlabs/admind/internal/model"
)

func testReport() *model.Report {
	scores, overall, level := ScoreAssessment(requiredOnly())
	return &model.Report{
		ID:           1,
		Title:        "Baseline Report",
		OverallScore: overall,
		MaxScore:     OverallMaxScore,
		Level:        level,
		Domains:      scores,
		CreatedAt:    time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func testPolicy() *model.Policy {
	return &model.Policy{
		ID:               7,
		Title:            "Finance AI Governance Policy",
		Sector:           "Finance",
		OrganizationSize: "Large (500-5000 employees)",
		RiskAppetite:     "Moderate",
		Timeline:         "Medium-term (6-12 months)",
		Status:           model.PolicyDraft,
		Version:          2,
		ExecutiveSummary: "Summary text.",
		Sections: []model.PolicySection{
			{ID: "1", Title: "Introduction and Scope", Content: "Body “quoted”.", Rationale: "Why", References: []string{"EU AI Act (2024)"}},
		},
	}
}

func TestLookupExporter(t *testing.T) {
	if _, err := LookupExporter(ReportExporters, "PDF"); err != nil {
		t.Errorf("pdf: %v", err)
	}
	if _, err := LookupExporter(PolicyExporters, "docx"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("docx: got %v", err)
	}
	if _, err := LookupExporter(ReportExporters, "md"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("report md: got %v", err)
	}
}

func TestWriteReportPDF(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteReportPDF(&buf, testReport()); err != nil {
		t.Fatalf("WriteReportPDF: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Fatalf("not a PDF: %q", buf.Bytes()[:min(16, buf.Len())])
	}
}

func TestWritePolicyPDF(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePolicyPDF(&buf, testPolicy()); err != nil {
		t.Fatalf("WritePolicyPDF: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Fatal("not a PDF")
	}
}

func TestWriteReportExcel(t *testing.T) {
	var buf bytes.Buffer
	r := testReport()
	if err := WriteReportExcel(&buf, r); err != nil {
		t.Fatalf("WriteReportExcel: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	if got, _ := f.GetCellValue("Summary", "B1"); got != r.Title {
		t.Errorf("B1: got %q, want %q", got, r.Title)
	}
	if got, _ := f.GetCellValue("Summary", "A8"); got != r.Domains[0].Title {
		t.Errorf("A8: got %q, want %q", got, r.Domains[0].Title)
	}
	rows, err := f.GetRows("Findings")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	var findings int
	for _, d := range r.Domains {
		findings += len(d.Gaps) + len(d.Recommendations)
	}
	if len(rows) != findings+1 {
		t.Errorf("findings rows: got %d, want %d", len(rows), findings+1)
	}
}

func TestWritePolicyMarkdown(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePolicyMarkdown(&buf, testPolicy()); err != nil {
		t.Fatalf("WritePolicyMarkdown: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"# Finance AI Governance Policy\n",
		"## Executive Summary\n\nSummary text.",
		"## 1. Introduction and Scope",
		"*Rationale: Why*",
		"- EU AI Act (2024)",
		"| Finance | Large (500-5000 employees) | Moderate |",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q:\n%s", want, out)
		}
	}
}
